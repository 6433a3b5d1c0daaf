package architect

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparcflow/internal/artifact"
	"sparcflow/internal/guidance"
	"sparcflow/internal/llm"
	"sparcflow/internal/metrics"
	"sparcflow/internal/techstack"
)

var stack = techstack.TechStack{Framework: "SPARC", Language: "python", Features: []string{"cli"}}

// inflightClient records the highest number of concurrent Complete calls.
type inflightClient struct {
	cur, max atomic.Int32
	hold     time.Duration
}

func (c *inflightClient) Name() string { return "inflight" }
func (c *inflightClient) Close() error { return nil }
func (c *inflightClient) Complete(ctx context.Context, _ llm.Request) (string, error) {
	n := c.cur.Add(1)
	defer c.cur.Add(-1)
	for {
		m := c.max.Load()
		if n <= m || c.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(c.hold)
	return "# " + llm.PhaseFrom(ctx), nil
}

func TestGenerateProducesAllDocumentsInOrder(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Responses["Specification.md"] = "SPEC"
	fake.Responses["Architecture.md"] = "ARCH"
	m := metrics.New()
	g := &Generator{LLM: fake, Model: "fake", Metrics: m}

	res, err := g.Generate(context.Background(), "a logging system", stack, Options{})
	require.NoError(t, err)

	want := append(append([]artifact.Name{}, artifact.Documents...), artifact.Guidance)
	assert.Equal(t, want, res.Set.Names())
	assert.Equal(t, "\n\n# Specification.md\nSPEC\n\n# Architecture.md\nARCH", res.ArchitectureContent)
	assert.Equal(t, 5, fake.TotalCalls())
	for _, r := range fake.Requests() {
		assert.InDelta(t, DefaultTemperature, r.Temperature, 1e-9)
		assert.Contains(t, r.System, "Language: python")
	}

	raw, ok := res.Set.Get(artifact.Guidance)
	require.True(t, ok)
	doc, err := guidance.Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, res.ArchitectureContent, doc.ArchitectureContent())
	assert.Equal(t, stack, doc.TechStack())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Documents.WithLabelValues("Pseudocode.md", "generated")))
}

func TestGenerateCapsConcurrency(t *testing.T) {
	c := &inflightClient{hold: 30 * time.Millisecond}
	g := &Generator{LLM: c, Concurrency: 2}
	_, err := g.Generate(context.Background(), "x", stack, Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, c.max.Load(), int32(2))
	assert.GreaterOrEqual(t, c.max.Load(), int32(1))

	c = &inflightClient{hold: 30 * time.Millisecond}
	g = &Generator{LLM: c}
	_, err = g.Generate(context.Background(), "x", stack, Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, c.max.Load(), int32(DefaultConcurrency))
}

func TestGenerateIsAllOrNothing(t *testing.T) {
	fake := llm.NewFakeClient()
	boom := errors.New("quota exceeded")
	fake.Failures["Refinement.md"] = boom
	g := &Generator{LLM: fake}

	res, err := g.Generate(context.Background(), "x", stack, Options{})
	require.Error(t, err)
	assert.Nil(t, res.Set)

	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, artifact.Refinement, ge.Document)
	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.Contains(err.Error(), "Refinement.md"))
}

func TestGenerateRejectsEmptyDocument(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Responses["Completion.md"] = "  \n"
	_, err := (&Generator{LLM: fake}).Generate(context.Background(), "x", stack, Options{})
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, artifact.Completion, ge.Document)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestGenerateReusesExistingDocuments(t *testing.T) {
	fake := llm.NewFakeClient()
	g := &Generator{LLM: fake}
	res, err := g.Generate(context.Background(), "x", stack, Options{
		Existing: map[artifact.Name]string{artifact.Architecture: "## Component: Kept"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.Calls("Architecture.md"))
	assert.Equal(t, 4, fake.TotalCalls())
	assert.Equal(t, []artifact.Name{artifact.Architecture}, res.Reused)
	assert.Contains(t, res.ArchitectureContent, "# Architecture.md\n## Component: Kept")
}

func TestGenerateImportedContextReachesSystemPrompt(t *testing.T) {
	fake := llm.NewFakeClient()
	g := &Generator{LLM: fake}
	_, err := g.Generate(context.Background(), "x", stack, Options{Imported: "\n\n# Content from Notes.md\nuse kafka"})
	require.NoError(t, err)

	reqs := fake.Requests()
	require.NotEmpty(t, reqs)
	assert.Contains(t, reqs[0].System, "use kafka")
}
