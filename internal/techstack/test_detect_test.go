package techstack

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparcflow/internal/llm"
)

func detectorWith(resp string, err error) (*Detector, *llm.FakeClient) {
	fake := llm.NewFakeClient()
	if err != nil {
		fake.Failures[llm.PhaseTechStack] = err
	} else {
		fake.Responses[llm.PhaseTechStack] = resp
	}
	return &Detector{LLM: fake, Model: "fake"}, fake
}

func TestDetectStrict(t *testing.T) {
	d, fake := detectorWith(`{"framework": "Next.js", "language": "TypeScript", "features": ["ssr", "auth"]}`, nil)
	ts, stage := d.DetectWithStage(context.Background(), "a blog")
	assert.Equal(t, StageStrict, stage)
	assert.Equal(t, TechStack{Framework: "Next.js", Language: "TypeScript", Features: []string{"ssr", "auth"}}, ts)
	assert.Equal(t, 1, fake.Calls(llm.PhaseTechStack))

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.InDelta(t, 0.1, reqs[0].Temperature, 1e-9)
	assert.Contains(t, reqs[0].Prompt, "a blog")
}

func TestDetectEmbedded(t *testing.T) {
	d, _ := detectorWith("Here is the stack:\n{\"framework\": \"Axum\", \"language\": \"rust\", \"features\": []}\nLet me know!", nil)
	ts, stage := d.DetectWithStage(context.Background(), "an api")
	assert.Equal(t, StageEmbedded, stage)
	assert.Equal(t, "rust", ts.Language)
	assert.Equal(t, "Axum", ts.Framework)
	assert.NotNil(t, ts.Features)
	assert.Empty(t, ts.Features)
}

func TestDetectFieldFallback(t *testing.T) {
	// Trailing comma makes the object invalid JSON, so only field patterns work.
	resp := `framework: {"framework": "Django", "language": "python", "features": ["admin", 'orm'],}`
	d, _ := detectorWith(resp, nil)
	ts, stage := d.DetectWithStage(context.Background(), "a cms")
	assert.Equal(t, StageFields, stage)
	assert.Equal(t, TechStack{Framework: "Django", Language: "python", Features: []string{"admin", "orm"}}, ts)
}

func TestDetectFieldFallbackDefaults(t *testing.T) {
	d, _ := detectorWith(`I think "language": "go" fits best.`, nil)
	ts, stage := d.DetectWithStage(context.Background(), "a proxy")
	assert.Equal(t, StageFields, stage)
	assert.Equal(t, DefaultFramework, ts.Framework)
	assert.Equal(t, "go", ts.Language)
	assert.Equal(t, []string{}, ts.Features)
}

func TestDetectCompletionErrorUsesStaticDefault(t *testing.T) {
	d, fake := detectorWith("", errors.New("401 unauthorized"))
	ts, stage := d.DetectWithStage(context.Background(), "anything")
	assert.Equal(t, StageDefault, stage)
	assert.Equal(t, Default(), ts)
	// degrade chain, not a retry chain
	assert.Equal(t, 1, fake.Calls(llm.PhaseTechStack))
}

func TestDetectNeverReturnsEmptyLanguage(t *testing.T) {
	responses := []string{
		"",
		"{}",
		`{"language": ""}`,
		`{"language": "   "}`,
		"null",
		"[1,2,3]",
		"```json\n{\"framework\": \"\"}\n```",
		"totally unrelated prose",
	}
	for _, resp := range responses {
		d, _ := detectorWith(resp, nil)
		ts := d.Detect(context.Background(), "x")
		assert.NotEmpty(t, ts.Language, "response %q", resp)
		assert.NotEmpty(t, ts.Framework, "response %q", resp)
	}
}

func TestDetectWithoutClient(t *testing.T) {
	ts, stage := (&Detector{}).DetectWithStage(context.Background(), "x")
	assert.Equal(t, StageDefault, stage)
	assert.Equal(t, DefaultLanguage, ts.Language)
}

func TestParseLanguageAndProfiles(t *testing.T) {
	assert.Equal(t, TypeScript, ParseLanguage("TS"))
	assert.Equal(t, JavaScript, ParseLanguage("Node.js"))
	assert.Equal(t, Go, ParseLanguage("golang"))
	assert.Equal(t, Unknown, ParseLanguage("cobol"))

	py := ProfileFor(Python)
	assert.Equal(t, "logger.py", py.SourceFile("logger"))
	assert.Equal(t, "test_logger.py", py.TestFile("logger"))

	rs := ProfileFor(Rust)
	assert.Equal(t, "logger_test.rs", rs.TestFile("logger"))

	unk := ProfileFor(Unknown)
	assert.Equal(t, "logger.js", unk.SourceFile("logger"))
	assert.Equal(t, "logger.test.js", unk.TestFile("logger"))
}

func TestProfileTestCommandsTargetOneFile(t *testing.T) {
	for _, l := range []Language{Python, TypeScript, JavaScript, Rust, Go, Unknown} {
		cmd := strings.Join(ProfileFor(l).TestCommand, " ")
		assert.True(t, strings.Contains(cmd, "{file}") || strings.Contains(cmd, "{stem}"), "%s: %s", l, cmd)
		assert.NotContains(t, cmd, "./...", l.String())
	}
	assert.Equal(t, []string{"cargo", "test", "--test", "{stem}"}, ProfileFor(Rust).TestCommand)
}
