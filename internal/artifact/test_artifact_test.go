package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparcflow/internal/safeio"
	"sparcflow/internal/techstack"
)

func newFS(t *testing.T) (*safeio.SafeFS, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := safeio.NewSafeFS(dir)
	require.NoError(t, err)
	return root, dir
}

func TestSetKeepsInsertionOrder(t *testing.T) {
	s := NewSet()
	s.Put(Pseudocode, "p")
	s.Put(Specification, "s")
	s.Put(Pseudocode, "p2")
	assert.Equal(t, []Name{Pseudocode, Specification}, s.Names())
	got, ok := s.Get(Pseudocode)
	assert.True(t, ok)
	assert.Equal(t, "p2", got)
	assert.Equal(t, 2, s.Len())
}

func TestAccumulates(t *testing.T) {
	for _, n := range Documents {
		want := n == Specification || n == Architecture
		assert.Equal(t, want, n.Accumulates(), n)
	}
	assert.False(t, Guidance.Accumulates())
	assert.Equal(t, "\n\n# Architecture.md\nbody", AccumulatorBlock(Architecture, "body"))
}

func TestPromptsCoverEveryDocument(t *testing.T) {
	p := Prompts("a logging system")
	require.Len(t, p, len(Documents))
	for _, n := range Documents {
		assert.Contains(t, p[n], "a logging system", n)
	}
	sys := SystemPrompt("a logging system", techstack.TechStack{Framework: "SPARC", Language: "python", Features: []string{"cli", "tdd"}}, "")
	assert.Contains(t, sys, "Language: python")
	assert.Contains(t, sys, "Features: cli, tdd")
	assert.NotContains(t, sys, "Imported project context")
}

func TestPersistIsWriteOnce(t *testing.T) {
	root, dir := newFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Architecture.md"), []byte("hand edited"), 0o644))

	s := NewSet()
	s.Put(Specification, "spec")
	s.Put(Architecture, "generated")
	res, err := Persist(root, s, nil)
	require.NoError(t, err)
	assert.Equal(t, []Name{Specification}, res.Written)
	assert.Equal(t, []Name{Architecture}, res.Skipped)

	b, err := os.ReadFile(filepath.Join(dir, "Architecture.md"))
	require.NoError(t, err)
	assert.Equal(t, "hand edited", string(b))

	existing, err := LoadExisting(root)
	require.NoError(t, err)
	assert.Equal(t, map[Name]string{Specification: "spec", Architecture: "hand edited"}, existing)
}

func TestImportSkipsUnlessForced(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "Notes.md"), []byte("notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Architecture.md"), []byte("imported arch"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ignored.txt"), []byte("x"), 0o644))

	root, dir := newFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Architecture.md"), []byte("mine"), 0o644))

	res, err := Import(src, root, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Notes.md"}, res.Imported)
	assert.Equal(t, []string{"Architecture.md"}, res.Skipped)
	assert.Empty(t, res.Failed)

	res, err = Import(src, root, true, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Architecture.md", "Notes.md"}, res.Imported)
	b, err := os.ReadFile(filepath.Join(dir, "Architecture.md"))
	require.NoError(t, err)
	assert.Equal(t, "imported arch", string(b))

	ctx, err := ImportedContext(root)
	require.NoError(t, err)
	assert.Equal(t, "\n\n# Content from Architecture.md\nimported arch\n\n# Content from Notes.md\nnotes", ctx)
}

func TestImportMissingSource(t *testing.T) {
	root, _ := newFS(t)
	_, err := Import(filepath.Join(t.TempDir(), "missing"), root, false, nil)
	assert.Error(t, err)
}

func TestDescriptionFrom(t *testing.T) {
	cases := []struct {
		name string
		spec string
		want string
	}{
		{"objective section", "# Specification\n\n## Objective\nBuild a log shipper\nwith retries.\n\n## Scope\nall", "Build a log shipper\nwith retries."},
		{"first paragraph", "\n\n  A todo API for teams.  \n\nMore text.", "A todo API for teams."},
		{"crlf objective", "## Objective\r\nTrack invoices.\r\n\r\nRest", "Track invoices."},
		{"empty", "  \n\n ", FallbackDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DescriptionFrom(tc.spec))
		})
	}
}
