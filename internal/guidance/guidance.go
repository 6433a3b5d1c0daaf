package guidance

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sparcflow/internal/techstack"
)

// DefaultFile is the file name architect mode writes the guidance to.
const DefaultFile = "guidance.toml"

// Document is the persisted bridge between architect and implement mode.
// Humans may edit it between runs; implement re-reads it from disk every time.
type Document struct {
	Project        Project        `toml:"project"`
	Architecture   Architecture   `toml:"architecture"`
	Implementation Implementation `toml:"implementation"`
	Testing        Testing        `toml:"testing"`

	// Policy tables are not interpreted; unknown keys survive a load/save.
	Quality       map[string]any `toml:"quality"`
	Security      map[string]any `toml:"security"`
	Performance   map[string]any `toml:"performance"`
	Deployment    map[string]any `toml:"deployment"`
	Documentation map[string]any `toml:"documentation"`
}

type Project struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Framework   string   `toml:"framework"`
	Language    string   `toml:"language"`
	Features    []string `toml:"features"`
}

type Architecture struct {
	ComponentStyle string `toml:"component_style"`
	TestPattern    string `toml:"test_pattern"`
	SourceSuffix   string `toml:"source_suffix"`
	SrcDir         string `toml:"src_dir"`
	TestDir        string `toml:"test_dir"`
	DocsDir        string `toml:"docs_dir"`
	Content        string `toml:"content,multiline"`
}

type Implementation struct {
	MaxAttempts       int    `toml:"max_attempts"`
	TestFirst         bool   `toml:"test_first"`
	TypeHints         bool   `toml:"type_hints"`
	RequireDocstrings bool   `toml:"require_docstrings"`
	DocStyle          string `toml:"doc_style"`
}

type Testing struct {
	MinCoverage             int  `toml:"min_coverage"`
	UnitTestRequired        bool `toml:"unit_test_required"`
	IntegrationTestRequired bool `toml:"integration_test_required"`
	// TestCommand is an argv template; {file} and {stem} name the test file.
	TestCommand []string `toml:"test_command"`
}

// New builds a document for stack and the accumulated architecture text.
func New(stack techstack.TechStack, content, description string) Document {
	stack = stack.Normalize()
	prof := techstack.ProfileFor(stack.Lang())
	return Document{
		Project: Project{
			Name:        projectName(description),
			Description: description,
			Framework:   stack.Framework,
			Language:    stack.Language,
			Features:    stack.Features,
		},
		Architecture: Architecture{
			ComponentStyle: "PascalCase",
			TestPattern:    prof.TestFile("{name}"),
			SourceSuffix:   prof.SourceExt,
			SrcDir:         "src",
			TestDir:        "tests",
			DocsDir:        "docs",
			Content:        content,
		},
		Implementation: Implementation{
			MaxAttempts:       3,
			TestFirst:         true,
			TypeHints:         true,
			RequireDocstrings: true,
			DocStyle:          "Google",
		},
		Testing: Testing{
			MinCoverage:             80,
			UnitTestRequired:        true,
			IntegrationTestRequired: true,
			TestCommand:             append([]string(nil), prof.TestCommand...),
		},
		Quality: map[string]any{
			"max_complexity":     int64(10),
			"max_line_length":    int64(100),
			"require_type_hints": true,
		},
		Security: map[string]any{
			"require_input_validation": true,
			"require_authentication":   true,
			"require_authorization":    true,
		},
		Performance: map[string]any{
			"max_response_time_ms": int64(500),
			"max_memory_usage_mb":  int64(512),
			"enable_caching":       true,
		},
		Deployment: map[string]any{
			"containerize":        true,
			"ci_cd_required":      true,
			"monitoring_required": true,
		},
		Documentation: map[string]any{
			"readme_required":            true,
			"api_docs_required":          true,
			"architecture_docs_required": true,
		},
	}
}

// TechStack returns the project section as a normalized stack.
func (d Document) TechStack() techstack.TechStack {
	return techstack.TechStack{
		Framework: d.Project.Framework,
		Language:  d.Project.Language,
		Features:  d.Project.Features,
	}.Normalize()
}

// ArchitectureContent returns the accumulated architecture text verbatim.
func (d Document) ArchitectureContent() string { return d.Architecture.Content }

// Render encodes the document as TOML. Invalid UTF-8 in the free-text fields
// becomes U+FFFD so the file always decodes again.
func Render(d Document) ([]byte, error) {
	if d.Project.Features == nil {
		d.Project.Features = []string{}
	}
	d.Project.Name = validUTF8(d.Project.Name)
	d.Project.Description = validUTF8(d.Project.Description)
	d.Architecture.Content = validUTF8(d.Architecture.Content)
	features := make([]string, len(d.Project.Features))
	for i, f := range d.Project.Features {
		features[i] = validUTF8(f)
	}
	d.Project.Features = features
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode guidance: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes TOML bytes into a document.
func Parse(b []byte) (Document, error) {
	var d Document
	if err := toml.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("decode guidance: %w", err)
	}
	if d.Project.Features == nil {
		d.Project.Features = []string{}
	}
	return d, nil
}

// Save writes the document to path, creating parent directories.
func Save(path string, d Document) error {
	b, err := Render(d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a guidance document. A missing file yields an error matching
// fs.ErrNotExist.
func Load(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read guidance %s: %w", path, err)
	}
	d, err := Parse(b)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func validUTF8(s string) string { return strings.ToValidUTF8(s, "\uFFFD") }

func projectName(description string) string {
	words := strings.Fields(description)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
