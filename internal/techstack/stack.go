package techstack

import (
	"strings"
)

// TechStack is the detected {framework, language, features} triple.
type TechStack struct {
	Framework string   `json:"framework" toml:"framework"`
	Language  string   `json:"language" toml:"language"`
	Features  []string `json:"features" toml:"features"`
}

const (
	DefaultFramework = "SPARC"
	DefaultLanguage  = "python"
)

// Default is the stack used when detection cannot reach the model at all.
func Default() TechStack {
	return TechStack{
		Framework: DefaultFramework,
		Language:  DefaultLanguage,
		Features:  []string{"agent-management", "test-driven-development"},
	}
}

// Normalize fills the defaults for empty fields and trims feature noise.
func (ts TechStack) Normalize() TechStack {
	out := TechStack{
		Framework: strings.TrimSpace(ts.Framework),
		Language:  strings.TrimSpace(ts.Language),
		Features:  make([]string, 0, len(ts.Features)),
	}
	if out.Framework == "" {
		out.Framework = DefaultFramework
	}
	if out.Language == "" {
		out.Language = DefaultLanguage
	}
	for _, f := range ts.Features {
		if f = strings.TrimSpace(f); f != "" {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// Lang returns the recognized language variant for the stack.
func (ts TechStack) Lang() Language { return ParseLanguage(ts.Language) }

// Language is the closed set of stacks the pipeline knows how to drive.
type Language int

const (
	Unknown Language = iota
	Python
	TypeScript
	JavaScript
	Rust
	Go
)

func (l Language) String() string {
	switch l {
	case Python:
		return "python"
	case TypeScript:
		return "typescript"
	case JavaScript:
		return "javascript"
	case Rust:
		return "rust"
	case Go:
		return "go"
	default:
		return "unknown"
	}
}

// ParseLanguage maps free-form language names onto a variant.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return Python
	case "typescript", "ts", "tsx":
		return TypeScript
	case "javascript", "js", "node", "nodejs", "node.js", "jsx":
		return JavaScript
	case "rust", "rs":
		return Rust
	case "go", "golang":
		return Go
	default:
		return Unknown
	}
}

// Profile is what the synthesis loop needs to know about a language.
type Profile struct {
	Language      Language
	SourceExt     string
	TestFramework string
	// TestCommand is an argv template scoped to one test file: {file} is its
	// path, {stem} its base name without extension.
	TestCommand []string
	testName    func(lower string) string
}

// SourceFile returns the source file name for a lowercased component name.
func (p Profile) SourceFile(lower string) string { return lower + p.SourceExt }

// TestFile returns the test file name for a lowercased component name.
func (p Profile) TestFile(lower string) string { return p.testName(lower) }

// ProfileFor returns the profile for l. Unknown falls back to the JavaScript
// layout, the long-standing default of the tool.
func ProfileFor(l Language) Profile {
	switch l {
	case Python:
		return Profile{
			Language:      Python,
			SourceExt:     ".py",
			TestFramework: "pytest",
			TestCommand:   []string{"pytest", "-v", "{file}"},
			testName:      func(n string) string { return "test_" + n + ".py" },
		}
	case TypeScript:
		return Profile{
			Language:      TypeScript,
			SourceExt:     ".ts",
			TestFramework: "Jest",
			TestCommand:   []string{"npx", "jest", "{file}"},
			testName:      func(n string) string { return n + ".test.ts" },
		}
	case Rust:
		return Profile{
			Language:      Rust,
			SourceExt:     ".rs",
			TestFramework: "the built-in test harness",
			TestCommand:   []string{"cargo", "test", "--test", "{stem}"},
			testName:      func(n string) string { return n + "_test.rs" },
		}
	case Go:
		return Profile{
			Language:      Go,
			SourceExt:     ".go",
			TestFramework: "the testing package",
			TestCommand:   []string{"go", "test", "-v", "{file}"},
			testName:      func(n string) string { return n + "_test.go" },
		}
	default:
		return Profile{
			Language:      l,
			SourceExt:     ".js",
			TestFramework: "Jest",
			TestCommand:   []string{"npx", "jest", "{file}"},
			testName:      func(n string) string { return n + ".test.js" },
		}
	}
}
