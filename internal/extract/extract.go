package extract

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ErrNoComponents is returned when no component survives the exclusion list.
var ErrNoComponents = errors.New("no components found in architecture")

// Component is one named unit extracted from the architecture text.
type Component struct {
	Name string `json:"name"`
}

// Lower is the file-name stem for the component.
func (c Component) Lower() string { return strings.ToLower(c.Name) }

// Set has set semantics; enumeration order carries no meaning.
type Set map[string]Component

func (s Set) Add(name string) { s[name] = Component{Name: name} }

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the member names sorted, for display and stable iteration.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Sorted returns the components ordered by name.
func (s Set) Sorted() []Component {
	names := s.Names()
	out := make([]Component, len(names))
	for i, n := range names {
		out[i] = s[n]
	}
	return out
}

// Matcher finds candidate names in the full text.
type Matcher func(text string) []string

// Excluded lists generic or ecosystem words that are never components.
var Excluded = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"Component", "Service", "Class", "Interface", "Implementation",
		"React", "Next", "JavaScript", "TypeScript", "Node", "Express",
		"Frontend", "Backend", "Database", "System", "Module", "Function",
		"Architecture", "Design", "Pattern", "Testing", "Documentation",
	} {
		Excluded[w] = struct{}{}
	}
}

// Matchers is the cascade. Every matcher runs over the entire text; results
// are unioned.
var Matchers = []Matcher{
	capture(`(?m)^##\s*Component:\s*(\w+)`, anyWord),
	capture(`(?m)^###\s+(\w+Component)\b`, anyWord),
	capture(`(?m)^###\s+(\w+Service)\b`, anyWord),
	capture(`(?m)^###\s+(\w+)[ \t]*$`, identifier),
	capture(`(?m)^##\s+(\w+Service)\b`, anyWord),
	capture(`(?m)^##\s+(\w+Component)\b`, anyWord),
	capture(`(?m)^##\s+Components\s+[-*]\s*(\w+)`, identifier),
	capture(`(?m)^\s*[-*]\s*(\w+(?:Component|Service))\b`, anyWord),
	capture(`(?m)^\s*[-*]\s*(\w+)[ \t]*(?:$|-|:)`, identifier),
	capture(`\bclass\s+(\w+)[\s:{(]`, identifier),
	capture(`\binterface\s+(\w+)\s*[:{]`, identifier),
	capture(`\btype\s+(\w+)\s+(?:struct|interface)\b`, identifier),
	capture(`\b((?:[A-Z][a-z0-9]+){2,})\b`, anyWord),
}

// Extract runs every matcher, unions the hits and drops excluded words.
func Extract(text string) (Set, error) {
	return ExtractWith(text, Matchers)
}

// ExtractWith is Extract with an explicit cascade.
func ExtractWith(text string, matchers []Matcher) (Set, error) {
	out := Set{}
	for _, m := range matchers {
		for _, name := range m(text) {
			if _, skip := Excluded[name]; skip {
				continue
			}
			out.Add(name)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoComponents
	}
	return out, nil
}

// Section returns the body under "## Component: <name>" up to the next
// second-level heading, or "" when the heading is absent.
func Section(text, name string) string {
	re := regexp.MustCompile(`(?ms)^##\s*Component:\s*` + regexp.QuoteMeta(name) + `\b[^\n]*\n(.*?)(?:^##\s|\z)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func capture(pattern string, accept func(string) bool) Matcher {
	re := regexp.MustCompile(pattern)
	return func(text string) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if accept(m[1]) {
				out = append(out, m[1])
			}
		}
		return out
	}
}

func anyWord(s string) bool { return s != "" }

// identifier accepts names that look like type names: a leading uppercase
// letter, so bullet prose and lowercase headings are ignored.
func identifier(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return unicode.IsUpper(r[0])
}
