package artifact

import "fmt"

// Name identifies one generated document.
type Name string

const (
	Specification Name = "Specification.md"
	Architecture  Name = "Architecture.md"
	Pseudocode    Name = "Pseudocode.md"
	Refinement    Name = "Refinement.md"
	Completion    Name = "Completion.md"
	// Guidance is the configuration document assembled after the five above.
	Guidance Name = "guidance.toml"
)

// Documents lists the completion-backed documents in generation order.
var Documents = []Name{Specification, Architecture, Pseudocode, Refinement, Completion}

// Accumulates reports whether the document feeds the architecture accumulator.
func (n Name) Accumulates() bool { return n == Specification || n == Architecture }

func (n Name) String() string { return string(n) }

// AccumulatorBlock is the slice one document contributes to architecture_content.
func AccumulatorBlock(n Name, content string) string {
	return fmt.Sprintf("\n\n# %s\n%s", n, content)
}

// Set maps document names to content and remembers insertion order.
type Set struct {
	order   []Name
	content map[Name]string
}

func NewSet() *Set { return &Set{content: map[Name]string{}} }

// Put stores content for n. Re-putting a name keeps its original position.
func (s *Set) Put(n Name, content string) {
	if s.content == nil {
		s.content = map[Name]string{}
	}
	if _, ok := s.content[n]; !ok {
		s.order = append(s.order, n)
	}
	s.content[n] = content
}

func (s *Set) Get(n Name) (string, bool) {
	if s == nil {
		return "", false
	}
	c, ok := s.content[n]
	return c, ok
}

// Names returns the names in insertion order.
func (s *Set) Names() []Name {
	if s == nil {
		return nil
	}
	out := make([]Name, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
