package artifact

import (
	"regexp"
	"strings"
)

// FallbackDescription is used when imported documents yield no usable text.
const FallbackDescription = "A software project following SPARC framework principles."

var reObjective = regexp.MustCompile(`(?s)## Objective\s+(.+?)(?:\n\n|\z)`)

// DescriptionFrom derives a project description from a specification: the
// paragraph under "## Objective", else the first non-empty paragraph.
func DescriptionFrom(spec string) string {
	spec = strings.ReplaceAll(spec, "\r\n", "\n")
	if m := reObjective.FindStringSubmatch(spec); m != nil {
		if d := strings.TrimSpace(m[1]); d != "" {
			return d
		}
	}
	for _, p := range strings.Split(spec, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return FallbackDescription
}
