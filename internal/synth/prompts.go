package synth

import (
	"fmt"
	"strings"

	"sparcflow/internal/techstack"
)

func testInstruction(component string, stack techstack.TechStack, prof techstack.Profile, section string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create tests for the %s component using %s for %s (%s).
Write thorough unit tests covering the component's public behaviour.
Include edge cases and error conditions.
Only write the test file; do not implement the component.`,
		component, prof.TestFramework, stack.Framework, stack.Language)
	appendSection(&b, section)
	return b.String()
}

func implInstruction(component string, stack techstack.TechStack, testPath, section string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Implement the %s component using %s and %s.
The component should pass the tests in %s.
Follow the architecture and keep the public interface the tests expect.`,
		component, stack.Framework, stack.Language, testPath)
	appendSection(&b, section)
	return b.String()
}

func appendSection(b *strings.Builder, section string) {
	if section = strings.TrimSpace(section); section != "" {
		b.WriteString("\n\nArchitecture notes for this component:\n")
		b.WriteString(section)
	}
}
