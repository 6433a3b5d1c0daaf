package artifact

import (
	"fmt"
	"strings"

	"sparcflow/internal/techstack"
)

// SystemPrompt frames every document call with the description, the detected
// stack and any imported project context.
func SystemPrompt(description string, stack techstack.TechStack, imported string) string {
	var b strings.Builder
	b.WriteString(`You are a software architect writing SPARC framework documentation
(Specification, Pseudocode, Architecture, Refinement, Completion).
`)
	if strings.TrimSpace(imported) != "" {
		b.WriteString(`
Imported project context follows. Stay consistent with it, keep its technical decisions
and expand it where details are missing.
`)
		b.WriteString(imported)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `
Project Description: %s

Technology Stack:
- Framework/Runtime: %s
- Language: %s
- Features: %s`, description, stack.Framework, stack.Language, strings.Join(stack.Features, ", "))
	return b.String()
}

// Prompts returns one user prompt per document for description.
func Prompts(description string) map[Name]string {
	return map[Name]string{
		Specification: fmt.Sprintf(`Generate a detailed software specification for: %s
Include:
- Project Overview
- Functional and Non-Functional Requirements
- User Scenarios and User Flows
- File Structure Proposal
- Constraints and Assumptions
Be verbose and complete; the document guides development and testing.

Format in Markdown.`, description),

		Architecture: fmt.Sprintf(`Generate a detailed software architecture for: %s
Include:
- System Components, one "## Component: <Name>" heading per component with its responsibilities
- Component Interactions
- Data Flow
- Key Design Decisions
- File and folder structure with a brief description of each component
Be verbose and complete.

Format in Markdown.`, description),

		Pseudocode: fmt.Sprintf(`Generate pseudocode for key components of: %s
Include:
- Core Classes/Functions
- Important Algorithms
- Data Structures
Use inline comments to explain the logic and flow; this guides the implementation.

Format in Markdown.`, description),

		Refinement: fmt.Sprintf(`Generate implementation details and refinements for: %s
Include:
- Implementation Steps
- Error Handling
- Testing Strategy
- Performance Considerations

Format in Markdown.`, description),

		Completion: fmt.Sprintf(`Generate completion criteria and project structure for: %s
Include:
- Project Structure
- Development Steps
- Testing Requirements
- Deployment Considerations
- Final Checklist

Format in Markdown.`, description),
	}
}
