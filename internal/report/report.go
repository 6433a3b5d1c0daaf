package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"sparcflow/internal/synth"
	"sparcflow/internal/util/jsonutil"
)

// FileName is the report written into the implement workdir.
const FileName = "report.json"

// detailWidth caps the detail column, counted in runes.
const detailWidth = 80

var (
	colorOK    = lipgloss.Color("#2CD7C7")
	colorWarn  = lipgloss.Color("#F4D03F")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#2C4A54")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
)

// Render formats the per-component table followed by one line per failed
// component naming the phase it stopped at.
func Render(rep synth.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("Implementation report: %d/%d components done", rep.Succeeded(), len(rep.Outcomes))))

	rows := make([][]string, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		stopped := "-"
		if o.Status != synth.Success {
			stopped = o.StoppedAt.Describe()
		}
		rows = append(rows, []string{o.Component, string(o.Status), stopped, strconv.Itoa(o.Attempts), firstLine(o.Detail)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers("COMPONENT", "STATUS", "STOPPED AT", "ATTEMPTS", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rep.Outcomes) {
				return cellStyle.Foreground(statusColor(rep.Outcomes[row].Status))
			}
			return cellStyle
		})
	b.WriteString(t.String())
	b.WriteString("\n")

	for _, line := range FailureLines(rep) {
		b.WriteString(errorStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// FailureLines returns "<component>: failed at <phase> (<kind>)" per failure.
func FailureLines(rep synth.Report) []string {
	var out []string
	for _, o := range rep.Failed() {
		line := fmt.Sprintf("%s: failed at %s (%s)", o.Component, o.StoppedAt.Describe(), o.Failure)
		if d := firstLine(o.Detail); d != "" {
			line += ": " + d
		}
		out = append(out, line)
	}
	return out
}

// Save writes the report as indented JSON.
func Save(path string, rep synth.Report) error {
	b, err := jsonutil.MarshalNoEscapeIndent(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func statusColor(s synth.Status) lipgloss.Color {
	switch s {
	case synth.Success:
		return colorOK
	case synth.TimedOut:
		return colorWarn
	default:
		return colorError
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > detailWidth {
		s = string(r[:detailWidth-3]) + "..."
	}
	return s
}
