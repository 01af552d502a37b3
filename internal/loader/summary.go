package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Color palette - keeping it minimal and accessible.
var (
	colorPrimary = lipgloss.Color("39")  // Blue
	colorSuccess = lipgloss.Color("34")  // Green
	colorError   = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("240") // Dark gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

const (
	symbolCheck = "✓"
	symbolCross = "✗"

	timePrecision = time.Millisecond
)

// Summary renders the run outcome as styled terminal text: one line per
// table plus a totals line.
func Summary(records []dsload.RunRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Load summary"))
	b.WriteString("\n")

	var loaded, failed int
	for _, rec := range records {
		if rec.Failed() {
			failed++
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				errorStyle.Render(symbolCross),
				rec.TableName,
				mutedStyle.Render(rec.ErrorMessage)))
			continue
		}
		loaded += rec.RowsProcessed
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			successStyle.Render(symbolCheck),
			rec.TableName,
			mutedStyle.Render(fmt.Sprintf("%d rows in %s",
				rec.RowsProcessed,
				rec.EndedAt.Sub(rec.StartedAt).Round(timePrecision)))))
	}

	totals := fmt.Sprintf("%d tables, %d rows loaded", len(records), loaded)
	if failed > 0 {
		totals += errorStyle.Render(fmt.Sprintf(", %d failed", failed))
	}
	b.WriteString(mutedStyle.Render(totals))
	return b.String()
}
