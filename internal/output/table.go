// Package output renders CLI results.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/sxnfer/guardian-content-stream/internal/models"
)

// maxTitleWidth bounds the title column so wide terminals stay readable.
const maxTitleWidth = 60

// RenderOutcomes renders a per-record result table. Column widths are
// computed from display width, not byte length, so CJK titles align.
func RenderOutcomes(outcomes []models.PublishOutcome) string {
	if len(outcomes) == 0 {
		return ""
	}

	rows := make([][3]string, 0, len(outcomes)+1)
	rows = append(rows, [3]string{"STATUS", "PUBLISHED", "TITLE"})

	for _, o := range outcomes {
		status := "ok"
		if !o.Succeeded() {
			status = "failed"
		}

		rows = append(rows, [3]string{
			status,
			o.Article.WebPublicationDate.UTC().Format(time.RFC3339),
			Truncate(o.Article.WebTitle, maxTitleWidth),
		})
	}

	// Calculate the max display width per column
	var widths [3]int

	for _, row := range rows {
		for i := range row {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder

	for _, row := range rows {
		for i := range row {
			sb.WriteString(row[i])
			sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(row[i])))

			if i < len(row)-1 {
				sb.WriteString("  ")
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderSummary renders the closing counts line.
func RenderSummary(summary models.Summary, streamName string) string {
	return fmt.Sprintf("Found %d articles, published %d records to %s",
		summary.ArticlesFound, summary.ArticlesPublished, streamName)
}

// Truncate shortens a string to at most max display columns, appending an
// ellipsis when anything was cut.
func Truncate(s string, max int) string {
	if runewidth.StringWidth(s) <= max {
		return s
	}

	return runewidth.Truncate(s, max, "...")
}
