// Package cli formats answers for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/pkg/utils"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const hitPreviewLen = 160

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	writeAnswerText(w, answer)
	return nil
}

func writeAnswerText(w io.Writer, answer *models.Answer) {
	heading := color.New(color.FgGreen, color.Bold).SprintFunc()
	label := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "\n%s\n%s\n\n", heading("Answer"), strings.TrimSpace(answer.Text))
	fmt.Fprintf(w, "%s %s | %s %s | %s %.2fs\n",
		label("State:"), answer.State,
		label("Decision:"), answer.DecisionReason,
		label("Latency:"), answer.LatencySeconds)
	if answer.WebSearched {
		fmt.Fprintf(w, "%s %s\n", label("Web search:"), answer.SearchKeywords)
	}
	if len(answer.Hits) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading("Evidence"))
	for i, h := range answer.Hits {
		fmt.Fprintf(w, "[DB-%d] %s #%s | Score: %.4f (raw %.4f)\n", i+1, h.SourceID, h.HitID, h.CombinedScore, h.RawScore)
		fmt.Fprintf(w, "  %s\n", dim(utils.Truncate(strings.Join(strings.Fields(h.Text), " "), hitPreviewLen)))
	}
}
