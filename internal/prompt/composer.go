// Package prompt assembles grounding context and generator prompts from retrieved evidence.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/mxrag/internal/models"
)

// NoDatabaseResults marks an empty database block.
const NoDatabaseResults = "No relevant information found in the maintenance database."

// NoEvidenceAnswer is returned without calling the generator when nothing was found.
const NoEvidenceAnswer = "I'm sorry, but I couldn't find any relevant information for your question in the maintenance database or from a web search. Please rephrase the question or consult the applicable aircraft maintenance manual."

// SourcesNote is appended to answers that cite sources without listing them.
const SourcesNote = "Note: Sources were referenced in this response but detailed citation information is not available."

const answerPreamble = "You are an aircraft maintenance assistant. Use the following context to answer the question as accurately and concisely as possible."

var (
	citationPattern = regexp.MustCompile(`\[(WEB|DB)-\d+\]`)
	sourcesHeading  = regexp.MustCompile(`(?i)\b(sources|references):`)
)

// Compose lays out the evidence. Without web evidence only the database block is used;
// with it, the layout depends on whether any database hit was helpful.
func Compose(hits []models.ContextHit, web models.WebEvidence) models.GroundingContext {
	db := databaseBlock(hits)
	if web.IsEmpty() {
		return models.GroundingContext{Layout: models.LayoutVectorOnly, Text: db}
	}

	for _, h := range hits {
		if h.IsHelpful {
			return models.GroundingContext{
				Layout: models.LayoutHybrid,
				Text: fmt.Sprintf("Maintenance database results:\n%s\n\nWeb search results:\n%s\n\n"+
					"Combine both sources. Where they cover the same topic, prefer the one more relevant to the question.",
					db, web.Text),
			}
		}
	}
	return models.GroundingContext{
		Layout: models.LayoutWebPrimary,
		Text: fmt.Sprintf("Web search results:\n%s\n\n"+
			"Maintenance database results (lower priority; use only where consistent with the web results):\n%s",
			web.Text, db),
	}
}

// databaseBlock formats hits as "[source | score] text" paragraphs.
func databaseBlock(hits []models.ContextHit) string {
	if len(hits) == 0 {
		return NoDatabaseResults
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%s | %.3f] %s", h.SourceID, h.CombinedScore, h.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildAnswerPrompt wraps gc with the assistant preamble and the question.
func BuildAnswerPrompt(question string, gc models.GroundingContext) string {
	return fmt.Sprintf("%s\nContext:\n%s\nQuestion:\n%s\nAnswer:", answerPreamble, gc.Text, question)
}

// EnsureSourcesNote appends SourcesNote when answer cites [WEB-n] or [DB-n] markers but has
// no sources or references section.
func EnsureSourcesNote(answer string) string {
	if sourcesHeading.MatchString(answer) || !citationPattern.MatchString(answer) {
		return answer
	}
	return answer + "\n\n" + SourcesNote
}
