package models

import (
	"fmt"
	"strings"
)

// NoWebResults is the formatted text of an empty web search.
const NoWebResults = "No search results found."

// WebResult is a single live-search hit.
type WebResult struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// WebEvidence is the formatted web-search block handed to the prompt composer.
// The zero value means no search was performed.
type WebEvidence struct {
	Text    string
	Results int
}

// NewWebEvidence formats results as numbered source blocks.
func NewWebEvidence(results []WebResult) WebEvidence {
	if len(results) == 0 {
		return WebEvidence{Text: NoWebResults}
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("Source %d: %s\nContent: %s\nURL: %s", i+1, r.Title, r.Body, r.URL))
	}
	return WebEvidence{Text: strings.Join(blocks, "\n\n"), Results: len(results)}
}

// IsEmpty reports whether the evidence carries no usable results.
func (w WebEvidence) IsEmpty() bool {
	return w.Results == 0
}

// Layout selects how the grounding context is arranged.
type Layout string

const (
	LayoutVectorOnly Layout = "vector_only"
	LayoutWebPrimary Layout = "web_primary"
	LayoutHybrid     Layout = "hybrid"
)

// GroundingContext is the evidence text fed to the generator.
type GroundingContext struct {
	Layout Layout `json:"layout"`
	Text   string `json:"text"`
}
