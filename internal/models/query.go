// Package models defines the per-request data structures of the answer pipeline.
package models

import (
	"fmt"
	"strings"
)

// Tags are optional structured hints supplied with a question.
type Tags struct {
	AircraftModel string `json:"aircraft_model,omitempty"`
	IssueCategory string `json:"issue_category,omitempty"`
}

// Query is a user question plus the tag-enhanced text used for embedding.
type Query struct {
	RawText      string `json:"raw_text"`
	EnhancedText string `json:"enhanced_text"`
}

// NewQuery builds a Query from raw text and tags. The aircraft tag is prepended first and
// the issue category tag last, so the category ends up outermost.
func NewQuery(raw string, tags Tags) Query {
	raw = strings.TrimSpace(raw)
	enhanced := raw
	if m := strings.TrimSpace(tags.AircraftModel); m != "" {
		enhanced = fmt.Sprintf("[Aircraft: %s] %s", m, enhanced)
	}
	if c := strings.TrimSpace(tags.IssueCategory); c != "" {
		enhanced = fmt.Sprintf("[Issue Category: %s] %s", c, enhanced)
	}
	return Query{RawText: raw, EnhancedText: enhanced}
}
