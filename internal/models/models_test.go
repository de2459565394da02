package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		tags Tags
		want string
	}{
		{"no tags", " hydraulic leak ", Tags{}, "hydraulic leak"},
		{"aircraft only", "hydraulic leak", Tags{AircraftModel: "B737"}, "[Aircraft: B737] hydraulic leak"},
		{"category only", "hydraulic leak", Tags{IssueCategory: "Hydraulics"}, "[Issue Category: Hydraulics] hydraulic leak"},
		{"both, category outermost", "hydraulic leak", Tags{AircraftModel: "B737", IssueCategory: "Hydraulics"},
			"[Issue Category: Hydraulics] [Aircraft: B737] hydraulic leak"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(tt.raw, tt.tags)
			assert.Equal(t, "hydraulic leak", q.RawText)
			assert.Equal(t, tt.want, q.EnhancedText)
		})
	}
}

func TestNewContextHit_combinedScore(t *testing.T) {
	tests := []struct {
		helpful, relevant bool
		want              float64
	}{
		{false, false, 0.5},
		{true, false, 0.7},
		{false, true, 0.6},
		{true, true, 0.8},
	}
	for _, tt := range tests {
		h := NewContextHit("logs", "1", 0.5, "text", tt.helpful, tt.relevant)
		assert.InDelta(t, tt.want, h.CombinedScore, 1e-9)
		assert.GreaterOrEqual(t, h.CombinedScore, h.RawScore)
	}
}

func TestRetrievalResult_AnyHelpful(t *testing.T) {
	var nilResult *RetrievalResult
	assert.False(t, nilResult.AnyHelpful())

	r := &RetrievalResult{Hits: []ContextHit{NewContextHit("a", "1", 0.9, "x", false, true)}}
	assert.False(t, r.AnyHelpful())
	r.Hits = append(r.Hits, NewContextHit("a", "2", 0.3, "y", true, false))
	assert.True(t, r.AnyHelpful())
}

func TestNewWebEvidence(t *testing.T) {
	empty := NewWebEvidence(nil)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, NoWebResults, empty.Text)
	assert.True(t, WebEvidence{}.IsEmpty())

	ev := NewWebEvidence([]WebResult{
		{Title: "Brake wear", Body: "Check pin length", URL: "https://a.example"},
		{Title: "Tyres", Body: "Inflate to placard pressure", URL: "https://b.example"},
	})
	assert.False(t, ev.IsEmpty())
	assert.Equal(t, 2, ev.Results)
	assert.True(t, strings.HasPrefix(ev.Text, "Source 1: Brake wear\nContent: Check pin length\nURL: https://a.example"))
	assert.Contains(t, ev.Text, "\n\nSource 2: Tyres")
}
