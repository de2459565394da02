// Package decision decides whether retrieved evidence must be supplemented by live web search.
package decision

import "github.com/hyperjump/mxrag/internal/models"

// Reasons reported with a Decision.
const (
	ReasonNoRelevantHits = "no_relevant_hits"
	ReasonHybridMode     = "hybrid_mode"
	ReasonLowTopScore    = "low_top_score"
	ReasonSufficient     = "sufficient"
)

// ReasonWebSearchDisabled replaces a positive decision when live search is switched off.
const ReasonWebSearchDisabled = "web_search_disabled"

// Decision is the outcome of the fallback check.
type Decision struct {
	SearchWeb bool
	Reason    string
}

// ShouldSearchWeb reports whether live search is needed: no relevant hit, hybrid mode, or a
// top combined score below threshold.
func ShouldSearchWeb(r *models.RetrievalResult, hybrid bool, threshold float64) bool {
	return Decide(r, hybrid, threshold).SearchWeb
}

// Decide is ShouldSearchWeb with the first matching reason attached.
func Decide(r *models.RetrievalResult, hybrid bool, threshold float64) Decision {
	switch {
	case r == nil || !r.FoundRelevant:
		return Decision{SearchWeb: true, Reason: ReasonNoRelevantHits}
	case hybrid:
		return Decision{SearchWeb: true, Reason: ReasonHybridMode}
	case r.TopScore < threshold:
		return Decision{SearchWeb: true, Reason: ReasonLowTopScore}
	default:
		return Decision{SearchWeb: false, Reason: ReasonSufficient}
	}
}

// Gate applies the operator switch for live search to d.
func Gate(d Decision, webSearchEnabled bool) Decision {
	if d.SearchWeb && !webSearchEnabled {
		return Decision{SearchWeb: false, Reason: ReasonWebSearchDisabled}
	}
	return d
}
