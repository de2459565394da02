package models

// Score boosts applied on top of the raw similarity score.
const (
	HelpfulBoost  = 0.2
	RelevantBoost = 0.1
)

// RawHit is one nearest-neighbour result as returned by a knowledge source.
type RawHit struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ContextHit is a scored, classified candidate passage.
type ContextHit struct {
	SourceID      string  `json:"source"`
	HitID         string  `json:"hit_id"`
	RawScore      float64 `json:"raw_score"`
	Text          string  `json:"text"`
	IsHelpful     bool    `json:"is_helpful"`
	IsRelevant    bool    `json:"is_relevant"`
	CombinedScore float64 `json:"combined_score"`
}

// NewContextHit computes CombinedScore from the raw score and the two classifier signals.
func NewContextHit(sourceID, hitID string, rawScore float64, text string, helpful, relevant bool) ContextHit {
	combined := rawScore
	if helpful {
		combined += HelpfulBoost
	}
	if relevant {
		combined += RelevantBoost
	}
	return ContextHit{
		SourceID:      sourceID,
		HitID:         hitID,
		RawScore:      rawScore,
		Text:          text,
		IsHelpful:     helpful,
		IsRelevant:    relevant,
		CombinedScore: combined,
	}
}

// RetrievalResult is the merged, ranked output of the context retriever.
type RetrievalResult struct {
	// Hits are ordered by CombinedScore, highest first.
	Hits []ContextHit `json:"hits"`
	// FoundRelevant is computed over every kept hit, before truncation.
	FoundRelevant bool    `json:"found_relevant"`
	TopScore      float64 `json:"top_score"`
}

// AnyHelpful reports whether at least one hit passed the keyword heuristic.
func (r *RetrievalResult) AnyHelpful() bool {
	if r == nil {
		return false
	}
	for _, h := range r.Hits {
		if h.IsHelpful {
			return true
		}
	}
	return false
}
