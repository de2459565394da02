package models

// State is a step of the answer pipeline.
type State string

const (
	StateStart      State = "START"
	StateEmbedded   State = "EMBEDDED"
	StateRetrieved  State = "RETRIEVED"
	StateDecided    State = "DECIDED"
	StateSearched   State = "SEARCHED"
	StateComposed   State = "COMPOSED"
	StateAnswered   State = "ANSWERED"
	StateNoEvidence State = "NO_EVIDENCE"
)

// Answer is the result of one pipeline run.
type Answer struct {
	Text           string       `json:"text"`
	LatencySeconds float64      `json:"latency_seconds"`
	State          State        `json:"state"`
	Layout         Layout       `json:"layout,omitempty"`
	WebSearched    bool         `json:"web_searched"`
	SearchKeywords string       `json:"search_keywords,omitempty"`
	DecisionReason string       `json:"decision_reason,omitempty"`
	Hits           []ContextHit `json:"hits,omitempty"`
	RequestID      string       `json:"request_id"`
	Trace          []State      `json:"trace"`
}
