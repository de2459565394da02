// Package vector provides vector math and an in-memory nearest-neighbour index.
package vector

import "context"

// Point is a stored vector with its payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Result is a single vector search hit.
type Result struct {
	ID      string
	Score   float64 // cosine similarity in [-1, 1]
	Payload map[string]any
}

// Index defines vector storage and similarity search.
type Index interface {
	Add(ctx context.Context, points []Point) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Close() error
}
