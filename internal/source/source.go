// Package source provides the knowledge sources searched by the retriever and the payload
// adapters that turn their hits into passage text.
package source

import (
	"context"
	"errors"
	"math"

	"github.com/hyperjump/mxrag/internal/models"
)

// ErrCollectionNotFound is returned when a source's collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Source is a nearest-neighbour index over precomputed passage vectors.
type Source interface {
	Name() string
	Search(ctx context.Context, vector []float32, limit int) ([]*models.RawHit, error)
}

// unitScore folds a backend similarity into [0, 1]. Cosine can go negative for opposed
// vectors; those carry no evidence and score 0.
func unitScore(s float64) float64 {
	return math.Max(0, math.Min(1, s))
}

// Binding pairs a source with the adapter that reads its payloads.
type Binding struct {
	Source  Source
	Adapter Adapter
}
