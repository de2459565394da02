// Package relevance scores and classifies candidate passages against a question.
package relevance

import (
	"context"
	"fmt"

	"github.com/hyperjump/mxrag/internal/embedding"
	"github.com/hyperjump/mxrag/internal/vector"
)

// Scorer computes semantic similarity between two texts using an embedder.
type Scorer struct {
	embedder embedding.Embedder
}

// NewScorer returns a Scorer backed by e.
func NewScorer(e embedding.Embedder) *Scorer {
	return &Scorer{embedder: e}
}

// Similarity embeds a and b independently and returns their cosine similarity in [-1, 1].
func (s *Scorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("embed first text: %w", err)
	}
	return s.SimilarityTo(ctx, va, b)
}

// SimilarityTo compares an already embedded text with b, so a question embedded once can be
// scored against many passages.
func (s *Scorer) SimilarityTo(ctx context.Context, va []float32, b string) (float64, error) {
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("embed second text: %w", err)
	}
	return vector.Cosine(va, vb), nil
}

// Embed returns the vector Similarity would compute for text.
func (s *Scorer) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}
