package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/storage"
	"github.com/hyperjump/mxrag/internal/vector"
)

// MemorySource serves hits from an in-process vector index.
type MemorySource struct {
	name  string
	index vector.Index
}

// NewMemorySource wraps index as a named source.
func NewMemorySource(name string, index vector.Index) *MemorySource {
	return &MemorySource{name: name, index: index}
}

// Name returns the source identifier.
func (s *MemorySource) Name() string {
	return s.name
}

// Search returns the limit nearest points. An empty index reports ErrCollectionNotFound.
func (s *MemorySource) Search(ctx context.Context, vec []float32, limit int) ([]*models.RawHit, error) {
	if s.index.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", s.name, ErrCollectionNotFound)
	}
	results, err := s.index.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.name, err)
	}
	return toRawHits(results), nil
}

// Close releases the index.
func (s *MemorySource) Close() error {
	return s.index.Close()
}

// SQLiteSource serves hits from one collection of a SQLite knowledge store.
type SQLiteSource struct {
	name       string
	collection string
	store      storage.Store
}

// NewSQLiteSource wraps collection of store as a named source.
func NewSQLiteSource(name, collection string, store storage.Store) *SQLiteSource {
	return &SQLiteSource{name: name, collection: collection, store: store}
}

// Name returns the source identifier.
func (s *SQLiteSource) Name() string {
	return s.name
}

// Search returns the limit nearest points of the collection.
func (s *SQLiteSource) Search(ctx context.Context, vec []float32, limit int) ([]*models.RawHit, error) {
	results, err := s.store.Search(ctx, s.collection, vec, limit)
	if err != nil {
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%s: %w", s.collection, ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}
	return toRawHits(results), nil
}

// Close closes the underlying store.
func (s *SQLiteSource) Close() error {
	return s.store.Close()
}

func toRawHits(results []*vector.Result) []*models.RawHit {
	hits := make([]*models.RawHit, len(results))
	for i, r := range results {
		hits[i] = &models.RawHit{ID: r.ID, Score: unitScore(r.Score), Payload: r.Payload}
	}
	return hits
}
