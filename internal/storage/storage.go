// Package storage defines persistence for precomputed knowledge points.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/mxrag/internal/vector"
)

// ErrCollectionNotFound is returned when a collection holds no points.
var ErrCollectionNotFound = errors.New("collection not found")

// Store serves nearest-neighbour lookups over precomputed knowledge points grouped into
// collections. Points are written by the offline indexing job, never by this service.
type Store interface {
	Search(ctx context.Context, collection string, query []float32, k int) ([]*vector.Result, error)
	Close() error
}
