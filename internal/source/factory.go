package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/config"
	"github.com/hyperjump/mxrag/internal/storage"
	"github.com/hyperjump/mxrag/internal/vector"
	"github.com/hyperjump/mxrag/pkg/utils"
)

// Set is the ordered list of configured sources. Order is the merge order of the retriever.
type Set struct {
	Bindings []Binding
	closers  []io.Closer
}

// Open builds every configured source. dimensions sizes in-memory indexes.
// On failure the sources opened so far are closed.
func Open(ctx context.Context, cfgs []config.SourceConfig, dimensions int, logger *zap.Logger) (*Set, error) {
	logger = utils.OrNop(logger)
	set := &Set{}
	for _, c := range cfgs {
		adapter, err := LookupAdapter(c.Adapter)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("source %s: %w", c.Name, err)
		}
		src, err := open(ctx, c, dimensions)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("source %s: %w", c.Name, err)
		}
		set.Bindings = append(set.Bindings, Binding{Source: src, Adapter: adapter})
		if cl, ok := src.(io.Closer); ok {
			set.closers = append(set.closers, cl)
		}
		logger.Info("knowledge source ready",
			zap.String("source", c.Name),
			zap.String("backend", c.Backend),
			zap.String("collection", c.Collection),
			zap.String("adapter", c.Adapter))
	}
	return set, nil
}

func open(ctx context.Context, c config.SourceConfig, dimensions int) (Source, error) {
	switch c.Backend {
	case config.BackendQdrant:
		return NewQdrantSource(c.Name, QdrantOptions{
			Address:    c.Address,
			Collection: c.Collection,
			APIKey:     c.APIKey,
			UseTLS:     c.UseTLS,
		})
	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(c.DatabasePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteSource(c.Name, c.Collection, store), nil
	case config.BackendMemory:
		idx, err := vector.NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		if c.SnapshotPath != "" {
			if err := idx.LoadSnapshot(ctx, c.SnapshotPath); err != nil {
				return nil, err
			}
		}
		return NewMemorySource(c.Name, idx), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", c.Backend)
	}
}

// Close closes every source that holds resources.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
