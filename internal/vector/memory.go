package vector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Suitable for tests and small knowledge bases loaded from a snapshot file.
type MemoryIndex struct {
	dimensions int
	points     []Point
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add appends points. Vectors are copied.
func (m *MemoryIndex) Add(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if len(p.Vector) != m.dimensions {
			return fmt.Errorf("point %s: vector dimension mismatch: got %d, expected %d", p.ID, len(p.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, p.Vector)
		m.points = append(m.points, Point{ID: p.ID, Vector: vec, Payload: p.Payload})
	}
	return nil
}

// Search returns the top-k points by cosine similarity. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.points) == 0 {
		return nil, nil
	}
	results := make([]*Result, len(m.points))
	for i, p := range m.points {
		results[i] = &Result{ID: p.ID, Score: Cosine(query, p.Vector), Payload: p.Payload}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// LoadSnapshot appends the points stored at path, one JSON object per line.
// Blank lines are skipped; a malformed line fails the load with its line number.
func (m *MemoryIndex) LoadSnapshot(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var points []Point
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p Point
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return fmt.Errorf("snapshot line %d: %w", line, err)
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("%d", line)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	return m.Add(ctx, points)
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
