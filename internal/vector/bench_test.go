package vector

import (
	"context"
	"strconv"
	"testing"
)

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := NewMemoryIndex(384)
	ctx := context.Background()
	points := make([]Point, 1000)
	for i := range points {
		vec := make([]float32, 384)
		vec[0] = float32(i) / 1000
		vec[1+i%383] = 1
		points[i] = Point{ID: strconv.Itoa(i), Vector: vec}
	}
	_ = idx.Add(ctx, points)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkCosine(b *testing.B) {
	x := make([]float32, 384)
	y := make([]float32, 384)
	for i := range x {
		x[i] = float32(i%7) / 7
		y[i] = float32(i%5) / 5
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Cosine(x, y)
	}
}
