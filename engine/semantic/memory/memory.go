// Package memory is an in-process semantic.Store. It backs tests and the
// VECTOR_STORE=memory mode; brute-force cosine search is fine at the scale
// either sees.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/semantic"
)

type Store struct {
	mu      sync.RWMutex
	dim     int
	records []semantic.Record
}

func New() *Store { return &Store{} }

func (s *Store) Init(_ context.Context, dim int) error {
	if dim <= 0 {
		return &domain.StoreError{Op: "init", Err: fmt.Errorf("invalid dimension %d", dim)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	return nil
}

func (s *Store) Upsert(_ context.Context, records []semantic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if err := domain.ValidateEmbedding(r.Embedding, s.dim); err != nil {
			return &domain.StoreError{Op: "upsert", Err: err}
		}
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *Store) Search(_ context.Context, embedding []float32, topK int, threshold float64) ([]semantic.SearchResult, error) {
	if err := domain.ValidateEmbedding(embedding, s.dim); err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []semantic.SearchResult
	for _, r := range s.records {
		sim := cosine(embedding, r.Embedding)
		if sim >= threshold {
			hits = append(hits, semantic.SearchResult{Chunk: r.Chunk, Similarity: sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
