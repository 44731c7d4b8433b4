// Package semantic defines the vector store contract shared by the
// Postgres, Qdrant and in-memory backends.
package semantic

import "github.com/askdocs-ai/askdocs/engine/domain"

// Record is a chunk paired with its embedding, ready for storage.
type Record struct {
	Chunk     domain.Chunk
	Embedding []float32
}

// SearchResult is a single similarity hit. Similarity is cosine similarity
// in [-1, 1]; callers filter on a threshold and sort descending.
type SearchResult struct {
	Chunk      domain.Chunk `json:"chunk"`
	Similarity float64      `json:"similarity"`
}
