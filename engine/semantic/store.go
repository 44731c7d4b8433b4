package semantic

import "context"

// Store is the sole owner of vector persistence. Implementations live in
// the pgstore, qdrant and memory subpackages.
type Store interface {
	// Init prepares the backing schema or collection for vectors of the
	// given dimensionality. Idempotent.
	Init(ctx context.Context, dim int) error

	// Upsert writes records atomically: either all land or none do.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to topK hits with similarity >= threshold, most
	// similar first.
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]SearchResult, error)

	// Clear removes every stored record.
	Clear(ctx context.Context) error

	// Count reports the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	Close() error
}
