package domain

import (
	"errors"
	"fmt"
)

// ExtractionError reports a per-file parse failure. The ingestion pipeline
// recovers from it locally: the file is skipped and the batch continues.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedding-service failure. Transient causes
// (rate limit, timeout, 5xx) are retried with backoff; once retries are
// exhausted the error is fatal to the enclosing run or query.
type EmbeddingError struct {
	Err       error
	Transient bool
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreError reports a vector-store failure. The current batch is rolled
// back and the error surfaced to the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConfigError reports required configuration that is absent. Fatal at
// process start, never recovered.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s is required", e.Key)
}

// NotFoundError reports a missing data directory at load time. Mapped to a
// client-visible 404 by the HTTP layer.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// IsTransient reports whether err is a retryable embedding failure.
func IsTransient(err error) bool {
	var ee *EmbeddingError
	return errors.As(err, &ee) && ee.Transient
}
