package domain

import "fmt"

// ValidateChunk checks the invariants every chunk must satisfy before it is
// handed to a store: non-empty sanitized text, a source file, and a
// non-negative chunk index.
func ValidateChunk(c Chunk) error {
	if SanitizeText(c.Text) == "" {
		return fmt.Errorf("chunk %s[%d]: empty text", c.SourceFile, c.ChunkIndex)
	}
	if c.SourceFile == "" {
		return fmt.Errorf("chunk %d: missing source file", c.ChunkIndex)
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk %s: negative chunk index %d", c.SourceFile, c.ChunkIndex)
	}
	return nil
}

// ValidateEmbedding checks that a vector matches the pinned dimensionality.
func ValidateEmbedding(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("embedding dimension %d, want %d", len(vec), dim)
	}
	return nil
}
