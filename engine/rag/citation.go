package rag

import (
	"fmt"
	"strings"

	"github.com/askdocs-ai/askdocs/engine/domain"
)

// FormatCitation renders the human-readable source of a chunk as
// "folder > file > Page N", omitting segments the chunk does not have.
func FormatCitation(c domain.Chunk) string {
	parts := make([]string, 0, 3)
	if c.FolderPath != "" {
		parts = append(parts, c.FolderPath)
	}
	parts = append(parts, c.SourceFile)
	if c.PageNumber != nil {
		parts = append(parts, fmt.Sprintf("Page %d", *c.PageNumber))
	}
	return strings.Join(parts, " > ")
}
