// Package domain defines the core types and error taxonomy shared by the
// askdocs ingestion and retrieval pipelines.
package domain

import "strings"

// Format identifies a supported source document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Page is a single extracted unit of document text. Number is 1-based for
// paginated formats and nil for formats without a page concept.
type Page struct {
	Text   string
	Number *int
}

// Document is a source file and its extracted pages. It exists only for the
// duration of an ingestion run and is never persisted.
type Document struct {
	Path   string
	Format Format
	Pages  []Page
}

// Chunk is the persisted unit of text. ChunkIndex is zero-based and
// contiguous within (SourceFile, PageNumber). FolderPath is empty when the
// file sits directly in the data root.
type Chunk struct {
	Text       string            `json:"chunk_text"`
	SourceFile string            `json:"source_file"`
	FolderPath string            `json:"folder_path,omitempty"`
	PageNumber *int              `json:"page_number,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SanitizeText strips null bytes (Postgres rejects them in text columns) and
// surrounding whitespace. A chunk whose text sanitizes to "" must be dropped
// before embedding and storage.
func SanitizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
