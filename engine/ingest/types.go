package ingest

import "github.com/askdocs-ai/askdocs/engine/domain"

// FileOutcome records what happened to one file during a load. A file that
// fails extraction carries its error here and never aborts the batch.
type FileOutcome struct {
	File   string
	Chunks []domain.Chunk
	Err    error
}

// Report summarises one ingestion run.
type Report struct {
	FilesProcessed int      `json:"files_processed"`
	ChunksWritten  int      `json:"chunks_processed"`
	FilesFailed    []string `json:"files_failed,omitempty"`
}
