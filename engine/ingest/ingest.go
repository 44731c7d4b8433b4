// Package ingest runs the document load pipeline: scan a directory,
// extract text, chunk it, embed the chunks in batches, and write the
// vectors to the store in one transaction.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/askdocs-ai/askdocs/engine/chunk"
	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/extract"
	"github.com/askdocs-ai/askdocs/engine/semantic"
	"github.com/askdocs-ai/askdocs/pkg/fn"
)

const (
	// EmbedBatchSize is the max chunks per embedding request.
	EmbedBatchSize = 100
	// DefaultWorkers bounds concurrent embedding requests.
	DefaultWorkers = 4
)

// Embedder produces one embedding per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Deps holds the external dependencies of the pipeline.
type Deps struct {
	Chunker  *chunk.Chunker
	Embedder Embedder
	Store    semantic.Store
	Dim      int
	Workers  int
	Logger   *slog.Logger
	Retry    fn.RetryOpts
}

type Service struct {
	deps Deps
	log  *slog.Logger
}

func NewService(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = fn.DefaultRetry
	}
	// Permanent embedding failures (bad key, oversized input) must not
	// burn retry budget.
	if deps.Retry.Retryable == nil {
		deps.Retry.Retryable = domain.IsTransient
	}
	return &Service{deps: deps, log: log}
}

// Run loads every supported document under root. Per-file extraction
// failures are logged and skipped; embedding and storage failures abort
// the run.
func (s *Service) Run(ctx context.Context, root string) (Report, error) {
	paths, err := extract.ScanDir(root)
	if err != nil {
		return Report{}, err
	}
	s.log.Info("ingest: starting", "root", root, "files", len(paths))

	var report Report
	var all []domain.Chunk
	for _, path := range paths {
		outcome := s.processFile(ctx, root, path)
		if outcome.Err != nil {
			s.log.Warn("ingest: file skipped", "file", outcome.File, "error", outcome.Err)
			report.FilesFailed = append(report.FilesFailed, outcome.File)
			continue
		}
		report.FilesProcessed++
		all = append(all, outcome.Chunks...)
	}

	n, err := s.embedAndStore(ctx, all)
	if err != nil {
		return Report{}, err
	}
	report.ChunksWritten = n
	s.log.Info("ingest: done",
		"files_processed", report.FilesProcessed,
		"files_failed", len(report.FilesFailed),
		"chunks_written", report.ChunksWritten,
	)
	return report, nil
}

// IngestFile loads a single document. Used by the queue consumer.
func (s *Service) IngestFile(ctx context.Context, root, path string) (int, error) {
	outcome := s.processFile(ctx, root, path)
	if outcome.Err != nil {
		return 0, outcome.Err
	}
	return s.embedAndStore(ctx, outcome.Chunks)
}

// processFile runs extract and chunk as composed stages so the per-file
// error handling stays in one place.
func (s *Service) processFile(ctx context.Context, root, path string) FileOutcome {
	extractStage := fn.TracedStage("ingest.extract", func(_ context.Context, p string) fn.Result[domain.Document] {
		ex, ok := extract.ForFile(p)
		if !ok {
			return fn.Errf[domain.Document]("unsupported file %s", p)
		}
		return fn.FromPair(ex.Extract(p))
	})
	chunkStage := fn.TracedStage("ingest.chunk", func(_ context.Context, doc domain.Document) fn.Result[[]domain.Chunk] {
		return fn.Ok(s.chunkDocument(root, doc))
	})

	chunks, err := fn.Then(extractStage, chunkStage)(ctx, path).Unwrap()
	return FileOutcome{File: path, Chunks: chunks, Err: err}
}

// chunkDocument splits each page and assigns chunk indexes. Indexes are
// assigned after sanitization so they stay contiguous within a page even
// when some pieces sanitize to nothing.
func (s *Service) chunkDocument(root string, doc domain.Document) []domain.Chunk {
	rel, err := filepath.Rel(root, doc.Path)
	if err != nil {
		rel = doc.Path
	}
	folder := filepath.Dir(rel)
	if folder == "." {
		folder = ""
	} else {
		folder = filepath.ToSlash(folder)
	}

	var chunks []domain.Chunk
	for _, page := range doc.Pages {
		index := 0
		for _, piece := range s.deps.Chunker.Split(page.Text) {
			text := domain.SanitizeText(piece.Text)
			if text == "" {
				continue
			}
			if piece.Oversized {
				s.log.Warn("ingest: oversized chunk", "file", doc.Path, "tokens", piece.Tokens)
			}
			chunks = append(chunks, domain.Chunk{
				Text:       text,
				SourceFile: filepath.Base(doc.Path),
				FolderPath: folder,
				PageNumber: page.Number,
				ChunkIndex: index,
				Metadata: map[string]string{
					"file_path": filepath.ToSlash(rel),
					"file_type": string(doc.Format),
				},
			})
			index++
		}
	}
	return chunks
}

// embedAndStore embeds chunks in parallel batches and writes everything in
// a single upsert so a failed run leaves no partial state.
func (s *Service) embedAndStore(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	embedStage := fn.RetryStage(s.deps.Retry,
		fn.TracedStage("ingest.embed", func(ctx context.Context, batch []domain.Chunk) fn.Result[[][]float32] {
			texts := fn.Map(batch, func(c domain.Chunk) string { return c.Text })
			return fn.FromPair(s.deps.Embedder.Embed(ctx, texts))
		}))

	batches := fn.Chunk(chunks, EmbedBatchSize)
	results := fn.ParMapResult(batches, s.deps.Workers, func(batch []domain.Chunk) fn.Result[[][]float32] {
		return embedStage(ctx, batch)
	})
	embedded, err := fn.Collect(results).Unwrap()
	if err != nil {
		return 0, err
	}

	records := make([]semantic.Record, 0, len(chunks))
	for bi, batch := range batches {
		vectors := embedded[bi]
		if len(vectors) != len(batch) {
			return 0, &domain.EmbeddingError{
				Err: fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(batch)),
			}
		}
		for i, c := range batch {
			if err := domain.ValidateEmbedding(vectors[i], s.deps.Dim); err != nil {
				return 0, &domain.EmbeddingError{Err: err}
			}
			records = append(records, semantic.Record{Chunk: c, Embedding: vectors[i]})
		}
	}

	if err := s.deps.Store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
