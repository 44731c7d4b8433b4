// Package pgstore is the pgvector-backed semantic.Store. Chunks live in a
// single document_chunks table with their embedding in a vector column;
// similarity search runs in SQL with the <=> cosine distance operator.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/semantic"
)

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	dim  int
}

// New connects a pool to the given Postgres URL and registers the pgvector
// codec on every connection.
func New(ctx context.Context, url string, log *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, &domain.StoreError{Op: "parse config", Err: err}
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &domain.StoreError{Op: "connect", Err: err}
	}
	return &Store{pool: pool, log: log}, nil
}

// Init creates the extension, table and indexes. The ivfflat ANN index is
// best effort: pgvector caps it at 2000 dimensions, so at larger sizes
// creation fails and search falls back to a sequential scan.
func (s *Store) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &domain.StoreError{Op: "init", Err: fmt.Errorf("invalid dimension %d", dim)}
	}
	s.dim = dim

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id bigserial PRIMARY KEY,
			chunk_text text NOT NULL,
			embedding vector(%d) NOT NULL,
			source_file text NOT NULL,
			folder_path text,
			page_number int,
			chunk_index int NOT NULL,
			metadata jsonb,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS document_chunks_source_file_idx ON document_chunks (source_file)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &domain.StoreError{Op: "init", Err: err}
		}
	}

	_, err := s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
		ON document_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)
	if err != nil {
		s.log.Warn("ann index unavailable, search will scan sequentially",
			"dim", dim, "error", err)
	}
	return nil
}

// Upsert inserts all records in one transaction.
func (s *Store) Upsert(ctx context.Context, records []semantic.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &domain.StoreError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		if s.dim > 0 {
			if err := domain.ValidateEmbedding(r.Embedding, s.dim); err != nil {
				return &domain.StoreError{Op: "upsert", Err: err}
			}
		}
		c := r.Chunk
		var folder *string
		if c.FolderPath != "" {
			folder = &c.FolderPath
		}
		var meta []byte
		if len(c.Metadata) > 0 {
			meta, err = json.Marshal(c.Metadata)
			if err != nil {
				return &domain.StoreError{Op: "upsert", Err: err}
			}
		}
		batch.Queue(
			`INSERT INTO document_chunks
				(chunk_text, embedding, source_file, folder_path, page_number, chunk_index, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.Text, pgvector.NewVector(r.Embedding), c.SourceFile, folder, c.PageNumber, c.ChunkIndex, meta,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return &domain.StoreError{Op: "upsert", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &domain.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// Search runs cosine similarity in SQL. Ties break on insertion order so
// results are deterministic.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]semantic.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chunk_text, source_file, folder_path, page_number, chunk_index, metadata,
			1 - (embedding <=> $1) AS similarity
		 FROM document_chunks
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1, id
		 LIMIT $3`,
		pgvector.NewVector(embedding), threshold, topK,
	)
	if err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var hits []semantic.SearchResult
	for rows.Next() {
		var (
			hit    semantic.SearchResult
			folder *string
			meta   []byte
		)
		err := rows.Scan(&hit.Chunk.Text, &hit.Chunk.SourceFile, &folder,
			&hit.Chunk.PageNumber, &hit.Chunk.ChunkIndex, &meta, &hit.Similarity)
		if err != nil {
			return nil, &domain.StoreError{Op: "search scan", Err: err}
		}
		if folder != nil {
			hit.Chunk.FolderPath = *folder
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &hit.Chunk.Metadata); err != nil {
				return nil, &domain.StoreError{Op: "search scan", Err: err}
			}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}
	return hits, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE document_chunks`); err != nil {
		return &domain.StoreError{Op: "clear", Err: err}
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, &domain.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
