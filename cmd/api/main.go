// Package main implements the askdocs API server: document loading,
// retrieval-augmented querying, health and metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/askdocs-ai/askdocs/engine/chunk"
	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/ingest"
	"github.com/askdocs-ai/askdocs/engine/rag"
	"github.com/askdocs-ai/askdocs/engine/semantic"
	"github.com/askdocs-ai/askdocs/engine/semantic/memory"
	"github.com/askdocs-ai/askdocs/engine/semantic/pgstore"
	"github.com/askdocs-ai/askdocs/engine/semantic/qdrant"
	"github.com/askdocs-ai/askdocs/pkg/metrics"
	"github.com/askdocs-ai/askdocs/pkg/mid"
	"github.com/askdocs-ai/askdocs/pkg/openai"
	"github.com/askdocs-ai/askdocs/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	DataDir      string
	CORSOrigin   string
	VectorStore  string
	PostgresURL  string
	QdrantURL    string
	Collection   string
	NATSURL      string
	OpenAIKey    string
	OpenAIBase   string
	Model        string
	EmbedModel   string
	EmbedDim     int
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

func loadConfig() (Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := Config{
		Port:         envOr("PORT", "8000"),
		DataDir:      envOr("DATA_DIR", "./data"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		VectorStore:  envOr("VECTOR_STORE", "postgres"),
		PostgresURL:  os.Getenv("POSTGRES_URL"),
		QdrantURL:    envOr("QDRANT_URL", "localhost:6334"),
		Collection:   envOr("QDRANT_COLLECTION", "askdocs"),
		NATSURL:      os.Getenv("NATS_URL"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBase:   os.Getenv("OPENAI_BASE_URL"),
		Model:        os.Getenv("OPENAI_MODEL"),
		EmbedModel:   os.Getenv("OPENAI_EMBED_MODEL"),
		EmbedDim:     envInt("EMBED_DIM", 3072),
		ChunkSize:    envInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),
		TopK:         envInt("TOP_K", 5),
	}
	if cfg.OpenAIKey == "" {
		return cfg, &domain.ConfigError{Key: "OPENAI_API_KEY"}
	}
	if cfg.VectorStore == "postgres" && cfg.PostgresURL == "" {
		return cfg, &domain.ConfigError{Key: "POSTGRES_URL"}
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("configuration invalid", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg Config, logger *slog.Logger) (semantic.Store, error) {
	switch cfg.VectorStore {
	case "postgres":
		return pgstore.New(ctx, cfg.PostgresURL, logger)
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.Collection)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE %q", cfg.VectorStore)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tok, err := chunk.NewTiktoken(chunk.EncodingCL100K)
	if err != nil {
		return err
	}
	chunker, err := chunk.New(tok, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	ai, err := openai.New(openai.Config{
		BaseURL:    cfg.OpenAIBase,
		APIKey:     cfg.OpenAIKey,
		Model:      cfg.Model,
		EmbedModel: cfg.EmbedModel,
	})
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx, cfg.EmbedDim); err != nil {
		return err
	}

	ingestSvc := ingest.NewService(ingest.Deps{
		Chunker:  chunker,
		Embedder: ai,
		Store:    store,
		Dim:      cfg.EmbedDim,
		Logger:   logger,
	})

	ragOpts := rag.DefaultOptions()
	ragOpts.TopK = cfg.TopK
	ragSvc := rag.New(ai, ai, store,
		resilience.NewBreaker(resilience.DefaultBreakerOpts), ragOpts, logger)

	reg := metrics.New()
	srv := newServer(ingestSvc, ragSvc, store, reg, logger, cfg.DataDir)

	// Optional queue consumer for single-file jobs.
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		sub, err := ingest.StartConsumer(nc, ingestSvc)
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("ingest queue consumer started", "subject", ingest.JobSubject)
	}

	// Load documents at startup when the store is empty.
	go srv.loadOnStartup(ctx)

	handler := mid.Chain(srv.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Measure(reg),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("askdocs-api"),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "store", cfg.VectorStore)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
