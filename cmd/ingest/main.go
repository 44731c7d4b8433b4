// Command ingest loads a document directory into the vector store, either
// as a one-shot batch run or as a long-lived queue worker consuming
// per-file jobs from NATS.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/askdocs-ai/askdocs/engine/chunk"
	"github.com/askdocs-ai/askdocs/engine/ingest"
	"github.com/askdocs-ai/askdocs/engine/semantic"
	"github.com/askdocs-ai/askdocs/engine/semantic/memory"
	"github.com/askdocs-ai/askdocs/engine/semantic/pgstore"
	"github.com/askdocs-ai/askdocs/engine/semantic/qdrant"
	"github.com/askdocs-ai/askdocs/pkg/metrics"
	"github.com/askdocs-ai/askdocs/pkg/openai"
)

var met = metrics.New()

var (
	mRuns        = met.Counter("ingest_runs_total", "Completed batch runs")
	mRunErrors   = met.Counter("ingest_run_errors_total", "Failed batch runs")
	mChunks      = met.Counter("ingest_chunks_total", "Chunks written")
	mFilesFailed = met.Counter("ingest_files_failed_total", "Files skipped for parse errors")
	mRunDur      = met.Histogram("ingest_run_seconds", "Batch run duration", nil)
)

func main() {
	// Load .env before flag defaults read the environment.
	_ = godotenv.Load()

	var (
		dataDir      = flag.String("dir", envOr("DATA_DIR", "./data"), "document directory")
		storeKind    = flag.String("store", envOr("VECTOR_STORE", "postgres"), "vector store backend (postgres|qdrant|memory)")
		postgresURL  = flag.String("postgres", os.Getenv("POSTGRES_URL"), "Postgres URL")
		qdrantAddr   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection   = flag.String("collection", envOr("QDRANT_COLLECTION", "askdocs"), "Qdrant collection")
		natsURL      = flag.String("nats", os.Getenv("NATS_URL"), "NATS URL; enables queue worker mode")
		dim          = flag.Int("dim", envInt("EMBED_DIM", 3072), "embedding dimensionality")
		chunkSize    = flag.Int("chunk-size", envInt("CHUNK_SIZE", 1000), "chunk size in tokens")
		chunkOverlap = flag.Int("chunk-overlap", envInt("CHUNK_OVERLAP", 200), "chunk overlap in tokens")
		workers      = flag.Int("workers", 4, "concurrent embedding requests")
		metricsPort  = flag.Int("metrics-port", 9091, "metrics listen port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.ServeAsync(*metricsPort)

	tok, err := chunk.NewTiktoken(chunk.EncodingCL100K)
	if err != nil {
		fatal(log, "tokenizer init failed", err)
	}
	chunker, err := chunk.New(tok, *chunkSize, *chunkOverlap)
	if err != nil {
		fatal(log, "chunker init failed", err)
	}

	ai, err := openai.New(openai.Config{
		BaseURL:    os.Getenv("OPENAI_BASE_URL"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbedModel: os.Getenv("OPENAI_EMBED_MODEL"),
	})
	if err != nil {
		fatal(log, "openai client init failed", err)
	}

	var store semantic.Store
	switch *storeKind {
	case "postgres":
		store, err = pgstore.New(ctx, *postgresURL, log)
	case "qdrant":
		store, err = qdrant.New(*qdrantAddr, *collection)
	case "memory":
		store = memory.New()
	default:
		log.Error("unknown store backend", "store", *storeKind)
		os.Exit(2)
	}
	if err != nil {
		fatal(log, "store connect failed", err)
	}
	defer store.Close()
	if err := store.Init(ctx, *dim); err != nil {
		fatal(log, "store init failed", err)
	}

	svc := ingest.NewService(ingest.Deps{
		Chunker:  chunker,
		Embedder: ai,
		Store:    store,
		Dim:      *dim,
		Workers:  *workers,
		Logger:   log,
	})

	if *natsURL != "" {
		runQueueWorker(ctx, log, svc, *natsURL)
		return
	}

	start := time.Now()
	report, err := svc.Run(ctx, *dataDir)
	mRunDur.Since(start)
	if err != nil {
		mRunErrors.Inc()
		fatal(log, "batch run failed", err)
	}
	mRuns.Inc()
	mChunks.Add(int64(report.ChunksWritten))
	mFilesFailed.Add(int64(len(report.FilesFailed)))
	log.Info("batch run complete",
		"files_processed", report.FilesProcessed,
		"files_failed", len(report.FilesFailed),
		"chunks_written", report.ChunksWritten,
	)
}

func runQueueWorker(ctx context.Context, log *slog.Logger, svc *ingest.Service, natsURL string) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		fatal(log, "nats connect failed", err)
	}
	defer nc.Close()

	sub, err := ingest.StartConsumer(nc, svc)
	if err != nil {
		fatal(log, "nats subscribe failed", err)
	}
	defer sub.Unsubscribe()

	log.Info("queue worker started", "subject", ingest.JobSubject)
	<-ctx.Done()
	log.Info("queue worker stopping")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
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
