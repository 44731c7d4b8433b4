// Package rag answers user questions from stored document chunks: embed the
// question, retrieve the most similar chunks, and generate an answer
// constrained to that context, returning the citations alongside it.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdocs-ai/askdocs/engine/semantic"
	"github.com/askdocs-ai/askdocs/pkg/fn"
	"github.com/askdocs-ai/askdocs/pkg/resilience"
)

// FallbackAnswer is returned verbatim when retrieval produces no hits.
const FallbackAnswer = "I couldn't find any relevant information in the documents to answer your question."

const systemPrompt = `You are a helpful assistant that answers questions based on company documents.
Answer using ONLY the provided context. If the context does not contain the
information needed, say that you don't know. Respond in plain text without
markdown formatting.`

// Embedder embeds a single query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Searcher is the retrieval slice of semantic.Store.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]semantic.SearchResult, error)
}

// Options configures retrieval behaviour.
type Options struct {
	TopK          int
	Threshold     float64
	SearchTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		TopK:          5,
		Threshold:     0,
		SearchTimeout: 5 * time.Second,
	}
}

// Answer is the structured result of a query.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
}

type Service struct {
	embed   Embedder
	gen     Generator
	search  Searcher
	breaker *resilience.Breaker
	opts    Options
	log     *slog.Logger
}

func New(embed Embedder, gen Generator, search Searcher, breaker *resilience.Breaker, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	return &Service{embed: embed, gen: gen, search: search, breaker: breaker, opts: opts, log: log}
}

// Query runs the full retrieval and generation pipeline for one question.
// A non-positive topK falls back to the configured default.
func (s *Service) Query(ctx context.Context, question string, topK int) (*Answer, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	start := time.Now()
	s.log.Info("rag: query start", "question_len", len(question), "top_k", topK)

	vec, err := s.embed.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()
	hits, err := s.search.Search(searchCtx, vec, topK, s.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	s.log.Info("rag: search done", "hits", len(hits))

	if len(hits) == 0 {
		return &Answer{Text: FallbackAnswer, Sources: []string{}}, nil
	}

	user := fmt.Sprintf("Context from documents:\n%s\n\nQuestion: %s", assembleContext(hits), question)

	raw, err := resilience.CallResult(s.breaker, ctx, func(ctx context.Context) fn.Result[string] {
		return fn.FromPair(s.gen.Generate(ctx, systemPrompt, user))
	}).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("rag: generate: %w", err)
	}

	answer := &Answer{
		Text: Sanitize(raw),
		Sources: fn.Unique(fn.Map(hits, func(h semantic.SearchResult) string {
			return FormatCitation(h.Chunk)
		})),
	}
	s.log.Info("rag: query done", "sources", len(answer.Sources), "duration", time.Since(start))
	return answer, nil
}

// assembleContext joins retrieved chunks, each prefixed with its citation so
// the model can ground statements in a named source.
func assembleContext(hits []semantic.SearchResult) string {
	parts := fn.Map(hits, func(h semantic.SearchResult) string {
		return "[Source: " + FormatCitation(h.Chunk) + "]\n" + h.Chunk.Text
	})
	return strings.Join(parts, "\n\n---\n\n")
}
