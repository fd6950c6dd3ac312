// Package vectorstore embeds resume chunks and delegates persistence and search to an Index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

// DefaultBatchSize bounds the number of texts sent in one embedding request.
const DefaultBatchSize = 64

// ErrEmptyQuery is returned when a similarity search has no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Embedder turns text into vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Index persists embedded chunks of one collection and answers nearest-neighbour queries.
type Index interface {
	Insert(ctx context.Context, chunks []domain.EmbeddedChunk) error
	Delete(ctx context.Context, filter domain.Filter) error
	// Search returns at most k chunks matching filter, nearest first by cosine distance.
	Search(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error)
	// Replace deletes the chunks matching filter and inserts chunks as one atomic step.
	Replace(ctx context.Context, filter domain.Filter, chunks []domain.EmbeddedChunk) error
	Reset(ctx context.Context) error
	Sources(ctx context.Context) ([]string, error)
}

// Gateway is the vector store used by the ingestion and retrieval pipelines.
type Gateway struct {
	embedder  Embedder
	index     Index
	batchSize int
	logger    *zap.Logger
}

type Option func(*Gateway)

func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.Named(l, "vectorstore")
	}
}

func NewGateway(embedder Embedder, index Index, opts ...Option) *Gateway {
	g := &Gateway{
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Add embeds and stores chunks. Calling it twice with the same chunks stores them twice.
func (g *Gateway) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	embedded, err := g.embed(ctx, chunks)
	if err != nil {
		return err
	}
	if err := g.index.Insert(ctx, embedded); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	g.logger.Debug("chunks added", zap.Int("count", len(embedded)))
	return nil
}

// Delete removes every chunk whose metadata matches filter. Deleting from an empty store succeeds.
func (g *Gateway) Delete(ctx context.Context, filter domain.Filter) error {
	if err := g.index.Delete(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// SimilaritySearch returns up to k chunks matching filter, most similar first.
func (g *Gateway) SimilaritySearch(ctx context.Context, query string, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	embedding, err := g.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := g.index.Search(ctx, embedding, k, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return results, nil
}

// ReplaceSource atomically swaps the stored chunks of one resume for chunks.
func (g *Gateway) ReplaceSource(ctx context.Context, source string, chunks []domain.Chunk) error {
	embedded, err := g.embed(ctx, chunks)
	if err != nil {
		return err
	}
	if err := g.index.Replace(ctx, domain.SourceFilter(source), embedded); err != nil {
		return fmt.Errorf("failed to replace chunks for %s: %w", source, err)
	}
	g.logger.Debug("chunks replaced", zap.String("source", source), zap.Int("count", len(embedded)))
	return nil
}

// Reset drops every chunk in the collection.
func (g *Gateway) Reset(ctx context.Context) error {
	if err := g.index.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return nil
}

// Sources lists the distinct resume filenames with at least one stored chunk.
func (g *Gateway) Sources(ctx context.Context) ([]string, error) {
	sources, err := g.index.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

func (g *Gateway) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	out := make([]domain.EmbeddedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += g.batchSize {
		end := min(start+g.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := g.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("failed to embed chunks: expected %d embeddings, got %d", len(batch), len(vectors))
		}

		for i, c := range batch {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			out = append(out, domain.EmbeddedChunk{Chunk: c, Embedding: vectors[i]})
		}
	}
	return out, nil
}
