package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

// DefaultRetrievalK is the number of chunks fetched per query.
const DefaultRetrievalK = 4

// ChunkSearcher is the read side of the vector store.
type ChunkSearcher interface {
	SimilaritySearch(ctx context.Context, query string, k int, filter domain.Filter) ([]domain.ScoredChunk, error)
}

// Retriever collects the passages of one resume relevant to a set of queries.
type Retriever struct {
	store  ChunkSearcher
	k      int
	logger *zap.Logger
}

func NewRetriever(store ChunkSearcher, k int, log *zap.Logger) *Retriever {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	return &Retriever{store: store, k: k, logger: logger.Named(log, "retriever")}
}

// Retrieve searches each query in order, restricted to resumeFilename's base name, and returns
// the chunks with distinct text in first-seen order. Blank queries are skipped.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, resumeFilename string) ([]domain.Chunk, error) {
	filter := domain.SourceFilter(resumeFilename)
	seen := make(map[string]struct{})
	chunks := make([]domain.Chunk, 0)

	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		results, err := r.store.SimilaritySearch(ctx, query, r.k, filter)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		for _, res := range results {
			if _, ok := seen[res.Text]; ok {
				continue
			}
			seen[res.Text] = struct{}{}
			chunks = append(chunks, res.Chunk)
		}
	}

	r.logger.Debug("chunks retrieved",
		zap.String("resume", filter[domain.MetadataSource]),
		zap.Int("queries", len(queries)),
		zap.Int("unique", len(chunks)),
	)
	return chunks, nil
}
