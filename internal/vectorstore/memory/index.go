// Package memory is an in-process vector index.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
)

// Index keeps embedded chunks in memory. It is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	chunks []domain.EmbeddedChunk
}

func New() *Index {
	return &Index{}
}

func (i *Index) Insert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks = append(i.chunks, cloneAll(chunks)...)
	return nil
}

func (i *Index) Delete(ctx context.Context, filter domain.Filter) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deleteLocked(filter)
	return nil
}

func (i *Index) Search(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	results := make([]domain.ScoredChunk, 0)
	for _, c := range i.chunks {
		if !filter.Matches(c.Metadata) {
			continue
		}
		results = append(results, domain.ScoredChunk{
			Chunk:    c.Chunk.Clone(),
			Distance: vectorstore.CosineDistance(embedding, c.Embedding),
		})
	}
	return vectorstore.Rank(results, k), nil
}

func (i *Index) Replace(ctx context.Context, filter domain.Filter, chunks []domain.EmbeddedChunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deleteLocked(filter)
	i.chunks = append(i.chunks, cloneAll(chunks)...)
	return nil
}

func (i *Index) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks = nil
	return nil
}

func (i *Index) Sources(ctx context.Context) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := make(map[string]struct{})
	sources := make([]string, 0)
	for _, c := range i.chunks {
		s := c.Source()
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources, nil
}

// Len returns the number of stored chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

func (i *Index) deleteLocked(filter domain.Filter) {
	kept := i.chunks[:0]
	for _, c := range i.chunks {
		if !filter.Matches(c.Metadata) {
			kept = append(kept, c)
		}
	}
	clear(i.chunks[len(kept):])
	i.chunks = kept
}

func cloneAll(chunks []domain.EmbeddedChunk) []domain.EmbeddedChunk {
	out := make([]domain.EmbeddedChunk, len(chunks))
	for n, c := range chunks {
		out[n] = domain.EmbeddedChunk{
			Chunk:     c.Chunk.Clone(),
			Embedding: append([]float32(nil), c.Embedding...),
		}
	}
	return out
}
