// Package indextest checks the behaviour every vectorstore.Index backend must share.
package indextest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
)

// Chunk builds an embedded chunk of source with a fixed vector.
func Chunk(id, source, text string, embedding ...float32) domain.EmbeddedChunk {
	c := domain.NewChunk(text, map[string]string{domain.MetadataSource: source})
	c.ID = id
	return domain.EmbeddedChunk{Chunk: c, Embedding: embedding}
}

// Run exercises newIndex against the shared Index contract. newIndex must return an empty index.
func Run(t *testing.T, newIndex func(t *testing.T) vectorstore.Index) {
	t.Helper()

	t.Run("SearchOrdersByDistance", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{
			Chunk("a", "jane.pdf", "Skills: Go", 1, 0, 0),
			Chunk("b", "jane.pdf", "Experience: AWS", 0.9, 0.1, 0),
			Chunk("c", "jane.pdf", "Education: BSc", 0, 0, 1),
		}))

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, "b", results[1].ID)
		assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
		assert.Equal(t, "jane.pdf", results[0].Source())
	})

	t.Run("SearchHonoursFilter", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{
			Chunk("a", "jane.pdf", "Skills: Go", 1, 0),
			Chunk("b", "john.pdf", "Skills: Go", 1, 0),
		}))

		results, err := idx.Search(ctx, []float32{1, 0}, 4, domain.SourceFilter("john.pdf"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].ID)

		results, err = idx.Search(ctx, []float32{1, 0}, 4, domain.SourceFilter("nobody.pdf"))
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("DeleteByFilter", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Delete(ctx, domain.SourceFilter("jane.pdf")), "delete on empty index")

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{
			Chunk("a", "jane.pdf", "one", 1, 0),
			Chunk("b", "john.pdf", "two", 0, 1),
		}))
		require.NoError(t, idx.Delete(ctx, domain.SourceFilter("jane.pdf")))

		sources, err := idx.Sources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"john.pdf"}, sources)
	})

	t.Run("ReplaceKeepsOneGeneration", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Replace(ctx, domain.SourceFilter("jane.pdf"), []domain.EmbeddedChunk{
			Chunk("a1", "jane.pdf", "old", 1, 0),
		}))
		require.NoError(t, idx.Replace(ctx, domain.SourceFilter("jane.pdf"), []domain.EmbeddedChunk{
			Chunk("a2", "jane.pdf", "new", 1, 0),
			Chunk("a3", "jane.pdf", "newer", 0, 1),
		}))

		results, err := idx.Search(ctx, []float32{1, 0}, 10, domain.SourceFilter("jane.pdf"))
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.NotEqual(t, "old", r.Text)
		}
	})

	t.Run("ReplaceWithNothingPurges", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{Chunk("a", "jane.pdf", "old", 1, 0)}))
		require.NoError(t, idx.Replace(ctx, domain.SourceFilter("jane.pdf"), nil))

		sources, err := idx.Sources(ctx)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})

	t.Run("ResetDropsEverything", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{
			Chunk("a", "jane.pdf", "one", 1, 0),
			Chunk("b", "john.pdf", "two", 0, 1),
		}))
		require.NoError(t, idx.Reset(ctx))

		results, err := idx.Search(ctx, []float32{1, 0}, 4, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("SourcesAreDistinctAndSorted", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Insert(ctx, []domain.EmbeddedChunk{
			Chunk("a", "zoe.pdf", "one", 1, 0),
			Chunk("b", "adam.pdf", "two", 0, 1),
			Chunk("c", "zoe.pdf", "three", 1, 1),
		}))

		sources, err := idx.Sources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"adam.pdf", "zoe.pdf"}, sources)
	})
}
