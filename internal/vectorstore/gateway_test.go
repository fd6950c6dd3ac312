package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/indextest"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/memory"
)

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Insert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *MockIndex) Delete(ctx context.Context, filter domain.Filter) error {
	return m.Called(ctx, filter).Error(0)
}

func (m *MockIndex) Search(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, embedding, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockIndex) Replace(ctx context.Context, filter domain.Filter, chunks []domain.EmbeddedChunk) error {
	return m.Called(ctx, filter, chunks).Error(0)
}

func (m *MockIndex) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockIndex) Sources(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func resumeChunk(source, text string) domain.Chunk {
	return domain.NewChunk(text, map[string]string{domain.MetadataSource: source})
}

func TestGateway_AddThenSearch(t *testing.T) {
	gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{}, memory.New())
	ctx := context.Background()

	require.NoError(t, gw.Add(ctx, []domain.Chunk{
		resumeChunk("jane.pdf", "Experience\nBuilt AWS Lambda pipelines"),
		resumeChunk("jane.pdf", "Education\nBSc Computer Science"),
	}))

	results, err := gw.SimilaritySearch(ctx, "AWS Lambda", 1, domain.SourceFilter("jane.pdf"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "AWS")
	assert.NotEmpty(t, results[0].ID)
}

func TestGateway_AddIsNotIdempotent(t *testing.T) {
	idx := memory.New()
	gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{}, idx)
	ctx := context.Background()

	chunks := []domain.Chunk{resumeChunk("jane.pdf", "Skills: Go")}
	require.NoError(t, gw.Add(ctx, chunks))
	require.NoError(t, gw.Add(ctx, chunks))

	assert.Equal(t, 2, idx.Len())
}

func TestGateway_ReplaceSource(t *testing.T) {
	idx := memory.New()
	gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{}, idx)
	ctx := context.Background()

	require.NoError(t, gw.Add(ctx, []domain.Chunk{
		resumeChunk("jane.pdf", "old one"),
		resumeChunk("jane.pdf", "old two"),
		resumeChunk("john.pdf", "untouched"),
	}))

	require.NoError(t, gw.ReplaceSource(ctx, "/uploads/jane.pdf", []domain.Chunk{resumeChunk("jane.pdf", "new")}))

	results, err := gw.SimilaritySearch(ctx, "anything", 10, domain.SourceFilter("jane.pdf"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
	assert.Equal(t, 2, idx.Len())
}

func TestGateway_EmbedsInBatches(t *testing.T) {
	embedder := &indextest.KeywordEmbedder{}
	gw := vectorstore.NewGateway(embedder, memory.New(), vectorstore.WithBatchSize(2))

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = resumeChunk("jane.pdf", "chunk text")
	}

	require.NoError(t, gw.Add(context.Background(), chunks))
	assert.Equal(t, 3, embedder.Calls())
}

func TestGateway_SearchValidation(t *testing.T) {
	idx := new(MockIndex)
	gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{}, idx)

	_, err := gw.SimilaritySearch(context.Background(), "  ", 4, nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyQuery)

	results, err := gw.SimilaritySearch(context.Background(), "Go", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	idx.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	embedErr := errors.New("embedding quota exceeded")
	indexErr := errors.New("connection refused")

	t.Run("embedder", func(t *testing.T) {
		idx := new(MockIndex)
		gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{Err: embedErr}, idx)

		assert.ErrorIs(t, gw.Add(ctx, []domain.Chunk{resumeChunk("a.pdf", "x")}), embedErr)
		_, err := gw.SimilaritySearch(ctx, "x", 4, nil)
		assert.ErrorIs(t, err, embedErr)
		assert.ErrorIs(t, gw.ReplaceSource(ctx, "a.pdf", []domain.Chunk{resumeChunk("a.pdf", "x")}), embedErr)
		idx.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("index", func(t *testing.T) {
		idx := new(MockIndex)
		gw := vectorstore.NewGateway(&indextest.KeywordEmbedder{}, idx)

		idx.On("Insert", ctx, mock.Anything).Return(indexErr)
		idx.On("Delete", ctx, domain.SourceFilter("a.pdf")).Return(indexErr)
		idx.On("Search", ctx, mock.Anything, 4, domain.Filter(nil)).Return(nil, indexErr)
		idx.On("Replace", ctx, domain.SourceFilter("a.pdf"), mock.Anything).Return(indexErr)
		idx.On("Reset", ctx).Return(indexErr)
		idx.On("Sources", ctx).Return(nil, indexErr)

		assert.ErrorIs(t, gw.Add(ctx, []domain.Chunk{resumeChunk("a.pdf", "x")}), indexErr)
		assert.ErrorIs(t, gw.Delete(ctx, domain.SourceFilter("a.pdf")), indexErr)
		_, err := gw.SimilaritySearch(ctx, "x", 4, nil)
		assert.ErrorIs(t, err, indexErr)
		assert.ErrorIs(t, gw.ReplaceSource(ctx, "a.pdf", nil), indexErr)
		assert.ErrorIs(t, gw.Reset(ctx), indexErr)
		_, err = gw.Sources(ctx)
		assert.ErrorIs(t, err, indexErr)
		idx.AssertExpectations(t)
	})
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, vectorstore.CosineDistance([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 1, vectorstore.CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, vectorstore.CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, vectorstore.CosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 1.0, vectorstore.CosineDistance([]float32{0, 0}, []float32{1, 0}))
}
