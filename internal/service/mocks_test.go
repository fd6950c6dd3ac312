package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/indextest"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/memory"
)

// MockStructuredModel returns the value given to Return by copying it into out through JSON.
type MockStructuredModel struct {
	mock.Mock
}

func (m *MockStructuredModel) GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error {
	args := m.Called(ctx, req)
	if err := args.Error(1); err != nil {
		return err
	}
	raw, err := json.Marshal(args.Get(0))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// named matches a structured request by its Name.
func named(name string) any {
	return mock.MatchedBy(func(req domain.StructuredRequest) bool { return req.Name == name })
}

// staticLoader serves documents by path; unknown paths load nothing.
type staticLoader map[string][]domain.Document

func (l staticLoader) Load(ctx context.Context, path string) []domain.Document {
	return l[path]
}

type staticFinder []string

func (f staticFinder) FindAll() ([]string, error) {
	return f, nil
}

type failingFinder struct{ err error }

func (f failingFinder) FindAll() ([]string, error) {
	return nil, f.err
}

// MockChunkStore lets tests fail individual store operations.
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *MockChunkStore) Delete(ctx context.Context, filter domain.Filter) error {
	return m.Called(ctx, filter).Error(0)
}

func (m *MockChunkStore) ReplaceSource(ctx context.Context, source string, chunks []domain.Chunk) error {
	return m.Called(ctx, source, chunks).Error(0)
}

func (m *MockChunkStore) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// sectionsFor returns one section per blank-line separated paragraph of text.
func sectionsFor(text string) Sections {
	var out Sections
	for _, para := range splitParagraphs(text) {
		out.Chunks = append(out.Chunks, Section{Headline: "Section", Summary: "summary", OriginalText: para})
	}
	return out
}

func splitParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) != "" {
			out = append(out, para)
		}
	}
	return out
}

// sectioningModel sections every resume prompt by paragraph, like a well-behaved model.
type sectioningModel struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (m *sectioningModel) GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error {
	m.mu.Lock()
	m.calls++
	fail := m.fail
	m.mu.Unlock()
	if fail {
		return errors.New("model unavailable")
	}

	_, text, _ := strings.Cut(req.Prompt, "\n\nText: ")
	*(out.(*Sections)) = sectionsFor(text)
	return nil
}

func newMemoryGateway() (*vectorstore.Gateway, *memory.Index) {
	idx := memory.New()
	return vectorstore.NewGateway(&indextest.KeywordEmbedder{}, idx), idx
}
