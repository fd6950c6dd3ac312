package indextest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// KeywordDimensions is the width of vectors produced by KeywordEmbedder.
const KeywordDimensions = 64

// KeywordEmbedder is a deterministic embedder for tests: each lower-cased word is hashed into
// one of KeywordDimensions buckets, so texts sharing words are close in cosine distance.
type KeywordEmbedder struct {
	mu    sync.Mutex
	calls int
	Err   error
}

func (e *KeywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *KeywordEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = keywordVector(text)
	}
	return out, nil
}

// Calls returns the number of embedding requests served.
func (e *KeywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func keywordVector(text string) []float32 {
	v := make([]float32, KeywordDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%KeywordDimensions]++
	}
	return v
}
