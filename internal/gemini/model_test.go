package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	calls  int
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestModel_GenerateStructured_Success(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"queries":["AWS","Azure"]}`)}
	m := &Model{models: gen, modelName: "gemini-pro", logger: zap.NewNop()}

	var out domain.SearchQueries
	err := m.GenerateStructured(context.Background(), domain.StructuredRequest{
		Name:   "search_queries",
		Prompt: "Extract 2 search keywords for: cloud",
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, []string{"AWS", "Azure"}, out.Queries)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "gemini-pro", gen.model)
	assert.Equal(t, "Extract 2 search keywords for: cloud", gen.prompt)
	require.NotNil(t, gen.config)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.NotNil(t, gen.config.ResponseJsonSchema)
	require.NotNil(t, gen.config.Temperature)
	assert.Equal(t, float32(0), *gen.config.Temperature)
}

func TestModel_GenerateStructured_JoinsParts(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"queries":`, `["Go"]}`)}
	m := &Model{models: gen, modelName: "gemini-pro", logger: zap.NewNop()}

	var out domain.SearchQueries
	err := m.GenerateStructured(context.Background(), domain.StructuredRequest{Name: "q", Prompt: "p"}, &out)

	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, out.Queries)
}

func TestModel_GenerateStructured_Errors(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}

	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr error
	}{
		{name: "api error", gen: &fakeGenerator{err: apiErr}},
		{name: "nil response", gen: &fakeGenerator{}, wantErr: ErrEmptyResponse},
		{name: "blank text", gen: &fakeGenerator{resp: textResponse("  ")}, wantErr: ErrEmptyResponse},
		{name: "invalid json", gen: &fakeGenerator{resp: textResponse("queries: none")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Model{models: tt.gen, modelName: "gemini-pro", logger: zap.NewNop()}

			var out domain.SearchQueries
			err := m.GenerateStructured(context.Background(), domain.StructuredRequest{Name: "q", Prompt: "p"}, &out)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestModel_GenerateStructured_InvalidTarget(t *testing.T) {
	gen := &fakeGenerator{}
	m := &Model{models: gen, modelName: "gemini-pro", logger: zap.NewNop()}

	err := m.GenerateStructured(context.Background(), domain.StructuredRequest{Name: "q", Prompt: "p"}, domain.SearchQueries{})

	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Zero(t, gen.calls)
}

func TestNewModel_RequiresAPIKey(t *testing.T) {
	m, err := NewModel(context.Background(), "  ", "", nil)

	assert.Nil(t, m)
	assert.Error(t, err)
}
