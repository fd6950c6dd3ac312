package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

func TestQueryExpander_Expand(t *testing.T) {
	model := new(MockStructuredModel)
	expander := NewQueryExpander(model, 0, nil)
	ctx := context.Background()

	model.On("GenerateStructured", ctx, domain.StructuredRequest{
		Name:   "search_queries",
		Prompt: "Extract 3 search keywords for: Senior Go engineer, AWS",
	}).Return(domain.SearchQueries{Queries: []string{"Go", "AWS", "Senior"}}, nil)

	queries, err := expander.Expand(ctx, "Senior Go engineer, AWS")

	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "AWS", "Senior"}, queries)
	model.AssertExpectations(t)
}

func TestQueryExpander_Expand_CountNotEnforced(t *testing.T) {
	tests := []struct {
		name    string
		answer  domain.SearchQueries
		count   int
		wantLen int
	}{
		{name: "fewer than requested", answer: domain.SearchQueries{Queries: []string{"Go"}}, count: 3, wantLen: 1},
		{name: "more than requested", answer: domain.SearchQueries{Queries: []string{"a", "b", "c", "d", "e"}}, count: 2, wantLen: 5},
		{name: "empty list", answer: domain.SearchQueries{}, count: 3, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := new(MockStructuredModel)
			expander := NewQueryExpander(model, tt.count, nil)
			model.On("GenerateStructured", mock.Anything, mock.Anything).Return(tt.answer, nil)

			queries, err := expander.Expand(context.Background(), "any jd")

			require.NoError(t, err)
			assert.NotNil(t, queries)
			assert.Len(t, queries, tt.wantLen)
		})
	}
}

func TestQueryExpander_Expand_CustomCountInPrompt(t *testing.T) {
	model := new(MockStructuredModel)
	expander := NewQueryExpander(model, 5, nil)
	model.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req domain.StructuredRequest) bool {
		return req.Prompt == "Extract 5 search keywords for: Data engineer"
	})).Return(domain.SearchQueries{Queries: []string{"Spark"}}, nil)

	_, err := expander.Expand(context.Background(), "Data engineer")

	require.NoError(t, err)
	model.AssertExpectations(t)
}

func TestQueryExpander_Expand_Error(t *testing.T) {
	model := new(MockStructuredModel)
	expander := NewQueryExpander(model, 3, nil)
	modelErr := errors.New("401 unauthorized")
	model.On("GenerateStructured", mock.Anything, mock.Anything).Return(nil, modelErr)

	queries, err := expander.Expand(context.Background(), "jd")

	assert.Nil(t, queries)
	assert.ErrorIs(t, err, modelErr)
}
