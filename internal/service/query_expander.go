package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

// DefaultQueryCount is the number of search phrases requested per job description.
const DefaultQueryCount = 3

// QueryExpander turns a job description into short search phrases.
type QueryExpander struct {
	model  StructuredModel
	count  int
	logger *zap.Logger
}

func NewQueryExpander(model StructuredModel, count int, log *zap.Logger) *QueryExpander {
	if count <= 0 {
		count = DefaultQueryCount
	}
	return &QueryExpander{model: model, count: count, logger: logger.Named(log, "query_expander")}
}

// Expand returns the model's phrases as-is; their number is not enforced and may be zero.
func (e *QueryExpander) Expand(ctx context.Context, jobDescription string) ([]string, error) {
	prompt := fmt.Sprintf("Extract %d search keywords for: %s", e.count, jobDescription)

	var result domain.SearchQueries
	if err := e.model.GenerateStructured(ctx, domain.StructuredRequest{Name: "search_queries", Prompt: prompt}, &result); err != nil {
		return nil, fmt.Errorf("generate search queries: %w", err)
	}

	queries := result.Queries
	if queries == nil {
		queries = []string{}
	}
	e.logger.Debug("queries generated", zap.Strings("queries", queries))
	return queries, nil
}
