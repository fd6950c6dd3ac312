package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

const analysisPrompt = `You are a strict Senior Technical Recruiter.

Task: Analyze the provided 'Resume Context' against the 'JD'.

1. Extract the candidate's name from the context. If not found, use the filename.
2. Calculate a Match Score (0-100) based strictly on skills and experience.
3. Identify Key Matches and Missing Skills.
4. Give higher scoring weightage to candidate's experience.

JD: %s

Resume Context: %s
`

// FitAnalyzer scores a resume against a job description.
type FitAnalyzer struct {
	model  StructuredModel
	logger *zap.Logger
}

func NewFitAnalyzer(model StructuredModel, log *zap.Logger) *FitAnalyzer {
	return &FitAnalyzer{model: model, logger: logger.Named(log, "analyzer")}
}

// Analyze returns the model's report for chunks. With no chunks it returns the empty
// analysis for resumeFilename without calling the model.
func (a *FitAnalyzer) Analyze(ctx context.Context, jobDescription string, chunks []domain.Chunk, resumeFilename string) (*domain.MatchAnalysis, error) {
	if len(chunks) == 0 {
		a.logger.Info("no chunks found, returning empty analysis", zap.String("resume", resumeFilename))
		return domain.NewEmptyAnalysis(resumeFilename), nil
	}

	var result domain.MatchAnalysis
	req := domain.StructuredRequest{
		Name:   "match_analysis",
		Prompt: fmt.Sprintf(analysisPrompt, jobDescription, buildContext(chunks)),
	}
	if err := a.model.GenerateStructured(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("analyze fit: %w", err)
	}
	return &result, nil
}

func buildContext(chunks []domain.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = "Content: " + c.Text
	}
	return strings.Join(parts, "\n\n")
}
