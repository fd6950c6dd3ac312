package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

func TestFitAnalyzer_Analyze_EmptyChunksReturnsSentinel(t *testing.T) {
	model := new(MockStructuredModel)
	analyzer := NewFitAnalyzer(model, nil)

	analysis, err := analyzer.Analyze(context.Background(), "Go engineer", nil, "/uploads/ghost.pdf")

	require.NoError(t, err)
	assert.Equal(t, domain.NewEmptyAnalysis("ghost.pdf"), analysis)
	assert.Zero(t, analysis.MatchScore)
	assert.Equal(t, "ghost.pdf", analysis.CandidateName)
	assert.Equal(t, "No data found for this specific resume. Please check ingestion.", analysis.Summary)
	model.AssertNotCalled(t, "GenerateStructured", mock.Anything, mock.Anything)
}

func TestFitAnalyzer_Analyze_BuildsPromptAndReturnsResult(t *testing.T) {
	model := new(MockStructuredModel)
	analyzer := NewFitAnalyzer(model, nil)
	chunks := []domain.Chunk{
		domain.NewChunk("Experience\nAWS Lambda", map[string]string{domain.MetadataSource: "jane.pdf"}),
		domain.NewChunk("Skills\nGo", map[string]string{domain.MetadataSource: "jane.pdf"}),
	}
	want := domain.MatchAnalysis{
		MatchScore:         72,
		CandidateName:      "Jane Doe",
		Summary:            "Solid AWS experience, no Azure.",
		KeyMatches:         []string{"AWS"},
		MissingSkills:      []string{"Azure"},
		InterviewQuestions: []domain.InterviewQuestion{{Question: "Any Azure work?", Rationale: "Not on resume."}},
		SourceCitations:    []string{"AWS Lambda"},
	}

	var prompt string
	model.On("GenerateStructured", mock.Anything, named("match_analysis")).
		Run(func(args mock.Arguments) { prompt = args.Get(1).(domain.StructuredRequest).Prompt }).
		Return(want, nil)

	analysis, err := analyzer.Analyze(context.Background(), "Cloud engineer (AWS, Azure)", chunks, "jane.pdf")

	require.NoError(t, err)
	assert.Equal(t, &want, analysis)
	assert.True(t, strings.HasPrefix(prompt, "You are a strict Senior Technical Recruiter."))
	assert.Contains(t, prompt, "JD: Cloud engineer (AWS, Azure)")
	assert.Contains(t, prompt, "Resume Context: Content: Experience\nAWS Lambda\n\nContent: Skills\nGo")
}

func TestFitAnalyzer_Analyze_Error(t *testing.T) {
	model := new(MockStructuredModel)
	analyzer := NewFitAnalyzer(model, nil)
	modelErr := errors.New("timeout")
	model.On("GenerateStructured", mock.Anything, mock.Anything).Return(nil, modelErr)

	analysis, err := analyzer.Analyze(context.Background(), "jd",
		[]domain.Chunk{domain.NewChunk("x", map[string]string{domain.MetadataSource: "a.pdf"})}, "a.pdf")

	assert.Nil(t, analysis)
	assert.ErrorIs(t, err, modelErr)
}
