package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmptyAnalysis(t *testing.T) {
	a := NewEmptyAnalysis("/uploads/john_smith.pdf")

	assert.Equal(t, 0.0, a.MatchScore)
	assert.Equal(t, "john_smith.pdf", a.CandidateName)
	assert.Equal(t, EmptyAnalysisSummary, a.Summary)
	assert.Empty(t, a.KeyMatches)
	assert.Empty(t, a.MissingSkills)
	assert.Empty(t, a.InterviewQuestions)
	assert.Empty(t, a.SourceCitations)
}

func TestNewEmptyAnalysis_SerializesEmptyLists(t *testing.T) {
	raw, err := json.Marshal(NewEmptyAnalysis("x.pdf"))
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"key_matches":[]`)
	assert.Contains(t, string(raw), `"interview_questions":[]`)
	assert.NotContains(t, string(raw), "null")
}

func TestMatchAnalysis_MapRoundTrip(t *testing.T) {
	original := &MatchAnalysis{
		MatchScore:    72.5,
		CandidateName: "Jane Doe",
		Summary:       "Solid backend engineer",
		KeyMatches:    []string{"Go", "PostgreSQL"},
		MissingSkills: []string{"Kubernetes"},
		InterviewQuestions: []InterviewQuestion{
			{Question: "Describe a migration you led", Rationale: "Checks ownership"},
			{Question: "How do you size a connection pool?", Rationale: "Database depth"},
		},
		SourceCitations: []string{"Experience: Acme Corp"},
	}

	m, err := original.AsMap()
	require.NoError(t, err)

	assert.Equal(t, 72.5, m["match_score"])
	questions, ok := m["interview_questions"].([]any)
	require.True(t, ok)
	require.Len(t, questions, 2)
	first, ok := questions[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Describe a migration you led", first["question"])

	decoded, err := AnalysisFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestAnalysisFromMap_WeakTypes(t *testing.T) {
	decoded, err := AnalysisFromMap(map[string]any{
		"match_score":    "64",
		"candidate_name": "Sam",
	})
	require.NoError(t, err)

	assert.Equal(t, 64.0, decoded.MatchScore)
	assert.Equal(t, "Sam", decoded.CandidateName)
}
