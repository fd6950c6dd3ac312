package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// EmptyAnalysisSummary explains a zero-score result produced without calling the model.
const EmptyAnalysisSummary = "No data found for this specific resume. Please check ingestion."

// InterviewQuestion is a generated question with the reason to ask it.
type InterviewQuestion struct {
	Question  string `json:"question" mapstructure:"question"`
	Rationale string `json:"rationale" mapstructure:"rationale"`
}

// MatchAnalysis is the structured fit report for one job description and one resume.
type MatchAnalysis struct {
	MatchScore         float64             `json:"match_score" mapstructure:"match_score" description:"Match score between 0 and 100"`
	CandidateName      string              `json:"candidate_name" mapstructure:"candidate_name" description:"Candidate name, or the resume filename when no name is found"`
	Summary            string              `json:"summary" mapstructure:"summary"`
	KeyMatches         []string            `json:"key_matches" mapstructure:"key_matches"`
	MissingSkills      []string            `json:"missing_skills" mapstructure:"missing_skills"`
	InterviewQuestions []InterviewQuestion `json:"interview_questions" mapstructure:"interview_questions"`
	SourceCitations    []string            `json:"source_citations" mapstructure:"source_citations"`
}

// NewEmptyAnalysis builds the zero-score result returned when no chunks exist for a resume.
func NewEmptyAnalysis(resumeFilename string) *MatchAnalysis {
	return &MatchAnalysis{
		MatchScore:         0,
		CandidateName:      SourceName(resumeFilename),
		Summary:            EmptyAnalysisSummary,
		KeyMatches:         []string{},
		MissingSkills:      []string{},
		InterviewQuestions: []InterviewQuestion{},
		SourceCitations:    []string{},
	}
}

// AsMap converts the analysis into a plain key/value mapping keyed by JSON field names.
func (a *MatchAnalysis) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal analysis map: %w", err)
	}
	return out, nil
}

// AnalysisFromMap decodes a mapping produced by AsMap (or any JSON object) back into an analysis.
func AnalysisFromMap(m map[string]any) (*MatchAnalysis, error) {
	var a MatchAnalysis
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &a,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

// SearchQueries is the keyword expansion of a job description.
type SearchQueries struct {
	Queries []string `json:"queries" description:"Short search keyword phrases"`
}
