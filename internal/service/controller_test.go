package service

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/testutil"
)

type MockQueryGenerator struct {
	mock.Mock
}

func (m *MockQueryGenerator) Expand(ctx context.Context, jobDescription string) ([]string, error) {
	args := m.Called(ctx, jobDescription)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockChunkRetriever struct {
	mock.Mock
}

func (m *MockChunkRetriever) Retrieve(ctx context.Context, queries []string, resumeFilename string) ([]domain.Chunk, error) {
	args := m.Called(ctx, queries, resumeFilename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

type MockApplicationAnalyzer struct {
	mock.Mock
}

func (m *MockApplicationAnalyzer) Analyze(ctx context.Context, jobDescription string, chunks []domain.Chunk, resumeFilename string) (*domain.MatchAnalysis, error) {
	args := m.Called(ctx, jobDescription, chunks, resumeFilename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchAnalysis), args.Error(1)
}

type stageRecorder struct {
	stages []Stage
}

func (r *stageRecorder) observe(s Stage) {
	r.stages = append(r.stages, s)
}

func TestController_ProcessApplication_Success(t *testing.T) {
	expander := new(MockQueryGenerator)
	retriever := new(MockChunkRetriever)
	analyzer := new(MockApplicationAnalyzer)
	rec := &stageRecorder{}
	c := NewController(expander, retriever, analyzer, nil, WithStageObserver(rec.observe))

	chunks := []domain.Chunk{domain.NewChunk("Skills: Go", map[string]string{domain.MetadataSource: "jane.pdf"})}
	want := &domain.MatchAnalysis{MatchScore: 90, CandidateName: "Jane Doe"}

	expander.On("Expand", mock.Anything, "Go engineer").Return([]string{"Go"}, nil)
	retriever.On("Retrieve", mock.Anything, []string{"Go"}, "jane.pdf").Return(chunks, nil)
	analyzer.On("Analyze", mock.Anything, "Go engineer", chunks, "jane.pdf").Return(want, nil)

	got, err := c.ProcessApplication(context.Background(), "Go engineer", "jane.pdf")

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []Stage{StageIdle, StageExpandingQueries, StageRetrieving, StageAnalyzing, StageDone}, rec.stages)
}

func TestController_ProcessApplication_RejectsBlankInput(t *testing.T) {
	tests := []struct {
		name    string
		jd      string
		resume  string
		wantErr error
	}{
		{name: "blank jd", jd: "  ", resume: "jane.pdf", wantErr: domain.ErrMissingJobDescription},
		{name: "blank resume", jd: "Go engineer", resume: " ", wantErr: domain.ErrMissingResume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expander := new(MockQueryGenerator)
			rec := &stageRecorder{}
			c := NewController(expander, new(MockChunkRetriever), new(MockApplicationAnalyzer), nil, WithStageObserver(rec.observe))

			got, err := c.ProcessApplication(context.Background(), tt.jd, tt.resume)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsValidationError(err))
			assert.Empty(t, rec.stages)
			expander.AssertNotCalled(t, "Expand", mock.Anything, mock.Anything)
		})
	}
}

func TestController_ProcessApplication_StageFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(e *MockQueryGenerator, r *MockChunkRetriever, a *MockApplicationAnalyzer)
		wantStage Stage
	}{
		{
			name: "expanding",
			setup: func(e *MockQueryGenerator, r *MockChunkRetriever, a *MockApplicationAnalyzer) {
				e.On("Expand", mock.Anything, mock.Anything).Return(nil, boom)
			},
			wantStage: StageExpandingQueries,
		},
		{
			name: "retrieving",
			setup: func(e *MockQueryGenerator, r *MockChunkRetriever, a *MockApplicationAnalyzer) {
				e.On("Expand", mock.Anything, mock.Anything).Return([]string{"Go"}, nil)
				r.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
			},
			wantStage: StageRetrieving,
		},
		{
			name: "analyzing",
			setup: func(e *MockQueryGenerator, r *MockChunkRetriever, a *MockApplicationAnalyzer) {
				e.On("Expand", mock.Anything, mock.Anything).Return([]string{"Go"}, nil)
				r.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Chunk{}, nil)
				a.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
			},
			wantStage: StageAnalyzing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r, a := new(MockQueryGenerator), new(MockChunkRetriever), new(MockApplicationAnalyzer)
			tt.setup(e, r, a)
			rec := &stageRecorder{}
			c := NewController(e, r, a, nil, WithStageObserver(rec.observe))

			got, err := c.ProcessApplication(context.Background(), "Go engineer", "jane.pdf")

			assert.Nil(t, got)
			require.ErrorIs(t, err, boom)
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.Equal(t, StageFailed, rec.stages[len(rec.stages)-1])
			assert.Contains(t, err.Error(), string(tt.wantStage))
		})
	}
}

func TestController_ProcessApplication_LeavesStageBreadcrumbs(t *testing.T) {
	expander := new(MockQueryGenerator)
	retriever := new(MockChunkRetriever)
	analyzer := new(MockApplicationAnalyzer)
	c := NewController(expander, retriever, analyzer, nil)
	ctx, rec := testutil.SentryContext(context.Background())

	expander.On("Expand", mock.Anything, "Go engineer").Return([]string{"Go"}, nil)
	retriever.On("Retrieve", mock.Anything, []string{"Go"}, "uploads/jane.pdf").Return([]domain.Chunk{}, nil)
	analyzer.On("Analyze", mock.Anything, "Go engineer", []domain.Chunk{}, "uploads/jane.pdf").
		Return(&domain.MatchAnalysis{MatchScore: 10}, nil)

	_, err := c.ProcessApplication(ctx, "Go engineer", "uploads/jane.pdf")
	require.NoError(t, err)

	sentry.GetHubFromContext(ctx).CaptureMessage("after analysis")

	var crumbs []*sentry.Breadcrumb
	for _, e := range rec.Events() {
		if e.Message == "after analysis" {
			crumbs = e.Breadcrumbs
		}
	}
	stages := make([]string, 0, len(crumbs))
	for _, b := range crumbs {
		if b.Category == "pipeline" {
			stages = append(stages, b.Message)
			assert.Equal(t, "jane.pdf", b.Data["resume"])
		}
	}
	assert.Equal(t, []string{"expanding_queries", "retrieving", "analyzing", "done"}, stages)
}
