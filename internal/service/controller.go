package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// Stage is a step of one application analysis.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageExpandingQueries Stage = "expanding_queries"
	StageRetrieving       Stage = "retrieving"
	StageAnalyzing        Stage = "analyzing"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// StageError reports the stage an analysis failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type QueryGenerator interface {
	Expand(ctx context.Context, jobDescription string) ([]string, error)
}

type ChunkRetriever interface {
	Retrieve(ctx context.Context, queries []string, resumeFilename string) ([]domain.Chunk, error)
}

type ApplicationAnalyzer interface {
	Analyze(ctx context.Context, jobDescription string, chunks []domain.Chunk, resumeFilename string) (*domain.MatchAnalysis, error)
}

// Controller runs query expansion, retrieval and analysis for one application.
type Controller struct {
	expander  QueryGenerator
	retriever ChunkRetriever
	analyzer  ApplicationAnalyzer
	onStage   func(Stage)
	logger    *zap.Logger
}

type ControllerOption func(*Controller)

// WithStageObserver registers fn to be called on every stage transition.
func WithStageObserver(fn func(Stage)) ControllerOption {
	return func(c *Controller) {
		c.onStage = fn
	}
}

func NewController(expander QueryGenerator, retriever ChunkRetriever, analyzer ApplicationAnalyzer, log *zap.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		expander:  expander,
		retriever: retriever,
		analyzer:  analyzer,
		onStage:   func(Stage) {},
		logger:    logger.Named(log, "controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessApplication scores the resume stored under resumeFilename against jobDescription.
// Stage failures are returned as *StageError and never retried.
func (c *Controller) ProcessApplication(ctx context.Context, jobDescription, resumeFilename string) (*domain.MatchAnalysis, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, domain.ErrMissingJobDescription
	}
	if domain.SourceName(resumeFilename) == "" {
		return nil, domain.ErrMissingResume
	}

	resume := domain.SourceName(resumeFilename)
	log := c.logger.With(zap.String("resume", resume))

	ctx, span := telemetry.StartSpan(ctx, "Controller.ProcessApplication", telemetry.SpanAttributes{
		Resume:    resume,
		Operation: "analyze",
	})
	defer span.End()

	c.onStage(StageIdle)
	log.Info("starting analysis pipeline")

	var queries []string
	err := c.stage(ctx, StageExpandingQueries, resume, func(ctx context.Context) (err error) {
		queries, err = c.expander.Expand(ctx, jobDescription)
		return err
	})
	if err != nil {
		return nil, c.fail(log, span, err)
	}

	var chunks []domain.Chunk
	err = c.stage(ctx, StageRetrieving, resume, func(ctx context.Context) (err error) {
		chunks, err = c.retriever.Retrieve(ctx, queries, resumeFilename)
		return err
	})
	if err != nil {
		return nil, c.fail(log, span, err)
	}

	var analysis *domain.MatchAnalysis
	err = c.stage(ctx, StageAnalyzing, resume, func(ctx context.Context) (err error) {
		analysis, err = c.analyzer.Analyze(ctx, jobDescription, chunks, resumeFilename)
		return err
	})
	if err != nil {
		return nil, c.fail(log, span, err)
	}

	c.onStage(StageDone)
	telemetry.StageBreadcrumb(ctx, resume, string(StageDone))
	log.Info("analysis pipeline finished",
		zap.Int("queries", len(queries)),
		zap.Int("chunks", len(chunks)),
		zap.Float64("match_score", analysis.MatchScore),
	)
	return analysis, nil
}

func (c *Controller) stage(ctx context.Context, stage Stage, resume string, fn func(ctx context.Context) error) error {
	c.onStage(stage)
	telemetry.StageBreadcrumb(ctx, resume, string(stage))

	ctx, span := telemetry.StartSpan(ctx, "Controller."+string(stage), telemetry.SpanAttributes{
		Resume: resume,
		Stage:  string(stage),
	})
	defer span.End()

	if err := fn(ctx); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (c *Controller) fail(log *zap.Logger, span *telemetry.Span, err error) error {
	c.onStage(StageFailed)
	log.Error("analysis pipeline failed", zap.Error(err))
	span.SetError(err)
	return err
}
