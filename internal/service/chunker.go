package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// ErrNoSections is the Whole cause when the model returns an empty section list.
var ErrNoSections = errors.New("model returned no sections")

// Section is one semantic part of a resume as returned by the model.
type Section struct {
	Headline     string `json:"headline" description:"Heading for this section"`
	Summary      string `json:"summary" description:"Summary of this chunk"`
	OriginalText string `json:"original_text" description:"Exact resume text"`
}

// Sections is the structured answer requested from the model.
type Sections struct {
	Chunks []Section `json:"chunks"`
}

// ChunkOutcome is the result of splitting one document: either Sectioned or Whole.
type ChunkOutcome interface {
	Chunks() []domain.Chunk
	outcome()
}

// Sectioned holds the chunks built from the model's sections.
type Sectioned struct {
	Sections []domain.Chunk
}

func (s Sectioned) Chunks() []domain.Chunk { return s.Sections }
func (Sectioned) outcome()                 {}

// Whole keeps the document verbatim as a single chunk because splitting failed.
type Whole struct {
	Document domain.Document
	Cause    error
}

func (w Whole) Chunks() []domain.Chunk {
	return []domain.Chunk{domain.NewChunk(w.Document.Text, w.Document.Metadata())}
}
func (Whole) outcome() {}

// SemanticChunker splits resumes into headed sections with a language model.
type SemanticChunker struct {
	model  StructuredModel
	logger *zap.Logger
}

func NewSemanticChunker(model StructuredModel, log *zap.Logger) *SemanticChunker {
	return &SemanticChunker{model: model, logger: logger.Named(log, "chunker")}
}

// Split asks the model to section doc. A failed call or an empty answer yields Whole; there is no retry.
func (c *SemanticChunker) Split(ctx context.Context, doc domain.Document) ChunkOutcome {
	prompt := fmt.Sprintf("Split this resume into sections. Source: %s\n\nText: %s", doc.Source, doc.Text)

	var result Sections
	err := c.model.GenerateStructured(ctx, domain.StructuredRequest{Name: "resume_sections", Prompt: prompt}, &result)
	if err != nil {
		c.logger.Error("chunking error, keeping whole document", zap.String("source", doc.Source), zap.Error(err))
		return c.whole(ctx, doc, err)
	}
	if len(result.Chunks) == 0 {
		c.logger.Warn("no sections returned, keeping whole document", zap.String("source", doc.Source))
		return c.whole(ctx, doc, ErrNoSections)
	}

	metadata := doc.Metadata()
	chunks := make([]domain.Chunk, 0, len(result.Chunks))
	for _, s := range result.Chunks {
		chunks = append(chunks, domain.NewChunk(s.Headline+"\n"+s.OriginalText, metadata))
	}
	c.logger.Debug("resume sectioned", zap.String("source", doc.Source), zap.Int("sections", len(chunks)))
	return Sectioned{Sections: chunks}
}

func (c *SemanticChunker) whole(ctx context.Context, doc domain.Document, cause error) Whole {
	telemetry.CaptureDegraded(ctx, fmt.Errorf("chunk %s: %w", doc.Source, cause), telemetry.SpanAttributes{
		Resume: doc.Source,
		Stage:  "chunking",
	})
	return Whole{Document: doc, Cause: cause}
}

// Chunk splits every document and concatenates the chunks in input order.
func (c *SemanticChunker) Chunk(ctx context.Context, docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Split(ctx, doc).Chunks()...)
	}
	return chunks
}
