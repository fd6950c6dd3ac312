package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// DocumentLoader reads one resume file.
type DocumentLoader interface {
	Load(ctx context.Context, path string) []domain.Document
}

// DocumentSplitter splits one document into chunks.
type DocumentSplitter interface {
	Split(ctx context.Context, doc domain.Document) ChunkOutcome
}

// ChunkStore is the write side of the vector store.
type ChunkStore interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Delete(ctx context.Context, filter domain.Filter) error
	ReplaceSource(ctx context.Context, source string, chunks []domain.Chunk) error
	Reset(ctx context.Context) error
}

// ResumeFinder lists every resume file under the resume directory.
type ResumeFinder interface {
	FindAll() ([]string, error)
}

// IngestReport describes the outcome of ingesting one file.
type IngestReport struct {
	Source  string
	Success bool
	Chunks  int
	// Fallback reports that at least one document was kept whole.
	Fallback bool
	Err      error
}

// RunReport summarizes a batch ingestion.
type RunReport struct {
	Files     int
	Documents int
	Chunks    int
	Fallbacks int
	// Skipped lists files left out because another file has the same name.
	Skipped []string
}

// IngestionService turns resume files into stored chunks.
type IngestionService struct {
	loader   DocumentLoader
	splitter DocumentSplitter
	store    ChunkStore
	finder   ResumeFinder
	locks    *keyedMutex
	logger   *zap.Logger
}

func NewIngestionService(loader DocumentLoader, splitter DocumentSplitter, store ChunkStore, finder ResumeFinder, log *zap.Logger) *IngestionService {
	return &IngestionService{
		loader:   loader,
		splitter: splitter,
		store:    store,
		finder:   finder,
		locks:    newKeyedMutex(),
		logger:   logger.Named(log, "ingestion"),
	}
}

// IngestFile replaces the stored chunks of the file at path with freshly computed ones.
// Success is true only when at least one chunk was stored. Calls for the same file name
// are serialized.
func (s *IngestionService) IngestFile(ctx context.Context, path string) IngestReport {
	source := domain.SourceName(path)
	report := IngestReport{Source: source}

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestFile", telemetry.SpanAttributes{
		Resume:    source,
		Operation: "ingest",
	})
	defer span.End()

	unlock := s.locks.Lock(source)
	defer unlock()

	s.logger.Info("processing resume", zap.String("source", source))

	chunks, fallbacks := s.chunkDocuments(ctx, s.loader.Load(ctx, path))
	report.Fallback = fallbacks > 0

	if len(chunks) == 0 {
		// the old generation must not outlive a file that no longer yields text
		s.purge(ctx, source)
		s.logger.Warn("no chunks produced", zap.String("source", source))
		return report
	}

	if err := s.store.ReplaceSource(ctx, source, chunks); err != nil {
		s.logger.Warn("transactional replace failed, falling back to delete and add",
			zap.String("source", source), zap.Error(err))
		s.purge(ctx, source)
		if err := s.store.Add(ctx, chunks); err != nil {
			s.logger.Error("failed to store chunks", zap.String("source", source), zap.Error(err))
			span.SetError(err)
			report.Err = fmt.Errorf("store chunks for %s: %w", source, err)
			return report
		}
	}

	report.Success = true
	report.Chunks = len(chunks)
	s.logger.Info("resume ingested", zap.String("source", source), zap.Int("chunks", len(chunks)))
	return report
}

// Run ingests every resume in the resume directory. With resetDB the whole collection is
// dropped first and all chunks are inserted in one bulk add. Without it each file's chunks
// replace its previous generation, so repeated runs never duplicate, and a file that no
// longer yields chunks loses its old ones.
//
// Chunks are keyed by file name, so files sharing a name in different folders are skipped.
func (s *IngestionService) Run(ctx context.Context, resetDB bool) (RunReport, error) {
	var report RunReport

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Run", telemetry.SpanAttributes{Operation: "batch_ingest"})
	defer span.End()

	if resetDB {
		if err := s.store.Reset(ctx); err != nil {
			span.SetError(err)
			return report, fmt.Errorf("reset collection: %w", err)
		}
		s.logger.Info("collection reset")
	}

	files, err := s.finder.FindAll()
	if err != nil {
		span.SetError(err)
		return report, fmt.Errorf("list resumes: %w", err)
	}
	report.Files = len(files)

	files, report.Skipped = s.uniqueSources(files)

	batches := make([]sourceChunks, 0, len(files))
	for _, f := range files {
		docs := s.loader.Load(ctx, f)
		report.Documents += len(docs)

		chunks, fallbacks := s.chunkDocuments(ctx, docs)
		report.Fallbacks += fallbacks
		batches = append(batches, sourceChunks{source: domain.SourceName(f), chunks: chunks})
	}

	if resetDB {
		var all []domain.Chunk
		for _, b := range batches {
			all = append(all, b.chunks...)
		}
		if err := s.store.Add(ctx, all); err != nil {
			span.SetError(err)
			return report, fmt.Errorf("store chunks: %w", err)
		}
		report.Chunks = len(all)
	} else {
		for _, b := range batches {
			if len(b.chunks) == 0 {
				s.purgeSource(ctx, b.source)
				continue
			}
			if err := s.replace(ctx, b.source, b.chunks); err != nil {
				span.SetError(err)
				return report, fmt.Errorf("store chunks for %s: %w", b.source, err)
			}
			report.Chunks += len(b.chunks)
		}
	}

	s.logger.Info("batch ingestion complete",
		zap.Int("files", report.Files),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("fallbacks", report.Fallbacks),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// uniqueSources drops every file whose base name is shared with another file.
func (s *IngestionService) uniqueSources(files []string) (kept, skipped []string) {
	counts := make(map[string]int, len(files))
	for _, f := range files {
		counts[domain.SourceName(f)]++
	}
	for _, f := range files {
		if counts[domain.SourceName(f)] > 1 {
			s.logger.Warn("skipping resume with duplicate file name",
				zap.String("path", f), zap.String("source", domain.SourceName(f)))
			skipped = append(skipped, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped
}

func (s *IngestionService) replace(ctx context.Context, source string, chunks []domain.Chunk) error {
	unlock := s.locks.Lock(source)
	defer unlock()
	return s.store.ReplaceSource(ctx, source, chunks)
}

func (s *IngestionService) purgeSource(ctx context.Context, source string) {
	unlock := s.locks.Lock(source)
	defer unlock()
	s.purge(ctx, source)
}

func (s *IngestionService) purge(ctx context.Context, source string) {
	if err := s.store.Delete(ctx, domain.SourceFilter(source)); err != nil {
		s.logger.Warn("could not clear old data (might be new file)", zap.String("source", source), zap.Error(err))
		telemetry.CaptureDegraded(ctx, fmt.Errorf("purge %s: %w", source, err), telemetry.SpanAttributes{
			Resume: source,
			Stage:  "purge",
		})
		return
	}
	s.logger.Debug("cleared old version", zap.String("source", source))
}

func (s *IngestionService) chunkDocuments(ctx context.Context, docs []domain.Document) ([]domain.Chunk, int) {
	var (
		chunks    []domain.Chunk
		fallbacks int
	)
	for _, doc := range docs {
		outcome := s.splitter.Split(ctx, doc)
		if _, ok := outcome.(Whole); ok {
			fallbacks++
		}
		chunks = append(chunks, outcome.Chunks()...)
	}
	return chunks, fallbacks
}

type sourceChunks struct {
	source string
	chunks []domain.Chunk
}
