package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/service"
	"github.com/cloo-solutions/resumatch/internal/storage"
)

// ResumeLister lists the resumes currently on disk.
type ResumeLister interface {
	Root() string
	List() ([]storage.ResumeFile, error)
}

// FileIngester re-indexes a single resume file.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) service.IngestReport
}

type fileState struct {
	size    int64
	modTime time.Time
}

// DirectoryWatcher is a JobProcessor that ingests resumes added to or changed in the resume
// directory since its previous pass.
type DirectoryWatcher struct {
	lister   ResumeLister
	ingester FileIngester
	logger   *zap.Logger

	mu   sync.Mutex
	seen map[string]fileState
}

func NewDirectoryWatcher(lister ResumeLister, ingester FileIngester, log *zap.Logger) *DirectoryWatcher {
	return &DirectoryWatcher{
		lister:   lister,
		ingester: ingester,
		logger:   logger.Named(log, "watcher"),
		seen:     make(map[string]fileState),
	}
}

// Prime records the current directory contents without ingesting them. Use it after a
// full ingestion run so the first pass does not redo the work.
func (w *DirectoryWatcher) Prime() error {
	files, err := w.lister.List()
	if err != nil {
		return fmt.Errorf("failed to list resumes: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range files {
		w.seen[f.Name] = fileState{size: f.Size, modTime: f.ModTime}
	}
	return nil
}

// MarkIngested records a file ingested outside the watcher, such as an upload.
func (w *DirectoryWatcher) MarkIngested(f storage.ResumeFile) {
	w.mu.Lock()
	w.seen[f.Name] = fileState{size: f.Size, modTime: f.ModTime}
	w.mu.Unlock()
}

// ProcessJobs ingests new or modified resumes. A failed file is retried on the next pass.
func (w *DirectoryWatcher) ProcessJobs(ctx context.Context) error {
	files, err := w.lister.List()
	if err != nil {
		return fmt.Errorf("failed to list resumes: %w", err)
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Name] = struct{}{}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		state := fileState{size: f.Size, modTime: f.ModTime}
		w.mu.Lock()
		prev, ok := w.seen[f.Name]
		w.mu.Unlock()
		if ok && prev.size == state.size && prev.modTime.Equal(state.modTime) {
			continue
		}

		w.logger.Info("resume changed, re-ingesting", zap.String("file", f.Name), zap.Bool("new", !ok))
		report := w.ingester.IngestFile(ctx, filepath.Join(w.lister.Root(), f.Name))
		if !report.Success {
			w.logger.Warn("re-ingestion failed", zap.String("file", f.Name), zap.Error(report.Err))
			continue
		}

		w.mu.Lock()
		w.seen[f.Name] = state
		w.mu.Unlock()
	}

	w.mu.Lock()
	for name := range w.seen {
		if _, ok := present[name]; !ok {
			delete(w.seen, name)
		}
	}
	w.mu.Unlock()

	return nil
}
