package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/resumatch/internal/service"
	"github.com/cloo-solutions/resumatch/internal/storage"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockResumeLister is a mock implementation of ResumeLister
type MockResumeLister struct {
	mock.Mock
}

func (m *MockResumeLister) Root() string {
	return "/resumes"
}

func (m *MockResumeLister) List() ([]storage.ResumeFile, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ResumeFile), args.Error(1)
}

// MockFileIngester is a mock implementation of FileIngester
type MockFileIngester struct {
	mock.Mock
}

func (m *MockFileIngester) IngestFile(ctx context.Context, path string) service.IngestReport {
	args := m.Called(ctx, path)
	return args.Get(0).(service.IngestReport)
}

var modTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func ok(source string) service.IngestReport {
	return service.IngestReport{Source: source, Success: true, Chunks: 3}
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_RunsImmediately(t *testing.T) {
	called := make(chan struct{}, 1)
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	}).Return(nil)

	worker := NewWorker(mockProcessor, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass did not run before the first tick")
	}
	worker.Stop()
}

func TestDirectoryWatcher_IngestsNewFiles(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	lister.On("List").Return([]storage.ResumeFile{
		{Name: "a.pdf", Size: 10, ModTime: modTime},
		{Name: "b.pdf", Size: 20, ModTime: modTime},
	}, nil)
	ingester.On("IngestFile", mock.Anything, "/resumes/a.pdf").Return(ok("a.pdf")).Once()
	ingester.On("IngestFile", mock.Anything, "/resumes/b.pdf").Return(ok("b.pdf")).Once()

	watcher := NewDirectoryWatcher(lister, ingester, zaptest.NewLogger(t))

	require.NoError(t, watcher.ProcessJobs(context.Background()))
	// unchanged files are skipped on the next pass
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertExpectations(t)
}

func TestDirectoryWatcher_ReingestsModifiedFile(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	lister.On("List").Return([]storage.ResumeFile{{Name: "a.pdf", Size: 10, ModTime: modTime}}, nil).Once()
	lister.On("List").Return([]storage.ResumeFile{{Name: "a.pdf", Size: 10, ModTime: modTime.Add(time.Minute)}}, nil).Once()
	ingester.On("IngestFile", mock.Anything, "/resumes/a.pdf").Return(ok("a.pdf")).Twice()

	watcher := NewDirectoryWatcher(lister, ingester, nil)

	require.NoError(t, watcher.ProcessJobs(context.Background()))
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertExpectations(t)
}

func TestDirectoryWatcher_RetriesFailedFile(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	lister.On("List").Return([]storage.ResumeFile{{Name: "scan.pdf", Size: 5, ModTime: modTime}}, nil)
	ingester.On("IngestFile", mock.Anything, "/resumes/scan.pdf").
		Return(service.IngestReport{Source: "scan.pdf"}).Twice()

	watcher := NewDirectoryWatcher(lister, ingester, nil)

	require.NoError(t, watcher.ProcessJobs(context.Background()))
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertExpectations(t)
}

func TestDirectoryWatcher_Prime(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	lister.On("List").Return([]storage.ResumeFile{{Name: "a.pdf", Size: 10, ModTime: modTime}}, nil)

	watcher := NewDirectoryWatcher(lister, ingester, nil)
	require.NoError(t, watcher.Prime())
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything)
}

func TestDirectoryWatcher_MarkIngested(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	f := storage.ResumeFile{Name: "upload.pdf", Size: 7, ModTime: modTime}
	lister.On("List").Return([]storage.ResumeFile{f}, nil)

	watcher := NewDirectoryWatcher(lister, ingester, nil)
	watcher.MarkIngested(f)
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything)
}

func TestDirectoryWatcher_ForgetsDeletedFile(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	f := storage.ResumeFile{Name: "a.pdf", Size: 10, ModTime: modTime}
	lister.On("List").Return([]storage.ResumeFile{f}, nil).Once()
	lister.On("List").Return([]storage.ResumeFile{}, nil).Once()
	lister.On("List").Return([]storage.ResumeFile{f}, nil).Once()
	ingester.On("IngestFile", mock.Anything, "/resumes/a.pdf").Return(ok("a.pdf")).Twice()

	watcher := NewDirectoryWatcher(lister, ingester, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, watcher.ProcessJobs(context.Background()))
	}

	ingester.AssertExpectations(t)
}

func TestDirectoryWatcher_ListError(t *testing.T) {
	lister := new(MockResumeLister)
	ingester := new(MockFileIngester)

	lister.On("List").Return(nil, errors.New("permission denied"))

	watcher := NewDirectoryWatcher(lister, ingester, nil)
	err := watcher.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list resumes")
}

func TestDirectoryWatcher_WithDirectory(t *testing.T) {
	root := t.TempDir()
	dir, err := storage.NewDirectory(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "jane.pdf"), []byte("%PDF"), 0o644))

	ingester := new(MockFileIngester)
	ingester.On("IngestFile", mock.Anything, filepath.Join(root, "jane.pdf")).Return(ok("jane.pdf")).Once()

	watcher := NewDirectoryWatcher(dir, ingester, nil)
	require.NoError(t, watcher.ProcessJobs(context.Background()))

	ingester.AssertExpectations(t)
}
