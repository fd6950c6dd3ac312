package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/api"
	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/service"
	"github.com/cloo-solutions/resumatch/internal/storage"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// ResumeStore is the on-disk resume folder.
type ResumeStore interface {
	List() ([]storage.ResumeFile, error)
	Save(name string, r io.Reader) (string, string, error)
	Path(name string) (string, error)
	Remove(name string) error
}

type FileIngester interface {
	IngestFile(ctx context.Context, path string) service.IngestReport
}

type ChunkDeleter interface {
	Delete(ctx context.Context, filter domain.Filter) error
}

// ResumeArchive mirrors resumes to object storage.
type ResumeArchive interface {
	PutResume(ctx context.Context, name string, body io.Reader, size int64) error
	GenerateDownloadURL(ctx context.Context, name string) (string, error)
	DeleteResume(ctx context.Context, name string) error
}

type ResumeHandler struct {
	store    ResumeStore
	ingester FileIngester
	chunks   ChunkDeleter
	archive  ResumeArchive
	onIngest func(storage.ResumeFile)
	logger   *zap.Logger
}

type ResumeHandlerOption func(*ResumeHandler)

// WithArchive enables mirroring uploads to archive and presigned downloads.
func WithArchive(archive ResumeArchive) ResumeHandlerOption {
	return func(h *ResumeHandler) {
		h.archive = archive
	}
}

// WithIngestObserver registers fn to be told about every successfully ingested upload.
func WithIngestObserver(fn func(storage.ResumeFile)) ResumeHandlerOption {
	return func(h *ResumeHandler) {
		h.onIngest = fn
	}
}

func NewResumeHandler(store ResumeStore, ingester FileIngester, chunks ChunkDeleter, log *zap.Logger, opts ...ResumeHandlerOption) *ResumeHandler {
	h := &ResumeHandler{
		store:    store,
		ingester: ingester,
		chunks:   chunks,
		logger:   logger.Named(log, "resumes"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type ListResumesResponse struct {
	Resumes []string             `json:"resumes"`
	Files   []storage.ResumeFile `json:"files"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Fallback bool   `json:"fallback"`
	Archived bool   `json:"archived"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List()
	if err != nil {
		api.HandleError(w, err)
		return
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	api.Success(w, http.StatusOK, ListResumesResponse{Resumes: names, Files: files})
}

func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, err)
			return
		}
		api.HandleError(w, domain.ErrMissingUploadFile)
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		api.Error(w, http.StatusBadRequest, "no selected file")
		return
	}
	if !storage.IsResume(header.Filename) {
		api.HandleError(w, domain.ErrInvalidFileType)
		return
	}

	name, path, err := h.store.Save(header.Filename, file)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	h.logger.Info("file saved", zap.String("path", path))
	telemetry.Tag(r.Context(), "resume_filename", name)

	archived := h.archiveUpload(r.Context(), name, path)

	report := h.ingester.IngestFile(r.Context(), path)
	telemetry.Tag(r.Context(), "ingest_outcome", ingestOutcome(report))
	if !report.Success {
		api.HandleError(w, domain.ErrIngestionFailed)
		return
	}

	if h.onIngest != nil {
		if info, err := os.Stat(path); err == nil {
			h.onIngest(storage.ResumeFile{Name: name, Size: info.Size(), ModTime: info.ModTime()})
		}
	}

	api.Success(w, http.StatusOK, UploadResponse{
		Message:  "File uploaded and ingested successfully",
		Filename: name,
		Chunks:   report.Chunks,
		Fallback: report.Fallback,
		Archived: archived,
	})
}

// archiveUpload copies the stored file to the archive. Failures are logged, not returned.
func (h *ResumeHandler) archiveUpload(ctx context.Context, name, path string) bool {
	if h.archive == nil {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		h.logger.Warn("could not open resume for archiving", zap.String("file", name), zap.Error(err))
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Warn("could not stat resume for archiving", zap.String("file", name), zap.Error(err))
		return false
	}

	if err := h.archive.PutResume(ctx, name, f, info.Size()); err != nil {
		h.logger.Warn("could not archive resume", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}

// Download returns a presigned archive URL, or streams the local file when no archive is configured.
func (h *ResumeHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := h.store.Path(name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if h.archive == nil {
		w.Header().Set("Content-Type", "application/pdf")
		http.ServeFile(w, r, path)
		return
	}

	downloadURL, err := h.archive.GenerateDownloadURL(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{DownloadURL: downloadURL})
}

// Delete drops a resume's chunks, its file and its archived copy.
func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	if _, err := h.store.Path(name); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.chunks.Delete(r.Context(), domain.SourceFilter(name)); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.store.Remove(name); err != nil {
		api.HandleError(w, err)
		return
	}

	if h.archive != nil {
		if err := h.archive.DeleteResume(r.Context(), name); err != nil {
			h.logger.Warn("could not delete archived resume", zap.String("file", name), zap.Error(err))
		}
	}

	api.Success(w, http.StatusOK, DeleteResponse{Deleted: name})
}

// ingestOutcome classifies a report for the upload transaction: "sectioned", "whole"
// when the chunker kept the document unsplit, or "failed".
func ingestOutcome(report service.IngestReport) string {
	switch {
	case !report.Success:
		return "failed"
	case report.Fallback:
		return "whole"
	default:
		return "sectioned"
	}
}
