package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/api"
	"github.com/cloo-solutions/resumatch/internal/api/handlers"
	"github.com/cloo-solutions/resumatch/internal/api/middleware"
)

// DefaultMaxBodyBytes bounds resume uploads when RouterConfig leaves it unset.
const DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

type RouterConfig struct {
	ResumeHandler  *handlers.ResumeHandler
	AnalyzeHandler *handlers.AnalyzeHandler
	APIToken       string
	MaxBodyBytes   int64
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.Sentry)
	r.Use(middleware.LimitBody(maxBodyBytes, middleware.DefaultJSONBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerToken(cfg.APIToken))

		r.Route("/resumes", func(r chi.Router) {
			r.Get("/", cfg.ResumeHandler.List)
			r.Get("/{filename}/download", cfg.ResumeHandler.Download)
			r.Delete("/{filename}", cfg.ResumeHandler.Delete)
		})
		r.Post("/upload", cfg.ResumeHandler.Upload)
		r.Post("/analyze", cfg.AnalyzeHandler.Analyze)
	})

	return r
}
