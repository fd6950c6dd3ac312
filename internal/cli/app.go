package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/config"
	"github.com/cloo-solutions/resumatch/internal/database"
	"github.com/cloo-solutions/resumatch/internal/gemini"
	"github.com/cloo-solutions/resumatch/internal/loader"
	"github.com/cloo-solutions/resumatch/internal/openai"
	"github.com/cloo-solutions/resumatch/internal/repository"
	"github.com/cloo-solutions/resumatch/internal/service"
	"github.com/cloo-solutions/resumatch/internal/storage"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/memory"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/sqlite"
)

// App holds the wired pipelines shared by every command.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Directory  *storage.Directory
	Store      *vectorstore.Gateway
	Ingestion  *service.IngestionService
	Controller *service.Controller
	// Archive is nil unless S3 is configured.
	Archive *storage.S3Client

	closers []func()
}

// Components are the external collaborators an App is assembled from.
type Components struct {
	Directory *storage.Directory
	Embedder  vectorstore.Embedder
	Index     vectorstore.Index
	Model     service.StructuredModel
	Reader    loader.PageReader
}

// Builder constructs an App from configuration. Commands receive one so tests can swap
// the external services for local stand-ins.
type Builder func(ctx context.Context, cfg *config.Config, log *zap.Logger, opts BuildOptions) (*App, error)

type BuildOptions struct {
	SkipMigrations bool
}

// NewApp assembles the ingestion pipeline and the application controller.
func NewApp(cfg *config.Config, log *zap.Logger, c Components) *App {
	store := vectorstore.NewGateway(c.Embedder, c.Index, vectorstore.WithLogger(log))
	chunker := service.NewSemanticChunker(c.Model, log)

	return &App{
		Config:    cfg,
		Logger:    log,
		Directory: c.Directory,
		Store:     store,
		Ingestion: service.NewIngestionService(loader.New(c.Reader, log), chunker, store, c.Directory, log),
		Controller: service.NewController(
			service.NewQueryExpander(c.Model, cfg.QueryCount, log),
			service.NewRetriever(store, cfg.RetrievalK, log),
			service.NewFitAnalyzer(c.Model, log),
			log,
		),
	}
}

// Build wires the configured store backend, language model and archive.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts BuildOptions) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dir, err := storage.NewDirectory(cfg.ResumeDir)
	if err != nil {
		return nil, err
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	index, closeIndex, err := openIndex(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeIndex)

	model, err := newModel(ctx, cfg, log)
	if err != nil {
		closeAll()
		return nil, err
	}
	model = service.NewRateLimitedModel(model, cfg.LLMRateLimit, cfg.LLMRateBurst)

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	app := NewApp(cfg, log, Components{
		Directory: dir,
		Embedder:  embedder,
		Index:     index,
		Model:     model,
		Reader:    loader.PDFReader{},
	})
	app.closers = closers

	if cfg.HasS3() {
		archive, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Info("S3 archive ready", zap.String("bucket", cfg.S3Bucket))
		app.Archive = archive
	}

	log.Info("pipeline ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("collection", cfg.CollectionName),
		zap.String("provider", cfg.LLMProvider),
		zap.String("resume_dir", dir.Root()),
	)
	return app, nil
}

// Close releases the store connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openIndex(ctx context.Context, cfg *config.Config, log *zap.Logger, opts BuildOptions) (vectorstore.Index, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPgvector:
		if !opts.SkipMigrations {
			if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("connected to database")
		return repository.NewChunkRepository(pool, cfg.CollectionName), pool.Close, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.StorePath, cfg.CollectionName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("opened sqlite store", zap.String("path", store.Path()))
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("failed to close sqlite store", zap.Error(err))
			}
		}, nil

	case config.BackendMemory:
		log.Warn("using in-memory store, chunks are lost on exit")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newModel(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.StructuredModel, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		model, err := gemini.NewModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return model, nil
	case config.ProviderOpenAI:
		return openai.NewChatModel(openai.NewAPIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), cfg.LLMModel, log), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
