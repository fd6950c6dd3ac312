package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

// Store backends.
const (
	BackendPgvector = "pgvector"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// PgvectorDimensions is the vector width of the resume_chunks migration.
const PgvectorDimensions = 1536

type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	Debug   bool   `envconfig:"DEBUG" default:"false"`
	LogJSON bool   `envconfig:"LOG_JSON" default:"false"`

	StoreBackend   string `envconfig:"STORE_BACKEND" default:"pgvector"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	StorePath      string `envconfig:"STORE_PATH" default:"vector_db"`
	CollectionName string `envconfig:"COLLECTION_NAME" default:"resume_store"`
	ResumeDir      string `envconfig:"RESUME_DIR" default:"resumes"`

	LLMProvider         string `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-large"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	LLMModel            string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey        string `envconfig:"GEMINI_API_KEY"`
	GeminiModel         string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	// Structured model calls per second; zero disables limiting.
	LLMRateLimit float64 `envconfig:"LLM_RATE_LIMIT" default:"0"`
	LLMRateBurst int     `envconfig:"LLM_RATE_BURST" default:"1"`

	QueryCount int `envconfig:"QUERY_COUNT" default:"3"`
	RetrievalK int `envconfig:"RETRIEVAL_K" default:"4"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"resumatch-resumes"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Requests must carry "Authorization: Bearer <APIToken>" when set.
	APIToken       string        `envconfig:"API_TOKEN"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	WatchInterval  time.Duration `envconfig:"WATCH_INTERVAL" default:"0s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RESUMATCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store backend", BackendPgvector)
		}
		if c.EmbeddingDimensions != PgvectorDimensions {
			return fmt.Errorf("EMBEDDING_DIMENSIONS must be %d for the %s store backend", PgvectorDimensions, BackendPgvector)
		}
	case BackendSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for the %s store backend", BackendSQLite)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if !c.HasGemini() {
			return fmt.Errorf("GEMINI_API_KEY is required for the %s provider", ProviderGemini)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if !c.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}
	if c.QueryCount <= 0 {
		return fmt.Errorf("QUERY_COUNT must be positive")
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be positive")
	}
	return nil
}

// ApplyFlags overrides values with the command-line flags the user actually set.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *pflag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "port":
			c.Port = value
		case "debug":
			c.Debug = value == "true"
		case "resume-dir":
			c.ResumeDir = value
		case "store":
			c.StoreBackend = strings.ToLower(value)
		case "store-path":
			c.StorePath = value
		case "collection":
			c.CollectionName = value
		case "provider":
			c.LLMProvider = strings.ToLower(value)
		}
	})
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
