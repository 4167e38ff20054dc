package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendSQL    = "sql"

	ImageStoreFilesystem = "filesystem"
	ImageStoreS3         = "s3"
)

// defaultModels applies when LLM_MODEL is unset.
var defaultModels = map[string]string{
	ProviderGemini: "gemini-1.5-flash",
	ProviderOpenAI: "gpt-4o-mini",
}

type Config struct {
	Server      HTTPServerConfig
	LLM         LLMConfig
	Render      RenderConfig
	Storage     StorageConfig
	Mongo       MongoConfig
	SQL         SQLConfig
	ObjectStore ObjectStoreConfig
	Cache       CacheConfig
	Pool        PoolConfig
	Log         LogConfig
}

type HTTPServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"120s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	MetricsAddr  string        `env:"METRICS_ADDR"`
}

type LLMConfig struct {
	Provider     string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	APIKey       string        `env:"LLM_API_KEY"`
	BaseURL      string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model        string        `env:"LLM_MODEL"`
	MaxTokens    int           `env:"LLM_MAX_TOKENS" envDefault:"4000"`
	Timeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
}

type RenderConfig struct {
	ImageDir string `env:"IMAGE_DIR" envDefault:"./generated_diagrams"`
}

type StorageConfig struct {
	Backend    string `env:"STORAGE_BACKEND" envDefault:"memory"`
	ImageStore string `env:"IMAGE_STORE" envDefault:"filesystem"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" envDefault:"archdiagram"`
}

type SQLConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/archdiagram.db"`
}

type ObjectStoreConfig struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET" envDefault:"diagrams"`
	Prefix    string `env:"S3_PREFIX" envDefault:"images"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`
}

type CacheConfig struct {
	// Size 0 disables the read cache.
	Size int `env:"CACHE_SIZE" envDefault:"1024"`
}

type PoolConfig struct {
	Size int `env:"POOL_SIZE" envDefault:"3"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.Model = strings.TrimSpace(cfg.LLM.Model)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.ImageStore = strings.ToLower(strings.TrimSpace(cfg.Storage.ImageStore))
	return cfg, nil
}

func (c *HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate checks the settings the selected backends depend on.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER=openai")
		}
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("LLM_BASE_URL is required when LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if c.Pool.Size <= 0 {
		return fmt.Errorf("POOL_SIZE must be positive")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("CACHE_SIZE must not be negative")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DB are required when STORAGE_BACKEND=mongo")
		}
	case BackendSQL:
		if c.SQL.Driver != "sqlite3" && c.SQL.Driver != "postgres" {
			return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.SQL.Driver)
		}
		if c.SQL.DSN == "" {
			return fmt.Errorf("DB_DSN is required when STORAGE_BACKEND=sql")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Storage.ImageStore {
	case ImageStoreFilesystem:
	case ImageStoreS3:
		if c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required when IMAGE_STORE=s3")
		}
		if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when IMAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q", c.Storage.ImageStore)
	}

	return nil
}
