package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the domain configuration of the worker. Temporal, Redis and logging settings are read
// directly from the environment and are not part of it.
type Config struct {
	Portal  PortalConfig
	Storage StorageConfig
	Mongo   MongoConfig
	Worker  WorkerConfig
}

// PortalConfig describes the external portal API.
type PortalConfig struct {
	BaseURL        string
	APIKey         string
	AuthHeader     string
	Timeout        time.Duration
	MaxConcurrency int
	PageLimit      int
	Retry          RetryConfig
}

// RetryConfig mirrors the {maxAttempts, baseDelayMs, maxDelayMs} policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelayMs int
	MaxDelayMs  int
}

// StorageConfig selects and configures the durable object store.
type StorageConfig struct {
	Backend   string // "s3" or "memory"
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// MongoConfig locates the snapshot record collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// WorkerConfig holds local execution settings.
type WorkerConfig struct {
	TempDir         string
	InsertChunkSize int
	TaskQueue       string
}

// Load reads config.yaml (optional, from . or ./config) and the environment. Every key can be set
// through the environment by upper-casing it and replacing dots with underscores, for example
// PORTAL_BASE_URL or STORAGE_BUCKET.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a validated Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Portal.BaseURL = v.GetString("portal.base_url")
	cfg.Portal.APIKey = v.GetString("portal.api_key")
	cfg.Portal.AuthHeader = v.GetString("portal.auth_header")
	cfg.Portal.Timeout = v.GetDuration("portal.timeout")
	cfg.Portal.MaxConcurrency = v.GetInt("portal.max_concurrency")
	cfg.Portal.PageLimit = v.GetInt("portal.page_limit")
	cfg.Portal.Retry.MaxAttempts = v.GetInt("portal.retry.max_attempts")
	cfg.Portal.Retry.BaseDelayMs = v.GetInt("portal.retry.base_delay_ms")
	cfg.Portal.Retry.MaxDelayMs = v.GetInt("portal.retry.max_delay_ms")

	cfg.Storage.Backend = v.GetString("storage.backend")
	cfg.Storage.Bucket = v.GetString("storage.bucket")
	cfg.Storage.Region = v.GetString("storage.region")
	cfg.Storage.Endpoint = v.GetString("storage.endpoint")
	cfg.Storage.Prefix = v.GetString("storage.prefix")
	cfg.Storage.PathStyle = v.GetBool("storage.path_style")

	cfg.Mongo.URI = v.GetString("mongo.uri")
	cfg.Mongo.Database = v.GetString("mongo.database")
	cfg.Mongo.Collection = v.GetString("mongo.collection")

	cfg.Worker.TempDir = v.GetString("worker.temp_dir")
	cfg.Worker.InsertChunkSize = v.GetInt("worker.insert_chunk_size")
	cfg.Worker.TaskQueue = v.GetString("worker.task_queue")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "")
	v.SetDefault("portal.api_key", "")
	v.SetDefault("portal.auth_header", "x-api-key")
	v.SetDefault("portal.timeout", 30*time.Second)
	v.SetDefault("portal.max_concurrency", 4)
	v.SetDefault("portal.page_limit", 100)
	v.SetDefault("portal.retry.max_attempts", 5)
	v.SetDefault("portal.retry.base_delay_ms", 500)
	v.SetDefault("portal.retry.max_delay_ms", 30000)

	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.path_style", false)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "reputationx")
	v.SetDefault("mongo.collection", "snapshots")

	v.SetDefault("worker.temp_dir", "")
	v.SetDefault("worker.insert_chunk_size", 500)
	v.SetDefault("worker.task_queue", "snapshots")
}

func validate(cfg *Config) error {
	if cfg.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if cfg.Portal.APIKey == "" {
		return fmt.Errorf("portal.api_key is required")
	}
	if cfg.Portal.MaxConcurrency < 1 {
		return fmt.Errorf("portal.max_concurrency must be at least 1")
	}
	if cfg.Portal.Retry.MaxAttempts < 1 {
		return fmt.Errorf("portal.retry.max_attempts must be at least 1")
	}
	if cfg.Portal.Retry.BaseDelayMs < 0 || cfg.Portal.Retry.MaxDelayMs < cfg.Portal.Retry.BaseDelayMs {
		return fmt.Errorf("portal.retry delays are inconsistent (base %dms, max %dms)",
			cfg.Portal.Retry.BaseDelayMs, cfg.Portal.Retry.MaxDelayMs)
	}
	switch cfg.Storage.Backend {
	case "s3":
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if cfg.Worker.InsertChunkSize < 1 {
		return fmt.Errorf("worker.insert_chunk_size must be at least 1")
	}
	return nil
}
