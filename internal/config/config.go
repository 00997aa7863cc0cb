// Package config loads engine settings from planner.yaml plus
// PLANNER_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/planweave/planweave/internal/logging"
)

// Config is the full engine configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Planning  PlanningConfig  `mapstructure:"planning"`
	Log       logging.Config  `mapstructure:"log"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type QdrantConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type OpenAIConfig struct {
	// APIKey falls back to OPENAI_API_KEY. Empty means offline mode: the
	// deterministic hash embedder and stubbed generation.
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ChatModel      string `mapstructure:"chat_model"`
}

type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	Concurrency  int `mapstructure:"concurrency"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
	// Translate is always, never, or auto.
	Translate string `mapstructure:"translate"`
}

type PlanningConfig struct {
	DailyCap   int `mapstructure:"daily_cap"`
	NumDays    int `mapstructure:"num_days"`
	MaxRetries int `mapstructure:"max_retries"`
}

// Load reads planner.yaml from the working directory (or path, when
// non-empty) and applies environment overrides. A missing file is fine;
// defaults and environment cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("planner")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "planner.db")
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.translate", "auto")
	v.SetDefault("planning.daily_cap", 3)
	v.SetDefault("planning.num_days", 7)
	v.SetDefault("planning.max_retries", 3)
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Retrieval.Translate {
	case "always", "never", "auto":
	default:
		return fmt.Errorf("unknown translate policy %q", c.Retrieval.Translate)
	}
	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	return nil
}
