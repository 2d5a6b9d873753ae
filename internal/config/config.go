// Package config loads finsense settings from defaults, an optional TOML file
// and FINSENSE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Notion   NotionConfig   `mapstructure:"notion"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LLMConfig selects the text-generation adapter.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"` // gemini, ollama or none
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"api_key"`
	APIKeyEnv         string  `mapstructure:"api_key_env"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects the storage collaborator.
type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite or bigquery
	SQLitePath      string `mapstructure:"sqlite_path"`
	BigQueryProject string `mapstructure:"bigquery_project"`
	BigQueryDataset string `mapstructure:"bigquery_dataset"`
}

type PipelineConfig struct {
	RequireFinancialKeywords bool `mapstructure:"require_financial_keywords"`
	InsightLimit             int  `mapstructure:"insight_limit"`
	RecommendationLimit      int  `mapstructure:"recommendation_limit"`
	TransactionWindow        int  `mapstructure:"transaction_window"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueSize   int `mapstructure:"queue_size"`
	// JobRetention is how long finished jobs stay listed; 0 keeps them.
	JobRetention time.Duration `mapstructure:"job_retention"`
	MaxJobs      int           `mapstructure:"max_jobs"`
}

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderNone   = "none"

	DriverSQLite   = "sqlite"
	DriverBigQuery = "bigquery"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.burst", 1)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "finsense", "finsense.db"))
	v.SetDefault("storage.bigquery_project", "")
	v.SetDefault("storage.bigquery_dataset", "finance")

	v.SetDefault("pipeline.require_financial_keywords", false)
	v.SetDefault("pipeline.insight_limit", 5)
	v.SetDefault("pipeline.recommendation_limit", 3)
	v.SetDefault("pipeline.transaction_window", 200)

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")

	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.job_retention", 24*time.Hour)
	v.SetDefault("worker.max_jobs", 1000)
}

// Load reads configuration from file and env. Env var overrides use prefix FINSENSE_,
// e.g. FINSENSE_STORAGE_DRIVER=bigquery.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINSENSE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "finsense"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINSENSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit path must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	return c, nil
}

// Validate rejects unknown drivers and providers and non-positive limits.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOllama, ProviderNone:
	default:
		return fmt.Errorf("Validate: unknown llm.provider %q", c.LLM.Provider)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("Validate: storage.sqlite_path is required for the sqlite driver")
		}
	case DriverBigQuery:
		if c.Storage.BigQueryProject == "" || c.Storage.BigQueryDataset == "" {
			return fmt.Errorf("Validate: storage.bigquery_project and storage.bigquery_dataset are required for the bigquery driver")
		}
	default:
		return fmt.Errorf("Validate: unknown storage.driver %q", c.Storage.Driver)
	}

	limits := []struct {
		name  string
		value int
	}{
		{"pipeline.insight_limit", c.Pipeline.InsightLimit},
		{"pipeline.recommendation_limit", c.Pipeline.RecommendationLimit},
		{"pipeline.transaction_window", c.Pipeline.TransactionWindow},
		{"worker.concurrency", c.Worker.Concurrency},
		{"worker.queue_size", c.Worker.QueueSize},
	}
	for _, l := range limits {
		if l.value <= 0 {
			return fmt.Errorf("Validate: %s must be positive, got %d", l.name, l.value)
		}
	}
	if c.Worker.JobRetention < 0 || c.Worker.MaxJobs < 0 {
		return fmt.Errorf("Validate: worker.job_retention and worker.max_jobs must not be negative")
	}
	return nil
}

// ResolveAPIKey returns llm.api_key, or the value of the variable named by
// llm.api_key_env when the key is not set directly.
func (c LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}
