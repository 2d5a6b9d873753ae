package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FINSENSE_CONFIG", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, ProviderGemini, c.LLM.Provider)
	assert.Equal(t, DriverSQLite, c.Storage.Driver)
	assert.NotEmpty(t, c.Storage.SQLitePath)
	assert.Equal(t, 5, c.Pipeline.InsightLimit)
	assert.Equal(t, 3, c.Pipeline.RecommendationLimit)
	assert.Equal(t, 5, c.Worker.Concurrency)
	assert.Equal(t, 24*time.Hour, c.Worker.JobRetention)
	assert.Equal(t, 1000, c.Worker.MaxJobs)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "ollama"
model = "llama3.2"
base_url = "http://localhost:11434"

[storage]
driver = "bigquery"
bigquery_project = "my-project"
bigquery_dataset = "finance"

[pipeline]
require_financial_keywords = true
insight_limit = 7
`)
	t.Setenv("FINSENSE_CONFIG", path)
	t.Setenv("FINSENSE_WORKER_CONCURRENCY", "2")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, c.LLM.Provider)
	assert.Equal(t, "llama3.2", c.LLM.Model)
	assert.Equal(t, "http://localhost:11434", c.LLM.BaseURL)
	assert.Equal(t, DriverBigQuery, c.Storage.Driver)
	assert.Equal(t, "my-project", c.Storage.BigQueryProject)
	assert.True(t, c.Pipeline.RequireFinancialKeywords)
	assert.Equal(t, 7, c.Pipeline.InsightLimit)
	assert.Equal(t, 2, c.Worker.Concurrency)
	assert.NoError(t, c.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("FINSENSE_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LLM:      LLMConfig{Provider: ProviderNone},
			Storage:  StorageConfig{Driver: DriverSQLite, SQLitePath: "/tmp/f.db"},
			Pipeline: PipelineConfig{InsightLimit: 5, RecommendationLimit: 3, TransactionWindow: 100},
			Worker:   WorkerConfig{Concurrency: 1, QueueSize: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "openai" }, wantErr: "llm.provider"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.driver"},
		{name: "bigquery without project", mutate: func(c *Config) { c.Storage.Driver = DriverBigQuery }, wantErr: "bigquery_project"},
		{name: "zero insight limit", mutate: func(c *Config) { c.Pipeline.InsightLimit = 0 }, wantErr: "insight_limit"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Worker.Concurrency = -1 }, wantErr: "worker.concurrency"},
		{name: "negative retention", mutate: func(c *Config) { c.Worker.JobRetention = -time.Minute }, wantErr: "worker.job_retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("TEST_FINSENSE_KEY", "from-env")

	assert.Equal(t, "direct", LLMConfig{APIKey: "direct", APIKeyEnv: "TEST_FINSENSE_KEY"}.ResolveAPIKey())
	assert.Equal(t, "from-env", LLMConfig{APIKeyEnv: "TEST_FINSENSE_KEY"}.ResolveAPIKey())
	assert.Empty(t, LLMConfig{}.ResolveAPIKey())
}
