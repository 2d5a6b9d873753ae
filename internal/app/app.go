// Package app builds the storage, model and pipeline collaborators described by
// a config.Config. Both command-line shells start from here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/finsense/internal/advisor"
	"github.com/dvloznov/finsense/internal/config"
	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	infraBQ "github.com/dvloznov/finsense/internal/infra/bigquery"
	"github.com/dvloznov/finsense/internal/infra/sqlite"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/dvloznov/finsense/internal/metrics"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// Backend is the storage surface shared by the sqlite and BigQuery stores.
type Backend interface {
	pipeline.TransactionStore
	advisor.Store
	llm.OutputSink
	DeleteTransaction(ctx context.Context, userID, id string) error
	SaveProfile(ctx context.Context, p domain.Profile) error
}

var (
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*infraBQ.Store)(nil)
)

// ErrNoModel is returned when a model is required but llm.provider is "none".
var ErrNoModel = errors.New("no model configured")

// App holds the collaborators built from configuration for one process.
type App struct {
	Config  config.Config
	Store   Backend
	Metrics *metrics.Metrics

	// Generator is nil when llm.provider is "none" or the model was not requested.
	Generator llm.Generator

	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	withModel bool
	registry  prometheus.Registerer
}

// WithModel opens the configured model as well as storage.
func WithModel() Option {
	return func(o *options) { o.withModel = true }
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New opens storage and, with WithModel, the configured model. Every model call
// is recorded in storage.
func New(ctx context.Context, c config.Config, opts ...Option) (*App, error) {
	o := options{registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: c, Metrics: metrics.New(o.registry)}

	store, closer, err := OpenStore(ctx, c.Storage)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closer)

	if o.withModel {
		gen, err := OpenGenerator(ctx, c.LLM)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if gen != nil {
			a.Generator = llm.NewRecorder(gen, a.Store, c.LLM.Model)
		}
	}
	return a, nil
}

// Close releases storage in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the configured storage driver. The returned func closes it.
func OpenStore(ctx context.Context, c config.StorageConfig) (Backend, func() error, error) {
	switch c.Driver {
	case config.DriverBigQuery:
		store, err := infraBQ.NewStore(ctx, c.BigQueryProject, c.BigQueryDataset)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		return store, store.Close, nil
	case config.DriverSQLite:
		db, err := OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("OpenStore: unknown driver %q", c.Driver)
	}
}

// OpenSQLite creates the parent directory if needed and applies migrations.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("OpenSQLite: creating data directory: %w", err)
	}
	db, err := sqlite.OpenAndMigrate(path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: %w", err)
	}
	return db, nil
}

// OpenGenerator returns the configured generator, rate limited when
// llm.requests_per_minute is positive. It returns nil for the "none" provider.
func OpenGenerator(ctx context.Context, c config.LLMConfig) (llm.Generator, error) {
	var (
		gen llm.Generator
		err error
	)
	switch c.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOllama:
		gen, err = llm.NewOllama(c.Model, c.BaseURL)
	case config.ProviderGemini:
		key := c.ResolveAPIKey()
		if key == "" {
			return nil, fmt.Errorf("OpenGenerator: no API key for %s: set llm.api_key or %s", c.Provider, c.APIKeyEnv)
		}
		gen, err = llm.NewGemini(ctx, key, c.Model)
	default:
		return nil, fmt.Errorf("OpenGenerator: unknown provider %q", c.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("OpenGenerator: %w", err)
	}

	if c.RequestsPerMinute > 0 {
		gen = llm.NewRateLimited(gen, c.RequestsPerMinute, c.Burst)
	}
	return gen, nil
}

// Orchestrator builds the extraction orchestrator. The probabilistic path is
// enabled only when a model is open.
func (a *App) Orchestrator() *pipeline.Orchestrator {
	opts := []pipeline.Option{
		pipeline.WithFinancialGate(a.Config.Pipeline.RequireFinancialKeywords),
		pipeline.WithMetrics(a.Metrics),
	}
	if a.Generator != nil {
		opts = append(opts, pipeline.WithFallback(pipeline.NewProbabilisticExtractor(a.Generator)))
	}
	return pipeline.NewOrchestrator(opts...)
}

// Advisor builds the insight and recommendation service.
func (a *App) Advisor() (*advisor.Service, error) {
	if a.Generator == nil {
		return nil, fmt.Errorf("Advisor: %w", ErrNoModel)
	}
	p := a.Config.Pipeline
	return advisor.NewService(a.Store, a.Generator,
		advisor.WithDecoder(decode.NewDecoder(decode.WithMetrics(a.Metrics))),
		advisor.WithLimits(p.InsightLimit, p.RecommendationLimit),
		advisor.WithWindow(p.TransactionWindow),
	), nil
}
