// Package bigquery implements the storage collaborator on BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	transactionsTable    = "transactions"
	insightsTable        = "insights"
	recommendationsTable = "recommendations"
	profilesTable        = "user_profiles"
	modelOutputsTable    = "model_outputs"
	migrationsTable      = "schema_migrations"
)

// Store holds a shared BigQuery client scoped to one project and dataset.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// NewStore creates a client for project and returns a Store on dataset.
func NewStore(ctx context.Context, project, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, project, dataset), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *bigquery.Client, project, dataset string) *Store {
	return &Store{client: client, project: project, dataset: dataset, now: time.Now}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// table returns the backquoted, fully qualified table name.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, name)
}

// exec runs a DML or DDL statement and waits for it to finish.
func (s *Store) exec(ctx context.Context, sql string, params ...bigquery.QueryParameter) (*bigquery.JobStatus, error) {
	q := s.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job error: %w", err)
	}
	return status, nil
}

// affectedRows reads the DML row count from a finished job.
func affectedRows(status *bigquery.JobStatus) int64 {
	if status == nil || status.Statistics == nil {
		return 0
	}
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows
	}
	return 0
}
