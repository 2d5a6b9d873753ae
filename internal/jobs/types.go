package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractBatch runs the extraction pipeline over a batch of raw messages.
	JobTypeExtractBatch JobType = "extract_batch"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published with MaxRetries == 0.
// A negative MaxRetries disables retries.
const DefaultMaxRetries = 3

// ExtractBatchJob extracts and stores every transaction found in one JSON Lines batch.
type ExtractBatchJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID owns the extracted transactions.
	UserID string `json:"user_id"`

	// SourceURI is a gs:// URI or a local path of the batch.
	SourceURI string `json:"source_uri"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Counts from the last attempt, filled in by the handler.
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractBatchJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExtractBatchJob) GetType() JobType {
	return JobTypeExtractBatch
}

// GetStatus implements the Job interface.
func (j *ExtractBatchJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtractBatch publishes a batch extraction job.
	PublishExtractBatch(ctx context.Context, job *ExtractBatchJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExtractBatchJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExtractBatchJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractBatchJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error

	// Summarize totals the jobs of userID, or of every user when userID is empty.
	Summarize(ctx context.Context, userID string) (Summary, error)
}

// Summary aggregates job statuses and extraction counts.
type Summary struct {
	Jobs     int               `json:"jobs"`
	ByStatus map[JobStatus]int `json:"by_status"`

	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
}

// Terminal reports whether a job in this status will not run again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus

	Limit  int
	Offset int
}
