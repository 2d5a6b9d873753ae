package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/jobs"
)

const (
	// DefaultRetention is how long finished jobs stay listed.
	DefaultRetention = 24 * time.Hour
	// DefaultMaxJobs caps how many jobs are held at once.
	DefaultMaxJobs = 1000
)

// Store keeps batch jobs in memory, indexed by user. Finished jobs are dropped once
// they are older than the retention period, or oldest first when the store is
// over capacity. Running and pending jobs are never evicted. Data is lost on
// restart.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*jobs.ExtractBatchJob
	byUser map[string]map[string]struct{}

	retention time.Duration
	maxJobs   int
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention keeps finished jobs for d. Zero keeps them until capacity evicts them.
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) { s.retention = d }
}

// WithMaxJobs caps the number of stored jobs. Zero disables the cap.
func WithMaxJobs(n int) StoreOption {
	return func(s *Store) { s.maxJobs = n }
}

// WithStoreClock overrides the clock used for retention.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an in-memory job store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:      make(map[string]*jobs.ExtractBatchJob),
		byUser:    make(map[string]map[string]struct{}),
		retention: DefaultRetention,
		maxJobs:   DefaultMaxJobs,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveJob stores a copy of job and evicts expired finished jobs.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ExtractBatchJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[job.JobID]; ok && prev.UserID != job.UserID {
		s.unindex(prev)
	}
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	s.index(&jobCopy)

	s.evict()
	return nil
}

// GetJob returns a copy of the job, or an error wrapping domain.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExtractBatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: job %s: %w", jobID, domain.ErrNotFound)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns matching jobs ordered by creation time, then id.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExtractBatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ExtractBatchJob
	s.each(filter.UserID, func(job *jobs.ExtractBatchJob) {
		if filter.Status != "" && job.Status != filter.Status {
			return
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	})

	slices.SortFunc(result, func(a, b *jobs.ExtractBatchJob) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.JobID, b.JobID)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ExtractBatchJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus sets the status of a stored job. A non-empty errorMsg replaces
// the recorded error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: job %s: %w", jobID, domain.ErrNotFound)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if status.Terminal() && job.CompletedAt == nil {
		now := s.now()
		job.CompletedAt = &now
	}
	return nil
}

// Summarize totals statuses and extraction counts for userID, or for every user
// when userID is empty.
func (s *Store) Summarize(ctx context.Context, userID string) (jobs.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := jobs.Summary{ByStatus: make(map[jobs.JobStatus]int)}
	s.each(userID, func(job *jobs.ExtractBatchJob) {
		sum.Jobs++
		sum.ByStatus[job.Status]++
		sum.Processed += job.Processed
		sum.Saved += job.Saved
		sum.Rejected += job.Rejected
		sum.Failed += job.Failed
	})
	return sum, nil
}

// each visits the jobs of userID, or every job when userID is empty. The caller
// holds the lock.
func (s *Store) each(userID string, fn func(*jobs.ExtractBatchJob)) {
	if userID == "" {
		for _, job := range s.jobs {
			fn(job)
		}
		return
	}
	for id := range s.byUser[userID] {
		fn(s.jobs[id])
	}
}

func (s *Store) index(job *jobs.ExtractBatchJob) {
	ids, ok := s.byUser[job.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[job.UserID] = ids
	}
	ids[job.JobID] = struct{}{}
}

func (s *Store) unindex(job *jobs.ExtractBatchJob) {
	ids := s.byUser[job.UserID]
	delete(ids, job.JobID)
	if len(ids) == 0 {
		delete(s.byUser, job.UserID)
	}
}

func (s *Store) remove(job *jobs.ExtractBatchJob) {
	s.unindex(job)
	delete(s.jobs, job.JobID)
}

// evict drops finished jobs past retention, then the oldest finished jobs while
// the store is over capacity. The caller holds the write lock.
func (s *Store) evict() {
	var finished []*jobs.ExtractBatchJob
	cutoff := s.now().Add(-s.retention)
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if s.retention > 0 && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			s.remove(job)
			continue
		}
		finished = append(finished, job)
	}

	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}
	slices.SortFunc(finished, func(a, b *jobs.ExtractBatchJob) int {
		return finishedAt(a).Compare(finishedAt(b))
	})
	for _, job := range finished {
		if len(s.jobs) <= s.maxJobs {
			return
		}
		s.remove(job)
	}
}

func finishedAt(job *jobs.ExtractBatchJob) time.Time {
	if job.CompletedAt != nil {
		return *job.CompletedAt
	}
	return job.CreatedAt
}

var _ jobs.JobStore = (*Store)(nil)
