package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return time.Millisecond }

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ExtractBatchJob {
	t.Helper()
	var got *jobs.ExtractBatchJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2), WithBackoff(noBackoff))
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.ExtractBatchJob).Saved = 3
		return nil
	}))
	defer q.Close()

	job := &jobs.ExtractBatchJob{UserID: "u1", SourceURI: "gs://inbox/a.jsonl"}
	require.NoError(t, q.PublishExtractBatch(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 3, got.Saved)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(noBackoff))
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))
	defer q.Close()

	job := &jobs.ExtractBatchJob{SourceURI: "gs://inbox/a.jsonl"}
	require.NoError(t, q.PublishExtractBatch(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithBackoff(noBackoff))
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("bucket missing")
	}))
	defer q.Close()

	job := &jobs.ExtractBatchJob{SourceURI: "gs://inbox/a.jsonl", MaxRetries: 1}
	require.NoError(t, q.PublishExtractBatch(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "bucket missing", got.Error)
}

func TestQueue_NoRetriesWhenNegative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("boom")
	}))
	defer q.Close()

	job := &jobs.ExtractBatchJob{MaxRetries: -1}
	require.NoError(t, q.PublishExtractBatch(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Zero(t, got.RetryCount)
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Close())

	err := q.PublishExtractBatch(context.Background(), &jobs.ExtractBatchJob{})
	assert.ErrorContains(t, err, "queue is closed")
	assert.Error(t, q.Start(context.Background(), nil))
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.ExtractBatchJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "u2", Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "u1", Status: jobs.JobStatusFailed},
		{JobID: "d", UserID: "u1", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, j))
	}

	got, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].JobID)
	assert.Equal(t, "d", got[2].JobID)

	got, err = s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListJobs(ctx, jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].JobID)

	got, err = s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{}))
	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x"), domain.ErrNotFound)

	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "a", Status: jobs.JobStatusRunning}))
	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestStore_UpdateJobStatusStampsCompletion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithStoreClock(func() time.Time { return now }))

	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "a", Status: jobs.JobStatusRunning}))
	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusCompleted, ""))

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now, *got.CompletedAt)
}

func TestStore_RetentionEvictsFinishedJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	s := NewStore(WithRetention(time.Hour), WithStoreClock(func() time.Time { return now }))

	old := now.Add(-2 * time.Hour)
	recent := now.Add(-time.Minute)
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "old", UserID: "u1", Status: jobs.JobStatusCompleted, CompletedAt: &old}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "stuck", UserID: "u1", Status: jobs.JobStatusRunning, CreatedAt: old}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "recent", UserID: "u1", Status: jobs.JobStatusFailed, CompletedAt: &recent}))

	_, err := s.GetJob(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_CapacityKeepsActiveJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	s := NewStore(WithMaxJobs(2), WithRetention(0), WithStoreClock(func() time.Time { return now }))

	first := now.Add(-3 * time.Minute)
	second := now.Add(-2 * time.Minute)
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "done-1", Status: jobs.JobStatusCompleted, CompletedAt: &first}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "done-2", Status: jobs.JobStatusCompleted, CompletedAt: &second}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "pending", Status: jobs.JobStatusPending}))

	_, err := s.GetJob(ctx, "done-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetJob(ctx, "done-2")
	assert.NoError(t, err)
	_, err = s.GetJob(ctx, "pending")
	assert.NoError(t, err)
}

func TestStore_Summarize(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for _, j := range []*jobs.ExtractBatchJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, Processed: 10, Saved: 7, Rejected: 3},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusFailed, Processed: 2, Saved: 1, Failed: 1},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted, Processed: 5, Saved: 5},
	} {
		require.NoError(t, s.SaveJob(ctx, j))
	}

	sum, err := s.Summarize(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Jobs)
	assert.Equal(t, 12, sum.Processed)
	assert.Equal(t, 8, sum.Saved)
	assert.Equal(t, 3, sum.Rejected)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.ByStatus[jobs.JobStatusFailed])

	all, err := s.Summarize(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Jobs)
	assert.Equal(t, 13, all.Saved)
}

func TestStore_SaveJobMovesUserIndex(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "a", UserID: "u1"}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractBatchJob{JobID: "a", UserID: "u2"}))

	got, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListJobs(ctx, jobs.JobFilter{UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
