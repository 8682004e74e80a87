package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-sync/internal/jobs"
)

func waitForStatus(t *testing.T, s *Store, id string, want jobs.JobStatus) *jobs.ProcessBudgetJob {
	t.Helper()
	var got *jobs.ProcessBudgetJob
	require.Eventually(t, func() bool {
		j, err := s.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func newTestQueue(t *testing.T, handler jobs.JobHandler) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(8, 2, store)
	q.Backoff = func(int) time.Duration { return time.Millisecond }

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Start(ctx, handler))
	t.Cleanup(func() {
		_ = q.Close()
		cancel()
	})
	return q, store
}

func TestQueue_CompletesJob(t *testing.T) {
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.ProcessBudgetJob) error {
		job.BudgetID = "b-" + job.SpreadsheetID
		return nil
	})

	job := &jobs.ProcessBudgetJob{SpreadsheetID: "S1", SheetName: "Estimate"}
	require.NoError(t, q.PublishProcessBudget(context.Background(), job))
	require.NotEmpty(t, job.JobID)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "b-S1", got.BudgetID)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, jobs.DefaultMaxRetries, got.MaxRetries)
}

func TestQueue_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.ProcessBudgetJob) error {
		if calls.Add(1) < 3 {
			return errors.New("sheets api: 503")
		}
		return nil
	})

	job := &jobs.ProcessBudgetJob{JobID: "j1", SpreadsheetID: "S1", SheetName: "Estimate"}
	require.NoError(t, q.PublishProcessBudget(context.Background(), job))

	got := waitForStatus(t, store, "j1", jobs.JobStatusCompleted)
	assert.Equal(t, 2, got.RetryCount)
	assert.Empty(t, got.Error)
	assert.EqualValues(t, 3, calls.Load())
}

func TestQueue_PermanentErrorFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.ProcessBudgetJob) error {
		calls.Add(1)
		return jobs.Permanent(errors.New("sheet has no readable cells"))
	})

	require.NoError(t, q.PublishProcessBudget(context.Background(), &jobs.ProcessBudgetJob{JobID: "j1"}))

	got := waitForStatus(t, store, "j1", jobs.JobStatusFailed)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, "sheet has no readable cells", got.Error)
	assert.EqualValues(t, 1, calls.Load())
}

func TestQueue_GivesUpAfterMaxRetries(t *testing.T) {
	q, store := newTestQueue(t, func(ctx context.Context, job *jobs.ProcessBudgetJob) error {
		return errors.New("still down")
	})

	require.NoError(t, q.PublishProcessBudget(context.Background(), &jobs.ProcessBudgetJob{JobID: "j1", MaxRetries: 1}))

	got := waitForStatus(t, store, "j1", jobs.JobStatusFailed)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "still down", got.Error)
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())

	assert.Error(t, q.PublishProcessBudget(context.Background(), &jobs.ProcessBudgetJob{}))
	assert.Error(t, q.Start(context.Background(), func(context.Context, *jobs.ProcessBudgetJob) error { return nil }))
	assert.NoError(t, q.Stop(context.Background()), "stopping twice is a no-op")
}
