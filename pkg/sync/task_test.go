package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskIsPendingWithFreshID(t *testing.T) {
	a := NewTask(SyncPE)
	b := NewTask(SyncPE)
	assert.Equal(t, Pending, a.Status)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTaskLifecycle(t *testing.T) {
	task := NewTask(SyncBatchPE)
	task.Start()
	assert.Equal(t, Running, task.Status)
	assert.False(t, task.StartedAt.IsZero())

	task.UpdateProgress(0, 10)
	for i := 0; i < 7; i++ {
		task.RecordSuccess()
	}
	task.RecordFailure(errors.New("boom"))

	assert.Equal(t, 7, task.SuccessCount)
	assert.Equal(t, 1, task.FailureCount)
	assert.Equal(t, 8, task.ProcessedCount)
	assert.Equal(t, "boom", task.ErrorMessage)

	task.Complete()
	assert.Equal(t, Completed, task.Status)
	assert.EqualValues(t, 100, task.Progress)
}

func TestTaskCanRetry(t *testing.T) {
	task := NewTask(SyncPE)
	task.Fail(errors.New("down"))
	require.True(t, task.CanRetry(3))

	task.RetryCount = 3
	assert.False(t, task.CanRetry(3))

	task.Retry()
	assert.Equal(t, Pending, task.Status)
	assert.Equal(t, "", task.ErrorMessage)
}

func TestTaskPauseResume(t *testing.T) {
	task := NewTask(SyncPE)
	task.Start()
	task.Pause()
	assert.Equal(t, Paused, task.Status)
	task.Resume()
	assert.Equal(t, Running, task.Status)
}

func TestStatisticsMerge(t *testing.T) {
	var total Statistics
	total.Merge(Statistics{TotalTasks: 2, SuccessfulTasks: 2, TotalRecords: 20, SuccessfulRecords: 18, FailedRecords: 2})
	total.Merge(Statistics{TotalTasks: 1, FailedTasks: 1, TotalRecords: 10, SuccessfulRecords: 5, FailedRecords: 5})

	assert.Equal(t, 3, total.TotalTasks)
	assert.Equal(t, 2, total.SuccessfulTasks)
	assert.Equal(t, 1, total.FailedTasks)
	assert.Equal(t, 30, total.TotalRecords)
	assert.InDelta(t, 23.0/30.0*100, total.SuccessRate(), 0.001)
}

func TestStatisticsSuccessRateEmpty(t *testing.T) {
	var s Statistics
	assert.Equal(t, 0.0, s.SuccessRate())
}
