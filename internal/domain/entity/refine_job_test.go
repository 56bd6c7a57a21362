package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestRefineJob_Lifecycle(t *testing.T) {
	job := NewRefineJob(1, []int64{10, 20, 30}, true)

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.TotalChapters)
	assert.Zero(t, job.Progress)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Complete()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestRefineJob_RecordOutcome(t *testing.T) {
	t.Run("progress advances with outcomes", func(t *testing.T) {
		job := NewRefineJob(1, []int64{1, 2, 3, 4}, false)

		job.RecordOutcome(true)
		assert.Equal(t, 25, job.Progress)
		assert.Equal(t, 1, job.SucceededCount)

		job.RecordOutcome(false)
		assert.Equal(t, 50, job.Progress)
		assert.Equal(t, 1, job.FailedCount)

		job.RecordOutcome(true)
		job.RecordOutcome(true)
		assert.Equal(t, 100, job.Progress)
	})

	t.Run("progress never decreases", func(t *testing.T) {
		job := NewRefineJob(1, []int64{1, 2, 3}, false)
		job.Progress = 90

		job.RecordOutcome(true)
		assert.Equal(t, 90, job.Progress)
	})
}

func TestRefineJob_Fail(t *testing.T) {
	job := NewRefineJob(1, []int64{1}, false)
	job.Fail("queue unavailable")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "queue unavailable", job.ErrorMessage)
	require.NotNil(t, job.CompletedAt)
}

func TestRefineJob_Cancel(t *testing.T) {
	job := NewRefineJob(1, []int64{1, 2}, false)
	job.Start()
	job.RecordOutcome(true)
	job.Cancel()

	assert.Equal(t, JobStatusCancelled, job.Status)
	// 取消保留已完成的进度
	assert.Equal(t, 1, job.SucceededCount)
	assert.Equal(t, 50, job.Progress)
}
