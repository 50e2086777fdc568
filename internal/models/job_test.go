package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, JobPending.CanTransitionTo(JobRunning))
	assert.False(t, JobPending.CanTransitionTo(JobComplete))
	assert.False(t, JobPending.CanTransitionTo(JobFailed))

	assert.True(t, JobRunning.CanTransitionTo(JobComplete))
	assert.True(t, JobRunning.CanTransitionTo(JobFailed))
	assert.False(t, JobRunning.CanTransitionTo(JobPending))

	assert.False(t, JobComplete.CanTransitionTo(JobRunning))
	assert.False(t, JobFailed.CanTransitionTo(JobRunning))
}

func TestJobStatus_Deletable(t *testing.T) {
	assert.True(t, JobPending.Deletable())
	assert.True(t, JobFailed.Deletable())
	assert.False(t, JobRunning.Deletable())
	assert.False(t, JobComplete.Deletable())
}
