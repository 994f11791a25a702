package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusRunning.CanTransition(StatusPaused))
	assert.True(t, StatusPaused.CanTransition(StatusRunning))
	assert.True(t, StatusRunning.CanTransition(StatusCompleted))
	assert.True(t, StatusPaused.CanTransition(StatusFailed))

	assert.False(t, StatusCompleted.CanTransition(StatusRunning))
	assert.False(t, StatusFailed.CanTransition(StatusPaused))
	assert.False(t, StatusPaused.CanTransition(StatusPaused))
}

func TestApplyStatusStampsTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{ID: "s1", Status: StatusRunning, StartedAt: base}

	require.NoError(t, session.ApplyStatus(StatusPaused, base.Add(time.Minute)))
	require.NotNil(t, session.PausedAt)
	assert.Equal(t, base.Add(time.Minute), *session.PausedAt)

	require.NoError(t, session.ApplyStatus(StatusRunning, base.Add(2*time.Minute)))
	require.NotNil(t, session.ResumedAt)
	assert.Equal(t, base.Add(2*time.Minute), *session.ResumedAt)

	require.NoError(t, session.ApplyStatus(StatusCompleted, base.Add(3*time.Minute)))
	require.NotNil(t, session.CompletedAt)
	assert.Equal(t, base.Add(3*time.Minute), *session.CompletedAt)
}

func TestApplyStatusRejectsIllegalTransition(t *testing.T) {
	session := &Session{ID: "s1", Status: StatusCompleted}

	err := session.ApplyStatus(StatusRunning, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, session.Status)
	assert.Nil(t, session.ResumedAt)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusPaused.Terminal())
}
