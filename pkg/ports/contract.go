package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise/pkg/domain"
)

// RunRecorderContract verifies that a Recorder implementation adheres to the
// interface contract. Adapter test suites call it against a fresh store.
func RunRecorderContract(t *testing.T, recorder Recorder) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("CreateAndGetSession", func(t *testing.T) {
		session := &domain.Session{
			ID:         sessionID,
			Status:     domain.StatusRunning,
			ConfigPath: "steps.yaml",
			StartedAt:  time.Now().UTC(),
		}
		require.NoError(t, recorder.CreateSession(ctx, session))

		loaded, err := recorder.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		assert.Equal(t, "steps.yaml", loaded.ConfigPath)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := recorder.GetSession(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		require.NoError(t, recorder.UpdateSessionStatus(ctx, sessionID, domain.StatusPaused))

		loaded, err := recorder.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaused, loaded.Status)
		require.NotNil(t, loaded.PausedAt)

		require.NoError(t, recorder.UpdateSessionStatus(ctx, sessionID, domain.StatusRunning))

		loaded, err = recorder.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		require.NotNil(t, loaded.ResumedAt)
		assert.False(t, loaded.ResumedAt.Before(*loaded.PausedAt))
	})

	t.Run("ActiveSession", func(t *testing.T) {
		active, err := recorder.ActiveSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, sessionID, active.ID)
	})

	t.Run("PromptResponseJournal", func(t *testing.T) {
		ref, err := recorder.LogPrompt(ctx, sessionID, "Write a plan.", "plan", 1)
		require.NoError(t, err)
		require.NoError(t, recorder.LogResponse(ctx, sessionID, ref, "Done.", "test-model", 42))

		logs, err := recorder.SessionLogs(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "Write a plan.", logs[0].Prompt)
		assert.Equal(t, "Done.", logs[0].Response)
		assert.Equal(t, "test-model", logs[0].Model)
		assert.Equal(t, 42, logs[0].Tokens)
		assert.Equal(t, "plan", logs[0].StepID)
		assert.False(t, logs[0].ResponseAt.IsZero())
	})

	t.Run("RecentLogs", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := recorder.LogPrompt(ctx, sessionID, "extra", "step", i+2)
			require.NoError(t, err)
		}

		logs, err := recorder.RecentLogs(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})

	t.Run("ErrorsAndActions", func(t *testing.T) {
		require.NoError(t, recorder.LogError(ctx, sessionID, "api_error", "boom"))
		require.NoError(t, recorder.LogAction(ctx, sessionID, "navigate",
			map[string]any{"url": "https://example.com"}, true))
	})

	t.Run("ScoresAndIterations", func(t *testing.T) {
		require.NoError(t, recorder.SaveQualityScore(ctx, sessionID, domain.QualityScore{
			Iteration: 1,
			Overall:   72,
			Criteria:  map[string]float64{"style": 72},
		}))
		require.NoError(t, recorder.SaveIteration(ctx, sessionID, domain.IterationRecord{
			Iteration:     1,
			ScoreAfter:    72,
			Suggestions:   2,
			FilesModified: []string{"index.html"},
		}))
	})

	t.Run("ImprovementLifecycle", func(t *testing.T) {
		id, err := recorder.CreateImprovement(ctx, &domain.Improvement{
			SessionID:   sessionID,
			Type:        "config_update",
			Description: "tighten prompt",
			Changes:     map[string]any{"prompt_id": "plan", "field": "prompt", "new_value": "x"},
		})
		require.NoError(t, err)
		require.NotZero(t, id)

		pending, err := recorder.PendingImprovements(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, pending)

		require.NoError(t, recorder.SetImprovementStatus(ctx, id, domain.ImprovementApproved))

		imp, err := recorder.GetImprovement(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ImprovementApproved, imp.Status)

		pending, err = recorder.PendingImprovements(ctx)
		require.NoError(t, err)
		for _, p := range pending {
			assert.NotEqual(t, id, p.ID)
		}
	})

	t.Run("TerminalStatusIsFinal", func(t *testing.T) {
		doneID := "done-" + sessionID
		require.NoError(t, recorder.CreateSession(ctx, &domain.Session{
			ID:        doneID,
			Status:    domain.StatusRunning,
			StartedAt: time.Now().UTC(),
		}))
		require.NoError(t, recorder.UpdateSessionStatus(ctx, doneID, domain.StatusCompleted))

		loaded, err := recorder.GetSession(ctx, doneID)
		require.NoError(t, err)
		require.NotNil(t, loaded.CompletedAt)

		err = recorder.UpdateSessionStatus(ctx, doneID, domain.StatusRunning)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		loaded, err = recorder.GetSession(ctx, doneID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)

		require.NoError(t, recorder.DeleteSession(ctx, doneID))
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		ids, err := recorder.ListSessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, sessionID)

		require.NoError(t, recorder.DeleteSession(ctx, sessionID))

		_, err = recorder.GetSession(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
