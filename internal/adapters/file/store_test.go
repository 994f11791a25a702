package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise/internal/adapters/file"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

func TestStoreContract(t *testing.T) {
	ports.RunRecorderContract(t, file.New(t.TempDir()))
}

func TestStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sessions")
	store := file.New(dir)

	session := &domain.Session{
		ID:         "sess-1",
		Status:     domain.StatusRunning,
		ConfigPath: "steps.yaml",
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateSession(context.Background(), session))

	info, err := os.Stat(filepath.Join(dir, "sess-1.json"))
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := file.New(dir)
	session := &domain.Session{
		ID:         "sess-1",
		Status:     domain.StatusRunning,
		ConfigPath: "steps.yaml",
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, first.CreateSession(ctx, session))
	_, err := first.LogPrompt(ctx, "sess-1", "Write a plan.", "plan", 1)
	require.NoError(t, err)

	second := file.New(dir)
	got, err := second.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", got.ID)

	logs, err := second.SessionLogs(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "Write a plan.", logs[0].Prompt)
}
