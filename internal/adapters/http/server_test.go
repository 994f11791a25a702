package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/loopwise/loopwise/internal/adapters/http"
	"github.com/loopwise/loopwise/internal/adapters/memory"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

func newServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	srv := httptest.NewServer(httpapi.NewHandler(store, logging.NewNop()))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedSession(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, &domain.Session{
		ID:        id,
		Status:    domain.StatusRunning,
		StartedAt: time.Now().UTC(),
	}))
	ref, err := store.LogPrompt(ctx, id, "Write a plan.", "plan", 1)
	require.NoError(t, err)
	require.NoError(t, store.LogResponse(ctx, id, ref, "Done.", "test-model", 42))
}

func TestGetSession(t *testing.T) {
	srv, store := newServer(t)
	seedSession(t, store, "sess-1")

	resp, err := srv.Client().Get(srv.URL + "/sessions/sess-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var session domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, domain.StatusRunning, session.Status)
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestSessionLogs(t *testing.T) {
	srv, store := newServer(t)
	seedSession(t, store, "sess-1")

	resp, err := srv.Client().Get(srv.URL + "/sessions/sess-1/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var payload struct {
		Logs []ports.LogEntry `json:"logs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Logs, 1)
	assert.Equal(t, "Write a plan.", payload.Logs[0].Prompt)
	assert.Equal(t, "Done.", payload.Logs[0].Response)
}

func TestRecentLogsRejectsBadLimit(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/logs?limit=zero")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
