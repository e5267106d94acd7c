package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/userhub/notifier/pkg/worker"
)

func newTestServer(t *testing.T) (*Server, *worker.MemoryResultStore) {
	t.Helper()
	store := worker.NewMemoryResultStore()
	return NewServer(zaptest.NewLogger(t), store, ":0", false), store
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestVersion(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
	assert.NotEmpty(t, body["goVersion"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestGetTask(t *testing.T) {
	s, store := newTestServer(t)

	require.NoError(t, store.Set(context.Background(), "t1", worker.Result{
		Status:  worker.StatusSucceeded,
		Message: "Verification email sent to ada@example.com",
		Attempt: 1,
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/t1", nil)
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ID     string        `json:"id"`
		Result worker.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "t1", body.ID)
	assert.Equal(t, worker.StatusSucceeded, body.Result.Status)
	assert.Equal(t, 1, body.Result.Attempt)
}

func TestGetTask_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/nope", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
