package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stacktester/internal/logging"
	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/registry"
)

type failingDB struct {
	*memory.Database
}

func (failingDB) Ping(context.Context) error {
	return errors.New("connection refused")
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	m.SessionStarted()
	m.StoreError(1020)

	h := NewHandler(&Server{Gatherer: reg})
	w := get(t, h, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "stacktester_sessions_started_total 1")
	assert.Contains(t, body, `stacktester_store_errors_total{code="1020"} 1`)
}

func TestHealth(t *testing.T) {
	h := NewHandler(&Server{Database: memory.NewDatabase(), Gatherer: prometheus.NewRegistry()})
	w := get(t, h, "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	var resp health
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, health{Status: "ok", Store: "memory"}, resp)
}

func TestHealth_StoreDown(t *testing.T) {
	h := NewHandler(&Server{Database: failingDB{memory.NewDatabase()}, Gatherer: prometheus.NewRegistry()})
	w := get(t, h, "/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "connection refused"))
}

func TestTransactions(t *testing.T) {
	reg := registry.NewRegistry()
	db := memory.NewDatabase()
	for _, name := range []string{"b", "a"} {
		tr, err := db.CreateTransaction()
		require.NoError(t, err)
		reg.Put(name, tr)
	}

	h := NewHandler(&Server{Registry: reg, Gatherer: prometheus.NewRegistry()})
	w := get(t, h, "/transactions")

	require.Equal(t, http.StatusOK, w.Code)
	var resp transactions
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.ElementsMatch(t, []string{"a", "b"}, resp.Names)
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewHandler(&Server{Gatherer: prometheus.NewRegistry()}), noopLogger())
	}()
	cancel()
	assert.NoError(t, <-done)
}

func noopLogger() *slog.Logger {
	return logging.NewNop()
}
