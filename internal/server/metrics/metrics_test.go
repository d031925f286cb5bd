package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pledgeboard/internal/logging"
)

func TestMetrics_RecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(Options{Registerer: registry})
	require.NoError(t, err)

	m.ObserveRequest("evaluate_pledge", 200, 5*time.Millisecond)
	m.ObserveRequest("evaluate_pledge", 400, time.Millisecond)
	m.ObserveRequest("evaluate_pledge", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("evaluate_pledge", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("evaluate_pledge", "400")))
	assert.NotZero(t, testutil.CollectAndCount(m.duration))
}

func TestMetrics_Connections(t *testing.T) {
	m, err := New(Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)

	m.ConnectionOpened(false)
	m.ConnectionOpened(true)
	m.ConnectionClosed()
	m.FramingError()
	m.Refresh("all", nil)
	m.Refresh("all", errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overCapacity))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framingErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("all", "error")))
}

func TestMetrics_ReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := New(Options{Registerer: registry})
	require.NoError(t, err)
	second, err := New(Options{Registerer: registry})
	require.NoError(t, err)

	first.ObserveRequest("login_request", 200, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues("login_request", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("x", 200, 0)
		m.ConnectionOpened(true)
		m.ConnectionClosed()
		m.FramingError()
		m.Refresh("all", nil)
	})
}

func TestServer_ServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(Options{Registerer: registry})
	require.NoError(t, err)
	m.ConnectionOpened(false)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer("127.0.0.1:0", registry, logging.Nop{})
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	select {
	case a := <-srv.Ready():
		addr = a.String()
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not start")
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "pledgeboard_connections_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
