// internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scrape(t *testing.T, g prometheus.Gatherer) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(g).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Cycle("degraded", true, 10*time.Millisecond)
	m.Cycle("ok", false, time.Millisecond)
	m.Cycle("ok", false, time.Millisecond)
	m.Artifact("status.json", true)
	m.Artifact("risk.json", false)
	m.LedgerEntry("OBSERVATION", "WARN")
	m.OutputFailure("heartbeat.json")

	body := scrape(t, reg)
	for _, want := range []string{
		`dragon_cycles_total{status="ok"} 2`,
		`dragon_cycles_total{status="degraded"} 1`,
		"dragon_counterpart_stale 0",
		`dragon_artifact_available{artifact="status.json"} 1`,
		`dragon_artifact_available{artifact="risk.json"} 0`,
		`dragon_ledger_entries_total{severity="WARN",type="OBSERVATION"} 1`,
		`dragon_output_failures_total{artifact="heartbeat.json"} 1`,
		"dragon_cycle_duration_seconds_count 3",
	} {
		assert.Contains(t, body, want)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Cycle("ok", false, 0)
	m.Artifact("status.json", true)
	m.LedgerEntry("OBSERVATION", "INFO")
	m.OutputFailure("flags.json")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).Cycle("ok", false, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `dragon_cycles_total{status="ok"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, prometheus.NewRegistry(), zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
