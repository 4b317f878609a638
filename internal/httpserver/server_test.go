package httpserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalder/memtrack/internal/config"
	"github.com/rwalder/memtrack/internal/metrics"
	"github.com/rwalder/memtrack/internal/version"
)

func newTestHTTPServer(t *testing.T, cfg config.Config, mets *metrics.Sampler) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := New(cfg, logger, mets)

	ts := httptest.NewServer(server.httpServer.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func TestHealthzOK(t *testing.T) {
	t.Parallel()

	ts := newTestHTTPServer(t, config.Config{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, strings.TrimSpace(string(body)))
}

func TestHealthzRejectsPost(t *testing.T) {
	t.Parallel()

	ts := newTestHTTPServer(t, config.Config{}, nil)

	resp, err := http.Post(ts.URL+"/healthz", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestReadyzReportsSamplerState(t *testing.T) {
	t.Parallel()

	mets := metrics.NewSampler()
	mets.SetRunning(true)
	mets.ObserveSample(1.5)
	mets.ObserveSample(1.6)

	ts := newTestHTTPServer(t, config.Config{}, mets)

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info readyInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "ok", info.Status)
	assert.True(t, info.Sampling)
	assert.Equal(t, uint64(2), info.Samples)
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestHTTPServer(t, config.Config{}, nil)

	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info version.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.NotEmpty(t, info.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	mets := metrics.NewSampler()
	mets.ObserveSample(2.25)
	mets.ObserveFlush()

	ts := newTestHTTPServer(t, config.Config{EnablePrometheus: true}, mets)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "memtrack_sampler_samples_total 1")
	assert.Contains(t, string(body), "memtrack_sampler_flushes_total 1")
	assert.Contains(t, string(body), "memtrack_sampler_last_ram_gb 2.25")
}

func TestMetricsDisabledByDefault(t *testing.T) {
	t.Parallel()

	ts := newTestHTTPServer(t, config.Config{}, metrics.NewSampler())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPprofToggle(t *testing.T) {
	t.Parallel()

	enabled := newTestHTTPServer(t, config.Config{EnablePprof: true}, nil)
	resp, err := http.Get(enabled.URL + "/debug/pprof/cmdline")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	disabled := newTestHTTPServer(t, config.Config{}, nil)
	resp, err = http.Get(disabled.URL + "/debug/pprof/cmdline")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
