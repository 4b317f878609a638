package tracker

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalder/memtrack/internal/meminfo"
	"github.com/rwalder/memtrack/internal/metrics"
	"github.com/rwalder/memtrack/internal/series"
)

// fakeProbe serves an adjustable constant reading.
type fakeProbe struct {
	mu    sync.Mutex
	value float64
}

func (p *fakeProbe) Measure() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.value, nil
}

func (p *fakeProbe) set(value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.value = value
}

func newTestTracker(t *testing.T, probe Probe, opts Options) (*Tracker, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "run.csv")
	opts.Probe = probe

	tracker, err := New(path, opts)
	require.NoError(t, err)

	return tracker, path
}

func TestTrackSuccessWritesSingleMarker(t *testing.T) {
	t.Parallel()

	tracker, path := newTestTracker(t, &fakeProbe{value: 2.5}, Options{})

	err := tracker.Track(func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	assert.Equal(t, "0,0", lines[len(lines)-1])

	markers := 0
	for _, line := range lines {
		if line == "0,0" {
			markers++
		}
	}
	assert.Equal(t, 1, markers)

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.Completed, outcome)
}

func TestTrackFailurePropagatesErrorUnchanged(t *testing.T) {
	t.Parallel()

	tracker, path := newTestTracker(t, &fakeProbe{value: 2.5}, Options{})

	blockErr := errors.New("simulated workload failure")
	err := tracker.Track(func() error {
		time.Sleep(20 * time.Millisecond)
		return blockErr
	})
	assert.ErrorIs(t, err, blockErr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "0,0\n-1,-1\n"),
		"series must end with the sampler marker followed by the failure marker, got:\n%s", string(data))

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.CrashedGracefully, outcome)
}

func TestTrackPanicStillFinalizesSeries(t *testing.T) {
	t.Parallel()

	tracker, path := newTestTracker(t, &fakeProbe{value: 2.5}, Options{})

	assert.Panics(t, func() {
		_ = tracker.Track(func() error {
			panic("boom")
		})
	})

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.CrashedGracefully, outcome)
}

func TestCalibrationOffsetApplied(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{value: 10.0}
	tracker, path := newTestTracker(t, probe, Options{
		Calibrate:         true,
		CalibrationWindow: 250 * time.Millisecond,
		Metrics:           metrics.NewSampler(),
	})

	err := tracker.Track(func() error {
		// Ambient was a steady 10.0 GB during calibration; the
		// workload now raises usage to 10.5 GB.
		probe.set(10.5)
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, tracker.Offset(), 1e-9)

	report, err := series.Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, report.Samples)

	// The raw 10.5 GB reading is recorded calibration-adjusted.
	last := report.Samples[len(report.Samples)-1]
	assert.InDelta(t, 0.5, last.RAM, 1e-9)
}

func TestMeanStdev(t *testing.T) {
	t.Parallel()

	mean, stdev := meanStdev([]float64{10.0, 10.2, 9.8})
	assert.InDelta(t, 10.0, mean, 1e-9)
	assert.InDelta(t, 0.2, stdev, 1e-9)

	mean, stdev = meanStdev([]float64{4.2})
	assert.InDelta(t, 4.2, mean, 1e-9)
	assert.Zero(t, stdev)

	mean, stdev = meanStdev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stdev)
}

func TestTrackerSupportsExactlyOneCycle(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, &fakeProbe{value: 1}, Options{})

	require.NoError(t, tracker.Track(func() error { return nil }))

	assert.ErrorIs(t, tracker.Start(), ErrTrackerReused)
	assert.ErrorIs(t, tracker.Stop(nil), ErrTrackerNotRunning)
	assert.ErrorIs(t, tracker.Track(func() error { return nil }), ErrTrackerReused)
}

func TestStopBeforeStart(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, &fakeProbe{value: 1}, Options{})
	assert.ErrorIs(t, tracker.Stop(nil), ErrTrackerNotRunning)
}

func TestNewRejectsUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	// A proc root without a meminfo file fails the platform gate.
	path := filepath.Join(t.TempDir(), "run.csv")
	_, err := New(path, Options{ProcRoot: t.TempDir()})
	assert.ErrorIs(t, err, meminfo.ErrUnsupportedPlatform)
}

func TestNewWithRealProbeUnderFakeProcRoot(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("platform gate only passes on linux")
	}

	procRoot := t.TempDir()
	contents := "MemTotal: 8388608 kB\nMemFree: 4194304 kB\nBuffers: 102400 kB\nCached: 1048576 kB\nSlab: 204800 kB\n"
	require.NoError(t, os.WriteFile(filepath.Join(procRoot, "meminfo"), []byte(contents), 0o644))

	path := filepath.Join(t.TempDir(), "sub", "dir", "run.csv")
	tracker, err := New(path, Options{ProcRoot: procRoot})
	require.NoError(t, err)

	require.NoError(t, tracker.Track(func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}))

	outcome, err := series.Classify(path)
	require.NoError(t, err)
	assert.Equal(t, series.Completed, outcome)
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Equal(t, 4*time.Second, opts.EndDelay)
	assert.True(t, opts.Calibrate)
	assert.Equal(t, 2*time.Second, opts.CalibrationWindow)
	assert.Equal(t, 5*time.Second, opts.StartDelay)
}
