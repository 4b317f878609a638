// Package tracker coordinates the lifetime of an adaptive memory
// sampler around an arbitrary protected block of work.
package tracker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rwalder/memtrack/internal/meminfo"
	"github.com/rwalder/memtrack/internal/metrics"
	"github.com/rwalder/memtrack/internal/sampler"
	"github.com/rwalder/memtrack/internal/series"
)

// calibrationPollInterval spaces ambient-memory measurements during
// calibration and the post-run window.
const calibrationPollInterval = 100 * time.Millisecond

// Lifecycle errors.
var (
	ErrTrackerReused     = errors.New("tracker: supports exactly one start/stop cycle")
	ErrTrackerNotRunning = errors.New("tracker: not running")
)

// Probe returns current whole-machine memory usage in GB.
type Probe interface {
	Measure() (float64, error)
}

// Options configures a Tracker. DefaultOptions mirrors the defaults of
// the measurement protocol; the zero value disables calibration and all
// settle delays, which is what tests usually want.
type Options struct {
	// EndDelay is how long ambient memory is re-measured after the
	// protected block finishes (diagnostic only, not persisted).
	EndDelay time.Duration
	// Calibrate enables the pre-run ambient measurement whose mean
	// becomes the offset subtracted from every sample.
	Calibrate bool
	// CalibrationWindow is how long the calibration measurement runs.
	CalibrationWindow time.Duration
	// StartDelay is the warm-up wait after launching the sampler, so
	// samples exclude the sampler's own startup noise.
	StartDelay time.Duration
	// ProcRoot overrides the procfs mount used by the default probe.
	ProcRoot string
	// Probe overrides the memory source entirely. When nil a meminfo
	// probe is built and the host platform is validated.
	Probe Probe
	// Logger receives progress and calibration diagnostics. Nil
	// discards them.
	Logger *slog.Logger
	// Metrics optionally receives live sampling counters.
	Metrics *metrics.Sampler
}

// DefaultOptions returns the standard measurement settings: calibrated
// runs with a 2s calibration window, 5s sampler warm-up and 4s post-run
// ambient measurement.
func DefaultOptions() Options {
	return Options{
		EndDelay:          4 * time.Second,
		Calibrate:         true,
		CalibrationWindow: 2 * time.Second,
		StartDelay:        5 * time.Second,
	}
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateClosed
)

// Tracker measures the wall-clock time and memory usage of a protected
// block, persisting the series to a file. An instance supports exactly
// one Start/Stop cycle.
type Tracker struct {
	path   string
	opts   Options
	probe  Probe
	logger *slog.Logger

	mu     sync.Mutex
	state  state
	offset float64

	startGate  chan struct{}
	stopCh     chan struct{}
	samplerErr chan error

	startTime time.Time
	endTime   time.Time
}

// New validates the host platform and prepares a Tracker that will log
// the series to path. The parent directory is created if needed.
func New(path string, opts Options) (*Tracker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "tracker")

	probe := opts.Probe
	if probe == nil {
		memProbe := meminfo.NewProbe(opts.ProcRoot)
		if err := memProbe.Supported(); err != nil {
			return nil, err
		}
		probe = memProbe
	}

	if err := series.EnsureParentDir(path); err != nil {
		return nil, err
	}

	logger.Info("logging results", "path", path)

	return &Tracker{
		path:       path,
		opts:       opts,
		probe:      probe,
		logger:     logger,
		startGate:  make(chan struct{}),
		stopCh:     make(chan struct{}),
		samplerErr: make(chan error, 1),
	}, nil
}

// Start calibrates (when configured), launches the sampler goroutine
// and opens the sampling gate after the warm-up delay. A calibration
// measurement failure is fatal: the tracker stays unstarted.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateIdle {
		return ErrTrackerReused
	}

	if t.opts.Calibrate {
		t.logger.Info("starting calibration", "window", t.opts.CalibrationWindow)
		mean, stdev, err := t.measureAmbient(t.opts.CalibrationWindow)
		if err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		t.offset = mean
		t.logger.Info("calibration done",
			"mean_gb", mean,
			"stdev_gb", stdev,
		)
	}

	s := sampler.New(t.probe, t.path, t.offset, t.logger, t.opts.Metrics)
	go func() {
		t.samplerErr <- s.Run(t.startGate, t.stopCh)
	}()

	// Settle wait; not cancellable. The gate stays shut until the
	// sampler's own startup noise has passed.
	if t.opts.StartDelay > 0 {
		time.Sleep(t.opts.StartDelay)
	}

	close(t.startGate)
	t.startTime = time.Now()
	t.state = stateRunning

	return nil
}

// Stop signals the sampler, waits for it to exit and finalizes the
// series. When the protected block failed, runErr carries its error and
// the graceful-failure sentinel is appended after the sampler has
// closed the file. Stop always runs teardown to completion; the
// returned error is advisory and never replaces runErr.
func (t *Tracker) Stop(runErr error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateRunning {
		return ErrTrackerNotRunning
	}
	t.state = stateClosed
	t.endTime = time.Now()

	close(t.stopCh)
	samplerErr := <-t.samplerErr

	var teardownErr error
	if samplerErr != nil {
		// The series has no terminal sentinel; readers will classify
		// the run as an ungraceful crash.
		t.logger.Warn("sampler exited with error", "err", samplerErr)
		teardownErr = samplerErr
	}

	if runErr != nil {
		t.logger.Info("protected block failed", "err", runErr)
		if err := series.AppendFailureMarker(t.path); err != nil {
			t.logger.Warn("could not append failure marker", "err", err)
			if teardownErr == nil {
				teardownErr = err
			}
		}
	}

	if t.opts.EndDelay > 0 {
		mean, stdev, err := t.measureAmbient(t.opts.EndDelay)
		if err != nil {
			t.logger.Warn("post-run measurement failed", "err", err)
		} else {
			t.logger.Info("post-run memory",
				"mean_gb", mean-t.offset,
				"stdev_gb", stdev,
			)
		}
	}

	t.logger.Info("tracking finished", "took", t.endTime.Sub(t.startTime))

	return teardownErr
}

// Track runs fn between Start and Stop and returns fn's error
// unchanged. A panic inside fn still finalizes the series (with the
// graceful-failure sentinel) before propagating.
func (t *Tracker) Track(fn func() error) error {
	if err := t.Start(); err != nil {
		return err
	}

	var fnErr error
	defer func() {
		if r := recover(); r != nil {
			_ = t.Stop(fmt.Errorf("panic: %v", r))
			panic(r)
		}
		_ = t.Stop(fnErr)
	}()

	fnErr = fn()

	return fnErr
}

// Offset returns the calibration offset applied to all samples, in GB.
func (t *Tracker) Offset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.offset
}

// Path returns the series file location.
func (t *Tracker) Path() string {
	return t.path
}

// Took returns the wall-clock duration of the protected block, valid
// once the tracker is closed.
func (t *Tracker) Took() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.endTime.Sub(t.startTime)
}

// measureAmbient polls the probe for the given window and returns the
// mean and sample standard deviation of the readings. At least one
// reading is always taken, even for a zero window.
func (t *Tracker) measureAmbient(window time.Duration) (float64, float64, error) {
	var values []float64

	began := time.Now()
	for time.Since(began) < window {
		value, err := t.probe.Measure()
		if err != nil {
			return 0, 0, fmt.Errorf("measure ambient memory: %w", err)
		}
		values = append(values, value)
		time.Sleep(calibrationPollInterval)
	}
	if len(values) == 0 {
		value, err := t.probe.Measure()
		if err != nil {
			return 0, 0, fmt.Errorf("measure ambient memory: %w", err)
		}
		values = append(values, value)
	}

	mean, stdev := meanStdev(values)

	return mean, stdev, nil
}

// meanStdev returns the arithmetic mean and sample standard deviation.
func meanStdev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	var squares float64
	for _, v := range values {
		squares += (v - mean) * (v - mean)
	}

	return mean, math.Sqrt(squares / float64(len(values)-1))
}
