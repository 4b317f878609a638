// Package sampler records an adaptively-throttled memory time series
// while a workload runs in another goroutine.
package sampler

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rwalder/memtrack/internal/metrics"
	"github.com/rwalder/memtrack/internal/series"
)

// flushThreshold is the sleep interval above which the row buffer is
// drained and synced before sleeping, bounding what an abrupt kill can
// lose to one sampling period.
const flushThreshold = 5 * time.Second

// Probe returns current whole-machine memory usage in GB.
type Probe interface {
	Measure() (float64, error)
}

// Sampler writes (elapsed, memory) rows to a series file until its stop
// channel closes, then records the graceful-completion sentinel. Any
// probe or sink error aborts the run without a sentinel, which readers
// classify as an ungraceful crash.
type Sampler struct {
	probe   Probe
	path    string
	offset  float64
	logger  *slog.Logger
	metrics *metrics.Sampler

	// Overridable in tests.
	delay     func(time.Duration) time.Duration
	threshold time.Duration
}

// New builds a Sampler bound to the series path and calibration offset.
// The offset is captured by value; there is no shared mutable state
// with the tracker after launch. A nil logger discards output.
func New(probe Probe, path string, offset float64, logger *slog.Logger, mets *metrics.Sampler) *Sampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sampler{
		probe:     probe,
		path:      path,
		offset:    offset,
		logger:    logger.With("component", "sampler"),
		metrics:   mets,
		delay:     Delay,
		threshold: flushThreshold,
	}
}

// Run blocks until the start gate closes, then samples until the stop
// channel closes. The schedule-driven sleep is the sole suspension
// point and is interrupted by stop, so shutdown latency is bounded by
// the currently active sleep interval (up to 3 minutes late in very
// long runs).
func (s *Sampler) Run(start, stop <-chan struct{}) error {
	select {
	case <-start:
	case <-stop:
		s.logger.Debug("stopped before sampling began")
		return nil
	}

	s.metrics.SetRunning(true)
	defer s.metrics.SetRunning(false)
	s.metrics.SetOffset(s.offset)
	s.logger.Debug("sampling started", "path", s.path, "offset_gb", s.offset)

	initial, err := s.probe.Measure()
	if err != nil {
		return fmt.Errorf("initial sample: %w", err)
	}

	w, err := series.Create(s.path)
	if err != nil {
		return err
	}
	defer w.Close()

	buffer := []series.Sample{{Delta: 0, RAM: initial - s.offset}}
	s.metrics.ObserveSample(initial - s.offset)

	sessionStart := time.Now()
	lastDelta := time.Duration(0)

	for {
		wait := s.delay(lastDelta)
		if stopped := s.sleep(wait, stop); stopped {
			break
		}

		value, err := s.probe.Measure()
		if err != nil {
			return fmt.Errorf("sample memory: %w", err)
		}
		lastDelta = time.Since(sessionStart)

		buffer = append(buffer, series.Sample{
			Delta: lastDelta.Seconds(),
			RAM:   value - s.offset,
		})
		s.metrics.ObserveSample(value - s.offset)

		if wait > s.threshold {
			if buffer, err = s.drain(w, buffer); err != nil {
				return err
			}
		}
	}

	if _, err := s.drain(w, buffer); err != nil {
		return err
	}
	if err := w.WriteSuccessMarker(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	s.logger.Debug("sampling finished", "samples", s.metrics.SamplesTotal())

	return nil
}

// sleep waits for the schedule interval, returning early (and true)
// once stop closes.
func (s *Sampler) sleep(wait time.Duration, stop <-chan struct{}) bool {
	if wait <= 0 {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		// Check stop again after waking so a signal raised mid-sleep
		// is honored before taking another sample.
		select {
		case <-stop:
			return true
		default:
			return false
		}
	case <-stop:
		return true
	}
}

// drain writes all buffered samples and syncs them to durable storage.
func (s *Sampler) drain(w *series.Writer, buffer []series.Sample) ([]series.Sample, error) {
	for _, sample := range buffer {
		if err := w.Append(sample); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	s.metrics.ObserveFlush()

	return buffer[:0], nil
}
