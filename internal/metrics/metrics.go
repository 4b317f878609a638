// Package metrics aggregates live sampling counters for exposition.
package metrics

import (
	"math"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memtrack"

// Sampler holds counters published by the sampling loop. All methods
// are safe on a nil receiver so instrumentation stays optional for
// library users.
type Sampler struct {
	samplesTotal atomic.Uint64
	flushesTotal atomic.Uint64
	running      atomic.Bool
	lastRAMBits  atomic.Uint64
	offsetBits   atomic.Uint64
}

// NewSampler returns a fresh counter set.
func NewSampler() *Sampler {
	return &Sampler{}
}

// ObserveSample records one taken sample and its calibrated value in GB.
func (m *Sampler) ObserveSample(ramGB float64) {
	if m == nil {
		return
	}
	m.samplesTotal.Add(1)
	m.lastRAMBits.Store(math.Float64bits(ramGB))
}

// ObserveFlush records one drain of the sample buffer to disk.
func (m *Sampler) ObserveFlush() {
	if m == nil {
		return
	}
	m.flushesTotal.Add(1)
}

// SetRunning flags whether the sampling loop is currently active.
func (m *Sampler) SetRunning(running bool) {
	if m == nil {
		return
	}
	m.running.Store(running)
}

// SetOffset records the calibration offset applied to samples, in GB.
func (m *Sampler) SetOffset(offsetGB float64) {
	if m == nil {
		return
	}
	m.offsetBits.Store(math.Float64bits(offsetGB))
}

// SamplesTotal returns the number of samples taken so far.
func (m *Sampler) SamplesTotal() uint64 {
	if m == nil {
		return 0
	}
	return m.samplesTotal.Load()
}

// FlushesTotal returns the number of buffer drains so far.
func (m *Sampler) FlushesTotal() uint64 {
	if m == nil {
		return 0
	}
	return m.flushesTotal.Load()
}

// LastRAMGB returns the most recently sampled calibrated value.
func (m *Sampler) LastRAMGB() float64 {
	if m == nil {
		return 0
	}
	return math.Float64frombits(m.lastRAMBits.Load())
}

// Running reports whether the sampling loop is active.
func (m *Sampler) Running() bool {
	if m == nil {
		return false
	}
	return m.running.Load()
}

// Collectors exposes the counter set as prometheus collectors for
// registration on a private registry.
func (m *Sampler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "samples_total",
			Help:      "Total memory samples taken since launch.",
		}, func() float64 {
			return float64(m.SamplesTotal())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "flushes_total",
			Help:      "Total drains of the sample buffer to the series file.",
		}, func() float64 {
			return float64(m.FlushesTotal())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "last_ram_gb",
			Help:      "Most recent calibrated memory sample in GB.",
		}, m.LastRAMGB),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "running",
			Help:      "Whether the sampling loop is currently active.",
		}, func() float64 {
			if m.Running() {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "calibration_offset_gb",
			Help:      "Ambient memory offset subtracted from every sample, in GB.",
		}, func() float64 {
			if m == nil {
				return 0
			}
			return math.Float64frombits(m.offsetBits.Load())
		}),
	}
}
