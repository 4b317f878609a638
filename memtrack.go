// Package memtrack measures the wall-clock time and system memory
// usage of a block of code or child process, persisting a delta,ram
// time series whose terminal marker records how the run ended.
//
// Typical library use:
//
//	trk, err := memtrack.New("run.csv", memtrack.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	err = trk.Track(func() error {
//		return doExpensiveWork()
//	})
//
// The resulting file can later be classified:
//
//	outcome, err := memtrack.Classify("run.csv")
package memtrack

import (
	"github.com/rwalder/memtrack/internal/meminfo"
	"github.com/rwalder/memtrack/internal/series"
	"github.com/rwalder/memtrack/internal/tracker"
)

// Re-exported core types.
type (
	Tracker = tracker.Tracker
	Options = tracker.Options
	Outcome = series.Outcome
	Sample  = series.Sample
	Report  = series.Report
	Summary = series.Summary
)

// Outcome values reported by Classify.
const (
	Completed           = series.Completed
	CrashedGracefully   = series.CrashedGracefully
	CrashedUngracefully = series.CrashedUngracefully
)

// Re-exported sentinel errors.
var (
	ErrUnsupportedPlatform = meminfo.ErrUnsupportedPlatform
	ErrTrackerReused       = tracker.ErrTrackerReused
	ErrSeriesMissing       = series.ErrSeriesMissing
)

// New prepares a Tracker that persists its series to path. See
// tracker.Options for the knobs; DefaultOptions gives the standard
// calibrated configuration.
func New(path string, opts Options) (*Tracker, error) {
	return tracker.New(path, opts)
}

// DefaultOptions returns the standard measurement settings.
func DefaultOptions() Options {
	return tracker.DefaultOptions()
}

// Classify reports how the run recorded at path ended.
func Classify(path string) (Outcome, error) {
	return series.Classify(path)
}

// HasCompletedSuccessfully reports whether the series at path ends in
// the success marker.
func HasCompletedSuccessfully(path string) (bool, error) {
	return series.HasCompletedSuccessfully(path)
}

// HasCrashedGracefully reports whether the series at path ends in the
// graceful-failure marker.
func HasCrashedGracefully(path string) (bool, error) {
	return series.HasCrashedGracefully(path)
}

// HasCrashedUngracefully reports whether the series at path has no
// termination marker.
func HasCrashedUngracefully(path string) (bool, error) {
	return series.HasCrashedUngracefully(path)
}

// LoadReport parses a series file with its termination markers
// stripped, ready for aggregation or plotting.
func LoadReport(path string) (Report, error) {
	return series.Load(path)
}
