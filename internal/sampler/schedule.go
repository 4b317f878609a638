package sampler

import "time"

// Delay returns how long to wait before the next sample, given how much
// time has elapsed since sampling started. The schedule is a
// non-decreasing step function: near-continuous for sub-second
// workloads, coarsening geometrically for long runs so the series
// grows roughly logarithmically with run duration instead of linearly.
func Delay(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < 10*time.Millisecond:
		return 0
	case elapsed < 100*time.Millisecond:
		return 10 * time.Microsecond
	case elapsed < time.Second:
		return 10 * time.Millisecond
	case elapsed < 10*time.Second:
		return 100 * time.Millisecond
	case elapsed < time.Minute:
		return time.Second
	case elapsed < 10*time.Minute:
		return 30 * time.Second
	case elapsed < time.Hour:
		return time.Minute
	default:
		return 3 * time.Minute
	}
}
