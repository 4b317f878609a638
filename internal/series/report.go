package series

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Report is a fully parsed series with its terminal sentinels stripped.
type Report struct {
	Path    string
	Outcome Outcome
	Samples []Sample
}

// Load parses the series file at path. Terminal sentinel rows are
// trimmed so Samples holds genuine measurements only: one trailing row
// for a completed run, two for a graceful crash (the sampler's 0,0
// followed by the tracker's -1,-1).
func Load(path string) (Report, error) {
	outcome, err := Classify(path)
	if err != nil {
		return Report{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open series: %w", err)
	}
	defer file.Close()

	var samples []Sample
	scanner := bufio.NewScanner(file)

	if !scanner.Scan() {
		return Report{}, fmt.Errorf("%w: %s", ErrSeriesEmpty, path)
	}
	if header := strings.TrimSpace(scanner.Text()); header != Header {
		return Report{}, fmt.Errorf("series header %q, want %q", header, Header)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sample, err := parseRow(line)
		if err != nil {
			return Report{}, err
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return Report{}, fmt.Errorf("scan series: %w", err)
	}

	switch outcome {
	case Completed:
		samples = samples[:len(samples)-1]
	case CrashedGracefully:
		trim := 2
		if trim > len(samples) {
			trim = len(samples)
		}
		samples = samples[:len(samples)-trim]
	case CrashedUngracefully:
		// Every row is a genuine sample.
	}

	return Report{
		Path:    path,
		Outcome: outcome,
		Samples: samples,
	}, nil
}

func parseRow(line string) (Sample, error) {
	deltaStr, ramStr, ok := strings.Cut(line, ",")
	if !ok {
		return Sample{}, fmt.Errorf("malformed series row %q", line)
	}
	delta, err := strconv.ParseFloat(strings.TrimSpace(deltaStr), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parse series delta %q: %w", deltaStr, err)
	}
	ram, err := strconv.ParseFloat(strings.TrimSpace(ramStr), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parse series ram %q: %w", ramStr, err)
	}
	return Sample{Delta: delta, RAM: ram}, nil
}

// Summary aggregates a report for human-readable listings.
type Summary struct {
	Path    string
	Outcome Outcome
	Count   int
	PeakRAM float64
	Took    time.Duration
}

// Summarize reduces the report to its peak memory and total duration,
// the same reduction the plotting collaborators apply per file.
func (r Report) Summarize() Summary {
	summary := Summary{
		Path:    r.Path,
		Outcome: r.Outcome,
		Count:   len(r.Samples),
	}
	for _, sample := range r.Samples {
		if sample.RAM > summary.PeakRAM {
			summary.PeakRAM = sample.RAM
		}
		if took := time.Duration(sample.Delta * float64(time.Second)); took > summary.Took {
			summary.Took = took
		}
	}
	return summary
}
