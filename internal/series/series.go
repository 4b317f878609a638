// Package series reads and writes the persisted delta,ram time series
// and classifies how a recorded run ended.
package series

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// Header is the first line of every series file.
	Header = "delta,ram"

	successMarker = "0,0"
	failureMarker = "-1,-1"
)

// Errors surfaced by read-side helpers.
var (
	ErrSeriesMissing = errors.New("series: file does not exist")
	ErrSeriesEmpty   = errors.New("series: file is empty")
)

// Sample is a single (elapsed seconds, memory GB) measurement. Genuine
// samples never collide with the terminal sentinels: memory is > 0 while
// the measured process is alive and elapsed is > 0 after the first row.
type Sample struct {
	Delta float64
	RAM   float64
}

// Writer appends samples to a series file. It is owned by exactly one
// goroutine; the sampler writes and closes it before the tracker may
// reopen the file in append mode.
type Writer struct {
	file   *os.File
	buf    *bufio.Writer
	closed bool
}

// Create opens a new series file at path, truncating any previous run,
// and writes the column header. Parent directories must already exist.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create series file: %w", err)
	}

	w := &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
	}
	if _, err := w.buf.WriteString(Header + "\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("write series header: %w", err)
	}

	return w, nil
}

// Append writes one sample row.
func (w *Writer) Append(s Sample) error {
	if _, err := w.buf.WriteString(formatFloat(s.Delta) + "," + formatFloat(s.RAM) + "\n"); err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// Flush drains buffered rows and syncs them to durable storage.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush series buffer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync series file: %w", err)
	}
	return nil
}

// WriteSuccessMarker records the graceful-completion sentinel. It must
// be the writer's last row.
func (w *Writer) WriteSuccessMarker() error {
	if _, err := w.buf.WriteString(successMarker + "\n"); err != nil {
		return fmt.Errorf("write success marker: %w", err)
	}
	return nil
}

// Close flushes outstanding rows and releases the file. Repeated calls
// are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.Flush()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close series file: %w", err)
	}
	return flushErr
}

// AppendFailureMarker reopens a closed series file and appends the
// graceful-failure sentinel. The sampler's own success marker may
// legitimately precede it; classification resolves the pair in favor of
// the true last line.
func AppendFailureMarker(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open series for marker append: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(failureMarker + "\n"); err != nil {
		return fmt.Errorf("append failure marker: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync failure marker: %w", err)
	}
	return nil
}

// EnsureParentDir creates the directory hierarchy for a series path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create series directory: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
