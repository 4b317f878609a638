package series

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// tailChunkSize bounds how much of the file end is read to find the
// last line. Rows are tens of bytes, so one chunk always suffices.
const tailChunkSize = 512

// Outcome classifies how a recorded run ended.
type Outcome int

const (
	// Completed means the workload finished and the sampler shut down
	// cleanly (terminal sentinel 0,0).
	Completed Outcome = iota
	// CrashedGracefully means the workload failed with a caught error
	// (terminal sentinel -1,-1).
	CrashedGracefully
	// CrashedUngracefully means the process died before exit handling
	// ran (OOM kill, core dump, power loss): no terminal sentinel.
	CrashedUngracefully
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed-successfully"
	case CrashedGracefully:
		return "crashed-gracefully"
	case CrashedUngracefully:
		return "crashed-ungracefully"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify reports the outcome recorded in the series file at path. It
// is a pure function of the file contents: only the true last line is
// inspected, so a -1,-1 appended after the sampler's own 0,0 still
// classifies as a graceful crash.
func Classify(path string) (Outcome, error) {
	last, err := lastLine(path)
	if err != nil {
		return CrashedUngracefully, err
	}

	switch last {
	case successMarker:
		return Completed, nil
	case failureMarker:
		return CrashedGracefully, nil
	default:
		return CrashedUngracefully, nil
	}
}

// HasCompletedSuccessfully reports whether the series ends in the
// graceful-completion sentinel.
func HasCompletedSuccessfully(path string) (bool, error) {
	outcome, err := Classify(path)
	return err == nil && outcome == Completed, err
}

// HasCrashedGracefully reports whether the series ends in the
// graceful-failure sentinel.
func HasCrashedGracefully(path string) (bool, error) {
	outcome, err := Classify(path)
	return err == nil && outcome == CrashedGracefully, err
}

// HasCrashedUngracefully reports whether the series lacks any terminal
// sentinel.
func HasCrashedUngracefully(path string) (bool, error) {
	outcome, err := Classify(path)
	return err == nil && outcome == CrashedUngracefully, err
}

// lastLine returns the final non-empty line of the file without reading
// it whole; series files from long runs can hold millions of rows.
func lastLine(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSeriesMissing, path)
		}
		return "", fmt.Errorf("open series: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat series: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return "", fmt.Errorf("%w: %s", ErrSeriesEmpty, path)
	}

	chunk := int64(tailChunkSize)
	if chunk > size {
		chunk = size
	}

	buf := make([]byte, chunk)
	if _, err := file.ReadAt(buf, size-chunk); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read series tail: %w", err)
	}

	buf = bytes.TrimRight(buf, "\n")
	if len(buf) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSeriesEmpty, path)
	}
	if idx := bytes.LastIndexByte(buf, '\n'); idx >= 0 {
		buf = buf[idx+1:]
	}

	return string(buf), nil
}
