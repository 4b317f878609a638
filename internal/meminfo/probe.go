// Package meminfo measures whole-machine memory usage from the kernel's
// live accounting snapshot.
package meminfo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	meminfoFilename = "meminfo"

	// kbPerGB converts meminfo's kB figures to GB.
	kbPerGB = 1024 * 1024
)

// ErrUnsupportedPlatform is returned when the host has no readable
// meminfo accounting source.
var ErrUnsupportedPlatform = errors.New("meminfo: only supported on linux hosts with procfs")

// Probe reads used system memory from <procRoot>/meminfo.
type Probe struct {
	procRoot string
}

// NewProbe constructs a Probe rooted at the given procfs mount
// (usually "/proc"). An empty root defaults to "/proc".
func NewProbe(procRoot string) *Probe {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Probe{procRoot: procRoot}
}

// Supported reports whether the accounting source is usable on this host.
func (p *Probe) Supported() error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("%w: running on %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
	if _, err := os.Stat(p.path()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}
	return nil
}

// Measure returns the memory currently used by the whole system, in GB,
// computed as MemTotal - MemFree - Buffers - Cached - Slab. Buffers and
// Cached are reclaimable page cache, Slab is kernel-owned memory;
// subtracting all three leaves the usage actually attributable to
// running workloads.
func (p *Probe) Measure() (float64, error) {
	data, err := os.ReadFile(p.path())
	if err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}

	fields, err := parseMeminfo(data)
	if err != nil {
		return 0, err
	}

	var usedKB int64
	for _, entry := range []struct {
		key      string
		negative bool
	}{
		{"MemTotal", false},
		{"MemFree", true},
		{"Buffers", true},
		{"Cached", true},
		{"Slab", true},
	} {
		value, ok := fields[entry.key]
		if !ok {
			return 0, fmt.Errorf("meminfo field %s missing", entry.key)
		}
		if entry.negative {
			usedKB -= value
		} else {
			usedKB += value
		}
	}

	return float64(usedKB) / kbPerGB, nil
}

func (p *Probe) path() string {
	return filepath.Join(p.procRoot, meminfoFilename)
}

// parseMeminfo converts the "Key: value kB" lines into a field map.
// Values are reported in kilobytes regardless of the unit suffix.
func parseMeminfo(data []byte) (map[string]int64, error) {
	fields := make(map[string]int64)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		valueStr := strings.TrimSpace(rest)
		valueStr = strings.TrimSuffix(valueStr, " kB")
		valueStr = strings.TrimSuffix(valueStr, " KB")
		value, err := strconv.ParseInt(strings.TrimSpace(valueStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse meminfo field %s: %w", key, err)
		}
		fields[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan meminfo: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("meminfo contained no fields")
	}

	return fields, nil
}
