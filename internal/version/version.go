// Package version tracks build metadata for the tool.
package version

import (
	"fmt"
	"sync"
)

// Info describes build metadata stamped in at link time.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// String renders the metadata as a single human-readable line.
func (i Info) String() string {
	out := i.Version
	if i.Commit != "" {
		out = fmt.Sprintf("%s (%s)", out, i.Commit)
	}
	return out
}

var (
	mu   sync.RWMutex
	info = Info{Version: "dev"}
)

// Set updates the build metadata exposed by the tool.
func Set(v Info) {
	mu.Lock()
	defer mu.Unlock()

	if v.Version == "" {
		v.Version = "dev"
	}
	info = v
}

// Current returns the configured build metadata.
func Current() Info {
	mu.RLock()
	defer mu.RUnlock()
	return info
}
