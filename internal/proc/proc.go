// Package proc looks up running processes by executable name. The daemon
// client uses it to tell a slow daemon from a dead one, and the Prosody
// manager uses it to decide whether a reload is needed.
package proc

import (
	"strings"

	"github.com/mitchellh/go-ps"
)

// Checker reports whether a process is running.
type Checker interface {
	IsRunning(name string) bool
}

// Table checks the live process table.
type Table struct{}

var _ Checker = Table{}

// IsRunning reports whether any executable name starts with name, ignoring
// case. Executable names are truncated on some platforms, so a prefix match
// is the best available.
func (Table) IsRunning(name string) bool {
	if name == "" {
		return false
	}
	procs, err := ps.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		if hasPrefixFold(p.Executable(), name) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Static is a fixed answer, for tests and for deployments that cannot see
// the server's process table (e.g. Prosody in another container).
type Static bool

// IsRunning returns s.
func (s Static) IsRunning(string) bool { return bool(s) }
