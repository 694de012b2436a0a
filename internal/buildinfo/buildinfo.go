// Package buildinfo carries the version stamped into podcfg and podcfgd.
package buildinfo

// Version is set at link time with -ldflags "-X".
var Version = "v0.1.0"

// Commit is set at link time; "unknown" keeps go run and tests working.
var Commit = "unknown"

// String returns "version (commit)".
func String() string { return Version + " (" + Commit + ")" }
