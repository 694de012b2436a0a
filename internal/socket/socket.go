// Package socket opens and dials the Unix domain socket podcfgd serves its
// settings API on.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/proc"
)

var (
	// ErrAddressInUse is returned when another daemon already serves the socket.
	ErrAddressInUse = errors.New("address already in use")
	// ErrNotRunning is returned when the daemon cannot be reached and is not starting.
	ErrNotRunning = errors.New("daemon not running")
)

// DaemonName is the executable name of the settings daemon.
const DaemonName = "podcfgd"

// Config controls dialing and listening.
type Config struct {
	// StartupTimeout bounds how long Connect waits for a daemon to come up.
	StartupTimeout time.Duration
	// RetryInterval is the pause between dial attempts.
	RetryInterval time.Duration
	// Permissions of the socket file.
	Permissions os.FileMode
	// ProcessName is looked up to tell a starting daemon from a dead one.
	ProcessName string
	// Grace is how long after New a failed dial is retried without
	// consulting the process table.
	Grace time.Duration
}

// DefaultConfig returns the settings used by podcfg and podcfgd.
func DefaultConfig() *Config {
	return &Config{
		StartupTimeout: 5 * time.Second,
		RetryInterval:  250 * time.Millisecond,
		Permissions:    defaultPermissions(),
		ProcessName:    DaemonName,
		Grace:          2 * time.Second,
	}
}

// Socket dials and listens on a Unix domain socket.
type Socket struct {
	config  *Config
	checker proc.Checker
	created time.Time
}

// New returns a Socket. A nil cfg means DefaultConfig.
func New(cfg *Config, checker proc.Checker) *Socket {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Socket{config: cfg, checker: checker, created: time.Now()}
}

// ConnectContext dials path with the default configuration.
func ConnectContext(ctx context.Context, path string) (net.Conn, error) {
	return New(nil, proc.Table{}).Connect(ctx, path)
}

// Listen listens on path with the default configuration.
func Listen(path string) (net.Listener, error) {
	return New(nil, proc.Table{}).Listen(path)
}

// Connect dials path until it succeeds, ctx is done, or the daemon is
// neither reachable nor running once StartupTimeout has passed.
func (s *Socket) Connect(ctx context.Context, path string) (net.Conn, error) {
	deadline := time.Now().Add(s.config.StartupTimeout)
	var d net.Dialer

	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !s.retry(deadline) {
			return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.RetryInterval):
		}
	}
}

func (s *Socket) retry(deadline time.Time) bool {
	if time.Now().After(deadline) {
		return false
	}
	if time.Since(s.created) < s.config.Grace {
		return true
	}
	return s.checker.IsRunning(s.config.ProcessName)
}

// Listen creates the socket directory, clears a stale socket file and
// listens on path. A live socket at path yields ErrAddressInUse.
func (s *Socket) Listen(path string) (net.Listener, error) {
	if err := s.prepareDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := clearStale(path); err != nil {
		return nil, err
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("creating socket listener: %w", err)
	}
	if err := os.Chmod(path, s.config.Permissions); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	log.Debug("socket: listening", "path", path, "mode", s.config.Permissions.String())
	return l, nil
}

func (s *Socket) prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	// A world-writable socket is useless in a directory others cannot enter.
	if s.config.Permissions == 0o666 {
		if fi, err := os.Stat(dir); err == nil && fi.Mode()&0o077 == 0 {
			if err := os.Chmod(dir, 0o755); err != nil {
				return fmt.Errorf("setting directory permissions: %w", err)
			}
		}
	}
	return nil
}

func clearStale(path string) error {
	if conn, err := net.Dial("unix", path); err == nil {
		_ = conn.Close()
		return ErrAddressInUse
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}

// defaultPermissions opens the socket to everyone where the daemon can
// check peer credentials, and to the owner only elsewhere.
func defaultPermissions() os.FileMode {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
		return 0o666
	default:
		return 0o600
	}
}
