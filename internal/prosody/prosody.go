// Package prosody owns the Prosody configuration file on disk: it replaces
// the file atomically and asks a running server to reload it.
package prosody

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/proc"
)

// ErrReload is returned when the file was written but the server refused
// to reload it.
var ErrReload = errors.New("prosody reload failed")

// FileMode lets the prosody group read the file; it may carry component secrets.
const FileMode os.FileMode = 0o640

// Result reports what Apply did.
type Result struct {
	// Changed is false when the file already had the requested content.
	Changed bool
	// Reloaded is true when the reload command ran successfully.
	Reloaded bool
}

// Manager applies configuration text to the server.
type Manager interface {
	// Apply installs text as the server configuration.
	Apply(ctx context.Context, text []byte) (Result, error)
	// Current returns the installed configuration, nil if there is none.
	Current() ([]byte, error)
}

// Commander runs an external program.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Exec runs programs with os/exec.
type Exec struct{}

// Run runs name and folds its output into the error on failure.
func (Exec) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Config locates the file and the server process.
type Config struct {
	Path          string
	ProcessName   string
	ReloadCommand []string
}

var _ Manager = (*ManagerImpl)(nil)

// ManagerImpl is the file-backed Manager.
type ManagerImpl struct {
	fs     filesys.FileOps
	cmd    Commander
	proc   proc.Checker
	config Config
}

// NewManager returns a Manager for cfg.
func NewManager(cfg Config, fs filesys.FileOps, cmd Commander, checker proc.Checker) *ManagerImpl {
	return &ManagerImpl{fs: fs, cmd: cmd, proc: checker, config: cfg}
}

// Current returns the installed file.
func (m *ManagerImpl) Current() ([]byte, error) {
	b, err := m.fs.ReadFile(m.config.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// Apply writes text if it differs from the installed file, then reloads the
// server if it is running. A server that is not running reads the file when
// it starts.
func (m *ManagerImpl) Apply(ctx context.Context, text []byte) (Result, error) {
	var res Result

	cur, err := m.Current()
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", m.config.Path, err)
	}
	if cur != nil && bytes.Equal(cur, text) {
		log.Debug("prosody: configuration unchanged", "path", m.config.Path)
		return res, nil
	}

	if err := m.fs.MkdirAll(filepath.Dir(m.config.Path), 0o755); err != nil {
		return res, fmt.Errorf("creating config directory: %w", err)
	}
	if err := filesys.AtomicWrite(m.fs, m.config.Path, text, FileMode); err != nil {
		return res, fmt.Errorf("writing %s: %w", m.config.Path, err)
	}
	res.Changed = true
	log.Info("prosody: configuration written", "path", m.config.Path, "bytes", len(text))

	if !m.proc.IsRunning(m.config.ProcessName) {
		log.Info("prosody: server not running, skipping reload", "process", m.config.ProcessName)
		return res, nil
	}
	if len(m.config.ReloadCommand) == 0 {
		return res, fmt.Errorf("%w: no reload command", ErrReload)
	}
	if err := m.cmd.Run(ctx, m.config.ReloadCommand[0], m.config.ReloadCommand[1:]...); err != nil {
		return res, fmt.Errorf("%w: %w", ErrReload, err)
	}
	res.Reloaded = true
	log.Info("prosody: server reloaded")
	return res, nil
}
