// Package filesys is the file system seam used by podcfg. Everything that
// touches disk (the daemon config loader, the settings store, the Prosody
// config writer) goes through these interfaces so tests can swap in a mock.
package filesys

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lc/podcfg/internal/log"
)

// TempPattern names the temporary files AtomicWrite leaves behind on a crash.
const TempPattern = ".podcfg-*"

// ReadWriteFS is what the daemon config loader needs.
type ReadWriteFS interface {
	Stat(string) (fs.FileInfo, error)
	MkdirAll(string, os.FileMode) error
	Open(string) (*os.File, error)
	WriteFile(string, []byte, os.FileMode) error
}

// FileOps is what the settings store and the Prosody config writer need.
type FileOps interface {
	Open(string) (*os.File, error)
	ReadFile(string) ([]byte, error)
	MkdirAll(string, os.FileMode) error
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// OS returns the local disk implementation.
func OS() OsFS {
	return OsFS{}
}

// OsFS delegates to package os.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error)                { return os.Stat(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error            { return os.MkdirAll(p, m) }
func (OsFS) Open(p string) (*os.File, error)                   { return os.Open(p) }
func (OsFS) ReadFile(p string) ([]byte, error)                 { return os.ReadFile(p) }
func (OsFS) WriteFile(p string, b []byte, m os.FileMode) error { return os.WriteFile(p, b, m) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error)      { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error                  { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                             { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error               { return os.Chmod(p, m) }

var (
	_ ReadWriteFS = OsFS{}
	_ FileOps     = OsFS{}
)

// AtomicWrite replaces dst with data so that readers see either the old or
// the new content, never a mix:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// On failure dst is untouched and the temp file is removed.
func AtomicWrite(ops FileOps, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := ops.CreateTemp(dir, TempPattern)
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ops.Chmod(name, perm)
	}
	if err == nil {
		err = ops.Rename(name, dst)
	}
	if err != nil {
		if rmErr := ops.Remove(name); rmErr != nil {
			log.Warn("filesys: failed to remove temp file", "path", name, "error", rmErr)
		}
		return err
	}

	syncDir(ops, dir)
	return nil
}

// syncDir flushes the rename to disk. Failures are logged; the data itself
// is already in place.
func syncDir(ops FileOps, dir string) {
	d, err := ops.Open(dir)
	if err != nil {
		return
	}
	if err := d.Sync(); err != nil {
		log.Warn("filesys: failed to sync directory", "path", dir, "error", err)
	}
	if err := d.Close(); err != nil {
		log.Warn("filesys: failed to close directory", "path", dir, "error", err)
	}
}
