// Package mocks holds testify mocks shared by package tests.
package mocks

import (
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/lc/podcfg/internal/filesys"
)

var (
	_ filesys.ReadWriteFS = (*MockOsFS)(nil)
	_ filesys.FileOps     = (*MockOsFS)(nil)
)

// MockOsFS stands in for the local disk. Store and prosody tests use it to
// script read, temp-file and rename failures that a real disk will not
// produce on demand.
type MockOsFS struct {
	mock.Mock
}

// value returns argument i as T, or the zero T when the expectation
// returned nil.
func value[T any](args mock.Arguments, i int) T {
	var zero T
	if v := args.Get(i); v != nil {
		return v.(T)
	}
	return zero
}

func (m *MockOsFS) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	return value[fs.FileInfo](args, 0), args.Error(1)
}

func (m *MockOsFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	return value[*os.File](args, 0), args.Error(1)
}

// ReadFile returns the scripted content of the settings or server file.
func (m *MockOsFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	return value[[]byte](args, 0), args.Error(1)
}

func (m *MockOsFS) WriteFile(p string, b []byte, mode os.FileMode) error {
	return m.Called(p, b, mode).Error(0)
}

func (m *MockOsFS) MkdirAll(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}

// CreateTemp is where AtomicWrite starts; returning a real file from
// os.CreateTemp lets a test fail a later step instead.
func (m *MockOsFS) CreateTemp(dir, pattern string) (*os.File, error) {
	args := m.Called(dir, pattern)
	return value[*os.File](args, 0), args.Error(1)
}

func (m *MockOsFS) Rename(from, to string) error {
	return m.Called(from, to).Error(0)
}

// Remove is expected on every AtomicWrite failure path, for the temp file.
func (m *MockOsFS) Remove(p string) error {
	return m.Called(p).Error(0)
}

func (m *MockOsFS) Chmod(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}
