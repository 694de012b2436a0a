package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/mocks"
	"github.com/lc/podcfg/internal/podconfig"
)

type StoreTestSuite struct {
	suite.Suite
	dir  string
	path string
}

func (s *StoreTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, "lib", "settings.yaml")
}

func (s *StoreTestSuite) TestLoadMissingFile() {
	// Given no settings were ever saved
	st := NewFileStore(filesys.OS(), s.path)

	// When loading
	r, err := st.Load()

	// Then the record is empty
	s.Require().NoError(err)
	s.Equal(Record{}, r)
}

func (s *StoreTestSuite) TestSaveThenLoad() {
	st := NewFileStore(filesys.OS(), s.path)
	in := Record{
		Revision:  "6f1c2a4e-2b0d-4a55-9a5e-2b4c3f6d7e8f",
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Overrides: podconfig.Overrides{
			Domain:                  podconfig.Ptr("example.org"),
			MessageArchiveRetention: podconfig.Ptr("infinite"),
			FederationEnabled:       podconfig.Ptr(false),
		},
	}

	s.Require().NoError(st.Save(in))

	out, err := st.Load()
	s.Require().NoError(err)
	s.Equal(in.Revision, out.Revision)
	s.True(in.UpdatedAt.Equal(out.UpdatedAt))
	s.Equal(in.Overrides, out.Overrides)

	// unset fields stay unset, false stays false
	s.Nil(out.Overrides.MFARequired)
	s.Require().NotNil(out.Overrides.FederationEnabled)
	s.False(*out.Overrides.FederationEnabled)

	fi, err := os.Stat(s.path)
	s.Require().NoError(err)
	s.Equal(FileMode, fi.Mode().Perm())

	// no temp files are left next to the record
	entries, err := os.ReadDir(filepath.Dir(s.path))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *StoreTestSuite) TestLoadCorrupt() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "bad.yaml"), []byte("overrides: [1, 2"), 0o600))
	st := NewFileStore(filesys.OS(), filepath.Join(s.dir, "bad.yaml"))

	_, err := st.Load()
	s.ErrorIs(err, ErrCorrupt)
}

func (s *StoreTestSuite) TestLoadEmptyFile() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "empty.yaml"), []byte("\n"), 0o600))
	st := NewFileStore(filesys.OS(), filepath.Join(s.dir, "empty.yaml"))

	r, err := st.Load()
	s.Require().NoError(err)
	s.Equal(Record{}, r)
}

func (s *StoreTestSuite) TestReadFailure() {
	fs := &mocks.MockOsFS{}
	fs.On("ReadFile", "/var/lib/podcfg/settings.yaml").Return(nil, os.ErrPermission)

	_, err := NewFileStore(fs, "/var/lib/podcfg/settings.yaml").Load()

	s.ErrorIs(err, os.ErrPermission)
	fs.AssertExpectations(s.T())
}

func (s *StoreTestSuite) TestSaveFailureLeavesNoTemp() {
	// Given a rename that fails
	tmp, err := os.CreateTemp(s.dir, filesys.TempPattern)
	s.Require().NoError(err)

	fs := &mocks.MockOsFS{}
	fs.On("MkdirAll", s.dir, mock.Anything).Return(nil)
	fs.On("CreateTemp", s.dir, filesys.TempPattern).Return(tmp, nil)
	fs.On("Chmod", tmp.Name(), FileMode).Return(nil)
	fs.On("Rename", tmp.Name(), filepath.Join(s.dir, "settings.yaml")).Return(errors.New("boom"))
	fs.On("Remove", tmp.Name()).Return(nil)

	// When saving
	err = NewFileStore(fs, filepath.Join(s.dir, "settings.yaml")).Save(Record{Revision: "r1"})

	// Then the error surfaces and the temp file is removed
	s.ErrorContains(err, "boom")
	fs.AssertExpectations(s.T())
}

func (s *StoreTestSuite) TestMemoryStore() {
	st := NewMemoryStore(Record{})
	in := Record{Revision: "r1", Overrides: podconfig.Overrides{Domain: podconfig.Ptr("example.org")}}

	s.Require().NoError(st.Save(in))
	*in.Overrides.Domain = "changed.org"

	out, err := st.Load()
	s.Require().NoError(err)
	s.Equal("example.org", *out.Overrides.Domain)
	s.EqualValues(1, st.Saves())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
