package client_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/engine"
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/mocks"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/prosody"
	"github.com/lc/podcfg/internal/store"
	"github.com/lc/podcfg/pkg/api"
	"github.com/lc/podcfg/pkg/client"
)

type ClientTestSuite struct {
	suite.Suite
	eng *engine.Engine
	srv *http.Server
	cli *client.Client
}

func (s *ClientTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "podcfg-cli-*")
	s.Require().NoError(err)
	s.T().Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")

	mgr := &mocks.MockManager{}
	mgr.On("Apply", mock.Anything, mock.Anything).Return(prosody.Result{Changed: true}, nil)

	noStatic := func(jid.Domain) (dialect.Static, error) { return dialect.Static{}, nil }
	s.eng = engine.New(store.NewMemoryStore(store.Record{}), mgr, noStatic, engine.WithReconcileInterval(0))
	s.Require().NoError(s.eng.Run(context.Background()))

	ln, err := net.Listen("unix", path)
	s.Require().NoError(err)
	s.srv = &http.Server{Handler: api.New(s.eng).Handler(), ReadHeaderTimeout: time.Second}
	go func() { _ = s.srv.Serve(ln) }()

	s.cli = client.New(path)
}

func (s *ClientTestSuite) TearDownTest() {
	_ = s.srv.Close()
	s.eng.Close()
}

func (s *ClientTestSuite) TestRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given the daemon runs the defaults
	cur, err := s.cli.Settings(ctx)
	s.Require().NoError(err)
	s.Equal(podconfig.Defaults(), cur.Settings)

	// When the domain and archive retention are changed
	up, err := s.cli.Update(ctx, podconfig.Overrides{
		Domain:                  podconfig.Ptr("example.org"),
		MessageArchiveRetention: podconfig.Ptr("infinite"),
	})
	s.Require().NoError(err)

	// Then the new settings come back and are published
	s.Equal("example.org", up.Settings.Domain.String())
	s.True(up.Settings.MessageArchiveRetention.IsInfinite())
	s.NotEqual(cur.Revision, up.Revision)

	st, err := s.cli.Status(ctx)
	s.Require().NoError(err)
	s.Equal(up.Revision, st.Revision)
	s.EqualValues(2, st.Applies)

	// And reset returns to the defaults
	reset, err := s.cli.Reset(ctx)
	s.Require().NoError(err)
	s.Equal(podconfig.Defaults(), reset.Settings)
	s.Equal(podconfig.Overrides{}, reset.Overrides)
}

func (s *ClientTestSuite) TestInvalidUpdate() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.cli.Update(ctx, podconfig.Overrides{FileSizeLimit: podconfig.Ptr("10 parsecs")})

	var apiErr *client.Error
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusBadRequest, apiErr.Status)
	s.Require().Len(apiErr.Response.Fields, 1)
	s.Equal("file_size_limit", apiErr.Response.Fields[0].Field)
	s.Contains(err.Error(), "file_size_limit")
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
