package socket_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/podcfg/internal/proc"
	"github.com/lc/podcfg/internal/socket"
)

type SocketTestSuite struct {
	suite.Suite
	sockPath string
	running  proc.Static
	sock     *socket.Socket
}

func (s *SocketTestSuite) SetupTest() {
	// unix socket paths are limited to ~104 bytes, keep the dir short
	dir, err := os.MkdirTemp("", "podcfg-sock-*")
	s.Require().NoError(err)
	s.T().Cleanup(func() { os.RemoveAll(dir) })

	s.sockPath = filepath.Join(dir, "podcfgd.sock")
	s.running = true
	s.sock = socket.New(s.config(), s.running)
}

func (s *SocketTestSuite) config() *socket.Config {
	cfg := socket.DefaultConfig()
	cfg.StartupTimeout = 500 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond
	return cfg
}

func (s *SocketTestSuite) TestDefaultConfig() {
	cfg := socket.DefaultConfig()

	s.Equal(5*time.Second, cfg.StartupTimeout)
	s.Equal(250*time.Millisecond, cfg.RetryInterval)
	s.Equal("podcfgd", cfg.ProcessName)
	s.Equal(2*time.Second, cfg.Grace)
	s.Contains([]os.FileMode{0o666, 0o600}, cfg.Permissions)
}

func (s *SocketTestSuite) TestListen() {
	testCases := []struct {
		name        string
		setup       func() error
		expectError string
	}{
		{
			name:  "successful listen",
			setup: func() error { return nil },
		},
		{
			name: "directory is a file",
			setup: func() error {
				dir := filepath.Dir(s.sockPath)
				if err := os.RemoveAll(dir); err != nil {
					return err
				}
				return os.WriteFile(dir, []byte("blocking"), 0o644)
			},
			expectError: "creating socket directory",
		},
		{
			name: "socket already in use",
			setup: func() error {
				l, err := net.Listen("unix", s.sockPath)
				if err != nil {
					return err
				}
				s.T().Cleanup(func() { l.Close() })
				return nil
			},
			expectError: "address already in use",
		},
		{
			name: "stale socket file is replaced",
			setup: func() error {
				return os.WriteFile(s.sockPath, nil, 0o600)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.Require().NoError(tc.setup(), "setup failed")

			l, err := s.sock.Listen(s.sockPath)

			if tc.expectError != "" {
				s.Error(err)
				s.Contains(err.Error(), tc.expectError)
				return
			}
			s.Require().NoError(err)
			defer l.Close()

			fi, err := os.Stat(s.sockPath)
			s.Require().NoError(err)
			s.Equal(s.config().Permissions, fi.Mode().Perm())
		})
	}
}

type cancelContextKey string

func (s *SocketTestSuite) TestConnect() {
	var cancelKey cancelContextKey = "cancel"

	testCases := []struct {
		name        string
		setup       func(context.Context) error
		running     proc.Static
		expectError string
	}{
		{
			name: "successful connection",
			setup: func(_ context.Context) error {
				l, err := s.sock.Listen(s.sockPath)
				if err != nil {
					return err
				}
				go func() {
					defer l.Close()
					if conn, _ := l.Accept(); conn != nil {
						conn.Close()
					}
				}()
				return nil
			},
			running: true,
		},
		{
			name:        "daemon not running",
			setup:       func(_ context.Context) error { return nil },
			running:     false,
			expectError: "daemon not running",
		},
		{
			name: "context cancelled",
			setup: func(ctx context.Context) error {
				if cancel, ok := ctx.Value(cancelKey).(context.CancelFunc); ok {
					cancel()
				}
				return nil
			},
			running:     true,
			expectError: "context canceled",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.sock = socket.New(s.config(), tc.running)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			ctx = context.WithValue(ctx, cancelKey, cancel)
			defer cancel()

			s.Require().NoError(tc.setup(ctx), "setup failed")

			conn, err := s.sock.Connect(ctx, s.sockPath)

			if tc.expectError != "" {
				s.Error(err)
				s.Contains(err.Error(), tc.expectError)
				s.Nil(conn)
				return
			}
			s.Require().NoError(err)
			conn.Close()
		})
	}
}

func (s *SocketTestSuite) TestConnectWaitsForLateListener() {
	// Given a daemon that starts listening after a delay
	cfg := s.config()
	cfg.StartupTimeout = 2 * time.Second
	cfg.RetryInterval = 100 * time.Millisecond
	s.sock = socket.New(cfg, proc.Static(true))

	go func() {
		time.Sleep(500 * time.Millisecond)
		l, err := s.sock.Listen(s.sockPath)
		if err != nil {
			return
		}
		defer l.Close()
		if conn, _ := l.Accept(); conn != nil {
			conn.Close()
		}
	}()

	// When connecting right away
	start := time.Now()
	conn, err := s.sock.Connect(context.Background(), s.sockPath)
	elapsed := time.Since(start)

	// Then the client retries until the listener is up
	s.Require().NoError(err)
	conn.Close()
	s.GreaterOrEqual(elapsed, 500*time.Millisecond)
	s.Less(elapsed, 2*time.Second)
}

func TestSocketSuite(t *testing.T) {
	suite.Run(t, new(SocketTestSuite))
}
