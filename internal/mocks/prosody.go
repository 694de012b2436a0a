package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lc/podcfg/internal/prosody"
)

var _ prosody.Manager = (*MockManager)(nil)

// MockManager is a testify mock of prosody.Manager.
type MockManager struct {
	mock.Mock
}

// Apply mocks the Apply method.
func (m *MockManager) Apply(ctx context.Context, text []byte) (prosody.Result, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(prosody.Result), args.Error(1)
}

// Current mocks the Current method.
func (m *MockManager) Current() ([]byte, error) {
	args := m.Called()
	var b []byte
	if args.Get(0) != nil {
		b = args.Get(0).([]byte)
	}
	return b, args.Error(1)
}
