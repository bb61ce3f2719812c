package testutil

import (
	"context"

	"topicrelay/internal/platform"
	"topicrelay/internal/turnstile"

	"github.com/stretchr/testify/mock"
)

// MockAPI is a mock for the raw Bot API channel
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Raw(method string, payload interface{}) ([]byte, error) {
	args := m.Called(method, payload)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

// CallsFor returns the payloads of every recorded call to method, in call order.
// Read it only after the code under test has finished.
func (m *MockAPI) CallsFor(method string) []platform.Params {
	var out []platform.Params
	for _, call := range m.Calls {
		if call.Method != "Raw" || call.Arguments.String(0) != method {
			continue
		}
		if p, ok := call.Arguments.Get(1).(platform.Params); ok {
			out = append(out, p)
		}
	}
	return out
}

// Methods returns the Bot API method names called, in call order
func (m *MockAPI) Methods() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "Raw" {
			out = append(out, call.Arguments.String(0))
		}
	}
	return out
}

// MockVerifier is a mock for the challenge verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (*turnstile.Response, error) {
	args := m.Called(ctx, token, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*turnstile.Response), args.Error(1)
}

// MockPurger is a mock for a store that drops expired entries
type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
