package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestMetrics creates collectors on a throwaway registry
func NewTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// NewTestStore creates an in-memory key-value store
func NewTestStore(t *testing.T) *memory.KVStore {
	t.Helper()
	store, err := memory.NewKVStore(1000)
	if err != nil {
		t.Fatalf("create memory store: %v", err)
	}
	return store
}

// NewTestClient wraps api in a call wrapper with the default timeout
func NewTestClient(api platform.API) *platform.Client {
	return platform.NewClient(api, 0, NewTestLogger())
}

// OK builds a successful Bot API response around result
func OK(result any) []byte {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return []byte(fmt.Sprintf(`{"ok":true,"result":%s}`, raw))
}

// Failure builds a rejected Bot API response and the error the raw channel returns with it
func Failure(code int, description string) ([]byte, error) {
	body, _ := json.Marshal(map[string]any{
		"ok":          false,
		"error_code":  code,
		"description": description,
	})
	return body, errors.New("telegram: " + description)
}

// ThreadNotFound is the rejection returned for a deleted thread
func ThreadNotFound() ([]byte, error) {
	return Failure(400, "Bad Request: message thread not found")
}

// Message is a minimal Message result
func Message(id int) map[string]any {
	return map[string]any{"message_id": id}
}

// NewTestMetricsOn creates collectors on reg so a test can gather them
func NewTestMetricsOn(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}
