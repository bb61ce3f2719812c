package handler

import (
	"testing"

	"topicrelay/internal/platform"

	"github.com/stretchr/testify/assert"
)

func TestCleanCallbackData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal string",
			input:    "3f2b8c1e-9d4a-4c8e-b7a1-0e5f6d7c8b9a",
			expected: "3f2b8c1e-9d4a-4c8e-b7a1-0e5f6d7c8b9a",
		},
		{
			name:     "string with whitespace",
			input:    "  test_data  ",
			expected: "test_data",
		},
		{
			name:     "string with newline",
			input:    "test\ndata",
			expected: "testdata",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "string with unprintable characters",
			input:    "test\x00data\x01",
			expected: "testdata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanCallbackData(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func reactionEmoji(v any) string {
	list, _ := v.([]platform.Reaction)
	if len(list) == 0 {
		return ""
	}
	return list[0].Emoji
}
