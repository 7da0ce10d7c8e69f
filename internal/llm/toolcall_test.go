package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToolCall(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ToolCall
	}{
		{
			name: "nested function object",
			raw:  `{"id":"call_1","type":"function","function":{"name":"execute_query","arguments":"{\"query\":\"SELECT 1\"}"}}`,
			expected: ToolCall{
				ID:        "call_1",
				Name:      "execute_query",
				Arguments: `{"query":"SELECT 1"}`,
			},
		},
		{
			name: "flat name with args object",
			raw:  `{"id":"call_2","name":"get_schema","args":{"tables":"school_main"}}`,
			expected: ToolCall{
				ID:        "call_2",
				Name:      "get_schema",
				Arguments: `{"tables":"school_main"}`,
			},
		},
		{
			name: "flat name with input key",
			raw:  `{"id":"call_3","name":"list_tables","input":{}}`,
			expected: ToolCall{
				ID:        "call_3",
				Name:      "list_tables",
				Arguments: `{}`,
			},
		},
		{
			name: "missing arguments defaults to empty object",
			raw:  `{"id":"call_4","function":{"name":"list_tables"}}`,
			expected: ToolCall{
				ID:        "call_4",
				Name:      "list_tables",
				Arguments: `{}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := NormalizeToolCall(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, call)
		})
	}
}

func TestNormalizeToolCall_UnrecognizedShape(t *testing.T) {
	_, err := NormalizeToolCall(json.RawMessage(`{"id":"call_5","payload":"x"}`))
	require.Error(t, err)

	// The diagnostic names the keys that were present
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "payload")
}

func TestNormalizeToolCall_NotAnObject(t *testing.T) {
	_, err := NormalizeToolCall(json.RawMessage(`"execute_query"`))
	assert.Error(t, err)
}
