package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentUserContents(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "U1"},
		{Role: RoleAssistant, Content: "A1"},
		{Role: RoleUser, Content: "U2"},
		{Role: RoleAssistant, Content: "A2"},
		{Role: RoleUser, Content: "U3"},
		{Role: RoleUser, Content: "U4"},
		{Role: RoleUser, Content: "U5"},
	}

	tests := []struct {
		name     string
		turns    []Turn
		n        int
		expected []string
	}{
		{
			name:     "last three of five",
			turns:    history,
			n:        3,
			expected: []string{"U3", "U4", "U5"},
		},
		{
			name:     "fewer turns than window",
			turns:    history[:2],
			n:        3,
			expected: []string{"U1"},
		},
		{
			name:     "empty history",
			turns:    nil,
			n:        3,
			expected: nil,
		},
		{
			name:     "zero window",
			turns:    history,
			n:        0,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RecentUserContents(tt.turns, tt.n))
		})
	}
}

func TestRecentUserContents_SkipsEmptyAndAssistant(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: ""},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "question"},
	}

	assert.Equal(t, []string{"question"}, RecentUserContents(turns, 3))
}
