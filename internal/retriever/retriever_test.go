package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/index"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/schema"
)

type stubSearcher struct {
	lastQuery string
	lastK     int
	matches   []index.Match
	err       error
}

func (s *stubSearcher) Search(_ context.Context, query string, k int) ([]index.Match, error) {
	s.lastQuery = query
	s.lastK = k

	if s.err != nil {
		return nil, s.err
	}

	return s.matches, nil
}

func TestSearchText(t *testing.T) {
	r := New(&stubSearcher{}, logging.GetLogger())

	tests := []struct {
		name     string
		history  []conversation.Turn
		question string
		expected string
	}{
		{
			name: "window keeps last three prior user turns",
			history: []conversation.Turn{
				{Role: conversation.RoleUser, Content: "U1"},
				{Role: conversation.RoleAssistant, Content: "A1"},
				{Role: conversation.RoleUser, Content: "U2"},
				{Role: conversation.RoleUser, Content: "U3"},
				{Role: conversation.RoleUser, Content: "U4"},
				{Role: conversation.RoleUser, Content: "U5"},
			},
			question: "Q",
			expected: "U3 U4 U5 Q",
		},
		{
			name: "short history",
			history: []conversation.Turn{
				{Role: conversation.RoleUser, Content: "U1"},
			},
			question: "Q",
			expected: "U1 Q",
		},
		{
			name:     "no history",
			history:  nil,
			question: "Q",
			expected: "Q",
		},
		{
			name: "assistant turns never contribute",
			history: []conversation.Turn{
				{Role: conversation.RoleAssistant, Content: "A1"},
				{Role: conversation.RoleAssistant, Content: "A2"},
			},
			question: "Q",
			expected: "Q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.SearchText(tt.history, tt.question))
		})
	}
}

func TestRelevantTables(t *testing.T) {
	searcher := &stubSearcher{matches: []index.Match{
		{Document: schema.Document{TableName: "school_costs"}, Score: 0.9},
		{Document: schema.Document{TableName: "school_main"}, Score: 0.7},
	}}

	r := New(searcher, logging.GetLogger())

	history := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "tuition in California"},
	}

	tables, err := r.RelevantTables(context.Background(), history, "and out of state?")
	require.NoError(t, err)

	assert.Equal(t, []string{"school_costs", "school_main"}, tables)
	assert.Equal(t, "tuition in California and out of state?", searcher.lastQuery)
	assert.Equal(t, DefaultTopK, searcher.lastK)
}

func TestRelevantTables_SearchError(t *testing.T) {
	searcher := &stubSearcher{err: assert.AnError}
	r := New(searcher, logging.GetLogger())

	_, err := r.RelevantTables(context.Background(), nil, "question")
	assert.Error(t, err)
}
