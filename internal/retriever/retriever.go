// Package retriever selects the tables most relevant to the current
// question. Recent user questions are folded into the search text so that
// follow-ups like "what about private schools?" keep their subject.
package retriever

import (
	"context"
	"strings"

	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/index"
	"github.com/edstats/schema-chat/internal/logging"
)

const (
	// DefaultWindow is how many recent user turns (including the current
	// question) contribute to the search text
	DefaultWindow = 4

	// DefaultTopK is how many tables are surfaced to the agent
	DefaultTopK = 3
)

// Searcher is the subset of the semantic index the retriever needs
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Match, error)
}

// Retriever ranks tables for a question against conversation history
type Retriever struct {
	searcher Searcher
	window   int
	topK     int
	logger   *logging.Logger
}

// New creates a retriever with the default window and result count
func New(searcher Searcher, logger *logging.Logger) *Retriever {
	return &Retriever{
		searcher: searcher,
		window:   DefaultWindow,
		topK:     DefaultTopK,
		logger:   logger,
	}
}

// SearchText builds the index query from history and the current question:
// the last window-1 prior user questions, oldest first, then the question,
// joined by single spaces.
func (r *Retriever) SearchText(history []conversation.Turn, question string) string {
	prior := conversation.RecentUserContents(history, r.window-1)

	parts := make([]string, 0, len(prior)+1)
	parts = append(parts, prior...)
	parts = append(parts, question)

	return strings.Join(parts, " ")
}

// RelevantTables returns the names of the tables most relevant to the
// question, best match first.
func (r *Retriever) RelevantTables(
	ctx context.Context,
	history []conversation.Turn,
	question string,
) ([]string, error) {
	searchText := r.SearchText(history, question)

	matches, err := r.searcher.Search(ctx, searchText, r.topK)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m.Document.TableName)
	}

	r.logger.WithField("tables", strings.Join(tables, ",")).
		Debugf("Retrieved relevant tables for question")

	return tables, nil
}
