// Package conversation holds the in-memory chat history for a session.
// History is append-only and lives only as long as the session.
package conversation

// Role identifies the author of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TokenUsage summarizes token consumption for the run that produced a turn
type TokenUsage struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Turn represents a single conversation turn
type Turn struct {
	Role    Role
	Content string
	Usage   *TokenUsage
}

// RecentUserContents returns the contents of the last n user-authored turns
// in chronological order. When fewer than n exist, all are returned.
func RecentUserContents(turns []Turn, n int) []string {
	if n <= 0 {
		return nil
	}

	var contents []string

	for _, turn := range turns {
		if turn.Role == RoleUser && turn.Content != "" {
			contents = append(contents, turn.Content)
		}
	}

	if len(contents) > n {
		contents = contents[len(contents)-n:]
	}

	return contents
}
