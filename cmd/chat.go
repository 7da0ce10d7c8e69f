package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/edstats/schema-chat/internal/agent"
	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-and-answer session",
	Long: `Start a REPL that answers questions about the database. History is kept
for the whole session so follow-up questions work. Type "exit" or "quit"
to leave.

Examples:
  schema-chat chat
  schema-chat chat --db schools.db --provider ollama --model qwen2.5
  schema-chat chat --mode stream`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess := session.New(cfg, logging.GetLogger())
	defer sess.Close()

	fmt.Printf("Connected to %s (%s). Ask a question, or type 'exit' to leave.\n",
		cfg.Database.Path, cfg.Database.Driver)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		if question == "exit" || question == "quit" {
			break
		}

		answer, err := askOnce(cmd, cfg, sess, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(answer)

		if tables := sess.LastRelevantTables(); len(tables) > 0 {
			fmt.Printf("[relevant tables: %s]\n", strings.Join(tables, ", "))
		}

		if usage := sess.LastUsage(); usage != nil {
			fmt.Println(formatUsage(usage))
		}

		fmt.Println()
	}

	return scanner.Err()
}

// askOnce runs one question, rendering a spinner in invoke mode and
// per-step progress in stream mode
func askOnce(cmd *cobra.Command, cfg *config.Config, sess *session.Session, question string) (string, error) {
	if cfg.Agent.Mode == "stream" {
		return sess.Ask(cmd.Context(), question, renderUnit)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Thinking..."
	s.Start()

	answer, err := sess.Ask(cmd.Context(), question, nil)

	s.Stop()

	return answer, err
}

// renderUnit prints one streaming progress event
func renderUnit(u agent.Unit) {
	switch u.Kind {
	case agent.UnitToolCall:
		fmt.Printf("Step %d • Calling tool: %s\n", u.Step, u.ToolName)
	case agent.UnitToolResult:
		fmt.Printf("Step %d ✓ Tool finished: %s\n", u.Step, u.ToolName)
	case agent.UnitLimitNotice:
		fmt.Printf("⚠ %s\n", u.Content)
	case agent.UnitMessage:
		// The final message is printed as the answer by the caller
	}
}

func formatUsage(usage *conversation.TokenUsage) string {
	return fmt.Sprintf("[tokens: %d in / %d out / %d total • %.1fs]",
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens, usage.ElapsedSeconds)
}
