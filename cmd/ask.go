package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and exit",
	Long: `Ask one question about the database and print the answer. Unlike chat,
no history is kept between invocations.

Examples:
  schema-chat ask "how many schools are in Alabama?"
  schema-chat ask --mode stream "which school has the highest in-state tuition?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess := session.New(cfg, logging.GetLogger())
	defer sess.Close()

	answer, err := askOnce(cmd, cfg, sess, question)
	if err != nil {
		return err
	}

	fmt.Println(answer)

	if usage := sess.LastUsage(); usage != nil {
		fmt.Println(formatUsage(usage))
	}

	return nil
}
