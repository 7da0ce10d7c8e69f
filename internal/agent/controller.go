// Package agent drives the tool-calling loop that turns a natural-language
// question into SQL and an answer. The controller owns the system prompt,
// binds the model to exactly three database tools, and enforces the step
// ceilings; the query policy itself (one correction, no writes, row limits)
// is stated to the model in the prompt.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/llm"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/observer"
)

// State tracks where a run is in its lifecycle
type State string

const (
	StateIdle              State = "IDLE"
	StatePromptBuilt       State = "PROMPT_BUILT"
	StateToolLoopRunning   State = "TOOL_LOOP_RUNNING"
	StateCompleted         State = "COMPLETED"
	StateStepLimitExceeded State = "STEP_LIMIT_EXCEEDED"
	StateToolError         State = "TOOL_ERROR"
)

const (
	// invokeStepLimit bounds model round-trips in single-shot mode
	invokeStepLimit = 50

	// DefaultMaxToolSteps bounds delivered units in streaming mode
	DefaultMaxToolSteps = 1000

	// DefaultRowLimit is the result cap stated in the prompt
	DefaultRowLimit = 5

	// displayTruncateChars bounds tool args and results in rendered events.
	// Payloads sent to tools and the model are never truncated.
	displayTruncateChars = 1200
)

// FallbackAnswer replaces an empty final answer so a run never returns
// nothing
const FallbackAnswer = "Query processing stopped - may need simplification or database contains complex data."

// RunConfig carries the per-question parameters of one run. Built fresh for
// every question and immutable during the run.
type RunConfig struct {
	Dialect        string
	RowLimit       int
	RelevantTables []string
	AllTables      []string
	MaxToolSteps   int
}

// Result is the outcome of one run
type Result struct {
	Answer string
	State  State
}

// Database is the subset of database.DB the agent tools need
type Database interface {
	ListUsableTables(ctx context.Context) ([]string, error)
	TableDDL(ctx context.Context, table string) (string, error)
	ExecuteQuery(ctx context.Context, query string) (string, error)
}

// Controller runs the agent loop against one database and model
type Controller struct {
	model  llm.Service
	db     Database
	logger *logging.Logger
	state  State
}

// NewController creates an agent controller
func NewController(model llm.Service, db Database, logger *logging.Logger) *Controller {
	return &Controller{
		model:  model,
		db:     db,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the state of the most recent run
func (c *Controller) State() State {
	return c.state
}

const systemPromptTemplate = `
You are an agent designed to interact with a SQL database.
Given an input question, create a syntactically correct %s query to run,
then look at the results of the query and return the answer.

CRITICAL INSTRUCTIONS:
1. First, use list_tables to see available tables
2. Then use get_schema to get the schema of relevant tables
3. Write and execute ONE SQL query using execute_query
4. Return the answer based on the query results
5. If the query fails, try ONCE more with a corrected query, then stop
6. NEVER loop endlessly - if you can't solve it in 2 query attempts, explain the issue

IMPORTANT NOTES:
- Date columns may be stored as TEXT in DD-MM-YYYY format. Treat them as strings.
- Unless the user specifies a number, limit results to %d rows
- Never query for all columns - only ask for relevant ones
- DO NOT make DML statements (INSERT, UPDATE, DELETE, DROP)
- Order results by a relevant column when appropriate

SEMANTIC HINT: The most relevant tables for this query are likely: %s
Start by examining these tables first.

All available tables: %s
`

// BuildSystemPrompt renders the per-question system prompt
func BuildSystemPrompt(cfg RunConfig) string {
	rowLimit := cfg.RowLimit
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	return fmt.Sprintf(systemPromptTemplate,
		cfg.Dialect,
		rowLimit,
		strings.Join(cfg.RelevantTables, ", "),
		strings.Join(cfg.AllTables, ", "),
	)
}

// buildMessages assembles the full transcript for one run: system prompt,
// prior turns, then the current question
func buildMessages(cfg RunConfig, history []conversation.Turn, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: BuildSystemPrompt(cfg),
	})

	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: question,
	})

	return messages
}

// Invoke runs the agent in bounded single-shot mode: model round-trips
// continue until a final answer or the internal step ceiling.
func (c *Controller) Invoke(
	ctx context.Context,
	cfg RunConfig,
	history []conversation.Turn,
	question string,
	obs *observer.Observer,
) (*Result, error) {
	messages := buildMessages(cfg, history, question)
	c.state = StatePromptBuilt

	c.state = StateToolLoopRunning

	var lastContent string

	for step := 0; step < invokeStepLimit; step++ {
		completion, err := c.model.Chat(ctx, messages, toolDefinitions())
		if err != nil {
			c.state = StateToolError
			return nil, errors.Wrap(err, errors.ErrTypeLLM, "agent model call failed")
		}

		recordUsage(obs, messages, completion)

		messages = append(messages, completion.Message)

		if completion.Message.Content != "" {
			lastContent = completion.Message.Content
		}

		if len(completion.Message.ToolCalls) == 0 {
			c.state = StateCompleted

			return &Result{
				Answer: ensureAnswer(lastContent),
				State:  c.state,
			}, nil
		}

		for _, call := range completion.Message.ToolCalls {
			c.logger.WithField("tool", call.Name).Debugf("Dispatching tool call")

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    c.dispatchTool(ctx, call),
			})
		}
	}

	c.state = StateStepLimitExceeded
	c.logger.Warnf("Stopped after %d reasoning steps", invokeStepLimit)

	return &Result{
		Answer: ensureAnswer(lastContent),
		State:  c.state,
	}, nil
}

// recordUsage feeds one exchange into the observer. Backend-reported counts
// are used when exact; otherwise both sides are estimated from text length.
func recordUsage(obs *observer.Observer, sent []llm.Message, completion *llm.Completion) {
	if obs == nil {
		return
	}

	if completion.Usage.Exact {
		obs.AddExact(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
		return
	}

	var prompt strings.Builder
	for _, m := range sent {
		prompt.WriteString(m.Content)
	}

	obs.AddApproximate(prompt.String(), completion.Message.Content)
}

// ensureAnswer guarantees a non-empty answer
func ensureAnswer(content string) string {
	if strings.TrimSpace(content) == "" {
		return FallbackAnswer
	}

	return content
}

// truncateForDisplay bounds a string for rendering and logging
func truncateForDisplay(s string) string {
	if len(s) <= displayTruncateChars {
		return s
	}

	return s[:displayTruncateChars] + "..."
}
