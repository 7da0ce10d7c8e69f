package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edstats/schema-chat/internal/llm"
)

// Tool names exposed to the model
const (
	ToolListTables   = "list_tables"
	ToolGetSchema    = "get_schema"
	ToolExecuteQuery = "execute_query"
)

// toolDefinitions returns the three database tools the agent is restricted to
func toolDefinitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        ToolListTables,
			Description: "List the names of all tables available in the database.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ToolGetSchema,
			Description: "Get the schema (CREATE TABLE statement and column descriptions) for a comma-separated list of tables.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tables": map[string]interface{}{
						"type":        "string",
						"description": "Comma-separated table names",
					},
				},
				"required": []string{"tables"},
			},
		},
		{
			Name:        ToolExecuteQuery,
			Description: "Execute a single read-only SQL query and return the results as text.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The SQL query to execute",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// dispatchTool executes one tool call and returns the content to feed back
// to the model. Tool failures become error text in the transcript so the
// model can attempt its one correction; they never abort the run.
func (c *Controller) dispatchTool(ctx context.Context, call llm.ToolCall) string {
	result, err := c.runTool(ctx, call)
	if err != nil {
		c.logger.WithField("tool", call.Name).Warnf("Tool call failed: %v", err)
		return fmt.Sprintf("Error: %v", err)
	}

	return result
}

func (c *Controller) runTool(ctx context.Context, call llm.ToolCall) (string, error) {
	switch call.Name {
	case ToolListTables:
		return c.listTables(ctx)
	case ToolGetSchema:
		return c.getSchema(ctx, call.Arguments)
	case ToolExecuteQuery:
		return c.executeQuery(ctx, call.Arguments)
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func (c *Controller) listTables(ctx context.Context) (string, error) {
	tables, err := c.db.ListUsableTables(ctx)
	if err != nil {
		return "", err
	}

	return strings.Join(tables, ", "), nil
}

func (c *Controller) getSchema(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Tables string `json:"tables"`
	}

	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if strings.TrimSpace(args.Tables) == "" {
		return "", fmt.Errorf("no tables specified")
	}

	var blocks []string

	for _, table := range strings.Split(args.Tables, ",") {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}

		ddl, err := c.db.TableDDL(ctx, table)
		if err != nil {
			blocks = append(blocks, fmt.Sprintf("Error for %s: %v", table, err))
			continue
		}

		blocks = append(blocks, ddl)
	}

	return strings.Join(blocks, "\n\n"), nil
}

func (c *Controller) executeQuery(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}

	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if strings.TrimSpace(args.Query) == "" {
		return "", fmt.Errorf("no query specified")
	}

	return c.db.ExecuteQuery(ctx, args.Query)
}
