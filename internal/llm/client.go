package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/errors"
)

// Supported chat-model providers
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL = "https://api.deepseek.com"
	defaultOllamaBaseURL   = "http://localhost:11434/v1"

	chatTimeout = 120 * time.Second
)

// Client implements the Service interface against an OpenAI-compatible API
type Client struct {
	provider   string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a chat client from configuration, applying
// provider-specific defaults and credential checks.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	provider := strings.ToLower(cfg.Provider)
	baseURL := cfg.BaseURL

	switch provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeLLM, "OpenAI API key is not set").
				WithSuggestion("Set SCHEMA_CHAT_LLM_API_KEY")
		}

		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
	case ProviderDeepSeek:
		if cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeLLM, "DeepSeek API key is not set").
				WithSuggestion("Set SCHEMA_CHAT_LLM_API_KEY")
		}

		if baseURL == "" {
			baseURL = defaultDeepSeekBaseURL
		}
	case ProviderOllama:
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
	default:
		return nil, errors.Newf(errors.ErrTypeLLM, "unsupported provider: %s", cfg.Provider)
	}

	if cfg.Model == "" {
		return nil, errors.New(errors.ErrTypeLLM, "model name is required").
			WithSuggestion("Set SCHEMA_CHAT_LLM_MODEL or pass --model")
	}

	return &Client{
		provider: provider,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: chatTimeout,
		},
	}, nil
}

// Provider returns the backend name
func (c *Client) Provider() string {
	return c.provider
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Wire structures for the OpenAI-compatible chat completions endpoint
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string            `json:"role"`
			Content   string            `json:"content"`
			ToolCalls []json.RawMessage `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat sends the transcript and tool definitions to the backend
func (c *Client) Chat(ctx context.Context, messages []Message, tools []Tool) (*Completion, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    toWireMessages(messages),
		Tools:       toWireTools(tools),
		Temperature: 0,
	}

	respBody, err := c.makeRequest(ctx, "/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}

	var response chatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to parse chat response")
	}

	if response.Error != nil {
		return nil, errors.Newf(errors.ErrTypeLLM, "backend error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return nil, errors.New(errors.ErrTypeLLM, "backend returned no choices")
	}

	choice := response.Choices[0]

	completion := &Completion{
		Message: Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		},
		FinishReason: choice.FinishReason,
	}

	for _, raw := range choice.Message.ToolCalls {
		call, err := NormalizeToolCall(raw)
		if err != nil {
			return nil, err
		}

		completion.Message.ToolCalls = append(completion.Message.ToolCalls, call)
	}

	if response.Usage != nil {
		completion.Usage = Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
			Exact:            c.provider == ProviderOpenAI,
		}
	}

	return completion, nil
}

func toWireMessages(messages []Message) []wireMessage {
	wire := make([]wireMessage, 0, len(messages))

	for _, m := range messages {
		wm := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}

		for _, call := range m.ToolCalls {
			var wtc wireToolCall
			wtc.ID = call.ID
			wtc.Type = "function"
			wtc.Function.Name = call.Name
			wtc.Function.Arguments = call.Arguments

			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}

		wire = append(wire, wm)
	}

	return wire
}

func toWireTools(tools []Tool) []wireTool {
	if len(tools) == 0 {
		return nil
	}

	wire := make([]wireTool, 0, len(tools))

	for _, t := range tools {
		wire = append(wire, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return wire
}

// makeRequest makes an HTTP request to the chat backend
func (c *Client) makeRequest(ctx context.Context, endpoint string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "chat request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeLLM,
			"chat request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
