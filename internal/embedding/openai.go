package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/errors"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openaiEmbedTimeout   = 60 * time.Second
)

// OpenAIProvider generates embeddings through the OpenAI embeddings API
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrTypeEmbedding, "OpenAI embedding API key is not set").
			WithSuggestion("Set SCHEMA_CHAT_EMBEDDING_API_KEY")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIProvider{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client: &http.Client{
			Timeout: openaiEmbedTimeout,
		},
	}, nil
}

type openaiEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// GenerateEmbedding generates an embedding for the given text
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, p.dimensions), nil
	}

	body, err := json.Marshal(openaiEmbedRequest{
		Model: p.model,
		Input: text,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to marshal embedding request")
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to create embedding request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeEmbedding,
			"embedding backend returned status %d", resp.StatusCode)
	}

	var embedResp openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to decode embedding response")
	}

	if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
		return nil, errors.New(errors.ErrTypeEmbedding, "embedding backend returned empty vector")
	}

	return embedResp.Data[0].Embedding, nil
}

// GetDimensions returns the configured embedding dimensionality
func (p *OpenAIProvider) GetDimensions() int {
	return p.dimensions
}

// GetName returns the provider name for identification
func (p *OpenAIProvider) GetName() string {
	return "openai:" + p.model
}
