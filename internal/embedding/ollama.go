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
	defaultOllamaBaseURL = "http://localhost:11434"
	ollamaEmbedTimeout   = 60 * time.Second
)

// OllamaProvider generates embeddings through a local Ollama server
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaProvider creates an Ollama embedding provider
func NewOllamaProvider(cfg config.EmbeddingConfig) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	return &OllamaProvider{
		baseURL:    baseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client: &http.Client{
			Timeout: ollamaEmbedTimeout,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenerateEmbedding generates an embedding for the given text
func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, p.dimensions), nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{
		Model:  p.model,
		Prompt: text,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to marshal embedding request")
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to create embedding request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "embedding request failed").
			WithSuggestion("Check that Ollama is running (ollama serve)")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeEmbedding,
			"embedding backend returned status %d", resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to decode embedding response")
	}

	if len(embedResp.Embedding) == 0 {
		return nil, errors.New(errors.ErrTypeEmbedding, "embedding backend returned empty vector")
	}

	return embedResp.Embedding, nil
}

// GetDimensions returns the configured embedding dimensionality
func (p *OllamaProvider) GetDimensions() int {
	return p.dimensions
}

// GetName returns the provider name for identification
func (p *OllamaProvider) GetName() string {
	return "ollama:" + p.model
}
