package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edstats/schema-chat/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.EmbeddingConfig
		expectError bool
	}{
		{
			name: "ollama provider",
			cfg:  config.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text"},
		},
		{
			name: "openai provider with key",
			cfg:  config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "sk-test"},
		},
		{
			name:        "openai provider without key",
			cfg:         config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"},
			expectError: true,
		},
		{
			name:        "unsupported provider",
			cfg:         config.EmbeddingConfig{Provider: "cohere"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, provider)
		})
	}
}

func TestOllamaProvider_GenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(config.EmbeddingConfig{
		Provider: "ollama",
		Model:    "nomic-embed-text",
		BaseURL:  server.URL,
	})

	emb, err := provider.GenerateEmbedding(context.Background(), "Table: school_main")
	require.NoError(t, err)
	assert.Len(t, emb, 3)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOllamaProvider(config.EmbeddingConfig{
		Provider: "ollama",
		Model:    "nomic-embed-text",
		BaseURL:  server.URL,
	})

	_, err := provider.GenerateEmbedding(context.Background(), "text")
	assert.Error(t, err)
}

func TestOllamaProvider_EmptyText(t *testing.T) {
	provider := NewOllamaProvider(config.EmbeddingConfig{
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		Dimensions: 4,
	})

	// Empty text short-circuits to a zero vector without a network call
	emb, err := provider.GenerateEmbedding(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, emb)
}

func TestOpenAIProvider_GenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.6]}]}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(config.EmbeddingConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	emb, err := provider.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, emb)
}

func TestOpenAIProvider_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(config.EmbeddingConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	_, err = provider.GenerateEmbedding(context.Background(), "hello")
	assert.Error(t, err)
}
