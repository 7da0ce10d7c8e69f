// Package embedding provides text embedding backends for the semantic
// table index. Providers are selected by configuration and share a common
// interface so the index never knows which backend produced a vector.
package embedding

import (
	"context"
	"strings"

	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/errors"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// GenerateEmbedding generates an embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// GetName returns the provider name for identification
	GetName() string
}

// NewProvider creates an embedding provider from configuration
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeEmbedding,
			"unsupported embedding provider: %s", cfg.Provider)
	}
}
