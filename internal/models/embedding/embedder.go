// Package embedding provides pluggable text-vectorization backends used by
// the hybrid retrieval, response cache, and topic-loop detector components.
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Embedder converts text into fixed-dimension vectors for dense retrieval,
// semantic caching, and cross-lingual similarity comparisons. isQuery
// distinguishes a query embedding from a document embedding so asymmetric
// models (e5/bge-style instruction-tuned encoders) place the two in the
// same vector space their index was built with.
type Embedder interface {
	// Embed converts a single piece of text into a vector.
	Embed(ctx context.Context, text string, isQuery bool) ([]float32, error)

	// BatchEmbed converts multiple texts in one round-trip.
	BatchEmbed(ctx context.Context, texts []string, isQuery bool) ([][]float32, error)

	// GetModelName returns the backend model name.
	GetModelName() string

	// GetDimensions returns the vector dimensionality (D = 384 for the
	// default multilingual model).
	GetDimensions() int
}

// queryPassagePrefix returns the e5/bge-style instruction prefix used to
// distinguish a dense query embedding from a document/passage embedding.
// Shared by all three backends so the prefixing convention stays in one
// place instead of being re-decided per backend.
func queryPassagePrefix(isQuery bool) string {
	if isQuery {
		return "query: "
	}
	return "passage: "
}

// prefixForEmbedding applies queryPassagePrefix to every text in a batch
// before it is handed to a backend's embeddings endpoint.
func prefixForEmbedding(texts []string, isQuery bool) []string {
	prefixed := make([]string, len(texts))
	prefix := queryPassagePrefix(isQuery)
	for i, t := range texts {
		prefixed[i] = prefix + t
	}
	return prefixed
}

// Source selects which backend an embedder config targets.
type Source string

const (
	SourceLocal  Source = "local"  // Ollama-hosted local model
	SourceRemote Source = "remote" // hosted API (OpenAI-compatible or Jina)
)

// Provider names a remote API's request/response dialect.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderJina   Provider = "jina"
)

// Config describes how to construct an Embedder.
type Config struct {
	Source     Source
	Provider   Provider
	BaseURL    string
	ModelName  string
	APIKey     string
	Dimensions int
	ModelID    string
}

// NewEmbedder builds an Embedder from config, routing to the backend
// implied by Source/Provider: Ollama for local models, OpenAI-compatible
// and Jina for remote ones.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Source {
	case SourceLocal:
		return NewOllamaEmbedder(cfg.BaseURL, cfg.ModelName, cfg.Dimensions, cfg.ModelID)
	case SourceRemote:
		switch cfg.Provider {
		case ProviderJina:
			return NewJinaEmbedder(cfg.APIKey, cfg.BaseURL, cfg.ModelName, cfg.Dimensions, cfg.ModelID)
		default:
			return NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.ModelName, cfg.Dimensions, cfg.ModelID)
		}
	default:
		return nil, fmt.Errorf("unsupported embedder source: %q", cfg.Source)
	}
}

// DetectProvider infers a Provider from a base URL's host when the caller
// did not configure one explicitly.
func DetectProvider(baseURL string) Provider {
	if strings.Contains(baseURL, "jina.ai") {
		return ProviderJina
	}
	return ProviderOpenAI
}
