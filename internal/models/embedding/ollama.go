package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/faqrag/engine/internal/logger"
	ollamaapi "github.com/ollama/ollama/api"
)

// OllamaEmbedder implements Embedder against a locally hosted Ollama
// instance, for deployments that prefer not to call out to a remote API.
type OllamaEmbedder struct {
	client     *ollamaapi.Client
	modelName  string
	dimensions int
	modelID    string
}

// NewOllamaEmbedder builds an embedder backed by a local Ollama daemon.
func NewOllamaEmbedder(baseURL, modelName string, dimensions int, modelID string) (*OllamaEmbedder, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	return &OllamaEmbedder{
		client:     ollamaapi.NewClient(u, http.DefaultClient),
		modelName:  modelName,
		dimensions: dimensions,
		modelID:    modelID,
	}, nil
}

// Embed converts a single piece of text into a vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text}, isQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// BatchEmbed converts multiple texts into vectors via the Ollama
// embeddings endpoint.
func (e *OllamaEmbedder) BatchEmbed(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, &ollamaapi.EmbedRequest{
		Model: e.modelName,
		Input: prefixForEmbedding(texts, isQuery),
	})
	if err != nil {
		logger.GetLogger(ctx).Errorf("OllamaEmbedder Embed failed: %v", err)
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		v := make([]float32, len(e))
		copy(v, e)
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// GetModelName returns the backend model name.
func (e *OllamaEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the vector dimensionality.
func (e *OllamaEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the configured model id.
func (e *OllamaEmbedder) GetModelID() string { return e.modelID }
