package embedding

import (
	"context"
	"fmt"

	"github.com/faqrag/engine/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder against any OpenAI-compatible
// embeddings endpoint (OpenAI itself, or a compatible gateway).
type OpenAIEmbedder struct {
	client     *openai.Client
	modelName  string
	dimensions int
	modelID    string
}

// NewOpenAIEmbedder builds an OpenAI-compatible embedder.
func NewOpenAIEmbedder(apiKey, baseURL, modelName string, dimensions int, modelID string) (*OpenAIEmbedder, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		modelName:  modelName,
		dimensions: dimensions,
		modelID:    modelID,
	}, nil
}

// Embed converts a single piece of text into a vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text}, isQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// BatchEmbed converts multiple texts into vectors in one request.
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: prefixForEmbedding(texts, isQuery),
		Model: openai.EmbeddingModel(e.modelName),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		logger.GetLogger(ctx).Errorf("OpenAIEmbedder CreateEmbeddings failed: %v", err)
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	vectors := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		vectors = append(vectors, d.Embedding)
	}
	return vectors, nil
}

// GetModelName returns the backend model name.
func (e *OpenAIEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the vector dimensionality.
func (e *OpenAIEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the configured model id.
func (e *OpenAIEmbedder) GetModelID() string { return e.modelID }
