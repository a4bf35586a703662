package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/faqrag/engine/internal/logger"
	ollamaapi "github.com/ollama/ollama/api"
)

// OllamaChat implements Chat against a locally hosted Ollama model.
type OllamaChat struct {
	client    *ollamaapi.Client
	modelName string
	modelID   string
}

// NewOllamaChat builds a chat client backed by a local Ollama daemon.
func NewOllamaChat(baseURL, modelName, modelID string) (*OllamaChat, error) {
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
	return &OllamaChat{
		client:    ollamaapi.NewClient(u, http.DefaultClient),
		modelName: modelName,
		modelID:   modelID,
	}, nil
}

func (c *OllamaChat) buildRequest(messages []Message, opts *Options) *ollamaapi.ChatRequest {
	streamFlag := false
	req := &ollamaapi.ChatRequest{
		Model:    c.modelName,
		Messages: convertMessages(messages),
		Stream:   &streamFlag,
		Options:  make(map[string]interface{}),
	}
	if opts != nil {
		if opts.Temperature > 0 {
			req.Options["temperature"] = opts.Temperature
		}
		if opts.TopP > 0 {
			req.Options["top_p"] = opts.TopP
		}
		if opts.MaxTokens > 0 {
			req.Options["num_predict"] = opts.MaxTokens
		}
		if opts.JSONMode {
			req.Format = []byte(`"json"`)
		}
	}
	return req
}

// Chat sends a non-streaming chat completion request.
func (c *OllamaChat) Chat(ctx context.Context, messages []Message, opts *Options) (*Response, error) {
	req := c.buildRequest(messages, opts)

	logger.GetLogger(ctx).Infof("sending chat request to ollama model %s", c.modelName)

	var content string
	err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	return &Response{Content: content}, nil
}

// GetModelName returns the backend model name.
func (c *OllamaChat) GetModelName() string { return c.modelName }

func convertMessages(messages []Message) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollamaapi.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
