package chat

import (
	"context"
	"fmt"

	"github.com/faqrag/engine/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat implements Chat against any OpenAI-compatible completions
// endpoint. This is the "default OpenAI-compatible" backend branch named
// in SPEC_FULL's domain stack wiring.
type OpenAIChat struct {
	client    *openai.Client
	modelName string
	modelID   string
}

// NewOpenAIChat builds an OpenAI-compatible chat client.
func NewOpenAIChat(apiKey, baseURL, modelName, modelID string) (*OpenAIChat, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		modelID:   modelID,
	}, nil
}

// Chat sends a non-streaming chat completion request.
func (c *OpenAIChat) Chat(ctx context.Context, messages []Message, opts *Options) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: toOpenAIMessages(messages),
	}
	if opts != nil {
		req.Temperature = float32(opts.Temperature)
		req.TopP = float32(opts.TopP)
		req.MaxTokens = opts.MaxTokens
		if opts.JSONMode {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.GetLogger(ctx).Errorf("OpenAIChat CreateChatCompletion failed: %v", err)
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}
	return &Response{Content: resp.Choices[0].Message.Content}, nil
}

// GetModelName returns the backend model name.
func (c *OpenAIChat) GetModelName() string { return c.modelName }

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
