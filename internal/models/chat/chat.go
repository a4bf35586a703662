// Package chat provides the LLM client interface consumed by the Generation
// Orchestrator, Query Aggregation, Query Expansion, and Classification
// nodes, and by the LLM-backed translator.
package chat

import "context"

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures a single chat call. JSONMode requests the backend
// constrain output to valid JSON where supported.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	JSONMode    bool
}

// Response is a completed (non-streaming) chat result.
type Response struct {
	Content string
}

// Chat is the external LLM contract named in spec §6:
// chat(messages, temperature?, json_mode?) -> {content}.
type Chat interface {
	Chat(ctx context.Context, messages []Message, opts *Options) (*Response, error)
	GetModelName() string
}

// Config describes how to construct a Chat backend.
type Config struct {
	Source    string // "local" (ollama) or "remote" (openai-compatible)
	BaseURL   string
	APIKey    string
	ModelName string
	ModelID   string
}

// New builds a Chat backend from config.
func New(cfg Config) (Chat, error) {
	switch cfg.Source {
	case "local":
		return NewOllamaChat(cfg.BaseURL, cfg.ModelName, cfg.ModelID)
	default:
		return NewOpenAIChat(cfg.APIKey, cfg.BaseURL, cfg.ModelName, cfg.ModelID)
	}
}
