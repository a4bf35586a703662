// Package rerank provides the cross-encoder reranking client consumed by
// the Fusion + Reranking component (spec §4.5).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/faqrag/engine/internal/logger"
)

// RankResult pairs a document with its cross-encoder relevance score.
type RankResult struct {
	Index          int     `json:"index"`
	Document       string  `json:"document"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Reranker is the external contract from spec §6:
// rank(query, docs) -> [(score, doc)], sorted descending.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error)
	GetModelName() string
}

// Config describes how to construct a Reranker.
type Config struct {
	BaseURL   string
	APIKey    string
	ModelName string
	ModelID   string
}

// New builds the configured reranker backend. Jina is the only remote
// reranking API wired today; other backends can be added behind the
// same interface.
func New(cfg Config) (Reranker, error) {
	return NewJinaReranker(cfg)
}

// JinaReranker implements Reranker using Jina AI's rerank API.
type JinaReranker struct {
	modelName string
	modelID   string
	apiKey    string
	baseURL   string
	client    *http.Client
}

// JinaRerankRequest is the wire request for Jina's /rerank endpoint.
type JinaRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n,omitempty"`
	ReturnDocuments bool     `json:"return_documents,omitempty"`
}

// JinaRerankResponse is the wire response for Jina's /rerank endpoint.
type JinaRerankResponse struct {
	Model   string       `json:"model"`
	Results []RankResult `json:"results"`
	Usage   struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewJinaReranker creates a new Jina reranker client.
func NewJinaReranker(cfg Config) (*JinaReranker, error) {
	baseURL := "https://api.jina.ai/v1"
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	return &JinaReranker{
		modelName: cfg.ModelName,
		modelID:   cfg.ModelID,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		client:    &http.Client{},
	}, nil
}

// Rerank scores each (query, document) pair and returns results ordered
// by relevance score, descending.
func (r *JinaReranker) Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error) {
	requestBody := &JinaRerankRequest{
		Model:           r.modelName,
		Query:           query,
		Documents:       documents,
		ReturnDocuments: true,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/rerank", r.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))

	logger.GetLogger(ctx).Infof("reranking %d documents against query via jina", len(documents))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.GetLogger(ctx).Errorf("jina rerank API error: status %s, body: %s", resp.Status, string(body))
		return nil, fmt.Errorf("rerank API error: status %s", resp.Status)
	}

	var response JinaRerankResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return response.Results, nil
}

// GetModelName returns the reranking model name.
func (r *JinaReranker) GetModelName() string { return r.modelName }
