// Package lexical provides an Elasticsearch-backed implementation of
// interfaces.DocumentStore's full-text search surface, selected by
// config as an alternative to the Postgres tsvector path (spec §4.4
// Lexical search; SPEC_FULL DOMAIN STACK). Only the search half of the
// interface is meaningful here — GetByID/GetByIDs are satisfied by
// delegating to the document store backing the actual document
// content, since Elasticsearch in this deployment shape is a search
// index over the same documents, not the system of record.
package lexical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// ElasticsearchSearcher implements the lexical-search half of
// interfaces.DocumentStore against an Elasticsearch index.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	index  string
	docs   interfaces.DocumentStore // delegate for GetByID/GetByIDs
}

// NewElasticsearchSearcher builds a searcher against the given ES
// addresses/index, delegating id-based lookups to docs.
func NewElasticsearchSearcher(addresses []string, index string, docs interfaces.DocumentStore) (*ElasticsearchSearcher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	return &ElasticsearchSearcher{client: client, index: index, docs: docs}, nil
}

func (e *ElasticsearchSearcher) GetByID(ctx context.Context, id string) (*interfaces.DocumentRecord, error) {
	return e.docs.GetByID(ctx, id)
}

func (e *ElasticsearchSearcher) GetByIDs(ctx context.Context, ids []string) ([]*interfaces.DocumentRecord, error) {
	return e.docs.GetByIDs(ctx, ids)
}

// FullTextSearch queries the index's "content" field with a match query,
// optionally filtered by metadata.category, ranked by ES's own _score
// (spec §4.4 step 2: "ranked by text-relevance score").
func (e *ElasticsearchSearcher) FullTextSearch(ctx context.Context, query, language, categoryFilter string, limit int) ([]*interfaces.DocumentRecord, error) {
	must := []map[string]interface{}{
		{"match": map[string]interface{}{"content": query}},
	}
	if categoryFilter != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"metadata.category.keyword": categoryFilter},
		})
	}
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode es query: %w", err)
	}

	resp, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		logger.GetLogger(ctx).Warnf("elasticsearch search failed, falling back to substring scan: %v", err)
		return e.docs.SubstringSearch(ctx, query, categoryFilter, limit)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		logger.GetLogger(ctx).Warnf("elasticsearch returned status %s, falling back to substring scan", resp.Status())
		return e.docs.SubstringSearch(ctx, query, categoryFilter, limit)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode es response: %w", err)
	}

	out := make([]*interfaces.DocumentRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var src struct {
			Content  string                 `json:"content"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		_ = json.Unmarshal(hit.Source, &src)
		out = append(out, &interfaces.DocumentRecord{
			ID: hit.ID, Content: src.Content, Metadata: src.Metadata, Rank: hit.Score,
		})
	}
	return out, nil
}

// SubstringSearch delegates straight to the backing document store; ES
// is only ever the ranked full-text path.
func (e *ElasticsearchSearcher) SubstringSearch(ctx context.Context, query, categoryFilter string, limit int) ([]*interfaces.DocumentRecord, error) {
	return e.docs.SubstringSearch(ctx, query, categoryFilter, limit)
}

var _ interfaces.DocumentStore = (*ElasticsearchSearcher)(nil)
