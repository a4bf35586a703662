package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/types/interfaces"
	"github.com/faqrag/engine/internal/utils"
)

// TierAPrefix is the key/value store key prefix for exact-match cache
// entries (spec §6: "Key/value prefix faq_cache:<normalized>").
const TierAPrefix = "faq_cache:"

// SemanticCacheCollection is the default Tier B vector collection name
// (spec §6).
const SemanticCacheCollection = "semantic_cache"

// Manager implements the two-tier Response Cache (spec §4.3).
type Manager struct {
	kv       interfaces.KVStore
	vectors  interfaces.VectorStore
	fallback *lfuFallback

	tierATTL           time.Duration
	similarityThreshold float64
	overlapThreshold    float64
	writeConfidence     float64
	collection          string
	dim                 int
}

// NewManager builds the cache manager. dim is the semantic-cache vector
// dimension (384 for the default multilingual embedder, spec §6).
func NewManager(kv interfaces.KVStore, vectors interfaces.VectorStore,
	tierATTL time.Duration, similarityThreshold, overlapThreshold, writeConfidence float64,
	collection string, dim int, lfuCapacity int,
) *Manager {
	if collection == "" {
		collection = SemanticCacheCollection
	}
	return &Manager{
		kv:                  kv,
		vectors:             vectors,
		fallback:            newLFUFallback(lfuCapacity),
		tierATTL:            tierATTL,
		similarityThreshold: similarityThreshold,
		overlapThreshold:    overlapThreshold,
		writeConfidence:     writeConfidence,
		collection:          collection,
		dim:                 dim,
	}
}

// LookupExact performs the Tier A exact-match lookup (spec §4.3 Tier A).
// On a hit it bumps hit_count by exactly one and rewrites the entry (the
// round-trip property in spec §8). A key/value backend failure falls
// back to the in-process LFU store rather than failing the request
// (spec §7 BackendUnavailable policy: "cache check returns miss").
func (m *Manager) LookupExact(ctx context.Context, question string) (*types.CacheEntry, bool) {
	key := TierAPrefix + utils.NormalizeQuery(question)

	raw, err := m.kv.Get(ctx, key)
	if err != nil {
		logger.GetLogger(ctx).Warnf("tier-a kv get failed, falling back to in-process store: %v", err)
		if v, ok := m.fallback.Get(key); ok {
			raw = v
		}
	}
	if len(raw) == 0 {
		return nil, false
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.GetLogger(ctx).Warnf("tier-a entry for %s corrupted: %v", key, err)
		return nil, false
	}

	entry.HitCount++
	m.persistExact(ctx, key, &entry)
	return &entry, true
}

// LookupSemantic performs the Tier B vector-similarity lookup (spec §4.3
// Tier B): top-1 query filtered to points newer than now-TTL, requiring
// both cosine similarity >= threshold and the document-relevance overlap
// check. originalQuestion is used for the relevance check even when
// queryVector was computed from a translated query.
func (m *Manager) LookupSemantic(ctx context.Context, originalQuestion string, queryVector []float32) (*types.CacheEntry, bool) {
	if m.vectors == nil || len(queryVector) == 0 {
		return nil, false
	}
	ttlCutoff := time.Now().Add(-m.tierATTL).Unix()
	points, err := m.vectors.Query(ctx, m.collection, queryVector, 1,
		&interfaces.VectorFilter{TimestampGTE: ttlCutoff}, true)
	if err != nil || len(points) == 0 {
		return nil, false
	}

	top := points[0]
	if top.Score < m.similarityThreshold {
		return nil, false
	}

	answer, _ := top.Payload["answer"].(string)
	question, _ := top.Payload["question"].(string)
	docIDsRaw, _ := top.Payload["doc_ids"].([]interface{})
	docIDs := make([]string, 0, len(docIDsRaw))
	for _, d := range docIDsRaw {
		if s, ok := d.(string); ok {
			docIDs = append(docIDs, s)
		}
	}
	timestamp, _ := top.Payload["timestamp"].(float64)

	if !passesRelevanceCheck(originalQuestion, docIDs, m.overlapThreshold) {
		return nil, false
	}

	return &types.CacheEntry{
		QueryNormalized: utils.NormalizeQuery(question),
		QueryOriginal:   question,
		Answer:          answer,
		DocIDs:          docIDs,
		Confidence:      top.Score,
		Timestamp:       int64(timestamp),
	}, true
}

// passesRelevanceCheck implements spec §4.3 Tier B's document-relevance
// validation: tokens of length > 3 from the original question, minus
// stop-words, must overlap the concatenated doc_ids text at ratio >=
// relevanceThreshold.
func passesRelevanceCheck(originalQuestion string, docIDs []string, relevanceThreshold float64) bool {
	tokens := utils.SignificantTokens(originalQuestion)
	if len(tokens) == 0 {
		return true
	}
	corpus := strings.ToLower(strings.Join(docIDs, " "))
	matched := 0
	for _, t := range tokens {
		if strings.Contains(corpus, t) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(tokens))
	return ratio >= relevanceThreshold
}

// Store writes a cache entry, gated at confidence >= the configured
// write threshold (spec §4.3 Writes; Open Question (a) resolved to use
// this gated behavior). Tier A is written unconditionally once the gate
// passes; Tier B is written only when an embedding is available.
func (m *Manager) Store(ctx context.Context, question, answer string, docIDs []string,
	confidence float64, queryVector []float32, translatedQuery string,
) {
	if confidence < m.writeConfidence {
		return
	}
	now := time.Now().Unix()
	entry := &types.CacheEntry{
		QueryNormalized: utils.NormalizeQuery(question),
		QueryOriginal:   question,
		Answer:          answer,
		DocIDs:          docIDs,
		Confidence:      confidence,
		Timestamp:       now,
	}
	key := TierAPrefix + entry.QueryNormalized
	m.persistExact(ctx, key, entry)

	if len(queryVector) == 0 || m.vectors == nil {
		return
	}
	if err := m.vectors.CreateCollection(ctx, m.collection, m.dim); err != nil {
		logger.GetLogger(ctx).Warnf("tier-b collection ensure failed: %v", err)
		return
	}
	payload := map[string]interface{}{
		"question":  question,
		"answer":    answer,
		"doc_ids":   docIDs,
		"timestamp": float64(now),
	}
	if translatedQuery != "" {
		payload["translated_query"] = translatedQuery
	}
	point := interfaces.VectorPoint{ID: uuid.NewString(), Vector: queryVector, Payload: payload}
	if err := m.vectors.Upsert(ctx, m.collection, []interfaces.VectorPoint{point}); err != nil {
		logger.GetLogger(ctx).Warnf("tier-b upsert failed: %v", err)
	}
}

func (m *Manager) persistExact(ctx context.Context, key string, entry *types.CacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		logger.GetLogger(ctx).Warnf("marshal cache entry %s: %v", key, err)
		return
	}
	if err := m.kv.SetEX(ctx, key, raw, int64(m.tierATTL/time.Second)); err != nil {
		logger.GetLogger(ctx).Warnf("tier-a set failed, using in-process fallback: %v", err)
		m.fallback.Set(key, raw)
		return
	}
}

// Sweep deletes Tier B points older than the TTL (spec §4.3 Maintenance),
// intended to be invoked periodically (asynq recurring task) or every N
// requests.
func (m *Manager) Sweep(ctx context.Context) error {
	if m.vectors == nil {
		return nil
	}
	cutoff := time.Now().Add(-m.tierATTL).Unix()
	if err := m.vectors.Delete(ctx, m.collection, &interfaces.VectorFilter{TimestampLT: cutoff}); err != nil {
		return fmt.Errorf("sweep semantic cache: %w", err)
	}
	return nil
}
