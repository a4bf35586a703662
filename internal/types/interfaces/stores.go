// Package interfaces collects the store-facing contracts pipeline nodes
// depend on, so concrete backends live in internal/application/repository/*
// while nodes only import this package.
package interfaces

import "context"

// VectorPoint is one record upserted into or returned from a VectorStore.
// Score is populated only on query results (the backend's native
// similarity score), not on upsert.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
	Score   float64
}

// VectorFilter narrows a query/delete to points whose payload matches.
// Equals is an exact-match predicate (e.g. {"category": "billing"});
// TimestampGTE restricts to payload["timestamp"] >= the given Unix time,
// used by the semantic cache TTL query (spec §4.3 Tier B) and the
// maintenance sweep (spec §4.3 Maintenance, inverted as TimestampLT).
type VectorFilter struct {
	Equals       map[string]interface{}
	TimestampGTE int64
	TimestampLT  int64
}

// VectorStore is the external vector-store contract from spec §6:
// create_collection, upsert, query_points, delete, get_collections.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
	Query(ctx context.Context, collection string, vector []float32, limit int,
		filter *VectorFilter, withPayload bool) ([]VectorPoint, error)
	Delete(ctx context.Context, collection string, filter *VectorFilter) error
	GetCollections(ctx context.Context) ([]string, error)
}

// KVStore is the external key/value store contract from spec §6: GET,
// SETEX, DELETE, SCAN ... MATCH, PING, EXPIRE. Values are opaque byte
// strings; callers own serialization.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEX(ctx context.Context, key string, value []byte, ttlSeconds int64) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, nextCursor uint64, err error)
	Expire(ctx context.Context, key string, ttlSeconds int64) error
	Ping(ctx context.Context) error
}

// DocumentRecord is one row of the documents table (spec §6): id,
// content, embedding, metadata, plus whatever full-text rank the search
// that produced it computed.
type DocumentRecord struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Rank     float64
}

// DocumentStore is the relational document-store contract (spec §6): a
// documents(id, content, embedding, metadata, search_vector) table,
// queried by id (dense-search join) or by full-text search (lexical
// search), with a substring ILIKE fallback on FTS failure.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	GetByIDs(ctx context.Context, ids []string) ([]*DocumentRecord, error)
	FullTextSearch(ctx context.Context, query, language string, categoryFilter string, limit int) ([]*DocumentRecord, error)
	SubstringSearch(ctx context.Context, query string, categoryFilter string, limit int) ([]*DocumentRecord, error)
}

// RelationGraph resolves document-to-document adjacency for the
// Multi-Hop Resolver (spec §4.9): same_category / same_intent /
// clarifying_topics edges built once from document metadata.
type RelationGraph interface {
	Neighbors(ctx context.Context, docID string, maxHops int) ([]string, error)
}
