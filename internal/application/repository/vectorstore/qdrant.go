// Package vectorstore implements the vector-store contract against
// Qdrant, serving both the hybrid retrieval dense search (collection
// "documents") and the response cache Tier B semantic lookup (collection
// "semantic_cache"). The client is a lazily initialized singleton, reset
// on connection error.
package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/qdrant/go-client/qdrant"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// QdrantStore implements interfaces.VectorStore. The underlying client is
// a lazily initialized singleton; Reset forces the next call to
// reconnect, per spec §5's "on connection errors it is reset" rule.
type QdrantStore struct {
	addr   string
	mu     sync.Mutex
	client *qdrant.Client
	closed atomic.Bool

	initialized sync.Map // collection name -> struct{}
}

// NewQdrantStore builds a store targeting addr (host:grpcPort). The
// client connects lazily on first use.
func NewQdrantStore(addr string) *QdrantStore {
	return &QdrantStore{addr: addr}
}

func splitHostPort(addr string) (string, int) {
	host := addr
	port := 6334
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			host = addr[:i]
			fmt.Sscanf(addr[i+1:], "%d", &port)
			break
		}
	}
	return host, port
}

func (s *QdrantStore) conn() (*qdrant.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	host, port := splitHostPort(s.addr)
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s: %w", s.addr, err)
	}
	s.client = client
	return client, nil
}

// Reset drops the cached client so the next call reconnects (spec §5).
func (s *QdrantStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int) error {
	if _, ok := s.initialized.Load(name); ok {
		return nil
	}
	client, err := s.conn()
	if err != nil {
		return err
	}
	existing, err := client.ListCollections(ctx)
	if err == nil {
		for _, c := range existing {
			if c == name {
				s.initialized.Store(name, struct{}{})
				return nil
			}
		}
	}
	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		s.Reset()
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.initialized.Store(name, struct{}{})
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []interfaces.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	client, err := s.conn()
	if err != nil {
		return err
	}
	wire := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		wire = append(wire, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}
	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         wire,
	})
	if err != nil {
		logger.GetLogger(ctx).Warnf("qdrant upsert into %s failed: %v", collection, err)
		s.Reset()
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

func buildFilter(f *interfaces.VectorFilter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	var must []*qdrant.Condition
	for k, v := range f.Equals {
		must = append(must, qdrant.NewMatch(k, fmt.Sprintf("%v", v)))
	}
	if f.TimestampGTE != 0 {
		must = append(must, qdrant.NewRange("timestamp", &qdrant.Range{Gte: qdrant.PtrOf(float64(f.TimestampGTE))}))
	}
	if f.TimestampLT != 0 {
		must = append(must, qdrant.NewRange("timestamp", &qdrant.Range{Lt: qdrant.PtrOf(float64(f.TimestampLT))}))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, limit int,
	filter *interfaces.VectorFilter, withPayload bool,
) ([]interfaces.VectorPoint, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	resp, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(withPayload),
	})
	if err != nil {
		logger.GetLogger(ctx).Warnf("qdrant query on %s failed: %v", collection, err)
		s.Reset()
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]interfaces.VectorPoint, 0, len(resp))
	for _, hit := range resp {
		payload := make(map[string]interface{}, len(hit.Payload))
		for k, v := range hit.Payload {
			payload[k] = v.AsInterface()
		}
		id := ""
		if hit.Id != nil {
			id = fmt.Sprintf("%v", hit.Id)
		}
		out = append(out, interfaces.VectorPoint{ID: id, Payload: payload, Score: float64(hit.Score)})
	}
	return out, nil
}

func (s *QdrantStore) Delete(ctx context.Context, collection string, filter *interfaces.VectorFilter) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	f := buildFilter(filter)
	if f == nil {
		return nil
	}
	_, err = client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	if err != nil {
		s.Reset()
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) GetCollections(ctx context.Context) ([]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	names, err := client.ListCollections(ctx)
	if err != nil {
		s.Reset()
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

var _ interfaces.VectorStore = (*QdrantStore)(nil)
