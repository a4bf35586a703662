package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/application/repository/cache"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// CacheStoreNode writes the answer into both cache tiers once a request
// has actually produced a fresh answer (spec §4.3 Writes): it runs only
// after a cache miss, requires confidence >= the configured threshold,
// writes Tier A unconditionally, and Tier B when an embedding is
// available (QuestionEmbedding as last set on the state bag — by
// HybridRetrievalNode on a full run — reused here rather than
// recomputed).
type CacheStoreNode struct {
	manager *cache.Manager
}

// NewCacheStoreNode builds the node.
func NewCacheStoreNode(manager *cache.Manager) *CacheStoreNode {
	return &CacheStoreNode{manager: manager}
}

func (n *CacheStoreNode) Name() string { return NodeCacheStore }

func (n *CacheStoreNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question", "Answer"},
		Optional: []string{"Docs", "QuestionEmbedding", "TranslatedQuery", "CacheHit", "Confidence"},
	}
}

func (n *CacheStoreNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if in.CacheHit {
		return &types.State{}, nil
	}
	n.manager.Store(ctx, in.Question, in.Answer, in.Docs, in.Confidence, in.QuestionEmbedding, in.TranslatedQuery)
	return &types.State{}, nil
}

var _ pipeline.Node = (*CacheStoreNode)(nil)
