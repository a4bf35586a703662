package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/application/repository/cache"
	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/embedding"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/utils"
)

// CacheCheckNode implements the two-tier Response Cache lookup (spec
// §4.3): Tier A exact match first, Tier B semantic similarity on a Tier
// A miss. The query embedding it computes for Tier B is exposed on the
// state bag as QuestionEmbedding; HybridRetrievalNode embeds the query
// again and overwrites that field, so it is not reused by retrieval.
type CacheCheckNode struct {
	manager  *cache.Manager
	embedder embedding.Embedder
}

// NewCacheCheckNode builds the node.
func NewCacheCheckNode(manager *cache.Manager, embedder embedding.Embedder) *CacheCheckNode {
	return &CacheCheckNode{manager: manager, embedder: embedder}
}

func (n *CacheCheckNode) Name() string { return NodeCacheCheck }

func (n *CacheCheckNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question"},
		Optional: []string{"TranslatedQuery", "AggregatedQuery"},
		Guaranteed: []string{"CacheHit"},
		Conditional: []string{"Answer", "CacheKey", "CacheReason", "Sources", "QuestionEmbedding", "Confidence"},
	}
}

func (n *CacheCheckNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	out := &types.State{CacheKey: utils.NormalizeQuery(in.Question)}

	if entry, hit := n.manager.LookupExact(ctx, in.Question); hit {
		out.CacheHit = true
		out.Answer = entry.Answer
		out.Sources = entry.DocIDs
		out.Confidence = entry.Confidence
		out.CacheReason = "tier_a_exact_match"
		common.PipelineInfo(ctx, n.Name(), "tier_a_hit", map[string]interface{}{"hit_count": entry.HitCount})
		return out, nil
	}

	effective := in.TranslatedQuery
	if effective == "" {
		effective = in.AggregatedQuery
	}
	if effective == "" {
		effective = in.Question
	}

	var vector []float32
	if n.embedder != nil {
		v, err := n.embedder.Embed(ctx, effective, true)
		if err != nil {
			// BackendUnavailable policy (spec §7): cache check is
			// best-effort; a missing embedding just means Tier B is
			// skipped, not that the request fails.
			common.PipelineWarn(ctx, n.Name(), "embed_failed", map[string]interface{}{"error": err.Error()})
		} else {
			vector = v
			out.QuestionEmbedding = v
		}
	}

	if vector != nil {
		if entry, hit := n.manager.LookupSemantic(ctx, in.Question, vector); hit {
			out.CacheHit = true
			out.Answer = entry.Answer
			out.Sources = entry.DocIDs
			out.Confidence = entry.Confidence
			out.CacheReason = "tier_b_semantic_match"
			return out, nil
		}
	}

	out.CacheHit = false
	out.CacheReason = "miss"
	return out, nil
}

var _ pipeline.Node = (*CacheCheckNode)(nil)
