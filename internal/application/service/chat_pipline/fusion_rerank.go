package chatpipline

import (
	"context"
	"sort"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/rerank"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// FusionRerankNode applies the optional cross-encoder rerank step of
// spec §4.5. When HybridRetrievalNode's probe already cleared the
// confidence short-circuit (no expanded_queries), reranking is skipped
// and the fused candidates pass through unchanged.
type FusionRerankNode struct {
	reranker  rerank.Reranker
	topKRerank int
}

// NewFusionRerankNode builds the node. topKRerank defaults to 5.
func NewFusionRerankNode(reranker rerank.Reranker, topKRerank int) *FusionRerankNode {
	if topKRerank <= 0 {
		topKRerank = 5
	}
	return &FusionRerankNode{reranker: reranker, topKRerank: topKRerank}
}

func (n *FusionRerankNode) Name() string { return NodeFusionRerank }

func (n *FusionRerankNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Docs"},
		Optional: []string{"ExpandedQueries", "Scores"},
		Guaranteed: []string{
			"Docs", "Scores", "RerankScores",
		},
	}
}

func (n *FusionRerankNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if n.reranker == nil || len(in.ExpandedQueries) == 0 {
		// Probe short-circuit: no expansion happened, keep the fused order
		// and scores exactly as handed in — Scores/RerankScores are
		// Guaranteed outputs of this node, so every path must set them.
		return &types.State{Docs: in.Docs, Scores: in.Scores, RerankScores: in.Scores}, nil
	}

	query := in.EffectiveQuery()
	results, err := n.reranker.Rerank(ctx, query, in.Docs)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "rerank_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{Docs: in.Docs, Scores: in.Scores, RerankScores: in.Scores}, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > n.topKRerank {
		results = results[:n.topKRerank]
	}

	docs := make([]string, 0, len(results))
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document)
		scores = append(scores, r.RelevanceScore)
	}

	// Scores (not just RerankScores) track the reordered/truncated Docs so
	// len(docs)==len(scores) still holds after reranking changes the order.
	// Confidence is not set here: it keeps the value HybridRetrievalNode
	// set (the probe's top vector score), so it does not equal Scores[0]
	// after this node.
	return &types.State{Docs: docs, Scores: scores, RerankScores: scores}, nil
}

var _ pipeline.Node = (*FusionRerankNode)(nil)
