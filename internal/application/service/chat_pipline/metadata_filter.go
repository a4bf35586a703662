package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// MetadataFilterSafetyCount is the minimum document count the category
// filter must be able to return before it is trusted, per
// original_source's "retrieve(category) returns >= 2 docs: use filtered
// results" fallback rule (app/nodes/metadata_filtering/filtering.py).
const MetadataFilterSafetyCount = 2

// MetadataFilterNode decides whether the classifier's matched category
// should gate retrieval, grounded on original_source's
// MetadataFilteringService: low classification confidence skips
// filtering outright; a sparse category (fewer than
// MetadataFilterSafetyCount documents) triggers fallback instead.
type MetadataFilterNode struct {
	docs      interfaces.DocumentStore
	threshold float64
}

// NewMetadataFilterNode builds the node. threshold defaults to 0.5 per
// original_source's MetadataFilteringService default.
func NewMetadataFilterNode(docs interfaces.DocumentStore, threshold float64) *MetadataFilterNode {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &MetadataFilterNode{docs: docs, threshold: threshold}
}

func (n *MetadataFilterNode) Name() string { return NodeMetadataFilter }

func (n *MetadataFilterNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Optional:   []string{"MatchedCategory", "ClassificationConfidence"},
		Guaranteed: []string{"FilterUsed", "FallbackTriggered"},
	}
}

func (n *MetadataFilterNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if in.MatchedCategory == "" || in.ClassificationConfidence < n.threshold {
		return &types.State{}, nil
	}

	if n.docs != nil {
		docs, err := n.docs.SubstringSearch(ctx, "", in.MatchedCategory, MetadataFilterSafetyCount)
		if err != nil {
			common.PipelineWarn(ctx, n.Name(), "safety_check_failed", map[string]interface{}{"error": err.Error()})
			return &types.State{FallbackTriggered: true}, nil
		}
		if len(docs) < MetadataFilterSafetyCount {
			return &types.State{FallbackTriggered: true}, nil
		}
	}

	return &types.State{FilterUsed: true}, nil
}

var _ pipeline.Node = (*MetadataFilterNode)(nil)
