package chatpipline

import (
	"context"
	"strings"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/chat"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// QueryAggregationNode rewrites the raw question into a self-contained
// query that resolves co-reference and slot-filling against the last
// MaxRounds history turns, producing the aggregated query used by
// downstream retrieval and caching.
type QueryAggregationNode struct {
	model     chat.Chat
	maxRounds int
}

// NewQueryAggregationNode builds the node. maxRounds bounds how many
// trailing history turns are offered as rewrite context.
func NewQueryAggregationNode(model chat.Chat, maxRounds int) *QueryAggregationNode {
	if maxRounds <= 0 {
		maxRounds = 3
	}
	return &QueryAggregationNode{model: model, maxRounds: maxRounds}
}

func (n *QueryAggregationNode) Name() string { return NodeQueryAggregation }

func (n *QueryAggregationNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"Question"},
		Optional:   []string{"ConversationHistory"},
		Guaranteed: []string{"AggregatedQuery"},
	}
}

func (n *QueryAggregationNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if len(in.ConversationHistory) == 0 || n.model == nil {
		// Nothing to resolve against; the aggregated query is the
		// question itself.
		return &types.State{AggregatedQuery: in.Question}, nil
	}

	recent := in.ConversationHistory
	if len(recent) > n.maxRounds*2 {
		recent = recent[len(recent)-n.maxRounds*2:]
	}

	messages := []chat.Message{
		{Role: "system", Content: "Rewrite the user's final message into a single, " +
			"self-contained question that resolves pronouns and omitted context " +
			"using the conversation history. Return only the rewritten question."},
	}
	for _, turn := range recent {
		messages = append(messages, chat.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chat.Message{Role: "user", Content: in.Question})

	resp, err := n.model.Chat(ctx, messages, &chat.Options{Temperature: 0})
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "aggregation_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{AggregatedQuery: in.Question}, nil
	}
	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		rewritten = in.Question
	}
	return &types.State{AggregatedQuery: rewritten}, nil
}

var _ pipeline.Node = (*QueryAggregationNode)(nil)
