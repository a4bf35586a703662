package chatpipline

import (
	"context"
	"fmt"
	"strings"

	"github.com/faqrag/engine/internal/models/chat"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// GenerationNode assembles the final LLM prompt and invokes the chat
// model (spec §4.10), ported from original_source's GenerationNode
// (app/nodes/generation/node.py): an escalation message short-circuits
// generation entirely; otherwise system_prompt/human_prompt are used
// when present, falling back to a docs+question template. Curly braces
// in a dynamic system prompt are escaped so they can't be read as
// template placeholders downstream.
type GenerationNode struct {
	model chat.Chat
}

// NewGenerationNode builds the node.
func NewGenerationNode(model chat.Chat) *GenerationNode {
	return &GenerationNode{model: model}
}

func (n *GenerationNode) Name() string { return NodeGeneration }

func (n *GenerationNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Optional: []string{
			"EscalationMessage", "SystemPrompt", "HumanPrompt",
			"Docs", "Question", "AggregatedQuery", "MergedContext",
		},
		Guaranteed: []string{"Answer"},
	}
}

func (n *GenerationNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if in.EscalationMessage != "" {
		return &types.State{Answer: in.EscalationMessage}, nil
	}

	humanPrompt := in.HumanPrompt
	if humanPrompt == "" {
		question := in.AggregatedQuery
		if question == "" {
			question = in.Question
		}
		docsStr := in.MergedContext
		if docsStr == "" {
			docsStr = strings.Join(in.Docs, "\n\n")
		}
		humanPrompt = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", docsStr, question)
	}

	messages := make([]chat.Message, 0, 2)
	if in.SystemPrompt != "" {
		messages = append(messages, chat.Message{Role: "system", Content: escapeCurlyBraces(in.SystemPrompt)})
	}
	messages = append(messages, chat.Message{Role: "user", Content: humanPrompt})

	if n.model == nil {
		return &types.State{Answer: humanPrompt}, nil
	}

	resp, err := n.model.Chat(ctx, messages, &chat.Options{Temperature: 0})
	if err != nil {
		return nil, types.NewError(types.ErrBackendUnavailable, n.Name(), err)
	}
	return &types.State{Answer: resp.Content}, nil
}

// escapeCurlyBraces prevents a dynamic system prompt's literal braces
// from being interpreted as template placeholders further down the
// generation chain.
func escapeCurlyBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	s = strings.ReplaceAll(s, "}", "}}")
	return s
}

var _ pipeline.Node = (*GenerationNode)(nil)
