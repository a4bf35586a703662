package chatpipline

import (
	"context"
	"strings"

	"github.com/faqrag/engine/internal/models/chat"
)

// QueryExpander generates alternate phrasings of a query via an LLM,
// deduplicated with the original included, ported from
// original_source's QueryExpander (app/nodes/query_expansion/expander.py).
// It is invoked directly by HybridRetrievalNode when the probe retrieval
// misses the confidence short-circuit of spec §4.5, rather than being a
// standalone pipeline.Node itself — the Python original is likewise a
// plain service class called from the retrieval node, not a LangGraph
// node of its own.
type QueryExpander struct {
	model chat.Chat
}

// NewQueryExpander builds the expander.
func NewQueryExpander(model chat.Chat) *QueryExpander {
	return &QueryExpander{model: model}
}

const expansionSystemPrompt = "Generate 3 alternative phrasings of the user's question that preserve " +
	"its meaning. Return only a comma-separated list, no numbering or extra text."

// Expand returns the original question plus LLM-produced alternates,
// deduplicated.
func (e *QueryExpander) Expand(ctx context.Context, question string) ([]string, error) {
	if e.model == nil {
		return []string{question}, nil
	}

	messages := []chat.Message{
		{Role: "system", Content: expansionSystemPrompt},
		{Role: "user", Content: question},
	}
	resp, err := e.model.Chat(ctx, messages, &chat.Options{Temperature: 0.7})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{question: true}
	out := []string{question}
	for _, part := range strings.Split(resp.Content, ",") {
		q := strings.TrimSpace(part)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out, nil
}
