// Package relationgraph builds and traverses the document relation
// graph the Multi-Hop Resolver walks from the top-1 retrieved document
// (spec §4.9), grounded on original_source's relation_graph.py
// (RelationGraphBuilder, category_index/intent_index adjacency built
// once from document metadata).
package relationgraph

import (
	"context"
	"sync"

	"github.com/faqrag/engine/internal/types/interfaces"
)

// DocMeta is the slice of a document's metadata the graph needs to build
// adjacency: its category, intent, and optional clarifying-topic tags.
type DocMeta struct {
	ID                string
	Category          string
	Intent            string
	ClarifyingTopics  []string
}

// InProcessGraph is the default RelationGraph backend: same_category and
// same_intent adjacency (plus optional clarifying_topics edges) built
// once from a snapshot of document metadata and held in memory.
type InProcessGraph struct {
	mu           sync.RWMutex
	categoryIdx  map[string][]string
	intentIdx    map[string][]string
	topicIdx     map[string][]string
	docCategory  map[string]string
	docIntent    map[string]string
}

// NewInProcessGraph builds the graph once from docs (spec §4.9: "built
// once from document metadata").
func NewInProcessGraph(docs []DocMeta) *InProcessGraph {
	g := &InProcessGraph{
		categoryIdx: make(map[string][]string),
		intentIdx:   make(map[string][]string),
		topicIdx:    make(map[string][]string),
		docCategory: make(map[string]string),
		docIntent:   make(map[string]string),
	}
	for _, d := range docs {
		if d.Category != "" {
			g.categoryIdx[d.Category] = append(g.categoryIdx[d.Category], d.ID)
			g.docCategory[d.ID] = d.Category
		}
		if d.Intent != "" {
			g.intentIdx[d.Intent] = append(g.intentIdx[d.Intent], d.ID)
			g.docIntent[d.ID] = d.Intent
		}
		for _, t := range d.ClarifyingTopics {
			g.topicIdx[t] = append(g.topicIdx[t], d.ID)
		}
	}
	return g
}

// Neighbors returns the ids adjacent to docID within maxHops, following
// same_category/same_intent/clarifying_topics edges breadth-first,
// de-duplicated and excluding docID itself.
func (g *InProcessGraph) Neighbors(ctx context.Context, docID string, maxHops int) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{docID: true}
	frontier := []string{docID}
	var result []string

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, cand := range g.adjacent(id) {
				if visited[cand] {
					continue
				}
				visited[cand] = true
				result = append(result, cand)
				next = append(next, cand)
			}
		}
		frontier = next
	}
	return result, nil
}

func (g *InProcessGraph) adjacent(id string) []string {
	var out []string
	if cat, ok := g.docCategory[id]; ok {
		out = append(out, g.categoryIdx[cat]...)
	}
	if intent, ok := g.docIntent[id]; ok {
		out = append(out, g.intentIdx[intent]...)
	}
	for _, ids := range g.topicIdx {
		for _, x := range ids {
			if x == id {
				out = append(out, ids...)
				break
			}
		}
	}
	return out
}

var _ interfaces.RelationGraph = (*InProcessGraph)(nil)
