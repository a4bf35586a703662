package chatpipline

import (
	"context"
	"regexp"
	"strings"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/types/interfaces"
	"github.com/faqrag/engine/internal/utils"
)

// complexityMarkers is the bilingual marker table from original_source's
// ComplexityDetector (app/nodes/multihop/complexity_detector.py), kept as
// a fixed table rather than re-derived per call.
var complexityMarkers = map[string]struct {
	questionWords      []string
	logicalConnectors  []string
	conjunctions       []string
}{
	"en": {
		questionWords:     []string{"how", "why", "what", "when", "which", "where", "explain", "describe"},
		logicalConnectors: []string{"if", "then", "else", "because", "unless", "provided", "assuming", "after", "before"},
		conjunctions:      []string{"and", "or", "also", "with", "besides"},
	},
	"ru": {
		questionWords:     []string{"как", "почему", "зачем", "что", "когда", "какой", "где", "объясни", "опиши"},
		logicalConnectors: []string{"если", "то", "иначе", "потому", "так как", "хотя", "при условии", "после", "до"},
		conjunctions:      []string{"и", "или", "также", "с", "кроме"},
	},
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// complexityScore computes the score and hop count from spec §4.9,
// ported from original_source's ComplexityDetector.detect.
func complexityScore(text, lang string) (score float64, hops int) {
	markers, ok := complexityMarkers[lang]
	if !ok {
		markers = complexityMarkers["en"]
	}
	lower := strings.ToLower(text)
	words := wordRE.FindAllString(lower, -1)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	for _, w := range markers.questionWords {
		if wordSet[w] {
			score += 1.0
		}
	}
	for _, c := range markers.logicalConnectors {
		if matchesWordBoundary(lower, c) {
			score += 1.5
		}
	}
	for _, c := range markers.conjunctions {
		if wordSet[c] {
			score += 0.5
		}
	}

	score += float64(strings.Count(text, ",")) * 0.5

	wordCount := len(words)
	switch {
	case wordCount > 25:
		score += 2.0
	case wordCount > 15:
		score += 1.0
	}

	switch {
	case score < 1.5:
		hops = 1
	case score < 3.5:
		hops = 2
	default:
		hops = 3
	}
	return score, hops
}

func matchesWordBoundary(text, phrase string) bool {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(phrase) + `(?:[^\p{L}\p{N}_]|$)`).MatchString(text)
}

// MultiHopResolverNode scores question complexity and, for non-simple
// queries, traverses the relation graph from the top-retrieved document
// to merge additional context within a token budget (spec §4.9).
// Grounded on original_source's ComplexityDetector, RelationGraphBuilder,
// and ContextMerger.
type MultiHopResolverNode struct {
	graph             interfaces.RelationGraph
	docs              interfaces.DocumentStore
	tokenBudget       int
}

// NewMultiHopResolverNode builds the node. tokenBudget defaults to 5000.
func NewMultiHopResolverNode(graph interfaces.RelationGraph, docs interfaces.DocumentStore, tokenBudget int) *MultiHopResolverNode {
	if tokenBudget <= 0 {
		tokenBudget = 5000
	}
	return &MultiHopResolverNode{graph: graph, docs: docs, tokenBudget: tokenBudget}
}

func (n *MultiHopResolverNode) Name() string { return NodeMultiHop }

func (n *MultiHopResolverNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question", "Docs"},
		Optional: []string{"DetectedLanguage", "BestDocMetadata"},
		Guaranteed: []string{
			"HopCount", "MergedContext", "Truncated",
		},
	}
}

func (n *MultiHopResolverNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if len(in.Docs) == 0 {
		return &types.State{}, nil
	}

	lang := in.DetectedLanguage
	if lang == "" {
		lang = "en"
	}
	_, hops := complexityScore(in.Question, lang)

	primary := in.Docs[0]
	if hops <= 1 || n.graph == nil || n.docs == nil {
		return &types.State{HopCount: hops, MergedContext: primary}, nil
	}

	primaryID, _ := in.BestDocMetadata["id"].(string)
	if primaryID == "" {
		return &types.State{HopCount: hops, MergedContext: primary}, nil
	}

	neighborIDs, err := n.graph.Neighbors(ctx, primaryID, hops-1)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "relation_graph_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{HopCount: hops, MergedContext: primary}, nil
	}

	related, err := n.docs.GetByIDs(ctx, neighborIDs)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "related_docs_fetch_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{HopCount: hops, MergedContext: primary}, nil
	}

	merged, truncated := mergeContext(primary, related, n.tokenBudget)
	return &types.State{HopCount: hops, MergedContext: merged, Truncated: truncated}, nil
}

// mergeContext joins the primary answer with related-document content,
// truncating to a character budget of tokenBudget*4 (estimated
// characters-per-token), per spec §4.9 and original_source's
// ContextMerger.merge_contexts.
func mergeContext(primary string, related []*interfaces.DocumentRecord, tokenBudget int) (string, bool) {
	var b strings.Builder
	b.WriteString(utils.SanitizeHTML(primary))
	for _, doc := range related {
		if doc.Content == primary {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(utils.SanitizeHTML(doc.Content))
	}

	full := b.String()
	charBudget := tokenBudget * 4
	if len(full) > charBudget {
		return full[:charBudget], true
	}
	return full, false
}

var _ pipeline.Node = (*MultiHopResolverNode)(nil)
