package chatpipline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/embedding"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/types/interfaces"
	"github.com/faqrag/engine/internal/utils"
)

// HybridRetrievalNode runs a probe-then-expand retrieval strategy: a
// single-query dense+lexical fan-out decides, by its top score, whether
// the short-circuit applies; otherwise the query is expanded and every
// variant is fanned out the same way before RRF fusion.
type HybridRetrievalNode struct {
	embedder           embedding.Embedder
	vectors            interfaces.VectorStore
	docs               interfaces.DocumentStore
	expander           *QueryExpander
	documentCollection string
	topK               int
	rrfK               int
	confidenceThreshold float64
}

// NewHybridRetrievalNode builds the node.
func NewHybridRetrievalNode(
	embedder embedding.Embedder,
	vectors interfaces.VectorStore,
	docs interfaces.DocumentStore,
	expander *QueryExpander,
	documentCollection string,
	topK, rrfK int,
	confidenceThreshold float64,
) *HybridRetrievalNode {
	if topK <= 0 {
		topK = 10
	}
	if rrfK <= 0 {
		rrfK = 60
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &HybridRetrievalNode{
		embedder:            embedder,
		vectors:             vectors,
		docs:                docs,
		expander:             expander,
		documentCollection:   documentCollection,
		topK:                 topK,
		rrfK:                 rrfK,
		confidenceThreshold:  confidenceThreshold,
	}
}

func (n *HybridRetrievalNode) Name() string { return NodeHybridRetrieval }

func (n *HybridRetrievalNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question"},
		Optional: []string{"TranslatedQuery", "AggregatedQuery", "FilterUsed", "MatchedCategory"},
		Guaranteed: []string{
			"Docs", "Scores", "VectorResults", "LexicalResults",
			"Confidence", "ExpandedQueries", "QuestionEmbedding", "BestDocMetadata",
		},
	}
}

func (n *HybridRetrievalNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	query := in.EffectiveQuery()
	category := ""
	if in.FilterUsed {
		category = in.MatchedCategory
	}

	queryVec, err := n.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, types.NewError(types.ErrBackendUnavailable, n.Name(), err)
	}

	probeVector, probeLexical, err := n.fanOut(ctx, query, queryVec, category)
	if err != nil {
		return nil, types.NewError(types.ErrBackendUnavailable, n.Name(), err)
	}

	topScore := 0.0
	if len(probeVector) > 0 {
		topScore = probeVector[0].Score
	}

	if topScore >= n.confidenceThreshold || n.expander == nil {
		fused := utils.ReciprocalRankFusion(toRanked(probeVector), toRankedFromDocs(probeLexical), n.rrfK, n.topK)
		return n.finalize(fused, probeVector, probeLexical, topScore, nil, queryVec), nil
	}

	expandedQueries, err := n.expander.Expand(ctx, query)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "expansion_failed", map[string]interface{}{"error": err.Error()})
		fused := utils.ReciprocalRankFusion(toRanked(probeVector), toRankedFromDocs(probeLexical), n.rrfK, n.topK)
		return n.finalize(fused, probeVector, probeLexical, topScore, nil, queryVec), nil
	}

	allVector := append([]interfaces.VectorPoint(nil), probeVector...)
	allLexical := append([]*interfaces.DocumentRecord(nil), probeLexical...)
	vectorByQuery := make([][]interfaces.VectorPoint, len(expandedQueries))
	lexicalByQuery := make([][]*interfaces.DocumentRecord, len(expandedQueries))
	var eg errgroup.Group
	for i, eq := range expandedQueries {
		if eq == query {
			continue // already probed
		}
		eg.Go(func() error {
			eqVec, err := n.embedder.Embed(ctx, eq, true)
			if err != nil {
				common.PipelineWarn(ctx, n.Name(), "expanded_embed_failed", map[string]interface{}{"error": err.Error()})
				return nil
			}
			v, l, err := n.fanOut(ctx, eq, eqVec, category)
			if err != nil {
				common.PipelineWarn(ctx, n.Name(), "expanded_fanout_failed", map[string]interface{}{"error": err.Error()})
				return nil
			}
			vectorByQuery[i], lexicalByQuery[i] = v, l
			return nil
		})
	}
	_ = eg.Wait()
	for i := range expandedQueries {
		allVector = append(allVector, vectorByQuery[i]...)
		allLexical = append(allLexical, lexicalByQuery[i]...)
	}

	fused := utils.ReciprocalRankFusion(toRanked(allVector), toRankedFromDocs(allLexical), n.rrfK, n.topK)
	return n.finalize(fused, allVector, allLexical, topScore, expandedQueries, queryVec), nil
}

// fanOut runs the dense and lexical searches for a single query string in
// parallel.
func (n *HybridRetrievalNode) fanOut(ctx context.Context, query string, vector []float32, category string) (
	[]interfaces.VectorPoint, []*interfaces.DocumentRecord, error,
) {
	var vectorHits []interfaces.VectorPoint
	var lexicalHits []*interfaces.DocumentRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var filter *interfaces.VectorFilter
		if category != "" {
			filter = &interfaces.VectorFilter{Equals: map[string]interface{}{"category": category}}
		}
		hits, err := n.vectors.Query(gctx, n.documentCollection, vector, n.topK, filter, true)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := n.docs.FullTextSearch(gctx, query, DocumentLanguage, category, n.topK)
		if err != nil {
			return err
		}
		lexicalHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectorHits, lexicalHits, nil
}

func (n *HybridRetrievalNode) finalize(
	fused []utils.FusedResult,
	vectorHits []interfaces.VectorPoint,
	lexicalHits []*interfaces.DocumentRecord,
	topScore float64,
	expandedQueries []string,
	queryVec []float32,
) *types.State {
	docs := make([]string, 0, len(fused))
	scores := make([]float64, 0, len(fused))
	for _, f := range fused {
		docs = append(docs, f.Content)
		scores = append(scores, f.Score)
	}

	var bestMetadata map[string]interface{}
	if len(fused) > 0 {
		bestMetadata = fused[0].Metadata
	}

	return &types.State{
		Docs:              docs,
		Scores:            scores,
		VectorResults:     toSearchResults(vectorHits),
		LexicalResults:    toSearchResultsFromDocs(lexicalHits),
		Confidence:        topScore,
		ExpandedQueries:   expandedQueries,
		QuestionEmbedding: queryVec,
		BestDocMetadata:   bestMetadata,
	}
}

func toRanked(points []interfaces.VectorPoint) []utils.RankedResult {
	out := make([]utils.RankedResult, 0, len(points))
	for _, p := range points {
		content, _ := p.Payload["content"].(string)
		out = append(out, utils.RankedResult{Content: content, Metadata: p.Payload})
	}
	return out
}

func toSearchResults(points []interfaces.VectorPoint) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(points))
	for _, p := range points {
		content, _ := p.Payload["content"].(string)
		out = append(out, types.SearchResult{Content: content, Score: p.Score, Metadata: p.Payload})
	}
	return out
}

func toRankedFromDocs(docs []*interfaces.DocumentRecord) []utils.RankedResult {
	out := make([]utils.RankedResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, utils.RankedResult{Content: d.Content, Metadata: d.Metadata})
	}
	return out
}

func toSearchResultsFromDocs(docs []*interfaces.DocumentRecord) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, types.SearchResult{Content: d.Content, Score: d.Rank, Metadata: d.Metadata})
	}
	return out
}

var _ pipeline.Node = (*HybridRetrievalNode)(nil)
