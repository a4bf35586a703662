package utils

import "sort"

// RankedResult is the minimal shape RRF needs from a retrieval hit —
// intentionally decoupled from types.SearchResult so this helper stays a
// pure, dependency-free utility.
type RankedResult struct {
	Content  string
	Metadata map[string]interface{}
}

// FusedResult is one entry of the RRF output: the deduplicated content
// and its accumulated reciprocal-rank score.
type FusedResult struct {
	Content  string
	Score    float64
	Metadata map[string]interface{}
}

// ReciprocalRankFusion merges dense and lexical result lists by
// accumulating 1/(k+rank) per list (rank is 1-based), deduplicating by
// content, and returning the top N by fused score descending. k defaults
// to 60 per spec §4.4/§8.
func ReciprocalRankFusion(vectorResults, lexicalResults []RankedResult, k, topN int) []FusedResult {
	scores := make(map[string]float64)
	order := make(map[string]RankedResult)

	accumulate := func(results []RankedResult) {
		for i, r := range results {
			rank := i + 1
			if _, ok := order[r.Content]; !ok {
				order[r.Content] = r
			}
			scores[r.Content] += 1.0 / float64(k+rank)
		}
	}
	accumulate(vectorResults)
	accumulate(lexicalResults)

	fused := make([]FusedResult, 0, len(scores))
	for content, score := range scores {
		fused = append(fused, FusedResult{
			Content:  content,
			Score:    score,
			Metadata: order[content].Metadata,
		})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if topN > 0 && len(fused) > topN {
		fused = fused[:topN]
	}
	return fused
}
