package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReciprocalRankFusion_OrdersByAccumulatedScore(t *testing.T) {
	vector := []RankedResult{
		{Content: "doc_a"},
		{Content: "doc_b"},
		{Content: "doc_c"},
	}
	lexical := []RankedResult{
		{Content: "doc_b"},
		{Content: "doc_a"},
		{Content: "doc_d"},
	}

	fused := ReciprocalRankFusion(vector, lexical, 60, 10)
	require.Len(t, fused, 4)

	// doc_a: 1/61 + 1/62; doc_b: 1/62 + 1/61 -> tied with doc_a.
	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-9)
	assert.ElementsMatch(t, []string{"doc_a", "doc_b"}, []string{fused[0].Content, fused[1].Content})

	// doc_c only ranked in vector at rank 3, doc_d only in lexical at rank 3 -> tied for last.
	assert.InDelta(t, 1.0/63.0, fused[2].Score, 1e-9)
	assert.InDelta(t, 1.0/63.0, fused[3].Score, 1e-9)
}

func TestReciprocalRankFusion_DedupesByContent(t *testing.T) {
	vector := []RankedResult{{Content: "doc_a"}}
	lexical := []RankedResult{{Content: "doc_a"}}

	fused := ReciprocalRankFusion(vector, lexical, 60, 10)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61.0+1.0/61.0, fused[0].Score, 1e-9)
}

func TestReciprocalRankFusion_RespectsTopN(t *testing.T) {
	vector := []RankedResult{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	fused := ReciprocalRankFusion(vector, nil, 60, 2)
	assert.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].Content)
}
