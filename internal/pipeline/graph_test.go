package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faqrag/engine/internal/types"
)

func node(name string, fn func(ctx context.Context, in *types.State) (*types.State, error)) *fakeNode {
	return &fakeNode{name: name, contract: Contract{}, body: fn}
}

func TestGraph_PostCacheBranchSkipsRetrieval(t *testing.T) {
	StrictMode = false
	defer func() { StrictMode = true }()

	g := NewGraph()
	g.AddNode(node("cache_lookup", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{CacheHit: true, Answer: "cached"}, nil
	}))
	g.AddNode(node("retrieval", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{Answer: "should not run"}, nil
	}))
	g.AddNode(node("generation", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{}, nil
	}))
	g.AddBranch("cache_lookup", PostCacheBranch("generation"), "retrieval")
	g.AddEdge("retrieval", "generation")

	out, err := g.Run(context.Background(), &types.State{})
	require.NoError(t, err)
	assert.Equal(t, "cached", out.Answer)
}

func TestGraph_LinearWalkMergesState(t *testing.T) {
	StrictMode = false
	defer func() { StrictMode = true }()

	g := NewGraph()
	g.AddNode(node("a", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{DetectedLanguage: "en"}, nil
	}))
	g.AddNode(node("b", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{Answer: "done"}, nil
	}))
	g.AddEdge("a", "b")

	out, err := g.Run(context.Background(), &types.State{})
	require.NoError(t, err)
	assert.Equal(t, "en", out.DetectedLanguage)
	assert.Equal(t, "done", out.Answer)
}

func TestGraph_DeadlineCancelsWalk(t *testing.T) {
	StrictMode = false
	defer func() { StrictMode = true }()

	g := NewGraph()
	g.AddNode(node("a", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{}, nil
	}))
	g.AddNode(node("b", func(ctx context.Context, in *types.State) (*types.State, error) {
		return &types.State{}, nil
	}))
	g.AddEdge("a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Run(ctx, &types.State{})
	require.Error(t, err)
	assert.Equal(t, types.ErrTimeout, types.KindOf(err))
}
