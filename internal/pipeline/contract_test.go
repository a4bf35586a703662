package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faqrag/engine/internal/types"
)

type fakeNode struct {
	name     string
	contract Contract
	body     func(ctx context.Context, in *types.State) (*types.State, error)
}

func (f *fakeNode) Name() string         { return f.name }
func (f *fakeNode) Contract() Contract   { return f.contract }
func (f *fakeNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	return f.body(ctx, in)
}

func TestDispatch_FiltersInputToContract(t *testing.T) {
	var sawQuestion, sawUserID string
	node := &fakeNode{
		name: "probe",
		contract: Contract{
			Required:   []string{"Question"},
			Guaranteed: []string{"Answer"},
		},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			sawQuestion = in.Question
			sawUserID = in.UserID // not in contract, must be zeroed
			return &types.State{Answer: "ok"}, nil
		},
	}

	state := &types.State{Question: "hello", UserID: "u1"}
	out, err := Dispatch(context.Background(), node, state, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", sawQuestion)
	assert.Equal(t, "", sawUserID)
	assert.Equal(t, "ok", out.Answer)
}

func TestDispatch_MissingRequiredFieldFails(t *testing.T) {
	node := &fakeNode{
		name:     "probe",
		contract: Contract{Required: []string{"Question"}},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			return &types.State{}, nil
		},
	}

	_, err := Dispatch(context.Background(), node, &types.State{}, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingRequiredInput, types.KindOf(err))
}

func TestDispatch_GuaranteedZeroValueIsNotMissing(t *testing.T) {
	// A node whose guaranteed output is a legitimately all-false/zero
	// struct (e.g. DialogAnalysis with every signal false) must not trip
	// a downstream MissingRequiredInput: the node's contract declares the
	// field present, independent of the value it happened to compute.
	producer := &fakeNode{
		name:     "producer",
		contract: Contract{Guaranteed: []string{"FallbackTriggered"}},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			return &types.State{FallbackTriggered: false}, nil
		},
	}
	consumer := &fakeNode{
		name:     "consumer",
		contract: Contract{Required: []string{"FallbackTriggered"}, Guaranteed: []string{"Answer"}},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			return &types.State{Answer: "ok"}, nil
		},
	}

	g := NewGraph()
	g.AddNode(producer)
	g.AddNode(consumer)
	g.AddEdge("producer", "consumer")

	out, err := g.Run(context.Background(), &types.State{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Answer)
}

func TestDispatch_StripsUndeclaredOutputFields(t *testing.T) {
	node := &fakeNode{
		name:     "probe",
		contract: Contract{Guaranteed: []string{"Answer"}},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			return &types.State{Answer: "ok", DetectedLanguage: "en"}, nil
		},
	}

	out, err := Dispatch(context.Background(), node, &types.State{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Answer)
	assert.Equal(t, "", out.DetectedLanguage)
}

func TestDispatch_PassThroughWhenStrictModeDisabled(t *testing.T) {
	StrictMode = false
	defer func() { StrictMode = true }()

	node := &fakeNode{
		name:     "probe",
		contract: Contract{},
		body: func(ctx context.Context, in *types.State) (*types.State, error) {
			return &types.State{Answer: in.Question}, nil
		},
	}

	out, err := Dispatch(context.Background(), node, &types.State{Question: "q"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "q", out.Answer)
}

func TestMerge_OnlyOverwritesDeclaredFields(t *testing.T) {
	base := &types.State{Question: "q", Answer: "old", FallbackTriggered: true}
	patch := &types.State{Answer: "new", FallbackTriggered: false}

	merged := Merge(base, patch, map[string]struct{}{"Answer": {}, "FallbackTriggered": {}})
	assert.Equal(t, "q", merged.Question)
	assert.Equal(t, "new", merged.Answer)
	assert.False(t, merged.FallbackTriggered, "declared field must be overwritten even to its zero value")
}

func TestMerge_NilFieldsFallsBackToNonZeroOverwrite(t *testing.T) {
	base := &types.State{Question: "q", Answer: "old"}
	patch := &types.State{Answer: "new"}

	merged := Merge(base, patch, nil)
	assert.Equal(t, "q", merged.Question)
	assert.Equal(t, "new", merged.Answer)
}
