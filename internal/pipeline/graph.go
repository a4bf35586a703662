package pipeline

import (
	"context"
	"fmt"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/types"
)

// BranchFunc maps the current state bag to a successor node name. It
// returns "" to fall through to the graph's default next edge.
type BranchFunc func(state *types.State) string

// edge is either unconditional (Branch == nil, Next is authoritative) or
// conditional (Branch decides, falling back to Next), per spec §4.2.
type edge struct {
	Next   string
	Branch BranchFunc
}

// Graph is a directed graph of nodes built from an enabled-nodes list,
// executed single-threaded cooperative per request (spec §4.2).
type Graph struct {
	nodes map[string]Node
	order []string
	edges map[string]edge
	start string
}

// NewGraph builds an empty graph. Nodes and edges are added with AddNode
// and AddEdge/AddBranch before calling Run.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string]edge),
	}
}

// AddNode registers a node under its own Name(). The first node added
// becomes the entry point unless SetStart overrides it.
func (g *Graph) AddNode(n Node) *Graph {
	name := n.Name()
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = n
	if g.start == "" {
		g.start = name
	}
	return g
}

// SetStart overrides the entry point.
func (g *Graph) SetStart(name string) *Graph {
	g.start = name
	return g
}

// AddEdge declares an unconditional successor for "from".
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = edge{Next: to}
	return g
}

// AddBranch declares a conditional successor for "from"; fallback is used
// when branch returns "".
func (g *Graph) AddBranch(from string, branch BranchFunc, fallback string) *Graph {
	g.edges[from] = edge{Next: fallback, Branch: branch}
	return g
}

// TerminalNode is a sentinel name meaning "stop the walk here" — used by
// branches like the post-cache jump to a generation-skipping terminal
// (spec §4.2).
const TerminalNode = ""

// Run walks the graph from the start node, dispatching each node through
// the contract layer and merging its validated output back into state,
// until it reaches a node with no outgoing edge or a branch yields
// TerminalNode. Cancellation is via ctx deadline propagation (spec §4.2).
func (g *Graph) Run(ctx context.Context, state *types.State) (*types.State, error) {
	current := g.start
	visited := make(map[string]int)
	produced := NewProducedSet(state)

	for current != TerminalNode {
		node, ok := g.nodes[current]
		if !ok {
			return state, types.NewError(types.ErrInternal, current,
				fmt.Errorf("no such node registered"))
		}

		visited[current]++
		if visited[current] > len(g.nodes)+1 {
			return state, types.NewError(types.ErrInternal, current,
				fmt.Errorf("graph walk did not terminate, possible cycle"))
		}

		select {
		case <-ctx.Done():
			return state, types.NewError(types.ErrTimeout, current, ctx.Err())
		default:
		}

		common.PipelineInfo(ctx, current, "dispatch_start", nil)
		patch, err := Dispatch(ctx, node, state, produced)
		if err != nil {
			common.PipelineError(ctx, current, "dispatch_error", map[string]interface{}{
				"error": err.Error(),
			})
			return state, err
		}
		// In pass-through (non-strict) mode there is no declared contract
		// to key the merge on, so fall back to Merge's non-zero-overwrite
		// behavior exactly as strict mode's checkRequired/validateOutput
		// also fall back when StrictMode is off.
		var mergeFields map[string]struct{}
		if StrictMode {
			mergeFields = node.Contract().allowedOutputs()
		}
		state = Merge(state, patch, mergeFields)
		common.PipelineInfo(ctx, current, "dispatch_done", nil)

		next, err := g.nextNode(current, state)
		if err != nil {
			return state, err
		}
		current = next
	}
	return state, nil
}

func (g *Graph) nextNode(from string, state *types.State) (string, error) {
	e, ok := g.edges[from]
	if !ok {
		return TerminalNode, nil
	}
	if e.Branch != nil {
		if target := e.Branch(state); target != "" {
			return target, nil
		}
	}
	return e.Next, nil
}

// PostCacheBranch implements spec §4.2's post-cache branch: a cache hit
// jumps straight to the named generation-skipping terminal node.
func PostCacheBranch(terminal string) BranchFunc {
	return func(state *types.State) string {
		if state.CacheHit {
			return terminal
		}
		return ""
	}
}

// PostRouteBranch implements spec §4.2's post-route branch: an escalation
// handoff jumps straight to generation with EscalationMessage pre-set.
func PostRouteBranch(generationNode string) BranchFunc {
	return func(state *types.State) string {
		if state.DialogState == types.StateEscalationNeeded ||
			state.DialogState == types.StateEscalationRequested {
			return generationNode
		}
		return ""
	}
}
