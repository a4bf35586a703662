package chatpipline

import (
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// Nodes bundles one constructed instance of every chat_pipline node, the
// shape cmd/server builds at startup and hands to BuildGraph. Keeping
// the bundle as a struct, rather than a long positional argument list,
// keeps constructor call sites readable as the node count grows.
type Nodes struct {
	SessionLoad        *SessionLoadNode
	CacheCheck         *CacheCheckNode
	GuardrailsInput    *GuardrailsInputNode
	LanguageDetection  *LanguageDetectionNode
	QueryAggregation   *QueryAggregationNode
	Translation        *TranslationNode
	DialogAnalysis     *DialogAnalysisNode
	DialogStateMachine *DialogStateMachineNode
	TopicLoopDetector  *TopicLoopDetectorNode
	Classification     *ClassificationNode
	MetadataFilter     *MetadataFilterNode
	HybridRetrieval    *HybridRetrievalNode
	FusionRerank       *FusionRerankNode
	MultiHop           *MultiHopResolverNode
	Clarification      *ClarificationNode
	Generation         *GenerationNode
	GuardrailsOutput   *GuardrailsOutputNode
	CacheStore         *CacheStoreNode
	SessionUpdate      *SessionUpdateNode
}

// BuildGraph wires the 19 dispatchable nodes into the directed graph
// spec §2's leaves-first dependency order implies and spec §4.2's two
// named branches require. QueryExpansion is not wired here: it runs as
// an internal collaborator of HybridRetrievalNode rather than its own
// graph stage (spec §4.5's expansion is part of retrieval's
// probe-then-expand strategy, not a separate dispatch boundary).
func BuildGraph(n Nodes) *pipeline.Graph {
	g := pipeline.NewGraph()

	g.AddNode(n.SessionLoad)
	g.AddNode(n.CacheCheck)
	g.AddNode(n.GuardrailsInput)
	g.AddNode(n.LanguageDetection)
	g.AddNode(n.QueryAggregation)
	g.AddNode(n.Translation)
	g.AddNode(n.DialogAnalysis)
	g.AddNode(n.DialogStateMachine)
	g.AddNode(n.TopicLoopDetector)
	g.AddNode(n.Classification)
	g.AddNode(n.MetadataFilter)
	g.AddNode(n.HybridRetrieval)
	g.AddNode(n.FusionRerank)
	g.AddNode(n.MultiHop)
	g.AddNode(n.Clarification)
	g.AddNode(n.Generation)
	g.AddNode(n.GuardrailsOutput)
	g.AddNode(n.CacheStore)
	g.AddNode(n.SessionUpdate)

	g.SetStart(NodeSessionLoad)
	g.AddEdge(NodeSessionLoad, NodeCacheCheck)

	// Post-cache branch (spec §4.2): a cache hit jumps straight to the
	// output guardrails stage, skipping every retrieval/generation node
	// in between, and still gets scanned before it leaves the process.
	g.AddBranch(NodeCacheCheck, pipeline.PostCacheBranch(TerminalCacheHit), NodeGuardrailsInput)

	// A blocked input never reaches retrieval or generation (spec §4.11:
	// "skips downstream stages"); it still flows through cache-store
	// (where low/zero confidence keeps it from being cached) and
	// session-update so history and dialog state stay consistent.
	g.AddBranch(NodeGuardrailsInput, guardrailsBlockedBranch(NodeCacheStore), NodeLanguageDetection)

	g.AddEdge(NodeLanguageDetection, NodeQueryAggregation)
	g.AddEdge(NodeQueryAggregation, NodeTranslation)
	g.AddEdge(NodeTranslation, NodeDialogAnalysis)
	g.AddEdge(NodeDialogAnalysis, NodeDialogStateMachine)

	// Post-route branch (spec §4.2): an escalation handoff jumps
	// straight to generation, which returns EscalationMessage verbatim.
	g.AddBranch(NodeDialogStateMachine, pipeline.PostRouteBranch(NodeGeneration), NodeTopicLoopDetector)

	g.AddEdge(NodeTopicLoopDetector, NodeClassification)
	g.AddEdge(NodeClassification, NodeMetadataFilter)
	g.AddEdge(NodeMetadataFilter, NodeHybridRetrieval)
	g.AddEdge(NodeHybridRetrieval, NodeFusionRerank)
	g.AddEdge(NodeFusionRerank, NodeMultiHop)
	g.AddEdge(NodeMultiHop, NodeClarification)

	// An active clarification sub-dialogue already has its Answer set to
	// the next (or first) question; generation must not overwrite it.
	g.AddBranch(NodeClarification, clarificationActiveBranch(NodeGuardrailsOutput), NodeGeneration)

	g.AddEdge(NodeGeneration, NodeGuardrailsOutput)
	g.AddEdge(NodeGuardrailsOutput, NodeCacheStore)
	g.AddEdge(NodeCacheStore, NodeSessionUpdate)

	return g
}

func guardrailsBlockedBranch(terminal string) pipeline.BranchFunc {
	return func(state *types.State) string {
		if state.GuardrailsBlocked {
			return terminal
		}
		return ""
	}
}

func clarificationActiveBranch(terminal string) pipeline.BranchFunc {
	return func(state *types.State) string {
		if state.ClarificationContext != nil && state.ClarificationContext.Active {
			return terminal
		}
		return ""
	}
}
