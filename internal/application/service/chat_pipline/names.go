// Package chatpipline implements the concrete pipeline nodes, one file
// per node, each satisfying the Node Contract Layer (internal/pipeline.Node).
package chatpipline

// Node names, used both as map keys in pipeline.Graph and as the
// tracing-span name. Ordered leaves-first by dependency.
const (
	NodeSessionLoad         = "session_load"
	NodeCacheCheck          = "cache_check"
	NodeGuardrailsInput     = "guardrails_input"
	NodeLanguageDetection   = "language_detection"
	NodeQueryAggregation    = "query_aggregation"
	NodeTranslation         = "translation"
	NodeDialogAnalysis      = "dialog_analysis"
	NodeDialogStateMachine  = "dialog_state_machine"
	NodeTopicLoopDetector   = "topic_loop_detector"
	NodeClassification      = "classification"
	NodeMetadataFilter      = "metadata_filter"
	NodeQueryExpansion      = "query_expansion"
	NodeHybridRetrieval     = "hybrid_retrieval"
	NodeFusionRerank        = "fusion_rerank"
	NodeMultiHop            = "multihop"
	NodeClarification       = "clarification"
	NodeGeneration          = "generation"
	NodeGuardrailsOutput    = "guardrails_output"
	NodeCacheStore          = "cache_store"
	NodeSessionUpdate       = "session_update"

	// TerminalCacheHit is the generation-skipping terminal the
	// post-cache branch jumps to (spec §4.2): the cached answer still
	// passes through output guardrails before the graph continues to
	// cache-store/session-update, so it is an alias for
	// NodeGuardrailsOutput rather than a dedicated no-op node.
	TerminalCacheHit = NodeGuardrailsOutput
)
