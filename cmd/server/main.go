// Command server boots the FAQ RAG pipeline engine: it wires every
// repository, model client, and chat_pipline node into one pipeline.Graph
// and serves the HTTP surface. Wiring goes through a go.uber.org/dig
// container rather than a hand-rolled wire-up function, so each
// component's constructor is registered once and the container resolves
// the dependency order.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/dig"

	_ "github.com/faqrag/engine/docs"
	"github.com/faqrag/engine/internal/application/repository/cache"
	"github.com/faqrag/engine/internal/application/repository/document"
	"github.com/faqrag/engine/internal/application/repository/lexical"
	"github.com/faqrag/engine/internal/application/repository/relationgraph"
	"github.com/faqrag/engine/internal/application/repository/session"
	"github.com/faqrag/engine/internal/application/repository/vectorstore"
	chatpipline "github.com/faqrag/engine/internal/application/service/chat_pipline"
	"github.com/faqrag/engine/internal/config"
	"github.com/faqrag/engine/internal/handler"
	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/middleware"
	"github.com/faqrag/engine/internal/models/chat"
	"github.com/faqrag/engine/internal/models/embedding"
	"github.com/faqrag/engine/internal/models/rerank"
	"github.com/faqrag/engine/internal/models/translate"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types/interfaces"
	"github.com/faqrag/engine/internal/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config YAML (optional; env vars and defaults otherwise)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.GetLogger(context.Background()).Fatalf("load config: %v", err)
	}
	utils.EnableCJKTokenization = cfg.Tokenization.EnableCJK

	nodeParams, err := config.LoadNodeParams(cfg.NodeParamsPath)
	if err != nil {
		logger.GetLogger(context.Background()).Fatalf("load node params: %v", err)
	}

	container := dig.New()
	for _, provide := range []interface{}{
		func() *config.Config { return cfg },
		func() *config.NodeParams { return nodeParams },

		newKVStore,
		newVectorStore,
		newDocumentStore,
		newLexicalStore,
		newRelationGraph,
		newSessionStore,
		newCacheManager,

		newChatModel,
		newEmbedder,
		newReranker,
		newTranslator,

		chatpipline.NewQueryExpander,
		newHybridRetrievalNode,
		newSessionLoadNode,
		newCacheCheckNode,
		newCacheStoreNode,
		newSessionUpdateNode,
		newGuardrailsInputNode,
		newGuardrailsOutputNode,
		chatpipline.NewLanguageDetectionNode,
		newQueryAggregationNode,
		newTranslationNode,
		chatpipline.NewDialogAnalysisNode,
		newDialogStateMachineNode,
		newTopicLoopDetectorNode,
		newClassificationNode,
		newMetadataFilterNode,
		newFusionRerankNode,
		newMultiHopResolverNode,
		newClarificationNode,
		newGenerationNode,

		newPipelineNodes,
		newPipelineGraph,

		func(docs *document.Store) *handler.HealthHandler { return handler.NewHealthHandler(docs) },
		newSearchHandler,
		handler.NewAskHandler,
		handler.NewRAGQueryHandler,

		newRouter,
	} {
		if err := container.Provide(provide); err != nil {
			logger.GetLogger(context.Background()).Fatalf("wire dependency %T: %v", provide, err)
		}
	}

	if err := container.Invoke(run); err != nil {
		logger.GetLogger(context.Background()).Fatalf("startup: %v", err)
	}
}

// --- store/model providers -------------------------------------------------

func newKVStore(cfg *config.Config) interfaces.KVStore {
	return cache.NewRedisKV(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}

func newVectorStore(cfg *config.Config) interfaces.VectorStore {
	return vectorstore.NewQdrantStore(cfg.Qdrant.Addr)
}

func newDocumentStore(cfg *config.Config) (*document.Store, error) {
	return document.NewStore(cfg.Postgres.DSN)
}

// newLexicalStore selects the full-text search backend the Hybrid
// Retrieval / Metadata Filter nodes consume (spec §4.4): Postgres
// tsvector by default, or Elasticsearch when configured (SPEC_FULL
// DOMAIN STACK), with id lookups always delegated to the relational
// store of record.
func newLexicalStore(cfg *config.Config, docs *document.Store) (interfaces.DocumentStore, error) {
	if cfg.Elasticsearch.Enabled && cfg.Lexical.Backend == "elasticsearch" {
		es, err := lexical.NewElasticsearchSearcher(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, docs)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch lexical backend: %w", err)
		}
		return es, nil
	}
	return docs, nil
}

// newRelationGraph builds the Multi-Hop Resolver's relation graph (spec
// §4.9): Neo4j when configured for large document sets, otherwise the
// in-process builder snapshotting document metadata once at startup.
func newRelationGraph(cfg *config.Config, docs *document.Store) (interfaces.RelationGraph, error) {
	if cfg.Neo4j.Enabled {
		return relationgraph.NewNeo4jGraph(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	records, err := docs.ListAll(ctx)
	if err != nil {
		logger.GetLogger(ctx).Warnf("relation graph: could not snapshot documents, building empty graph: %v", err)
		return relationgraph.NewInProcessGraph(nil), nil
	}

	metas := make([]relationgraph.DocMeta, 0, len(records))
	for _, r := range records {
		category, _ := r.Metadata["category"].(string)
		intent, _ := r.Metadata["intent"].(string)
		var topics []string
		if raw, ok := r.Metadata["clarifying_topics"].([]interface{}); ok {
			for _, t := range raw {
				if s, ok := t.(string); ok {
					topics = append(topics, s)
				}
			}
		}
		metas = append(metas, relationgraph.DocMeta{ID: r.ID, Category: category, Intent: intent, ClarifyingTopics: topics})
	}
	return relationgraph.NewInProcessGraph(metas), nil
}

func newSessionStore(cfg *config.Config, kv interfaces.KVStore) *session.Store {
	return session.NewStore(kv, cfg.Session.TTL)
}

func newCacheManager(cfg *config.Config, kv interfaces.KVStore, vectors interfaces.VectorStore) *cache.Manager {
	return cache.NewManager(kv, vectors,
		cfg.Cache.TierATTL, cfg.Cache.TierBSimilarityThreshold, cfg.Cache.TierBOverlapThreshold,
		cfg.Cache.WriteConfidenceThreshold, cfg.Qdrant.SemanticCacheCollection, cfg.Qdrant.VectorDim,
		cfg.Cache.LFUCapacity)
}

func newChatModel(cfg *config.Config) (chat.Chat, error) {
	return chat.New(chat.Config{
		Source:    cfg.Models.ChatSource,
		BaseURL:   cfg.Models.ChatBaseURL,
		APIKey:    cfg.Models.ChatAPIKey,
		ModelName: cfg.Models.ChatModelName,
		ModelID:   cfg.Models.ChatModelName,
	})
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	source := embedding.Source(cfg.Models.EmbeddingSource)
	provider := embedding.ProviderOpenAI
	if source == embedding.SourceRemote {
		provider = embedding.DetectProvider(cfg.Models.EmbeddingBaseURL)
	}
	return embedding.NewEmbedder(embedding.Config{
		Source:     source,
		Provider:   provider,
		BaseURL:    cfg.Models.EmbeddingBaseURL,
		ModelName:  cfg.Models.EmbeddingModelName,
		APIKey:     cfg.Models.EmbeddingAPIKey,
		Dimensions: cfg.Models.EmbeddingDimensions,
		ModelID:    cfg.Models.EmbeddingModelName,
	})
}

func newReranker(cfg *config.Config) (rerank.Reranker, error) {
	return rerank.New(rerank.Config{
		BaseURL:   cfg.Models.RerankBaseURL,
		APIKey:    cfg.Models.RerankAPIKey,
		ModelName: cfg.Models.RerankModelName,
		ModelID:   cfg.Models.RerankModelName,
	})
}

func newTranslator(model chat.Chat) translate.Translator {
	return translate.NewLLMTranslator(model)
}

// --- pipeline node providers ------------------------------------------------

func newHybridRetrievalNode(cfg *config.Config, np *config.NodeParams, embedder embedding.Embedder, vectors interfaces.VectorStore,
	docs interfaces.DocumentStore, expander *chatpipline.QueryExpander,
) *chatpipline.HybridRetrievalNode {
	topK := np.GetInt(chatpipline.NodeHybridRetrieval, "top_k", cfg.Retrieval.TopK)
	rrfK := np.GetInt(chatpipline.NodeHybridRetrieval, "rrf_k", cfg.Retrieval.RRFK)
	probeThreshold := np.GetFloat(chatpipline.NodeHybridRetrieval, "rerank_threshold", cfg.Retrieval.RerankThreshold)
	return chatpipline.NewHybridRetrievalNode(embedder, vectors, docs, expander,
		cfg.Qdrant.DocumentCollection, topK, rrfK, probeThreshold)
}

func newSessionLoadNode(store *session.Store) *chatpipline.SessionLoadNode {
	return chatpipline.NewSessionLoadNode(store)
}

func newCacheCheckNode(manager *cache.Manager, embedder embedding.Embedder) *chatpipline.CacheCheckNode {
	return chatpipline.NewCacheCheckNode(manager, embedder)
}

func newCacheStoreNode(manager *cache.Manager) *chatpipline.CacheStoreNode {
	return chatpipline.NewCacheStoreNode(manager)
}

func newSessionUpdateNode(store *session.Store) *chatpipline.SessionUpdateNode {
	return chatpipline.NewSessionUpdateNode(store)
}

func newGuardrailsInputNode(cfg *config.Config, np *config.NodeParams) *chatpipline.GuardrailsInputNode {
	return chatpipline.NewGuardrailsInputNode(guardrailsConfig(cfg, np, chatpipline.NodeGuardrailsInput))
}

func newGuardrailsOutputNode(cfg *config.Config, np *config.NodeParams) *chatpipline.GuardrailsOutputNode {
	return chatpipline.NewGuardrailsOutputNode(guardrailsConfig(cfg, np, chatpipline.NodeGuardrailsOutput))
}

// guardrailsConfig resolves the sanitize and block thresholds through the Config
// Registry's per-node override (np.GetFloat(node, ...)) before falling
// back to the process-wide default, so an operator can tune the input
// and output stages independently via NodeParamsPath without a redeploy.
func guardrailsConfig(cfg *config.Config, np *config.NodeParams, node string) chatpipline.GuardrailsConfig {
	return chatpipline.GuardrailsConfig{
		MaxInputTokens:    cfg.Guardrails.MaxInputTokens,
		AllowedLanguages:  cfg.Guardrails.AllowedLanguages,
		BannedTopics:      cfg.Guardrails.BannedTopics,
		SanitizeThreshold: np.GetFloat(node, "sanitize_threshold", 0.4),
		BlockThreshold:    np.GetFloat(node, "block_threshold", 0.7),
	}
}

func newQueryAggregationNode(model chat.Chat) *chatpipline.QueryAggregationNode {
	return chatpipline.NewQueryAggregationNode(model, 3)
}

func newTranslationNode(translator translate.Translator) *chatpipline.TranslationNode {
	return chatpipline.NewTranslationNode(translator)
}

func newDialogStateMachineNode(cfg *config.Config, np *config.NodeParams) *chatpipline.DialogStateMachineNode {
	maxAttempts := np.GetInt(chatpipline.NodeDialogStateMachine, "max_attempts", cfg.Dialog.MaxAttempts)
	escalateOnMax := np.GetBool(chatpipline.NodeDialogStateMachine, "escalate_on_max_attempts", true)
	return chatpipline.NewDialogStateMachineNode(maxAttempts, escalateOnMax)
}

func newTopicLoopDetectorNode(cfg *config.Config, np *config.NodeParams, embedder embedding.Embedder, translator translate.Translator) *chatpipline.TopicLoopDetectorNode {
	threshold := np.GetFloat(chatpipline.NodeTopicLoopDetector, "threshold", cfg.Dialog.TopicLoopThreshold)
	minMessages := np.GetInt(chatpipline.NodeTopicLoopDetector, "min_messages_for_loop", cfg.Dialog.TopicLoopMinMessages)
	return chatpipline.NewTopicLoopDetectorNode(embedder, translator, threshold, minMessages)
}

func newClassificationNode(model chat.Chat) *chatpipline.ClassificationNode {
	return chatpipline.NewClassificationNode(model, nil, nil)
}

func newMetadataFilterNode(docs interfaces.DocumentStore) *chatpipline.MetadataFilterNode {
	return chatpipline.NewMetadataFilterNode(docs, 0.5)
}

func newFusionRerankNode(cfg *config.Config, np *config.NodeParams, reranker rerank.Reranker) *chatpipline.FusionRerankNode {
	topKRerank := np.GetInt(chatpipline.NodeFusionRerank, "top_k_rerank", cfg.Retrieval.TopKRerank)
	return chatpipline.NewFusionRerankNode(reranker, topKRerank)
}

func newMultiHopResolverNode(cfg *config.Config, np *config.NodeParams, graph interfaces.RelationGraph, docs interfaces.DocumentStore) *chatpipline.MultiHopResolverNode {
	budget := np.GetInt(chatpipline.NodeMultiHop, "context_char_budget", cfg.Multihop.ContextCharBudget)
	return chatpipline.NewMultiHopResolverNode(graph, docs, budget)
}

func newClarificationNode(translator translate.Translator) *chatpipline.ClarificationNode {
	return chatpipline.NewClarificationNode(translator)
}

func newGenerationNode(model chat.Chat) *chatpipline.GenerationNode {
	return chatpipline.NewGenerationNode(model)
}

func newPipelineNodes(
	sessionLoad *chatpipline.SessionLoadNode,
	cacheCheck *chatpipline.CacheCheckNode,
	guardrailsInput *chatpipline.GuardrailsInputNode,
	languageDetection *chatpipline.LanguageDetectionNode,
	queryAggregation *chatpipline.QueryAggregationNode,
	translation *chatpipline.TranslationNode,
	dialogAnalysis *chatpipline.DialogAnalysisNode,
	dialogStateMachine *chatpipline.DialogStateMachineNode,
	topicLoopDetector *chatpipline.TopicLoopDetectorNode,
	classification *chatpipline.ClassificationNode,
	metadataFilter *chatpipline.MetadataFilterNode,
	hybridRetrieval *chatpipline.HybridRetrievalNode,
	fusionRerank *chatpipline.FusionRerankNode,
	multiHop *chatpipline.MultiHopResolverNode,
	clarification *chatpipline.ClarificationNode,
	generation *chatpipline.GenerationNode,
	guardrailsOutput *chatpipline.GuardrailsOutputNode,
	cacheStore *chatpipline.CacheStoreNode,
	sessionUpdate *chatpipline.SessionUpdateNode,
) chatpipline.Nodes {
	return chatpipline.Nodes{
		SessionLoad:        sessionLoad,
		CacheCheck:         cacheCheck,
		GuardrailsInput:    guardrailsInput,
		LanguageDetection:  languageDetection,
		QueryAggregation:   queryAggregation,
		Translation:        translation,
		DialogAnalysis:     dialogAnalysis,
		DialogStateMachine: dialogStateMachine,
		TopicLoopDetector:  topicLoopDetector,
		Classification:     classification,
		MetadataFilter:     metadataFilter,
		HybridRetrieval:    hybridRetrieval,
		FusionRerank:       fusionRerank,
		MultiHop:           multiHop,
		Clarification:      clarification,
		Generation:         generation,
		GuardrailsOutput:   guardrailsOutput,
		CacheStore:         cacheStore,
		SessionUpdate:      sessionUpdate,
	}
}

func newPipelineGraph(nodes chatpipline.Nodes) *pipeline.Graph {
	return chatpipline.BuildGraph(nodes)
}

func newSearchHandler(retrieval *chatpipline.HybridRetrievalNode) *handler.SearchHandler {
	return handler.NewSearchHandler(retrieval)
}

// --- HTTP router -------------------------------------------------------------

func newRouter(
	cfg *config.Config,
	health *handler.HealthHandler,
	search *handler.SearchHandler,
	ask *handler.AskHandler,
	rag *handler.RAGQueryHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/health", health.GetHealth)
	r.GET("/search", search.Search)
	r.GET("/ask", ask.Ask)

	r.GET("/rag/query/schema", rag.Schema)

	protected := r.Group("/")
	protected.Use(middleware.JWTAuth(cfg.Auth.JWTSecret))
	protected.POST("/rag/query", rag.Query)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// --- startup orchestration ---------------------------------------------------

func run(cfg *config.Config, router *gin.Engine, embedder embedding.Embedder, cacheManager *cache.Manager) error {
	ctx := context.Background()

	// Warm up the embedder with a dummy call so the first real request
	// doesn't pay cold-start latency (spec §5: "warmed up at startup").
	if _, err := embedder.Embed(ctx, "warmup", true); err != nil {
		logger.GetLogger(ctx).Warnf("embedder warmup failed: %v", err)
	}

	stopSweep := startSweepScheduler(ctx, cfg, cacheManager)
	defer stopSweep()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.GetLogger(ctx).Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// startSweepScheduler registers the periodic Tier B TTL sweep (spec
// §4.3 Maintenance) as a recurring asynq task, backed by the same Redis
// instance as the key/value store. Scheduler failures (e.g. Redis
// unreachable) are logged and degrade to no periodic sweep rather than
// blocking server startup, matching spec §7's best-effort policy for
// maintenance concerns.
func startSweepScheduler(ctx context.Context, cfg *config.Config, manager *cache.Manager) func() {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 1h", cache.NewSweepTask()); err != nil {
		logger.GetLogger(ctx).Warnf("register cache sweep schedule: %v", err)
		return func() {}
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.GetLogger(ctx).Warnf("cache sweep scheduler stopped: %v", err)
		}
	}()

	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 2})
	mux := asynq.NewServeMux()
	mux.Handle(cache.SweepTaskType, cache.NewSweepHandler(manager))
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.GetLogger(ctx).Warnf("cache sweep worker stopped: %v", err)
		}
	}()

	return func() {
		scheduler.Shutdown()
		srv.Shutdown()
	}
}
