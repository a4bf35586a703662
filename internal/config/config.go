// Package config loads global and per-node settings via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide settings object. Fields mirror the
// original_source Settings groups (cache, retrieval, multihop, dialog,
// guardrails, models) rather than WeKnora's document-ingestion config,
// since those concerns don't apply to this pipeline.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Qdrant struct {
		Addr                string `mapstructure:"addr"`
		DocumentCollection  string `mapstructure:"document_collection"`
		SemanticCacheCollection string `mapstructure:"semantic_cache_collection"`
		VectorDim           int    `mapstructure:"vector_dim"`
	} `mapstructure:"qdrant"`

	Elasticsearch struct {
		Addresses []string `mapstructure:"addresses"`
		Index     string   `mapstructure:"index"`
		Enabled   bool     `mapstructure:"enabled"`
	} `mapstructure:"elasticsearch"`

	Neo4j struct {
		URI      string `mapstructure:"uri"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Enabled  bool   `mapstructure:"enabled"`
	} `mapstructure:"neo4j"`

	Cache struct {
		TierATTL              time.Duration `mapstructure:"tier_a_ttl"`
		TierBSimilarityThreshold float64    `mapstructure:"tier_b_similarity_threshold"`
		TierBOverlapThreshold    float64    `mapstructure:"tier_b_overlap_threshold"`
		WriteConfidenceThreshold float64    `mapstructure:"write_confidence_threshold"`
		LFUCapacity              int        `mapstructure:"lfu_capacity"`
	} `mapstructure:"cache"`

	Retrieval struct {
		TopK               int     `mapstructure:"top_k"`
		RRFK               int     `mapstructure:"rrf_k"`
		RerankThreshold    float64 `mapstructure:"rerank_threshold"`
		TopKRerank         int     `mapstructure:"top_k_rerank"`
	} `mapstructure:"retrieval"`

	Multihop struct {
		MaxHops           int `mapstructure:"max_hops"`
		ContextCharBudget int `mapstructure:"context_char_budget"`
	} `mapstructure:"multihop"`

	Dialog struct {
		MaxAttempts            int     `mapstructure:"max_attempts"`
		TopicLoopWindow        int     `mapstructure:"topic_loop_window"`
		TopicLoopThreshold     float64 `mapstructure:"topic_loop_threshold"`
		TopicLoopMinMessages   int     `mapstructure:"topic_loop_min_messages"`
	} `mapstructure:"dialog"`

	Session struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`

	Guardrails struct {
		MaxInputTokens   int      `mapstructure:"max_input_tokens"`
		AllowedLanguages []string `mapstructure:"allowed_languages"`
		BannedTopics     []string `mapstructure:"banned_topics"`
	} `mapstructure:"guardrails"`

	Tokenization struct {
		EnableCJK bool `mapstructure:"enable_cjk"`
	} `mapstructure:"tokenization"`

	Models struct {
		ChatSource      string `mapstructure:"chat_source"`
		ChatBaseURL     string `mapstructure:"chat_base_url"`
		ChatAPIKey      string `mapstructure:"chat_api_key"`
		ChatModelName   string `mapstructure:"chat_model_name"`

		EmbeddingSource    string `mapstructure:"embedding_source"`
		EmbeddingBaseURL   string `mapstructure:"embedding_base_url"`
		EmbeddingAPIKey    string `mapstructure:"embedding_api_key"`
		EmbeddingModelName string `mapstructure:"embedding_model_name"`
		EmbeddingDimensions int   `mapstructure:"embedding_dimensions"`

		RerankBaseURL   string `mapstructure:"rerank_base_url"`
		RerankAPIKey    string `mapstructure:"rerank_api_key"`
		RerankModelName string `mapstructure:"rerank_model_name"`
	} `mapstructure:"models"`

	NodeParamsPath string `mapstructure:"node_params_path"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Lexical struct {
		Backend string `mapstructure:"backend"` // "postgres" (default) or "elasticsearch"
	} `mapstructure:"lexical"`
}

// Load reads configuration from the given file path (if non-empty),
// environment variables (prefixed RAG_, nested keys joined by
// underscore), and defaults, the way WeKnora's cmd/server bootstraps
// Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("qdrant.addr", "localhost:6334")
	v.SetDefault("qdrant.document_collection", "documents")
	v.SetDefault("qdrant.semantic_cache_collection", "semantic_cache")
	v.SetDefault("qdrant.vector_dim", 384)

	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.index", "documents")

	v.SetDefault("neo4j.enabled", false)

	v.SetDefault("cache.tier_a_ttl", 24*time.Hour)
	v.SetDefault("cache.tier_b_similarity_threshold", 0.92)
	v.SetDefault("cache.tier_b_overlap_threshold", 0.30)
	v.SetDefault("cache.write_confidence_threshold", 0.7)
	v.SetDefault("cache.lfu_capacity", 1000)

	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.rrf_k", 60)
	v.SetDefault("retrieval.rerank_threshold", 0.5)
	v.SetDefault("retrieval.top_k_rerank", 5)

	v.SetDefault("multihop.max_hops", 3)
	v.SetDefault("multihop.context_char_budget", 5000)

	v.SetDefault("dialog.max_attempts", 3)
	v.SetDefault("dialog.topic_loop_window", 4)
	v.SetDefault("dialog.topic_loop_threshold", 0.85)
	v.SetDefault("dialog.topic_loop_min_messages", 2)

	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("guardrails.max_input_tokens", 4000)
	v.SetDefault("guardrails.allowed_languages", []string{"en", "ru"})

	v.SetDefault("tokenization.enable_cjk", false)

	v.SetDefault("models.chat_source", "local")
	v.SetDefault("models.embedding_source", "local")
	v.SetDefault("models.embedding_dimensions", 384)

	v.SetDefault("lexical.backend", "postgres")
}
