package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Vector    VectorConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Summary   SummaryConfig
	Worker    WorkerConfig
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type VectorConfig struct {
	Backend    string // "qdrant" or "pgvector"
	QdrantURL  string
	QdrantKey  string
	Collection string
	Dimension  int
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	EmbeddingModel   string
	MaxRetries       int
}

type RetrievalConfig struct {
	PrefetchFactor int     // search limit multiplier when MMR follows
	MMRLambda      float64 // relevance/diversity trade-off, 0..1
	MMRConcurrency int     // bounded pool for MMR computation
}

type SummaryConfig struct {
	PrefixChunks   int // leading chunks fed to the TOC classifier
	PrefixMaxChars int
	RetrievalLimit int
	CacheTTLHours  int
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dimension, err := getEnvInt("VECTOR_DIMENSION", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid VECTOR_DIMENSION: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	mmrLambda, err := getEnvFloat("RETRIEVAL_MMR_LAMBDA", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_MMR_LAMBDA: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "qdrant"),
			QdrantURL:  getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantKey:  getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "document_chunks"),
			Dimension:  dimension,
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			EmbeddingModel:   getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			MaxRetries:       maxRetries,
		},
		Retrieval: RetrievalConfig{
			PrefetchFactor: getEnvIntDefault("RETRIEVAL_PREFETCH_FACTOR", 4),
			MMRLambda:      mmrLambda,
			MMRConcurrency: getEnvIntDefault("RETRIEVAL_MMR_CONCURRENCY", 4),
		},
		Summary: SummaryConfig{
			PrefixChunks:   getEnvIntDefault("SUMMARY_PREFIX_CHUNKS", 5),
			PrefixMaxChars: getEnvIntDefault("SUMMARY_PREFIX_MAX_CHARS", 6000),
			RetrievalLimit: getEnvIntDefault("SUMMARY_RETRIEVAL_LIMIT", 5),
			CacheTTLHours:  getEnvIntDefault("SUMMARY_CACHE_TTL_HOURS", 24),
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Vector.Backend == "qdrant" && c.Vector.QdrantURL == "" {
		missing = append(missing, "QDRANT_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("RETRIEVAL_MMR_LAMBDA must be in [0,1], got %v", c.Retrieval.MMRLambda)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvIntDefault(key string, fallback int) int {
	n, err := getEnvInt(key, fallback)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
