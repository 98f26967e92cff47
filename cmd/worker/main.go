package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/docuchat/docuchat/internal/cache"
	"github.com/docuchat/docuchat/internal/config"
	"github.com/docuchat/docuchat/internal/database"
	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/llm"
	"github.com/docuchat/docuchat/internal/queue"
	"github.com/docuchat/docuchat/internal/queue/workers"
	"github.com/docuchat/docuchat/internal/rag"
	"github.com/docuchat/docuchat/internal/summarize"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var index vectorstore.Index
	switch cfg.Vector.Backend {
	case "pgvector":
		index = vectorstore.NewPgVectorIndex(pool)
	default:
		index = vectorstore.NewQdrantIndex(vectorstore.QdrantConfig{
			URL:        cfg.Vector.QdrantURL,
			APIKey:     cfg.Vector.QdrantKey,
			Collection: cfg.Vector.Collection,
		})
	}
	if err := index.EnsureCollection(ctx, cfg.Vector.Dimension); err != nil {
		slog.Error("failed to ensure vector collection", "error", err, "backend", cfg.Vector.Backend)
		os.Exit(1)
	}

	gateway := llm.NewGateway(cfg.LLM)
	store := cache.New(redisClient)
	embedder := embedding.NewService(gateway, cfg.LLM.EmbeddingModel, cfg.Vector.Dimension).WithCache(store)

	reranker := rag.NewReranker(cfg.Retrieval.MMRConcurrency, cfg.Retrieval.MMRLambda)
	retriever := rag.NewRetriever(index, embedder, reranker).
		WithPrefetchFactor(cfg.Retrieval.PrefetchFactor)

	workflow := summarize.New(index, retriever, gateway, summarize.Options{
		Model:          cfg.LLM.DefaultModel,
		PrefixChunks:   cfg.Summary.PrefixChunks,
		PrefixMaxChars: cfg.Summary.PrefixMaxChars,
		RetrievalLimit: cfg.Summary.RetrievalLimit,
	})

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewRegistry()

	ingestWorker := workers.NewIngestWorker(index, embedder)
	summaryWorker := workers.NewSummaryWorker(workflow, store,
		time.Duration(cfg.Summary.CacheTTLHours)*time.Hour)

	registry.HandleDocumentIngest(asynq.HandlerFunc(ingestWorker.ProcessTask))
	registry.HandleSummaryGenerate(asynq.HandlerFunc(summaryWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency, "vector_backend", cfg.Vector.Backend)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
