package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/config"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/queue"
	"car-assist-rag/internal/rag"
	"car-assist-rag/internal/vectorstore/mongostore"
	"car-assist-rag/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	geminiClient, err := ai.NewGeminiClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	geminiEmbedder, err := ai.NewGeminiEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer geminiEmbedder.Close()

	var embedder ai.Embedder = geminiEmbedder
	if cfg.EmbedCacheTTL > 0 {
		embedder = ai.NewCachedEmbedder(geminiEmbedder, rdb, cfg.EmbeddingsModel,
			time.Duration(cfg.EmbedCacheTTL)*time.Second)
	}

	store := mongostore.NewStorage(db, utils.CompressionAlgorithm(cfg.ChunkCompression))

	ragSvc, err := rag.NewService(rag.ServiceConfig{
		MaxChunkSize:  cfg.MaxChunkSize,
		ChunkOverlap:  cfg.ChunkOverlap,
		TopK:          cfg.TopKChunks,
		HistoryWindow: cfg.HistoryWindow,
		RewriteGrowth: cfg.RewriteMaxGrowth,
	}, embedder, geminiClient, store, nil)
	if err != nil {
		log.Fatal("Failed to build pipeline:", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"ingestion": 6,
				"default":   4,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(db, ragSvc)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.ProcessIngest)

	logger.Info("starting ingestion worker", "redis", cfg.RedisURL, "concurrency", 10)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
