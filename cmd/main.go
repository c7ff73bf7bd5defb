package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/config"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/rag"
	"car-assist-rag/internal/telemetry"
	"car-assist-rag/internal/vectorstore/mongostore"
	"car-assist-rag/middleware"
	"car-assist-rag/routes"
	"car-assist-rag/services"
	"car-assist-rag/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("car-assist-rag", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

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
	}, embedder, geminiClient, store, metrics)
	if err != nil {
		log.Fatal("Failed to build pipeline:", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	monitor := services.NewMonitorService(db, ragSvc, cfg.DefaultCollection, cfg.MonitorIntervalMinutes)
	if err := monitor.Start(); err != nil {
		logger.Warn("monitor service not started", "error", err)
	}
	defer monitor.Stop()

	exporter := services.NewExportService(db.Collection("messages"))

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("car-assist-rag"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	routes.SetupConnectivityRoutes(router, cfg, mongoClient, rdb, embedder, geminiClient)
	routes.SetupAuthRoutes(router, cfg, db)
	routes.SetupChatRoutes(router, cfg, db, ragSvc, authMiddleware)
	routes.SetupDocumentRoutes(router, cfg, db, ragSvc, asynqClient, authMiddleware)
	routes.SetupMonitorRoutes(router, cfg, ragSvc, monitor, exporter, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
