package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/config"
)

// probeResult is one dependency's health check outcome.
type probeResult struct {
	Status string `json:"status"` // ok, failed
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
	MS     int64  `json:"latency_ms"`
}

// SetupConnectivityRoutes exposes startup-style validation of every
// external dependency. Useful to distinguish "bad API key" from
// "network down" before ingesting anything.
func SetupConnectivityRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, rdb *redis.Client, embedder ai.Embedder, generator ai.TextGenerator) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// GET /connectivity probes every dependency and reports per-service
	// results. Embedding and generation failures carry the error kind so
	// callers can tell auth problems from transient outages.
	router.GET("/connectivity", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		results := gin.H{}
		healthy := true

		results["mongodb"] = probeMongo(ctx, mongoClient)
		results["redis"] = probeRedis(ctx, rdb)
		results["embeddings"] = probeEmbeddings(ctx, cfg, embedder)
		results["generation"] = probeGeneration(ctx, generator)

		for _, r := range results {
			if pr, ok := r.(probeResult); ok && pr.Status != "ok" {
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"healthy":   healthy,
			"services":  results,
			"timestamp": time.Now(),
		})
	})
}

func probeMongo(ctx context.Context, client *mongo.Client) probeResult {
	start := time.Now()
	if err := client.Ping(ctx, nil); err != nil {
		return probeResult{Status: "failed", Kind: string(ai.KindConnectivity), Error: err.Error(), MS: time.Since(start).Milliseconds()}
	}
	return probeResult{Status: "ok", MS: time.Since(start).Milliseconds()}
}

func probeRedis(ctx context.Context, rdb *redis.Client) probeResult {
	start := time.Now()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return probeResult{Status: "failed", Kind: string(ai.KindConnectivity), Error: err.Error(), MS: time.Since(start).Milliseconds()}
	}
	return probeResult{Status: "ok", MS: time.Since(start).Milliseconds()}
}

// probeEmbeddings embeds a short fixed string and verifies the vector
// arrives at the configured dimensionality.
func probeEmbeddings(ctx context.Context, cfg *config.Config, embedder ai.Embedder) probeResult {
	start := time.Now()
	vec, err := embedder.Embed(ctx, "connectivity check")
	if err != nil {
		se := ai.Classify(ai.ServiceEmbedding, err)
		return probeResult{Status: "failed", Kind: string(se.Kind), Error: se.Error(), MS: time.Since(start).Milliseconds()}
	}
	if len(vec) != cfg.VectorDimensions {
		return probeResult{
			Status: "failed",
			Kind:   string(ai.KindUnknown),
			Error:  "unexpected embedding dimensionality",
			MS:     time.Since(start).Milliseconds(),
		}
	}
	return probeResult{Status: "ok", MS: time.Since(start).Milliseconds()}
}

// probeGeneration asks the model to say OK and checks it answered
// something.
func probeGeneration(ctx context.Context, generator ai.TextGenerator) probeResult {
	start := time.Now()
	text, err := generator.GenerateText(ctx, "Say 'OK' and nothing else.")
	if err != nil {
		se := ai.Classify(ai.ServiceGeneration, err)
		return probeResult{Status: "failed", Kind: string(se.Kind), Error: se.Error(), MS: time.Since(start).Milliseconds()}
	}
	if strings.TrimSpace(text) == "" {
		return probeResult{Status: "failed", Kind: string(ai.KindUnknown), Error: "empty generation response", MS: time.Since(start).Milliseconds()}
	}
	return probeResult{Status: "ok", MS: time.Since(start).Milliseconds()}
}
