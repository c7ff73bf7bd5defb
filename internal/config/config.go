package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	MongoURI string
	DBName   string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini / embeddings
	GeminiAPIKey     string
	GeminiModel      string
	GeminiTier       string
	EmbeddingsModel  string
	VectorDimensions int

	// RAG pipeline
	DefaultCollection string
	MaxChunkSize      int // words
	ChunkOverlap      int // words
	TopKChunks        int
	HistoryWindow     int // raw turns kept for query rewriting
	RewriteMaxGrowth  int // rewrite sanity bound, multiple of query length
	CallTimeout       int // seconds, per external AI call

	// Ingestion
	FileStorageDir      string
	MaxFileSize         int64
	SyncProcessingLimit int64 // files above this are queued to the worker
	ChunkCompression    string

	// Auth
	JWTSecret      string
	JWTExpiresIn   string
	BcryptCost     int
	RateLimitReqs  int
	RateLimitWindow int

	// Embedding cache
	EmbedCacheTTL int // seconds, 0 disables the cache

	// Monitoring
	MonitorIntervalMinutes int

	// Tracing
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/car_assist"),
		DBName:   getEnv("DB_NAME", "car_assist"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:       getEnv("GEMINI_TIER", "free"),
		EmbeddingsModel:  getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		DefaultCollection: getEnv("DEFAULT_COLLECTION", "vehicle_specs"),
		MaxChunkSize:      getEnvInt("MAX_CHUNK_SIZE", 300),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 50),
		TopKChunks:        getEnvInt("TOP_K_CHUNKS", 5),
		HistoryWindow:     getEnvInt("HISTORY_WINDOW", 6),
		RewriteMaxGrowth:  getEnvInt("REWRITE_MAX_GROWTH", 3),
		CallTimeout:       getEnvInt("AI_CALL_TIMEOUT", 60),

		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520),
		ChunkCompression:    getEnv("CHUNK_COMPRESSION", "gzip"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiresIn:    getEnv("JWT_EXPIRES_IN", "24h"),
		BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		EmbedCacheTTL: getEnvInt("EMBED_CACHE_TTL", 86400),

		MonitorIntervalMinutes: getEnvInt("MONITOR_INTERVAL_MINUTES", 15),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	// Invalid chunking configuration is fatal at startup, never clamped.
	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", cfg.MaxChunkSize)
	}
	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)",
			cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
