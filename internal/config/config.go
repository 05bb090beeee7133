package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	IngestTopic  string // Watermill topic for document ingestion
}

type AIConfig struct {
	EmbeddingProvider       string // "gemini" or "ollama"
	EmbeddingCacheTTL       int    // Seconds. 0 disables the redis cache.
	EmbeddingTimeoutSeconds int
	OllamaBaseURL           string
	OllamaModel             string
	LLMProvider             string // "ollama"
	LLMModel                string // e.g. "llama3", "qwen2.5"
	LLMTimeoutSeconds       int
}

// OtelConfig controls the OTLP trace exporter. Disabled by default.
type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type RagConfig struct {
	ChunkTargetWords  int
	ChunkOverlapWords int
	TopK              int
	ScoreThreshold    float64
	MaxContextWords   int
	MaxHistoryTurns   int
	VectorStore       string // "pgvector" or "memory"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			IngestTopic:  getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider:       getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingCacheTTL:       getEnvAsInt("EMBEDDING_CACHE_TTL_SECONDS", 86400),
			EmbeddingTimeoutSeconds: getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", 60),
			OllamaBaseURL:           getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:             getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:             getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:                getEnv("LLM_MODEL", "llama3"),
			LLMTimeoutSeconds:       getEnvAsInt("LLM_TIMEOUT_SECONDS", 120),
		},
		Rag: RagConfig{
			ChunkTargetWords:  getEnvAsInt("CHUNK_TARGET_WORDS", 300),
			ChunkOverlapWords: getEnvAsInt("CHUNK_OVERLAP_WORDS", 50),
			TopK:              getEnvAsInt("RAG_TOP_K", 5),
			ScoreThreshold:    getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.35),
			MaxContextWords:   getEnvAsInt("RAG_MAX_CONTEXT_WORDS", 2000),
			MaxHistoryTurns:   getEnvAsInt("RAG_MAX_HISTORY_TURNS", 6),
			VectorStore:       getEnv("VECTOR_STORE", "pgvector"),
		},
		Otel: OtelConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "docchat-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
