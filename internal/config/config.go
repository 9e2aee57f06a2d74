// Package config loads configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted for LLM and embedding backends.
const (
	ProviderOpenAI    = "openai"
	ProviderMistral   = "mistral"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Redis job queue
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueKey      string

	// Media blob storage (GCS)
	StorageBucket  string
	SignedURLTTL   time.Duration
	GCPCredentials string // path to service account JSON, empty = ADC

	// Twilio delivery
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioBaseURL    string

	// LLM providers
	LLMProvider     string
	ChatModel       string
	OCRModel        string
	EmbedProvider   string
	EmbedModel      string
	EmbedDimension  int
	OpenAIAPIKey    string
	MistralAPIKey   string
	AnthropicAPIKey string
	OllamaHost      string

	// HTTP server
	Port int

	// Worker
	WorkerConcurrency int
	HistoryLimit      int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "keepsake"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "capture"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		QueueKey:      getEnv("KEEPSAKE_QUEUE_KEY", "keepsake:jobs"),

		StorageBucket:  getEnv("STORAGE_BUCKET", "keepsake-media"),
		SignedURLTTL:   time.Duration(getEnvInt("SIGNED_URL_TTL_MINUTES", 60)) * time.Minute,
		GCPCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioBaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01"),

		LLMProvider:     getEnv("KEEPSAKE_LLM_PROVIDER", ProviderOpenAI),
		ChatModel:       getEnv("KEEPSAKE_CHAT_MODEL", "gpt-4o"),
		OCRModel:        getEnv("KEEPSAKE_OCR_MODEL", "gpt-4o"),
		EmbedProvider:   getEnv("KEEPSAKE_EMBED_PROVIDER", ProviderOpenAI),
		EmbedModel:      getEnv("KEEPSAKE_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension:  getEnvInt("KEEPSAKE_EMBED_DIMENSION", 1536),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		MistralAPIKey:   getEnv("MISTRAL_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		Port: getEnvInt("PORT", 5000),

		WorkerConcurrency: getEnvInt("KEEPSAKE_WORKER_CONCURRENCY", 4),
		HistoryLimit:      getEnvInt("KEEPSAKE_HISTORY_LIMIT", 10),

		LogFile:  getEnv("KEEPSAKE_LOG_FILE", "/tmp/keepsake.log"),
		LogLevel: parseLogLevel(getEnv("KEEPSAKE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
