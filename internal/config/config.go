package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joonhokim/yakgwan/internal/blob"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`

	// LLM extraction
	LLMProvider string `yaml:"llm_provider"` // ollama, openai, bedrock
	LLMModel    string `yaml:"llm_model"`
	OllamaHost  string `yaml:"ollama_host"`

	// Embeddings
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`

	// Blob store
	Blob blob.Config `yaml:"blob"`

	// Pipeline thresholds
	MaxDocumentBytes  int64   `yaml:"max_document_bytes"`
	DegradedThreshold float64 `yaml:"degraded_threshold"`
	MaxAmountWon      int64   `yaml:"max_amount_won"`
	LinkSimilarity    float64 `yaml:"link_similarity"`
	QueryDepth        int     `yaml:"query_depth"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "yakgwan"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "graph"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),

		LLMProvider: getEnv("YAKGWAN_LLM_PROVIDER", "ollama"),
		LLMModel:    getEnv("YAKGWAN_LLM_MODEL", "llama3.1"),
		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),

		EmbeddingModel:     getEnv("YAKGWAN_EMBEDDING_MODEL", "all-minilm:l6-v2"),
		EmbeddingDimension: getEnvInt("YAKGWAN_EMBEDDING_DIMENSION", 384),

		Blob: blob.Config{
			Container:        getEnv("YAKGWAN_BLOB_CONTAINER", "policy-documents"),
			ConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		},

		MaxDocumentBytes:  int64(getEnvInt("YAKGWAN_MAX_DOCUMENT_BYTES", 50*1024*1024)),
		DegradedThreshold: getEnvFloat("YAKGWAN_DEGRADED_THRESHOLD", 0.5),
		MaxAmountWon:      int64(getEnvInt("YAKGWAN_MAX_AMOUNT_WON", 10_000_000_000)),
		LinkSimilarity:    getEnvFloat("YAKGWAN_LINK_SIMILARITY", 0.6),
		QueryDepth:        getEnvInt("YAKGWAN_QUERY_DEPTH", 2),

		LogFile:  getEnv("YAKGWAN_LOG_FILE", "/tmp/yakgwan.log"),
		LogLevel: parseLogLevel(getEnv("YAKGWAN_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays a YAML config file on top of the env-derived
// configuration. Only fields present in the file override.
func LoadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	overlay := base
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return overlay, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
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
