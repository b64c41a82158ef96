package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Elastic  ElasticConfig
	Keys     APIKeys
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	RateLimitPerMinute int
	MetricsEnabled     bool
}

type DatabaseConfig struct {
	Connection string
}

type ElasticConfig struct {
	Addresses      []string
	Username       string
	Password       string
	APIKey         string
	AllowedIndices []string
}

type APIKeys struct {
	OpenAI       string
	HuggingFace  string
	ExampleTopic string // Embedding topic
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama" or "openai"
	EmbeddingModel      string
	EmbeddingDimensions int
	OllamaBaseURL       string
	OpenAIBaseURL       string
	HFBaseURL           string

	GeneratorProvider    string // "ollama", "openai" or "huggingface"
	GeneratorModel       string
	GeneratorTemperature float64

	SummarizerProvider    string
	SummarizerModel       string
	SummarizerTemperature float64

	ExampleStore  string // "postgres" or "memory"
	TopK          int
	MinSimilarity float64

	RequestsPerSecond float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Elastic: ElasticConfig{
			Addresses:      getEnvAsList("ELASTIC_ADDRESSES", []string{"http://localhost:9200"}),
			Username:       getEnv("ELASTIC_USERNAME", ""),
			Password:       getEnv("ELASTIC_PASSWORD", ""),
			APIKey:         getEnv("ELASTIC_API_KEY", ""),
			AllowedIndices: getEnvAsList("ELASTIC_ALLOWED_INDICES", []string{"r085", "r100", "r025"}),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			HuggingFace:  getEnv("HF_API_KEY", ""),
			ExampleTopic: getEnv("EMBED_QUERY_EXAMPLE_TOPIC_NAME", "EMBED_QUERY_EXAMPLE"),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
			HFBaseURL:           getEnv("HF_BASE_URL", ""),

			GeneratorProvider:    getEnv("GENERATOR_PROVIDER", "ollama"),
			GeneratorModel:       getEnv("GENERATOR_MODEL", "qwen2.5"),
			GeneratorTemperature: getEnvAsFloat("GENERATOR_TEMPERATURE", 0.3),

			SummarizerProvider:    getEnv("SUMMARIZER_PROVIDER", "ollama"),
			SummarizerModel:       getEnv("SUMMARIZER_MODEL", "llama3"),
			SummarizerTemperature: getEnvAsFloat("SUMMARIZER_TEMPERATURE", 0.3),

			ExampleStore:  getEnv("EXAMPLE_STORE", "postgres"),
			TopK:          getEnvAsInt("RETRIEVER_TOP_K", 3),
			MinSimilarity: getEnvAsFloat("RETRIEVER_MIN_SIMILARITY", 0.5),

			RequestsPerSecond: getEnvAsFloat("LLM_REQUESTS_PER_SECOND", 0),
		},
	}
}

// Validate rejects settings the assistant cannot run with.
func (c *Config) Validate() error {
	if c.Ai.TopK < 1 {
		return fmt.Errorf("RETRIEVER_TOP_K must be >= 1, got %d", c.Ai.TopK)
	}
	if c.Ai.MinSimilarity < 0 || c.Ai.MinSimilarity > 1 {
		return fmt.Errorf("RETRIEVER_MIN_SIMILARITY must be within [0,1], got %v", c.Ai.MinSimilarity)
	}
	for _, p := range []string{c.Ai.GeneratorProvider, c.Ai.SummarizerProvider} {
		if p != "ollama" && p != "openai" && p != "huggingface" {
			return fmt.Errorf("unsupported AI provider: %s", p)
		}
	}
	if c.Ai.EmbeddingProvider != "ollama" && c.Ai.EmbeddingProvider != "openai" {
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER: %s", c.Ai.EmbeddingProvider)
	}
	if c.Ai.ExampleStore != "postgres" && c.Ai.ExampleStore != "memory" {
		return fmt.Errorf("unsupported EXAMPLE_STORE: %s", c.Ai.ExampleStore)
	}
	if len(c.Elastic.Addresses) == 0 {
		return fmt.Errorf("ELASTIC_ADDRESSES must not be empty")
	}
	if len(c.Elastic.AllowedIndices) == 0 {
		return fmt.Errorf("ELASTIC_ALLOWED_INDICES must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
