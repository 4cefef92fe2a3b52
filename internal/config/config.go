// Package config provides configuration management for the retrieval
// service, handling environment variables and runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Qdrant   QdrantConfig   `json:"qdrant"`
	OpenAI   OpenAIConfig   `json:"openai"`
	AI       AIConfig       `json:"ai"`
	Chunking ChunkingConfig `json:"chunking"`
	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
}

// RedisConfig configures the multi-level embedding/search cache's backing
// Redis instance (internal/cache).
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"-"` // Never serialize password
	DB       int    `json:"db"`
}

// ServerConfig represents the thin HTTP contract surface's server settings.
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds"`
	// QualityGateURL is the external quality-gate collaborator endpoint
	// (spec.md §6). Empty means Promote's runGates always passes.
	QualityGateURL string `json:"quality_gate_url,omitempty"`
}

// QdrantConfig represents the external vector engine's connection settings.
type QdrantConfig struct {
	Host           string       `json:"host"`
	Port           int          `json:"port"`
	APIKey         string       `json:"-"` // Never serialize API key
	UseTLS         bool         `json:"use_tls"`
	VectorSize     int          `json:"vector_size"`
	Docker         DockerConfig `json:"docker"`
	HealthCheck    bool         `json:"health_check"`
	RetryAttempts  int          `json:"retry_attempts"`
	TimeoutSeconds int          `json:"timeout_seconds"`
}

// DockerConfig represents Docker-specific configuration for local Qdrant.
type DockerConfig struct {
	Enabled       bool   `json:"enabled"`
	ContainerName string `json:"container_name"`
	VolumePath    string `json:"volume_path"`
	Image         string `json:"image"`
}

// OpenAIConfig represents the embedding provider's API configuration.
type OpenAIConfig struct {
	APIKey         string  `json:"-"` // Never serialize API key
	EmbeddingModel string  `json:"embedding_model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	RequestTimeout int     `json:"request_timeout_seconds"`
	RateLimitRPM   int     `json:"rate_limit_rpm"`
}

// AIConfig represents multi-model AI client configuration, used by the
// auto-merge Summarizer's optional LLM collaborator (pkg/ai).
type AIConfig struct {
	Claude     ClaudeClientConfig     `json:"claude"`
	Perplexity PerplexityClientConfig `json:"perplexity"`
	OpenAI     OpenAIClientConfig     `json:"openai"`
}

// ClaudeClientConfig represents Claude API configuration.
type ClaudeClientConfig struct {
	APIKey      string        `json:"-"` // Never serialize API key
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
	Enabled     bool          `json:"enabled"`
}

// PerplexityClientConfig represents Perplexity API configuration.
type PerplexityClientConfig struct {
	APIKey      string        `json:"-"` // Never serialize API key
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
	Enabled     bool          `json:"enabled"`
}

// OpenAIClientConfig represents OpenAI chat-completion configuration,
// distinct from OpenAIConfig (the embedding provider).
type OpenAIClientConfig struct {
	APIKey      string        `json:"-"` // Never serialize API key
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
	Enabled     bool          `json:"enabled"`
}

// ChunkingConfig controls the Indexer's file-to-chunk packing (spec.md
// §4.4): greedy line-boundary-preserving packing up to MaxContentLength
// chars, dropping fragments shorter than MinContentLength non-whitespace
// chars.
type ChunkingConfig struct {
	MinContentLength int `json:"min_content_length"`
	MaxContentLength int `json:"max_content_length"`
	FileBatchSize    int `json:"file_batch_size"`
	EmbedBatchSize   int `json:"embed_batch_size"`
}

// LoggingConfig represents structured-logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "localhost",
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Qdrant: QdrantConfig{
			Host:           "localhost",
			Port:           6334,
			UseTLS:         false,
			VectorSize:     1024,
			HealthCheck:    true,
			RetryAttempts:  3,
			TimeoutSeconds: 30,
			Docker: DockerConfig{
				Enabled:       true,
				ContainerName: "ragmemory-qdrant",
				VolumePath:    "./data/qdrant",
				Image:         "qdrant/qdrant:latest",
			},
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-ada-002",
			MaxTokens:      8191,
			Temperature:    0.0,
			RequestTimeout: 60,
			RateLimitRPM:   60,
		},
		AI: AIConfig{
			Claude: ClaudeClientConfig{
				BaseURL:     "https://api.anthropic.com/v1/messages",
				Model:       "claude-3-5-sonnet-20241022",
				MaxTokens:   4000,
				Temperature: 0.7,
				Timeout:     30 * time.Second,
				Enabled:     false,
			},
			Perplexity: PerplexityClientConfig{
				BaseURL:     "https://api.perplexity.ai/chat/completions",
				Model:       "llama-3.1-sonar-huge-128k-online",
				MaxTokens:   4000,
				Temperature: 0.7,
				Timeout:     30 * time.Second,
				Enabled:     false,
			},
			OpenAI: OpenAIClientConfig{
				BaseURL:     "https://api.openai.com/v1/chat/completions",
				Model:       "gpt-4o",
				MaxTokens:   4000,
				Temperature: 0.7,
				Timeout:     30 * time.Second,
				Enabled:     false,
			},
		},
		Chunking: ChunkingConfig{
			MinContentLength: 10,
			MaxContentLength: 1000,
			FileBatchSize:    20,
			EmbedBatchSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
	}
}

// LoadConfig loads configuration from environment variables and defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadQdrantConfig(config)
	loadOpenAIConfig(config)
	loadAIConfig(config)
	loadChunkingConfig(config)
	loadLoggingConfig(config)
	loadRedisConfig(config)
}

func loadRedisConfig(config *Config) {
	config.Redis.Addr = getStringEnvWithDefault("MCP_MEMORY_REDIS_ADDR", config.Redis.Addr)
	config.Redis.Password = getStringEnvWithDefault("MCP_MEMORY_REDIS_PASSWORD", config.Redis.Password)
	config.Redis.DB = getIntEnvWithDefault("MCP_MEMORY_REDIS_DB", config.Redis.DB)
}

func loadServerConfig(config *Config) {
	config.Server.Port = getIntEnvWithDefault("MCP_MEMORY_PORT", config.Server.Port)
	config.Server.Host = getStringEnvWithDefault("MCP_MEMORY_HOST", config.Server.Host)
	config.Server.ReadTimeout = getIntEnvWithDefault("MCP_MEMORY_READ_TIMEOUT_SECONDS", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getIntEnvWithDefault("MCP_MEMORY_WRITE_TIMEOUT_SECONDS", config.Server.WriteTimeout)
	config.Server.QualityGateURL = getStringEnvWithDefault("MCP_MEMORY_QUALITY_GATE_URL", config.Server.QualityGateURL)
}

func getStringEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadQdrantConfig(config *Config) {
	config.Qdrant.Host = getStringEnvWithFallback("MCP_MEMORY_QDRANT_HOST", "QDRANT_HOST", config.Qdrant.Host)
	config.Qdrant.Port = getIntEnvWithFallback("MCP_MEMORY_QDRANT_PORT", "QDRANT_PORT", config.Qdrant.Port)
	config.Qdrant.APIKey = getStringEnvWithFallback("MCP_MEMORY_QDRANT_API_KEY", "QDRANT_API_KEY", config.Qdrant.APIKey)
	config.Qdrant.UseTLS = getBoolEnvWithFallback("MCP_MEMORY_QDRANT_USE_TLS", "QDRANT_USE_TLS", config.Qdrant.UseTLS)
	config.Qdrant.VectorSize = getIntEnvWithDefault("MCP_MEMORY_QDRANT_VECTOR_SIZE", config.Qdrant.VectorSize)
	config.Qdrant.HealthCheck = getBoolEnvWithDefault("MCP_MEMORY_QDRANT_HEALTH_CHECK", config.Qdrant.HealthCheck)
	config.Qdrant.RetryAttempts = getIntEnvWithDefault("MCP_MEMORY_QDRANT_RETRY_ATTEMPTS", config.Qdrant.RetryAttempts)
	config.Qdrant.TimeoutSeconds = getIntEnvWithDefault("MCP_MEMORY_QDRANT_TIMEOUT_SECONDS", config.Qdrant.TimeoutSeconds)

	if dockerEnabled := os.Getenv("MCP_MEMORY_QDRANT_DOCKER_ENABLED"); dockerEnabled != "" {
		if de, err := strconv.ParseBool(dockerEnabled); err == nil {
			config.Qdrant.Docker.Enabled = de
		}
	}
	config.Qdrant.Docker.ContainerName = getStringEnvWithDefault("QDRANT_CONTAINER_NAME", config.Qdrant.Docker.ContainerName)
	config.Qdrant.Docker.VolumePath = getStringEnvWithDefault("QDRANT_VOLUME_PATH", config.Qdrant.Docker.VolumePath)
	config.Qdrant.Docker.Image = getStringEnvWithDefault("MCP_MEMORY_QDRANT_IMAGE", config.Qdrant.Docker.Image)
}

func getStringEnvWithFallback(primaryKey, fallbackKey, defaultValue string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(fallbackKey); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithFallback(primaryKey, fallbackKey string, defaultValue int) int {
	if value := os.Getenv(primaryKey); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	if value := os.Getenv(fallbackKey); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnvWithFallback(primaryKey, fallbackKey string, defaultValue bool) bool {
	if value := os.Getenv(primaryKey); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	if value := os.Getenv(fallbackKey); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func loadChunkingConfig(config *Config) {
	config.Chunking.MinContentLength = getIntEnvWithDefault("MCP_MEMORY_CHUNKING_MIN_LENGTH", config.Chunking.MinContentLength)
	config.Chunking.MaxContentLength = getIntEnvWithDefault("MCP_MEMORY_CHUNKING_MAX_LENGTH", config.Chunking.MaxContentLength)
	config.Chunking.FileBatchSize = getIntEnvWithDefault("MCP_MEMORY_INDEXER_FILE_BATCH_SIZE", config.Chunking.FileBatchSize)
	config.Chunking.EmbedBatchSize = getIntEnvWithDefault("MCP_MEMORY_INDEXER_EMBED_BATCH_SIZE", config.Chunking.EmbedBatchSize)
}

func loadLoggingConfig(config *Config) {
	config.Logging.Level = getStringEnvWithDefault("MCP_MEMORY_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getStringEnvWithDefault("MCP_MEMORY_LOG_FORMAT", config.Logging.Format)
	config.Logging.File = getStringEnvWithDefault("MCP_MEMORY_LOG_FILE", config.Logging.File)
}

func loadOpenAIConfig(config *Config) {
	config.OpenAI.APIKey = getStringEnvWithDefault("OPENAI_API_KEY", config.OpenAI.APIKey)
	config.OpenAI.EmbeddingModel = getStringEnvWithDefault("OPENAI_EMBEDDING_MODEL", config.OpenAI.EmbeddingModel)
	config.OpenAI.MaxTokens = getIntEnvWithDefault("MCP_MEMORY_OPENAI_MAX_TOKENS", config.OpenAI.MaxTokens)
	if temperature := os.Getenv("MCP_MEMORY_OPENAI_TEMPERATURE"); temperature != "" {
		if temp, err := strconv.ParseFloat(temperature, 64); err == nil {
			config.OpenAI.Temperature = temp
		}
	}
	config.OpenAI.RequestTimeout = getIntEnvWithDefault("MCP_MEMORY_OPENAI_REQUEST_TIMEOUT_SECONDS", config.OpenAI.RequestTimeout)
	config.OpenAI.RateLimitRPM = getIntEnvWithDefault("MCP_MEMORY_OPENAI_RATE_LIMIT_RPM", config.OpenAI.RateLimitRPM)
}

func loadAIConfig(config *Config) {
	if claudeAPIKey := os.Getenv("CLAUDE_API_KEY"); claudeAPIKey != "" {
		config.AI.Claude.APIKey = claudeAPIKey
		config.AI.Claude.Enabled = true
	}
	config.AI.Claude.Enabled = getBoolEnvWithDefault("CLAUDE_ENABLED", config.AI.Claude.Enabled)
	config.AI.Claude.Model = getStringEnvWithDefault("CLAUDE_MODEL", config.AI.Claude.Model)

	if openaiAPIKey := os.Getenv("OPENAI_CHAT_API_KEY"); openaiAPIKey != "" {
		config.AI.OpenAI.APIKey = openaiAPIKey
		config.AI.OpenAI.Enabled = true
	}
	config.AI.OpenAI.Enabled = getBoolEnvWithDefault("OPENAI_CHAT_ENABLED", config.AI.OpenAI.Enabled)
	config.AI.OpenAI.Model = getStringEnvWithDefault("OPENAI_CHAT_MODEL", config.AI.OpenAI.Model)

	if perplexityAPIKey := os.Getenv("PERPLEXITY_API_KEY"); perplexityAPIKey != "" {
		config.AI.Perplexity.APIKey = perplexityAPIKey
		config.AI.Perplexity.Enabled = true
	}
	config.AI.Perplexity.Enabled = getBoolEnvWithDefault("PERPLEXITY_ENABLED", config.AI.Perplexity.Enabled)
	config.AI.Perplexity.Model = getStringEnvWithDefault("PERPLEXITY_MODEL", config.AI.Perplexity.Model)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if err := c.validateQdrantConfig(); err != nil {
		return err
	}
	if err := c.validateOpenAIConfig(); err != nil {
		return err
	}
	if err := c.validateChunkingConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server host cannot be empty")
	}
	return nil
}

func (c *Config) validateQdrantConfig() error {
	if c.Qdrant.Host == "" {
		return errors.New("qdrant host cannot be empty")
	}
	if c.Qdrant.Port <= 0 {
		return errors.New("qdrant port must be greater than 0")
	}
	if c.Qdrant.VectorSize <= 0 {
		return errors.New("qdrant vector size must be positive")
	}
	if c.Qdrant.Docker.Enabled && c.Qdrant.Docker.ContainerName == "" {
		return errors.New("docker container name cannot be empty when docker is enabled")
	}
	return nil
}

func (c *Config) validateOpenAIConfig() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OpenAI API key is required")
	}
	if c.OpenAI.EmbeddingModel == "" {
		return errors.New("OpenAI embedding model cannot be empty")
	}
	return nil
}

func (c *Config) validateChunkingConfig() error {
	if c.Chunking.MinContentLength <= 0 {
		return errors.New("min content length must be positive")
	}
	if c.Chunking.MaxContentLength <= c.Chunking.MinContentLength {
		return errors.New("max content length must be greater than min content length")
	}
	if c.Chunking.FileBatchSize <= 0 {
		return errors.New("file batch size must be positive")
	}
	if c.Chunking.EmbedBatchSize <= 0 {
		return errors.New("embed batch size must be positive")
	}
	return nil
}
