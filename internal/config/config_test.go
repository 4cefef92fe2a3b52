package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Server.ReadTimeout)
	assert.Equal(t, 30, cfg.Server.WriteTimeout)

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 1024, cfg.Qdrant.VectorSize)
	assert.True(t, cfg.Qdrant.HealthCheck)
	assert.Equal(t, 3, cfg.Qdrant.RetryAttempts)
	assert.Equal(t, 30, cfg.Qdrant.TimeoutSeconds)

	assert.True(t, cfg.Qdrant.Docker.Enabled)
	assert.Equal(t, "ragmemory-qdrant", cfg.Qdrant.Docker.ContainerName)
	assert.Equal(t, "./data/qdrant", cfg.Qdrant.Docker.VolumePath)
	assert.Equal(t, "qdrant/qdrant:latest", cfg.Qdrant.Docker.Image)

	assert.Equal(t, "text-embedding-ada-002", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 8191, cfg.OpenAI.MaxTokens)
	assert.InDelta(t, 0.0, cfg.OpenAI.Temperature, 0.0001)
	assert.Equal(t, 60, cfg.OpenAI.RequestTimeout)
	assert.Equal(t, 60, cfg.OpenAI.RateLimitRPM)

	assert.Equal(t, 10, cfg.Chunking.MinContentLength)
	assert.Equal(t, 1000, cfg.Chunking.MaxContentLength)
	assert.Equal(t, 20, cfg.Chunking.FileBatchSize)
	assert.Equal(t, 100, cfg.Chunking.EmbedBatchSize)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				return cfg
			},
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Server.Port = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "invalid server port - too high",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Server.Port = 70000
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "empty server host",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Server.Host = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "server host cannot be empty",
		},
		{
			name: "empty qdrant host",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Qdrant.Host = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "qdrant host cannot be empty",
		},
		{
			name: "invalid qdrant vector size",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Qdrant.VectorSize = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "qdrant vector size must be positive",
		},
		{
			name: "empty docker container name with docker enabled",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Qdrant.Docker.Enabled = true
				cfg.Qdrant.Docker.ContainerName = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "docker container name cannot be empty when docker is enabled",
		},
		{
			name: "missing OpenAI API key",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "OpenAI API key is required",
		},
		{
			name: "empty embedding model",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.OpenAI.EmbeddingModel = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "OpenAI embedding model cannot be empty",
		},
		{
			name: "invalid min content length",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Chunking.MinContentLength = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "min content length must be positive",
		},
		{
			name: "invalid max content length",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Chunking.MaxContentLength = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "max content length must be greater than min content length",
		},
		{
			name: "invalid file batch size",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Chunking.MaxContentLength = 2000
				cfg.Chunking.FileBatchSize = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "file batch size must be positive",
		},
		{
			name: "invalid embed batch size",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.OpenAI.APIKey = testAPIKey
				cfg.Chunking.MaxContentLength = 2000
				cfg.Chunking.EmbedBatchSize = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "embed batch size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config()
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_WithEnvVars(t *testing.T) {
	envVars := map[string]string{
		"MCP_MEMORY_PORT":               "9090",
		"MCP_MEMORY_HOST":               "0.0.0.0",
		"MCP_MEMORY_QDRANT_HOST":        "custom-qdrant",
		"MCP_MEMORY_QDRANT_PORT":        "7000",
		"QDRANT_CONTAINER_NAME":         "custom-qdrant-container",
		"QDRANT_VOLUME_PATH":            "/custom/data",
		"OPENAI_API_KEY":                "test-api-key",
		"OPENAI_EMBEDDING_MODEL":        "text-embedding-3-small",
		"MCP_MEMORY_LOG_LEVEL":          "debug",
		"MCP_MEMORY_LOG_FORMAT":         "text",
		"MCP_MEMORY_LOG_FILE":           "/var/log/memory.log",
		"MCP_MEMORY_REDIS_ADDR":         "redis.internal:6380",
	}

	for key, value := range envVars {
		_ = os.Setenv(key, value)
	}
	defer func() {
		for key := range envVars {
			_ = os.Unsetenv(key)
		}
	}()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "custom-qdrant", cfg.Qdrant.Host)
	assert.Equal(t, 7000, cfg.Qdrant.Port)
	assert.Equal(t, "custom-qdrant-container", cfg.Qdrant.Docker.ContainerName)
	assert.Equal(t, "/custom/data", cfg.Qdrant.Docker.VolumePath)
	assert.Equal(t, "test-api-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "/var/log/memory.log", cfg.Logging.File)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}

func TestLoadConfig_WithInvalidEnvVars(t *testing.T) {
	_ = os.Setenv("MCP_MEMORY_PORT", "invalid")
	_ = os.Setenv("OPENAI_API_KEY", testAPIKey)

	defer func() {
		_ = os.Unsetenv("MCP_MEMORY_PORT")
		_ = os.Unsetenv("OPENAI_API_KEY")
	}()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Invalid int env vars are silently ignored in favor of the default.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	originalWd, _ := os.Getwd()
	tempDir := t.TempDir()
	_ = os.Chdir(tempDir)
	defer func() { _ = os.Chdir(originalWd) }()

	_ = os.Setenv("OPENAI_API_KEY", testAPIKey)
	defer func() { _ = os.Unsetenv("OPENAI_API_KEY") }()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	_ = os.Setenv("OPENAI_API_KEY", "")
	defer func() { _ = os.Unsetenv("OPENAI_API_KEY") }()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
