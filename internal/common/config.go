package common

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
	Server   ServerConfig
}

// LLMConfig holds model-backend configuration
type LLMConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration // per attempt
	MaxAttempts  int
	RetryBackoff time.Duration
}

// PipelineConfig holds analysis-pipeline configuration
type PipelineConfig struct {
	MaxInputLen         int
	MaxChunks           int
	MaxItemsPerCategory int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:      getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			APIKey:       getEnv("DEEPSEEK_API_KEY", ""),
			Model:        getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			MaxTokens:    getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts:  getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryBackoff: getEnvAsDuration("LLM_RETRY_BACKOFF", time.Second),
		},
		Pipeline: PipelineConfig{
			MaxInputLen:         getEnvAsInt("MAX_INPUT_LEN", 32000),
			MaxChunks:           getEnvAsInt("MAX_CHUNKS", 1),
			MaxItemsPerCategory: getEnvAsInt("MAX_ITEMS_PER_CATEGORY", 10),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 2*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: DEEPSEEK_API_KEY is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("config: DEEPSEEK_BASE_URL is required")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("config: LLM_MAX_ATTEMPTS must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.Pipeline.MaxInputLen <= 0 {
		return fmt.Errorf("config: MAX_INPUT_LEN must be positive, got %d", c.Pipeline.MaxInputLen)
	}
	if c.Pipeline.MaxChunks < 1 {
		return fmt.Errorf("config: MAX_CHUNKS must be at least 1, got %d", c.Pipeline.MaxChunks)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_MB must be positive")
	}
	return nil
}
