package deepseek

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultBaseURL is the hosted DeepSeek endpoint. The API is
	// OpenAI-compatible, so any compatible backend works here.
	DefaultBaseURL = "https://api.deepseek.com"
	// DefaultModel is the general chat model used for filing analysis.
	DefaultModel = "deepseek-chat"
)

// Config holds everything the client needs for one backend. Zero values fall
// back to sane defaults in NewClient so callers can set only what they care
// about.
type Config struct {
	APIKey      string  // falls back to env DEEPSEEK_API_KEY
	BaseURL     string  // default DefaultBaseURL
	Model       string  // default DefaultModel
	Temperature float32 // kept low so repeated analyses stay comparable
	MaxTokens   int     // completion budget per call

	Timeout      time.Duration // per attempt, enforced via context deadline
	MaxAttempts  int           // total attempts including the first
	RetryBackoff time.Duration // base delay before the first retry, doubled per retry
}

// Client talks to a DeepSeek-compatible chat-completions endpoint with
// bounded retries. It satisfies llm.CompletionClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient builds a client, defaulting any unset config fields. The HTTP
// client carries no global timeout; per-attempt deadlines come from contexts.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger,
	}
}
