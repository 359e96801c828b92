package orclient

import (
	"log/slog"
	"time"
)

// Config holds configuration for the chat completions client
type Config struct {
	APIKey     string        // API key sent as a bearer token
	BaseURL    string        // Base URL of an OpenAI compatible API, e.g. https://api.openai.com/v1
	Model      string        // Model identifier sent with every request
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // HTTP timeout per attempt
	RetryCount int           // Number of attempts for failed requests
	RetryDelay time.Duration // Base delay between attempts, doubled each retry
	SiteURL    string        // Site URL for ranking (OpenRouter)
	SiteName   string        // Site name for ranking (OpenRouter)
}
