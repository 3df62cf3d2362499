/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package embedding

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Provider defines the interface for embedding generation
type Provider interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embedding vector,
	// or 0 when unknown until the first call
	Dimensions() int

	// ModelName returns the name of the model being used
	ModelName() string

	// ProviderName returns the name of the provider (e.g., "openai", "ollama", "voyage")
	ProviderName() string
}

// Config holds configuration for embedding providers
type Config struct {
	Provider string // "openai", "ollama", or "voyage"
	Model    string // Model name (provider-specific)

	// OpenAI-specific
	OpenAIAPIKey string

	// Voyage AI-specific
	VoyageAPIKey string

	// Ollama-specific
	OllamaURL string
}

// NewProvider creates a new embedding provider based on configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required when provider is 'openai'")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model)

	case "voyage":
		if cfg.VoyageAPIKey == "" {
			return nil, fmt.Errorf("Voyage AI API key is required when provider is 'voyage'")
		}
		return NewVoyageProvider(cfg.VoyageAPIKey, cfg.Model)

	case "ollama":
		if cfg.OllamaURL == "" {
			cfg.OllamaURL = "http://localhost:11434"
		}
		if cfg.Model == "" {
			cfg.Model = "nomic-embed-text"
		}
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: openai, ollama, voyage)", cfg.Provider)
	}
}

const (
	maxRetries       = 3
	initialRetryWait = 1 * time.Second
	maxRetryWait     = 16 * time.Second
)

// retryWait returns the exponential backoff delay with jitter for the given
// attempt (1-based)
func retryWait(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 10 {
		attempt = 10
	}
	wait := initialRetryWait * time.Duration(1<<uint(attempt-1))
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	// Jitter of up to 25% keeps concurrent sessions from retrying in step
	jitter := time.Duration(rand.Int64N(int64(wait) / 4))
	return wait + jitter
}

// retryable reports whether an HTTP status is worth retrying
func retryable(status int) bool {
	return status == 429 || status >= 500
}

// sleepCtx waits for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// maskKey redacts an API key for logging
func maskKey(key string) string {
	if len(key) <= 8 {
		return "(redacted)"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
