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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stockchat/internal/logging"
)

// openaiHTTPTimeout is the HTTP client timeout for OpenAI API requests
const openaiHTTPTimeout = 30 * time.Second

// OpenAIProvider implements embedding generation using OpenAI's API
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openaiEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Model dimensions for OpenAI embedding models
var openaiModelDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key cannot be empty")
	}

	if model == "" {
		model = "text-embedding-3-small"
	}

	if _, ok := openaiModelDimensions[model]; !ok {
		return nil, fmt.Errorf("unsupported OpenAI model: %s (supported: text-embedding-3-large, text-embedding-3-small, text-embedding-ada-002)", model)
	}

	logging.Debug("embedding provider initialized",
		"provider", "openai",
		"model", model,
		"api_key", maskKey(apiKey))

	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		client: &http.Client{
			Timeout: openaiHTTPTimeout,
		},
	}, nil
}

// Embed generates an embedding vector for the given text. Rate-limit and
// server errors are retried with exponential backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	url := p.baseURL + "/embeddings"
	reqBytes, err := json.Marshal(openaiEmbeddingRequest{
		Model: p.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, retryWait(attempt)); err != nil {
				return nil, err
			}
			logging.Debug("retrying embedding call", "provider", "openai", "attempt", attempt)
		}

		embedding, status, err := p.embedOnce(ctx, url, reqBytes)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
		if status != 0 && !retryable(status) {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// embedOnce performs a single API call. The returned status is 0 when no
// HTTP response was received.
func (p *OpenAIProvider) embedOnce(ctx context.Context, url string, reqBytes []byte) ([]float32, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Warn("embedding request failed", "provider", "openai", "error", err.Error())
		return nil, 0, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("API request failed with status %d (error reading response body: %w)", resp.StatusCode, readErr)
		}
		return nil, resp.StatusCode, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var embResp openaiEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, resp.StatusCode, fmt.Errorf("received empty embedding from API")
	}

	logging.Debug("embedding generated",
		"provider", "openai",
		"model", p.model,
		"dimensions", len(embResp.Data[0].Embedding),
		"duration_ms", time.Since(start).Milliseconds())

	return embResp.Data[0].Embedding, resp.StatusCode, nil
}

// Dimensions returns the number of dimensions for this model
func (p *OpenAIProvider) Dimensions() int {
	return openaiModelDimensions[p.model]
}

// ModelName returns the model name
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// ProviderName returns "openai"
func (p *OpenAIProvider) ProviderName() string {
	return "openai"
}
