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
	"sync"
	"time"

	"stockchat/internal/logging"
)

// ollamaHTTPTimeout is longer than the hosted providers because Ollama may
// need to load the model on first use
const ollamaHTTPTimeout = 60 * time.Second

// OllamaProvider implements embedding generation using a local Ollama service
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// Ollama returns an array of embeddings, one per input text
type ollamaEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Known dimensions for common Ollama embedding models. Unknown models are
// discovered on first use.
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
	"all-minilm:latest": 384,
	"all-minilm:l6-v2":  384,
}

var ollamaModelDimensionsMu sync.RWMutex

// NewOllamaProvider creates a new Ollama embedding provider
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}

	logging.Debug("embedding provider initialized",
		"provider", "ollama",
		"model", model,
		"base_url", baseURL)

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: ollamaHTTPTimeout,
		},
	}, nil
}

// Embed generates an embedding vector for the given text
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	url := p.baseURL + "/api/embed"
	reqBytes, err := json.Marshal(ollamaEmbeddingRequest{
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
			logging.Debug("retrying embedding call", "provider", "ollama", "attempt", attempt)
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

func (p *OllamaProvider) embedOnce(ctx context.Context, url string, reqBytes []byte) ([]float32, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Warn("embedding request failed", "provider", "ollama", "error", err.Error())
		return nil, 0, fmt.Errorf("failed to connect to Ollama at %s: %w (is Ollama running?)", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("Ollama API request failed with status %d (error reading response body: %w)", resp.StatusCode, readErr)
		}
		return nil, resp.StatusCode, fmt.Errorf("Ollama API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var embResp ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Embeddings) == 0 || len(embResp.Embeddings[0]) == 0 {
		return nil, resp.StatusCode, fmt.Errorf("received empty embedding from Ollama (model may not be installed: try 'ollama pull %s')", p.model)
	}

	embedding := embResp.Embeddings[0]

	// Remember dimensions for models not in the static table
	ollamaModelDimensionsMu.Lock()
	if _, ok := ollamaModelDimensions[p.model]; !ok {
		ollamaModelDimensions[p.model] = len(embedding)
	}
	ollamaModelDimensionsMu.Unlock()

	logging.Debug("embedding generated",
		"provider", "ollama",
		"model", p.model,
		"dimensions", len(embedding),
		"duration_ms", time.Since(start).Milliseconds())

	return embedding, resp.StatusCode, nil
}

// Dimensions returns the number of dimensions for this model, or 0 when the
// model is unknown and no embedding has been generated yet
func (p *OllamaProvider) Dimensions() int {
	ollamaModelDimensionsMu.RLock()
	defer ollamaModelDimensionsMu.RUnlock()
	return ollamaModelDimensions[p.model]
}

// ModelName returns the model name
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// ProviderName returns "ollama"
func (p *OllamaProvider) ProviderName() string {
	return "ollama"
}
