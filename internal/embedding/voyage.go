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

// VoyageProvider implements embedding generation using Voyage AI's API
type VoyageProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type voyageEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type voyageEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Model dimensions for Voyage AI embedding models
var voyageModelDimensions = map[string]int{
	"voyage-3":      1024,
	"voyage-3-lite": 512,
	"voyage-2":      1024,
	"voyage-2-lite": 1024,
}

// NewVoyageProvider creates a new Voyage AI embedding provider
func NewVoyageProvider(apiKey, model string) (*VoyageProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Voyage AI API key cannot be empty")
	}

	if model == "" {
		model = "voyage-3-lite"
	}

	if _, ok := voyageModelDimensions[model]; !ok {
		return nil, fmt.Errorf("unsupported Voyage model: %s (supported: voyage-3, voyage-3-lite, voyage-2, voyage-2-lite)", model)
	}

	logging.Debug("embedding provider initialized",
		"provider", "voyage",
		"model", model,
		"api_key", maskKey(apiKey))

	return &VoyageProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.voyageai.com/v1/embeddings",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed generates an embedding vector for the given text
func (p *VoyageProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	reqBytes, err := json.Marshal(voyageEmbeddingRequest{
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
			logging.Debug("retrying embedding call", "provider", "voyage", "attempt", attempt)
		}

		embedding, status, err := p.embedOnce(ctx, reqBytes)
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

func (p *VoyageProvider) embedOnce(ctx context.Context, reqBytes []byte) ([]float32, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Warn("embedding request failed", "provider", "voyage", "error", err.Error())
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

	var embResp voyageEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, resp.StatusCode, fmt.Errorf("received empty embedding from API")
	}

	logging.Debug("embedding generated",
		"provider", "voyage",
		"model", p.model,
		"dimensions", len(embResp.Data[0].Embedding),
		"duration_ms", time.Since(start).Milliseconds())

	return embResp.Data[0].Embedding, resp.StatusCode, nil
}

// Dimensions returns the number of dimensions for this model
func (p *VoyageProvider) Dimensions() int {
	return voyageModelDimensions[p.model]
}

// ModelName returns the model name
func (p *VoyageProvider) ModelName() string {
	return p.model
}

// ProviderName returns "voyage"
func (p *VoyageProvider) ProviderName() string {
	return "voyage"
}
