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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newOpenAITestServer(t *testing.T, embedding []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req openaiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{
			"data":  []map[string]interface{}{{"embedding": embedding, "index": 0}},
			"model": req.Model,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
}

func TestNewOpenAIProvider(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		p, err := NewOpenAIProvider("sk-test-key", "text-embedding-3-small")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Dimensions() != 1536 {
			t.Errorf("expected 1536 dimensions, got %d", p.Dimensions())
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenAIProvider("", "text-embedding-3-small"); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("default model", func(t *testing.T) {
		p, err := NewOpenAIProvider("sk-test-key", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelName() != "text-embedding-3-small" {
			t.Errorf("expected default model, got %q", p.ModelName())
		}
	})

	t.Run("unsupported model", func(t *testing.T) {
		if _, err := NewOpenAIProvider("sk-test-key", "word2vec"); err == nil {
			t.Fatal("expected error for unsupported model")
		}
	})
}

func TestOpenAIEmbed(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3}
	srv := newOpenAITestServer(t, want)
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.baseURL = srv.URL

	got, err := p.Embed(context.Background(), "how many white shirts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("embedding[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestOpenAIEmbedEmptyText(t *testing.T) {
	p, err := NewOpenAIProvider("sk-test-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if _, err := p.Embed(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestOpenAIEmbedAuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-wrong-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.baseURL = srv.URL

	if _, err := p.Embed(context.Background(), "question"); err == nil {
		t.Fatal("expected error for auth failure")
	}
	if calls.Load() != 1 {
		t.Errorf("401 must not be retried, got %d calls", calls.Load())
	}
}

func TestOpenAIEmbedRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float32{1, 2}, "index": 0}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.baseURL = srv.URL

	got, err := p.Embed(context.Background(), "question")
	if err != nil {
		t.Fatalf("expected retry to succeed, got error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2-dimensional embedding, got %d", len(got))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls (one failure, one success), got %d", calls.Load())
	}
}

func TestOpenAIEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.baseURL = srv.URL

	if _, err := p.Embed(context.Background(), "question"); err == nil {
		t.Fatal("expected error for empty embedding data")
	}
}
