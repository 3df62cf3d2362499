/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"fmt"

	"stockchat/internal/corpus"
	"stockchat/internal/logging"
	"stockchat/internal/vectorindex"
)

// Selector retrieves the k corpus examples most similar to a question.
// The corpus is embedded once at construction; only the incoming
// question is embedded per call.
type Selector struct {
	embedder Embedder
	index    *vectorindex.Index
	examples []corpus.Example
	k        int
}

// NewSelector embeds every corpus example and builds the similarity
// index. Embedding or index failures here are construction failures.
func NewSelector(ctx context.Context, embedder Embedder, examples []corpus.Example, k int) (*Selector, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("example corpus is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("example count must be positive, got %d", k)
	}

	vectors := make([][]float32, len(examples))
	for i, ex := range examples {
		vec, err := embedder.Embed(ctx, ex.EmbeddingText())
		if err != nil {
			return nil, fmt.Errorf("failed to embed example %d: %w", i, err)
		}
		vectors[i] = vec
	}

	index := vectorindex.New()
	if err := index.Build(vectors); err != nil {
		return nil, fmt.Errorf("failed to build similarity index: %w", err)
	}

	logging.Info("Example selector ready",
		"examples", len(examples),
		"k", k)

	return &Selector{
		embedder: embedder,
		index:    index,
		examples: examples,
		k:        k,
	}, nil
}

// Select embeds the question and returns the k most similar examples in
// descending similarity order.
func (s *Selector) Select(ctx context.Context, question string) ([]corpus.Example, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := s.index.Query(vec, s.k)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	selected := make([]corpus.Example, len(matches))
	for i, m := range matches {
		selected[i] = s.examples[m.Index]
	}

	logging.Debug("Examples selected",
		"requested", s.k,
		"returned", len(selected))

	return selected, nil
}
