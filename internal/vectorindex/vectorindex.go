/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package vectorindex provides an in-memory brute-force similarity index
// over embedding vectors. Corpus sizes here are small (tens of examples),
// so a linear scan with cosine scoring outperforms anything fancier.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Match is a single query result: the position of the vector in the
// indexed set and its cosine similarity to the query vector.
type Match struct {
	Index int
	Score float64
}

// Index holds a fixed set of embedding vectors for similarity queries.
// Safe for concurrent queries; Build replaces the whole set atomically.
type Index struct {
	mu         sync.RWMutex
	vectors    [][]float32
	dimensions int
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Build replaces the indexed vectors. All vectors must share the same
// dimensionality. An empty set is valid and yields no matches.
func (idx *Index) Build(vectors [][]float32) error {
	dims := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %d is empty", i)
		}
		if dims == 0 {
			dims = len(v)
		} else if len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = vectors
	idx.dimensions = dims
	return nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Query returns the k most similar indexed vectors to the query vector,
// ordered by descending cosine similarity. Ties keep the lower index
// first, so repeated queries are deterministic. If k exceeds the number
// of indexed vectors, all of them are returned.
func (idx *Index) Query(vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d", len(vector), idx.dimensions)
	}

	matches := make([]Match, len(idx.vectors))
	for i, v := range idx.vectors {
		matches[i] = Match{Index: i, Score: cosineSimilarity(vector, v)}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
