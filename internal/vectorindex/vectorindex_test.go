/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package vectorindex

import (
	"math"
	"testing"
)

func TestBuildValidation(t *testing.T) {
	t.Run("empty vector rejected", func(t *testing.T) {
		idx := New()
		err := idx.Build([][]float32{{1, 0}, {}})
		if err == nil {
			t.Fatal("expected error for empty vector")
		}
	})

	t.Run("mismatched dimensions rejected", func(t *testing.T) {
		idx := New()
		err := idx.Build([][]float32{{1, 0}, {1, 0, 0}})
		if err == nil {
			t.Fatal("expected error for mismatched dimensions")
		}
	})

	t.Run("empty set accepted", func(t *testing.T) {
		idx := New()
		if err := idx.Build(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx.Len() != 0 {
			t.Errorf("expected empty index, got %d vectors", idx.Len())
		}
	})
}

func TestQueryOrdering(t *testing.T) {
	idx := New()
	vectors := [][]float32{
		{0, 1, 0}, // orthogonal to query
		{1, 0, 0}, // identical to query
		{1, 1, 0}, // 45 degrees off
	}
	if err := idx.Build(vectors); err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	matches, err := idx.Query([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	wantOrder := []int{1, 2, 0}
	for i, want := range wantOrder {
		if matches[i].Index != want {
			t.Errorf("position %d: expected index %d, got %d", i, want, matches[i].Index)
		}
	}

	if math.Abs(matches[0].Score-1.0) > 1e-9 {
		t.Errorf("identical vector should score 1.0, got %f", matches[0].Score)
	}
	if math.Abs(matches[2].Score) > 1e-9 {
		t.Errorf("orthogonal vector should score 0.0, got %f", matches[2].Score)
	}
}

func TestQueryTiesAreStable(t *testing.T) {
	idx := New()
	// Two identical vectors tie exactly; the earlier one must come first.
	vectors := [][]float32{
		{1, 1},
		{1, 1},
		{0, 1},
	}
	if err := idx.Build(vectors); err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	matches, err := idx.Query([]float32{1, 1}, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if matches[0].Index != 0 || matches[1].Index != 1 {
		t.Errorf("tied scores should preserve insertion order, got %d then %d",
			matches[0].Index, matches[1].Index)
	}
}

func TestQueryKLargerThanIndex(t *testing.T) {
	idx := New()
	if err := idx.Build([][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	matches, err := idx.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected all 2 vectors, got %d", len(matches))
	}
}

func TestQueryErrors(t *testing.T) {
	idx := New()
	if err := idx.Build([][]float32{{1, 0}}); err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	if _, err := idx.Query(nil, 1); err == nil {
		t.Error("expected error for empty query vector")
	}
	if _, err := idx.Query([]float32{1, 0}, 0); err == nil {
		t.Error("expected error for k=0")
	}
	if _, err := idx.Query([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error for dimension mismatch")
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	idx := New()
	matches, err := idx.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches from empty index, got %d", len(matches))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
