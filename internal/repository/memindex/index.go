// Package memindex is an in-memory vector index with brute-force cosine search.
// It is the reference Index implementation; a persistent or approximate index
// can replace it behind the same usecase contracts without touching callers.
package memindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/retrieval"
	"github.com/dochelper/ragcore/internal/domain/segment"
)

// entry is one stored (vector, segment) pair. Entries are append-only;
// the slice position doubles as insertion order for tie-breaking.
type entry struct {
	vector  []float32
	norm    float64
	segment segment.Segment
}

// Index stores embedding vectors with their segments and answers
// nearest-neighbor queries by cosine similarity.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

// New creates an empty index. The vector dimensionality is fixed by the
// first insert.
func New() *Index {
	return &Index{}
}

// Insert stores a (vector, segment) pair. Inserts are additive: duplicates
// are allowed and produce independent entries. The insert is atomic with
// respect to concurrent queries.
func (x *Index) Insert(_ context.Context, vector []float32, seg segment.Segment) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector: %w", domain.ErrVectorDimMismatch)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = len(vector)
	} else if len(vector) != x.dim {
		return fmt.Errorf("got %d dimensions, index has %d: %w",
			len(vector), x.dim, domain.ErrVectorDimMismatch)
	}

	x.entries = append(x.entries, entry{
		vector:  vector,
		norm:    norm(vector),
		segment: seg,
	})
	return nil
}

// Query returns up to k entries with cosine similarity >= minScore, ordered
// by descending score; ties are broken by insertion order (earlier wins).
// An empty result is valid — querying an empty index is not an error.
func (x *Index) Query(
	_ context.Context, vector []float32, k int, minScore float64,
) ([]retrieval.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidConfig)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(vector), x.dim, domain.ErrVectorDimMismatch)
	}

	qnorm := norm(vector)

	matches := make([]retrieval.Match, 0, len(x.entries))
	for _, e := range x.entries {
		score := cosine(vector, qnorm, e.vector, e.norm)
		if score < minScore {
			continue
		}
		matches = append(matches, retrieval.NewMatch(e.segment, score))
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score() > matches[j].Score()
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of stored entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Reset drops all entries and unfixes the dimensionality. There is no
// per-entry delete; a full reset is the only removal operation.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = 0
	x.entries = nil
}

func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
