package retrieve

import (
	"context"

	"github.com/dochelper/ragcore/internal/domain/retrieval"
)

// IndexSearcher defines the storage contract for retrieval.
type IndexSearcher interface {
	Query(ctx context.Context, vector []float32, k int, minScore float64) ([]retrieval.Match, error)
}
