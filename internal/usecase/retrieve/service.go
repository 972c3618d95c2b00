// Package retrieve answers similarity queries against the vector index.
package retrieve

import (
	"context"
	"fmt"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/retrieval"
	"github.com/dochelper/ragcore/internal/metrics"
)

// Config holds retrieval parameters.
type Config struct {
	TopK     int
	MinScore float64
}

// Service embeds a query and returns the top-k index matches above the score
// threshold. It is a pure function of the index state at call time — query
// embeddings are not cached here.
type Service struct {
	embedder domain.Embedder
	index    IndexSearcher
	topK     int
	minScore float64
}

// New validates the configuration and creates a retrieval service.
func New(embedder domain.Embedder, index IndexSearcher, cfg Config) (*Service, error) {
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d: %w",
			cfg.TopK, domain.ErrInvalidConfig)
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("min score must be within [0, 1], got %v: %w",
			cfg.MinScore, domain.ErrInvalidConfig)
	}
	return &Service{
		embedder: embedder,
		index:    index,
		topK:     cfg.TopK,
		minScore: cfg.MinScore,
	}, nil
}

// Retrieve embeds the query text and delegates to the index. An empty result
// is valid — fewer than k entries may clear the threshold, or none at all.
func (s *Service) Retrieve(ctx context.Context, query string) ([]retrieval.Match, error) {
	embResult, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	matches, err := s.index.Query(ctx, embResult.Embedding, s.topK, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	metrics.RetrievalMatches.Observe(float64(len(matches)))
	return matches, nil
}
