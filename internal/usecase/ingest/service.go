// Package ingest orchestrates the document intake pipeline:
// chunk, embed, insert into the vector index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/document"
	"github.com/dochelper/ragcore/internal/metrics"
)

// Service handles document ingestion into the vector index.
type Service struct {
	chunker  Chunker
	embedder domain.Embedder
	index    IndexWriter
	logger   *zap.Logger
}

// New creates an ingest service.
func New(chunker Chunker, embedder domain.Embedder, index IndexWriter, logger *zap.Logger) *Service {
	return &Service{chunker: chunker, embedder: embedder, index: index, logger: logger}
}

// IngestBytes validates raw document bytes with metadata and ingests them.
// This is the entry point for the upload transport and the file watcher.
func (s *Service) IngestBytes(ctx context.Context, raw []byte, metadata map[string]string) error {
	doc, err := document.New(string(raw), metadata)
	if err != nil {
		return fmt.Errorf("%w: invalid document %q: %w",
			domain.ErrIngestion, metadata[document.MetaFileName], err)
	}
	return s.Ingest(ctx, doc)
}

// Ingest runs one document through the pipeline. Inserts are additive:
// re-ingesting a document creates fresh entries rather than replacing old
// ones. Semantics are at-least-once — segments inserted before a failure
// stay in the index.
func (s *Service) Ingest(ctx context.Context, doc document.Document) error {
	if err := s.ingest(ctx, doc); err != nil {
		metrics.IngestedDocumentsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.IngestedDocumentsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) ingest(ctx context.Context, doc document.Document) error {
	segs := s.chunker.Split(doc)

	texts := make([]string, len(segs))
	for i := range segs {
		texts[i] = segs[i].Text()
	}

	result, err := s.embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed segments of %q: %w",
			domain.ErrIngestion, doc.FileName(), err)
	}
	if len(result.Embeddings) != len(segs) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d segments of %q",
			domain.ErrIngestion, len(result.Embeddings), len(segs), doc.FileName())
	}

	for i, seg := range segs {
		if err := s.index.Insert(ctx, result.Embeddings[i], seg); err != nil {
			return fmt.Errorf("%w: insert segment %d of %q: %w",
				domain.ErrIngestion, seg.Index(), doc.FileName(), err)
		}
		metrics.IngestedSegmentsTotal.Inc()
	}

	s.logger.Info("Document ingested",
		zap.String("file_name", doc.FileName()),
		zap.Int("segments", len(segs)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return nil
}

// embed vectorizes all segment texts in one batch call when the embedder
// supports it.
func (s *Service) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}
