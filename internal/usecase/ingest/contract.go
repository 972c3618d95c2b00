package ingest

import (
	"context"

	"github.com/dochelper/ragcore/internal/domain/document"
	"github.com/dochelper/ragcore/internal/domain/segment"
)

// Chunker splits a document into overlapping segments.
type Chunker interface {
	Split(doc document.Document) []segment.Segment
}

// IndexWriter defines the storage contract for ingestion.
type IndexWriter interface {
	Insert(ctx context.Context, vector []float32, seg segment.Segment) error
}
