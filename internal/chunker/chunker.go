// Package chunker splits documents into overlapping segments.
package chunker

import (
	"fmt"
	"strconv"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/document"
	"github.com/dochelper/ragcore/internal/domain/segment"
)

// Default chunking parameters.
const (
	DefaultMaxChunkSize = 500
	DefaultOverlap      = 50
)

// Config holds chunking parameters. Sizes are in characters (runes).
type Config struct {
	MaxChunkSize int
	Overlap      int
}

// Chunker splits raw document text into overlapping segments. Consecutive
// segments share Overlap trailing characters so that context survives chunk
// boundaries.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

// New validates the configuration and creates a Chunker.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d: %w",
			cfg.MaxChunkSize, domain.ErrInvalidConfig)
	}
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d: %w",
			cfg.Overlap, domain.ErrInvalidConfig)
	}
	if cfg.Overlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than max chunk size %d: %w",
			cfg.Overlap, cfg.MaxChunkSize, domain.ErrInvalidConfig)
	}
	return &Chunker{maxChunkSize: cfg.MaxChunkSize, overlap: cfg.Overlap}, nil
}

// Split produces the segment sequence for a document. Segments cover the
// entire text without gaps; a document shorter than MaxChunkSize yields
// exactly one segment. Dropping the first Overlap characters of every segment
// after the first reconstructs the document exactly.
func (c *Chunker) Split(doc document.Document) []segment.Segment {
	content := []rune(doc.Content())
	step := c.maxChunkSize - c.overlap

	var segs []segment.Segment
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := start + c.maxChunkSize
		if end >= len(content) {
			segs = append(segs, c.segment(&doc, string(content[start:]), idx))
			return segs
		}
		segs = append(segs, c.segment(&doc, string(content[start:end]), idx))
	}
}

// segment builds one Segment carrying the document metadata plus the ordinal
// index, both as a struct field and as the "index" metadata entry so that
// prompt injection can render it like any other metadata key.
func (c *Chunker) segment(doc *document.Document, text string, idx int) segment.Segment {
	meta := make(map[string]string, len(doc.Metadata())+1)
	for k, v := range doc.Metadata() {
		meta[k] = v
	}
	meta[segment.MetaIndex] = strconv.Itoa(idx)
	return segment.New(text, meta, idx)
}
