package document

import "fmt"

// MetaFileName is the metadata key carrying the source file name.
// It doubles as the de facto document identifier.
const MetaFileName = "fileName"

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 1 << 20 // 1MB

// Document is a raw text document with string metadata (immutable value object).
type Document struct {
	content  string
	metadata map[string]string
}

// New validates and creates a Document.
// Content: non-empty, max 1MB. Metadata is copied; nil is allowed.
func New(content string, metadata map[string]string) (Document, error) {
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		content:  content,
		metadata: cloneStringMap(metadata),
	}, nil
}

// Content returns the raw document text.
func (d *Document) Content() string { return d.content }

// Metadata returns the document metadata fields.
func (d *Document) Metadata() map[string]string { return d.metadata }

// FileName returns the fileName metadata value, or "" when absent.
func (d *Document) FileName() string { return d.metadata[MetaFileName] }

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
