package segment

// MetaIndex is the metadata key carrying a segment's ordinal position.
const MetaIndex = "index"

// Segment is one chunk of a document: its text, the origin document metadata
// plus the added index field, and the zero-based ordinal position within the
// document's chunk sequence. Segments are the unit stored in the vector index.
type Segment struct {
	text     string
	metadata map[string]string
	index    int
}

// New creates a Segment. The metadata map is owned by the segment; callers
// must pass a fresh copy per segment.
func New(text string, metadata map[string]string, index int) Segment {
	return Segment{text: text, metadata: metadata, index: index}
}

// Text returns the segment text.
func (s *Segment) Text() string { return s.text }

// Metadata returns the segment metadata fields.
func (s *Segment) Metadata() map[string]string { return s.metadata }

// Index returns the segment's ordinal position within its document.
func (s *Segment) Index() int { return s.index }
