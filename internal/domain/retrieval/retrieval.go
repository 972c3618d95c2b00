package retrieval

import "github.com/dochelper/ragcore/internal/domain/segment"

// Match is a single retrieved segment with its similarity score.
type Match struct {
	segment segment.Segment
	score   float64
}

// NewMatch creates a retrieval match.
func NewMatch(seg segment.Segment, score float64) Match {
	return Match{segment: seg, score: score}
}

// Segment returns the retrieved segment.
func (m *Match) Segment() segment.Segment { return m.segment }

// Score returns the similarity score.
func (m *Match) Score() float64 { return m.score }
