package chat

import (
	"strings"

	"github.com/dochelper/ragcore/internal/domain/retrieval"
)

const contextHeader = "Answer using the following information:"

// Inject renders retrieved segments into a context block followed by the user
// prompt. Segments keep their ranking order and metadata values are rendered
// in the fixed metadataKeys order, so identical inputs produce byte-identical
// output. An empty match list passes the prompt through unchanged.
func Inject(prompt string, matches []retrieval.Match, metadataKeys []string) string {
	if len(matches) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteString("\n")

	for i := range matches {
		seg := matches[i].Segment()

		b.WriteString("\ncontent: ")
		b.WriteString(seg.Text())
		b.WriteString("\n")

		meta := seg.Metadata()
		for _, key := range metadataKeys {
			if v, ok := meta[key]; ok {
				b.WriteString(key)
				b.WriteString(": ")
				b.WriteString(v)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}
