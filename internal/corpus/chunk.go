package corpus

import (
	"fmt"
	"strings"
)

// Chunker splits source documents into overlapping text chunks sized for
// embedding.
type Chunker struct {
	// Size is the target chunk length in characters.
	Size int
	// Overlap is the number of trailing characters repeated at the start of
	// the next chunk, preserving context across boundaries.
	Overlap int
}

// Split breaks a document into chunks with stable rule IDs of the form
// "<source>#<seq>". Paragraph boundaries are preferred; a paragraph longer
// than Size is cut at Size with Overlap carried over.
func (c Chunker) Split(source, text string) []Chunk {
	size := c.Size
	if size <= 0 {
		size = 800
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []Chunk
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		seq := len(chunks)
		chunks = append(chunks, Chunk{
			RuleID: fmt.Sprintf("%s#%04d", source, seq),
			Source: source,
			Seq:    seq,
			Text:   s,
		})
	}

	var current strings.Builder
	flush := func() string {
		s := current.String()
		emit(s)
		current.Reset()
		return s
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Paragraph fits into the current chunk.
		if current.Len()+len(para)+2 <= size {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}

		// Close the current chunk, carrying the overlap tail forward.
		if current.Len() > 0 {
			prev := flush()
			if overlap > 0 && len(prev) > overlap {
				current.WriteString(prev[len(prev)-overlap:])
				current.WriteString("\n\n")
			}
		}

		// Hard-split oversized paragraphs. A large overlap tail plus the
		// separator can already fill the chunk; flush it before slicing so
		// room stays positive.
		for current.Len()+len(para) > size {
			room := size - current.Len()
			if room <= 0 {
				flush()
				continue
			}
			current.WriteString(para[:room])
			para = para[room:]
			prev := flush()
			if overlap > 0 && len(prev) > overlap {
				current.WriteString(prev[len(prev)-overlap:])
			}
		}
		if para != "" {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
		}
	}
	flush()

	return chunks
}
