// Package chunker splits article text into overlapping, size-bounded chunks.
//
// Splitting is recursive: text is cut at paragraph breaks first, then line
// breaks, then sentence ends, and finally at fixed rune offsets when no
// boundary is left. Separators stay attached to the text before them, so
// every chunk is an exact substring of its document and the chunks of a
// document cover all of its text. The one exception is a window holding
// only whitespace, which is not emitted; long blank runs can therefore
// leave gaps that contain no visible text.
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/54b3r/rockybot-go/internal/rag"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the maximum number of runes shared by
	// consecutive chunks of the same document.
	DefaultChunkOverlap = 200
)

// defaultSeparators are tried in order, coarsest first.
var defaultSeparators = []string{"\n\n", "\n", ". "}

// Splitter turns documents into chunks. It is stateless and safe for
// concurrent use.
type Splitter struct {
	// size is the maximum chunk length in runes.
	size int

	// overlap is the maximum shared length between consecutive chunks.
	overlap int

	// separators are the boundaries tried from coarsest to finest.
	separators [][]rune
}

// New returns a Splitter. size must be positive and overlap must be in
// [0, size).
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be in [0, %d), got %d", size, overlap)
	}
	seps := make([][]rune, len(defaultSeparators))
	for i, s := range defaultSeparators {
		seps[i] = []rune(s)
	}
	return &Splitter{size: size, overlap: overlap, separators: seps}, nil
}

// Split chunks every document in order. Documents with no visible text
// produce no chunks.
func (s *Splitter) Split(docs []rag.Document) []rag.Chunk {
	var out []rag.Chunk
	for _, d := range docs {
		out = append(out, s.SplitDocument(d)...)
	}
	return out
}

// SplitDocument chunks a single document. Sequence indexes start at 0.
func (s *Splitter) SplitDocument(doc rag.Document) []rag.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	text := []rune(doc.Text)
	pieces := s.pieces(text, span{0, len(text)}, 0)

	var (
		chunks []rag.Chunk
		window []span
		length int
	)
	emit := func() {
		if len(window) == 0 {
			return
		}
		start, end := window[0].start, window[len(window)-1].end
		body := string(text[start:end])
		// Blank windows carry nothing to embed.
		if strings.TrimSpace(body) == "" {
			return
		}
		seq := len(chunks)
		chunks = append(chunks, rag.Chunk{
			ID:     ChunkID(doc.Source, seq),
			Text:   body,
			Source: doc.Source,
			Seq:    seq,
			Start:  start,
			End:    end,
		})
	}

	for _, p := range pieces {
		n := p.len()
		if length+n > s.size && len(window) > 0 {
			emit()
			// Carry the tail of the window forward as overlap, as long as
			// it stays within the overlap budget and leaves room for p.
			for len(window) > 0 && (length > s.overlap || length+n > s.size) {
				length -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, p)
		length += n
	}
	emit()
	return chunks
}

// ChunkID returns the deterministic identifier of chunk seq of source.
func ChunkID(source string, seq int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, seq))).String()
}

// span is a half-open rune range.
type span struct{ start, end int }

func (sp span) len() int { return sp.end - sp.start }

// pieces splits sp into contiguous spans no longer than the chunk size,
// using separators from level onwards.
func (s *Splitter) pieces(text []rune, sp span, level int) []span {
	if sp.len() <= s.size {
		return []span{sp}
	}
	if level >= len(s.separators) {
		var out []span
		for i := sp.start; i < sp.end; i += s.size {
			out = append(out, span{i, min(i+s.size, sp.end)})
		}
		return out
	}

	parts := splitAfter(text, sp, s.separators[level])
	if len(parts) == 1 {
		return s.pieces(text, sp, level+1)
	}
	var out []span
	for _, p := range parts {
		out = append(out, s.pieces(text, p, level+1)...)
	}
	return out
}

// splitAfter cuts sp after every occurrence of sep.
func splitAfter(text []rune, sp span, sep []rune) []span {
	var out []span
	start := sp.start
	for i := sp.start; i+len(sep) <= sp.end; {
		if hasPrefix(text[i:sp.end], sep) {
			i += len(sep)
			out = append(out, span{start, i})
			start = i
			continue
		}
		i++
	}
	if start < sp.end {
		out = append(out, span{start, sp.end})
	}
	return out
}

func hasPrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
