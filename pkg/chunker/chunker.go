// Package chunker splits documents into overlapping, boundary-aware chunks of
// characters. Characters are Unicode code points.
package chunker

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/papercomputeco/stacks/pkg/document"
)

const (
	// DefaultChunkSize is the default maximum number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default number of characters shared by
	// adjacent chunks.
	DefaultChunkOverlap = 200
)

var (
	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidChunkOverlap is returned when the overlap is negative or not
	// smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be in [0, chunk size)")
)

// Config holds the chunking parameters.
type Config struct {
	// Size is the maximum number of characters per chunk.
	Size int

	// Overlap is the number of characters repeated at the head of the next chunk.
	Overlap int
}

// DefaultConfig returns a Config with DefaultChunkSize and DefaultChunkOverlap.
func DefaultConfig() Config {
	return Config{
		Size:    DefaultChunkSize,
		Overlap: DefaultChunkOverlap,
	}
}

// Validate checks that the config guarantees the split loop terminates.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: got overlap %d with size %d", ErrInvalidChunkOverlap, c.Overlap, c.Size)
	}
	return nil
}

// Chunker splits documents using a fixed, validated Config.
type Chunker struct {
	config Config
}

// New creates a Chunker. It returns an error if the config is invalid.
func New(c Config) (*Chunker, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: c}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Chunk splits doc into chunks using the chunker's configuration.
func (c *Chunker) Chunk(doc document.Document) []document.Document {
	return Split(doc, c.config.Size, c.config.Overlap)
}

// Split cuts doc into chunks of at most size characters, repeating overlap
// characters between neighbours. When a cut would land inside a word, the
// end is moved back to the last whitespace in the window; without such a
// whitespace the word is cut.
//
// Every document yields at least one chunk: empty content produces a single
// empty chunk. Each chunk gets a fresh ID and a deep copy of the source
// metadata with chunk_index and original_document_id added.
//
// Overlap is best effort. When a cut is moved back to or before the point
// where the next chunk would start, the next chunk starts at that cut
// instead and shares no characters with its neighbour, so every iteration
// advances.
//
// Callers must ensure size > 0 and 0 <= overlap < size; use Config.Validate.
func Split(doc document.Document, size, overlap int) []document.Document {
	content := []rune(doc.Content)
	length := len(content)

	if length == 0 {
		return []document.Document{newChunk(doc, "", 0)}
	}

	var chunks []document.Document
	start := 0

	for start < length {
		end := min(start+size, length)

		if end < length && !unicode.IsSpace(content[end]) {
			if ws := lastSpace(content, start, end); ws > start {
				end = ws
			}
		}

		chunks = append(chunks, newChunk(doc, string(content[start:end]), len(chunks)))

		if end == length {
			break
		}

		next := max(end-overlap, 0)
		if next <= start {
			// boundary correction pulled end into the overlap window
			next = end
		}
		start = next
	}

	return chunks
}

// lastSpace returns the index of the last whitespace rune in content[start:end],
// or -1 if there is none.
func lastSpace(content []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if unicode.IsSpace(content[i]) {
			return i
		}
	}
	return -1
}

func newChunk(source document.Document, content string, index int) document.Document {
	chunk := document.New(content, document.WithMetadata(source.Metadata))
	chunk.Metadata[document.MetadataChunkIndex] = index
	chunk.Metadata[document.MetadataOriginalDocumentID] = source.ID

	return chunk
}
