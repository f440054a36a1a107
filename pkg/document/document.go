// Package document provides the Document value type shared by the chunker,
// retriever and library packages.
package document

import (
	"github.com/google/uuid"
)

const (
	// MetadataChunkIndex is the metadata key holding a chunk's 0-based
	// position within its source document.
	MetadataChunkIndex = "chunk_index"

	// MetadataOriginalDocumentID is the metadata key holding the ID of the
	// document a chunk was split from.
	MetadataOriginalDocumentID = "original_document_id"
)

// Document is a unit of text with metadata and a stable identifier.
//
// Documents built with New always carry a non-empty ID and a non-nil
// Metadata map. Once a Document has been handed to a Library or Retriever
// it should be treated as read-only.
type Document struct {
	// ID uniquely identifies the document within a collection.
	ID string `json:"id"`

	// Content is the document text. It may be empty.
	Content string `json:"content"`

	// Metadata holds scalar or JSON-serializable values attached to the document.
	Metadata map[string]any `json:"metadata"`
}

// Option configures a Document created with New.
type Option func(*Document)

// WithID sets an explicit document ID. An empty id is ignored and a new
// one is generated.
func WithID(id string) Option {
	return func(d *Document) {
		d.ID = id
	}
}

// WithMetadata attaches metadata to the document. The map is deep copied so
// later mutations by the caller do not leak into the document.
func WithMetadata(metadata map[string]any) Option {
	return func(d *Document) {
		d.Metadata = CloneMetadata(metadata)
	}
}

// New creates a Document. When no ID is supplied a UUIDv4 is generated.
func New(content string, opts ...Option) Document {
	d := Document{
		Content: content,
	}

	for _, opt := range opts {
		opt(&d)
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}

	return d
}

// ChunkIndex returns the chunk_index metadata value, if present.
// Values decoded from JSON backends arrive as float64 and are converted.
func (d Document) ChunkIndex() (int, bool) {
	switch v := d.Metadata[MetadataChunkIndex].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// OriginalDocumentID returns the original_document_id metadata value, if present.
func (d Document) OriginalDocumentID() (string, bool) {
	id, ok := d.Metadata[MetadataOriginalDocumentID].(string)
	return id, ok
}
