// Package library provides the document library used by agents for
// retrieval-augmented generation: documents are split into overlapping
// chunks on the way in and retrieved by similarity on the way out.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/retriever"
	"github.com/papercomputeco/stacks/pkg/vector"
)

// Library stores documents and retrieves the chunks most relevant to a query.
type Library interface {
	// AddDocuments chunks every document and stores all chunks.
	AddDocuments(ctx context.Context, docs ...document.Document) error

	// Retrieve returns up to topK chunks most similar to query, optionally
	// restricted by a metadata filter. A topK of zero or less uses
	// retriever.DefaultTopK.
	Retrieve(ctx context.Context, query string, topK int, where vector.Where) ([]document.Document, error)

	// Clear deletes every stored chunk.
	Clear(ctx context.Context) error

	// Close releases the underlying store.
	Close() error
}

// Config holds the library's construction-time settings.
type Config struct {
	// CollectionName is the vector store collection holding the chunks.
	// Defaults to retriever.DefaultCollectionName if empty.
	CollectionName string

	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int
}

// DefaultConfig returns the default library configuration.
func DefaultConfig() Config {
	return Config{
		CollectionName: retriever.DefaultCollectionName,
		ChunkSize:      chunker.DefaultChunkSize,
		ChunkOverlap:   chunker.DefaultChunkOverlap,
	}
}

// VectorLibrary is a Library backed by a vector driver.
type VectorLibrary struct {
	chunker   *chunker.Chunker
	retriever *retriever.Retriever
	logger    *slog.Logger

	// embedder is closed with the library when Open created it.
	embedder embeddings.Embedder
}

// New creates a VectorLibrary over driver. The chunking parameters are
// validated here so a bad configuration fails before any document is stored.
func New(driver vector.Driver, c Config, logger *slog.Logger) (*VectorLibrary, error) {
	ch, err := chunker.New(chunker.Config{
		Size:    c.ChunkSize,
		Overlap: c.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &VectorLibrary{
		chunker:   ch,
		retriever: retriever.New(driver, c.CollectionName, logger),
		logger:    logger,
	}, nil
}

// Retriever returns the retriever the library delegates to.
func (l *VectorLibrary) Retriever() *retriever.Retriever {
	return l.retriever
}

// AddDocuments splits every document into chunks and stores all of them,
// in input order, with one retriever call.
func (l *VectorLibrary) AddDocuments(ctx context.Context, docs ...document.Document) error {
	var chunks []document.Document
	for _, doc := range docs {
		chunks = append(chunks, l.chunker.Chunk(doc)...)
	}

	if err := l.retriever.Add(ctx, chunks...); err != nil {
		return err
	}

	l.logger.Debug("added documents to library",
		"documents", len(docs),
		"chunks", len(chunks),
	)

	return nil
}

// Retrieve returns the chunks most similar to query.
func (l *VectorLibrary) Retrieve(ctx context.Context, query string, topK int, where vector.Where) ([]document.Document, error) {
	return l.retriever.Retrieve(ctx, query, topK, where)
}

// Search is Retrieve with the store's distances attached.
func (l *VectorLibrary) Search(ctx context.Context, query string, topK int, where vector.Where) ([]retriever.Match, error) {
	return l.retriever.Search(ctx, query, topK, where)
}

// Clear deletes the library's collection.
func (l *VectorLibrary) Clear(ctx context.Context) error {
	return l.retriever.DeleteCollection(ctx)
}

// Close releases the underlying driver.
func (l *VectorLibrary) Close() error {
	err := l.retriever.Close()
	if l.embedder != nil {
		err = errors.Join(err, l.embedder.Close())
	}
	return err
}

// Ensure VectorLibrary implements Library
var _ Library = (*VectorLibrary)(nil)
