// Package retriever binds a named collection to a vector driver and stores
// and retrieves whole documents.
package retriever

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/vector"
)

const (
	// DefaultCollectionName is the collection used when none is configured.
	DefaultCollectionName = "stacks_docs"

	// DefaultTopK is the number of results returned when topK is not positive.
	DefaultTopK = 3
)

// Match is a retrieved document with its cosine distance to the query.
type Match struct {
	Document document.Document

	// Distance is the cosine distance reported by the store. Lower is more
	// similar.
	Distance float32
}

// Retriever stores documents in, and retrieves them from, one collection of
// a vector driver. It holds no state besides the driver handle and the
// collection name.
type Retriever struct {
	driver     vector.Driver
	collection string
	logger     *slog.Logger
}

// New creates a Retriever over the named collection. An empty name selects
// DefaultCollectionName.
func New(driver vector.Driver, collection string, logger *slog.Logger) *Retriever {
	if collection == "" {
		collection = DefaultCollectionName
	}

	return &Retriever{
		driver:     driver,
		collection: collection,
		logger:     logger,
	}
}

// Collection returns the collection name.
func (r *Retriever) Collection() string {
	return r.collection
}

// Add stores docs keyed by their IDs in a single driver call. Documents with
// an existing ID replace the stored one.
func (r *Retriever) Add(ctx context.Context, docs ...document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		texts[i] = doc.Content
		metadatas[i] = doc.Metadata
		if metadatas[i] == nil {
			metadatas[i] = map[string]any{}
		}
	}

	if err := r.driver.Add(ctx, r.collection, ids, texts, metadatas); err != nil {
		return err
	}

	r.logger.Debug("added documents",
		"collection", r.collection,
		"count", len(docs),
	)

	return nil
}

// Retrieve returns up to topK documents most similar to query, most similar
// first. A topK of zero or less uses DefaultTopK. Missing or empty
// collections yield an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, where vector.Where) ([]document.Document, error) {
	matches, err := r.Search(ctx, query, topK, where)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, len(matches))
	for i, m := range matches {
		docs[i] = m.Document
	}
	return docs, nil
}

// Search is Retrieve with the store's distances attached.
func (r *Retriever) Search(ctx context.Context, query string, topK int, where vector.Where) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	res, err := r.driver.Query(ctx, r.collection, []string{query}, topK, where)
	if err != nil {
		return nil, err
	}

	n := min(res.Len(0), topK)
	matches := make([]Match, 0, n)
	for i := range n {
		doc := document.Document{
			ID:       res.IDs[0][i],
			Content:  at(res.Documents, i),
			Metadata: at(res.Metadatas, i),
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}

		matches = append(matches, Match{
			Document: doc,
			Distance: at(res.Distances, i),
		})
	}

	r.logger.Debug("retrieved documents",
		"collection", r.collection,
		"top_k", topK,
		"results", len(matches),
	)

	return matches, nil
}

// DeleteCollection removes the whole collection. A later Add recreates it.
func (r *Retriever) DeleteCollection(ctx context.Context) error {
	if err := r.driver.DeleteCollection(ctx, r.collection); err != nil {
		return err
	}

	r.logger.Info("deleted collection", "collection", r.collection)
	return nil
}

// Close releases the underlying driver.
func (r *Retriever) Close() error {
	return r.driver.Close()
}

// at returns groups[0][i], or the zero value when the driver left it out.
func at[T any](groups [][]T, i int) T {
	var zero T
	if len(groups) == 0 || i >= len(groups[0]) {
		return zero
	}
	return groups[0][i]
}
