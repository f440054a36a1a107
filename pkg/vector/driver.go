// Package vector provides the vector store capability consumed by the
// retriever, plus drivers for concrete backends.
package vector

import "context"

// Where is a metadata filter in Chroma's where-clause grammar, e.g.
//
//	{"source": "notes.txt"}
//	{"chunk_index": {"$lt": 3}}
//	{"$or": [{"lang": "en"}, {"lang": "de"}]}
type Where map[string]any

// QueryResult holds the matches for a batch of query texts. The outer slices
// are indexed by query text; the inner slices are positionally aligned and
// ordered most similar first.
type QueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`

	// Distances are cosine distances (0 = identical). Lower is more similar.
	Distances [][]float32 `json:"distances"`
}

// Len returns the number of matches for the query at index i.
func (r *QueryResult) Len(i int) int {
	if r == nil || i >= len(r.IDs) {
		return 0
	}
	return len(r.IDs[i])
}

// Driver is a vector store partitioned into named collections. Drivers embed
// texts themselves (or delegate that to the backend) and rank matches by
// cosine similarity.
type Driver interface {
	// Add stores texts with their ids and metadata in the named collection.
	// ids, texts and metadatas must have equal length and are positionally
	// aligned. The collection is created if it does not exist.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, collection string, ids, texts []string, metadatas []map[string]any) error

	// Query returns up to nResults matches per query text, optionally
	// restricted by a metadata filter. Querying a missing or empty
	// collection returns empty results, not an error.
	Query(ctx context.Context, collection string, queryTexts []string, nResults int, where Where) (*QueryResult, error)

	// DeleteCollection removes the named collection and everything in it.
	DeleteCollection(ctx context.Context, collection string) error

	// Close releases any resources held by the driver.
	Close() error
}

// CheckAddInput validates that the parallel add slices line up.
func CheckAddInput(ids, texts []string, metadatas []map[string]any) error {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return ErrMismatchedInput
	}
	return nil
}

// EmptyQueryResult returns a QueryResult with one empty group per query text.
func EmptyQueryResult(n int) *QueryResult {
	r := &QueryResult{
		IDs:       make([][]string, n),
		Documents: make([][]string, n),
		Metadatas: make([][]map[string]any, n),
		Distances: make([][]float32, n),
	}
	for i := range n {
		r.IDs[i] = []string{}
		r.Documents[i] = []string{}
		r.Metadatas[i] = []map[string]any{}
		r.Distances[i] = []float32{}
	}
	return r
}
