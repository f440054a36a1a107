// Package inmemory provides an ephemeral, process-local vector driver that
// ranks documents by brute-force cosine similarity.
package inmemory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/filter"
)

// Config holds configuration for the in-memory driver.
type Config struct {
	// Embedder computes embeddings for added texts and query texts.
	Embedder embeddings.Embedder
}

type record struct {
	id        string
	text      string
	metadata  map[string]any
	embedding []float32

	// seq is the insertion order, kept across upserts, used to break ties.
	seq int
}

type collection struct {
	records map[string]*record
	nextSeq int
}

// Driver implements vector.Driver in process memory. It is safe for
// concurrent use.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]*collection
	embedder    embeddings.Embedder
	logger      *slog.Logger
}

// NewDriver creates a new in-memory vector driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Embedder == nil {
		return nil, vector.ErrNoEmbedder
	}

	return &Driver{
		collections: make(map[string]*collection),
		embedder:    c.Embedder,
		logger:      logger,
	}, nil
}

// Add embeds and stores texts, replacing existing records with the same id.
func (d *Driver) Add(ctx context.Context, name string, ids, texts []string, metadatas []map[string]any) error {
	if err := vector.CheckAddInput(ids, texts, metadatas); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := vector.EmbedTexts(ctx, d.embedder, texts)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[name]
	if !ok {
		coll = &collection{records: make(map[string]*record)}
		d.collections[name] = coll
	}

	for i, id := range ids {
		seq := coll.nextSeq
		if existing, ok := coll.records[id]; ok {
			seq = existing.seq
		} else {
			coll.nextSeq++
		}

		coll.records[id] = &record{
			id:        id,
			text:      texts[i],
			metadata:  document.CloneMetadata(metadatas[i]),
			embedding: vectors[i],
			seq:       seq,
		}
	}

	d.logger.Debug("added documents to memory store",
		"collection", name,
		"count", len(ids),
		"total", len(coll.records),
	)

	return nil
}

type match struct {
	rec      *record
	distance float32
}

// Query ranks every record in the collection against each query text.
func (d *Driver) Query(ctx context.Context, name string, queryTexts []string, nResults int, where vector.Where) (*vector.QueryResult, error) {
	keep, err := filter.Compile(where)
	if err != nil {
		return nil, err
	}

	result := vector.EmptyQueryResult(len(queryTexts))
	if nResults <= 0 || len(queryTexts) == 0 {
		return result, nil
	}

	d.mu.RLock()
	coll, ok := d.collections[name]
	empty := !ok || len(coll.records) == 0
	d.mu.RUnlock()
	if empty {
		return result, nil
	}

	queryVectors, err := vector.EmbedTexts(ctx, d.embedder, queryTexts)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	// the collection may have been deleted while embedding
	coll, ok = d.collections[name]
	if !ok {
		return result, nil
	}

	for qi, qv := range queryVectors {
		matches := make([]match, 0, len(coll.records))
		for _, rec := range coll.records {
			if !keep(rec.metadata) {
				continue
			}
			matches = append(matches, match{
				rec:      rec,
				distance: vector.CosineDistance(qv, rec.embedding),
			})
		}

		sort.Slice(matches, func(i, j int) bool {
			if matches[i].distance != matches[j].distance {
				return matches[i].distance < matches[j].distance
			}
			return matches[i].rec.seq < matches[j].rec.seq
		})

		if len(matches) > nResults {
			matches = matches[:nResults]
		}

		for _, m := range matches {
			result.IDs[qi] = append(result.IDs[qi], m.rec.id)
			result.Documents[qi] = append(result.Documents[qi], m.rec.text)
			result.Metadatas[qi] = append(result.Metadatas[qi], document.CloneMetadata(m.rec.metadata))
			result.Distances[qi] = append(result.Distances[qi], m.distance)
		}
	}

	d.logger.Debug("queried memory store",
		"collection", name,
		"queries", len(queryTexts),
		"results", result.Len(0),
	)

	return result, nil
}

// DeleteCollection drops the collection. Deleting a missing collection is a no-op.
func (d *Driver) DeleteCollection(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.collections, name)

	d.logger.Debug("deleted memory collection", "collection", name)
	return nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	coll, ok := d.collections[name]
	if !ok {
		return 0
	}
	return len(coll.records)
}

// Close releases the stored records.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.collections = make(map[string]*collection)
	return nil
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
