// Package qdrant provides a Qdrant vector database driver using the official
// gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadDocumentID = "document_id"
	payloadContent    = "content"
	payloadMetadata   = "metadata"
)

// pointNamespace derives deterministic point UUIDs from document ids, since
// Qdrant only accepts integers and UUIDs as point ids.
var pointNamespace = uuid.MustParse("6f1c0f3e-8a43-4f57-9a37-0c6f0a6a2d51")

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qc.Client
	dimensions uint64
	embedder   embeddings.Embedder
	logger     *slog.Logger

	// known caches collections that exist or were created by this driver.
	mu    sync.Mutex
	known map[string]bool
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server host.
	Host string

	// Port is the gRPC port. Defaults to DefaultPort if zero.
	Port int

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// Dimensions is the vector size used when creating collections.
	Dimensions uint

	// Embedder computes embeddings for added texts and query texts.
	Embedder embeddings.Embedder
}

// NewDriver creates a new Qdrant vector driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	if c.Embedder == nil {
		return nil, vector.ErrNoEmbedder
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		client:     client,
		dimensions: uint64(c.Dimensions),
		embedder:   c.Embedder,
		logger:     logger,
		known:      make(map[string]bool),
	}, nil
}

// PointID returns the Qdrant point UUID for a document id.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// ensureCollection reports whether the collection exists, creating it with
// cosine distance when create is set.
func (d *Driver) ensureCollection(ctx context.Context, name string, create bool) (bool, error) {
	d.mu.Lock()
	known := d.known[name]
	d.mu.Unlock()
	if known {
		return true, nil
	}

	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, name, err)
	}

	if !exists {
		if !create {
			return false, nil
		}

		err = d.client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: name,
			VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
				Size:     d.dimensions,
				Distance: qc.Distance_Cosine,
			}),
		})
		if err != nil {
			return false, fmt.Errorf("creating collection %q: %w", name, err)
		}

		d.logger.Info("created qdrant collection",
			"collection", name,
			"dimensions", d.dimensions,
		)
	}

	d.mu.Lock()
	d.known[name] = true
	d.mu.Unlock()

	return true, nil
}

// Add embeds texts and upserts them as points keyed by PointID.
func (d *Driver) Add(ctx context.Context, collection string, ids, texts []string, metadatas []map[string]any) error {
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

	if _, err := d.ensureCollection(ctx, collection, true); err != nil {
		return err
	}

	points := make([]*qc.PointStruct, len(ids))
	for i, id := range ids {
		payload, err := qc.TryValueMap(map[string]any{
			payloadDocumentID: id,
			payloadContent:    texts[i],
			payloadMetadata:   normalizeMetadata(metadatas[i]),
		})
		if err != nil {
			return fmt.Errorf("encoding payload for doc %s: %w", id, err)
		}

		points[i] = &qc.PointStruct{
			Id:      qc.NewIDUUID(PointID(id)),
			Vectors: qc.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err = d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: collection,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		"collection", collection,
		"count", len(ids),
	)

	return nil
}

// Query embeds each query text and runs a filtered nearest-neighbour search.
func (d *Driver) Query(ctx context.Context, collection string, queryTexts []string, nResults int, where vector.Where) (*vector.QueryResult, error) {
	qfilter, err := translateWhere(where)
	if err != nil {
		return nil, err
	}

	result := vector.EmptyQueryResult(len(queryTexts))
	if nResults <= 0 || len(queryTexts) == 0 {
		return result, nil
	}

	exists, err := d.ensureCollection(ctx, collection, false)
	if err != nil {
		return nil, err
	}
	if !exists {
		return result, nil
	}

	vectors, err := vector.EmbedTexts(ctx, d.embedder, queryTexts)
	if err != nil {
		return nil, err
	}

	for qi, qv := range vectors {
		points, err := d.client.Query(ctx, &qc.QueryPoints{
			CollectionName: collection,
			Query:          qc.NewQuery(qv...),
			Limit:          qc.PtrOf(uint64(nResults)),
			Filter:         qfilter,
			WithPayload:    qc.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query points: %w", err)
		}

		for _, p := range points {
			fields := p.GetPayload()

			metadata := map[string]any{}
			if m, ok := valueToAny(fields[payloadMetadata]).(map[string]any); ok {
				metadata = m
			}

			result.IDs[qi] = append(result.IDs[qi], fields[payloadDocumentID].GetStringValue())
			result.Documents[qi] = append(result.Documents[qi], fields[payloadContent].GetStringValue())
			result.Metadatas[qi] = append(result.Metadatas[qi], metadata)
			// cosine collections score by similarity
			result.Distances[qi] = append(result.Distances[qi], 1-p.GetScore())
		}
	}

	d.logger.Debug("queried qdrant",
		"collection", collection,
		"queries", len(queryTexts),
		"results", result.Len(0),
	)

	return result, nil
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	d.mu.Lock()
	delete(d.known, collection)
	d.mu.Unlock()

	exists, err := d.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, collection, err)
	}
	if !exists {
		return nil
	}

	if err := d.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}

	d.logger.Debug("deleted qdrant collection",
		"collection", collection,
	)

	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
