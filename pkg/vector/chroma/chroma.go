// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/filter"
)

const (
	// DefaultMaxRetries is the default number of connection attempts.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff between attempts.
	DefaultMaxRetryDelay = 5 * time.Second

	// DistanceSpace is the hnsw space every collection is created with.
	DistanceSpace = "cosine"

	// TokenHeader carries Config.Token on every request.
	TokenHeader = "X-Chroma-Token"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API. Embeddings are
// computed client-side with the configured embedder.
type Driver struct {
	baseURL    string
	token      string
	httpClient *http.Client
	embedder   embeddings.Embedder
	logger     *slog.Logger

	// collectionIDs caches collection name to id lookups.
	mu            sync.Mutex
	collectionIDs map[string]string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Token authenticates against servers started with token auth.
	Token string

	// Embedder computes embeddings for added texts and query texts.
	Embedder embeddings.Embedder

	// MaxRetries is the number of heartbeat attempts made while connecting.
	// Defaults to DefaultMaxRetries if zero.
	MaxRetries uint

	// RetryDelay is the initial backoff between attempts.
	// Defaults to DefaultRetryDelay if zero.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff between attempts.
	// Defaults to DefaultMaxRetryDelay if zero.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. It waits for the server's
// heartbeat, retrying with exponential backoff while Chroma starts up.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	if c.Embedder == nil {
		return nil, vector.ErrNoEmbedder
	}

	maxRetries := c.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	retryDelay := c.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	maxRetryDelay := c.MaxRetryDelay
	if maxRetryDelay == 0 {
		maxRetryDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL: c.URL,
		token:   c.Token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		embedder:      c.Embedder,
		logger:        logger,
		collectionIDs: make(map[string]string),
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = retryDelay
	expBackoff.MaxInterval = maxRetryDelay

	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, d.heartbeat(context.Background())
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("chroma not ready, retrying",
				"url", c.URL,
				"error", err,
				"retry_in", next,
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to chroma at %s after %d attempts: %v", vector.ErrConnection, c.URL, maxRetries, err)
	}

	logger.Info("connected to Chroma",
		"url", c.URL,
	)

	return d, nil
}

func (d *Driver) heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/v2/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("creating heartbeat request: %w", err)
	}
	d.setToken(req)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending heartbeat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("heartbeat failed: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (d *Driver) setToken(req *http.Request) {
	if d.token != "" {
		req.Header.Set(TokenHeader, d.token)
	}
}

// collectionID resolves a collection name to its id. With create set the
// collection is created if missing; otherwise a missing collection yields
// an empty id.
func (d *Driver) collectionID(ctx context.Context, name string, create bool) (string, error) {
	d.mu.Lock()
	id, ok := d.collectionIDs[name]
	d.mu.Unlock()
	if ok {
		return id, nil
	}

	var collection chromaCollection
	if create {
		reqBody := chromaCreateCollectionRequest{
			Name:        name,
			Metadata:    map[string]any{"hnsw:space": DistanceSpace},
			GetOrCreate: true,
		}
		status, err := d.do(ctx, http.MethodPost, collectionsPath, reqBody, &collection)
		if err != nil {
			return "", fmt.Errorf("getting or creating collection %q: %w", name, err)
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return "", fmt.Errorf("getting or creating collection %q: unexpected status %d", name, status)
		}
	} else {
		status, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+url.PathEscape(name), nil, &collection)
		if status == http.StatusNotFound {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("getting collection %q: %w", name, err)
		}
	}

	d.mu.Lock()
	d.collectionIDs[name] = collection.ID
	d.mu.Unlock()

	d.logger.Debug("resolved chroma collection",
		"collection", name,
		"collection_id", collection.ID,
	)

	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out. Non-2xx
// responses are returned as errors that carry the status and body; a 404
// is returned with its status so callers can treat it as "missing".
func (d *Driver) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	d.setToken(req)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// Add embeds texts and upserts them into the collection, creating the
// collection with cosine space if needed.
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

	collectionID, err := d.collectionID(ctx, collection, true)
	if err != nil {
		return err
	}

	reqBody := chromaUpsertRequest{
		IDs:        ids,
		Embeddings: vectors,
		Metadatas:  chromaMetadatas(metadatas),
		Documents:  texts,
	}

	status, err := d.do(ctx, http.MethodPost, collectionsPath+"/"+collectionID+"/upsert", reqBody, nil)
	if status == http.StatusNotFound {
		// the collection was deleted behind our back, forget it and retry once
		d.forget(collection)
		if collectionID, err = d.collectionID(ctx, collection, true); err != nil {
			return err
		}
		_, err = d.do(ctx, http.MethodPost, collectionsPath+"/"+collectionID+"/upsert", reqBody, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	d.logger.Debug("added documents to chroma",
		"collection", collection,
		"count", len(ids),
	)

	return nil
}

// chromaMetadatas replaces empty metadata maps with nil; Chroma rejects
// empty metadata objects.
func chromaMetadatas(metadatas []map[string]any) []map[string]any {
	out := make([]map[string]any, len(metadatas))
	for i, m := range metadatas {
		if len(m) > 0 {
			out[i] = m
		}
	}
	return out
}

// Query embeds the query texts and asks Chroma for the nearest documents.
// The where filter is validated locally and sent in Chroma's native form.
func (d *Driver) Query(ctx context.Context, collection string, queryTexts []string, nResults int, where vector.Where) (*vector.QueryResult, error) {
	nativeWhere, err := whereClause(where)
	if err != nil {
		return nil, err
	}

	result := vector.EmptyQueryResult(len(queryTexts))
	if nResults <= 0 || len(queryTexts) == 0 {
		return result, nil
	}

	collectionID, err := d.collectionID(ctx, collection, false)
	if err != nil {
		return nil, err
	}
	if collectionID == "" {
		return result, nil
	}

	vectors, err := vector.EmbedTexts(ctx, d.embedder, queryTexts)
	if err != nil {
		return nil, err
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: vectors,
		NResults:        nResults,
		Where:           nativeWhere,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var queryResp chromaQueryResponse
	status, err := d.do(ctx, http.MethodPost, collectionsPath+"/"+collectionID+"/query", reqBody, &queryResp)
	if status == http.StatusNotFound {
		d.forget(collection)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	for qi := range queryTexts {
		if qi >= len(queryResp.IDs) {
			break
		}

		for i, id := range queryResp.IDs[qi] {
			var content string
			if qi < len(queryResp.Documents) && i < len(queryResp.Documents[qi]) && queryResp.Documents[qi][i] != nil {
				content = *queryResp.Documents[qi][i]
			}

			metadata := map[string]any{}
			if qi < len(queryResp.Metadatas) && i < len(queryResp.Metadatas[qi]) && queryResp.Metadatas[qi][i] != nil {
				metadata = queryResp.Metadatas[qi][i]
			}

			var distance float32
			if qi < len(queryResp.Distances) && i < len(queryResp.Distances[qi]) {
				distance = queryResp.Distances[qi][i]
			}

			result.IDs[qi] = append(result.IDs[qi], id)
			result.Documents[qi] = append(result.Documents[qi], content)
			result.Metadatas[qi] = append(result.Metadatas[qi], metadata)
			result.Distances[qi] = append(result.Distances[qi], distance)
		}
	}

	d.logger.Debug("queried chroma",
		"collection", collection,
		"queries", len(queryTexts),
		"results", result.Len(0),
	)

	return result, nil
}

// whereClause validates where and rewrites multi-field clauses into an
// explicit $and, which Chroma requires.
func whereClause(where vector.Where) (map[string]any, error) {
	if _, err := filter.Parse(where); err != nil {
		return nil, err
	}
	if len(where) == 0 {
		return nil, nil
	}
	if len(where) == 1 {
		return where, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]any, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, map[string]any{k: where[k]})
	}
	return map[string]any{"$and": clauses}, nil
}

// DeleteCollection deletes the collection. A missing collection is not an error.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	d.forget(collection)

	status, err := d.do(ctx, http.MethodDelete, collectionsPath+"/"+url.PathEscape(collection), nil, nil)
	if status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}

	d.logger.Debug("deleted chroma collection",
		"collection", collection,
	)

	return nil
}

func (d *Driver) forget(collection string) {
	d.mu.Lock()
	delete(d.collectionIDs, collection)
	d.mu.Unlock()
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
