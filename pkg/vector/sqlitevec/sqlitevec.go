// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/filter"
)

// DBFileName is the database file created inside a persist directory.
const DBFileName = "stacks.sqlite"

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db       *sql.DB
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It must match the embedder's output size.
	Dimensions uint

	// Embedder computes embeddings for added texts and query texts.
	Embedder embeddings.Embedder
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	if c.Embedder == nil {
		return nil, vector.ErrNoEmbedder
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// SQLite serializes writers anyway, and every ":memory:" connection
	// would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so documents live in a
	// mapping table keyed by (collection, doc_id) whose rowid is shared
	// with the embedding row.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			UNIQUE(collection, doc_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
			collection TEXT PARTITION KEY,
			embedding float[%d] distance_metric=cosine
		)`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:       db,
		embedder: c.Embedder,
		logger:   logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add embeds and stores texts. If a document with the same ID already exists
// in the collection, it is updated.
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

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		embBlob := serializeFloat32(vectors[i])

		metaJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", id, err)
		}
		if metadatas[i] == nil {
			metaJSON = []byte("{}")
		}

		// Check if document already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_documents WHERE collection = ? AND doc_id = ?`, collection, id,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_documents SET content = ?, metadata = ? WHERE rowid = ?`,
				texts[i], string(metaJSON), existingRowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", id, err)
			}

			// vec0 does not support UPDATE, so replace the embedding row
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", id, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, collection, embedding) VALUES (?, ?, ?)`,
				existingRowID, collection, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for doc %s: %w", id, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			// New document: insert into mapping table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(collection, doc_id, content, metadata) VALUES (?, ?, ?, ?)`,
				collection, id, texts[i], string(metaJSON),
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", id, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", id, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, collection, embedding) VALUES (?, ?, ?)`,
				rowID, collection, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for doc %s: %w", id, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec",
		"collection", collection,
		"count", len(ids),
	)

	return nil
}

// Query finds the nResults most similar documents for each query text.
// Unfiltered queries use vec0 KNN search. Filtered queries scan the
// collection in distance order and apply the filter until nResults
// documents match.
func (d *Driver) Query(ctx context.Context, collection string, queryTexts []string, nResults int, where vector.Where) (*vector.QueryResult, error) {
	expr, err := filter.Parse(where)
	if err != nil {
		return nil, err
	}

	result := vector.EmptyQueryResult(len(queryTexts))
	if nResults <= 0 || len(queryTexts) == 0 {
		return result, nil
	}

	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vec_documents WHERE collection = ?`, collection,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if count == 0 {
		return result, nil
	}

	queryVectors, err := vector.EmbedTexts(ctx, d.embedder, queryTexts)
	if err != nil {
		return nil, err
	}

	for qi, qv := range queryVectors {
		var rows *sql.Rows
		if expr == nil {
			rows, err = d.db.QueryContext(ctx, `
				SELECT
					d.doc_id,
					d.content,
					d.metadata,
					ve.distance
				FROM vec_embeddings ve
				INNER JOIN vec_documents d ON d.rowid = ve.rowid
				WHERE ve.embedding MATCH ?
					AND ve.k = ?
					AND ve.collection = ?
				ORDER BY ve.distance
			`, serializeFloat32(qv), min(nResults, count), collection)
		} else {
			rows, err = d.db.QueryContext(ctx, `
				SELECT
					d.doc_id,
					d.content,
					d.metadata,
					vec_distance_cosine(ve.embedding, ?) AS distance
				FROM vec_documents d
				INNER JOIN vec_embeddings ve ON ve.rowid = d.rowid
				WHERE d.collection = ?
				ORDER BY distance, d.rowid
			`, serializeFloat32(qv), collection)
		}
		if err != nil {
			return nil, fmt.Errorf("querying vectors: %w", err)
		}

		if err := scanMatches(rows, result, qi, nResults, expr); err != nil {
			return nil, err
		}
	}

	d.logger.Debug("queried sqlite-vec",
		"collection", collection,
		"queries", len(queryTexts),
		"results", result.Len(0),
	)

	return result, nil
}

func scanMatches(rows *sql.Rows, result *vector.QueryResult, qi, nResults int, expr filter.Expr) error {
	defer rows.Close()

	for rows.Next() && result.Len(qi) < nResults {
		var (
			docID, content, metaJSON string
			distance                 float64
		)
		if err := rows.Scan(&docID, &content, &metaJSON, &distance); err != nil {
			return fmt.Errorf("scanning query result: %w", err)
		}

		metadata := map[string]any{}
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return fmt.Errorf("decoding metadata for doc %s: %w", docID, err)
		}

		if !filter.Match(expr, metadata) {
			continue
		}

		result.IDs[qi] = append(result.IDs[qi], docID)
		result.Documents[qi] = append(result.Documents[qi], content)
		result.Metadatas[qi] = append(result.Metadatas[qi], metadata)
		result.Distances[qi] = append(result.Distances[qi], float32(distance))
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating query results: %w", err)
	}
	return nil
}

// DeleteCollection removes every document in the collection.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM vec_documents WHERE collection = ?`, collection,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_documents WHERE collection = ?`, collection,
	); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted sqlite-vec collection",
		"collection", collection,
		"count", len(rowIDs),
	)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
