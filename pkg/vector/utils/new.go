// Package vectorutils selects and constructs vector drivers by provider name.
package vectorutils

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/chroma"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
	"github.com/papercomputeco/stacks/pkg/vector/pgvector"
	"github.com/papercomputeco/stacks/pkg/vector/qdrant"
	"github.com/papercomputeco/stacks/pkg/vector/sqlitevec"
)

const (
	ProviderMemory   = "memory"
	ProviderSQLite   = "sqlite"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
)

// Providers lists the supported vector store provider names.
var Providers = []string{
	ProviderMemory,
	ProviderSQLite,
	ProviderChroma,
	ProviderQdrant,
	ProviderPgvector,
}

type NewVectorDriverOpts struct {
	// ProviderType selects the driver. When empty, a persistent sqlite
	// store is used if PersistDirectory is set and an in-memory store
	// otherwise.
	ProviderType string

	// TargetURL is the provider address: the Chroma URL, the Qdrant
	// host:port, the PostgreSQL connection string, or the sqlite database
	// path.
	TargetURL string

	// APIKey authenticates against providers that need one: the Qdrant API
	// key or the Chroma token.
	APIKey string

	// PersistDirectory holds the sqlite database when TargetURL is empty.
	PersistDirectory string

	// Dimensions is the embedding size for drivers with fixed-size columns.
	Dimensions uint

	Embedder embeddings.Embedder
	Logger   *slog.Logger
}

// ResolveProvider returns the provider NewVectorDriver will use.
func ResolveProvider(o *NewVectorDriverOpts) string {
	if o.ProviderType != "" {
		return o.ProviderType
	}
	if o.PersistDirectory != "" {
		return ProviderSQLite
	}
	return ProviderMemory
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch provider := ResolveProvider(o); provider {
	case ProviderMemory:
		return inmemory.NewDriver(inmemory.Config{
			Embedder: o.Embedder,
		}, o.Logger)

	case ProviderSQLite:
		dbPath := o.TargetURL
		if dbPath == "" {
			if o.PersistDirectory == "" {
				return nil, fmt.Errorf("sqlite vector store needs a target path or persist directory")
			}
			if err := os.MkdirAll(o.PersistDirectory, 0o755); err != nil {
				return nil, fmt.Errorf("creating persist directory: %w", err)
			}
			dbPath = filepath.Join(o.PersistDirectory, sqlitevec.DBFileName)
		}
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     dbPath,
			Dimensions: o.Dimensions,
			Embedder:   o.Embedder,
		}, o.Logger)

	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:      o.TargetURL,
			Token:    o.APIKey,
			Embedder: o.Embedder,
		}, o.Logger)

	case ProviderQdrant:
		host, port, err := splitHostPort(o.TargetURL, qdrant.DefaultPort)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:       host,
			Port:       port,
			APIKey:     o.APIKey,
			Dimensions: o.Dimensions,
			Embedder:   o.Embedder,
		}, o.Logger)

	case ProviderPgvector:
		return pgvector.NewDriver(pgvector.Config{
			ConnString: o.TargetURL,
			Dimensions: o.Dimensions,
			Embedder:   o.Embedder,
		}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", provider)
	}
}

// splitHostPort parses "host" or "host:port", falling back to defaultPort.
func splitHostPort(target string, defaultPort int) (string, int, error) {
	if target == "" {
		return "", 0, fmt.Errorf("vector store target is required")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port in target
		return target, defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in target %q: %w", target, err)
	}
	return host, port, nil
}
