package library

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/stacks/pkg/embeddings/utils"
	"github.com/papercomputeco/stacks/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/stacks/pkg/vector/utils"
)

// OpenOpts holds the inputs of Open.
type OpenOpts struct {
	Config *config.Config

	// DefaultPersistDirectory is used for the sqlite store when the config
	// selects it without a persist directory.
	DefaultPersistDirectory string

	// Embedder overrides the embedder built from the config.
	Embedder embeddings.Embedder

	Logger *slog.Logger
}

// Open builds the embedder, the vector driver and the library described by
// a stacks configuration. Closing the returned library also closes the
// embedder when Open created it.
func Open(o *OpenOpts) (*VectorLibrary, error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	embedder := o.Embedder
	ownsEmbedder := false
	if embedder == nil {
		var err error
		embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		ownsEmbedder = true
	}

	driverOpts := driverOptions(cfg, o.DefaultPersistDirectory)
	driverOpts.Embedder = embedder
	driverOpts.Logger = o.Logger

	driver, err := vectorutils.NewVectorDriver(driverOpts)
	if err != nil {
		if ownsEmbedder {
			_ = embedder.Close()
		}
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	lib, err := New(driver, Config{
		CollectionName: cfg.Library.CollectionName,
		ChunkSize:      cfg.Library.ChunkSize,
		ChunkOverlap:   cfg.Library.ChunkOverlap,
	}, o.Logger)
	if err != nil {
		err = errors.Join(err, driver.Close())
		if ownsEmbedder {
			err = errors.Join(err, embedder.Close())
		}
		return nil, err
	}

	if ownsEmbedder {
		lib.embedder = embedder
	}

	o.Logger.Info("opened library",
		"collection", lib.retriever.Collection(),
		"vector_store", vectorutils.ResolveProvider(driverOpts),
		"embedding_model", cfg.Embedding.Model,
	)

	return lib, nil
}

// Store describes the vector store a configuration resolves to.
type Store struct {
	// Provider is the resolved vector store provider name.
	Provider string

	// Location is the sqlite database path or the remote target. It is
	// empty for the in-memory store.
	Location string
}

// ResolveStore reports the vector store Open would use for cfg without
// connecting to it.
func ResolveStore(cfg *config.Config, defaultPersistDirectory string) Store {
	opts := driverOptions(cfg, defaultPersistDirectory)
	store := Store{
		Provider: vectorutils.ResolveProvider(opts),
		Location: opts.TargetURL,
	}

	switch store.Provider {
	case vectorutils.ProviderMemory:
		store.Location = ""
	case vectorutils.ProviderSQLite:
		if store.Location == "" && opts.PersistDirectory != "" {
			store.Location = filepath.Join(opts.PersistDirectory, sqlitevec.DBFileName)
		}
	}

	return store
}

func driverOptions(cfg *config.Config, defaultPersistDirectory string) *vectorutils.NewVectorDriverOpts {
	opts := &vectorutils.NewVectorDriverOpts{
		ProviderType:     cfg.VectorStore.Provider,
		TargetURL:        cfg.VectorStore.Target,
		APIKey:           cfg.VectorStore.APIKey,
		PersistDirectory: cfg.VectorStore.PersistDirectory,
		Dimensions:       cfg.Embedding.Dimensions,
	}
	if vectorutils.ResolveProvider(opts) == vectorutils.ProviderSQLite &&
		opts.TargetURL == "" && opts.PersistDirectory == "" {
		opts.PersistDirectory = defaultPersistDirectory
	}
	return opts
}
