package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent stacks configuration stored as config.toml
// in the .stacks/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Library     LibraryConfig     `toml:"library"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
}

// LibraryConfig holds the document library settings.
type LibraryConfig struct {
	CollectionName string `toml:"collection_name,omitempty"`
	ChunkSize      int    `toml:"chunk_size,omitempty"`

	// ChunkOverlap has no omitempty: zero is a meaningful value.
	ChunkOverlap int `toml:"chunk_overlap"`
}

// VectorStoreConfig holds vector store settings. An empty Provider selects
// the sqlite store when PersistDirectory is set and the in-memory store
// otherwise.
type VectorStoreConfig struct {
	Provider         string `toml:"provider,omitempty"`
	Target           string `toml:"target,omitempty"`
	APIKey           string `toml:"api_key,omitempty"`
	PersistDirectory string `toml:"persist_directory,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"library.collection_name": {
		get: func(c *Config) string { return c.Library.CollectionName },
		set: func(c *Config, v string) error { c.Library.CollectionName = v; return nil },
	},
	"library.chunk_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Library.ChunkSize) },
		set: func(c *Config, v string) error {
			n, err := parseInt("library.chunk_size", v)
			if err != nil {
				return err
			}
			c.Library.ChunkSize = n
			return nil
		},
	},
	"library.chunk_overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Library.ChunkOverlap) },
		set: func(c *Config, v string) error {
			n, err := parseInt("library.chunk_overlap", v)
			if err != nil {
				return err
			}
			c.Library.ChunkOverlap = n
			return nil
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.api_key": {
		get: func(c *Config) string { return c.VectorStore.APIKey },
		set: func(c *Config, v string) error { c.VectorStore.APIKey = v; return nil },
	},
	"vector_store.persist_directory": {
		get: func(c *Config) string { return c.VectorStore.PersistDirectory },
		set: func(c *Config, v string) error { c.VectorStore.PersistDirectory = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return n, nil
}
