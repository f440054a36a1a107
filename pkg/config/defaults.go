package config

import (
	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/embeddings/ollama"
	"github.com/papercomputeco/stacks/pkg/retriever"
)

const (
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingDimensions = 384
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Library: LibraryConfig{
			CollectionName: retriever.DefaultCollectionName,
			ChunkSize:      chunker.DefaultChunkSize,
			ChunkOverlap:   chunker.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     ollama.DefaultBaseURL,
			Model:      ollama.DefaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
	}
}
