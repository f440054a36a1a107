// Package embeddingutils builds the configured embeddings.Embedder.
package embeddingutils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/embeddings/ollama"
)

// ProviderOllama is the only bundled embedding provider.
const ProviderOllama = "ollama"

type NewEmbedderOpts struct {
	// ProviderType names the provider. Empty selects ProviderOllama.
	ProviderType string

	// TargetURL is the provider endpoint. Empty uses the provider default.
	TargetURL string

	// Model is the embedding model. Empty uses the provider default.
	Model string
}

// SupportedProviders lists the accepted embedding.provider values.
func SupportedProviders() []string {
	return []string{ProviderOllama}
}

// NewEmbedder returns the embedder for o. Provider names are matched case
// insensitively.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(o.ProviderType))
	if provider == "" {
		provider = ProviderOllama
	}

	switch provider {
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: strings.TrimRight(o.TargetURL, "/"),
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q (supported: %s)",
			o.ProviderType, strings.Join(SupportedProviders(), ", "))
	}
}
