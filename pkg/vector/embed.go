package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/stacks/pkg/embeddings"
)

// EmbedTexts embeds texts with e for drivers that compute embeddings
// client-side. Failures always match ErrEmbedding.
func EmbedTexts(ctx context.Context, e embeddings.Embedder, texts []string) ([][]float32, error) {
	vectors, err := embeddings.EmbedAll(ctx, e, texts)
	if err != nil {
		if errors.Is(err, ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return vectors, nil
}
