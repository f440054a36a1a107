package document

import (
	"github.com/mitchellh/copystructure"
)

// CloneMetadata returns a deep copy of metadata. Maps, slices, arrays and
// pointers at any depth are copied so the clone shares no mutable state with
// the source. A nil input yields an empty, non-nil map.
func CloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if v == nil {
		return nil
	}

	// Copy only fails for values registered with a custom copier that errors;
	// none are registered here.
	c, err := copystructure.Copy(v)
	if err != nil {
		return v
	}
	return c
}
