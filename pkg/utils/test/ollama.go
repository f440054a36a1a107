package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// NewOllamaServer starts an httptest server that answers Ollama's
// /api/embed endpoint with HashEmbedder vectors of the given size.
// The caller must Close the server.
func NewOllamaServer(dimensions int) *httptest.Server {
	embedder := NewHashEmbedder(dimensions)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Model string          `json:"model"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var inputs []string
		if err := json.Unmarshal(req.Input, &inputs); err != nil {
			var single string
			if err := json.Unmarshal(req.Input, &single); err != nil {
				http.Error(w, "input must be a string or a list of strings", http.StatusBadRequest)
				return
			}
			inputs = []string{single}
		}

		embeddings := make([][]float32, len(inputs))
		for i, text := range inputs {
			embeddings[i], _ = embedder.Embed(r.Context(), text)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      req.Model,
			"embeddings": embeddings,
		})
	}))
}
