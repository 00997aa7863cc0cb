// Package embedding maps text segments to fixed-dimension vectors. The
// OpenAI embedder is the production path; the hash embedder is a
// deterministic local fallback used when no API key is configured and in
// tests.
package embedding

import "context"

// Embedder generates embeddings for a batch of texts, returning vectors
// in input order. A partial failure fails the whole batch so a document's
// embedding state stays consistent.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
