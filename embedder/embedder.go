// Package embedder defines the text-to-vector capability consumed by the
// workspace matcher and the catalog search indexes.
//
// Implementations:
//   - mock: deterministic hash-based vectors for tests and local runs
//   - cache: ristretto-backed caching decorator around any Embedder
//   - onnx: local all-MiniLM model via ONNX Runtime (build tag "onnx")
//
// Production deployments typically swap in an API-based embedder behind
// the same interface.
package embedder

import "context"

// Embedder converts text to a vector embedding.
type Embedder interface {
	// Embed converts a single text to its embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
