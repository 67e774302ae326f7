package domain

import "context"

// EmbeddingResult is the outcome of a single embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into a fixed-dimension embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can probe provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
