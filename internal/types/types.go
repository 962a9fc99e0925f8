package types

import (
	"context"

	"github.com/examforge/examforge/internal/models"
)

// Embedder computes fixed-dimension vectors for question documents. The
// model version tags every record written to the index; collections built
// with a different version are never queried.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
}

// Generator is the generative backend. It is assumed non-deterministic,
// rate-limited and occasionally malformed or unavailable.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Index is the read side of the retrieval index used at request time.
type Index interface {
	// Query returns up to topK questions from the given collection,
	// most-similar first. Fewer members than topK is not an error; an
	// unknown collection is.
	Query(ctx context.Context, key models.CollectionKey, vector []float32, topK int) ([]models.StructuredQuestion, error)
	// Seeds returns every member of a collection in stable ID order.
	Seeds(ctx context.Context, key models.CollectionKey) ([]models.StructuredQuestion, error)
	Count(ctx context.Context, key models.CollectionKey) (int, error)
}

// IndexWriter is the write side, used only by the offline knowledge base
// build. A collection under construction is not visible to Query until
// Publish commits it.
type IndexWriter interface {
	EnsureCollection(ctx context.Context, key models.CollectionKey) error
	Upsert(ctx context.Context, key models.CollectionKey, records []models.EmbeddingRecord) error
	Publish(ctx context.Context, key models.CollectionKey) error
	Count(ctx context.Context, key models.CollectionKey) (int, error)
}
