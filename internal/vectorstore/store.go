package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"car-assist-rag/models"
)

// ErrInvalidTopK is returned for nearest-neighbor queries with k <= 0.
// It is a caller error and must not be retried.
var ErrInvalidTopK = errors.New("top-k must be positive")

// ErrDimensionMismatch is returned when a vector does not match the
// collection's dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// StoreError wraps a storage-level failure (connectivity, permissions).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("vector store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Store answers nearest-neighbor queries over named collections of
// embedded chunks. Collections are created on first upsert; querying an
// unknown collection returns an empty result, not an error. Vectors are
// compared by cosine similarity and assumed normalized. Implementations
// are not required to be safe under concurrent writers to the same
// collection; callers serialize inserts per collection.
type Store interface {
	Upsert(ctx context.Context, collection string, chunks []models.EmbeddedChunk) error
	Query(ctx context.Context, collection string, vector []float32, k int) ([]models.ScoredChunk, error)
	DeleteCollection(ctx context.Context, collection string) error
	Stats(ctx context.Context, collection string) (models.CollectionStats, error)
}

// Dot returns the dot product over the shared prefix of a and b. For
// L2-normalized vectors this equals the cosine similarity.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
