// Package vecstore is the per-user nearest-neighbor store over embedded
// chunks. Every query is scoped to a single user: a query issued for user
// A can never return chunks owned by user B. That isolation is enforced
// inside the store, not left to callers.
package vecstore

import (
	"context"
	"errors"

	"github.com/planweave/planweave/internal/domain"
)

var (
	ErrUnreachable       = errors.New("vector index unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrBadTopK           = errors.New("k must be >= 1")
)

// Index is the vector index contract. Upsert is idempotent by chunk id;
// Query returns results ordered by descending similarity with ties broken
// by most-recent chunk first; DeleteDocument removes all chunks for one
// document.
type Index interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Query(ctx context.Context, userID string, vector []float32, k int, languageFilter string) ([]domain.ScoredChunk, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}
