package vecstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/domain"
)

func chunk(id, userID, docID string, position int, embedding []float32, createdAt time.Time) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		UserID:     userID,
		Position:   position,
		Text:       "text for " + id,
		Language:   "en",
		Embedding:  embedding,
		CreatedAt:  createdAt,
	}
}

func TestMemoryIndex_UserIsolation(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("a1", "user-a", "doc-a", 0, []float32{1, 0}, now),
		chunk("b1", "user-b", "doc-b", 0, []float32{1, 0}, now),
		chunk("b2", "user-b", "doc-b", 1, []float32{0.9, 0.1}, now),
	}))

	results, err := idx.Query(ctx, "user-a", []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, r := range results {
		require.Equal(t, "user-a", r.Chunk.UserID, "query must never cross user boundaries")
	}
}

func TestMemoryIndex_OrderedByScore(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("far", "u", "d", 0, []float32{0, 1}, now),
		chunk("near", "u", "d", 1, []float32{1, 0}, now),
		chunk("mid", "u", "d", 2, []float32{1, 1}, now),
	}))

	results, err := idx.Query(ctx, "u", []float32{1, 0}, 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "near", results[0].Chunk.ID)
	require.Equal(t, "mid", results[1].Chunk.ID)
	require.Equal(t, "far", results[2].Chunk.ID)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
	require.GreaterOrEqual(t, results[1].Score, results[2].Score)
}

func TestMemoryIndex_TiesBrokenByRecency(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("old", "u", "d", 0, []float32{1, 0}, older),
		chunk("new", "u", "d", 1, []float32{1, 0}, newer),
	}))

	results, err := idx.Query(ctx, "u", []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Equal(t, "new", results[0].Chunk.ID, "equal scores break toward the newer chunk")
	require.Equal(t, "old", results[1].Chunk.ID)
}

func TestMemoryIndex_KValidation(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, err := idx.Query(ctx, "u", []float32{1, 0}, 0, "")
	require.ErrorIs(t, err, ErrBadTopK)

	// Asking for more than exists returns all available, no error.
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("only", "u", "d", 0, []float32{1, 0}, time.Now()),
	}))
	results, err := idx.Query(ctx, "u", []float32{1, 0}, 50, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestMemoryIndex_UpsertIdempotentByID(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c", "u", "d", 0, []float32{1, 0}, now),
	}))
	// Re-upsert with the same id replaces the vector.
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("c", "u", "d", 0, []float32{0, 1}, now),
	}))

	results, err := idx.Query(ctx, "u", []float32{0, 1}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestMemoryIndex_DeleteDocument(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("d1c1", "u", "doc-1", 0, []float32{1, 0}, now),
		chunk("d1c2", "u", "doc-1", 1, []float32{1, 0}, now),
		chunk("d2c1", "u", "doc-2", 0, []float32{1, 0}, now),
	}))

	require.NoError(t, idx.DeleteDocument(ctx, "u", "doc-1"))

	results, err := idx.Query(ctx, "u", []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc-2", results[0].Chunk.DocumentID)
}

func TestMemoryIndex_LanguageFilter(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Now()

	en := chunk("en", "u", "d", 0, []float32{1, 0}, now)
	es := chunk("es", "u", "d", 1, []float32{1, 0}, now)
	es.Language = "es"
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{en, es}))

	results, err := idx.Query(ctx, "u", []float32{1, 0}, 10, "es")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "es", results[0].Chunk.Language)
}
