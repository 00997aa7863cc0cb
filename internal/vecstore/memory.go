package vecstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/planweave/planweave/internal/domain"
)

// MemoryIndex is an in-memory Index used in tests and for local runs
// without a Qdrant instance. It honors the same contract as QdrantIndex:
// per-user isolation, idempotent upsert by chunk id, score-descending
// order with recency tiebreak. It is safe for concurrent use but is not
// durable; the Qdrant index remains the source of truth in deployment.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]domain.Chunk)}
}

func (m *MemoryIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, userID string, vector []float32, k int, languageFilter string) ([]domain.ScoredChunk, error) {
	if k < 1 {
		return nil, ErrBadTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var scored []domain.ScoredChunk
	for _, chunk := range m.chunks {
		if chunk.UserID != userID {
			continue
		}
		if languageFilter != "" && chunk.Language != languageFilter {
			continue
		}
		if len(chunk.Embedding) != len(vector) {
			return nil, ErrDimensionMismatch
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(vector, chunk.Embedding),
		})
	}

	sortByScoreThenRecency(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryIndex) DeleteDocument(_ context.Context, userID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, chunk := range m.chunks {
		if chunk.UserID == userID && chunk.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

// sortByScoreThenRecency orders by descending similarity, breaking ties
// by most-recent chunk first, then by position for full determinism.
func sortByScoreThenRecency(scored []domain.ScoredChunk) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Chunk.CreatedAt.Equal(scored[j].Chunk.CreatedAt) {
			return scored[i].Chunk.CreatedAt.After(scored[j].Chunk.CreatedAt)
		}
		return scored[i].Chunk.Position < scored[j].Chunk.Position
	})
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
