package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/planweave/planweave/internal/domain"
)

// CollectionName is the single Qdrant collection holding all user chunks.
// Per-user isolation is a mandatory payload filter, not separate
// collections.
const CollectionName = "user_chunks"

const upsertBatchSize = 100

// QdrantIndex is the durable vector index. In-memory caches elsewhere are
// an optimization only; this store survives process restarts.
type QdrantIndex struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantIndex connects to Qdrant, verifies health with retry, and
// ensures the chunk collection exists with the given vector dimension.
func NewQdrantIndex(ctx context.Context, host string, port int, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, dimension: dimension}

	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return idx, nil
}

func (s *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// ensureCollection creates the chunk collection and payload indexes if
// they don't exist. Idempotent.
func (s *QdrantIndex) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without payload indexes, user and document filtering is 10-100x
	// slower.
	for _, field := range []string{"user_id", "document_id", "language"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	return nil
}

// Upsert stores chunks in batches, retrying transient failures.
// Re-upserting a chunk id replaces its vector and payload.
func (s *QdrantIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"user_id":     chunk.UserID,
					"document_id": chunk.DocumentID,
					"position":    int64(chunk.Position),
					"text":        chunk.Text,
					"language":    chunk.Language,
					"created_at":  chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (s *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Query returns the top-k most similar chunks owned by userID, optionally
// restricted to one language. Requesting more results than exist returns
// all available.
func (s *QdrantIndex) Query(ctx context.Context, userID string, vector []float32, k int, languageFilter string) ([]domain.ScoredChunk, error) {
	if k < 1 {
		return nil, ErrBadTopK
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	// The user filter is the isolation boundary. It is always present.
	must := []*qdrant.Condition{
		qdrant.NewMatch("user_id", userID),
	}
	if languageFilter != "" {
		must = append(must, qdrant.NewMatch("language", languageFilter))
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	scored := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		createdAt, err := time.Parse(time.RFC3339Nano, payload["created_at"].GetStringValue())
		if err != nil {
			createdAt = time.Time{}
		}

		scored = append(scored, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:         result.Id.GetUuid(),
				DocumentID: payload["document_id"].GetStringValue(),
				UserID:     payload["user_id"].GetStringValue(),
				Position:   int(payload["position"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
				Language:   payload["language"].GetStringValue(),
				CreatedAt:  createdAt,
			},
			Score: result.Score,
		})
	}

	sortByScoreThenRecency(scored)
	return scored, nil
}

// DeleteDocument removes every chunk belonging to one document. Used on
// re-ingestion and document deletion.
func (s *QdrantIndex) DeleteDocument(ctx context.Context, userID, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", userID),
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// Close closes the underlying client connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
