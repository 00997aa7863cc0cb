// Package ingest turns uploaded documents into indexed, queryable
// chunks: extract -> chunk -> embed -> replace in the vector index. A
// document moves through pending -> processing -> completed/failed, and a
// failure never leaves partial chunks behind.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/planweave/planweave/internal/chunker"
	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/embedding"
	"github.com/planweave/planweave/internal/extract"
	"github.com/planweave/planweave/internal/langpipe"
	"github.com/planweave/planweave/internal/vecstore"
)

// DefaultConcurrency bounds parallel document ingestion per call.
const DefaultConcurrency = 4

// DocumentStore is the slice of the persistence gateway the pipeline
// writes through.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	UpdateEmbeddingStatus(ctx context.Context, documentID string, to domain.EmbeddingStatus) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
}

// Pipeline orchestrates document ingestion.
type Pipeline struct {
	store       DocumentStore
	index       vecstore.Index
	embedder    embedding.Embedder
	chunker     *chunker.Chunker
	languages   langpipe.Pipeline
	logger      *zap.Logger
	docLocks    *keyedMutex
	concurrency int
}

func NewPipeline(
	store DocumentStore,
	index vecstore.Index,
	embedder embedding.Embedder,
	ch *chunker.Chunker,
	languages langpipe.Pipeline,
	concurrency int,
	logger *zap.Logger,
) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:       store,
		index:       index,
		embedder:    embedder,
		chunker:     ch,
		languages:   languages,
		logger:      logger.With(zap.String("component", "ingest")),
		docLocks:    newKeyedMutex(),
		concurrency: concurrency,
	}
}

// IngestDocument runs the full pipeline for one document and returns the
// number of chunks indexed. Re-ingesting a document replaces its prior
// chunks wholesale.
func (p *Pipeline) IngestDocument(ctx context.Context, doc domain.Document) (int, error) {
	if doc.Language == "" {
		lang, err := p.languages.Detect(ctx, doc.Content)
		if err != nil {
			lang = langpipe.DefaultLanguage
		}
		doc.Language = lang
	}

	if err := p.store.UpdateEmbeddingStatus(ctx, doc.ID, domain.EmbeddingProcessing); err != nil {
		return 0, err
	}

	count, err := p.process(ctx, doc)
	if err != nil {
		if statusErr := p.store.UpdateEmbeddingStatus(ctx, doc.ID, domain.EmbeddingFailed); statusErr != nil {
			p.logger.Error("failed to mark document failed",
				zap.String("document_id", doc.ID), zap.Error(statusErr))
		}
		return 0, err
	}

	if err := p.store.UpdateEmbeddingStatus(ctx, doc.ID, domain.EmbeddingCompleted); err != nil {
		return 0, err
	}

	p.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.String("user_id", doc.UserID),
		zap.String("language", doc.Language),
		zap.Int("chunks", count))
	return count, nil
}

func (p *Pipeline) process(ctx context.Context, doc domain.Document) (int, error) {
	extractor, err := extract.ForType(doc.SourceType)
	if err != nil {
		return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "dispatch", Err: err}
	}

	text, err := extractor.Extract([]byte(doc.Content))
	if err != nil {
		return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "extract", Err: err}
	}

	segments := p.chunker.Split(text)

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	var vectors [][]float32
	if len(texts) > 0 {
		// All-or-nothing: a partial embedding failure fails the document.
		vectors, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "embed", Err: err}
		}
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Position:   seg.Position,
			Text:       seg.Text,
			Language:   doc.Language,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	// Index mutations for one document are serialized so concurrent
	// re-ingestion cannot interleave partial chunk sets.
	unlock := p.docLocks.lock(doc.ID)
	defer unlock()

	if err := p.index.DeleteDocument(ctx, doc.UserID, doc.ID); err != nil {
		return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "index delete", Err: err}
	}
	if err := p.index.Upsert(ctx, chunks); err != nil {
		return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "index upsert", Err: err}
	}
	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		// Roll the index back so a failed document has no queryable chunks.
		if delErr := p.index.DeleteDocument(ctx, doc.UserID, doc.ID); delErr != nil {
			p.logger.Error("failed to roll back index after persist failure",
				zap.String("document_id", doc.ID), zap.Error(delErr))
		}
		return 0, &domain.IngestionError{DocumentID: doc.ID, Stage: "persist chunks", Err: err}
	}

	return len(chunks), nil
}

// Result summarizes a multi-document ingestion run.
type Result struct {
	Succeeded   int
	TotalChunks int
	Failed      []FailedDocument
}

// FailedDocument names one document that could not be ingested.
type FailedDocument struct {
	DocumentID string
	Reason     string
}

// IngestAll processes documents with bounded parallelism. One document's
// failure never aborts the others.
func (p *Pipeline) IngestAll(ctx context.Context, docs []domain.Document) (*Result, error) {
	result := &Result{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, doc := range docs {
		g.Go(func() error {
			count, err := p.IngestDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("document ingestion failed",
					zap.String("document_id", doc.ID), zap.Error(err))
				result.Failed = append(result.Failed, FailedDocument{
					DocumentID: doc.ID,
					Reason:     err.Error(),
				})
				return nil
			}
			result.Succeeded++
			result.TotalChunks += count
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
