package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrievalUnavailable signals the vector index could not be
	// reached. Callers degrade to empty context instead of aborting.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrConcurrentGeneration signals another task generation run is in
	// flight for the same goal. The caller must retry later.
	ErrConcurrentGeneration = errors.New("concurrent generation for goal")

	// ErrTranslationUnavailable is non-fatal: callers fall back to
	// source-language passthrough.
	ErrTranslationUnavailable = errors.New("translation unavailable")

	// ErrDocumentNotFound is returned by stores for unknown document ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrGoalNotFound is returned by stores for unknown goal ids.
	ErrGoalNotFound = errors.New("goal not found")
)

// IngestionError wraps a chunking or embedding failure for one document.
// The document is marked failed and no partial chunks are retained.
type IngestionError struct {
	DocumentID string
	Stage      string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of document %s failed at %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// PlanningError wraps a task generation failure after retries were
// exhausted. No partial task batch is persisted.
type PlanningError struct {
	GoalID   string
	Attempts int
	Err      error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning for goal %s failed after %d attempts: %v", e.GoalID, e.Attempts, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }
