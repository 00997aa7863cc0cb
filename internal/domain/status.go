package domain

import "fmt"

// SourceType is the closed set of supported document origins. Extraction
// strategy is selected by this tag at the ingestion boundary.
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"
	SourceWeb  SourceType = "web"
	SourceNote SourceType = "note"
)

// ParseSourceType validates a raw source type string.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourcePDF, SourceText, SourceWeb, SourceNote:
		return SourceType(s), nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// EmbeddingStatus is the lifecycle stage of a document's vectorization.
type EmbeddingStatus string

const (
	EmbeddingPending    EmbeddingStatus = "pending"
	EmbeddingProcessing EmbeddingStatus = "processing"
	EmbeddingCompleted  EmbeddingStatus = "completed"
	EmbeddingFailed     EmbeddingStatus = "failed"
)

// embeddingTransitions is the exhaustive transition table for document
// embedding status. completed -> processing covers forced re-ingestion,
// failed -> processing covers retry.
var embeddingTransitions = map[EmbeddingStatus][]EmbeddingStatus{
	EmbeddingPending:    {EmbeddingProcessing, EmbeddingFailed},
	EmbeddingProcessing: {EmbeddingCompleted, EmbeddingFailed},
	EmbeddingCompleted:  {EmbeddingProcessing},
	EmbeddingFailed:     {EmbeddingProcessing},
}

// Transition checks the embedding status transition table and returns the
// target status, or an error for any move the table does not list.
func (s EmbeddingStatus) Transition(to EmbeddingStatus) (EmbeddingStatus, error) {
	for _, allowed := range embeddingTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid embedding status transition %s -> %s", s, to)
}

// GoalStatus tracks a goal through its lifetime.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

// completed and cancelled are terminal.
var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalActive: {GoalCompleted, GoalPaused, GoalCancelled},
	GoalPaused: {GoalActive, GoalCancelled},
}

// Transition checks the goal status transition table.
func (s GoalStatus) Transition(to GoalStatus) (GoalStatus, error) {
	for _, allowed := range goalTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid goal status transition %s -> %s", s, to)
}

// TaskStatus tracks a daily task. completed is terminal; a skipped task may
// be rescheduled back to pending.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskCompleted, TaskSkipped},
	TaskInProgress: {TaskPending, TaskCompleted, TaskSkipped},
	TaskSkipped:    {TaskPending},
}

// Transition checks the task status transition table.
func (s TaskStatus) Transition(to TaskStatus) (TaskStatus, error) {
	for _, allowed := range taskTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid task status transition %s -> %s", s, to)
}
