// Package domain defines the entities shared by the planning engine:
// documents and their chunks on the retrieval side, goals and daily tasks
// on the planning side, plus the status enumerations and error taxonomy
// that tie the two together.
package domain

import "time"

// Document is an uploaded piece of user knowledge. Content is immutable
// once EmbeddingStatus reaches completed; re-ingestion replaces the
// document's chunks wholesale.
type Document struct {
	ID              string
	UserID          string
	Title           string
	Content         string
	SourceType      SourceType
	Language        string
	Tags            []string
	EmbeddingStatus EmbeddingStatus
	CreatedAt       time.Time
}

// Chunk is a retrieval-sized segment of a document, embedded independently.
// A chunk's language always matches its document's source language.
type Chunk struct {
	ID         string
	DocumentID string
	UserID     string
	Position   int
	Text       string
	Language   string
	Embedding  []float32
	CreatedAt  time.Time
}

// Goal is a long-term objective the engine plans daily tasks for.
type Goal struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    string
	// Priority ranges 1 (lowest) to 5 (highest).
	Priority int
	Status   GoalStatus
	// TargetDate caps the planning horizon when set.
	TargetDate *time.Time
	// Language is the goal's working language; OriginalLanguage preserves
	// the language the user authored it in before any translation.
	Language         string
	OriginalLanguage string
	// ProgressPercentage is a derived cache, recomputable from task counts
	// at any time. See ProgressPercentage.
	ProgressPercentage int
	CreatedAt          time.Time
}

// DailyTask is a single dated unit of work belonging to a goal. Tasks for
// one goal are unique by (scheduled date, normalized title).
type DailyTask struct {
	ID               string
	GoalID           string
	UserID           string
	ScheduledDate    time.Time
	Title            string
	Description      string
	EstimatedMinutes int
	Status           TaskStatus
	Priority         int
	Language         string
	AIGenerated      bool
	CompletionNotes  string
	CompletedAt      *time.Time
	CreatedAt        time.Time
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Analysis is the structured result of analyzing a goal against retrieved
// context.
type Analysis struct {
	ComplexityScore     float64  `json:"complexity_score"`
	RequiredSkills      []string `json:"required_skills"`
	Obstacles           []string `json:"potential_obstacles"`
	Category            string   `json:"category"`
	EstimatedWeeks      int      `json:"estimated_duration_weeks"`
	SuccessMetrics      []string `json:"success_metrics"`
	RecommendedApproach string   `json:"recommended_approach"`
}

// Milestone is one high-level checkpoint in a goal's roadmap, anchored
// to a week within the planning timeframe.
type Milestone struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	TargetWeek      int      `json:"target_week"`
	SuccessCriteria []string `json:"success_criteria"`
	EstimatedHours  int      `json:"estimated_hours"`
}

// Insight summarizes a goal's completion history into recommendations.
type Insight struct {
	Summary         string
	Recommendations []string
	CompletionRate  float64
	AvgDaysLate     float64
	CurrentStreak   int
	BestStreak      int
	Sufficient      bool
}
