package store

import (
	"strings"
	"time"

	"github.com/planweave/planweave/internal/domain"
)

// Records mirror the domain entities one to one. Status fields persist as
// the literal enum strings and round-trip unchanged.

type documentRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	UserID          string `gorm:"index;size:36;not null"`
	Title           string
	Content         string `gorm:"type:text"`
	SourceType      string `gorm:"size:16"`
	Language        string `gorm:"size:8"`
	Tags            string // comma-joined
	EmbeddingStatus string `gorm:"size:16;index"`
	CreatedAt       time.Time
}

func (documentRecord) TableName() string { return "knowledge_documents" }

type chunkRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	DocumentID string `gorm:"index;size:36;not null"`
	UserID     string `gorm:"index;size:36;not null"`
	Position   int
	Text       string `gorm:"type:text"`
	Language   string `gorm:"size:8"`
	CreatedAt  time.Time
}

func (chunkRecord) TableName() string { return "document_chunks" }

type goalRecord struct {
	ID                 string `gorm:"primaryKey;size:36"`
	UserID             string `gorm:"index;size:36;not null"`
	Title              string
	Description        string `gorm:"type:text"`
	Category           string `gorm:"size:32"`
	Priority           int
	Status             string `gorm:"size:16;index"`
	TargetDate         *time.Time
	Language           string `gorm:"size:8"`
	OriginalLanguage   string `gorm:"size:8"`
	ProgressPercentage int
	CreatedAt          time.Time
}

func (goalRecord) TableName() string { return "goals" }

type taskRecord struct {
	ID               string    `gorm:"primaryKey;size:36"`
	GoalID           string    `gorm:"index:idx_goal_date;size:36;not null"`
	UserID           string    `gorm:"index;size:36;not null"`
	ScheduledDate    time.Time `gorm:"index:idx_goal_date"`
	Title            string
	Description      string `gorm:"type:text"`
	EstimatedMinutes int
	Status           string `gorm:"size:16;index"`
	Priority         int
	Language         string `gorm:"size:8"`
	AIGenerated      bool
	CompletionNotes  string
	CompletedAt      *time.Time
	CreatedAt        time.Time
}

func (taskRecord) TableName() string { return "daily_tasks" }

func toDocumentRecord(d domain.Document) documentRecord {
	return documentRecord{
		ID:              d.ID,
		UserID:          d.UserID,
		Title:           d.Title,
		Content:         d.Content,
		SourceType:      string(d.SourceType),
		Language:        d.Language,
		Tags:            strings.Join(d.Tags, ","),
		EmbeddingStatus: string(d.EmbeddingStatus),
		CreatedAt:       d.CreatedAt,
	}
}

func (r documentRecord) toDomain() domain.Document {
	var tags []string
	if r.Tags != "" {
		tags = strings.Split(r.Tags, ",")
	}
	return domain.Document{
		ID:              r.ID,
		UserID:          r.UserID,
		Title:           r.Title,
		Content:         r.Content,
		SourceType:      domain.SourceType(r.SourceType),
		Language:        r.Language,
		Tags:            tags,
		EmbeddingStatus: domain.EmbeddingStatus(r.EmbeddingStatus),
		CreatedAt:       r.CreatedAt,
	}
}

func toChunkRecord(c domain.Chunk) chunkRecord {
	return chunkRecord{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		UserID:     c.UserID,
		Position:   c.Position,
		Text:       c.Text,
		Language:   c.Language,
		CreatedAt:  c.CreatedAt,
	}
}

func toGoalRecord(g domain.Goal) goalRecord {
	return goalRecord{
		ID:                 g.ID,
		UserID:             g.UserID,
		Title:              g.Title,
		Description:        g.Description,
		Category:           g.Category,
		Priority:           g.Priority,
		Status:             string(g.Status),
		TargetDate:         g.TargetDate,
		Language:           g.Language,
		OriginalLanguage:   g.OriginalLanguage,
		ProgressPercentage: g.ProgressPercentage,
		CreatedAt:          g.CreatedAt,
	}
}

func (r goalRecord) toDomain() domain.Goal {
	return domain.Goal{
		ID:                 r.ID,
		UserID:             r.UserID,
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category,
		Priority:           r.Priority,
		Status:             domain.GoalStatus(r.Status),
		TargetDate:         r.TargetDate,
		Language:           r.Language,
		OriginalLanguage:   r.OriginalLanguage,
		ProgressPercentage: r.ProgressPercentage,
		CreatedAt:          r.CreatedAt,
	}
}

func toTaskRecord(t domain.DailyTask) taskRecord {
	return taskRecord{
		ID:               t.ID,
		GoalID:           t.GoalID,
		UserID:           t.UserID,
		ScheduledDate:    t.ScheduledDate,
		Title:            t.Title,
		Description:      t.Description,
		EstimatedMinutes: t.EstimatedMinutes,
		Status:           string(t.Status),
		Priority:         t.Priority,
		Language:         t.Language,
		AIGenerated:      t.AIGenerated,
		CompletionNotes:  t.CompletionNotes,
		CompletedAt:      t.CompletedAt,
		CreatedAt:        t.CreatedAt,
	}
}

func (r taskRecord) toDomain() domain.DailyTask {
	return domain.DailyTask{
		ID:               r.ID,
		GoalID:           r.GoalID,
		UserID:           r.UserID,
		ScheduledDate:    r.ScheduledDate,
		Title:            r.Title,
		Description:      r.Description,
		EstimatedMinutes: r.EstimatedMinutes,
		Status:           domain.TaskStatus(r.Status),
		Priority:         r.Priority,
		Language:         r.Language,
		AIGenerated:      r.AIGenerated,
		CompletionNotes:  r.CompletionNotes,
		CompletedAt:      r.CompletedAt,
		CreatedAt:        r.CreatedAt,
	}
}
