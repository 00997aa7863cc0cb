// Package store is the persistence gateway for documents, chunks, goals,
// and daily tasks. Writes are durable once a call returns; batch writes
// are transactional, so a partial failure never leaves a half-populated
// planning window.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/planweave/planweave/internal/domain"
)

// Store is the gorm-backed persistence gateway.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the database named by driver ("sqlite" or "postgres")
// and migrates the schema.
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if err := db.AutoMigrate(&documentRecord{}, &chunkRecord{}, &goalRecord{}, &taskRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}, nil
}

// SaveDocument inserts or updates a document.
func (s *Store) SaveDocument(ctx context.Context, doc domain.Document) error {
	record := toDocumentRecord(doc)
	return s.db.WithContext(ctx).Save(&record).Error
}

// GetDocument loads one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var record documentRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	return record.toDomain(), nil
}

// ListDocuments returns a user's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	var records []documentRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(records))
	for i, r := range records {
		docs[i] = r.toDomain()
	}
	return docs, nil
}

// UpdateEmbeddingStatus moves a document through its embedding lifecycle,
// rejecting transitions the domain table does not allow.
func (s *Store) UpdateEmbeddingStatus(ctx context.Context, documentID string, to domain.EmbeddingStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record documentRecord
		if err := tx.First(&record, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrDocumentNotFound
			}
			return err
		}

		next, err := domain.EmbeddingStatus(record.EmbeddingStatus).Transition(to)
		if err != nil {
			return err
		}

		return tx.Model(&documentRecord{}).
			Where("id = ?", documentID).
			Update("embedding_status", string(next)).Error
	})
}

// ReplaceChunks atomically swaps a document's chunk set: prior chunks are
// deleted and the new set inserted in one transaction, so no partial
// chunk set is ever visible.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&chunkRecord{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		records := make([]chunkRecord, len(chunks))
		for i, c := range chunks {
			records[i] = toChunkRecord(c)
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, userID, documentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&chunkRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", documentID, userID).Delete(&documentRecord{}).Error
	})
}

// SaveGoal inserts or updates a goal.
func (s *Store) SaveGoal(ctx context.Context, goal domain.Goal) error {
	record := toGoalRecord(goal)
	return s.db.WithContext(ctx).Save(&record).Error
}

// GetGoal loads one goal by id.
func (s *Store) GetGoal(ctx context.Context, id string) (domain.Goal, error) {
	var record goalRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Goal{}, domain.ErrGoalNotFound
	}
	if err != nil {
		return domain.Goal{}, err
	}
	return record.toDomain(), nil
}

// UpdateGoalStatus moves a goal through its lifecycle, rejecting
// transitions the domain table does not allow.
func (s *Store) UpdateGoalStatus(ctx context.Context, goalID string, to domain.GoalStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record goalRecord
		if err := tx.First(&record, "id = ?", goalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrGoalNotFound
			}
			return err
		}
		next, err := domain.GoalStatus(record.Status).Transition(to)
		if err != nil {
			return err
		}
		return tx.Model(&goalRecord{}).
			Where("id = ?", goalID).
			Update("status", string(next)).Error
	})
}

// DeleteGoal removes a goal and cascades to its tasks.
func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", goalID).Delete(&taskRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", goalID, userID).Delete(&goalRecord{}).Error
	})
}

// SaveTasks persists a generated batch atomically: either every task in
// the window is recorded or none are.
func (s *Store) SaveTasks(ctx context.Context, tasks []domain.DailyTask) error {
	if len(tasks) == 0 {
		return nil
	}
	records := make([]taskRecord, len(tasks))
	for i, t := range tasks {
		records[i] = toTaskRecord(t)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, 100).Error
	})
}

// TasksForGoalWindow returns a goal's tasks scheduled in [from, to],
// ordered by date. The task generator uses this as its de-duplication
// source.
func (s *Store) TasksForGoalWindow(ctx context.Context, goalID string, from, to time.Time) ([]domain.DailyTask, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Where("goal_id = ? AND scheduled_date >= ? AND scheduled_date <= ?", goalID, from, to).
		Order("scheduled_date ASC, priority DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.DailyTask, len(records))
	for i, r := range records {
		tasks[i] = r.toDomain()
	}
	return tasks, nil
}

// TasksForDay returns a user's tasks scheduled on one calendar day,
// across all goals, priority first. The schedule optimizer works from
// this view.
func (s *Store) TasksForDay(ctx context.Context, userID string, day time.Time) ([]domain.DailyTask, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scheduled_date >= ? AND scheduled_date < ?", userID, from, to).
		Order("priority DESC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.DailyTask, len(records))
	for i, r := range records {
		tasks[i] = r.toDomain()
	}
	return tasks, nil
}

// LoadTaskHistory returns all tasks for a goal ordered by scheduled
// date, oldest first.
func (s *Store) LoadTaskHistory(ctx context.Context, goalID string) ([]domain.DailyTask, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("scheduled_date ASC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.DailyTask, len(records))
	for i, r := range records {
		tasks[i] = r.toDomain()
	}
	return tasks, nil
}

// UpdateTaskStatus moves a task through its lifecycle, enforcing the
// domain transition table.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, to domain.TaskStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record taskRecord
		if err := tx.First(&record, "id = ?", taskID).Error; err != nil {
			return err
		}
		next, err := domain.TaskStatus(record.Status).Transition(to)
		if err != nil {
			return err
		}
		return tx.Model(&taskRecord{}).
			Where("id = ?", taskID).
			Update("status", string(next)).Error
	})
}

// CompleteTask marks a task completed with optional notes, stamps the
// completion time, and refreshes the owning goal's progress cache.
func (s *Store) CompleteTask(ctx context.Context, taskID, notes string, completedAt time.Time) error {
	var goalID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record taskRecord
		if err := tx.First(&record, "id = ?", taskID).Error; err != nil {
			return err
		}
		next, err := domain.TaskStatus(record.Status).Transition(domain.TaskCompleted)
		if err != nil {
			return err
		}
		goalID = record.GoalID
		return tx.Model(&taskRecord{}).Where("id = ?", taskID).Updates(map[string]any{
			"status":           string(next),
			"completion_notes": notes,
			"completed_at":     completedAt,
		}).Error
	})
	if err != nil {
		return err
	}
	return s.RecomputeProgress(ctx, goalID)
}

// RecomputeProgress refreshes a goal's cached progress percentage from
// its task status counts.
func (s *Store) RecomputeProgress(ctx context.Context, goalID string) error {
	var total, completed int64
	if err := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("goal_id = ?", goalID).Count(&total).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("goal_id = ? AND status = ?", goalID, string(domain.TaskCompleted)).
		Count(&completed).Error; err != nil {
		return err
	}

	progress := domain.ProgressPercentage(int(completed), int(total))
	return s.db.WithContext(ctx).Model(&goalRecord{}).
		Where("id = ?", goalID).
		Update("progress_percentage", progress).Error
}

// OverdueTasks returns a user's unfinished tasks scheduled before the
// given day.
func (s *Store) OverdueTasks(ctx context.Context, userID string, before time.Time) ([]domain.DailyTask, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scheduled_date < ? AND status IN ?",
			userID, before, []string{string(domain.TaskPending), string(domain.TaskInProgress)}).
		Order("scheduled_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.DailyTask, len(records))
	for i, r := range records {
		tasks[i] = r.toDomain()
	}
	return tasks, nil
}
