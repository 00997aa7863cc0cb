// Package planner turns an analyzed goal plus retrieved context into a
// multi-day batch of daily tasks. Generation for one goal is exclusive,
// retried with backoff, de-duplicated against already persisted tasks,
// and persisted as a single atomic batch.
package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/langpipe"
	"github.com/planweave/planweave/internal/llm"
)

const (
	// DefaultDailyCap bounds tasks per scheduled day.
	DefaultDailyCap = 3

	// DefaultMaxRetries bounds LLM attempts per Generate call.
	DefaultMaxRetries = 3

	defaultInitialBackoff = 500 * time.Millisecond
)

// TaskStore is the slice of the persistence gateway the generator needs:
// the existing tasks in the planning window, and one atomic batch write.
type TaskStore interface {
	TasksForGoalWindow(ctx context.Context, goalID string, from, to time.Time) ([]domain.DailyTask, error)
	SaveTasks(ctx context.Context, tasks []domain.DailyTask) error
}

// Request describes one generation run.
type Request struct {
	Goal      domain.Goal
	UserID    string
	StartDate time.Time
	// NumDays is the requested horizon; the effective window is clamped
	// to the goal's target date.
	NumDays  int
	DailyCap int
	// Context carries retrieved chunks grounding the plan. Empty context
	// degrades quality, never the call.
	Context []domain.Chunk
}

// Generator produces daily task batches.
type Generator struct {
	store      TaskStore
	completer  llm.Completer
	logger     *zap.Logger
	maxRetries uint64
	// initialBackoff is shortened by tests exercising the retry path.
	initialBackoff time.Duration
	// now is replaced in tests for deterministic windows.
	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGenerator(store TaskStore, completer llm.Completer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		store:          store,
		completer:      completer,
		logger:         logger.With(zap.String("component", "planner")),
		maxRetries:     DefaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		now:            time.Now,
		inFlight:       make(map[string]struct{}),
	}
}

// SetMaxRetries overrides the per-call LLM retry budget.
func (g *Generator) SetMaxRetries(n int) {
	if n >= 0 {
		g.maxRetries = uint64(n)
	}
}

// Generate plans tasks over [StartDate, StartDate+NumDays), clamped to
// the goal's target date, and persists the surviving batch atomically.
// It returns only the tasks created by this call: re-generating an
// unchanged window yields an empty batch.
func (g *Generator) Generate(ctx context.Context, req Request) ([]domain.DailyTask, error) {
	if req.NumDays < 1 {
		return nil, fmt.Errorf("num days must be >= 1, got %d", req.NumDays)
	}
	if req.DailyCap < 1 {
		req.DailyCap = DefaultDailyCap
	}
	if req.UserID == "" {
		req.UserID = req.Goal.UserID
	}

	if err := g.acquire(req.Goal.ID); err != nil {
		return nil, err
	}
	defer g.release(req.Goal.ID)

	start := truncateDay(req.StartDate)
	// Tasks are never scheduled in the past relative to generation time.
	if today := truncateDay(g.now()); start.Before(today) {
		start = today
	}
	end := start.AddDate(0, 0, req.NumDays-1)
	if req.Goal.TargetDate != nil {
		if target := truncateDay(*req.Goal.TargetDate); target.Before(end) {
			end = target
		}
	}
	if end.Before(start) {
		g.logger.Info("planning window empty, target date behind start",
			zap.String("goal_id", req.Goal.ID))
		return nil, nil
	}

	existing, err := g.store.TasksForGoalWindow(ctx, req.Goal.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load existing tasks for goal %s: %w", req.Goal.ID, err)
	}

	proposals, attempts, err := g.propose(ctx, req, start, end, existing)
	if err != nil {
		return nil, &domain.PlanningError{GoalID: req.Goal.ID, Attempts: attempts, Err: err}
	}

	batch := g.assemble(req, start, end, existing, proposals)
	if len(batch) == 0 {
		return nil, nil
	}

	if err := g.store.SaveTasks(ctx, batch); err != nil {
		return nil, &domain.PlanningError{GoalID: req.Goal.ID, Attempts: attempts, Err: err}
	}

	g.logger.Info("task batch generated",
		zap.String("goal_id", req.Goal.ID),
		zap.String("user_id", req.UserID),
		zap.Time("window_start", start),
		zap.Time("window_end", end),
		zap.Int("tasks", len(batch)))
	return batch, nil
}

// propose calls the model with bounded retries. It returns the parsed
// proposals, the number of attempts made, and the terminal error when
// retries are exhausted.
func (g *Generator) propose(ctx context.Context, req Request, start, end time.Time, existing []domain.DailyTask) ([]taskProposal, int, error) {
	prompt := buildPlanPrompt(req, start, end, existing)

	attempts := 0
	var raw string
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponential(g.initialBackoff), g.maxRetries), ctx)

	err := backoff.Retry(func() error {
		attempts++
		reply, err := g.completer.Complete(ctx, prompt)
		if err != nil {
			g.logger.Warn("plan generation attempt failed",
				zap.String("goal_id", req.Goal.ID),
				zap.Int("attempt", attempts),
				zap.Error(err))
			return err
		}
		raw = reply
		return nil
	}, policy)
	if err != nil {
		return nil, attempts, err
	}

	proposals, err := parsePlanReply(raw)
	if err != nil {
		// Unusable reply degrades to a generic plan rather than failing
		// the run.
		g.logger.Warn("plan reply unusable, using generic plan",
			zap.String("goal_id", req.Goal.ID), zap.Error(err))
		return genericPlan(req.Goal, start, end), attempts, nil
	}
	return proposals, attempts, nil
}

// assemble filters proposals into the final batch: window bounds, per-day
// cap, and de-duplication against persisted tasks and within the batch
// itself. Dropped duplicates do not consume cap slots.
func (g *Generator) assemble(req Request, start, end time.Time, existing []domain.DailyTask, proposals []taskProposal) []domain.DailyTask {
	seen := make(map[string]struct{}, len(existing))
	for _, task := range existing {
		seen[dedupKey(task.Title, task.ScheduledDate)] = struct{}{}
	}

	perDay := make(map[time.Time]int)
	now := g.now().UTC()

	var batch []domain.DailyTask
	for _, p := range proposals {
		if p.Title == "" {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, p.Date, time.UTC)
		if err != nil || day.Before(start) || day.After(end) {
			continue
		}

		key := dedupKey(p.Title, day)
		if _, dup := seen[key]; dup {
			continue
		}
		if perDay[day] >= req.DailyCap {
			continue
		}
		seen[key] = struct{}{}
		perDay[day]++

		batch = append(batch, domain.DailyTask{
			ID:               uuid.New().String(),
			GoalID:           req.Goal.ID,
			UserID:           req.UserID,
			ScheduledDate:    day,
			Title:            p.Title,
			Description:      p.Description,
			EstimatedMinutes: clampMinutes(p.EstimatedMinutes),
			Status:           domain.TaskPending,
			Priority:         clampPriority(p.Priority),
			Language:         taskLanguage(req, p),
			AIGenerated:      true,
			CreatedAt:        now,
		})
	}

	sortBatch(batch)
	return batch
}

func (g *Generator) acquire(goalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[goalID]; busy {
		return fmt.Errorf("goal %s: %w", goalID, domain.ErrConcurrentGeneration)
	}
	g.inFlight[goalID] = struct{}{}
	return nil
}

func (g *Generator) release(goalID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, goalID)
}

// taskLanguage stamps the task with the source document's language when
// the proposal references a context chunk, otherwise the goal's.
func taskLanguage(req Request, p taskProposal) string {
	if p.ContextRef != nil {
		if i := *p.ContextRef; i >= 0 && i < len(req.Context) {
			if lang := req.Context[i].Language; lang != "" {
				return lang
			}
		}
	}
	if req.Goal.Language != "" {
		return req.Goal.Language
	}
	return langpipe.DefaultLanguage
}

func newExponential(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clampPriority(p int) int {
	if p < 1 {
		return 3
	}
	if p > 5 {
		return 5
	}
	return p
}

func clampMinutes(m int) int {
	if m <= 0 {
		return 30
	}
	return m
}
