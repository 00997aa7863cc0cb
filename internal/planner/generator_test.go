package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

type fakeStore struct {
	mu      sync.Mutex
	tasks   []domain.DailyTask
	saveErr error
	saves   int
}

func (f *fakeStore) TasksForGoalWindow(_ context.Context, goalID string, from, to time.Time) ([]domain.DailyTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DailyTask
	for _, t := range f.tasks {
		if t.GoalID == goalID && !t.ScheduledDate.Before(from) && !t.ScheduledDate.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveTasks(_ context.Context, tasks []domain.DailyTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.tasks = append(f.tasks, tasks...)
	return nil
}

var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

// newTestGenerator pins "today" to monday so windows are deterministic.
func newTestGenerator(store TaskStore, completer llm.Completer) *Generator {
	g := NewGenerator(store, completer, nil)
	g.now = func() time.Time { return monday }
	return g
}

func testGoal() domain.Goal {
	return domain.Goal{
		ID:       "goal-1",
		UserID:   "user-1",
		Title:    "Learn Spanish",
		Priority: 4,
		Status:   domain.GoalActive,
		Language: "en",
	}
}

func planReplyJSON() string {
	return `{"tasks": [
		{"date": "2026-03-02", "title": "Learn 20 vocabulary words", "estimated_minutes": 25, "priority": 3},
		{"date": "2026-03-02", "title": "Practice pronunciation", "estimated_minutes": 20, "priority": 5},
		{"date": "2026-03-03", "title": "Complete one grammar lesson", "estimated_minutes": 40, "priority": 4}
	]}`
}

func TestGenerate_PersistsOrderedBatch(t *testing.T) {
	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub(planReplyJSON()))

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	require.Len(t, store.tasks, 3)

	// Same day ordered by priority descending.
	require.Equal(t, "Practice pronunciation", batch[0].Title)
	require.Equal(t, "Learn 20 vocabulary words", batch[1].Title)
	require.Equal(t, "Complete one grammar lesson", batch[2].Title)

	for _, task := range batch {
		require.True(t, task.AIGenerated)
		require.Equal(t, domain.TaskPending, task.Status)
		require.Equal(t, "user-1", task.UserID)
		require.Equal(t, "en", task.Language)
		require.NotEmpty(t, task.ID)
		require.True(t, task.CreatedAt.Equal(monday), "timestamps come from the generator clock")
	}
}

func TestGenerate_RejectsInvalidHorizon(t *testing.T) {
	g := newTestGenerator(&fakeStore{}, llm.NewStub("{}"))
	_, err := g.Generate(context.Background(), Request{Goal: testGoal(), StartDate: monday, NumDays: 0})
	require.Error(t, err)
}

func TestGenerate_DedupesAgainstPersistedTasks(t *testing.T) {
	store := &fakeStore{tasks: []domain.DailyTask{{
		GoalID:        "goal-1",
		ScheduledDate: monday,
		// Cosmetic rewording of "Learn 20 vocabulary words".
		Title: "  learn 20 VOCABULARY words!! ",
	}}}
	g := newTestGenerator(store, llm.NewStub(planReplyJSON()))

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	for _, task := range batch {
		require.NotEqual(t, "Learn 20 vocabulary words", task.Title)
	}
}

func TestGenerate_DuplicateDropsDoNotConsumeCap(t *testing.T) {
	store := &fakeStore{}
	reply := `{"tasks": [
		{"date": "2026-03-02", "title": "Review flashcards"},
		{"date": "2026-03-02", "title": "Review Flashcards"},
		{"date": "2026-03-02", "title": "Watch a short film"},
		{"date": "2026-03-02", "title": "Write a journal entry"}
	]}`
	g := newTestGenerator(store, llm.NewStub(reply))

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 1, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 3, "the within-batch duplicate must not occupy a cap slot")
}

func TestGenerate_IdempotentRegeneration(t *testing.T) {
	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub(planReplyJSON()))
	req := Request{Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3}

	first, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, second, "an unchanged window regenerates to nothing new")
	require.Len(t, store.tasks, 3)
}

func TestGenerate_ClampsWindowToTargetDate(t *testing.T) {
	goal := testGoal()
	target := monday.AddDate(0, 0, 4)
	goal.TargetDate = &target

	store := &fakeStore{}
	// Unusable reply exercises the generic fallback plan, one task/day.
	g := newTestGenerator(store, llm.NewStub("sorry, no JSON"))

	batch, err := g.Generate(context.Background(), Request{
		Goal: goal, StartDate: monday, NumDays: 30, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 5, "30 requested days clamp to the 5 up to the target date")
	for _, task := range batch {
		require.False(t, task.ScheduledDate.Before(monday))
		require.False(t, task.ScheduledDate.After(target))
	}
}

func TestGenerate_EmptyWindowIsNoop(t *testing.T) {
	goal := testGoal()
	target := monday.AddDate(0, 0, -1)
	goal.TargetDate = &target

	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub(planReplyJSON()))

	batch, err := g.Generate(context.Background(), Request{
		Goal: goal, StartDate: monday, NumDays: 7, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Empty(t, batch)
	require.Zero(t, store.saves)
}

func TestGenerate_DropsOutOfWindowProposals(t *testing.T) {
	reply := `{"tasks": [
		{"date": "2026-02-20", "title": "Too early"},
		{"date": "2026-03-02", "title": "In window"},
		{"date": "2026-04-01", "title": "Too late"},
		{"date": "not-a-date", "title": "Malformed"}
	]}`
	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub(reply))

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 3, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "In window", batch[0].Title)
}

func TestGenerate_DegradedContextStillPlans(t *testing.T) {
	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub("not json at all"))

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 3, DailyCap: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, batch, "no context and an unusable reply still yield a plan")
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	store := &fakeStore{}
	stub := llm.NewStub(planReplyJSON())
	stub.FailTimes(1, errors.New("transient"))

	g := newTestGenerator(store, stub)
	g.initialBackoff = time.Millisecond

	batch, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3,
	})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	require.Equal(t, 2, stub.Calls())
}

func TestGenerate_RetryExhaustionPersistsNothing(t *testing.T) {
	store := &fakeStore{}
	stub := llm.NewStub(planReplyJSON())
	stub.FailTimes(10, errors.New("model down"))

	g := newTestGenerator(store, stub)
	g.maxRetries = 2
	g.initialBackoff = time.Millisecond

	_, err := g.Generate(context.Background(), Request{
		Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3,
	})

	var planErr *domain.PlanningError
	require.ErrorAs(t, err, &planErr)
	require.Equal(t, "goal-1", planErr.GoalID)
	require.Equal(t, 3, planErr.Attempts)
	require.Empty(t, store.tasks, "nothing is persisted when generation fails")
}

func TestGenerate_ConcurrentRunsAreExclusive(t *testing.T) {
	store := &fakeStore{}
	entered := make(chan struct{}, 1)
	proceed := make(chan struct{})
	blocking := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-proceed
		return planReplyJSON(), nil
	})

	g := newTestGenerator(store, blocking)
	req := Request{Goal: testGoal(), StartDate: monday, NumDays: 7, DailyCap: 3}

	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), req)
		done <- err
	}()

	<-entered
	_, err := g.Generate(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrConcurrentGeneration)

	close(proceed)
	require.NoError(t, <-done)

	// The slot is released afterwards; a fresh run proceeds (and dedups).
	batch, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, batch)
}

func TestGenerate_LanguageFollowsSourceChunk(t *testing.T) {
	reply := `{"tasks": [
		{"date": "2026-03-02", "title": "Resumir el capitulo", "context_ref": 0},
		{"date": "2026-03-02", "title": "Review grammar notes"}
	]}`
	store := &fakeStore{}
	g := newTestGenerator(store, llm.NewStub(reply))

	batch, err := g.Generate(context.Background(), Request{
		Goal:      testGoal(),
		StartDate: monday,
		NumDays:   1,
		DailyCap:  3,
		Context:   []domain.Chunk{{Text: "capitulo uno", Language: "es"}},
	})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	byTitle := map[string]domain.DailyTask{}
	for _, task := range batch {
		byTitle[task.Title] = task
	}
	require.Equal(t, "es", byTitle["Resumir el capitulo"].Language)
	require.Equal(t, "en", byTitle["Review grammar notes"].Language)
}
