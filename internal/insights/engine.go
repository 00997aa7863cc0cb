// Package insights derives progress metrics and recommendations from a
// goal's task history: completion rate, punctuality, streaks, and an
// LLM-written summary translated back into the user's language.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/langpipe"
	"github.com/planweave/planweave/internal/llm"
)

// DefaultMinHistory is the minimum number of tasks before metrics are
// considered meaningful.
const DefaultMinHistory = 3

// Engine computes progress insights for a goal.
type Engine struct {
	completer  llm.Completer
	languages  langpipe.Pipeline
	logger     *zap.Logger
	minHistory int
	// now is replaced in tests for deterministic streaks.
	now func() time.Time
}

func NewEngine(completer llm.Completer, languages langpipe.Pipeline, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if languages == nil {
		languages = langpipe.Passthrough{}
	}
	return &Engine{
		completer:  completer,
		languages:  languages,
		logger:     logger.With(zap.String("component", "insights")),
		minHistory: DefaultMinHistory,
		now:        time.Now,
	}
}

// Insights summarizes the goal's history. The history threshold counts
// only resolved (completed or skipped) tasks: a backlog of pending tasks
// says nothing about how the user actually works, so it yields the
// neutral insight instead of metrics computed from noise.
func (e *Engine) Insights(ctx context.Context, goal domain.Goal, history []domain.DailyTask) (domain.Insight, error) {
	if resolvedCount(history) < e.minHistory {
		return domain.Insight{
			Summary:    "Not enough task history yet to draw conclusions. Keep going for a few more days.",
			Sufficient: false,
		}, nil
	}

	today := truncateDay(e.now().UTC())
	insight := computeMetrics(history, today)
	insight.Sufficient = true

	summary, recommendations, err := e.narrate(ctx, goal, insight)
	if err != nil {
		return domain.Insight{}, err
	}
	insight.Summary = e.localize(ctx, summary, goal)
	insight.Recommendations = recommendations
	return insight, nil
}

// resolvedCount counts tasks the user has acted on.
func resolvedCount(history []domain.DailyTask) int {
	n := 0
	for _, task := range history {
		if task.Status == domain.TaskCompleted || task.Status == domain.TaskSkipped {
			n++
		}
	}
	return n
}

// computeMetrics derives the numeric portion of an insight. Only tasks
// already due (scheduled on or before today) count toward the rate.
func computeMetrics(history []domain.DailyTask, today time.Time) domain.Insight {
	var due, completed int
	var lateDays float64
	var lateSamples int

	dayDone := make(map[time.Time]bool)
	for _, task := range history {
		day := truncateDay(task.ScheduledDate)
		if _, ok := dayDone[day]; !ok {
			dayDone[day] = false
		}

		if !day.After(today) {
			due++
		}
		if task.Status != domain.TaskCompleted {
			continue
		}
		completed++
		dayDone[day] = true
		if task.CompletedAt != nil {
			if late := truncateDay(*task.CompletedAt).Sub(day).Hours() / 24; late > 0 {
				lateDays += late
			}
			lateSamples++
		}
	}

	insight := domain.Insight{}
	if due > 0 {
		insight.CompletionRate = float64(completed) / float64(due)
		if insight.CompletionRate > 1 {
			insight.CompletionRate = 1
		}
	}
	if lateSamples > 0 {
		insight.AvgDaysLate = lateDays / float64(lateSamples)
	}

	insight.CurrentStreak, insight.BestStreak = streaks(dayDone, today)
	return insight
}

// streaks walks the scheduled days in order and measures runs of
// calendar-consecutive days with at least one completion. The current
// streak only counts if its last day is today or yesterday.
func streaks(dayDone map[time.Time]bool, today time.Time) (current, best int) {
	days := make([]time.Time, 0, len(dayDone))
	for day := range dayDone {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	var runEnd time.Time
	for _, day := range days {
		if day.After(today) {
			break
		}
		if !dayDone[day] {
			run = 0
			continue
		}
		if run > 0 && day.Sub(runEnd) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		runEnd = day
		if run > best {
			best = run
		}
	}

	if run > 0 && today.Sub(runEnd) <= 24*time.Hour {
		current = run
	}
	return current, best
}

type narrationReply struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// narrate asks the model for a summary and recommendations. An
// unparseable reply degrades to a metric-only summary.
func (e *Engine) narrate(ctx context.Context, goal domain.Goal, insight domain.Insight) (string, []string, error) {
	prompt := buildInsightPrompt(goal, insight)

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("insights for goal %s: %w", goal.ID, err)
	}

	var reply narrationReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil || reply.Summary == "" {
		e.logger.Warn("insight reply unusable, using metric summary",
			zap.String("goal_id", goal.ID))
		return fallbackSummary(insight), nil, nil
	}
	return reply.Summary, reply.Recommendations, nil
}

func buildInsightPrompt(goal domain.Goal, insight domain.Insight) string {
	var sb strings.Builder
	sb.WriteString(`You are a progress coaching assistant. Given the metrics below, respond in JSON format:
{"summary": "2-3 sentence assessment", "recommendations": ["specific actionable suggestion"]}

`)
	fmt.Fprintf(&sb, "Goal: %s\n", goal.Title)
	fmt.Fprintf(&sb, "Completion rate: %.0f%%\n", insight.CompletionRate*100)
	fmt.Fprintf(&sb, "Average days late: %.1f\n", insight.AvgDaysLate)
	fmt.Fprintf(&sb, "Current streak: %d days\n", insight.CurrentStreak)
	fmt.Fprintf(&sb, "Best streak: %d days\n", insight.BestStreak)
	return sb.String()
}

func fallbackSummary(insight domain.Insight) string {
	return fmt.Sprintf(
		"You have completed %.0f%% of your due tasks, with a best streak of %d days.",
		insight.CompletionRate*100, insight.BestStreak)
}

// localize translates the summary into the goal's language. Translation
// failure keeps the source text.
func (e *Engine) localize(ctx context.Context, summary string, goal domain.Goal) string {
	target := goal.Language
	if target == "" || langpipe.Canonicalize(target) == langpipe.DefaultLanguage {
		return summary
	}
	translated, err := e.languages.Translate(ctx, summary, target)
	if err != nil {
		e.logger.Warn("summary translation unavailable",
			zap.String("goal_id", goal.ID),
			zap.String("target", target),
			zap.Error(err))
		return summary
	}
	return translated
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
