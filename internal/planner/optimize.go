package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
)

const clockLayout = "15:04"

// ScheduledTask is a task placed at a recommended time of day by the
// schedule optimizer.
type ScheduledTask struct {
	Task            domain.DailyTask
	RecommendedTime string
	Reasoning       string
}

type scheduleSlot struct {
	ID              string `json:"id"`
	RecommendedTime string `json:"recommended_time"`
	Reasoning       string `json:"reasoning"`
}

type scheduleReply struct {
	Schedule []scheduleSlot `json:"schedule"`
}

// OptimizeDay orders one day's tasks into a recommended schedule. The
// model only reorders and annotates: tasks it drops or invents are
// reconciled against the input, so every input task appears exactly once
// in the result. An unusable reply degrades to the original order with
// no time recommendations.
func (g *Generator) OptimizeDay(ctx context.Context, day time.Time, tasks []domain.DailyTask) ([]ScheduledTask, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	prompt := buildSchedulePrompt(day, tasks)

	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("optimize schedule for %s: %w", day.Format(dateLayout), err)
	}

	var reply scheduleReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		g.logger.Warn("schedule reply unusable, keeping original order",
			zap.Time("day", day), zap.Error(err))
		return passthroughSchedule(tasks), nil
	}

	byID := make(map[string]domain.DailyTask, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var out []ScheduledTask
	placed := make(map[string]struct{}, len(tasks))
	for _, slot := range reply.Schedule {
		task, ok := byID[slot.ID]
		if !ok {
			// Unknown ids are hallucinated; skip them.
			continue
		}
		if _, dup := placed[slot.ID]; dup {
			continue
		}
		placed[slot.ID] = struct{}{}
		out = append(out, ScheduledTask{
			Task:            task,
			RecommendedTime: validClock(slot.RecommendedTime),
			Reasoning:       strings.TrimSpace(slot.Reasoning),
		})
	}

	// Tasks the model left out keep their original relative order.
	for _, task := range tasks {
		if _, ok := placed[task.ID]; !ok {
			out = append(out, ScheduledTask{Task: task})
		}
	}
	return out, nil
}

func buildSchedulePrompt(day time.Time, tasks []domain.DailyTask) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a daily schedule optimization assistant. Order the tasks below for %s, assigning each a recommended start time. Respond in JSON format:
{"schedule": [{"id": "task id", "recommended_time": "HH:MM", "reasoning": "brief reason"}]}
Include every task exactly once, using the ids given.

Tasks:
`, day.Format(dateLayout))

	for _, task := range tasks {
		fmt.Fprintf(&sb, "- id: %s, title: %s, estimated minutes: %d, priority: %d\n",
			task.ID, task.Title, task.EstimatedMinutes, task.Priority)
	}
	return sb.String()
}

func passthroughSchedule(tasks []domain.DailyTask) []ScheduledTask {
	out := make([]ScheduledTask, len(tasks))
	for i, task := range tasks {
		out[i] = ScheduledTask{Task: task}
	}
	return out
}

// validClock keeps a recommended time only when it parses as HH:MM.
func validClock(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(clockLayout, s); err != nil {
		return ""
	}
	return s
}
