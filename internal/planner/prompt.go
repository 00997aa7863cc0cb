package planner

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/planweave/planweave/internal/domain"
)

const dateLayout = "2006-01-02"

// taskProposal is one task as proposed by the model before filtering.
type taskProposal struct {
	Date             string `json:"date"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Priority         int    `json:"priority"`
	// ContextRef points back at the numbered context excerpt the task was
	// derived from, when the model grounded it in one.
	ContextRef *int `json:"context_ref,omitempty"`
}

type planReply struct {
	Tasks []taskProposal `json:"tasks"`
}

// maxPromptContext bounds how many retrieved excerpts go into the prompt.
const maxPromptContext = 5

func buildPlanPrompt(req Request, start, end time.Time, existing []domain.DailyTask) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a daily task planning assistant. Create concrete daily tasks for the goal below, scheduled between %s and %s inclusive, at most %d tasks per day. Respond in JSON format:
{"tasks": [{"date": "YYYY-MM-DD", "title": "...", "description": "...", "estimated_minutes": 30, "priority": 1-5, "context_ref": 0}]}
Set context_ref to the number of the context excerpt a task is based on, or omit it.

`, start.Format(dateLayout), end.Format(dateLayout), req.DailyCap)

	fmt.Fprintf(&sb, "Goal: %s\n", req.Goal.Title)
	if req.Goal.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.Goal.Description)
	}
	if req.Goal.TargetDate != nil {
		fmt.Fprintf(&sb, "Target date: %s\n", req.Goal.TargetDate.Format(dateLayout))
	}

	if len(req.Context) > 0 {
		sb.WriteString("\nContext excerpts from the user's documents:\n")
		for i, chunk := range req.Context {
			if i >= maxPromptContext {
				break
			}
			fmt.Fprintf(&sb, "[%d] %s\n", i, chunk.Text)
		}
	}

	if len(existing) > 0 {
		sb.WriteString("\nAlready scheduled, do not repeat:\n")
		for _, task := range existing {
			fmt.Fprintf(&sb, "- %s: %s\n", task.ScheduledDate.Format(dateLayout), task.Title)
		}
	}

	return sb.String()
}

func parsePlanReply(raw string) ([]taskProposal, error) {
	var reply planReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("parse plan reply: %w", err)
	}
	return reply.Tasks, nil
}

// genericPlan is the degraded plan used when the model's reply cannot be
// parsed: one preparatory task per day, so the caller still receives a
// usable schedule.
func genericPlan(goal domain.Goal, start, end time.Time) []taskProposal {
	var proposals []taskProposal
	for day, n := start, 1; !day.After(end); day, n = day.AddDate(0, 0, 1), n+1 {
		proposals = append(proposals, taskProposal{
			Date:             day.Format(dateLayout),
			Title:            fmt.Sprintf("Work toward %q, step %d", goal.Title, n),
			Description:      "Spend focused time making progress on this goal.",
			EstimatedMinutes: 30,
			Priority:         goal.Priority,
		})
	}
	return proposals
}

// dedupKey identifies a task by normalized title and scheduled date.
// Normalization lowercases, strips punctuation, and collapses whitespace
// so cosmetic rewording does not produce duplicates.
func dedupKey(title string, day time.Time) string {
	return normalizeTitle(title) + "|" + day.Format(dateLayout)
}

func normalizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// sortBatch orders tasks by date, then priority descending, preserving
// generation order within a tie.
func sortBatch(batch []domain.DailyTask) {
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].ScheduledDate.Equal(batch[j].ScheduledDate) {
			return batch[i].ScheduledDate.Before(batch[j].ScheduledDate)
		}
		return batch[i].Priority > batch[j].Priority
	})
}
