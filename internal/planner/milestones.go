package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
)

// DefaultTimeframeWeeks is the milestone horizon when the caller gives
// none and the goal has no target date.
const DefaultTimeframeWeeks = 12

type milestoneReply struct {
	Milestones []domain.Milestone `json:"milestones"`
}

// MilestonePlan lays out week-anchored checkpoints for the goal over
// timeframeWeeks. An unusable model reply yields an empty plan rather
// than an error; daily task generation does not depend on milestones.
func (g *Generator) MilestonePlan(ctx context.Context, goal domain.Goal, timeframeWeeks int, contextChunks []domain.Chunk) ([]domain.Milestone, error) {
	if timeframeWeeks < 1 {
		timeframeWeeks = DefaultTimeframeWeeks
	}

	prompt := buildMilestonePrompt(goal, timeframeWeeks, contextChunks)

	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("milestone plan for goal %s: %w", goal.ID, err)
	}

	var reply milestoneReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		g.logger.Warn("milestone reply unusable, returning empty plan",
			zap.String("goal_id", goal.ID), zap.Error(err))
		return nil, nil
	}

	var plan []domain.Milestone
	for _, m := range reply.Milestones {
		if strings.TrimSpace(m.Title) == "" {
			continue
		}
		if m.TargetWeek < 1 {
			m.TargetWeek = 1
		}
		if m.TargetWeek > timeframeWeeks {
			m.TargetWeek = timeframeWeeks
		}
		if m.EstimatedHours < 0 {
			m.EstimatedHours = 0
		}
		plan = append(plan, m)
	}

	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].TargetWeek < plan[j].TargetWeek
	})
	return plan, nil
}

func buildMilestonePrompt(goal domain.Goal, timeframeWeeks int, contextChunks []domain.Chunk) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a goal planning assistant. Create 3-6 meaningful milestones for the goal below, spread over %d weeks. Respond in JSON format:
{"milestones": [{"title": "...", "description": "...", "target_week": 1-%d, "success_criteria": ["criterion"], "estimated_hours": 10}]}

`, timeframeWeeks, timeframeWeeks)

	if len(contextChunks) > 0 {
		sb.WriteString("Context from the user's documents:\n")
		for i, chunk := range contextChunks {
			if i >= maxPromptContext {
				break
			}
			sb.WriteString(chunk.Text)
			sb.WriteString("\n---\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Goal: %s\n", goal.Title)
	if goal.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", goal.Description)
	}
	if goal.TargetDate != nil {
		fmt.Fprintf(&sb, "Target date: %s\n", goal.TargetDate.Format(dateLayout))
	}

	return sb.String()
}
