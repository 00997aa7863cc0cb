package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

func milestoneReplyJSON() string {
	return `{"milestones": [
		{"title": "Hold a basic conversation", "description": "Cover greetings and small talk", "target_week": 8, "success_criteria": ["5 minute exchange"], "estimated_hours": 20},
		{"title": "Master present tense", "description": "Regular and common irregular verbs", "target_week": 3, "success_criteria": ["conjugate 50 verbs"], "estimated_hours": 12},
		{"title": "", "target_week": 5},
		{"title": "Read a short story", "target_week": 40, "estimated_hours": -2}
	]}`
}

func TestMilestonePlan_OrdersByWeekAndClampsEntries(t *testing.T) {
	g := newTestGenerator(&fakeStore{}, llm.NewStub(milestoneReplyJSON()))

	plan, err := g.MilestonePlan(context.Background(), testGoal(), 12, nil)
	require.NoError(t, err)
	require.Len(t, plan, 3, "untitled entries are dropped")

	require.Equal(t, "Master present tense", plan[0].Title)
	require.Equal(t, "Hold a basic conversation", plan[1].Title)
	require.Equal(t, "Read a short story", plan[2].Title)

	require.Equal(t, 12, plan[2].TargetWeek, "weeks clamp to the timeframe")
	require.Zero(t, plan[2].EstimatedHours, "negative hours clamp to zero")
	require.Equal(t, []string{"5 minute exchange"}, plan[1].SuccessCriteria)
}

func TestMilestonePlan_UnusableReplyYieldsEmptyPlan(t *testing.T) {
	g := newTestGenerator(&fakeStore{}, llm.NewStub("I cannot produce JSON today"))

	plan, err := g.MilestonePlan(context.Background(), testGoal(), 12, nil)
	require.NoError(t, err, "an unusable reply is a degraded result, not a failure")
	require.Empty(t, plan)
}

func TestMilestonePlan_CompleterErrorPropagates(t *testing.T) {
	stub := llm.NewStub(milestoneReplyJSON())
	stub.FailTimes(1, errors.New("model down"))
	g := newTestGenerator(&fakeStore{}, stub)

	_, err := g.MilestonePlan(context.Background(), testGoal(), 12, nil)
	require.Error(t, err)
}

func TestMilestonePlan_ContextReachesPrompt(t *testing.T) {
	var prompt string
	capture := llm.CompleterFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return milestoneReplyJSON(), nil
	})
	g := newTestGenerator(&fakeStore{}, capture)

	chunks := []domain.Chunk{{Text: "spaced repetition beats cramming"}}
	_, err := g.MilestonePlan(context.Background(), testGoal(), 0, chunks)
	require.NoError(t, err)
	require.Contains(t, prompt, "spaced repetition beats cramming")
	require.Contains(t, prompt, "Learn Spanish")
}
