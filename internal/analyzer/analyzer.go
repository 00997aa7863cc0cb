// Package analyzer scores a goal's complexity, required skills, and
// likely obstacles using retrieved context from the user's own documents.
// Analysis is a pure function of its inputs: the same goal, context, and
// completer always produce the same result.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

// maxContextChunks bounds how much retrieved text goes into the prompt.
const maxContextChunks = 3

// Analyzer produces structured goal analyses.
type Analyzer struct {
	completer llm.Completer
	logger    *zap.Logger
}

func New(completer llm.Completer, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		completer: completer,
		logger:    logger.With(zap.String("component", "analyzer")),
	}
}

// Analyze scores the goal against the retrieved context. Empty context
// degrades to goal-text-only analysis; an unparseable model reply
// degrades to a generic baseline. The call always returns a usable
// Analysis.
func (a *Analyzer) Analyze(ctx context.Context, goal domain.Goal, contextChunks []domain.Chunk) (domain.Analysis, error) {
	prompt := buildPrompt(goal, contextChunks)

	raw, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analyze goal %s: %w", goal.ID, err)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		a.logger.Warn("analysis reply unparseable, using baseline",
			zap.String("goal_id", goal.ID), zap.Error(err))
		return baseline(goal), nil
	}

	if analysis.ComplexityScore < 0 {
		analysis.ComplexityScore = 0
	}
	if analysis.ComplexityScore > 1 {
		analysis.ComplexityScore = 1
	}
	if analysis.Category == "" {
		analysis.Category = goal.Category
	}
	return analysis, nil
}

func buildPrompt(goal domain.Goal, contextChunks []domain.Chunk) string {
	var sb strings.Builder

	sb.WriteString(`You are an expert goal analysis assistant. Analyze the goal below and respond in JSON format:
{
  "complexity_score": 0.0-1.0,
  "required_skills": ["skill"],
  "potential_obstacles": ["obstacle"],
  "category": "career|health|education|personal|finance|relationship|hobby|other",
  "estimated_duration_weeks": number,
  "success_metrics": ["metric"],
  "recommended_approach": "brief description"
}

`)

	if len(contextChunks) > 0 {
		sb.WriteString("Context from the user's documents:\n")
		for i, chunk := range contextChunks {
			if i >= maxContextChunks {
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

	return sb.String()
}

// baseline mirrors the degraded analysis used when the model's reply
// cannot be parsed.
func baseline(goal domain.Goal) domain.Analysis {
	category := goal.Category
	if category == "" {
		category = "personal"
	}
	return domain.Analysis{
		ComplexityScore:     0.5,
		RequiredSkills:      []string{},
		Obstacles:           []string{},
		Category:            category,
		EstimatedWeeks:      12,
		SuccessMetrics:      []string{},
		RecommendedApproach: "Break the goal into smaller, manageable steps",
	}
}
