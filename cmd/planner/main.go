// Package main provides the planner CLI: document ingestion, task
// planning, progress insights, and status reporting.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/analyzer"
	"github.com/planweave/planweave/internal/chunker"
	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/embedding"
	"github.com/planweave/planweave/internal/ingest"
	"github.com/planweave/planweave/internal/insights"
	"github.com/planweave/planweave/internal/langpipe"
	"github.com/planweave/planweave/internal/llm"
	"github.com/planweave/planweave/internal/logging"
	"github.com/planweave/planweave/internal/planner"
	"github.com/planweave/planweave/internal/retriever"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/internal/vecstore"
)

var (
	flagConfig   string
	flagUser     string
	flagTitle    string
	flagType     string
	flagTags     []string
	flagLanguage string

	flagGoal        string
	flagDescription string
	flagCategory    string
	flagPriority    int
	flagTarget      string
	flagDays        int
	flagCap         int

	flagGoalID     string
	flagMilestones bool
	flagDate       string
	flagTopK       int
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Retrieval-augmented goal planning engine",
	Long: `Turns a user's own documents into grounded goal analyses, multi-day
task plans, and progress insights.

Environment variables:
  OPENAI_API_KEY  enables OpenAI embeddings and generation; without it
                  the engine runs in deterministic offline mode
  PLANNER_*       override any planner.yaml setting`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document into the user's knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Analyze a goal and generate daily tasks",
	RunE:  runPlan,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize progress on a goal",
	RunE:  runInsights,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document index status and overdue tasks",
	RunE:  runStatus,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the user's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Order one day's tasks into a recommended schedule",
	RunE:  runOptimize,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to planner.yaml")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "user id")

	ingestCmd.Flags().StringVar(&flagTitle, "title", "", "document title (default: file name)")
	ingestCmd.Flags().StringVar(&flagType, "type", "text", "source type: pdf, text, web, note")
	ingestCmd.Flags().StringSliceVar(&flagTags, "tags", nil, "document tags")
	ingestCmd.Flags().StringVar(&flagLanguage, "language", "", "document language (default: detected)")

	planCmd.Flags().StringVar(&flagGoal, "goal", "", "goal title")
	planCmd.Flags().StringVar(&flagDescription, "description", "", "goal description")
	planCmd.Flags().StringVar(&flagCategory, "category", "", "goal category")
	planCmd.Flags().IntVar(&flagPriority, "priority", 3, "goal priority 1-5")
	planCmd.Flags().StringVar(&flagTarget, "target", "", "target date YYYY-MM-DD")
	planCmd.Flags().IntVar(&flagDays, "days", 0, "planning horizon in days")
	planCmd.Flags().IntVar(&flagCap, "cap", 0, "max tasks per day")

	planCmd.Flags().BoolVar(&flagMilestones, "milestones", false, "also print a milestone roadmap")

	insightsCmd.Flags().StringVar(&flagGoalID, "goal", "", "goal id")

	askCmd.Flags().IntVar(&flagTopK, "top-k", 0, "number of source chunks to answer from")

	optimizeCmd.Flags().StringVar(&flagDate, "date", "", "day to optimize YYYY-MM-DD (default: today)")

	rootCmd.AddCommand(ingestCmd, planCmd, insightsCmd, statusCmd, askCmd, optimizeCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired engine components.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *store.Store
	index     vecstore.Index
	embedder  embedding.Embedder
	completer llm.Completer
	languages langpipe.Pipeline
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log)

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: st}

	if os.Getenv("OPENAI_API_KEY") != "" {
		client, err := embedding.NewClient()
		if err != nil {
			return nil, err
		}
		a.embedder = embedding.NewOpenAIEmbedder(client, 0)
		a.completer = llm.NewOpenAICompleter(client, cfg.OpenAI.ChatModel)
		a.languages = langpipe.NewBestEffort(langpipe.NewLLMPipeline(a.completer), logger)
	} else {
		fmt.Println("OPENAI_API_KEY not set, running in offline mode")
		a.embedder = embedding.NewHashEmbedder(0)
		a.completer = llm.NewStub("")
		a.languages = langpipe.Passthrough{}
	}

	index, err := vecstore.NewQdrantIndex(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, a.embedder.Dimension())
	if err != nil {
		logger.Warn("qdrant unreachable, using in-memory index", zap.Error(err))
		a.index = vecstore.NewMemoryIndex()
	} else {
		a.index = index
	}

	return a, nil
}

func requireUser() error {
	if flagUser == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	sourceType, err := domain.ParseSourceType(flagType)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	title := flagTitle
	if title == "" {
		title = filepath.Base(args[0])
	}

	doc := domain.Document{
		ID:              uuid.New().String(),
		UserID:          flagUser,
		Title:           title,
		Content:         string(raw),
		SourceType:      sourceType,
		Language:        flagLanguage,
		Tags:            flagTags,
		EmbeddingStatus: domain.EmbeddingPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.store.SaveDocument(ctx, doc); err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(a.store, a.index, a.embedder,
		chunker.New(a.cfg.Ingest.ChunkSize, a.cfg.Ingest.ChunkOverlap),
		a.languages, a.cfg.Ingest.Concurrency, a.logger)

	count, err := pipeline.IngestDocument(ctx, doc)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %q: %d chunks (document %s)\n", title, count, doc.ID)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	if flagGoal == "" {
		return fmt.Errorf("--goal is required")
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	goal := domain.Goal{
		ID:          uuid.New().String(),
		UserID:      flagUser,
		Title:       flagGoal,
		Description: flagDescription,
		Category:    flagCategory,
		Priority:    flagPriority,
		Status:      domain.GoalActive,
		CreatedAt:   time.Now().UTC(),
	}
	if flagTarget != "" {
		target, err := time.ParseInLocation("2006-01-02", flagTarget, time.UTC)
		if err != nil {
			return fmt.Errorf("parse --target: %w", err)
		}
		goal.TargetDate = &target
	}
	if lang, err := a.languages.Detect(ctx, flagGoal+" "+flagDescription); err == nil {
		goal.Language = lang
		goal.OriginalLanguage = lang
	}
	if err := a.store.SaveGoal(ctx, goal); err != nil {
		return err
	}

	policy, err := retriever.ParsePolicy(a.cfg.Retrieval.Translate)
	if err != nil {
		return err
	}
	ret := retriever.New(a.embedder, a.index, a.languages, a.store, policy, a.logger)

	query := goal.Title
	if goal.Description != "" {
		query += ": " + goal.Description
	}
	contextChunks, err := ret.Retrieve(ctx, flagUser, query, goal.Language, a.cfg.Retrieval.TopK)
	if err != nil {
		return err
	}
	fmt.Printf("Retrieved %d context chunks\n", len(contextChunks))

	analysis, err := analyzer.New(a.completer, a.logger).Analyze(ctx, goal, contextChunks)
	if err != nil {
		return err
	}
	fmt.Printf("Analysis: complexity %.2f, category %s, ~%d weeks\n",
		analysis.ComplexityScore, analysis.Category, analysis.EstimatedWeeks)
	if analysis.RecommendedApproach != "" {
		fmt.Printf("Approach: %s\n", analysis.RecommendedApproach)
	}

	days := flagDays
	if days < 1 {
		days = a.cfg.Planning.NumDays
	}
	dailyCap := flagCap
	if dailyCap < 1 {
		dailyCap = a.cfg.Planning.DailyCap
	}

	gen := planner.NewGenerator(a.store, a.completer, a.logger)
	gen.SetMaxRetries(a.cfg.Planning.MaxRetries)

	if flagMilestones {
		plan, err := gen.MilestonePlan(ctx, goal, analysis.EstimatedWeeks, contextChunks)
		if err != nil {
			return err
		}
		fmt.Printf("\nMilestones (%d):\n", len(plan))
		for _, m := range plan {
			fmt.Printf("  week %-3d %s (~%dh)\n", m.TargetWeek, m.Title, m.EstimatedHours)
			for _, c := range m.SuccessCriteria {
				fmt.Printf("           done when: %s\n", c)
			}
		}
	}

	batch, err := gen.Generate(ctx, planner.Request{
		Goal:      goal,
		UserID:    flagUser,
		StartDate: time.Now().UTC(),
		NumDays:   days,
		DailyCap:  dailyCap,
		Context:   contextChunks,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nGenerated %d tasks for goal %s:\n", len(batch), goal.ID)
	for _, task := range batch {
		fmt.Printf("  %s  [P%d, %dm]  %s\n",
			task.ScheduledDate.Format("2006-01-02"), task.Priority, task.EstimatedMinutes, task.Title)
	}
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	if flagGoalID == "" {
		return fmt.Errorf("--goal is required")
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	goal, err := a.store.GetGoal(ctx, flagGoalID)
	if err != nil {
		return err
	}
	history, err := a.store.LoadTaskHistory(ctx, goal.ID)
	if err != nil {
		return err
	}

	insight, err := insights.NewEngine(a.completer, a.languages, a.logger).Insights(ctx, goal, history)
	if err != nil {
		return err
	}

	fmt.Printf("Goal: %s\n\n%s\n", goal.Title, insight.Summary)
	if !insight.Sufficient {
		return nil
	}
	fmt.Printf("\nCompletion rate: %.0f%%\n", insight.CompletionRate*100)
	fmt.Printf("Average days late: %.1f\n", insight.AvgDaysLate)
	fmt.Printf("Current streak: %d days (best %d)\n", insight.CurrentStreak, insight.BestStreak)
	for _, rec := range insight.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	policy, err := retriever.ParsePolicy(a.cfg.Retrieval.Translate)
	if err != nil {
		return err
	}
	ret := retriever.New(a.embedder, a.index, a.languages, a.store, policy, a.logger)
	qa := retriever.NewQA(ret, a.completer, a.logger)

	question := strings.Join(args, " ")
	answer, err := qa.Ask(ctx, flagUser, question, "", flagTopK)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Printf("\nSources (%d):\n", len(answer.Sources))
		for _, chunk := range answer.Sources {
			fmt.Printf("  [%s #%d] %s\n", chunk.DocumentID, chunk.Position, firstLine(chunk.Text))
		}
	}
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	day := time.Now().UTC()
	if flagDate != "" {
		day, err = time.ParseInLocation("2006-01-02", flagDate, time.UTC)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	tasks, err := a.store.TasksForDay(ctx, flagUser, day)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Printf("No tasks scheduled for %s\n", day.Format("2006-01-02"))
		return nil
	}

	gen := planner.NewGenerator(a.store, a.completer, a.logger)
	scheduled, err := gen.OptimizeDay(ctx, day, tasks)
	if err != nil {
		return err
	}

	fmt.Printf("Schedule for %s:\n", day.Format("2006-01-02"))
	for _, s := range scheduled {
		at := s.RecommendedTime
		if at == "" {
			at = "--:--"
		}
		fmt.Printf("  %s  [P%d, %dm]  %s\n", at, s.Task.Priority, s.Task.EstimatedMinutes, s.Task.Title)
		if s.Reasoning != "" {
			fmt.Printf("         %s\n", s.Reasoning)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		cut := 80
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	docs, err := a.store.ListDocuments(ctx, flagUser)
	if err != nil {
		return err
	}
	fmt.Printf("Documents (%d):\n", len(docs))
	for _, doc := range docs {
		tags := ""
		if len(doc.Tags) > 0 {
			tags = "  [" + strings.Join(doc.Tags, ", ") + "]"
		}
		fmt.Printf("  %-10s %s  (%s, %s)%s\n",
			doc.EmbeddingStatus, doc.Title, doc.SourceType, doc.Language, tags)
	}

	overdue, err := a.store.OverdueTasks(ctx, flagUser, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(overdue) > 0 {
		fmt.Printf("\nOverdue tasks (%d):\n", len(overdue))
		for _, task := range overdue {
			fmt.Printf("  %s  %s\n", task.ScheduledDate.Format("2006-01-02"), task.Title)
		}
	}
	return nil
}
