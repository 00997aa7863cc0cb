package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

// DefaultAnswerSources is how many chunks ground an answer when the
// caller gives no k.
const DefaultAnswerSources = 5

// noSourcesAnswer is returned when the user has no retrievable context
// for the question.
const noSourcesAnswer = "I don't have any of your documents to draw on for this question yet. Upload some relevant documents and ask again."

// Answer is a grounded reply to a question about the user's documents.
type Answer struct {
	Text    string
	Sources []domain.Chunk
}

// QA answers free-form questions against a user's knowledge base by
// retrieving relevant chunks and asking the model to answer from them.
type QA struct {
	retriever *Retriever
	completer llm.Completer
	logger    *zap.Logger
}

func NewQA(r *Retriever, completer llm.Completer, logger *zap.Logger) *QA {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QA{
		retriever: r,
		completer: completer,
		logger:    logger.With(zap.String("component", "qa")),
	}
}

// Ask retrieves up to k chunks for the question and answers from them,
// returning the chunks used as sources. No retrievable context yields a
// fixed answer with no sources rather than an error.
func (q *QA) Ask(ctx context.Context, userID, question, questionLanguage string, k int) (Answer, error) {
	if k < 1 {
		k = DefaultAnswerSources
	}

	chunks, err := q.retriever.Retrieve(ctx, userID, question, questionLanguage, k)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context for question: %w", err)
	}
	if len(chunks) == 0 {
		return Answer{Text: noSourcesAnswer}, nil
	}

	raw, err := q.completer.Complete(ctx, buildAnswerPrompt(question, chunks))
	if err != nil {
		return Answer{}, fmt.Errorf("answer question: %w", err)
	}

	var parsed struct {
		Answer string `json:"answer"`
	}
	text := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil && strings.TrimSpace(parsed.Answer) != "" {
		text = strings.TrimSpace(parsed.Answer)
	} else {
		q.logger.Warn("answer reply not JSON, using raw text",
			zap.String("user_id", userID))
	}

	return Answer{Text: text, Sources: chunks}, nil
}

func buildAnswerPrompt(question string, chunks []domain.Chunk) string {
	var sb strings.Builder

	sb.WriteString(`You are a helpful assistant answering questions from the user's own documents. Answer using only the excerpts below; say so when they do not contain the answer. Respond in JSON format: {"answer": "<answer>"}

Excerpts:
`)
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n", i, chunk.Text)
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String()
}
