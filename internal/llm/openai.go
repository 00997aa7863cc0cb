package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/planweave/planweave/internal/embedding"
)

// DefaultMaxPromptTokens bounds prompt size before truncation.
const DefaultMaxPromptTokens = 16000

// OpenAICompleter produces completions in JSON mode so structured prompts
// get machine-parseable replies.
type OpenAICompleter struct {
	client    *embedding.Client
	model     openai.ChatModel
	maxTokens int
}

// NewOpenAICompleter wraps the shared OpenAI client. An empty model uses
// GPT-4o-mini.
func NewOpenAICompleter(client *embedding.Client, model string) *OpenAICompleter {
	m := openai.ChatModelGPT4oMini
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAICompleter{
		client:    client,
		model:     m,
		maxTokens: DefaultMaxPromptTokens,
	}
}

// Complete sends a single user prompt and returns the raw completion
// text.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Client().Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(c.truncate(prompt)),
		},
		Model: c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// truncate bounds the prompt using the rough 4-characters-per-token
// estimate.
func (c *OpenAICompleter) truncate(prompt string) string {
	maxChars := c.maxTokens * 4
	if len(prompt) <= maxChars {
		return prompt
	}
	return prompt[:maxChars]
}
