// Package llm is the text-generation capability shared by goal analysis,
// task generation, and progress insights. The engine is agnostic to the
// implementation: production uses OpenAI chat completions, tests use the
// deterministic stub.
package llm

import "context"

// Completer is a single request/response text-completion contract.
// Implementations must honor ctx cancellation and deadlines.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
