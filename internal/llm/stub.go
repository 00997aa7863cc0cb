package llm

import (
	"context"
	"strings"
	"sync"
)

// Stub is a deterministic Completer for tests and offline runs. Prompts
// are matched against registered markers in registration order; the first
// match wins. Unmatched prompts return the fallback response.
type Stub struct {
	mu       sync.Mutex
	rules    []stubRule
	fallback string
	calls    int
	failures int
	failErr  error
}

type stubRule struct {
	marker   string
	response string
}

// NewStub creates a stub with the given fallback response.
func NewStub(fallback string) *Stub {
	return &Stub{fallback: fallback}
}

// Respond registers a canned response for prompts containing marker.
func (s *Stub) Respond(marker, response string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, stubRule{marker: marker, response: response})
	return s
}

// FailTimes makes the next n calls return an error before any matching
// applies, for exercising retry paths.
func (s *Stub) FailTimes(n int, err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failErr = err
	return s
}

var _ Completer = (*Stub)(nil)

func (s *Stub) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if s.failures > 0 {
		s.failures--
		return "", s.failErr
	}

	for _, rule := range s.rules {
		if strings.Contains(prompt, rule.marker) {
			return rule.response, nil
		}
	}
	return s.fallback, nil
}

// Calls reports how many completions were requested.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
