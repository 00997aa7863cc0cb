package langpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

const detectSample = 600

// LLMPipeline backs detection and translation with the shared generation
// capability, using JSON-mode prompts.
type LLMPipeline struct {
	completer llm.Completer
}

func NewLLMPipeline(completer llm.Completer) *LLMPipeline {
	return &LLMPipeline{completer: completer}
}

// Detect returns the ISO 639-1 code of the text's language.
func (p *LLMPipeline) Detect(ctx context.Context, text string) (string, error) {
	sample := text
	if len(sample) > detectSample {
		cut := detectSample
		// Back off to a rune boundary so the sample stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
	}

	prompt := fmt.Sprintf(`Identify the language of the following text.
Respond in JSON format: {"language": "<ISO 639-1 code>"}

Text:
%s`, sample)

	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: detect: %v", domain.ErrTranslationUnavailable, err)
	}

	var parsed struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || strings.TrimSpace(parsed.Language) == "" {
		return "", fmt.Errorf("%w: detect returned unparseable response", domain.ErrTranslationUnavailable)
	}

	return Canonicalize(parsed.Language), nil
}

// Translate renders text into targetLanguage, preserving meaning and
// tone.
func (p *LLMPipeline) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	target := Canonicalize(targetLanguage)

	prompt := fmt.Sprintf(`Translate the following text into the language with ISO 639-1 code %q.
Preserve meaning, tone, and formatting. Respond in JSON format: {"translation": "<translated text>"}

Text:
%s`, target, text)

	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: translate: %v", domain.ErrTranslationUnavailable, err)
	}

	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Translation == "" {
		return "", fmt.Errorf("%w: translate returned unparseable response", domain.ErrTranslationUnavailable)
	}

	return parsed.Translation, nil
}
