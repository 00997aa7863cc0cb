// Package langpipe provides language detection and translation at the
// ingestion and query boundaries. Both operations are best-effort: a
// failing pipeline degrades to source-language passthrough, it never
// aborts the surrounding operation.
package langpipe

import (
	"context"

	"golang.org/x/text/language"
)

// DefaultLanguage tags text whose language could not be determined.
const DefaultLanguage = "en"

// Pipeline detects languages and translates text. Implementations return
// domain.ErrTranslationUnavailable (possibly wrapped) when the capability
// is down.
type Pipeline interface {
	Detect(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Canonicalize normalizes a language tag to its base form ("en-US" ->
// "en"). Unparseable tags fall back to DefaultLanguage.
func Canonicalize(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := parsed.Base()
	return base.String()
}

// Passthrough is the degraded pipeline: every text is tagged with the
// default language and translation returns input unchanged.
type Passthrough struct{}

func (Passthrough) Detect(context.Context, string) (string, error) {
	return DefaultLanguage, nil
}

func (Passthrough) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
