package langpipe

import (
	"context"

	"go.uber.org/zap"
)

// BestEffort wraps a Pipeline so callers never see it fail: detection
// falls back to the default language and translation falls back to the
// original text. Failures are logged, not propagated.
type BestEffort struct {
	inner  Pipeline
	logger *zap.Logger
}

func NewBestEffort(inner Pipeline, logger *zap.Logger) *BestEffort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{inner: inner, logger: logger}
}

// Detect returns the detected language, or DefaultLanguage when the
// pipeline is unavailable.
func (b *BestEffort) Detect(ctx context.Context, text string) (string, error) {
	lang, err := b.inner.Detect(ctx, text)
	if err != nil {
		b.logger.Warn("language detection unavailable, using default",
			zap.String("default", DefaultLanguage),
			zap.Error(err))
		return DefaultLanguage, nil
	}
	return lang, nil
}

// Translate returns the translation, or the source text unchanged when
// the pipeline is unavailable.
func (b *BestEffort) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	out, err := b.inner.Translate(ctx, text, targetLanguage)
	if err != nil {
		b.logger.Warn("translation unavailable, passing text through",
			zap.String("target", targetLanguage),
			zap.Error(err))
		return text, nil
	}
	return out, nil
}
