package langpipe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/domain"
	"github.com/planweave/planweave/internal/llm"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"ES", "es"},
		{"zh-Hant", "zh"},
		{"pt-BR", "pt"},
		{"not a tag", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Canonicalize(tt.in), "Canonicalize(%q)", tt.in)
	}
}

func TestLLMPipeline_Detect(t *testing.T) {
	stub := llm.NewStub("").Respond("Identify the language", `{"language": "es-MX"}`)
	p := NewLLMPipeline(stub)

	lang, err := p.Detect(context.Background(), "hola, ¿cómo estás?")
	require.NoError(t, err)
	require.Equal(t, "es", lang, "detected tags are canonicalized to base form")
}

func TestLLMPipeline_DetectUnparseable(t *testing.T) {
	stub := llm.NewStub("not json at all")
	p := NewLLMPipeline(stub)

	_, err := p.Detect(context.Background(), "whatever")
	require.ErrorIs(t, err, domain.ErrTranslationUnavailable)
}

func TestLLMPipeline_DetectSampleStaysValidUTF8(t *testing.T) {
	var prompt string
	capture := llm.CompleterFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `{"language": "ja"}`, nil
	})
	p := NewLLMPipeline(capture)

	// Multibyte runes straddle the sample cutoff; the truncation must not
	// split one mid-sequence.
	// The leading byte shifts the cutoff into the middle of a rune.
	text := "a" + strings.Repeat("日本語のテキスト", 200)
	_, err := p.Detect(context.Background(), text)
	require.NoError(t, err)
	require.True(t, utf8.ValidString(prompt), "truncated sample must remain valid UTF-8")
}

func TestLLMPipeline_Translate(t *testing.T) {
	stub := llm.NewStub("").Respond("Translate the following", `{"translation": "hello world"}`)
	p := NewLLMPipeline(stub)

	out, err := p.Translate(context.Background(), "hola mundo", "en")
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}

func TestBestEffort_DegradesInsteadOfFailing(t *testing.T) {
	failing := llm.NewStub("")
	failing.FailTimes(10, errors.New("upstream down"))
	b := NewBestEffort(NewLLMPipeline(failing), nil)

	lang, err := b.Detect(context.Background(), "bonjour")
	require.NoError(t, err, "best-effort detection never fails the caller")
	require.Equal(t, DefaultLanguage, lang)

	out, err := b.Translate(context.Background(), "bonjour", "en")
	require.NoError(t, err, "best-effort translation never fails the caller")
	require.Equal(t, "bonjour", out, "source text passes through unchanged")
}

func TestPassthrough(t *testing.T) {
	var p Passthrough

	lang, err := p.Detect(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, DefaultLanguage, lang)

	out, err := p.Translate(context.Background(), "anything", "fr")
	require.NoError(t, err)
	require.Equal(t, "anything", out)
}
