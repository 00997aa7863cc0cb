// Package chunker splits extracted document text into retrieval-sized
// segments. Splitting prefers paragraph boundaries, falls back to sentence
// boundaries for oversized paragraphs, and hard-splits only as a last
// resort. Consecutive segments share a configurable overlap so retrieval
// at either segment still captures surrounding context.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxLen is the maximum segment length in runes.
	DefaultMaxLen = 1000

	// DefaultOverlap is the overlap carried from the end of one segment
	// into the start of the next, in runes.
	DefaultOverlap = 200
)

// Segment is one retrieval-sized span of a document.
type Segment struct {
	Position int
	Text     string
}

// Chunker splits text deterministically: the same content always yields
// the same segment count and boundaries.
type Chunker struct {
	maxLen  int
	overlap int
}

// New creates a Chunker. Non-positive arguments fall back to defaults,
// and overlap is clamped below maxLen.
func New(maxLen, overlap int) *Chunker {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxLen {
		overlap = maxLen / 4
	}
	return &Chunker{maxLen: maxLen, overlap: overlap}
}

// Split divides content into segments. Empty or whitespace-only content
// yields no segments and no error.
func (c *Chunker) Split(content string) []Segment {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var pieces []string
	for _, para := range splitParagraphs(content) {
		if runeLen(para) <= c.maxLen {
			pieces = append(pieces, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if runeLen(sent) <= c.maxLen {
				pieces = append(pieces, sent)
				continue
			}
			pieces = append(pieces, hardSplit(sent, c.maxLen)...)
		}
	}

	return c.assemble(pieces)
}

// assemble packs pieces greedily into segments up to maxLen, carrying the
// overlap tail of each finished segment into the next.
func (c *Chunker) assemble(pieces []string) []Segment {
	var segments []Segment
	var buf strings.Builder
	carry := ""

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			return
		}
		segments = append(segments, Segment{Position: len(segments), Text: text})
		carry = overlapTail(text, c.overlap)
		buf.Reset()
	}

	for _, piece := range pieces {
		if buf.Len() > 0 && runeLen(buf.String())+2+runeLen(piece) > c.maxLen {
			flush()
		}
		// A segment opened with carried overlap may exceed maxLen by at
		// most the overlap length.
		if buf.Len() == 0 && carry != "" {
			buf.WriteString(carry)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(piece)
	}
	flush()

	return segments
}

func splitParagraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks a paragraph at sentence-ending punctuation followed
// by whitespace. It is intentionally simple; chunk boundaries need to be
// stable, not linguistically perfect.
func splitSentences(para string) []string {
	var out []string
	runes := []rune(para)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?', '。', '！', '？':
			end := i + 1
			if end < len(runes) && !unicode.IsSpace(runes[end]) {
				continue
			}
			sent := strings.TrimSpace(string(runes[start:end]))
			if sent != "" {
				out = append(out, sent)
			}
			start = end
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func hardSplit(s string, maxLen int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := min(maxLen, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// overlapTail returns the last n runes of text, extended left to the
// nearest word boundary so the carried context starts on a whole word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	start := len(runes) - n
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return strings.TrimSpace(string(runes[start:]))
}

func runeLen(s string) int {
	return len([]rune(s))
}
