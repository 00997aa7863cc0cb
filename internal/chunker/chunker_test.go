package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyContent(t *testing.T) {
	c := New(0, 0)

	for _, input := range []string{"", "   ", "\n\n\t\n"} {
		if got := c.Split(input); len(got) != 0 {
			t.Errorf("Split(%q): expected no segments, got %d", input, len(got))
		}
	}
}

func TestSplit_SingleShortParagraph(t *testing.T) {
	c := New(0, 0)

	segments := c.Split("Just one short paragraph.")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Position != 0 {
		t.Errorf("expected position 0, got %d", segments[0].Position)
	}
	if segments[0].Text != "Just one short paragraph." {
		t.Errorf("unexpected text: %q", segments[0].Text)
	}
}

func TestSplit_ParagraphBoundaries(t *testing.T) {
	// Two paragraphs that don't fit a single 40-rune segment.
	input := "First paragraph with some words here.\n\nSecond paragraph with more words here."

	c := New(40, 0)
	segments := c.Split(input)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if !strings.Contains(segments[0].Text, "First paragraph") {
		t.Errorf("segment 0 missing first paragraph: %q", segments[0].Text)
	}
	if !strings.Contains(segments[1].Text, "Second paragraph") {
		t.Errorf("segment 1 missing second paragraph: %q", segments[1].Text)
	}
}

func TestSplit_OversizedParagraphFallsBackToSentences(t *testing.T) {
	input := "One sentence here. Another sentence follows. A third one closes it."

	c := New(30, 0)
	segments := c.Split(input)
	if len(segments) < 2 {
		t.Fatalf("expected sentence-level split, got %d segments", len(segments))
	}
	for _, seg := range segments {
		if len([]rune(seg.Text)) > 30 {
			t.Errorf("segment exceeds max length: %d runes", len([]rune(seg.Text)))
		}
	}
}

func TestSplit_HardSplitForGiantSentence(t *testing.T) {
	input := strings.Repeat("x", 250)

	c := New(100, 0)
	segments := c.Split(input)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments for 250 runes at max 100, got %d", len(segments))
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	input := "Alpha beta gamma delta epsilon.\n\nZeta eta theta iota kappa lambda."

	c := New(40, 15)
	segments := c.Split(input)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	// The second segment must start with the tail of the first.
	tail := overlapTail(segments[0].Text, 15)
	if tail == "" || !strings.HasPrefix(segments[1].Text, tail) {
		t.Errorf("segment 1 %q does not carry overlap %q", segments[1].Text, tail)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	input := strings.Repeat("A sentence of moderate length goes right here. ", 50)

	c := New(200, 40)
	first := c.Split(input)
	second := c.Split(input)

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}

func TestSplit_PositionsAreOrdinal(t *testing.T) {
	input := strings.Repeat("Words repeated to force many segments apart. ", 30)

	c := New(120, 20)
	for i, seg := range c.Split(input) {
		if seg.Position != i {
			t.Errorf("segment %d has position %d", i, seg.Position)
		}
	}
}

func TestSplit_CJKSentencePunctuation(t *testing.T) {
	input := "最初の文です。 次の文が続きます。 三つ目の文で終わります。"

	c := New(15, 0)
	segments := c.Split(input)
	if len(segments) < 2 {
		t.Fatalf("expected CJK sentence split, got %d segments", len(segments))
	}
}
