package rag

import (
	"fmt"
	"strings"
	"testing"
)

func wordsOfLength(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

func TestNewChunkerValidation(t *testing.T) {
	cases := []struct {
		name    string
		maxSize int
		overlap int
		wantErr bool
	}{
		{"valid", 300, 50, false},
		{"zero overlap", 300, 0, false},
		{"zero max size", 0, 0, true},
		{"negative max size", -1, 0, true},
		{"negative overlap", 300, -1, true},
		{"overlap equals max size", 50, 50, true},
		{"overlap exceeds max size", 50, 60, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.maxSize, tc.overlap)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for maxSize=%d overlap=%d", tc.maxSize, tc.overlap)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestChunkEmptyText(t *testing.T) {
	c, err := NewChunker(300, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	for _, text := range []string{"", "   \n\t  "} {
		chunks := c.Chunk(text, "doc", nil)
		if len(chunks) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestChunkWindowing(t *testing.T) {
	c, err := NewChunker(300, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	words := wordsOfLength(1000)
	chunks := c.Chunk(strings.Join(words, " "), "spec.pdf", nil)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks for 1000 words at 300/50, got %d", len(chunks))
	}

	// Windows start at multiples of the stride (250) and consecutive
	// chunks share exactly 50 words.
	for i, ch := range chunks {
		got := strings.Fields(ch.Text)
		start := i * 250
		end := start + 300
		if end > 1000 {
			end = 1000
		}
		if len(got) != end-start {
			t.Errorf("chunk %d: expected %d words, got %d", i, end-start, len(got))
		}
		if got[0] != words[start] {
			t.Errorf("chunk %d: expected first word %q, got %q", i, words[start], got[0])
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(chunks[i].Text)
		tail := prev[len(prev)-50:]
		head := cur[:50]
		for j := range tail {
			if tail[j] != head[j] {
				t.Fatalf("chunks %d/%d: overlap mismatch at word %d: %q vs %q", i-1, i, j, tail[j], head[j])
			}
		}
	}
}

func TestChunkCoversAllWords(t *testing.T) {
	c, err := NewChunker(10, 3)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	words := wordsOfLength(47)
	chunks := c.Chunk(strings.Join(words, " "), "doc", nil)

	seen := make(map[string]bool)
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Text) {
			seen[w] = true
		}
	}
	for _, w := range words {
		if !seen[w] {
			t.Fatalf("word %q lost during chunking", w)
		}
	}

	last := strings.Fields(chunks[len(chunks)-1].Text)
	if last[len(last)-1] != words[len(words)-1] {
		t.Fatalf("final chunk does not end at the document's last word")
	}
}

func TestChunkShortTail(t *testing.T) {
	c, err := NewChunker(10, 3)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	// 12 words, stride 7: second window holds words 7..11, only 5 words,
	// fewer than the window but still emitted.
	words := wordsOfLength(12)
	chunks := c.Chunk(strings.Join(words, " "), "doc", nil)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if got := len(strings.Fields(chunks[1].Text)); got != 5 {
		t.Fatalf("expected 5-word tail chunk, got %d words", got)
	}
}

func TestChunkCountMonotonicity(t *testing.T) {
	text := strings.Join(wordsOfLength(500), " ")
	overlap := 10

	prev := 0
	for _, maxSize := range []int{400, 200, 100, 50, 20} {
		c, err := NewChunker(maxSize, overlap)
		if err != nil {
			t.Fatalf("NewChunker(%d, %d): %v", maxSize, overlap, err)
		}
		n := len(c.Chunk(text, "doc", nil))
		if n < prev {
			t.Fatalf("chunk count decreased from %d to %d when max size shrank to %d", prev, n, maxSize)
		}
		prev = n
	}
}

func TestChunkSingleWindow(t *testing.T) {
	c, err := NewChunker(300, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	chunks := c.Chunk("one two three", "doc", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "one two three" {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
}

func TestChunkIDsAndSequence(t *testing.T) {
	c, err := NewChunker(10, 3)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	chunks := c.Chunk(strings.Join(wordsOfLength(30), " "), "camry.pdf", map[string]string{"model_name": "Camry"})
	for i, ch := range chunks {
		if ch.SequenceIndex != i {
			t.Errorf("chunk %d: sequence index %d", i, ch.SequenceIndex)
		}
		wantID := fmt.Sprintf("camry.pdf_%d", i)
		if ch.ID != wantID {
			t.Errorf("chunk %d: ID %q, want %q", i, ch.ID, wantID)
		}
		if ch.SourceDocument != "camry.pdf" {
			t.Errorf("chunk %d: source %q", i, ch.SourceDocument)
		}
		if ch.Metadata["model_name"] != "Camry" {
			t.Errorf("chunk %d: metadata not carried", i)
		}
	}
}

func TestExtractKeywordsDeterministic(t *testing.T) {
	text := "engine torque engine torque horsepower horsepower horsepower trim trim the the the"
	first := extractKeywords(text, 5)
	for i := 0; i < 10; i++ {
		if got := strings.Join(extractKeywords(text, 5), ","); got != strings.Join(first, ",") {
			t.Fatalf("keyword extraction not deterministic: %q vs %q", got, strings.Join(first, ","))
		}
	}
	want := []string{"horsepower", "engine", "torque", "trim"}
	if len(first) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), first)
	}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("expected keywords %v, got %v", want, first)
		}
	}
	if first[0] != "horsepower" {
		t.Fatalf("expected most frequent keyword first, got %v", first)
	}
	for _, kw := range first {
		if kw == "the" {
			t.Fatalf("stop word leaked into keywords: %v", first)
		}
	}
}
