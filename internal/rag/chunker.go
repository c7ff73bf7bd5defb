package rag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"car-assist-rag/models"
)

// ErrInvalidChunking is returned for chunking parameters that would
// stall or misbehave. Configuration is never silently clamped.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// Chunker splits document text into overlapping windows. All sizes are
// measured in words (whitespace-separated fields), so chunk text is
// whitespace-normalized relative to the source.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker validates the window parameters. overlap must be strictly
// smaller than maxSize or the cursor would stall.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidChunking, maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidChunking, overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than max size (%d)", ErrInvalidChunking, overlap, maxSize)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Chunk splits text into windows of at most maxSize words, consecutive
// windows overlapping by exactly overlap words. Sequence indices start
// at 0 and chunk IDs are "<sourceID>_<index>", which keeps re-ingestion
// idempotent under upsert. A tail shorter than the overlap is still
// emitted. Empty or whitespace-only text yields an empty slice: no
// content to index, not an error.
func (c *Chunker) Chunk(text, sourceID string, metadata map[string]string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []models.Chunk{}
	}

	stride := c.maxSize - c.overlap
	var chunks []models.Chunk

	for start := 0; start < len(words); start += stride {
		end := start + c.maxSize
		if end > len(words) {
			end = len(words)
		}

		chunkText := strings.Join(words[start:end], " ")
		index := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:             fmt.Sprintf("%s_%d", sourceID, index),
			Text:           chunkText,
			SourceDocument: sourceID,
			SequenceIndex:  index,
			Keywords:       extractKeywords(chunkText, 5),
			Metadata:       metadata,
		})

		// The window reaching the last word covers everything behind it.
		if end == len(words) {
			break
		}
	}

	return chunks
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "is": true, "are": true, "was": true, "were": true,
	"this": true, "that": true, "it": true, "its": true, "as": true, "by": true,
}

// extractKeywords tags a chunk with its most frequent non-stop words.
// Tagging is best-effort; a chunk with no repeated words simply gets no
// tags.
func extractKeywords(text string, limit int) []string {
	words := strings.Fields(strings.ToLower(text))

	wordFreq := make(map[string]int)
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if len(word) > 2 && !stopWords[word] {
			wordFreq[word]++
		}
	}

	type wordCount struct {
		word  string
		count int
	}
	candidates := make([]wordCount, 0, len(wordFreq))
	for word, freq := range wordFreq {
		if freq >= 2 {
			candidates = append(candidates, wordCount{word, freq})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].word < candidates[j].word
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	keywords := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		keywords = append(keywords, c.word)
	}
	return keywords
}
