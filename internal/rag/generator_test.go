package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"car-assist-rag/internal/ai"
	"car-assist-rag/models"
)

func scored(id, source string, seq int, score float64, metadata map[string]string) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{
			ID:             id,
			Text:           "content of " + id,
			SourceDocument: source,
			SequenceIndex:  seq,
			Metadata:       metadata,
		},
		Score: score,
	}
}

func TestGenerateEmptyRetrievalShortCircuits(t *testing.T) {
	gen := &fakeGenerator{response: "should never be called"}
	g := NewGenerator(gen, 6)

	answer, err := g.Generate(context.Background(), "What is the mpg?", models.RetrievalResult{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != NoContextAnswer {
		t.Fatalf("expected canned answer, got %q", answer.Text)
	}
	if answer.Sources == nil || len(answer.Sources) != 0 {
		t.Fatalf("expected empty non-nil sources, got %v", answer.Sources)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation call on empty retrieval, got %d", gen.calls)
	}
}

func TestGeneratePromptTagsSources(t *testing.T) {
	gen := &fakeGenerator{response: "The Camry has 208 horsepower [Source 1]."}
	g := NewGenerator(gen, 6)

	retrieved := models.RetrievalResult{
		Chunks: []models.ScoredChunk{
			scored("camry.pdf_0", "camry.pdf", 0, 0.9, map[string]string{"model_name": "Camry", "page": "3"}),
			scored("rav4.pdf_1", "rav4.pdf", 1, 0.8, nil),
		},
		DistinctSources: []string{"camry.pdf", "rav4.pdf"},
	}

	answer, err := g.Generate(context.Background(), "How much horsepower?", retrieved, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.Contains(gen.lastPrompt, "[Source 1: camry.pdf - Camry, Page 3]") {
		t.Fatalf("prompt missing tagged first source:\n%s", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "[Source 2: rav4.pdf - Unknown, Page N/A]") {
		t.Fatalf("prompt missing defaults for absent metadata:\n%s", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "\n---\n") {
		t.Fatalf("prompt sources not separated")
	}
	if !strings.Contains(gen.lastPrompt, "How much horsepower?") {
		t.Fatalf("prompt missing question")
	}

	if len(answer.Sources) != 2 || answer.Sources[0] != "camry.pdf" {
		t.Fatalf("expected distinct sources passed through, got %v", answer.Sources)
	}
}

func TestGeneratePromptIncludesHistoryWindow(t *testing.T) {
	gen := &fakeGenerator{response: "ok"}
	g := NewGenerator(gen, 2)

	history := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "oldest question"},
		{Role: models.RoleUser, Content: "recent question"},
		{Role: models.RoleAssistant, Content: "recent answer"},
	}
	retrieved := models.RetrievalResult{
		Chunks:          []models.ScoredChunk{scored("a_0", "a", 0, 1, nil)},
		DistinctSources: []string{"a"},
	}

	if _, err := g.Generate(context.Background(), "q", retrieved, history); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(gen.lastPrompt, "oldest question") {
		t.Fatalf("prompt includes history beyond the window")
	}
	if !strings.Contains(gen.lastPrompt, "User: recent question") || !strings.Contains(gen.lastPrompt, "Assistant: recent answer") {
		t.Fatalf("prompt missing recent turns:\n%s", gen.lastPrompt)
	}
}

func TestGenerateNoHistoryPlaceholder(t *testing.T) {
	gen := &fakeGenerator{response: "ok"}
	g := NewGenerator(gen, 6)
	retrieved := models.RetrievalResult{
		Chunks:          []models.ScoredChunk{scored("a_0", "a", 0, 1, nil)},
		DistinctSources: []string{"a"},
	}
	if _, err := g.Generate(context.Background(), "q", retrieved, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(gen.lastPrompt, "No previous conversation.") {
		t.Fatalf("expected empty-history placeholder in prompt")
	}
}

func TestGenerateClassifiesError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("context deadline exceeded")}
	g := NewGenerator(gen, 6)
	retrieved := models.RetrievalResult{
		Chunks:          []models.ScoredChunk{scored("a_0", "a", 0, 1, nil)},
		DistinctSources: []string{"a"},
	}

	_, err := g.Generate(context.Background(), "q", retrieved, nil)
	var svcErr *ai.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ai.ServiceError, got %T", err)
	}
	if svcErr.Service != ai.ServiceGeneration {
		t.Fatalf("expected generation service, got %s", svcErr.Service)
	}
	if svcErr.Kind != ai.KindTimeout {
		t.Fatalf("expected timeout kind, got %s", svcErr.Kind)
	}
}
