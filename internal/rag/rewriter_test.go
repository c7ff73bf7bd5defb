package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"car-assist-rag/models"
)

// fakeGenerator returns a scripted response and counts calls.
type fakeGenerator struct {
	response string
	err      error
	calls    int
	// lastPrompt captures what the rewriter actually sent.
	lastPrompt string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.response, f.err
}

func sampleHistory() []models.ConversationTurn {
	return []models.ConversationTurn{
		{Role: models.RoleUser, Content: "What is the horsepower of the Corolla?"},
		{Role: models.RoleAssistant, Content: "The Corolla produces 169 horsepower."},
	}
}

func TestRewriteEmptyHistorySkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{response: "should not be used"}
	r := NewRewriter(gen, 6, 3)

	got := r.Rewrite(context.Background(), "What is its towing capacity?", nil)
	if got != "What is its towing capacity?" {
		t.Fatalf("expected original query back, got %q", got)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation calls with empty history, got %d", gen.calls)
	}
}

func TestRewriteResolvesReference(t *testing.T) {
	gen := &fakeGenerator{response: "What is the towing capacity of the Corolla?"}
	r := NewRewriter(gen, 6, 3)

	got := r.Rewrite(context.Background(), "What about its towing capacity?", sampleHistory())
	if !strings.Contains(got, "Corolla") {
		t.Fatalf("expected rewritten query to name the subject, got %q", got)
	}
	if gen.calls != 1 {
		t.Fatalf("expected one generation call, got %d", gen.calls)
	}
	if !strings.Contains(gen.lastPrompt, "What about its towing capacity?") {
		t.Fatalf("prompt missing current question")
	}
	if !strings.Contains(gen.lastPrompt, "169 horsepower") {
		t.Fatalf("prompt missing conversation history")
	}
}

func TestRewriteFallsBackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limit exceeded")}
	r := NewRewriter(gen, 6, 3)

	query := "What about its price?"
	if got := r.Rewrite(context.Background(), query, sampleHistory()); got != query {
		t.Fatalf("expected original query on generation error, got %q", got)
	}
}

func TestRewriteFallsBackOnEmptyResponse(t *testing.T) {
	gen := &fakeGenerator{response: "   \n  "}
	r := NewRewriter(gen, 6, 3)

	query := "What about its price?"
	if got := r.Rewrite(context.Background(), query, sampleHistory()); got != query {
		t.Fatalf("expected original query on blank response, got %q", got)
	}
}

func TestRewriteRejectsRunawayGrowth(t *testing.T) {
	query := "And the Camry?"
	gen := &fakeGenerator{response: strings.Repeat("runaway output ", 20)}
	r := NewRewriter(gen, 6, 3)

	if got := r.Rewrite(context.Background(), query, sampleHistory()); got != query {
		t.Fatalf("expected original query when rewrite exceeds growth bound, got %q", got)
	}

	// Exactly at the bound is accepted.
	atBound := strings.Repeat("x", len(query)*3)
	gen2 := &fakeGenerator{response: atBound}
	r2 := NewRewriter(gen2, 6, 3)
	if got := r2.Rewrite(context.Background(), query, sampleHistory()); got != atBound {
		t.Fatalf("expected rewrite at the bound to be kept, got %q", got)
	}
}

func TestRewritePromptTruncatesAssistantTurns(t *testing.T) {
	long := strings.Repeat("a", 250)
	history := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "Tell me about the RAV4."},
		{Role: models.RoleAssistant, Content: long},
	}
	gen := &fakeGenerator{response: "What engine does the RAV4 have?"}
	r := NewRewriter(gen, 6, 3)
	r.Rewrite(context.Background(), "What engine does it have?", history)

	if strings.Contains(gen.lastPrompt, long) {
		t.Fatalf("assistant turn was not truncated in the rewrite prompt")
	}
	if !strings.Contains(gen.lastPrompt, long[:100]+"...") {
		t.Fatalf("expected truncated assistant turn with ellipsis")
	}
}

func TestRewritePromptWindowsHistory(t *testing.T) {
	history := make([]models.ConversationTurn, 0, 10)
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.ConversationTurn{Role: role, Content: "turn-" + string(rune('a'+i))})
	}
	gen := &fakeGenerator{response: "ok"}
	r := NewRewriter(gen, 4, 3)
	r.Rewrite(context.Background(), "q", history)

	if strings.Contains(gen.lastPrompt, "turn-a") {
		t.Fatalf("prompt includes turns outside the history window")
	}
	if !strings.Contains(gen.lastPrompt, "turn-j") {
		t.Fatalf("prompt missing the most recent turn")
	}
}
