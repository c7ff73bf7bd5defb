package rag

import (
	"context"
	"fmt"
	"strings"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/logger"
	"car-assist-rag/models"
)

// Rewriter turns a follow-up question into a standalone query by
// resolving references ("it", "that", "the same") against recent
// conversation turns. Rewriting is an optimization: every failure path
// degrades to the original query, never to an error.
type Rewriter struct {
	generator     ai.TextGenerator
	historyWindow int // raw turns included in the rewrite prompt
	maxGrowth     int // defensive bound: rewrites longer than maxGrowth x the query are discarded
}

func NewRewriter(generator ai.TextGenerator, historyWindow, maxGrowth int) *Rewriter {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	if maxGrowth <= 0 {
		maxGrowth = 3
	}
	return &Rewriter{generator: generator, historyWindow: historyWindow, maxGrowth: maxGrowth}
}

// Rewrite returns the standalone form of query. With no history there is
// nothing to resolve and no LLM call is made.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []models.ConversationTurn) string {
	if len(history) == 0 {
		return query
	}

	prompt := r.buildPrompt(query, history)

	rewritten, err := r.generator.GenerateText(ctx, prompt)
	if err != nil {
		logger.Warn("query rewrite failed, using original query", "error", err)
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}

	// Runaway generation guard: a heuristic bound, not a correctness
	// guarantee.
	if len(rewritten) > len(query)*r.maxGrowth {
		logger.Warn("rewritten query too long, using original", "rewritten_len", len(rewritten), "query_len", len(query))
		return query
	}

	if !strings.EqualFold(rewritten, query) {
		logger.Info("query rewritten", "original", query, "rewritten", rewritten)
	}
	return rewritten
}

func (r *Rewriter) buildPrompt(query string, history []models.ConversationTurn) string {
	turns := history
	if len(turns) > r.historyWindow {
		turns = turns[len(turns)-r.historyWindow:]
	}

	var lines []string
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			lines = append(lines, "User: "+turn.Content)
		case models.RoleAssistant:
			// Truncate assistant turns to save tokens; the subject a
			// reference points at is almost always near the start.
			content := turn.Content
			if len(content) > 100 {
				content = content[:100] + "..."
			}
			lines = append(lines, "Assistant: "+content)
		}
	}

	return fmt.Sprintf(`Given the conversation history below, rewrite the user's current question to be standalone and clear by resolving any references (like "it", "that", "the same", etc.) to their actual subjects.

Conversation History:
%s

Current Question: %s

Rules:
- If the question is already clear and standalone, return it unchanged
- Only rewrite if there are unclear references that need resolution
- Keep the rewritten question natural and conversational
- Don't add information not implied by the context
- Maintain the original question's intent

Rewritten Question (just the question, nothing else):`, strings.Join(lines, "\n"), query)
}
