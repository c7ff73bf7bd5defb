package rag

import (
	"context"
	"fmt"
	"strings"

	"car-assist-rag/internal/ai"
	"car-assist-rag/models"
)

// NoContextAnswer is returned verbatim when retrieval produced nothing
// to ground an answer on.
const NoContextAnswer = "I don't have that information in the available vehicle specification documents."

const systemPrompt = `You are a helpful car sales assistant. Answer questions based ONLY on the provided context from vehicle specification documents.

Guidelines:
- Use ONLY the information provided in the context below
- If the information is not in the context, say "I don't have that information in the available vehicle specification documents."
- Always cite the source document when providing answers
- Be concise and accurate
- Format your response clearly`

// Generator assembles retrieved chunks and conversation history into a
// grounded prompt and produces the final answer.
type Generator struct {
	generator     ai.TextGenerator
	historyWindow int
}

func NewGenerator(generator ai.TextGenerator, historyWindow int) *Generator {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Generator{generator: generator, historyWindow: historyWindow}
}

// Generate answers query from the retrieved context. Empty retrieval
// short-circuits to the canned answer without calling the generation
// service.
func (g *Generator) Generate(ctx context.Context, query string, retrieved models.RetrievalResult, history []models.ConversationTurn) (models.Answer, error) {
	if len(retrieved.Chunks) == 0 {
		return models.Answer{Text: NoContextAnswer, Sources: []string{}}, nil
	}

	prompt := g.buildPrompt(query, retrieved, history)

	text, err := g.generator.GenerateText(ctx, prompt)
	if err != nil {
		return models.Answer{}, ai.Classify(ai.ServiceGeneration, err)
	}

	return models.Answer{
		Text:    text,
		Sources: retrieved.DistinctSources,
	}, nil
}

func (g *Generator) buildPrompt(query string, retrieved models.RetrievalResult, history []models.ConversationTurn) string {
	return fmt.Sprintf(`%s

Conversation History:
%s

Retrieved Context:
%s

Current Question: %s

Please provide a helpful answer based on the context and conversation history. Remember to cite sources and resolve any references to previous topics in the conversation.`,
		systemPrompt, formatHistory(history, g.historyWindow), formatContext(retrieved.Chunks), query)
}

// formatContext tags each chunk with its provenance so the model can
// cite sources.
func formatContext(chunks []models.ScoredChunk) string {
	if len(chunks) == 0 {
		return "No relevant information found."
	}

	parts := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		modelName := ch.Metadata["model_name"]
		if modelName == "" {
			modelName = "Unknown"
		}
		page := ch.Metadata["page"]
		if page == "" {
			page = "N/A"
		}
		parts = append(parts, fmt.Sprintf("[Source %d: %s - %s, Page %s]\n%s\n",
			i+1, ch.SourceDocument, modelName, page, ch.Text))
	}
	return strings.Join(parts, "\n---\n")
}

func formatHistory(history []models.ConversationTurn, window int) string {
	if len(history) == 0 {
		return "No previous conversation."
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var lines []string
	for _, turn := range history {
		switch turn.Role {
		case models.RoleUser:
			lines = append(lines, "User: "+turn.Content)
		case models.RoleAssistant:
			lines = append(lines, "Assistant: "+turn.Content)
		}
	}
	return strings.Join(lines, "\n")
}
