package rag

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/vectorstore"
	"car-assist-rag/models"
)

// Retriever embeds a query and fetches its nearest chunks from the
// vector store.
type Retriever struct {
	embedder ai.Embedder
	store    vectorstore.Store
}

func NewRetriever(embedder ai.Embedder, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns the k chunks nearest to queryText within collection,
// ordered by descending similarity with ties broken by ascending
// sequence index then chunk ID. A collection holding fewer than k
// chunks returns all of them. k <= 0 is a caller error.
func (r *Retriever) Retrieve(ctx context.Context, queryText, collection string, k int) (models.RetrievalResult, error) {
	if k <= 0 {
		return models.RetrievalResult{}, vectorstore.ErrInvalidTopK
	}

	tracer := otel.Tracer("rag-retriever")
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.collection", collection),
		attribute.Int("rag.top_k", k),
	)

	vector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		span.SetAttributes(attribute.Bool("rag.embed_error", true))
		return models.RetrievalResult{}, ai.Classify(ai.ServiceEmbedding, err)
	}

	chunks, err := r.store.Query(ctx, collection, vector, k)
	if err != nil {
		span.SetAttributes(attribute.Bool("rag.store_error", true))
		return models.RetrievalResult{}, err
	}

	// Re-apply the ordering contract rather than trusting the store.
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].SequenceIndex != chunks[j].SequenceIndex {
			return chunks[i].SequenceIndex < chunks[j].SequenceIndex
		}
		return chunks[i].ID < chunks[j].ID
	})

	span.SetAttributes(attribute.Int("rag.retrieved", len(chunks)))

	return models.RetrievalResult{
		Chunks:          chunks,
		DistinctSources: distinctSources(chunks),
	}, nil
}

// distinctSources collects source documents in lexicographic order for
// stable citation output.
func distinctSources(chunks []models.ScoredChunk) []string {
	seen := make(map[string]bool)
	sources := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if ch.SourceDocument != "" && !seen[ch.SourceDocument] {
			seen[ch.SourceDocument] = true
			sources = append(sources, ch.SourceDocument)
		}
	}
	sort.Strings(sources)
	return sources
}
