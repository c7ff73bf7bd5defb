package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	QueriesTotal       metric.Int64Counter
	QueryDuration      metric.Float64Histogram
	TokensUsed         metric.Int64Counter
	ChunksIngested     metric.Int64Counter
	IngestionDuration  metric.Float64Histogram
	RewriteFallbacks   metric.Int64Counter
	EmbedCacheHits     metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("car-assist-rag")

	queriesTotal, err := meter.Int64Counter(
		"rag.queries.total",
		metric.WithDescription("Total RAG queries processed"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"rag.query.duration",
		metric.WithDescription("End-to-end query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter(
		"rag.chunks.ingested",
		metric.WithDescription("Total chunks embedded and stored"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"rag.ingestion.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rewriteFallbacks, err := meter.Int64Counter(
		"rag.rewrite.fallbacks",
		metric.WithDescription("Query rewrites that fell back to the original query"),
	)
	if err != nil {
		return nil, err
	}

	embedCacheHits, err := meter.Int64Counter(
		"rag.embed_cache.hits",
		metric.WithDescription("Embedding cache hits"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		QueriesTotal:      queriesTotal,
		QueryDuration:     queryDuration,
		TokensUsed:        tokensUsed,
		ChunksIngested:    chunksIngested,
		IngestionDuration: ingestionDuration,
		RewriteFallbacks:  rewriteFallbacks,
		EmbedCacheHits:    embedCacheHits,
	}, nil
}

// RecordQuery records a completed query with its collection label.
func (m *Metrics) RecordQuery(ctx context.Context, collection string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("collection", collection))
	m.QueriesTotal.Add(ctx, 1, attrs)
	m.QueryDuration.Record(ctx, seconds, attrs)
}
