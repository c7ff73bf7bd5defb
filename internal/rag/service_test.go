package rag

import (
	"context"
	"strings"
	"testing"

	"car-assist-rag/internal/vectorstore/memory"
)

func newTestService(t *testing.T, gen *fakeGenerator, emb *fakeEmbedder) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		MaxChunkSize:  10,
		ChunkOverlap:  3,
		TopK:          5,
		HistoryWindow: 6,
		RewriteGrowth: 3,
	}, emb, gen, memory.NewStorage(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceIngestThenQuery(t *testing.T) {
	gen := &fakeGenerator{response: "The Corolla produces 169 horsepower."}
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newTestService(t, gen, emb)
	ctx := context.Background()

	text := strings.Join(wordsOfLength(25), " ")
	res, err := svc.Ingest(ctx, text, "corolla.pdf", "vehicle_specs", map[string]string{"model_name": "Corolla"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// 25 words at window 10 / stride 7: starts 0, 7, 14, 21.
	if res.ChunksCreated != 4 {
		t.Fatalf("expected 4 chunks created, got %d", res.ChunksCreated)
	}
	if res.ModelName != "Corolla" {
		t.Fatalf("expected model name carried through, got %q", res.ModelName)
	}
	// One embedding call per chunk.
	if emb.calls != 4 {
		t.Fatalf("expected 4 embedding calls, got %d", emb.calls)
	}

	out, err := svc.Query(ctx, "How much horsepower does the Corolla have?", "vehicle_specs", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Answer != gen.response {
		t.Fatalf("unexpected answer: %q", out.Answer)
	}
	if out.RetrievedChunks != 4 {
		t.Fatalf("expected all 4 chunks retrieved, got %d", out.RetrievedChunks)
	}
	if len(out.Sources) != 1 || out.Sources[0] != "corolla.pdf" {
		t.Fatalf("expected single source corolla.pdf, got %v", out.Sources)
	}
	// Empty history: no rewrite call, one generation call.
	if gen.calls != 1 {
		t.Fatalf("expected exactly one generation call, got %d", gen.calls)
	}
}

func TestServiceQueryEmptyCollection(t *testing.T) {
	gen := &fakeGenerator{response: "should not be called"}
	svc := newTestService(t, gen, &fakeEmbedder{vector: []float32{1, 0, 0}})

	out, err := svc.Query(context.Background(), "Anything?", "empty", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Answer != NoContextAnswer {
		t.Fatalf("expected canned answer on empty collection, got %q", out.Answer)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation call, got %d", gen.calls)
	}
}

func TestServiceIngestEmptyText(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newTestService(t, &fakeGenerator{}, emb)

	res, err := svc.Ingest(context.Background(), "   ", "empty.pdf", "vehicle_specs", nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.ChunksCreated != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", res.ChunksCreated)
	}
	if emb.calls != 0 {
		t.Fatalf("expected no embedding calls, got %d", emb.calls)
	}
}

func TestServiceIngestIsIdempotent(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newTestService(t, &fakeGenerator{response: "ok"}, emb)
	ctx := context.Background()

	text := strings.Join(wordsOfLength(25), " ")
	if _, err := svc.Ingest(ctx, text, "doc.pdf", "vehicle_specs", nil); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := svc.Ingest(ctx, text, "doc.pdf", "vehicle_specs", nil); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	stats, err := svc.CollectionStats(ctx, "vehicle_specs")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ChunkCount != 4 {
		t.Fatalf("re-ingestion duplicated chunks: count %d", stats.ChunkCount)
	}
}

func TestServiceClearCollection(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newTestService(t, &fakeGenerator{}, emb)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, strings.Join(wordsOfLength(25), " "), "doc.pdf", "vehicle_specs", nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := svc.ClearCollection(ctx, "vehicle_specs"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, err := svc.CollectionStats(ctx, "vehicle_specs")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ChunkCount != 0 {
		t.Fatalf("expected empty collection after clear, got %d chunks", stats.ChunkCount)
	}
}
