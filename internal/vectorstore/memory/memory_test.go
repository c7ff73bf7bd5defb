package memory

import (
	"context"
	"testing"

	"car-assist-rag/internal/vectorstore"
	"car-assist-rag/models"
)

func chunk(id, source string, seq int, vec []float32) models.EmbeddedChunk {
	return models.EmbeddedChunk{
		Chunk: models.Chunk{
			ID:             id,
			Text:           "text of " + id,
			SourceDocument: source,
			SequenceIndex:  seq,
		},
		Vector: vec,
	}
}

func TestQueryUnknownCollectionIsEmpty(t *testing.T) {
	s := NewStorage()
	got, err := s.Query(context.Background(), "missing", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d chunks", len(got))
	}
}

func TestQueryInvalidTopK(t *testing.T) {
	s := NewStorage()
	if _, err := s.Query(context.Background(), "c", []float32{1}, 0); err != vectorstore.ErrInvalidTopK {
		t.Fatalf("expected ErrInvalidTopK, got %v", err)
	}
}

func TestQueryRanksByScore(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	err := s.Upsert(ctx, "c", []models.EmbeddedChunk{
		chunk("a_0", "a.pdf", 0, []float32{0.1, 0}),
		chunk("b_0", "b.pdf", 0, []float32{0.9, 0}),
		chunk("c_0", "c.pdf", 0, []float32{0.5, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, "c", []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "b_0" || got[1].ID != "c_0" {
		t.Errorf("order = %s, %s; want b_0, c_0", got[0].ID, got[1].ID)
	}
}

func TestQueryTieBreaksBySequenceThenID(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	// Identical vectors produce identical scores.
	v := []float32{1, 0}
	err := s.Upsert(ctx, "c", []models.EmbeddedChunk{
		chunk("z_2", "z.pdf", 2, v),
		chunk("b_1", "b.pdf", 1, v),
		chunk("a_1", "a.pdf", 1, v),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, "c", v, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a_1", "b_1", "z_2"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	s.Upsert(ctx, "c", []models.EmbeddedChunk{chunk("a_0", "a.pdf", 0, []float32{1, 0})})
	s.Upsert(ctx, "c", []models.EmbeddedChunk{chunk("a_0", "a.pdf", 0, []float32{0, 1})})

	stats, err := s.Stats(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if stats.ChunkCount != 1 {
		t.Fatalf("chunk count = %d, want 1 after replacing upsert", stats.ChunkCount)
	}

	got, _ := s.Query(ctx, "c", []float32{0, 1}, 1)
	if got[0].Score != 1.0 {
		t.Errorf("score = %f, want 1.0 for the replaced vector", got[0].Score)
	}
}

func TestDeleteCollection(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	s.Upsert(ctx, "c", []models.EmbeddedChunk{chunk("a_0", "a.pdf", 0, []float32{1})})
	if err := s.DeleteCollection(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats(ctx, "c")
	if stats.ChunkCount != 0 {
		t.Fatalf("chunk count = %d after delete, want 0", stats.ChunkCount)
	}
}

func TestStatsSortsSources(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	c1 := chunk("x_0", "zeta.pdf", 0, []float32{1})
	c1.Metadata = map[string]string{"model_name": "RAV4"}
	c2 := chunk("y_0", "alpha.pdf", 0, []float32{1})
	c2.Metadata = map[string]string{"model_name": "Camry"}
	s.Upsert(ctx, "c", []models.EmbeddedChunk{c1, c2})

	stats, err := s.Stats(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentCount != 2 {
		t.Fatalf("document count = %d, want 2", stats.DocumentCount)
	}
	if stats.Sources[0] != "alpha.pdf" || stats.Sources[1] != "zeta.pdf" {
		t.Errorf("sources not sorted: %v", stats.Sources)
	}
	if stats.ModelsCovered[0] != "Camry" {
		t.Errorf("models not sorted: %v", stats.ModelsCovered)
	}
}
