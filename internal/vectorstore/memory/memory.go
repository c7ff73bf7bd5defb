// Package memory is an in-process Store used in tests and single-node
// development runs. Ranking is brute-force cosine over every vector in
// the collection.
package memory

import (
	"context"
	"sort"
	"sync"

	"car-assist-rag/internal/vectorstore"
	"car-assist-rag/models"
)

type collection struct {
	byID  map[string]models.EmbeddedChunk
	order []string // insertion order, for stable iteration
}

type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) Upsert(ctx context.Context, name string, chunks []models.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		col = &collection{byID: make(map[string]models.EmbeddedChunk)}
		s.collections[name] = col
	}
	for _, ch := range chunks {
		if _, exists := col.byID[ch.ID]; !exists {
			col.order = append(col.order, ch.ID)
		}
		col.byID[ch.ID] = ch
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, name string, vector []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, vectorstore.ErrInvalidTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, nil
	}

	results := make([]models.ScoredChunk, 0, len(col.order))
	for _, id := range col.order {
		ch := col.byID[id]
		results = append(results, models.ScoredChunk{
			Chunk: ch.Chunk,
			Score: vectorstore.Dot(ch.Vector, vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].SequenceIndex != results[j].SequenceIndex {
			return results[i].SequenceIndex < results[j].SequenceIndex
		}
		return results[i].ID < results[j].ID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *Storage) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Storage) Stats(ctx context.Context, name string) (models.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.CollectionStats{Name: name}
	col, ok := s.collections[name]
	if !ok {
		return stats, nil
	}

	sources := make(map[string]bool)
	modelNames := make(map[string]bool)
	for _, id := range col.order {
		ch := col.byID[id]
		sources[ch.SourceDocument] = true
		if m := ch.Metadata["model_name"]; m != "" {
			modelNames[m] = true
		}
	}

	stats.ChunkCount = int64(len(col.order))
	stats.DocumentCount = len(sources)
	stats.Sources = sortedKeys(sources)
	stats.ModelsCovered = sortedKeys(modelNames)
	return stats, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
