// Package mongostore persists embedded chunks in a MongoDB collection
// and ranks them brute-force by cosine similarity. Chunk text is stored
// compressed; vectors stay uncompressed for scoring.
package mongostore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-assist-rag/internal/vectorstore"
	"car-assist-rag/models"
	"car-assist-rag/utils"
)

type Storage struct {
	col         *mongo.Collection
	compression utils.CompressionAlgorithm
}

type chunkDoc struct {
	Collection     string            `bson:"collection"`
	ChunkID        string            `bson:"chunk_id"`
	TextCompressed []byte            `bson:"text_compressed"`
	Compression    string            `bson:"compression"`
	SourceDocument string            `bson:"source_document"`
	SequenceIndex  int               `bson:"sequence_index"`
	Keywords       []string          `bson:"keywords,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty"`
	Vector         []float32         `bson:"vector"`
}

func NewStorage(db *mongo.Database, compression utils.CompressionAlgorithm) *Storage {
	if compression == "" {
		compression = utils.CompressionGzip
	}
	return &Storage{
		col:         db.Collection("chunks"),
		compression: compression,
	}
}

// Upsert writes chunks keyed by (collection, chunk_id). Re-ingesting a
// document replaces its chunks in place; the Mongo collection itself is
// created implicitly on first write.
func (s *Storage) Upsert(ctx context.Context, name string, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(chunks))
	for _, ch := range chunks {
		compressed, err := utils.CompressText(ch.Text, s.compression)
		if err != nil {
			return &vectorstore.StoreError{Op: "upsert", Err: err}
		}
		doc := chunkDoc{
			Collection:     name,
			ChunkID:        ch.ID,
			TextCompressed: compressed,
			Compression:    string(s.compression),
			SourceDocument: ch.SourceDocument,
			SequenceIndex:  ch.SequenceIndex,
			Keywords:       ch.Keywords,
			Metadata:       ch.Metadata,
			Vector:         ch.Vector,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"collection": name, "chunk_id": ch.ID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	if _, err := s.col.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
		return &vectorstore.StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Query scans the named collection and ranks every chunk against the
// query vector. Fine at demo scale; swap in Atlas Vector Search before
// collections grow past a few tens of thousands of chunks.
func (s *Storage) Query(ctx context.Context, name string, vector []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, vectorstore.ErrInvalidTopK
	}

	cursor, err := s.col.Find(ctx, bson.M{"collection": name})
	if err != nil {
		return nil, &vectorstore.StoreError{Op: "query", Err: err}
	}
	defer cursor.Close(ctx)

	var results []models.ScoredChunk
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		text, err := utils.DecompressText(doc.TextCompressed, utils.CompressionAlgorithm(doc.Compression))
		if err != nil {
			continue
		}
		results = append(results, models.ScoredChunk{
			Chunk: models.Chunk{
				ID:             doc.ChunkID,
				Text:           text,
				SourceDocument: doc.SourceDocument,
				SequenceIndex:  doc.SequenceIndex,
				Keywords:       doc.Keywords,
				Metadata:       doc.Metadata,
			},
			Score: vectorstore.Dot(doc.Vector, vector),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, &vectorstore.StoreError{Op: "query", Err: err}
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
	if _, err := s.col.DeleteMany(ctx, bson.M{"collection": name}); err != nil {
		return &vectorstore.StoreError{Op: "delete_collection", Err: err}
	}
	return nil
}

func (s *Storage) Stats(ctx context.Context, name string) (models.CollectionStats, error) {
	stats := models.CollectionStats{Name: name}

	count, err := s.col.CountDocuments(ctx, bson.M{"collection": name})
	if err != nil {
		return stats, &vectorstore.StoreError{Op: "stats", Err: err}
	}
	stats.ChunkCount = count

	sources, err := s.col.Distinct(ctx, "source_document", bson.M{"collection": name})
	if err != nil {
		return stats, &vectorstore.StoreError{Op: "stats", Err: err}
	}
	for _, v := range sources {
		if src, ok := v.(string); ok {
			stats.Sources = append(stats.Sources, src)
		}
	}
	sort.Strings(stats.Sources)
	stats.DocumentCount = len(stats.Sources)

	modelNames, err := s.col.Distinct(ctx, "metadata.model_name", bson.M{"collection": name})
	if err != nil {
		return stats, &vectorstore.StoreError{Op: "stats", Err: err}
	}
	for _, v := range modelNames {
		if m, ok := v.(string); ok && m != "" {
			stats.ModelsCovered = append(stats.ModelsCovered, m)
		}
	}
	sort.Strings(stats.ModelsCovered)

	return stats, nil
}
