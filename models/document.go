package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chunk is the unit of retrieval: a bounded text segment with provenance
// metadata. Chunk sizes are measured in words throughout the pipeline.
type Chunk struct {
	ID             string            `bson:"chunk_id" json:"chunk_id"`
	Text           string            `bson:"text" json:"text"`
	SourceDocument string            `bson:"source_document" json:"source_document"`
	SequenceIndex  int               `bson:"sequence_index" json:"sequence_index"`
	Keywords       []string          `bson:"keywords,omitempty" json:"keywords,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// EmbeddedChunk pairs a chunk with its embedding vector. Vectors are
// immutable once inserted; updates are delete-and-reinsert.
type EmbeddedChunk struct {
	Chunk  `bson:",inline"`
	Vector []float32 `bson:"vector" json:"-"`
}

// ScoredChunk is a chunk returned from a nearest-neighbor query.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// RetrievalResult holds the ranked chunks for one query plus the sorted
// set of distinct source documents, for stable citation ordering.
type RetrievalResult struct {
	Chunks          []ScoredChunk `json:"chunks"`
	DistinctSources []string      `json:"distinct_sources"`
}

// Document tracks an ingested source (PDF upload or crawled URL).
type Document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceID    string             `bson:"source_id" json:"source_id"`
	Collection  string             `bson:"collection" json:"collection"`
	Filename    string             `bson:"filename,omitempty" json:"filename,omitempty"`
	SourceURL   string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	FilePath    string             `bson:"file_path,omitempty" json:"-"`
	FileHash    string             `bson:"file_hash,omitempty" json:"-"`
	ModelName   string             `bson:"model_name,omitempty" json:"model_name,omitempty"`
	Pages       int                `bson:"pages,omitempty" json:"pages,omitempty"`
	ChunkCount  int                `bson:"chunk_count" json:"chunk_count"`
	Status      string             `bson:"status" json:"status"` // pending, processing, completed, failed
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Document status values.
const (
	DocumentPending    = "pending"
	DocumentProcessing = "processing"
	DocumentCompleted  = "completed"
	DocumentFailed     = "failed"
)

// IngestResult summarizes one document's trip through the ingestion
// pipeline.
type IngestResult struct {
	SourceID      string        `json:"source_id"`
	ModelName     string        `json:"model_name,omitempty"`
	ChunksCreated int           `json:"chunks_created"`
	Pages         int           `json:"pages,omitempty"`
	Elapsed       time.Duration `json:"-"`
	ElapsedMS     int64         `json:"elapsed_ms"`
}
