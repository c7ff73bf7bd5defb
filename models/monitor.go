package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionStats describes the state of one vector store collection.
type CollectionStats struct {
	Name          string   `bson:"name" json:"name"`
	ChunkCount    int64    `bson:"chunk_count" json:"chunk_count"`
	DocumentCount int      `bson:"document_count" json:"document_count"`
	Sources       []string `bson:"sources,omitempty" json:"sources,omitempty"`
	ModelsCovered []string `bson:"models_covered,omitempty" json:"models_covered,omitempty"`
}

// MonitorSnapshot is a periodic capture of collection and usage state,
// written by the monitor cron job.
type MonitorSnapshot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Collection   CollectionStats    `bson:"collection" json:"collection"`
	QueriesTotal int64              `bson:"queries_total" json:"queries_total"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}
