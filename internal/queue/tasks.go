package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"car-assist-rag/internal/crawler"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/pdf"
	"car-assist-rag/internal/rag"
	"car-assist-rag/models"
)

const (
	TaskIngestDocument = "document:ingest"
)

// IngestPayload identifies a pending Document record to process.
type IngestPayload struct {
	SourceID   string `json:"source_id"`
	Collection string `json:"collection"`
}

// NewIngestTask enqueues processing for an uploaded or registered
// document.
func NewIngestTask(sourceID, collection string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		SourceID:   sourceID,
		Collection: collection,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingestion"),
	), nil
}

// TaskProcessor handles queued ingestion jobs.
type TaskProcessor struct {
	db        *mongo.Database
	ragSvc    *rag.Service
	extractor *pdf.Extractor
}

func NewTaskProcessor(db *mongo.Database, ragSvc *rag.Service) *TaskProcessor {
	return &TaskProcessor{
		db:        db,
		ragSvc:    ragSvc,
		extractor: pdf.NewExtractor(),
	}
}

// ProcessIngest loads the document record, extracts its text (PDF file
// or URL fetch) and runs it through the ingestion pipeline. Status
// transitions pending -> processing -> completed/failed are persisted
// so uploads can be polled.
func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("processing ingest task", "source", payload.SourceID, "collection", payload.Collection)

	docs := p.db.Collection("documents")
	filter := bson.M{"source_id": payload.SourceID, "collection": payload.Collection}

	var doc models.Document
	if err := docs.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("document %s not found: %w", payload.SourceID, asynq.SkipRetry)
		}
		return err
	}

	p.updateStatus(ctx, filter, models.DocumentProcessing, "")

	text, pages, err := p.extractText(ctx, &doc)
	if err != nil {
		p.updateStatus(ctx, filter, models.DocumentFailed, err.Error())
		return err
	}

	metadata := map[string]string{}
	if doc.ModelName != "" {
		metadata["model_name"] = doc.ModelName
	}
	if doc.SourceURL != "" {
		metadata["source_url"] = doc.SourceURL
	}

	res, err := p.ragSvc.Ingest(ctx, text, doc.SourceID, doc.Collection, metadata)
	if err != nil {
		p.updateStatus(ctx, filter, models.DocumentFailed, err.Error())
		return err
	}

	now := time.Now()
	_, err = docs.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"status":       models.DocumentCompleted,
			"error":        "",
			"chunk_count":  res.ChunksCreated,
			"pages":        pages,
			"processed_at": now,
		},
	})
	if err != nil {
		logger.Error("failed to mark document completed", "source", doc.SourceID, "error", err)
	}

	logger.Info("ingest task completed", "source", doc.SourceID, "chunks", res.ChunksCreated)
	return nil
}

func (p *TaskProcessor) extractText(ctx context.Context, doc *models.Document) (string, int, error) {
	switch {
	case doc.FilePath != "":
		res, err := p.extractor.ExtractFile(ctx, doc.FilePath)
		if err != nil {
			return "", 0, err
		}
		return res.Text, res.Pages, nil
	case doc.SourceURL != "":
		res, err := crawler.FetchPage(crawler.FetchConfig{URL: doc.SourceURL})
		if err != nil {
			return "", 0, err
		}
		return res.Content, 1, nil
	default:
		return "", 0, fmt.Errorf("document %s has neither file path nor URL: %w", doc.SourceID, asynq.SkipRetry)
	}
}

func (p *TaskProcessor) updateStatus(ctx context.Context, filter bson.M, status, errMsg string) {
	update := bson.M{"status": status}
	if errMsg != "" {
		update["error"] = errMsg
	}
	if _, err := p.db.Collection("documents").UpdateOne(ctx, filter, bson.M{"$set": update}); err != nil {
		logger.Error("failed to update document status", "status", status, "error", err)
	}
}
