package routes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-assist-rag/internal/config"
	"car-assist-rag/internal/crawler"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/pdf"
	"car-assist-rag/internal/queue"
	"car-assist-rag/internal/rag"
	"car-assist-rag/middleware"
	"car-assist-rag/models"
	"car-assist-rag/utils"
)

func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database, ragSvc *rag.Service, asynqClient *asynq.Client, authMiddleware *middleware.AuthMiddleware) {
	documents := db.Collection("documents")
	extractor := pdf.NewExtractor()

	docs := router.Group("/documents")
	docs.Use(authMiddleware.RequireAuth())

	// POST /documents/upload ingests a PDF spec sheet. Small files are
	// processed synchronously; larger ones are queued to the worker and
	// can be polled via GET /documents.
	docs.POST("/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "A PDF file is required", gin.H{"error": err.Error()})
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("File exceeds the %d byte limit", cfg.MaxFileSize), nil)
			return
		}
		if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
			utils.RespondWithBadRequest(c, "Only PDF files are supported", nil)
			return
		}

		collection := c.DefaultPostForm("collection", cfg.DefaultCollection)
		sourceID := filepath.Base(fileHeader.Filename)
		modelName := pdf.ExtractModelName(sourceID)

		if err := os.MkdirAll(cfg.FileStorageDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to prepare storage", nil)
			return
		}
		storedPath := filepath.Join(cfg.FileStorageDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), sourceID))
		if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
			utils.RespondWithInternalError(c, "Failed to store file", gin.H{"error": err.Error()})
			return
		}

		fileHash, err := hashFile(storedPath)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to hash file", nil)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(cfg.CallTimeout)*time.Second)
		defer cancel()

		doc := models.Document{
			SourceID:   sourceID,
			Collection: collection,
			Filename:   fileHeader.Filename,
			FilePath:   storedPath,
			FileHash:   fileHash,
			ModelName:  modelName,
			Status:     models.DocumentPending,
			UploadedAt: time.Now(),
		}
		if err := upsertDocument(ctx, documents, &doc); err != nil {
			utils.RespondWithInternalError(c, "Failed to record document", gin.H{"error": err.Error()})
			return
		}

		// Queue large files to the worker.
		if fileHeader.Size > cfg.SyncProcessingLimit {
			task, err := queue.NewIngestTask(sourceID, collection)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create ingest task", nil)
				return
			}
			if _, err := asynqClient.Enqueue(task); err != nil {
				utils.RespondWithInternalError(c, "Failed to queue document", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"source_id":  sourceID,
				"collection": collection,
				"model_name": modelName,
				"status":     models.DocumentPending,
			})
			return
		}

		// Small file: extract and ingest inline.
		setDocumentStatus(ctx, documents, sourceID, collection, models.DocumentProcessing, "")

		extraction, err := extractor.ExtractFile(ctx, storedPath)
		if err != nil {
			setDocumentStatus(ctx, documents, sourceID, collection, models.DocumentFailed, err.Error())
			utils.RespondWithBadRequest(c, "Failed to extract text from PDF", gin.H{"error": err.Error()})
			return
		}

		res, err := ragSvc.Ingest(ctx, extraction.Text, sourceID, collection, map[string]string{"model_name": modelName})
		if err != nil {
			setDocumentStatus(ctx, documents, sourceID, collection, models.DocumentFailed, err.Error())
			utils.RespondWithServiceError(c, err)
			return
		}

		now := time.Now()
		if _, err := documents.UpdateOne(ctx,
			bson.M{"source_id": sourceID, "collection": collection},
			bson.M{"$set": bson.M{
				"status":       models.DocumentCompleted,
				"error":        "",
				"chunk_count":  res.ChunksCreated,
				"pages":        extraction.Pages,
				"processed_at": now,
			}}); err != nil {
			logger.Error("failed to mark document completed", "source", sourceID, "error", err)
		}

		res.Pages = extraction.Pages
		c.JSON(http.StatusOK, res)
	})

	// POST /documents/url ingests a web page of vehicle specifications.
	docs.POST("/url", func(c *gin.Context) {
		var req struct {
			URL        string `json:"url" binding:"required,url"`
			Collection string `json:"collection"`
			ModelName  string `json:"model_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "A valid URL is required", gin.H{"error": err.Error()})
			return
		}

		collection := req.Collection
		if collection == "" {
			collection = cfg.DefaultCollection
		}
		sourceID := crawler.SourceIDForURL(req.URL)

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(cfg.CallTimeout)*time.Second)
		defer cancel()

		doc := models.Document{
			SourceID:   sourceID,
			Collection: collection,
			SourceURL:  req.URL,
			ModelName:  req.ModelName,
			Status:     models.DocumentPending,
			UploadedAt: time.Now(),
		}
		if err := upsertDocument(ctx, documents, &doc); err != nil {
			utils.RespondWithInternalError(c, "Failed to record document", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestTask(sourceID, collection)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create ingest task", nil)
			return
		}
		if _, err := asynqClient.Enqueue(task); err != nil {
			utils.RespondWithInternalError(c, "Failed to queue document", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"source_id":  sourceID,
			"collection": collection,
			"status":     models.DocumentPending,
		})
	})

	// GET /documents lists ingested documents, optionally filtered by
	// collection.
	docs.GET("", func(c *gin.Context) {
		filter := bson.M{}
		if col := c.Query("collection"); col != "" {
			filter["collection"] = col
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cursor, err := documents.Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		defer cursor.Close(ctx)

		var list []models.Document
		if err := cursor.All(ctx, &list); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode documents", nil)
			return
		}
		if list == nil {
			list = []models.Document{}
		}

		c.JSON(http.StatusOK, gin.H{"documents": list, "count": len(list)})
	})

	// DELETE /documents/collections/:name drops a collection's chunks
	// and its document records.
	docs.DELETE("/collections/:name", func(c *gin.Context) {
		name := c.Param("name")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		if err := ragSvc.ClearCollection(ctx, name); err != nil {
			utils.RespondWithInternalError(c, "Failed to clear collection", gin.H{"error": err.Error()})
			return
		}
		res, err := documents.DeleteMany(ctx, bson.M{"collection": name})
		if err != nil {
			logger.Error("failed to delete document records", "collection", name, "error", err)
		}

		var deleted int64
		if res != nil {
			deleted = res.DeletedCount
		}
		logger.Info("collection cleared", "collection", name, "documents_deleted", deleted)
		c.JSON(http.StatusOK, gin.H{"collection": name, "documents_deleted": deleted})
	})
}

// upsertDocument records or refreshes a document keyed by
// (collection, source_id) so re-uploads reset its status.
func upsertDocument(ctx context.Context, documents *mongo.Collection, doc *models.Document) error {
	_, err := documents.UpdateOne(ctx,
		bson.M{"source_id": doc.SourceID, "collection": doc.Collection},
		bson.M{"$set": bson.M{
			"source_id":   doc.SourceID,
			"collection":  doc.Collection,
			"filename":    doc.Filename,
			"source_url":  doc.SourceURL,
			"file_path":   doc.FilePath,
			"file_hash":   doc.FileHash,
			"model_name":  doc.ModelName,
			"status":      doc.Status,
			"error":       "",
			"uploaded_at": doc.UploadedAt,
		}},
		options.Update().SetUpsert(true))
	return err
}

func setDocumentStatus(ctx context.Context, documents *mongo.Collection, sourceID, collection, status, errMsg string) {
	if _, err := documents.UpdateOne(ctx,
		bson.M{"source_id": sourceID, "collection": collection},
		bson.M{"$set": bson.M{"status": status, "error": errMsg}}); err != nil {
		logger.Error("failed to update document status", "source", sourceID, "error", err)
	}
}

func hashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
