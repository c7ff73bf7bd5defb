package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-assist-rag/internal/logger"
	"car-assist-rag/models"
)

// ExportService builds Excel workbooks of chat activity for offline
// review.
type ExportService struct {
	messages *mongo.Collection
}

func NewExportService(messages *mongo.Collection) *ExportService {
	return &ExportService{messages: messages}
}

// ExportMessages writes all messages matching the filter into an xlsx
// workbook and returns its bytes.
func (es *ExportService) ExportMessages(ctx context.Context, conversationID string, limit int64) ([]byte, int, error) {
	filter := bson.M{}
	if conversationID != "" {
		filter["conversation_id"] = conversationID
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := es.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode messages: %w", err)
	}

	data, err := buildWorkbook(msgs)
	if err != nil {
		return nil, 0, err
	}
	return data, len(msgs), nil
}

func buildWorkbook(msgs []models.Message) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close excel file", "error", err)
		}
	}()

	sheetName := "Chat Messages"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Conversation ID", "Question", "Answer", "Sources", "Timestamp"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, msg := range msgs {
		row := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), msg.ID.Hex())
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), msg.ConversationID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), msg.Question)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), msg.Answer)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), joinSources(msg.Sources))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), msg.Timestamp.Format("2006-01-02 15:04:05"))
	}

	for i := range headers {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		f.SetColWidth(sheetName, col, col, 25)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func joinSources(sources []string) string {
	out := ""
	for i, s := range sources {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}
