package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-assist-rag/internal/config"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/rag"
	"car-assist-rag/middleware"
	"car-assist-rag/models"
	"car-assist-rag/utils"
)

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database, ragSvc *rag.Service, authMiddleware *middleware.AuthMiddleware) {
	messages := db.Collection("messages")

	chat := router.Group("/chat")
	chat.Use(authMiddleware.RequireAuth())

	chat.POST("/query", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		userObjID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user identity")
			return
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}
		collection := req.Collection
		if collection == "" {
			collection = cfg.DefaultCollection
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(cfg.CallTimeout)*time.Second)
		defer cancel()

		history, err := loadConversationHistory(ctx, messages, userObjID, conversationID, cfg.HistoryWindow)
		if err != nil {
			logger.Warn("failed to load conversation history", "conversation", conversationID, "error", err)
			history = nil
		}

		resp, err := ragSvc.Query(ctx, req.Question, collection, history)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		msg := models.Message{
			UserID:         userObjID,
			ConversationID: conversationID,
			Question:       req.Question,
			Answer:         resp.Answer,
			Sources:        resp.Sources,
			Timestamp:      time.Now(),
		}
		if _, err := messages.InsertOne(ctx, msg); err != nil {
			logger.Error("failed to persist message", "conversation", conversationID, "error", err)
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Answer:          resp.Answer,
			Sources:         resp.Sources,
			RetrievedChunks: resp.RetrievedChunks,
			ConversationID:  conversationID,
			LatencyMS:       resp.ProcessingTime.Milliseconds(),
			Timestamp:       time.Now(),
		})
	})

	chat.GET("/conversations/:id", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		userObjID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user identity")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cursor, err := messages.Find(ctx,
			bson.M{"user_id": userObjID, "conversation_id": c.Param("id")},
			options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation", nil)
			return
		}
		defer cursor.Close(ctx)

		var msgs []models.Message
		if err := cursor.All(ctx, &msgs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode conversation", nil)
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id": c.Param("id"),
			"messages":        msgs,
		})
	})

	chat.DELETE("/conversations/:id", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		userObjID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user identity")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		res, err := messages.DeleteMany(ctx,
			bson.M{"user_id": userObjID, "conversation_id": c.Param("id")})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete conversation", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": res.DeletedCount})
	})
}

// loadConversationHistory fetches the most recent exchanges for a
// conversation and flattens them into alternating user/assistant turns,
// oldest first.
func loadConversationHistory(ctx context.Context, messages *mongo.Collection, userID primitive.ObjectID, conversationID string, window int) ([]models.ConversationTurn, error) {
	if window <= 0 {
		window = 6
	}
	// Each stored message is one user turn plus one assistant turn.
	limit := int64((window + 1) / 2)

	cursor, err := messages.Find(ctx,
		bson.M{"user_id": userID, "conversation_id": conversationID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	turns := make([]models.ConversationTurn, 0, len(msgs)*2)
	for i := len(msgs) - 1; i >= 0; i-- {
		turns = append(turns,
			models.ConversationTurn{Role: models.RoleUser, Content: msgs[i].Question},
			models.ConversationTurn{Role: models.RoleAssistant, Content: msgs[i].Answer, CitedSources: msgs[i].Sources},
		)
	}
	return turns, nil
}
