package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"car-assist-rag/internal/config"
	"car-assist-rag/internal/logger"
	"car-assist-rag/models"
	"car-assist-rag/utils"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database) {
	users := db.Collection("users")

	auth := router.Group("/auth")

	auth.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid registration data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		count, err := users.CountDocuments(ctx, bson.M{"username": req.Username})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to check username", nil)
			return
		}
		if count > 0 {
			utils.RespondWithError(c, http.StatusConflict, "username_taken",
				"Username is already registered", nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cfg.BcryptCost)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process password", nil)
			return
		}

		user := models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         "user",
			CreatedAt:    time.Now(),
		}

		res, err := users.InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				utils.RespondWithError(c, http.StatusConflict, "username_taken",
					"Username is already registered", nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}

		logger.Info("user registered", "username", req.Username)
		c.JSON(http.StatusCreated, gin.H{
			"id":       res.InsertedID,
			"username": req.Username,
		})
	})

	auth.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid login data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		var user models.User
		if err := users.FindOne(ctx, bson.M{"username": req.Username}).Decode(&user); err != nil {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		expiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			expiresIn = 24 * time.Hour
		}

		token, err := utils.GenerateJWT(user.ID.Hex(), user.Username, cfg.JWTSecret, expiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(expiresIn),
		})
	})
}
