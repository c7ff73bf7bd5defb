package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"car-assist-rag/internal/config"
	"car-assist-rag/internal/rag"
	"car-assist-rag/middleware"
	"car-assist-rag/models"
	"car-assist-rag/services"
	"car-assist-rag/utils"
)

func SetupMonitorRoutes(router *gin.Engine, cfg *config.Config, ragSvc *rag.Service, monitor *services.MonitorService, exporter *services.ExportService, authMiddleware *middleware.AuthMiddleware) {
	mon := router.Group("/monitor")
	mon.Use(authMiddleware.RequireAuth())

	// GET /monitor/stats reports the current state of a collection.
	mon.GET("/stats", func(c *gin.Context) {
		collection := c.DefaultQuery("collection", cfg.DefaultCollection)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		stats, err := ragSvc.CollectionStats(ctx, collection)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read collection stats", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, stats)
	})

	// GET /monitor/snapshots returns recent periodic snapshots.
	mon.GET("/snapshots", func(c *gin.Context) {
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "24"), 10, 64)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		snapshots, err := monitor.RecentSnapshots(ctx, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load snapshots", gin.H{"error": err.Error()})
			return
		}
		if snapshots == nil {
			snapshots = []models.MonitorSnapshot{}
		}

		c.JSON(http.StatusOK, gin.H{"snapshots": snapshots, "count": len(snapshots)})
	})

	// GET /monitor/export downloads chat history as an xlsx workbook.
	mon.GET("/export", func(c *gin.Context) {
		conversationID := c.Query("conversation_id")
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		data, count, err := exporter.ExportMessages(ctx, conversationID, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("chat_export_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("X-Record-Count", strconv.Itoa(count))
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	})
}
