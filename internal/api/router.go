package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"NewsAlerts/internal/domain"
	"NewsAlerts/internal/ports"
)

// NewsProvider serves the on-demand news endpoint.
type NewsProvider interface {
	FetchScored(ctx context.Context, limit int) []domain.NewsItem
}

// RouterDeps wires the HTTP API handlers.
type RouterDeps struct {
	Subscriptions    ports.SubscriptionStore
	Ledger           ports.SentLedger
	News             NewsProvider
	DefaultThreshold int
	NewsLimit        int
	Logger           *slog.Logger
}

type subscribeRequest struct {
	ChatID    string `json:"chatId" binding:"required"`
	Threshold int    `json:"sentimentThreshold"`
}

type unsubscribeRequest struct {
	ChatID string `json:"chatId" binding:"required"`
}

type newsResponse struct {
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	URL            string    `json:"url"`
	Category       string    `json:"category"`
	PublishedAt    time.Time `json:"publishedAt"`
	SentimentScore int       `json:"sentimentScore"`
}

// NewRouter builds the subscription and health endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		if deps.Ledger != nil {
			if err := deps.Ledger.Ping(c.Request.Context()); err != nil {
				logger.Error("ledger unavailable", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "ledger unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/news", func(c *gin.Context) {
		if deps.News == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news pipeline unavailable"})
			return
		}

		limit := deps.NewsLimit
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		items := deps.News.FetchScored(c.Request.Context(), limit)
		payload := make([]newsResponse, 0, len(items))
		for _, item := range items {
			payload = append(payload, newsResponse{
				Title:          item.Title,
				Summary:        item.Summary,
				URL:            item.URL,
				Category:       item.Category,
				PublishedAt:    item.PublishedAt,
				SentimentScore: item.Score,
			})
		}

		c.JSON(http.StatusOK, gin.H{"count": len(payload), "news": payload})
	})

	tg := api.Group("/telegram")

	tg.POST("/subscribe", func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		threshold := req.Threshold
		if threshold <= 0 {
			threshold = deps.DefaultThreshold
		}

		if err := deps.Subscriptions.Upsert(c.Request.Context(), req.ChatID, threshold); err != nil {
			logger.Error("subscribe failed", "chat_id", req.ChatID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save subscription"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscribed successfully!"})
	})

	tg.POST("/unsubscribe", func(c *gin.Context) {
		var req unsubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		if err := deps.Subscriptions.Deactivate(c.Request.Context(), req.ChatID); err != nil {
			logger.Error("unsubscribe failed", "chat_id", req.ChatID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update subscription"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unsubscribed successfully!"})
	})

	return router
}
