package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	log              *zap.Logger
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		log:              log,
	}
}

// Overview returns task counts by status for the caller
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	counts, err := h.analyticsService.Overview(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// Productivity returns completed tasks per day over the last 30 days
func (h *AnalyticsHandler) Productivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	days, err := h.analyticsService.Productivity(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"productivity": days})
}

// Trends returns task counts and average completion time per priority
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	trends, err := h.analyticsService.Trends(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trends": trends})
}
