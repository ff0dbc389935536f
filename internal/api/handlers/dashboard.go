package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/service"
)

// DashboardHandler handles dashboard feed endpoints
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger,
	}
}

// ActivityQuery represents the activity feed query parameters
type ActivityQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`

	EntityType  string `form:"entity_type" binding:"omitempty,entity_type"`
	EntityValue string `form:"entity_value"`

	SearchQuery         string  `form:"search_query"`
	SimilarityThreshold float64 `form:"similarity_threshold" binding:"omitempty,gte=0.3,lte=1"`

	Aggregation string `form:"aggregation" binding:"omitempty,oneof=hourly daily"`

	Algorithm   string  `form:"algorithm" binding:"omitempty,algorithm"`
	Eps         float64 `form:"eps" binding:"omitempty,gt=0,lte=5"`
	MinSamples  int     `form:"min_samples" binding:"omitempty,min=1,max=20"`
	Clusters    int     `form:"clusters" binding:"omitempty,min=2,max=10"`
	Sensitivity float64 `form:"sensitivity" binding:"omitempty,gte=0.5,lte=5"`
}

func (q *ActivityQuery) toRequest() service.ActivityRequest {
	return service.ActivityRequest{
		From:                q.From,
		To:                  q.To,
		EntityType:          q.EntityType,
		EntityValue:         q.EntityValue,
		SearchQuery:         q.SearchQuery,
		SimilarityThreshold: q.SimilarityThreshold,
		Aggregation:         domain.Aggregation(q.Aggregation),
		Algorithm:           q.Algorithm,
		Eps:                 q.Eps,
		MinSamples:          q.MinSamples,
		Clusters:            q.Clusters,
		Sensitivity:         q.Sensitivity,
	}
}

// Activity returns the annotated activity series
// @Summary Dashboard activity feed
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.ActivityResponse
// @Router /v1/dashboard/activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	var query ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}

	resp, err := h.dashboard.Activity(c.Request.Context(), query.toRequest())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DataPointDocumentsQuery narrows one bucket to its documents
type DataPointDocumentsQuery struct {
	Timestamp   time.Time `form:"timestamp" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Aggregation string    `form:"aggregation" binding:"omitempty,oneof=hourly daily"`
	Limit       int       `form:"limit" binding:"omitempty,min=1,max=200"`

	EntityType  string `form:"entity_type" binding:"omitempty,entity_type"`
	EntityValue string `form:"entity_value"`

	SearchQuery         string  `form:"search_query"`
	SimilarityThreshold float64 `form:"similarity_threshold" binding:"omitempty,gte=0.3,lte=1"`
}

// DataPointDocuments returns the documents behind one activity bucket
func (h *DashboardHandler) DataPointDocuments(c *gin.Context) {
	var query DataPointDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}

	limit := query.Limit
	if limit == 0 {
		limit = 50
	}

	docs, err := h.dashboard.DataPointDocuments(
		c.Request.Context(),
		query.Timestamp,
		domain.Aggregation(query.Aggregation),
		service.ActivityRequest{
			EntityType:          query.EntityType,
			EntityValue:         query.EntityValue,
			SearchQuery:         query.SearchQuery,
			SimilarityThreshold: query.SimilarityThreshold,
		},
		limit,
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// RecentAlerts returns trigger history, newest first
func (h *DashboardHandler) RecentAlerts(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}

	triggers, err := h.dashboard.RecentTriggers(c.Request.Context(), query.Limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": triggers, "count": len(triggers)})
}

// EntityValues lists the most mentioned entities
func (h *DashboardHandler) EntityValues(c *gin.Context) {
	entityType := c.Query("entity_type")
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "message": err.Error()})
		return
	}

	values, err := h.dashboard.EntityValues(c.Request.Context(), entityType, query.Limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_values": values, "count": len(values)})
}

// DateRange returns the corpus bounds
func (h *DashboardHandler) DateRange(c *gin.Context) {
	from, to, err := h.dashboard.DateRange(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earliest": from, "latest": to})
}
