package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/repository/postgres"
	"github.com/mentionwatch/mentionwatch/internal/service"
)

// AlertHandler handles alert definition and evaluation endpoints
type AlertHandler struct {
	alertService *service.AlertService
	logger       *zap.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService *service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "Invalid alert ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

func listOptions(c *gin.Context) (*postgres.ListOptions, bool) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_query",
			"message": err.Error(),
		})
		return nil, false
	}
	return &postgres.ListOptions{EnabledOnly: query.EnabledOnly, Limit: query.Limit}, true
}

// --- Data quality ---

// CreateDataQualityRequest represents the request to create a data-quality alert
type CreateDataQualityRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	QualityType string  `json:"quality_type" binding:"required,quality_type"`
	FileFormat  string  `json:"file_format" binding:"omitempty,file_format"`
	FileSizeMin *int64  `json:"file_size_min" binding:"omitempty,min=0"`
	FileSizeMax *int64  `json:"file_size_max" binding:"omitempty,min=0"`
	Severity    string  `json:"severity" binding:"required,severity"`
	Enabled     *bool   `json:"enabled"`
}

// CreateDataQuality creates a new data-quality alert
// @Summary Create data-quality alert
// @Tags alerts
// @Accept json
// @Produce json
// @Success 201 {object} domain.DataQualityAlert
// @Router /v1/alerts/data-quality [post]
func (h *AlertHandler) CreateDataQuality(c *gin.Context) {
	var req CreateDataQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	alert := &domain.DataQualityAlert{
		Name:        req.Name,
		Description: req.Description,
		QualityType: req.QualityType,
		FileFormat:  req.FileFormat,
		FileSizeMin: req.FileSizeMin,
		FileSizeMax: req.FileSizeMax,
		Severity:    req.Severity,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	if err := h.alertService.CreateDataQualityAlert(c.Request.Context(), alert); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// GetDataQuality retrieves a data-quality alert
func (h *AlertHandler) GetDataQuality(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := h.alertService.GetDataQualityAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ListDataQuality lists data-quality alerts
func (h *AlertHandler) ListDataQuality(c *gin.Context) {
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	alerts, total, err := h.alertService.ListDataQualityAlerts(c.Request.Context(), opts)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: alerts, Total: total, Limit: opts.Limit})
}

// UpdateDataQuality updates a data-quality alert
func (h *AlertHandler) UpdateDataQuality(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CreateDataQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	existing, err := h.alertService.GetDataQualityAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.QualityType = req.QualityType
	if req.FileFormat != "" {
		existing.FileFormat = req.FileFormat
	}
	existing.FileSizeMin = req.FileSizeMin
	existing.FileSizeMax = req.FileSizeMax
	existing.Severity = req.Severity
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := h.alertService.UpdateDataQualityAlert(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DeleteDataQuality removes a data-quality alert definition
func (h *AlertHandler) DeleteDataQuality(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.alertService.DeleteDataQualityAlert(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Entity type ---

// CreateEntityTypeRequest represents the request to create an entity-type alert
type CreateEntityTypeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`

	EntityType  string  `json:"entity_type" binding:"omitempty,entity_type"`
	EntityValue *string `json:"entity_value"`

	DetectionAlgorithm string  `json:"detection_algorithm" binding:"omitempty,algorithm"`
	DBSCANEps          float64 `json:"dbscan_eps" binding:"omitempty,gt=0,lte=5"`
	DBSCANMinSamples   int     `json:"dbscan_min_samples" binding:"omitempty,min=1,max=20"`
	KMeansClusters     int     `json:"kmeans_clusters" binding:"omitempty,min=2,max=10"`
	Sensitivity        float64 `json:"sensitivity" binding:"omitempty,gte=0.5,lte=5"`

	WindowHours  int `json:"window_hours" binding:"omitempty,window_hours"`
	BaselineDays int `json:"baseline_days" binding:"omitempty,min=1,max=30"`

	Severity string `json:"severity" binding:"required,severity"`
	Enabled  *bool  `json:"enabled"`
}

// CreateEntityType creates a new entity-type alert
// @Summary Create entity-type alert
// @Tags alerts
// @Accept json
// @Produce json
// @Success 201 {object} domain.EntityTypeAlert
// @Router /v1/alerts/entity-type [post]
func (h *AlertHandler) CreateEntityType(c *gin.Context) {
	var req CreateEntityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	alert := entityTypeFromRequest(&req)
	if err := h.alertService.CreateEntityTypeAlert(c.Request.Context(), alert); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func entityTypeFromRequest(req *CreateEntityTypeRequest) *domain.EntityTypeAlert {
	return &domain.EntityTypeAlert{
		Name:               req.Name,
		Description:        req.Description,
		EntityType:         req.EntityType,
		EntityValue:        req.EntityValue,
		DetectionAlgorithm: req.DetectionAlgorithm,
		DBSCANEps:          req.DBSCANEps,
		DBSCANMinSamples:   req.DBSCANMinSamples,
		KMeansClusters:     req.KMeansClusters,
		Sensitivity:        req.Sensitivity,
		WindowHours:        req.WindowHours,
		BaselineDays:       req.BaselineDays,
		Severity:           req.Severity,
		Enabled:            req.Enabled == nil || *req.Enabled,
	}
}

// GetEntityType retrieves an entity-type alert
func (h *AlertHandler) GetEntityType(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := h.alertService.GetEntityTypeAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ListEntityType lists entity-type alerts
func (h *AlertHandler) ListEntityType(c *gin.Context) {
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	alerts, total, err := h.alertService.ListEntityTypeAlerts(c.Request.Context(), opts)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: alerts, Total: total, Limit: opts.Limit})
}

// UpdateEntityType updates an entity-type alert
func (h *AlertHandler) UpdateEntityType(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CreateEntityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	existing, err := h.alertService.GetEntityTypeAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	updated := entityTypeFromRequest(&req)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.TriggerCount = existing.TriggerCount
	updated.LastTriggeredAt = existing.LastTriggeredAt
	if req.Enabled == nil {
		updated.Enabled = existing.Enabled
	}

	if err := h.alertService.UpdateEntityTypeAlert(c.Request.Context(), updated); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteEntityType removes an entity-type alert definition
func (h *AlertHandler) DeleteEntityType(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.alertService.DeleteEntityTypeAlert(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Smart AI ---

// CreateSmartAIRequest represents the request to create a smart-AI alert
type CreateSmartAIRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`

	DetectionAlgorithm  string  `json:"detection_algorithm" binding:"omitempty,algorithm"`
	SimilarityThreshold float64 `json:"similarity_threshold" binding:"omitempty,gte=0.3,lte=1"`

	Severity string `json:"severity" binding:"required,severity"`
	Enabled  *bool  `json:"enabled"`
}

// CreateSmartAI creates a new smart-AI alert
// @Summary Create smart-AI alert
// @Tags alerts
// @Accept json
// @Produce json
// @Success 201 {object} domain.SmartAIAlert
// @Router /v1/alerts/smart-ai [post]
func (h *AlertHandler) CreateSmartAI(c *gin.Context) {
	var req CreateSmartAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	alert := &domain.SmartAIAlert{
		Name:                req.Name,
		Description:         req.Description,
		DetectionAlgorithm:  req.DetectionAlgorithm,
		SimilarityThreshold: req.SimilarityThreshold,
		Severity:            req.Severity,
		Enabled:             req.Enabled == nil || *req.Enabled,
	}
	if err := h.alertService.CreateSmartAIAlert(c.Request.Context(), alert); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// GetSmartAI retrieves a smart-AI alert
func (h *AlertHandler) GetSmartAI(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := h.alertService.GetSmartAIAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ListSmartAI lists smart-AI alerts
func (h *AlertHandler) ListSmartAI(c *gin.Context) {
	opts, ok := listOptions(c)
	if !ok {
		return
	}
	alerts, total, err := h.alertService.ListSmartAIAlerts(c.Request.Context(), opts)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: alerts, Total: total, Limit: opts.Limit})
}

// UpdateSmartAI updates a smart-AI alert
func (h *AlertHandler) UpdateSmartAI(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CreateSmartAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	existing, err := h.alertService.GetSmartAIAlert(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	if req.DetectionAlgorithm != "" {
		existing.DetectionAlgorithm = req.DetectionAlgorithm
	}
	if req.SimilarityThreshold != 0 {
		existing.SimilarityThreshold = req.SimilarityThreshold
	}
	existing.Severity = req.Severity
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := h.alertService.UpdateSmartAIAlert(c.Request.Context(), existing); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DeleteSmartAI removes a smart-AI alert definition
func (h *AlertHandler) DeleteSmartAI(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.alertService.DeleteSmartAIAlert(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Shared operations ---

// Toggle flips an alert's enabled flag for the given category
// @Summary Toggle alert enabled state
// @Tags alerts
// @Produce json
// @Router /v1/alerts/{category}/{id}/toggle [patch]
func (h *AlertHandler) Toggle(category domain.AlertCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		enabled, err := h.alertService.ToggleAlert(c.Request.Context(), category, id)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
	}
}

// Evaluate runs one alert of the given category immediately
// @Summary Evaluate a single alert
// @Tags alerts
// @Produce json
// @Success 200 {object} domain.EvaluationResult
// @Router /v1/alerts/{category}/{id}/evaluate [post]
func (h *AlertHandler) Evaluate(category domain.AlertCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		result, err := h.alertService.Evaluate(c.Request.Context(), category, id)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// EvaluateAll runs every enabled alert
// @Summary Evaluate all enabled alerts
// @Tags alerts
// @Produce json
// @Success 200 {object} domain.EvaluationSummary
// @Router /v1/alerts/evaluate-all [post]
func (h *AlertHandler) EvaluateAll(c *gin.Context) {
	summary, err := h.alertService.EvaluateAll(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Stats returns alert counters for the dashboard
func (h *AlertHandler) Stats(c *gin.Context) {
	stats, err := h.alertService.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
