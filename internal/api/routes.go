package api

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/api/handlers"
	"github.com/mentionwatch/mentionwatch/internal/api/middleware"
	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Health    *handlers.HealthHandler
	Alert     *handlers.AlertHandler
	Dashboard *handlers.DashboardHandler
}

// SetupRouter configures the Gin router with all routes and middleware
func SetupRouter(h *Handlers, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ErrorHandler())

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if cfg.IsProduction() {
		corsOrigins = []string{os.Getenv("CORS_ALLOWED_ORIGINS")}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:  corsOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)

	v1 := r.Group("/v1")
	{
		alerts := v1.Group("/alerts")
		{
			dq := alerts.Group("/data-quality")
			{
				dq.POST("", h.Alert.CreateDataQuality)
				dq.GET("", h.Alert.ListDataQuality)
				dq.GET("/:id", h.Alert.GetDataQuality)
				dq.PUT("/:id", h.Alert.UpdateDataQuality)
				dq.DELETE("/:id", h.Alert.DeleteDataQuality)
				dq.PATCH("/:id/toggle", h.Alert.Toggle(domain.CategoryDataQuality))
				dq.POST("/:id/evaluate", h.Alert.Evaluate(domain.CategoryDataQuality))
			}

			et := alerts.Group("/entity-type")
			{
				et.POST("", h.Alert.CreateEntityType)
				et.GET("", h.Alert.ListEntityType)
				et.GET("/:id", h.Alert.GetEntityType)
				et.PUT("/:id", h.Alert.UpdateEntityType)
				et.DELETE("/:id", h.Alert.DeleteEntityType)
				et.PATCH("/:id/toggle", h.Alert.Toggle(domain.CategoryEntityType))
				et.POST("/:id/evaluate", h.Alert.Evaluate(domain.CategoryEntityType))
			}

			sa := alerts.Group("/smart-ai")
			{
				sa.POST("", h.Alert.CreateSmartAI)
				sa.GET("", h.Alert.ListSmartAI)
				sa.GET("/:id", h.Alert.GetSmartAI)
				sa.PUT("/:id", h.Alert.UpdateSmartAI)
				sa.DELETE("/:id", h.Alert.DeleteSmartAI)
				sa.PATCH("/:id/toggle", h.Alert.Toggle(domain.CategorySmartAI))
				sa.POST("/:id/evaluate", h.Alert.Evaluate(domain.CategorySmartAI))
			}

			alerts.POST("/evaluate-all", h.Alert.EvaluateAll)
			alerts.GET("/stats", h.Alert.Stats)
		}

		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/activity", h.Dashboard.Activity)
			dashboard.GET("/data-point-documents", h.Dashboard.DataPointDocuments)
			dashboard.GET("/recent-alerts", h.Dashboard.RecentAlerts)
			dashboard.GET("/entity-values", h.Dashboard.EntityValues)
			dashboard.GET("/date-range", h.Dashboard.DateRange)
		}
	}

	return r
}
