package wire

import (
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/api"
	"github.com/mentionwatch/mentionwatch/internal/api/handlers"
	"github.com/mentionwatch/mentionwatch/internal/service"
)

// HandlerSet provides all HTTP handler instances.
var HandlerSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideAlertHandler,
	ProvideDashboardHandler,
	ProvideHandlers,
)

// ProvideHealthHandler creates a new HealthHandler.
func ProvideHealthHandler(db *pgxpool.Pool, ch clickhouse.Conn, logger *zap.Logger) *handlers.HealthHandler {
	return handlers.NewHealthHandler(db, ch, logger)
}

// ProvideAlertHandler creates a new AlertHandler.
func ProvideAlertHandler(alertService *service.AlertService, logger *zap.Logger) *handlers.AlertHandler {
	return handlers.NewAlertHandler(alertService, logger)
}

// ProvideDashboardHandler creates a new DashboardHandler.
func ProvideDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *handlers.DashboardHandler {
	return handlers.NewDashboardHandler(dashboard, logger)
}

// ProvideHandlers bundles all handlers for the router.
func ProvideHandlers(
	health *handlers.HealthHandler,
	alert *handlers.AlertHandler,
	dashboard *handlers.DashboardHandler,
) *api.Handlers {
	return &api.Handlers{
		Health:    health,
		Alert:     alert,
		Dashboard: dashboard,
	}
}
