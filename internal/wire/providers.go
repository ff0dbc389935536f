package wire

import (
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mentionwatch/mentionwatch/internal/api"
	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/service"
)

// ProviderSet is the main provider set that includes all application dependencies.
var ProviderSet = wire.NewSet(
	DatabaseSet,
	RepositorySet,
	ServiceSet,
	HandlerSet,
	ProvideLogger,
	ProvideRouter,
	ProvideApplication,
)

// Application holds all the dependencies needed to run the server.
type Application struct {
	Config         *config.Config
	Logger         *zap.Logger
	PostgresDB     *pgxpool.Pool
	ClickHouseConn clickhouse.Conn
	Router         *gin.Engine
	Handlers       *api.Handlers
	Scheduler      *service.EvaluationScheduler

	// Database wrappers with cleanup
	postgresWrapper   *PostgresDB
	clickhouseWrapper *ClickHouseDB
}

// Start starts all background services.
func (a *Application) Start() {
	if a.Scheduler != nil && a.Config.Scheduler.Enabled {
		a.Scheduler.Start()
	}
}

// Cleanup releases all resources.
func (a *Application) Cleanup() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.clickhouseWrapper != nil && a.clickhouseWrapper.Cleanup != nil {
		a.clickhouseWrapper.Cleanup()
	}
	if a.postgresWrapper != nil && a.postgresWrapper.Cleanup != nil {
		a.postgresWrapper.Cleanup()
	}
}

// ProvideLogger creates a configured zap logger.
func ProvideLogger(cfg *config.Config) *zap.Logger {
	var zapConfig zap.Config
	if cfg.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	logger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return logger
}

// ProvideRouter creates the Gin router with all routes configured.
func ProvideRouter(h *api.Handlers, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	return api.SetupRouter(h, cfg, logger)
}

// ProvideApplication creates the main Application struct with all dependencies.
func ProvideApplication(
	cfg *config.Config,
	logger *zap.Logger,
	pgWrapper *PostgresDB,
	chWrapper *ClickHouseDB,
	router *gin.Engine,
	handlers *api.Handlers,
	scheduler *service.EvaluationScheduler,
) *Application {
	return &Application{
		Config:            cfg,
		Logger:            logger,
		PostgresDB:        pgWrapper.Pool,
		ClickHouseConn:    chWrapper.Conn,
		Router:            router,
		Handlers:          handlers,
		Scheduler:         scheduler,
		postgresWrapper:   pgWrapper,
		clickhouseWrapper: chWrapper,
	}
}
