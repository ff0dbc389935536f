package wire

import (
	"github.com/google/wire"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/config"
	chrepo "github.com/mentionwatch/mentionwatch/internal/repository/clickhouse"
	pgrepo "github.com/mentionwatch/mentionwatch/internal/repository/postgres"
	"github.com/mentionwatch/mentionwatch/internal/service"
)

// ServiceSet provides all service instances.
var ServiceSet = wire.NewSet(
	ProvideOpenAIClient,
	ProvideNotificationService,
	ProvideSearchService,
	ProvideActivityService,
	ProvideAlertService,
	ProvideDashboardService,
	ProvideScheduler,
)

// ProvideOpenAIClient creates the embeddings provider client.
func ProvideOpenAIClient(cfg *config.Config) *openai.Client {
	return openai.NewClient(cfg.OpenAI.APIKey)
}

// ProvideNotificationService creates a new NotificationService.
func ProvideNotificationService(cfg *config.Config, logger *zap.Logger) *service.NotificationService {
	return service.NewNotificationService(cfg.Notify, logger)
}

// ProvideSearchService creates the semantic matcher.
func ProvideSearchService(
	client *openai.Client,
	docs *chrepo.DocumentRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *service.SearchService {
	return service.NewSearchService(client, docs, cfg.OpenAI.EmbeddingModel, logger)
}

// ProvideActivityService creates a new ActivityService.
func ProvideActivityService(mentions *chrepo.MentionRepository, logger *zap.Logger) *service.ActivityService {
	return service.NewActivityService(mentions, logger)
}

// ProvideAlertService creates a new AlertService.
func ProvideAlertService(
	rules *pgrepo.AlertRepository,
	imports *pgrepo.ImportRepository,
	activity *service.ActivityService,
	search *service.SearchService,
	notifier *service.NotificationService,
	cfg *config.Config,
	logger *zap.Logger,
) *service.AlertService {
	return service.NewAlertService(rules, imports, activity, search, notifier, cfg.Scheduler, logger)
}

// ProvideDashboardService creates a new DashboardService.
func ProvideDashboardService(
	activity *service.ActivityService,
	docs *chrepo.DocumentRepository,
	mentions *chrepo.MentionRepository,
	search *service.SearchService,
	rules *pgrepo.AlertRepository,
	logger *zap.Logger,
) *service.DashboardService {
	return service.NewDashboardService(activity, docs, mentions, search, rules, logger)
}

// ProvideScheduler creates the evaluation scheduler.
func ProvideScheduler(alerts *service.AlertService, cfg *config.Config, logger *zap.Logger) *service.EvaluationScheduler {
	return service.NewEvaluationScheduler(alerts, cfg.Scheduler, logger)
}
