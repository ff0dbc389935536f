package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// NotificationService delivers trigger notifications to a configured
// webhook. Delivery is best effort: failures are logged, never propagated
// into the evaluation path.
type NotificationService struct {
	cfg        config.NotifyConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg config.NotifyConfig, logger *zap.Logger) *NotificationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NotifyTrigger sends one trigger record to the configured webhook. With no
// webhook configured it is a no-op.
func (s *NotificationService) NotifyTrigger(ctx context.Context, trigger *domain.TriggeredAlert) {
	if s.cfg.WebhookURL == "" {
		return
	}

	attachment := map[string]interface{}{
		"color": s.getSeverityColor(trigger.Severity),
		"title": fmt.Sprintf("🚨 %s", trigger.AlertName),
		"text":  trigger.TriggerReason,
		"fields": []map[string]interface{}{
			{
				"title": "Category",
				"value": string(trigger.Category),
				"short": true,
			},
			{
				"title": "Severity",
				"value": trigger.Severity,
				"short": true,
			},
		},
		"timestamp": trigger.TriggeredAt.Unix(),
	}

	fields := attachment["fields"].([]map[string]interface{})
	if trigger.CurrentValue != nil {
		fields = append(fields, map[string]interface{}{
			"title": "Current Value",
			"value": fmt.Sprintf("%.2f", *trigger.CurrentValue),
			"short": true,
		})
	}
	if trigger.BaselineValue != nil {
		fields = append(fields, map[string]interface{}{
			"title": "Baseline",
			"value": fmt.Sprintf("%.2f", *trigger.BaselineValue),
			"short": true,
		})
	}
	if trigger.AnomalyType != nil {
		fields = append(fields, map[string]interface{}{
			"title": "Anomaly Type",
			"value": *trigger.AnomalyType,
			"short": true,
		})
	}
	attachment["fields"] = fields

	payload := map[string]interface{}{
		"alert_id":    trigger.AlertID.String(),
		"alert_name":  trigger.AlertName,
		"category":    trigger.Category,
		"severity":    trigger.Severity,
		"reason":      trigger.TriggerReason,
		"triggered_at": trigger.TriggeredAt,
		"attachments": []interface{}{attachment},
	}

	if err := s.sendWebhookPayload(ctx, s.cfg.WebhookURL, payload); err != nil {
		s.logger.Warn("trigger notification failed",
			zap.String("alert_id", trigger.AlertID.String()),
			zap.String("alert_name", trigger.AlertName),
			zap.Error(err),
		)
	}
}

// sendWebhookPayload sends a JSON payload to a webhook URL
func (s *NotificationService) sendWebhookPayload(ctx context.Context, url string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}

	s.logger.Info("webhook notification sent",
		zap.Int("status", resp.StatusCode),
	)

	return nil
}

// getSeverityColor returns a color for the severity level
func (s *NotificationService) getSeverityColor(severity string) string {
	switch severity {
	case domain.SeverityCritical:
		return "#ff0000" // Red
	case domain.SeverityHigh:
		return "#ff6600" // Orange
	case domain.SeverityMedium:
		return "#ffcc00" // Yellow
	case domain.SeverityLow:
		return "#0099ff" // Blue
	default:
		return "#cccccc" // Gray
	}
}
