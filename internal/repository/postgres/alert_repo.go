package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// AlertRepository handles alert definition and trigger history data access.
type AlertRepository struct {
	db *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

const dataQualityColumns = `id, name, description, quality_type, file_format, file_size_min, file_size_max,
	severity, enabled, trigger_count, last_triggered_at, created_at, updated_at`

const entityTypeColumns = `id, name, description, entity_type, entity_value,
	detection_algorithm, dbscan_eps, dbscan_min_samples, kmeans_clusters, sensitivity,
	window_hours, baseline_days, severity, enabled, trigger_count, last_triggered_at, created_at, updated_at`

const smartAIColumns = `id, name, description, detection_algorithm, similarity_threshold,
	severity, enabled, trigger_count, last_triggered_at, created_at, updated_at`

// nameConflict maps a unique-violation from Postgres onto domain.ErrConflict.
// Alert names are unique per category table, so a duplicate name on create
// or rename lands here.
func nameConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: alert name already in use", domain.ErrConflict)
	}
	return err
}

// ---- Data-quality alerts ----

// CreateDataQuality inserts a new data-quality alert definition.
func (r *AlertRepository) CreateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error {
	query := `
		INSERT INTO data_quality_alerts (` + dataQualityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.QualityType, a.FileFormat, a.FileSizeMin, a.FileSizeMax,
		a.Severity, a.Enabled, a.TriggerCount, a.LastTriggeredAt, a.CreatedAt, a.UpdatedAt,
	)
	return nameConflict(err)
}

// GetDataQuality retrieves a data-quality alert by ID.
func (r *AlertRepository) GetDataQuality(ctx context.Context, id uuid.UUID) (*domain.DataQualityAlert, error) {
	var a domain.DataQualityAlert
	query := `SELECT ` + dataQualityColumns + ` FROM data_quality_alerts WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &a, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListDataQuality returns data-quality alerts, newest first.
func (r *AlertRepository) ListDataQuality(ctx context.Context, opts *ListOptions) ([]*domain.DataQualityAlert, int, error) {
	enabledOnly, limit := opts.normalize()

	where := ""
	if enabledOnly {
		where = " WHERE enabled = true"
	}

	var total int
	if err := pgxscan.Get(ctx, r.db, &total, `SELECT COUNT(*) FROM data_quality_alerts`+where); err != nil {
		return nil, 0, err
	}

	var alerts []*domain.DataQualityAlert
	query := `SELECT ` + dataQualityColumns + ` FROM data_quality_alerts` + where + ` ORDER BY created_at DESC LIMIT $1`
	if err := pgxscan.Select(ctx, r.db, &alerts, query, limit); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// UpdateDataQuality updates a data-quality alert definition.
func (r *AlertRepository) UpdateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error {
	query := `
		UPDATE data_quality_alerts
		SET name = $2, description = $3, quality_type = $4, file_format = $5,
			file_size_min = $6, file_size_max = $7, severity = $8, enabled = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.QualityType, a.FileFormat,
		a.FileSizeMin, a.FileSizeMax, a.Severity, a.Enabled, time.Now().UTC(),
	)
	if err != nil {
		return nameConflict(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDataQuality deletes a data-quality alert. Trigger history is
// retained (audit data).
func (r *AlertRepository) DeleteDataQuality(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM data_quality_alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- Entity-type alerts ----

// CreateEntityType inserts a new entity-type alert definition.
func (r *AlertRepository) CreateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error {
	query := `
		INSERT INTO entity_type_alerts (` + entityTypeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.EntityType, a.EntityValue,
		a.DetectionAlgorithm, a.DBSCANEps, a.DBSCANMinSamples, a.KMeansClusters, a.Sensitivity,
		a.WindowHours, a.BaselineDays, a.Severity, a.Enabled, a.TriggerCount, a.LastTriggeredAt, a.CreatedAt, a.UpdatedAt,
	)
	return nameConflict(err)
}

// GetEntityType retrieves an entity-type alert by ID.
func (r *AlertRepository) GetEntityType(ctx context.Context, id uuid.UUID) (*domain.EntityTypeAlert, error) {
	var a domain.EntityTypeAlert
	query := `SELECT ` + entityTypeColumns + ` FROM entity_type_alerts WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &a, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListEntityType returns entity-type alerts, newest first.
func (r *AlertRepository) ListEntityType(ctx context.Context, opts *ListOptions) ([]*domain.EntityTypeAlert, int, error) {
	enabledOnly, limit := opts.normalize()

	where := ""
	if enabledOnly {
		where = " WHERE enabled = true"
	}

	var total int
	if err := pgxscan.Get(ctx, r.db, &total, `SELECT COUNT(*) FROM entity_type_alerts`+where); err != nil {
		return nil, 0, err
	}

	var alerts []*domain.EntityTypeAlert
	query := `SELECT ` + entityTypeColumns + ` FROM entity_type_alerts` + where + ` ORDER BY created_at DESC LIMIT $1`
	if err := pgxscan.Select(ctx, r.db, &alerts, query, limit); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// UpdateEntityType updates an entity-type alert definition.
func (r *AlertRepository) UpdateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error {
	query := `
		UPDATE entity_type_alerts
		SET name = $2, description = $3, entity_type = $4, entity_value = $5,
			detection_algorithm = $6, dbscan_eps = $7, dbscan_min_samples = $8,
			kmeans_clusters = $9, sensitivity = $10, window_hours = $11, baseline_days = $12,
			severity = $13, enabled = $14, updated_at = $15
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.EntityType, a.EntityValue,
		a.DetectionAlgorithm, a.DBSCANEps, a.DBSCANMinSamples,
		a.KMeansClusters, a.Sensitivity, a.WindowHours, a.BaselineDays,
		a.Severity, a.Enabled, time.Now().UTC(),
	)
	if err != nil {
		return nameConflict(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteEntityType deletes an entity-type alert, keeping trigger history.
func (r *AlertRepository) DeleteEntityType(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM entity_type_alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- Smart-AI alerts ----

// CreateSmartAI inserts a new smart-AI alert definition.
func (r *AlertRepository) CreateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error {
	query := `
		INSERT INTO smart_ai_alerts (` + smartAIColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.DetectionAlgorithm, a.SimilarityThreshold,
		a.Severity, a.Enabled, a.TriggerCount, a.LastTriggeredAt, a.CreatedAt, a.UpdatedAt,
	)
	return nameConflict(err)
}

// GetSmartAI retrieves a smart-AI alert by ID.
func (r *AlertRepository) GetSmartAI(ctx context.Context, id uuid.UUID) (*domain.SmartAIAlert, error) {
	var a domain.SmartAIAlert
	query := `SELECT ` + smartAIColumns + ` FROM smart_ai_alerts WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &a, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListSmartAI returns smart-AI alerts, newest first.
func (r *AlertRepository) ListSmartAI(ctx context.Context, opts *ListOptions) ([]*domain.SmartAIAlert, int, error) {
	enabledOnly, limit := opts.normalize()

	where := ""
	if enabledOnly {
		where = " WHERE enabled = true"
	}

	var total int
	if err := pgxscan.Get(ctx, r.db, &total, `SELECT COUNT(*) FROM smart_ai_alerts`+where); err != nil {
		return nil, 0, err
	}

	var alerts []*domain.SmartAIAlert
	query := `SELECT ` + smartAIColumns + ` FROM smart_ai_alerts` + where + ` ORDER BY created_at DESC LIMIT $1`
	if err := pgxscan.Select(ctx, r.db, &alerts, query, limit); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// UpdateSmartAI updates a smart-AI alert definition.
func (r *AlertRepository) UpdateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error {
	query := `
		UPDATE smart_ai_alerts
		SET name = $2, description = $3, detection_algorithm = $4,
			similarity_threshold = $5, severity = $6, enabled = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.DetectionAlgorithm,
		a.SimilarityThreshold, a.Severity, a.Enabled, time.Now().UTC(),
	)
	if err != nil {
		return nameConflict(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteSmartAI deletes a smart-AI alert, keeping trigger history.
func (r *AlertRepository) DeleteSmartAI(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM smart_ai_alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- Toggle ----

var categoryTables = map[domain.AlertCategory]string{
	domain.CategoryDataQuality: "data_quality_alerts",
	domain.CategoryEntityType:  "entity_type_alerts",
	domain.CategorySmartAI:     "smart_ai_alerts",
}

// Toggle flips the enabled flag of an alert and returns the new value.
// No other field changes.
func (r *AlertRepository) Toggle(ctx context.Context, category domain.AlertCategory, id uuid.UUID) (bool, error) {
	table, ok := categoryTables[category]
	if !ok {
		return false, fmt.Errorf("unknown alert category: %s", category)
	}

	query := fmt.Sprintf(`UPDATE %s SET enabled = NOT enabled, updated_at = NOW() WHERE id = $1 RETURNING enabled`, table)
	var enabled bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return enabled, nil
}

// ---- Trigger bookkeeping ----

// RecordTrigger appends a TriggeredAlert row and bumps the definition's
// trigger_count and last_triggered_at in a single transaction, so the
// counter always equals the number of history rows.
func (r *AlertRepository) RecordTrigger(ctx context.Context, t *domain.TriggeredAlert) error {
	table, ok := categoryTables[t.Category]
	if !ok {
		return fmt.Errorf("unknown alert category: %s", t.Category)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO triggered_alerts (
			id, alert_id, category, alert_name, severity, triggered_at,
			trigger_reason, anomaly_type, current_value, baseline_value, matched_document_ids
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.Exec(ctx, insert,
		t.ID, t.AlertID, t.Category, t.AlertName, t.Severity, t.TriggeredAt,
		t.TriggerReason, t.AnomalyType, t.CurrentValue, t.BaselineValue, t.MatchedDocumentIDs,
	); err != nil {
		return err
	}

	update := fmt.Sprintf(`
		UPDATE %s
		SET trigger_count = trigger_count + 1, last_triggered_at = $2
		WHERE id = $1
	`, table)
	result, err := tx.Exec(ctx, update, t.AlertID, t.TriggeredAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}

// ListTriggered returns the most recent trigger records across all
// categories, newest first.
func (r *AlertRepository) ListTriggered(ctx context.Context, limit int) ([]*domain.TriggeredAlert, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var records []*domain.TriggeredAlert
	query := `
		SELECT id, alert_id, category, alert_name, severity, triggered_at,
			trigger_reason, anomaly_type, current_value, baseline_value, matched_document_ids
		FROM triggered_alerts
		ORDER BY triggered_at DESC
		LIMIT $1
	`
	if err := pgxscan.Select(ctx, r.db, &records, query, limit); err != nil {
		return nil, err
	}
	return records, nil
}

// CountTriggeredSince counts trigger records newer than the given time,
// optionally restricted to one category.
func (r *AlertRepository) CountTriggeredSince(ctx context.Context, since time.Time, category domain.AlertCategory) (int, error) {
	var count int
	if category == "" {
		err := pgxscan.Get(ctx, r.db, &count,
			`SELECT COUNT(*) FROM triggered_alerts WHERE triggered_at >= $1`, since)
		return count, err
	}
	err := pgxscan.Get(ctx, r.db, &count,
		`SELECT COUNT(*) FROM triggered_alerts WHERE triggered_at >= $1 AND category = $2`, since, category)
	return count, err
}

// AlertStats summarizes alert definitions for the dashboard.
type AlertStats struct {
	TotalDataQuality int            `json:"total_data_quality_alerts"`
	TotalEntityType  int            `json:"total_entity_type_alerts"`
	TotalSmartAI     int            `json:"total_smart_ai_alerts"`
	TotalAlerts      int            `json:"total_alerts"`
	EnabledAlerts    int            `json:"enabled_alerts"`
	TriggeredLast24h int            `json:"triggered_last_24h"`
	BySeverity       map[string]int `json:"by_severity"`
}

// Stats computes alert counts, enabled counts, recent trigger volume and a
// severity breakdown across all three categories.
func (r *AlertRepository) Stats(ctx context.Context) (*AlertStats, error) {
	stats := &AlertStats{BySeverity: map[string]int{
		domain.SeverityLow: 0, domain.SeverityMedium: 0, domain.SeverityHigh: 0, domain.SeverityCritical: 0,
	}}

	type catCount struct {
		Severity string `db:"severity"`
		Enabled  bool   `db:"enabled"`
		N        int    `db:"n"`
	}

	for cat, table := range categoryTables {
		var rows []catCount
		query := fmt.Sprintf(`SELECT severity, enabled, COUNT(*) AS n FROM %s GROUP BY severity, enabled`, table)
		if err := pgxscan.Select(ctx, r.db, &rows, query); err != nil {
			return nil, err
		}
		for _, row := range rows {
			switch cat {
			case domain.CategoryDataQuality:
				stats.TotalDataQuality += row.N
			case domain.CategoryEntityType:
				stats.TotalEntityType += row.N
			case domain.CategorySmartAI:
				stats.TotalSmartAI += row.N
			}
			if row.Enabled {
				stats.EnabledAlerts += row.N
			}
			stats.BySeverity[row.Severity] += row.N
		}
	}
	stats.TotalAlerts = stats.TotalDataQuality + stats.TotalEntityType + stats.TotalSmartAI

	triggered, err := r.CountTriggeredSince(ctx, time.Now().UTC().Add(-24*time.Hour), "")
	if err != nil {
		return nil, err
	}
	stats.TriggeredLast24h = triggered

	return stats, nil
}
