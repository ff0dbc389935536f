package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertCategory identifies which evaluator handles an alert.
type AlertCategory string

const (
	CategoryDataQuality AlertCategory = "data_quality"
	CategoryEntityType  AlertCategory = "entity_type"
	CategorySmartAI     AlertCategory = "smart_ai"
)

// Severity levels, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Detection algorithms for entity-type and smart-AI alerts.
const (
	AlgorithmDBSCAN = "dbscan"
	AlgorithmKMeans = "kmeans"
)

// Data-quality issue classes checked against the ingestion log.
const (
	QualityFormatError   = "format_error"
	QualityMissingFields = "missing_fields"
	QualityEncodingIssue = "encoding_issue"
	QualitySizeLimit     = "size_limit"
	QualityCorruption    = "corruption"
	QualityDuplicateData = "duplicate_data"
)

// Anomaly types attached to flagged buckets and trigger records.
const (
	AnomalySpike          = "spike"
	AnomalySilence        = "silence"
	AnomalyUnusualPattern = "unusual_pattern"
	AnomalyDataGap        = "data_gap"
)

// DataQualityAlert monitors the ingestion log for import problems.
type DataQualityAlert struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	QualityType string  `json:"quality_type" db:"quality_type"`
	FileFormat  string  `json:"file_format" db:"file_format"` // all, csv, eml, pst, json, xml
	FileSizeMin *int64  `json:"file_size_min,omitempty" db:"file_size_min"`
	FileSizeMax *int64  `json:"file_size_max,omitempty" db:"file_size_max"`

	Severity string `json:"severity" db:"severity"`
	Enabled  bool   `json:"enabled" db:"enabled"`

	TriggerCount    int        `json:"trigger_count" db:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// EntityTypeAlert monitors entity-mention volume with clustering-based
// anomaly detection over time-bucketed counts.
type EntityTypeAlert struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	EntityType  string  `json:"entity_type" db:"entity_type"` // PERSON, ORG, GPE, ... or ALL
	EntityValue *string `json:"entity_value,omitempty" db:"entity_value"`

	DetectionAlgorithm string  `json:"detection_algorithm" db:"detection_algorithm"`
	DBSCANEps          float64 `json:"dbscan_eps" db:"dbscan_eps"`
	DBSCANMinSamples   int     `json:"dbscan_min_samples" db:"dbscan_min_samples"`
	KMeansClusters     int     `json:"kmeans_clusters" db:"kmeans_clusters"`
	Sensitivity        float64 `json:"sensitivity" db:"sensitivity"`

	WindowHours  int `json:"window_hours" db:"window_hours"`
	BaselineDays int `json:"baseline_days" db:"baseline_days"`

	Severity string `json:"severity" db:"severity"`
	Enabled  bool   `json:"enabled" db:"enabled"`

	TriggerCount    int        `json:"trigger_count" db:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SmartAIAlert matches documents semantically against a natural-language
// description and runs the matched activity through anomaly detection.
type SmartAIAlert struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"` // used as the semantic query

	DetectionAlgorithm  string  `json:"detection_algorithm" db:"detection_algorithm"`
	SimilarityThreshold float64 `json:"similarity_threshold" db:"similarity_threshold"`

	Severity string `json:"severity" db:"severity"`
	Enabled  bool   `json:"enabled" db:"enabled"`

	TriggerCount    int        `json:"trigger_count" db:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TriggeredAlert is an immutable history entry written once per trigger.
// Rows are append-only and survive deletion of the alert definition.
type TriggeredAlert struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	AlertID       uuid.UUID     `json:"alert_id" db:"alert_id"`
	Category      AlertCategory `json:"category" db:"category"`
	AlertName     string        `json:"alert_name" db:"alert_name"`
	Severity      string        `json:"severity" db:"severity"`
	TriggeredAt   time.Time     `json:"triggered_at" db:"triggered_at"`
	TriggerReason string        `json:"trigger_reason" db:"trigger_reason"`
	AnomalyType   *string       `json:"anomaly_type,omitempty" db:"anomaly_type"`

	CurrentValue  *float64 `json:"current_value,omitempty" db:"current_value"`
	BaselineValue *float64 `json:"baseline_value,omitempty" db:"baseline_value"`

	MatchedDocumentIDs []string `json:"matched_document_ids,omitempty" db:"matched_document_ids"`
}

// EvaluationOutcome reports how a single evaluation ended.
type EvaluationOutcome string

const (
	OutcomeOK          EvaluationOutcome = "ok"
	OutcomeTimedOut    EvaluationOutcome = "timed_out"
	OutcomeUnavailable EvaluationOutcome = "unavailable"
	OutcomeError       EvaluationOutcome = "error"
)

// DataQualityIssue describes one problem found in the ingestion log.
type DataQualityIssue struct {
	FileName        string `json:"file_name"`
	ErrorType       string `json:"error_type"`
	ErrorDetails    string `json:"error_details"`
	AffectedRecords int    `json:"affected_records"`
}

// EvaluationResult is the outcome of evaluating one alert.
type EvaluationResult struct {
	AlertID   uuid.UUID     `json:"alert_id"`
	Category  AlertCategory `json:"category"`
	AlertName string        `json:"alert_name"`

	Triggered     bool    `json:"triggered"`
	TriggerReason string  `json:"trigger_reason,omitempty"`
	AnomalyType   *string `json:"anomaly_type,omitempty"`

	// Entity-type / smart-AI diagnostics
	CurrentValue  float64 `json:"current_value,omitempty"`
	BaselineValue float64 `json:"baseline_value,omitempty"`
	AnomalyScore  float64 `json:"anomaly_score,omitempty"`
	Algorithm     string  `json:"algorithm,omitempty"`

	// Data-quality diagnostics
	Issues []DataQualityIssue `json:"issues,omitempty"`

	// Smart-AI diagnostics
	MatchedDocuments   int      `json:"matched_documents,omitempty"`
	MatchedDocumentIDs []string `json:"matched_document_ids,omitempty"`

	Outcome     EvaluationOutcome `json:"outcome"`
	Error       string            `json:"error,omitempty"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// EvaluationSummary aggregates a batch run across all categories.
type EvaluationSummary struct {
	Evaluated int                `json:"evaluated"`
	Triggered int                `json:"triggered"`
	Failed    int                `json:"failed"`
	Results   []EvaluationResult `json:"results"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
}
