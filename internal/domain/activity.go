package domain

import "time"

// Aggregation is the bucket granularity used for activity time series.
type Aggregation string

const (
	AggregationHourly Aggregation = "hourly"
	AggregationDaily  Aggregation = "daily"
)

// Width returns the bucket width for the aggregation level.
func (a Aggregation) Width() time.Duration {
	if a == AggregationDaily {
		return 24 * time.Hour
	}
	return time.Hour
}

// Truncate aligns t down to the start of its bucket, in UTC.
func (a Aggregation) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if a == AggregationDaily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Hour)
}

// ActivityBucket is one raw time bucket of mention activity. TotalCount is
// the unfiltered event count for the same interval; a zero TotalCount means
// the store received no data at all for the bucket, which distinguishes a
// data gap from a legitimately quiet filter.
type ActivityBucket struct {
	Timestamp     time.Time `json:"timestamp"`
	Count         int       `json:"count"`
	UniqueSenders int       `json:"unique_senders"`
	TotalCount    int       `json:"total_count"`
}

// ActivityPoint is a bucket enriched with anomaly detection results, as
// rendered by the dashboard.
type ActivityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	EmailCount    int       `json:"email_count"`
	UniqueSenders int       `json:"unique_senders"`
	IsAnomaly     bool      `json:"is_anomaly"`
	AnomalyType   *string   `json:"anomaly_type"`
	AnomalyScore  float64   `json:"anomaly_score"`
	ClusterLabel  int       `json:"cluster_label"`
	BaselineValue float64   `json:"baseline_value"`
}

// MentionFilter restricts activity queries to an entity type and/or a
// specific entity value. A nil or ALL entity type matches everything.
type MentionFilter struct {
	EntityType  string
	EntityValue string
}

// All reports whether the filter matches the whole corpus.
func (f MentionFilter) All() bool {
	return f.EntityType == "" || f.EntityType == "ALL"
}

// Document is the read-model of a stored document, as returned for
// dashboard drill-down.
type Document struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	Recipients     []string  `json:"recipients"`
	ReceivedAt     time.Time `json:"received_at"`
	Preview        string    `json:"body_preview"`
	Entities       []Entity  `json:"entities,omitempty"`
	RelevanceScore float64   `json:"relevance_score,omitempty"`
}

// Entity is a single extracted entity mention.
type Entity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SemanticMatch is one candidate document returned by the semantic-match
// collaborator, with its similarity score in [0,1].
type SemanticMatch struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// ImportRecord is one entry in the ingestion log consumed by data-quality
// checks.
type ImportRecord struct {
	ID              int64     `json:"id" db:"id"`
	FileName        string    `json:"file_name" db:"file_name"`
	FileFormat      string    `json:"file_format" db:"file_format"`
	FileSize        int64     `json:"file_size" db:"file_size"`
	ErrorType       *string   `json:"error_type,omitempty" db:"error_type"`
	ErrorDetails    *string   `json:"error_details,omitempty" db:"error_details"`
	AffectedRecords int       `json:"affected_records" db:"affected_records"`
	ImportedAt      time.Time `json:"imported_at" db:"imported_at"`
}
