package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// MentionRepository reads entity-mention events and document metadata from
// ClickHouse. All queries are read-only.
type MentionRepository struct {
	conn clickhouse.Conn
}

// NewMentionRepository creates a new mention repository
func NewMentionRepository(conn clickhouse.Conn) *MentionRepository {
	return &MentionRepository{conn: conn}
}

func bucketExpr(agg domain.Aggregation, column string) string {
	if agg == domain.AggregationDaily {
		return "toStartOfDay(" + column + ")"
	}
	return "toStartOfHour(" + column + ")"
}

// MentionBuckets returns per-bucket activity for the given range and filter.
// Only buckets with data are returned; callers zero-fill. TotalCount carries
// the unfiltered document count for the same bucket so downstream detection
// can tell a data gap from a quiet filter.
func (r *MentionRepository) MentionBuckets(
	ctx context.Context,
	from, to time.Time,
	agg domain.Aggregation,
	filter domain.MentionFilter,
) ([]domain.ActivityBucket, error) {
	totals, senders, err := r.documentTotals(ctx, from, to, agg)
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int, len(totals))
	if filter.All() {
		for ts, n := range totals {
			counts[ts] = n
		}
	} else {
		query := `
			SELECT ` + bucketExpr(agg, "occurred_at") + ` AS bucket, uniqExact(document_id) AS cnt
			FROM mentions
			WHERE occurred_at >= ? AND occurred_at < ? AND entity_type = ?
		`
		args := []interface{}{from, to, filter.EntityType}
		if filter.EntityValue != "" {
			query += ` AND entity_value = ?`
			args = append(args, filter.EntityValue)
		}
		query += ` GROUP BY bucket ORDER BY bucket`

		rows, err := r.conn.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var bucket time.Time
			var cnt uint64
			if err := rows.Scan(&bucket, &cnt); err != nil {
				return nil, err
			}
			counts[bucket.UTC()] = int(cnt)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	buckets := make([]domain.ActivityBucket, 0, len(counts))
	for ts, n := range counts {
		buckets = append(buckets, domain.ActivityBucket{
			Timestamp:     ts,
			Count:         n,
			UniqueSenders: senders[ts],
			TotalCount:    totals[ts],
		})
	}
	return buckets, nil
}

// DocumentBuckets returns per-bucket counts restricted to a fixed document
// id set, used for semantically filtered activity.
func (r *MentionRepository) DocumentBuckets(
	ctx context.Context,
	ids []string,
	from, to time.Time,
	agg domain.Aggregation,
) ([]domain.ActivityBucket, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	totals, _, err := r.documentTotals(ctx, from, to, agg)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + bucketExpr(agg, "received_at") + ` AS bucket, count() AS cnt, uniqExact(sender) AS senders
		FROM documents
		WHERE received_at >= ? AND received_at < ? AND id IN (?)
		GROUP BY bucket
		ORDER BY bucket
	`
	rows, err := r.conn.Query(ctx, query, from, to, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []domain.ActivityBucket
	for rows.Next() {
		var bucket time.Time
		var cnt, senders uint64
		if err := rows.Scan(&bucket, &cnt, &senders); err != nil {
			return nil, err
		}
		ts := bucket.UTC()
		buckets = append(buckets, domain.ActivityBucket{
			Timestamp:     ts,
			Count:         int(cnt),
			UniqueSenders: int(senders),
			TotalCount:    totals[ts],
		})
	}
	return buckets, rows.Err()
}

// documentTotals returns unfiltered per-bucket document counts and unique
// sender counts for the range.
func (r *MentionRepository) documentTotals(
	ctx context.Context,
	from, to time.Time,
	agg domain.Aggregation,
) (map[time.Time]int, map[time.Time]int, error) {
	query := `
		SELECT ` + bucketExpr(agg, "received_at") + ` AS bucket, count() AS cnt, uniqExact(sender) AS senders
		FROM documents
		WHERE received_at >= ? AND received_at < ?
		GROUP BY bucket
		ORDER BY bucket
	`
	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	totals := make(map[time.Time]int)
	senders := make(map[time.Time]int)
	for rows.Next() {
		var bucket time.Time
		var cnt, uniq uint64
		if err := rows.Scan(&bucket, &cnt, &uniq); err != nil {
			return nil, nil, err
		}
		totals[bucket.UTC()] = int(cnt)
		senders[bucket.UTC()] = int(uniq)
	}
	return totals, senders, rows.Err()
}

// DocumentIDsForPeriod returns the ids of documents contributing to a
// period under the given entity filter.
func (r *MentionRepository) DocumentIDsForPeriod(
	ctx context.Context,
	from, to time.Time,
	filter domain.MentionFilter,
	limit int,
) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	var query string
	var args []interface{}
	if filter.All() {
		query = `SELECT id FROM documents WHERE received_at >= ? AND received_at < ? ORDER BY received_at LIMIT ?`
		args = []interface{}{from, to, limit}
	} else {
		query = `
			SELECT DISTINCT document_id
			FROM mentions
			WHERE occurred_at >= ? AND occurred_at < ? AND entity_type = ?
		`
		args = []interface{}{from, to, filter.EntityType}
		if filter.EntityValue != "" {
			query += ` AND entity_value = ?`
			args = append(args, filter.EntityValue)
		}
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DateRange returns the earliest and latest document timestamps in the
// corpus.
func (r *MentionRepository) DateRange(ctx context.Context) (time.Time, time.Time, error) {
	var min, max time.Time
	row := r.conn.QueryRow(ctx, `SELECT min(received_at), max(received_at) FROM documents`)
	if err := row.Scan(&min, &max); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return min.UTC(), max.UTC(), nil
}

// EntityValue is one distinct entity with its mention count.
type EntityValue struct {
	Value string `json:"value"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// EntityValues lists the most mentioned entities, optionally restricted to
// one entity type. Used for dashboard dropdowns.
func (r *MentionRepository) EntityValues(ctx context.Context, entityType string, limit int) ([]EntityValue, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT entity_value, entity_type, count() AS cnt
		FROM mentions
	`
	var args []interface{}
	if entityType != "" && entityType != "ALL" {
		query += ` WHERE entity_type = ?`
		args = append(args, entityType)
	}
	query += ` GROUP BY entity_value, entity_type ORDER BY cnt DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []EntityValue
	for rows.Next() {
		var v EntityValue
		var cnt uint64
		if err := rows.Scan(&v.Value, &v.Type, &cnt); err != nil {
			return nil, err
		}
		v.Count = int(cnt)
		values = append(values, v)
	}
	return values, rows.Err()
}
