package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// EventStore is the read side of the mention/document event store.
type EventStore interface {
	MentionBuckets(ctx context.Context, from, to time.Time, agg domain.Aggregation, filter domain.MentionFilter) ([]domain.ActivityBucket, error)
	DocumentBuckets(ctx context.Context, ids []string, from, to time.Time, agg domain.Aggregation) ([]domain.ActivityBucket, error)
	DocumentIDsForPeriod(ctx context.Context, from, to time.Time, filter domain.MentionFilter, limit int) ([]string, error)
	DateRange(ctx context.Context) (time.Time, time.Time, error)
}

// maxActivityPoints caps the series length returned to the dashboard.
// Longer series are thinned by stride sampling.
const maxActivityPoints = 500

// autoDailyThreshold is the range length at which the dashboard switches
// from hourly to daily buckets.
const autoDailyThreshold = 30 * 24 * time.Hour

// ActivityService produces aligned, zero-filled activity time series from
// the event store.
type ActivityService struct {
	events EventStore
	logger *zap.Logger
}

// NewActivityService creates a new activity service
func NewActivityService(events EventStore, logger *zap.Logger) *ActivityService {
	return &ActivityService{events: events, logger: logger}
}

// PickAggregation chooses the bucket granularity for a range: hourly below
// thirty days, daily at or above.
func PickAggregation(from, to time.Time) domain.Aggregation {
	if to.Sub(from) >= autoDailyThreshold {
		return domain.AggregationDaily
	}
	return domain.AggregationHourly
}

// BucketCounts returns one bucket per interval in [from, to), aligned to
// the aggregation boundary and zero-filled where the store had no rows.
func (s *ActivityService) BucketCounts(
	ctx context.Context,
	from, to time.Time,
	agg domain.Aggregation,
	filter domain.MentionFilter,
) ([]domain.ActivityBucket, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	sparse, err := s.events.MentionBuckets(ctx, from, to, agg, filter)
	if err != nil {
		return nil, fmt.Errorf("mention buckets: %w", err)
	}
	return fillBuckets(from, to, agg, sparse), nil
}

// BucketCountsForDocuments is BucketCounts restricted to a fixed document
// id set, used when the series was selected semantically. An empty id set
// yields an all-zero series.
func (s *ActivityService) BucketCountsForDocuments(
	ctx context.Context,
	ids []string,
	from, to time.Time,
	agg domain.Aggregation,
) ([]domain.ActivityBucket, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	var sparse []domain.ActivityBucket
	if len(ids) > 0 {
		var err error
		sparse, err = s.events.DocumentBuckets(ctx, ids, from, to, agg)
		if err != nil {
			return nil, fmt.Errorf("document buckets: %w", err)
		}
	}
	return fillBuckets(from, to, agg, sparse), nil
}

// DocumentIDsForPeriod passes through to the store.
func (s *ActivityService) DocumentIDsForPeriod(
	ctx context.Context,
	from, to time.Time,
	filter domain.MentionFilter,
	limit int,
) ([]string, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.events.DocumentIDsForPeriod(ctx, from, to, filter, limit)
}

// DateRange returns the corpus bounds.
func (s *ActivityService) DateRange(ctx context.Context) (time.Time, time.Time, error) {
	return s.events.DateRange(ctx)
}

func validateRange(from, to time.Time) error {
	if !to.After(from) {
		return fmt.Errorf("%w: range end %s is not after start %s",
			domain.ErrInvalidRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return nil
}

// fillBuckets materialises the full aligned series for [from, to): one
// bucket per interval, zeros where sparse had no entry. The first bucket is
// the one containing from; the last is the one containing to minus one
// interval boundary.
func fillBuckets(from, to time.Time, agg domain.Aggregation, sparse []domain.ActivityBucket) []domain.ActivityBucket {
	byTime := make(map[time.Time]domain.ActivityBucket, len(sparse))
	for _, b := range sparse {
		byTime[agg.Truncate(b.Timestamp)] = b
	}

	width := agg.Width()
	start := agg.Truncate(from)
	end := agg.Truncate(to)
	if end.Before(to.UTC()) {
		end = end.Add(width)
	}

	n := int(end.Sub(start) / width)
	out := make([]domain.ActivityBucket, 0, n)
	for ts := start; ts.Before(end); ts = ts.Add(width) {
		if b, ok := byTime[ts]; ok {
			b.Timestamp = ts
			out = append(out, b)
		} else {
			out = append(out, domain.ActivityBucket{Timestamp: ts})
		}
	}
	return out
}

// strideSample thins a series down to at most max points, keeping every
// k-th bucket. Series at or under the cap come back untouched.
func strideSample(buckets []domain.ActivityBucket, max int) []domain.ActivityBucket {
	if max <= 0 || len(buckets) <= max {
		return buckets
	}
	stride := (len(buckets) + max - 1) / max
	out := make([]domain.ActivityBucket, 0, max)
	for i := 0; i < len(buckets); i += stride {
		out = append(out, buckets[i])
	}
	return out
}
