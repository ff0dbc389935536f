package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// fakeEventStore serves canned buckets and records the requested ranges.
type fakeEventStore struct {
	buckets    []domain.ActivityBucket
	docBuckets []domain.ActivityBucket
	ids        []string
	err        error

	// When set, MentionBuckets hangs until the context is cancelled.
	blockUntilDone bool

	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeEventStore) MentionBuckets(ctx context.Context, from, to time.Time, agg domain.Aggregation, filter domain.MentionFilter) ([]domain.ActivityBucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.blockUntilDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.lastFrom, f.lastTo = from, to
	return f.buckets, nil
}

func (f *fakeEventStore) DocumentBuckets(ctx context.Context, ids []string, from, to time.Time, agg domain.Aggregation) ([]domain.ActivityBucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docBuckets, nil
}

func (f *fakeEventStore) DocumentIDsForPeriod(ctx context.Context, from, to time.Time, filter domain.MentionFilter, limit int) ([]string, error) {
	return f.ids, nil
}

func (f *fakeEventStore) DateRange(ctx context.Context) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, nil
}

func TestBucketCountsInvalidRange(t *testing.T) {
	svc := NewActivityService(&fakeEventStore{}, zap.NewNop())
	now := time.Now().UTC()

	_, err := svc.BucketCounts(context.Background(), now, now, domain.AggregationHourly, domain.MentionFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = svc.BucketCounts(context.Background(), now, now.Add(-time.Hour), domain.AggregationHourly, domain.MentionFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestBucketCountsZeroFills(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(6 * time.Hour)

	store := &fakeEventStore{
		buckets: []domain.ActivityBucket{
			{Timestamp: from.Add(1 * time.Hour), Count: 4, TotalCount: 10},
			{Timestamp: from.Add(4 * time.Hour), Count: 2, TotalCount: 8},
		},
	}
	svc := NewActivityService(store, zap.NewNop())

	buckets, err := svc.BucketCounts(context.Background(), from, to, domain.AggregationHourly, domain.MentionFilter{})
	require.NoError(t, err)
	require.Len(t, buckets, 6)

	for i, b := range buckets {
		assert.Equal(t, from.Add(time.Duration(i)*time.Hour), b.Timestamp)
	}
	assert.Equal(t, 0, buckets[0].Count)
	assert.Equal(t, 4, buckets[1].Count)
	assert.Equal(t, 0, buckets[2].Count)
	assert.Equal(t, 2, buckets[4].Count)
	assert.Equal(t, 0, buckets[5].Count)
}

func TestFillBucketsAlignsUnevenRange(t *testing.T) {
	// Range starts and ends mid-hour; buckets snap to hour boundaries.
	from := time.Date(2026, 8, 1, 10, 25, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 13, 5, 0, 0, time.UTC)

	buckets := fillBuckets(from, to, domain.AggregationHourly, nil)

	require.Len(t, buckets, 4)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), buckets[0].Timestamp)
	assert.Equal(t, time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC), buckets[3].Timestamp)
}

func TestFillBucketsDaily(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	sparse := []domain.ActivityBucket{
		{Timestamp: from.AddDate(0, 0, 2), Count: 12},
	}
	buckets := fillBuckets(from, to, domain.AggregationDaily, sparse)

	require.Len(t, buckets, 7)
	assert.Equal(t, 12, buckets[2].Count)
	assert.Equal(t, 0, buckets[0].Count)
}

func TestBucketCountsForDocumentsEmptyIDs(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(3 * time.Hour)
	svc := NewActivityService(&fakeEventStore{}, zap.NewNop())

	buckets, err := svc.BucketCountsForDocuments(context.Background(), nil, from, to, domain.AggregationHourly)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	for _, b := range buckets {
		assert.Zero(t, b.Count)
	}
}

func TestPickAggregation(t *testing.T) {
	now := time.Now().UTC()

	assert.Equal(t, domain.AggregationHourly, PickAggregation(now.AddDate(0, 0, -7), now))
	assert.Equal(t, domain.AggregationHourly, PickAggregation(now.AddDate(0, 0, -29), now))
	assert.Equal(t, domain.AggregationDaily, PickAggregation(now.AddDate(0, 0, -30), now))
	assert.Equal(t, domain.AggregationDaily, PickAggregation(now.AddDate(0, -6, 0), now))
}

func TestStrideSample(t *testing.T) {
	buckets := make([]domain.ActivityBucket, 1000)
	for i := range buckets {
		buckets[i].Count = i
	}

	sampled := strideSample(buckets, 500)
	assert.LessOrEqual(t, len(sampled), 500)
	assert.Equal(t, 0, sampled[0].Count)

	// Under the cap the series is untouched.
	small := buckets[:100]
	assert.Equal(t, small, strideSample(small, 500))
}

func TestAggregationTruncate(t *testing.T) {
	ts := time.Date(2026, 8, 15, 13, 45, 12, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 15, 13, 0, 0, 0, time.UTC), domain.AggregationHourly.Truncate(ts))
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), domain.AggregationDaily.Truncate(ts))
	assert.Equal(t, time.Hour, domain.AggregationHourly.Width())
	assert.Equal(t, 24*time.Hour, domain.AggregationDaily.Width())
}
