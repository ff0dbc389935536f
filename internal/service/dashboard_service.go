package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/repository/clickhouse"
)

// DocumentStore reads document rows for dashboard drill-down.
type DocumentStore interface {
	DocumentsByIDs(ctx context.Context, ids []string, from, to time.Time, limit int) ([]*domain.Document, error)
	DocumentsForPeriod(ctx context.Context, from, to time.Time, filter domain.MentionFilter, limit int) ([]*domain.Document, error)
}

// EntityLister lists distinct entities for dashboard dropdowns.
type EntityLister interface {
	EntityValues(ctx context.Context, entityType string, limit int) ([]clickhouse.EntityValue, error)
}

// ActivityRequest describes one dashboard activity query. Exactly one of
// the entity filter or SearchQuery selects the series; with neither set the
// whole corpus is charted.
type ActivityRequest struct {
	From time.Time
	To   time.Time

	EntityType  string
	EntityValue string

	SearchQuery         string
	SimilarityThreshold float64

	Aggregation domain.Aggregation // picked automatically when empty

	Algorithm   string
	Eps         float64
	MinSamples  int
	Clusters    int
	Sensitivity float64
}

// ActivityResponse is the dashboard activity feed.
type ActivityResponse struct {
	Points       []domain.ActivityPoint `json:"points"`
	Aggregation  domain.Aggregation     `json:"aggregation"`
	TotalCount   int                    `json:"total_count"`
	AnomalyCount int                    `json:"anomaly_count"`
	Baseline     float64                `json:"baseline"`
}

// DashboardService answers read-only dashboard queries. It runs the same
// aggregation and detection as alert evaluation but never writes trigger
// history.
type DashboardService struct {
	activity *ActivityService
	docs     DocumentStore
	entities EntityLister
	matcher  SemanticMatcher
	rules    RuleStore
	logger   *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	activity *ActivityService,
	docs DocumentStore,
	entities EntityLister,
	matcher SemanticMatcher,
	rules RuleStore,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		activity: activity,
		docs:     docs,
		entities: entities,
		matcher:  matcher,
		rules:    rules,
		logger:   logger,
	}
}

// Activity builds the annotated activity series for the requested range and
// filter. The baseline shown is the mean of the non-anomalous buckets.
func (s *DashboardService) Activity(ctx context.Context, req ActivityRequest) (*ActivityResponse, error) {
	agg := req.Aggregation
	if agg == "" {
		agg = PickAggregation(req.From, req.To)
	}

	buckets, err := s.selectBuckets(ctx, req, agg)
	if err != nil {
		return nil, err
	}
	buckets = strideSample(buckets, maxActivityPoints)

	counts := make([]float64, len(buckets))
	for i, b := range buckets {
		counts[i] = float64(b.Count)
	}

	p := dashboardDetectionParams(req)
	var flags []bool
	var labels []int
	switch p.algorithm {
	case domain.AlgorithmKMeans:
		flags, labels = detectKMeans(counts, p.clusters, p.sensitivity)
	default:
		eps := p.eps
		if p.sensitivity > 0 {
			eps = p.eps / p.sensitivity
		}
		flags, labels = detectDBSCAN(counts, eps, p.minSamples)
	}

	baseline := baselineOfNormal(counts, flags)
	scores := anomalyScores(counts, estimateBaseline(counts))

	resp := &ActivityResponse{
		Points:      make([]domain.ActivityPoint, len(buckets)),
		Aggregation: agg,
		Baseline:    baseline,
	}
	for i, b := range buckets {
		point := domain.ActivityPoint{
			Timestamp:     b.Timestamp,
			EmailCount:    b.Count,
			UniqueSenders: b.UniqueSenders,
			IsAnomaly:     flags[i],
			AnomalyScore:  scores[i],
			ClusterLabel:  labels[i],
			BaselineValue: baseline,
		}
		if flags[i] {
			prevEmpty := i > 0 && buckets[i-1].TotalCount == 0
			at := classifyAnomaly(counts[i], baseline, b.TotalCount == 0, prevEmpty)
			point.AnomalyType = &at
			resp.AnomalyCount++
		}
		resp.TotalCount += b.Count
		resp.Points[i] = point
	}
	return resp, nil
}

// DataPointDocuments returns the documents behind one activity bucket,
// honoring the same entity or semantic filter as the series itself.
func (s *DashboardService) DataPointDocuments(
	ctx context.Context,
	ts time.Time,
	agg domain.Aggregation,
	req ActivityRequest,
	limit int,
) ([]*domain.Document, error) {
	if agg == "" {
		agg = domain.AggregationHourly
	}
	from := agg.Truncate(ts)
	to := from.Add(agg.Width())

	if req.SearchQuery != "" {
		matches, err := s.semanticMatches(ctx, req, from, to)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, nil
		}
		ids := make([]string, len(matches))
		scoreByID := make(map[string]float64, len(matches))
		for i, m := range matches {
			ids[i] = m.DocumentID
			scoreByID[m.DocumentID] = m.Score
		}
		docs, err := s.docs.DocumentsByIDs(ctx, ids, from, to, limit)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			d.RelevanceScore = scoreByID[d.ID]
		}
		return docs, nil
	}

	filter := domain.MentionFilter{EntityType: req.EntityType, EntityValue: req.EntityValue}
	return s.docs.DocumentsForPeriod(ctx, from, to, filter, limit)
}

// RecentTriggers returns trigger history across all categories, newest
// first.
func (s *DashboardService) RecentTriggers(ctx context.Context, limit int) ([]*domain.TriggeredAlert, error) {
	return s.rules.ListTriggered(ctx, limit)
}

// EntityValues lists the most mentioned entities for dropdowns.
func (s *DashboardService) EntityValues(ctx context.Context, entityType string, limit int) ([]clickhouse.EntityValue, error) {
	return s.entities.EntityValues(ctx, entityType, limit)
}

// DateRange returns the corpus bounds.
func (s *DashboardService) DateRange(ctx context.Context) (time.Time, time.Time, error) {
	return s.activity.DateRange(ctx)
}

func (s *DashboardService) selectBuckets(ctx context.Context, req ActivityRequest, agg domain.Aggregation) ([]domain.ActivityBucket, error) {
	if req.SearchQuery != "" {
		matches, err := s.semanticMatches(ctx, req, req.From, req.To)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.DocumentID
		}
		return s.activity.BucketCountsForDocuments(ctx, ids, req.From, req.To, agg)
	}

	filter := domain.MentionFilter{EntityType: req.EntityType, EntityValue: req.EntityValue}
	return s.activity.BucketCounts(ctx, req.From, req.To, agg, filter)
}

func (s *DashboardService) semanticMatches(ctx context.Context, req ActivityRequest, from, to time.Time) ([]domain.SemanticMatch, error) {
	threshold := req.SimilarityThreshold
	if threshold == 0 {
		threshold = 0.7
	}
	matches, err := s.matcher.Match(ctx, req.SearchQuery, threshold, from, to)
	if err != nil {
		return nil, fmt.Errorf("semantic match: %w", err)
	}
	return matches, nil
}

func dashboardDetectionParams(req ActivityRequest) detectionParams {
	p := detectionParams{
		algorithm:   req.Algorithm,
		eps:         req.Eps,
		minSamples:  req.MinSamples,
		clusters:    req.Clusters,
		sensitivity: req.Sensitivity,
	}
	if p.algorithm == "" {
		p.algorithm = domain.AlgorithmDBSCAN
	}
	if p.eps <= 0 {
		p.eps = 0.5
	}
	if p.minSamples <= 0 {
		p.minSamples = 5
	}
	if p.clusters <= 0 {
		p.clusters = 3
	}
	if p.sensitivity <= 0 {
		p.sensitivity = 2.0
	}
	return p
}
