package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/repository/postgres"
)

// fakeRuleStore is an in-memory RuleStore.
type fakeRuleStore struct {
	mu       sync.Mutex
	dq       map[uuid.UUID]*domain.DataQualityAlert
	et       map[uuid.UUID]*domain.EntityTypeAlert
	sa       map[uuid.UUID]*domain.SmartAIAlert
	triggers []*domain.TriggeredAlert

	// listErr fails ListDataQuality; with failFirst > 0 only the first
	// failFirst calls fail.
	listErr   error
	failFirst int
	listCalls int
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{
		dq: make(map[uuid.UUID]*domain.DataQualityAlert),
		et: make(map[uuid.UUID]*domain.EntityTypeAlert),
		sa: make(map[uuid.UUID]*domain.SmartAIAlert),
	}
}

func (f *fakeRuleStore) CreateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dq[a.ID] = a
	return nil
}

func (f *fakeRuleStore) GetDataQuality(ctx context.Context, id uuid.UUID) (*domain.DataQualityAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.dq[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeRuleStore) ListDataQuality(ctx context.Context, opts *postgres.ListOptions) ([]*domain.DataQualityAlert, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil && (f.failFirst == 0 || f.listCalls <= f.failFirst) {
		return nil, 0, f.listErr
	}
	var out []*domain.DataQualityAlert
	for _, a := range f.dq {
		if opts != nil && opts.EnabledOnly && !a.Enabled {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeRuleStore) UpdateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dq[a.ID]; !ok {
		return domain.ErrNotFound
	}
	f.dq[a.ID] = a
	return nil
}

func (f *fakeRuleStore) DeleteDataQuality(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dq[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.dq, id)
	return nil
}

func (f *fakeRuleStore) CreateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.et[a.ID] = a
	return nil
}

func (f *fakeRuleStore) GetEntityType(ctx context.Context, id uuid.UUID) (*domain.EntityTypeAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.et[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeRuleStore) ListEntityType(ctx context.Context, opts *postgres.ListOptions) ([]*domain.EntityTypeAlert, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.EntityTypeAlert
	for _, a := range f.et {
		if opts != nil && opts.EnabledOnly && !a.Enabled {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeRuleStore) UpdateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.et[a.ID]; !ok {
		return domain.ErrNotFound
	}
	f.et[a.ID] = a
	return nil
}

func (f *fakeRuleStore) DeleteEntityType(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.et[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.et, id)
	return nil
}

func (f *fakeRuleStore) CreateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sa[a.ID] = a
	return nil
}

func (f *fakeRuleStore) GetSmartAI(ctx context.Context, id uuid.UUID) (*domain.SmartAIAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.sa[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeRuleStore) ListSmartAI(ctx context.Context, opts *postgres.ListOptions) ([]*domain.SmartAIAlert, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SmartAIAlert
	for _, a := range f.sa {
		if opts != nil && opts.EnabledOnly && !a.Enabled {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeRuleStore) UpdateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sa[a.ID]; !ok {
		return domain.ErrNotFound
	}
	f.sa[a.ID] = a
	return nil
}

func (f *fakeRuleStore) DeleteSmartAI(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sa[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sa, id)
	return nil
}

func (f *fakeRuleStore) Toggle(ctx context.Context, category domain.AlertCategory, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch category {
	case domain.CategoryDataQuality:
		if a, ok := f.dq[id]; ok {
			a.Enabled = !a.Enabled
			return a.Enabled, nil
		}
	case domain.CategoryEntityType:
		if a, ok := f.et[id]; ok {
			a.Enabled = !a.Enabled
			return a.Enabled, nil
		}
	case domain.CategorySmartAI:
		if a, ok := f.sa[id]; ok {
			a.Enabled = !a.Enabled
			return a.Enabled, nil
		}
	}
	return false, domain.ErrNotFound
}

func (f *fakeRuleStore) RecordTrigger(ctx context.Context, t *domain.TriggeredAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, t)
	now := t.TriggeredAt
	switch t.Category {
	case domain.CategoryDataQuality:
		if a, ok := f.dq[t.AlertID]; ok {
			a.TriggerCount++
			a.LastTriggeredAt = &now
		}
	case domain.CategoryEntityType:
		if a, ok := f.et[t.AlertID]; ok {
			a.TriggerCount++
			a.LastTriggeredAt = &now
		}
	case domain.CategorySmartAI:
		if a, ok := f.sa[t.AlertID]; ok {
			a.TriggerCount++
			a.LastTriggeredAt = &now
		}
	}
	return nil
}

func (f *fakeRuleStore) ListTriggered(ctx context.Context, limit int) ([]*domain.TriggeredAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.TriggeredAlert, 0, len(f.triggers))
	for i := len(f.triggers) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.triggers[i])
	}
	return out, nil
}

func (f *fakeRuleStore) CountTriggeredSince(ctx context.Context, since time.Time, category domain.AlertCategory) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.triggers {
		if t.Category == category && !t.TriggeredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRuleStore) Stats(ctx context.Context) (*postgres.AlertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &postgres.AlertStats{
		TotalDataQuality: len(f.dq),
		TotalEntityType:  len(f.et),
		TotalSmartAI:     len(f.sa),
		TotalAlerts:      len(f.dq) + len(f.et) + len(f.sa),
	}, nil
}

type fakeImportStore struct {
	records []*domain.ImportRecord
	err     error
}

func (f *fakeImportStore) ListFailedSince(ctx context.Context, since time.Time, filter postgres.ImportFilter, limit int) ([]*domain.ImportRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeMatcher struct {
	matches []domain.SemanticMatch
	err     error
}

func (f *fakeMatcher) Match(ctx context.Context, query string, threshold float64, from, to time.Time) ([]domain.SemanticMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeNotifier struct {
	ch chan *domain.TriggeredAlert
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan *domain.TriggeredAlert, 8)}
}

func (f *fakeNotifier) NotifyTrigger(ctx context.Context, t *domain.TriggeredAlert) {
	select {
	case f.ch <- t:
	default:
	}
}

type alertFixture struct {
	rules    *fakeRuleStore
	imports  *fakeImportStore
	events   *fakeEventStore
	matcher  *fakeMatcher
	notifier *fakeNotifier
	svc      *AlertService
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	f := &alertFixture{
		rules:    newFakeRuleStore(),
		imports:  &fakeImportStore{},
		events:   &fakeEventStore{},
		matcher:  &fakeMatcher{},
		notifier: newFakeNotifier(),
	}
	activity := NewActivityService(f.events, zap.NewNop())
	cfg := config.SchedulerConfig{
		EvaluationTimeout:  5 * time.Second,
		MaxParallel:        2,
		MinSmartMatchCount: 5,
	}
	f.svc = NewAlertService(f.rules, f.imports, activity, f.matcher, f.notifier, cfg, zap.NewNop())
	return f
}

func validationFields(t *testing.T, err error) map[string]bool {
	t.Helper()
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make(map[string]bool, len(verrs))
	for _, e := range verrs {
		fields[e.Field] = true
	}
	return fields
}

func TestCreateDataQualityAlertValidation(t *testing.T) {
	f := newAlertFixture(t)

	err := f.svc.CreateDataQualityAlert(context.Background(), &domain.DataQualityAlert{
		Severity:    "urgent",
		QualityType: "bogus",
	})
	fields := validationFields(t, err)
	assert.True(t, fields["name"])
	assert.True(t, fields["severity"])
	assert.True(t, fields["quality_type"])
	assert.Empty(t, f.rules.dq)
}

func TestCreateDataQualityAlertFileSizeBounds(t *testing.T) {
	f := newAlertFixture(t)
	min, max := int64(1000), int64(10)

	err := f.svc.CreateDataQualityAlert(context.Background(), &domain.DataQualityAlert{
		Name:        "oversized imports",
		Severity:    domain.SeverityLow,
		QualityType: domain.QualitySizeLimit,
		FileSizeMin: &min,
		FileSizeMax: &max,
	})
	fields := validationFields(t, err)
	assert.True(t, fields["file_size_max"])
}

func TestCreateEntityTypeAlertValidation(t *testing.T) {
	f := newAlertFixture(t)

	err := f.svc.CreateEntityTypeAlert(context.Background(), &domain.EntityTypeAlert{
		Name:               "out of range",
		Severity:           domain.SeverityHigh,
		EntityType:         "ANIMAL",
		DetectionAlgorithm: domain.AlgorithmDBSCAN,
		DBSCANEps:          7,
		DBSCANMinSamples:   25,
		KMeansClusters:     1,
		Sensitivity:        9,
		WindowHours:        5,
		BaselineDays:       40,
	})
	fields := validationFields(t, err)
	assert.True(t, fields["entity_type"])
	assert.True(t, fields["dbscan_eps"])
	assert.True(t, fields["dbscan_min_samples"])
	assert.True(t, fields["kmeans_clusters"])
	assert.True(t, fields["sensitivity"])
	assert.True(t, fields["window_hours"])
	assert.True(t, fields["baseline_days"])
	assert.Empty(t, f.rules.et)
}

func TestCreateEntityTypeAlertDefaults(t *testing.T) {
	f := newAlertFixture(t)

	a := &domain.EntityTypeAlert{Name: "all activity", Severity: domain.SeverityMedium}
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), a))

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, "ALL", a.EntityType)
	assert.Equal(t, domain.AlgorithmDBSCAN, a.DetectionAlgorithm)
	assert.Equal(t, 0.5, a.DBSCANEps)
	assert.Equal(t, 5, a.DBSCANMinSamples)
	assert.Equal(t, 3, a.KMeansClusters)
	assert.Equal(t, 2.0, a.Sensitivity)
	assert.Equal(t, 24, a.WindowHours)
	assert.Equal(t, 7, a.BaselineDays)
	assert.Len(t, f.rules.et, 1)
}

func TestCreateSmartAIAlertValidation(t *testing.T) {
	f := newAlertFixture(t)

	err := f.svc.CreateSmartAIAlert(context.Background(), &domain.SmartAIAlert{
		Name:                "no query",
		Severity:            domain.SeverityLow,
		SimilarityThreshold: 0.2,
	})
	fields := validationFields(t, err)
	assert.True(t, fields["description"])
	assert.True(t, fields["similarity_threshold"])
}

func TestCreateSmartAIAlertDefaults(t *testing.T) {
	f := newAlertFixture(t)

	a := &domain.SmartAIAlert{
		Name:        "wire transfers",
		Description: "large unexpected wire transfers",
		Severity:    domain.SeverityHigh,
	}
	require.NoError(t, f.svc.CreateSmartAIAlert(context.Background(), a))
	assert.Equal(t, 0.7, a.SimilarityThreshold)
	assert.Equal(t, domain.AlgorithmDBSCAN, a.DetectionAlgorithm)
}

func TestToggleAlert(t *testing.T) {
	f := newAlertFixture(t)
	a := &domain.EntityTypeAlert{Name: "toggle me", Severity: domain.SeverityLow, Enabled: true}
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), a))

	enabled, err := f.svc.ToggleAlert(context.Background(), domain.CategoryEntityType, a.ID)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = f.svc.ToggleAlert(context.Background(), domain.CategoryEntityType, a.ID)
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = f.svc.ToggleAlert(context.Background(), domain.CategoryEntityType, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluateDataQualityMatchesErrorType(t *testing.T) {
	f := newAlertFixture(t)
	formatErr := domain.QualityFormatError
	corruption := domain.QualityCorruption
	details := "unterminated quoted field"
	f.imports.records = []*domain.ImportRecord{
		{FileName: "batch-17.csv", ErrorType: &formatErr, ErrorDetails: &details, AffectedRecords: 42},
		{FileName: "mbox-3.pst", ErrorType: &corruption, AffectedRecords: 7},
		{FileName: "clean.eml"},
	}

	a := &domain.DataQualityAlert{
		Name:        "csv format failures",
		Severity:    domain.SeverityMedium,
		QualityType: domain.QualityFormatError,
		Enabled:     true,
	}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategoryDataQuality, a.ID)
	require.NoError(t, err)

	assert.True(t, result.Triggered)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "batch-17.csv", result.Issues[0].FileName)
	assert.Equal(t, 42, result.Issues[0].AffectedRecords)
	assert.Equal(t, details, result.Issues[0].ErrorDetails)

	require.Len(t, f.rules.triggers, 1)
	trigger := f.rules.triggers[0]
	assert.Equal(t, a.ID, trigger.AlertID)
	assert.Equal(t, domain.SeverityMedium, trigger.Severity)
	assert.Nil(t, trigger.CurrentValue)
	assert.Equal(t, 1, f.rules.dq[a.ID].TriggerCount)
}

func TestEvaluateDataQualityNoMatches(t *testing.T) {
	f := newAlertFixture(t)
	corruption := domain.QualityCorruption
	f.imports.records = []*domain.ImportRecord{
		{FileName: "mbox-3.pst", ErrorType: &corruption},
	}

	a := &domain.DataQualityAlert{
		Name:        "encoding failures",
		Severity:    domain.SeverityLow,
		QualityType: domain.QualityEncodingIssue,
		Enabled:     true,
	}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategoryDataQuality, a.ID)
	require.NoError(t, err)
	assert.False(t, result.Triggered)
	assert.Empty(t, f.rules.triggers)
	assert.Equal(t, domain.OutcomeOK, result.Outcome)
}

func TestEvaluateEntityTypeSpike(t *testing.T) {
	f := newAlertFixture(t)

	// One loud hour against an otherwise silent two-day series.
	spikeAt := domain.AggregationHourly.Truncate(time.Now().UTC().Add(-time.Hour))
	f.events.buckets = []domain.ActivityBucket{
		{Timestamp: spikeAt, Count: 40, UniqueSenders: 12, TotalCount: 55},
	}
	f.events.ids = []string{"doc-77", "doc-78"}

	a := &domain.EntityTypeAlert{
		Name:               "person mentions",
		Severity:           domain.SeverityHigh,
		EntityType:         "PERSON",
		DetectionAlgorithm: domain.AlgorithmDBSCAN,
		DBSCANEps:          2.0,
		DBSCANMinSamples:   5,
		Sensitivity:        1.0,
		WindowHours:        24,
		BaselineDays:       1,
		Enabled:            true,
	}
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategoryEntityType, a.ID)
	require.NoError(t, err)

	assert.True(t, result.Triggered)
	require.NotNil(t, result.AnomalyType)
	assert.Equal(t, domain.AnomalySpike, *result.AnomalyType)
	assert.Greater(t, result.CurrentValue, 0.0)
	assert.Zero(t, result.BaselineValue)
	assert.Contains(t, result.TriggerReason, "PERSON")

	assert.Equal(t, []string{"doc-77", "doc-78"}, result.MatchedDocumentIDs)

	require.Len(t, f.rules.triggers, 1)
	trigger := f.rules.triggers[0]
	require.NotNil(t, trigger.CurrentValue)
	require.NotNil(t, trigger.BaselineValue)
	assert.Zero(t, *trigger.BaselineValue)
	assert.Equal(t, []string{"doc-77", "doc-78"}, trigger.MatchedDocumentIDs)
	assert.Equal(t, 1, f.rules.et[a.ID].TriggerCount)

	select {
	case notified := <-f.notifier.ch:
		assert.Equal(t, a.ID, notified.AlertID)
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}

	// History survives deletion of the definition.
	require.NoError(t, f.svc.DeleteEntityTypeAlert(context.Background(), a.ID))
	history, err := f.svc.RecentTriggers(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEvaluateEntityTypeQuietSeries(t *testing.T) {
	f := newAlertFixture(t)

	a := &domain.EntityTypeAlert{
		Name:     "org mentions",
		Severity: domain.SeverityLow,
		Enabled:  true,
	}
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategoryEntityType, a.ID)
	require.NoError(t, err)
	assert.False(t, result.Triggered)
	assert.Empty(t, f.rules.triggers)
}

func TestEvaluateSmartAIMatchCount(t *testing.T) {
	f := newAlertFixture(t)

	f.matcher.matches = make([]domain.SemanticMatch, 6)
	for i := range f.matcher.matches {
		f.matcher.matches[i] = domain.SemanticMatch{DocumentID: fmt.Sprintf("doc-%d", i), Score: 0.9}
	}
	recent := domain.AggregationHourly.Truncate(time.Now().UTC().Add(-time.Hour))
	f.events.docBuckets = []domain.ActivityBucket{
		{Timestamp: recent, Count: 6, TotalCount: 6},
	}

	a := &domain.SmartAIAlert{
		Name:        "acquisition chatter",
		Description: "discussions about acquiring a competitor",
		Severity:    domain.SeverityCritical,
		Enabled:     true,
	}
	require.NoError(t, f.svc.CreateSmartAIAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategorySmartAI, a.ID)
	require.NoError(t, err)

	assert.True(t, result.Triggered)
	assert.Equal(t, 6, result.MatchedDocuments)
	assert.Contains(t, result.TriggerReason, "documents matched")
	assert.Len(t, result.MatchedDocumentIDs, 6)

	require.Len(t, f.rules.triggers, 1)
	assert.Len(t, f.rules.triggers[0].MatchedDocumentIDs, 6)
}

func TestEvaluateSmartAIBelowThreshold(t *testing.T) {
	f := newAlertFixture(t)

	f.matcher.matches = []domain.SemanticMatch{
		{DocumentID: "doc-0", Score: 0.8},
		{DocumentID: "doc-1", Score: 0.75},
		{DocumentID: "doc-2", Score: 0.72},
	}
	// One matched document per hour, spread so the single-count buckets form
	// a dense cluster of their own and only one falls inside the window.
	now := time.Now().UTC()
	f.events.docBuckets = []domain.ActivityBucket{
		{Timestamp: domain.AggregationHourly.Truncate(now.AddDate(0, 0, -3)), Count: 1, TotalCount: 9},
		{Timestamp: domain.AggregationHourly.Truncate(now.AddDate(0, 0, -2)), Count: 1, TotalCount: 9},
		{Timestamp: domain.AggregationHourly.Truncate(now.Add(-2 * time.Hour)), Count: 1, TotalCount: 9},
	}

	a := &domain.SmartAIAlert{
		Name:        "routine topic",
		Description: "a topic with steady low traffic",
		Severity:    domain.SeverityLow,
		Enabled:     true,
	}
	require.NoError(t, f.svc.CreateSmartAIAlert(context.Background(), a))

	result, err := f.svc.Evaluate(context.Background(), domain.CategorySmartAI, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedDocuments)
	assert.False(t, result.Triggered)
	assert.Empty(t, f.rules.triggers)
}

func TestEvaluateSmartAIMatcherError(t *testing.T) {
	f := newAlertFixture(t)
	f.matcher.err = fmt.Errorf("%w: embeddings endpoint down", domain.ErrUnavailable)

	a := &domain.SmartAIAlert{
		Name:        "broken matcher",
		Description: "anything",
		Severity:    domain.SeverityLow,
		Enabled:     true,
	}
	require.NoError(t, f.svc.CreateSmartAIAlert(context.Background(), a))

	_, err := f.svc.Evaluate(context.Background(), domain.CategorySmartAI, a.ID)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Empty(t, f.rules.triggers)
}

func TestEvaluateUnknownCategory(t *testing.T) {
	f := newAlertFixture(t)
	_, err := f.svc.Evaluate(context.Background(), domain.AlertCategory("nope"), uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEvaluateNotFound(t *testing.T) {
	f := newAlertFixture(t)
	_, err := f.svc.Evaluate(context.Background(), domain.CategoryEntityType, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluateAllSkipsDisabled(t *testing.T) {
	f := newAlertFixture(t)

	enabled := &domain.DataQualityAlert{
		Name: "enabled dq", Severity: domain.SeverityLow,
		QualityType: domain.QualityFormatError, Enabled: true,
	}
	disabled := &domain.DataQualityAlert{
		Name: "disabled dq", Severity: domain.SeverityLow,
		QualityType: domain.QualityCorruption, Enabled: false,
	}
	entity := &domain.EntityTypeAlert{Name: "entity", Severity: domain.SeverityLow, Enabled: true}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), enabled))
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), disabled))
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), entity))

	summary, err := f.svc.EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Evaluated)
	assert.Zero(t, summary.Failed)
	for _, r := range summary.Results {
		assert.NotEqual(t, disabled.ID, r.AlertID)
	}
}

func TestEvaluateAllPartialFailure(t *testing.T) {
	f := newAlertFixture(t)
	f.imports.err = fmt.Errorf("%w: postgres gone", domain.ErrUnavailable)

	dq := &domain.DataQualityAlert{
		Name: "dq", Severity: domain.SeverityLow,
		QualityType: domain.QualityFormatError, Enabled: true,
	}
	entity := &domain.EntityTypeAlert{Name: "entity", Severity: domain.SeverityLow, Enabled: true}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), dq))
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), entity))

	summary, err := f.svc.EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 1, summary.Failed)

	var sawUnavailable, sawOK bool
	for _, r := range summary.Results {
		switch r.Outcome {
		case domain.OutcomeUnavailable:
			sawUnavailable = true
			assert.Equal(t, dq.ID, r.AlertID)
			assert.True(t, strings.Contains(r.Error, "postgres gone"))
		case domain.OutcomeOK:
			sawOK = true
			assert.Equal(t, entity.ID, r.AlertID)
		}
	}
	assert.True(t, sawUnavailable)
	assert.True(t, sawOK)
}

func TestEvaluateAllTimeout(t *testing.T) {
	f := newAlertFixture(t)
	f.events.blockUntilDone = true
	f.svc.cfg.EvaluationTimeout = 30 * time.Millisecond

	entity := &domain.EntityTypeAlert{Name: "slow entity", Severity: domain.SeverityLow, Enabled: true}
	require.NoError(t, f.svc.CreateEntityTypeAlert(context.Background(), entity))

	summary, err := f.svc.EvaluateAll(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, summary.Evaluated)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, domain.OutcomeTimedOut, summary.Results[0].Outcome)
}

func TestEvaluateAllEmpty(t *testing.T) {
	f := newAlertFixture(t)
	summary, err := f.svc.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Evaluated)
	assert.Empty(t, f.rules.triggers)
}

func TestConcurrentTriggerBookkeeping(t *testing.T) {
	f := newAlertFixture(t)
	formatErr := domain.QualityFormatError
	f.imports.records = []*domain.ImportRecord{
		{FileName: "bad.csv", ErrorType: &formatErr, AffectedRecords: 1},
	}

	a := &domain.DataQualityAlert{
		Name: "hot alert", Severity: domain.SeverityLow,
		QualityType: domain.QualityFormatError, Enabled: true,
	}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), a))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Evaluate(context.Background(), domain.CategoryDataQuality, a.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.rules.triggers, 8)
	assert.Equal(t, 8, f.rules.dq[a.ID].TriggerCount)
}

func TestDeleteReleasesTriggerLock(t *testing.T) {
	f := newAlertFixture(t)
	formatErr := domain.QualityFormatError
	f.imports.records = []*domain.ImportRecord{
		{FileName: "bad.csv", ErrorType: &formatErr, AffectedRecords: 1},
	}

	a := &domain.DataQualityAlert{
		Name: "short lived", Severity: domain.SeverityLow,
		QualityType: domain.QualityFormatError, Enabled: true,
	}
	require.NoError(t, f.svc.CreateDataQualityAlert(context.Background(), a))

	_, err := f.svc.Evaluate(context.Background(), domain.CategoryDataQuality, a.ID)
	require.NoError(t, err)
	require.Contains(t, f.svc.triggerLocks.locks, a.ID)

	require.NoError(t, f.svc.DeleteDataQualityAlert(context.Background(), a.ID))
	assert.NotContains(t, f.svc.triggerLocks.locks, a.ID)
}
