package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/repository/postgres"
)

// RuleStore is the persistence surface for alert definitions and trigger
// history.
type RuleStore interface {
	CreateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error
	GetDataQuality(ctx context.Context, id uuid.UUID) (*domain.DataQualityAlert, error)
	ListDataQuality(ctx context.Context, opts *postgres.ListOptions) ([]*domain.DataQualityAlert, int, error)
	UpdateDataQuality(ctx context.Context, a *domain.DataQualityAlert) error
	DeleteDataQuality(ctx context.Context, id uuid.UUID) error

	CreateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error
	GetEntityType(ctx context.Context, id uuid.UUID) (*domain.EntityTypeAlert, error)
	ListEntityType(ctx context.Context, opts *postgres.ListOptions) ([]*domain.EntityTypeAlert, int, error)
	UpdateEntityType(ctx context.Context, a *domain.EntityTypeAlert) error
	DeleteEntityType(ctx context.Context, id uuid.UUID) error

	CreateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error
	GetSmartAI(ctx context.Context, id uuid.UUID) (*domain.SmartAIAlert, error)
	ListSmartAI(ctx context.Context, opts *postgres.ListOptions) ([]*domain.SmartAIAlert, int, error)
	UpdateSmartAI(ctx context.Context, a *domain.SmartAIAlert) error
	DeleteSmartAI(ctx context.Context, id uuid.UUID) error

	Toggle(ctx context.Context, category domain.AlertCategory, id uuid.UUID) (bool, error)
	RecordTrigger(ctx context.Context, t *domain.TriggeredAlert) error
	ListTriggered(ctx context.Context, limit int) ([]*domain.TriggeredAlert, error)
	CountTriggeredSince(ctx context.Context, since time.Time, category domain.AlertCategory) (int, error)
	Stats(ctx context.Context) (*postgres.AlertStats, error)
}

// ImportStore reads the ingestion log for data-quality checks.
type ImportStore interface {
	ListFailedSince(ctx context.Context, since time.Time, filter postgres.ImportFilter, limit int) ([]*domain.ImportRecord, error)
}

// Notifier delivers trigger notifications. Implementations must not block
// evaluation on delivery failures.
type Notifier interface {
	NotifyTrigger(ctx context.Context, trigger *domain.TriggeredAlert)
}

// Detection defaults for smart-AI alerts, which carry no tuning knobs of
// their own.
const (
	smartDBSCANEps        = 1.5
	smartDBSCANMinSamples = 3
	smartKMeansClusters   = 3
	smartSensitivity      = 2.0
	smartWindowHours      = 24
	smartBaselineDays     = 7
)

// dataQualityLookback is how far back the ingestion log is scanned on each
// data-quality evaluation.
const dataQualityLookback = 24 * time.Hour

var validEntityTypes = map[string]struct{}{
	"PERSON": {}, "ORG": {}, "GPE": {}, "MONEY": {}, "DATE": {}, "PRODUCT": {},
	"EVENT": {}, "LAW": {}, "NORP": {}, "FAC": {}, "LOC": {}, "ALL": {},
}

var validSeverities = map[string]struct{}{
	domain.SeverityLow: {}, domain.SeverityMedium: {}, domain.SeverityHigh: {}, domain.SeverityCritical: {},
}

var validQualityTypes = map[string]struct{}{
	domain.QualityFormatError: {}, domain.QualityMissingFields: {}, domain.QualityEncodingIssue: {},
	domain.QualitySizeLimit: {}, domain.QualityCorruption: {}, domain.QualityDuplicateData: {},
}

var validFileFormats = map[string]struct{}{
	"all": {}, "csv": {}, "eml": {}, "pst": {}, "json": {}, "xml": {},
}

var validWindowHours = map[int]struct{}{1: {}, 6: {}, 12: {}, 24: {}, 48: {}, 168: {}}

// AlertService manages alert definitions and runs evaluations across the
// three categories.
type AlertService struct {
	rules    RuleStore
	imports  ImportStore
	activity *ActivityService
	matcher  SemanticMatcher
	notifier Notifier
	cfg      config.SchedulerConfig
	logger   *zap.Logger

	// Serializes trigger bookkeeping per alert id.
	triggerLocks keyedMutex
}

// NewAlertService creates a new alert service
func NewAlertService(
	rules RuleStore,
	imports ImportStore,
	activity *ActivityService,
	matcher SemanticMatcher,
	notifier Notifier,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		rules:    rules,
		imports:  imports,
		activity: activity,
		matcher:  matcher,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// keyedMutex hands out one mutex per alert id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (k *keyedMutex) get(id uuid.UUID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	return m
}

// forget drops the mutex for a deleted alert so the map does not grow
// without bound.
func (k *keyedMutex) forget(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.locks, id)
}

// --- CRUD ---

// CreateDataQualityAlert validates and stores a new data-quality alert.
func (s *AlertService) CreateDataQualityAlert(ctx context.Context, a *domain.DataQualityAlert) error {
	if a.FileFormat == "" {
		a.FileFormat = "all"
	}
	if err := validateDataQualityAlert(a); err != nil {
		return err
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	return s.rules.CreateDataQuality(ctx, a)
}

// GetDataQualityAlert retrieves a data-quality alert by id.
func (s *AlertService) GetDataQualityAlert(ctx context.Context, id uuid.UUID) (*domain.DataQualityAlert, error) {
	return s.rules.GetDataQuality(ctx, id)
}

// ListDataQualityAlerts lists data-quality alerts.
func (s *AlertService) ListDataQualityAlerts(ctx context.Context, opts *postgres.ListOptions) ([]*domain.DataQualityAlert, int, error) {
	return s.rules.ListDataQuality(ctx, opts)
}

// UpdateDataQualityAlert validates and stores changes to an existing alert.
func (s *AlertService) UpdateDataQualityAlert(ctx context.Context, a *domain.DataQualityAlert) error {
	if err := validateDataQualityAlert(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return s.rules.UpdateDataQuality(ctx, a)
}

// DeleteDataQualityAlert removes a definition. Trigger history stays.
func (s *AlertService) DeleteDataQualityAlert(ctx context.Context, id uuid.UUID) error {
	if err := s.rules.DeleteDataQuality(ctx, id); err != nil {
		return err
	}
	s.triggerLocks.forget(id)
	return nil
}

// CreateEntityTypeAlert validates and stores a new entity-type alert.
func (s *AlertService) CreateEntityTypeAlert(ctx context.Context, a *domain.EntityTypeAlert) error {
	applyEntityTypeDefaults(a)
	if err := validateEntityTypeAlert(a); err != nil {
		return err
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	return s.rules.CreateEntityType(ctx, a)
}

// GetEntityTypeAlert retrieves an entity-type alert by id.
func (s *AlertService) GetEntityTypeAlert(ctx context.Context, id uuid.UUID) (*domain.EntityTypeAlert, error) {
	return s.rules.GetEntityType(ctx, id)
}

// ListEntityTypeAlerts lists entity-type alerts.
func (s *AlertService) ListEntityTypeAlerts(ctx context.Context, opts *postgres.ListOptions) ([]*domain.EntityTypeAlert, int, error) {
	return s.rules.ListEntityType(ctx, opts)
}

// UpdateEntityTypeAlert validates and stores changes to an existing alert.
func (s *AlertService) UpdateEntityTypeAlert(ctx context.Context, a *domain.EntityTypeAlert) error {
	applyEntityTypeDefaults(a)
	if err := validateEntityTypeAlert(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return s.rules.UpdateEntityType(ctx, a)
}

// DeleteEntityTypeAlert removes a definition. Trigger history stays.
func (s *AlertService) DeleteEntityTypeAlert(ctx context.Context, id uuid.UUID) error {
	if err := s.rules.DeleteEntityType(ctx, id); err != nil {
		return err
	}
	s.triggerLocks.forget(id)
	return nil
}

// CreateSmartAIAlert validates and stores a new smart-AI alert.
func (s *AlertService) CreateSmartAIAlert(ctx context.Context, a *domain.SmartAIAlert) error {
	if a.SimilarityThreshold == 0 {
		a.SimilarityThreshold = 0.7
	}
	if a.DetectionAlgorithm == "" {
		a.DetectionAlgorithm = domain.AlgorithmDBSCAN
	}
	if err := validateSmartAIAlert(a); err != nil {
		return err
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	return s.rules.CreateSmartAI(ctx, a)
}

// GetSmartAIAlert retrieves a smart-AI alert by id.
func (s *AlertService) GetSmartAIAlert(ctx context.Context, id uuid.UUID) (*domain.SmartAIAlert, error) {
	return s.rules.GetSmartAI(ctx, id)
}

// ListSmartAIAlerts lists smart-AI alerts.
func (s *AlertService) ListSmartAIAlerts(ctx context.Context, opts *postgres.ListOptions) ([]*domain.SmartAIAlert, int, error) {
	return s.rules.ListSmartAI(ctx, opts)
}

// UpdateSmartAIAlert validates and stores changes to an existing alert.
func (s *AlertService) UpdateSmartAIAlert(ctx context.Context, a *domain.SmartAIAlert) error {
	if err := validateSmartAIAlert(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return s.rules.UpdateSmartAI(ctx, a)
}

// DeleteSmartAIAlert removes a definition. Trigger history stays.
func (s *AlertService) DeleteSmartAIAlert(ctx context.Context, id uuid.UUID) error {
	if err := s.rules.DeleteSmartAI(ctx, id); err != nil {
		return err
	}
	s.triggerLocks.forget(id)
	return nil
}

// ToggleAlert flips the enabled flag for one alert and returns the new
// state. Nothing else on the definition changes.
func (s *AlertService) ToggleAlert(ctx context.Context, category domain.AlertCategory, id uuid.UUID) (bool, error) {
	return s.rules.Toggle(ctx, category, id)
}

// RecentTriggers returns trigger history across all categories, newest
// first.
func (s *AlertService) RecentTriggers(ctx context.Context, limit int) ([]*domain.TriggeredAlert, error) {
	return s.rules.ListTriggered(ctx, limit)
}

// Stats returns dashboard counters.
func (s *AlertService) Stats(ctx context.Context) (*postgres.AlertStats, error) {
	return s.rules.Stats(ctx)
}

// --- Validation ---

func applyEntityTypeDefaults(a *domain.EntityTypeAlert) {
	if a.EntityType == "" {
		a.EntityType = "ALL"
	}
	if a.DetectionAlgorithm == "" {
		a.DetectionAlgorithm = domain.AlgorithmDBSCAN
	}
	if a.DBSCANEps == 0 {
		a.DBSCANEps = 0.5
	}
	if a.DBSCANMinSamples == 0 {
		a.DBSCANMinSamples = 5
	}
	if a.KMeansClusters == 0 {
		a.KMeansClusters = 3
	}
	if a.Sensitivity == 0 {
		a.Sensitivity = 2.0
	}
	if a.WindowHours == 0 {
		a.WindowHours = 24
	}
	if a.BaselineDays == 0 {
		a.BaselineDays = 7
	}
}

func validateCommon(name, severity string, errs *domain.ValidationErrors) {
	if name == "" {
		errs.Add("name", "name is required")
	}
	if _, ok := validSeverities[severity]; !ok {
		errs.Add("severity", "must be one of low, medium, high, critical")
	}
}

func validateDataQualityAlert(a *domain.DataQualityAlert) error {
	var errs domain.ValidationErrors
	validateCommon(a.Name, a.Severity, &errs)
	if _, ok := validQualityTypes[a.QualityType]; !ok {
		errs.Add("quality_type", "unknown quality type")
	}
	if _, ok := validFileFormats[a.FileFormat]; !ok {
		errs.Add("file_format", "must be one of all, csv, eml, pst, json, xml")
	}
	if a.FileSizeMin != nil && *a.FileSizeMin < 0 {
		errs.Add("file_size_min", "must not be negative")
	}
	if a.FileSizeMax != nil && *a.FileSizeMax < 0 {
		errs.Add("file_size_max", "must not be negative")
	}
	if a.FileSizeMin != nil && a.FileSizeMax != nil && *a.FileSizeMin > *a.FileSizeMax {
		errs.Add("file_size_max", "must not be below file_size_min")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateEntityTypeAlert(a *domain.EntityTypeAlert) error {
	var errs domain.ValidationErrors
	validateCommon(a.Name, a.Severity, &errs)
	if _, ok := validEntityTypes[a.EntityType]; !ok {
		errs.Add("entity_type", "unknown entity type")
	}
	switch a.DetectionAlgorithm {
	case domain.AlgorithmDBSCAN, domain.AlgorithmKMeans:
	default:
		errs.Add("detection_algorithm", "must be dbscan or kmeans")
	}
	if a.DBSCANEps <= 0 || a.DBSCANEps > 5 {
		errs.Add("dbscan_eps", "must be in (0, 5]")
	}
	if a.DBSCANMinSamples < 1 || a.DBSCANMinSamples > 20 {
		errs.Add("dbscan_min_samples", "must be in [1, 20]")
	}
	if a.KMeansClusters < 2 || a.KMeansClusters > 10 {
		errs.Add("kmeans_clusters", "must be in [2, 10]")
	}
	if a.Sensitivity < 0.5 || a.Sensitivity > 5 {
		errs.Add("sensitivity", "must be in [0.5, 5]")
	}
	if _, ok := validWindowHours[a.WindowHours]; !ok {
		errs.Add("window_hours", "must be one of 1, 6, 12, 24, 48, 168")
	}
	if a.BaselineDays < 1 || a.BaselineDays > 30 {
		errs.Add("baseline_days", "must be in [1, 30]")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateSmartAIAlert(a *domain.SmartAIAlert) error {
	var errs domain.ValidationErrors
	validateCommon(a.Name, a.Severity, &errs)
	if a.Description == "" {
		errs.Add("description", "description is required, it is the semantic query")
	}
	switch a.DetectionAlgorithm {
	case domain.AlgorithmDBSCAN, domain.AlgorithmKMeans:
	default:
		errs.Add("detection_algorithm", "must be dbscan or kmeans")
	}
	if a.SimilarityThreshold < 0.3 || a.SimilarityThreshold > 1.0 {
		errs.Add("similarity_threshold", "must be in [0.3, 1.0]")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// --- Evaluation ---

// Evaluate runs one alert through its category check and, when it fires,
// records the trigger and notifies. The trigger is written only after the
// full result has been computed.
func (s *AlertService) Evaluate(ctx context.Context, category domain.AlertCategory, id uuid.UUID) (*domain.EvaluationResult, error) {
	var (
		result   *domain.EvaluationResult
		severity string
		err      error
	)

	switch category {
	case domain.CategoryDataQuality:
		var a *domain.DataQualityAlert
		if a, err = s.rules.GetDataQuality(ctx, id); err == nil {
			severity = a.Severity
			result, err = s.evaluateDataQuality(ctx, a)
		}
	case domain.CategoryEntityType:
		var a *domain.EntityTypeAlert
		if a, err = s.rules.GetEntityType(ctx, id); err == nil {
			severity = a.Severity
			result, err = s.evaluateEntityType(ctx, a)
		}
	case domain.CategorySmartAI:
		var a *domain.SmartAIAlert
		if a, err = s.rules.GetSmartAI(ctx, id); err == nil {
			severity = a.Severity
			result, err = s.evaluateSmartAI(ctx, a)
		}
	default:
		return nil, fmt.Errorf("%w: unknown alert category %q", domain.ErrInvalidInput, category)
	}
	if err != nil {
		return nil, err
	}

	if result.Triggered {
		if err := s.recordTrigger(ctx, result, severity); err != nil {
			return nil, fmt.Errorf("record trigger: %w", err)
		}
	}
	return result, nil
}

// recordTrigger appends the history row and bumps the counters in one
// transaction, serialized per alert id so concurrent evaluations of the
// same alert cannot interleave their bookkeeping.
func (s *AlertService) recordTrigger(ctx context.Context, result *domain.EvaluationResult, severity string) error {
	lock := s.triggerLocks.get(result.AlertID)
	lock.Lock()
	defer lock.Unlock()

	trigger := &domain.TriggeredAlert{
		ID:            uuid.New(),
		AlertID:       result.AlertID,
		Category:      result.Category,
		AlertName:     result.AlertName,
		Severity:      severity,
		TriggeredAt:   result.EvaluatedAt,
		TriggerReason: result.TriggerReason,
		AnomalyType:   result.AnomalyType,
	}
	if result.Category != domain.CategoryDataQuality {
		cur, base := result.CurrentValue, result.BaselineValue
		trigger.CurrentValue = &cur
		trigger.BaselineValue = &base
	}
	if len(result.MatchedDocumentIDs) > 0 {
		trigger.MatchedDocumentIDs = result.MatchedDocumentIDs
	}

	if err := s.rules.RecordTrigger(ctx, trigger); err != nil {
		return err
	}

	s.logger.Info("alert triggered",
		zap.String("alert_id", trigger.AlertID.String()),
		zap.String("alert_name", trigger.AlertName),
		zap.String("category", string(trigger.Category)),
		zap.String("reason", trigger.TriggerReason),
	)

	if s.notifier != nil {
		// Detached so a slow webhook cannot hold up the evaluation.
		go s.notifier.NotifyTrigger(context.WithoutCancel(ctx), trigger)
	}
	return nil
}

func (s *AlertService) evaluateDataQuality(ctx context.Context, a *domain.DataQualityAlert) (*domain.EvaluationResult, error) {
	result := &domain.EvaluationResult{
		AlertID:     a.ID,
		Category:    domain.CategoryDataQuality,
		AlertName:   a.Name,
		Outcome:     domain.OutcomeOK,
		EvaluatedAt: time.Now().UTC(),
	}

	filter := postgres.ImportFilter{
		FileSizeMin: a.FileSizeMin,
		FileSizeMax: a.FileSizeMax,
	}
	if a.FileFormat != "all" {
		filter.FileFormat = a.FileFormat
	}

	records, err := s.imports.ListFailedSince(ctx, result.EvaluatedAt.Add(-dataQualityLookback), filter, 100)
	if err != nil {
		return nil, fmt.Errorf("list failed imports: %w", err)
	}

	for _, rec := range records {
		if rec.ErrorType == nil || *rec.ErrorType != a.QualityType {
			continue
		}
		issue := domain.DataQualityIssue{
			FileName:        rec.FileName,
			ErrorType:       *rec.ErrorType,
			AffectedRecords: rec.AffectedRecords,
		}
		if rec.ErrorDetails != nil {
			issue.ErrorDetails = *rec.ErrorDetails
		}
		result.Issues = append(result.Issues, issue)
	}

	if len(result.Issues) > 0 {
		result.Triggered = true
		result.TriggerReason = fmt.Sprintf("%d %s issue(s) in the last %s",
			len(result.Issues), a.QualityType, dataQualityLookback)
	}
	return result, nil
}

func (s *AlertService) evaluateEntityType(ctx context.Context, a *domain.EntityTypeAlert) (*domain.EvaluationResult, error) {
	now := time.Now().UTC()
	result := &domain.EvaluationResult{
		AlertID:     a.ID,
		Category:    domain.CategoryEntityType,
		AlertName:   a.Name,
		Algorithm:   a.DetectionAlgorithm,
		Outcome:     domain.OutcomeOK,
		EvaluatedAt: now,
	}

	windowStart := now.Add(-time.Duration(a.WindowHours) * time.Hour)
	baselineStart := windowStart.AddDate(0, 0, -a.BaselineDays)

	filter := domain.MentionFilter{EntityType: a.EntityType}
	if a.EntityValue != nil {
		filter.EntityValue = *a.EntityValue
	}

	buckets, err := s.activity.BucketCounts(ctx, baselineStart, now, domain.AggregationHourly, filter)
	if err != nil {
		return nil, fmt.Errorf("bucket counts: %w", err)
	}

	detection := detectSeries(buckets, windowStart, detectionParams{
		algorithm:   a.DetectionAlgorithm,
		eps:         a.DBSCANEps,
		minSamples:  a.DBSCANMinSamples,
		clusters:    a.KMeansClusters,
		sensitivity: a.Sensitivity,
	})
	result.CurrentValue = detection.currentMean
	result.BaselineValue = detection.baseline
	result.AnomalyScore = detection.maxScore

	if detection.anomalous {
		result.Triggered = true
		result.AnomalyType = &detection.anomalyType
		result.TriggerReason = fmt.Sprintf(
			"%s anomaly on %s activity: current %.1f/h vs baseline %.1f/h",
			detection.anomalyType, describeFilter(filter), detection.currentMean, detection.baseline)

		// Attach the window's documents to the trigger record. Best effort:
		// a lookup failure must not lose an already-detected anomaly.
		ids, idErr := s.activity.DocumentIDsForPeriod(ctx, windowStart, now, filter, 100)
		if idErr != nil {
			s.logger.Warn("window document lookup failed",
				zap.String("alert_id", a.ID.String()), zap.Error(idErr))
		} else {
			result.MatchedDocumentIDs = ids
		}
	}
	return result, nil
}

func (s *AlertService) evaluateSmartAI(ctx context.Context, a *domain.SmartAIAlert) (*domain.EvaluationResult, error) {
	now := time.Now().UTC()
	result := &domain.EvaluationResult{
		AlertID:     a.ID,
		Category:    domain.CategorySmartAI,
		AlertName:   a.Name,
		Algorithm:   a.DetectionAlgorithm,
		Outcome:     domain.OutcomeOK,
		EvaluatedAt: now,
	}

	windowStart := now.Add(-smartWindowHours * time.Hour)
	baselineStart := windowStart.AddDate(0, 0, -smartBaselineDays)

	matches, err := s.matcher.Match(ctx, a.Description, a.SimilarityThreshold, baselineStart, now)
	if err != nil {
		return nil, fmt.Errorf("semantic match: %w", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.DocumentID
	}

	buckets, err := s.activity.BucketCountsForDocuments(ctx, ids, baselineStart, now, domain.AggregationHourly)
	if err != nil {
		return nil, fmt.Errorf("matched-document buckets: %w", err)
	}

	detection := detectSeries(buckets, windowStart, detectionParams{
		algorithm:   a.DetectionAlgorithm,
		eps:         smartDBSCANEps,
		minSamples:  smartDBSCANMinSamples,
		clusters:    smartKMeansClusters,
		sensitivity: smartSensitivity,
	})
	result.CurrentValue = detection.currentMean
	result.BaselineValue = detection.baseline
	result.AnomalyScore = detection.maxScore

	windowMatches := 0
	for _, b := range buckets {
		if !b.Timestamp.Before(domain.AggregationHourly.Truncate(windowStart)) {
			windowMatches += b.Count
		}
	}
	result.MatchedDocuments = windowMatches
	result.MatchedDocumentIDs = ids

	minMatches := s.cfg.MinSmartMatchCount
	if minMatches <= 0 {
		minMatches = 5
	}

	switch {
	case windowMatches > minMatches:
		result.Triggered = true
		result.TriggerReason = fmt.Sprintf("%d documents matched %q in the last %dh (threshold %d)",
			windowMatches, a.Name, smartWindowHours, minMatches)
		if detection.anomalous {
			result.AnomalyType = &detection.anomalyType
		}
	case detection.anomalous:
		result.Triggered = true
		result.AnomalyType = &detection.anomalyType
		result.TriggerReason = fmt.Sprintf(
			"%s anomaly in matched activity for %q: current %.1f/h vs baseline %.1f/h",
			detection.anomalyType, a.Name, detection.currentMean, detection.baseline)
	}
	return result, nil
}

// detectionParams collects the tuning knobs handed to the detector.
type detectionParams struct {
	algorithm   string
	eps         float64
	minSamples  int
	clusters    int
	sensitivity float64
}

// seriesDetection is the digest of running detection over a concatenated
// baseline+window series.
type seriesDetection struct {
	anomalous   bool
	anomalyType string
	currentMean float64
	baseline    float64
	maxScore    float64
}

// detectSeries runs clustering over the full series and inspects the
// window portion for flagged buckets. The baseline reported is the mean of
// the non-anomalous buckets before the window start.
func detectSeries(buckets []domain.ActivityBucket, windowStart time.Time, p detectionParams) seriesDetection {
	counts := make([]float64, len(buckets))
	windowIdx := len(buckets)
	for i, b := range buckets {
		counts[i] = float64(b.Count)
		if i < windowIdx && !b.Timestamp.Before(domain.AggregationHourly.Truncate(windowStart)) {
			windowIdx = i
		}
	}

	var flags []bool
	switch p.algorithm {
	case domain.AlgorithmKMeans:
		flags, _ = detectKMeans(counts, p.clusters, p.sensitivity)
	default:
		// Higher sensitivity tightens the density radius.
		eps := p.eps
		if p.sensitivity > 0 {
			eps = p.eps / p.sensitivity
		}
		flags, _ = detectDBSCAN(counts, eps, p.minSamples)
	}

	det := seriesDetection{}
	det.baseline = baselineOfNormal(counts[:windowIdx], flags[:windowIdx])
	base := estimateBaseline(counts[:windowIdx])
	scores := anomalyScores(counts, base)

	var windowSum float64
	windowLen := len(counts) - windowIdx
	for i := windowIdx; i < len(counts); i++ {
		windowSum += counts[i]
		if scores[i] > det.maxScore {
			det.maxScore = scores[i]
		}
		if flags[i] && !det.anomalous {
			det.anomalous = true
			prevEmpty := i > 0 && buckets[i-1].TotalCount == 0
			det.anomalyType = classifyAnomaly(counts[i], det.baseline, buckets[i].TotalCount == 0, prevEmpty)
		}
	}
	if windowLen > 0 {
		det.currentMean = windowSum / float64(windowLen)
	}
	return det
}

func describeFilter(f domain.MentionFilter) string {
	if f.All() {
		return "all entities"
	}
	if f.EntityValue != "" {
		return fmt.Sprintf("%s %q", f.EntityType, f.EntityValue)
	}
	return f.EntityType + " entities"
}

// --- Batch evaluation ---

type evaluationJob struct {
	category domain.AlertCategory
	id       uuid.UUID
	name     string
}

// EvaluateAll evaluates every enabled alert across all categories with
// bounded parallelism. A failing or slow alert never aborts the batch; it
// is reported inline with its outcome and the rest keep running.
func (s *AlertService) EvaluateAll(ctx context.Context) (*domain.EvaluationSummary, error) {
	started := time.Now().UTC()
	jobs, err := s.enabledJobs(ctx)
	if err != nil {
		return nil, err
	}

	timeout := s.cfg.EvaluationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parallel := s.cfg.MaxParallel
	if parallel <= 0 {
		parallel = 4
	}

	results := make([]domain.EvaluationResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(parallel)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			jobCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res, err := s.Evaluate(jobCtx, job.category, job.id)
			if err != nil {
				results[i] = failedResult(job, err, jobCtx)
				s.logger.Warn("alert evaluation failed",
					zap.String("alert_id", job.id.String()),
					zap.String("category", string(job.category)),
					zap.Error(err),
				)
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	// Workers never return errors; failures land inline in results.
	_ = g.Wait()

	summary := &domain.EvaluationSummary{
		Evaluated: len(results),
		Results:   results,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	for _, r := range results {
		if r.Triggered {
			summary.Triggered++
		}
		if r.Outcome != domain.OutcomeOK {
			summary.Failed++
		}
	}

	s.logger.Info("batch evaluation complete",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("triggered", summary.Triggered),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (s *AlertService) enabledJobs(ctx context.Context) ([]evaluationJob, error) {
	opts := &postgres.ListOptions{EnabledOnly: true, Limit: 500}

	var jobs []evaluationJob
	dq, _, err := s.rules.ListDataQuality(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list data-quality alerts: %w", err)
	}
	for _, a := range dq {
		jobs = append(jobs, evaluationJob{domain.CategoryDataQuality, a.ID, a.Name})
	}

	et, _, err := s.rules.ListEntityType(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list entity-type alerts: %w", err)
	}
	for _, a := range et {
		jobs = append(jobs, evaluationJob{domain.CategoryEntityType, a.ID, a.Name})
	}

	sa, _, err := s.rules.ListSmartAI(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list smart-ai alerts: %w", err)
	}
	for _, a := range sa {
		jobs = append(jobs, evaluationJob{domain.CategorySmartAI, a.ID, a.Name})
	}
	return jobs, nil
}

// failedResult converts an evaluation error into an inline batch result.
func failedResult(job evaluationJob, err error, jobCtx context.Context) domain.EvaluationResult {
	outcome := domain.OutcomeError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || jobCtx.Err() == context.DeadlineExceeded:
		outcome = domain.OutcomeTimedOut
	case errors.Is(err, domain.ErrUnavailable):
		outcome = domain.OutcomeUnavailable
	}
	return domain.EvaluationResult{
		AlertID:     job.id,
		Category:    job.category,
		AlertName:   job.name,
		Outcome:     outcome,
		Error:       err.Error(),
		EvaluatedAt: time.Now().UTC(),
	}
}
