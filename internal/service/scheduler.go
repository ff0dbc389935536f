package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mentionwatch/mentionwatch/internal/config"
	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// EvaluationScheduler runs the full alert sweep on a fixed interval.
// Manual single-alert evaluations through AlertService stay usable while
// the scheduler runs; trigger bookkeeping is serialized per alert id.
type EvaluationScheduler struct {
	alerts    *AlertService
	interval  time.Duration
	maxRetry  int
	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
	runningMu sync.RWMutex
	logger    *zap.Logger
}

// NewEvaluationScheduler creates a new evaluation scheduler
func NewEvaluationScheduler(alerts *AlertService, cfg config.SchedulerConfig, logger *zap.Logger) *EvaluationScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &EvaluationScheduler{
		alerts:   alerts,
		interval: interval,
		maxRetry: cfg.MaxRetries,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *EvaluationScheduler) Start() {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.isRunning {
		return
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	go s.run(s.ticker, s.stopChan)

	s.logger.Info("evaluation scheduler started", zap.Duration("interval", s.interval))
}

// Stop stops the scheduler
func (s *EvaluationScheduler) Stop() {
	s.runningMu.Lock()
	if !s.isRunning {
		s.runningMu.Unlock()
		return
	}
	s.isRunning = false
	s.runningMu.Unlock()

	close(s.stopChan)
	s.ticker.Stop()

	s.logger.Info("evaluation scheduler stopped")
}

// IsRunning reports whether the loop is active.
func (s *EvaluationScheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()
	return s.isRunning
}

// run is the main scheduler loop. The ticker and stop channel are captured
// at Start so a Stop/Start cycle hands the new loop a fresh pair.
func (s *EvaluationScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-stop:
			return
		}
	}
}

// sweep runs one full evaluation pass. Transient store outages are retried
// with capped exponential backoff; every other failure is final for this
// tick. Per-alert failures never reach here, they are reported inline in
// the summary.
func (s *EvaluationScheduler) sweep(ctx context.Context) {
	attempts := uint64(s.maxRetry)
	if attempts == 0 {
		attempts = 3
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts),
		ctx,
	)

	var summary *domain.EvaluationSummary
	operation := func() error {
		var err error
		summary, err = s.alerts.EvaluateAll(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		s.logger.Error("scheduled evaluation sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled evaluation sweep complete",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("triggered", summary.Triggered),
		zap.Int("failed", summary.Failed),
	)
}
