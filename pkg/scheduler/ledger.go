package scheduler

import (
	"context"
	"time"

	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/pkg/entities"
)

// Default task intervals
const (
	DefaultPurgeInterval = time.Hour

	dailyCaptureInterval   = time.Hour
	weeklyCaptureInterval  = 6 * time.Hour
	monthlyCaptureInterval = 24 * time.Hour
)

// Purger removes expired balance history
type Purger interface {
	Purge(ctx context.Context) error
}

// Capturer builds a task that records current balances as historyType snapshots
type Capturer interface {
	CaptureTask(historyType entities.HistoryType) func(context.Context) error
}

// LedgerScheduler runs balance history maintenance
type LedgerScheduler struct {
	scheduler *Scheduler
	logger    *logging.Logger
}

// NewLedgerScheduler registers the purge task and, when capturer is not nil,
// one capture task per bounded history type
func NewLedgerScheduler(purger Purger, capturer Capturer, purgeInterval time.Duration, logger *logging.Logger) *LedgerScheduler {
	if logger == nil {
		logger = logging.Default
	}
	if purgeInterval <= 0 {
		purgeInterval = DefaultPurgeInterval
	}

	s := NewScheduler(logger)
	s.AddTask("balance_history_purge", purgeInterval, purger.Purge)

	if capturer != nil {
		s.AddTask("capture_daily", dailyCaptureInterval, capturer.CaptureTask(entities.HistoryTypeDaily))
		s.AddTask("capture_weekly", weeklyCaptureInterval, capturer.CaptureTask(entities.HistoryTypeWeekly))
		s.AddTask("capture_monthly", monthlyCaptureInterval, capturer.CaptureTask(entities.HistoryTypeMonthly))
	}

	return &LedgerScheduler{
		scheduler: s,
		logger:    logger,
	}
}

// Tasks returns the registered task names
func (s *LedgerScheduler) Tasks() []string {
	return s.scheduler.Tasks()
}

// Start starts the maintenance tasks
func (s *LedgerScheduler) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
	s.logger.Info("Balance history scheduler started")
}

// Stop stops the maintenance tasks
func (s *LedgerScheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("Balance history scheduler stopped")
}
