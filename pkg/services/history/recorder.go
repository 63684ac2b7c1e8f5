package history

import (
	"context"
	"sort"

	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/shopspring/decimal"
)

// BalanceSource reports the current balance of every tracked player
type BalanceSource interface {
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Recorder captures live balances into the history store
type Recorder struct {
	service *Service
	source  BalanceSource
}

// NewRecorder creates a recorder writing through service
func NewRecorder(service *Service, source BalanceSource) *Recorder {
	return &Recorder{
		service: service,
		source:  source,
	}
}

// Capture records one historyType snapshot per player at the current time and
// returns how many were written
func (r *Recorder) Capture(ctx context.Context, historyType entities.HistoryType) (int, error) {
	balances, err := r.source.Balances(ctx)
	if err != nil {
		return 0, r.service.report(opRecordBatch, "read current balances", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	playerIDs := make([]string, 0, len(balances))
	for playerID := range balances {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Strings(playerIDs)

	now := r.service.now()
	snapshots := make([]*entities.BalanceSnapshot, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		if playerID == "" {
			continue
		}
		snapshots = append(snapshots, &entities.BalanceSnapshot{
			PlayerID:    playerID,
			HistoryType: historyType,
			Timestamp:   now,
			Balance:     balances[playerID],
		})
	}

	if err := r.service.RecordBatch(ctx, snapshots); err != nil {
		return 0, err
	}

	r.service.logger.Info("Captured %d %s balance snapshots", len(snapshots), historyType)
	return len(snapshots), nil
}

// CaptureTask adapts Capture to a scheduler task function
func (r *Recorder) CaptureTask(historyType entities.HistoryType) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := r.Capture(ctx, historyType)
		return err
	}
}
