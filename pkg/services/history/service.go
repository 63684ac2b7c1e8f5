package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/internal/types"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/fadedpez/ledger/pkg/metrics"
	"github.com/fadedpez/ledger/pkg/repositories/balance"
)

// Operation labels used in reports and metrics
const (
	opRecordBatch = "record_batch"
	opUpsert      = "upsert"
	opQuery       = "query"
	opPurge       = "purge"
)

// Service records, queries and purges balance history
type Service struct {
	repo   balance.Repository
	clock  Clock
	logger *logging.Logger
}

// NewService creates a new balance history service.
// A nil clock reads the system clock and a nil logger uses logging.Default.
func NewService(repo balance.Repository, clock Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default
	}

	return &Service{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// RecordBatch persists a batch of new snapshots.
// Backend failures are logged and returned as a PERSISTENCE_ERROR.
func (s *Service) RecordBatch(ctx context.Context, snapshots []*entities.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for i, snapshot := range snapshots {
		if err := validateSnapshot(snapshot); err != nil {
			s.logger.Warn("Rejected balance batch: snapshot %d: %v", i, err)
			return err
		}
	}

	if err := s.repo.CreateMany(ctx, snapshots); err != nil {
		return s.report(opRecordBatch, fmt.Sprintf("record %d snapshots", len(snapshots)), err)
	}

	for _, snapshot := range snapshots {
		metrics.SnapshotsRecordedTotal.WithLabelValues(typeLabel(snapshot.HistoryType)).Inc()
	}
	s.logger.Debug("Recorded %d balance snapshots", len(snapshots))

	return nil
}

// Upsert persists a snapshot or replaces the one with the same ID
func (s *Service) Upsert(ctx context.Context, snapshot *entities.BalanceSnapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		s.logger.Warn("Rejected balance snapshot: %v", err)
		return err
	}

	if err := s.repo.Upsert(ctx, snapshot); err != nil {
		return s.report(opUpsert, "upsert snapshot for player "+snapshot.PlayerID, err)
	}

	metrics.SnapshotsRecordedTotal.WithLabelValues(typeLabel(snapshot.HistoryType)).Inc()
	return nil
}

// Query returns the player's snapshots of historyType captured within its retention window.
// The result is never nil; when the backend fails the failure is logged, the slice is
// empty and the error is returned alongside for callers that want to tell the cases apart.
func (s *Service) Query(ctx context.Context, playerID string, historyType entities.HistoryType) ([]*entities.BalanceSnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(typeLabel(historyType)).Observe(time.Since(start).Seconds())
	}()

	if playerID == "" {
		return []*entities.BalanceSnapshot{}, types.NewLedgerError(types.ErrInvalidArgument, "player id is required")
	}

	snapshots, err := s.repo.QueryWhere(ctx, queryCriteria(playerID, historyType, s.now()))
	if err != nil {
		return []*entities.BalanceSnapshot{}, s.report(opQuery, fmt.Sprintf("query %s history for player %s", historyType, playerID), err)
	}

	if snapshots == nil {
		snapshots = []*entities.BalanceSnapshot{}
	}
	return snapshots, nil
}

// Purge deletes every DAILY, WEEKLY and MONTHLY snapshot that left its retention window.
// Each type is purged independently with its own clock reading; a failure is logged and
// does not stop the remaining types. The returned error joins all failures.
func (s *Service) Purge(ctx context.Context) error {
	var errs []error

	for _, historyType := range entities.BoundedHistoryTypes {
		deleted, err := s.purgeType(ctx, historyType)
		if err != nil {
			errs = append(errs, s.report(opPurge, "purge "+historyType.String()+" history", err))
			continue
		}

		metrics.SnapshotsPurgedTotal.WithLabelValues(typeLabel(historyType)).Add(float64(deleted))
		if deleted > 0 {
			s.logger.Info("Purged %d expired %s snapshots", deleted, historyType)
		}
	}

	return errors.Join(errs...)
}

// purgeType removes historyType snapshots older than its cutoff at the current time
func (s *Service) purgeType(ctx context.Context, historyType entities.HistoryType) (int64, error) {
	return s.repo.DeleteMatching(ctx, purgeCriteria(historyType, s.now()))
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// report logs and counts a backend failure and returns it as a PERSISTENCE_ERROR
func (s *Service) report(op, description string, err error) error {
	ledgerErr := types.NewPersistenceError(description, err)
	metrics.PersistenceErrorsTotal.WithLabelValues(op).Inc()
	s.logger.LogError(ledgerErr)
	return ledgerErr
}

// queryCriteria selects a player's snapshots at or after the type's cutoff
func queryCriteria(playerID string, historyType entities.HistoryType, now time.Time) balance.Criteria {
	return balance.Where(
		balance.Eq(balance.FieldHistoryType, string(historyType)),
		balance.Eq(balance.FieldPlayerID, playerID),
	).AtOrAfter(Cutoff(now, historyType).UnixMilli())
}

// purgeCriteria selects every snapshot of the type strictly before its cutoff
func purgeCriteria(historyType entities.HistoryType, now time.Time) balance.Criteria {
	return balance.Where(
		balance.Eq(balance.FieldHistoryType, string(historyType)),
	).Before(Cutoff(now, historyType).UnixMilli())
}

func validateSnapshot(snapshot *entities.BalanceSnapshot) error {
	switch {
	case snapshot == nil:
		return types.NewLedgerError(types.ErrInvalidArgument, "snapshot is nil")
	case snapshot.PlayerID == "":
		return types.NewLedgerError(types.ErrInvalidArgument, "player id is required")
	case !snapshot.HistoryType.IsValid():
		return types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown history type %q", snapshot.HistoryType))
	case snapshot.Timestamp.IsZero():
		return types.NewLedgerError(types.ErrInvalidArgument, "timestamp is required")
	}
	return nil
}

// typeLabel bounds metric label cardinality to the enumeration
func typeLabel(historyType entities.HistoryType) string {
	if historyType.IsValid() {
		return string(historyType)
	}
	return "UNKNOWN"
}
