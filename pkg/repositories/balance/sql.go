package balance

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/fadedpez/ledger/pkg/db"
	"github.com/fadedpez/ledger/pkg/db/migrations"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	selectSnapshotsSQL = `SELECT id, player_id, history_type, captured_at, balance FROM balance_history`

	insertSnapshotSQL = `
		INSERT INTO balance_history (id, player_id, history_type, captured_at, balance)
		VALUES (?, ?, ?, ?, ?)`

	upsertSnapshotSQL = `
		INSERT INTO balance_history (id, player_id, history_type, captured_at, balance)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			player_id = excluded.player_id,
			history_type = excluded.history_type,
			captured_at = excluded.captured_at,
			balance = excluded.balance`
)

var columns = map[Field]string{
	FieldPlayerID:    "player_id",
	FieldHistoryType: "history_type",
	FieldTimestamp:   "captured_at",
}

// SQLRepository implements Repository on top of database/sql
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLRepository wraps an open connection and applies pending schema migrations
func NewSQLRepository(conn *sql.DB, dialect db.Dialect) (*SQLRepository, error) {
	migrator := migrations.NewMigrator(conn, migrations.Embedded(), dialect)
	if err := migrator.MigrateUp(); err != nil {
		return nil, fmt.Errorf("error migrating balance history schema: %w", err)
	}

	return &SQLRepository{db: conn, dialect: dialect}, nil
}

// CreateMany inserts every snapshot inside one transaction
func (r *SQLRepository) CreateMany(ctx context.Context, snapshots []*entities.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(insertSnapshotSQL))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, snapshot := range snapshots {
		if snapshot.ID == "" {
			snapshot.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, snapshotArgs(snapshot)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting snapshot %s: %w", snapshot.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing snapshots: %w", err)
	}

	log.Printf("[BALANCE_REPO] Created %d snapshots", len(snapshots))
	return nil
}

// Upsert inserts a snapshot or replaces the row with the same ID
func (r *SQLRepository) Upsert(ctx context.Context, snapshot *entities.BalanceSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(upsertSnapshotSQL), snapshotArgs(snapshot)...); err != nil {
		return fmt.Errorf("error upserting snapshot %s: %w", snapshot.ID, err)
	}

	return nil
}

// QueryWhere returns the snapshots matching criteria
func (r *SQLRepository) QueryWhere(ctx context.Context, criteria Criteria) ([]*entities.BalanceSnapshot, error) {
	where, args, err := r.buildWhere(criteria)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectSnapshotsSQL+where, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*entities.BalanceSnapshot, 0)
	for rows.Next() {
		var (
			snapshot    entities.BalanceSnapshot
			historyType string
			capturedAt  int64
			balance     string
		)

		if err := rows.Scan(&snapshot.ID, &snapshot.PlayerID, &historyType, &capturedAt, &balance); err != nil {
			return nil, fmt.Errorf("error scanning snapshot row: %w", err)
		}

		snapshot.HistoryType = entities.HistoryType(historyType)
		snapshot.Timestamp = entities.FromMillis(capturedAt)
		snapshot.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("error parsing balance %q of snapshot %s: %w", balance, snapshot.ID, err)
		}

		snapshots = append(snapshots, &snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}

// DeleteMatching removes the rows matching criteria
func (r *SQLRepository) DeleteMatching(ctx context.Context, criteria Criteria) (int64, error) {
	if criteria.IsEmpty() {
		return 0, ErrUnboundedDelete
	}

	where, args, err := r.buildWhere(criteria)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM balance_history"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	return deleted, nil
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// buildWhere renders criteria as a WHERE clause with dialect placeholders
func (r *SQLRepository) buildWhere(criteria Criteria) (string, []interface{}, error) {
	if err := criteria.Validate(); err != nil {
		return "", nil, err
	}
	if criteria.IsEmpty() {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(criteria.Equals)+1)
	args := make([]interface{}, 0, len(criteria.Equals)+1)

	for _, eq := range criteria.Equals {
		clauses = append(clauses, columns[eq.Field]+" = ?")
		args = append(args, eq.Value)
	}

	if rng := criteria.Range; rng != nil {
		clauses = append(clauses, fmt.Sprintf("%s %s ?", columns[rng.Field], rng.Op))
		args = append(args, rng.Value)
	}

	return r.dialect.Rebind(" WHERE " + strings.Join(clauses, " AND ")), args, nil
}

func snapshotArgs(s *entities.BalanceSnapshot) []interface{} {
	return []interface{}{
		s.ID,
		s.PlayerID,
		string(s.HistoryType),
		s.TimestampMillis(),
		s.Balance.String(),
	}
}
