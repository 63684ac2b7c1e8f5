package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const selectBalancesSQL = `SELECT user_id, balance FROM wallets`

// SQLiteSource reads the wallets table of the bot's SQLite database.
// The database is opened read-only; the bot stays the only writer.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens the wallet database at dbPath
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("error opening wallet database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to wallet database: %w", err)
	}

	log.Printf("[WALLET_SOURCE] Reading balances from %s", dbPath)
	return &SQLiteSource{db: db}, nil
}

// Balances returns the current balance of every wallet
func (s *SQLiteSource) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, selectBalancesSQL)
	if err != nil {
		return nil, fmt.Errorf("error querying wallets: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var userID string
		var balance decimal.Decimal
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, fmt.Errorf("error scanning wallet: %w", err)
		}
		balances[userID] = balance
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return balances, nil
}

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
