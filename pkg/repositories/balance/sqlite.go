package balance

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fadedpez/ledger/pkg/db"
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteRepository opens (creating if needed) a SQLite balance history database
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	conn, err := sql.Open(db.SQLite.DriverName(), dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	repo, err := NewSQLRepository(conn, db.SQLite)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return repo, nil
}
