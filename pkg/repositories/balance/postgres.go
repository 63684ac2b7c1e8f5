package balance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fadedpez/ledger/pkg/db"
	_ "github.com/lib/pq"
)

// NewPostgresRepository connects to PostgreSQL using dsn and prepares the schema
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	conn, err := sql.Open(db.Postgres.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	repo, err := NewSQLRepository(conn, db.Postgres)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return repo, nil
}
