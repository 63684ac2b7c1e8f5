package balance

import (
	"context"

	"github.com/fadedpez/ledger/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_balance

// Repository defines storage operations for balance snapshots
type Repository interface {
	// CreateMany persists a batch of new snapshots, all or nothing
	CreateMany(ctx context.Context, snapshots []*entities.BalanceSnapshot) error

	// Upsert creates or fully replaces a snapshot keyed by its ID
	Upsert(ctx context.Context, snapshot *entities.BalanceSnapshot) error

	// QueryWhere returns the snapshots matching every predicate in criteria
	QueryWhere(ctx context.Context, criteria Criteria) ([]*entities.BalanceSnapshot, error)

	// DeleteMatching removes the snapshots matching criteria and reports how many were removed
	DeleteMatching(ctx context.Context, criteria Criteria) (int64, error)

	// Close closes any resources used by the repository
	Close() error
}
