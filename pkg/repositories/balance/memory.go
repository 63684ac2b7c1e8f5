package balance

import (
	"context"
	"sync"
	"time"

	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	snapshots map[string]*entities.BalanceSnapshot
	mu        sync.RWMutex
}

// NewMemoryRepository creates a new in-memory balance repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		snapshots: make(map[string]*entities.BalanceSnapshot),
	}
}

// CreateMany persists a batch of new snapshots
func (r *MemoryRepository) CreateMany(ctx context.Context, snapshots []*entities.BalanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.ID == "" {
			snapshot.ID = uuid.New().String()
		}
		if _, exists := r.snapshots[snapshot.ID]; exists || seen[snapshot.ID] {
			return ErrDuplicateID
		}
		seen[snapshot.ID] = true
	}

	for _, snapshot := range snapshots {
		r.snapshots[snapshot.ID] = copySnapshot(snapshot)
	}

	return nil
}

// Upsert creates or replaces a snapshot keyed by its ID
func (r *MemoryRepository) Upsert(ctx context.Context, snapshot *entities.BalanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	r.snapshots[snapshot.ID] = copySnapshot(snapshot)

	return nil
}

// QueryWhere returns copies of the snapshots matching criteria
func (r *MemoryRepository) QueryWhere(ctx context.Context, criteria Criteria) ([]*entities.BalanceSnapshot, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.BalanceSnapshot, 0)
	for _, snapshot := range r.snapshots {
		if criteria.Matches(snapshot) {
			result = append(result, copySnapshot(snapshot))
		}
	}

	return result, nil
}

// DeleteMatching removes the snapshots matching criteria
func (r *MemoryRepository) DeleteMatching(ctx context.Context, criteria Criteria) (int64, error) {
	if criteria.IsEmpty() {
		return 0, ErrUnboundedDelete
	}
	if err := criteria.Validate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, snapshot := range r.snapshots {
		if criteria.Matches(snapshot) {
			delete(r.snapshots, id)
			deleted++
		}
	}

	return deleted, nil
}

// Len returns the number of stored snapshots
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}

// Close implements Repository
func (r *MemoryRepository) Close() error {
	return nil
}

func copySnapshot(s *entities.BalanceSnapshot) *entities.BalanceSnapshot {
	c := *s
	c.Timestamp = s.Timestamp.UTC().Truncate(time.Millisecond)
	return &c
}
