// Package wallet reads live player balances from the bot's wallet store
// so they can be captured into balance history.
package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemorySource holds balances in memory
type MemorySource struct {
	balances map[string]decimal.Decimal
	mu       sync.RWMutex
}

// NewMemorySource creates an empty in-memory balance source
func NewMemorySource() *MemorySource {
	return &MemorySource{
		balances: make(map[string]decimal.Decimal),
	}
}

// SetBalance records the current balance of a user
func (s *MemorySource) SetBalance(userID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[userID] = balance
}

// Balances returns a copy of every balance
func (s *MemorySource) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.balances))
	for userID, balance := range s.balances {
		out[userID] = balance
	}
	return out, nil
}

// Close is a no-op for the memory source
func (s *MemorySource) Close() error {
	return nil
}
