package balance

import (
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/shopspring/decimal"
)

// ESBalanceSnapshot represents a balance snapshot document in Elasticsearch
type ESBalanceSnapshot struct {
	ID          string `json:"id"`
	PlayerID    string `json:"player_id"`
	HistoryType string `json:"history_type"`
	Timestamp   int64  `json:"timestamp"` // epoch millis
	Balance     string `json:"balance"`
}

func toESSnapshot(s *entities.BalanceSnapshot) ESBalanceSnapshot {
	return ESBalanceSnapshot{
		ID:          s.ID,
		PlayerID:    s.PlayerID,
		HistoryType: string(s.HistoryType),
		Timestamp:   s.TimestampMillis(),
		Balance:     s.Balance.String(),
	}
}

func (d ESBalanceSnapshot) toEntity() (*entities.BalanceSnapshot, error) {
	balance, err := decimal.NewFromString(d.Balance)
	if err != nil {
		return nil, err
	}
	return &entities.BalanceSnapshot{
		ID:          d.ID,
		PlayerID:    d.PlayerID,
		HistoryType: entities.HistoryType(d.HistoryType),
		Timestamp:   entities.FromMillis(d.Timestamp),
		Balance:     balance,
	}, nil
}

const balanceIndexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"player_id": { "type": "keyword" },
			"history_type": { "type": "keyword" },
			"timestamp": { "type": "date", "format": "epoch_millis" },
			"balance": { "type": "keyword", "index": false }
		}
	}
}`
