package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryType is the granularity a balance snapshot was captured at
type HistoryType string

const (
	HistoryTypeDaily     HistoryType = "DAILY"
	HistoryTypeWeekly    HistoryType = "WEEKLY"
	HistoryTypeMonthly   HistoryType = "MONTHLY"
	HistoryTypePermanent HistoryType = "PERMANENT"
)

// BoundedHistoryTypes are the granularities with a finite retention window, in purge order
var BoundedHistoryTypes = []HistoryType{
	HistoryTypeDaily,
	HistoryTypeWeekly,
	HistoryTypeMonthly,
}

// IsValid reports whether the type is a member of the enumeration
func (t HistoryType) IsValid() bool {
	switch t {
	case HistoryTypeDaily, HistoryTypeWeekly, HistoryTypeMonthly, HistoryTypePermanent:
		return true
	}
	return false
}

// String implements fmt.Stringer
func (t HistoryType) String() string {
	return string(t)
}

// ParseHistoryType converts a case-insensitive name into a HistoryType
func ParseHistoryType(s string) (HistoryType, bool) {
	t := HistoryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", false
	}
	return t, true
}

// BalanceSnapshot is a player's balance captured at a point in time
type BalanceSnapshot struct {
	ID          string          // Backend identity, generated when empty
	PlayerID    string          // Whose balance this is
	HistoryType HistoryType     // Granularity, decides retention
	Timestamp   time.Time       // When the balance was captured (UTC, millisecond precision)
	Balance     decimal.Decimal // Opaque payload
}

// TimestampMillis returns the capture time as milliseconds since the Unix epoch
func (s *BalanceSnapshot) TimestampMillis() int64 {
	return s.Timestamp.UnixMilli()
}

// FromMillis converts a persisted millisecond timestamp back to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
