package balance

import (
	"errors"
	"fmt"

	"github.com/fadedpez/ledger/pkg/entities"
)

var (
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	ErrUnboundedDelete      = errors.New("delete requires at least one predicate")
	ErrDuplicateID          = errors.New("snapshot id already exists")
)

// Field names a filterable snapshot attribute
type Field string

const (
	FieldPlayerID    Field = "player_id"
	FieldHistoryType Field = "history_type"
	FieldTimestamp   Field = "timestamp"
)

// RangeOp is a comparison applied to the timestamp
type RangeOp string

const (
	OpGreaterOrEqual RangeOp = ">="
	OpLessThan       RangeOp = "<"
)

// Equality matches snapshots whose field equals Value
type Equality struct {
	Field Field
	Value string
}

// Range compares a millisecond timestamp field against Value
type Range struct {
	Field Field
	Op    RangeOp
	Value int64
}

// Criteria is a conjunction of equality predicates and an optional range
type Criteria struct {
	Equals []Equality
	Range  *Range
}

// Where starts a Criteria from equality predicates
func Where(equals ...Equality) Criteria {
	return Criteria{Equals: equals}
}

// Eq builds an equality predicate
func Eq(field Field, value string) Equality {
	return Equality{Field: field, Value: value}
}

// AtOrAfter restricts the criteria to timestamps >= ms
func (c Criteria) AtOrAfter(ms int64) Criteria {
	c.Range = &Range{Field: FieldTimestamp, Op: OpGreaterOrEqual, Value: ms}
	return c
}

// Before restricts the criteria to timestamps < ms
func (c Criteria) Before(ms int64) Criteria {
	c.Range = &Range{Field: FieldTimestamp, Op: OpLessThan, Value: ms}
	return c
}

// IsEmpty reports whether the criteria matches everything
func (c Criteria) IsEmpty() bool {
	return len(c.Equals) == 0 && c.Range == nil
}

// Validate checks that every predicate uses a known field and operator
func (c Criteria) Validate() error {
	for _, eq := range c.Equals {
		if eq.Field != FieldPlayerID && eq.Field != FieldHistoryType {
			return fmt.Errorf("%w: equality on %q", ErrUnsupportedPredicate, eq.Field)
		}
	}
	if c.Range != nil {
		if c.Range.Field != FieldTimestamp {
			return fmt.Errorf("%w: range on %q", ErrUnsupportedPredicate, c.Range.Field)
		}
		if c.Range.Op != OpGreaterOrEqual && c.Range.Op != OpLessThan {
			return fmt.Errorf("%w: operator %q", ErrUnsupportedPredicate, c.Range.Op)
		}
	}
	return nil
}

// Matches evaluates the criteria against a snapshot in memory
func (c Criteria) Matches(s *entities.BalanceSnapshot) bool {
	for _, eq := range c.Equals {
		switch eq.Field {
		case FieldPlayerID:
			if s.PlayerID != eq.Value {
				return false
			}
		case FieldHistoryType:
			if string(s.HistoryType) != eq.Value {
				return false
			}
		default:
			return false
		}
	}

	if c.Range != nil {
		ts := s.TimestampMillis()
		switch c.Range.Op {
		case OpGreaterOrEqual:
			return ts >= c.Range.Value
		case OpLessThan:
			return ts < c.Range.Value
		default:
			return false
		}
	}

	return true
}
