// Package db holds the SQL dialect differences between the supported engines.
package db

import (
	"strconv"
	"strings"
)

// Dialect identifies a SQL engine
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// DriverName returns the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// Placeholder returns the bind marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites the ? markers in query for the dialect
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}
