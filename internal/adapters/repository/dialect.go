package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect struct {
	driver string
	// rebind rewrites ? placeholders for the driver.
	rebind func(string) string
	// readTx is used for aggregate snapshots.
	readTx *sql.TxOptions
	// idType and realType fill the schema template.
	idType   string
	realType string
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		return dialect{
			driver:   DriverSQLite,
			rebind:   func(q string) string { return q },
			readTx:   &sql.TxOptions{},
			idType:   "INTEGER PRIMARY KEY AUTOINCREMENT",
			realType: "REAL",
		}, nil
	case DriverPostgres, "postgresql", "pq":
		return dialect{
			driver:   DriverPostgres,
			rebind:   dollarPlaceholders,
			readTx:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
			idType:   "BIGSERIAL PRIMARY KEY",
			realType: "DOUBLE PRECISION",
		}, nil
	}
	return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

// dollarPlaceholders turns "a = ? AND b = ?" into "a = $1 AND b = $2".
func dollarPlaceholders(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
