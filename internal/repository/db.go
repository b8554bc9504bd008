package repository

import (
	"context"
	"database/sql"
)

// DBTX is the query surface repositories need. Both *sql.DB and
// *observability.TraceDB satisfy it.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
