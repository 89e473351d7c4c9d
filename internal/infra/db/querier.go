package db

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB the persistence adapters need.
// Accepting the interface lets tests substitute sqlmock connections
// for a live pool.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
