// internal/store/postgres/db.go
package postgres

import (
	"context"
	"database/sql"
)

// DB is the query surface the stores need; satisfied by
// database.PostgresClient.
type DB interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
