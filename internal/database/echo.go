package database

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// echoExt logs each statement before handing it to the wrapped handle.
type echoExt struct {
	ext    sqlx.ExtContext
	logger *slog.Logger
}

func (e echoExt) log(ctx context.Context, query string, args []any) {
	e.logger.InfoContext(ctx, "sql",
		"component", "database",
		"event", "statement",
		"sql", query,
		"args", args,
	)
}

func (e echoExt) DriverName() string { return e.ext.DriverName() }

func (e echoExt) Rebind(query string) string { return e.ext.Rebind(query) }

func (e echoExt) BindNamed(query string, arg any) (string, []any, error) {
	return e.ext.BindNamed(query, arg)
}

func (e echoExt) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	e.log(ctx, query, args)
	return e.ext.QueryContext(ctx, query, args...)
}

func (e echoExt) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	e.log(ctx, query, args)
	return e.ext.QueryxContext(ctx, query, args...)
}

func (e echoExt) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	e.log(ctx, query, args)
	return e.ext.QueryRowxContext(ctx, query, args...)
}

func (e echoExt) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.log(ctx, query, args)
	return e.ext.ExecContext(ctx, query, args...)
}
