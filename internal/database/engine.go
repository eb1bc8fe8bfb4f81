package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/iancoleman/strcase"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	sqlOpen        = sql.Open
	registerDriver = otelsql.Register
)

// NewMapper returns the struct mapper shared by engines and models: the db tag wins,
// untagged fields map to their snake_case name.
func NewMapper() *reflectx.Mapper {
	return reflectx.NewMapperFunc("db", strcase.ToSnake)
}

// Engine is a connected database handle plus the dialect it speaks.
// It is safe for concurrent use.
type Engine struct {
	db      *sqlx.DB
	dialect Dialect
	url     *URL
	echo    bool
	logger  *slog.Logger
	opts    options
}

func newEngine(sqlDB *sql.DB, d Dialect, u *URL, o options) *Engine {
	xdb := sqlx.NewDb(sqlDB, d.BindName())
	xdb.Mapper = NewMapper()
	return &Engine{
		db:      xdb,
		dialect: d,
		url:     u,
		echo:    o.echo,
		logger:  o.logger,
		opts:    o,
	}
}

// openEngine registers the otelsql-wrapped driver, opens the pool and verifies connectivity.
func openEngine(u *URL, o options) (*Engine, error) {
	d, err := DialectFor(u.Dialect)
	if err != nil {
		return nil, err
	}

	driverName, err := registerDriver(d.DriverName(),
		otelsql.WithAttributes(d.System()),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	sqlDB, err := sqlOpen(driverName, u.DSN())
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	o.applyPool(sqlDB, u.IsMemory())

	ctx, cancel := context.WithTimeout(context.Background(), o.connectTimeout())
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	eng := newEngine(sqlDB, d, u, o)
	stats := sqlDB.Stats()
	o.logger.Info("engine connected",
		"component", "database",
		"event", "engine_connected",
		"url", u.Redacted(),
		"dialect", d.Name(),
		"echo", o.echo,
		"pool_size", o.poolSize,
		"max_open_conns", stats.MaxOpenConnections,
	)
	return eng, nil
}

// DB returns the underlying sqlx handle.
func (e *Engine) DB() *sqlx.DB { return e.db }

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() Dialect { return e.dialect }

// URL returns the URL the engine was opened with; nil for wrapped handles.
func (e *Engine) URL() *URL { return e.url }

// Echo reports whether statements are logged.
func (e *Engine) Echo() bool { return e.echo }

// Stats returns connection pool statistics.
func (e *Engine) Stats() sql.DBStats { return e.db.Stats() }

// Ping verifies connectivity, bounded by the pool timeout.
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.connectTimeout())
	defer cancel()
	return e.db.PingContext(ctx)
}

// Close closes the pool.
func (e *Engine) Close() error { return e.db.Close() }

// Conn returns a non-transactional connection to run statements on.
func (e *Engine) Conn() Conn {
	return e.conn(e.db)
}

func (e *Engine) conn(ext sqlx.ExtContext) Conn {
	if e.echo {
		ext = echoExt{ext: ext, logger: e.logger}
	}
	return Conn{ExtContext: ext, Dialect: e.dialect}
}

// Conn is what queued operations and queries run against: a plain pool handle or a
// session transaction, together with the dialect needed to render SQL for it.
type Conn struct {
	sqlx.ExtContext
	Dialect Dialect
}

// Q quotes an identifier.
func (c Conn) Q(ident string) string { return c.Dialect.Quote(ident) }

// QList quotes and comma-joins identifiers.
func (c Conn) QList(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = c.Dialect.Quote(id)
	}
	return strings.Join(quoted, ", ")
}
