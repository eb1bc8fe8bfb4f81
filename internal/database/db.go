package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"

	"activerecord/internal/database/migration"
)

var (
	ErrNotConfigured        = errors.New("database is not configured")
	ErrNoSession            = errors.New("no session bound to context")
	ErrUnsupportedDialect   = errors.New("unsupported database dialect")
	ErrMemoryDatabaseNoPool = errors.New("sqlite in-memory database with an empty pool (pool size 0) is not possible due to data loss")
)

// DB is the entry point of the layer: it owns the lazily connected engine, hands out
// sessions, and keeps the metadata of registered tables.
type DB struct {
	mu   sync.RWMutex
	uri  string
	url  *URL
	opts options

	engineLock sync.Mutex
	connector  *Connector

	metaMu sync.Mutex
	tables []*Table

	appsMu sync.Mutex
	apps   map[any]struct{}
}

// New creates a DB for uri. Nothing is connected until the engine is first needed.
// An empty uri is allowed; such a DB must be given one through Reconfigure before use.
func New(uri string, opts ...Option) (*DB, error) {
	db := &DB{apps: map[any]struct{}{}}
	if err := db.configure(uri, opts); err != nil {
		return nil, err
	}
	return db, nil
}

// FromSQL wraps an already opened handle speaking the named dialect.
func FromSQL(sqlDB *sql.DB, dialect string, opts ...Option) (*DB, error) {
	d, err := DialectFor(dialect)
	if err != nil {
		return nil, err
	}
	db := &DB{apps: map[any]struct{}{}}
	o := newOptions(opts)
	db.opts = o
	db.url = &URL{Dialect: d.Name()}
	db.connector = &Connector{db: db}
	db.connector.seed(newEngine(sqlDB, d, db.url, o), connectKey{echo: o.echo})
	return db, nil
}

func (db *DB) configure(uri string, opts []Option) error {
	o := newOptions(opts)
	var u *URL
	if uri != "" {
		parsed, err := ParseURL(uri)
		if err != nil {
			return err
		}
		if o, err = applyDriverAdjustments(parsed, o); err != nil {
			return err
		}
		u = parsed
	}

	db.mu.Lock()
	db.uri, db.url, db.opts = uri, u, o
	db.mu.Unlock()
	return nil
}

// Reconfigure points the DB at a new uri and options. The engine is rebuilt on next use
// when the (uri, echo) pair changed.
func (db *DB) Reconfigure(uri string, opts ...Option) error {
	if uri == "" {
		return ErrNotConfigured
	}
	return db.configure(uri, opts)
}

func (db *DB) target() (string, *URL, options) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.uri, db.url, db.opts
}

// Logger returns the logger the DB was configured with.
func (db *DB) Logger() *slog.Logger {
	_, _, o := db.target()
	return o.logger
}

// Engine returns the connected engine, connecting on first use.
func (db *DB) Engine() (*Engine, error) {
	db.engineLock.Lock()
	defer db.engineLock.Unlock()
	if db.connector == nil {
		db.connector = &Connector{db: db}
	}
	return db.connector.Engine()
}

// PingContext verifies the database is reachable.
func (db *DB) PingContext(ctx context.Context) error {
	eng, err := db.Engine()
	if err != nil {
		return err
	}
	return eng.Ping(ctx)
}

// Close closes the engine, if one was opened.
func (db *DB) Close() error {
	db.engineLock.Lock()
	defer db.engineLock.Unlock()
	if db.connector == nil {
		return nil
	}
	return db.connector.close()
}

func (db *DB) String() string {
	_, u, _ := db.target()
	if u == nil {
		return "database.DB(<unconfigured>)"
	}
	return fmt.Sprintf("database.DB(%q)", u.Redacted())
}

// Attach records that app uses this DB. It returns false when app was already attached.
func (db *DB) Attach(app any) bool {
	db.appsMu.Lock()
	defer db.appsMu.Unlock()
	if _, ok := db.apps[app]; ok {
		return false
	}
	db.apps[app] = struct{}{}
	return true
}

type sessionKey struct{ db *DB }

// NewSession returns a new, unbound session.
func (db *DB) NewSession() *Session {
	return newSession(db)
}

// Scope returns a context carrying a new session for this DB.
func (db *DB) Scope(ctx context.Context) (context.Context, *Session) {
	s := db.NewSession()
	return context.WithValue(ctx, sessionKey{db: db}, s), s
}

// SessionFromContext returns the session bound to ctx for this DB.
func (db *DB) SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{db: db}).(*Session)
	return s, ok
}

// Session returns the session bound to ctx, or a fresh one scoped to the caller.
func (db *DB) Session(ctx context.Context) *Session {
	if s, ok := db.SessionFromContext(ctx); ok {
		return s
	}
	return db.NewSession()
}

func (db *DB) bound(ctx context.Context) (*Session, error) {
	s, ok := db.SessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Add queues op on the session bound to ctx.
func (db *DB) Add(ctx context.Context, op Op) error {
	s, err := db.bound(ctx)
	if err != nil {
		return err
	}
	s.Add(op)
	return nil
}

// Delete queues a delete on the session bound to ctx.
func (db *DB) Delete(ctx context.Context, op Op) error {
	s, err := db.bound(ctx)
	if err != nil {
		return err
	}
	s.Delete(op)
	return nil
}

// Flush flushes the session bound to ctx.
func (db *DB) Flush(ctx context.Context) error {
	s, err := db.bound(ctx)
	if err != nil {
		return err
	}
	return s.Flush(ctx)
}

// Commit commits the session bound to ctx.
func (db *DB) Commit(ctx context.Context) error {
	s, err := db.bound(ctx)
	if err != nil {
		return err
	}
	return s.Commit(ctx)
}

// Rollback rolls back the session bound to ctx.
func (db *DB) Rollback(ctx context.Context) error {
	s, err := db.bound(ctx)
	if err != nil {
		return err
	}
	return s.Rollback()
}

// Register adds t to the metadata. Registering a table name twice keeps the first.
func (db *DB) Register(t *Table) {
	db.metaMu.Lock()
	defer db.metaMu.Unlock()
	for _, existing := range db.tables {
		if existing.Name == t.Name {
			return
		}
	}
	db.tables = append(db.tables, t)
}

// Metadata returns the registered tables in registration order.
func (db *DB) Metadata() []*Table {
	db.metaMu.Lock()
	defer db.metaMu.Unlock()
	return append([]*Table(nil), db.tables...)
}

func (db *DB) host() string {
	_, u, _ := db.target()
	if u == nil {
		return ""
	}
	return u.Host
}

// CreateAll creates every registered table and its indexes when missing.
func (db *DB) CreateAll(ctx context.Context) error {
	eng, err := db.Engine()
	if err != nil {
		return err
	}
	steps, err := createSteps(eng.Dialect(), db.Metadata())
	if err != nil {
		return err
	}
	return migration.Run(ctx, eng.Conn(), steps, db.Logger(), db.host())
}

// DropAll drops every registered table.
func (db *DB) DropAll(ctx context.Context) error {
	eng, err := db.Engine()
	if err != nil {
		return err
	}
	return migration.Run(ctx, eng.Conn(), dropSteps(eng.Dialect(), db.Metadata()), db.Logger(), db.host())
}

// ReflectedTable is a table found in the database catalog.
type ReflectedTable struct {
	Name    string
	Columns []string
}

// Reflect lists the tables present in the database with their columns.
func (db *DB) Reflect(ctx context.Context) ([]ReflectedTable, error) {
	eng, err := db.Engine()
	if err != nil {
		return nil, err
	}
	conn := eng.Conn()

	var names []string
	if err := sqlx.SelectContext(ctx, conn, &names, conn.Dialect.TablesQuery()); err != nil {
		return nil, fmt.Errorf("reflect tables: %w", err)
	}

	out := make([]ReflectedTable, 0, len(names))
	for _, name := range names {
		var cols []string
		if err := sqlx.SelectContext(ctx, conn, &cols, conn.Rebind(conn.Dialect.ColumnsQuery()), name); err != nil {
			return nil, fmt.Errorf("reflect columns of %s: %w", name, err)
		}
		out = append(out, ReflectedTable{Name: name, Columns: cols})
	}
	return out, nil
}
