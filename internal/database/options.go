package database

import (
	"database/sql"
	"log/slog"
	"time"

	"activerecord/internal/config"
)

const (
	defaultMaxOverflow    = 10
	defaultConnectTimeout = 5 * time.Second

	mysqlPoolSize    = 10
	mysqlPoolRecycle = 7200 * time.Second
)

// Option configures a DB.
type Option func(*options)

// options keeps only the values that were explicitly given; unset values leave driver defaults alone.
type options struct {
	echo bool

	poolSize       int
	hasPoolSize    bool
	maxOverflow    int
	hasMaxOverflow bool
	poolTimeout    time.Duration
	poolRecycle    time.Duration

	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithEcho logs every statement the layer executes.
func WithEcho(echo bool) Option {
	return func(o *options) { o.echo = echo }
}

// WithPoolSize sets the number of connections kept open in the pool.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = n
		o.hasPoolSize = true
	}
}

// WithMaxOverflow sets how many connections may be opened beyond the pool size.
func WithMaxOverflow(n int) Option {
	return func(o *options) {
		o.maxOverflow = n
		o.hasMaxOverflow = true
	}
}

// WithPoolTimeout bounds how long connecting to the database may take.
func WithPoolTimeout(d time.Duration) Option {
	return func(o *options) { o.poolTimeout = d }
}

// WithPoolRecycle sets the maximum lifetime of a pooled connection.
func WithPoolRecycle(d time.Duration) Option {
	return func(o *options) { o.poolRecycle = d }
}

// WithLogger sets the logger used for engine events and echoed statements.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// OptionsFromConfig converts the environment configuration to options, skipping unset values.
func OptionsFromConfig(c config.DatabaseConfig) []Option {
	opts := []Option{WithEcho(c.Echo)}
	if c.PoolSize >= 0 {
		opts = append(opts, WithPoolSize(c.PoolSize))
	}
	if c.MaxOverflow >= 0 {
		opts = append(opts, WithMaxOverflow(c.MaxOverflow))
	}
	if c.PoolTimeoutSec > 0 {
		opts = append(opts, WithPoolTimeout(time.Duration(c.PoolTimeoutSec)*time.Second))
	}
	if c.PoolRecycleSec > 0 {
		opts = append(opts, WithPoolRecycle(time.Duration(c.PoolRecycleSec)*time.Second))
	}
	return opts
}

// applyDriverAdjustments fills in per-dialect defaults and rejects unusable combinations.
// It may add query parameters to u.
func applyDriverAdjustments(u *URL, o options) (options, error) {
	switch u.Dialect {
	case DialectMySQL:
		setQueryDefault(u, "charset", "utf8")
		setQueryDefault(u, "parseTime", "true")
		// UPDATE must report matched rows, not changed rows, for save to detect missing records.
		setQueryDefault(u, "clientFoundRows", "true")
		if !o.hasPoolSize {
			o.poolSize = mysqlPoolSize
			o.hasPoolSize = true
		}
		if o.poolRecycle == 0 {
			o.poolRecycle = mysqlPoolRecycle
		}
	case DialectSQLite:
		if u.IsMemory() && o.hasPoolSize && o.poolSize == 0 {
			return o, ErrMemoryDatabaseNoPool
		}
	}
	return o, nil
}

func setQueryDefault(u *URL, key, value string) {
	if u.Query == nil {
		u.Query = map[string][]string{}
	}
	if u.Query.Get(key) == "" {
		u.Query.Set(key, value)
	}
}

func (o options) applyPool(db *sql.DB, memory bool) {
	if memory {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	if o.hasPoolSize {
		overflow := defaultMaxOverflow
		if o.hasMaxOverflow {
			overflow = o.maxOverflow
		}
		db.SetMaxIdleConns(o.poolSize)
		if o.poolSize > 0 {
			db.SetMaxOpenConns(o.poolSize + overflow)
		}
	}
	if o.poolRecycle > 0 {
		db.SetConnMaxLifetime(o.poolRecycle)
	}
}

func (o options) connectTimeout() time.Duration {
	if o.poolTimeout > 0 {
		return o.poolTimeout
	}
	return defaultConnectTimeout
}
