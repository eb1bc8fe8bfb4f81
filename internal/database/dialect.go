package database

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Dialect captures the few SQL differences the layer has to know about.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver the dialect opens.
	DriverName() string
	// BindName selects the sqlx placeholder style.
	BindName() string
	System() attribute.KeyValue

	Quote(ident string) string
	// Returning reports whether INSERT ... RETURNING is available.
	Returning() bool
	LimitOffset(limit, offset int) string

	SQLType(t reflect.Type) (string, bool)
	AutoPrimaryKey(t reflect.Type) string
	// InlineIndexes reports whether indexes are declared inside CREATE TABLE.
	InlineIndexes() bool

	TablesQuery() string
	ColumnsQuery() string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch dialectAliases[strings.ToLower(name)] {
	case DialectPostgres:
		return postgresDialect{}, nil
	case DialectMySQL:
		return mysqlDialect{}, nil
	case DialectSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
}

var timeType = reflect.TypeOf(time.Time{})

func quoteWith(ident, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

type postgresDialect struct{}

func (postgresDialect) Name() string               { return DialectPostgres }
func (postgresDialect) DriverName() string         { return "pgx" }
func (postgresDialect) BindName() string           { return "pgx" }
func (postgresDialect) System() attribute.KeyValue { return semconv.DBSystemPostgreSQL }
func (postgresDialect) Quote(ident string) string  { return quoteWith(ident, `"`) }
func (postgresDialect) Returning() bool            { return true }
func (postgresDialect) InlineIndexes() bool        { return false }

func (postgresDialect) LimitOffset(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func (postgresDialect) SQLType(t reflect.Type) (string, bool) {
	switch {
	case t == timeType:
		return "TIMESTAMPTZ", true
	case isByteSlice(t):
		return "BYTEA", true
	}
	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN", true
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "SMALLINT", true
	case reflect.Int32, reflect.Uint16:
		return "INTEGER", true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "BIGINT", true
	case reflect.Float32:
		return "REAL", true
	case reflect.Float64:
		return "DOUBLE PRECISION", true
	case reflect.String:
		return "TEXT", true
	}
	return "", false
}

func (postgresDialect) AutoPrimaryKey(t reflect.Type) string {
	if t.Kind() == reflect.Int32 || t.Kind() == reflect.Int16 {
		return "SERIAL PRIMARY KEY"
	}
	return "BIGSERIAL PRIMARY KEY"
}

func (postgresDialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (postgresDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return DialectMySQL }
func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) BindName() string           { return "mysql" }
func (mysqlDialect) System() attribute.KeyValue { return semconv.DBSystemMySQL }
func (mysqlDialect) Quote(ident string) string  { return quoteWith(ident, "`") }
func (mysqlDialect) Returning() bool            { return false }
func (mysqlDialect) InlineIndexes() bool        { return true }

func (mysqlDialect) LimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		// MySQL has no OFFSET without LIMIT.
		return fmt.Sprintf(" LIMIT 18446744073709551615 OFFSET %d", offset)
	}
	return ""
}

func (mysqlDialect) SQLType(t reflect.Type) (string, bool) {
	switch {
	case t == timeType:
		return "DATETIME(6)", true
	case isByteSlice(t):
		return "BLOB", true
	}
	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN", true
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "SMALLINT", true
	case reflect.Int32, reflect.Uint16:
		return "INT", true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "BIGINT", true
	case reflect.Float32:
		return "FLOAT", true
	case reflect.Float64:
		return "DOUBLE", true
	case reflect.String:
		return "VARCHAR(255)", true
	}
	return "", false
}

func (mysqlDialect) AutoPrimaryKey(t reflect.Type) string {
	if t.Kind() == reflect.Int32 {
		return "INT AUTO_INCREMENT PRIMARY KEY"
	}
	return "BIGINT AUTO_INCREMENT PRIMARY KEY"
}

func (mysqlDialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (mysqlDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return DialectSQLite }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) BindName() string           { return "sqlite3" }
func (sqliteDialect) System() attribute.KeyValue { return semconv.DBSystemSqlite }
func (sqliteDialect) Quote(ident string) string  { return quoteWith(ident, `"`) }
func (sqliteDialect) Returning() bool            { return true }
func (sqliteDialect) InlineIndexes() bool        { return false }

func (sqliteDialect) LimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

func (sqliteDialect) SQLType(t reflect.Type) (string, bool) {
	switch {
	case t == timeType:
		return "DATETIME", true
	case isByteSlice(t):
		return "BLOB", true
	}
	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	}
	return "", false
}

func (sqliteDialect) AutoPrimaryKey(reflect.Type) string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (sqliteDialect) TablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (sqliteDialect) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}
