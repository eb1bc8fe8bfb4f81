package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"activerecord/internal/database"
)

// Query builds a SELECT over a model's table. Builder methods return a copy,
// so a Query can be shared and refined.
//
// Where expressions are raw SQL with ? placeholders; they are rebound to the
// dialect's placeholder style when the query runs.
type Query[T any] struct {
	model  *Model[T]
	where  []string
	args   []any
	order  []string
	limit  int
	offset int

	hasKey bool
	key    any
}

// Query starts a query over all records.
func (m *Model[T]) Query() *Query[T] {
	return &Query[T]{model: m}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.where = slices.Clone(q.where)
	c.args = slices.Clone(q.args)
	c.order = slices.Clone(q.order)
	return &c
}

// Where adds a condition. Conditions are AND-joined.
func (q *Query[T]) Where(expr string, args ...any) *Query[T] {
	c := q.clone()
	c.where = append(c.where, expr)
	c.args = append(c.args, args...)
	return c
}

// OrderBy appends ORDER BY terms such as "created_at DESC".
func (q *Query[T]) OrderBy(terms ...string) *Query[T] {
	c := q.clone()
	c.order = append(c.order, terms...)
	return c
}

// Limit caps the number of rows. Zero means no limit.
func (q *Query[T]) Limit(n int) *Query[T] {
	c := q.clone()
	c.limit = n
	return c
}

// Offset skips n rows.
func (q *Query[T]) Offset(n int) *Query[T] {
	c := q.clone()
	c.offset = n
	return c
}

func (q *Query[T]) filter(conn database.Conn) (string, []any) {
	conds := slices.Clone(q.where)
	args := slices.Clone(q.args)
	if q.hasKey {
		conds = append(conds, conn.Q(q.model.pk.Name)+" = ?")
		args = append(args, q.key)
	}
	if len(conds) == 0 {
		return "", args
	}
	for i, c := range conds {
		if len(conds) > 1 {
			conds[i] = "(" + c + ")"
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Query[T]) selectSQL(conn database.Conn) (string, []any) {
	where, args := q.filter(conn)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", conn.QList(q.model.table.ColumnNames()), conn.Q(q.model.table.Name), where)
	if len(q.order) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(q.order, ", "))
	}
	b.WriteString(conn.Dialect.LimitOffset(q.limit, q.offset))
	return conn.Rebind(b.String()), args
}

// conn returns the connection of the session bound to ctx, flushing its pending writes first.
func (q *Query[T]) conn(ctx context.Context) (database.Conn, error) {
	return q.model.db.Session(ctx).Queryer(ctx)
}

// All returns every matching record.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	conn, err := q.conn(ctx)
	if err != nil {
		return nil, err
	}
	query, args := q.selectSQL(conn)
	items := make([]*T, 0)
	if err := sqlx.SelectContext(ctx, conn, &items, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.model.table.Name, err)
	}
	return items, nil
}

// First returns the first matching record, or ErrNotFound.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	conn, err := q.conn(ctx)
	if err != nil {
		return nil, err
	}
	query, args := q.Limit(1).selectSQL(conn)
	var rec T
	if err := sqlx.GetContext(ctx, conn, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", q.model.table.Name, err)
	}
	return &rec, nil
}

// FirstOrError is like First but returns err when nothing matched.
func (q *Query[T]) FirstOrError(ctx context.Context, err error) (*T, error) {
	rec, ferr := q.First(ctx)
	if errors.Is(ferr, ErrNotFound) {
		return nil, err
	}
	return rec, ferr
}

// FirstOrElse is like First but calls fallback when nothing matched.
func (q *Query[T]) FirstOrElse(ctx context.Context, fallback func() (*T, error)) (*T, error) {
	rec, err := q.First(ctx)
	if errors.Is(err, ErrNotFound) {
		return fallback()
	}
	return rec, err
}

// Get returns the matching record with primary key pk, or ErrNotFound.
func (q *Query[T]) Get(ctx context.Context, pk any) (*T, error) {
	c := q.clone()
	c.hasKey, c.key = true, pk
	return c.First(ctx)
}

// GetOrError is like Get but returns err when the record does not exist.
func (q *Query[T]) GetOrError(ctx context.Context, pk any, err error) (*T, error) {
	rec, gerr := q.Get(ctx, pk)
	if errors.Is(gerr, ErrNotFound) {
		return nil, err
	}
	return rec, gerr
}

// Count returns the number of matching records. Order, limit and offset are ignored.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	conn, err := q.conn(ctx)
	if err != nil {
		return 0, err
	}
	where, args := q.filter(conn)
	query := conn.Rebind("SELECT COUNT(*) FROM " + conn.Q(q.model.table.Name) + where)
	var n int
	if err := conn.QueryRowxContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.model.table.Name, err)
	}
	return n, nil
}

// Exists reports whether any record matches.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	conn, err := q.conn(ctx)
	if err != nil {
		return false, err
	}
	where, args := q.filter(conn)
	query := conn.Rebind("SELECT 1 FROM " + conn.Q(q.model.table.Name) + where + conn.Dialect.LimitOffset(1, 0))
	var one int
	if err := conn.QueryRowxContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists %s: %w", q.model.table.Name, err)
	}
	return true, nil
}

// Paginate returns one page of matching records. page starts at 1; a page below 1
// is treated as 1 and a perPage below 1 as DefaultPerPage.
func (q *Query[T]) Paginate(ctx context.Context, page, perPage int) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := q.Limit(perPage).Offset((page - 1) * perPage).All(ctx)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}
