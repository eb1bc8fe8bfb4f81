package record

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"activerecord/internal/database"
)

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// upsert inserts records whose primary key is still zero. Others are updated by key
// and inserted when no row matched.
func (m *Model[T]) upsert(ctx context.Context, conn database.Conn, v reflect.Value) error {
	if m.field(v, m.pk.Name).IsZero() {
		return m.insert(ctx, conn, v)
	}
	found, err := m.update(ctx, conn, v)
	if err != nil || found {
		return err
	}
	return m.insert(ctx, conn, v)
}

func (m *Model[T]) insert(ctx context.Context, conn database.Conn, v reflect.Value) error {
	var cols, generated []string
	var args []any
	for _, c := range m.table.Columns {
		f := m.field(v, c.Name)
		if c.Auto && f.IsZero() {
			generated = append(generated, c.Name)
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, f.Interface())
	}

	q := "INSERT INTO " + conn.Q(m.table.Name)
	switch {
	case len(cols) > 0:
		q += " (" + conn.QList(cols) + ") VALUES (" + placeholders(len(cols)) + ")"
	case conn.Dialect.Name() == database.DialectMySQL:
		q += " () VALUES ()"
	default:
		q += " DEFAULT VALUES"
	}

	if len(generated) > 0 && conn.Dialect.Returning() {
		q += " RETURNING " + conn.QList(generated)
		if err := conn.QueryRowxContext(ctx, conn.Rebind(q), args...).Scan(m.pointers(v, generated)...); err != nil {
			return fmt.Errorf("insert %s: %w", m.table.Name, err)
		}
		return nil
	}

	res, err := conn.ExecContext(ctx, conn.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", m.table.Name, err)
	}
	if slices.Contains(generated, m.pk.Name) {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert %s: last insert id: %w", m.table.Name, err)
		}
		if err := setValue(m.field(v, m.pk.Name), id); err != nil {
			return fmt.Errorf("insert %s: %w", m.table.Name, err)
		}
		generated = slices.DeleteFunc(generated, func(c string) bool { return c == m.pk.Name })
	}
	if len(generated) == 0 {
		return nil
	}
	return m.reload(ctx, conn, v, generated)
}

// reload reads columns back by primary key, for drivers without RETURNING.
func (m *Model[T]) reload(ctx context.Context, conn database.Conn, v reflect.Value, columns []string) error {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", conn.QList(columns), conn.Q(m.table.Name), conn.Q(m.pk.Name))
	pk := m.field(v, m.pk.Name).Interface()
	if err := conn.QueryRowxContext(ctx, conn.Rebind(q), pk).Scan(m.pointers(v, columns)...); err != nil {
		return fmt.Errorf("reload %s: %w", m.table.Name, err)
	}
	return nil
}

// update reports whether a row with the record's key existed.
func (m *Model[T]) update(ctx context.Context, conn database.Conn, v reflect.Value) (bool, error) {
	var sets []string
	var args []any
	for _, c := range m.table.Columns {
		if c.PrimaryKey {
			continue
		}
		f := m.field(v, c.Name)
		if c.Auto && f.IsZero() {
			continue
		}
		sets = append(sets, conn.Q(c.Name)+" = ?")
		args = append(args, f.Interface())
	}
	pk := m.field(v, m.pk.Name).Interface()

	if len(sets) == 0 {
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", conn.Q(m.table.Name), conn.Q(m.pk.Name))
		var n int
		if err := conn.QueryRowxContext(ctx, conn.Rebind(q), pk).Scan(&n); err != nil {
			return false, fmt.Errorf("update %s: %w", m.table.Name, err)
		}
		return n > 0, nil
	}

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", conn.Q(m.table.Name), strings.Join(sets, ", "), conn.Q(m.pk.Name))
	res, err := conn.ExecContext(ctx, conn.Rebind(q), append(args, pk)...)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", m.table.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: rows affected: %w", m.table.Name, err)
	}
	return n > 0, nil
}

func (m *Model[T]) remove(ctx context.Context, conn database.Conn, v reflect.Value) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", conn.Q(m.table.Name), conn.Q(m.pk.Name))
	if _, err := conn.ExecContext(ctx, conn.Rebind(q), m.field(v, m.pk.Name).Interface()); err != nil {
		return fmt.Errorf("delete %s: %w", m.table.Name, err)
	}
	return nil
}
