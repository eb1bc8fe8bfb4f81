// Package record gives plain structs an active-record interface on top of a database.DB:
// records are created, saved, updated and deleted through the DB session, and read back
// through a small query builder.
//
// Columns come from `db` struct tags. After the column name a tag may carry options:
//
//	ID        int64     `db:"id,pk,auto"`
//	Email     string    `db:"email,unique"`
//	CreatedAt time.Time `db:"created_at,index"`
//	Payload   []byte    `db:"payload,type=JSONB"`
//
// Untagged exported fields map to their snake_case name.
package record

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jmoiron/sqlx/reflectx"

	"activerecord/internal/database"
)

// Fields maps column names to values.
type Fields map[string]any

// TableNamer lets a model choose its table name instead of the inferred one.
type TableNamer interface {
	TableName() string
}

// Model is the active-record handle for records of type T. It is safe for concurrent use.
type Model[T any] struct {
	db     *database.DB
	table  *database.Table
	typ    reflect.Type
	fields map[string][]int
	pk     database.Column
}

// Register maps T to a table and adds the table to db's metadata.
func Register[T any](db *database.DB) (*Model[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, typ)
	}

	sm := database.NewMapper().TypeMap(typ)
	infos := make([]*reflectx.FieldInfo, 0, len(sm.Index))
	for _, fi := range sm.Index {
		// Nested struct fields (sql.NullString.Valid and the like) are not columns.
		if fi.Embedded || strings.Contains(fi.Path, ".") || sm.Names[fi.Path] != fi {
			continue
		}
		infos = append(infos, fi)
	}
	slices.SortFunc(infos, func(a, b *reflectx.FieldInfo) int {
		return slices.Compare(a.Index, b.Index)
	})

	m := &Model[T]{
		db:     db,
		typ:    typ,
		fields: make(map[string][]int, len(infos)),
		table:  &database.Table{Name: tableName(typ)},
	}
	pks := 0
	for _, fi := range infos {
		_, nullable := database.Nullable(fi.Field.Type)
		col := database.Column{
			Name:       fi.Path,
			GoType:     fi.Field.Type,
			PrimaryKey: hasOption(fi, "pk"),
			Auto:       hasOption(fi, "auto"),
			Unique:     hasOption(fi, "unique"),
			Index:      hasOption(fi, "index"),
			Nullable:   nullable,
			SQLType:    fi.Options["type"],
		}
		if col.PrimaryKey {
			m.pk = col
			pks++
		}
		m.table.Columns = append(m.table.Columns, col)
		m.fields[col.Name] = fi.Index
	}
	switch {
	case pks == 0:
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, typ.Name())
	case pks > 1:
		return nil, fmt.Errorf("model %s: composite primary keys are not supported", typ.Name())
	}

	db.Register(m.table)
	return m, nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](db *database.DB) *Model[T] {
	m, err := Register[T](db)
	if err != nil {
		panic(err)
	}
	return m
}

func hasOption(fi *reflectx.FieldInfo, name string) bool {
	_, ok := fi.Options[name]
	return ok
}

// tableName prefers TableName() and otherwise snake-cases the type name: UserProfile becomes user_profile.
func tableName(typ reflect.Type) string {
	if n, ok := reflect.New(typ).Interface().(TableNamer); ok {
		if name := n.TableName(); name != "" {
			return name
		}
	}
	return strcase.ToSnake(typ.Name())
}

// DB returns the database the model is registered on.
func (m *Model[T]) DB() *database.DB { return m.db }

// Table returns the table metadata.
func (m *Model[T]) Table() *database.Table { return m.table }

// PrimaryKey returns the primary key column.
func (m *Model[T]) PrimaryKey() database.Column { return m.pk }

func (m *Model[T]) String() string {
	return "<" + m.typ.Name() + ">"
}

func (m *Model[T]) field(v reflect.Value, column string) reflect.Value {
	return reflectx.FieldByIndexes(v, m.fields[column])
}

func (m *Model[T]) pointers(v reflect.Value, columns []string) []any {
	ptrs := make([]any, len(columns))
	for i, c := range columns {
		ptrs[i] = m.field(v, c).Addr().Interface()
	}
	return ptrs
}

// Get returns the record with primary key pk, or ErrNotFound.
func (m *Model[T]) Get(ctx context.Context, pk any) (*T, error) {
	return m.Query().Get(ctx, pk)
}

// GetOrError is like Get but returns err when the record does not exist.
func (m *Model[T]) GetOrError(ctx context.Context, pk any, err error) (*T, error) {
	return m.Query().GetOrError(ctx, pk, err)
}

// GetOrElse is like Get but calls fallback when the record does not exist.
func (m *Model[T]) GetOrElse(ctx context.Context, pk any, fallback func() (*T, error)) (*T, error) {
	rec, err := m.Get(ctx, pk)
	if errors.Is(err, ErrNotFound) {
		return fallback()
	}
	return rec, err
}

// New builds an unsaved record from fields.
func (m *Model[T]) New(fields Fields) (*T, error) {
	rec := new(T)
	if err := m.assign(rec, fields); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create builds a record from fields and saves it.
func (m *Model[T]) Create(ctx context.Context, fields Fields) (*T, error) {
	rec, err := m.New(fields)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save adds rec to the session and commits. The session is rolled back when the commit fails.
func (m *Model[T]) Save(ctx context.Context, rec *T) error {
	if rec == nil {
		return fmt.Errorf("save %s: nil record", m.table.Name)
	}
	s := m.db.Session(ctx)
	s.Add(database.Op{
		Key: rec,
		Run: func(ctx context.Context, conn database.Conn) error {
			return m.upsert(ctx, conn, reflect.ValueOf(rec).Elem())
		},
	})
	return commitOrRollback(ctx, s)
}

// Update assigns fields to rec and saves it.
func (m *Model[T]) Update(ctx context.Context, rec *T, fields Fields) error {
	if rec == nil {
		return fmt.Errorf("update %s: nil record", m.table.Name)
	}
	if err := m.assign(rec, fields); err != nil {
		return err
	}
	return m.Save(ctx, rec)
}

// Delete removes rec and commits. The session is rolled back when the commit fails.
// Deleting a row that does not exist is not an error.
func (m *Model[T]) Delete(ctx context.Context, rec *T) error {
	if rec == nil {
		return fmt.Errorf("delete %s: nil record", m.table.Name)
	}
	s := m.db.Session(ctx)
	s.Delete(database.Op{
		Key: rec,
		Run: func(ctx context.Context, conn database.Conn) error {
			return m.remove(ctx, conn, reflect.ValueOf(rec).Elem())
		},
	})
	return commitOrRollback(ctx, s)
}

func commitOrRollback(ctx context.Context, s *database.Session) error {
	if err := s.Commit(ctx); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}
