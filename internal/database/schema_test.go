package database

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notesTable() *Table {
	return &Table{
		Name: "notes",
		Columns: []Column{
			{Name: "id", GoType: reflect.TypeOf(int64(0)), PrimaryKey: true, Auto: true},
			{Name: "title", GoType: reflect.TypeOf(""), Index: true},
			{Name: "slug", GoType: reflect.TypeOf(""), Unique: true, Index: true},
			{Name: "body", GoType: reflect.TypeOf((*string)(nil)), Nullable: true},
			{Name: "created_at", GoType: reflect.TypeOf(time.Time{}), Index: true},
		},
	}
}

func TestCreateTableSteps(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		steps, err := createTableSteps(postgresDialect{}, notesTable())
		require.NoError(t, err)
		require.Len(t, steps, 3)

		assert.Equal(t, "create_table_notes", steps[0].Name)
		assert.Equal(t, `CREATE TABLE IF NOT EXISTS "notes" (
  "id" BIGSERIAL PRIMARY KEY,
  "title" TEXT NOT NULL,
  "slug" TEXT NOT NULL UNIQUE,
  "body" TEXT,
  "created_at" TIMESTAMPTZ NOT NULL
)`, steps[0].SQL)

		assert.Equal(t, "create_index_notes_title", steps[1].Name)
		assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_notes_title" ON "notes" ("title")`, steps[1].SQL)
		assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_notes_created_at" ON "notes" ("created_at")`, steps[2].SQL)
	})

	t.Run("mysql declares indexes inline", func(t *testing.T) {
		steps, err := createTableSteps(mysqlDialect{}, notesTable())
		require.NoError(t, err)
		require.Len(t, steps, 1)

		assert.Equal(t, "CREATE TABLE IF NOT EXISTS `notes` (\n"+
			"  `id` BIGINT AUTO_INCREMENT PRIMARY KEY,\n"+
			"  `title` VARCHAR(255) NOT NULL,\n"+
			"  INDEX `idx_notes_title` (`title`),\n"+
			"  `slug` VARCHAR(255) NOT NULL UNIQUE,\n"+
			"  `body` VARCHAR(255),\n"+
			"  `created_at` DATETIME(6) NOT NULL,\n"+
			"  INDEX `idx_notes_created_at` (`created_at`)\n"+
			")", steps[0].SQL)
	})

	t.Run("sqlite", func(t *testing.T) {
		steps, err := createTableSteps(sqliteDialect{}, notesTable())
		require.NoError(t, err)
		require.Len(t, steps, 3)
		assert.Contains(t, steps[0].SQL, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
		assert.Contains(t, steps[0].SQL, `"created_at" DATETIME NOT NULL`)
	})

	t.Run("explicit sql type wins", func(t *testing.T) {
		table := &Table{Name: "docs", Columns: []Column{
			{Name: "id", GoType: reflect.TypeOf(""), PrimaryKey: true, SQLType: "UUID"},
		}}
		steps, err := createTableSteps(postgresDialect{}, table)
		require.NoError(t, err)
		assert.Contains(t, steps[0].SQL, `"id" UUID PRIMARY KEY`)
	})

	t.Run("unmapped type", func(t *testing.T) {
		table := &Table{Name: "bad", Columns: []Column{
			{Name: "tags", GoType: reflect.TypeOf(map[string]string{})},
		}}
		_, err := createTableSteps(postgresDialect{}, table)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "table bad: column tags")
	})
}

func TestDropSteps(t *testing.T) {
	steps := dropSteps(postgresDialect{}, []*Table{{Name: "a"}, {Name: "b"}})
	require.Len(t, steps, 2)
	assert.Equal(t, `DROP TABLE IF EXISTS "b"`, steps[0].SQL)
	assert.Equal(t, `DROP TABLE IF EXISTS "a"`, steps[1].SQL)
}

func TestNullable(t *testing.T) {
	base, ok := Nullable(reflect.TypeOf((*int64)(nil)))
	assert.True(t, ok)
	assert.Equal(t, reflect.Int64, base.Kind())

	base, ok = Nullable(reflect.TypeOf(sql.NullString{}))
	assert.True(t, ok)
	assert.Equal(t, reflect.String, base.Kind())

	base, ok = Nullable(reflect.TypeOf(sql.NullTime{}))
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(time.Time{}), base)

	_, ok = Nullable(reflect.TypeOf(time.Time{}))
	assert.False(t, ok)
}

func TestTable_PrimaryKey(t *testing.T) {
	pk, ok := notesTable().PrimaryKey()
	assert.True(t, ok)
	assert.Equal(t, "id", pk.Name)
	assert.Equal(t, []string{"id", "title", "slug", "body", "created_at"}, notesTable().ColumnNames())

	_, ok = (&Table{Name: "x"}).PrimaryKey()
	assert.False(t, ok)
}

func TestDialect_LimitOffset(t *testing.T) {
	tests := []struct {
		dialect Dialect
		limit   int
		offset  int
		want    string
	}{
		{postgresDialect{}, 10, 20, " LIMIT 10 OFFSET 20"},
		{postgresDialect{}, 0, 20, " OFFSET 20"},
		{mysqlDialect{}, 0, 20, " LIMIT 18446744073709551615 OFFSET 20"},
		{sqliteDialect{}, 0, 20, " LIMIT -1 OFFSET 20"},
		{sqliteDialect{}, 5, 0, " LIMIT 5"},
		{mysqlDialect{}, 0, 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dialect.LimitOffset(tt.limit, tt.offset), "%s(%d, %d)", tt.dialect.Name(), tt.limit, tt.offset)
	}
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, `"odd""name"`, postgresDialect{}.Quote(`odd"name`))
	assert.Equal(t, "`odd``name`", mysqlDialect{}.Quote("odd`name"))

	_, err := DialectFor("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d.Name())
}
