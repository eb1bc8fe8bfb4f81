package database

import (
	"fmt"
	"reflect"
	"strings"

	"activerecord/internal/database/migration"
)

// Column describes one mapped column.
type Column struct {
	Name       string
	GoType     reflect.Type
	PrimaryKey bool
	// Auto columns are generated by the database; zero values are omitted on insert
	// and read back afterwards.
	Auto     bool
	Unique   bool
	Index    bool
	Nullable bool
	// SQLType overrides the dialect's type mapping.
	SQLType string
}

// Table describes a mapped table.
type Table struct {
	Name    string
	Columns []Column
}

// PrimaryKey returns the primary key column.
func (t *Table) PrimaryKey() (Column, bool) {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in mapping order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Nullable reports whether values of t can hold SQL NULL, and returns the underlying type.
// Pointers and the database/sql Null* wrappers are nullable.
func Nullable(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		return t.Elem(), true
	}
	if t.Kind() == reflect.Struct && t.PkgPath() == "database/sql" &&
		strings.HasPrefix(t.Name(), "Null") && t.NumField() > 0 {
		return t.Field(0).Type, true
	}
	return t, false
}

func indexName(table, column string) string {
	return "idx_" + table + "_" + column
}

func columnDef(d Dialect, c Column) (string, error) {
	name := d.Quote(c.Name)
	base, _ := Nullable(c.GoType)
	if c.PrimaryKey && c.Auto && c.SQLType == "" {
		return name + " " + d.AutoPrimaryKey(base), nil
	}

	typ := c.SQLType
	if typ == "" {
		var ok bool
		if typ, ok = d.SQLType(base); !ok {
			return "", fmt.Errorf("column %s: no %s type for %s", c.Name, d.Name(), c.GoType)
		}
	}

	var b strings.Builder
	b.WriteString(name + " " + typ)
	if !c.Nullable && !c.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	return b.String(), nil
}

// createTableSteps renders CREATE TABLE and CREATE INDEX statements for t.
func createTableSteps(d Dialect, t *Table) ([]migration.Step, error) {
	defs := make([]string, 0, len(t.Columns))
	var indexSteps []migration.Step
	for _, c := range t.Columns {
		def, err := columnDef(d, c)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, def)

		if !c.Index || c.PrimaryKey || c.Unique {
			continue
		}
		idx := indexName(t.Name, c.Name)
		if d.InlineIndexes() {
			defs = append(defs, fmt.Sprintf("INDEX %s (%s)", d.Quote(idx), d.Quote(c.Name)))
			continue
		}
		indexSteps = append(indexSteps, migration.Step{
			Name: "create_index_" + t.Name + "_" + c.Name,
			SQL:  fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", d.Quote(idx), d.Quote(t.Name), d.Quote(c.Name)),
		})
	}

	create := migration.Step{
		Name: "create_table_" + t.Name,
		SQL:  fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", d.Quote(t.Name), strings.Join(defs, ",\n  ")),
	}
	return append([]migration.Step{create}, indexSteps...), nil
}

func createSteps(d Dialect, tables []*Table) ([]migration.Step, error) {
	var steps []migration.Step
	for _, t := range tables {
		s, err := createTableSteps(d, t)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s...)
	}
	return steps, nil
}

// dropSteps drops tables in reverse registration order.
func dropSteps(d Dialect, tables []*Table) []migration.Step {
	steps := make([]migration.Step, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		steps = append(steps, migration.Step{
			Name: "drop_table_" + tables[i].Name,
			SQL:  "DROP TABLE IF EXISTS " + d.Quote(tables[i].Name),
		})
	}
	return steps
}
