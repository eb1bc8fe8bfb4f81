package record

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// ToMap returns the record's column values keyed by column name.
func (m *Model[T]) ToMap(rec *T) map[string]any {
	v := reflect.ValueOf(rec).Elem()
	out := make(map[string]any, len(m.table.Columns))
	for _, c := range m.table.Columns {
		out[c.Name] = m.field(v, c.Name).Interface()
	}
	return out
}

// ToJSON renders ToMap as a JSON object. Times are written in RFC 3339 and
// driver.Valuer values (sql.NullString and friends) are resolved first.
func (m *Model[T]) ToJSON(rec *T) ([]byte, error) {
	data := m.ToMap(rec)
	for k, v := range data {
		jv, err := jsonValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.table.Name, k, err)
		}
		data[k] = jv
	}
	return json.Marshal(data)
}

func jsonValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.Format(time.RFC3339Nano), nil
	case driver.Valuer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		dv, err := t.Value()
		if err != nil {
			return nil, err
		}
		if tm, ok := dv.(time.Time); ok {
			return tm.Format(time.RFC3339Nano), nil
		}
		return dv, nil
	}
	return v, nil
}
