package record

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// assign sets each field on rec. Columns are applied in name order so errors are deterministic.
func (m *Model[T]) assign(rec *T, fields Fields) error {
	v := reflect.ValueOf(rec).Elem()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if _, ok := m.fields[name]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.table.Name, name)
		}
		if err := setValue(m.field(v, name), fields[name]); err != nil {
			return fmt.Errorf("%s.%s: %w", m.table.Name, name, err)
		}
	}
	return nil
}

// setValue stores val in dst, which must be addressable. Values of the field's type are
// set directly; anything else is decoded through convertValue and must convert without loss.
func setValue(dst reflect.Value, val any) error {
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if src := reflect.ValueOf(val); src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	var convErr error
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ZeroFields: true,
		Result:     dst.Addr().Interface(),
		DecodeHook: mapstructure.DecodeHookFuncValue(func(from, to reflect.Value) (interface{}, error) {
			out, err := convertValue(from, to.Type())
			if err != nil && convErr == nil {
				convErr = err
			}
			return out, err
		}),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(val); err != nil {
		if convErr != nil {
			return convErr
		}
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

// convertValue returns src as a value of type dt. Pointer targets are filled with the
// converted element, sql.Scanner targets scan src, and integers are never turned into strings.
func convertValue(src reflect.Value, dt reflect.Type) (any, error) {
	for src.Kind() == reflect.Pointer && !src.IsNil() && !src.Type().AssignableTo(dt) {
		src = src.Elem()
	}
	st := src.Type()
	if st.AssignableTo(dt) {
		return src.Interface(), nil
	}
	if dt.Kind() == reflect.Pointer {
		return convertValue(src, dt.Elem())
	}
	if sc, ok := reflect.New(dt).Interface().(sql.Scanner); ok {
		if err := sc.Scan(src.Interface()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return reflect.ValueOf(sc).Elem().Interface(), nil
	}
	if !st.ConvertibleTo(dt) || !lossless(src, dt) {
		return nil, fmt.Errorf("%w: cannot use %s as %s", ErrInvalidValue, st, dt)
	}
	return src.Convert(dt).Interface(), nil
}

// lossless reports whether converting src to dt keeps its value.
func lossless(src reflect.Value, dt reflect.Type) bool {
	sk, dk := src.Kind(), dt.Kind()
	switch {
	case dk == reflect.String:
		return !isSigned(sk) && !isUnsigned(sk)
	case isFloat(sk) && isSigned(dk):
		f := src.Float()
		return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !dt.OverflowInt(int64(f))
	case isFloat(sk) && isUnsigned(dk):
		f := src.Float()
		return f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 && !dt.OverflowUint(uint64(f))
	case isFloat(sk) && isFloat(dk):
		f := src.Float()
		return math.IsNaN(f) || math.IsInf(f, 0) || !dt.OverflowFloat(f)
	case isSigned(sk) && isSigned(dk):
		return !dt.OverflowInt(src.Int())
	case isSigned(sk) && isUnsigned(dk):
		return src.Int() >= 0 && !dt.OverflowUint(uint64(src.Int()))
	case isUnsigned(sk) && isSigned(dk):
		return src.Uint() <= math.MaxInt64 && !dt.OverflowInt(int64(src.Uint()))
	case isUnsigned(sk) && isUnsigned(dk):
		return !dt.OverflowUint(src.Uint())
	case sk == reflect.Slice && dk == reflect.Array:
		return src.Len() == dt.Len()
	}
	return true
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
