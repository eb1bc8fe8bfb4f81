package record

import (
	"database/sql"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetValue(t *testing.T) {
	var target struct {
		Name   string
		Count  int64
		Ratio  float32
		Label  *string
		Note   sql.NullString
		Blob   []byte
		Weight int
	}
	v := reflect.ValueOf(&target).Elem()

	require.NoError(t, setValue(v.FieldByName("Name"), "alice"))
	assert.Equal(t, "alice", target.Name)

	require.NoError(t, setValue(v.FieldByName("Count"), 12), "int converts to int64")
	assert.Equal(t, int64(12), target.Count)

	require.NoError(t, setValue(v.FieldByName("Weight"), float64(3)), "JSON numbers arrive as float64")
	assert.Equal(t, 3, target.Weight)

	require.NoError(t, setValue(v.FieldByName("Ratio"), 0.5))
	assert.Equal(t, float32(0.5), target.Ratio)

	require.NoError(t, setValue(v.FieldByName("Label"), "tag"), "values are wrapped into pointers")
	require.NotNil(t, target.Label)
	assert.Equal(t, "tag", *target.Label)

	require.NoError(t, setValue(v.FieldByName("Note"), "scanned"), "sql.Scanner fields scan the value")
	assert.Equal(t, sql.NullString{String: "scanned", Valid: true}, target.Note)

	require.NoError(t, setValue(v.FieldByName("Blob"), "bytes"))
	assert.Equal(t, []byte("bytes"), target.Blob)

	require.NoError(t, setValue(v.FieldByName("Label"), nil), "nil resets to the zero value")
	assert.Nil(t, target.Label)

	err := setValue(v.FieldByName("Name"), 65)
	assert.ErrorIs(t, err, ErrInvalidValue, "integers are not turned into runes")
	assert.Equal(t, "alice", target.Name)

	err = setValue(v.FieldByName("Count"), "12")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSetValue_RejectsLossyConversions(t *testing.T) {
	var target struct {
		Size   int64
		Small  int8
		Count  uint16
		Ratio  float32
		Digest [4]byte
		Ref    *int32
	}
	v := reflect.ValueOf(&target).Elem()

	tests := []struct {
		name  string
		field string
		value any
	}{
		{name: "fractional float into int", field: "Size", value: 3.7},
		{name: "NaN into int", field: "Size", value: math.NaN()},
		{name: "infinity into int", field: "Size", value: math.Inf(1)},
		{name: "int overflows int8", field: "Small", value: int64(300)},
		{name: "negative into unsigned", field: "Count", value: -1},
		{name: "uint overflows uint16", field: "Count", value: uint64(70000)},
		{name: "float overflows uint16", field: "Count", value: float64(1 << 20)},
		{name: "float64 overflows float32", field: "Ratio", value: math.MaxFloat64},
		{name: "short slice into array", field: "Digest", value: []byte{1}},
		{name: "long slice into array", field: "Digest", value: []byte{1, 2, 3, 4, 5}},
		{name: "overflow through pointer", field: "Ref", value: int64(1) << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := v.FieldByName(tt.field).Interface()
			var err error
			require.NotPanics(t, func() { err = setValue(v.FieldByName(tt.field), tt.value) })
			assert.ErrorIs(t, err, ErrInvalidValue)
			assert.Equal(t, before, v.FieldByName(tt.field).Interface(), "field is left unchanged")
		})
	}
}

func TestSetValue_LosslessConversions(t *testing.T) {
	var target struct {
		Small  int8
		Count  uint16
		Digest [4]byte
		Ref    *int32
	}
	v := reflect.ValueOf(&target).Elem()

	require.NoError(t, setValue(v.FieldByName("Small"), int64(-128)))
	assert.Equal(t, int8(-128), target.Small)

	require.NoError(t, setValue(v.FieldByName("Count"), float64(65535)))
	assert.Equal(t, uint16(65535), target.Count)

	require.NoError(t, setValue(v.FieldByName("Digest"), []byte{1, 2, 3, 4}))
	assert.Equal(t, [4]byte{1, 2, 3, 4}, target.Digest)

	require.NoError(t, setValue(v.FieldByName("Ref"), 7))
	require.NotNil(t, target.Ref)
	assert.Equal(t, int32(7), *target.Ref)
}
