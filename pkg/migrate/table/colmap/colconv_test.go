package colmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	cases := []struct {
		name       string
		mysqlType  string
		nullable   bool
		wantTarget string
		wantKind   Kind
		wantBinary bool
	}{
		{"id", "int(11)", false, "Int32", KindInt32, false},
		{"id", "int(10) unsigned", false, "UInt32", KindUInt32, false},
		{"flags", "tinyint(1)", false, "Int8", KindInt8, false},
		{"flags", "tinyint(3) unsigned", false, "UInt8", KindUInt8, false},
		{"seq", "bigint(20) unsigned", false, "UInt64", KindUInt64, false},
		{"qty", "smallint(6)", false, "Int16", KindInt16, false},
		{"qty", "mediumint(9)", false, "Int32", KindInt32, false},
		{"ratio", "float", false, "Float32", KindFloat32, false},
		{"ratio", "double", false, "Float64", KindFloat64, false},
		{"price", "decimal(10,2)", false, "Decimal(10, 2)", KindDecimal, false},
		{"price", "decimal", false, "Decimal(10, 0)", KindDecimal, false},
		{"name", "varchar(255)", false, "String", KindString, false},
		{"body", "longtext", false, "String", KindString, false},
		{"born", "date", false, "Date", KindDate, false},
		{"seen", "datetime", false, "DateTime", KindDateTime, false},
		{"seen", "timestamp", false, "DateTime", KindDateTime, false},
		{"span", "time", false, "String", KindString, false},
		{"yr", "year(4)", false, "Int16", KindInt16, false},
		{"raw", "blob", false, "String", KindString, true},
		{"raw", "varbinary(64)", false, "String", KindString, true},
		{"meta", "json", false, "String", KindString, false},
		{"kind", "enum('a','b')", false, "String", KindString, false},
		{"tags", "set('x','y')", false, "String", KindString, false},
		{"name", "varchar(255)", true, "Nullable(String)", KindString, false},
		{"id", "INT(11) UNSIGNED", false, "UInt32", KindUInt32, false},
	}

	for _, c := range cases {
		t.Run(c.mysqlType, func(t *testing.T) {
			col, err := Convert(c.name, c.mysqlType, c.nullable)
			require.NoError(t, err)
			assert.Equal(t, c.name, col.Name)
			assert.Equal(t, c.mysqlType, col.SourceType)
			assert.Equal(t, c.wantTarget, col.TargetType)
			assert.Equal(t, c.wantKind, col.Kind)
			assert.Equal(t, c.nullable, col.Nullable)
			assert.Equal(t, c.wantBinary, col.Binary)
		})
	}
}

func TestConvertNullableDecimal(t *testing.T) {
	col, err := Convert("price", "decimal(18,4)", true)
	require.NoError(t, err)
	assert.Equal(t, "Nullable(Decimal(18, 4))", col.TargetType)
	assert.Equal(t, 18, col.Precision)
	assert.Equal(t, 4, col.Scale)
}

func TestConvertUnsupportedType(t *testing.T) {
	_, err := Convert("shape", "geometry", false)
	require.Error(t, err)

	var ute *UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "shape", ute.Column)
	assert.Equal(t, "geometry", ute.SourceType)
	assert.Contains(t, err.Error(), "shape")
	assert.Contains(t, err.Error(), "geometry")
}
