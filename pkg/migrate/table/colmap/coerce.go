package colmap

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// CoercionError : a row value does not fit the declared mapping's domain.
// Fatal for the table.
type CoercionError struct {
	Column string
	Value  string
	Cause  error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %s cannot coerce value %q: %v", e.Column, e.Value, e.Cause)
}

func (e *CoercionError) Unwrap() error { return e.Cause }

const (
	dateLayout         = "2006-01-02"
	dateTimeLayout     = "2006-01-02 15:04:05"
	dateTimeFracLayout = "2006-01-02 15:04:05.999999"
)

// Coerce : turns a raw mysql wire value into the Go value clickhouse-go
// expects for the mapped column type. A nil raw value is a SQL NULL.
// Pure, total over the mapped kinds, and fails loudly outside them.
func Coerce(raw []byte, col Column) (any, error) {
	if raw == nil {
		if col.Nullable {
			return nil, nil
		}
		return nil, &CoercionError{Column: col.Name, Value: "NULL", Cause: fmt.Errorf("NULL in non nullable column")}
	}
	s := string(raw)

	switch col.Kind {
	case KindInt8:
		return coerceInt[int8](col, s, 8)
	case KindInt16:
		return coerceInt[int16](col, s, 16)
	case KindInt32:
		return coerceInt[int32](col, s, 32)
	case KindInt64:
		return coerceInt[int64](col, s, 64)
	case KindUInt8:
		return coerceUint[uint8](col, s, 8)
	case KindUInt16:
		return coerceUint[uint16](col, s, 16)
	case KindUInt32:
		return coerceUint[uint32](col, s, 32)
	case KindUInt64:
		return coerceUint[uint64](col, s, 64)
	case KindFloat32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
		}
		return float32(f), nil
	case KindFloat64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
		}
		return f, nil
	case KindDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
		}
		return d, nil
	case KindString:
		if !col.Binary && !utf8.ValidString(s) {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: fmt.Errorf("invalid utf8 byte sequence")}
		}
		return s, nil
	case KindDate:
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
		}
		return t, nil
	case KindDateTime:
		t, err := time.Parse(dateTimeLayout, s)
		if err != nil {
			t, err = time.Parse(dateTimeFracLayout, s)
		}
		if err != nil {
			return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
		}
		return t, nil
	}
	return nil, &UnsupportedTypeError{Column: col.Name, SourceType: col.SourceType}
}

func coerceInt[T int8 | int16 | int32 | int64](col Column, s string, bits int) (any, error) {
	v, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
	}
	return T(v), nil
}

func coerceUint[T uint8 | uint16 | uint32 | uint64](col Column, s string, bits int) (any, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return nil, &CoercionError{Column: col.Name, Value: s, Cause: err}
	}
	return T(v), nil
}
