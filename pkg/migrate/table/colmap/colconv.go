// package colmap
//
// maps columns between different database types and coerces row values
// into the target's native representation
package colmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind : tagged destination value class. Every supported clickhouse column
// type coerces through exactly one kind.
type Kind uint8

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindDate
	KindDateTime
)

// Column : a fully mapped column. Name and source type come from the mysql
// catalog, the rest is derived once per table and reused for every row.
type Column struct {
	Name       string
	SourceType string
	TargetType string
	Kind       Kind
	Nullable   bool
	Binary     bool
	Precision  int
	Scale      int
}

type chType struct {
	name   string
	kind   Kind
	binary bool
}

var mysqlToClickhouseMap = map[string]chType{
	"tinyint":    {"Int8", KindInt8, false},
	"smallint":   {"Int16", KindInt16, false},
	"mediumint":  {"Int32", KindInt32, false},
	"int":        {"Int32", KindInt32, false},
	"integer":    {"Int32", KindInt32, false},
	"bigint":     {"Int64", KindInt64, false},
	"float":      {"Float32", KindFloat32, false},
	"double":     {"Float64", KindFloat64, false},
	"decimal":    {"Decimal", KindDecimal, false},
	"char":       {"String", KindString, false},
	"varchar":    {"String", KindString, false},
	"text":       {"String", KindString, false},
	"tinytext":   {"String", KindString, false},
	"mediumtext": {"String", KindString, false},
	"longtext":   {"String", KindString, false},
	"date":       {"Date", KindDate, false},
	"datetime":   {"DateTime", KindDateTime, false},
	"timestamp":  {"DateTime", KindDateTime, false},
	"time":       {"String", KindString, false},
	"year":       {"Int16", KindInt16, false},
	"blob":       {"String", KindString, true},
	"tinyblob":   {"String", KindString, true},
	"mediumblob": {"String", KindString, true},
	"longblob":   {"String", KindString, true},
	"binary":     {"String", KindString, true},
	"varbinary":  {"String", KindString, true},
	"json":       {"String", KindString, false},
	"enum":       {"String", KindString, false},
	"set":        {"String", KindString, false},
}

// UnsupportedTypeError : the source column has no clickhouse mapping. This is
// fatal for the table, silently defaulting would corrupt target data.
type UnsupportedTypeError struct {
	Column     string
	SourceType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("column %s has source type %s with no clickhouse mapping", e.Column, e.SourceType)
}

// Convert : maps a raw mysql column type such as "int(11) unsigned" or
// "decimal(10,2)" to a full clickhouse Column. Errors out instead of
// defaulting when the type is unknown.
func Convert(name string, mysqlType string, nullable bool) (Column, error) {
	var (
		col      Column
		lowered  = strings.ToLower(mysqlType)
		baseType = strings.Split(lowered, "(")[0]
	)
	baseType = strings.TrimSpace(strings.Split(baseType, " ")[0])

	mapped, ok := mysqlToClickhouseMap[baseType]
	if !ok {
		return col, &UnsupportedTypeError{Column: name, SourceType: mysqlType}
	}

	col = Column{
		Name:       name,
		SourceType: mysqlType,
		TargetType: mapped.name,
		Kind:       mapped.kind,
		Nullable:   nullable,
		Binary:     mapped.binary,
	}

	if strings.Contains(lowered, "unsigned") {
		col.Kind, col.TargetType = toUnsigned(col.Kind, col.TargetType)
	}
	if col.Kind == KindDecimal {
		col.Precision, col.Scale = decimalArgs(lowered)
		col.TargetType = fmt.Sprintf("Decimal(%d, %d)", col.Precision, col.Scale)
	}
	if col.Nullable {
		col.TargetType = "Nullable(" + col.TargetType + ")"
	}
	return col, nil
}

func toUnsigned(k Kind, chName string) (Kind, string) {
	switch k {
	case KindInt8:
		return KindUInt8, "UInt8"
	case KindInt16:
		return KindUInt16, "UInt16"
	case KindInt32:
		return KindUInt32, "UInt32"
	case KindInt64:
		return KindUInt64, "UInt64"
	}
	return k, chName
}

// decimalArgs : pulls precision/scale out of "decimal(10,2)". Mysql defaults
// to (10,0) when unspecified.
func decimalArgs(lowered string) (precision int, scale int) {
	precision, scale = 10, 0
	open := strings.Index(lowered, "(")
	closing := strings.Index(lowered, ")")
	if open < 0 || closing < open {
		return
	}
	parts := strings.Split(lowered[open+1:closing], ",")
	if len(parts) >= 1 {
		if p, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			precision = p
		}
	}
	if len(parts) >= 2 {
		if s, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			scale = s
		}
	}
	return
}
