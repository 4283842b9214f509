package plan

import (
	"fmt"
	"math"
	"strconv"
)

// DataType is the scalar type of a column or an expression
type DataType int

const (
	TypeNull DataType = iota
	TypeBool
	TypeInt64
	TypeFloat64
	TypeUtf8
)

func (self DataType) String() string {
	switch self {
	case TypeNull:
		return "Null"
	case TypeBool:
		return "Boolean"
	case TypeInt64:
		return "Int64"
	case TypeFloat64:
		return "Float64"
	case TypeUtf8:
		return "Utf8"
	default:
		return fmt.Sprintf("DataType(%d)", int(self))
	}
}

func (self DataType) IsNumeric() bool {
	return self == TypeInt64 || self == TypeFloat64
}

// ParseDataType maps a SQL type name, as written inside CAST, to a DataType
func ParseDataType(name string) (DataType, bool) {
	switch name {
	case "bool", "boolean":
		return TypeBool, true
	case "int", "integer", "bigint", "smallint", "tinyint", "int64", "long":
		return TypeInt64, true
	case "float", "double", "real", "decimal", "numeric", "float64":
		return TypeFloat64, true
	case "string", "text", "varchar", "char", "utf8":
		return TypeUtf8, true
	default:
		return TypeNull, false
	}
}

// Value is one cell. The dynamic type is always one of nil, bool, int64,
// float64 or string
type Value = any

type Row []Value

func TypeOfValue(v Value) DataType {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBool
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case string:
		return TypeUtf8
	default:
		return TypeNull
	}
}

// NormalizeValue folds every Go scalar kind into the canonical cell types.
// The second return value is false when the input has no cell representation
func NormalizeValue(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case bool:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return float64(x), true
		}
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return float64(x), true
		}
		return int64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return nil, false
	}
}

// FormatValue renders a cell the way it is displayed in a result table
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CommonType returns the type two operands are coerced into when compared or
// combined. Null unifies with everything, Int64 widens into Float64
func CommonType(l, r DataType) (DataType, bool) {
	switch {
	case l == r:
		return l, true
	case l == TypeNull:
		return r, true
	case r == TypeNull:
		return l, true
	case l.IsNumeric() && r.IsNumeric():
		return TypeFloat64, true
	default:
		return TypeNull, false
	}
}
