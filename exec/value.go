package exec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dianpeng/awkframe/plan"
)

var (
	ErrDivideByZero = errors.New("divide by zero")
	ErrRuntimeType  = errors.New("runtime type mismatch")
)

func runtimeTypeErr(f string, args ...interface{}) error {
	return fmt.Errorf("exec: %w: %s", ErrRuntimeType, fmt.Sprintf(f, args...))
}

func asFloat(v plan.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// compareValues orders two non null values, numbers of different types are
// compared as floats
func compareValues(a, b plan.Value) (int, error) {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
		return 0, runtimeTypeErr("cannot compare Utf8 with %s", plan.TypeOfValue(b))
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			}
			return 1, nil
		}
		return 0, runtimeTypeErr("cannot compare Boolean with %s", plan.TypeOfValue(b))
	}

	l, lok := asFloat(a)
	r, rok := asFloat(b)
	if !lok || !rok {
		return 0, runtimeTypeErr("cannot compare %s with %s",
			plan.TypeOfValue(a), plan.TypeOfValue(b))
	}
	switch {
	case l < r:
		return -1, nil
	case l > r:
		return 1, nil
	case l == r:
		return 0, nil
	}
	// NaN sorts after every other number
	switch {
	case math.IsNaN(l) && math.IsNaN(r):
		return 0, nil
	case math.IsNaN(l):
		return 1, nil
	}
	return -1, nil
}

// writeKey appends an encoding of v to buf such that two values produce the
// same encoding iff they compare equal, 1 and 1.0 share a key
func writeKey(buf *strings.Builder, v plan.Value) {
	switch x := v.(type) {
	case nil:
		buf.WriteString("n;")
	case bool:
		if x {
			buf.WriteString("b1;")
		} else {
			buf.WriteString("b0;")
		}
	case int64:
		buf.WriteString("i")
		buf.WriteString(strconv.FormatInt(x, 10))
		buf.WriteByte(';')
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
			buf.WriteString("i")
			buf.WriteString(strconv.FormatInt(int64(x), 10))
		} else {
			buf.WriteString("f")
			buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
		buf.WriteByte(';')
	case string:
		buf.WriteString("s")
		buf.WriteString(strconv.Itoa(len(x)))
		buf.WriteByte(':')
		buf.WriteString(x)
	default:
		fmt.Fprintf(buf, "?%v;", x)
	}
}

func rowKey(vals []plan.Value) string {
	buf := &strings.Builder{}
	for _, v := range vals {
		writeKey(buf, v)
	}
	return buf.String()
}

func arithmeticInt(op plan.Operator, l, r int64) (plan.Value, error) {
	switch op {
	case plan.OpPlus:
		return l + r, nil
	case plan.OpMinus:
		return l - r, nil
	case plan.OpMultiply:
		return l * r, nil
	case plan.OpDivide:
		if r == 0 {
			return nil, fmt.Errorf("exec: %w", ErrDivideByZero)
		}
		return l / r, nil
	case plan.OpModulo:
		if r == 0 {
			return nil, fmt.Errorf("exec: %w", ErrDivideByZero)
		}
		return l % r, nil
	}
	return nil, runtimeTypeErr("%s is not arithmetic", op)
}

func arithmeticFloat(op plan.Operator, l, r float64) (plan.Value, error) {
	switch op {
	case plan.OpPlus:
		return l + r, nil
	case plan.OpMinus:
		return l - r, nil
	case plan.OpMultiply:
		return l * r, nil
	case plan.OpDivide:
		if r == 0 {
			return nil, fmt.Errorf("exec: %w", ErrDivideByZero)
		}
		return l / r, nil
	case plan.OpModulo:
		if r == 0 {
			return nil, fmt.Errorf("exec: %w", ErrDivideByZero)
		}
		return math.Mod(l, r), nil
	}
	return nil, runtimeTypeErr("%s is not arithmetic", op)
}

func arithmetic(op plan.Operator, l, r plan.Value) (plan.Value, error) {
	if l == nil || r == nil {
		return nil, nil
	}
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if lok && rok {
		return arithmeticInt(op, li, ri)
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, runtimeTypeErr("%s requires numbers, got %s and %s",
			op, plan.TypeOfValue(l), plan.TypeOfValue(r))
	}
	return arithmeticFloat(op, lf, rf)
}

func bitwise(op plan.Operator, l, r plan.Value) (plan.Value, error) {
	if l == nil || r == nil {
		return nil, nil
	}
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if !lok || !rok {
		return nil, runtimeTypeErr("%s requires integers, got %s and %s",
			op, plan.TypeOfValue(l), plan.TypeOfValue(r))
	}
	switch op {
	case plan.OpBitwiseAnd:
		return li & ri, nil
	case plan.OpBitwiseOr:
		return li | ri, nil
	case plan.OpBitwiseXor:
		return li ^ ri, nil
	case plan.OpBitwiseShiftLeft, plan.OpBitwiseShiftRight:
		if ri < 0 {
			return nil, fmt.Errorf("exec: negative shift count %d", ri)
		}
		if op == plan.OpBitwiseShiftLeft {
			return li << uint64(ri), nil
		}
		return li >> uint64(ri), nil
	}
	return nil, runtimeTypeErr("%s is not bitwise", op)
}

// castValue converts v into type t following the CAST rules
func castValue(v plan.Value, t plan.DataType) (plan.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case plan.TypeNull:
		return nil, nil

	case plan.TypeUtf8:
		return plan.FormatValue(v), nil

	case plan.TypeInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) >= 1<<63 {
				return nil, fmt.Errorf("exec: cannot cast %v to Int64", x)
			}
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("exec: cannot cast %q to Int64", x)
			}
			return i, nil
		}

	case plan.TypeFloat64:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("exec: cannot cast %q to Float64", x)
			}
			return f, nil
		}

	case plan.TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("exec: cannot cast %q to Boolean", x)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("exec: cannot cast %s to %s", plan.TypeOfValue(v), t)
}
