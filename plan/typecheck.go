package plan

import (
	"errors"
)

// ResolveColumn finds the index of c inside of schema
func ResolveColumn(schema *Schema, c *Column) (int, error) {
	idx, err := schema.IndexOf(c.Qualifier, c.Name)
	if err != nil && c.Qualifier != "" && errors.Is(err, ErrUnresolvedColumn) {
		// "t.a" may be the verbatim name of a computed column
		if alt, altErr := schema.IndexOf("", c.Qualifier+"."+c.Name); altErr == nil {
			return alt, nil
		}
	}
	return idx, err
}

func typeErr(f string, args ...interface{}) error {
	return planErr("type", ErrTypeMismatch, f, args...)
}

func isBoolish(t DataType) bool {
	return t == TypeBool || t == TypeNull
}

func isStringish(t DataType) bool {
	return t == TypeUtf8 || t == TypeNull
}

func isIntish(t DataType) bool {
	return t == TypeInt64 || t == TypeNull
}

func isNumericish(t DataType) bool {
	return t.IsNumeric() || t == TypeNull
}

// TypeOf computes the output type of e evaluated over rows of schema
func TypeOf(e Expr, schema *Schema) (DataType, error) {
	f, err := FieldOf(e, schema)
	if err != nil {
		return TypeNull, err
	}
	return f.Type, nil
}

// FieldOf computes the output column of e evaluated over rows of schema,
// checking the types of every sub-expression on the way
func FieldOf(e Expr, schema *Schema) (*Field, error) {
	qualifier, name := NameOf(e)
	field := &Field{Qualifier: qualifier, Name: name, Nullable: true}

	switch x := e.(type) {
	case *Column:
		idx, err := ResolveColumn(schema, x)
		if err != nil {
			return nil, err
		}
		src := schema.Field(idx)
		field.Qualifier = src.Qualifier
		field.Name = src.Name
		field.Type = src.Type
		field.Nullable = src.Nullable
		return field, nil

	case *Literal:
		field.Type = TypeOfValue(x.Value)
		field.Nullable = x.Value == nil
		return field, nil

	case *Alias:
		inner, err := FieldOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		field.Type = inner.Type
		field.Nullable = inner.Nullable
		return field, nil

	case *SortExpr:
		inner, err := FieldOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		return inner, nil

	case *BinaryExpr:
		t, err := binaryType(x, schema)
		if err != nil {
			return nil, err
		}
		field.Type = t
		if x.Op == OpIsDistinctFrom || x.Op == OpIsNotDistinctFrom {
			field.Nullable = false
		}
		return field, nil

	case *Not:
		t, err := TypeOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		if !isBoolish(t) {
			return nil, typeErr("NOT requires a boolean operand, got %s in %s", t, x)
		}
		field.Type = TypeBool
		return field, nil

	case *Negative:
		t, err := TypeOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		if !isNumericish(t) {
			return nil, typeErr("negation requires a numeric operand, got %s in %s", t, x)
		}
		field.Type = t
		return field, nil

	case *Predicate:
		t, err := TypeOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		if x.Kind != IsNull && x.Kind != IsNotNull && !isBoolish(t) {
			return nil, typeErr("%s requires a boolean operand, got %s", x.Kind, t)
		}
		field.Type = TypeBool
		field.Nullable = false
		return field, nil

	case *Like:
		lt, err := TypeOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		rt, err := TypeOf(x.Pattern, schema)
		if err != nil {
			return nil, err
		}
		if !isStringish(lt) || !isStringish(rt) {
			return nil, typeErr("LIKE requires string operands, got %s and %s", lt, rt)
		}
		field.Type = TypeBool
		return field, nil

	case *InList:
		t, err := TypeOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		for _, item := range x.List {
			it, err := TypeOf(item, schema)
			if err != nil {
				return nil, err
			}
			if _, ok := CommonType(t, it); !ok {
				return nil, typeErr("IN list item %s of type %s is not comparable with %s",
					item, it, t)
			}
		}
		field.Type = TypeBool
		return field, nil

	case *AggregateFunction:
		t, nullable, err := aggregateType(x, schema)
		if err != nil {
			return nil, err
		}
		field.Type = t
		field.Nullable = nullable
		return field, nil

	case *Wildcard:
		return nil, planErr("type", ErrInvalidArgument, "* is only valid as argument of count")

	case *ScalarFunction:
		t, err := scalarType(x, schema)
		if err != nil {
			return nil, err
		}
		field.Type = t
		field.Nullable = x.Func != FuncRandom
		return field, nil

	case *GroupingSet:
		return nil, planErr("type", ErrInvalidArgument,
			"%s is only valid as the group expression of an aggregate", x)

	case *Cast:
		inner, err := FieldOf(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		field.Type = x.Type
		field.Nullable = inner.Nullable || x.Type != inner.Type
		return field, nil

	default:
		return nil, planErr("type", ErrNotSupported, "unknown expression %T", e)
	}
}

func binaryType(x *BinaryExpr, schema *Schema) (DataType, error) {
	lt, err := TypeOf(x.Left, schema)
	if err != nil {
		return TypeNull, err
	}
	rt, err := TypeOf(x.Right, schema)
	if err != nil {
		return TypeNull, err
	}

	switch {
	case x.Op.IsComparison(), x.Op == OpIsDistinctFrom, x.Op == OpIsNotDistinctFrom:
		if _, ok := CommonType(lt, rt); !ok {
			return TypeNull, typeErr("cannot compare %s with %s in %s", lt, rt, x)
		}
		return TypeBool, nil

	case x.Op == OpAnd, x.Op == OpOr:
		if !isBoolish(lt) || !isBoolish(rt) {
			return TypeNull, typeErr("%s requires boolean operands, got %s and %s in %s",
				x.Op, lt, rt, x)
		}
		return TypeBool, nil

	case x.Op.IsArithmetic():
		if !isNumericish(lt) || !isNumericish(rt) {
			return TypeNull, typeErr("%s requires numeric operands, got %s and %s in %s",
				x.Op, lt, rt, x)
		}
		if lt == TypeFloat64 || rt == TypeFloat64 {
			return TypeFloat64, nil
		}
		if lt == TypeNull && rt == TypeNull {
			return TypeNull, nil
		}
		return TypeInt64, nil

	case x.Op.IsRegex():
		if !isStringish(lt) || !isStringish(rt) {
			return TypeNull, typeErr("%s requires string operands, got %s and %s in %s",
				x.Op, lt, rt, x)
		}
		return TypeBool, nil

	case x.Op.IsBitwise():
		if !isIntish(lt) || !isIntish(rt) {
			return TypeNull, typeErr("%s requires integer operands, got %s and %s in %s",
				x.Op, lt, rt, x)
		}
		return TypeInt64, nil

	case x.Op == OpStringConcat:
		return TypeUtf8, nil

	default:
		return TypeNull, planErr("type", ErrNotSupported, "unknown operator %s", x.Op)
	}
}

func literalFloat(e Expr) (float64, bool) {
	l, ok := e.(*Literal)
	if !ok {
		return 0, false
	}
	switch v := l.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// PercentileOf returns the percentile argument of approx_percentile_cont
func PercentileOf(x *AggregateFunction) (float64, bool) {
	if len(x.Args) == 0 {
		return 0, false
	}
	return literalFloat(x.Args[len(x.Args)-1])
}

func aggregateType(x *AggregateFunction, schema *Schema) (DataType, bool, error) {
	arity := func(n int) error {
		if len(x.Args) != n {
			return planErr("type", ErrInvalidArgument, "%s expects %d argument(s), got %d",
				x.Func, n, len(x.Args))
		}
		return nil
	}

	types := make([]DataType, 0, len(x.Args))
	for _, a := range x.Args {
		if ContainsAggregate(a) {
			return TypeNull, false, planErr("type", ErrInvalidArgument,
				"aggregate function calls cannot be nested: %s", x)
		}
		if _, ok := a.(*Wildcard); ok && x.Func == AggCount {
			types = append(types, TypeNull)
			continue
		}
		t, err := TypeOf(a, schema)
		if err != nil {
			return TypeNull, false, err
		}
		types = append(types, t)
	}

	switch x.Func {
	case AggCount:
		if len(x.Args) == 0 {
			return TypeNull, false, planErr("type", ErrInvalidArgument, "count expects arguments")
		}
		return TypeInt64, false, nil

	case AggApproxDistinct:
		if err := arity(1); err != nil {
			return TypeNull, false, err
		}
		return TypeInt64, false, nil

	case AggMin, AggMax:
		if err := arity(1); err != nil {
			return TypeNull, false, err
		}
		return types[0], true, nil

	case AggSum:
		if err := arity(1); err != nil {
			return TypeNull, false, err
		}
		if !isNumericish(types[0]) {
			return TypeNull, false, typeErr("sum requires a numeric argument, got %s", types[0])
		}
		if types[0] == TypeFloat64 {
			return TypeFloat64, true, nil
		}
		return TypeInt64, true, nil

	case AggAvg, AggApproxMedian:
		if err := arity(1); err != nil {
			return TypeNull, false, err
		}
		if !isNumericish(types[0]) {
			return TypeNull, false, typeErr("%s requires a numeric argument, got %s",
				x.Func, types[0])
		}
		return TypeFloat64, true, nil

	case AggApproxPercentileCont, AggApproxPercentileContWithWeight:
		n := 2
		if x.Func == AggApproxPercentileContWithWeight {
			n = 3
		}
		if err := arity(n); err != nil {
			return TypeNull, false, err
		}
		for _, t := range types[:n-1] {
			if !isNumericish(t) {
				return TypeNull, false, typeErr("%s requires numeric arguments, got %s",
					x.Func, t)
			}
		}
		p, ok := PercentileOf(x)
		if !ok || p < 0 || p > 1 {
			return TypeNull, false, planErr("type", ErrInvalidArgument,
				"percentile of %s must be a literal between 0 and 1", x.Func)
		}
		return TypeFloat64, true, nil

	default:
		return TypeNull, false, planErr("type", ErrNotSupported,
			"unknown aggregate function %s", x.Func)
	}
}

func scalarType(x *ScalarFunction, schema *Schema) (DataType, error) {
	types := make([]DataType, 0, len(x.Args))
	for _, a := range x.Args {
		t, err := TypeOf(a, schema)
		if err != nil {
			return TypeNull, err
		}
		types = append(types, t)
	}
	arity := func(n int) error {
		if len(x.Args) != n {
			return planErr("type", ErrInvalidArgument, "%s expects %d argument(s), got %d",
				x.Func, n, len(x.Args))
		}
		return nil
	}

	switch x.Func {
	case FuncConcat:
		if len(types) == 0 {
			return TypeNull, planErr("type", ErrInvalidArgument, "concat expects arguments")
		}
		return TypeUtf8, nil

	case FuncConcatWs:
		if len(types) < 2 {
			return TypeNull, planErr("type", ErrInvalidArgument,
				"concat_ws expects a separator and at least one argument")
		}
		if !isStringish(types[0]) {
			return TypeNull, typeErr("separator of concat_ws must be a string, got %s", types[0])
		}
		return TypeUtf8, nil

	case FuncRandom:
		if err := arity(0); err != nil {
			return TypeNull, err
		}
		return TypeFloat64, nil

	case FuncLower, FuncUpper:
		if err := arity(1); err != nil {
			return TypeNull, err
		}
		if !isStringish(types[0]) {
			return TypeNull, typeErr("%s requires a string argument, got %s", x.Func, types[0])
		}
		return TypeUtf8, nil

	case FuncLength:
		if err := arity(1); err != nil {
			return TypeNull, err
		}
		if !isStringish(types[0]) {
			return TypeNull, typeErr("length requires a string argument, got %s", types[0])
		}
		return TypeInt64, nil

	case FuncAbs:
		if err := arity(1); err != nil {
			return TypeNull, err
		}
		if !isNumericish(types[0]) {
			return TypeNull, typeErr("abs requires a numeric argument, got %s", types[0])
		}
		return types[0], nil

	case FuncCoalesce:
		if len(types) == 0 {
			return TypeNull, planErr("type", ErrInvalidArgument, "coalesce expects arguments")
		}
		out := TypeNull
		for _, t := range types {
			ct, ok := CommonType(out, t)
			if !ok {
				return TypeNull, typeErr("coalesce arguments %s and %s are not compatible", out, t)
			}
			out = ct
		}
		return out, nil

	default:
		return TypeNull, planErr("type", ErrNotSupported, "unknown function %s", x.Func)
	}
}
