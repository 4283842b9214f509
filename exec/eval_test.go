package exec

import (
	"errors"
	"testing"

	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/assert"
)

func boolSchema() *plan.Schema {
	return plan.NewSchema(
		&plan.Field{Name: "l", Type: plan.TypeBool, Nullable: true},
		&plan.Field{Name: "r", Type: plan.TypeBool, Nullable: true},
	)
}

func TestEvalThreeValued(t *testing.T) {
	assert := assert.New(t)

	vals := []plan.Value{true, false, nil}
	and := map[[2]int]plan.Value{
		{0, 0}: true, {0, 1}: false, {0, 2}: nil,
		{1, 0}: false, {1, 1}: false, {1, 2}: false,
		{2, 0}: nil, {2, 1}: false, {2, 2}: nil,
	}
	or := map[[2]int]plan.Value{
		{0, 0}: true, {0, 1}: true, {0, 2}: true,
		{1, 0}: true, {1, 1}: false, {1, 2}: nil,
		{2, 0}: true, {2, 1}: nil, {2, 2}: nil,
	}

	for i, l := range vals {
		for j, r := range vals {
			row := plan.Row{l, r}
			v, err := evalRow(t, boolSchema(), bin(col("l"), plan.OpAnd, col("r")), row)
			assert.NoError(err)
			assert.Equal(and[[2]int{i, j}], v, "%v AND %v", l, r)

			v, err = evalRow(t, boolSchema(), bin(col("l"), plan.OpOr, col("r")), row)
			assert.NoError(err)
			assert.Equal(or[[2]int{i, j}], v, "%v OR %v", l, r)
		}
	}

	v, err := evalRow(t, boolSchema(), &plan.Not{Expr: col("l")}, plan.Row{nil, nil})
	assert.NoError(err)
	assert.Nil(v)
}

func TestEvalPredicate(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		kind   plan.PredicateKind
		expect [3]bool // true, false, null
	}{
		{plan.IsNull, [3]bool{false, false, true}},
		{plan.IsNotNull, [3]bool{true, true, false}},
		{plan.IsTrue, [3]bool{true, false, false}},
		{plan.IsNotTrue, [3]bool{false, true, true}},
		{plan.IsFalse, [3]bool{false, true, false}},
		{plan.IsNotFalse, [3]bool{true, false, true}},
		{plan.IsUnknown, [3]bool{false, false, true}},
		{plan.IsNotUnknown, [3]bool{true, true, false}},
	}
	for _, c := range cases {
		for i, in := range []plan.Value{true, false, nil} {
			v, err := evalRow(t, boolSchema(), &plan.Predicate{Kind: c.kind, Expr: col("l")}, plan.Row{in, nil})
			assert.NoError(err)
			assert.Equal(c.expect[i], v, "%v %s", in, c.kind)
		}
	}
}

func numSchema() *plan.Schema {
	return plan.NewSchema(
		&plan.Field{Name: "i", Type: plan.TypeInt64, Nullable: true},
		&plan.Field{Name: "f", Type: plan.TypeFloat64, Nullable: true},
		&plan.Field{Name: "s", Type: plan.TypeUtf8, Nullable: true},
	)
}

func TestEvalArithmetic(t *testing.T) {
	assert := assert.New(t)

	row := plan.Row{int64(7), 2.0, "x"}
	cases := []struct {
		e      plan.Expr
		expect plan.Value
	}{
		{bin(col("i"), plan.OpPlus, lit(int64(1))), int64(8)},
		{bin(col("i"), plan.OpDivide, lit(int64(2))), int64(3)},
		{bin(col("i"), plan.OpModulo, lit(int64(4))), int64(3)},
		{bin(col("i"), plan.OpDivide, col("f")), 3.5},
		{bin(col("i"), plan.OpMinus, lit(nil)), nil},
		{&plan.Negative{Expr: col("i")}, int64(-7)},
		{bin(col("i"), plan.OpBitwiseAnd, lit(int64(3))), int64(3)},
		{bin(col("i"), plan.OpBitwiseShiftLeft, lit(int64(1))), int64(14)},
		{bin(col("i"), plan.OpBitwiseXor, lit(int64(1))), int64(6)},
		{bin(col("s"), plan.OpStringConcat, col("i")), "x7"},
		{bin(col("i"), plan.OpGt, col("f")), true},
		{bin(col("i"), plan.OpEq, lit(7.0)), true},
		{bin(col("i"), plan.OpIsDistinctFrom, lit(nil)), true},
		{bin(lit(nil), plan.OpIsNotDistinctFrom, lit(nil)), true},
		{bin(col("i"), plan.OpEq, lit(nil)), nil},
		{&plan.Cast{Expr: col("f"), Type: plan.TypeInt64}, int64(2)},
		{&plan.Cast{Expr: col("i"), Type: plan.TypeUtf8}, "7"},
	}
	for _, c := range cases {
		v, err := evalRow(t, numSchema(), c.e, row)
		assert.NoError(err, c.e.String())
		assert.Equal(c.expect, v, c.e.String())
	}

	_, err := evalRow(t, numSchema(), bin(col("i"), plan.OpDivide, lit(int64(0))), row)
	assert.True(errors.Is(err, ErrDivideByZero))

	_, err = evalRow(t, numSchema(), bin(col("i"), plan.OpModulo, lit(int64(0))), row)
	assert.True(errors.Is(err, ErrDivideByZero))

	_, err = evalRow(t, numSchema(), &plan.Cast{Expr: col("s"), Type: plan.TypeInt64}, row)
	assert.Error(err)
}

func TestEvalLike(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		value   plan.Value
		pattern string
		ci      bool
		negated bool
		expect  plan.Value
	}{
		{"apple", "a%", false, false, true},
		{"apple", "_pple", false, false, true},
		{"Apple", "a%", false, false, false},
		{"Apple", "a%", true, false, true},
		{"ÉCOLE", "école", true, false, true},
		{"apple", "b%", false, true, true},
		{"100%", `100\%`, false, false, true},
		{"multi\nline", "multi%", false, false, true},
		{nil, "a%", false, false, nil},
	}
	for _, c := range cases {
		e := &plan.Like{
			Expr:            col("s"),
			Pattern:         lit(c.pattern),
			CaseInsensitive: c.ci,
			Negated:         c.negated,
		}
		v, err := evalRow(t, numSchema(), e, plan.Row{nil, nil, c.value})
		assert.NoError(err)
		assert.Equal(c.expect, v, e.String())
	}

	v, err := evalRow(t, numSchema(), bin(col("s"), plan.OpRegexIMatch, lit("^AP+")), plan.Row{nil, nil, "apple"})
	assert.NoError(err)
	assert.Equal(true, v)

	v, err = evalRow(t, numSchema(), bin(col("s"), plan.OpRegexNotMatch, lit("^AP+")), plan.Row{nil, nil, "apple"})
	assert.NoError(err)
	assert.Equal(true, v)
}

func TestEvalInList(t *testing.T) {
	assert := assert.New(t)

	in := func(v plan.Value, negated bool, list ...plan.Value) plan.Value {
		items := []plan.Expr{}
		for _, x := range list {
			items = append(items, lit(x))
		}
		out, err := evalRow(t, numSchema(), &plan.InList{Expr: col("i"), List: items, Negated: negated},
			plan.Row{v, nil, nil})
		assert.NoError(err)
		return out
	}

	assert.Equal(true, in(int64(1), false, int64(1), int64(2)))
	assert.Equal(false, in(int64(3), false, int64(1), int64(2)))
	assert.Equal(nil, in(int64(3), false, int64(1), nil))
	assert.Equal(true, in(int64(3), true, int64(1), int64(2)))
	assert.Equal(nil, in(nil, false, int64(1)))
	assert.Equal(true, in(int64(2), false, 2.0))
}

func TestEvalScalar(t *testing.T) {
	assert := assert.New(t)

	row := plan.Row{int64(-3), nil, "Hé"}
	cases := []struct {
		e      plan.Expr
		expect plan.Value
	}{
		{&plan.ScalarFunction{Func: plan.FuncConcat, Args: []plan.Expr{col("s"), col("f"), col("i")}}, "Hé-3"},
		{&plan.ScalarFunction{Func: plan.FuncConcatWs, Args: []plan.Expr{lit("-"), col("s"), col("f"), col("i")}}, "Hé--3"},
		{&plan.ScalarFunction{Func: plan.FuncConcatWs, Args: []plan.Expr{lit(nil), col("s")}}, nil},
		{&plan.ScalarFunction{Func: plan.FuncUpper, Args: []plan.Expr{col("s")}}, "HÉ"},
		{&plan.ScalarFunction{Func: plan.FuncLower, Args: []plan.Expr{col("s")}}, "hé"},
		{&plan.ScalarFunction{Func: plan.FuncLength, Args: []plan.Expr{col("s")}}, int64(2)},
		{&plan.ScalarFunction{Func: plan.FuncAbs, Args: []plan.Expr{col("i")}}, int64(3)},
		{&plan.ScalarFunction{Func: plan.FuncCoalesce, Args: []plan.Expr{col("f"), col("i")}}, -3.0},
		{&plan.ScalarFunction{Func: plan.FuncCoalesce, Args: []plan.Expr{col("f")}}, nil},
	}
	for _, c := range cases {
		v, err := evalRow(t, numSchema(), c.e, row)
		assert.NoError(err, c.e.String())
		assert.Equal(c.expect, v, c.e.String())
	}

	v, err := evalRow(t, numSchema(), &plan.ScalarFunction{Func: plan.FuncRandom}, row)
	assert.NoError(err)
	f, ok := v.(float64)
	assert.True(ok)
	assert.True(f >= 0 && f < 1)
}

func TestCompareValues(t *testing.T) {
	assert := assert.New(t)

	c, err := compareValues(int64(1), 1.5)
	assert.NoError(err)
	assert.Equal(-1, c)

	c, err = compareValues("b", "a")
	assert.NoError(err)
	assert.Equal(1, c)

	c, err = compareValues(false, true)
	assert.NoError(err)
	assert.Equal(-1, c)

	_, err = compareValues("a", int64(1))
	assert.True(errors.Is(err, ErrRuntimeType))

	assert.Equal(rowKey([]plan.Value{int64(1)}), rowKey([]plan.Value{1.0}))
	assert.NotEqual(rowKey([]plan.Value{"1"}), rowKey([]plan.Value{int64(1)}))
	assert.NotEqual(rowKey([]plan.Value{nil}), rowKey([]plan.Value{""}))
}
