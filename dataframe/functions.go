package dataframe

import (
	"github.com/dianpeng/awkframe/plan"
)

// Free functions building new expressions out of existing ones. Operands are
// read, never consumed, an empty operand panics.

func BinaryExpr(left *Expr, op Operator, right *Expr) *Expr {
	return &Expr{inner: &plan.BinaryExpr{
		Left:  left.value("BinaryExpr"),
		Op:    op.engine(),
		Right: right.value("BinaryExpr"),
	}}
}

func And(left, right *Expr) *Expr {
	return BinaryExpr(left, OpAnd, right)
}

func Or(left, right *Expr) *Expr {
	return BinaryExpr(left, OpOr, right)
}

// Wildcard is the argument of count(*)
func Wildcard() *Expr {
	return &Expr{inner: &plan.Wildcard{}}
}

func aggregate(fn string, distinct bool, args ...*Expr) *Expr {
	return &Expr{inner: &plan.AggregateFunction{
		Func:     fn,
		Args:     values(fn, args),
		Distinct: distinct,
	}}
}

func Min(e *Expr) *Expr           { return aggregate(plan.AggMin, false, e) }
func Max(e *Expr) *Expr           { return aggregate(plan.AggMax, false, e) }
func Sum(e *Expr) *Expr           { return aggregate(plan.AggSum, false, e) }
func Avg(e *Expr) *Expr           { return aggregate(plan.AggAvg, false, e) }
func Count(e *Expr) *Expr         { return aggregate(plan.AggCount, false, e) }
func CountDistinct(e *Expr) *Expr { return aggregate(plan.AggCount, true, e) }

// ApproxDistinct counts the distinct non null values of e
func ApproxDistinct(e *Expr) *Expr {
	return aggregate(plan.AggApproxDistinct, false, e)
}

func ApproxMedian(e *Expr) *Expr {
	return aggregate(plan.AggApproxMedian, false, e)
}

// ApproxPercentileCont computes the percentile p, a constant in [0, 1], of e
// with linear interpolation between the closest ranks
func ApproxPercentileCont(e, p *Expr) *Expr {
	return aggregate(plan.AggApproxPercentileCont, false, e, p)
}

// ApproxPercentileContWithWeight is ApproxPercentileCont where every value of
// e counts weight times
func ApproxPercentileContWithWeight(e, weight, p *Expr) *Expr {
	return aggregate(plan.AggApproxPercentileContWithWeight, false, e, weight, p)
}

func InList(e *Expr, list []*Expr, negated bool) *Expr {
	return &Expr{inner: &plan.InList{
		Expr:    e.value("InList"),
		List:    values("InList", list),
		Negated: negated,
	}}
}

// Concat concatenates the text form of every argument, nulls are skipped
func Concat(args []*Expr) *Expr {
	return &Expr{inner: &plan.ScalarFunction{
		Func: plan.FuncConcat,
		Args: values("Concat", args),
	}}
}

// ConcatWs is Concat with sep between the non null arguments
func ConcatWs(sep *Expr, args []*Expr) *Expr {
	return &Expr{inner: &plan.ScalarFunction{
		Func: plan.FuncConcatWs,
		Args: append([]plan.Expr{sep.value("ConcatWs")}, values("ConcatWs", args)...),
	}}
}

// Random returns a value in [0, 1), drawn again for every row
func Random() *Expr {
	return &Expr{inner: &plan.ScalarFunction{Func: plan.FuncRandom}}
}

func GroupingSet(sets [][]*Expr) *Expr {
	out := make([][]plan.Expr, 0, len(sets))
	for _, set := range sets {
		out = append(out, values("GroupingSet", set))
	}
	return &Expr{inner: &plan.GroupingSet{Kind: plan.GroupingSets, Sets: out}}
}

// Cube groups by every subset of list
func Cube(list []*Expr) *Expr {
	return &Expr{inner: &plan.GroupingSet{
		Kind: plan.GroupingCube,
		Sets: [][]plan.Expr{values("Cube", list)},
	}}
}

// Rollup groups by every prefix of list
func Rollup(list []*Expr) *Expr {
	return &Expr{inner: &plan.GroupingSet{
		Kind: plan.GroupingRollup,
		Sets: [][]plan.Expr{values("Rollup", list)},
	}}
}

func predicate(op string, kind plan.PredicateKind, e *Expr) *Expr {
	return &Expr{inner: &plan.Predicate{Kind: kind, Expr: e.value(op)}}
}

func IsNull(e *Expr) *Expr       { return predicate("IsNull", plan.IsNull, e) }
func IsTrue(e *Expr) *Expr       { return predicate("IsTrue", plan.IsTrue, e) }
func IsNotTrue(e *Expr) *Expr    { return predicate("IsNotTrue", plan.IsNotTrue, e) }
func IsFalse(e *Expr) *Expr      { return predicate("IsFalse", plan.IsFalse, e) }
func IsNotFalse(e *Expr) *Expr   { return predicate("IsNotFalse", plan.IsNotFalse, e) }
func IsUnknown(e *Expr) *Expr    { return predicate("IsUnknown", plan.IsUnknown, e) }
func IsNotUnknown(e *Expr) *Expr { return predicate("IsNotUnknown", plan.IsNotUnknown, e) }
