package dataframe

import (
	"fmt"

	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
)

// Expr builds one expression. The chainable methods replace the wrapped value
// in place and return the receiver, so
//
//	Col("a").LtEq(Col("b")).And(Col("c").IsNotNull())
//
// is a single handle mutated 2 times. An Expr is not safe for concurrent use.
// Operands are read and never modified.
type Expr struct {
	inner plan.Expr
}

// apply takes the value out of the handle and stores fn's result back. A
// handle without a value stays empty and fn is not called
func (self *Expr) apply(op string, fn func(plan.Expr) plan.Expr) *Expr {
	inner := self.inner
	self.inner = nil
	if inner == nil {
		logger.Debug("expr: call on poisoned handle ignored", "op", op)
		return self
	}
	self.inner = fn(inner)
	return self
}

func (self *Expr) value(op string) plan.Expr {
	if self == nil || self.inner == nil {
		panic(&PoisonedError{Kind: "Expr", Op: op})
	}
	return self.inner
}

func values(op string, list []*Expr) []plan.Expr {
	out := make([]plan.Expr, 0, len(list))
	for _, e := range list {
		out = append(out, e.value(op))
	}
	return out
}

// Lit wraps a constant. Accepted kinds are nil, bool, every integer and float
// kind and string. Any other kind is a programming error and panics
func Lit(value any) *Expr {
	v, ok := plan.NormalizeValue(value)
	if !ok {
		panic(fmt.Sprintf("awkframe: Lit of unsupported type %T", value))
	}
	return &Expr{inner: &plan.Literal{Value: v}}
}

// Col references a column, name is either "a" or "t.a"
func Col(name string) *Expr {
	return &Expr{inner: plan.ColumnFromName(name)}
}

func (self *Expr) Alias(name string) *Expr {
	return self.apply("Alias", func(e plan.Expr) plan.Expr {
		return &plan.Alias{Expr: e, Name: name}
	})
}

// Unalias removes every alias on top of the expression
func (self *Expr) Unalias() *Expr {
	return self.apply("Unalias", plan.Unalias)
}

func (self *Expr) Not() *Expr {
	return self.apply("Not", func(e plan.Expr) plan.Expr {
		return &plan.Not{Expr: e}
	})
}

func (self *Expr) predicate(op string, kind plan.PredicateKind) *Expr {
	return self.apply(op, func(e plan.Expr) plan.Expr {
		return &plan.Predicate{Kind: kind, Expr: e}
	})
}

func (self *Expr) IsNull() *Expr       { return self.predicate("IsNull", plan.IsNull) }
func (self *Expr) IsNotNull() *Expr    { return self.predicate("IsNotNull", plan.IsNotNull) }
func (self *Expr) IsTrue() *Expr       { return self.predicate("IsTrue", plan.IsTrue) }
func (self *Expr) IsNotTrue() *Expr    { return self.predicate("IsNotTrue", plan.IsNotTrue) }
func (self *Expr) IsFalse() *Expr      { return self.predicate("IsFalse", plan.IsFalse) }
func (self *Expr) IsNotFalse() *Expr   { return self.predicate("IsNotFalse", plan.IsNotFalse) }
func (self *Expr) IsUnknown() *Expr    { return self.predicate("IsUnknown", plan.IsUnknown) }
func (self *Expr) IsNotUnknown() *Expr { return self.predicate("IsNotUnknown", plan.IsNotUnknown) }

func (self *Expr) binary(op string, operator plan.Operator, other *Expr) *Expr {
	return self.apply(op, func(e plan.Expr) plan.Expr {
		return &plan.BinaryExpr{Left: e, Op: operator, Right: other.value(op)}
	})
}

func (self *Expr) Eq(other *Expr) *Expr       { return self.binary("Eq", plan.OpEq, other) }
func (self *Expr) NotEq(other *Expr) *Expr    { return self.binary("NotEq", plan.OpNotEq, other) }
func (self *Expr) Lt(other *Expr) *Expr       { return self.binary("Lt", plan.OpLt, other) }
func (self *Expr) LtEq(other *Expr) *Expr     { return self.binary("LtEq", plan.OpLtEq, other) }
func (self *Expr) Gt(other *Expr) *Expr       { return self.binary("Gt", plan.OpGt, other) }
func (self *Expr) GtEq(other *Expr) *Expr     { return self.binary("GtEq", plan.OpGtEq, other) }
func (self *Expr) And(other *Expr) *Expr      { return self.binary("And", plan.OpAnd, other) }
func (self *Expr) Or(other *Expr) *Expr       { return self.binary("Or", plan.OpOr, other) }
func (self *Expr) Plus(other *Expr) *Expr     { return self.binary("Plus", plan.OpPlus, other) }
func (self *Expr) Minus(other *Expr) *Expr    { return self.binary("Minus", plan.OpMinus, other) }
func (self *Expr) Multiply(other *Expr) *Expr { return self.binary("Multiply", plan.OpMultiply, other) }
func (self *Expr) Divide(other *Expr) *Expr   { return self.binary("Divide", plan.OpDivide, other) }

// Modulus is the remainder of the division by other
func (self *Expr) Modulus(other *Expr) *Expr { return self.binary("Modulus", plan.OpModulo, other) }

func (self *Expr) like(op string, negated, caseInsensitive bool, pattern *Expr) *Expr {
	return self.apply(op, func(e plan.Expr) plan.Expr {
		return &plan.Like{
			Negated:         negated,
			CaseInsensitive: caseInsensitive,
			Expr:            e,
			Pattern:         pattern.value(op),
		}
	})
}

func (self *Expr) Like(other *Expr) *Expr     { return self.like("Like", false, false, other) }
func (self *Expr) NotLike(other *Expr) *Expr  { return self.like("NotLike", true, false, other) }
func (self *Expr) ILike(other *Expr) *Expr    { return self.like("ILike", false, true, other) }
func (self *Expr) NotILike(other *Expr) *Expr { return self.like("NotILike", true, true, other) }

// InList tests membership in list, NOT IN when negated
func (self *Expr) InList(list []*Expr, negated bool) *Expr {
	return self.apply("InList", func(e plan.Expr) plan.Expr {
		return &plan.InList{Expr: e, List: values("InList", list), Negated: negated}
	})
}

// Sort turns the expression into a sort key, only accepted by DataFrame.Sort
func (self *Expr) Sort(asc, nullsFirst bool) *Expr {
	return self.apply("Sort", func(e plan.Expr) plan.Expr {
		return &plan.SortExpr{Expr: e, Asc: asc, NullsFirst: nullsFirst}
	})
}

// Clone returns an independent handle, an empty handle clones into an empty
// handle
func (self *Expr) Clone() *Expr {
	return &Expr{inner: self.inner}
}

func (self *Expr) String() string {
	return self.value("String").String()
}
