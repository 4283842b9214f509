package exec

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dianpeng/awkframe/plan"
	"github.com/dianpeng/awkframe/sql"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// evaluator computes an expression over one row
type evaluator func(plan.Row) (plan.Value, error)

// compiler resolves the column references of expressions against schema once,
// so evaluating a row is only index lookups
type compiler struct {
	schema *plan.Schema
	fold   cases.Caser
	lower  cases.Caser
	upper  cases.Caser
}

func newCompiler(schema *plan.Schema) *compiler {
	return &compiler{
		schema: schema,
		fold:   cases.Fold(),
		lower:  cases.Lower(language.Und),
		upper:  cases.Upper(language.Und),
	}
}

func (self *compiler) compileList(list []plan.Expr) ([]evaluator, error) {
	out := make([]evaluator, 0, len(list))
	for _, e := range list {
		ev, err := self.compile(e)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func evalList(list []evaluator, row plan.Row) ([]plan.Value, error) {
	out := make([]plan.Value, len(list))
	for i, ev := range list {
		v, err := ev(row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func truth(v plan.Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func (self *compiler) compile(e plan.Expr) (evaluator, error) {
	switch x := e.(type) {
	case *plan.Column:
		idx, err := plan.ResolveColumn(self.schema, x)
		if err != nil {
			return nil, err
		}
		return func(row plan.Row) (plan.Value, error) {
			return row[idx], nil
		}, nil

	case *plan.Literal:
		v := x.Value
		return func(plan.Row) (plan.Value, error) {
			return v, nil
		}, nil

	case *plan.Alias:
		return self.compile(x.Expr)

	case *plan.SortExpr:
		return self.compile(x.Expr)

	case *plan.BinaryExpr:
		return self.compileBinary(x)

	case *plan.Not:
		inner, err := self.compile(x.Expr)
		if err != nil {
			return nil, err
		}
		return func(row plan.Row) (plan.Value, error) {
			v, err := inner(row)
			if err != nil || v == nil {
				return nil, err
			}
			b, ok := truth(v)
			if !ok {
				return nil, runtimeTypeErr("NOT requires a boolean, got %s", plan.TypeOfValue(v))
			}
			return !b, nil
		}, nil

	case *plan.Negative:
		inner, err := self.compile(x.Expr)
		if err != nil {
			return nil, err
		}
		return func(row plan.Row) (plan.Value, error) {
			v, err := inner(row)
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case nil:
				return nil, nil
			case int64:
				return -n, nil
			case float64:
				return -n, nil
			}
			return nil, runtimeTypeErr("cannot negate %s", plan.TypeOfValue(v))
		}, nil

	case *plan.Predicate:
		return self.compilePredicate(x)

	case *plan.Like:
		return self.compileLike(x)

	case *plan.InList:
		return self.compileInList(x)

	case *plan.ScalarFunction:
		return self.compileScalar(x)

	case *plan.Cast:
		inner, err := self.compile(x.Expr)
		if err != nil {
			return nil, err
		}
		t := x.Type
		return func(row plan.Row) (plan.Value, error) {
			v, err := inner(row)
			if err != nil {
				return nil, err
			}
			return castValue(v, t)
		}, nil

	default:
		return nil, fmt.Errorf("exec: expression %s cannot be evaluated per row", e)
	}
}

func (self *compiler) compileBinary(x *plan.BinaryExpr) (evaluator, error) {
	l, err := self.compile(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := self.compile(x.Right)
	if err != nil {
		return nil, err
	}
	op := x.Op

	switch {
	case op == plan.OpAnd, op == plan.OpOr:
		// three valued logic, the right side is skipped once the left side
		// decides the result
		short := op == plan.OpOr
		return func(row plan.Row) (plan.Value, error) {
			lv, err := l(row)
			if err != nil {
				return nil, err
			}
			if b, ok := truth(lv); ok && b == short {
				return short, nil
			}
			rv, err := r(row)
			if err != nil {
				return nil, err
			}
			if b, ok := truth(rv); ok && b == short {
				return short, nil
			}
			if lv == nil || rv == nil {
				return nil, nil
			}
			return !short, nil
		}, nil

	case op.IsComparison():
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil || lv == nil || rv == nil {
				return nil, err
			}
			c, err := compareValues(lv, rv)
			if err != nil {
				return nil, err
			}
			return compareResult(op, c), nil
		}, nil

	case op == plan.OpIsDistinctFrom, op == plan.OpIsNotDistinctFrom:
		distinct := op == plan.OpIsDistinctFrom
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil {
				return nil, err
			}
			switch {
			case lv == nil && rv == nil:
				return !distinct, nil
			case lv == nil || rv == nil:
				return distinct, nil
			}
			c, err := compareValues(lv, rv)
			if err != nil {
				return nil, err
			}
			return (c != 0) == distinct, nil
		}, nil

	case op.IsArithmetic():
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil {
				return nil, err
			}
			return arithmetic(op, lv, rv)
		}, nil

	case op.IsBitwise():
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil {
				return nil, err
			}
			return bitwise(op, lv, rv)
		}, nil

	case op.IsRegex():
		prefix := ""
		if op == plan.OpRegexIMatch || op == plan.OpRegexNotIMatch {
			prefix = "(?i)"
		}
		negated := op == plan.OpRegexNotMatch || op == plan.OpRegexNotIMatch
		re := newRegexCache()
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil || lv == nil || rv == nil {
				return nil, err
			}
			s, sok := lv.(string)
			p, pok := rv.(string)
			if !sok || !pok {
				return nil, runtimeTypeErr("%s requires strings", op)
			}
			m, err := re.get(prefix + p)
			if err != nil {
				return nil, err
			}
			return m.MatchString(s) != negated, nil
		}, nil

	case op == plan.OpStringConcat:
		return func(row plan.Row) (plan.Value, error) {
			lv, rv, err := both(l, r, row)
			if err != nil || lv == nil || rv == nil {
				return nil, err
			}
			return plan.FormatValue(lv) + plan.FormatValue(rv), nil
		}, nil
	}
	return nil, fmt.Errorf("exec: unknown operator %s", op)
}

func both(l, r evaluator, row plan.Row) (plan.Value, plan.Value, error) {
	lv, err := l(row)
	if err != nil {
		return nil, nil, err
	}
	rv, err := r(row)
	if err != nil {
		return nil, nil, err
	}
	return lv, rv, nil
}

func compareResult(op plan.Operator, c int) bool {
	switch op {
	case plan.OpEq:
		return c == 0
	case plan.OpNotEq:
		return c != 0
	case plan.OpLt:
		return c < 0
	case plan.OpLtEq:
		return c <= 0
	case plan.OpGt:
		return c > 0
	default:
		return c >= 0
	}
}

func (self *compiler) compilePredicate(x *plan.Predicate) (evaluator, error) {
	inner, err := self.compile(x.Expr)
	if err != nil {
		return nil, err
	}
	kind := x.Kind
	return func(row plan.Row) (plan.Value, error) {
		v, err := inner(row)
		if err != nil {
			return nil, err
		}
		b, isBool := truth(v)
		switch kind {
		case plan.IsNull, plan.IsUnknown:
			return v == nil, nil
		case plan.IsNotNull, plan.IsNotUnknown:
			return v != nil, nil
		case plan.IsTrue:
			return isBool && b, nil
		case plan.IsNotTrue:
			return !(isBool && b), nil
		case plan.IsFalse:
			return isBool && !b, nil
		case plan.IsNotFalse:
			return !(isBool && !b), nil
		}
		return nil, fmt.Errorf("exec: unknown predicate %s", kind)
	}, nil
}

type regexCache struct {
	last    string
	compile *regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{}
}

// get compiles p, the pattern is usually a literal so remembering the last
// one is enough
func (self *regexCache) get(p string) (*regexp.Regexp, error) {
	if self.compile != nil && self.last == p {
		return self.compile, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("exec: invalid regular expression %q: %w", p, err)
	}
	self.last = p
	self.compile = re
	return re, nil
}

func (self *compiler) compileLike(x *plan.Like) (evaluator, error) {
	l, err := self.compile(x.Expr)
	if err != nil {
		return nil, err
	}
	r, err := self.compile(x.Pattern)
	if err != nil {
		return nil, err
	}
	negated := x.Negated
	insensitive := x.CaseInsensitive
	fold := self.fold
	re := newRegexCache()

	return func(row plan.Row) (plan.Value, error) {
		lv, rv, err := both(l, r, row)
		if err != nil || lv == nil || rv == nil {
			return nil, err
		}
		s, sok := lv.(string)
		p, pok := rv.(string)
		if !sok || !pok {
			return nil, runtimeTypeErr("LIKE requires strings")
		}
		if insensitive {
			s = fold.String(s)
			p = fold.String(p)
		}
		m, err := re.get(sql.LikeToRegex(p))
		if err != nil {
			return nil, err
		}
		return m.MatchString(s) != negated, nil
	}, nil
}

func (self *compiler) compileInList(x *plan.InList) (evaluator, error) {
	target, err := self.compile(x.Expr)
	if err != nil {
		return nil, err
	}
	list, err := self.compileList(x.List)
	if err != nil {
		return nil, err
	}
	negated := x.Negated

	return func(row plan.Row) (plan.Value, error) {
		v, err := target(row)
		if err != nil || v == nil {
			return nil, err
		}
		sawNull := false
		for _, item := range list {
			iv, err := item(row)
			if err != nil {
				return nil, err
			}
			if iv == nil {
				sawNull = true
				continue
			}
			c, err := compareValues(v, iv)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				return !negated, nil
			}
		}
		if sawNull {
			return nil, nil
		}
		return negated, nil
	}, nil
}

func (self *compiler) compileScalar(x *plan.ScalarFunction) (evaluator, error) {
	args, err := self.compileList(x.Args)
	if err != nil {
		return nil, err
	}
	out, err := plan.TypeOf(x, self.schema)
	if err != nil {
		return nil, err
	}

	strArg := func(row plan.Row) (string, bool, error) {
		v, err := args[0](row)
		if err != nil || v == nil {
			return "", false, err
		}
		s, ok := v.(string)
		if !ok {
			return "", false, runtimeTypeErr("%s requires a string, got %s",
				x.Func, plan.TypeOfValue(v))
		}
		return s, true, nil
	}

	switch x.Func {
	case plan.FuncConcat:
		return func(row plan.Row) (plan.Value, error) {
			vals, err := evalList(args, row)
			if err != nil {
				return nil, err
			}
			buf := &strings.Builder{}
			for _, v := range vals {
				if v != nil {
					buf.WriteString(plan.FormatValue(v))
				}
			}
			return buf.String(), nil
		}, nil

	case plan.FuncConcatWs:
		return func(row plan.Row) (plan.Value, error) {
			vals, err := evalList(args, row)
			if err != nil {
				return nil, err
			}
			if vals[0] == nil {
				return nil, nil
			}
			parts := []string{}
			for _, v := range vals[1:] {
				if v != nil {
					parts = append(parts, plan.FormatValue(v))
				}
			}
			return strings.Join(parts, plan.FormatValue(vals[0])), nil
		}, nil

	case plan.FuncRandom:
		return func(plan.Row) (plan.Value, error) {
			return rand.Float64(), nil
		}, nil

	case plan.FuncLower, plan.FuncUpper:
		caser := self.lower
		if x.Func == plan.FuncUpper {
			caser = self.upper
		}
		return func(row plan.Row) (plan.Value, error) {
			s, ok, err := strArg(row)
			if err != nil || !ok {
				return nil, err
			}
			return caser.String(s), nil
		}, nil

	case plan.FuncLength:
		return func(row plan.Row) (plan.Value, error) {
			s, ok, err := strArg(row)
			if err != nil || !ok {
				return nil, err
			}
			return int64(utf8.RuneCountInString(s)), nil
		}, nil

	case plan.FuncAbs:
		return func(row plan.Row) (plan.Value, error) {
			v, err := args[0](row)
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case nil:
				return nil, nil
			case int64:
				if n < 0 {
					return -n, nil
				}
				return n, nil
			case float64:
				if n < 0 {
					return -n, nil
				}
				return n, nil
			}
			return nil, runtimeTypeErr("abs requires a number, got %s", plan.TypeOfValue(v))
		}, nil

	case plan.FuncCoalesce:
		return func(row plan.Row) (plan.Value, error) {
			for _, a := range args {
				v, err := a(row)
				if err != nil {
					return nil, err
				}
				if v != nil {
					return castValue(v, out)
				}
			}
			return nil, nil
		}, nil
	}
	return nil, fmt.Errorf("exec: unknown function %s", x.Func)
}
