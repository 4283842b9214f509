package cg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dianpeng/awkframe/plan"
	"github.com/dianpeng/awkframe/sql"
)

// ----------------------------------------------------------------------------
//
// Filter expression generation. A pushed filter is translated into an awk
// condition which holds for every row where the SQL predicate is true, it may
// also hold for rows where it is not, so the filter must still be evaluated
// after the scan. Each translated node reports whether it is exact, an exact
// node holds iff the predicate is true; only exact nodes may be negated.
//
//  1) AND keeps whichever sides translate, a missing side is treated as true
//  2) OR requires both sides
//  3) column references are null guarded, empty fields are null
//  4) numeric comparisons coerce the field with +0, integer literals are only
//     used when awk's float arithmetic represents them exactly
//
// ----------------------------------------------------------------------------

const maxExactInt = 1 << 53

type exprCodeGen struct {
	schema *plan.Schema
}

type cond struct {
	code  string
	exact bool
}

func field(idx int) string {
	return fmt.Sprintf("$%d", idx+1)
}

func notNull(idx int) string {
	return fmt.Sprintf("%s != \"\"", field(idx))
}

// awkString quotes s as an awk string literal
func awkString(s string) string {
	buf := &strings.Builder{}
	buf.WriteByte('"')
	for _, c := range s {
		switch c {
		case '\\':
			buf.WriteString(`\\`)
		case '"':
			buf.WriteString(`\"`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteRune(c)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

// numberLiteral renders v as an awk number, false when awk cannot represent
// it exactly
func numberLiteral(v plan.Value) (string, bool) {
	switch x := v.(type) {
	case int64:
		if x <= -maxExactInt || x >= maxExactInt {
			return "", false
		}
		return strconv.FormatInt(x, 10), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	default:
		return "", false
	}
}

func (self *exprCodeGen) column(e plan.Expr) (int, plan.DataType, bool) {
	c, ok := e.(*plan.Column)
	if !ok {
		return -1, plan.TypeNull, false
	}
	idx, err := plan.ResolveColumn(self.schema, c)
	if err != nil {
		return -1, plan.TypeNull, false
	}
	return idx, self.schema.Field(idx).Type, true
}

func literal(e plan.Expr) (plan.Value, bool) {
	l, ok := e.(*plan.Literal)
	if !ok {
		return nil, false
	}
	return l.Value, true
}

var awkCompare = map[plan.Operator]string{
	plan.OpEq:    "==",
	plan.OpNotEq: "!=",
	plan.OpLt:    "<",
	plan.OpLtEq:  "<=",
	plan.OpGt:    ">",
	plan.OpGtEq:  ">=",
}

var flipCompare = map[plan.Operator]plan.Operator{
	plan.OpEq:    plan.OpEq,
	plan.OpNotEq: plan.OpNotEq,
	plan.OpLt:    plan.OpGt,
	plan.OpLtEq:  plan.OpGtEq,
	plan.OpGt:    plan.OpLt,
	plan.OpGtEq:  plan.OpLtEq,
}

func (self *exprCodeGen) genCompare(l, r plan.Expr, op plan.Operator) (cond, bool) {
	sym, ok := awkCompare[op]
	if !ok {
		return cond{}, false
	}

	li, lt, lok := self.column(l)
	ri, rt, rok := self.column(r)

	switch {
	case lok && rok:
		switch {
		case lt.IsNumeric() && rt.IsNumeric():
			return cond{
				code: fmt.Sprintf("%s && %s && (%s+0) %s (%s+0)",
					notNull(li), notNull(ri), field(li), sym, field(ri)),
				exact: true,
			}, true
		case lt == plan.TypeUtf8 && rt == plan.TypeUtf8:
			return cond{
				code: fmt.Sprintf("%s && %s && (%s \"\") %s (%s \"\")",
					notNull(li), notNull(ri), field(li), sym, field(ri)),
				exact: true,
			}, true
		}
		return cond{}, false

	case rok && !lok:
		return self.genCompare(r, l, flipCompare[op])

	case lok:
		v, ok := literal(r)
		if !ok || v == nil {
			return cond{}, false
		}
		if lt.IsNumeric() {
			num, ok := numberLiteral(v)
			if !ok {
				return cond{}, false
			}
			return cond{
				code:  fmt.Sprintf("%s && (%s+0) %s %s", notNull(li), field(li), sym, num),
				exact: true,
			}, true
		}
		if s, ok := v.(string); ok && lt == plan.TypeUtf8 {
			return cond{
				code:  fmt.Sprintf("%s && %s %s %s", notNull(li), field(li), sym, awkString(s)),
				exact: true,
			}, true
		}
	}
	return cond{}, false
}

func (self *exprCodeGen) genMatch(e, pattern plan.Expr, regex string, negated bool) (cond, bool) {
	idx, t, ok := self.column(e)
	if !ok || t != plan.TypeUtf8 {
		return cond{}, false
	}
	op := "~"
	if negated {
		op = "!~"
	}
	return cond{
		code:  fmt.Sprintf("%s && %s %s %s", notNull(idx), field(idx), op, awkString(regex)),
		exact: true,
	}, true
}

func (self *exprCodeGen) genLike(x *plan.Like) (cond, bool) {
	if x.CaseInsensitive {
		return cond{}, false
	}
	v, ok := literal(x.Pattern)
	if !ok {
		return cond{}, false
	}
	pattern, ok := v.(string)
	if !ok {
		return cond{}, false
	}
	if prefix, ok := sql.LikeIsPrefix(pattern); ok && !x.Negated {
		idx, t, ok := self.column(x.Expr)
		if !ok || t != plan.TypeUtf8 {
			return cond{}, false
		}
		return cond{
			code:  fmt.Sprintf("%s && index(%s, %s) == 1", notNull(idx), field(idx), awkString(prefix)),
			exact: true,
		}, true
	}
	return self.genMatch(x.Expr, x.Pattern, sql.LikeToRegex(pattern), x.Negated)
}

func (self *exprCodeGen) genRegex(x *plan.BinaryExpr) (cond, bool) {
	v, ok := literal(x.Right)
	if !ok {
		return cond{}, false
	}
	re, ok := v.(string)
	if !ok {
		return cond{}, false
	}
	switch x.Op {
	case plan.OpRegexIMatch, plan.OpRegexNotIMatch:
		re = "(?i)" + re
	}
	negated := x.Op == plan.OpRegexNotMatch || x.Op == plan.OpRegexNotIMatch
	return self.genMatch(x.Left, x.Right, re, negated)
}

func (self *exprCodeGen) genInList(x *plan.InList) (cond, bool) {
	parts := []cond{}
	op := plan.OpEq
	if x.Negated {
		op = plan.OpNotEq
	}
	for _, item := range x.List {
		c, ok := self.genCompare(x.Expr, item, op)
		if !ok {
			return cond{}, false
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return cond{}, false
	}
	join := " || "
	if x.Negated {
		join = " && "
	}
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		codes = append(codes, "("+p.code+")")
	}
	return cond{code: strings.Join(codes, join), exact: true}, true
}

func (self *exprCodeGen) genPredicate(x *plan.Predicate) (cond, bool) {
	idx, _, ok := self.column(x.Expr)
	if !ok {
		return cond{}, false
	}
	switch x.Kind {
	case plan.IsNull:
		return cond{code: fmt.Sprintf("%s == \"\"", field(idx)), exact: true}, true
	case plan.IsNotNull:
		return cond{code: notNull(idx), exact: true}, true
	default:
		return cond{}, false
	}
}

// genExpr translates e, the bool result is false when no condition could be
// produced, which means the filter is not pushed at all
func (self *exprCodeGen) genExpr(e plan.Expr) (cond, bool) {
	switch x := e.(type) {
	case *plan.BinaryExpr:
		switch {
		case x.Op == plan.OpAnd:
			l, lok := self.genExpr(x.Left)
			r, rok := self.genExpr(x.Right)
			switch {
			case lok && rok:
				return cond{
					code:  "(" + l.code + ") && (" + r.code + ")",
					exact: l.exact && r.exact,
				}, true
			case lok:
				return cond{code: l.code}, true
			case rok:
				return cond{code: r.code}, true
			}
			return cond{}, false

		case x.Op == plan.OpOr:
			l, lok := self.genExpr(x.Left)
			r, rok := self.genExpr(x.Right)
			if !lok || !rok {
				return cond{}, false
			}
			return cond{
				code:  "(" + l.code + ") || (" + r.code + ")",
				exact: l.exact && r.exact,
			}, true

		case x.Op.IsComparison():
			return self.genCompare(x.Left, x.Right, x.Op)

		case x.Op.IsRegex():
			return self.genRegex(x)
		}
		return cond{}, false

	case *plan.Not:
		c, ok := self.genExpr(x.Expr)
		if !ok || !c.exact {
			return cond{}, false
		}
		// NOT of a null guarded condition would keep null rows, which is still
		// a superset of the rows where the predicate is true
		return cond{code: "!(" + c.code + ")", exact: false}, true

	case *plan.Like:
		return self.genLike(x)

	case *plan.InList:
		return self.genInList(x)

	case *plan.Predicate:
		return self.genPredicate(x)

	case *plan.Literal:
		if b, ok := x.Value.(bool); ok && b {
			return cond{code: "1", exact: true}, true
		}
		return cond{}, false

	default:
		return cond{}, false
	}
}
