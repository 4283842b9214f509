package plan

import (
	"strings"

	"github.com/dianpeng/awkframe/sql"
)

// Catalog resolves the table references of a query
type Catalog interface {
	// Table returns the plan registered under name, a TableScan qualified by
	// name for tables and the stored plan for views
	Table(name string) (LogicalPlan, error)

	// Path opens a file referenced directly by its quoted path
	Path(path string) (LogicalPlan, error)
}

// Planner compiles a parsed query into a logical plan. The order of
// compilation follows the SQL evaluation order
//
//  1. FROM, table references and joins, ON conditions are split into equi
//     keys and a residual filter
//  2. WHERE
//  3. aggregation, aggregate calls are extracted out of the select list,
//     HAVING and ORDER BY and replaced by references to the aggregate output
//  4. HAVING
//  5. select list, with star expansion
//  6. DISTINCT, ORDER BY (which may use columns hidden from the select
//     list), LIMIT/OFFSET
type Planner struct {
	catalog Catalog
}

func NewPlanner(catalog Catalog) *Planner {
	return &Planner{
		catalog: catalog,
	}
}

func (self *Planner) err(stage string, kind error, f string, args ...interface{}) error {
	return planErr(stage, kind, f, args...)
}

func (self *Planner) Plan(code *sql.Code) (LogicalPlan, error) {
	q, ok := code.Stmt.(*sql.Query)
	if !ok {
		return nil, self.err("planner", ErrNotSupported,
			"statement is not a query: %s", sql.PrintCode(code))
	}
	return self.PlanQuery(q)
}

func (self *Planner) PlanQuery(q *sql.Query) (LogicalPlan, error) {
	var p LogicalPlan
	var err error

	if s, ok := q.Body.(*sql.Select); ok {
		p, err = self.planSelect(s, q.OrderBy)
	} else {
		p, err = self.planSetExpr(q.Body)
		if err == nil && q.OrderBy != nil {
			p, err = self.planOutputOrder(p, q.OrderBy)
		}
	}
	if err != nil {
		return nil, err
	}

	if q.Limit != nil && (q.Limit.Limit >= 0 || q.Limit.Offset > 0) {
		l, err := NewLimit(p, q.Limit.Offset, q.Limit.Limit)
		if err != nil {
			return nil, err
		}
		p = l
	}
	return p, nil
}

func (self *Planner) planSetExpr(e sql.SetExpr) (LogicalPlan, error) {
	switch x := e.(type) {
	case *sql.Select:
		return self.planSelect(x, nil)
	case *sql.SetOp:
		l, err := self.planSetExpr(x.L)
		if err != nil {
			return nil, err
		}
		r, err := self.planSetExpr(x.R)
		if err != nil {
			return nil, err
		}
		if r, err = renameAs(l.Schema(), r); err != nil {
			return nil, err
		}
		return NewUnion(l, r, !x.All)
	default:
		return nil, self.err("planner", ErrNotSupported, "unknown set expression %T", e)
	}
}

// renameAs renames the columns of r to the names of schema when only the
// names differ, SQL unions take their column names from the first branch
func renameAs(schema *Schema, r LogicalPlan) (LogicalPlan, error) {
	rs := r.Schema()
	if rs.Len() != schema.Len() || rs.Equivalent(schema) {
		return r, nil
	}
	exprs := make([]Expr, 0, rs.Len())
	for idx, f := range rs.Fields {
		col := &Column{Qualifier: f.Qualifier, Name: f.Name}
		if want := schema.Field(idx).Name; want != f.Name {
			exprs = append(exprs, &Alias{Expr: col, Name: want})
		} else {
			exprs = append(exprs, col)
		}
	}
	return NewProjection(r, exprs)
}

/* ----------------------------------------------------------------------------
 * FROM
 * ---------------------------------------------------------------------------*/

func (self *Planner) planTableRef(t *sql.TableRef) (LogicalPlan, error) {
	var p LogicalPlan
	var err error

	switch {
	case t.Subquery != nil:
		p, err = self.PlanQuery(t.Subquery)
	case t.Path:
		p, err = self.catalog.Path(t.Name)
	default:
		p, err = self.catalog.Table(t.Name)
	}
	if err != nil {
		return nil, err
	}

	alias := t.Alias
	if alias == "" && !t.Path && t.Subquery == nil {
		if scan, ok := p.(*TableScan); !ok || scan.Name != t.Name {
			alias = t.Name
		}
	}
	if alias == "" {
		return p, nil
	}
	return NewSubqueryAlias(p, alias)
}

func (self *Planner) planFrom(from *sql.From) (LogicalPlan, error) {
	if from == nil || len(from.VarList) == 0 {
		return NewEmptyRelation(true), nil
	}

	var out LogicalPlan
	for _, v := range from.VarList {
		p, err := self.planTableRef(v.Table)
		if err != nil {
			return nil, err
		}
		for _, j := range v.Join {
			r, err := self.planTableRef(j.Table)
			if err != nil {
				return nil, err
			}
			if p, err = self.planJoin(p, r, j); err != nil {
				return nil, err
			}
		}

		if out == nil {
			out = p
		} else {
			j, err := NewJoin(out, p, JoinInner, nil, nil)
			if err != nil {
				return nil, err
			}
			out = j
		}
	}
	return out, nil
}

// resolvesIn reports whether e references at least one column and all of its
// columns resolve inside of schema
func resolvesIn(e Expr, schema *Schema) bool {
	cols := Columns(e)
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if _, err := ResolveColumn(schema, c); err != nil {
			return false
		}
	}
	return true
}

func (self *Planner) planJoin(l, r LogicalPlan, j *sql.JoinClause) (LogicalPlan, error) {
	var kind JoinKind
	switch j.Kind {
	case sql.JoinLeft:
		kind = JoinLeft
	case sql.JoinRight:
		kind = JoinRight
	case sql.JoinFull:
		kind = JoinFull
	default:
		kind = JoinInner
	}

	if j.On == nil {
		return NewJoin(l, r, kind, nil, nil)
	}
	on, err := self.convertExpr(j.On)
	if err != nil {
		return nil, err
	}

	keys := []JoinKey{}
	rest := []Expr{}
	ls, rs := l.Schema(), r.Schema()
	for _, c := range SplitConjunction(on) {
		if b, ok := c.(*BinaryExpr); ok && b.Op == OpEq {
			switch {
			case resolvesIn(b.Left, ls) && resolvesIn(b.Right, rs):
				keys = append(keys, JoinKey{Left: b.Left, Right: b.Right})
				continue
			case resolvesIn(b.Left, rs) && resolvesIn(b.Right, ls):
				keys = append(keys, JoinKey{Left: b.Right, Right: b.Left})
				continue
			}
		}
		rest = append(rest, c)
	}
	return NewJoin(l, r, kind, keys, Conjunction(rest))
}

/* ----------------------------------------------------------------------------
 * SELECT
 * ---------------------------------------------------------------------------*/

func ordinalOf(e sql.Expr) (int64, bool) {
	if c, ok := e.(*sql.Const); ok && c.Ty == sql.ConstInt {
		return c.Int, true
	}
	return 0, false
}

type orderKey struct {
	expr       Expr
	ordinal    int64
	asc        bool
	nullsFirst bool
}

func (self *Planner) expandProjection(s *sql.Select, schema *Schema) ([]Expr, error) {
	items := []Expr{}
	for _, v := range s.Projection.ValueList {
		switch x := v.(type) {
		case *sql.Star:
			found := false
			for _, f := range schema.Fields {
				if x.Table == "" || f.Qualifier == x.Table {
					items = append(items, &Column{Qualifier: f.Qualifier, Name: f.Name})
					found = true
				}
			}
			if !found && x.Table != "" {
				return nil, self.err("projection", ErrUnresolvedColumn,
					"%s.* does not match any column", x.Table)
			}
		case *sql.Col:
			e, err := self.convertExpr(x.Value)
			if err != nil {
				return nil, err
			}
			if x.As != "" {
				e = &Alias{Expr: e, Name: x.As}
			}
			items = append(items, e)
		}
	}
	return items, nil
}

func (self *Planner) convertOrder(orderBy *sql.OrderBy) ([]*orderKey, error) {
	if orderBy == nil {
		return nil, nil
	}
	keys := make([]*orderKey, 0, len(orderBy.Items))
	for _, item := range orderBy.Items {
		k := &orderKey{
			asc:        !item.Desc,
			nullsFirst: item.NullsFirst,
		}
		if n, ok := ordinalOf(item.Expr); ok {
			k.ordinal = n
		} else {
			e, err := self.convertExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			k.expr = e
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (self *Planner) planSelect(s *sql.Select, orderBy *sql.OrderBy) (LogicalPlan, error) {
	p, err := self.planFrom(s.From)
	if err != nil {
		return nil, err
	}

	if s.Where != nil {
		cond, err := self.convertExpr(s.Where.Condition)
		if err != nil {
			return nil, err
		}
		if ContainsAggregate(cond) {
			return nil, self.err("where", ErrInvalidArgument,
				"aggregate functions are not allowed in WHERE: %s", cond)
		}
		if p, err = NewFilter(p, cond); err != nil {
			return nil, err
		}
	}

	items, err := self.expandProjection(s, p.Schema())
	if err != nil {
		return nil, err
	}
	order, err := self.convertOrder(orderBy)
	if err != nil {
		return nil, err
	}

	var having Expr
	if s.Having != nil {
		if having, err = self.convertExpr(s.Having.Condition); err != nil {
			return nil, err
		}
	}

	aggregated := s.GroupBy != nil || (having != nil && ContainsAggregate(having))
	for _, e := range items {
		aggregated = aggregated || ContainsAggregate(e)
	}

	if aggregated {
		if p, err = self.planAggregate(s, p, items, order, having); err != nil {
			return nil, err
		}
		rw := aggregateRewriter(p.(*Aggregate))
		for idx, e := range items {
			items[idx] = rw(e)
		}
		for _, k := range order {
			if k.expr != nil {
				k.expr = rw(k.expr)
			}
		}
		if having != nil {
			if p, err = NewFilter(p, rw(having)); err != nil {
				return nil, err
			}
		}
	} else if having != nil {
		return nil, self.err("having", ErrInvalidArgument,
			"HAVING requires GROUP BY or an aggregate function")
	}

	return self.planProjectionOrder(p, items, order, s.Distinct)
}

func (self *Planner) planAggregate(
	s *sql.Select,
	input LogicalPlan,
	items []Expr,
	order []*orderKey,
	having Expr,
) (LogicalPlan, error) {
	groupExprs := []Expr{}
	if s.GroupBy != nil {
		for _, g := range s.GroupBy.Name {
			if n, ok := ordinalOf(g); ok {
				if n < 1 || int(n) > len(items) {
					return nil, self.err("group by", ErrInvalidArgument,
						"GROUP BY position %d is not in select list", n)
				}
				groupExprs = append(groupExprs, Unalias(items[n-1]))
				continue
			}
			e, err := self.convertExpr(g)
			if err != nil {
				return nil, err
			}
			groupExprs = append(groupExprs, e)
		}
	}

	aggs := []Expr{}
	seen := map[string]bool{}
	collect := func(e Expr) {
		Visit(e, func(x Expr) bool {
			if a, ok := x.(*AggregateFunction); ok {
				if key := a.String(); !seen[key] {
					seen[key] = true
					aggs = append(aggs, a)
				}
				return false
			}
			return true
		})
	}
	for _, e := range items {
		collect(e)
	}
	if having != nil {
		collect(having)
	}
	for _, k := range order {
		if k.expr != nil {
			collect(k.expr)
		}
	}
	return NewAggregate(input, groupExprs, aggs)
}

// aggregateRewriter returns a function replacing, inside an expression over
// the aggregate input, every aggregate call and every group expression by a
// reference to the corresponding aggregate output column
func aggregateRewriter(agg *Aggregate) func(Expr) Expr {
	in := agg.Input.Schema()
	out := agg.Schema()

	outputColumn := func(idx int) Expr {
		f := out.Field(idx)
		return &Column{Qualifier: f.Qualifier, Name: f.Name}
	}

	groupIndex := func(e Expr) int {
		key := e.String()
		col, isCol := e.(*Column)
		colIdx := -1
		if isCol {
			colIdx, _ = ResolveColumn(in, col)
		}
		for idx, g := range agg.GroupExprs {
			if g.String() == key {
				return idx
			}
			if gc, ok := g.(*Column); ok && colIdx >= 0 {
				if gi, err := ResolveColumn(in, gc); err == nil && gi == colIdx {
					return idx
				}
			}
		}
		return -1
	}

	return func(e Expr) Expr {
		return Transform(e, func(x Expr) (Expr, bool) {
			if a, ok := x.(*AggregateFunction); ok {
				for idx, ae := range agg.AggrExprs {
					if ae.String() == a.String() {
						return outputColumn(len(agg.GroupExprs) + idx), true
					}
				}
				return x, true
			}
			if idx := groupIndex(x); idx >= 0 {
				return outputColumn(idx), true
			}
			return nil, false
		})
	}
}

func (self *Planner) planProjectionOrder(
	input LogicalPlan,
	items []Expr,
	order []*orderKey,
	distinct bool,
) (LogicalPlan, error) {
	proj, err := NewProjection(input, items)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		if distinct {
			return NewDistinct(proj), nil
		}
		return proj, nil
	}

	outSchema := proj.Schema()
	keys := make([]Expr, 0, len(order))
	hidden := []Expr{}

	for _, k := range order {
		var key Expr
		switch {
		case k.expr == nil:
			if k.ordinal < 1 || int(k.ordinal) > len(items) {
				return nil, self.err("order by", ErrInvalidArgument,
					"ORDER BY position %d is not in select list", k.ordinal)
			}
			f := outSchema.Field(int(k.ordinal - 1))
			key = &Column{Qualifier: f.Qualifier, Name: f.Name}

		case resolvesIn(k.expr, outSchema) && !ContainsAggregate(k.expr):
			key = k.expr

		default:
			for idx, item := range items {
				if item.String() == k.expr.String() || Unalias(item).String() == k.expr.String() {
					f := outSchema.Field(idx)
					key = &Column{Qualifier: f.Qualifier, Name: f.Name}
					break
				}
			}
			if key != nil {
				break
			}
			if distinct {
				return nil, self.err("order by", ErrInvalidArgument,
					"for SELECT DISTINCT, ORDER BY expression %s must appear in select list",
					k.expr)
			}
			if _, err := TypeOf(k.expr, input.Schema()); err != nil {
				return nil, err
			}
			hidden = append(hidden, k.expr)
			qualifier, name := NameOf(k.expr)
			key = &Column{Qualifier: qualifier, Name: name}
		}
		keys = append(keys, &SortExpr{Expr: key, Asc: k.asc, NullsFirst: k.nullsFirst})
	}

	if len(hidden) == 0 {
		var p LogicalPlan = proj
		if distinct {
			p = NewDistinct(p)
		}
		return NewSort(p, keys)
	}

	wide, err := NewProjection(input, append(append([]Expr{}, items...), hidden...))
	if err != nil {
		return nil, err
	}
	sorted, err := NewSort(wide, keys)
	if err != nil {
		return nil, err
	}
	final := make([]Expr, 0, len(items))
	for _, f := range outSchema.Fields {
		final = append(final, &Column{Qualifier: f.Qualifier, Name: f.Name})
	}
	return NewProjection(sorted, final)
}

// planOutputOrder sorts the output of a set operation, keys may only refer
// to output columns
func (self *Planner) planOutputOrder(p LogicalPlan, orderBy *sql.OrderBy) (LogicalPlan, error) {
	order, err := self.convertOrder(orderBy)
	if err != nil {
		return nil, err
	}
	schema := p.Schema()
	keys := make([]Expr, 0, len(order))
	for _, k := range order {
		key := k.expr
		if key == nil {
			if k.ordinal < 1 || int(k.ordinal) > schema.Len() {
				return nil, self.err("order by", ErrInvalidArgument,
					"ORDER BY position %d is not in select list", k.ordinal)
			}
			f := schema.Field(int(k.ordinal - 1))
			key = &Column{Qualifier: f.Qualifier, Name: f.Name}
		}
		keys = append(keys, &SortExpr{Expr: key, Asc: k.asc, NullsFirst: k.nullsFirst})
	}
	return NewSort(p, keys)
}

/* ----------------------------------------------------------------------------
 * Expression conversion
 * ---------------------------------------------------------------------------*/

var binaryOps = map[int]Operator{
	sql.TkAdd:           OpPlus,
	sql.TkSub:           OpMinus,
	sql.TkMul:           OpMultiply,
	sql.TkDiv:           OpDivide,
	sql.TkMod:           OpModulo,
	sql.TkLt:            OpLt,
	sql.TkLe:            OpLtEq,
	sql.TkGt:            OpGt,
	sql.TkGe:            OpGtEq,
	sql.TkEq:            OpEq,
	sql.TkNe:            OpNotEq,
	sql.TkAnd:           OpAnd,
	sql.TkOr:            OpOr,
	sql.TkConcat:        OpStringConcat,
	sql.TkBitAnd:        OpBitwiseAnd,
	sql.TkBitOr:         OpBitwiseOr,
	sql.TkShl:           OpBitwiseShiftLeft,
	sql.TkShr:           OpBitwiseShiftRight,
	sql.TkMatch:         OpRegexMatch,
	sql.TkIMatch:        OpRegexIMatch,
	sql.TkNotMatch:      OpRegexNotMatch,
	sql.TkNotIMatch:     OpRegexNotIMatch,
	sql.TkIsDistinct:    OpIsDistinctFrom,
	sql.TkIsNotDistinct: OpIsNotDistinctFrom,
}

func (self *Planner) convertList(list []sql.Expr) ([]Expr, error) {
	out := make([]Expr, 0, len(list))
	for _, e := range list {
		c, err := self.convertExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (self *Planner) convertExpr(e sql.Expr) (Expr, error) {
	switch x := e.(type) {
	case *sql.Const:
		switch x.Ty {
		case sql.ConstBool:
			return &Literal{Value: x.Bool}, nil
		case sql.ConstStr:
			return &Literal{Value: x.String}, nil
		case sql.ConstInt:
			return &Literal{Value: x.Int}, nil
		case sql.ConstReal:
			return &Literal{Value: x.Real}, nil
		default:
			return &Literal{}, nil
		}

	case *sql.Ref:
		return &Column{Qualifier: x.Table, Name: x.Id}, nil

	case *sql.StarArg:
		return &Wildcard{}, nil

	case *sql.Call:
		return self.convertCall(x)

	case *sql.Unary:
		operand, err := self.convertExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		for idx := len(x.Op) - 1; idx >= 0; idx-- {
			switch x.Op[idx] {
			case sql.TkSub:
				operand = &Negative{Expr: operand}
			case sql.TkNot:
				operand = &Not{Expr: operand}
			}
		}
		return operand, nil

	case *sql.Binary:
		op, ok := binaryOps[x.Op]
		if !ok {
			return nil, self.err("planner", ErrNotSupported, "unknown operator in %s",
				sql.PrintExpr(x))
		}
		l, err := self.convertExpr(x.L)
		if err != nil {
			return nil, err
		}
		r, err := self.convertExpr(x.R)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: l, Op: op, Right: r}, nil

	case *sql.In:
		operand, err := self.convertExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		list, err := self.convertList(x.List)
		if err != nil {
			return nil, err
		}
		return &InList{Expr: operand, List: list, Negated: x.Negated}, nil

	case *sql.Is:
		operand, err := self.convertExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		var kind PredicateKind
		switch x.What {
		case sql.IsNull:
			kind = IsNull
		case sql.IsTrue:
			kind = IsTrue
		case sql.IsFalse:
			kind = IsFalse
		default:
			kind = IsUnknown
		}
		if x.Negated {
			// every negated kind directly follows its positive kind
			kind++
		}
		return &Predicate{Kind: kind, Expr: operand}, nil

	case *sql.Like:
		operand, err := self.convertExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		pattern, err := self.convertExpr(x.Pattern)
		if err != nil {
			return nil, err
		}
		return &Like{
			Negated:         x.Negated,
			CaseInsensitive: x.CaseInsensitive,
			Expr:            operand,
			Pattern:         pattern,
		}, nil

	case *sql.Cast:
		operand, err := self.convertExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		t, ok := ParseDataType(strings.ToLower(x.TypeName))
		if !ok {
			return nil, self.err("planner", ErrNotSupported, "unknown type %s", x.TypeName)
		}
		return &Cast{Expr: operand, Type: t}, nil

	default:
		return nil, self.err("planner", ErrNotSupported, "unknown expression %T", e)
	}
}

func (self *Planner) convertCall(c *sql.Call) (Expr, error) {
	name := strings.ToLower(c.Name)
	args, err := self.convertList(c.Parameters)
	if err != nil {
		return nil, err
	}

	if sql.IsAggFunc(name) {
		if name == "mean" {
			name = AggAvg
		}
		for _, a := range args {
			if _, ok := a.(*Wildcard); ok && name != AggCount {
				return nil, self.err("planner", ErrInvalidArgument,
					"* is only valid as argument of count")
			}
		}
		return &AggregateFunction{Func: name, Args: args, Distinct: c.Distinct}, nil
	}

	if c.Distinct {
		return nil, self.err("planner", ErrInvalidArgument,
			"DISTINCT is only valid inside aggregate functions, got %s", name)
	}
	for _, a := range args {
		if _, ok := a.(*Wildcard); ok {
			return nil, self.err("planner", ErrInvalidArgument,
				"* is only valid as argument of count")
		}
	}

	switch name {
	case FuncConcat, FuncConcatWs, FuncRandom, FuncLower, FuncUpper, FuncLength,
		FuncAbs, FuncCoalesce:
		return &ScalarFunction{Func: name, Args: args}, nil
	case "char_length", "character_length":
		return &ScalarFunction{Func: FuncLength, Args: args}, nil
	case "cube":
		return &GroupingSet{Kind: GroupingCube, Sets: [][]Expr{args}}, nil
	case "rollup":
		return &GroupingSet{Kind: GroupingRollup, Sets: [][]Expr{args}}, nil
	default:
		return nil, self.err("planner", ErrNotSupported, "unknown function %s", name)
	}
}
