package plan

import (
	"sort"
)

// ----------------------------------------------------------------------------
//
// Optimizer. Two rewrites are performed, both of them are copy on write since
// a plan can be shared by many handles.
//
// 1) Early filter. A filter's predicate is split into its conjuncts. Above a
//    join, the conjuncts referencing only one side are moved below the join
//    into that side, when the join kind preserves the semantic. Above a table
//    scan (possibly behind aliases), every deterministic conjunct is copied
//    into the scan as a pushed filter, rewritten against the source columns.
//    Pushed filters are hints, the source may return more rows than they
//    qualify, so the Filter node stays above the scan.
//
// 2) Projection pushdown. The columns every node needs are computed top down
//    and the table scans read only those columns.
//
// ----------------------------------------------------------------------------

func Optimize(p LogicalPlan) (LogicalPlan, error) {
	p, err := pushDownFilter(p)
	if err != nil {
		return nil, err
	}
	return pushDownProjection(p, nil)
}

// withInputs rebuilds p over new inputs, re-validating it
func withInputs(p LogicalPlan, inputs []LogicalPlan) (LogicalPlan, error) {
	switch x := p.(type) {
	case *Projection:
		return NewProjection(inputs[0], x.Exprs)
	case *Filter:
		return NewFilter(inputs[0], x.Predicate)
	case *Aggregate:
		return newAggregate(inputs[0], x.GroupExprs, x.GroupingSets, x.AggrExprs)
	case *Limit:
		return &Limit{Input: inputs[0], Skip: x.Skip, Fetch: x.Fetch}, nil
	case *Union:
		return &Union{Branches: inputs, schema: x.schema}, nil
	case *Distinct:
		return NewDistinct(inputs[0]), nil
	case *Sort:
		return &Sort{Input: inputs[0], Exprs: x.Exprs}, nil
	case *Join:
		return NewJoin(inputs[0], inputs[1], x.Kind, x.On, x.Filter)
	case *SubqueryAlias:
		return NewSubqueryAlias(inputs[0], x.Alias)
	default:
		return p, nil
	}
}

/* ----------------------------------------------------------------------------
 * Early filter
 * ---------------------------------------------------------------------------*/

func pushDownFilter(p LogicalPlan) (LogicalPlan, error) {
	inputs := p.Inputs()
	if len(inputs) == 0 {
		return p, nil
	}
	newInputs := make([]LogicalPlan, 0, len(inputs))
	for _, in := range inputs {
		out, err := pushDownFilter(in)
		if err != nil {
			return nil, err
		}
		newInputs = append(newInputs, out)
	}

	if f, ok := p.(*Filter); ok {
		return pushFilterInto(f.Predicate, newInputs[0])
	}
	return withInputs(p, newInputs)
}

// pushFilterInto places predicate above input, pushing as much of it as
// possible below. input is already optimized
func pushFilterInto(predicate Expr, input LogicalPlan) (LogicalPlan, error) {
	switch x := input.(type) {
	case *Filter:
		merged := Conjunction(append(SplitConjunction(x.Predicate),
			SplitConjunction(predicate)...))
		return pushFilterInto(merged, x.Input)
	case *Join:
		return pushFilterIntoJoin(predicate, x)
	case *TableScan, *SubqueryAlias:
		if out, ok, err := pushFilterIntoScan(predicate, input); ok || err != nil {
			return out, err
		}
	}
	return NewFilter(input, predicate)
}

const (
	sideNone = iota
	sideLeft
	sideRight
	sideBoth
)

func pushFilterIntoJoin(predicate Expr, join *Join) (LogicalPlan, error) {
	leftLen := join.Left.Schema().Len()
	canLeft := join.Kind == JoinInner || join.Kind == JoinLeft ||
		join.Kind == JoinLeftSemi || join.Kind == JoinLeftAnti
	canRight := join.Kind == JoinInner || join.Kind == JoinRight ||
		join.Kind == JoinRightSemi || join.Kind == JoinRightAnti

	sideOf := func(e Expr) int {
		side := sideNone
		for _, c := range Columns(e) {
			idx, err := ResolveColumn(join.Schema(), c)
			if err != nil {
				return sideBoth
			}
			var s int
			switch {
			case !join.Kind.OutputsRight():
				s = sideLeft
			case !join.Kind.OutputsLeft():
				s = sideRight
			case idx < leftLen:
				s = sideLeft
			default:
				s = sideRight
			}
			if side == sideNone {
				side = s
			} else if side != s {
				return sideBoth
			}
		}
		return side
	}

	var left, right, keep []Expr
	for _, c := range SplitConjunction(predicate) {
		if IsVolatile(c) {
			keep = append(keep, c)
			continue
		}
		switch side := sideOf(c); {
		case side == sideLeft && canLeft:
			left = append(left, c)
		case side == sideRight && canRight:
			right = append(right, c)
		default:
			keep = append(keep, c)
		}
	}

	if len(left) == 0 && len(right) == 0 {
		return NewFilter(join, predicate)
	}

	newLeft, newRight := join.Left, join.Right
	var err error
	if len(left) > 0 {
		if newLeft, err = pushFilterInto(Conjunction(left), newLeft); err != nil {
			return nil, err
		}
	}
	if len(right) > 0 {
		if newRight, err = pushFilterInto(Conjunction(right), newRight); err != nil {
			return nil, err
		}
	}
	out, err := NewJoin(newLeft, newRight, join.Kind, join.On, join.Filter)
	if err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		return out, nil
	}
	return NewFilter(out, Conjunction(keep))
}

// pushFilterIntoScan handles a chain of SubqueryAlias ending at a TableScan.
// The bool result is false when input is not such a chain
func pushFilterIntoScan(predicate Expr, input LogicalPlan) (LogicalPlan, bool, error) {
	aliases := []string{}
	node := input
	for {
		a, ok := node.(*SubqueryAlias)
		if !ok {
			break
		}
		aliases = append(aliases, a.Alias)
		node = a.Input
	}
	scan, ok := node.(*TableScan)
	if !ok {
		return nil, false, nil
	}

	schema := input.Schema()
	source := scan.Source.Schema()
	pushed := append([]Expr{}, scan.Filters...)
	seen := map[string]bool{}
	for _, f := range pushed {
		seen[f.String()] = true
	}

	for _, c := range SplitConjunction(predicate) {
		if IsVolatile(c) {
			continue
		}
		failed := false
		rewritten := Transform(c, func(e Expr) (Expr, bool) {
			col, ok := e.(*Column)
			if !ok {
				return nil, false
			}
			idx, err := ResolveColumn(schema, col)
			if err != nil {
				failed = true
				return e, true
			}
			if scan.Projection != nil {
				idx = scan.Projection[idx]
			}
			return &Column{Name: source.Field(idx).Name}, true
		})
		if failed || seen[rewritten.String()] {
			continue
		}
		seen[rewritten.String()] = true
		pushed = append(pushed, rewritten)
	}

	var out LogicalPlan = scan.WithFilters(pushed)
	for idx := len(aliases) - 1; idx >= 0; idx-- {
		a, err := NewSubqueryAlias(out, aliases[idx])
		if err != nil {
			return nil, true, err
		}
		out = a
	}
	f, err := NewFilter(out, predicate)
	if err != nil {
		return nil, true, err
	}
	return f, true, nil
}

/* ----------------------------------------------------------------------------
 * Projection pushdown
 * ---------------------------------------------------------------------------*/

// columnIndices resolves every column referenced by exprs inside of schema
func columnIndices(schema *Schema, exprs ...Expr) ([]int, error) {
	out := []int{}
	for _, e := range exprs {
		if e == nil {
			continue
		}
		for _, c := range Columns(e) {
			idx, err := ResolveColumn(schema, c)
			if err != nil {
				return nil, err
			}
			out = append(out, idx)
		}
	}
	return out, nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for idx := range out {
		out[idx] = idx
	}
	return out
}

func sortedUnique(list []int) []int {
	set := map[int]bool{}
	out := []int{}
	for _, v := range list {
		if !set[v] {
			set[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// pushDownProjection prunes the columns p reads. need lists the indices of
// p's output columns its parent uses, nil means every column. The rebuilt
// node keeps at least the needed columns, parents refer to them by name
func pushDownProjection(p LogicalPlan, need []int) (LogicalPlan, error) {
	switch x := p.(type) {
	case *TableScan:
		if need == nil {
			return x, nil
		}
		projection := make([]int, 0, len(need))
		for _, idx := range need {
			if x.Projection != nil {
				idx = x.Projection[idx]
			}
			projection = append(projection, idx)
		}
		projection = sortedUnique(projection)
		if len(projection) == x.Source.Schema().Len() {
			if x.Projection == nil {
				return x, nil
			}
			projection = allIndices(len(projection))
		}
		return x.WithProjection(projection), nil

	case *EmptyRelation:
		return x, nil

	case *Projection:
		cols, err := columnIndices(x.Input.Schema(), x.Exprs...)
		if err != nil {
			return nil, err
		}
		return pruneSingle(x, x.Input, cols)

	case *Aggregate:
		exprs := append(append([]Expr{}, x.GroupExprs...), x.AggrExprs...)
		cols, err := columnIndices(x.Input.Schema(), exprs...)
		if err != nil {
			return nil, err
		}
		return pruneSingle(x, x.Input, cols)

	case *Filter:
		if need == nil {
			return pruneSingle(x, x.Input, nil)
		}
		cols, err := columnIndices(x.Input.Schema(), x.Predicate)
		if err != nil {
			return nil, err
		}
		return pruneSingle(x, x.Input, append(cols, need...))

	case *Sort:
		if need == nil {
			return pruneSingle(x, x.Input, nil)
		}
		exprs := make([]Expr, 0, len(x.Exprs))
		for _, e := range x.Exprs {
			exprs = append(exprs, e.Expr)
		}
		cols, err := columnIndices(x.Input.Schema(), exprs...)
		if err != nil {
			return nil, err
		}
		return pruneSingle(x, x.Input, append(cols, need...))

	case *Limit, *SubqueryAlias:
		return pruneSingle(p, p.Inputs()[0], need)

	case *Distinct:
		return pruneSingle(x, x.Input, nil)

	case *Union:
		inputs := make([]LogicalPlan, 0, len(x.Branches))
		for _, in := range x.Branches {
			out, err := pushDownProjection(in, nil)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, out)
		}
		return withInputs(x, inputs)

	case *Join:
		return pruneJoin(x, need)

	default:
		return p, nil
	}
}

func pruneSingle(p, input LogicalPlan, need []int) (LogicalPlan, error) {
	if need != nil {
		need = sortedUnique(need)
	}
	out, err := pushDownProjection(input, need)
	if err != nil {
		return nil, err
	}
	return withInputs(p, []LogicalPlan{out})
}

func pruneJoin(x *Join, need []int) (LogicalPlan, error) {
	ls, rs := x.Left.Schema(), x.Right.Schema()
	if need == nil {
		need = allIndices(x.Schema().Len())
	}

	leftNeed, rightNeed := []int{}, []int{}
	for _, idx := range need {
		switch {
		case !x.Kind.OutputsRight():
			leftNeed = append(leftNeed, idx)
		case !x.Kind.OutputsLeft():
			rightNeed = append(rightNeed, idx)
		case idx < ls.Len():
			leftNeed = append(leftNeed, idx)
		default:
			rightNeed = append(rightNeed, idx-ls.Len())
		}
	}

	for _, key := range x.On {
		cols, err := columnIndices(ls, key.Left)
		if err != nil {
			return nil, err
		}
		leftNeed = append(leftNeed, cols...)
		if cols, err = columnIndices(rs, key.Right); err != nil {
			return nil, err
		}
		rightNeed = append(rightNeed, cols...)
	}

	if x.Filter != nil {
		cols, err := columnIndices(ls.Merge(rs), x.Filter)
		if err != nil {
			return nil, err
		}
		for _, idx := range cols {
			if idx < ls.Len() {
				leftNeed = append(leftNeed, idx)
			} else {
				rightNeed = append(rightNeed, idx-ls.Len())
			}
		}
	}

	left, err := pushDownProjection(x.Left, sortedUnique(leftNeed))
	if err != nil {
		return nil, err
	}
	right, err := pushDownProjection(x.Right, sortedUnique(rightNeed))
	if err != nil {
		return nil, err
	}
	return withInputs(x, []LogicalPlan{left, right})
}
