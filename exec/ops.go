package exec

import (
	"github.com/dianpeng/awkframe/plan"
)

func executeProjection(node *plan.Projection, rows []plan.Row) ([]plan.Row, error) {
	evs, err := newCompiler(node.Input.Schema()).compileList(node.Exprs)
	if err != nil {
		return nil, err
	}
	out := make([]plan.Row, 0, len(rows))
	for _, r := range rows {
		vals, err := evalList(evs, r)
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, nil
}

// executeFilter keeps the rows where the predicate is true, false and null
// both drop the row
func executeFilter(node *plan.Filter, rows []plan.Row) ([]plan.Row, error) {
	pred, err := newCompiler(node.Input.Schema()).compile(node.Predicate)
	if err != nil {
		return nil, err
	}
	out := []plan.Row{}
	for _, r := range rows {
		v, err := pred(r)
		if err != nil {
			return nil, err
		}
		if b, ok := truth(v); ok && b {
			out = append(out, r)
		}
	}
	return out, nil
}

// executeLimit returns rows[skip : skip+fetch], a negative fetch is unbounded
func executeLimit(node *plan.Limit, rows []plan.Row) []plan.Row {
	n := int64(len(rows))
	start := node.Skip
	if start > n {
		start = n
	}
	end := n
	if node.Fetch >= 0 && node.Fetch < end-start {
		end = start + node.Fetch
	}
	return rows[start:end]
}

// executeDistinct keeps the first occurrence of every row
func executeDistinct(rows []plan.Row) []plan.Row {
	seen := map[string]struct{}{}
	out := []plan.Row{}
	for _, r := range rows {
		k := rowKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
