package exec

import (
	"sort"

	"github.com/dianpeng/awkframe/plan"
)

type sortKey struct {
	row  plan.Row
	keys []plan.Value
}

// compareSortKeys orders two key tuples by the sort expressions, the null
// placement does not depend on the direction
func compareSortKeys(exprs []*plan.SortExpr, a, b []plan.Value) (int, error) {
	for i, e := range exprs {
		x, y := a[i], b[i]
		switch {
		case x == nil && y == nil:
			continue
		case x == nil:
			if e.NullsFirst {
				return -1, nil
			}
			return 1, nil
		case y == nil:
			if e.NullsFirst {
				return 1, nil
			}
			return -1, nil
		}
		c, err := compareValues(x, y)
		if err != nil {
			return 0, err
		}
		if c == 0 {
			continue
		}
		if !e.Asc {
			c = -c
		}
		return c, nil
	}
	return 0, nil
}

// executeSort is a stable sort, rows with equal keys keep their input order
func executeSort(node *plan.Sort, rows []plan.Row) ([]plan.Row, error) {
	c := newCompiler(node.Input.Schema())
	evs := make([]evaluator, 0, len(node.Exprs))
	for _, e := range node.Exprs {
		ev, err := c.compile(e.Expr)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}

	keyed := make([]sortKey, 0, len(rows))
	for _, r := range rows {
		keys, err := evalList(evs, r)
		if err != nil {
			return nil, err
		}
		keyed = append(keyed, sortKey{row: r, keys: keys})
	}

	var sortErr error
	sort.SliceStable(keyed, func(i, j int) bool {
		c, err := compareSortKeys(node.Exprs, keyed[i].keys, keyed[j].keys)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	out := make([]plan.Row, 0, len(keyed))
	for _, k := range keyed {
		out = append(out, k.row)
	}
	return out, nil
}
