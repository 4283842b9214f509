package exec

import (
	"fmt"

	"github.com/dianpeng/awkframe/plan"
)

// joinTable is the hash table built over the right input, rows with a null
// key are never inserted since null never equals anything
type joinTable struct {
	buckets map[string][]int
}

func buildJoinTable(keys []evaluator, rows []plan.Row) (*joinTable, error) {
	t := &joinTable{buckets: map[string][]int{}}
	for i, row := range rows {
		k, ok, err := joinKey(keys, row)
		if err != nil {
			return nil, err
		}
		if ok {
			t.buckets[k] = append(t.buckets[k], i)
		}
	}
	return t, nil
}

func joinKey(keys []evaluator, row plan.Row) (string, bool, error) {
	vals, err := evalList(keys, row)
	if err != nil {
		return "", false, err
	}
	for _, v := range vals {
		if v == nil {
			return "", false, nil
		}
	}
	return rowKey(vals), true, nil
}

func nullRow(n int) plan.Row {
	return make(plan.Row, n)
}

func concatRow(l, r plan.Row) plan.Row {
	out := make(plan.Row, 0, len(l)+len(r))
	out = append(out, l...)
	return append(out, r...)
}

// executeJoin runs a hash join when there are equi keys and a nested loop
// otherwise. The residual filter is only evaluated over candidate pairs so it
// never removes the unmatched rows of outer joins.
func executeJoin(node *plan.Join, left, right []plan.Row) ([]plan.Row, error) {
	ls, rs := node.Left.Schema(), node.Right.Schema()
	lc, rc := newCompiler(ls), newCompiler(rs)

	lkeys := make([]evaluator, 0, len(node.On))
	rkeys := make([]evaluator, 0, len(node.On))
	for _, k := range node.On {
		l, err := lc.compile(k.Left)
		if err != nil {
			return nil, err
		}
		r, err := rc.compile(k.Right)
		if err != nil {
			return nil, err
		}
		lkeys = append(lkeys, l)
		rkeys = append(rkeys, r)
	}

	var filter evaluator
	if node.Filter != nil {
		f, err := newCompiler(ls.Merge(rs)).compile(node.Filter)
		if err != nil {
			return nil, err
		}
		filter = f
	}

	var table *joinTable
	if len(lkeys) > 0 {
		t, err := buildJoinTable(rkeys, right)
		if err != nil {
			return nil, err
		}
		table = t
	}

	candidates := func(row plan.Row) ([]int, error) {
		if table == nil {
			all := make([]int, len(right))
			for i := range all {
				all[i] = i
			}
			return all, nil
		}
		k, ok, err := joinKey(lkeys, row)
		if err != nil || !ok {
			return nil, err
		}
		return table.buckets[k], nil
	}

	matches := func(l, r plan.Row) (bool, error) {
		if filter == nil {
			return true, nil
		}
		v, err := filter(concatRow(l, r))
		if err != nil {
			return false, err
		}
		b, _ := truth(v)
		return b, nil
	}

	kind := node.Kind
	lw, rw := ls.Len(), rs.Len()
	rightMatched := make([]bool, len(right))
	out := []plan.Row{}

	for _, lrow := range left {
		cand, err := candidates(lrow)
		if err != nil {
			return nil, err
		}
		matched := false
		for _, ri := range cand {
			ok, err := matches(lrow, right[ri])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			rightMatched[ri] = true

			switch kind {
			case plan.JoinInner, plan.JoinLeft, plan.JoinRight, plan.JoinFull:
				out = append(out, concatRow(lrow, right[ri]))
			}
			if kind == plan.JoinLeftSemi || kind == plan.JoinLeftAnti {
				break
			}
		}

		switch kind {
		case plan.JoinLeft, plan.JoinFull:
			if !matched {
				out = append(out, concatRow(lrow, nullRow(rw)))
			}
		case plan.JoinLeftSemi:
			if matched {
				out = append(out, lrow)
			}
		case plan.JoinLeftAnti:
			if !matched {
				out = append(out, lrow)
			}
		}
	}

	switch kind {
	case plan.JoinRight, plan.JoinFull:
		for i, rrow := range right {
			if !rightMatched[i] {
				out = append(out, concatRow(nullRow(lw), rrow))
			}
		}
	case plan.JoinRightSemi, plan.JoinRightAnti:
		want := kind == plan.JoinRightSemi
		for i, rrow := range right {
			if rightMatched[i] == want {
				out = append(out, rrow)
			}
		}
	case plan.JoinInner, plan.JoinLeft, plan.JoinLeftSemi, plan.JoinLeftAnti:
	default:
		return nil, fmt.Errorf("exec: unknown join kind %s", kind)
	}
	return out, nil
}
