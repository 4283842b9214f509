package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectionFilter(t *testing.T) {
	assert := assert.New(t)

	f, err := plan.NewFilter(exampleScan(t), bin(col("a"), plan.OpLtEq, col("b")))
	require.NoError(t, err)
	p, err := plan.NewProjection(f, []plan.Expr{
		col("c"),
		&plan.Alias{Expr: bin(col("a"), plan.OpPlus, col("b")), Name: "s"},
	})
	require.NoError(t, err)

	assert.Equal([]plan.Row{
		{"x", int64(3)},
		{"y", int64(4)},
		{"x", int64(7)},
	}, run(t, p))

	// a null predicate drops the row
	f, err = plan.NewFilter(exampleScan(t), bin(col("a"), plan.OpEq, lit(nil)))
	require.NoError(t, err)
	assert.Empty(run(t, f))
}

func TestAggregateScenario(t *testing.T) {
	assert := assert.New(t)

	agg, err := plan.NewAggregate(exampleScan(t),
		[]plan.Expr{col("c")},
		[]plan.Expr{&plan.AggregateFunction{Func: plan.AggSum, Args: []plan.Expr{col("a")}}},
	)
	require.NoError(t, err)
	assert.Equal([]string{"c", "sum(a)"}, agg.Schema().Names())
	assert.Equal([]plan.Row{
		{"x", int64(4)},
		{"y", int64(2)},
	}, run(t, agg))
}

func aggCall(fn string, distinct bool, args ...plan.Expr) plan.Expr {
	return &plan.AggregateFunction{Func: fn, Args: args, Distinct: distinct}
}

func TestAggregateFunctions(t *testing.T) {
	assert := assert.New(t)

	scan := memScan(t, "v", []*plan.Field{
		{Name: "x", Type: plan.TypeInt64, Nullable: true},
		{Name: "w", Type: plan.TypeFloat64, Nullable: true},
	}, []plan.Row{
		{int64(1), 1.0},
		{int64(2), 1.0},
		{int64(2), 1.0},
		{int64(4), 1.0},
		{nil, 5.0},
	})

	agg, err := plan.NewAggregate(scan, nil, []plan.Expr{
		aggCall(plan.AggCount, false, &plan.Wildcard{}),
		aggCall(plan.AggCount, false, col("x")),
		aggCall(plan.AggCount, true, col("x")),
		aggCall(plan.AggSum, false, col("x")),
		aggCall(plan.AggSum, true, col("x")),
		aggCall(plan.AggSum, false, col("w")),
		aggCall(plan.AggAvg, false, col("x")),
		aggCall(plan.AggMin, false, col("x")),
		aggCall(plan.AggMax, false, col("x")),
		aggCall(plan.AggApproxDistinct, false, col("x")),
		aggCall(plan.AggApproxMedian, false, col("x")),
		aggCall(plan.AggApproxPercentileCont, false, col("x"), lit(0.25)),
		aggCall(plan.AggApproxPercentileContWithWeight, false, col("x"), col("w"), lit(0.5)),
	})
	require.NoError(t, err)

	assert.Equal([]plan.Row{{
		int64(5),
		int64(4),
		int64(3),
		int64(9),
		int64(7),
		9.0,
		2.25,
		int64(1),
		int64(4),
		int64(3),
		2.0,
		1.75,
		2.0,
	}}, run(t, agg))
}

func TestAggregateEmptyInput(t *testing.T) {
	assert := assert.New(t)

	f, err := plan.NewFilter(exampleScan(t), lit(false))
	require.NoError(t, err)

	global, err := plan.NewAggregate(f, nil, []plan.Expr{
		aggCall(plan.AggCount, false, &plan.Wildcard{}),
		aggCall(plan.AggSum, false, col("a")),
	})
	require.NoError(t, err)
	assert.Equal([]plan.Row{{int64(0), nil}}, run(t, global))

	grouped, err := plan.NewAggregate(f, []plan.Expr{col("c")}, []plan.Expr{
		aggCall(plan.AggCount, false, &plan.Wildcard{}),
	})
	require.NoError(t, err)
	assert.Empty(run(t, grouped))
}

func TestAggregateGroupingSets(t *testing.T) {
	assert := assert.New(t)

	count := aggCall(plan.AggCount, false, &plan.Wildcard{})

	rollup, err := plan.NewAggregate(exampleScan(t),
		[]plan.Expr{&plan.GroupingSet{Kind: plan.GroupingRollup, Sets: [][]plan.Expr{{col("c"), col("b")}}}},
		[]plan.Expr{count},
	)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{nil, nil, int64(3)},
		{"x", nil, int64(2)},
		{"y", nil, int64(1)},
		{"x", int64(2), int64(1)},
		{"y", int64(2), int64(1)},
		{"x", int64(4), int64(1)},
	}, run(t, rollup))

	cube, err := plan.NewAggregate(exampleScan(t),
		[]plan.Expr{&plan.GroupingSet{Kind: plan.GroupingCube, Sets: [][]plan.Expr{{col("c"), col("b")}}}},
		[]plan.Expr{count},
	)
	require.NoError(t, err)
	// () 1, (c) 2, (b) 2, (c, b) 3
	assert.Len(run(t, cube), 8)

	sets, err := plan.NewAggregate(exampleScan(t),
		[]plan.Expr{&plan.GroupingSet{Kind: plan.GroupingSets, Sets: [][]plan.Expr{{col("b")}, {col("c")}}}},
		[]plan.Expr{count},
	)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(2), nil, int64(2)},
		{int64(4), nil, int64(1)},
		{nil, "x", int64(2)},
		{nil, "y", int64(1)},
	}, run(t, sets))
}

func TestJoinKinds(t *testing.T) {
	assert := assert.New(t)

	expect := map[plan.JoinKind]int{
		plan.JoinInner:     3,
		plan.JoinLeft:      5,
		plan.JoinRight:     4,
		plan.JoinFull:      6,
		plan.JoinLeftSemi:  2,
		plan.JoinLeftAnti:  2,
		plan.JoinRightSemi: 3,
		plan.JoinRightAnti: 1,
	}
	for kind, n := range expect {
		l := idScan(t, "l", int64(1), int64(2), int64(3), nil)
		r := idScan(t, "r", int64(2), int64(3), int64(3), int64(4))
		on, err := plan.JoinColumns(l, r, []string{"l.id"}, []string{"r.id"})
		require.NoError(t, err)
		j, err := plan.NewJoin(l, r, kind, on, nil)
		require.NoError(t, err)

		rows := run(t, j)
		assert.Len(rows, n, kind.String())
		for _, row := range rows {
			assert.Len(row, j.Schema().Len(), kind.String())
		}
	}
}

func TestJoinRows(t *testing.T) {
	assert := assert.New(t)

	l := idScan(t, "l", int64(1), int64(2))
	r := idScan(t, "r", int64(2), int64(5))
	on, err := plan.JoinColumns(l, r, []string{"id"}, []string{"id"})
	require.NoError(t, err)

	full, err := plan.NewJoin(l, r, plan.JoinFull, on, nil)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), int64(0), nil, nil},
		{int64(2), int64(1), int64(2), int64(0)},
		{nil, nil, int64(5), int64(1)},
	}, run(t, full))

	// the filter only rejects pairs, unmatched left rows survive
	left, err := plan.NewJoin(l, r, plan.JoinLeft, on, bin(col("r.pos"), plan.OpGt, lit(int64(0))))
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), int64(0), nil, nil},
		{int64(2), int64(1), nil, nil},
	}, run(t, left))

	// no key, the filter alone decides
	cross, err := plan.NewJoin(l, r, plan.JoinInner, nil, bin(col("l.id"), plan.OpLt, col("r.id")))
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), int64(0), int64(2), int64(0)},
		{int64(1), int64(0), int64(5), int64(1)},
		{int64(2), int64(1), int64(5), int64(1)},
	}, run(t, cross))
}

func TestSortLimitDistinctUnion(t *testing.T) {
	assert := assert.New(t)

	scan := idScan(t, "t", int64(3), nil, int64(1), int64(3))

	s, err := plan.NewSort(scan, []plan.Expr{
		&plan.SortExpr{Expr: col("id"), Asc: false, NullsFirst: true},
	})
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{nil, int64(1)},
		{int64(3), int64(0)},
		{int64(3), int64(3)},
		{int64(1), int64(2)},
	}, run(t, s))

	s, err = plan.NewSort(scan, []plan.Expr{col("id")})
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), int64(2)},
		{int64(3), int64(0)},
		{int64(3), int64(3)},
		{nil, int64(1)},
	}, run(t, s))

	for _, c := range []struct {
		skip, fetch int64
		n           int
	}{
		{0, -1, 4}, {1, 2, 2}, {3, 10, 1}, {10, 1, 0}, {0, 0, 0},
	} {
		l, err := plan.NewLimit(scan, c.skip, c.fetch)
		require.NoError(t, err)
		assert.Len(run(t, l), c.n)
	}

	p, err := plan.NewProjection(scan, []plan.Expr{col("id")})
	require.NoError(t, err)
	d := plan.NewDistinct(p)
	assert.Equal([]plan.Row{{int64(3)}, {nil}, {int64(1)}}, run(t, d))
	assert.Equal(run(t, d), run(t, plan.NewDistinct(d)))

	u, err := plan.NewUnion(p, p, false)
	require.NoError(t, err)
	assert.Len(run(t, u), 8)

	u, err = plan.NewUnion(p, p, true)
	require.NoError(t, err)
	assert.Len(run(t, u), 3)
}

func TestEmptyRelation(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]plan.Row{{}}, run(t, plan.NewEmptyRelation(true)))
	assert.Empty(run(t, plan.NewEmptyRelation(false)))
}

func TestConcurrentExecution(t *testing.T) {
	assert := assert.New(t)

	build := func() plan.LogicalPlan {
		var out plan.LogicalPlan
		for i := 0; i < 4; i++ {
			l := idScan(t, "l", int64(1), int64(2), int64(3))
			r := idScan(t, "r", int64(2), int64(3))
			on, err := plan.JoinColumns(l, r, []string{"l.id"}, []string{"r.id"})
			require.NoError(t, err)
			j, err := plan.NewJoin(l, r, plan.JoinInner, on, nil)
			require.NoError(t, err)
			p, err := plan.NewProjection(j, []plan.Expr{col("l.id")})
			require.NoError(t, err)
			if out == nil {
				out = p
				continue
			}
			out, err = plan.NewUnion(out, p, false)
			require.NoError(t, err)
		}
		return out
	}

	serial, err := newTestExecutor(t, 1).Execute(context.Background(), build())
	require.NoError(t, err)
	parallel, err := newTestExecutor(t, 2).Execute(context.Background(), build())
	require.NoError(t, err)
	assert.Len(serial, 8)
	assert.Equal(serial, parallel)
}

func TestConcurrentError(t *testing.T) {
	assert := assert.New(t)

	bad, err := plan.NewProjection(exampleScan(t), []plan.Expr{
		&plan.Alias{Expr: bin(col("a"), plan.OpDivide, lit(int64(0))), Name: "a"},
	})
	require.NoError(t, err)
	good, err := plan.NewProjection(exampleScan(t), []plan.Expr{col("a")})
	require.NoError(t, err)
	u, err := plan.NewUnion(good, bad, false)
	require.NoError(t, err)

	_, err = newTestExecutor(t, 4).Execute(context.Background(), u)
	assert.True(errors.Is(err, ErrDivideByZero))
}

func TestCollectBatches(t *testing.T) {
	assert := assert.New(t)

	u, err := plan.NewUnion(exampleScan(t), exampleScan(t), false)
	require.NoError(t, err)

	batches, err := newTestExecutor(t, 1).Collect(context.Background(), u)
	require.NoError(t, err)
	assert.Len(batches, 3)
	assert.Equal(2, batches[0].NumRows())
	assert.Equal(2, batches[2].NumRows())
	assert.Equal(3, batches[0].NumColumns())
	assert.Len(Rows(batches), 6)

	assert.Empty(NewBatches(u.Schema(), nil, 2))
}

func TestExecuteCanceled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestExecutor(t, 1).Execute(ctx, exampleScan(t))
	assert.True(errors.Is(err, context.Canceled))

	_, err = NewExecutor(Config{}, nil)
	assert.Error(err)
}
