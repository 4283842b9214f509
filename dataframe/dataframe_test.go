package dataframe

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectColumns(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	out, err := df.SelectColumns("a", "b")
	assert.NoError(err)
	assert.Same(df, out)

	assert.Equal([]string{"a", "b"}, df.Schema().Names())
	assert.Equal([]plan.DataType{plan.TypeInt64, plan.TypeInt64}, df.Schema().Types())
	assert.Equal([]plan.Row{
		{int64(1), int64(2)},
		{int64(2), int64(2)},
		{int64(3), int64(4)},
	}, collect(t, df))
}

func TestPoisonedDataFrame(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.SelectColumns("z")
	assert.Error(err)
	assert.True(errors.Is(err, plan.ErrUnresolvedColumn))

	var dfErr *Error
	if assert.True(errors.As(err, &dfErr)) {
		assert.Equal("SelectColumns", dfErr.Op)
	}

	// later calls are no-ops and do not report the failure again
	_, err = df.Filter(Col("a").Gt(Lit(1)))
	assert.NoError(err)
	_, err = df.Limit(-1, NoLimit)
	assert.NoError(err)
	_, err = df.Distinct()
	assert.NoError(err)

	// the operand of a no-op is not read
	_, err = df.Union(&DataFrame{session: s})
	assert.NoError(err)

	assert.Nil(df.Clone().inner)

	for op, fn := range map[string]func(){
		"Schema":  func() { df.Schema() },
		"Collect": func() { df.Collect(context.Background()) },
		"Show":    func() { df.Show(context.Background()) },
		"Count":   func() { df.Count(context.Background()) },
		"Explain": func() { df.Explain(true) },
	} {
		p := poisoned(fn)
		if assert.NotNil(p, op) {
			assert.Equal("DataFrame", p.Kind)
			assert.Equal(op, p.Op)
		}
	}

	// a poisoned DataFrame used as an operand is fatal
	other := readExample(t, s)
	p := poisoned(func() { other.Union(df) })
	if assert.NotNil(p) {
		assert.Equal("Union", p.Op)
	}
}

func TestAggregate(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Aggregate([]*Expr{Col("c")}, []*Expr{Sum(Col("a"))})
	assert.NoError(err)
	assert.Equal([]string{"c", "sum(a)"}, df.Schema().Names())
	assert.ElementsMatch([]plan.Row{
		{"x", int64(4)},
		{"y", int64(2)},
	}, collect(t, df))

	// not an aggregate call
	_, err = readExample(t, s).Aggregate(nil, []*Expr{Col("a")})
	assert.True(errors.Is(err, plan.ErrInvalidArgument))
}

func TestAggregateFunctions(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Aggregate(nil, []*Expr{
		Min(Col("a")),
		Max(Col("a")),
		Avg(Col("a")),
		Count(Col("a")),
		CountDistinct(Col("b")),
		ApproxDistinct(Col("c")),
		ApproxMedian(Col("a")),
		ApproxPercentileCont(Col("a"), Lit(0.5)),
	})
	require.NoError(t, err)
	assert.Equal([]plan.Row{{
		int64(1), int64(3), 2.0, int64(3), int64(2), int64(2), 2.0, 2.0,
	}}, collect(t, df))
}

func TestGroupingSets(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	for _, tc := range []struct {
		group *Expr
		rows  int
	}{
		{Cube([]*Expr{Col("c")}), 3},
		{Rollup([]*Expr{Col("c"), Col("b")}), 6},
		{GroupingSet([][]*Expr{{Col("c")}, {Col("b")}}), 4},
	} {
		df := readExample(t, s)
		_, err := df.Aggregate([]*Expr{tc.group}, []*Expr{Count(Wildcard())})
		require.NoError(t, err)
		assert.Len(collect(t, df), tc.rows, tc.group.String())
	}
}

func TestFilterExpressions(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	for _, tc := range []struct {
		predicate *Expr
		expect    []int64
	}{
		{Col("a").LtEq(Col("b")), []int64{1, 2, 3}},
		{Col("a").Gt(Lit(1)).And(Col("c").Eq(Lit("x"))), []int64{3}},
		{Col("a").Eq(Lit(1)).Or(Col("a").Eq(Lit(2))), []int64{1, 2}},
		{Col("a").Modulus(Lit(2)).Eq(Lit(1)), []int64{1, 3}},
		{Col("c").Like(Lit("x%")), []int64{1, 3}},
		{Col("c").NotLike(Lit("x%")), []int64{2}},
		{Col("c").ILike(Lit("X")), []int64{1, 3}},
		{Col("c").NotILike(Lit("Y")), []int64{1, 3}},
		{Col("a").InList([]*Expr{Lit(1), Lit(3)}, false), []int64{1, 3}},
		{InList(Col("a"), []*Expr{Lit(1), Lit(3)}, true), []int64{2}},
		{Col("a").Eq(Col("b")).Not(), []int64{1, 3}},
		{IsNull(Col("a")), []int64{}},
		{Col("a").Gt(Lit(nil)).IsUnknown(), []int64{1, 2, 3}},
		{BinaryExpr(Col("a"), OpNotEq, Lit(2)), []int64{1, 3}},
	} {
		df := readExample(t, s)
		name := tc.predicate.String()
		_, err := df.Filter(tc.predicate)
		require.NoError(t, err, name)
		_, err = df.SelectColumns("a")
		require.NoError(t, err)

		got := []int64{}
		for _, row := range collect(t, df) {
			got = append(got, row[0].(int64))
		}
		assert.Equal(tc.expect, got, name)
	}

	// the predicate must be boolean
	_, err := readExample(t, s).Filter(Col("a"))
	assert.True(errors.Is(err, plan.ErrTypeMismatch))
}

func TestSelect(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Select(
		Concat([]*Expr{Col("c"), Lit("-"), Col("a")}).Alias("s"),
		ConcatWs(Lit("|"), []*Expr{Col("a"), Col("b")}).Alias("w"),
		BinaryExpr(Col("a"), OpMultiply, Col("b")).Alias("m"),
		Random().Alias("r"),
	)
	require.NoError(t, err)
	assert.Equal([]string{"s", "w", "m", "r"}, df.Schema().Names())

	rows := collect(t, df)
	assert.Len(rows, 3)
	for idx, expect := range []plan.Row{
		{"x-1", "1|2", int64(2)},
		{"y-2", "2|2", int64(4)},
		{"x-3", "3|4", int64(12)},
	} {
		assert.Equal(expect, rows[idx][:3])
		r := rows[idx][3].(float64)
		assert.True(r >= 0 && r < 1)
	}
}

func TestLimit(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	for _, tc := range []struct {
		skip, fetch int
		expect      []int64
	}{
		{0, NoLimit, []int64{1, 2, 3}},
		{1, NoLimit, []int64{2, 3}},
		{0, 2, []int64{1, 2}},
		{1, 1, []int64{2}},
		{2, 5, []int64{3}},
		{5, 1, []int64{}},
		{0, 0, []int64{}},
		{1, math.MaxInt, []int64{2, 3}},
		{math.MaxInt, math.MaxInt, []int64{}},
	} {
		df := readExample(t, s)
		_, err := df.Limit(tc.skip, tc.fetch)
		require.NoError(t, err)

		got := []int64{}
		for _, row := range collect(t, df) {
			got = append(got, row[0].(int64))
		}
		assert.Equal(tc.expect, got, "limit(%d, %d)", tc.skip, tc.fetch)
	}

	_, err := readExample(t, s).Limit(-1, 1)
	assert.True(errors.Is(err, plan.ErrInvalidArgument))
}

func TestUnion(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)
	ctx := context.Background()

	df := readExample(t, s)
	_, err := df.Union(df.Clone())
	assert.NoError(err)
	n, err := df.Count(ctx)
	assert.NoError(err)
	assert.Equal(int64(6), n)

	df = readExample(t, s)
	_, err = df.UnionDistinct(df.Clone())
	assert.NoError(err)
	n, err = df.Count(ctx)
	assert.NoError(err)
	assert.Equal(int64(3), n)

	// the column names and types must be the same
	other := readExample(t, s)
	_, err = other.SelectColumns("b", "a")
	require.NoError(t, err)

	df = readExample(t, s)
	_, err = df.SelectColumns("a", "b")
	require.NoError(t, err)
	_, err = df.Union(other)
	assert.True(errors.Is(err, plan.ErrSchemaMismatch))
	assert.NotNil(poisoned(func() { df.Schema() }))

	// the operand is untouched
	assert.Equal([]string{"b", "a"}, other.Schema().Names())

	df = readExample(t, s)
	_, err = df.UnionDistinct(other)
	assert.True(errors.Is(err, plan.ErrSchemaMismatch))
}

func TestDistinct(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Union(df.Clone())
	require.NoError(t, err)
	_, err = df.Distinct()
	require.NoError(t, err)
	once := collect(t, df)
	assert.Len(once, 3)

	_, err = df.Distinct()
	require.NoError(t, err)
	assert.ElementsMatch(once, collect(t, df))

	df = readExample(t, s)
	_, err = df.SelectColumns("c")
	require.NoError(t, err)
	_, err = df.Distinct()
	require.NoError(t, err)
	assert.ElementsMatch([]plan.Row{{"x"}, {"y"}}, collect(t, df))
}

func TestSort(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Sort(Col("b").Sort(false, false), Col("a").Sort(true, false))
	require.NoError(t, err)

	got := []int64{}
	for _, row := range collect(t, df) {
		got = append(got, row[0].(int64))
	}
	assert.Equal([]int64{3, 1, 2}, got)

	// a plain expression sorts ascending
	df = readExample(t, s)
	_, err = df.Sort(Col("c"))
	require.NoError(t, err)
	rows := collect(t, df)
	assert.Equal("y", rows[2][2])

	_, err = readExample(t, s).Sort()
	assert.True(errors.Is(err, plan.ErrInvalidArgument))
}

func renamed(t *testing.T, s *SessionContext) *DataFrame {
	right := readExample(t, s)
	_, err := right.Select(
		Col("a").Alias("a2"),
		Col("b").Alias("b2"),
		Col("c").Alias("c2"),
	)
	require.NoError(t, err)
	return right
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)
	ctx := context.Background()

	left := readExample(t, s)
	_, err := left.Join(renamed(t, s), JoinInner, []string{"a", "b"}, []string{"a2", "b2"}, nil)
	require.NoError(t, err)
	assert.Equal([]string{"a", "b", "c", "a2", "b2", "c2"}, left.Schema().Names())
	n, err := left.Count(ctx)
	assert.NoError(err)
	assert.Equal(int64(3), n)

	// c joins x with x twice, the filter keeps the pair (1, 3) only
	for _, tc := range []struct {
		kind JoinType
		rows int64
	}{
		{JoinInner, 1},
		{JoinLeft, 3},
		{JoinRight, 3},
		{JoinFull, 5},
		{JoinLeftSemi, 1},
		{JoinRightSemi, 1},
		{JoinLeftAnti, 2},
		{JoinRightAnti, 2},
	} {
		df := readExample(t, s)
		_, err := df.Join(renamed(t, s), tc.kind, []string{"c"}, []string{"c2"}, Col("a").Lt(Col("a2")))
		require.NoError(t, err, tc.kind.String())
		n, err := df.Count(ctx)
		assert.NoError(err)
		assert.Equal(tc.rows, n, tc.kind.String())
	}

	df := readExample(t, s)
	_, err = df.Join(renamed(t, s), JoinInner, []string{"c"}, []string{"c2"}, nil)
	require.NoError(t, err)
	n, err = df.Count(ctx)
	assert.NoError(err)
	assert.Equal(int64(5), n)
}

func TestJoinError(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Join(renamed(t, s), JoinInner, []string{"a"}, []string{"a2", "b2"}, nil)
	assert.True(errors.Is(err, plan.ErrArityMismatch))
	assert.NotNil(poisoned(func() { df.Schema() }))

	df = readExample(t, s)
	_, err = df.Join(renamed(t, s), JoinLeft, []string{"a"}, []string{"nope"}, nil)
	assert.True(errors.Is(err, plan.ErrUnresolvedColumn))

	// the same file on both sides needs an alias
	df = readExample(t, s)
	_, err = df.Join(readExample(t, s), JoinInner, []string{"a"}, []string{"a"}, nil)
	assert.Error(err)

	df = readExample(t, s)
	other := readExample(t, s)
	_, err = other.Alias("o")
	require.NoError(t, err)
	_, err = df.Join(other, JoinInner, []string{"example.a"}, []string{"o.a"}, nil)
	assert.NoError(err)
	assert.Len(collect(t, df), 3)
}

func TestShow(t *testing.T) {
	assert := assert.New(t)
	s, out := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Filter(Col("c").Eq(Lit("x")))
	require.NoError(t, err)
	assert.NoError(df.Show(context.Background()))

	text := out.String()
	assert.Contains(text, "a")
	assert.Contains(text, "x")
	assert.NotContains(text, "y")
	assert.Contains(text, "(2 rows)")

	// show reads a snapshot, the handle stays usable
	assert.Len(collect(t, df), 2)
}

func TestExplain(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Filter(Col("a").Gt(Lit(1)))
	require.NoError(t, err)
	_, err = df.SelectColumns("c")
	require.NoError(t, err)

	text, err := df.Explain(false)
	assert.NoError(err)
	assert.Contains(text, "logical plan:")
	assert.Contains(text, "Filter: a > 1")
	assert.NotContains(text, "optimized plan:")

	text, err = df.Explain(true)
	assert.NoError(err)
	assert.Contains(text, "optimized plan:")
	assert.Contains(text, "scan example:")
	assert.Contains(text, `($1+0) > 1`)
}

func TestCollectBatches(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	batches, err := readExample(t, s).Collect(context.Background())
	assert.NoError(err)
	assert.Len(batches, 2)
	assert.Equal(2, batches[0].NumRows())
	assert.Equal(1, batches[1].NumRows())
	assert.Equal(3, batches[0].NumColumns())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = readExample(t, s).Collect(ctx)
	assert.True(errors.Is(err, context.Canceled))
}

func TestRuntimeError(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestSession(t)

	df := readExample(t, s)
	_, err := df.Select(Col("a").Divide(Col("a").Minus(Lit(1))).Alias("d"))
	require.NoError(t, err)
	_, err = df.Collect(context.Background())
	assert.Error(err)

	var dfErr *Error
	if assert.True(errors.As(err, &dfErr)) {
		assert.Equal("Collect", dfErr.Op)
	}
}
