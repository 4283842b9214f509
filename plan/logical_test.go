package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjection(t *testing.T) {
	assert := assert.New(t)
	scan := exampleScan()

	p, err := SelectColumns(scan, []string{"b", "example.a"})
	assert.Nil(err)
	assert.Equal([]string{"b", "a"}, p.Schema().Names())
	assert.Equal([]DataType{TypeInt64, TypeInt64}, p.Schema().Types())

	_, err = SelectColumns(scan, []string{"z"})
	assert.True(errors.Is(err, ErrUnresolvedColumn))

	_, err = NewProjection(scan, []Expr{col("a"), col("example.a")})
	assert.True(errors.Is(err, ErrDuplicateColumn))

	_, err = NewProjection(scan, []Expr{&AggregateFunction{Func: AggSum, Args: []Expr{col("a")}}})
	assert.True(errors.Is(err, ErrInvalidArgument))

	p, err = NewProjection(scan, []Expr{
		&Alias{Expr: &BinaryExpr{Left: col("a"), Op: OpPlus, Right: lit(1)}, Name: "a1"},
		&BinaryExpr{Left: col("a"), Op: OpMultiply, Right: lit(2)},
	})
	assert.Nil(err)
	assert.Equal([]string{"a1", "a * 2"}, p.Schema().Names())
}

func TestFilter(t *testing.T) {
	assert := assert.New(t)
	scan := exampleScan()

	_, err := NewFilter(scan, &BinaryExpr{Left: col("a"), Op: OpLtEq, Right: col("b")})
	assert.Nil(err)

	_, err = NewFilter(scan, lit(nil))
	assert.Nil(err)

	_, err = NewFilter(scan, col("a"))
	assert.True(errors.Is(err, ErrTypeMismatch))

	_, err = NewFilter(scan, &BinaryExpr{
		Left: &AggregateFunction{Func: AggSum, Args: []Expr{col("a")}}, Op: OpGt, Right: lit(1),
	})
	assert.True(errors.Is(err, ErrInvalidArgument))
}

func TestAggregate(t *testing.T) {
	assert := assert.New(t)
	scan := exampleScan()

	agg, err := NewAggregate(scan,
		[]Expr{col("c")},
		[]Expr{&AggregateFunction{Func: AggSum, Args: []Expr{col("a")}}})
	assert.Nil(err)
	assert.Equal([]string{"c", "sum(a)"}, agg.Schema().Names())
	assert.Equal([]DataType{TypeUtf8, TypeInt64}, agg.Schema().Types())
	assert.Nil(agg.GroupingSets)

	agg, err = NewAggregate(scan, nil, []Expr{
		&Alias{Expr: &AggregateFunction{Func: AggCount, Args: []Expr{&Wildcard{}}}, Name: "n"},
	})
	assert.Nil(err)
	assert.Equal([]string{"n"}, agg.Schema().Names())

	agg, err = NewAggregate(scan,
		[]Expr{&GroupingSet{Kind: GroupingRollup, Sets: [][]Expr{{col("c"), col("b")}}}},
		[]Expr{&AggregateFunction{Func: AggMax, Args: []Expr{col("a")}}})
	assert.Nil(err)
	assert.Equal([]string{"c", "b", "max(a)"}, agg.Schema().Names())
	assert.Len(agg.GroupingSets, 3)
	assert.True(agg.Schema().Field(0).Nullable)

	_, err = NewAggregate(scan, []Expr{col("c")}, []Expr{col("a")})
	assert.True(errors.Is(err, ErrInvalidArgument))

	_, err = NewAggregate(scan,
		[]Expr{col("c"), &GroupingSet{Kind: GroupingCube, Sets: [][]Expr{{col("a")}}}}, nil)
	assert.True(errors.Is(err, ErrInvalidArgument))
}

func TestLimit(t *testing.T) {
	assert := assert.New(t)
	l, err := NewLimit(exampleScan(), 1, -5)
	assert.Nil(err)
	assert.Equal(int64(-1), l.Fetch)
	assert.Equal("Limit: skip=1, fetch=None\n  TableScan: example\n", Display(l))

	_, err = NewLimit(exampleScan(), -1, 10)
	assert.True(errors.Is(err, ErrInvalidArgument))
}

func TestUnion(t *testing.T) {
	assert := assert.New(t)
	a, _ := SelectColumns(exampleScan(), []string{"a", "b"})
	b, _ := SelectColumns(exampleScan(), []string{"a", "b"})
	c, _ := SelectColumns(exampleScan(), []string{"b", "a"})
	d, _ := SelectColumns(exampleScan(), []string{"a", "c"})

	u, err := NewUnion(a, b, false)
	assert.Nil(err)
	assert.Len(u.Inputs(), 2)

	u, err = NewUnion(u, b, false)
	assert.Nil(err)
	assert.Len(u.Inputs(), 3)

	u, err = NewUnion(a, b, true)
	assert.Nil(err)
	_, ok := u.(*Distinct)
	assert.True(ok)

	// same names different order is still a mismatch since b and a swap
	_, err = NewUnion(a, c, false)
	assert.True(errors.Is(err, ErrSchemaMismatch))

	_, err = NewUnion(a, d, false)
	assert.True(errors.Is(err, ErrSchemaMismatch))
}

func TestSort(t *testing.T) {
	assert := assert.New(t)
	s, err := NewSort(exampleScan(), []Expr{
		&SortExpr{Expr: col("a"), Asc: false, NullsFirst: true},
		col("b"),
	})
	assert.Nil(err)
	assert.Equal("Sort: a DESC NULLS FIRST, b ASC NULLS LAST\n  TableScan: example\n", Display(s))

	_, err = NewSort(exampleScan(), nil)
	assert.True(errors.Is(err, ErrInvalidArgument))

	_, err = NewSort(exampleScan(), []Expr{col("z")})
	assert.True(errors.Is(err, ErrUnresolvedColumn))
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	left, right := exampleScan(), uScan()

	keys, err := JoinColumns(left, right, []string{"a"}, []string{"id"})
	assert.Nil(err)

	j, err := NewJoin(left, right, JoinInner, keys,
		&BinaryExpr{Left: col("b"), Op: OpGt, Right: col("id")})
	assert.Nil(err)
	assert.Equal(5, j.Schema().Len())
	assert.Equal("Inner Join: example.a = u.id, Filter: b > id",
		j.describe())

	j, err = NewJoin(left, right, JoinLeft, keys, nil)
	assert.Nil(err)
	assert.True(j.Schema().Field(3).Nullable)

	for _, kind := range []JoinKind{JoinLeftSemi, JoinLeftAnti} {
		j, err = NewJoin(left, right, kind, keys, nil)
		assert.Nil(err)
		assert.Equal([]string{"a", "b", "c"}, j.Schema().Names())
	}
	for _, kind := range []JoinKind{JoinRightSemi, JoinRightAnti} {
		j, err = NewJoin(left, right, kind, keys, nil)
		assert.Nil(err)
		assert.Equal([]string{"id", "v"}, j.Schema().Names())
	}

	_, err = JoinColumns(left, right, []string{"a", "b"}, []string{"id"})
	assert.True(errors.Is(err, ErrArityMismatch))

	keys, _ = JoinColumns(left, right, []string{"c"}, []string{"id"})
	_, err = NewJoin(left, right, JoinInner, keys, nil)
	assert.True(errors.Is(err, ErrTypeMismatch))

	// self join without alias
	_, err = NewJoin(left, exampleScan(), JoinInner, nil, nil)
	assert.True(errors.Is(err, ErrDuplicateColumn))

	alias, err := NewSubqueryAlias(exampleScan(), "other")
	assert.Nil(err)
	j, err = NewJoin(left, alias, JoinInner, nil, nil)
	assert.Nil(err)
	assert.Equal("CrossJoin", j.describe())
}

func TestEmptyRelation(t *testing.T) {
	assert := assert.New(t)
	e := NewEmptyRelation(true)
	assert.Equal(0, e.Schema().Len())
	p, err := NewProjection(e, []Expr{&Alias{Expr: lit(1), Name: "one"}})
	assert.Nil(err)
	assert.Equal("Projection: 1 AS one\n  EmptyRelation: produce_one_row=true\n", Display(p))
}
