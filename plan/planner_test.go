package plan

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestPlannerGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tc := range []struct {
		name  string
		query string
	}{
		{"filter_limit", "select a, b from example where a <= b limit 10"},
		{"aggregate", "select c, sum(a) from example group by c having sum(a) > 1 order by c"},
		{"join", "select e.a, u.v from example e join u on e.a = u.id and e.b > 1 where u.v = 'x'"},
	} {
		p, err := planSQL(t, tc.query)
		if !assert.Nil(t, err, tc.query) {
			continue
		}
		opt, err := Optimize(p)
		if !assert.Nil(t, err, tc.query) {
			continue
		}
		g.Assert(t, tc.name, []byte(Display(p)))
		g.Assert(t, tc.name+"_optimized", []byte(Display(opt)))
	}
}

func TestPlannerSchema(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		query string
		names []string
	}{
		{"select * from example", []string{"a", "b", "c"}},
		{"select example.* from example, u", []string{"a", "b", "c"}},
		{"select a as x, c from example order by b desc", []string{"x", "c"}},
		{"select c, count(*) as n from example group by 1", []string{"c", "n"}},
		{"select count(*), max(a) from example", []string{"count(*)", "max(a)"}},
		{"select 1 + 2 as three", []string{"three"}},
		{"select a from ev", []string{"a"}},
		{"select x from (select a as x from example) s where x > 1", []string{"x"}},
		{"select a from example union all select id from u", []string{"a"}},
		{"select a, b from example union select b, a from example order by 2 limit 3",
			[]string{"a", "b"}},
		{"select c, sum(a) from example group by rollup(c, b)", []string{"c", "sum(a)"}},
		{"select distinct c from example order by c", []string{"c"}},
		{"select avg(a) from 'example'", []string{"avg(a)"}},
	} {
		p, err := planSQL(t, tc.query)
		if assert.Nil(err, tc.query) {
			assert.Equal(tc.names, p.Schema().Names(), tc.query)
			_, err = Optimize(p)
			assert.Nil(err, tc.query)
		}
	}
}

func TestPlannerHiddenOrder(t *testing.T) {
	assert := assert.New(t)
	p, err := planSQL(t, "select a from example order by b desc")
	assert.Nil(err)
	assert.Equal(`Projection: example.a
  Sort: b DESC NULLS FIRST
    Projection: a, b
      TableScan: example
`, Display(p))
}

func TestPlannerError(t *testing.T) {
	assert := assert.New(t)
	for _, tc := range []struct {
		query string
		kind  error
	}{
		{"select z from example", ErrUnresolvedColumn},
		{"select a from nope", ErrTableNotFound},
		{"select a from example, u e where id = 1 and a = e.v", ErrTypeMismatch},
		{"select a, sum(b) from example group by c", ErrUnresolvedColumn},
		{"select a from example having a > 1", ErrInvalidArgument},
		{"select a from example where sum(a) > 1", ErrInvalidArgument},
		{"select distinct a from example order by b", ErrInvalidArgument},
		{"select a from example order by 3", ErrInvalidArgument},
		{"select a from example union select c from example", ErrSchemaMismatch},
		{"select nosuch(a) from example", ErrNotSupported},
		{"select a from example e join example f on e.a = f.a where a > 1", ErrAmbiguousColumn},
		{"select a from example limit 1 offset 2", nil},
	} {
		_, err := planSQL(t, tc.query)
		if tc.kind == nil {
			assert.Nil(err, tc.query)
		} else {
			assert.True(errors.Is(err, tc.kind), "%s: %v", tc.query, err)
		}
	}
}

func TestOptimizeOuterJoin(t *testing.T) {
	assert := assert.New(t)
	p, err := planSQL(t,
		"select * from example left join u on example.a = u.id where example.b > 1 and u.v = 'x'")
	assert.Nil(err)
	opt, err := Optimize(p)
	assert.Nil(err)
	assert.Equal(`Projection: example.a, example.b, example.c, u.id, u.v
  Filter: u.v = 'x'
    Left Join: example.a = u.id
      Filter: example.b > 1
        TableScan: example filters=[b > 1]
      TableScan: u
`, Display(opt))
}

func TestOptimizeCountStar(t *testing.T) {
	assert := assert.New(t)
	p, err := planSQL(t, "select count(*) from example")
	assert.Nil(err)
	opt, err := Optimize(p)
	assert.Nil(err)
	assert.Equal(`Projection: count(*)
  Aggregate: groupBy=[], aggr=[count(*)]
    TableScan: example projection=[]
`, Display(opt))
}

func TestOptimizeLimitUnion(t *testing.T) {
	assert := assert.New(t)
	p, err := planSQL(t,
		"select a from example where b > 1 union all select id from u limit 3 offset 1")
	assert.Nil(err)
	opt, err := Optimize(p)
	assert.Nil(err)

	var limit *Limit
	unions := 0
	Walk(opt, func(n LogicalPlan) {
		switch x := n.(type) {
		case *Limit:
			limit = x
		case *Union:
			unions++
			assert.Len(x.Branches, 2)
		}
	})
	if assert.NotNil(limit) {
		assert.Equal(int64(1), limit.Skip)
		assert.Equal(int64(3), limit.Fetch)
	}
	assert.Equal(1, unions)
	assert.True(opt.Schema().Equivalent(p.Schema()))
}
