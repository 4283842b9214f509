package exec

import (
	"fmt"
	"math"
	"sort"

	"github.com/dianpeng/awkframe/plan"
)

// accumulator folds the argument values of one group
type accumulator interface {
	update(args []plan.Value) error
	result() (plan.Value, error)
}

type countAcc struct {
	star bool
	n    int64
}

func (self *countAcc) update(args []plan.Value) error {
	if self.star || args[0] != nil {
		self.n++
	}
	return nil
}

func (self *countAcc) result() (plan.Value, error) {
	return self.n, nil
}

type sumAcc struct {
	seen    bool
	isFloat bool
	i       int64
	f       float64
}

func (self *sumAcc) update(args []plan.Value) error {
	switch x := args[0].(type) {
	case nil:
		return nil
	case int64:
		if self.isFloat {
			self.f += float64(x)
		} else {
			self.i += x
		}
	case float64:
		if !self.isFloat {
			self.isFloat = true
			self.f = float64(self.i)
		}
		self.f += x
	default:
		return runtimeTypeErr("sum requires numbers, got %s", plan.TypeOfValue(x))
	}
	self.seen = true
	return nil
}

func (self *sumAcc) result() (plan.Value, error) {
	switch {
	case !self.seen:
		return nil, nil
	case self.isFloat:
		return self.f, nil
	}
	return self.i, nil
}

// floatSum keeps the result of sum over a Float64 column a float even when
// every value is integral
type floatSum struct {
	sumAcc
}

func (self *floatSum) result() (plan.Value, error) {
	v, err := self.sumAcc.result()
	if err != nil || v == nil {
		return v, err
	}
	f, _ := asFloat(v)
	return f, nil
}

type avgAcc struct {
	n   int64
	sum float64
}

func (self *avgAcc) update(args []plan.Value) error {
	if args[0] == nil {
		return nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return runtimeTypeErr("avg requires numbers, got %s", plan.TypeOfValue(args[0]))
	}
	self.n++
	self.sum += f
	return nil
}

func (self *avgAcc) result() (plan.Value, error) {
	if self.n == 0 {
		return nil, nil
	}
	return self.sum / float64(self.n), nil
}

type minMaxAcc struct {
	max bool
	cur plan.Value
}

func (self *minMaxAcc) update(args []plan.Value) error {
	v := args[0]
	if v == nil {
		return nil
	}
	if self.cur == nil {
		self.cur = v
		return nil
	}
	c, err := compareValues(v, self.cur)
	if err != nil {
		return err
	}
	if (self.max && c > 0) || (!self.max && c < 0) {
		self.cur = v
	}
	return nil
}

func (self *minMaxAcc) result() (plan.Value, error) {
	return self.cur, nil
}

// approx_distinct is computed exactly
type distinctCountAcc struct {
	seen map[string]struct{}
}

func (self *distinctCountAcc) update(args []plan.Value) error {
	if args[0] == nil {
		return nil
	}
	self.seen[rowKey(args[:1])] = struct{}{}
	return nil
}

func (self *distinctCountAcc) result() (plan.Value, error) {
	return int64(len(self.seen)), nil
}

type weighted struct {
	v float64
	w float64
}

// percentileAcc computes approx_median and approx_percentile_cont exactly
// over the collected values, the weighted variant returns the first value
// whose cumulative weight reaches the percentile
type percentileAcc struct {
	p        float64
	weighted bool
	values   []weighted
}

func (self *percentileAcc) update(args []plan.Value) error {
	if args[0] == nil {
		return nil
	}
	v, ok := asFloat(args[0])
	if !ok {
		return runtimeTypeErr("percentile requires numbers, got %s", plan.TypeOfValue(args[0]))
	}
	w := 1.0
	if self.weighted {
		if args[1] == nil {
			return nil
		}
		if w, ok = asFloat(args[1]); !ok {
			return runtimeTypeErr("percentile weight requires numbers, got %s",
				plan.TypeOfValue(args[1]))
		}
		if w <= 0 {
			return nil
		}
	}
	self.values = append(self.values, weighted{v: v, w: w})
	return nil
}

func (self *percentileAcc) result() (plan.Value, error) {
	n := len(self.values)
	if n == 0 {
		return nil, nil
	}
	sort.SliceStable(self.values, func(i, j int) bool {
		return self.values[i].v < self.values[j].v
	})

	if self.weighted {
		total := 0.0
		for _, x := range self.values {
			total += x.w
		}
		target := self.p * total
		acc := 0.0
		for _, x := range self.values {
			acc += x.w
			if acc >= target {
				return x.v, nil
			}
		}
		return self.values[n-1].v, nil
	}

	pos := self.p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return self.values[lo].v, nil
	}
	frac := pos - float64(lo)
	return self.values[lo].v + (self.values[hi].v-self.values[lo].v)*frac, nil
}

// distinctAcc feeds each distinct argument tuple once into the wrapped
// accumulator, ie count(DISTINCT a)
type distinctAcc struct {
	seen  map[string]struct{}
	inner accumulator
}

func (self *distinctAcc) update(args []plan.Value) error {
	k := rowKey(args)
	if _, ok := self.seen[k]; ok {
		return nil
	}
	self.seen[k] = struct{}{}
	return self.inner.update(args)
}

func (self *distinctAcc) result() (plan.Value, error) {
	return self.inner.result()
}

// aggregateSpec is one compiled aggregate expression
type aggregateSpec struct {
	fn   *plan.AggregateFunction
	args []evaluator
	out  plan.DataType
}

func compileAggregate(c *compiler, e plan.Expr) (*aggregateSpec, error) {
	fn, ok := plan.Unalias(e).(*plan.AggregateFunction)
	if !ok {
		return nil, fmt.Errorf("exec: %s is not an aggregate function", e)
	}
	out, err := plan.TypeOf(fn, c.schema)
	if err != nil {
		return nil, err
	}

	spec := &aggregateSpec{fn: fn, out: out}
	for _, a := range fn.Args {
		if _, ok := a.(*plan.Wildcard); ok {
			continue
		}
		ev, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		spec.args = append(spec.args, ev)
	}

	switch fn.Func {
	case plan.AggApproxPercentileCont, plan.AggApproxPercentileContWithWeight:
		// the percentile is a literal and not an input of the accumulator
		spec.args = spec.args[:len(spec.args)-1]
	}
	return spec, nil
}

func (self *aggregateSpec) newAccumulator() accumulator {
	var acc accumulator
	switch self.fn.Func {
	case plan.AggCount:
		acc = &countAcc{star: len(self.args) == 0}
	case plan.AggSum:
		if self.out == plan.TypeFloat64 {
			acc = &floatSum{}
		} else {
			acc = &sumAcc{}
		}
	case plan.AggAvg:
		acc = &avgAcc{}
	case plan.AggMin:
		acc = &minMaxAcc{}
	case plan.AggMax:
		acc = &minMaxAcc{max: true}
	case plan.AggApproxDistinct:
		acc = &distinctCountAcc{seen: map[string]struct{}{}}
	case plan.AggApproxMedian:
		acc = &percentileAcc{p: 0.5}
	case plan.AggApproxPercentileCont, plan.AggApproxPercentileContWithWeight:
		p, _ := plan.PercentileOf(self.fn)
		acc = &percentileAcc{
			p:        p,
			weighted: self.fn.Func == plan.AggApproxPercentileContWithWeight,
		}
	default:
		panic(fmt.Sprintf("exec: unknown aggregate function %s", self.fn.Func))
	}
	if self.fn.Distinct && len(self.args) > 0 {
		acc = &distinctAcc{seen: map[string]struct{}{}, inner: acc}
	}
	return acc
}

type group struct {
	keys []plan.Value
	accs []accumulator
}

// executeAggregate groups rows by every grouping set in turn, groups are
// emitted in the order they are first seen
func executeAggregate(node *plan.Aggregate, rows []plan.Row) ([]plan.Row, error) {
	c := newCompiler(node.Input.Schema())

	keys, err := c.compileList(node.GroupExprs)
	if err != nil {
		return nil, err
	}
	specs := make([]*aggregateSpec, 0, len(node.AggrExprs))
	for _, e := range node.AggrExprs {
		spec, err := compileAggregate(c, e)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	sets := node.GroupingSets
	if sets == nil {
		all := make([]int, len(keys))
		for i := range all {
			all[i] = i
		}
		sets = [][]int{all}
	}

	out := []plan.Row{}
	for _, set := range sets {
		groups := map[string]*group{}
		order := []*group{}

		if len(set) == 0 {
			g := newGroup(len(keys), specs)
			groups[rowKey(g.keys)] = g
			order = append(order, g)
		}

		for _, row := range rows {
			kv := make([]plan.Value, len(keys))
			for _, idx := range set {
				v, err := keys[idx](row)
				if err != nil {
					return nil, err
				}
				kv[idx] = v
			}

			k := rowKey(kv)
			g, ok := groups[k]
			if !ok {
				g = newGroup(len(keys), specs)
				g.keys = kv
				groups[k] = g
				order = append(order, g)
			}

			for i, spec := range specs {
				args, err := evalList(spec.args, row)
				if err != nil {
					return nil, err
				}
				if err := g.accs[i].update(args); err != nil {
					return nil, err
				}
			}
		}

		for _, g := range order {
			r := make(plan.Row, 0, len(keys)+len(specs))
			r = append(r, g.keys...)
			for _, acc := range g.accs {
				v, err := acc.result()
				if err != nil {
					return nil, err
				}
				r = append(r, v)
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func newGroup(width int, specs []*aggregateSpec) *group {
	g := &group{
		keys: make([]plan.Value, width),
		accs: make([]accumulator, len(specs)),
	}
	for i, spec := range specs {
		g.accs[i] = spec.newAccumulator()
	}
	return g
}
