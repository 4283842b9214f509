package dataframe

import (
	"context"
	"fmt"
	"strings"

	"github.com/dianpeng/awkframe/exec"
	"github.com/dianpeng/awkframe/plan"
)

// NoLimit is the fetch argument of Limit returning every row after skip
const NoLimit = -1

// DataFrame is a lazily built query. Every transformation replaces the plan
// held by the handle and returns the handle itself. When a transformation
// fails the handle is left without a plan: later transformations are ignored
// and reading the plan, ie Show or using the handle as an operand, panics
// with *PoisonedError. A DataFrame is not safe for concurrent use, Clone it.
type DataFrame struct {
	inner   plan.LogicalPlan
	session *SessionContext
}

func (self *DataFrame) apply(
	op string,
	fn func(plan.LogicalPlan) (plan.LogicalPlan, error),
) (*DataFrame, error) {
	inner := self.inner
	self.inner = nil
	if inner == nil {
		self.session.log.Debug("dataframe: call on poisoned handle ignored", "op", op)
		return self, nil
	}
	out, err := fn(inner)
	if err != nil {
		self.session.log.Debug("dataframe: handle poisoned", "op", op, "error", err)
		return self, &Error{Op: op, Err: err}
	}
	self.inner = out
	return self, nil
}

func (self *DataFrame) value(op string) plan.LogicalPlan {
	if self == nil || self.inner == nil {
		panic(&PoisonedError{Kind: "DataFrame", Op: op})
	}
	return self.inner
}

// SelectColumns keeps the named columns in the given order
func (self *DataFrame) SelectColumns(names ...string) (*DataFrame, error) {
	return self.apply("SelectColumns", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.SelectColumns(p, names)
	})
}

// Select projects arbitrary expressions, use Expr.Alias to name them
func (self *DataFrame) Select(exprs ...*Expr) (*DataFrame, error) {
	return self.apply("Select", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewProjection(p, values("Select", exprs))
	})
}

func (self *DataFrame) Filter(predicate *Expr) (*DataFrame, error) {
	return self.apply("Filter", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewFilter(p, predicate.value("Filter"))
	})
}

// Aggregate groups by groupExprs, no group expression aggregates the whole
// relation into one row. The output has the group columns followed by the
// aggregates
func (self *DataFrame) Aggregate(groupExprs, aggrExprs []*Expr) (*DataFrame, error) {
	return self.apply("Aggregate", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewAggregate(p,
			values("Aggregate", groupExprs),
			values("Aggregate", aggrExprs),
		)
	})
}

// Limit skips skip rows then returns at most fetch rows, NoLimit for all
func (self *DataFrame) Limit(skip, fetch int) (*DataFrame, error) {
	return self.apply("Limit", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewLimit(p, int64(skip), int64(fetch))
	})
}

// Union appends the rows of other, the column names and types of both sides
// must be the same
func (self *DataFrame) Union(other *DataFrame) (*DataFrame, error) {
	return self.apply("Union", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewUnion(p, other.value("Union"), false)
	})
}

func (self *DataFrame) UnionDistinct(other *DataFrame) (*DataFrame, error) {
	return self.apply("UnionDistinct", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewUnion(p, other.value("UnionDistinct"), true)
	})
}

func (self *DataFrame) Distinct() (*DataFrame, error) {
	return self.apply("Distinct", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewDistinct(p), nil
	})
}

// Sort orders the rows by keys built with Expr.Sort, any other expression
// sorts ascending with nulls last
func (self *DataFrame) Sort(exprs ...*Expr) (*DataFrame, error) {
	return self.apply("Sort", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewSort(p, values("Sort", exprs))
	})
}

// Join matches leftCols[i] with rightCols[i]. filter, which may be nil, is
// evaluated on the matched pairs only, an outer join still pads the rows it
// rejects
func (self *DataFrame) Join(
	right *DataFrame,
	kind JoinType,
	leftCols, rightCols []string,
	filter *Expr,
) (*DataFrame, error) {
	return self.apply("Join", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		r := right.value("Join")
		var f plan.Expr
		if filter != nil {
			f = filter.value("Join")
		}
		keys, err := plan.JoinColumns(p, r, leftCols, rightCols)
		if err != nil {
			return nil, err
		}
		return plan.NewJoin(p, r, kind.engine(), keys, f)
	})
}

// Alias re-qualifies every column with name, needed to join a relation with
// itself
func (self *DataFrame) Alias(name string) (*DataFrame, error) {
	return self.apply("Alias", func(p plan.LogicalPlan) (plan.LogicalPlan, error) {
		return plan.NewSubqueryAlias(p, name)
	})
}

// Clone returns an independent handle sharing the same plan, an empty handle
// clones into an empty handle
func (self *DataFrame) Clone() *DataFrame {
	return &DataFrame{inner: self.inner, session: self.session}
}

func (self *DataFrame) Schema() *plan.Schema {
	return self.value("Schema").Schema()
}

// Collect executes the query and returns its rows in batches of the session
// batch size
func (self *DataFrame) Collect(ctx context.Context) ([]*exec.Batch, error) {
	batches, err := self.session.collect(ctx, self.value("Collect"))
	if err != nil {
		return nil, &Error{Op: "Collect", Err: err}
	}
	return batches, nil
}

// Count executes the query and returns its number of rows
func (self *DataFrame) Count(ctx context.Context) (int64, error) {
	agg, err := plan.NewAggregate(self.value("Count"), nil, []plan.Expr{
		&plan.Alias{
			Expr: &plan.AggregateFunction{Func: plan.AggCount, Args: []plan.Expr{&plan.Wildcard{}}},
			Name: "count",
		},
	})
	if err != nil {
		return 0, &Error{Op: "Count", Err: err}
	}
	batches, err := self.session.collect(ctx, agg)
	if err != nil {
		return 0, &Error{Op: "Count", Err: err}
	}
	rows := exec.Rows(batches)
	if len(rows) != 1 {
		return 0, &Error{Op: "Count", Err: fmt.Errorf("expect 1 row, got %d", len(rows))}
	}
	return rows[0][0].(int64), nil
}

// Show executes the query and renders the result as a table on the session
// output
func (self *DataFrame) Show(ctx context.Context) error {
	p := self.value("Show")
	batches, err := self.session.collect(ctx, p)
	if err != nil {
		return &Error{Op: "Show", Err: err}
	}
	if err := renderTable(self.session.out, p.Schema(), batches); err != nil {
		return &Error{Op: "Show", Err: err}
	}
	return nil
}

// Explain prints the logical plan. The verbose form adds the optimized plan
// and what each scan does, for CSV files the generated awk program
func (self *DataFrame) Explain(verbose bool) (string, error) {
	p := self.value("Explain")
	display := plan.Display
	if self.session.cfg.Color {
		display = plan.DisplayColor
	}

	buf := &strings.Builder{}
	buf.WriteString("logical plan:\n")
	buf.WriteString(display(p))
	if !verbose {
		return buf.String(), nil
	}

	opt, err := plan.Optimize(p)
	if err != nil {
		return "", &Error{Op: "Explain", Err: err}
	}
	buf.WriteString("\noptimized plan:\n")
	buf.WriteString(display(opt))

	var scanErr error
	plan.Walk(opt, func(n plan.LogicalPlan) {
		scan, ok := n.(*plan.TableScan)
		if !ok || scanErr != nil {
			return
		}
		explainer, ok := scan.Source.(plan.ScanExplainer)
		if !ok {
			return
		}
		text, err := explainer.ExplainScan(&plan.ScanRequest{
			Projection: scan.Projection,
			Filters:    scan.Filters,
		})
		if err != nil {
			scanErr = err
			return
		}
		fmt.Fprintf(buf, "\nscan %s:\n%s\n", scan.Name, strings.TrimRight(text, "\n"))
	})
	if scanErr != nil {
		return "", &Error{Op: "Explain", Err: scanErr}
	}
	return buf.String(), nil
}

// CreateView registers the query under name in the session, it fails when
// the name is taken
func (self *DataFrame) CreateView(name string) error {
	p := self.value("CreateView")
	if err := self.session.register(name, &tableEntry{plan: p, view: true}, false); err != nil {
		return &Error{Op: "CreateView", Err: err}
	}
	return nil
}
