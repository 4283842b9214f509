package plan

import (
	"context"
	"fmt"
	"strings"
)

// ScanRequest describes what a TableScan asks from its source. Projection
// lists source column indices, nil means every column. Filters reference
// source columns by their unqualified name and are advisory, a source may
// return rows that do not satisfy them
type ScanRequest struct {
	Projection []int
	Filters    []Expr
}

// TableSource provides the rows of a table
type TableSource interface {
	Schema() *Schema
	Scan(context.Context, *ScanRequest) ([]Row, error)
}

// ScanExplainer is implemented by sources which can describe how a scan
// request is executed, ie the generated awk program
type ScanExplainer interface {
	ExplainScan(*ScanRequest) (string, error)
}

// LogicalPlan is one node of a logical query plan
type LogicalPlan interface {
	Schema() *Schema
	Inputs() []LogicalPlan
	describe() string
}

type TableScan struct {
	Name       string
	Source     TableSource
	Projection []int
	Filters    []Expr
	schema     *Schema
}

type Projection struct {
	Input  LogicalPlan
	Exprs  []Expr
	schema *Schema
}

type Filter struct {
	Input     LogicalPlan
	Predicate Expr
}

// Aggregate groups by GroupExprs. When GroupingSets is nil the aggregate has
// a single grouping over every group expression, otherwise each set lists the
// indices of the group expressions grouped in that pass and the others are
// null in its output rows
type Aggregate struct {
	Input        LogicalPlan
	GroupExprs   []Expr
	GroupingSets [][]int
	AggrExprs    []Expr
	schema       *Schema
}

// Limit with a negative Fetch is unbounded
type Limit struct {
	Input LogicalPlan
	Skip  int64
	Fetch int64
}

type Union struct {
	Branches []LogicalPlan
	schema   *Schema
}

type Distinct struct {
	Input LogicalPlan
}

type Sort struct {
	Input LogicalPlan
	Exprs []*SortExpr
}

// JoinKey is one equi-join pair, Left is evaluated on the left input and
// Right on the right input
type JoinKey struct {
	Left  Expr
	Right Expr
}

type Join struct {
	Left   LogicalPlan
	Right  LogicalPlan
	Kind   JoinKind
	On     []JoinKey
	Filter Expr // residual, evaluated over left columns followed by right columns
	schema *Schema
}

type SubqueryAlias struct {
	Input  LogicalPlan
	Alias  string
	schema *Schema
}

type EmptyRelation struct {
	ProduceOneRow bool
	schema        *Schema
}

func (self *TableScan) Schema() *Schema     { return self.schema }
func (self *Projection) Schema() *Schema    { return self.schema }
func (self *Filter) Schema() *Schema        { return self.Input.Schema() }
func (self *Aggregate) Schema() *Schema     { return self.schema }
func (self *Limit) Schema() *Schema         { return self.Input.Schema() }
func (self *Union) Schema() *Schema         { return self.schema }
func (self *Distinct) Schema() *Schema      { return self.Input.Schema() }
func (self *Sort) Schema() *Schema          { return self.Input.Schema() }
func (self *Join) Schema() *Schema          { return self.schema }
func (self *SubqueryAlias) Schema() *Schema { return self.schema }
func (self *EmptyRelation) Schema() *Schema { return self.schema }

func (self *TableScan) Inputs() []LogicalPlan     { return nil }
func (self *Projection) Inputs() []LogicalPlan    { return []LogicalPlan{self.Input} }
func (self *Filter) Inputs() []LogicalPlan        { return []LogicalPlan{self.Input} }
func (self *Aggregate) Inputs() []LogicalPlan     { return []LogicalPlan{self.Input} }
func (self *Limit) Inputs() []LogicalPlan         { return []LogicalPlan{self.Input} }
func (self *Union) Inputs() []LogicalPlan         { return self.Branches }
func (self *Distinct) Inputs() []LogicalPlan      { return []LogicalPlan{self.Input} }
func (self *Sort) Inputs() []LogicalPlan          { return []LogicalPlan{self.Input} }
func (self *Join) Inputs() []LogicalPlan          { return []LogicalPlan{self.Left, self.Right} }
func (self *SubqueryAlias) Inputs() []LogicalPlan { return []LogicalPlan{self.Input} }
func (self *EmptyRelation) Inputs() []LogicalPlan { return nil }

/* ----------------------------------------------------------------------------
 * Builders, each of them validates its input and computes the output schema
 * ---------------------------------------------------------------------------*/

// NewTableScan scans every column of source, qualified by name
func NewTableScan(name string, source TableSource) *TableScan {
	return &TableScan{
		Name:   name,
		Source: source,
		schema: source.Schema().WithQualifier(name),
	}
}

// WithProjection returns a copy of the scan reading only the given source
// columns
func (self *TableScan) WithProjection(projection []int) *TableScan {
	src := self.Source.Schema().WithQualifier(self.Name)
	fields := make([]*Field, 0, len(projection))
	for _, idx := range projection {
		fields = append(fields, src.Field(idx))
	}
	return &TableScan{
		Name:       self.Name,
		Source:     self.Source,
		Projection: projection,
		Filters:    self.Filters,
		schema:     &Schema{Fields: fields},
	}
}

// WithFilters returns a copy of the scan with pushed down filters
func (self *TableScan) WithFilters(filters []Expr) *TableScan {
	out := *self
	out.Filters = filters
	return &out
}

func checkUnique(stage string, schema *Schema) error {
	seen := map[string]bool{}
	for _, f := range schema.Fields {
		key := f.QualifiedName()
		if seen[key] {
			return planErr(stage, ErrDuplicateColumn,
				"column %s appears more than once, use an alias to rename it", key)
		}
		seen[key] = true
	}
	return nil
}

func rejectKind(stage string, e Expr, what string, match func(Expr) bool) error {
	var found Expr
	Visit(e, func(x Expr) bool {
		if found == nil && match(x) {
			found = x
		}
		return found == nil
	})
	if found != nil {
		return planErr(stage, ErrInvalidArgument, "%s is not allowed in %s: %s",
			what, stage, found)
	}
	return nil
}

func isAgg(e Expr) bool {
	_, ok := e.(*AggregateFunction)
	return ok
}

func isSortExpr(e Expr) bool {
	_, ok := e.(*SortExpr)
	return ok
}

func isGroupingSet(e Expr) bool {
	_, ok := e.(*GroupingSet)
	return ok
}

// checkScalar rejects every expression kind that is not a plain row level
// scalar expression
func checkScalar(stage string, e Expr) error {
	if err := rejectKind(stage, e, "aggregate function", isAgg); err != nil {
		return err
	}
	if err := rejectKind(stage, e, "sort expression", isSortExpr); err != nil {
		return err
	}
	return rejectKind(stage, e, "grouping set", isGroupingSet)
}

func NewProjection(input LogicalPlan, exprs []Expr) (*Projection, error) {
	fields := make([]*Field, 0, len(exprs))
	for _, e := range exprs {
		if err := checkScalar("projection", e); err != nil {
			return nil, err
		}
		f, err := FieldOf(e, input.Schema())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	schema := &Schema{Fields: fields}
	if err := checkUnique("projection", schema); err != nil {
		return nil, err
	}
	return &Projection{
		Input:  input,
		Exprs:  exprs,
		schema: schema,
	}, nil
}

// SelectColumns projects the named columns, in the given order
func SelectColumns(input LogicalPlan, names []string) (*Projection, error) {
	exprs := make([]Expr, 0, len(names))
	schema := input.Schema()
	for _, n := range names {
		idx, err := schema.Resolve(n)
		if err != nil {
			return nil, err
		}
		f := schema.Field(idx)
		exprs = append(exprs, &Column{Qualifier: f.Qualifier, Name: f.Name})
	}
	return NewProjection(input, exprs)
}

func NewFilter(input LogicalPlan, predicate Expr) (*Filter, error) {
	if err := checkScalar("filter", predicate); err != nil {
		return nil, err
	}
	t, err := TypeOf(predicate, input.Schema())
	if err != nil {
		return nil, err
	}
	if !isBoolish(t) {
		return nil, planErr("filter", ErrTypeMismatch,
			"predicate %s must be boolean, got %s", predicate, t)
	}
	return &Filter{
		Input:     input,
		Predicate: predicate,
	}, nil
}

// NewAggregate groups input by groupExprs and computes aggrExprs. A single
// GroupingSet as group expression is expanded into its member columns
func NewAggregate(input LogicalPlan, groupExprs, aggrExprs []Expr) (*Aggregate, error) {
	var sets [][]int

	for _, e := range groupExprs {
		if gs, ok := e.(*GroupingSet); ok {
			if len(groupExprs) != 1 {
				return nil, planErr("aggregate", ErrInvalidArgument,
					"%s must be the only group expression", gs)
			}
			groupExprs, sets = ExpandGroupingSet(gs)
			break
		}
	}
	return newAggregate(input, groupExprs, sets, aggrExprs)
}

func newAggregate(
	input LogicalPlan,
	groupExprs []Expr,
	sets [][]int,
	aggrExprs []Expr,
) (*Aggregate, error) {
	schema := input.Schema()
	fields := make([]*Field, 0, len(groupExprs)+len(aggrExprs))
	for _, e := range groupExprs {
		if err := checkScalar("group by", e); err != nil {
			return nil, err
		}
		f, err := FieldOf(e, schema)
		if err != nil {
			return nil, err
		}
		if sets != nil {
			f.Nullable = true
		}
		fields = append(fields, f)
	}

	for _, e := range aggrExprs {
		if _, ok := Unalias(e).(*AggregateFunction); !ok {
			return nil, planErr("aggregate", ErrInvalidArgument,
				"%s is not an aggregate function call", e)
		}
		f, err := FieldOf(e, schema)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	out := &Schema{Fields: fields}
	if err := checkUnique("aggregate", out); err != nil {
		return nil, err
	}
	return &Aggregate{
		Input:        input,
		GroupExprs:   groupExprs,
		GroupingSets: sets,
		AggrExprs:    aggrExprs,
		schema:       out,
	}, nil
}

func NewLimit(input LogicalPlan, skip, fetch int64) (*Limit, error) {
	if skip < 0 {
		return nil, planErr("limit", ErrInvalidArgument, "skip must be >= 0, got %d", skip)
	}
	if fetch < 0 {
		fetch = -1
	}
	return &Limit{
		Input: input,
		Skip:  skip,
		Fetch: fetch,
	}, nil
}

// NewUnion concatenates the rows of 2 inputs with equivalent schemas. With
// distinct the result is de-duplicated
func NewUnion(left, right LogicalPlan, distinct bool) (LogicalPlan, error) {
	ls, rs := left.Schema(), right.Schema()
	if !ls.Equivalent(rs) {
		return nil, planErr("union", ErrSchemaMismatch,
			"union requires identical column names and types, left is %s, right is %s",
			ls, rs)
	}

	inputs := []LogicalPlan{}
	for _, in := range []LogicalPlan{left, right} {
		if u, ok := in.(*Union); ok {
			inputs = append(inputs, u.Branches...)
		} else {
			inputs = append(inputs, in)
		}
	}

	fields := make([]*Field, 0, ls.Len())
	for idx, f := range ls.Fields {
		nf := *f
		nf.Nullable = f.Nullable || rs.Field(idx).Nullable
		fields = append(fields, &nf)
	}

	var out LogicalPlan = &Union{
		Branches: inputs,
		schema:   &Schema{Fields: fields},
	}
	if distinct {
		out = NewDistinct(out)
	}
	return out, nil
}

func NewDistinct(input LogicalPlan) *Distinct {
	return &Distinct{Input: input}
}

// NewSort accepts SortExpr keys, any other expression sorts ascending with
// nulls last
func NewSort(input LogicalPlan, exprs []Expr) (*Sort, error) {
	if len(exprs) == 0 {
		return nil, planErr("sort", ErrInvalidArgument, "sort requires at least one key")
	}
	keys := make([]*SortExpr, 0, len(exprs))
	for _, e := range exprs {
		s, ok := e.(*SortExpr)
		if !ok {
			s = &SortExpr{Expr: e, Asc: true}
		}
		if err := checkScalar("sort", s.Expr); err != nil {
			return nil, err
		}
		if _, err := TypeOf(s.Expr, input.Schema()); err != nil {
			return nil, err
		}
		keys = append(keys, s)
	}
	return &Sort{
		Input: input,
		Exprs: keys,
	}, nil
}

func NewJoin(
	left, right LogicalPlan,
	kind JoinKind,
	on []JoinKey,
	filter Expr,
) (*Join, error) {
	ls, rs := left.Schema(), right.Schema()

	for _, key := range on {
		if err := checkScalar("join", key.Left); err != nil {
			return nil, err
		}
		if err := checkScalar("join", key.Right); err != nil {
			return nil, err
		}
		lt, err := TypeOf(key.Left, ls)
		if err != nil {
			return nil, err
		}
		rt, err := TypeOf(key.Right, rs)
		if err != nil {
			return nil, err
		}
		if _, ok := CommonType(lt, rt); !ok {
			return nil, planErr("join", ErrTypeMismatch,
				"join key %s of type %s cannot be compared with %s of type %s",
				key.Left, lt, key.Right, rt)
		}
	}

	merged := ls.Merge(rs)
	if filter != nil {
		if err := checkScalar("join", filter); err != nil {
			return nil, err
		}
		t, err := TypeOf(filter, merged)
		if err != nil {
			return nil, err
		}
		if !isBoolish(t) {
			return nil, planErr("join", ErrTypeMismatch,
				"join filter %s must be boolean, got %s", filter, t)
		}
	}

	var schema *Schema
	switch kind {
	case JoinInner:
		schema = merged
	case JoinLeft:
		schema = ls.Merge(rs.WithNullable())
	case JoinRight:
		schema = ls.WithNullable().Merge(rs)
	case JoinFull:
		schema = ls.WithNullable().Merge(rs.WithNullable())
	case JoinLeftSemi, JoinLeftAnti:
		schema = ls
	case JoinRightSemi, JoinRightAnti:
		schema = rs
	default:
		return nil, planErr("join", ErrInvalidArgument, "unknown join kind %d", int(kind))
	}
	if err := checkUnique("join", schema); err != nil {
		return nil, err
	}

	return &Join{
		Left:   left,
		Right:  right,
		Kind:   kind,
		On:     on,
		Filter: filter,
		schema: schema,
	}, nil
}

// JoinColumns pairs leftCols[i] with rightCols[i] as equi-join keys
func JoinColumns(left, right LogicalPlan, leftCols, rightCols []string) ([]JoinKey, error) {
	if len(leftCols) != len(rightCols) {
		return nil, planErr("join", ErrArityMismatch,
			"left has %d join column(s) while right has %d", len(leftCols), len(rightCols))
	}
	keys := make([]JoinKey, 0, len(leftCols))
	for idx := range leftCols {
		li, err := left.Schema().Resolve(leftCols[idx])
		if err != nil {
			return nil, err
		}
		ri, err := right.Schema().Resolve(rightCols[idx])
		if err != nil {
			return nil, err
		}
		lf, rf := left.Schema().Field(li), right.Schema().Field(ri)
		keys = append(keys, JoinKey{
			Left:  &Column{Qualifier: lf.Qualifier, Name: lf.Name},
			Right: &Column{Qualifier: rf.Qualifier, Name: rf.Name},
		})
	}
	return keys, nil
}

func NewSubqueryAlias(input LogicalPlan, alias string) (*SubqueryAlias, error) {
	if alias == "" {
		return nil, planErr("alias", ErrInvalidArgument, "alias must not be empty")
	}
	schema := input.Schema().WithQualifier(alias)
	if err := checkUnique("alias", schema); err != nil {
		return nil, err
	}
	return &SubqueryAlias{
		Input:  input,
		Alias:  alias,
		schema: schema,
	}, nil
}

func NewEmptyRelation(produceOneRow bool) *EmptyRelation {
	return &EmptyRelation{
		ProduceOneRow: produceOneRow,
		schema:        &Schema{},
	}
}

/* ----------------------------------------------------------------------------
 * One line description of each node, used by Display
 * ---------------------------------------------------------------------------*/

func (self *TableScan) describe() string {
	buf := &strings.Builder{}
	buf.WriteString("TableScan: ")
	buf.WriteString(self.Name)
	if self.Projection != nil {
		names := make([]string, 0, len(self.Projection))
		for _, idx := range self.Projection {
			names = append(names, self.Source.Schema().Field(idx).Name)
		}
		buf.WriteString(" projection=[")
		buf.WriteString(strings.Join(names, ", "))
		buf.WriteString("]")
	}
	if len(self.Filters) > 0 {
		buf.WriteString(" filters=[")
		buf.WriteString(exprListString(self.Filters))
		buf.WriteString("]")
	}
	return buf.String()
}

func (self *Projection) describe() string {
	return "Projection: " + exprListString(self.Exprs)
}

func (self *Filter) describe() string {
	return "Filter: " + self.Predicate.String()
}

func (self *Aggregate) describe() string {
	buf := &strings.Builder{}
	buf.WriteString("Aggregate: groupBy=[")
	buf.WriteString(exprListString(self.GroupExprs))
	buf.WriteString("]")
	if self.GroupingSets != nil {
		parts := make([]string, 0, len(self.GroupingSets))
		for _, set := range self.GroupingSets {
			members := make([]Expr, 0, len(set))
			for _, idx := range set {
				members = append(members, self.GroupExprs[idx])
			}
			parts = append(parts, "("+exprListString(members)+")")
		}
		buf.WriteString(", sets=[")
		buf.WriteString(strings.Join(parts, ", "))
		buf.WriteString("]")
	}
	buf.WriteString(", aggr=[")
	buf.WriteString(exprListString(self.AggrExprs))
	buf.WriteString("]")
	return buf.String()
}

func (self *Limit) describe() string {
	if self.Fetch < 0 {
		return fmt.Sprintf("Limit: skip=%d, fetch=None", self.Skip)
	}
	return fmt.Sprintf("Limit: skip=%d, fetch=%d", self.Skip, self.Fetch)
}

func (self *Union) describe() string {
	return "Union"
}

func (self *Distinct) describe() string {
	return "Distinct"
}

func (self *Sort) describe() string {
	parts := make([]string, 0, len(self.Exprs))
	for _, e := range self.Exprs {
		parts = append(parts, e.String())
	}
	return "Sort: " + strings.Join(parts, ", ")
}

func (self *Join) describe() string {
	if len(self.On) == 0 && self.Filter == nil && self.Kind == JoinInner {
		return "CrossJoin"
	}
	keys := make([]string, 0, len(self.On))
	for _, k := range self.On {
		keys = append(keys, k.Left.String()+" = "+k.Right.String())
	}
	out := self.Kind.String() + " Join: " + strings.Join(keys, ", ")
	if self.Filter != nil {
		if len(keys) > 0 {
			out += ","
		}
		out += " Filter: " + self.Filter.String()
	}
	return out
}

func (self *SubqueryAlias) describe() string {
	return "SubqueryAlias: " + self.Alias
}

func (self *EmptyRelation) describe() string {
	if self.ProduceOneRow {
		return "EmptyRelation: produce_one_row=true"
	}
	return "EmptyRelation"
}
