package plan

import (
	"strconv"
	"strings"
)

// Expr is a node of a typed expression tree. Every node is immutable once
// built, rewrites always produce new nodes
type Expr interface {
	String() string
	exprNode()
}

type Column struct {
	Qualifier string
	Name      string
}

type Literal struct {
	Value Value
}

type Alias struct {
	Expr Expr
	Name string
}

type BinaryExpr struct {
	Left  Expr
	Op    Operator
	Right Expr
}

type Not struct {
	Expr Expr
}

type Negative struct {
	Expr Expr
}

type PredicateKind int

const (
	IsNull PredicateKind = iota
	IsNotNull
	IsTrue
	IsNotTrue
	IsFalse
	IsNotFalse
	IsUnknown
	IsNotUnknown
)

func (self PredicateKind) String() string {
	switch self {
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	case IsTrue:
		return "IS TRUE"
	case IsNotTrue:
		return "IS NOT TRUE"
	case IsFalse:
		return "IS FALSE"
	case IsNotFalse:
		return "IS NOT FALSE"
	case IsUnknown:
		return "IS UNKNOWN"
	default:
		return "IS NOT UNKNOWN"
	}
}

// Predicate is one of the IS [NOT] NULL/TRUE/FALSE/UNKNOWN tests, it never
// evaluates to null
type Predicate struct {
	Kind PredicateKind
	Expr Expr
}

type Like struct {
	Negated         bool
	CaseInsensitive bool
	Expr            Expr
	Pattern         Expr
}

type InList struct {
	Expr    Expr
	List    []Expr
	Negated bool
}

// SortExpr annotates an expression as a sort key, only valid inside Sort
type SortExpr struct {
	Expr       Expr
	Asc        bool
	NullsFirst bool
}

const (
	AggMin                            = "min"
	AggMax                            = "max"
	AggSum                            = "sum"
	AggAvg                            = "avg"
	AggCount                          = "count"
	AggApproxDistinct                 = "approx_distinct"
	AggApproxMedian                   = "approx_median"
	AggApproxPercentileCont           = "approx_percentile_cont"
	AggApproxPercentileContWithWeight = "approx_percentile_cont_with_weight"
)

type AggregateFunction struct {
	Func     string
	Args     []Expr
	Distinct bool
}

// Wildcard is the argument of count(*)
type Wildcard struct{}

const (
	FuncConcat   = "concat"
	FuncConcatWs = "concat_ws"
	FuncRandom   = "random"
	FuncLower    = "lower"
	FuncUpper    = "upper"
	FuncLength   = "length"
	FuncAbs      = "abs"
	FuncCoalesce = "coalesce"
)

type ScalarFunction struct {
	Func string
	Args []Expr
}

type GroupingSetKind int

const (
	GroupingSets GroupingSetKind = iota
	GroupingCube
	GroupingRollup
)

// GroupingSet is only valid as the single group expression of an aggregate.
// For cube and rollup Sets holds exactly one list, the member expressions
type GroupingSet struct {
	Kind GroupingSetKind
	Sets [][]Expr
}

type Cast struct {
	Expr Expr
	Type DataType
}

func (*Column) exprNode()            {}
func (*Literal) exprNode()           {}
func (*Alias) exprNode()             {}
func (*BinaryExpr) exprNode()        {}
func (*Not) exprNode()               {}
func (*Negative) exprNode()          {}
func (*Predicate) exprNode()         {}
func (*Like) exprNode()              {}
func (*InList) exprNode()            {}
func (*SortExpr) exprNode()          {}
func (*AggregateFunction) exprNode() {}
func (*Wildcard) exprNode()          {}
func (*ScalarFunction) exprNode()    {}
func (*GroupingSet) exprNode()       {}
func (*Cast) exprNode()              {}

// ColumnFromName builds a column reference out of "name" or "qualifier.name".
// Only a plain identifier in front of the first dot is taken as qualifier, so
// names of computed columns such as "approx_percentile_cont(a, 0.5)" stay
// unqualified
func ColumnFromName(name string) *Column {
	pos := strings.IndexByte(name, '.')
	if pos <= 0 || pos == len(name)-1 || !isIdent(name[:pos]) {
		return &Column{Name: name}
	}
	return &Column{Qualifier: name[:pos], Name: name[pos+1:]}
}

func isIdent(s string) bool {
	for idx, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && idx > 0:
		default:
			return false
		}
	}
	return len(s) > 0
}

/* ----------------------------------------------------------------------------
 * Display form
 * ---------------------------------------------------------------------------*/

func (self *Column) String() string {
	return qualifiedName(self.Qualifier, self.Name)
}

func (self *Literal) String() string {
	switch x := self.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	default:
		return FormatValue(x)
	}
}

func (self *Alias) String() string {
	return self.Expr.String() + " AS " + self.Name
}

// nested binary operands are parenthesized so the display form is unambiguous
func operandString(e Expr) string {
	switch e.(type) {
	case *BinaryExpr, *Like, *InList, *Predicate:
		return "(" + e.String() + ")"
	default:
		return e.String()
	}
}

func (self *BinaryExpr) String() string {
	return operandString(self.Left) + " " + self.Op.String() + " " +
		operandString(self.Right)
}

func (self *Not) String() string {
	return "NOT " + operandString(self.Expr)
}

func (self *Negative) String() string {
	return "(- " + self.Expr.String() + ")"
}

func (self *Predicate) String() string {
	return operandString(self.Expr) + " " + self.Kind.String()
}

func (self *Like) String() string {
	buf := &strings.Builder{}
	buf.WriteString(operandString(self.Expr))
	if self.Negated {
		buf.WriteString(" NOT")
	}
	if self.CaseInsensitive {
		buf.WriteString(" ILIKE ")
	} else {
		buf.WriteString(" LIKE ")
	}
	buf.WriteString(operandString(self.Pattern))
	return buf.String()
}

func exprListString(list []Expr) string {
	parts := make([]string, 0, len(list))
	for _, e := range list {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

func (self *InList) String() string {
	op := " IN ("
	if self.Negated {
		op = " NOT IN ("
	}
	return operandString(self.Expr) + op + exprListString(self.List) + ")"
}

func (self *SortExpr) String() string {
	buf := &strings.Builder{}
	buf.WriteString(self.Expr.String())
	if self.Asc {
		buf.WriteString(" ASC")
	} else {
		buf.WriteString(" DESC")
	}
	if self.NullsFirst {
		buf.WriteString(" NULLS FIRST")
	} else {
		buf.WriteString(" NULLS LAST")
	}
	return buf.String()
}

func (self *AggregateFunction) String() string {
	prefix := ""
	if self.Distinct {
		prefix = "DISTINCT "
	}
	return self.Func + "(" + prefix + exprListString(self.Args) + ")"
}

func (self *Wildcard) String() string {
	return "*"
}

func (self *ScalarFunction) String() string {
	return self.Func + "(" + exprListString(self.Args) + ")"
}

func (self *GroupingSet) String() string {
	switch self.Kind {
	case GroupingCube:
		return "CUBE (" + exprListString(self.Sets[0]) + ")"
	case GroupingRollup:
		return "ROLLUP (" + exprListString(self.Sets[0]) + ")"
	default:
		parts := make([]string, 0, len(self.Sets))
		for _, set := range self.Sets {
			parts = append(parts, "("+exprListString(set)+")")
		}
		return "GROUPING SETS (" + strings.Join(parts, ", ") + ")"
	}
}

func (self *Cast) String() string {
	return "CAST(" + self.Expr.String() + " AS " + self.Type.String() + ")"
}

/* ----------------------------------------------------------------------------
 * Helpers
 * ---------------------------------------------------------------------------*/

// NameOf returns the output column of an expression when it is projected.
// Columns keep their qualifier, everything else is named by its display form
func NameOf(e Expr) (string, string) {
	switch x := e.(type) {
	case *Column:
		return x.Qualifier, x.Name
	case *Alias:
		return "", x.Name
	case *SortExpr:
		return NameOf(x.Expr)
	default:
		return "", e.String()
	}
}

// Unalias strips every alias on top of the expression
func Unalias(e Expr) Expr {
	for {
		a, ok := e.(*Alias)
		if !ok {
			return e
		}
		e = a.Expr
	}
}

// Children returns the direct sub-expressions of e
func Children(e Expr) []Expr {
	switch x := e.(type) {
	case *Alias:
		return []Expr{x.Expr}
	case *BinaryExpr:
		return []Expr{x.Left, x.Right}
	case *Not:
		return []Expr{x.Expr}
	case *Negative:
		return []Expr{x.Expr}
	case *Predicate:
		return []Expr{x.Expr}
	case *Like:
		return []Expr{x.Expr, x.Pattern}
	case *InList:
		out := []Expr{x.Expr}
		return append(out, x.List...)
	case *SortExpr:
		return []Expr{x.Expr}
	case *AggregateFunction:
		return x.Args
	case *ScalarFunction:
		return x.Args
	case *GroupingSet:
		out := []Expr{}
		for _, set := range x.Sets {
			out = append(out, set...)
		}
		return out
	case *Cast:
		return []Expr{x.Expr}
	default:
		return nil
	}
}

func mapList(list []Expr, fn func(Expr) Expr) []Expr {
	out := make([]Expr, 0, len(list))
	for _, e := range list {
		out = append(out, fn(e))
	}
	return out
}

// mapChildren returns a shallow copy of e with every child replaced by fn
func mapChildren(e Expr, fn func(Expr) Expr) Expr {
	switch x := e.(type) {
	case *Alias:
		return &Alias{Expr: fn(x.Expr), Name: x.Name}
	case *BinaryExpr:
		return &BinaryExpr{Left: fn(x.Left), Op: x.Op, Right: fn(x.Right)}
	case *Not:
		return &Not{Expr: fn(x.Expr)}
	case *Negative:
		return &Negative{Expr: fn(x.Expr)}
	case *Predicate:
		return &Predicate{Kind: x.Kind, Expr: fn(x.Expr)}
	case *Like:
		return &Like{
			Negated:         x.Negated,
			CaseInsensitive: x.CaseInsensitive,
			Expr:            fn(x.Expr),
			Pattern:         fn(x.Pattern),
		}
	case *InList:
		return &InList{Expr: fn(x.Expr), List: mapList(x.List, fn), Negated: x.Negated}
	case *SortExpr:
		return &SortExpr{Expr: fn(x.Expr), Asc: x.Asc, NullsFirst: x.NullsFirst}
	case *AggregateFunction:
		return &AggregateFunction{Func: x.Func, Args: mapList(x.Args, fn), Distinct: x.Distinct}
	case *ScalarFunction:
		return &ScalarFunction{Func: x.Func, Args: mapList(x.Args, fn)}
	case *GroupingSet:
		sets := make([][]Expr, 0, len(x.Sets))
		for _, set := range x.Sets {
			sets = append(sets, mapList(set, fn))
		}
		return &GroupingSet{Kind: x.Kind, Sets: sets}
	case *Cast:
		return &Cast{Expr: fn(x.Expr), Type: x.Type}
	default:
		return e
	}
}

// Transform rewrites e top down. When fn returns true the returned node
// replaces the visited one and its children are not visited
func Transform(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if out, ok := fn(e); ok {
		return out
	}
	return mapChildren(e, func(c Expr) Expr {
		return Transform(c, fn)
	})
}

// Visit walks e in pre-order, returning false stops the descent into the
// children of the current node
func Visit(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Visit(c, fn)
	}
}

// Columns collects every column referenced by e, in visiting order
func Columns(e Expr) []*Column {
	out := []*Column{}
	Visit(e, func(x Expr) bool {
		if c, ok := x.(*Column); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

func ContainsAggregate(e Expr) bool {
	found := false
	Visit(e, func(x Expr) bool {
		if _, ok := x.(*AggregateFunction); ok {
			found = true
		}
		return !found
	})
	return found
}

// IsVolatile reports whether e yields a different value on each evaluation
func IsVolatile(e Expr) bool {
	found := false
	Visit(e, func(x Expr) bool {
		if f, ok := x.(*ScalarFunction); ok && f.Func == FuncRandom {
			found = true
		}
		return !found
	})
	return found
}

// SplitConjunction flattens a tree of AND into its conjuncts
func SplitConjunction(e Expr) []Expr {
	if b, ok := e.(*BinaryExpr); ok && b.Op == OpAnd {
		out := SplitConjunction(b.Left)
		return append(out, SplitConjunction(b.Right)...)
	}
	return []Expr{e}
}

// Conjunction folds a list of predicates with AND, nil for an empty list
func Conjunction(list []Expr) Expr {
	var out Expr
	for _, e := range list {
		if out == nil {
			out = e
		} else {
			out = &BinaryExpr{Left: out, Op: OpAnd, Right: e}
		}
	}
	return out
}

// ExpandGroupingSet flattens a grouping set into its distinct member
// expressions and the list of sets, each set being indices into the members
func ExpandGroupingSet(gs *GroupingSet) ([]Expr, [][]int) {
	members := []Expr{}
	index := map[string]int{}
	indexOf := func(e Expr) int {
		key := e.String()
		if idx, ok := index[key]; ok {
			return idx
		}
		members = append(members, e)
		index[key] = len(members) - 1
		return len(members) - 1
	}

	var sets [][]int
	switch gs.Kind {
	case GroupingCube:
		list := gs.Sets[0]
		ids := make([]int, 0, len(list))
		for _, e := range list {
			ids = append(ids, indexOf(e))
		}
		for mask := 0; mask < 1<<len(ids); mask++ {
			set := []int{}
			for bit, id := range ids {
				if mask&(1<<bit) != 0 {
					set = append(set, id)
				}
			}
			sets = append(sets, set)
		}
	case GroupingRollup:
		list := gs.Sets[0]
		ids := make([]int, 0, len(list))
		for _, e := range list {
			ids = append(ids, indexOf(e))
		}
		for total := 0; total <= len(ids); total++ {
			set := make([]int, total)
			copy(set, ids[:total])
			sets = append(sets, set)
		}
	default:
		for _, list := range gs.Sets {
			set := []int{}
			for _, e := range list {
				set = append(set, indexOf(e))
			}
			sets = append(sets, set)
		}
	}
	return members, sets
}
