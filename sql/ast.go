package sql

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	ConstNull = iota
	ConstBool
	ConstStr
	ConstInt
	ConstReal
)

const (
	ExprConst = iota
	ExprRef
	ExprStar
	ExprCall
	ExprUnary
	ExprBinary
	ExprIn
	ExprIs
	ExprLike
	ExprCast
)

const (
	SelectVarCol = iota
	SelectVarStar
)

const (
	IsNull = iota
	IsTrue
	IsFalse
	IsUnknown
)

const (
	JoinInner = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

const (
	StmtQuery = iota
	StmtCreateView
	StmtCreateTable
	StmtCreateExternalTable
	StmtDrop
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------

type Stmt interface {
	StmtType() int
	CInfo() CodeInfo
}

type SelectVar interface {
	Type() int
	CInfo() CodeInfo

	// If the field has an aliased, via as keyword, then it returns otherwise
	// returns an empty string
	Alias() string
}

type Col struct {
	CodeInfo CodeInfo
	As       string
	Value    Expr
}

// Star is either * or t.*
type Star struct {
	CodeInfo CodeInfo
	Table    string
}

func (self *Col) Type() int       { return SelectVarCol }
func (self *Col) CInfo() CodeInfo { return self.CodeInfo }
func (self *Col) Alias() string   { return self.As }

func (self *Star) Type() int       { return SelectVarStar }
func (self *Star) CInfo() CodeInfo { return self.CodeInfo }
func (self *Star) Alias() string   { return "" }

type SelectVarList []SelectVar

type Projection struct {
	CodeInfo  CodeInfo
	ValueList SelectVarList
}

func (self *SelectVarList) HasStar() bool {
	for _, y := range *self {
		if y.Type() == SelectVarStar {
			return true
		}
	}
	return false
}

func (self *Projection) HasStar() bool {
	return self.ValueList.HasStar()
}

// A table reference, either a registered name, a quoted file path or a
// parenthesized subquery
type TableRef struct {
	CodeInfo CodeInfo
	Name     string
	Path     bool
	Subquery *Query
	Alias    string
}

type JoinClause struct {
	CodeInfo CodeInfo
	Kind     int
	Table    *TableRef
	On       Expr
}

// One comma separated entry of the from clause, with its join chain
type FromVar struct {
	Table *TableRef
	Join  []*JoinClause
}

type From struct {
	CodeInfo CodeInfo
	VarList  []*FromVar
}

// Where clause, just a list of expressions
type Where struct {
	CodeInfo  CodeInfo
	Condition Expr
}

type Having Where

type GroupBy struct {
	CodeInfo CodeInfo
	Name     []Expr
}

type OrderItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst bool
	HasNulls   bool // whether NULLS FIRST/LAST is written explicitly
}

type OrderBy struct {
	CodeInfo CodeInfo
	Items    []*OrderItem
}

type Limit struct {
	CodeInfo CodeInfo
	Limit    int64 // -1 means no limit
	Offset   int64
}

type Select struct {
	CodeInfo CodeInfo
	Distinct bool // whether a distinct selection, ie dedup

	Projection *Projection // projection
	From       *From       // from clause
	Where      *Where      // where clause
	GroupBy    *GroupBy    // group by
	Having     *Having     // having
}

// Set operation between two query bodies, ie UNION and UNION ALL
type SetOp struct {
	All bool
	L   SetExpr
	R   SetExpr
}

// SetExpr is either *Select or *SetOp
type SetExpr interface {
	isSetExpr()
}

func (self *Select) isSetExpr() {}
func (self *SetOp) isSetExpr()  {}

type Query struct {
	CodeInfo CodeInfo
	Body     SetExpr
	OrderBy  *OrderBy
	Limit    *Limit
}

type CreateView struct {
	CodeInfo  CodeInfo
	Name      string
	OrReplace bool
	Query     *Query
}

type CreateTable struct {
	CodeInfo    CodeInfo
	Name        string
	OrReplace   bool
	IfNotExists bool
	Query       *Query
}

type CreateExternalTable struct {
	CodeInfo    CodeInfo
	Name        string
	IfNotExists bool
	Format      string
	Location    string
	HasHeader   bool
	Delimiter   string
}

type Drop struct {
	CodeInfo CodeInfo
	View     bool
	Name     string
	IfExists bool
}

func (self *Query) StmtType() int               { return StmtQuery }
func (self *Query) CInfo() CodeInfo             { return self.CodeInfo }
func (self *CreateView) StmtType() int          { return StmtCreateView }
func (self *CreateView) CInfo() CodeInfo        { return self.CodeInfo }
func (self *CreateTable) StmtType() int         { return StmtCreateTable }
func (self *CreateTable) CInfo() CodeInfo       { return self.CodeInfo }
func (self *CreateExternalTable) StmtType() int { return StmtCreateExternalTable }
func (self *CreateExternalTable) CInfo() CodeInfo {
	return self.CodeInfo
}
func (self *Drop) StmtType() int   { return StmtDrop }
func (self *Drop) CInfo() CodeInfo { return self.CodeInfo }

type Code struct {
	CodeInfo CodeInfo
	Stmt     Stmt
}

/** -------------------------------------------------------------------------
 ** Expression
 ** -----------------------------------------------------------------------*/
type Const struct {
	Ty       int
	Bool     bool
	String   string
	Real     float64
	Int      int64
	CodeInfo CodeInfo
}

// Column reference, optionally qualified by table name or alias
type Ref struct {
	Table    string
	Id       string
	CodeInfo CodeInfo
}

// only valid as the argument of count
type StarArg struct {
	CodeInfo CodeInfo
}

type Call struct {
	Name       string
	Distinct   bool
	Parameters []Expr
	CodeInfo   CodeInfo
}

type Unary struct {
	Op       []int
	Operand  Expr
	CodeInfo CodeInfo
}

type Binary struct {
	Op       int
	L        Expr
	R        Expr
	CodeInfo CodeInfo
}

type In struct {
	Operand  Expr
	List     []Expr
	Negated  bool
	CodeInfo CodeInfo
}

type Is struct {
	Operand  Expr
	What     int
	Negated  bool
	CodeInfo CodeInfo
}

type Like struct {
	Operand         Expr
	Pattern         Expr
	Negated         bool
	CaseInsensitive bool
	CodeInfo        CodeInfo
}

type Cast struct {
	Operand  Expr
	TypeName string
	CodeInfo CodeInfo
}

type Expr interface {
	Type() int
	CInfo() CodeInfo
}

func (self *Const) Type() int       { return ExprConst }
func (self *Const) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ref) Type() int       { return ExprRef }
func (self *Ref) CInfo() CodeInfo { return self.CodeInfo }

func (self *StarArg) Type() int       { return ExprStar }
func (self *StarArg) CInfo() CodeInfo { return self.CodeInfo }

func (self *Call) Type() int       { return ExprCall }
func (self *Call) CInfo() CodeInfo { return self.CodeInfo }

func (self *Unary) Type() int       { return ExprUnary }
func (self *Unary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Binary) Type() int       { return ExprBinary }
func (self *Binary) CInfo() CodeInfo { return self.CodeInfo }

func (self *In) Type() int       { return ExprIn }
func (self *In) CInfo() CodeInfo { return self.CodeInfo }

func (self *Is) Type() int       { return ExprIs }
func (self *Is) CInfo() CodeInfo { return self.CodeInfo }

func (self *Like) Type() int       { return ExprLike }
func (self *Like) CInfo() CodeInfo { return self.CodeInfo }

func (self *Cast) Type() int       { return ExprCast }
func (self *Cast) CInfo() CodeInfo { return self.CodeInfo }

/* ----------------------------------------------------------------------------
 * Visitor
 * ---------------------------------------------------------------------------*/

// VisitExpr walks the tree in pre-order, returning false from the callback
// stops descending into the children of that node
func VisitExpr(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch expr.Type() {
	case ExprCall:
		for _, x := range expr.(*Call).Parameters {
			VisitExpr(x, fn)
		}
	case ExprUnary:
		VisitExpr(expr.(*Unary).Operand, fn)
	case ExprBinary:
		b := expr.(*Binary)
		VisitExpr(b.L, fn)
		VisitExpr(b.R, fn)
	case ExprIn:
		in := expr.(*In)
		VisitExpr(in.Operand, fn)
		for _, x := range in.List {
			VisitExpr(x, fn)
		}
	case ExprIs:
		VisitExpr(expr.(*Is).Operand, fn)
	case ExprLike:
		l := expr.(*Like)
		VisitExpr(l.Operand, fn)
		VisitExpr(l.Pattern, fn)
	case ExprCast:
		VisitExpr(expr.(*Cast).Operand, fn)
	default:
		break
	}
}

/* ----------------------------------------------------------------------------
 * Printing
 * ---------------------------------------------------------------------------*/

func tokenText(tk int) string {
	switch tk {
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "="
	case TkNe:
		return "!="
	case TkAnd:
		return "and"
	case TkOr:
		return "or"
	case TkNot:
		return "not "
	case TkConcat:
		return "||"
	case TkBitAnd:
		return "&"
	case TkBitOr:
		return "|"
	case TkShl:
		return "<<"
	case TkShr:
		return ">>"
	case TkMatch:
		return "~"
	case TkIMatch:
		return "~*"
	case TkNotMatch:
		return "!~"
	case TkNotIMatch:
		return "!~*"
	case TkIsDistinct:
		return "is distinct from"
	case TkIsNotDistinct:
		return "is not distinct from"
	default:
		panic("unreachable")
	}
}

func doPrintExprConst(c *Const, buf *bytes.Buffer) {
	switch c.Ty {
	case ConstBool:
		buf.WriteString(fmt.Sprintf("%t", c.Bool))
	case ConstStr:
		buf.WriteString("'")
		buf.WriteString(strings.ReplaceAll(c.String, "'", "''"))
		buf.WriteString("'")
	case ConstInt:
		buf.WriteString(fmt.Sprintf("%d", c.Int))
	case ConstReal:
		buf.WriteString(fmt.Sprintf("%f", c.Real))
	case ConstNull:
		buf.WriteString("null")
	default:
		panic("unreachable")
	}
}

func doPrintExprList(list []Expr, buf *bytes.Buffer) {
	for idx, x := range list {
		if idx > 0 {
			buf.WriteString(", ")
		}
		doPrintExpr(x, buf)
	}
}

func doPrintExpr(expr Expr, buf *bytes.Buffer) {
	switch expr.Type() {
	case ExprConst:
		doPrintExprConst(expr.(*Const), buf)

	case ExprRef:
		r := expr.(*Ref)
		if r.Table != "" {
			buf.WriteString(r.Table)
			buf.WriteString(".")
		}
		buf.WriteString(r.Id)

	case ExprStar:
		buf.WriteString("*")

	case ExprCall:
		c := expr.(*Call)
		buf.WriteString(c.Name)
		buf.WriteString("(")
		if c.Distinct {
			buf.WriteString("distinct ")
		}
		doPrintExprList(c.Parameters, buf)
		buf.WriteString(")")

	case ExprUnary:
		u := expr.(*Unary)
		for _, o := range u.Op {
			buf.WriteString(tokenText(o))
		}
		doPrintExpr(u.Operand, buf)

	case ExprBinary:
		b := expr.(*Binary)
		buf.WriteString("(")
		doPrintExpr(b.L, buf)
		buf.WriteString(" ")
		buf.WriteString(tokenText(b.Op))
		buf.WriteString(" ")
		doPrintExpr(b.R, buf)
		buf.WriteString(")")

	case ExprIn:
		in := expr.(*In)
		doPrintExpr(in.Operand, buf)
		if in.Negated {
			buf.WriteString(" not in (")
		} else {
			buf.WriteString(" in (")
		}
		doPrintExprList(in.List, buf)
		buf.WriteString(")")

	case ExprIs:
		is := expr.(*Is)
		doPrintExpr(is.Operand, buf)
		buf.WriteString(" is ")
		if is.Negated {
			buf.WriteString("not ")
		}
		switch is.What {
		case IsNull:
			buf.WriteString("null")
		case IsTrue:
			buf.WriteString("true")
		case IsFalse:
			buf.WriteString("false")
		default:
			buf.WriteString("unknown")
		}

	case ExprLike:
		l := expr.(*Like)
		doPrintExpr(l.Operand, buf)
		if l.Negated {
			buf.WriteString(" not")
		}
		if l.CaseInsensitive {
			buf.WriteString(" ilike ")
		} else {
			buf.WriteString(" like ")
		}
		doPrintExpr(l.Pattern, buf)

	case ExprCast:
		c := expr.(*Cast)
		buf.WriteString("cast(")
		doPrintExpr(c.Operand, buf)
		buf.WriteString(" as ")
		buf.WriteString(c.TypeName)
		buf.WriteString(")")

	default:
		panic("unreachable")
	}
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------
func doPrintStmtProjection(projection *Projection, buf *bytes.Buffer) {
	for idx, x := range projection.ValueList {
		if idx > 0 {
			buf.WriteString(", ")
		}
		switch x.Type() {
		case SelectVarCol:
			col := x.(*Col)
			doPrintExpr(col.Value, buf)
			if col.As != "" {
				buf.WriteString(" as ")
				buf.WriteString(col.As)
			}

		default:
			star := x.(*Star)
			if star.Table != "" {
				buf.WriteString(star.Table)
				buf.WriteString(".")
			}
			buf.WriteString("*")
		}
	}
}

func doPrintTableRef(t *TableRef, buf *bytes.Buffer) {
	switch {
	case t.Subquery != nil:
		buf.WriteString("(")
		doPrintQuery(t.Subquery, buf)
		buf.WriteString(")")
	case t.Path:
		buf.WriteString(fmt.Sprintf("'%s'", t.Name))
	default:
		buf.WriteString(t.Name)
	}
	if t.Alias != "" {
		buf.WriteString(" as ")
		buf.WriteString(t.Alias)
	}
}

func joinKindText(kind int) string {
	switch kind {
	case JoinLeft:
		return "left join"
	case JoinRight:
		return "right join"
	case JoinFull:
		return "full join"
	case JoinCross:
		return "cross join"
	default:
		return "join"
	}
}

func doPrintStmtFrom(from *From, buf *bytes.Buffer) {
	buf.WriteString("\nfrom ")

	for idx, x := range from.VarList {
		if idx > 0 {
			buf.WriteString(", ")
		}
		doPrintTableRef(x.Table, buf)
		for _, j := range x.Join {
			buf.WriteString(" ")
			buf.WriteString(joinKindText(j.Kind))
			buf.WriteString(" ")
			doPrintTableRef(j.Table, buf)
			if j.On != nil {
				buf.WriteString(" on ")
				doPrintExpr(j.On, buf)
			}
		}
	}
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	if s.Distinct {
		buf.WriteString("select distinct\n")
	} else {
		buf.WriteString("select\n")
	}

	doPrintStmtProjection(s.Projection, buf)
	if s.From != nil {
		doPrintStmtFrom(s.From, buf)
	}

	if s.Where != nil {
		buf.WriteString("\nwhere ")
		doPrintExpr(s.Where.Condition, buf)
	}
	if s.GroupBy != nil {
		buf.WriteString("\ngroup by ")
		doPrintExprList(s.GroupBy.Name, buf)
	}
	if s.Having != nil {
		buf.WriteString("\nhaving ")
		doPrintExpr(s.Having.Condition, buf)
	}
}

func doPrintSetExpr(e SetExpr, buf *bytes.Buffer) {
	switch v := e.(type) {
	case *Select:
		doPrintSelect(v, buf)
	case *SetOp:
		doPrintSetExpr(v.L, buf)
		if v.All {
			buf.WriteString("\nunion all\n")
		} else {
			buf.WriteString("\nunion\n")
		}
		doPrintSetExpr(v.R, buf)
	}
}

func doPrintQuery(q *Query, buf *bytes.Buffer) {
	doPrintSetExpr(q.Body, buf)

	if q.OrderBy != nil {
		buf.WriteString("\norder by ")
		for idx, x := range q.OrderBy.Items {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintExpr(x.Expr, buf)
			if x.Desc {
				buf.WriteString(" desc")
			} else {
				buf.WriteString(" asc")
			}
			if x.HasNulls {
				if x.NullsFirst {
					buf.WriteString(" nulls first")
				} else {
					buf.WriteString(" nulls last")
				}
			}
		}
	}
	if q.Limit != nil {
		if q.Limit.Limit >= 0 {
			buf.WriteString(fmt.Sprintf("\nlimit %d", q.Limit.Limit))
		}
		if q.Limit.Offset > 0 {
			buf.WriteString(fmt.Sprintf("\noffset %d", q.Limit.Offset))
		}
	}
}

func PrintExpr(expr Expr) string {
	if expr == nil {
		return ""
	}
	b := &bytes.Buffer{}
	doPrintExpr(expr, b)
	return b.String()
}

func PrintSelect(s *Select) string {
	b := &bytes.Buffer{}
	doPrintSelect(s, b)
	return b.String()
}

func PrintQuery(q *Query) string {
	b := &bytes.Buffer{}
	doPrintQuery(q, b)
	return b.String()
}

func PrintCode(c *Code) string {
	b := &bytes.Buffer{}
	switch s := c.Stmt.(type) {
	case *Query:
		doPrintQuery(s, b)
	case *CreateView:
		b.WriteString("create ")
		if s.OrReplace {
			b.WriteString("or replace ")
		}
		b.WriteString("view ")
		b.WriteString(s.Name)
		b.WriteString(" as\n")
		doPrintQuery(s.Query, b)
	case *CreateTable:
		b.WriteString("create ")
		if s.OrReplace {
			b.WriteString("or replace ")
		}
		b.WriteString("table ")
		if s.IfNotExists {
			b.WriteString("if not exists ")
		}
		b.WriteString(s.Name)
		b.WriteString(" as\n")
		doPrintQuery(s.Query, b)
	case *CreateExternalTable:
		b.WriteString("create external table ")
		if s.IfNotExists {
			b.WriteString("if not exists ")
		}
		b.WriteString(s.Name)
		b.WriteString(" stored as ")
		b.WriteString(s.Format)
		if s.HasHeader {
			b.WriteString(" with header row")
		}
		if s.Delimiter != "" {
			b.WriteString(fmt.Sprintf(" delimiter '%s'", s.Delimiter))
		}
		b.WriteString(fmt.Sprintf(" location '%s'", s.Location))
	case *Drop:
		b.WriteString("drop ")
		if s.View {
			b.WriteString("view ")
		} else {
			b.WriteString("table ")
		}
		if s.IfExists {
			b.WriteString("if exists ")
		}
		b.WriteString(s.Name)
	}
	return b.String()
}
