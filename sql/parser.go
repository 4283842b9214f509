package sql

// parser of the sql, which is tailered for our own usage. We briefly describe
// the grammar of sql as following EBNF
//
// ### statement -------------------------------------------------------------
//
// code := (query | create | drop) ';'?
//
// query := set-expr order-by? limit?
// set-expr := select (UNION ALL? select)*
// select :=
//     SELECT DISTINCT? projection
//     from?
//     where?
//     group-by?
//     having?
//
// projection := project-var (',' project-var)*
// project-var := '*' | ID '.' '*' | expr as?
// as := AS? ID
//
// from := FROM from-var (',' from-var)*
// from-var := table-ref join*
// join := (INNER | LEFT OUTER? | RIGHT OUTER? | FULL OUTER?)? JOIN table-ref ON expr |
//         CROSS JOIN table-ref
// table-ref := (ID | STR | '(' query ')') as?
//
// where := WHERE expr
// group-by := GROUPBY expr-list
// having := HAVING expr
// order-by := ORDERBY order-item (',' order-item)*
// order-item := expr (ASC | DESC)? (NULLS (FIRST | LAST))?
// limit := LIMIT INT (OFFSET INT)? | OFFSET INT (LIMIT INT)?
//
// create := CREATE (OR REPLACE)? VIEW ID AS query |
//           CREATE (OR REPLACE)? TABLE (IF NOT EXISTS)? ID AS query |
//           CREATE EXTERNAL TABLE (IF NOT EXISTS)? ID external-option*
// external-option := STORED AS ID | WITH HEADER ROW | DELIMITER STR | LOCATION STR
// drop := DROP (TABLE | VIEW) (IF EXISTS)? ID
//
// ### expression -------------------------------------------------------------
// expr := binary
//
// binary := unary (binary-op binary)*  -- precedence climbing
// binary-op := OR | AND | IS | IN | BETWEEN | LIKE | ILIKE | '=' | ...
// NOT prefix binds looser than comparison
//
// unary := ('+' | '-')* primary
// primary := const | ID | ID '.' ID | call | CAST '(' expr AS ID ')' | '(' expr ')'
// call := ID '(' DISTINCT? ('*' | expr-list)? ')'
//
// const := INT | REAL | TRUE | FALSE | NULL | STR
//
// ----------------------------------------------------------------------------

import (
	"fmt"
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse a single statement
func Parse(xx string) (*Code, error) {
	return newParser(xx).Parse()
}

func (self *Parser) posStart() int {
	return self.L.Cursor
}

func (self *Parser) posEnd() int {
	return self.L.Cursor
}

func (self *Parser) snippet(start, end int) string {
	if start >= end {
		start = end
	}
	return self.L.Source[start:end]
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return fmt.Errorf("%s", self.L.Lexeme.Text)
	} else {
		return fmt.Errorf("%s: %s", self.L.dinfo(), msg)
	}
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	} else {
		return self.err("unexpected token during grammar parsing")
	}
}

// contextual keyword, lexed as an identifier
func (self *Parser) isWord(w string) bool {
	return self.L.Token == TkId && self.L.lowerText() == w
}

func (self *Parser) expectWord(w string) error {
	if !self.isWord(w) {
		return self.err(fmt.Sprintf("expect *%s*", w))
	}
	self.L.Next()
	return nil
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	return CodeInfo{
		Start:   start,
		End:     self.posEnd(),
		Snippet: self.snippet(start, self.posEnd()),
	}
}

func (self *Parser) Parse() (*Code, error) {
	c := &Code{}
	start := self.posStart()

	self.L.Next()
	switch self.L.Token {
	case TkSelect:
		if n, err := self.parseQuery(); err != nil {
			return nil, err
		} else {
			c.Stmt = n
		}
	case TkCreate:
		if n, err := self.parseCreate(); err != nil {
			return nil, err
		} else {
			c.Stmt = n
		}
	case TkDrop:
		if n, err := self.parseDrop(); err != nil {
			return nil, err
		} else {
			c.Stmt = n
		}
	default:
		return nil, self.err("unknown statement, expect *select*, *create* or *drop*")
	}

	c.CodeInfo = self.currentCodeInfo(start)

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after parser thinks the statement is finished")
	}
	return c, nil
}

func (self *Parser) parseQuery() (*Query, error) {
	start := self.posStart()
	q := &Query{}

	if body, err := self.parseSetExpr(); err != nil {
		return nil, err
	} else {
		q.Body = body
	}

	if self.L.Token == TkOrderBy {
		if n, err := self.parseOrderBy(); err != nil {
			return nil, err
		} else {
			q.OrderBy = n
		}
	}

	if self.L.Token == TkLimit || self.L.Token == TkOffset {
		if n, err := self.parseLimit(); err != nil {
			return nil, err
		} else {
			q.Limit = n
		}
	}

	q.CodeInfo = self.currentCodeInfo(start)
	return q, nil
}

func (self *Parser) parseSetExpr() (SetExpr, error) {
	if self.L.Token != TkSelect {
		return nil, self.err("expect *select*")
	}

	var lhs SetExpr
	if n, err := self.parseSelect(); err != nil {
		return nil, err
	} else {
		lhs = n
	}

	for self.L.Token == TkUnion {
		all := false
		if self.L.Next() == TkAll {
			all = true
			self.L.Next()
		} else if self.L.Token == TkDistinct {
			self.L.Next()
		}
		if self.L.Token != TkSelect {
			return nil, self.err("expect *select* after *union*")
		}
		rhs, err := self.parseSelect()
		if err != nil {
			return nil, err
		}
		lhs = &SetOp{
			All: all,
			L:   lhs,
			R:   rhs,
		}
	}
	return lhs, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	start := self.posStart()
	self.L.Next() // skip the *select* keyword

	var projection *Projection
	var from *From
	var where *Where
	var groupBy *GroupBy
	var having *Having

	distinct := false

	if self.L.Token == TkDistinct {
		distinct = true
		self.L.Next()
	} else if self.L.Token == TkAll {
		self.L.Next()
	}

	// projection
	if n, err := self.parseProjection(); err != nil {
		return nil, err
	} else {
		projection = n
	}

LOOP:
	for {
		switch self.L.Token {
		case TkFrom:
			if from != nil {
				return nil, self.err("from cluase has already been specified")
			}

			if n, err := self.parseFrom(); err != nil {
				return nil, err
			} else {
				from = n
			}

		case TkWhere:
			if where != nil {
				return nil, self.err("where clause has already been specified")
			}
			if n, err := self.parseWhere(); err != nil {
				return nil, err
			} else {
				where = n
			}

		case TkGroupBy:
			if groupBy != nil {
				return nil, self.err("group by clause has already been specified")
			}
			if n, err := self.parseGroupBy(); err != nil {
				return nil, err
			} else {
				groupBy = n
			}

		case TkHaving:
			if having != nil {
				return nil, self.err("having clause has already been specified")
			}
			if n, err := self.parseHaving(); err != nil {
				return nil, err
			} else {
				having = n
			}

		default:
			break LOOP
		}
	}

	return &Select{
		CodeInfo:   self.currentCodeInfo(start),
		Distinct:   distinct,
		Projection: projection,
		From:       from,
		Where:      where,
		GroupBy:    groupBy,
		Having:     having,
	}, nil
}

// optional alias, with or without *as*
func (self *Parser) parseAlias() (string, error) {
	if self.L.Token == TkAs {
		if self.L.Next() != TkId {
			return "", self.err("expect an alias identifier after *as*")
		}
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias, nil
	}
	if self.L.Token == TkId && !self.isReservedWord() {
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias, nil
	}
	return "", nil
}

// words which are lexed as identifiers but terminate an implicit alias
func (self *Parser) isReservedWord() bool {
	switch self.L.lowerText() {
	case "asc", "desc", "nulls", "outer":
		return true
	default:
		return false
	}
}

func (self *Parser) parseProjectionVar() (SelectVar, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkMul: // star
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	case TkId:
		// t.* needs 2 tokens of look ahead, the lexer is a plain value so just
		// snapshot and restore it
		saved := *self.L
		table := self.L.Lexeme.Text
		if self.L.Next() == TkDot && self.L.Next() == TkMul {
			self.L.Next()
			return &Star{
				CodeInfo: self.currentCodeInfo(start),
				Table:    table,
			}, nil
		}
		*self.L = saved
	}

	val, err := self.parseExpr()
	if err != nil {
		return nil, err
	}

	alias, err := self.parseAlias()
	if err != nil {
		return nil, err
	}

	return &Col{
		CodeInfo: self.currentCodeInfo(start),
		As:       alias,
		Value:    val,
	}, nil
}

// SQLLIST, which is a name I coin to represent grammar like following :
// element (',' element)*, the difference between the normal one is that the
// list will never be empty.  This sort of list is kind of stupid, since we need
// to at least expect one from the vars, and afterwards, we expect another one
// *after* a ',' here.  this is same for *projection*, *from*, *order by*

func (self *Parser) parseSqlList(
	visitor func(int) error,
) error {
	if err := visitor(0); err != nil {
		return err
	}
	idx := 1

	for {
		if self.L.Token != TkComma {
			break
		}
		self.L.Next()
		if err := visitor(idx); err != nil {
			return err
		}
		idx++
	}

	return nil
}

func (self *Parser) parseProjection() (*Projection, error) {
	x := SelectVarList{}
	start := self.posStart()

	if err := self.parseSqlList(
		func(idx int) error {
			if n, err := self.parseProjectionVar(); err != nil {
				return err
			} else {
				x = append(x, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	return &Projection{
		CodeInfo:  self.currentCodeInfo(start),
		ValueList: x,
	}, nil
}

func (self *Parser) parseTableRef() (*TableRef, error) {
	start := self.posStart()
	ref := &TableRef{}

	switch self.L.Token {
	case TkId:
		ref.Name = self.L.Lexeme.Text
		self.L.Next()

	case TkStr:
		ref.Name = self.L.Lexeme.Text
		ref.Path = true
		self.L.Next()

	case TkLPar:
		self.L.Next()
		q, err := self.parseQuery()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		ref.Subquery = q

	default:
		return nil, self.err("expect a table name, a quoted path or a subquery")
	}

	alias, err := self.parseAlias()
	if err != nil {
		return nil, err
	}
	ref.Alias = alias

	if ref.Subquery != nil && ref.Alias == "" {
		return nil, self.err("subquery in from clause must have an alias")
	}

	ref.CodeInfo = self.currentCodeInfo(start)
	return ref, nil
}

// returns -1 when current token does not start a join clause
func (self *Parser) parseJoinKind() (int, error) {
	kind := -1

	switch self.L.Token {
	case TkJoin:
		return JoinInner, nil
	case TkInner:
		kind = JoinInner
	case TkCross:
		kind = JoinCross
	case TkLeft:
		kind = JoinLeft
	case TkRight:
		kind = JoinRight
	case TkFull:
		kind = JoinFull
	default:
		return -1, nil
	}

	self.L.Next()
	if kind != JoinInner && kind != JoinCross && self.isWord("outer") {
		self.L.Next()
	}
	if self.L.Token != TkJoin {
		return -1, self.err("expect *join*")
	}
	return kind, nil
}

func (self *Parser) parseFromVar() (*FromVar, error) {
	fromVar := &FromVar{}

	if n, err := self.parseTableRef(); err != nil {
		return nil, err
	} else {
		fromVar.Table = n
	}

	for {
		start := self.posStart()
		kind, err := self.parseJoinKind()
		if err != nil {
			return nil, err
		}
		if kind < 0 {
			break
		}
		self.L.Next() // eat *join*

		clause := &JoinClause{
			Kind: kind,
		}
		if n, err := self.parseTableRef(); err != nil {
			return nil, err
		} else {
			clause.Table = n
		}

		if kind != JoinCross {
			if self.L.Token != TkOn {
				return nil, self.err("expect *on* for join condition")
			}
			self.L.Next()
			if n, err := self.parseExpr(); err != nil {
				return nil, err
			} else {
				clause.On = n
			}
		}

		clause.CodeInfo = self.currentCodeInfo(start)
		fromVar.Join = append(fromVar.Join, clause)
	}

	return fromVar, nil
}

func (self *Parser) parseFrom() (*From, error) {
	from := &From{}
	start := self.posStart()

	self.L.Next() // eat the *from*

	if err := self.parseSqlList(
		func(idx int) error {
			if n, err := self.parseFromVar(); err != nil {
				return err
			} else {
				from.VarList = append(from.VarList, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	from.CodeInfo = self.currentCodeInfo(start)
	return from, nil
}

func (self *Parser) parseWhere() (*Where, error) {
	start := self.posStart()

	self.L.Next()
	if n, err := self.parseExpr(); err != nil {
		return nil, err
	} else {
		return &Where{
			CodeInfo:  self.currentCodeInfo(start),
			Condition: n,
		}, nil
	}
}

func (self *Parser) parseGroupBy() (*GroupBy, error) {
	gb := &GroupBy{}
	start := self.posStart()

	self.L.Next() // eat group by

	if err := self.parseSqlList(
		func(idx int) error {
			if c, err := self.parseExpr(); err != nil {
				return err
			} else {
				gb.Name = append(gb.Name, c)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	gb.CodeInfo = self.currentCodeInfo(start)
	return gb, nil
}

func (self *Parser) parseHaving() (*Having, error) {
	if x, err := self.parseWhere(); err != nil {
		return nil, err
	} else {
		return (*Having)(x), nil
	}
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	oB := &OrderBy{}
	start := self.posStart()
	self.L.Next() // eat order by

	if err := self.parseSqlList(
		func(idx int) error {
			item := &OrderItem{}
			if c, err := self.parseExpr(); err != nil {
				return err
			} else {
				item.Expr = c
			}

			if self.isWord("asc") {
				self.L.Next()
			} else if self.isWord("desc") {
				item.Desc = true
				self.L.Next()
			}

			// null goes last for ascending order and first for descending order
			// unless specified
			item.NullsFirst = item.Desc
			if self.isWord("nulls") {
				self.L.Next()
				switch {
				case self.isWord("first"):
					item.NullsFirst = true
				case self.isWord("last"):
					item.NullsFirst = false
				default:
					return self.err("expect *first* or *last* after *nulls*")
				}
				item.HasNulls = true
				self.L.Next()
			}

			oB.Items = append(oB.Items, item)
			return nil
		},
	); err != nil {
		return nil, err
	}

	oB.CodeInfo = self.currentCodeInfo(start)
	return oB, nil
}

func (self *Parser) parseLimit() (*Limit, error) {
	start := self.posStart()
	limit := &Limit{
		Limit: -1,
	}
	seenLimit := false
	seenOffset := false

	for {
		switch self.L.Token {
		case TkLimit:
			if seenLimit {
				return nil, self.err("limit caluse has already been specified")
			}
			if self.L.Next() != TkInt {
				return nil, self.err("expect a integer after limit")
			}
			limit.Limit = self.L.Lexeme.Int
			seenLimit = true
			self.L.Next()
			continue

		case TkOffset:
			if seenOffset {
				return nil, self.err("offset caluse has already been specified")
			}
			if self.L.Next() != TkInt {
				return nil, self.err("expect a integer after offset")
			}
			limit.Offset = self.L.Lexeme.Int
			seenOffset = true
			self.L.Next()
			continue
		}
		break
	}

	limit.CodeInfo = self.currentCodeInfo(start)
	return limit, nil
}

func (self *Parser) parseIfNotExists() (bool, error) {
	if !self.isWord("if") {
		return false, nil
	}
	if self.L.Next() != TkNot {
		return false, self.err("expect *not* after *if*")
	}
	self.L.Next()
	if err := self.expectWord("exists"); err != nil {
		return false, err
	}
	return true, nil
}

func (self *Parser) parseCreate() (Stmt, error) {
	start := self.posStart()
	self.L.Next() // eat create

	orReplace := false
	if self.L.Token == TkOr {
		self.L.Next()
		if err := self.expectWord("replace"); err != nil {
			return nil, err
		}
		orReplace = true
	}

	switch {
	case self.isWord("view"):
		self.L.Next()
		if self.L.Token != TkId {
			return nil, self.err("expect a view name")
		}
		name := self.L.Lexeme.Text
		if self.L.Next() != TkAs {
			return nil, self.err("expect *as* after view name")
		}
		self.L.Next()
		q, err := self.parseQuery()
		if err != nil {
			return nil, err
		}
		return &CreateView{
			CodeInfo:  self.currentCodeInfo(start),
			Name:      name,
			OrReplace: orReplace,
			Query:     q,
		}, nil

	case self.isWord("table"):
		self.L.Next()
		ifNotExists, err := self.parseIfNotExists()
		if err != nil {
			return nil, err
		}
		if self.L.Token != TkId {
			return nil, self.err("expect a table name")
		}
		name := self.L.Lexeme.Text
		if self.L.Next() != TkAs {
			return nil, self.err("expect *as* after table name, only CREATE TABLE AS SELECT is supported")
		}
		self.L.Next()
		q, err := self.parseQuery()
		if err != nil {
			return nil, err
		}
		return &CreateTable{
			CodeInfo:    self.currentCodeInfo(start),
			Name:        name,
			OrReplace:   orReplace,
			IfNotExists: ifNotExists,
			Query:       q,
		}, nil

	case self.isWord("external"):
		if orReplace {
			return nil, self.err("*or replace* is not supported for external table")
		}
		self.L.Next()
		if err := self.expectWord("table"); err != nil {
			return nil, err
		}
		return self.parseCreateExternalTable(start)

	default:
		return nil, self.err("expect *view*, *table* or *external table* after *create*")
	}
}

func (self *Parser) parseCreateExternalTable(start int) (Stmt, error) {
	out := &CreateExternalTable{}

	if ifNotExists, err := self.parseIfNotExists(); err != nil {
		return nil, err
	} else {
		out.IfNotExists = ifNotExists
	}

	if self.L.Token != TkId {
		return nil, self.err("expect a table name")
	}
	out.Name = self.L.Lexeme.Text
	self.L.Next()

	for self.L.Token == TkId {
		switch self.L.lowerText() {
		case "stored":
			if self.L.Next() != TkAs {
				return nil, self.err("expect *as* after *stored*")
			}
			if self.L.Next() != TkId {
				return nil, self.err("expect a file format after *stored as*")
			}
			out.Format = self.L.lowerText()
			self.L.Next()

		case "with":
			self.L.Next()
			if err := self.expectWord("header"); err != nil {
				return nil, err
			}
			if err := self.expectWord("row"); err != nil {
				return nil, err
			}
			out.HasHeader = true

		case "delimiter":
			if self.L.Next() != TkStr {
				return nil, self.err("expect a string after *delimiter*")
			}
			out.Delimiter = self.L.Lexeme.Text
			self.L.Next()

		case "location":
			if self.L.Next() != TkStr {
				return nil, self.err("expect a string after *location*")
			}
			out.Location = self.L.Lexeme.Text
			self.L.Next()

		default:
			return nil, self.err("unknown external table option")
		}
	}

	if out.Format == "" {
		return nil, self.err("external table requires *stored as*")
	}
	if out.Location == "" {
		return nil, self.err("external table requires *location*")
	}

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

func (self *Parser) parseDrop() (Stmt, error) {
	start := self.posStart()
	self.L.Next() // eat drop

	out := &Drop{}
	switch {
	case self.isWord("view"):
		out.View = true
	case self.isWord("table"):
		out.View = false
	default:
		return nil, self.err("expect *table* or *view* after *drop*")
	}
	self.L.Next()

	if self.isWord("if") {
		self.L.Next()
		if err := self.expectWord("exists"); err != nil {
			return nil, err
		}
		out.IfExists = true
	}

	if self.L.Token != TkId {
		return nil, self.err("expect a name to drop")
	}
	out.Name = self.L.Lexeme.Text
	self.L.Next()

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

// ----------------------------------------------------------------------------
// Expression Parsing
// ----------------------------------------------------------------------------

func (self *Parser) parseExpr() (Expr, error) {
	return self.parseBinary()
}

const (
	maxOpPrec     = 7
	notOpPrec     = 2
	invalidOpPrec = -1
)

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkIs, TkIn, TkBetween, TkLike, TkILike, TkNot:
		return 2
	case TkEq, TkNe, TkLt, TkLe, TkGt, TkGe,
		TkMatch, TkIMatch, TkNotMatch, TkNotIMatch:
		return 3
	case TkBitAnd, TkBitOr, TkShl, TkShr:
		return 4
	case TkAdd, TkSub, TkConcat:
		return 5
	case TkMul, TkDiv, TkMod:
		return 6
	default:
		return invalidOpPrec
	}
}

// Binary parsing, precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	if prec == maxOpPrec {
		return self.parseUnary()
	}

	start := self.posStart()

	var l Expr
	if self.L.Token == TkNot && prec <= notOpPrec {
		self.L.Next()
		operand, err := self.doParseBin(notOpPrec)
		if err != nil {
			return nil, err
		}
		l = &Unary{
			Op:       []int{TkNot},
			Operand:  operand,
			CodeInfo: self.currentCodeInfo(start),
		}
	} else {
		v, err := self.parseUnary()
		if err != nil {
			return nil, err
		}
		l = v
	}

	return self.doParseBinRest(l, prec, start)
}

func (self *Parser) parseBinary() (Expr, error) {
	return self.doParseBin(0)
}

func (self *Parser) doParseBinBetweenRHS(
	prec int,
) (Expr, Expr, error) {
	lowerBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	if self.L.Token != TkAnd {
		return nil, nil, self.err("expect AND for BETWEEN operator")
	}
	self.L.Next()

	upperBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	return lowerBound, upperBound, nil
}

func (self *Parser) doParseBinInRHS() ([]Expr, error) {
	if self.L.Token != TkLPar {
		return nil, self.err("expect '(' for IN operator's lhs")
	}
	self.L.Next()

	out := []Expr{}

	for self.L.Token != TkRPar {
		if v, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			out = append(out, v)
		}
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' after element in IN's lhs")
		}
	}

	self.L.Next()
	if len(out) == 0 {
		return nil, self.err("IN operator's RHS is an empty set, which is not allowed")
	}
	return out, nil
}

// IS [NOT] NULL|TRUE|FALSE|UNKNOWN|DISTINCT FROM expr, the IS token has been
// consumed
func (self *Parser) doParseIs(lhs Expr, prec int, start int) (Expr, error) {
	negated := false
	if self.L.Token == TkNot {
		negated = true
		self.L.Next()
	}

	what := -1
	switch {
	case self.L.Token == TkNull:
		what = IsNull
	case self.L.Token == TkTrue:
		what = IsTrue
	case self.L.Token == TkFalse:
		what = IsFalse
	case self.isWord("unknown"):
		what = IsUnknown
	case self.L.Token == TkDistinct:
		if self.L.Next() != TkFrom {
			return nil, self.err("expect *from* after *is distinct*")
		}
		self.L.Next()
		rhs, err := self.doParseBin(prec + 1)
		if err != nil {
			return nil, err
		}
		op := TkIsDistinct
		if negated {
			op = TkIsNotDistinct
		}
		return &Binary{
			Op:       op,
			L:        lhs,
			R:        rhs,
			CodeInfo: self.currentCodeInfo(start),
		}, nil
	default:
		return nil, self.err("expect NULL, TRUE, FALSE, UNKNOWN or DISTINCT FROM after IS")
	}

	self.L.Next()
	return &Is{
		Operand:  lhs,
		What:     what,
		Negated:  negated,
		CodeInfo: self.currentCodeInfo(start),
	}, nil
}

func (self *Parser) doParseBinRest(lhs Expr,
	prec int,
	start int,
) (Expr, error) {

	for {
		tk := self.L.Token
		nextPrec := self.binPrec(tk)

		if nextPrec == invalidOpPrec {
			break
		} else if nextPrec < prec {
			break
		}

		ntk := self.L.Next() // eat the operator token

		if tk == TkNot {
			switch ntk {
			case TkIn:
				tk = tkNotIn
			case TkBetween:
				tk = tkNotBetween
			case TkLike:
				tk = tkNotLike
			case TkILike:
				tk = tkNotILike
			default:
				return nil, self.err(
					"NOT operator shows up, but expect a suffix operator, " +
						"example like NOT IN, NOT BETWEEN, NOT LIKE etc ... ",
				)
			}
			self.L.Next()
		}

		var newNode Expr
		switch tk {
		case TkIs:
			if v, err := self.doParseIs(lhs, nextPrec, start); err != nil {
				return nil, err
			} else {
				newNode = v
			}

		case TkBetween, tkNotBetween:
			if lower, upper, err := self.doParseBinBetweenRHS(nextPrec + 1); err != nil {
				return nil, err
			} else {
				ge := &Binary{
					Op:       TkGe,
					L:        lhs,
					R:        lower,
					CodeInfo: self.currentCodeInfo(start),
				}

				le := &Binary{
					Op:       TkLe,
					L:        lhs,
					R:        upper,
					CodeInfo: self.currentCodeInfo(start),
				}

				between := &Binary{
					Op:       TkAnd,
					L:        ge,
					R:        le,
					CodeInfo: self.currentCodeInfo(start),
				}

				if tk == TkBetween {
					newNode = between
				} else {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  between,
						CodeInfo: self.currentCodeInfo(start),
					}
				}
			}

		case TkIn, tkNotIn:
			if v, err := self.doParseBinInRHS(); err != nil {
				return nil, err
			} else {
				newNode = &In{
					Operand:  lhs,
					List:     v,
					Negated:  tk == tkNotIn,
					CodeInfo: self.currentCodeInfo(start),
				}
			}

		case TkLike, TkILike, tkNotLike, tkNotILike:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				newNode = &Like{
					Operand:         lhs,
					Pattern:         v,
					Negated:         tk == tkNotLike || tk == tkNotILike,
					CaseInsensitive: tk == TkILike || tk == tkNotILike,
					CodeInfo:        self.currentCodeInfo(start),
				}
			}

		default:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				newNode = &Binary{
					Op:       tk,
					L:        lhs,
					R:        v,
					CodeInfo: self.currentCodeInfo(start),
				}
			}
		}

		lhs = newNode
	}

	return lhs, nil
}

func (self *Parser) parseUnary() (Expr, error) {
	opList := []int{}

	start := self.posStart()

	for {
		cur := self.L.Token
		if cur == TkAdd || cur == TkSub {
			opList = append(opList, cur)
			self.L.Next()
		} else {
			break
		}
	}

	expr, err := self.parsePrimary()
	if err != nil {
		return nil, err
	}

	if len(opList) > 0 {
		// fold negative numeric constant directly
		if c, ok := expr.(*Const); ok && (c.Ty == ConstInt || c.Ty == ConstReal) {
			for _, op := range opList {
				if op == TkSub {
					c.Int = -c.Int
					c.Real = -c.Real
				}
			}
			c.CodeInfo = self.currentCodeInfo(start)
			return c, nil
		}
		return &Unary{
			Op:       opList,
			Operand:  expr,
			CodeInfo: self.currentCodeInfo(start),
		}, nil
	} else {
		return expr, nil
	}
}

func (self *Parser) parseCallArgs(name string, start int) (Expr, error) {
	call := &Call{
		Name: name,
	}

	if self.L.Next() == TkDistinct {
		call.Distinct = true
		self.L.Next()
	}

	for self.L.Token != TkRPar {
		if self.L.Token == TkMul {
			argStart := self.posStart()
			self.L.Next()
			call.Parameters = append(call.Parameters, &StarArg{
				CodeInfo: self.currentCodeInfo(argStart),
			})
		} else {
			if e, err := self.parseExpr(); err != nil {
				return nil, err
			} else {
				call.Parameters = append(call.Parameters, e)
			}
		}
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' in function call")
		}
	}
	self.L.Next()

	call.CodeInfo = self.currentCodeInfo(start)
	return call, nil
}

func (self *Parser) parsePrimary() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse, TkNull, TkStr, TkInt, TkReal:
		return self.parseConstExpr(), nil

	case TkId, TkLeft, TkRight:
		var id string
		if self.L.Token == TkId {
			id = self.L.Lexeme.Text
		} else {
			// left(...)/right(...) are keywords but also valid function names
			id = self.L.lowerText()
		}

		switch self.L.Next() {
		case TkLPar:
			return self.parseCallArgs(id, start)

		case TkDot:
			if self.L.Next() != TkId {
				return nil, self.err("expect a column name after '.'")
			}
			col := self.L.Lexeme.Text
			self.L.Next()
			return &Ref{
				Table:    id,
				Id:       col,
				CodeInfo: self.currentCodeInfo(start),
			}, nil
		}

		return &Ref{
			Id:       id,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	case TkCast:
		if self.L.Next() != TkLPar {
			return nil, self.err("expect '(' after *cast*")
		}
		self.L.Next()
		operand, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if self.L.Token != TkAs {
			return nil, self.err("expect *as* inside of *cast*")
		}
		if self.L.Next() != TkId {
			return nil, self.err("expect a type name inside of *cast*")
		}
		typeName := self.L.lowerText()
		self.L.Next()
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return &Cast{
			Operand:  operand,
			TypeName: typeName,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, self.err("unexpected token for expression")
	}
}

func (self *Parser) parseConstExpr() *Const {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse:
		booleanVal := self.L.Token == TkTrue
		self.L.Next()
		return &Const{
			Ty:       ConstBool,
			Bool:     booleanVal,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkNull:
		self.L.Next()
		return &Const{
			Ty:       ConstNull,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkStr:
		str := self.L.Lexeme.Text
		self.L.Next()
		return &Const{
			Ty:       ConstStr,
			String:   str,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkInt:
		v := self.L.Lexeme.Int
		self.L.Next()
		return &Const{
			Ty:       ConstInt,
			Int:      v,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkReal:
		v := self.L.Lexeme.Real
		self.L.Next()
		return &Const{
			Ty:       ConstReal,
			Real:     v,
			CodeInfo: self.currentCodeInfo(start),
		}

	default:
		return nil
	}
}
