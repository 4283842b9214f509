package sql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Literal
	TkTrue = iota
	TkFalse
	TkInt
	TkReal
	TkNull
	TkStr
	TkId

	// Keywords
	TkSelect
	TkFrom
	TkAs
	TkCast
	TkWhere
	TkGroupBy
	TkOrderBy
	TkLimit
	TkOffset
	TkHaving
	TkDistinct
	TkIn
	TkBetween
	TkJoin
	TkInner
	TkLeft
	TkRight
	TkFull
	TkCross
	TkOn
	TkUnion
	TkAll
	TkIs
	TkLike
	TkILike
	TkCreate
	TkDrop

	// Punctuation
	TkComma
	TkSemicolon
	TkLPar
	TkRPar

	TkAdd
	TkSub
	TkMul
	TkDiv
	TkMod

	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNe

	TkAnd
	TkOr
	TkNot

	TkConcat
	TkBitAnd
	TkBitOr
	TkShl
	TkShr
	TkMatch
	TkIMatch
	TkNotMatch
	TkNotIMatch

	TkDot

	TkError
	TkEof

	// Special hidden tokens that will never showsup during lexing, used inside
	// of parser for preprocessing/desugar purpose
	tkNotBetween
	tkNotIn
	tkNotLike
	tkNotILike
	TkIsDistinct
	TkIsNotDistinct
)

type Lexeme struct {
	Text string
	Int  int64
	Real float64
	Bool bool
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor == len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	if self.Cursor+1 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) nextRune3() rune {
	if self.Cursor+2 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+2:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Token = tk
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Token = TkEof
	return TkEof
}

// generate a debug position for diagnostic information output
func (self *Lexer) pos(where int, source string) (int, int) {
	line := 1
	col := 1
	idx := 0

	for idx < where && idx < len(source) {
		r, sz := utf8.DecodeRuneInString(source[idx:])
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		idx += sz
	}

	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Cursor, self.Source)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errE(err error) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), err)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) lexLineComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				return true // reaching end of the source
			} else {
				self.errUtf8()
				return false
			}
		}

		self.Cursor += sz

		if r == '\n' {
			break
		}
	}

	return true
}

func (self *Lexer) lexBlockComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				self.err("block comment is not closed properly")
			} else {
				self.errUtf8()
			}
			return false
		}

		if r == '*' && self.nextRune2() == '/' {
			self.Cursor += 2
			break
		}

		self.Cursor += sz
	}

	return true
}

// 1) a dot or an exponential sign indicates a real number
// 2) otherwise treated as 64 bits number
func (self *Lexer) lexNum(c rune) int {
	hasDot := false
	hasE := false

	buf := &bytes.Buffer{}

	buf.WriteRune(c)

	self.Cursor++ // skip first rune

loop:
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				break
			} else {
				return self.errUtf8()
			}
		}

		switch r {
		case '.':
			if hasDot || hasE {
				break loop
			}
			buf.WriteRune('.')
			hasDot = true

		case 'e', 'E':
			if hasE {
				break loop
			}
			buf.WriteRune(r)
			hasE = true
			if n := self.nextRune2(); n == '-' || n == '+' {
				buf.WriteRune(n)
				self.Cursor++
			}

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			buf.WriteRune(r)

		default:
			break loop
		}

		self.Cursor += sz
	}

	if hasDot || hasE {
		f, err := strconv.ParseFloat(buf.String(), 64)
		if err != nil {
			return self.errE(err)
		}
		self.Lexeme.Real = f
		self.Token = TkReal
		return TkReal
	} else {
		i, err := strconv.ParseInt(buf.String(), 10, 64)
		if err != nil {
			return self.errE(err)
		}
		self.Lexeme.Int = i
		self.Token = TkInt
		return TkInt
	}
}

// single quoted string literal, a doubled quote inside is an escaped quote
func (self *Lexer) lexStr() int {
	buf := &bytes.Buffer{}

	self.Cursor++
	self.Lexeme.Text = ""

	for {
		c, sz := self.nextRune()

		if c == utf8.RuneError {
			if sz == 0 {
				return self.err("string literal is not closed by quote properly")
			} else {
				return self.errUtf8()
			}
		}

		if c == '\'' {
			if self.nextRune2() == '\'' {
				buf.WriteRune('\'')
				self.Cursor += 2
				continue
			}
			self.Cursor += sz
			break
		}

		if c == '\\' {
			cc := self.nextRune2()
			switch cc {
			case 't':
				buf.WriteRune('\t')
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case '\'':
				buf.WriteRune('\'')
			case '\\':
				buf.WriteRune('\\')
			default:
				return self.err("unknown escape sequences inside of string literal")
			}
			self.Cursor += 2
			continue
		}

		buf.WriteRune(c)
		self.Cursor += sz
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkStr
	return self.Token
}

// double quoted identifier, case is preserved
func (self *Lexer) lexQuotedId() int {
	self.Cursor++
	start := self.Cursor

	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.err("quoted identifier is not closed properly")
			} else {
				return self.errUtf8()
			}
		}
		if c == '"' {
			break
		}
		self.Cursor += sz
	}

	self.Lexeme.Text = self.Source[start:self.Cursor]
	self.Cursor++
	if self.Lexeme.Text == "" {
		return self.err("empty quoted identifier")
	}
	self.Token = TkId
	return TkId
}

func (self *Lexer) matchkeyword(str string, offset int) bool {
	c := self.Cursor + offset
	tar := []rune(str)

	for idx := 0; idx < len(tar); idx++ {
		if c >= len(self.Source) {
			return false
		}
		r, sz := utf8.DecodeRuneInString(self.Source[c:]) // make sure to be case insensitive

		if unicode.ToLower(r) != tar[idx] {
			return false
		}
		c += sz
	}

	if c >= len(self.Source) {
		return true
	}

	r, _ := utf8.DecodeRuneInString(self.Source[c:])
	return !self.isIdChar(r)
}

func (self *Lexer) matchKeyword(w string) bool {
	return self.matchkeyword(w, 1)
}

func (self *Lexer) matchKeyword2(w1, w2 string) (bool, int) {
	if !self.matchKeyword(w1) {
		return false, -1
	}

	off := 1 + len(w1)

	// skip all the whitespace that is in between
	for self.Cursor+off < len(self.Source) {
		r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+off:])
		if self.isWS(r) {
			off++
		} else {
			break
		}
	}

	if self.Cursor+off >= len(self.Source) {
		return false, -1
	}

	if self.matchkeyword(w2, off) {
		return true, off + len(w2)
	} else {
		return false, -1
	}
}

func (self *Lexer) isWS(r rune) bool {
	switch r {
	case ' ', '\r', '\t', '\n', '\b', '\v':
		return true
	default:
		return false
	}
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func (self *Lexer) tryKeyword(c rune) (bool, int) {
	switch c {
	case 'a', 'A':
		if self.matchKeyword("nd") {
			return true, self.yield(TkAnd, 3)
		}
		if self.matchKeyword("s") {
			return true, self.yield(TkAs, 2)
		}
		if self.matchKeyword("ll") {
			return true, self.yield(TkAll, 3)
		}

	case 'b', 'B':
		if self.matchKeyword("etween") {
			return true, self.yield(TkBetween, 7)
		}

	case 'c', 'C':
		if self.matchKeyword("ast") {
			return true, self.yield(TkCast, 4)
		}
		if self.matchKeyword("reate") {
			return true, self.yield(TkCreate, 6)
		}
		if self.matchKeyword("ross") {
			return true, self.yield(TkCross, 5)
		}

	case 'd', 'D':
		if self.matchKeyword("istinct") {
			return true, self.yield(TkDistinct, 8)
		}
		if self.matchKeyword("rop") {
			return true, self.yield(TkDrop, 4)
		}

	case 'f', 'F':
		if self.matchKeyword("alse") {
			return true, self.yield(TkFalse, 5)
		}
		if self.matchKeyword("rom") {
			return true, self.yield(TkFrom, 4)
		}
		if self.matchKeyword("ull") {
			return true, self.yield(TkFull, 4)
		}

	case 'g', 'G':
		if yes, length := self.matchKeyword2("roup", "by"); yes {
			return true, self.yield(TkGroupBy, length)
		}

	case 'h', 'H':
		if self.matchKeyword("aving") {
			return true, self.yield(TkHaving, 6)
		}

	case 'i', 'I':
		if self.matchKeyword("n") {
			return true, self.yield(TkIn, 2)
		}
		if self.matchKeyword("s") {
			return true, self.yield(TkIs, 2)
		}
		if self.matchKeyword("like") {
			return true, self.yield(TkILike, 5)
		}
		if self.matchKeyword("nner") {
			return true, self.yield(TkInner, 5)
		}

	case 'j', 'J':
		if self.matchKeyword("oin") {
			return true, self.yield(TkJoin, 4)
		}

	case 'l', 'L':
		if self.matchKeyword("imit") {
			return true, self.yield(TkLimit, 5)
		}
		if self.matchKeyword("ike") {
			return true, self.yield(TkLike, 4)
		}
		if self.matchKeyword("eft") {
			return true, self.yield(TkLeft, 4)
		}

	case 'n', 'N':
		if self.matchKeyword("ull") {
			return true, self.yield(TkNull, 4)
		}

		// always put at very last
		if self.matchKeyword("ot") {
			return true, self.yield(TkNot, 3)
		}

	case 'o', 'O':
		if self.matchKeyword("r") {
			return true, self.yield(TkOr, 2)
		}
		if self.matchKeyword("n") {
			return true, self.yield(TkOn, 2)
		}
		if self.matchKeyword("ffset") {
			return true, self.yield(TkOffset, 6)
		}
		if yes, l := self.matchKeyword2("rder", "by"); yes {
			return true, self.yield(TkOrderBy, l)
		}

	case 'r', 'R':
		if self.matchKeyword("ight") {
			return true, self.yield(TkRight, 5)
		}

	case 's', 'S':
		if self.matchKeyword("elect") {
			return true, self.yield(TkSelect, 6)
		}

	case 't', 'T':
		if self.matchKeyword("rue") {
			return true, self.yield(TkTrue, 4)
		}

	case 'u', 'U':
		if self.matchKeyword("nion") {
			return true, self.yield(TkUnion, 5)
		}

	case 'w', 'W':
		if self.matchKeyword("here") {
			return true, self.yield(TkWhere, 5)
		}
	}

	return false, 0
}

// unquoted identifiers are folded to lower case
func (self *Lexer) lexId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err("invalid leading character of identifier")
	}

	buf := &bytes.Buffer{}
	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			break
		}
		if !self.isIdChar(c) {
			break
		}
		self.Cursor += sz
		buf.WriteRune(unicode.ToLower(c))
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkId
	return TkId
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	yes, tk := self.tryKeyword(c)
	if yes {
		return tk
	}

	return self.lexId(c)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof || self.Token == TkError && self.Cursor > 0 {
		return self.Token
	}

	if self.Cursor == len(self.Source) {
		self.Token = TkEof
		return TkEof
	}

	return self.next()
}

func (self *Lexer) next() int {
	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.eof()
			} else {
				return self.errUtf8()
			}
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)

		case ';':
			return self.yield(TkSemicolon, 1)

		case '.':
			return self.yield(TkDot, 1)

		case '(':
			return self.yield(TkLPar, 1)
		case ')':
			return self.yield(TkRPar, 1)

		case '+':
			return self.yield(TkAdd, 1)
		case '-':
			if self.nextRune2() == '-' {
				self.Cursor += 2
				if !self.lexLineComment() {
					return self.Token
				}
				break
			}
			return self.yield(TkSub, 1)
		case '*':
			return self.yield(TkMul, 1)
		case '/':
			if self.nextRune2() == '*' {
				self.Cursor += 2
				if !self.lexBlockComment() {
					return self.Token
				}
				break
			}
			return self.yield(TkDiv, 1)

		case '%':
			return self.yield(TkMod, 1)

		case '&':
			return self.yield(TkBitAnd, 1)

		case '|':
			if self.nextRune2() == '|' {
				return self.yield(TkConcat, 2)
			}
			return self.yield(TkBitOr, 1)

		case '~':
			if self.nextRune2() == '*' {
				return self.yield(TkIMatch, 2)
			}
			return self.yield(TkMatch, 1)

		case '=':
			if self.nextRune2() == '=' {
				return self.yield(TkEq, 2)
			}
			return self.yield(TkEq, 1)

		case '>':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkGe, 2)
			case '>':
				return self.yield(TkShr, 2)
			default:
				return self.yield(TkGt, 1)
			}

		case '<':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkLe, 2)
			case '>':
				return self.yield(TkNe, 2)
			case '<':
				return self.yield(TkShl, 2)
			default:
				return self.yield(TkLt, 1)
			}

		case '!':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkNe, 2)
			case '~':
				if self.nextRune3() == '*' {
					return self.yield(TkNotIMatch, 3)
				}
				return self.yield(TkNotMatch, 2)
			default:
				return self.err("unexpected '!', use NOT for logical negation")
			}

		case ' ', '\r', '\t', '\n', '\b', '\v':
			self.Cursor++

		case '\'':
			return self.lexStr()

		case '"':
			return self.lexQuotedId()

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return self.lexNum(c)

		case '#':
			if !self.lexLineComment() {
				return self.Token
			}

		default:
			return self.lexKeywordOrId(c)
		}
	}
}

func (self *Lexer) lowerText() string {
	return strings.ToLower(self.Lexeme.Text)
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
	}
}
