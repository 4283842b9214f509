package sql

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestComment(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`
-- last line
#  last line
`)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`
# abc
    id #def
# xyz
`)
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "id")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`
-- abc
/* abcd */    id -- def
`)
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "id")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`/* not closed`)
		assert.True(l.Next() == TkError)
	}
}

func TestOp(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("+-*/%.();,")
		assert.True(l.Next() == TkAdd)
		assert.True(l.Next() == TkSub)
		assert.True(l.Next() == TkMul)
		assert.True(l.Next() == TkDiv)
		assert.True(l.Next() == TkMod)
		assert.True(l.Next() == TkDot)
		assert.True(l.Next() == TkLPar)
		assert.True(l.Next() == TkRPar)
		assert.True(l.Next() == TkSemicolon)
		assert.True(l.Next() == TkComma)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("> >= < <= != <> = ==")
		assert.True(l.Next() == TkGt)
		assert.True(l.Next() == TkGe)
		assert.True(l.Next() == TkLt)
		assert.True(l.Next() == TkLe)
		assert.True(l.Next() == TkNe)
		assert.True(l.Next() == TkNe)
		assert.True(l.Next() == TkEq)
		assert.True(l.Next() == TkEq)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("|| | & << >> ~ ~* !~ !~*")
		assert.True(l.Next() == TkConcat)
		assert.True(l.Next() == TkBitOr)
		assert.True(l.Next() == TkBitAnd)
		assert.True(l.Next() == TkShl)
		assert.True(l.Next() == TkShr)
		assert.True(l.Next() == TkMatch)
		assert.True(l.Next() == TkIMatch)
		assert.True(l.Next() == TkNotMatch)
		assert.True(l.Next() == TkNotIMatch)
		assert.True(l.Next() == TkEof)
	}
}

func TestKeyword(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("SELECT Distinct from where GROUP   BY having ORDER by limit offset")
		assert.True(l.Next() == TkSelect)
		assert.True(l.Next() == TkDistinct)
		assert.True(l.Next() == TkFrom)
		assert.True(l.Next() == TkWhere)
		assert.True(l.Next() == TkGroupBy)
		assert.True(l.Next() == TkHaving)
		assert.True(l.Next() == TkOrderBy)
		assert.True(l.Next() == TkLimit)
		assert.True(l.Next() == TkOffset)
		assert.True(l.Next() == TkEof)
	}
	{
		l := newLexer("join inner left right full cross on union all is like ilike in between not and or")
		assert.True(l.Next() == TkJoin)
		assert.True(l.Next() == TkInner)
		assert.True(l.Next() == TkLeft)
		assert.True(l.Next() == TkRight)
		assert.True(l.Next() == TkFull)
		assert.True(l.Next() == TkCross)
		assert.True(l.Next() == TkOn)
		assert.True(l.Next() == TkUnion)
		assert.True(l.Next() == TkAll)
		assert.True(l.Next() == TkIs)
		assert.True(l.Next() == TkLike)
		assert.True(l.Next() == TkILike)
		assert.True(l.Next() == TkIn)
		assert.True(l.Next() == TkBetween)
		assert.True(l.Next() == TkNot)
		assert.True(l.Next() == TkAnd)
		assert.True(l.Next() == TkOr)
		assert.True(l.Next() == TkEof)
	}
	{
		// prefix of keyword is still an identifier
		l := newLexer("selected inner_id ons limits")
		assert.True(l.Next() == TkId)
		assert.Equal("selected", l.Lexeme.Text)
		assert.True(l.Next() == TkId)
		assert.Equal("inner_id", l.Lexeme.Text)
		assert.True(l.Next() == TkId)
		assert.Equal("ons", l.Lexeme.Text)
		assert.True(l.Next() == TkId)
		assert.Equal("limits", l.Lexeme.Text)
		assert.True(l.Next() == TkEof)
	}
}

func TestId(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`Abc "MixedCase" _x1`)
		assert.True(l.Next() == TkId)
		assert.Equal("abc", l.Lexeme.Text)
		assert.True(l.Next() == TkId)
		assert.Equal("MixedCase", l.Lexeme.Text)
		assert.True(l.Next() == TkId)
		assert.Equal("_x1", l.Lexeme.Text)
		assert.True(l.Next() == TkEof)
	}
	{
		l := newLexer(`"not closed`)
		assert.True(l.Next() == TkError)
	}
}

func TestLiteral(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("1 12.5 1e3 2.5E-1 true false null")
		assert.True(l.Next() == TkInt)
		assert.Equal(int64(1), l.Lexeme.Int)
		assert.True(l.Next() == TkReal)
		assert.Equal(12.5, l.Lexeme.Real)
		assert.True(l.Next() == TkReal)
		assert.Equal(1000.0, l.Lexeme.Real)
		assert.True(l.Next() == TkReal)
		assert.Equal(0.25, l.Lexeme.Real)
		assert.True(l.Next() == TkTrue)
		assert.True(l.Next() == TkFalse)
		assert.True(l.Next() == TkNull)
		assert.True(l.Next() == TkEof)
	}
	{
		l := newLexer(`'abc' 'it''s' 'a\tb' ''`)
		assert.True(l.Next() == TkStr)
		assert.Equal("abc", l.Lexeme.Text)
		assert.True(l.Next() == TkStr)
		assert.Equal("it's", l.Lexeme.Text)
		assert.True(l.Next() == TkStr)
		assert.Equal("a\tb", l.Lexeme.Text)
		assert.True(l.Next() == TkStr)
		assert.Equal("", l.Lexeme.Text)
		assert.True(l.Next() == TkEof)
	}
	{
		l := newLexer(`'abc`)
		assert.True(l.Next() == TkError)
	}
	{
		l := newLexer(`'\q'`)
		assert.True(l.Next() == TkError)
	}
}

func TestLikeToRegex(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("(?s)^abc.*$", LikeToRegex("abc%"))
	assert.Equal("(?s)^a.c$", LikeToRegex("a_c"))
	assert.Equal(`(?s)^a%b\.c$`, LikeToRegex(`a\%b.c`))
	assert.Equal(`(?s)^\[x\]$`, LikeToRegex("[x]"))

	prefix, ok := LikeIsPrefix("abc%")
	assert.True(ok)
	assert.Equal("abc", prefix)
	_, ok = LikeIsPrefix("a_c%")
	assert.False(ok)
	_, ok = LikeIsPrefix("abc")
	assert.False(ok)
}
