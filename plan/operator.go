package plan

import (
	"fmt"
)

// Operator is the binary operator vocabulary of the engine
type Operator int

const (
	OpEq Operator = iota
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpOr
	OpIsDistinctFrom
	OpIsNotDistinctFrom
	OpRegexMatch
	OpRegexIMatch
	OpRegexNotMatch
	OpRegexNotIMatch
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseShiftRight
	OpBitwiseShiftLeft
	OpStringConcat
)

func (self Operator) String() string {
	switch self {
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpIsDistinctFrom:
		return "IS DISTINCT FROM"
	case OpIsNotDistinctFrom:
		return "IS NOT DISTINCT FROM"
	case OpRegexMatch:
		return "~"
	case OpRegexIMatch:
		return "~*"
	case OpRegexNotMatch:
		return "!~"
	case OpRegexNotIMatch:
		return "!~*"
	case OpBitwiseAnd:
		return "&"
	case OpBitwiseOr:
		return "|"
	case OpBitwiseXor:
		return "#"
	case OpBitwiseShiftRight:
		return ">>"
	case OpBitwiseShiftLeft:
		return "<<"
	case OpStringConcat:
		return "||"
	default:
		return fmt.Sprintf("Operator(%d)", int(self))
	}
}

func (self Operator) IsComparison() bool {
	switch self {
	case OpEq, OpNotEq, OpLt, OpLtEq, OpGt, OpGtEq:
		return true
	default:
		return false
	}
}

func (self Operator) IsArithmetic() bool {
	switch self {
	case OpPlus, OpMinus, OpMultiply, OpDivide, OpModulo:
		return true
	default:
		return false
	}
}

func (self Operator) IsRegex() bool {
	switch self {
	case OpRegexMatch, OpRegexIMatch, OpRegexNotMatch, OpRegexNotIMatch:
		return true
	default:
		return false
	}
}

func (self Operator) IsBitwise() bool {
	switch self {
	case OpBitwiseAnd, OpBitwiseOr, OpBitwiseXor, OpBitwiseShiftRight,
		OpBitwiseShiftLeft:
		return true
	default:
		return false
	}
}

// JoinKind is the join vocabulary of the engine
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinLeftSemi
	JoinRightSemi
	JoinLeftAnti
	JoinRightAnti
)

func (self JoinKind) String() string {
	switch self {
	case JoinInner:
		return "Inner"
	case JoinLeft:
		return "Left"
	case JoinRight:
		return "Right"
	case JoinFull:
		return "Full"
	case JoinLeftSemi:
		return "LeftSemi"
	case JoinRightSemi:
		return "RightSemi"
	case JoinLeftAnti:
		return "LeftAnti"
	case JoinRightAnti:
		return "RightAnti"
	default:
		return fmt.Sprintf("JoinKind(%d)", int(self))
	}
}

// OutputsLeft reports whether the join output carries the left columns
func (self JoinKind) OutputsLeft() bool {
	return self != JoinRightSemi && self != JoinRightAnti
}

// OutputsRight reports whether the join output carries the right columns
func (self JoinKind) OutputsRight() bool {
	return self != JoinLeftSemi && self != JoinLeftAnti
}
