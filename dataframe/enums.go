package dataframe

import (
	"fmt"

	"github.com/dianpeng/awkframe/plan"
)

// Operator is a binary operator accepted by BinaryExpr
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

// engine translates the operator, every variant must be listed
func (self Operator) engine() plan.Operator {
	switch self {
	case OpEq:
		return plan.OpEq
	case OpNotEq:
		return plan.OpNotEq
	case OpLt:
		return plan.OpLt
	case OpLtEq:
		return plan.OpLtEq
	case OpGt:
		return plan.OpGt
	case OpGtEq:
		return plan.OpGtEq
	case OpPlus:
		return plan.OpPlus
	case OpMinus:
		return plan.OpMinus
	case OpMultiply:
		return plan.OpMultiply
	case OpDivide:
		return plan.OpDivide
	case OpModulo:
		return plan.OpModulo
	case OpAnd:
		return plan.OpAnd
	case OpOr:
		return plan.OpOr
	case OpIsDistinctFrom:
		return plan.OpIsDistinctFrom
	case OpIsNotDistinctFrom:
		return plan.OpIsNotDistinctFrom
	case OpRegexMatch:
		return plan.OpRegexMatch
	case OpRegexIMatch:
		return plan.OpRegexIMatch
	case OpRegexNotMatch:
		return plan.OpRegexNotMatch
	case OpRegexNotIMatch:
		return plan.OpRegexNotIMatch
	case OpBitwiseAnd:
		return plan.OpBitwiseAnd
	case OpBitwiseOr:
		return plan.OpBitwiseOr
	case OpBitwiseXor:
		return plan.OpBitwiseXor
	case OpBitwiseShiftRight:
		return plan.OpBitwiseShiftRight
	case OpBitwiseShiftLeft:
		return plan.OpBitwiseShiftLeft
	case OpStringConcat:
		return plan.OpStringConcat
	default:
		panic(fmt.Sprintf("dataframe: unknown operator %d", int(self)))
	}
}

func (self Operator) String() string {
	return self.engine().String()
}

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinLeftSemi
	JoinRightSemi
	JoinLeftAnti
	JoinRightAnti
)

func (self JoinType) engine() plan.JoinKind {
	switch self {
	case JoinInner:
		return plan.JoinInner
	case JoinLeft:
		return plan.JoinLeft
	case JoinRight:
		return plan.JoinRight
	case JoinFull:
		return plan.JoinFull
	case JoinLeftSemi:
		return plan.JoinLeftSemi
	case JoinRightSemi:
		return plan.JoinRightSemi
	case JoinLeftAnti:
		return plan.JoinLeftAnti
	case JoinRightAnti:
		return plan.JoinRightAnti
	default:
		panic(fmt.Sprintf("dataframe: unknown join type %d", int(self)))
	}
}

func (self JoinType) String() string {
	return self.engine().String()
}
