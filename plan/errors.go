package plan

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvedColumn = errors.New("unresolved column")
	ErrAmbiguousColumn  = errors.New("ambiguous column")
	ErrDuplicateColumn  = errors.New("duplicate column")
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrArityMismatch    = errors.New("arity mismatch")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTableNotFound    = errors.New("table not found")
	ErrNotSupported     = errors.New("not supported")
)

// Error is the failure every plan builder and the planner returns. Kind is one
// of the sentinel errors above, so errors.Is works through it
type Error struct {
	Stage string
	Kind  error
	Msg   string
}

func (self *Error) Error() string {
	return fmt.Sprintf("stage(%s): %s: %s", self.Stage, self.Kind, self.Msg)
}

func (self *Error) Unwrap() error {
	return self.Kind
}

func planErr(stage string, kind error, f string, args ...interface{}) error {
	return &Error{
		Stage: stage,
		Kind:  kind,
		Msg:   fmt.Sprintf(f, args...),
	}
}
