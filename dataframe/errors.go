package dataframe

import (
	"errors"
	"fmt"
)

var ErrTableExists = errors.New("table already exists")

// Error is the single failure kind reported by the builders and the session,
// the engine error it wraps is reachable with errors.Is and errors.As
type Error struct {
	Op  string
	Err error
}

func (self *Error) Error() string {
	return fmt.Sprintf("dataframe(%s): %s", self.Op, self.Err)
}

func (self *Error) Unwrap() error {
	return self.Err
}

// PoisonedError is the panic value raised when the value of a handle is read
// after a failed call left it empty
type PoisonedError struct {
	Kind string
	Op   string
}

func (self *PoisonedError) Error() string {
	return fmt.Sprintf("%s must have a value, %s called on a handle poisoned by an earlier failure",
		self.Kind, self.Op)
}
