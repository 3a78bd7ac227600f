package schemafile

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ErrUndefined  = errors.New("schemafile: undefined schema")
	ErrDuplicate  = errors.New("schemafile: duplicate declaration")
	ErrBadKind    = errors.New("schemafile: unknown field kind")
	ErrBadVersion = errors.New("schemafile: unknown version")
	ErrBadValue   = errors.New("schemafile: bad value")
)

// PositionError attaches a source position to a build error.
type PositionError struct {
	Pos lexer.Position
	Err error
}

func (e PositionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

func (e PositionError) Unwrap() error { return e.Err }

func at(pos lexer.Position, err error) error {
	return PositionError{Pos: pos, Err: err}
}
