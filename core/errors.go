package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of parse errors. A *ParseError unwraps to exactly one of these, so
// callers match with errors.Is.
var (
	ErrEmptyLine           = errors.New("empty line")
	ErrMalformedLine       = errors.New("malformed line")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrIllegalZeroDelay    = errors.New("illegal zero delay")
	ErrZeroDelayNotAllowed = errors.New("zero delay only allowed with continue")
	ErrRange               = errors.New("value out of range")
	ErrInvalidOpcode       = errors.New("invalid opcode")
	ErrInvalidPattern      = errors.New("invalid pattern")
	ErrDuplicateAddress    = errors.New("duplicate address")
)

// ParseError reports a line that could not be assembled.
type ParseError struct {
	Source  string // file name, may be empty
	Line    int    // 1-based line number, 0 if not known
	Address int    // -1 if the address field was not parsed
	Kind    error  // one of the Err* kinds above
	Msg     string
}

func (e *ParseError) Error() string {
	loc := ""

	switch {
	case e.Source != "" && e.Line > 0:
		loc = fmt.Sprintf("%s:%d: ", e.Source, e.Line)
	case e.Line > 0:
		loc = fmt.Sprintf("line %d: ", e.Line)
	}

	if e.Address >= 0 {
		loc += fmt.Sprintf("address %d: ", e.Address)
	}

	if e.Msg == "" {
		return loc + e.Kind.Error()
	}

	return fmt.Sprintf("%s%s: %s", loc, e.Kind, e.Msg)
}

// Unwrap returns the error kind.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

func parseErrorf(kind error, format string, args ...any) *ParseError {
	return &ParseError{
		Address: -1,
		Kind:    kind,
		Msg:     fmt.Sprintf(format, args...),
	}
}
