package eval

import "errors"

var (
	// ErrUnsupported when an AST node or operator has no evaluator handling
	ErrUnsupported = errors.New("unsupported expression")
	// ErrUndeclaredVariable when a variable is read or set before DECLARE
	ErrUndeclaredVariable = errors.New("variable not declared")
	// ErrDivisionByZero when a division or modulo has a zero divisor
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidDatePart when a datepart keyword is not recognized
	ErrInvalidDatePart = errors.New("invalid datepart")
	// ErrNumericOverflow when a result exceeds the representable range
	ErrNumericOverflow = errors.New("numeric overflow")
)
