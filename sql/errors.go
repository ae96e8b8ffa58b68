package sql

import "fmt"

// SyntaxError reports a malformed statement, identifying the offending
// token and its byte position in the input.
type SyntaxError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
	}

	return fmt.Sprintf("syntax error at position %d near %q: %s", e.Pos, e.Token, e.Msg)
}
