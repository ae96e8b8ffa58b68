package eval

import (
	"fmt"
	"strings"

	"github.com/fetchql/fetchql/types"
)

type binding struct {
	declaredType string
	value        types.Value
}

// Scope holds DECLARE/SET variable bindings for a session. It is owned by
// the caller and may be reused across statements; it is not safe for
// concurrent use.
type Scope struct {
	vars map[string]binding
}

// NewScope creates an empty variable scope
func NewScope() *Scope {
	return &Scope{vars: map[string]binding{}}
}

// Declare registers a variable. The name must carry the @ prefix.
// Redeclaring a name replaces the previous binding.
func (s *Scope) Declare(name, declaredType string, initial types.Value) error {
	if !strings.HasPrefix(name, "@") {
		return fmt.Errorf("declare %s: variable names must start with @", name)
	}

	if initial == nil {
		initial = types.Null
	}

	s.vars[strings.ToLower(name)] = binding{declaredType: declaredType, value: initial}

	return nil
}

// Set replaces the value of a declared variable without touching its
// declared type.
func (s *Scope) Set(name string, value types.Value) error {
	key := strings.ToLower(name)

	b, ok := s.vars[key]
	if !ok {
		return fmt.Errorf("set %s: %w", name, ErrUndeclaredVariable)
	}

	b.value = value
	s.vars[key] = b

	return nil
}

// Get returns the current value of a declared variable
func (s *Scope) Get(name string) (types.Value, error) {
	b, ok := s.vars[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", name, ErrUndeclaredVariable)
	}

	return b.value, nil
}

// DeclaredType returns the declared type of a variable
func (s *Scope) DeclaredType(name string) (string, error) {
	b, ok := s.vars[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("type of %s: %w", name, ErrUndeclaredVariable)
	}

	return b.declaredType, nil
}

// IsDeclared reports whether the variable has been declared
func (s *Scope) IsDeclared(name string) bool {
	_, ok := s.vars[strings.ToLower(name)]
	return ok
}
