package plan

import (
	"fmt"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/sql"
)

// foldVariables rebuilds an expression with @variable references replaced
// by their current values as literals, so variable-bound predicates become
// eligible for push-down. The input AST is never mutated.
func foldVariables(expr sql.Expression, scope *eval.Scope) (sql.Expression, error) {
	if expr == nil {
		return nil, nil
	}

	switch node := expr.(type) {
	case *sql.Literal, *sql.ColumnRef:
		return expr, nil
	case *sql.Variable:
		if scope == nil {
			return nil, fmt.Errorf("get %s: %w", node.Name, eval.ErrUndeclaredVariable)
		}

		value, err := scope.Get(node.Name)
		if err != nil {
			return nil, err
		}

		return &sql.Literal{Token: node.Token, Value: value}, nil
	case *sql.Prefix:
		right, err := foldVariables(node.Right, scope)
		if err != nil {
			return nil, err
		}

		return &sql.Prefix{Token: node.Token, Operator: node.Operator, Right: right}, nil
	case *sql.Infix:
		left, err := foldVariables(node.Left, scope)
		if err != nil {
			return nil, err
		}

		right, err := foldVariables(node.Right, scope)
		if err != nil {
			return nil, err
		}

		return &sql.Infix{Token: node.Token, Left: left, Operator: node.Operator, Right: right}, nil
	case *sql.Case:
		out := &sql.Case{Token: node.Token}

		for _, when := range node.Whens {
			cond, err := foldVariables(when.Cond, scope)
			if err != nil {
				return nil, err
			}

			result, err := foldVariables(when.Result, scope)
			if err != nil {
				return nil, err
			}

			out.Whens = append(out.Whens, sql.WhenClause{Cond: cond, Result: result})
		}

		if node.Else != nil {
			els, err := foldVariables(node.Else, scope)
			if err != nil {
				return nil, err
			}

			out.Else = els
		}

		return out, nil
	case *sql.Iif:
		cond, err := foldVariables(node.Cond, scope)
		if err != nil {
			return nil, err
		}

		then, err := foldVariables(node.Then, scope)
		if err != nil {
			return nil, err
		}

		els, err := foldVariables(node.Else, scope)
		if err != nil {
			return nil, err
		}

		return &sql.Iif{Token: node.Token, Cond: cond, Then: then, Else: els}, nil
	case *sql.Call:
		out := &sql.Call{Token: node.Token, Name: node.Name}

		for _, arg := range node.Args {
			folded, err := foldVariables(arg, scope)
			if err != nil {
				return nil, err
			}

			out.Args = append(out.Args, folded)
		}

		return out, nil
	case *sql.Cast:
		inner, err := foldVariables(node.Expr, scope)
		if err != nil {
			return nil, err
		}

		return &sql.Cast{Token: node.Token, Expr: inner, Type: node.Type, Style: node.Style}, nil
	case *sql.Like:
		left, err := foldVariables(node.Left, scope)
		if err != nil {
			return nil, err
		}

		pattern, err := foldVariables(node.Pattern, scope)
		if err != nil {
			return nil, err
		}

		return &sql.Like{Token: node.Token, Left: left, Pattern: pattern, Not: node.Not}, nil
	case *sql.In:
		out := &sql.In{Token: node.Token, Not: node.Not}

		left, err := foldVariables(node.Left, scope)
		if err != nil {
			return nil, err
		}

		out.Left = left

		for _, item := range node.List {
			folded, err := foldVariables(item, scope)
			if err != nil {
				return nil, err
			}

			out.List = append(out.List, folded)
		}

		return out, nil
	case *sql.IsNull:
		left, err := foldVariables(node.Left, scope)
		if err != nil {
			return nil, err
		}

		return &sql.IsNull{Token: node.Token, Left: left, Not: node.Not}, nil
	}

	return expr, nil
}
