package eval

import (
	"fmt"
	"math"

	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
	"github.com/shopspring/decimal"
)

// Evaluator evaluates AST expressions and conditions against a row under
// SQL three-valued logic. Evaluation is a recursive tree walk; statements
// are hand-written, so expression depth stays shallow and the default
// goroutine stack is plenty.
type Evaluator struct {
	funcs *Registry
}

// New creates an evaluator with the default function registry
func New() *Evaluator {
	return &Evaluator{funcs: NewRegistry()}
}

// NewWithRegistry creates an evaluator sharing a read-only registry
func NewWithRegistry(r *Registry) *Evaluator {
	return &Evaluator{funcs: r}
}

// Registry returns the evaluator's function registry
func (e *Evaluator) Registry() *Registry {
	return e.funcs
}

// Eval produces the value of an expression for the given row and scope.
// Row and scope may be nil when the expression references neither.
func (e *Evaluator) Eval(expr sql.Expression, row *types.Row, scope *Scope) (types.Value, error) {
	switch node := expr.(type) {
	case *sql.Literal:
		return node.Value, nil
	case *sql.ColumnRef:
		return e.evalColumn(node, row), nil
	case *sql.Variable:
		return e.evalVariable(node, scope)
	case *sql.Prefix:
		return e.evalPrefix(node, row, scope)
	case *sql.Infix:
		return e.evalInfix(node, row, scope)
	case *sql.Case:
		return e.evalCase(node, row, scope)
	case *sql.Iif:
		return e.evalIif(node, row, scope)
	case *sql.Call:
		return e.evalCall(node, row, scope)
	case *sql.Cast:
		return e.evalCast(node, row, scope)
	case *sql.Like:
		return e.evalLike(node, row, scope)
	case *sql.In:
		return e.evalIn(node, row, scope)
	case *sql.IsNull:
		return e.evalIsNull(node, row, scope)
	}

	return nil, fmt.Errorf("%T: %w", expr, ErrUnsupported)
}

// EvalCondition evaluates an expression as a predicate. A null result is
// false, never true.
func (e *Evaluator) EvalCondition(expr sql.Expression, row *types.Row, scope *Scope) (bool, error) {
	v, err := e.Eval(expr, row, scope)
	if err != nil {
		return false, err
	}

	if types.IsNull(v) {
		return false, nil
	}

	b, ok := v.(*types.Bool)
	if !ok {
		return false, fmt.Errorf("condition of kind %s: %w", v.Kind(), ErrUnsupported)
	}

	return b.Value, nil
}

func (e *Evaluator) evalColumn(node *sql.ColumnRef, row *types.Row) types.Value {
	if row == nil {
		return types.Null
	}

	v, ok := row.Get(node.Name)
	if !ok {
		return types.Null
	}

	if v == nil {
		return types.Null
	}

	return v
}

func (e *Evaluator) evalVariable(node *sql.Variable, scope *Scope) (types.Value, error) {
	if scope == nil {
		return nil, fmt.Errorf("get %s: %w", node.Name, ErrUndeclaredVariable)
	}

	return scope.Get(node.Name)
}

func (e *Evaluator) evalPrefix(node *sql.Prefix, row *types.Row, scope *Scope) (types.Value, error) {
	right, err := e.Eval(node.Right, row, scope)
	if err != nil {
		return nil, err
	}

	switch node.Operator {
	case "-":
		return negate(right)
	case "NOT":
		if types.IsNull(right) {
			return types.Null, nil
		}

		b, ok := right.(*types.Bool)
		if !ok {
			return nil, fmt.Errorf("NOT %s: %w", right.Kind(), ErrUnsupported)
		}

		return types.NewBool(!b.Value), nil
	}

	return nil, fmt.Errorf("operator %s: %w", node.Operator, ErrUnsupported)
}

func negate(v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case *types.NullValue:
		return types.Null, nil
	case *types.Int:
		return &types.Int{Value: -val.Value}, nil
	case *types.Decimal:
		return &types.Decimal{Value: val.Value.Neg()}, nil
	case *types.Double:
		return &types.Double{Value: -val.Value}, nil
	}

	return nil, fmt.Errorf("negate %s: %w", v.Kind(), ErrUnsupported)
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true,
}

var arithmeticOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
}

func (e *Evaluator) evalInfix(node *sql.Infix, row *types.Row, scope *Scope) (types.Value, error) {
	switch {
	case node.Operator == "AND":
		return e.evalAnd(node, row, scope)
	case node.Operator == "OR":
		return e.evalOr(node, row, scope)
	case comparisonOps[node.Operator]:
		return e.evalComparison(node, row, scope)
	case arithmeticOps[node.Operator]:
		return e.evalArithmetic(node, row, scope)
	}

	return nil, fmt.Errorf("operator %s: %w", node.Operator, ErrUnsupported)
}

// evalAnd short-circuits on the first false condition
func (e *Evaluator) evalAnd(node *sql.Infix, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.EvalCondition(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	if !left {
		return types.False, nil
	}

	right, err := e.EvalCondition(node.Right, row, scope)
	if err != nil {
		return nil, err
	}

	return types.NewBool(right), nil
}

// evalOr short-circuits on the first true condition
func (e *Evaluator) evalOr(node *sql.Infix, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.EvalCondition(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	if left {
		return types.True, nil
	}

	right, err := e.EvalCondition(node.Right, row, scope)
	if err != nil {
		return nil, err
	}

	return types.NewBool(right), nil
}

// evalComparison evaluates to false when either side is null, including
// NULL = NULL.
func (e *Evaluator) evalComparison(node *sql.Infix, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.Eval(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	right, err := e.Eval(node.Right, row, scope)
	if err != nil {
		return nil, err
	}

	cmp, ok := types.Compare(left, right)
	if !ok {
		return types.False, nil
	}

	switch node.Operator {
	case "=":
		return types.NewBool(cmp == 0), nil
	case "<>":
		return types.NewBool(cmp != 0), nil
	case "<":
		return types.NewBool(cmp < 0), nil
	case ">":
		return types.NewBool(cmp > 0), nil
	case "<=":
		return types.NewBool(cmp <= 0), nil
	case ">=":
		return types.NewBool(cmp >= 0), nil
	}

	return nil, fmt.Errorf("operator %s: %w", node.Operator, ErrUnsupported)
}

func (e *Evaluator) evalArithmetic(node *sql.Infix, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.Eval(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	right, err := e.Eval(node.Right, row, scope)
	if err != nil {
		return nil, err
	}

	if types.IsNull(left) || types.IsNull(right) {
		return types.Null, nil
	}

	// + with a string operand concatenates, stringifying the other side
	if node.Operator == "+" &&
		(left.Kind() == types.KindString || right.Kind() == types.KindString) {
		return &types.String{Value: left.Format() + right.Format()}, nil
	}

	if !types.IsNumeric(left) || !types.IsNumeric(right) {
		return nil, fmt.Errorf("%s %s %s: %w", left.Kind(), node.Operator, right.Kind(), ErrUnsupported)
	}

	// numeric promotion: double beats decimal beats int
	if left.Kind() == types.KindDouble || right.Kind() == types.KindDouble {
		return doubleArithmetic(node.Operator, asDouble(left), asDouble(right))
	}

	if left.Kind() == types.KindDecimal || right.Kind() == types.KindDecimal {
		dl, _ := types.AsDecimal(left)
		dr, _ := types.AsDecimal(right)

		return decimalArithmetic(node.Operator, dl, dr)
	}

	return intArithmetic(node.Operator, left.(*types.Int).Value, right.(*types.Int).Value)
}

func asDouble(v types.Value) float64 {
	d, _ := types.AsDecimal(v)
	return d.InexactFloat64()
}

func doubleArithmetic(op string, l, r float64) (types.Value, error) {
	switch op {
	case "+":
		return &types.Double{Value: l + r}, nil
	case "-":
		return &types.Double{Value: l - r}, nil
	case "*":
		return &types.Double{Value: l * r}, nil
	case "/":
		if r == 0 {
			return nil, ErrDivisionByZero
		}

		return &types.Double{Value: l / r}, nil
	case "%":
		if r == 0 {
			return nil, ErrDivisionByZero
		}

		return &types.Double{Value: math.Mod(l, r)}, nil
	}

	return nil, fmt.Errorf("operator %s: %w", op, ErrUnsupported)
}

func decimalArithmetic(op string, l, r decimal.Decimal) (types.Value, error) {
	switch op {
	case "+":
		return &types.Decimal{Value: l.Add(r)}, nil
	case "-":
		return &types.Decimal{Value: l.Sub(r)}, nil
	case "*":
		return &types.Decimal{Value: l.Mul(r)}, nil
	case "/":
		if r.IsZero() {
			return nil, ErrDivisionByZero
		}

		return &types.Decimal{Value: l.Div(r)}, nil
	case "%":
		if r.IsZero() {
			return nil, ErrDivisionByZero
		}

		return &types.Decimal{Value: l.Mod(r)}, nil
	}

	return nil, fmt.Errorf("operator %s: %w", op, ErrUnsupported)
}

func intArithmetic(op string, l, r int64) (types.Value, error) {
	switch op {
	case "+":
		return &types.Int{Value: l + r}, nil
	case "-":
		return &types.Int{Value: l - r}, nil
	case "*":
		return &types.Int{Value: l * r}, nil
	case "/":
		if r == 0 {
			return nil, ErrDivisionByZero
		}

		return &types.Int{Value: l / r}, nil
	case "%":
		if r == 0 {
			return nil, ErrDivisionByZero
		}

		return &types.Int{Value: l % r}, nil
	}

	return nil, fmt.Errorf("operator %s: %w", op, ErrUnsupported)
}

// evalCase returns the first WHEN arm whose condition is true, in order;
// ELSE or null when none match.
func (e *Evaluator) evalCase(node *sql.Case, row *types.Row, scope *Scope) (types.Value, error) {
	for _, when := range node.Whens {
		matched, err := e.EvalCondition(when.Cond, row, scope)
		if err != nil {
			return nil, err
		}

		if matched {
			return e.Eval(when.Result, row, scope)
		}
	}

	if node.Else != nil {
		return e.Eval(node.Else, row, scope)
	}

	return types.Null, nil
}

// evalIif evaluates the condition once and only the taken branch
func (e *Evaluator) evalIif(node *sql.Iif, row *types.Row, scope *Scope) (types.Value, error) {
	cond, err := e.EvalCondition(node.Cond, row, scope)
	if err != nil {
		return nil, err
	}

	if cond {
		return e.Eval(node.Then, row, scope)
	}

	return e.Eval(node.Else, row, scope)
}

func (e *Evaluator) evalCall(node *sql.Call, row *types.Row, scope *Scope) (types.Value, error) {
	fn, ok := e.funcs.Lookup(node.Name)
	if !ok {
		return nil, fmt.Errorf("unknown function %s: %w", node.Name, ErrUnsupported)
	}

	args := make([]types.Value, len(node.Args))

	for i, arg := range node.Args {
		// bare datepart keywords parse as column references
		if i == 0 && fn.DatePartArg {
			if ref, ok := arg.(*sql.ColumnRef); ok {
				args[i] = &types.String{Value: ref.Name}
				continue
			}
		}

		v, err := e.Eval(arg, row, scope)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	return e.funcs.Call(node.Name, args)
}

func (e *Evaluator) evalCast(node *sql.Cast, row *types.Row, scope *Scope) (types.Value, error) {
	v, err := e.Eval(node.Expr, row, scope)
	if err != nil {
		return nil, err
	}

	return castValue(v, node.Type, node.Style)
}

func (e *Evaluator) evalLike(node *sql.Like, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.Eval(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	pattern, err := e.Eval(node.Pattern, row, scope)
	if err != nil {
		return nil, err
	}

	if types.IsNull(left) || types.IsNull(pattern) {
		return types.False, nil
	}

	matched := Like(left.Format(), pattern.Format())

	return types.NewBool(matched != node.Not), nil
}

// evalIn is true when the value compares equal to any list item under the
// comparison coercion rules. A null left side makes both IN and NOT IN
// false.
func (e *Evaluator) evalIn(node *sql.In, row *types.Row, scope *Scope) (types.Value, error) {
	left, err := e.Eval(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	if types.IsNull(left) {
		return types.False, nil
	}

	found := false

	for _, item := range node.List {
		v, err := e.Eval(item, row, scope)
		if err != nil {
			return nil, err
		}

		if types.Equal(left, v) {
			found = true
			break
		}
	}

	return types.NewBool(found != node.Not), nil
}

// evalIsNull is true when the column is absent from the row or holds null
func (e *Evaluator) evalIsNull(node *sql.IsNull, row *types.Row, scope *Scope) (types.Value, error) {
	v, err := e.Eval(node.Left, row, scope)
	if err != nil {
		return nil, err
	}

	return types.NewBool(types.IsNull(v) != node.Not), nil
}
