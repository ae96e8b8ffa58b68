package fetchxml

import (
	"strings"

	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
)

// comparison operator → fetchxml condition operator.
// The remote ne/not-like/not-in operators never match null attributes,
// matching SQL three-valued comparison semantics, so all of these push
// down without divergence.
var comparisonOperators = map[string]string{
	"=":  "eq",
	"<>": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

// flippedOperators rewrites literal-on-the-left comparisons
var flippedOperators = map[string]string{
	"=":  "eq",
	"<>": "ne",
	"<":  "gt",
	"<=": "ge",
	">":  "lt",
	">=": "le",
}

// TranspilePredicate lowers a WHERE fragment into a filter group. ok=false
// means the fragment (or part of it) has no FetchXML equivalent and must be
// evaluated client-side instead.
func TranspilePredicate(expr sql.Expression) (*Filter, bool) {
	switch node := expr.(type) {
	case *sql.Infix:
		if node.Operator == "AND" || node.Operator == "OR" {
			return transpileGroup(node)
		}

		cond, ok := transpileComparison(node)
		if !ok {
			return nil, false
		}

		return &Filter{Type: "and", Conditions: []Condition{cond}}, true
	case *sql.Like:
		cond, ok := transpileLike(node)
		if !ok {
			return nil, false
		}

		return &Filter{Type: "and", Conditions: []Condition{cond}}, true
	case *sql.In:
		cond, ok := transpileIn(node)
		if !ok {
			return nil, false
		}

		return &Filter{Type: "and", Conditions: []Condition{cond}}, true
	case *sql.IsNull:
		cond, ok := transpileIsNull(node)
		if !ok {
			return nil, false
		}

		return &Filter{Type: "and", Conditions: []Condition{cond}}, true
	}

	return nil, false
}

// transpileGroup mirrors the AST's AND/OR structure as nested filter groups
func transpileGroup(node *sql.Infix) (*Filter, bool) {
	filterType := strings.ToLower(node.Operator)

	left, ok := TranspilePredicate(node.Left)
	if !ok {
		return nil, false
	}

	right, ok := TranspilePredicate(node.Right)
	if !ok {
		return nil, false
	}

	group := &Filter{Type: filterType}

	for _, child := range []*Filter{left, right} {
		// flatten same-typed child groups to keep the document shallow
		if child.Type == filterType && len(child.Filters) == 0 {
			group.Conditions = append(group.Conditions, child.Conditions...)
			continue
		}

		if len(child.Conditions) == 1 && len(child.Filters) == 0 {
			group.Conditions = append(group.Conditions, child.Conditions[0])
			continue
		}

		group.Filters = append(group.Filters, child)
	}

	return group, true
}

func transpileComparison(node *sql.Infix) (Condition, bool) {
	ops := comparisonOperators

	column, okCol := node.Left.(*sql.ColumnRef)
	literal, okLit := node.Right.(*sql.Literal)

	if !okCol || !okLit {
		// literal on the left: flip the operator
		column, okCol = node.Right.(*sql.ColumnRef)
		literal, okLit = node.Left.(*sql.Literal)
		ops = flippedOperators
	}

	if !okCol || !okLit || column.Name == "*" {
		return Condition{}, false
	}

	// comparisons against NULL are constant under three-valued logic and
	// have no condition-element equivalent
	if types.IsNull(literal.Value) {
		return Condition{}, false
	}

	op, ok := ops[node.Operator]
	if !ok {
		return Condition{}, false
	}

	return Condition{
		Attribute: column.Name,
		Operator:  op,
		Value:     conditionValue(literal.Value),
	}, true
}

func transpileLike(node *sql.Like) (Condition, bool) {
	column, okCol := node.Left.(*sql.ColumnRef)
	pattern, okPat := node.Pattern.(*sql.Literal)

	if !okCol || !okPat || types.IsNull(pattern.Value) {
		return Condition{}, false
	}

	op := "like"
	if node.Not {
		op = "not-like"
	}

	return Condition{
		Attribute: column.Name,
		Operator:  op,
		Value:     pattern.Value.Format(),
	}, true
}

func transpileIn(node *sql.In) (Condition, bool) {
	column, ok := node.Left.(*sql.ColumnRef)
	if !ok {
		return Condition{}, false
	}

	values := make([]string, 0, len(node.List))

	for _, item := range node.List {
		literal, ok := item.(*sql.Literal)
		if !ok || types.IsNull(literal.Value) {
			return Condition{}, false
		}

		values = append(values, conditionValue(literal.Value))
	}

	op := "in"
	if node.Not {
		op = "not-in"
	}

	return Condition{Attribute: column.Name, Operator: op, Values: values}, true
}

func transpileIsNull(node *sql.IsNull) (Condition, bool) {
	column, ok := node.Left.(*sql.ColumnRef)
	if !ok {
		return Condition{}, false
	}

	op := "null"
	if node.Not {
		op = "not-null"
	}

	return Condition{Attribute: column.Name, Operator: op}, true
}

// TranspileOrder lowers an ORDER BY key; only plain attribute sorts are
// expressible.
func TranspileOrder(item sql.OrderItem) (Order, bool) {
	column, ok := item.Expr.(*sql.ColumnRef)
	if !ok || column.Name == "*" {
		return Order{}, false
	}

	order := Order{Attribute: column.Name}
	if item.Desc {
		order.Descending = "true"
	}

	return order, true
}

// aggregateNames maps SQL aggregate functions to fetchxml aggregate kinds
var aggregateNames = map[string]string{
	"count": "countcolumn",
	"sum":   "sum",
	"avg":   "avg",
	"min":   "min",
	"max":   "max",
}

// TranspileAggregate lowers one aggregate projection item. COUNT(*) becomes
// a row count over the entity's id attribute, COUNT(col) a countcolumn.
func TranspileAggregate(call *sql.Call, alias, idAttribute string) (Attribute, bool) {
	name, ok := aggregateNames[strings.ToLower(call.Name)]
	if !ok || len(call.Args) != 1 {
		return Attribute{}, false
	}

	column, ok := call.Args[0].(*sql.ColumnRef)
	if !ok {
		return Attribute{}, false
	}

	if column.Name == "*" {
		if !strings.EqualFold(call.Name, "count") {
			return Attribute{}, false
		}

		return Attribute{Name: idAttribute, Aggregate: "count", Alias: alias}, true
	}

	return Attribute{Name: column.Name, Aggregate: name, Alias: alias}, true
}

// conditionValue renders a literal as a condition value attribute
func conditionValue(v types.Value) string {
	switch val := v.(type) {
	case *types.Bool:
		if val.Value {
			return "1"
		}

		return "0"
	case *types.DateTime:
		return val.Value.Format("2006-01-02T15:04:05")
	}

	return v.Format()
}
