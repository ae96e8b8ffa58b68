// Package plan compiles parsed statements into executable operator trees,
// deciding per predicate, projection, sort and aggregate whether the remote
// dialect can take it or the client must evaluate it.
package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/fetchxml"
	"github.com/fetchql/fetchql/sql"
)

// StatementKind tags what a compiled plan does
type StatementKind string

// Statement kinds
const (
	KindSelect StatementKind = "select"
	KindUpdate StatementKind = "update"
	KindDelete StatementKind = "delete"
)

// Plan is the compiled form of one statement: the root operator, the
// transpiled remote query text, and the target entity. It is immutable
// once compiled: each execution runs on its own copy of the operator tree,
// so a plan may be executed any number of times, each against a fresh
// Context.
type Plan struct {
	Kind     StatementKind
	Entity   string
	FetchXML string
	Root     Node

	// Assignments carries the SET clauses of an UPDATE plan for the
	// external bulk executors.
	Assignments []sql.Assignment
}

// Planner compiles statements against a shared read-only evaluator
type Planner struct {
	ev *eval.Evaluator
}

// NewPlanner creates a planner with the default function registry
func NewPlanner() *Planner {
	return &Planner{ev: eval.New()}
}

// Evaluator returns the planner's evaluator
func (p *Planner) Evaluator() *eval.Evaluator {
	return p.ev
}

// Compile lowers a statement into a plan. Scope supplies @variable values,
// which are bound at compile time so variable predicates stay eligible for
// push-down.
func (p *Planner) Compile(stmt sql.Statement, scope *eval.Scope) (*Plan, error) {
	switch s := stmt.(type) {
	case *sql.SelectStatement:
		return p.compileSelect(s, scope)
	case *sql.UpdateStatement:
		return p.compileUpdate(s, scope)
	case *sql.DeleteStatement:
		return p.compileDelete(s, scope)
	}

	return nil, fmt.Errorf("statement %T: %w", stmt, eval.ErrUnsupported)
}

func (p *Planner) compileSelect(stmt *sql.SelectStatement, scope *eval.Scope) (*Plan, error) {
	fetch := &fetchxml.Fetch{Entity: fetchxml.Entity{Name: stmt.Entity}}

	pushedFilter, localPred, err := p.splitWhere(stmt.Where, scope)
	if err != nil {
		return nil, err
	}

	fetch.Entity.Filter = pushedFilter

	if isAggregateQuery(stmt) {
		return p.compileAggregate(stmt, scope, fetch, localPred)
	}

	// projection
	star := false
	items := make([]ProjectionItem, 0, len(stmt.Projection))

	for _, item := range stmt.Projection {
		if ref, ok := item.Expr.(*sql.ColumnRef); ok && ref.Name == "*" {
			star = true
			continue
		}

		items = append(items, ProjectionItem{Name: projectionName(item), Expr: item.Expr})
	}

	if star && len(items) > 0 {
		return nil, fmt.Errorf("mixing * with other projection items: %w", eval.ErrUnsupported)
	}

	// sort: push plain column keys, else sort locally. Keys naming a
	// projection alias are resolved first, since the alias is not a
	// remote attribute.
	orderBy := resolveSortAliases(stmt.OrderBy, stmt.Projection)
	localSort := false

	if len(orderBy) > 0 {
		orders := make([]fetchxml.Order, 0, len(orderBy))

		for _, key := range orderBy {
			order, ok := fetchxml.TranspileOrder(key)
			if !ok {
				localSort = true
				break
			}

			orders = append(orders, order)
		}

		if !localSort {
			fetch.Entity.Orders = orders
		}
	}

	// attribute selection
	if star {
		fetch.Entity.AllAttributes = &fetchxml.AllAttributes{}
	} else {
		names := referencedColumns(projectionExprs(items), localPred, orderBy)
		fetch.Entity.Attributes = attributeList(names)
	}

	// top pushes only when nothing local can drop or reorder rows
	pushTop := stmt.Top != nil && localPred == nil && !localSort
	if pushTop {
		fetch.Top = strconv.FormatInt(*stmt.Top, 10)
	}

	query, err := fetch.Marshal()
	if err != nil {
		return nil, err
	}

	var root Node = &ScanNode{Fetch: fetch}

	if localPred != nil {
		root = &FilterNode{Child: root, Pred: localPred, Ev: p.ev, Scope: scope}
	}

	if localSort {
		root = &SortNode{Child: root, Keys: orderBy, Ev: p.ev, Scope: scope}
	}

	if !star {
		root = &ProjectNode{Child: root, Items: items, Ev: p.ev, Scope: scope}
	}

	if stmt.Top != nil && !pushTop {
		root = &LimitNode{Child: root, N: *stmt.Top}
	}

	return &Plan{Kind: KindSelect, Entity: stmt.Entity, FetchXML: query, Root: root}, nil
}

// splitWhere splits the predicate into remote and client-side parts: AND
// conjuncts split individually, anything else pushes whole or not at all.
// Push-down is preferred whenever semantically equivalent, since remote
// evaluation reduces rows transferred.
func (p *Planner) splitWhere(where sql.Expression, scope *eval.Scope) (*fetchxml.Filter, sql.Expression, error) {
	if where == nil {
		return nil, nil, nil
	}

	folded, err := foldVariables(where, scope)
	if err != nil {
		return nil, nil, err
	}

	var (
		pushed []*fetchxml.Filter
		local  []sql.Expression
	)

	for _, conjunct := range splitConjuncts(folded) {
		if filter, ok := fetchxml.TranspilePredicate(conjunct); ok {
			pushed = append(pushed, filter)
			continue
		}

		local = append(local, conjunct)
	}

	return mergeFilters(pushed), combineAnd(local), nil
}

// splitConjuncts flattens a top-level AND tree
func splitConjuncts(expr sql.Expression) []sql.Expression {
	if infix, ok := expr.(*sql.Infix); ok && infix.Operator == "AND" {
		return append(splitConjuncts(infix.Left), splitConjuncts(infix.Right)...)
	}

	return []sql.Expression{expr}
}

func combineAnd(exprs []sql.Expression) sql.Expression {
	if len(exprs) == 0 {
		return nil
	}

	combined := exprs[0]

	for _, expr := range exprs[1:] {
		combined = &sql.Infix{Left: combined, Operator: "AND", Right: expr}
	}

	return combined
}

func mergeFilters(filters []*fetchxml.Filter) *fetchxml.Filter {
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	}

	merged := &fetchxml.Filter{Type: "and"}

	for _, f := range filters {
		if f.Type == "and" && len(f.Filters) == 0 {
			merged.Conditions = append(merged.Conditions, f.Conditions...)
			continue
		}

		merged.Filters = append(merged.Filters, f)
	}

	return merged
}

var aggregateFuncs = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
}

func isAggregateCall(expr sql.Expression) (*sql.Call, bool) {
	call, ok := expr.(*sql.Call)
	if !ok {
		return nil, false
	}

	return call, aggregateFuncs[strings.ToLower(call.Name)]
}

func isAggregateQuery(stmt *sql.SelectStatement) bool {
	if len(stmt.GroupBy) > 0 {
		return true
	}

	for _, item := range stmt.Projection {
		if _, ok := isAggregateCall(item.Expr); ok {
			return true
		}
	}

	return false
}

type aggProjection struct {
	item  sql.SelectItem
	call  *sql.Call // nil for group key items
	alias string
}

// compileAggregate plans a GROUP BY query. The whole aggregation pushes
// down only when the remote result would be identical: every predicate
// pushed, plain column group keys, and a projection of group keys and
// simple aggregates. Otherwise the scan fetches raw rows and a client-side
// hash aggregate takes over.
func (p *Planner) compileAggregate(stmt *sql.SelectStatement, scope *eval.Scope, fetch *fetchxml.Fetch, localPred sql.Expression) (*Plan, error) {
	projections := make([]aggProjection, 0, len(stmt.Projection))

	for i, item := range stmt.Projection {
		ap := aggProjection{item: item, alias: item.Alias}

		if call, ok := isAggregateCall(item.Expr); ok {
			ap.call = call

			if ap.alias == "" {
				ap.alias = strings.ToLower(call.Name) + strconv.Itoa(i+1)
			}
		} else if ap.alias == "" {
			ap.alias = projectionName(item)
		}

		projections = append(projections, ap)
	}

	if pushed, plan, err := p.tryPushAggregate(stmt, scope, fetch, localPred, projections); pushed || err != nil {
		return plan, err
	}

	// client-side aggregation over raw rows
	groupItems := make([]ProjectionItem, 0, len(stmt.GroupBy))
	for _, gb := range stmt.GroupBy {
		groupItems = append(groupItems, ProjectionItem{Name: gb.String(), Expr: gb})
	}

	aggItems := make([]AggregateItem, 0, len(projections))
	finalItems := make([]ProjectionItem, 0, len(projections))

	for _, ap := range projections {
		if ap.call == nil {
			// group key item: re-resolve against the aggregate output row
			finalItems = append(finalItems, ProjectionItem{
				Name: ap.alias,
				Expr: groupOutputRef(ap.item.Expr, groupItems),
			})
			continue
		}

		agg := AggregateItem{Alias: ap.alias, Func: strings.ToLower(ap.call.Name)}

		if len(ap.call.Args) != 1 {
			return nil, fmt.Errorf("%s: aggregates take exactly one argument", ap.call.Name)
		}

		if ref, ok := ap.call.Args[0].(*sql.ColumnRef); !ok || ref.Name != "*" {
			agg.Arg = ap.call.Args[0]
		} else if agg.Func != "count" {
			return nil, fmt.Errorf("%s(*): %w", ap.call.Name, eval.ErrUnsupported)
		}

		aggItems = append(aggItems, agg)
		finalItems = append(finalItems, ProjectionItem{
			Name: ap.alias,
			Expr: &sql.ColumnRef{Name: ap.alias},
		})
	}

	names := referencedColumns(rawAggregateInputs(stmt, aggItems), localPred, nil)
	if len(names) == 0 {
		fetch.Entity.AllAttributes = &fetchxml.AllAttributes{}
	} else {
		fetch.Entity.Attributes = attributeList(names)
	}

	query, err := fetch.Marshal()
	if err != nil {
		return nil, err
	}

	var root Node = &ScanNode{Fetch: fetch}

	if localPred != nil {
		root = &FilterNode{Child: root, Pred: localPred, Ev: p.ev, Scope: scope}
	}

	root = &AggregateNode{Child: root, GroupBy: groupItems, Aggs: aggItems, Ev: p.ev, Scope: scope}
	root = &ProjectNode{Child: root, Items: finalItems, Ev: p.ev, Scope: scope}

	if len(stmt.OrderBy) > 0 {
		root = &SortNode{Child: root, Keys: stmt.OrderBy, Ev: p.ev, Scope: scope}
	}

	if stmt.Top != nil {
		root = &LimitNode{Child: root, N: *stmt.Top}
	}

	return &Plan{Kind: KindSelect, Entity: stmt.Entity, FetchXML: query, Root: root}, nil
}

// tryPushAggregate attempts whole-aggregation push-down
func (p *Planner) tryPushAggregate(stmt *sql.SelectStatement, scope *eval.Scope, fetch *fetchxml.Fetch, localPred sql.Expression, projections []aggProjection) (bool, *Plan, error) {
	if localPred != nil {
		return false, nil, nil
	}

	groupNames := map[string]bool{}

	for _, gb := range stmt.GroupBy {
		ref, ok := gb.(*sql.ColumnRef)
		if !ok || ref.Name == "*" {
			return false, nil, nil
		}

		groupNames[strings.ToLower(ref.Name)] = true
	}

	attributes := make([]fetchxml.Attribute, 0, len(projections))

	for _, ap := range projections {
		if ap.call != nil {
			attr, ok := fetchxml.TranspileAggregate(ap.call, ap.alias, idAttribute(stmt.Entity))
			if !ok {
				return false, nil, nil
			}

			attributes = append(attributes, attr)
			continue
		}

		ref, ok := ap.item.Expr.(*sql.ColumnRef)
		if !ok || !groupNames[strings.ToLower(ref.Name)] {
			return false, nil, nil
		}

		attributes = append(attributes, fetchxml.Attribute{
			Name:    ref.Name,
			Alias:   ap.alias,
			GroupBy: "true",
		})
	}

	fetch.Aggregate = "true"
	fetch.Entity.Attributes = attributes

	if stmt.Top != nil && len(stmt.OrderBy) == 0 {
		fetch.Top = strconv.FormatInt(*stmt.Top, 10)
	}

	query, err := fetch.Marshal()
	if err != nil {
		return true, nil, err
	}

	var root Node = &ScanNode{Fetch: fetch}

	if len(stmt.OrderBy) > 0 {
		root = &SortNode{Child: root, Keys: stmt.OrderBy, Ev: p.ev, Scope: scope}

		if stmt.Top != nil {
			root = &LimitNode{Child: root, N: *stmt.Top}
		}
	}

	return true, &Plan{Kind: KindSelect, Entity: stmt.Entity, FetchXML: query, Root: root}, nil
}

func (p *Planner) compileUpdate(stmt *sql.UpdateStatement, scope *eval.Scope) (*Plan, error) {
	plan, err := p.compileMutationScan(KindUpdate, stmt.Entity, stmt.Where, scope)
	if err != nil {
		return nil, err
	}

	plan.Assignments = stmt.Assignments

	return plan, nil
}

func (p *Planner) compileDelete(stmt *sql.DeleteStatement, scope *eval.Scope) (*Plan, error) {
	return p.compileMutationScan(KindDelete, stmt.Entity, stmt.Where, scope)
}

// compileMutationScan plans the row-matching part of UPDATE and DELETE; the
// writes themselves belong to the external bulk executors.
func (p *Planner) compileMutationScan(kind StatementKind, entity string, where sql.Expression, scope *eval.Scope) (*Plan, error) {
	fetch := &fetchxml.Fetch{Entity: fetchxml.Entity{
		Name:          entity,
		AllAttributes: &fetchxml.AllAttributes{},
	}}

	pushedFilter, localPred, err := p.splitWhere(where, scope)
	if err != nil {
		return nil, err
	}

	fetch.Entity.Filter = pushedFilter

	query, err := fetch.Marshal()
	if err != nil {
		return nil, err
	}

	var root Node = &ScanNode{Fetch: fetch}

	if localPred != nil {
		root = &FilterNode{Child: root, Pred: localPred, Ev: p.ev, Scope: scope}
	}

	return &Plan{Kind: kind, Entity: entity, FetchXML: query, Root: root}, nil
}

// resolveSortAliases rewrites sort keys naming a projection alias into the
// aliased expression, so the sort orders by the values the projection emits
// rather than by a nonexistent remote attribute.
func resolveSortAliases(keys []sql.OrderItem, projection []sql.SelectItem) []sql.OrderItem {
	if len(keys) == 0 {
		return keys
	}

	resolved := make([]sql.OrderItem, len(keys))

	for i, key := range keys {
		resolved[i] = key

		ref, ok := key.Expr.(*sql.ColumnRef)
		if !ok {
			continue
		}

		for _, item := range projection {
			if item.Alias != "" && strings.EqualFold(item.Alias, ref.Name) {
				resolved[i].Expr = item.Expr
				break
			}
		}
	}

	return resolved
}

// projectionName picks the output column name of a projection item
func projectionName(item sql.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}

	if ref, ok := item.Expr.(*sql.ColumnRef); ok {
		return ref.Name
	}

	return item.Expr.String()
}

// groupOutputRef maps a projected group key onto the aggregate output row
func groupOutputRef(expr sql.Expression, groupItems []ProjectionItem) sql.Expression {
	text := expr.String()

	for _, gi := range groupItems {
		if gi.Expr.String() == text {
			return &sql.ColumnRef{Name: gi.Name}
		}
	}

	return expr
}

func projectionExprs(items []ProjectionItem) []sql.Expression {
	exprs := make([]sql.Expression, len(items))
	for i, item := range items {
		exprs[i] = item.Expr
	}

	return exprs
}

func rawAggregateInputs(stmt *sql.SelectStatement, aggs []AggregateItem) []sql.Expression {
	exprs := make([]sql.Expression, 0, len(stmt.GroupBy)+len(aggs))
	exprs = append(exprs, stmt.GroupBy...)

	for _, agg := range aggs {
		if agg.Arg != nil {
			exprs = append(exprs, agg.Arg)
		}
	}

	return exprs
}

// referencedColumns collects the attribute names a set of expressions, a
// residual predicate and sort keys read from the scanned row.
func referencedColumns(exprs []sql.Expression, localPred sql.Expression, orderBy []sql.OrderItem) []string {
	seen := map[string]bool{}

	var names []string

	add := func(name string) {
		key := strings.ToLower(name)
		if name == "*" || seen[key] {
			return
		}

		seen[key] = true
		names = append(names, name)
	}

	var walk func(expr sql.Expression)
	walk = func(expr sql.Expression) {
		switch node := expr.(type) {
		case *sql.ColumnRef:
			add(node.Name)
		case *sql.Prefix:
			walk(node.Right)
		case *sql.Infix:
			walk(node.Left)
			walk(node.Right)
		case *sql.Case:
			for _, when := range node.Whens {
				walk(when.Cond)
				walk(when.Result)
			}

			if node.Else != nil {
				walk(node.Else)
			}
		case *sql.Iif:
			walk(node.Cond)
			walk(node.Then)
			walk(node.Else)
		case *sql.Call:
			for _, arg := range node.Args {
				walk(arg)
			}
		case *sql.Cast:
			walk(node.Expr)
		case *sql.Like:
			walk(node.Left)
			walk(node.Pattern)
		case *sql.In:
			walk(node.Left)

			for _, item := range node.List {
				walk(item)
			}
		case *sql.IsNull:
			walk(node.Left)
		}
	}

	for _, expr := range exprs {
		walk(expr)
	}

	if localPred != nil {
		walk(localPred)
	}

	for _, key := range orderBy {
		walk(key.Expr)
	}

	return names
}

func attributeList(names []string) []fetchxml.Attribute {
	attrs := make([]fetchxml.Attribute, len(names))
	for i, name := range names {
		attrs[i] = fetchxml.Attribute{Name: name}
	}

	return attrs
}

// idAttribute follows the remote store's primary-key naming convention
func idAttribute(entity string) string {
	return strings.ToLower(entity) + "id"
}
