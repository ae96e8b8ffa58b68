package plan

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
	"github.com/shopspring/decimal"
)

// AggregateItem is one aggregate of an AggregateNode's output
type AggregateItem struct {
	Alias string
	Func  string         // count, sum, avg, min, max
	Arg   sql.Expression // nil for COUNT(*)
}

// AggregateNode performs client-side hash aggregation when the remote
// dialect cannot take the GROUP BY. Groups preserve first-seen order.
type AggregateNode struct {
	Child   Node
	GroupBy []ProjectionItem
	Aggs    []AggregateItem
	Ev      *eval.Evaluator
	Scope   *eval.Scope

	out    []*types.Row
	pos    int
	primed bool
}

type aggregator interface {
	add(v types.Value) error
	result() types.Value
}

type group struct {
	keyValues   []types.Value
	aggregators []aggregator
}

// Next drains the child into groups on first use, then emits one row per
// group.
func (n *AggregateNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	if !n.primed {
		if err := n.prime(ctx, pc); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n.pos >= len(n.out) {
		return nil, io.EOF
	}

	row := n.out[n.pos]
	n.pos++

	return row, nil
}

func (n *AggregateNode) prime(ctx context.Context, pc *Context) error {
	groups := map[string]*group{}

	var order []string

	sawRows := false

	for {
		row, err := n.Child.Next(ctx, pc)
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		sawRows = true

		keyValues := make([]types.Value, len(n.GroupBy))

		for i, gb := range n.GroupBy {
			v, err := n.Ev.Eval(gb.Expr, row, n.Scope)
			if err != nil {
				return err
			}

			keyValues[i] = v
		}

		key := groupKey(keyValues)

		g, ok := groups[key]
		if !ok {
			g = &group{keyValues: keyValues, aggregators: n.makeAggregators()}
			groups[key] = g
			order = append(order, key)
		}

		for i, agg := range n.Aggs {
			v := types.Value(types.True) // COUNT(*) counts the row itself

			if agg.Arg != nil {
				v, err = n.Ev.Eval(agg.Arg, row, n.Scope)
				if err != nil {
					return err
				}
			}

			if err := g.aggregators[i].add(v); err != nil {
				return err
			}
		}
	}

	// a global aggregate over empty input still yields one row
	if !sawRows && len(n.GroupBy) == 0 {
		g := &group{aggregators: n.makeAggregators()}
		groups[""] = g
		order = append(order, "")
	}

	for _, key := range order {
		g := groups[key]
		row := types.NewRow()

		for i, gb := range n.GroupBy {
			row.Set(gb.Name, g.keyValues[i])
		}

		for i, agg := range n.Aggs {
			row.Set(agg.Alias, g.aggregators[i].result())
		}

		n.out = append(n.out, row)
	}

	n.primed = true

	return nil
}

func (n *AggregateNode) clone() Node {
	return &AggregateNode{Child: n.Child.clone(), GroupBy: n.GroupBy, Aggs: n.Aggs, Ev: n.Ev, Scope: n.Scope}
}

func (n *AggregateNode) makeAggregators() []aggregator {
	aggs := make([]aggregator, len(n.Aggs))

	for i, item := range n.Aggs {
		switch strings.ToLower(item.Func) {
		case "count":
			aggs[i] = &countAggregator{countNulls: item.Arg == nil}
		case "sum":
			aggs[i] = &sumAggregator{}
		case "avg":
			aggs[i] = &avgAggregator{}
		case "min":
			aggs[i] = &boundAggregator{wantMin: true}
		case "max":
			aggs[i] = &boundAggregator{}
		default:
			aggs[i] = &badAggregator{name: item.Func}
		}
	}

	return aggs
}

// groupKey renders group values into a hashable key. The kind prefix keeps
// 1 and '1' in separate groups.
func groupKey(values []types.Value) string {
	parts := make([]string, len(values))

	for i, v := range values {
		if types.IsNull(v) {
			parts[i] = "null:"
			continue
		}

		parts[i] = string(v.Kind()) + ":" + strings.ToLower(v.Format())
	}

	return strings.Join(parts, "\x00")
}

type countAggregator struct {
	countNulls bool
	n          int64
}

func (a *countAggregator) add(v types.Value) error {
	if !a.countNulls && types.IsNull(v) {
		return nil
	}

	a.n++

	return nil
}

func (a *countAggregator) result() types.Value {
	return &types.Int{Value: a.n}
}

type sumAggregator struct {
	sum       decimal.Decimal
	seen      bool
	isDouble  bool
	isDecimal bool
}

func (a *sumAggregator) add(v types.Value) error {
	if types.IsNull(v) {
		return nil
	}

	d, ok := types.AsDecimal(v)
	if !ok {
		return fmt.Errorf("sum of %s: %w", v.Kind(), eval.ErrUnsupported)
	}

	switch v.Kind() {
	case types.KindDouble:
		a.isDouble = true
	case types.KindDecimal:
		a.isDecimal = true
	}

	a.sum = a.sum.Add(d)
	a.seen = true

	return nil
}

func (a *sumAggregator) result() types.Value {
	if !a.seen {
		return types.Null
	}

	switch {
	case a.isDouble:
		return &types.Double{Value: a.sum.InexactFloat64()}
	case a.isDecimal:
		return &types.Decimal{Value: a.sum}
	default:
		return &types.Int{Value: a.sum.IntPart()}
	}
}

type avgAggregator struct {
	sum      decimal.Decimal
	n        int64
	isDouble bool
}

func (a *avgAggregator) add(v types.Value) error {
	if types.IsNull(v) {
		return nil
	}

	d, ok := types.AsDecimal(v)
	if !ok {
		return fmt.Errorf("avg of %s: %w", v.Kind(), eval.ErrUnsupported)
	}

	if v.Kind() == types.KindDouble {
		a.isDouble = true
	}

	a.sum = a.sum.Add(d)
	a.n++

	return nil
}

func (a *avgAggregator) result() types.Value {
	if a.n == 0 {
		return types.Null
	}

	avg := a.sum.Div(decimal.NewFromInt(a.n))

	if a.isDouble {
		return &types.Double{Value: avg.InexactFloat64()}
	}

	return &types.Decimal{Value: avg}
}

type boundAggregator struct {
	wantMin bool
	best    types.Value
}

func (a *boundAggregator) add(v types.Value) error {
	if types.IsNull(v) {
		return nil
	}

	if a.best == nil {
		a.best = v
		return nil
	}

	c, ok := types.Compare(v, a.best)
	if !ok {
		return nil
	}

	if (a.wantMin && c < 0) || (!a.wantMin && c > 0) {
		a.best = v
	}

	return nil
}

func (a *boundAggregator) result() types.Value {
	if a.best == nil {
		return types.Null
	}

	return a.best
}

type badAggregator struct {
	name string
}

func (a *badAggregator) add(types.Value) error {
	return fmt.Errorf("aggregate %s: %w", a.name, eval.ErrUnsupported)
}

func (a *badAggregator) result() types.Value {
	return types.Null
}
