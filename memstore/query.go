package memstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/fetchxml"
	"github.com/fetchql/fetchql/types"
)

const conditionTimeFormat = "2006-01-02T15:04:05"

func filterMatches(filter *fetchxml.Filter, row *types.Row) (bool, error) {
	conjunctive := !strings.EqualFold(filter.Type, "or")

	check := func(matched bool) (bool, bool) {
		if conjunctive && !matched {
			return false, true
		}

		if !conjunctive && matched {
			return true, true
		}

		return matched, false
	}

	for _, cond := range filter.Conditions {
		matched, err := conditionMatches(cond, row)
		if err != nil {
			return false, err
		}

		if result, decided := check(matched); decided {
			return result, nil
		}
	}

	for _, nested := range filter.Filters {
		matched, err := filterMatches(nested, row)
		if err != nil {
			return false, err
		}

		if result, decided := check(matched); decided {
			return result, nil
		}
	}

	return conjunctive, nil
}

// conditionMatches evaluates one leaf condition. Negated operators never
// match rows where the attribute is null, matching the remote store's
// behavior.
func conditionMatches(cond fetchxml.Condition, row *types.Row) (bool, error) {
	field, ok := row.Get(cond.Attribute)
	if !ok {
		field = types.Null
	}

	isNull := types.IsNull(field)

	switch cond.Operator {
	case "null":
		return isNull, nil
	case "not-null":
		return !isNull, nil
	}

	if isNull {
		return false, nil
	}

	switch cond.Operator {
	case "eq", "ne", "lt", "le", "gt", "ge":
		c, comparable := types.Compare(field, conditionValue(cond.Value, field))
		if !comparable {
			return false, nil
		}

		switch cond.Operator {
		case "eq":
			return c == 0, nil
		case "ne":
			return c != 0, nil
		case "lt":
			return c < 0, nil
		case "le":
			return c <= 0, nil
		case "gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "like":
		return eval.Like(field.Format(), cond.Value), nil
	case "not-like":
		return !eval.Like(field.Format(), cond.Value), nil
	case "in", "not-in":
		found := false

		for _, raw := range cond.Values {
			c, comparable := types.Compare(field, conditionValue(raw, field))
			if comparable && c == 0 {
				found = true
				break
			}
		}

		if cond.Operator == "in" {
			return found, nil
		}

		return !found, nil
	}

	return false, fmt.Errorf("condition operator %q: %w", cond.Operator, eval.ErrUnsupported)
}

// conditionValue converts the condition's raw text using the kind of the
// field it compares against.
func conditionValue(raw string, field types.Value) types.Value {
	switch field.Kind() {
	case types.KindBool:
		return types.NewBool(raw == "1" || strings.EqualFold(raw, "true"))
	case types.KindDateTime:
		if t, err := time.Parse(conditionTimeFormat, raw); err == nil {
			return &types.DateTime{Value: t.UTC()}
		}
	case types.KindInt, types.KindDecimal, types.KindDouble:
		if d, ok := types.ParseNumeric(raw); ok {
			return &types.Decimal{Value: d}
		}
	}

	return &types.String{Value: raw}
}

func sortRows(rows []*types.Row, orders []fetchxml.Order) {
	if len(orders) == 0 {
		return
	}

	sort.SliceStable(rows, func(a, b int) bool {
		for _, order := range orders {
			av, _ := rows[a].Get(order.Attribute)
			bv, _ := rows[b].Get(order.Attribute)

			c := compareNullsFirst(av, bv)
			if c == 0 {
				continue
			}

			if order.Descending == "true" {
				return c > 0
			}

			return c < 0
		}

		return false
	})
}

func compareNullsFirst(a, b types.Value) int {
	aNull := types.IsNull(a)
	bNull := types.IsNull(b)

	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}

	c, ok := types.Compare(a, b)
	if !ok {
		return 0
	}

	return c
}

// projectRows narrows each row to the requested attributes, applying
// aliases. With all-attributes the rows pass through untouched.
func projectRows(rows []*types.Row, entity *fetchxml.Entity) []*types.Row {
	if entity.AllAttributes != nil || len(entity.Attributes) == 0 {
		return rows
	}

	out := make([]*types.Row, len(rows))

	for i, row := range rows {
		projected := types.NewRow()

		for _, attr := range entity.Attributes {
			name := attr.Name
			if attr.Alias != "" {
				name = attr.Alias
			}

			v, ok := row.Get(attr.Name)
			if !ok {
				v = types.Null
			}

			projected.Set(name, v)
		}

		out[i] = projected
	}

	return out
}

// aggregateRows performs server-side aggregation the way the remote store
// does: groupby attributes key the groups, aggregate attributes reduce them.
// "count" counts rows, "countcolumn" counts non-null values.
func aggregateRows(rows []*types.Row, attrs []fetchxml.Attribute) ([]*types.Row, error) {
	type bucket struct {
		keys   map[string]types.Value
		counts map[string]int64
		sums   map[string]decimal.Decimal
		bounds map[string]types.Value
	}

	newBucket := func() *bucket {
		return &bucket{
			keys:   map[string]types.Value{},
			counts: map[string]int64{},
			sums:   map[string]decimal.Decimal{},
			bounds: map[string]types.Value{},
		}
	}

	buckets := map[string]*bucket{}

	var order []string

	grouped := false

	for _, attr := range attrs {
		if attr.GroupBy == "true" {
			grouped = true
		}
	}

	for _, row := range rows {
		var keyParts []string

		keyValues := map[string]types.Value{}

		for _, attr := range attrs {
			if attr.GroupBy != "true" {
				continue
			}

			v, ok := row.Get(attr.Name)
			if !ok {
				v = types.Null
			}

			keyValues[outputName(attr)] = v
			keyParts = append(keyParts, string(v.Kind())+":"+strings.ToLower(v.Format()))
		}

		key := strings.Join(keyParts, "\x00")

		b, ok := buckets[key]
		if !ok {
			b = newBucket()
			b.keys = keyValues
			buckets[key] = b
			order = append(order, key)
		}

		for _, attr := range attrs {
			if attr.Aggregate == "" {
				continue
			}

			name := outputName(attr)

			v, _ := row.Get(attr.Name)
			if v == nil {
				v = types.Null
			}

			switch attr.Aggregate {
			case "count":
				b.counts[name]++
			case "countcolumn":
				if !types.IsNull(v) {
					b.counts[name]++
				}
			case "sum", "avg":
				if types.IsNull(v) {
					continue
				}

				d, numeric := types.AsDecimal(v)
				if !numeric {
					return nil, fmt.Errorf("aggregate %s over %s: %w", attr.Aggregate, v.Kind(), eval.ErrUnsupported)
				}

				b.sums[name] = b.sums[name].Add(d)
				b.counts[name]++
			case "min", "max":
				if types.IsNull(v) {
					continue
				}

				best, seen := b.bounds[name]
				if !seen {
					b.bounds[name] = v
					continue
				}

				c, comparable := types.Compare(v, best)
				if !comparable {
					continue
				}

				if (attr.Aggregate == "min" && c < 0) || (attr.Aggregate == "max" && c > 0) {
					b.bounds[name] = v
				}
			default:
				return nil, fmt.Errorf("aggregate %q: %w", attr.Aggregate, eval.ErrUnsupported)
			}
		}
	}

	// a global aggregate over no rows still produces one result row
	if len(order) == 0 && !grouped {
		buckets[""] = newBucket()
		order = append(order, "")
	}

	out := make([]*types.Row, 0, len(order))

	for _, key := range order {
		b := buckets[key]
		row := types.NewRow()

		for _, attr := range attrs {
			name := outputName(attr)

			if attr.GroupBy == "true" {
				row.Set(name, b.keys[name])
				continue
			}

			switch attr.Aggregate {
			case "count", "countcolumn":
				row.Set(name, &types.Int{Value: b.counts[name]})
			case "sum":
				if b.counts[name] == 0 {
					row.Set(name, types.Null)
					continue
				}

				row.Set(name, &types.Decimal{Value: b.sums[name]})
			case "avg":
				if b.counts[name] == 0 {
					row.Set(name, types.Null)
					continue
				}

				avg := b.sums[name].Div(decimal.NewFromInt(b.counts[name]))
				row.Set(name, &types.Decimal{Value: avg})
			case "min", "max":
				v, seen := b.bounds[name]
				if !seen {
					v = types.Null
				}

				row.Set(name, v)
			}
		}

		out = append(out, row)
	}

	return out, nil
}

func outputName(attr fetchxml.Attribute) string {
	if attr.Alias != "" {
		return attr.Alias
	}

	return attr.Name
}
