package fetchxml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fetchql/fetchql/sql"
)

func whereExpr(t *testing.T, where string) sql.Expression {
	t.Helper()

	stmt, err := sql.Parse("SELECT a FROM e WHERE " + where)
	require.NoError(t, err)

	return stmt.(*sql.SelectStatement).Where
}

func TestTranspilePredicate(t *testing.T) {
	tests := []struct {
		name     string
		where    string
		expected *Filter
	}{
		{
			name:  "equality",
			where: "name = 'acme'",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "name", Operator: "eq", Value: "acme"},
			}},
		},
		{
			name:  "flipped comparison",
			where: "100 < revenue",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "revenue", Operator: "gt", Value: "100"},
			}},
		},
		{
			name:  "and group flattens",
			where: "a = 1 AND b > 5 AND c <> 'x'",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "a", Operator: "eq", Value: "1"},
				{Attribute: "b", Operator: "gt", Value: "5"},
				{Attribute: "c", Operator: "ne", Value: "x"},
			}},
		},
		{
			name:  "or group",
			where: "a = 1 OR b = 2",
			expected: &Filter{Type: "or", Conditions: []Condition{
				{Attribute: "a", Operator: "eq", Value: "1"},
				{Attribute: "b", Operator: "eq", Value: "2"},
			}},
		},
		{
			name:  "nested groups mirror the predicate",
			where: "a = 1 AND (b = 2 OR c = 3)",
			expected: &Filter{
				Type:       "and",
				Conditions: []Condition{{Attribute: "a", Operator: "eq", Value: "1"}},
				Filters: []*Filter{
					{Type: "or", Conditions: []Condition{
						{Attribute: "b", Operator: "eq", Value: "2"},
						{Attribute: "c", Operator: "eq", Value: "3"},
					}},
				},
			},
		},
		{
			name:  "like",
			where: "name LIKE 'north%'",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "name", Operator: "like", Value: "north%"},
			}},
		},
		{
			name:  "not like",
			where: "name NOT LIKE 'south%'",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "name", Operator: "not-like", Value: "south%"},
			}},
		},
		{
			name:  "in list",
			where: "statecode IN (0, 1)",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "statecode", Operator: "in", Values: []string{"0", "1"}},
			}},
		},
		{
			name:  "not in list",
			where: "statecode NOT IN (2, 3)",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "statecode", Operator: "not-in", Values: []string{"2", "3"}},
			}},
		},
		{
			name:  "is null",
			where: "revenue IS NULL",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "revenue", Operator: "null"},
			}},
		},
		{
			name:  "is not null",
			where: "revenue IS NOT NULL",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "revenue", Operator: "not-null"},
			}},
		},
		{
			name:  "boolean literal",
			where: "isprivate = TRUE",
			expected: &Filter{Type: "and", Conditions: []Condition{
				{Attribute: "isprivate", Operator: "eq", Value: "1"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, ok := TranspilePredicate(whereExpr(t, tt.where))
			require.True(t, ok, "expected %q to be transpilable", tt.where)

			if diff := cmp.Diff(tt.expected, filter); diff != "" {
				t.Errorf("filter mismatch (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestTranspilePredicateNotTranspilable(t *testing.T) {
	tests := []string{
		// NULL comparisons are constant under three-valued logic
		"name = NULL",
		"NULL = name",
		// column to column comparisons have no condition form
		"a = b",
		// expressions and function calls must run client-side
		"a + 1 = 2",
		"UPPER(name) = 'ACME'",
		"name LIKE other_column",
		"a IN (1, b)",
		"a IN (1, NULL)",
		// one opaque arm poisons the whole OR group
		"a = 1 OR UPPER(b) = 'X'",
		"NOT a = 1",
	}

	for _, where := range tests {
		if _, ok := TranspilePredicate(whereExpr(t, where)); ok {
			t.Errorf("expected %q to be untranspilable", where)
		}
	}
}

func TestTranspileOrder(t *testing.T) {
	stmt, err := sql.Parse("SELECT a FROM e ORDER BY name, revenue DESC, a + 1")
	require.NoError(t, err)

	orderBy := stmt.(*sql.SelectStatement).OrderBy
	require.Len(t, orderBy, 3)

	first, ok := TranspileOrder(orderBy[0])
	require.True(t, ok)
	require.Equal(t, Order{Attribute: "name"}, first)

	second, ok := TranspileOrder(orderBy[1])
	require.True(t, ok)
	require.Equal(t, Order{Attribute: "revenue", Descending: "true"}, second)

	_, ok = TranspileOrder(orderBy[2])
	require.False(t, ok, "expression sort keys are not expressible")
}

func TestTranspileAggregate(t *testing.T) {
	parse := func(projection string) *sql.Call {
		stmt, err := sql.Parse("SELECT " + projection + " FROM account")
		require.NoError(t, err)

		return stmt.(*sql.SelectStatement).Projection[0].Expr.(*sql.Call)
	}

	attr, ok := TranspileAggregate(parse("COUNT(*)"), "total", "accountid")
	require.True(t, ok)
	require.Equal(t, Attribute{Name: "accountid", Aggregate: "count", Alias: "total"}, attr)

	attr, ok = TranspileAggregate(parse("COUNT(name)"), "named", "accountid")
	require.True(t, ok)
	require.Equal(t, Attribute{Name: "name", Aggregate: "countcolumn", Alias: "named"}, attr)

	attr, ok = TranspileAggregate(parse("SUM(revenue)"), "rev", "accountid")
	require.True(t, ok)
	require.Equal(t, Attribute{Name: "revenue", Aggregate: "sum", Alias: "rev"}, attr)

	_, ok = TranspileAggregate(parse("SUM(*)"), "bad", "accountid")
	require.False(t, ok, "SUM(*) is not expressible")

	_, ok = TranspileAggregate(parse("SUM(a + b)"), "bad", "accountid")
	require.False(t, ok, "aggregates over expressions are not expressible")
}
