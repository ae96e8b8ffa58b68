package plan

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/fetchxml"
	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
)

func compile(t *testing.T, input string, scope *eval.Scope) *Plan {
	t.Helper()

	stmt, err := sql.Parse(input)
	require.NoError(t, err)

	p, err := NewPlanner().Compile(stmt, scope)
	require.NoError(t, err)

	return p
}

func unmarshalFetch(t *testing.T, fetchXML string) *fetchxml.Fetch {
	t.Helper()

	var fetch fetchxml.Fetch
	require.NoError(t, xml.Unmarshal([]byte(fetchXML), &fetch))

	return &fetch
}

func TestCompileSelectPushdownRoundTrip(t *testing.T) {
	p := compile(t, "SELECT id FROM e WHERE a = 1 AND b > 5", nil)

	require.Equal(t, KindSelect, p.Kind)
	require.Equal(t, "e", p.Entity)

	fetch := unmarshalFetch(t, p.FetchXML)

	require.Equal(t, "e", fetch.Entity.Name)
	require.NotNil(t, fetch.Entity.Filter)
	require.Equal(t, "and", fetch.Entity.Filter.Type)
	require.Len(t, fetch.Entity.Filter.Conditions, 2)

	require.Equal(t, fetchxml.Condition{Attribute: "a", Operator: "eq", Value: "1"},
		fetch.Entity.Filter.Conditions[0])
	require.Equal(t, fetchxml.Condition{Attribute: "b", Operator: "gt", Value: "5"},
		fetch.Entity.Filter.Conditions[1])

	// fully pushed: projection sits directly on the scan
	project, ok := p.Root.(*ProjectNode)
	require.True(t, ok)

	_, ok = project.Child.(*ScanNode)
	require.True(t, ok)
}

func TestCompileSelectResidualPredicate(t *testing.T) {
	p := compile(t, "SELECT name FROM account WHERE revenue > 100 AND UPPER(name) = 'ACME'", nil)

	fetch := unmarshalFetch(t, p.FetchXML)

	// the comparable half pushes, the function call stays local
	require.NotNil(t, fetch.Entity.Filter)
	require.Len(t, fetch.Entity.Filter.Conditions, 1)
	require.Equal(t, "revenue", fetch.Entity.Filter.Conditions[0].Attribute)

	project, ok := p.Root.(*ProjectNode)
	require.True(t, ok)

	filter, ok := project.Child.(*FilterNode)
	require.True(t, ok)
	require.Equal(t, "(UPPER(name) = ACME)", filter.Pred.String())

	_, ok = filter.Child.(*ScanNode)
	require.True(t, ok)
}

func TestCompileSelectOrPoisonsPushdown(t *testing.T) {
	p := compile(t, "SELECT name FROM account WHERE revenue > 100 OR UPPER(name) = 'ACME'", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Nil(t, fetch.Entity.Filter, "an OR with an opaque arm must not push at all")

	project := p.Root.(*ProjectNode)
	_, ok := project.Child.(*FilterNode)
	require.True(t, ok)
}

func TestCompileSelectStar(t *testing.T) {
	p := compile(t, "SELECT * FROM account", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.NotNil(t, fetch.Entity.AllAttributes)
	require.Empty(t, fetch.Entity.Attributes)

	// no projection node: rows pass through as fetched
	_, ok := p.Root.(*ScanNode)
	require.True(t, ok)
}

func TestCompileSelectOrderPushdown(t *testing.T) {
	p := compile(t, "SELECT name FROM account ORDER BY revenue DESC, name", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Len(t, fetch.Entity.Orders, 2)
	require.Equal(t, fetchxml.Order{Attribute: "revenue", Descending: "true"}, fetch.Entity.Orders[0])
	require.Equal(t, fetchxml.Order{Attribute: "name"}, fetch.Entity.Orders[1])

	project := p.Root.(*ProjectNode)
	_, ok := project.Child.(*ScanNode)
	require.True(t, ok, "pushed sort needs no SortNode")
}

func TestCompileSelectLocalSort(t *testing.T) {
	p := compile(t, "SELECT name FROM account ORDER BY LEN(name)", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Empty(t, fetch.Entity.Orders)

	project := p.Root.(*ProjectNode)
	_, ok := project.Child.(*SortNode)
	require.True(t, ok)
}

func TestCompileSelectOrderByAlias(t *testing.T) {
	// an alias of an expression is not a remote attribute: sort locally
	// over the aliased expression
	p := compile(t, "SELECT revenue * 2 AS d FROM e ORDER BY d", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Empty(t, fetch.Entity.Orders)

	project := p.Root.(*ProjectNode)
	sortNode, ok := project.Child.(*SortNode)
	require.True(t, ok)
	require.Equal(t, "(revenue * 2)", sortNode.Keys[0].Expr.String())

	// an alias of a plain column still pushes on the underlying column
	p = compile(t, "SELECT revenue AS rev FROM e ORDER BY rev DESC", nil)

	fetch = unmarshalFetch(t, p.FetchXML)
	require.Equal(t, []fetchxml.Order{{Attribute: "revenue", Descending: "true"}}, fetch.Entity.Orders)

	project = p.Root.(*ProjectNode)
	_, ok = project.Child.(*ScanNode)
	require.True(t, ok)
}

func TestCompileSelectTop(t *testing.T) {
	pushed := compile(t, "SELECT TOP 3 name FROM account", nil)

	fetch := unmarshalFetch(t, pushed.FetchXML)
	require.Equal(t, "3", fetch.Top)

	if _, ok := pushed.Root.(*LimitNode); ok {
		t.Fatal("pushed TOP must not add a LimitNode")
	}

	local := compile(t, "SELECT TOP 3 name FROM account WHERE UPPER(name) = 'A'", nil)

	fetch = unmarshalFetch(t, local.FetchXML)
	require.Empty(t, fetch.Top, "TOP above a local filter would drop wrong rows remotely")

	_, ok := local.Root.(*LimitNode)
	require.True(t, ok)
}

func TestCompileVariableFolding(t *testing.T) {
	scope := eval.NewScope()
	require.NoError(t, scope.Declare("@min", "int", &types.Int{Value: 100}))

	p := compile(t, "SELECT name FROM account WHERE revenue > @min", scope)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.NotNil(t, fetch.Entity.Filter)
	require.Equal(t, fetchxml.Condition{Attribute: "revenue", Operator: "gt", Value: "100"},
		fetch.Entity.Filter.Conditions[0])
}

func TestCompileUndeclaredVariable(t *testing.T) {
	stmt, err := sql.Parse("SELECT name FROM account WHERE revenue > @nope")
	require.NoError(t, err)

	_, err = NewPlanner().Compile(stmt, eval.NewScope())
	require.ErrorIs(t, err, eval.ErrUndeclaredVariable)
}

func TestCompileAggregatePushdown(t *testing.T) {
	p := compile(t, "SELECT status, COUNT(*) AS total FROM account GROUP BY status", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Equal(t, "true", fetch.Aggregate)
	require.Len(t, fetch.Entity.Attributes, 2)
	require.Equal(t, fetchxml.Attribute{Name: "status", Alias: "status", GroupBy: "true"},
		fetch.Entity.Attributes[0])
	require.Equal(t, fetchxml.Attribute{Name: "accountid", Aggregate: "count", Alias: "total"},
		fetch.Entity.Attributes[1])

	_, ok := p.Root.(*ScanNode)
	require.True(t, ok, "pushed aggregation is scan-only")
}

func TestCompileAggregateLocalFallback(t *testing.T) {
	p := compile(t, "SELECT SUM(revenue + bonus) AS t FROM e", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Empty(t, fetch.Aggregate, "expression aggregates cannot push")

	project, ok := p.Root.(*ProjectNode)
	require.True(t, ok)

	agg, ok := project.Child.(*AggregateNode)
	require.True(t, ok)
	require.Len(t, agg.Aggs, 1)
	require.Equal(t, "sum", agg.Aggs[0].Func)
	require.Equal(t, "t", agg.Aggs[0].Alias)

	// the scan fetches the raw inputs of the aggregate
	names := make([]string, len(fetch.Entity.Attributes))
	for i, attr := range fetch.Entity.Attributes {
		names[i] = attr.Name
	}

	require.ElementsMatch(t, []string{"revenue", "bonus"}, names)
}

func TestCompileAggregateLocalWhenPredicateStaysLocal(t *testing.T) {
	p := compile(t, "SELECT status, COUNT(*) AS total FROM account WHERE UPPER(name) = 'A' GROUP BY status", nil)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Empty(t, fetch.Aggregate, "a residual predicate forbids remote aggregation")

	project := p.Root.(*ProjectNode)
	agg, ok := project.Child.(*AggregateNode)
	require.True(t, ok)

	_, ok = agg.Child.(*FilterNode)
	require.True(t, ok)
}

func TestCompileUpdate(t *testing.T) {
	p := compile(t, "UPDATE account SET name = 'acme' WHERE accountid = 'a1'", nil)

	require.Equal(t, KindUpdate, p.Kind)
	require.Len(t, p.Assignments, 1)
	require.Equal(t, "name", p.Assignments[0].Column)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.NotNil(t, fetch.Entity.AllAttributes)
	require.NotNil(t, fetch.Entity.Filter)
}

func TestCompileDelete(t *testing.T) {
	p := compile(t, "DELETE FROM contact WHERE lastname IS NULL", nil)

	require.Equal(t, KindDelete, p.Kind)
	require.Empty(t, p.Assignments)

	fetch := unmarshalFetch(t, p.FetchXML)
	require.Equal(t, "contact", fetch.Entity.Name)
	require.Equal(t, "null", fetch.Entity.Filter.Conditions[0].Operator)
}
