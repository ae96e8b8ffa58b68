package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fetchql/fetchql/types"
)

const fixture = `
account:
  - accountid: 9b2620b1-ca0b-4561-9fdd-95a9f7a79f4a
    name: northwind
    revenue: 5000
    statecode: 0
  - accountid: 2c54b9a1-5f59-4a83-a1ab-b47f19f9b651
    name: southbridge
    revenue: 100
    statecode: 0
  - accountid: 7a6d8f6a-7b13-4a6f-8d17-9a3a61d7a111
    name: acme
    statecode: 1
`

func loadStore(t *testing.T) *Store {
	t.Helper()

	store := New()
	require.NoError(t, store.LoadYAML([]byte(fixture)))

	return store
}

func retrieve(t *testing.T, store *Store, fetchXML string) []*types.Row {
	t.Helper()

	page, err := store.Retrieve(context.Background(), fetchXML)
	require.NoError(t, err)

	return page.Rows
}

func names(rows []*types.Row) []string {
	out := make([]string, len(rows))

	for i, row := range rows {
		v, ok := row.Get("name")
		if !ok || types.IsNull(v) {
			out[i] = ""
			continue
		}

		out[i] = v.Format()
	}

	return out
}

func TestLoadYAML(t *testing.T) {
	store := loadStore(t)

	rows := store.Rows("account")
	require.Len(t, rows, 3)

	id, ok := rows[0].Get("accountid")
	require.True(t, ok)
	require.Equal(t, types.KindGuid, id.Kind())

	revenue, ok := rows[0].Get("revenue")
	require.True(t, ok)
	require.Equal(t, types.KindInt, revenue.Kind())
}

func TestRetrieveFilter(t *testing.T) {
	store := loadStore(t)

	rows := retrieve(t, store, `<fetch>
  <entity name="account">
    <all-attributes></all-attributes>
    <filter type="and">
      <condition attribute="statecode" operator="eq" value="0"></condition>
      <condition attribute="revenue" operator="gt" value="1000"></condition>
    </filter>
  </entity>
</fetch>`)

	require.Equal(t, []string{"northwind"}, names(rows))
}

func TestRetrieveOrFilter(t *testing.T) {
	store := loadStore(t)

	rows := retrieve(t, store, `<fetch>
  <entity name="account">
    <all-attributes></all-attributes>
    <filter type="or">
      <condition attribute="name" operator="like" value="north%"></condition>
      <condition attribute="name" operator="eq" value="acme"></condition>
    </filter>
  </entity>
</fetch>`)

	require.Equal(t, []string{"northwind", "acme"}, names(rows))
}

func TestRetrieveNegatedOperatorsSkipNulls(t *testing.T) {
	store := loadStore(t)

	// acme has no revenue attribute: ne/not-like/not-in never match it
	for _, condition := range []string{
		`<condition attribute="revenue" operator="ne" value="100"></condition>`,
		`<condition attribute="revenue" operator="not-in"><value>100</value></condition>`,
	} {
		rows := retrieve(t, store, `<fetch><entity name="account"><all-attributes></all-attributes><filter type="and">`+condition+`</filter></entity></fetch>`)

		require.Equal(t, []string{"northwind"}, names(rows), condition)
	}

	rows := retrieve(t, store, `<fetch><entity name="account"><all-attributes></all-attributes><filter type="and"><condition attribute="revenue" operator="null"></condition></filter></entity></fetch>`)
	require.Equal(t, []string{"acme"}, names(rows))
}

func TestRetrieveSortAndTop(t *testing.T) {
	store := loadStore(t)

	rows := retrieve(t, store, `<fetch top="2">
  <entity name="account">
    <attribute name="name"></attribute>
    <order attribute="revenue" descending="true"></order>
  </entity>
</fetch>`)

	// nulls sort first, so descending puts them last
	require.Equal(t, []string{"northwind", "southbridge"}, names(rows))
}

func TestRetrieveProjectionWithAlias(t *testing.T) {
	store := loadStore(t)

	rows := retrieve(t, store, `<fetch>
  <entity name="account">
    <attribute name="name" alias="accountname"></attribute>
  </entity>
</fetch>`)

	require.Len(t, rows, 3)

	v, ok := rows[0].Get("accountname")
	require.True(t, ok)
	require.Equal(t, "northwind", v.Format())
	require.Equal(t, 1, rows[0].Len())
}

func TestRetrievePaging(t *testing.T) {
	store := loadStore(t)

	first, err := store.Retrieve(context.Background(), `<fetch page="1" count="2" returntotalrecordcount="true"><entity name="account"><all-attributes></all-attributes></entity></fetch>`)
	require.NoError(t, err)

	require.Len(t, first.Rows, 2)
	require.True(t, first.MoreRecords)
	require.Equal(t, "2", first.PagingCookie)
	require.Equal(t, int64(3), first.TotalCount)

	second, err := store.Retrieve(context.Background(), `<fetch page="2" count="2" paging-cookie="2"><entity name="account"><all-attributes></all-attributes></entity></fetch>`)
	require.NoError(t, err)

	require.Len(t, second.Rows, 1)
	require.False(t, second.MoreRecords)
	require.Empty(t, second.PagingCookie)
}

func TestRetrieveAggregate(t *testing.T) {
	store := loadStore(t)

	rows := retrieve(t, store, `<fetch aggregate="true">
  <entity name="account">
    <attribute name="statecode" alias="state" groupby="true"></attribute>
    <attribute name="accountid" alias="total" aggregate="count"></attribute>
    <attribute name="revenue" alias="rev" aggregate="sum"></attribute>
  </entity>
</fetch>`)

	require.Len(t, rows, 2)

	total, _ := rows[0].Get("total")
	rev, _ := rows[0].Get("rev")
	require.Equal(t, "2", total.Format())
	require.Equal(t, "5100", rev.Format())

	total, _ = rows[1].Get("total")
	rev, _ = rows[1].Get("rev")
	require.Equal(t, "1", total.Format())
	require.True(t, types.IsNull(rev), "sum over only nulls is null")
}

func TestRetrieveGlobalAggregateOverEmptyEntity(t *testing.T) {
	store := New()

	rows := retrieve(t, store, `<fetch aggregate="true">
  <entity name="missing">
    <attribute name="missingid" alias="n" aggregate="count"></attribute>
  </entity>
</fetch>`)

	require.Len(t, rows, 1)

	n, _ := rows[0].Get("n")
	require.Equal(t, "0", n.Format())
}

func TestRetrieveCancelledContext(t *testing.T) {
	store := loadStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Retrieve(ctx, `<fetch><entity name="account"></entity></fetch>`)
	require.ErrorIs(t, err, context.Canceled)
}
