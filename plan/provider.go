package plan

import (
	"context"

	"github.com/fetchql/fetchql/types"
)

// Page is one batch of rows returned by the remote collaborator, together
// with its continuation state.
type Page struct {
	Rows         []*types.Row
	MoreRecords  bool
	PagingCookie string
	TotalCount   int64
}

// RowProvider is the contract the core consumes to execute a transpiled
// query. The query text carries its own paging attributes; the provider is
// opaque I/O and the core never inspects transport details.
type RowProvider interface {
	Retrieve(ctx context.Context, fetchXML string) (*Page, error)
}
