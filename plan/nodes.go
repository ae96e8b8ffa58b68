package plan

import (
	"context"
	"io"
	"sort"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/fetchxml"
	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
)

// Node is one operator of the executable plan tree. Nodes form a pull-based
// pipeline: Next returns the next row or io.EOF, re-checking cancellation
// per row.
type Node interface {
	Next(ctx context.Context, pc *Context) (*types.Row, error)

	// clone returns a copy with zeroed execution state, so one compiled
	// plan can run any number of times.
	clone() Node
}

// ScanNode is the plan leaf: it drives the remote collaborator page by page
// and emits rows one at a time, giving the pipeline natural backpressure.
type ScanNode struct {
	Fetch *fetchxml.Fetch

	page   int
	cookie string
	buffer []*types.Row
	done   bool
}

// Next returns the next remote row, fetching the next page when the buffer
// drains.
func (n *ScanNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for len(n.buffer) == 0 {
		if n.done {
			return nil, io.EOF
		}

		if err := n.fetchPage(ctx, pc); err != nil {
			return nil, err
		}
	}

	row := n.buffer[0]
	n.buffer = n.buffer[1:]

	return row, nil
}

// clone copies the fetch document too, since paging attributes are written
// into it as the scan advances.
func (n *ScanNode) clone() Node {
	fetch := *n.Fetch

	return &ScanNode{Fetch: &fetch}
}

func (n *ScanNode) fetchPage(ctx context.Context, pc *Context) error {
	n.page++
	n.Fetch.SetPage(n.page, pc.PageSize, n.cookie)

	query, err := n.Fetch.Marshal()
	if err != nil {
		return err
	}

	page, err := pc.Provider.Retrieve(ctx, query)
	if err != nil {
		return err
	}

	n.buffer = page.Rows
	n.cookie = page.PagingCookie
	n.done = !page.MoreRecords

	pc.Stats.PagesFetched++
	pc.Stats.MoreRecords = page.MoreRecords
	pc.Stats.PagingCookie = page.PagingCookie
	pc.Stats.TotalCount = page.TotalCount

	pc.logger().WithField("rows", len(page.Rows)).
		WithField("page", n.page).
		Debug("fetched remote page")

	return nil
}

// FilterNode evaluates the residual predicate the remote store could not
// express.
type FilterNode struct {
	Child Node
	Pred  sql.Expression
	Ev    *eval.Evaluator
	Scope *eval.Scope
}

// Next returns the next child row satisfying the predicate
func (n *FilterNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	for {
		row, err := n.Child.Next(ctx, pc)
		if err != nil {
			return nil, err
		}

		matched, err := n.Ev.EvalCondition(n.Pred, row, n.Scope)
		if err != nil {
			return nil, err
		}

		if matched {
			return row, nil
		}
	}
}

func (n *FilterNode) clone() Node {
	return &FilterNode{Child: n.Child.clone(), Pred: n.Pred, Ev: n.Ev, Scope: n.Scope}
}

// ProjectionItem is one output column of a ProjectNode
type ProjectionItem struct {
	Name string
	Expr sql.Expression
}

// ProjectNode computes the projection list client-side
type ProjectNode struct {
	Child Node
	Items []ProjectionItem
	Ev    *eval.Evaluator
	Scope *eval.Scope
}

// Next projects the next child row into the output shape
func (n *ProjectNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	row, err := n.Child.Next(ctx, pc)
	if err != nil {
		return nil, err
	}

	out := types.NewRow()

	for _, item := range n.Items {
		v, err := n.Ev.Eval(item.Expr, row, n.Scope)
		if err != nil {
			return nil, err
		}

		out.Set(item.Name, v)
	}

	return out, nil
}

func (n *ProjectNode) clone() Node {
	return &ProjectNode{Child: n.Child.clone(), Items: n.Items, Ev: n.Ev, Scope: n.Scope}
}

// SortNode buffers its input and emits it ordered by the sort keys. Null
// keys sort first.
type SortNode struct {
	Child Node
	Keys  []sql.OrderItem
	Ev    *eval.Evaluator
	Scope *eval.Scope

	sorted []*types.Row
	pos    int
	primed bool
}

// Next drains and sorts the child on first use, then emits rows in order
func (n *SortNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	if !n.primed {
		if err := n.prime(ctx, pc); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n.pos >= len(n.sorted) {
		return nil, io.EOF
	}

	row := n.sorted[n.pos]
	n.pos++

	return row, nil
}

func (n *SortNode) prime(ctx context.Context, pc *Context) error {
	for {
		row, err := n.Child.Next(ctx, pc)
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		n.sorted = append(n.sorted, row)
	}

	keys := make([][]types.Value, len(n.sorted))

	for i, row := range n.sorted {
		keys[i] = make([]types.Value, len(n.Keys))

		for k, key := range n.Keys {
			v, err := n.Ev.Eval(key.Expr, row, n.Scope)
			if err != nil {
				return err
			}

			keys[i][k] = v
		}
	}

	indexes := make([]int, len(n.sorted))
	for i := range indexes {
		indexes[i] = i
	}

	sort.SliceStable(indexes, func(a, b int) bool {
		for k, key := range n.Keys {
			c := compareSortKeys(keys[indexes[a]][k], keys[indexes[b]][k])
			if c == 0 {
				continue
			}

			if key.Desc {
				return c > 0
			}

			return c < 0
		}

		return false
	})

	ordered := make([]*types.Row, len(n.sorted))
	for i, idx := range indexes {
		ordered[i] = n.sorted[idx]
	}

	n.sorted = ordered
	n.primed = true

	return nil
}

func (n *SortNode) clone() Node {
	return &SortNode{Child: n.Child.clone(), Keys: n.Keys, Ev: n.Ev, Scope: n.Scope}
}

func compareSortKeys(a, b types.Value) int {
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

// LimitNode caps the number of rows flowing out of its child
type LimitNode struct {
	Child Node
	N     int64

	emitted int64
}

// Next returns the next child row until the cap is reached
func (n *LimitNode) Next(ctx context.Context, pc *Context) (*types.Row, error) {
	if n.emitted >= n.N {
		return nil, io.EOF
	}

	row, err := n.Child.Next(ctx, pc)
	if err != nil {
		return nil, err
	}

	n.emitted++

	return row, nil
}

func (n *LimitNode) clone() Node {
	return &LimitNode{Child: n.Child.clone(), N: n.N}
}
