package plan

import (
	"context"
	"io"
	"time"

	"github.com/fetchql/fetchql/types"
)

// Result is the fully materialized output of one plan execution
type Result struct {
	Entity       string
	Columns      []string
	Rows         []*types.Row
	RowCount     int64
	Elapsed      time.Duration
	FetchXML     string
	MoreRecords  bool
	PagingCookie string
	TotalCount   int64
}

// Execute runs the plan to completion and buffers every row
func Execute(ctx context.Context, p *Plan, pc *Context) (*Result, error) {
	stream := Stream(p, pc)

	result := &Result{Entity: p.Entity, FetchXML: p.FetchXML}

	for {
		row, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if len(result.Columns) == 0 {
			result.Columns = row.Columns()
		}

		result.Rows = append(result.Rows, row)
	}

	result.RowCount = pc.Stats.RowsOut
	result.Elapsed = pc.Stats.Elapsed
	result.MoreRecords = pc.Stats.MoreRecords
	result.PagingCookie = pc.Stats.PagingCookie
	result.TotalCount = pc.Stats.TotalCount

	return result, nil
}

// RowStream pulls rows from a running plan one at a time
type RowStream struct {
	root Node
	pc   *Context
	done bool
}

// Stream prepares a lazy execution of the plan. The operator tree is copied
// so the compiled plan stays reusable, and no remote call happens until the
// first Next.
func Stream(p *Plan, pc *Context) *RowStream {
	return &RowStream{root: p.Root.clone(), pc: pc}
}

// Next returns the next result row, io.EOF at the end, or the context
// error when the caller cancels mid-stream.
func (s *RowStream) Next(ctx context.Context) (*types.Row, error) {
	if s.done {
		return nil, io.EOF
	}

	if s.pc.Stats.StartedAt.IsZero() {
		s.pc.Stats.StartedAt = time.Now()
	}

	row, err := s.root.Next(ctx, s.pc)
	if err != nil {
		s.done = true
		s.pc.Stats.Elapsed = time.Since(s.pc.Stats.StartedAt)

		return nil, err
	}

	s.pc.Stats.RowsOut++

	return row, nil
}

// Stats exposes the execution statistics accumulated so far
func (s *RowStream) Stats() Stats {
	return s.pc.Stats
}
