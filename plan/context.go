package plan

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Stats accumulates per-execution statistics. A plan may be executed once
// per Context; re-execution requires a fresh Context.
type Stats struct {
	RowsOut      int64
	StartedAt    time.Time
	Elapsed      time.Duration
	MoreRecords  bool
	PagingCookie string
	TotalCount   int64
	PagesFetched int64
}

// Context carries the per-execution mutable state of one plan run
type Context struct {
	Provider RowProvider
	PageSize int
	Log      logrus.FieldLogger
	Stats    Stats
}

// NewContext creates an execution context for one plan run
func NewContext(provider RowProvider, pageSize int) *Context {
	return &Context{
		Provider: provider,
		PageSize: pageSize,
		Log:      logrus.StandardLogger(),
	}
}

func (pc *Context) logger() logrus.FieldLogger {
	if pc.Log != nil {
		return pc.Log
	}

	return logrus.StandardLogger()
}
