// Package engine is the facade tying the pipeline together: parse the
// statement, compile it into a plan, and execute the plan against a row
// provider.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fetchql/fetchql/eval"
	"github.com/fetchql/fetchql/plan"
	"github.com/fetchql/fetchql/sql"
	"github.com/fetchql/fetchql/types"
)

// Statement kinds without a plan of their own
const (
	KindDeclare plan.StatementKind = "declare"
	KindSet     plan.StatementKind = "set"
)

// DefaultPageSize is the page size requested from the provider when the
// engine is not configured otherwise.
const DefaultPageSize = 500

// Result is the outcome of one statement. DECLARE and SET produce an empty
// result; UPDATE and DELETE produce the matched rows plus, for UPDATE, the
// compiled assignments for the bulk executors.
type Result struct {
	*plan.Result

	Kind        plan.StatementKind
	Assignments []sql.Assignment
}

// Engine executes statements against one row provider
type Engine struct {
	provider plan.RowProvider
	planner  *plan.Planner
	pageSize int
	log      logrus.FieldLogger
}

// Option configures an Engine
type Option func(*Engine)

// WithPageSize sets the page size requested from the provider
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithLogger sets the logger used during execution
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an engine over the provider
func New(provider plan.RowProvider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		planner:  plan.NewPlanner(),
		pageSize: DefaultPageSize,
		log:      logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute parses, compiles and runs one statement, buffering every row
func (e *Engine) Execute(ctx context.Context, sqlText string, scope *eval.Scope) (*Result, error) {
	stmt, err := sql.Parse(sqlText)
	if err != nil {
		return nil, err
	}

	return e.executeStatement(ctx, stmt, scope)
}

// ExecuteScript runs a semicolon-separated batch, sharing the scope across
// statements. Execution stops at the first error.
func (e *Engine) ExecuteScript(ctx context.Context, sqlText string, scope *eval.Scope) ([]*Result, error) {
	stmts, err := sql.ParseScript(sqlText)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(stmts))

	for _, stmt := range stmts {
		result, err := e.executeStatement(ctx, stmt, scope)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

// Stream parses and compiles one statement and returns a lazy row stream.
// Only SELECT statements stream; everything else goes through Execute.
// Cancellation is the stream's concern: each Next takes its own context.
func (e *Engine) Stream(sqlText string, scope *eval.Scope) (*plan.RowStream, *plan.Plan, error) {
	stmt, err := sql.Parse(sqlText)
	if err != nil {
		return nil, nil, err
	}

	if _, ok := stmt.(*sql.SelectStatement); !ok {
		return nil, nil, fmt.Errorf("statement %T does not stream: %w", stmt, eval.ErrUnsupported)
	}

	compiled, err := e.planner.Compile(stmt, scope)
	if err != nil {
		return nil, nil, err
	}

	pc := e.newContext()

	return plan.Stream(compiled, pc), compiled, nil
}

func (e *Engine) executeStatement(ctx context.Context, stmt sql.Statement, scope *eval.Scope) (*Result, error) {
	switch s := stmt.(type) {
	case *sql.DeclareStatement:
		return e.executeDeclare(s, scope)
	case *sql.SetStatement:
		return e.executeSet(s, scope)
	}

	compiled, err := e.planner.Compile(stmt, scope)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	e.log.WithField("entity", compiled.Entity).
		WithField("kind", string(compiled.Kind)).
		Debug("executing plan")

	result, err := plan.Execute(ctx, compiled, e.newContext())
	if err != nil {
		return nil, err
	}

	e.log.WithField("rows", result.RowCount).
		WithField("elapsed", time.Since(started)).
		Debug("plan finished")

	return &Result{
		Result:      result,
		Kind:        compiled.Kind,
		Assignments: compiled.Assignments,
	}, nil
}

func (e *Engine) executeDeclare(stmt *sql.DeclareStatement, scope *eval.Scope) (*Result, error) {
	var initial types.Value = types.Null

	if stmt.Init != nil {
		v, err := e.planner.Evaluator().Eval(stmt.Init, nil, scope)
		if err != nil {
			return nil, err
		}

		initial = v
	}

	if err := scope.Declare(stmt.Name, stmt.Type, initial); err != nil {
		return nil, err
	}

	return &Result{Result: &plan.Result{}, Kind: KindDeclare}, nil
}

func (e *Engine) executeSet(stmt *sql.SetStatement, scope *eval.Scope) (*Result, error) {
	v, err := e.planner.Evaluator().Eval(stmt.Value, nil, scope)
	if err != nil {
		return nil, err
	}

	if err := scope.Set(stmt.Name, v); err != nil {
		return nil, err
	}

	return &Result{Result: &plan.Result{}, Kind: KindSet}, nil
}

func (e *Engine) newContext() *plan.Context {
	pc := plan.NewContext(e.provider, e.pageSize)
	pc.Log = e.log

	return pc
}
