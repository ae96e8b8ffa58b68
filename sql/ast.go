package sql

import (
	"strings"

	"github.com/fetchql/fetchql/types"
)

// Node represents a node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents a SQL statement
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression
type Expression interface {
	Node
	expressionNode()
}

// SelectItem represents one entry of a SELECT projection list
type SelectItem struct {
	Expr  Expression
	Alias string
}

// OrderItem represents one ORDER BY key
type OrderItem struct {
	Expr Expression
	Desc bool
}

// SelectStatement represents a SELECT query
type SelectStatement struct {
	Token      Token // the SELECT token
	Top        *int64
	Projection []SelectItem
	Entity     string
	Where      Expression
	GroupBy    []Expression
	OrderBy    []OrderItem
}

func (s *SelectStatement) statementNode()       {}
func (s *SelectStatement) TokenLiteral() string { return s.Token.Literal }
func (s *SelectStatement) String() string       { return "SELECT statement" }

// Assignment represents a SET clause in UPDATE
type Assignment struct {
	Column string
	Value  Expression
}

// UpdateStatement represents an UPDATE statement
type UpdateStatement struct {
	Token       Token // the UPDATE token
	Entity      string
	Assignments []Assignment
	Where       Expression
}

func (u *UpdateStatement) statementNode()       {}
func (u *UpdateStatement) TokenLiteral() string { return u.Token.Literal }
func (u *UpdateStatement) String() string       { return "UPDATE statement" }

// DeleteStatement represents a DELETE statement
type DeleteStatement struct {
	Token  Token // the DELETE token
	Entity string
	Where  Expression
}

func (d *DeleteStatement) statementNode()       {}
func (d *DeleteStatement) TokenLiteral() string { return d.Token.Literal }
func (d *DeleteStatement) String() string       { return "DELETE statement" }

// DeclareStatement represents a DECLARE @variable statement
type DeclareStatement struct {
	Token Token // the DECLARE token
	Name  string
	Type  string
	Init  Expression // optional initial value
}

func (d *DeclareStatement) statementNode()       {}
func (d *DeclareStatement) TokenLiteral() string { return d.Token.Literal }
func (d *DeclareStatement) String() string       { return "DECLARE statement" }

// SetStatement represents a SET @variable statement
type SetStatement struct {
	Token Token // the SET token
	Name  string
	Value Expression
}

func (s *SetStatement) statementNode()       {}
func (s *SetStatement) TokenLiteral() string { return s.Token.Literal }
func (s *SetStatement) String() string       { return "SET statement" }

// Literal represents a constant value
type Literal struct {
	Token Token
	Value types.Value
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string       { return l.Token.Literal }

// ColumnRef represents a reference to an entity attribute
type ColumnRef struct {
	Token Token
	Name  string
}

func (c *ColumnRef) expressionNode()      {}
func (c *ColumnRef) TokenLiteral() string { return c.Token.Literal }
func (c *ColumnRef) String() string       { return c.Name }

// Variable represents an @variable reference
type Variable struct {
	Token Token
	Name  string // includes the '@'
}

func (v *Variable) expressionNode()      {}
func (v *Variable) TokenLiteral() string { return v.Token.Literal }
func (v *Variable) String() string       { return v.Name }

// Infix represents a binary expression: arithmetic, comparison, AND/OR
type Infix struct {
	Token    Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (i *Infix) expressionNode()      {}
func (i *Infix) TokenLiteral() string { return i.Token.Literal }
func (i *Infix) String() string {
	return "(" + i.Left.String() + " " + i.Operator + " " + i.Right.String() + ")"
}

// Prefix represents a unary expression: negate or NOT
type Prefix struct {
	Token    Token // the operator token
	Operator string
	Right    Expression
}

func (p *Prefix) expressionNode()      {}
func (p *Prefix) TokenLiteral() string { return p.Token.Literal }
func (p *Prefix) String() string       { return "(" + p.Operator + " " + p.Right.String() + ")" }

// WhenClause represents one WHEN ... THEN ... arm of a CASE expression
type WhenClause struct {
	Cond   Expression
	Result Expression
}

// Case represents a searched CASE expression
type Case struct {
	Token Token // the CASE token
	Whens []WhenClause
	Else  Expression // nil when no ELSE clause
}

func (c *Case) expressionNode()      {}
func (c *Case) TokenLiteral() string { return c.Token.Literal }
func (c *Case) String() string       { return "CASE expression" }

// Iif represents an IIF(cond, then, else) expression
type Iif struct {
	Token Token // the IIF token
	Cond  Expression
	Then  Expression
	Else  Expression
}

func (i *Iif) expressionNode()      {}
func (i *Iif) TokenLiteral() string { return i.Token.Literal }
func (i *Iif) String() string {
	return "IIF(" + i.Cond.String() + ", " + i.Then.String() + ", " + i.Else.String() + ")"
}

// Call represents a scalar or aggregate function call
type Call struct {
	Token Token // the function name token
	Name  string
	Args  []Expression
}

func (c *Call) expressionNode()      {}
func (c *Call) TokenLiteral() string { return c.Token.Literal }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}

	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Cast represents a CAST(expr AS type) or CONVERT(type, expr[, style]) expression
type Cast struct {
	Token Token // the CAST or CONVERT token
	Expr  Expression
	Type  string
	Style *int64 // optional CONVERT style
}

func (c *Cast) expressionNode()      {}
func (c *Cast) TokenLiteral() string { return c.Token.Literal }
func (c *Cast) String() string       { return "CAST(" + c.Expr.String() + " AS " + c.Type + ")" }

// Like represents a [NOT] LIKE predicate
type Like struct {
	Token   Token // the LIKE token
	Left    Expression
	Pattern Expression
	Not     bool
}

func (l *Like) expressionNode()      {}
func (l *Like) TokenLiteral() string { return l.Token.Literal }
func (l *Like) String() string {
	op := " LIKE "
	if l.Not {
		op = " NOT LIKE "
	}

	return "(" + l.Left.String() + op + l.Pattern.String() + ")"
}

// In represents a [NOT] IN predicate
type In struct {
	Token Token // the IN token
	Left  Expression
	List  []Expression
	Not   bool
}

func (i *In) expressionNode()      {}
func (i *In) TokenLiteral() string { return i.Token.Literal }
func (i *In) String() string {
	items := make([]string, len(i.List))
	for n, e := range i.List {
		items[n] = e.String()
	}

	op := " IN ("
	if i.Not {
		op = " NOT IN ("
	}

	return "(" + i.Left.String() + op + strings.Join(items, ", ") + "))"
}

// IsNull represents an IS [NOT] NULL predicate
type IsNull struct {
	Token Token // the IS token
	Left  Expression
	Not   bool
}

func (i *IsNull) expressionNode()      {}
func (i *IsNull) TokenLiteral() string { return i.Token.Literal }
func (i *IsNull) String() string {
	if i.Not {
		return "(" + i.Left.String() + " IS NOT NULL)"
	}

	return "(" + i.Left.String() + " IS NULL)"
}
