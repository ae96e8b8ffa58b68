package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fetchql/fetchql/types"
	"github.com/shopspring/decimal"
)

// Parser represents a SQL parser
type Parser struct {
	l              *Lexer
	curToken       Token
	peekToken      Token
	err            *SyntaxError
	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

// Precedence levels
const (
	_ int = iota
	LOWEST
	OR_PRECEDENCE  // OR
	AND_PRECEDENCE // AND
	NOT_PRECEDENCE // NOT <predicate>
	EQUALS         // = or <>
	LESSGREATER    // < > <= >=
	PREDICATE      // LIKE, IN, IS, NOT LIKE, NOT IN
	SUM            // + -
	PRODUCT        // * / %
	PREFIX         // unary -
	CALL           // function()
)

var precedences = map[TokenType]int{
	OR:       OR_PRECEDENCE,
	AND:      AND_PRECEDENCE,
	EQ:       EQUALS,
	NotEQ:    EQUALS,
	LT:       LESSGREATER,
	GT:       LESSGREATER,
	LTE:      LESSGREATER,
	GTE:      LESSGREATER,
	LIKE:     PREDICATE,
	IN:       PREDICATE,
	IS:       PREDICATE,
	NOT:      PREDICATE,
	PLUS:     SUM,
	MINUS:    SUM,
	ASTERISK: PRODUCT,
	SLASH:    PRODUCT,
	PERCENT:  PRODUCT,
	LPAREN:   CALL,
}

// Parse parses a single statement and returns its AST.
// No partial AST is returned: the first syntax error aborts the parse.
func Parse(input string) (Statement, error) {
	p := NewParser(NewLexer(input))

	stmt := p.ParseStatement()
	if p.err != nil {
		return nil, p.err
	}

	if p.peekToken.Type == SEMICOLON {
		p.nextToken()
	}

	if p.peekToken.Type != EOF {
		p.errorAt(p.peekToken, "unexpected trailing input")
		return nil, p.err
	}

	return stmt, nil
}

// ParseScript parses a semicolon-separated batch of statements.
func ParseScript(input string) ([]Statement, error) {
	p := NewParser(NewLexer(input))

	var stmts []Statement

	for p.curToken.Type != EOF {
		if p.curToken.Type == SEMICOLON {
			p.nextToken()
			continue
		}

		stmt := p.ParseStatement()
		if p.err != nil {
			return nil, p.err
		}

		stmts = append(stmts, stmt)
		p.nextToken()
	}

	return stmts, nil
}

// NewParser creates a new Parser
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[TokenType]prefixParseFn)
	p.registerPrefix(IDENT, p.parseColumnRef)
	p.registerPrefix(ASTERISK, p.parseStar)
	p.registerPrefix(STRING, p.parseStringLiteral)
	p.registerPrefix(NUMBER, p.parseNumberLiteral)
	p.registerPrefix(VARIABLE, p.parseVariable)
	p.registerPrefix(TRUE, p.parseBoolean)
	p.registerPrefix(FALSE, p.parseBoolean)
	p.registerPrefix(NULL, p.parseNullLiteral)
	p.registerPrefix(NOT, p.parseNotExpression)
	p.registerPrefix(MINUS, p.parsePrefixExpression)
	p.registerPrefix(LPAREN, p.parseGroupedExpression)
	p.registerPrefix(CASE, p.parseCaseExpression)
	p.registerPrefix(IIF, p.parseIifExpression)
	p.registerPrefix(CAST, p.parseCastExpression)
	p.registerPrefix(CONVERT, p.parseConvertExpression)

	p.infixParseFns = make(map[TokenType]infixParseFn)
	p.registerInfix(EQ, p.parseInfixExpression)
	p.registerInfix(NotEQ, p.parseInfixExpression)
	p.registerInfix(LT, p.parseInfixExpression)
	p.registerInfix(GT, p.parseInfixExpression)
	p.registerInfix(LTE, p.parseInfixExpression)
	p.registerInfix(GTE, p.parseInfixExpression)
	p.registerInfix(AND, p.parseInfixExpression)
	p.registerInfix(OR, p.parseInfixExpression)
	p.registerInfix(PLUS, p.parseInfixExpression)
	p.registerInfix(MINUS, p.parseInfixExpression)
	p.registerInfix(ASTERISK, p.parseInfixExpression)
	p.registerInfix(SLASH, p.parseInfixExpression)
	p.registerInfix(PERCENT, p.parseInfixExpression)
	p.registerInfix(LIKE, p.parseLikeExpression)
	p.registerInfix(IN, p.parseInExpression)
	p.registerInfix(IS, p.parseIsExpression)
	p.registerInfix(NOT, p.parseNotPredicate)
	p.registerInfix(LPAREN, p.parseFunctionCall)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// Err returns the first syntax error encountered, if any
func (p *Parser) Err() error {
	if p.err != nil {
		return p.err
	}

	return nil
}

func (p *Parser) errorAt(tok Token, format string, args ...interface{}) {
	if p.err != nil {
		return
	}

	p.err = &SyntaxError{Pos: tok.Pos, Token: tok.Literal, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()

	if p.peekToken.Type == ILLEGAL {
		p.errorAt(p.peekToken, "unexpected character or unterminated literal")
	}
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekToken.Type == t {
		p.nextToken()
		return true
	}

	p.errorAt(p.peekToken, "expected %s", t)

	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}

	return LOWEST
}

// ParseStatement parses a single statement
func (p *Parser) ParseStatement() Statement {
	switch p.curToken.Type {
	case SELECT:
		return p.parseSelectStatement()
	case UPDATE:
		return p.parseUpdateStatement()
	case DELETE:
		return p.parseDeleteStatement()
	case DECLARE:
		return p.parseDeclareStatement()
	case SET:
		return p.parseSetStatement()
	default:
		p.errorAt(p.curToken, "unexpected token at start of statement")
		return nil
	}
}

func (p *Parser) parseSelectStatement() *SelectStatement {
	stmt := &SelectStatement{Token: p.curToken}

	if p.peekToken.Type == TOP {
		p.nextToken()

		if !p.expectPeek(NUMBER) {
			return nil
		}

		n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorAt(p.curToken, "invalid TOP count")
			return nil
		}

		stmt.Top = &n
	}

	p.nextToken() // move past SELECT or TOP count

	stmt.Projection = p.parseProjection()
	if p.err != nil {
		return nil
	}

	if !p.expectPeek(FROM) {
		return nil
	}

	if !p.expectPeek(IDENT) {
		return nil
	}

	stmt.Entity = p.curToken.Literal

	if p.peekToken.Type == WHERE {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	if p.peekToken.Type == GROUP {
		p.nextToken()

		if !p.expectPeek(BY) {
			return nil
		}

		stmt.GroupBy = p.parseExpressionList()
	}

	if p.peekToken.Type == ORDER {
		p.nextToken()

		if !p.expectPeek(BY) {
			return nil
		}

		stmt.OrderBy = p.parseOrderItems()
	}

	if p.err != nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseProjection() []SelectItem {
	items := []SelectItem{p.parseSelectItem()}

	for p.peekToken.Type == COMMA {
		p.nextToken() // move to COMMA
		p.nextToken() // move past COMMA
		items = append(items, p.parseSelectItem())
	}

	return items
}

func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{Expr: p.parseExpression(LOWEST)}

	if p.peekToken.Type == AS {
		p.nextToken()

		if !p.expectPeek(IDENT) {
			return item
		}

		item.Alias = p.curToken.Literal

		return item
	}

	// bare alias: SELECT name fullname FROM ...
	if p.peekToken.Type == IDENT {
		p.nextToken()
		item.Alias = p.curToken.Literal
	}

	return item
}

func (p *Parser) parseExpressionList() []Expression {
	p.nextToken()

	list := []Expression{p.parseExpression(LOWEST)}

	for p.peekToken.Type == COMMA {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	return list
}

func (p *Parser) parseOrderItems() []OrderItem {
	p.nextToken()

	items := []OrderItem{p.parseOrderItem()}

	for p.peekToken.Type == COMMA {
		p.nextToken()
		p.nextToken()
		items = append(items, p.parseOrderItem())
	}

	return items
}

func (p *Parser) parseOrderItem() OrderItem {
	item := OrderItem{Expr: p.parseExpression(LOWEST)}

	switch p.peekToken.Type {
	case ASC:
		p.nextToken()
	case DESC:
		p.nextToken()
		item.Desc = true
	}

	return item
}

func (p *Parser) parseUpdateStatement() *UpdateStatement {
	stmt := &UpdateStatement{Token: p.curToken}

	if !p.expectPeek(IDENT) {
		return nil
	}

	stmt.Entity = p.curToken.Literal

	if !p.expectPeek(SET) {
		return nil
	}

	stmt.Assignments = p.parseAssignments()
	if p.err != nil {
		return nil
	}

	if p.peekToken.Type == WHERE {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	if p.err != nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseAssignments() []Assignment {
	var assignments []Assignment

	for {
		if !p.expectPeek(IDENT) {
			return nil
		}

		column := p.curToken.Literal

		if !p.expectPeek(EQ) {
			return nil
		}

		p.nextToken()

		assignments = append(assignments, Assignment{
			Column: column,
			Value:  p.parseExpression(LOWEST),
		})

		if p.peekToken.Type != COMMA {
			return assignments
		}

		p.nextToken()
	}
}

func (p *Parser) parseDeleteStatement() *DeleteStatement {
	stmt := &DeleteStatement{Token: p.curToken}

	if !p.expectPeek(FROM) {
		return nil
	}

	if !p.expectPeek(IDENT) {
		return nil
	}

	stmt.Entity = p.curToken.Literal

	if p.peekToken.Type == WHERE {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	if p.err != nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseDeclareStatement() *DeclareStatement {
	stmt := &DeclareStatement{Token: p.curToken}

	if !p.expectPeek(VARIABLE) {
		return nil
	}

	stmt.Name = p.curToken.Literal

	if !p.expectPeek(IDENT) {
		return nil
	}

	stmt.Type = p.parseTypeName()

	if p.peekToken.Type == EQ {
		p.nextToken()
		p.nextToken()
		stmt.Init = p.parseExpression(LOWEST)
	}

	if p.err != nil {
		return nil
	}

	return stmt
}

// parseTypeName reads a type name with optional precision, e.g. DECIMAL(10, 2)
func (p *Parser) parseTypeName() string {
	name := p.curToken.Literal

	if p.peekToken.Type != LPAREN {
		return name
	}

	p.nextToken()

	var args []string

	for p.peekToken.Type == NUMBER {
		p.nextToken()
		args = append(args, p.curToken.Literal)

		if p.peekToken.Type == COMMA {
			p.nextToken()
		}
	}

	if !p.expectPeek(RPAREN) {
		return name
	}

	return name + "(" + strings.Join(args, ",") + ")"
}

func (p *Parser) parseSetStatement() *SetStatement {
	stmt := &SetStatement{Token: p.curToken}

	if !p.expectPeek(VARIABLE) {
		return nil
	}

	stmt.Name = p.curToken.Literal

	if !p.expectPeek(EQ) {
		return nil
	}

	p.nextToken()

	stmt.Value = p.parseExpression(LOWEST)

	if p.err != nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseExpression(precedence int) Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAt(p.curToken, "unexpected token in expression")
		return nil
	}

	left := prefix()

	for p.err == nil && p.peekToken.Type != SEMICOLON && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}

		p.nextToken()

		left = infix(left)
	}

	return left
}

func (p *Parser) parseColumnRef() Expression {
	ref := &ColumnRef{Token: p.curToken, Name: p.curToken.Literal}

	// dotted attribute names: entity.attribute
	for p.peekToken.Type == DOT {
		p.nextToken()

		if !p.expectPeek(IDENT) {
			return nil
		}

		ref.Name += "." + p.curToken.Literal
	}

	return ref
}

func (p *Parser) parseStar() Expression {
	return &ColumnRef{Token: p.curToken, Name: "*"}
}

func (p *Parser) parseStringLiteral() Expression {
	return &Literal{Token: p.curToken, Value: &types.String{Value: p.curToken.Literal}}
}

func (p *Parser) parseNumberLiteral() Expression {
	lit := &Literal{Token: p.curToken}

	if strings.Contains(p.curToken.Literal, ".") {
		d, err := decimal.NewFromString(p.curToken.Literal)
		if err != nil {
			p.errorAt(p.curToken, "invalid numeric literal")
			return nil
		}

		lit.Value = &types.Decimal{Value: d}

		return lit
	}

	n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorAt(p.curToken, "invalid numeric literal")
		return nil
	}

	lit.Value = &types.Int{Value: n}

	return lit
}

func (p *Parser) parseVariable() Expression {
	return &Variable{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseBoolean() Expression {
	return &Literal{Token: p.curToken, Value: types.NewBool(p.curToken.Type == TRUE)}
}

func (p *Parser) parseNullLiteral() Expression {
	return &Literal{Token: p.curToken, Value: types.Null}
}

func (p *Parser) parseNotExpression() Expression {
	expr := &Prefix{Token: p.curToken, Operator: "NOT"}

	p.nextToken()

	// NOT binds looser than comparisons: NOT a = b parses as NOT (a = b)
	expr.Right = p.parseExpression(NOT_PRECEDENCE)

	return expr
}

func (p *Parser) parsePrefixExpression() Expression {
	expr := &Prefix{Token: p.curToken, Operator: p.curToken.Literal}

	p.nextToken()

	expr.Right = p.parseExpression(PREFIX)

	return expr
}

func (p *Parser) parseGroupedExpression() Expression {
	p.nextToken()

	expr := p.parseExpression(LOWEST)

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return expr
}

func (p *Parser) parseInfixExpression(left Expression) Expression {
	expr := &Infix{
		Token:    p.curToken,
		Left:     left,
		Operator: strings.ToUpper(p.curToken.Literal),
	}

	precedence := precedences[p.curToken.Type]

	p.nextToken()

	expr.Right = p.parseExpression(precedence)

	return expr
}

func (p *Parser) parseLikeExpression(left Expression) Expression {
	expr := &Like{Token: p.curToken, Left: left}

	p.nextToken()

	expr.Pattern = p.parseExpression(PREDICATE)

	return expr
}

func (p *Parser) parseInExpression(left Expression) Expression {
	expr := &In{Token: p.curToken, Left: left}

	if !p.expectPeek(LPAREN) {
		return nil
	}

	expr.List = p.parseExpressionList()

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return expr
}

func (p *Parser) parseIsExpression(left Expression) Expression {
	expr := &IsNull{Token: p.curToken, Left: left}

	if p.peekToken.Type == NOT {
		p.nextToken()
		expr.Not = true
	}

	if !p.expectPeek(NULL) {
		return nil
	}

	return expr
}

// parseNotPredicate handles NOT LIKE and NOT IN
func (p *Parser) parseNotPredicate(left Expression) Expression {
	switch p.peekToken.Type {
	case LIKE:
		p.nextToken()

		like, ok := p.parseLikeExpression(left).(*Like)
		if !ok {
			return nil
		}

		like.Not = true

		return like
	case IN:
		p.nextToken()

		in, ok := p.parseInExpression(left).(*In)
		if !ok {
			return nil
		}

		in.Not = true

		return in
	default:
		p.errorAt(p.peekToken, "expected LIKE or IN after NOT")
		return nil
	}
}

func (p *Parser) parseFunctionCall(left Expression) Expression {
	ref, ok := left.(*ColumnRef)
	if !ok || strings.Contains(ref.Name, ".") {
		p.errorAt(p.curToken, "expected function name before (")
		return nil
	}

	call := &Call{Token: ref.Token, Name: ref.Name}

	if p.peekToken.Type == RPAREN {
		p.nextToken()
		return call
	}

	call.Args = p.parseExpressionList()

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return call
}

func (p *Parser) parseCaseExpression() Expression {
	expr := &Case{Token: p.curToken}

	for p.peekToken.Type == WHEN {
		p.nextToken()
		p.nextToken()

		cond := p.parseExpression(LOWEST)

		if !p.expectPeek(THEN) {
			return nil
		}

		p.nextToken()

		expr.Whens = append(expr.Whens, WhenClause{Cond: cond, Result: p.parseExpression(LOWEST)})
	}

	if len(expr.Whens) == 0 {
		p.errorAt(p.peekToken, "expected WHEN after CASE")
		return nil
	}

	if p.peekToken.Type == ELSE {
		p.nextToken()
		p.nextToken()
		expr.Else = p.parseExpression(LOWEST)
	}

	if !p.expectPeek(END) {
		return nil
	}

	return expr
}

func (p *Parser) parseIifExpression() Expression {
	expr := &Iif{Token: p.curToken}

	if !p.expectPeek(LPAREN) {
		return nil
	}

	p.nextToken()

	expr.Cond = p.parseExpression(LOWEST)

	if !p.expectPeek(COMMA) {
		return nil
	}

	p.nextToken()

	expr.Then = p.parseExpression(LOWEST)

	if !p.expectPeek(COMMA) {
		return nil
	}

	p.nextToken()

	expr.Else = p.parseExpression(LOWEST)

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return expr
}

func (p *Parser) parseCastExpression() Expression {
	expr := &Cast{Token: p.curToken}

	if !p.expectPeek(LPAREN) {
		return nil
	}

	p.nextToken()

	expr.Expr = p.parseExpression(LOWEST)

	if !p.expectPeek(AS) {
		return nil
	}

	if !p.expectPeek(IDENT) {
		return nil
	}

	expr.Type = p.parseTypeName()

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return expr
}

// parseConvertExpression parses CONVERT(type, expr[, style])
func (p *Parser) parseConvertExpression() Expression {
	expr := &Cast{Token: p.curToken}

	if !p.expectPeek(LPAREN) {
		return nil
	}

	if !p.expectPeek(IDENT) {
		return nil
	}

	expr.Type = p.parseTypeName()

	if !p.expectPeek(COMMA) {
		return nil
	}

	p.nextToken()

	expr.Expr = p.parseExpression(LOWEST)

	if p.peekToken.Type == COMMA {
		p.nextToken()

		if !p.expectPeek(NUMBER) {
			return nil
		}

		style, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorAt(p.curToken, "invalid CONVERT style")
			return nil
		}

		expr.Style = &style
	}

	if !p.expectPeek(RPAREN) {
		return nil
	}

	return expr
}
