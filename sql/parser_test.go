package sql

import (
	"errors"
	"testing"
)

func parseSelect(t *testing.T, input string) *SelectStatement {
	t.Helper()

	stmt, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}

	sel, ok := stmt.(*SelectStatement)
	if !ok {
		t.Fatalf("statement is not *SelectStatement. got=%T", stmt)
	}

	return sel
}

func TestParseSelectStatement(t *testing.T) {
	sel := parseSelect(t, "SELECT TOP 10 name, revenue AS rev FROM account WHERE revenue > 100 ORDER BY name ASC, revenue DESC")

	if sel.Top == nil || *sel.Top != 10 {
		t.Fatalf("TOP wrong. got=%v", sel.Top)
	}

	if sel.Entity != "account" {
		t.Fatalf("entity wrong. expected=%q, got=%q", "account", sel.Entity)
	}

	if len(sel.Projection) != 2 {
		t.Fatalf("projection length wrong. expected=2, got=%d", len(sel.Projection))
	}

	if sel.Projection[1].Alias != "rev" {
		t.Fatalf("alias wrong. expected=%q, got=%q", "rev", sel.Projection[1].Alias)
	}

	if sel.Where == nil {
		t.Fatal("WHERE clause missing")
	}

	if got := sel.Where.String(); got != "(revenue > 100)" {
		t.Fatalf("where wrong. expected=%q, got=%q", "(revenue > 100)", got)
	}

	if len(sel.OrderBy) != 2 {
		t.Fatalf("order by length wrong. expected=2, got=%d", len(sel.OrderBy))
	}

	if sel.OrderBy[0].Desc || !sel.OrderBy[1].Desc {
		t.Fatalf("order directions wrong. got=%v, %v", sel.OrderBy[0].Desc, sel.OrderBy[1].Desc)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT a FROM e WHERE a = 1 AND b = 2", "((a = 1) AND (b = 2))"},
		{"SELECT a FROM e WHERE a = 1 OR b = 2 AND c = 3", "((a = 1) OR ((b = 2) AND (c = 3)))"},
		{"SELECT a FROM e WHERE a + b * c > 10", "((a + (b * c)) > 10)"},
		{"SELECT a FROM e WHERE (a + b) * c > 10", "(((a + b) * c) > 10)"},
		{"SELECT a FROM e WHERE NOT a = 1", "(NOT (a = 1))"},
		{"SELECT a FROM e WHERE -a < 5", "((- a) < 5)"},
		{"SELECT a FROM e WHERE a <> b AND c >= d", "((a <> b) AND (c >= d))"},
		{"SELECT a FROM e WHERE name LIKE 'x%' OR name IS NULL", "((name LIKE x%) OR (name IS NULL))"},
		{"SELECT a FROM e WHERE status IN (1, 2, 3)", "(status IN (1, 2, 3))"},
		{"SELECT a FROM e WHERE status NOT IN (1, 2)", "(status NOT IN (1, 2))"},
		{"SELECT a FROM e WHERE name NOT LIKE 'x%'", "(name NOT LIKE x%)"},
		{"SELECT a FROM e WHERE a IS NOT NULL", "(a IS NOT NULL)"},
		{"SELECT a FROM e WHERE a % 2 = 0", "((a % 2) = 0)"},
	}

	for _, tt := range tests {
		sel := parseSelect(t, tt.input)

		if got := sel.Where.String(); got != tt.expected {
			t.Errorf("input=%q\nexpected=%q\ngot=%q", tt.input, tt.expected, got)
		}
	}
}

func TestParseFunctionCalls(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM e WHERE DATEDIFF(day, createdon, GETDATE()) > 30")

	infix, ok := sel.Where.(*Infix)
	if !ok {
		t.Fatalf("where is not *Infix. got=%T", sel.Where)
	}

	call, ok := infix.Left.(*Call)
	if !ok {
		t.Fatalf("left is not *Call. got=%T", infix.Left)
	}

	if call.Name != "DATEDIFF" {
		t.Fatalf("function name wrong. expected=%q, got=%q", "DATEDIFF", call.Name)
	}

	if len(call.Args) != 3 {
		t.Fatalf("argument count wrong. expected=3, got=%d", len(call.Args))
	}

	if _, ok := call.Args[2].(*Call); !ok {
		t.Fatalf("third argument is not a nested *Call. got=%T", call.Args[2])
	}
}

func TestParseCaseExpression(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE WHEN revenue > 100 THEN 'big' WHEN revenue > 10 THEN 'mid' ELSE 'small' END AS size FROM account")

	caseExpr, ok := sel.Projection[0].Expr.(*Case)
	if !ok {
		t.Fatalf("projection is not *Case. got=%T", sel.Projection[0].Expr)
	}

	if len(caseExpr.Whens) != 2 {
		t.Fatalf("when count wrong. expected=2, got=%d", len(caseExpr.Whens))
	}

	if caseExpr.Else == nil {
		t.Fatal("ELSE clause missing")
	}

	if sel.Projection[0].Alias != "size" {
		t.Fatalf("alias wrong. expected=%q, got=%q", "size", sel.Projection[0].Alias)
	}
}

func TestParseIifAndCast(t *testing.T) {
	sel := parseSelect(t, "SELECT IIF(a > 1, 'yes', 'no'), CAST(revenue AS int), CONVERT(varchar(10), createdon, 120) FROM e")

	if _, ok := sel.Projection[0].Expr.(*Iif); !ok {
		t.Fatalf("first projection is not *Iif. got=%T", sel.Projection[0].Expr)
	}

	cast, ok := sel.Projection[1].Expr.(*Cast)
	if !ok {
		t.Fatalf("second projection is not *Cast. got=%T", sel.Projection[1].Expr)
	}

	if cast.Type != "int" {
		t.Fatalf("cast type wrong. expected=%q, got=%q", "int", cast.Type)
	}

	convert, ok := sel.Projection[2].Expr.(*Cast)
	if !ok {
		t.Fatalf("third projection is not *Cast. got=%T", sel.Projection[2].Expr)
	}

	if convert.Type != "varchar(10)" {
		t.Fatalf("convert type wrong. expected=%q, got=%q", "varchar(10)", convert.Type)
	}

	if convert.Style == nil || *convert.Style != 120 {
		t.Fatalf("convert style wrong. got=%v", convert.Style)
	}
}

func TestParseGroupBy(t *testing.T) {
	sel := parseSelect(t, "SELECT status, COUNT(*) AS total FROM account GROUP BY status")

	if len(sel.GroupBy) != 1 {
		t.Fatalf("group by length wrong. expected=1, got=%d", len(sel.GroupBy))
	}

	if got := sel.GroupBy[0].String(); got != "status" {
		t.Fatalf("group by key wrong. expected=%q, got=%q", "status", got)
	}

	call, ok := sel.Projection[1].Expr.(*Call)
	if !ok {
		t.Fatalf("second projection is not *Call. got=%T", sel.Projection[1].Expr)
	}

	if len(call.Args) != 1 {
		t.Fatalf("COUNT argument count wrong. expected=1, got=%d", len(call.Args))
	}

	ref, ok := call.Args[0].(*ColumnRef)
	if !ok || ref.Name != "*" {
		t.Fatalf("COUNT argument wrong. got=%v", call.Args[0])
	}
}

func TestParseUpdateStatement(t *testing.T) {
	stmt, err := Parse("UPDATE account SET name = 'acme', revenue = revenue + 1 WHERE accountid = 'a1'")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	upd, ok := stmt.(*UpdateStatement)
	if !ok {
		t.Fatalf("statement is not *UpdateStatement. got=%T", stmt)
	}

	if upd.Entity != "account" {
		t.Fatalf("entity wrong. expected=%q, got=%q", "account", upd.Entity)
	}

	if len(upd.Assignments) != 2 {
		t.Fatalf("assignment count wrong. expected=2, got=%d", len(upd.Assignments))
	}

	if upd.Assignments[0].Column != "name" {
		t.Fatalf("assignment column wrong. expected=%q, got=%q", "name", upd.Assignments[0].Column)
	}

	if upd.Where == nil {
		t.Fatal("WHERE clause missing")
	}
}

func TestParseDeleteStatement(t *testing.T) {
	stmt, err := Parse("DELETE FROM contact WHERE lastname IS NULL")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	del, ok := stmt.(*DeleteStatement)
	if !ok {
		t.Fatalf("statement is not *DeleteStatement. got=%T", stmt)
	}

	if del.Entity != "contact" {
		t.Fatalf("entity wrong. expected=%q, got=%q", "contact", del.Entity)
	}
}

func TestParseDeclareAndSet(t *testing.T) {
	stmt, err := Parse("DECLARE @min decimal(10,2) = 1.5")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	decl, ok := stmt.(*DeclareStatement)
	if !ok {
		t.Fatalf("statement is not *DeclareStatement. got=%T", stmt)
	}

	if decl.Name != "@min" {
		t.Fatalf("name wrong. expected=%q, got=%q", "@min", decl.Name)
	}

	if decl.Type != "decimal(10,2)" {
		t.Fatalf("type wrong. expected=%q, got=%q", "decimal(10,2)", decl.Type)
	}

	if decl.Init == nil {
		t.Fatal("initializer missing")
	}

	stmt, err = Parse("SET @min = @min + 1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	set, ok := stmt.(*SetStatement)
	if !ok {
		t.Fatalf("statement is not *SetStatement. got=%T", stmt)
	}

	if set.Name != "@min" {
		t.Fatalf("name wrong. expected=%q, got=%q", "@min", set.Name)
	}

	if got := set.Value.String(); got != "(@min + 1)" {
		t.Fatalf("value wrong. expected=%q, got=%q", "(@min + 1)", got)
	}
}

func TestParseScript(t *testing.T) {
	stmts, err := ParseScript("DECLARE @x int = 1; SET @x = @x + 5; SELECT name FROM account WHERE revenue > @x;")
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}

	if len(stmts) != 3 {
		t.Fatalf("statement count wrong. expected=3, got=%d", len(stmts))
	}

	if _, ok := stmts[0].(*DeclareStatement); !ok {
		t.Fatalf("first statement is not *DeclareStatement. got=%T", stmts[0])
	}

	if _, ok := stmts[2].(*SelectStatement); !ok {
		t.Fatalf("third statement is not *SelectStatement. got=%T", stmts[2])
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []string{
		"SELECT FROM account",
		"SELECT name account",
		"UPDATE account name = 1",
		"DELETE account",
		"SELECT name FROM account WHERE",
		"SELECT name FROM account WHERE name LIKE",
		"SELECT name FROM account trailing nonsense here",
		"SELECT name FROM account WHERE name = 'unterminated",
	}

	for _, input := range tests {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) expected error, got none", input)
			continue
		}

		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("Parse(%q) error is not *SyntaxError. got=%T", input, err)
		}
	}
}

func TestParseDottedColumns(t *testing.T) {
	sel := parseSelect(t, "SELECT account.name FROM account")

	ref, ok := sel.Projection[0].Expr.(*ColumnRef)
	if !ok {
		t.Fatalf("projection is not *ColumnRef. got=%T", sel.Projection[0].Expr)
	}

	if ref.Name != "account.name" {
		t.Fatalf("name wrong. expected=%q, got=%q", "account.name", ref.Name)
	}
}
