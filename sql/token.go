package sql

import "strings"

// TokenType represents the type of token
type TokenType string

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset of the token in the input
}

// Token types for the SQL dialect
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT    TokenType = "IDENT"    // entity_name, attribute_name, [bracketed name]
	STRING   TokenType = "STRING"   // 'string value'
	NUMBER   TokenType = "NUMBER"   // 123, 123.45
	VARIABLE TokenType = "VARIABLE" // @name

	// Operators
	ASTERISK TokenType = "*"
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"
	COMMA    TokenType = ","
	DOT      TokenType = "."

	EQ    TokenType = "="
	NotEQ TokenType = "<>"
	LT    TokenType = "<"
	GT    TokenType = ">"
	LTE   TokenType = "<="
	GTE   TokenType = ">="

	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	SEMICOLON TokenType = ";"

	// Keywords
	SELECT  TokenType = "SELECT"
	TOP     TokenType = "TOP"
	FROM    TokenType = "FROM"
	WHERE   TokenType = "WHERE"
	UPDATE  TokenType = "UPDATE"
	SET     TokenType = "SET"
	DELETE  TokenType = "DELETE"
	DECLARE TokenType = "DECLARE"
	AND     TokenType = "AND"
	OR      TokenType = "OR"
	NOT     TokenType = "NOT"
	LIKE    TokenType = "LIKE"
	IN      TokenType = "IN"
	IS      TokenType = "IS"
	NULL    TokenType = "NULL"
	AS      TokenType = "AS"
	ORDER   TokenType = "ORDER"
	GROUP   TokenType = "GROUP"
	BY      TokenType = "BY"
	ASC     TokenType = "ASC"
	DESC    TokenType = "DESC"
	CASE    TokenType = "CASE"
	WHEN    TokenType = "WHEN"
	THEN    TokenType = "THEN"
	ELSE    TokenType = "ELSE"
	END     TokenType = "END"
	IIF     TokenType = "IIF"
	CAST    TokenType = "CAST"
	CONVERT TokenType = "CONVERT"
	TRUE    TokenType = "TRUE"
	FALSE   TokenType = "FALSE"
)

var keywords = map[string]TokenType{
	"SELECT":  SELECT,
	"TOP":     TOP,
	"FROM":    FROM,
	"WHERE":   WHERE,
	"UPDATE":  UPDATE,
	"SET":     SET,
	"DELETE":  DELETE,
	"DECLARE": DECLARE,
	"AND":     AND,
	"OR":      OR,
	"NOT":     NOT,
	"LIKE":    LIKE,
	"IN":      IN,
	"IS":      IS,
	"NULL":    NULL,
	"AS":      AS,
	"ORDER":   ORDER,
	"GROUP":   GROUP,
	"BY":      BY,
	"ASC":     ASC,
	"DESC":    DESC,
	"CASE":    CASE,
	"WHEN":    WHEN,
	"THEN":    THEN,
	"ELSE":    ELSE,
	"END":     END,
	"IIF":     IIF,
	"CAST":    CAST,
	"CONVERT": CONVERT,
	"TRUE":    TRUE,
	"FALSE":   FALSE,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}

	return IDENT
}
