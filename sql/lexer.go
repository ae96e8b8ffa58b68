package sql

import "unicode"

// Lexer represents a lexical scanner for the SQL dialect
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	l.skipComment()

	pos := l.position

	var tok Token

	switch l.ch {
	case '=':
		tok = l.newToken(EQ)
	case '<':
		if l.peekChar() == '>' {
			tok = l.newTwoCharToken(NotEQ)
		} else if l.peekChar() == '=' {
			tok = l.newTwoCharToken(LTE)
		} else {
			tok = l.newToken(LT)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.newTwoCharToken(GTE)
		} else {
			tok = l.newToken(GT)
		}
	case '*':
		tok = l.newToken(ASTERISK)
	case '+':
		tok = l.newToken(PLUS)
	case '-':
		tok = l.newToken(MINUS)
	case '/':
		tok = l.newToken(SLASH)
	case '%':
		tok = l.newToken(PERCENT)
	case ',':
		tok = l.newToken(COMMA)
	case '.':
		tok = l.newToken(DOT)
	case '(':
		tok = l.newToken(LPAREN)
	case ')':
		tok = l.newToken(RPAREN)
	case ';':
		tok = l.newToken(SEMICOLON)
	case '@':
		if isLetter(l.peekChar()) || l.peekChar() == '_' {
			tok.Type = VARIABLE
			tok.Pos = pos
			tok.Literal = l.readVariable()
			return tok
		}
		tok = l.newToken(ILLEGAL)
	case '[':
		literal, ok := l.readBracketedIdentifier()
		tok = Token{Type: IDENT, Literal: literal, Pos: pos}
		if !ok {
			tok.Type = ILLEGAL
		}
		return tok
	case '\'':
		literal, ok := l.readString()
		tok = Token{Type: STRING, Literal: literal, Pos: pos}
		if !ok {
			tok.Type = ILLEGAL
		}
		return tok
	case 0:
		tok.Literal = ""
		tok.Type = EOF
		tok.Pos = pos
	default:
		if isLetter(l.ch) {
			tok.Pos = pos
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Pos = pos
			tok.Type = NUMBER
			tok.Literal = l.readNumber()
			return tok
		}

		tok = l.newToken(ILLEGAL)
	}

	l.readChar()

	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips -- line comments
func (l *Lexer) skipComment() {
	for l.ch == '-' && l.peekChar() == '-' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		l.skipWhitespace()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readVariable() string {
	position := l.position // includes the '@'
	l.readChar()           // skip '@'
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}

	// Handle decimal numbers
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[position:l.position]
}

// readString reads a single-quoted string literal where '' escapes a quote.
// Reports ok=false for an unterminated literal.
func (l *Lexer) readString() (string, bool) {
	var out []byte

	for {
		l.readChar()

		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				out = append(out, '\'')
				l.readChar()
				continue
			}

			l.readChar() // consume closing quote
			return string(out), true
		}

		if l.ch == 0 {
			return string(out), false
		}

		out = append(out, l.ch)
	}
}

// readBracketedIdentifier reads a [bracketed] identifier.
// Reports ok=false when the closing bracket is missing.
func (l *Lexer) readBracketedIdentifier() (string, bool) {
	position := l.position + 1

	for {
		l.readChar()

		if l.ch == ']' {
			literal := l.input[position:l.position]
			l.readChar() // consume ']'
			return literal, true
		}

		if l.ch == 0 {
			return l.input[position:l.position], false
		}
	}
}

func (l *Lexer) newToken(tokenType TokenType) Token {
	return Token{Type: tokenType, Literal: string(l.ch), Pos: l.position}
}

func (l *Lexer) newTwoCharToken(tokenType TokenType) Token {
	pos := l.position
	ch := l.ch
	l.readChar()

	return Token{Type: tokenType, Literal: string(ch) + string(l.ch), Pos: pos}
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
