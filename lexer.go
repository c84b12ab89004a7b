package main

import (
	"fmt"
	"strconv"
)

// Token types for the calculator language
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_IDENT
	TOKEN_NUMBER
	TOKEN_FN // fn keyword
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_COMMA
	TOKEN_SEMICOLON
	TOKEN_EQUALS    // =
	TOKEN_FAT_ARROW // =>
	TOKEN_NEWLINE
	TOKEN_ILLEGAL
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "end of input",
	TOKEN_IDENT:     "identifier",
	TOKEN_NUMBER:    "number",
	TOKEN_FN:        "'fn'",
	TOKEN_PLUS:      "'+'",
	TOKEN_MINUS:     "'-'",
	TOKEN_STAR:      "'*'",
	TOKEN_SLASH:     "'/'",
	TOKEN_LPAREN:    "'('",
	TOKEN_RPAREN:    "')'",
	TOKEN_LBRACE:    "'{'",
	TOKEN_RBRACE:    "'}'",
	TOKEN_COMMA:     "','",
	TOKEN_SEMICOLON: "';'",
	TOKEN_EQUALS:    "'='",
	TOKEN_FAT_ARROW: "'=>'",
	TOKEN_NEWLINE:   "newline",
	TOKEN_ILLEGAL:   "illegal character",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Pos is a location in the source text. Line and Column start at 1.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Type  TokenType
	Value string
	Pos   Pos
}

func (t Token) String() string {
	switch t.Type {
	case TOKEN_IDENT, TOKEN_NUMBER, TOKEN_ILLEGAL:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	}
	return t.Type.String()
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// Lexer turns source text into tokens
type Lexer struct {
	input string
	pos   int
	line  int
	col   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input, pos: 0, line: 1, col: 1}
}

func (l *Lexer) here() Pos {
	return Pos{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

// skipSpaceAndComments skips blanks, // line comments and /* */ block comments.
// Newlines are tokens, so they are left alone unless inside a block comment.
func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.input) && !(l.input[l.pos] == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			// an unterminated block comment runs to the end of input
			l.advance()
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	start := l.here()
	if l.pos >= len(l.input) {
		return Token{Type: TOKEN_EOF, Pos: start}
	}

	ch := l.input[l.pos]

	if isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))) {
		return l.lexNumber(start)
	}

	if isIdentStart(ch) {
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.advance()
		}
		value := l.input[start.Offset:l.pos]
		if value == "fn" {
			return Token{Type: TOKEN_FN, Value: value, Pos: start}
		}
		return Token{Type: TOKEN_IDENT, Value: value, Pos: start}
	}

	l.advance()
	single := func(t TokenType) Token {
		return Token{Type: t, Value: string(ch), Pos: start}
	}

	switch ch {
	case '\n':
		return single(TOKEN_NEWLINE)
	case '+':
		return single(TOKEN_PLUS)
	case '-':
		return single(TOKEN_MINUS)
	case '*':
		return single(TOKEN_STAR)
	case '/':
		return single(TOKEN_SLASH)
	case '(':
		return single(TOKEN_LPAREN)
	case ')':
		return single(TOKEN_RPAREN)
	case '{':
		return single(TOKEN_LBRACE)
	case '}':
		return single(TOKEN_RBRACE)
	case ',':
		return single(TOKEN_COMMA)
	case ';':
		return single(TOKEN_SEMICOLON)
	case '=':
		if l.pos < len(l.input) && l.input[l.pos] == '>' {
			l.advance()
			return Token{Type: TOKEN_FAT_ARROW, Value: "=>", Pos: start}
		}
		return single(TOKEN_EQUALS)
	}
	return single(TOKEN_ILLEGAL)
}

// lexNumber scans 12, 1.5, .5, 2e3 and 1.5E-2
func (l *Lexer) lexNumber(start Pos) Token {
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.advance()
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.advance()
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.advance()
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.advance()
			}
		}
	}
	return Token{Type: TOKEN_NUMBER, Value: l.input[start.Offset:l.pos], Pos: start}
}

// Tokenize returns all tokens of input, ending with TOKEN_EOF
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			return tokens
		}
	}
}

func parseNumber(tok Token) (float64, error) {
	value, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return 0, syntaxErrorf(tok.Pos, "invalid number %q", tok.Value)
	}
	return value, nil
}
