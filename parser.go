package main

import "strings"

// Parser is a recursive descent parser over the Lexer's token stream.
// Inside parentheses and braces newlines are insignificant.
type Parser struct {
	lexer   *Lexer
	current Token
	peek    Token
	depth   int
}

func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.peek = p.lexer.NextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
	for p.depth > 0 && p.current.Type == TOKEN_NEWLINE {
		p.current = p.peek
		p.peek = p.lexer.NextToken()
	}
}

func (p *Parser) open() {
	p.depth++
	p.nextToken()
}

func (p *Parser) close() {
	p.depth--
	p.nextToken()
}

func (p *Parser) unexpected() error {
	switch p.current.Type {
	case TOKEN_ILLEGAL:
		return syntaxErrorf(p.current.Pos, "unexpected character %q", p.current.Value)
	case TOKEN_RPAREN:
		return syntaxErrorf(p.current.Pos, "unbalanced parentheses: unexpected ')'")
	}
	return syntaxErrorf(p.current.Pos, "unexpected %s", p.current)
}

func (p *Parser) expect(t TokenType) error {
	if p.current.Type == t {
		return nil
	}
	if t == TOKEN_RPAREN {
		return syntaxErrorf(p.current.Pos, "unbalanced parentheses: expected ')', found %s", p.current)
	}
	return syntaxErrorf(p.current.Pos, "expected %s, found %s", t, p.current)
}

func (p *Parser) atSeparator() bool {
	return p.current.Type == TOKEN_NEWLINE || p.current.Type == TOKEN_SEMICOLON
}

func (p *Parser) skipSeparators() {
	for p.atSeparator() {
		p.nextToken()
	}
}

// ParseProgram parses statements separated by newlines or semicolons
func (p *Parser) ParseProgram() ([]Statement, error) {
	var statements []Statement
	p.skipSeparators()
	for p.current.Type != TOKEN_EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
		if p.current.Type != TOKEN_EOF && !p.atSeparator() {
			return nil, p.unexpected()
		}
		p.skipSeparators()
	}
	return statements, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.current.Type == TOKEN_FN:
		return p.parseFunctionDef()
	case p.current.Type == TOKEN_IDENT && p.peek.Type == TOKEN_EQUALS:
		if p.arrowAhead() {
			return p.parseArrowFunctionDef()
		}
		return p.parseAssignment()
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExpressionStmt{Expr: expr}, nil
}

// parseFunctionDef parses: fn name(a, b) { body }
func (p *Parser) parseFunctionDef() (*FunctionDef, error) {
	pos := p.current.Pos
	p.nextToken()
	if p.current.Type != TOKEN_IDENT {
		return nil, syntaxErrorf(p.current.Pos, "expected function name, found %s", p.current)
	}
	name := p.current.Value
	p.nextToken()

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &FunctionDef{Name: name, Params: params, Body: body, Pos: pos}, nil
}

// parseArrowFunctionDef parses: name = (a, b) => { body }
func (p *Parser) parseArrowFunctionDef() (*FunctionDef, error) {
	pos := p.current.Pos
	name := p.current.Value
	p.nextToken() // name
	p.nextToken() // =

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TOKEN_FAT_ARROW); err != nil {
		return nil, err
	}
	p.nextToken()

	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &FunctionDef{Name: name, Params: params, Body: body, Pos: pos}, nil
}

// arrowAhead reports whether the '=' in peek starts an arrow function,
// that is whether it is followed by a parenthesized list and '=>'
func (p *Parser) arrowAhead() bool {
	l := *p.lexer
	if l.NextToken().Type != TOKEN_LPAREN {
		return false
	}
	for depth := 1; depth > 0; {
		switch l.NextToken().Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_EOF:
			return false
		}
	}
	tok := l.NextToken()
	for p.depth > 0 && tok.Type == TOKEN_NEWLINE {
		tok = l.NextToken()
	}
	return tok.Type == TOKEN_FAT_ARROW
}

// parseAssignment parses: x = expr, or a chain like x = y = expr
func (p *Parser) parseAssignment() (*Assignment, error) {
	a := &Assignment{Pos: p.current.Pos}
	for p.current.Type == TOKEN_IDENT && p.peek.Type == TOKEN_EQUALS {
		if len(a.Names) > 0 && p.arrowAhead() {
			return nil, syntaxErrorf(p.current.Pos, "a function definition cannot be assigned to %s", a.Names[len(a.Names)-1])
		}
		a.Names = append(a.Names, p.current.Value)
		p.nextToken() // name
		p.nextToken() // =
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	a.Value = value
	return a, nil
}

func (p *Parser) parseParams() ([]string, error) {
	if err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	p.open()

	var params []string
	seen := make(map[string]bool)
	for p.current.Type != TOKEN_RPAREN {
		if p.current.Type == TOKEN_EOF {
			return nil, p.expect(TOKEN_RPAREN)
		}
		if len(params) > 0 {
			if err := p.expect(TOKEN_COMMA); err != nil {
				return nil, err
			}
			p.nextToken()
		}
		if p.current.Type != TOKEN_IDENT {
			return nil, syntaxErrorf(p.current.Pos, "expected parameter name, found %s", p.current)
		}
		if seen[p.current.Value] {
			return nil, syntaxErrorf(p.current.Pos, "duplicate parameter %q", p.current.Value)
		}
		seen[p.current.Value] = true
		params = append(params, p.current.Value)
		p.nextToken()
	}
	p.close()
	return params, nil
}

func (p *Parser) parseBody() (Expression, error) {
	if err := p.expect(TOKEN_LBRACE); err != nil {
		return nil, err
	}
	p.open()
	if p.current.Type == TOKEN_RBRACE {
		return nil, syntaxErrorf(p.current.Pos, "empty function body")
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TOKEN_RBRACE); err != nil {
		return nil, err
	}
	p.close()
	return body, nil
}

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseAdditive()
}

func (p *Parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TOKEN_PLUS || p.current.Type == TOKEN_MINUS {
		op, pos := Operator(p.current.Value[0]), p.current.Pos
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TOKEN_STAR || p.current.Type == TOKEN_SLASH {
		op, pos := Operator(p.current.Value[0]), p.current.Pos
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// parseUnary folds a minus into a number literal, or multiplies by -1
func (p *Parser) parseUnary() (Expression, error) {
	if p.current.Type != TOKEN_MINUS {
		return p.parsePrimary()
	}
	pos := p.current.Pos
	p.nextToken()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if lit, ok := operand.(*NumberLiteral); ok {
		return &NumberLiteral{Value: -lit.Value, Pos: pos}, nil
	}
	return &BinaryOp{Op: OperatorMul, Left: &NumberLiteral{Value: -1, Pos: pos}, Right: operand, Pos: pos}, nil
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.current
	switch tok.Type {
	case TOKEN_NUMBER:
		value, err := parseNumber(tok)
		if err != nil {
			return nil, err
		}
		p.nextToken()
		return &NumberLiteral{Value: value, Pos: tok.Pos}, nil

	case TOKEN_IDENT:
		p.nextToken()
		if p.current.Type != TOKEN_LPAREN {
			return &VariableRef{Name: tok.Value, Pos: tok.Pos}, nil
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &Call{Name: tok.Value, Args: args, Pos: tok.Pos}, nil

	case TOKEN_LPAREN:
		p.open()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		p.close()
		return expr, nil

	case TOKEN_EOF:
		return nil, syntaxErrorf(tok.Pos, "unexpected end of input, expected an expression")
	}
	return nil, p.unexpected()
}

func (p *Parser) parseArgs() ([]Expression, error) {
	p.open()
	var args []Expression
	for p.current.Type != TOKEN_RPAREN {
		if p.current.Type == TOKEN_EOF {
			return nil, p.expect(TOKEN_RPAREN)
		}
		if len(args) > 0 {
			if err := p.expect(TOKEN_COMMA); err != nil {
				return nil, err
			}
			p.nextToken()
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.close()
	return args, nil
}

// ParseProgram parses a whole source text, such as a definitions file
func ParseProgram(src string) ([]Statement, error) {
	return NewParser(src).ParseProgram()
}

// Parse parses exactly one statement: a function definition, an assignment or an expression
func Parse(src string) (Statement, error) {
	statements, err := ParseProgram(src)
	if err != nil {
		return nil, err
	}
	switch len(statements) {
	case 0:
		return nil, syntaxErrorf(Pos{Line: 1, Column: 1}, "empty input")
	case 1:
		return statements[0], nil
	}
	return nil, syntaxErrorf(statements[1].Position(), "expected a single statement")
}

// ParseExpression parses src as a bare expression
func ParseExpression(src string) (Expression, error) {
	stmt, err := Parse(src)
	if err != nil {
		return nil, err
	}
	switch s := stmt.(type) {
	case *ExpressionStmt:
		return s.Expr, nil
	case *Assignment:
		return nil, syntaxErrorf(s.Pos, "expected an expression, found an assignment to %s", strings.Join(s.Names, ", "))
	}
	return nil, syntaxErrorf(stmt.Position(), "expected an expression, found a function definition")
}
