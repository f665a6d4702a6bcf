package compiler

import (
	"errors"
	"fmt"
)

// Parser is a predictive recursive-descent parser that performs semantic
// analysis and emits quadruples while it recognises the grammar. No syntax
// tree is built.
//
// Grammar:
//
//	program    = (funcDef | funcDecl | decl)* EOF
//	funcDef    = [type] IDENTIFIER "(" params ")" block
//	funcDecl   = type IDENTIFIER "(" params ")" ";"
//	decl       = ["const"] type idInit ("," idInit)* ";"
//	idInit     = IDENTIFIER ["=" expr]
//	stmt       = ";" | block | decl | if | while | doWhile | for
//	           | "break" ";" | "continue" ";" | "return" [expr] ";"
//	           | call ";" | incdec ";" | assign ";"
//	assign     = IDENTIFIER ("=" | "+=" | "-=" | "*=" | "/=" | "%=") expr
//	expr       = and ("||" and)*
//	and        = not ("&&" not)*
//	not        = "!" not | relational
//	relational = arith (relop arith)*
//	arith      = term (("+" | "-") term)*
//	term       = factor (("*" | "/" | "%") factor)*
//	factor     = ("+" | "-") factor | ("++" | "--") IDENTIFIER | primary
//	primary    = literal | "true" | "false" | "(" expr ")" | call
//	           | IDENTIFIER ["++" | "--"]
type Parser struct {
	tokens []Token
	pos    int
	prog   *Program
	syms   *SymbolTable
	diags  *Diagnostics
	fn     *Function    // function whose body is being parsed
	loops  []*loopFrame // innermost last
}

// loopFrame collects the break and continue jumps of one loop.
type loopFrame struct {
	breaks    JumpList
	continues JumpList
}

// NewParser prepares a parser over tokens. Preprocessor tokens are dropped
// and an EOF token is appended when missing.
func NewParser(tokens []Token, diags *Diagnostics) *Parser {
	filtered := make([]Token, 0, len(tokens)+1)
	for _, tok := range tokens {
		if tok.Type == PREPROCESSOR {
			continue
		}
		filtered = append(filtered, tok)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Type != EOF {
		eof := Token{Type: EOF, Line: 1, Column: 1}
		if len(filtered) > 0 {
			last := filtered[len(filtered)-1]
			eof.Line, eof.Column = last.Line, last.Column+len([]rune(last.Lexeme))
		}
		filtered = append(filtered, eof)
	}
	return &Parser{
		tokens: filtered,
		prog:   NewProgram(),
		syms:   NewSymbolTable(),
		diags:  diags,
	}
}

// Parse analyses tokens and returns the emitted quadruples and the symbol
// table. Diagnostics are appended to diags; the quadruple stream is always
// produced, even for invalid programs.
func Parse(tokens []Token, diags *Diagnostics) (*Program, *SymbolTable) {
	p := NewParser(tokens, diags)
	p.parseProgram()
	return p.prog, p.syms
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token. EOF is never consumed.
func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool {
	return p.peek().Type == tt
}

// accept consumes the current token if it matches tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches tt, otherwise returns a
// *SyntaxError. Stray ')' tokens are reported and skipped one by one first.
func (p *Parser) expect(tt TokenType) (Token, error) {
	for tt != RPAREN && p.check(RPAREN) {
		tok := p.advance()
		p.diags.add(SevSyntax, tok, "Unexpected ')'")
	}
	tok := p.peek()
	if tok.Type == tt {
		return p.advance(), nil
	}
	if tok.Type == EOF {
		return tok, p.errorf(tok, "Unexpected end of input, expected '%s'", tt)
	}
	return tok, p.errorf(tok, "Expected '%s', but got '%s'", tt, tok.Lexeme)
}

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	return &SyntaxError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) semantic(tok Token, format string, args ...any) {
	p.diags.add(SevSemantic, tok, format, args...)
}

func (p *Parser) warn(tok Token, format string, args ...any) {
	p.diags.add(SevWarning, tok, format, args...)
}

// report records err as a syntax diagnostic.
func (p *Parser) report(err error) {
	var se *SyntaxError
	if !errors.As(err, &se) {
		se = &SyntaxError{Tok: p.peek(), Msg: err.Error()}
	}
	p.diags.add(SevSyntax, se.Tok, "%s", se.Msg)
}

// synchronize skips to the end of the broken statement: a ';' is consumed,
// a '}' is left for the enclosing block. A braced body met on the way is
// skipped whole, so a bad if or while header drops its body (and any else
// branch) with it.
func (p *Parser) synchronize() {
	depth := 0
	for {
		switch p.peek().Type {
		case EOF:
			return
		case LBRACE:
			depth++
		case RBRACE:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				if !p.accept(ELSE) {
					return
				}
				continue
			}
		case SEMICOLON:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// synchronizeTop skips past the next ';' or '}' at the top level.
func (p *Parser) synchronizeTop() {
	for !p.check(EOF) {
		if tt := p.advance().Type; tt == SEMICOLON || tt == RBRACE {
			return
		}
	}
}

func (p *Parser) parseProgram() {
	for !p.check(EOF) {
		from := p.prog.NextQuad()
		if err := p.parseTop(); err != nil {
			p.report(err)
			p.synchronizeTop()
			p.prog.PatchUnresolved(from, p.prog.NextQuad())
		}
	}
	p.finish()
}

// finish runs the end-of-parse checks. The missing-main error is always the
// last diagnostic.
func (p *Parser) finish() {
	for _, v := range p.syms.Unused() {
		p.warn(Token{Line: v.Line, Column: v.Column}, "Variable '%s' declared but never used", v.Name)
	}
	if f := p.syms.LookupFunction("main"); f == nil || !f.Defined {
		p.semantic(p.peek(), "Missing 'main' function")
	}
}

// parseStatements parses statements up to a closing '}' or EOF, recovering
// from syntax errors statement by statement.
func (p *Parser) parseStatements() {
	for !p.check(RBRACE) && !p.check(EOF) {
		p.parseNested()
	}
}

// parseNested parses one statement and recovers locally, so enclosing
// constructs always get to backpatch their jumps. Jumps the broken statement
// left pending are sent to the first quadruple after it.
func (p *Parser) parseNested() {
	start := p.pos
	from := p.prog.NextQuad()
	if err := p.parseStatement(); err != nil {
		p.report(err)
		p.synchronize()
		if p.pos == start && !p.check(EOF) && !p.check(RBRACE) {
			p.advance()
		}
		p.prog.PatchUnresolved(from, p.prog.NextQuad())
	}
}
