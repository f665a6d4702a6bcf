package compiler

import (
	"errors"
	"strings"
)

// builtins are the I/O primitives known without a declaration.
var builtins = map[string]*Function{
	"read":  {Name: "read", Return: TypeInt, Defined: true},
	"write": {Name: "write", Return: TypeVoid, Params: []Param{{Type: TypeInt, Name: "x"}}, Defined: true},
}

// parseTop dispatches a top-level construct. After a leading type the third
// token decides: '(' starts a function, '=', ';' or ',' a global variable.
func (p *Parser) parseTop() error {
	tok := p.peek()
	if tok.Type == IDENTIFIER && tok.Lexeme == "main" && p.peekAt(1).Type == LPAREN {
		return p.parseFunction()
	}
	if tok.Type == CONST {
		return p.parseDeclaration()
	}
	if !isTypeKeyword(tok.Type) {
		return p.errorf(tok, "Expected type keyword (int, float, bool, char, double), got '%s'", tok.Lexeme)
	}
	if p.peekAt(1).Type != IDENTIFIER {
		return p.errorf(p.peekAt(1), "Expected identifier after type")
	}
	switch third := p.peekAt(2); third.Type {
	case LPAREN:
		return p.parseFunction()
	case ASSIGN, SEMICOLON, COMMA:
		return p.parseDeclaration()
	default:
		return p.errorf(third, "Unexpected token '%s' after type and identifier", third.Lexeme)
	}
}

func (p *Parser) parseType() (Type, error) {
	tok := p.peek()
	typ, ok := typeKeywords[tok.Type]
	if !ok {
		return TypeInvalid, p.errorf(tok, "Expected type keyword (int, float, bool, char, double), got '%s'", tok.Lexeme)
	}
	p.advance()
	return typ, nil
}

// parseFunction parses a declaration or definition. main may omit its
// return type and is always a definition.
func (p *Parser) parseFunction() error {
	ret := TypeInt
	if !p.check(IDENTIFIER) {
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		ret = typ
	}
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}
	params, err := p.parseParams()
	if err != nil {
		return err
	}

	name := nameTok.Lexeme
	isMain := name == "main"
	isDef := p.check(LBRACE)
	if isMain && !isDef {
		return p.errorf(p.peek(), "Expected '{' after main function declaration")
	}
	if !isDef {
		if !p.check(SEMICOLON) {
			return p.errorf(p.peek(), "Expected ';' or '{' after function signature")
		}
		p.advance()
	}

	if _, ok := builtins[name]; ok {
		p.semantic(nameTok, "'%s' is a built-in function and cannot be redeclared", name)
		if !isDef {
			return nil
		}
		return p.parseFunctionBody(&Function{Name: name, Return: ret, Params: params, Defined: true}, nameTok)
	}

	fn, err := p.syms.AddFunction(name, ret, params, nameTok.Line, isDef)
	if err != nil {
		p.semantic(nameTok, "%s", capitalize(err.Error()))
	}
	if !isDef {
		return nil
	}
	if fn == nil || errors.Is(err, ErrConflictingType) {
		fn = &Function{Name: name, Return: ret, Params: params, Defined: true}
	}
	return p.parseFunctionBody(fn, nameTok)
}

// parseParams parses a parameter list after '(' up to and including ')'.
func (p *Parser) parseParams() ([]Param, error) {
	if p.accept(RPAREN) {
		return nil, nil
	}
	if p.check(VOID) && p.peekAt(1).Type == RPAREN {
		p.advance()
		p.advance()
		return nil, nil
	}
	var params []Param
	for {
		typTok := p.peek()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if typ == TypeVoid {
			p.semantic(typTok, "Parameter cannot have type void")
		}
		prm := Param{Type: typ}
		if p.check(IDENTIFIER) {
			prm.Name = p.advance().Lexeme
		}
		params = append(params, prm)
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFunctionBody emits the begin marker, binds parameters in the body
// scope and terminates the function with return, or sys for main.
func (p *Parser) parseFunctionBody(fn *Function, nameTok Token) error {
	p.prog.Emit(OpBegin, fn.Name, "", "")
	p.syms.EnterScope()
	defer p.syms.ExitScope()
	p.fn = fn
	defer func() { p.fn = nil }()

	for _, prm := range fn.Params {
		if prm.Name == "" {
			p.semantic(nameTok, "Parameter name omitted in definition of '%s'", fn.Name)
			continue
		}
		v, existed, err := p.syms.AddVariable(prm.Name, prm.Type, KindParameter, nameTok.Line, nameTok.Column)
		switch {
		case err != nil:
			p.semantic(nameTok, "%s", capitalize(err.Error()))
		case existed:
			p.semantic(nameTok, "Parameter '%s' redeclared", prm.Name)
		default:
			v.Owner = fn.Name
		}
	}

	if _, err := p.expect(LBRACE); err != nil {
		return err
	}
	p.parseStatements()
	if _, err := p.expect(RBRACE); err != nil {
		return err
	}

	if fn.Name == "main" {
		p.prog.Emit(OpSys, "", "", "")
	} else {
		p.prog.Emit(OpReturn, "", "", "")
	}
	return nil
}

// parseDeclaration parses [const] type idInit ("," idInit)* ";" at global
// or local level. Local initialisers emit an assignment even when the types
// mismatch; global initialisers must be constant and are stored in the
// symbol instead.
func (p *Parser) parseDeclaration() error {
	isConst := p.accept(CONST)
	typTok := p.peek()
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if typ == TypeVoid {
		p.semantic(typTok, "Variable cannot be declared void")
	}
	kind := KindVariable
	if isConst {
		kind = KindConstant
	}
	global := p.fn == nil

	for {
		idTok := p.peek()
		if idTok.Type != IDENTIFIER {
			return p.errorf(idTok, "Expected identifier after type")
		}
		p.advance()
		name := idTok.Lexeme

		v, existed, err := p.syms.AddVariable(name, typ, kind, idTok.Line, idTok.Column)
		switch {
		case err != nil:
			p.semantic(idTok, "%s", capitalize(err.Error()))
			v = nil
		case existed:
			p.semantic(idTok, "Variable '%s' redeclared", name)
			v = nil
		default:
			if !global {
				v.Owner = p.fn.Name
			}
		}

		if p.accept(ASSIGN) {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			val := p.asValue(e)
			if !assignable(typ, val.typ) {
				p.semantic(idTok, "Type mismatch: cannot initialize '%s' of type %s with %s", name, typ, val.typ)
			}
			if global {
				if val.konst == nil {
					p.semantic(idTok, "Initializer of global '%s' must be a constant expression", name)
				} else if v != nil {
					v.Value = convertConst(typ, val.konst)
				}
			} else {
				p.prog.Emit(OpAssign, val.place, "", placeOf(p.syms.LookupVariable(name), idTok))
				if v != nil {
					v.Value = convertConst(typ, val.konst)
				}
			}
		} else if isConst {
			p.semantic(idTok, "Constant '%s' must be initialized", name)
		}

		if !p.accept(COMMA) {
			break
		}
	}
	_, err = p.expect(SEMICOLON)
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
