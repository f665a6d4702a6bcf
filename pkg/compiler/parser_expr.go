package compiler

import "strconv"

// expr is the synthesized attribute of an expression production. A value
// expression has a type, a place and possibly a compile-time constant; a
// condition carries the true and false jump lists awaiting backpatching.
type expr struct {
	typ   Type
	konst any    // int64 or float64 when known at compile time
	place string // variable, temporary or literal holding the value

	isCond    bool
	truelist  JumpList
	falselist JumpList
}

func constExpr(typ Type, v any) expr {
	return expr{typ: typ, konst: v, place: FormatConst(v)}
}

func typeOf(v *Variable) Type {
	if v == nil {
		return TypeInt
	}
	return v.Type
}

// asCond turns a value into a condition. Constants become a single jmp into
// the true or false list; other values are tested against zero.
func (p *Parser) asCond(e expr) expr {
	if e.isCond {
		return e
	}
	if e.konst != nil {
		j := p.prog.Emit(OpJmp, "", "", "")
		if constTruthy(e.konst) {
			return expr{typ: TypeBool, isCond: true, truelist: JumpList{j}}
		}
		return expr{typ: TypeBool, isCond: true, falselist: JumpList{j}}
	}
	t := p.prog.Emit(OpJNE, e.place, "0", "")
	f := p.prog.Emit(OpJmp, "", "", "")
	return expr{typ: TypeBool, isCond: true, truelist: JumpList{t}, falselist: JumpList{f}}
}

// asValue materialises a condition into a temporary holding 1 or 0.
func (p *Parser) asValue(e expr) expr {
	if !e.isCond {
		return e
	}
	t := p.prog.NewTemp()
	p.prog.Backpatch(e.truelist, p.prog.NextQuad())
	p.prog.Emit(OpAssign, "1", "", t)
	j := p.prog.Emit(OpJmp, "", "", "")
	p.prog.Backpatch(JumpList{j}, j+2)
	p.prog.Backpatch(e.falselist, p.prog.NextQuad())
	p.prog.Emit(OpAssign, "0", "", t)
	return expr{typ: TypeBool, place: t}
}

// parseExpr is the entry point for expression parsing.
func (p *Parser) parseExpr() (expr, error) {
	return p.parseOr()
}

// parseOr handles ||. The left falselist falls through to the right operand.
func (p *Parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return expr{}, err
	}
	for p.accept(OR_LOGICAL) {
		l := p.asCond(left)
		p.prog.Backpatch(l.falselist, p.prog.NextQuad())
		right, err := p.parseAnd()
		if err != nil {
			return expr{}, err
		}
		r := p.asCond(right)
		left = expr{typ: TypeBool, isCond: true, truelist: Merge(l.truelist, r.truelist), falselist: r.falselist}
	}
	return left, nil
}

// parseAnd handles &&. The left truelist falls through to the right operand.
func (p *Parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return expr{}, err
	}
	for p.accept(AND_LOGICAL) {
		l := p.asCond(left)
		p.prog.Backpatch(l.truelist, p.prog.NextQuad())
		right, err := p.parseNot()
		if err != nil {
			return expr{}, err
		}
		r := p.asCond(right)
		left = expr{typ: TypeBool, isCond: true, truelist: r.truelist, falselist: Merge(l.falselist, r.falselist)}
	}
	return left, nil
}

// parseNot handles !. It swaps the jump lists and emits nothing.
func (p *Parser) parseNot() (expr, error) {
	if !p.accept(NOT) {
		return p.parseRelational()
	}
	e, err := p.parseNot()
	if err != nil {
		return expr{}, err
	}
	if !e.isCond && e.konst != nil {
		if constTruthy(e.konst) {
			return constExpr(TypeBool, int64(0)), nil
		}
		return constExpr(TypeBool, int64(1)), nil
	}
	c := p.asCond(e)
	return expr{typ: TypeBool, isCond: true, truelist: c.falselist, falselist: c.truelist}, nil
}

// parseRelational handles comparison chains. Each comparison checks its own
// operands; an earlier comparison used as an operand is materialised first.
func (p *Parser) parseRelational() (expr, error) {
	left, err := p.parseArith()
	if err != nil {
		return expr{}, err
	}
	for {
		opTok := p.peek()
		op, ok := relOps[opTok.Type]
		if !ok {
			return left, nil
		}
		p.advance()
		l := p.asValue(left)
		right, err := p.parseArith()
		if err != nil {
			return expr{}, err
		}
		r := p.asValue(right)
		if !l.typ.numeric() || !r.typ.numeric() {
			p.semantic(opTok, "Invalid operands to '%s': %s and %s", opTok.Lexeme, l.typ, r.typ)
		}
		if l.konst != nil && r.konst != nil {
			if foldCompare(op, l.konst, r.konst) {
				left = constExpr(TypeBool, int64(1))
			} else {
				left = constExpr(TypeBool, int64(0))
			}
			continue
		}
		t := p.prog.Emit(op, l.place, r.place, "")
		f := p.prog.Emit(OpJmp, "", "", "")
		left = expr{typ: TypeBool, isCond: true, truelist: JumpList{t}, falselist: JumpList{f}}
	}
}

// parseArith handles + and -.
func (p *Parser) parseArith() (expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return expr{}, err
	}
	for p.check(PLUS) || p.check(MINUS) {
		opTok := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return expr{}, err
		}
		op := OpAdd
		if opTok.Type == MINUS {
			op = OpSub
		}
		left = p.binary(op, opTok, left, right)
	}
	return left, nil
}

// parseTerm handles *, / and %.
func (p *Parser) parseTerm() (expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return expr{}, err
	}
	for p.check(STAR) || p.check(SLASH) || p.check(PERCENT) {
		opTok := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return expr{}, err
		}
		op := OpMul
		switch opTok.Type {
		case SLASH:
			op = OpDiv
		case PERCENT:
			op = OpMod
		}
		left = p.binary(op, opTok, left, right)
	}
	return left, nil
}

// binary type-checks an arithmetic operation and either folds it or emits
// it into a fresh temporary. Division by a constant zero is reported and
// still emitted.
func (p *Parser) binary(op Op, opTok Token, left, right expr) expr {
	l, r := p.asValue(left), p.asValue(right)
	if !l.typ.numeric() || !r.typ.numeric() {
		p.semantic(opTok, "Invalid operands to '%s': %s and %s", opTok.Lexeme, l.typ, r.typ)
	}
	if op == OpMod && !(l.typ.integral() && r.typ.integral()) {
		p.semantic(opTok, "Operands of '%%' must be integers")
	}
	typ := promote(l.typ, r.typ)

	zeroDiv := (op == OpDiv || op == OpMod) && constIsZero(r.konst)
	if zeroDiv {
		p.semantic(opTok, "Division or modulo by zero")
	}
	if !zeroDiv && l.konst != nil && r.konst != nil {
		if v, ok := foldArith(op, l.konst, r.konst); ok {
			return constExpr(typ, convertConst(typ, v))
		}
	}
	t := p.prog.NewTemp()
	p.prog.Emit(op, l.place, r.place, t)
	return expr{typ: typ, place: t}
}

// parseFactor handles unary + and -, prefix ++ and --, then primaries.
func (p *Parser) parseFactor() (expr, error) {
	tok := p.peek()
	switch tok.Type {
	case PLUS, MINUS:
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return expr{}, err
		}
		e := p.asValue(operand)
		if !e.typ.numeric() {
			p.semantic(tok, "Operand of unary '%s' must be numeric", tok.Lexeme)
		}
		if tok.Type == PLUS {
			return e, nil
		}
		if e.konst != nil {
			switch n := e.konst.(type) {
			case int64:
				return constExpr(promote(e.typ, TypeInt), -n), nil
			case float64:
				return constExpr(e.typ, -n), nil
			}
		}
		t := p.prog.NewTemp()
		p.prog.Emit(OpSub, "0", e.place, t)
		return expr{typ: promote(e.typ, TypeInt), place: t}, nil
	case PLUS_PLUS, MINUS_MINUS:
		p.advance()
		idTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return expr{}, err
		}
		v := p.emitStep(idTok, tok)
		return expr{typ: typeOf(v), place: idTok.Lexeme}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INT_LIT:
		p.advance()
		return constExpr(TypeInt, tok.Value.(int64)), nil
	case CHAR_LIT:
		p.advance()
		return constExpr(TypeChar, tok.Value.(int64)), nil
	case FLOAT_LIT:
		p.advance()
		return constExpr(TypeFloat, tok.Value.(float64)), nil
	case TRUE:
		p.advance()
		return constExpr(TypeBool, int64(1)), nil
	case FALSE:
		p.advance()
		return constExpr(TypeBool, int64(0)), nil
	case STRING_LIT:
		p.advance()
		p.semantic(tok, "String literal cannot be used as a value")
		return constExpr(TypeInt, int64(0)), nil
	case LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return expr{}, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return expr{}, err
		}
		return e, nil
	case IDENTIFIER:
		if p.peekAt(1).Type == LPAREN {
			return p.parseCall()
		}
		p.advance()
		if next := p.peek(); next.Type == PLUS_PLUS || next.Type == MINUS_MINUS {
			p.advance()
			t := p.prog.NewTemp()
			p.prog.Emit(OpAssign, placeOf(p.syms.LookupVariable(tok.Lexeme), tok), "", t)
			v := p.emitStep(tok, next)
			return expr{typ: typeOf(v), place: t}, nil
		}
		v := p.reference(tok)
		if v != nil && v.Kind == KindConstant && v.Value != nil {
			return constExpr(v.Type, v.Value), nil
		}
		return expr{typ: typeOf(v), place: placeOf(v, tok)}, nil
	}
	return expr{}, p.errorf(tok, "Expected '(', identifier (with optional ++/--), or literal, got '%s'", tok.Lexeme)
}

// reference resolves a variable use and counts it.
func (p *Parser) reference(tok Token) *Variable {
	v := p.syms.LookupVariable(tok.Lexeme)
	if v == nil {
		if p.syms.LookupFunction(tok.Lexeme) != nil {
			p.semantic(tok, "'%s' is a function, not a variable", tok.Lexeme)
		} else {
			p.semantic(tok, "Undeclared identifier '%s'", tok.Lexeme)
		}
		return nil
	}
	v.Uses++
	return v
}

// placeOf returns the operand naming v. Undeclared names, already reported,
// keep their spelling.
func placeOf(v *Variable, tok Token) string {
	if v == nil {
		return tok.Lexeme
	}
	return v.Place()
}

// parseCall parses name(args). Parameters are emitted after every argument
// has been evaluated, then (call, name, argc, result).
func (p *Parser) parseCall() (expr, error) {
	nameTok := p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return expr{}, err
	}
	var args []expr
	var argToks []Token
	if !p.check(RPAREN) {
		for {
			argToks = append(argToks, p.peek())
			e, err := p.parseExpr()
			if err != nil {
				return expr{}, err
			}
			args = append(args, p.asValue(e))
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return expr{}, err
	}

	name := nameTok.Lexeme
	fn, builtin := builtins[name]
	if !builtin {
		fn = p.syms.LookupFunction(name)
	}
	ret := TypeInt
	switch {
	case fn == nil:
		p.semantic(nameTok, "Function '%s' is not declared", name)
	case len(args) != len(fn.Params):
		ret = fn.Return
		p.semantic(nameTok, "Function '%s' expects %d argument(s), got %d", name, len(fn.Params), len(args))
	default:
		ret = fn.Return
		for i, a := range args {
			if !assignable(fn.Params[i].Type, a.typ) {
				p.semantic(argToks[i], "Argument %d of '%s' has type %s, expected %s", i+1, name, a.typ, fn.Params[i].Type)
			}
		}
	}
	if fn != nil && !builtin {
		fn.Uses++
	}

	for _, a := range args {
		p.prog.Emit(OpParam, a.place, "", "")
	}
	result := ""
	if ret != TypeVoid {
		result = p.prog.NewTemp()
	}
	p.prog.Emit(OpCall, name, strconv.Itoa(len(args)), result)
	return expr{typ: ret, place: orNoValue(result)}, nil
}
