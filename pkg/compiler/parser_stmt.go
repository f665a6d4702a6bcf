package compiler

import "strconv"

// parseStatement parses one statement. Identifier statements are told apart
// by the next token: '(' is a call, '++'/'--' an increment, anything else an
// assignment.
func (p *Parser) parseStatement() error {
	tok := p.peek()
	switch tok.Type {
	case SEMICOLON:
		p.advance()
		return nil
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDoWhile()
	case FOR:
		return p.parseFor()
	case BREAK, CONTINUE:
		return p.parseLoopJump()
	case RETURN:
		return p.parseReturn()
	case CONST, INT, FLOAT, CHAR, BOOL, DOUBLE, VOID:
		return p.parseDeclaration()
	case PLUS_PLUS, MINUS_MINUS:
		if err := p.parseIncDec(); err != nil {
			return err
		}
		_, err := p.expect(SEMICOLON)
		return err
	case IDENTIFIER:
		var err error
		switch p.peekAt(1).Type {
		case LPAREN:
			_, err = p.parseCall()
		case PLUS_PLUS, MINUS_MINUS:
			err = p.parseIncDec()
		default:
			err = p.parseAssignment()
		}
		if err != nil {
			return err
		}
		_, err = p.expect(SEMICOLON)
		return err
	}
	return p.errorf(tok, "Expected assignment, block, if, or declaration statement, got '%s'", tok.Lexeme)
}

func (p *Parser) parseBlock() error {
	if _, err := p.expect(LBRACE); err != nil {
		return err
	}
	p.syms.EnterScope()
	defer p.syms.ExitScope()
	p.parseStatements()
	_, err := p.expect(RBRACE)
	return err
}

// parseCondition parses "(" expr ")" as a jump-list condition.
func (p *Parser) parseCondition() (expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return expr{}, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return expr{}, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return expr{}, err
	}
	return p.asCond(e), nil
}

func (p *Parser) parseIf() error {
	p.advance()
	c, err := p.parseCondition()
	if err != nil {
		return err
	}
	p.prog.Backpatch(c.truelist, p.prog.NextQuad())
	p.parseNested()

	if !p.accept(ELSE) {
		p.prog.Backpatch(c.falselist, p.prog.NextQuad())
		return nil
	}
	skip := p.prog.Emit(OpJmp, "", "", "")
	p.prog.Backpatch(c.falselist, p.prog.NextQuad())
	p.parseNested()
	p.prog.Backpatch(JumpList{skip}, p.prog.NextQuad())
	return nil
}

func (p *Parser) pushLoop() *loopFrame {
	frame := &loopFrame{}
	p.loops = append(p.loops, frame)
	return frame
}

func (p *Parser) popLoop() {
	p.loops = p.loops[:len(p.loops)-1]
}

func (p *Parser) parseWhile() error {
	p.advance()
	start := p.prog.NextQuad()
	c, err := p.parseCondition()
	if err != nil {
		return err
	}
	p.prog.Backpatch(c.truelist, p.prog.NextQuad())

	frame := p.pushLoop()
	defer p.popLoop()
	p.parseNested()
	p.prog.Emit(OpJmp, "", "", strconv.Itoa(start))

	exit := p.prog.NextQuad()
	p.prog.Backpatch(Merge(c.falselist, frame.breaks), exit)
	p.prog.Backpatch(frame.continues, start)
	return nil
}

func (p *Parser) parseDoWhile() error {
	p.advance()
	start := p.prog.NextQuad()
	frame := p.pushLoop()
	defer p.popLoop()
	p.parseNested()

	if _, err := p.expect(WHILE); err != nil {
		return err
	}
	condStart := p.prog.NextQuad()
	c, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	exit := p.prog.NextQuad()
	p.prog.Backpatch(c.truelist, start)
	p.prog.Backpatch(Merge(c.falselist, frame.breaks), exit)
	p.prog.Backpatch(frame.continues, condStart)
	return nil
}

// parseFor lays out: init, cond, iter, jmp cond, body, jmp iter. The for
// header opens its own scope.
func (p *Parser) parseFor() error {
	p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}
	p.syms.EnterScope()
	defer p.syms.ExitScope()

	switch {
	case p.accept(SEMICOLON):
	case p.check(CONST) || isTypeKeyword(p.peek().Type):
		if err := p.parseDeclaration(); err != nil {
			return err
		}
	default:
		if err := p.parseForUpdates(); err != nil {
			return err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}
	}

	condStart := p.prog.NextQuad()
	var c expr
	if p.check(SEMICOLON) {
		c = expr{isCond: true, truelist: JumpList{p.prog.Emit(OpJmp, "", "", "")}}
	} else {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		c = p.asCond(e)
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	iterStart := p.prog.NextQuad()
	if !p.check(RPAREN) {
		if err := p.parseForUpdates(); err != nil {
			return err
		}
	}
	p.prog.Emit(OpJmp, "", "", strconv.Itoa(condStart))
	if _, err := p.expect(RPAREN); err != nil {
		return err
	}

	p.prog.Backpatch(c.truelist, p.prog.NextQuad())
	frame := p.pushLoop()
	defer p.popLoop()
	p.parseNested()
	p.prog.Emit(OpJmp, "", "", strconv.Itoa(iterStart))

	exit := p.prog.NextQuad()
	p.prog.Backpatch(Merge(c.falselist, frame.breaks), exit)
	p.prog.Backpatch(frame.continues, iterStart)
	return nil
}

// parseForUpdates parses a comma separated list of assignments and
// increments as used in for headers.
func (p *Parser) parseForUpdates() error {
	for {
		var err error
		switch {
		case p.check(PLUS_PLUS), p.check(MINUS_MINUS):
			err = p.parseIncDec()
		case p.check(IDENTIFIER) && (p.peekAt(1).Type == PLUS_PLUS || p.peekAt(1).Type == MINUS_MINUS):
			err = p.parseIncDec()
		case p.check(IDENTIFIER) && p.peekAt(1).Type == LPAREN:
			_, err = p.parseCall()
		case p.check(IDENTIFIER):
			err = p.parseAssignment()
		default:
			err = p.errorf(p.peek(), "Expected assignment or increment, got '%s'", p.peek().Lexeme)
		}
		if err != nil {
			return err
		}
		if !p.accept(COMMA) {
			return nil
		}
	}
}

// parseLoopJump handles break and continue. Outside a loop they are a
// semantic error and emit nothing.
func (p *Parser) parseLoopJump() error {
	tok := p.advance()
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}
	if len(p.loops) == 0 {
		p.semantic(tok, "'%s' statement not within a loop", tok.Lexeme)
		return nil
	}
	frame := p.loops[len(p.loops)-1]
	j := p.prog.Emit(OpJmp, "", "", "")
	if tok.Type == BREAK {
		frame.breaks = append(frame.breaks, j)
	} else {
		frame.continues = append(frame.continues, j)
	}
	return nil
}

func (p *Parser) parseReturn() error {
	tok := p.advance()
	if p.accept(SEMICOLON) {
		if p.fn != nil && p.fn.Return != TypeVoid && p.fn.Name != "main" {
			p.semantic(tok, "Function '%s' must return a value of type %s", p.fn.Name, p.fn.Return)
		}
		p.prog.Emit(OpReturn, "", "", "")
		return nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return err
	}
	val := p.asValue(e)
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}
	if p.fn != nil {
		switch {
		case p.fn.Return == TypeVoid:
			p.semantic(tok, "Void function '%s' cannot return a value", p.fn.Name)
		case !assignable(p.fn.Return, val.typ):
			p.semantic(tok, "Type mismatch: function '%s' returns %s, got %s", p.fn.Name, p.fn.Return, val.typ)
		}
	}
	p.prog.Emit(OpReturn, val.place, "", "")
	return nil
}

var compoundOps = map[TokenType]Op{
	PLUS_ASSIGN:    OpAdd,
	MINUS_ASSIGN:   OpSub,
	STAR_ASSIGN:    OpMul,
	SLASH_ASSIGN:   OpDiv,
	PERCENT_ASSIGN: OpMod,
}

// parseAssignment parses IDENTIFIER op expr without the trailing ';'.
// Compound forms emit a single (op, x, rhs, x).
func (p *Parser) parseAssignment() error {
	idTok := p.advance()
	v := p.reference(idTok)
	opTok := p.peek()
	op, compound := compoundOps[opTok.Type]
	if !compound && opTok.Type != ASSIGN {
		return p.errorf(opTok, "Expected assignment operator (=, +=, -=, *=, /=, %%=), got '%s'", opTok.Lexeme)
	}
	p.advance()

	e, err := p.parseExpr()
	if err != nil {
		return err
	}
	val := p.asValue(e)
	name := idTok.Lexeme
	place := placeOf(v, idTok)
	target := typeOf(v)

	if v != nil && v.Kind == KindConstant {
		p.semantic(idTok, "Cannot assign to constant '%s'", name)
	}
	if !assignable(target, val.typ) {
		p.semantic(opTok, "Type mismatch: cannot assign %s to '%s' of type %s", val.typ, name, target)
	}

	if !compound {
		p.prog.Emit(OpAssign, val.place, "", place)
		p.track(v, val.konst)
		return nil
	}
	if op == OpMod && !(target.integral() && val.typ.integral()) {
		p.semantic(opTok, "Operands of '%%' must be integers")
	}
	if (op == OpDiv || op == OpMod) && constIsZero(val.konst) {
		p.semantic(opTok, "Division or modulo by zero")
	}
	p.prog.Emit(op, place, val.place, place)
	p.track(v, nil)
	return nil
}

// parseIncDec parses x++, x--, ++x or --x as a statement: only the update
// is emitted.
func (p *Parser) parseIncDec() error {
	var idTok, opTok Token
	if p.check(PLUS_PLUS) || p.check(MINUS_MINUS) {
		opTok = p.advance()
		tok, err := p.expect(IDENTIFIER)
		if err != nil {
			return err
		}
		idTok = tok
	} else {
		idTok = p.advance()
		opTok = p.advance()
	}
	p.emitStep(idTok, opTok)
	return nil
}

// emitStep emits x = x ± 1 for an increment or decrement of idTok.
func (p *Parser) emitStep(idTok, opTok Token) *Variable {
	v := p.reference(idTok)
	if v != nil && v.Kind == KindConstant {
		p.semantic(idTok, "Cannot assign to constant '%s'", idTok.Lexeme)
	}
	if !typeOf(v).numeric() {
		p.semantic(opTok, "Operand of '%s' must be numeric", opTok.Lexeme)
	}
	op := OpAdd
	if opTok.Type == MINUS_MINUS {
		op = OpSub
	}
	place := placeOf(v, idTok)
	p.prog.Emit(op, place, "1", place)
	p.track(v, nil)
	return v
}

// track records the constant value last assigned to a local variable.
// Globals keep their initial value, which is what the data segment holds.
func (p *Parser) track(v *Variable, konst any) {
	if v == nil || v.Scope == 0 || v.Kind == KindConstant {
		return
	}
	v.Value = convertConst(v.Type, konst)
}
