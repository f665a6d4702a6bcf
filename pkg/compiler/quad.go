package compiler

import (
	"fmt"
	"strconv"
)

// QuadBase is the index of the first quadruple, keeping jump targets visually
// distinct from source line numbers.
const QuadBase = 100

// NoValue marks an empty quadruple field or an unresolved jump target.
const NoValue = "_"

// Op is a quadruple operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAssign
	OpJLT
	OpJLE
	OpJGT
	OpJGE
	OpJEQ
	OpJNE
	OpJmp
	OpCall
	OpParam
	OpReturn
	OpLabel
	OpSys
	OpBegin
)

var opNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpAssign: "=",
	OpJLT:    "j<",
	OpJLE:    "j<=",
	OpJGT:    "j>",
	OpJGE:    "j>=",
	OpJEQ:    "j==",
	OpJNE:    "j!=",
	OpJmp:    "jmp",
	OpCall:   "call",
	OpParam:  "param",
	OpReturn: "return",
	OpLabel:  "label",
	OpSys:    "sys",
	OpBegin:  "begin",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp maps a listing spelling back to its Op. "para", "j" and "ret" are
// accepted as older spellings of param, jmp and return.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "para":
		return OpParam, true
	case "j":
		return OpJmp, true
	case "ret":
		return OpReturn, true
	}
	for i, name := range opNames {
		if name == s {
			return Op(i), true
		}
	}
	return 0, false
}

// IsJump reports whether the Result field of o is a jump target.
func (o Op) IsJump() bool { return o >= OpJLT && o <= OpJmp }

// IsArith reports whether o is a binary arithmetic operator.
func (o Op) IsArith() bool { return o >= OpAdd && o <= OpMod }

var relOps = map[TokenType]Op{
	LESS:       OpJLT,
	LESS_EQ:    OpJLE,
	GREATER:    OpJGT,
	GREATER_EQ: OpJGE,
	EQUALS:     OpJEQ,
	NOT_EQ:     OpJNE,
}

// Quad is one three-address instruction.
type Quad struct {
	Index  int
	Op     Op
	Arg1   string
	Arg2   string
	Result string
}

func (q Quad) String() string {
	return fmt.Sprintf("%d: (%s, %s, %s, %s)", q.Index, q.Op, q.Arg1, q.Arg2, q.Result)
}

// Target returns the resolved jump target of q.
func (q Quad) Target() (int, bool) {
	if !q.Op.IsJump() {
		return 0, false
	}
	n, err := strconv.Atoi(q.Result)
	return n, err == nil
}

// JumpList holds indices of jumps still waiting for a target.
type JumpList []int

// Merge concatenates jump lists.
func Merge(lists ...JumpList) JumpList {
	var out JumpList
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Program is the append-only quadruple arena of one compilation. Backpatch is
// the only write to an already emitted quadruple and only touches the target
// of a jump.
type Program struct {
	quads []Quad
	temps int
}

func NewProgram() *Program {
	return &Program{}
}

// Emit appends a quadruple and returns its index. Empty fields become NoValue.
func (p *Program) Emit(op Op, arg1, arg2, result string) int {
	idx := p.NextQuad()
	p.quads = append(p.quads, Quad{
		Index:  idx,
		Op:     op,
		Arg1:   orNoValue(arg1),
		Arg2:   orNoValue(arg2),
		Result: orNoValue(result),
	})
	return idx
}

// NextQuad returns the index the next emitted quadruple will get.
func (p *Program) NextQuad() int {
	return QuadBase + len(p.quads)
}

// Backpatch resolves every jump in list to target.
func (p *Program) Backpatch(list JumpList, target int) {
	for _, idx := range list {
		i := idx - QuadBase
		if i < 0 || i >= len(p.quads) || !p.quads[i].Op.IsJump() {
			continue
		}
		p.quads[i].Result = strconv.Itoa(target)
	}
}

// NewTemp allocates the next temporary name $T1, $T2, ... The '$' keeps
// temporaries apart from every identifier the lexer accepts.
func (p *Program) NewTemp() string {
	p.temps++
	return "$T" + strconv.Itoa(p.temps)
}

// Quads returns a copy of the emitted quadruples.
func (p *Program) Quads() []Quad {
	out := make([]Quad, len(p.quads))
	copy(out, p.quads)
	return out
}

// Len returns the number of emitted quadruples.
func (p *Program) Len() int { return len(p.quads) }

func orNoValue(s string) string {
	if s == "" {
		return NoValue
	}
	return s
}

// isName reports whether an operand refers to storage rather than a literal:
// an identifier, a temporary or a shadowing variable's storage name.
func isName(s string) bool {
	if s == "" || s == NoValue {
		return false
	}
	for i, r := range s {
		if r == '$' {
			continue
		}
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

// PatchUnresolved resolves every jump emitted at or after quad from that
// still has no target. Error recovery uses it so abandoned statements leave
// no dangling jumps behind.
func (p *Program) PatchUnresolved(from, target int) {
	for i := range p.quads {
		q := &p.quads[i]
		if q.Index >= from && q.Op.IsJump() && q.Result == NoValue {
			q.Result = strconv.Itoa(target)
		}
	}
}
