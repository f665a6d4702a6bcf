package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CodeGen lowers a quadruple list to stack-machine assembly. Every variable
// and temporary lives in the data segment as a word (see slot); parameters
// are copied there from the caller's stack on function entry.
type CodeGen struct {
	quads   []Quad
	dump    *Dump
	out     strings.Builder
	targets map[int]bool // quad indices that need an L<n> label
	labeled map[int]bool
	current string // function being emitted
}

func newCodeGen(quads []Quad, dump *Dump) *CodeGen {
	if dump == nil {
		dump = &Dump{}
	}
	return &CodeGen{
		quads:   quads,
		dump:    dump,
		targets: make(map[int]bool),
		labeled: make(map[int]bool),
	}
}

// Generate translates quads using the dumped symbol table for the data
// segment and function signatures.
func Generate(quads []Quad, dump *Dump) (string, error) {
	cg := newCodeGen(quads, dump)
	return cg.generate()
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "    "+format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

func (cg *CodeGen) label(n int) {
	if cg.labeled[n] {
		return
	}
	cg.labeled[n] = true
	fmt.Fprintf(&cg.out, "L%d:\n", n)
}

func (cg *CodeGen) generate() (string, error) {
	for _, q := range cg.quads {
		if n, ok := q.Target(); ok {
			cg.targets[n] = true
		}
	}

	cg.out.WriteString(runtimeHeader)
	cg.emitData()
	cg.out.WriteString(dataEnd)
	cg.out.WriteString("\n")
	cg.out.WriteString(runtimeStart)
	cg.out.WriteString("\n")

	for _, q := range cg.quads {
		if q.Op != OpLabel && cg.targets[q.Index] {
			cg.label(q.Index)
		}
		if err := cg.emitQuad(q); err != nil {
			return "", err
		}
	}
	// Jumps past the last quadruple.
	last := QuadBase
	if len(cg.quads) > 0 {
		last = cg.quads[len(cg.quads)-1].Index
	}
	var tail []int
	for n := range cg.targets {
		if n > last {
			tail = append(tail, n)
		}
	}
	if len(tail) > 0 {
		sort.Ints(tail)
		for _, n := range tail {
			cg.label(n)
		}
		cg.line("mov ah,4ch")
		cg.line("int 21h")
	}

	cg.out.WriteString(runtimeLibrary)
	cg.out.WriteString(runtimeFooter)
	return cg.out.String(), nil
}

// dataNames returns every storage name in declaration order, then every
// temporary or unknown name the quadruples use.
func (cg *CodeGen) dataNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(s string) {
		if isName(s) && !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	for _, v := range cg.dump.Variables {
		add(v.Place())
	}
	for _, q := range cg.quads {
		switch {
		case q.Op.IsArith():
			add(q.Arg1)
			add(q.Arg2)
			add(q.Result)
		case q.Op == OpAssign:
			add(q.Arg1)
			add(q.Result)
		case q.Op.IsJump():
			add(q.Arg1)
			add(q.Arg2)
		case q.Op == OpParam, q.Op == OpReturn:
			add(q.Arg1)
		case q.Op == OpCall:
			add(q.Result)
		}
	}
	return names
}

func (cg *CodeGen) emitData() {
	for _, name := range cg.dataNames() {
		init := "0"
		if v := cg.dump.Variable(name); v != nil && v.Scope == 0 && v.Value != "" {
			init = cg.operand(v.Value)
		}
		fmt.Fprintf(&cg.out, "    %s dw %s\n", slot(name), init)
	}
}

// slot maps an operand name to its data label. Variables get _<name>,
// temporaries $Tn get Tn and shadowing storage x$n gets _n_x; the last two
// cannot clash with a variable label since identifiers never start with a
// digit and every variable label starts with '_'.
func slot(name string) string {
	i := strings.IndexByte(name, '$')
	switch {
	case i == 0:
		return name[1:]
	case i > 0:
		return "_" + name[i+1:] + "_" + name[:i]
	}
	return "_" + name
}

// operand renders a quadruple field: literals are immediates (floats are
// truncated to words), names are data-segment words.
func (cg *CodeGen) operand(s string) string {
	if v, ok := ParseConst(s); ok {
		if f, isFloat := v.(float64); isFloat {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatInt(v.(int64), 10)
	}
	return "word ptr ds:[" + slot(s) + "]"
}

var jumpMnemonics = map[Op]string{
	OpJLT: "jl",
	OpJLE: "jle",
	OpJGT: "jg",
	OpJGE: "jge",
	OpJEQ: "je",
	OpJNE: "jne",
	OpJmp: "jmp",
}

func (cg *CodeGen) emitQuad(q Quad) error {
	switch q.Op {
	case OpLabel:
		n, err := strconv.Atoi(q.Result)
		if err != nil {
			return fmt.Errorf("quad %d: bad label %q", q.Index, q.Result)
		}
		cg.label(n)

	case OpBegin:
		cg.current = q.Arg1
		fmt.Fprintf(&cg.out, "F_%s:\n", q.Arg1)
		cg.line("push bp")
		cg.line("mov bp, sp")
		if fn := cg.dump.Function(q.Arg1); fn != nil {
			params := cg.dump.ParamPlaces(fn.Name)
			for i, name := range params {
				if name == "" {
					continue
				}
				cg.line("mov ax, ss:[bp+%d]", 4+(len(params)-i-1)*2)
				cg.line("mov word ptr ds:[%s], ax", slot(name))
			}
		}

	case OpParam:
		cg.line("mov ax, %s", cg.operand(q.Arg1))
		cg.line("push ax")

	case OpCall:
		switch q.Arg1 {
		case "read":
			cg.line("call _read")
		case "write":
			cg.line("call _write")
		default:
			cg.line("call F_%s", q.Arg1)
			if n, err := strconv.Atoi(q.Arg2); err == nil && n > 0 {
				cg.line("add sp, %d", n*2)
			}
		}
		if q.Result != NoValue {
			cg.line("mov %s, ax", cg.operand(q.Result))
		}

	case OpAssign:
		cg.line("mov ax, %s", cg.operand(q.Arg1))
		cg.line("mov %s, ax", cg.operand(q.Result))

	case OpAdd, OpSub:
		mnemonic := "add"
		if q.Op == OpSub {
			mnemonic = "sub"
		}
		cg.line("mov ax, %s", cg.operand(q.Arg1))
		cg.line("%s ax, %s", mnemonic, cg.operand(q.Arg2))
		cg.line("mov %s, ax", cg.operand(q.Result))

	case OpMul:
		cg.line("mov ax, %s", cg.operand(q.Arg1))
		cg.line("mov bx, %s", cg.operand(q.Arg2))
		cg.line("imul bx")
		cg.line("mov %s, ax", cg.operand(q.Result))

	case OpDiv, OpMod:
		cg.line("mov ax, %s", cg.operand(q.Arg1))
		cg.line("cwd")
		cg.line("mov bx, %s", cg.operand(q.Arg2))
		cg.line("idiv bx")
		if q.Op == OpMod {
			cg.line("mov %s, dx", cg.operand(q.Result))
		} else {
			cg.line("mov %s, ax", cg.operand(q.Result))
		}

	case OpJLT, OpJLE, OpJGT, OpJGE, OpJEQ, OpJNE, OpJmp:
		target, ok := q.Target()
		if !ok {
			cg.comment("%s: unresolved jump", q)
			return nil
		}
		if q.Op != OpJmp {
			cg.line("mov ax, %s", cg.operand(q.Arg1))
			cg.line("cmp ax, %s", cg.operand(q.Arg2))
		}
		cg.line("%s L%d", jumpMnemonics[q.Op], target)

	case OpReturn:
		if q.Arg1 != NoValue {
			cg.line("mov ax, %s", cg.operand(q.Arg1))
		}
		cg.line("mov sp, bp")
		cg.line("pop bp")
		if cg.current == "main" {
			cg.line("mov ah,4ch")
			cg.line("int 21h")
		} else {
			cg.line("ret")
		}

	case OpSys:
		cg.line("mov ah,4ch")
		cg.line("int 21h")

	default:
		return fmt.Errorf("quad %d: unsupported op %s", q.Index, q.Op)
	}
	return nil
}
