// Package quadvm interprets quadruple programs directly. It is the reference
// semantics the generated assembly is checked against.
package quadvm

import (
	"errors"
	"fmt"
	"strconv"

	"quadc/pkg/compiler"
)

// DefaultMaxSteps bounds Run when Options.MaxSteps is zero.
const DefaultMaxSteps = 1_000_000

var (
	ErrNoMain         = errors.New("no main function")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrInputExhausted = errors.New("read: input exhausted")
	ErrUnresolved     = errors.New("unresolved jump")
	ErrDivideByZero   = errors.New("division by zero")
)

// Options configures a Machine.
type Options struct {
	Input    []int64 // values returned by successive read() calls
	MaxSteps int
}

type frame struct {
	fn     string
	locals map[string]any
	ret    int    // position to resume at in the caller
	result string // caller's destination for the return value
}

// Machine executes a quadruple program from main's begin marker.
type Machine struct {
	quads   []compiler.Quad
	pos     map[int]int      // quad index -> slice position
	entry   map[string]int   // function -> position of its begin quad
	params  map[string][]string
	globals map[string]any
	owned   map[string]map[string]bool // function -> its local names

	frames []*frame
	args   []any
	pc     int
	steps  int
	input  []int64
	max    int

	Halted bool
	Output []int64 // values passed to write()
	Trace  []int   // indices of executed quadruples, in order
	Return any     // value main returned, if any
}

// New prepares a machine. Globals are initialised from the scope 0 entries
// of dump.
func New(quads []compiler.Quad, dump *compiler.Dump, opts Options) *Machine {
	if dump == nil {
		dump = &compiler.Dump{}
	}
	m := &Machine{
		quads:   quads,
		pos:     make(map[int]int),
		entry:   make(map[string]int),
		params:  make(map[string][]string),
		globals: make(map[string]any),
		owned:   make(map[string]map[string]bool),
		input:   opts.Input,
		max:     opts.MaxSteps,
	}
	if m.max <= 0 {
		m.max = DefaultMaxSteps
	}
	for i, q := range quads {
		if q.Op == compiler.OpLabel {
			continue
		}
		m.pos[q.Index] = i
		if q.Op == compiler.OpBegin {
			m.entry[q.Arg1] = i
		}
	}
	for _, f := range dump.Functions {
		m.params[f.Name] = dump.ParamPlaces(f.Name)
	}
	for _, v := range dump.Variables {
		if v.Scope == 0 {
			m.globals[v.Name] = int64(0)
			if c, ok := compiler.ParseConst(v.Value); ok {
				m.globals[v.Name] = c
			}
			continue
		}
		if m.owned[v.Function] == nil {
			m.owned[v.Function] = make(map[string]bool)
		}
		m.owned[v.Function][v.Place()] = true
	}

	if start, ok := m.entry["main"]; ok {
		m.frames = []*frame{{fn: "main", locals: make(map[string]any)}}
		m.pc = start + 1
	} else {
		m.Halted = true
	}
	return m
}

// Run steps the machine until it halts or fails.
func (m *Machine) Run() error {
	if _, ok := m.entry["main"]; !ok {
		return ErrNoMain
	}
	for !m.Halted {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes one quadruple.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.pc >= len(m.quads) {
		m.Halted = true
		return nil
	}
	if m.steps >= m.max {
		return ErrStepLimit
	}
	m.steps++

	q := m.quads[m.pc]
	next := m.pc + 1
	if q.Op != compiler.OpLabel {
		m.Trace = append(m.Trace, q.Index)
	}

	switch q.Op {
	case compiler.OpLabel:

	case compiler.OpBegin:
		return fmt.Errorf("quad %d: fell through into function %s", q.Index, q.Arg1)

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod:
		v, err := arith(q.Op, m.load(q.Arg1), m.load(q.Arg2))
		if err != nil {
			return fmt.Errorf("quad %d: %w", q.Index, err)
		}
		m.store(q.Result, v)

	case compiler.OpAssign:
		m.store(q.Result, m.load(q.Arg1))

	case compiler.OpJLT, compiler.OpJLE, compiler.OpJGT, compiler.OpJGE, compiler.OpJEQ, compiler.OpJNE, compiler.OpJmp:
		target, ok := q.Target()
		if !ok {
			return fmt.Errorf("quad %d: %w", q.Index, ErrUnresolved)
		}
		if q.Op == compiler.OpJmp || compare(q.Op, m.load(q.Arg1), m.load(q.Arg2)) {
			p, ok := m.pos[target]
			if !ok {
				p = len(m.quads)
			}
			next = p
		}

	case compiler.OpParam:
		m.args = append(m.args, m.load(q.Arg1))

	case compiler.OpCall:
		n, _ := strconv.Atoi(q.Arg2)
		if n > len(m.args) {
			n = len(m.args)
		}
		args := m.args[len(m.args)-n:]
		m.args = m.args[:len(m.args)-n]

		start, user := m.entry[q.Arg1]
		switch {
		case user:
			f := &frame{fn: q.Arg1, locals: make(map[string]any), ret: next, result: q.Result}
			for i, name := range m.params[q.Arg1] {
				if i < len(args) && name != "" {
					f.locals[name] = args[i]
				}
			}
			m.frames = append(m.frames, f)
			next = start + 1
		case q.Arg1 == "read":
			if len(m.input) == 0 {
				return fmt.Errorf("quad %d: %w", q.Index, ErrInputExhausted)
			}
			m.store(q.Result, m.input[0])
			m.input = m.input[1:]
		case q.Arg1 == "write":
			if len(args) > 0 {
				m.Output = append(m.Output, toInt(args[0]))
			}
		default:
			return fmt.Errorf("quad %d: call to undefined function %s", q.Index, q.Arg1)
		}

	case compiler.OpReturn:
		var v any
		if q.Arg1 != compiler.NoValue {
			v = m.load(q.Arg1)
		}
		f := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
		if len(m.frames) == 0 {
			m.Return = v
			m.Halted = true
			return nil
		}
		if f.result != compiler.NoValue && v != nil {
			m.store(f.result, v)
		}
		next = f.ret

	case compiler.OpSys:
		m.Halted = true
		return nil

	default:
		return fmt.Errorf("quad %d: unsupported op %s", q.Index, q.Op)
	}

	m.pc = next
	return nil
}

func (m *Machine) current() *frame { return m.frames[len(m.frames)-1] }

// isGlobal reports whether name refers to global storage in the current
// function.
func (m *Machine) isGlobal(name string) bool {
	if _, ok := m.globals[name]; !ok {
		return false
	}
	return !m.owned[m.current().fn][name]
}

func (m *Machine) load(s string) any {
	if c, ok := compiler.ParseConst(s); ok {
		return c
	}
	if m.isGlobal(s) {
		return m.globals[s]
	}
	if v, ok := m.current().locals[s]; ok {
		return v
	}
	return int64(0)
}

func (m *Machine) store(name string, v any) {
	if name == compiler.NoValue {
		return
	}
	if m.isGlobal(name) {
		m.globals[name] = v
		return
	}
	m.current().locals[name] = v
}

// Global returns the current value of a global variable.
func (m *Machine) Global(name string) (any, bool) {
	v, ok := m.globals[name]
	return v, ok
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func arith(op compiler.Op, a, b any) (any, error) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		switch op {
		case compiler.OpAdd:
			return ai + bi, nil
		case compiler.OpSub:
			return ai - bi, nil
		case compiler.OpMul:
			return ai * bi, nil
		case compiler.OpDiv, compiler.OpMod:
			if bi == 0 {
				return nil, ErrDivideByZero
			}
			if op == compiler.OpDiv {
				return ai / bi, nil
			}
			return ai % bi, nil
		}
	}
	af, bf := toFloat(a), toFloat(b)
	switch op {
	case compiler.OpAdd:
		return af + bf, nil
	case compiler.OpSub:
		return af - bf, nil
	case compiler.OpMul:
		return af * bf, nil
	case compiler.OpDiv:
		if bf == 0 {
			return nil, ErrDivideByZero
		}
		return af / bf, nil
	case compiler.OpMod:
		if toInt(b) == 0 {
			return nil, ErrDivideByZero
		}
		return toInt(a) % toInt(b), nil
	}
	return nil, fmt.Errorf("unsupported op %s", op)
}

func compare(op compiler.Op, a, b any) bool {
	x, y := toFloat(a), toFloat(b)
	switch op {
	case compiler.OpJLT:
		return x < y
	case compiler.OpJLE:
		return x <= y
	case compiler.OpJGT:
		return x > y
	case compiler.OpJGE:
		return x >= y
	case compiler.OpJEQ:
		return x == y
	case compiler.OpJNE:
		return x != y
	}
	return false
}
