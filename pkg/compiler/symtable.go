package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNameConflict    = errors.New("name conflict")
	ErrRedefinition    = errors.New("redefinition")
	ErrRedeclared      = errors.New("redeclared")
	ErrConflictingType = errors.New("conflicting types")
)

// SymbolKind distinguishes the kinds of named entities.
type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindVariable
	KindParameter
	KindConstant
)

var kindNames = [...]string{
	KindFunction:  "function",
	KindVariable:  "variable",
	KindParameter: "parameter",
	KindConstant:  "constant",
}

func (k SymbolKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// ParseKind is the inverse of SymbolKind.String.
func ParseKind(s string) (SymbolKind, bool) {
	for i, name := range kindNames {
		if name == s {
			return SymbolKind(i), true
		}
	}
	return 0, false
}

// Param is one formal parameter of a function signature.
type Param struct {
	Type Type
	Name string // empty in declarations that omit it
}

func (p Param) String() string {
	if p.Name == "" {
		return p.Type.String()
	}
	return p.Type.String() + " " + p.Name
}

// Function is a function symbol. Functions live in one flat global map.
type Function struct {
	Name    string
	Return  Type
	Params  []Param
	Defined bool
	Uses    int
	Line    int
}

// Signature returns the parameters as "type name" strings.
func (f *Function) Signature() []string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.String()
	}
	return out
}

func sameSignature(f *Function, ret Type, params []Param) bool {
	if f.Return != ret || len(f.Params) != len(params) {
		return false
	}
	for i := range params {
		if f.Params[i].Type != params[i].Type {
			return false
		}
	}
	return true
}

// Variable is a variable, parameter or constant symbol.
type Variable struct {
	Name   string
	Kind   SymbolKind
	Type   Type
	Scope  int // nesting level, 0 is global
	Line   int
	Column int
	Uses   int    // 1 for the declaration, +1 per reference
	Value  any    // known constant value, if any
	Owner  string // enclosing function, empty for globals

	// Storage is set when the name shadows a visible outer declaration.
	// It contains '$', which no identifier can, so it never names
	// another symbol.
	Storage string
}

// Place returns the operand name quadruples use for the variable.
func (v *Variable) Place() string {
	if v.Storage != "" {
		return v.Storage
	}
	return v.Name
}

type scope struct {
	id    int
	level int
	vars  map[string]*Variable
	order []string
}

// SymbolTable holds the functions and the lexical scope stack of one parse.
// Closed scopes are archived so Dump can report every symbol ever declared.
type SymbolTable struct {
	funcs     map[string]*Function
	funcOrder []string
	live      []*scope
	archived  []*scope
	nextID    int
}

func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{funcs: make(map[string]*Function)}
	s.EnterScope()
	return s
}

// EnterScope opens a nested variable scope.
func (s *SymbolTable) EnterScope() {
	s.live = append(s.live, &scope{
		id:    s.nextID,
		level: len(s.live),
		vars:  make(map[string]*Variable),
	})
	s.nextID++
}

// ExitScope closes the innermost scope. The global scope is never closed.
func (s *SymbolTable) ExitScope() {
	if len(s.live) <= 1 {
		return
	}
	top := s.live[len(s.live)-1]
	s.live = s.live[:len(s.live)-1]
	s.archived = append(s.archived, top)
}

// Depth returns the level of the innermost live scope.
func (s *SymbolTable) Depth() int { return len(s.live) - 1 }

// AddFunction records a declaration or definition of name. A declaration
// followed by a definition upgrades the same entry. The returned Function is
// the table entry, also on a redeclaration or redefinition error, so callers
// can keep analysing the body.
func (s *SymbolTable) AddFunction(name string, ret Type, params []Param, line int, isDefinition bool) (*Function, error) {
	if v := s.LookupVariable(name); v != nil {
		return nil, fmt.Errorf("%w: '%s' is already declared as a %s", ErrNameConflict, name, v.Kind)
	}
	if f, ok := s.funcs[name]; ok {
		if !sameSignature(f, ret, params) {
			return f, fmt.Errorf("%w for function '%s'", ErrConflictingType, name)
		}
		switch {
		case isDefinition && f.Defined:
			return f, fmt.Errorf("function '%s' %w", name, ErrRedefinition)
		case isDefinition:
			f.Defined = true
			f.Params = params
			return f, nil
		case f.Defined:
			return f, nil
		}
		f.Uses++
		return f, fmt.Errorf("function '%s' %w", name, ErrRedeclared)
	}
	f := &Function{
		Name:    name,
		Return:  ret,
		Params:  params,
		Defined: isDefinition,
		Uses:    1,
		Line:    line,
	}
	s.funcs[name] = f
	s.funcOrder = append(s.funcOrder, name)
	return f, nil
}

// AddVariable inserts name into the innermost scope. If the name already
// exists in that scope no entry is added: its use count is bumped and the
// existing entry is returned with existed set, leaving the caller to decide
// whether that is a redeclaration.
func (s *SymbolTable) AddVariable(name string, typ Type, kind SymbolKind, line, col int) (v *Variable, existed bool, err error) {
	if _, ok := s.funcs[name]; ok {
		return nil, false, fmt.Errorf("%w: '%s' is already declared as a function", ErrNameConflict, name)
	}
	cur := s.live[len(s.live)-1]
	if v, ok := cur.vars[name]; ok {
		v.Uses++
		return v, true, nil
	}
	v = &Variable{
		Name:   name,
		Kind:   kind,
		Type:   typ,
		Scope:  cur.level,
		Line:   line,
		Column: col,
		Uses:   1,
	}
	if s.LookupVariable(name) != nil {
		v.Storage = name + "$" + strconv.Itoa(cur.id)
	}
	cur.vars[name] = v
	cur.order = append(cur.order, name)
	return v, false, nil
}

// LookupFunction returns the function called name, or nil.
func (s *SymbolTable) LookupFunction(name string) *Function {
	return s.funcs[name]
}

// LookupVariable searches the live scopes from innermost to outermost.
func (s *SymbolTable) LookupVariable(name string) *Variable {
	for i := len(s.live) - 1; i >= 0; i-- {
		if v, ok := s.live[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// LookupCurrent searches the innermost scope only.
func (s *SymbolTable) LookupCurrent(name string) *Variable {
	return s.live[len(s.live)-1].vars[name]
}

// allScopes returns archived and live scopes in creation order.
func (s *SymbolTable) allScopes() []*scope {
	all := make([]*scope, 0, len(s.archived)+len(s.live))
	all = append(all, s.archived...)
	all = append(all, s.live...)
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	return all
}

// Unused returns every ordinary variable never referenced after its
// declaration.
func (s *SymbolTable) Unused() []*Variable {
	var out []*Variable
	for _, sc := range s.allScopes() {
		for _, name := range sc.order {
			v := sc.vars[name]
			if v.Kind == KindVariable && v.Uses <= 1 {
				out = append(out, v)
			}
		}
	}
	return out
}

// FunctionRecord is the dumped form of a Function.
type FunctionRecord struct {
	Name       string   `json:"name"`
	ReturnType string   `json:"return_type"`
	Params     []string `json:"params"`
	Scope      int      `json:"scope"`
	Defined    bool     `json:"is_defined"`
	RefCount   int      `json:"ref_count"`
	Line       int      `json:"line"`
}

// VariableRecord is the dumped form of a Variable.
type VariableRecord struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Scope    int    `json:"scope"`
	Function string `json:"function,omitempty"`
	RefCount int    `json:"ref_count"`
	Line     int    `json:"line"`
	Value    string `json:"value,omitempty"`
	Storage  string `json:"storage,omitempty"`
}

// Place returns the operand name quadruples use for the variable.
func (r *VariableRecord) Place() string {
	if r.Storage != "" {
		return r.Storage
	}
	return r.Name
}

// Dump is the symbol table hand-off artifact read by the code generator.
type Dump struct {
	Functions []FunctionRecord `json:"functions"`
	Variables []VariableRecord `json:"variables"`
}

// Dump serialises every function and every archived or live variable.
// Variables are ordered by scope creation, then declaration.
func (s *SymbolTable) Dump() *Dump {
	d := &Dump{Functions: []FunctionRecord{}, Variables: []VariableRecord{}}
	for _, name := range s.funcOrder {
		f := s.funcs[name]
		d.Functions = append(d.Functions, FunctionRecord{
			Name:       f.Name,
			ReturnType: f.Return.String(),
			Params:     f.Signature(),
			Scope:      0,
			Defined:    f.Defined,
			RefCount:   f.Uses,
			Line:       f.Line,
		})
	}
	for _, sc := range s.allScopes() {
		for _, name := range sc.order {
			v := sc.vars[name]
			rec := VariableRecord{
				Name:     v.Name,
				Type:     v.Type.String(),
				Kind:     v.Kind.String(),
				Scope:    v.Scope,
				Function: v.Owner,
				RefCount: v.Uses,
				Line:     v.Line,
				Storage:  v.Storage,
			}
			if v.Value != nil {
				rec.Value = FormatConst(v.Value)
			}
			d.Variables = append(d.Variables, rec)
		}
	}
	return d
}

// Function returns the record of the named function, or nil.
func (d *Dump) Function(name string) *FunctionRecord {
	for i := range d.Functions {
		if d.Functions[i].Name == name {
			return &d.Functions[i]
		}
	}
	return nil
}

// Variable returns the first record of the named variable, or nil.
func (d *Dump) Variable(name string) *VariableRecord {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i]
		}
	}
	return nil
}

// ParamPlaces returns the operand names of the parameters of function fn, in
// signature order. A parameter without a dumped record keeps its name.
func (d *Dump) ParamPlaces(fn string) []string {
	f := d.Function(fn)
	if f == nil {
		return nil
	}
	names := f.ParamNames()
	for i, name := range names {
		for _, v := range d.Variables {
			if v.Function == fn && v.Kind == KindParameter.String() && v.Name == name {
				names[i] = v.Place()
				break
			}
		}
	}
	return names
}

// ParamNames returns the parameter names of a dumped function signature.
func (r *FunctionRecord) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for _, p := range r.Params {
		fields := strings.Fields(p)
		if len(fields) == 2 {
			names = append(names, fields[1])
		} else {
			names = append(names, "")
		}
	}
	return names
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	sb.WriteString("Functions:\n")
	for _, name := range s.funcOrder {
		f := s.funcs[name]
		fmt.Fprintf(&sb, "  %-16s %s(%s) defined=%v uses=%d line=%d\n",
			f.Name, f.Return, strings.Join(f.Signature(), ", "), f.Defined, f.Uses, f.Line)
	}
	sb.WriteString("Variables:\n")
	for _, sc := range s.allScopes() {
		for _, name := range sc.order {
			v := sc.vars[name]
			fmt.Fprintf(&sb, "  %-16s %-6s %-9s scope=%d uses=%d line=%d\n",
				v.Name, v.Type, v.Kind, v.Scope, v.Uses, v.Line)
		}
	}
	return sb.String()
}
