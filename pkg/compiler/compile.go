package compiler

import "fmt"

// Artifact names written between stages.
const (
	TokensFile       = "tokens.txt"
	LexErrorsFile    = "lex_errors.txt"
	SymbolsFile      = "symbol_table.json"
	QuadsFile        = "quads.txt"
	SyntaxErrorsFile = "syntax_errors.txt"
	AssemblyFile     = "object_code.asm"
)

// Store is the artifact boundary between stages.
type Store interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
}

// Result holds every stage output of one in-memory compilation.
type Result struct {
	Tokens    []Token
	LexErrors []LexError
	Quads     []Quad
	Symbols   *Dump
	Diags     *Diagnostics
	Assembly  string
}

// HasErrors reports whether any stage raised an error-level diagnostic.
func (r *Result) HasErrors() bool {
	return len(r.LexErrors) > 0 || r.Diags.HasErrors()
}

// Compile runs the whole pipeline on src without serialising the stage
// outputs. Diagnostics never fail the compilation; the returned error is
// reserved for code generation failures.
func Compile(src string) (*Result, error) {
	res := &Result{Diags: &Diagnostics{}}
	res.Tokens, res.LexErrors = Tokenize(src)

	prog, syms := Parse(res.Tokens, res.Diags)
	res.Quads = prog.Quads()
	res.Symbols = syms.Dump()

	asm, err := Generate(res.Quads, res.Symbols)
	if err != nil {
		return res, fmt.Errorf("codegen: %w", err)
	}
	res.Assembly = asm
	return res, nil
}

// LexStage tokenizes src and writes the token listing and the lexical
// error listing.
func LexStage(st Store, src string) ([]LexError, error) {
	tokens, errs := Tokenize(src)
	if err := st.Write(TokensFile, []byte(FormatTokens(tokens))); err != nil {
		return nil, fmt.Errorf("write %s: %w", TokensFile, err)
	}
	if err := st.Write(LexErrorsFile, []byte(FormatLexErrors(errs))); err != nil {
		return nil, fmt.Errorf("write %s: %w", LexErrorsFile, err)
	}
	return errs, nil
}

// ParseStage reads the token listing and writes the quadruple listing, the
// symbol table dump and the syntax error listing.
func ParseStage(st Store) (*Diagnostics, error) {
	data, err := st.Read(TokensFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TokensFile, err)
	}
	tokens, err := ParseTokens(string(data))
	if err != nil {
		return nil, err
	}

	diags := &Diagnostics{}
	prog, syms := Parse(tokens, diags)

	dump, err := EncodeDump(syms.Dump())
	if err != nil {
		return nil, err
	}
	if err := st.Write(SymbolsFile, dump); err != nil {
		return nil, fmt.Errorf("write %s: %w", SymbolsFile, err)
	}
	if err := st.Write(QuadsFile, []byte(FormatQuads(prog.Quads()))); err != nil {
		return nil, fmt.Errorf("write %s: %w", QuadsFile, err)
	}
	if err := st.Write(SyntaxErrorsFile, []byte(FormatDiagnostics(diags.Items()))); err != nil {
		return nil, fmt.Errorf("write %s: %w", SyntaxErrorsFile, err)
	}
	return diags, nil
}

// GenStage reads the quadruple listing and the symbol dump and writes the
// assembly output.
func GenStage(st Store) error {
	data, err := st.Read(QuadsFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", QuadsFile, err)
	}
	quads, err := ParseQuads(string(data))
	if err != nil {
		return err
	}
	raw, err := st.Read(SymbolsFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", SymbolsFile, err)
	}
	dump, err := DecodeDump(raw)
	if err != nil {
		return err
	}
	asm, err := Generate(quads, dump)
	if err != nil {
		return fmt.Errorf("codegen: %w", err)
	}
	if err := st.Write(AssemblyFile, []byte(asm)); err != nil {
		return fmt.Errorf("write %s: %w", AssemblyFile, err)
	}
	return nil
}

// Build runs the three stages through st, each stage reading the previous
// stage's artifacts.
func Build(st Store, src string) ([]LexError, *Diagnostics, error) {
	lexErrs, err := LexStage(st, src)
	if err != nil {
		return nil, nil, err
	}
	diags, err := ParseStage(st)
	if err != nil {
		return lexErrs, nil, err
	}
	if err := GenStage(st); err != nil {
		return lexErrs, diags, err
	}
	return lexErrs, diags, nil
}
