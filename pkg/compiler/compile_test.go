package compiler

import (
	"fmt"
	"strings"
	"testing"
)

type memStore map[string][]byte

func (m memStore) Write(name string, data []byte) error {
	m[name] = append([]byte(nil), data...)
	return nil
}

func (m memStore) Read(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: not found", name)
	}
	return data, nil
}

func TestBuildWritesEveryArtifact(t *testing.T) {
	st := memStore{}
	lexErrs, diags, err := Build(st, codegenSource)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(lexErrs) != 0 || diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v\n%s", lexErrs, FormatDiagnostics(diags.Items()))
	}
	for _, name := range []string{TokensFile, LexErrorsFile, SymbolsFile, QuadsFile, SyntaxErrorsFile, AssemblyFile} {
		if _, ok := st[name]; !ok {
			t.Errorf("artifact %s not written", name)
		}
	}
	if len(st[LexErrorsFile]) != 0 || len(st[SyntaxErrorsFile]) != 0 {
		t.Error("error listings should be empty for a clean program")
	}

	res := compileOK(t, codegenSource)
	if got := string(st[AssemblyFile]); got != res.Assembly {
		t.Error("staged assembly differs from in-memory compilation")
	}
	if got := string(st[QuadsFile]); got != FormatQuads(res.Quads) {
		t.Errorf("staged quads =\n%s\nwant\n%s", got, FormatQuads(res.Quads))
	}
	if !strings.Contains(string(st[SymbolsFile]), `"return_type": "int"`) {
		t.Errorf("symbol dump:\n%s", st[SymbolsFile])
	}
}

func TestBuildReportsErrors(t *testing.T) {
	st := memStore{}
	lexErrs, diags, err := Build(st, "int main() { int a; a = 1 @ 2; return b; }")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(lexErrs) != 1 {
		t.Errorf("lexical errors = %v", lexErrs)
	}
	if !strings.Contains(string(st[LexErrorsFile]), "[Lexical Error] 1:27 '@' illegal character") {
		t.Errorf("lex_errors.txt =\n%s", st[LexErrorsFile])
	}
	if !diags.HasErrors() {
		t.Fatal("expected parser diagnostics")
	}
	if !strings.Contains(string(st[SyntaxErrorsFile]), "[Semantic Error] 1:") ||
		!strings.Contains(string(st[SyntaxErrorsFile]), "Undeclared identifier 'b'") {
		t.Errorf("syntax_errors.txt =\n%s", st[SyntaxErrorsFile])
	}
	if _, ok := st[AssemblyFile]; !ok {
		t.Error("assembly should still be generated")
	}
}

func TestStagesNeedPreviousArtifacts(t *testing.T) {
	if _, err := ParseStage(memStore{}); err == nil || !strings.Contains(err.Error(), TokensFile) {
		t.Errorf("ParseStage on empty store: err = %v", err)
	}
	if err := GenStage(memStore{}); err == nil || !strings.Contains(err.Error(), QuadsFile) {
		t.Errorf("GenStage on empty store: err = %v", err)
	}

	st := memStore{QuadsFile: []byte("100: (begin, main, _, _)\n"), SymbolsFile: []byte("{")}
	if err := GenStage(st); err == nil || !strings.Contains(err.Error(), "symbol table dump") {
		t.Errorf("GenStage with a corrupt dump: err = %v", err)
	}
}

func TestParseQuadsRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"malformed", "hello\n", "malformed entry"},
		{"field count", "100: (=, 1, a)\n", "expected 4 fields"},
		{"unknown op", "100: (xor, a, b, c)\n", "unknown op"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuads(tt.text)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseQuads() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseQuadsLegacySpellings(t *testing.T) {
	quads, err := ParseQuads("L102:\n100: (para, x, _, _)\n101: (j, _, _, 102)\n102: (ret, _, _, _)\n")
	if err != nil {
		t.Fatalf("ParseQuads: %v", err)
	}
	ops := []Op{OpLabel, OpParam, OpJmp, OpReturn}
	for i, op := range ops {
		if quads[i].Op != op {
			t.Errorf("quad %d op = %v, want %v", i, quads[i].Op, op)
		}
	}
}
