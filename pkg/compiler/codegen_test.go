package compiler

import (
	"fmt"
	"strings"
	"testing"
)

const codegenSource = `int g = 5;
int add(int a, int b) {
	return a + b;
}
int main() {
	int x;
	x = read();
	if (x < g) write(add(x, 1)); else write(x % 3);
	return 0;
}`

func compileOK(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s%s", FormatLexErrors(res.LexErrors), FormatDiagnostics(res.Diags.Items()))
	}
	return res
}

func TestGenerateContains(t *testing.T) {
	res := compileOK(t, codegenSource)
	asm := res.Assembly

	for _, want := range []string{
		"assume cs:code,ds:data,ss:stack,es:extended",
		"    _g dw 5\n",
		"    _x dw 0\n",
		"    _a dw 0\n",
		"jmp F_main",
		"F_add:\n    push bp\n    mov bp, sp\n",
		"    mov ax, ss:[bp+6]\n    mov word ptr ds:[_a], ax\n",
		"    mov ax, ss:[bp+4]\n    mov word ptr ds:[_b], ax\n",
		"F_main:\n",
		"    call _read\n",
		"    call _write\n",
		"    call F_add\n    add sp, 4\n",
		"    cwd\n",
		"    idiv bx\n",
		"    mov ah,4ch\n    int 21h\n",
		"code ends",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q", want)
		}
	}
	if strings.Count(asm, "F_add:") != 1 {
		t.Error("F_add defined more than once")
	}
}

func TestGenerateJumpLabels(t *testing.T) {
	res := compileOK(t, codegenSource)
	for _, q := range res.Quads {
		target, ok := q.Target()
		if !ok {
			continue
		}
		if !strings.Contains(res.Assembly, fmt.Sprintf("\nL%d:\n", target)) {
			t.Errorf("missing label for target %d of %v", target, q)
		}
		mnemonic := jumpMnemonics[q.Op]
		if !strings.Contains(res.Assembly, fmt.Sprintf("    %s L%d\n", mnemonic, target)) {
			t.Errorf("missing %s L%d for %v", mnemonic, target, q)
		}
	}
}

func TestGenerateFromListingMatches(t *testing.T) {
	res := compileOK(t, codegenSource)
	quads, err := ParseQuads(FormatQuads(res.Quads))
	if err != nil {
		t.Fatalf("ParseQuads: %v", err)
	}
	raw, err := EncodeDump(res.Symbols)
	if err != nil {
		t.Fatalf("EncodeDump: %v", err)
	}
	dump, err := DecodeDump(raw)
	if err != nil {
		t.Fatalf("DecodeDump: %v", err)
	}
	asm, err := Generate(quads, dump)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if asm != res.Assembly {
		t.Error("assembly generated from the listings differs from the in-memory result")
	}
}

func TestGenerateSeparateSlots(t *testing.T) {
	res := compileOK(t, `int x = 1;
int T1 = 2;
int f(int x) {
	return x + T1;
}
int main() {
	int a;
	a = read();
	{
		int x;
		x = f(a);
		write(x);
	}
	write(x);
	return 0;
}`)
	asm := res.Assembly

	for _, want := range []string{
		"    _x dw 1\n",
		"    _T1 dw 2\n",
		"    _1_x dw 0\n",
		"    _3_x dw 0\n",
		"    T1 dw 0\n",
		"    mov ax, ss:[bp+4]\n    mov word ptr ds:[_1_x], ax\n",
		"    mov word ptr ds:[_3_x], ax\n",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q", want)
		}
	}
	for _, name := range []string{"_x", "_T1", "T1"} {
		if n := strings.Count(asm, "    "+name+" dw "); n != 1 {
			t.Errorf("%s declared %d times", name, n)
		}
	}
}

func TestSlot(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"x", "_x"},
		{"T1", "_T1"},
		{"$T1", "T1"},
		{"x$3", "_3_x"},
		{"_y$12", "_12__y"},
	}
	for _, tt := range tests {
		if got := slot(tt.name); got != tt.want {
			t.Errorf("slot(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	quads := []Quad{
		{Index: 100, Op: OpBegin, Arg1: "main", Arg2: NoValue, Result: NoValue},
		{Index: 101, Op: OpJmp, Arg1: NoValue, Arg2: NoValue, Result: NoValue},
		{Index: 102, Op: OpAssign, Arg1: "2.75", Arg2: NoValue, Result: "f"},
		{Index: 103, Op: OpSys, Arg1: NoValue, Arg2: NoValue, Result: NoValue},
	}
	asm, err := Generate(quads, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{
		"; 101: (jmp, _, _, _): unresolved jump",
		"    mov ax, 2\n    mov word ptr ds:[_f], ax\n",
		"    _f dw 0\n",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q", want)
		}
	}

	_, err = Generate([]Quad{{Index: 100, Op: Op(-1)}}, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported op") {
		t.Errorf("Generate(bad op) error = %v", err)
	}
}
