package quadvm

import (
	"errors"
	"reflect"
	"testing"

	"quadc/pkg/compiler"
)

func compile(t *testing.T, src string) *compiler.Result {
	t.Helper()
	res, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s%s",
			compiler.FormatLexErrors(res.LexErrors), compiler.FormatDiagnostics(res.Diags.Items()))
	}
	return res
}

func run(t *testing.T, src string, opts Options) *Machine {
	t.Helper()
	res := compile(t, src)
	m := New(res.Quads, res.Symbols, opts)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v\n%s", err, compiler.FormatQuads(res.Quads))
	}
	return m
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		input  []int64
		output []int64
		ret    any
	}{
		{
			name: "factorial loop",
			src: `int main() {
				int n, f;
				n = read();
				f = 1;
				while (n > 1) {
					f = f * n;
					n = n - 1;
				}
				write(f);
				return 0;
			}`,
			input:  []int64{5},
			output: []int64{120},
			ret:    int64(0),
		},
		{
			name: "recursion",
			src: `int fact(int n) {
				if (n <= 1) return 1;
				return n * fact(n - 1);
			}
			int main() {
				write(fact(6));
				return 0;
			}`,
			output: []int64{720},
			ret:    int64(0),
		},
		{
			name: "for with break",
			src: `int main() {
				int i, s;
				s = 0;
				for (i = 0; i < 10; i++) {
					if (i == 4) break;
					s = s + i;
				}
				write(s);
				return 0;
			}`,
			output: []int64{6},
			ret:    int64(0),
		},
		{
			name: "do while with continue",
			src: `int main() {
				int i, s;
				i = 0;
				s = 0;
				do {
					i = i + 1;
					if (i % 2 == 0) continue;
					s = s + i;
				} while (i < 5);
				write(s);
				return 0;
			}`,
			output: []int64{9},
			ret:    int64(0),
		},
		{
			name: "short circuit and",
			src: `int main() {
				int a;
				a = 0;
				if (a != 0 && 10 / a > 1) {
					write(1);
				} else {
					write(2);
				}
				return 0;
			}`,
			output: []int64{2},
			ret:    int64(0),
		},
		{
			name: "short circuit or",
			src: `int main() {
				int a;
				a = read();
				if (a == 3 || a == 7) write(1); else write(0);
				return a;
			}`,
			input:  []int64{7},
			output: []int64{1},
			ret:    int64(7),
		},
		{
			name: "compound assignment",
			src: `int main() {
				int x;
				x = 10;
				x += 5;
				x *= 2;
				x -= 6;
				x /= 4;
				x %= 4;
				write(x);
				return 0;
			}`,
			output: []int64{2},
			ret:    int64(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.src, Options{Input: tt.input})
			if !m.Halted {
				t.Fatal("machine did not halt")
			}
			if !reflect.DeepEqual(m.Output, tt.output) {
				t.Errorf("Output = %v, want %v", m.Output, tt.output)
			}
			if !reflect.DeepEqual(m.Return, tt.ret) {
				t.Errorf("Return = %#v, want %#v", m.Return, tt.ret)
			}
		})
	}
}

func TestGlobalsShared(t *testing.T) {
	m := run(t, `int g = 10;
	void bump(int d) {
		g = g + d;
	}
	int main() {
		bump(5);
		bump(7);
		write(g);
		return g;
	}`, Options{})

	if !reflect.DeepEqual(m.Output, []int64{22}) {
		t.Errorf("Output = %v, want [22]", m.Output)
	}
	if v, ok := m.Global("g"); !ok || v != int64(22) {
		t.Errorf("Global(g) = %v, %v; want 22, true", v, ok)
	}
}

func TestLocalShadowsGlobal(t *testing.T) {
	m := run(t, `int x = 1;
	int main() {
		int x;
		x = 5;
		write(x);
		return 0;
	}`, Options{})

	if !reflect.DeepEqual(m.Output, []int64{5}) {
		t.Errorf("Output = %v, want [5]", m.Output)
	}
	if v, _ := m.Global("x"); v != int64(1) {
		t.Errorf("Global(x) = %v, want 1", v)
	}
}

func TestShadowingGetsOwnStorage(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		output []int64
	}{
		{
			name: "block shadows global",
			src: `int x = 1;
			int main() {
				{
					int x = 2;
					write(x);
				}
				write(x);
				return 0;
			}`,
			output: []int64{2, 1},
		},
		{
			name: "block shadows local",
			src: `int main() {
				int x = 1;
				{
					int x = 2;
					x++;
					write(x);
				}
				write(x);
				return 0;
			}`,
			output: []int64{3, 1},
		},
		{
			name: "parameter shadows global",
			src: `int n = 100;
			int twice(int n) {
				return n * 2;
			}
			int main() {
				write(twice(4));
				write(n);
				return 0;
			}`,
			output: []int64{8, 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.src, Options{})
			if !reflect.DeepEqual(m.Output, tt.output) {
				t.Errorf("Output = %v, want %v", m.Output, tt.output)
			}
		})
	}
}

func TestTemporariesKeepUserVariables(t *testing.T) {
	m := run(t, `int T1 = 5;
	int main() {
		int a, b;
		a = read();
		b = a * 2 + T1;
		write(b);
		return 0;
	}`, Options{Input: []int64{3}})

	if !reflect.DeepEqual(m.Output, []int64{11}) {
		t.Errorf("Output = %v, want [11]", m.Output)
	}
	if v, _ := m.Global("T1"); v != int64(5) {
		t.Errorf("Global(T1) = %v, want 5", v)
	}
}

func TestRecoveredProgramStillRuns(t *testing.T) {
	res, err := compiler.Compile("int main() { int i; i = 0; do { i = i + 1; break; } while (i < 5 ; write(i); return 0; }")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Diags.Count(compiler.SevSyntax) == 0 {
		t.Fatal("expected a syntax error")
	}
	m := New(res.Quads, res.Symbols, Options{})
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v\n%s", err, compiler.FormatQuads(res.Quads))
	}
	if !reflect.DeepEqual(m.Output, []int64{1}) {
		t.Errorf("Output = %v, want [1]", m.Output)
	}
}

func TestFalseBranchNeverExecuted(t *testing.T) {
	res := compile(t, `int main() {
		int a;
		a = 0;
		if (0) {
			a = 1;
		} else {
			a = 2;
		}
		write(a);
		return 0;
	}`)

	dead := -1
	for _, q := range res.Quads {
		if q.Op == compiler.OpAssign && q.Arg1 == "1" && q.Result == "a" {
			dead = q.Index
		}
	}
	if dead < 0 {
		t.Fatalf("then-branch assignment not found:\n%s", compiler.FormatQuads(res.Quads))
	}

	m := New(res.Quads, res.Symbols, Options{})
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, idx := range m.Trace {
		if idx == dead {
			t.Errorf("quad %d executed", dead)
		}
	}
	if !reflect.DeepEqual(m.Output, []int64{2}) {
		t.Errorf("Output = %v, want [2]", m.Output)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want error
	}{
		{
			name: "step limit",
			src:  "int main() { while (1) { } return 0; }",
			opts: Options{MaxSteps: 100},
			want: ErrStepLimit,
		},
		{
			name: "input exhausted",
			src:  "int main() { int x; x = read(); return x; }",
			want: ErrInputExhausted,
		},
		{
			name: "runtime division by zero",
			src:  "int main() { int a, b; a = 0; b = 5 / a; write(b); return 0; }",
			want: ErrDivideByZero,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, tt.src)
			err := New(res.Quads, res.Symbols, tt.opts).Run()
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNoMain(t *testing.T) {
	quads := []compiler.Quad{
		{Index: 100, Op: compiler.OpBegin, Arg1: "f", Arg2: "_", Result: "_"},
		{Index: 101, Op: compiler.OpReturn, Arg1: "1", Arg2: "_", Result: "_"},
	}
	m := New(quads, nil, Options{})
	if err := m.Run(); !errors.Is(err, ErrNoMain) {
		t.Errorf("Run() = %v, want ErrNoMain", err)
	}
	if !m.Halted {
		t.Error("machine without main should start halted")
	}
}

func TestListingRoundTripExecutes(t *testing.T) {
	res := compile(t, `int main() {
		int i, s;
		s = 0;
		i = 1;
		while (i <= 4) {
			s = s + i;
			i++;
		}
		write(s);
		return 0;
	}`)

	quads, err := compiler.ParseQuads(compiler.FormatQuads(res.Quads))
	if err != nil {
		t.Fatalf("ParseQuads: %v", err)
	}
	m := New(quads, res.Symbols, Options{})
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(m.Output, []int64{10}) {
		t.Errorf("Output = %v, want [10]", m.Output)
	}
}
