package compiler

import (
	"reflect"
	"strings"
	"testing"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeSimple(t *testing.T) {
	tokens, errs := Tokenize("int main() { return 0; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []TokenType{INT, IDENTIFIER, LPAREN, RPAREN, LBRACE, RETURN, INT_LIT, SEMICOLON, RBRACE, EOF}
	if got := tokenTypes(tokens); !reflect.DeepEqual(got, want) {
		t.Errorf("types = %v, want %v", got, want)
	}
	if tokens[1].Lexeme != "main" || tokens[1].Line != 1 || tokens[1].Column != 5 {
		t.Errorf("main token = %+v", tokens[1])
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		src   string
		typ   TokenType
		value any
	}{
		{"0", INT_LIT, int64(0)},
		{"42", INT_LIT, int64(42)},
		{"0x1A", INT_LIT, int64(26)},
		{"0XfF", INT_LIT, int64(255)},
		{"0b101", INT_LIT, int64(5)},
		{"0o17", INT_LIT, int64(15)},
		{"012", INT_LIT, int64(10)},
		{"3.25", FLOAT_LIT, 3.25},
		{"1.5e2", FLOAT_LIT, 150.0},
		{"2.0E-1", FLOAT_LIT, 0.2},
		{"0.5", FLOAT_LIT, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, errs := Tokenize(tt.src)
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if tokens[0].Type != tt.typ {
				t.Errorf("type = %v, want %v", tokens[0].Type, tt.typ)
			}
			if !reflect.DeepEqual(tokens[0].Value, tt.value) {
				t.Errorf("value = %#v, want %#v", tokens[0].Value, tt.value)
			}
		})
	}
}

func TestNumericErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"12a", "invalid numeric suffix"},
		{"1.2.3", "multiple decimal points"},
		{"0912", "illegal octal digit"},
		{"00.5", "redundant leading zero"},
		{"007", "redundant leading zero"},
		{"0x", "illegal hex digit"},
		{"0xG1", "illegal hex digit"},
		{"0b102", "illegal binary digit"},
		{"0o8", "illegal octal digit"},
		{"5.", "missing fractional digits"},
		{"1e5", "missing decimal point"},
		{"1.0e", "malformed exponent"},
		{"99999999999999999999", "integer literal out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, errs := Tokenize(tt.src)
			if len(errs) != 1 {
				t.Fatalf("errors = %v, want exactly one", errs)
			}
			if errs[0].Message != tt.msg {
				t.Errorf("message = %q, want %q", errs[0].Message, tt.msg)
			}
			if errs[0].Lexeme != tt.src {
				t.Errorf("lexeme = %q, want %q", errs[0].Lexeme, tt.src)
			}
			if len(tokens) != 1 || tokens[0].Type != EOF {
				t.Errorf("malformed literal produced tokens %v", tokenTypes(tokens))
			}
		})
	}
}

func TestCharAndStringLiterals(t *testing.T) {
	tokens, errs := Tokenize(`'a' '\n' '\x41' "hi\tthere"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []any{int64('a'), int64('\n'), int64('A'), "hi\tthere", nil}
	for i, w := range want {
		if !reflect.DeepEqual(tokens[i].Value, w) {
			t.Errorf("token %d value = %#v, want %#v", i, tokens[i].Value, w)
		}
	}
	if tokens[3].Lexeme != `"hi\tthere"` {
		t.Errorf("string lexeme = %q", tokens[3].Lexeme)
	}
}

func TestQuotedErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"''", "empty character literal"},
		{"'ab'", "multi-character literal"},
		{"'a", "unterminated character literal"},
		{`'\q'`, "invalid escape sequence"},
		{"\"abc\n\"", "unterminated string literal"},
		{"/* open", "unterminated block comment"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, errs := Tokenize(tt.src)
			if len(errs) == 0 {
				t.Fatal("expected an error")
			}
			if errs[0].Message != tt.msg {
				t.Errorf("message = %q, want %q", errs[0].Message, tt.msg)
			}
		})
	}
}

func TestOperatorRuns(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenType
		err  string
	}{
		{src: "x=-1", want: []TokenType{IDENTIFIER, ASSIGN, MINUS, INT_LIT, EOF}},
		{src: "a&&!b", want: []TokenType{IDENTIFIER, AND_LOGICAL, NOT, IDENTIFIER, EOF}},
		{src: "i++", want: []TokenType{IDENTIFIER, PLUS_PLUS, EOF}},
		{src: "x<<=2", want: []TokenType{IDENTIFIER, SHL_ASSIGN, INT_LIT, EOF}},
		{src: "a>==b", want: []TokenType{IDENTIFIER, IDENTIFIER, EOF}, err: "illegal operator"},
		{src: "a=*/b", want: []TokenType{IDENTIFIER, IDENTIFIER, EOF}, err: "illegal operator"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, errs := Tokenize(tt.src)
			if got := tokenTypes(tokens); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("types = %v, want %v", got, tt.want)
			}
			switch {
			case tt.err == "" && len(errs) != 0:
				t.Errorf("unexpected errors: %v", errs)
			case tt.err != "" && (len(errs) != 1 || errs[0].Message != tt.err):
				t.Errorf("errors = %v, want one %q", errs, tt.err)
			}
		})
	}
}

func TestDelimiterMatching(t *testing.T) {
	tests := []struct {
		src    string
		errors int
	}{
		{"f(a[1]) { }", 0},
		{"( ]", 2},
		{"{ ( }", 1},
		{")", 1},
		{"{{", 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, errs := Tokenize(tt.src)
			if len(errs) != tt.errors {
				t.Fatalf("errors = %v, want %d", errs, tt.errors)
			}
			for _, e := range errs {
				if e.Message != "unmatched delimiter" {
					t.Errorf("message = %q", e.Message)
				}
			}
		})
	}
}

func TestCommentsKeepLineNumbers(t *testing.T) {
	src := "int a; // trailing\n/* one\n two\n*/ int b;\n"
	tokens, errs := Tokenize(src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var b Token
	for _, tok := range tokens {
		if tok.Lexeme == "b" {
			b = tok
		}
	}
	if b.Line != 4 || b.Column != 8 {
		t.Errorf("b at %d:%d, want 4:8", b.Line, b.Column)
	}
}

func TestPreprocessor(t *testing.T) {
	tokens, errs := Tokenize("#include <stdio.h> // io\n#bogus x\nint a;")
	if len(errs) != 1 || errs[0].Message != "illegal preprocessor directive" {
		t.Fatalf("errors = %v", errs)
	}
	if tokens[0].Type != PREPROCESSOR || tokens[0].Lexeme != "#include <stdio.h>" {
		t.Errorf("directive = %+v", tokens[0])
	}
	if tokens[1].Type != INT || tokens[1].Line != 3 {
		t.Errorf("token after directives = %+v", tokens[1])
	}
}

func TestIllegalCharacter(t *testing.T) {
	tokens, errs := Tokenize("int a @ b;")
	if len(errs) != 1 || errs[0].Message != "illegal character" || errs[0].Column != 7 {
		t.Fatalf("errors = %v", errs)
	}
	want := []TokenType{INT, IDENTIFIER, IDENTIFIER, SEMICOLON, EOF}
	if got := tokenTypes(tokens); !reflect.DeepEqual(got, want) {
		t.Errorf("types = %v, want %v", got, want)
	}
	if !strings.Contains(errs[0].Error(), "[Lexical Error] 1:7 '@'") {
		t.Errorf("Error() = %q", errs[0].Error())
	}
}

func TestTokenListingRoundTrip(t *testing.T) {
	src := "#include <x.h>\nint main() {\n  float f = 1.5e2;\n  char c = 'z';\n  return 0x10 + 012;\n}\n"
	tokens, errs := Tokenize(src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	listing := FormatTokens(tokens)
	if !strings.Contains(listing, "3:13\tLITERAL_FLOAT\t1.5e2\n") {
		t.Errorf("listing missing float line:\n%s", listing)
	}

	back, err := ParseTokens(listing)
	if err != nil {
		t.Fatalf("ParseTokens: %v", err)
	}
	if len(back) != len(tokens) {
		t.Fatalf("got %d tokens back, want %d", len(back), len(tokens))
	}
	for i := range tokens[:len(tokens)-1] {
		got, want := back[i], tokens[i]
		if got.Type != want.Type || got.Lexeme != want.Lexeme || got.Line != want.Line ||
			got.Column != want.Column || !reflect.DeepEqual(got.Value, want.Value) {
			t.Errorf("token %d = %+v, want %+v", i, got, want)
		}
	}
	if FormatTokens(back) != listing {
		t.Error("relisting parsed tokens changed the listing")
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantErrs bool
	}{
		{"clean", "int main() { float f = 1.5e2; return f > 0 && 1; }", false},
		{"illegal character", "int a @ b;", true},
		{"bad octal", "int a = 0912;", true},
		{"mixed", "#define N 3\nint x = 0912 @ 'ab'; /* open", true},
		{"unbalanced", "int main() { if (a) { return ]; }", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens1, errs1 := Tokenize(tt.src)
			tokens2, errs2 := Tokenize(tt.src)
			if !reflect.DeepEqual(tokens1, tokens2) {
				t.Errorf("tokens differ between runs:\n%v\n%v", tokens1, tokens2)
			}
			if !reflect.DeepEqual(errs1, errs2) {
				t.Errorf("errors differ between runs:\n%v\n%v", errs1, errs2)
			}
			if got := len(errs1) > 0; got != tt.wantErrs {
				t.Errorf("errors = %v, want errors: %v", errs1, tt.wantErrs)
			}
		})
	}
}
