package compiler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FormatTokens renders the token listing: one token per line as
// "line:column<TAB>category<TAB>lexeme". The EOF sentinel is omitted.
func FormatTokens(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Type == EOF {
			continue
		}
		fmt.Fprintf(&sb, "%d:%d\t%s\t%s\n", tok.Line, tok.Column, tok.Tag(), tok.Lexeme)
	}
	return sb.String()
}

// ParseTokens reads a token listing back. Each lexeme is re-scanned to
// recover its type and value; a lexeme that no longer scans as exactly one
// token becomes ILLEGAL and is left for the parser to reject.
func ParseTokens(text string) ([]Token, error) {
	var tokens []Token
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), "\r")
		if raw == "" {
			continue
		}
		fields := strings.SplitN(raw, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("token listing line %d: expected 3 tab-separated fields", lineNo)
		}
		var line, col int
		if _, err := fmt.Sscanf(fields[0], "%d:%d", &line, &col); err != nil {
			return nil, fmt.Errorf("token listing line %d: bad position %q", lineNo, fields[0])
		}
		tok := relex(fields[1], fields[2])
		tok.Line, tok.Column = line, col
		tokens = append(tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	eof := Token{Type: EOF, Line: 1, Column: 1}
	if n := len(tokens); n > 0 {
		eof.Line, eof.Column = tokens[n-1].Line, tokens[n-1].Column+len([]rune(tokens[n-1].Lexeme))
	}
	return append(tokens, eof), nil
}

func relex(tag, lexeme string) Token {
	if tag == CatPreprocessor.String() {
		return Token{Type: PREPROCESSOR, Lexeme: lexeme}
	}
	if r := []rune(lexeme); len(r) == 1 && delimiters[r[0]] != 0 {
		return Token{Type: delimiters[r[0]], Lexeme: lexeme}
	}
	toks, errs := Tokenize(lexeme)
	if len(errs) == 0 && len(toks) == 2 && toks[0].Lexeme == lexeme {
		tok := toks[0]
		return Token{Type: tok.Type, Lexeme: lexeme, Value: tok.Value}
	}
	return Token{Type: ILLEGAL, Lexeme: lexeme}
}

// FormatLexErrors renders the lexical error listing.
func FormatLexErrors(errs []LexError) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatDiagnostics renders the syntax error listing, which also carries
// semantic errors and warnings.
func FormatDiagnostics(diags []Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatQuads renders the quadruple listing. Every jump target is preceded
// by an "L<index>:" label line.
func FormatQuads(quads []Quad) string {
	targets := make(map[int]bool)
	for _, q := range quads {
		if n, ok := q.Target(); ok {
			targets[n] = true
		}
	}
	var sb strings.Builder
	written := make(map[int]bool)
	for _, q := range quads {
		if q.Op == OpLabel {
			n, _ := strconv.Atoi(q.Result)
			if !written[n] {
				written[n] = true
				fmt.Fprintf(&sb, "L%s:\n", q.Result)
			}
			continue
		}
		if targets[q.Index] && !written[q.Index] {
			written[q.Index] = true
			fmt.Fprintf(&sb, "L%d:\n", q.Index)
		}
		sb.WriteString(q.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

var (
	quadLine  = regexp.MustCompile(`^(\d+):\s*\((.*)\)$`)
	labelLine = regexp.MustCompile(`^L(\d+):$`)
)

// ParseQuads reads a quadruple listing. Label lines become OpLabel entries.
func ParseQuads(text string) ([]Quad, error) {
	var quads []Quad
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		if m := labelLine.FindStringSubmatch(raw); m != nil {
			n, _ := strconv.Atoi(m[1])
			quads = append(quads, Quad{Index: n, Op: OpLabel, Arg1: NoValue, Arg2: NoValue, Result: m[1]})
			continue
		}
		m := quadLine.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("quad listing line %d: malformed entry %q", lineNo, raw)
		}
		fields := strings.Split(m[2], ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("quad listing line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		op, ok := ParseOp(fields[0])
		if !ok {
			return nil, fmt.Errorf("quad listing line %d: unknown op %q", lineNo, fields[0])
		}
		idx, _ := strconv.Atoi(m[1])
		quads = append(quads, Quad{
			Index:  idx,
			Op:     op,
			Arg1:   orNoValue(fields[1]),
			Arg2:   orNoValue(fields[2]),
			Result: orNoValue(fields[3]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return quads, nil
}

// EncodeDump renders the symbol table dump as indented JSON.
func EncodeDump(d *Dump) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeDump parses a symbol table dump.
func DecodeDump(data []byte) (*Dump, error) {
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("symbol table dump: %w", err)
	}
	return &d, nil
}
