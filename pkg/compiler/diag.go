package compiler

import "fmt"

// LexError is a recoverable lexical error. The lexer never aborts on one.
type LexError struct {
	Line    int
	Column  int
	Lexeme  string
	Message string
}

func (e LexError) Error() string {
	return fmt.Sprintf("[Lexical Error] %d:%d '%s' %s", e.Line, e.Column, e.Lexeme, e.Message)
}

// SyntaxError is returned by grammar productions and unwound to the nearest
// statement list, where it is reported and the token stream resynchronised.
type SyntaxError struct {
	Tok Token
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// Severity classifies a Diagnostic.
type Severity int

const (
	SevSyntax Severity = iota
	SevSemantic
	SevWarning
)

var severityNames = [...]string{
	SevSyntax:   "Syntax Error",
	SevSemantic: "Semantic Error",
	SevWarning:  "Warning",
}

func (s Severity) String() string {
	if int(s) >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is a syntax error, semantic error or warning raised while parsing.
type Diagnostic struct {
	Severity Severity
	Line     int
	Column   int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %d:%d %s", d.Severity, d.Line, d.Column, d.Message)
}

// Diagnostics collects the diagnostics of one parse. The caller owns it and
// passes it into the parser.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) add(sev Severity, tok Token, format string, args ...any) {
	d.items = append(d.items, Diagnostic{
		Severity: sev,
		Line:     tok.Line,
		Column:   tok.Column,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Items returns the diagnostics in the order they were raised.
func (d *Diagnostics) Items() []Diagnostic {
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Count returns how many diagnostics of the given severity were raised.
func (d *Diagnostics) Count(sev Severity) int {
	n := 0
	for _, item := range d.items {
		if item.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any syntax or semantic error was raised.
func (d *Diagnostics) HasErrors() bool {
	return d.Count(SevSyntax)+d.Count(SevSemantic) > 0
}

// HasWarnings reports whether any warning was raised.
func (d *Diagnostics) HasWarnings() bool {
	return d.Count(SevWarning) > 0
}

// Len returns the total number of diagnostics.
func (d *Diagnostics) Len() int { return len(d.items) }
