package compiler

import (
	"strconv"
	"strings"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"char":     CHAR,
	"int":      INT,
	"float":    FLOAT,
	"break":    BREAK,
	"const":    CONST,
	"return":   RETURN,
	"void":     VOID,
	"continue": CONTINUE,
	"do":       DO,
	"while":    WHILE,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"bool":     BOOL,
	"double":   DOUBLE,
	"true":     TRUE,
	"false":    FALSE,
}

// operators maps every legal operator spelling to its TokenType.
var operators = map[string]TokenType{
	"!": NOT, "*": STAR, "/": SLASH, "%": PERCENT, "+": PLUS, "-": MINUS,
	"<": LESS, "<=": LESS_EQ, ">": GREATER, ">=": GREATER_EQ,
	"==": EQUALS, "!=": NOT_EQ, "&&": AND_LOGICAL, "||": OR_LOGICAL,
	"=": ASSIGN, "&": AMP, "|": PIPE, "^": CARET, "~": TILDE,
	"++": PLUS_PLUS, "--": MINUS_MINUS, "->": ARROW,
	"<<": SHL_OP, ">>": SHR_OP, "<<=": SHL_ASSIGN, ">>=": SHR_ASSIGN,
	"+=": PLUS_ASSIGN, "-=": MINUS_ASSIGN, "*=": STAR_ASSIGN,
	"/=": SLASH_ASSIGN, "%=": PERCENT_ASSIGN,
}

// unaryPrefix lists the operators that may directly follow another operator
// inside one run of operator characters, as in "x=-1" or "a&&!b".
var unaryPrefix = map[string]bool{
	"+": true, "-": true, "!": true, "~": true, "&": true, "*": true, "++": true, "--": true,
}

var delimiters = map[rune]TokenType{
	'(': LPAREN, ')': RPAREN, '[': LBRACKET, ']': RBRACKET,
	'{': LBRACE, '}': RBRACE, ';': SEMICOLON, ',': COMMA,
}

var closerFor = map[string]string{")": "(", "]": "[", "}": "{"}

var directives = map[string]bool{
	"include": true, "define": true, "undef": true, "ifdef": true,
	"ifndef": true, "endif": true, "pragma": true,
}

const operatorChars = "!*/%+-<>=&|^~"

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src    []rune
	pos    int // index of the next rune to consume
	line   int // current 1-based source line
	col    int // current 1-based source column
	tokens []Token
	errs   []LexError
	open   []Token // unclosed ( [ {
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// Tokenize scans src and returns its tokens, terminated by an EOF token, and
// every lexical error found. Errors never stop the scan.
func Tokenize(src string) ([]Token, []LexError) {
	l := newLexer(src)
	l.run()
	return l.tokens, l.errs
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) emit(tt TokenType, lexeme string, line, col int, value any) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Line: line, Column: col, Value: value})
}

func (l *Lexer) errorAt(line, col int, lexeme, msg string) {
	l.errs = append(l.errs, LexError{Line: line, Column: col, Lexeme: lexeme, Message: msg})
}

func (l *Lexer) run() {
	for !l.atEnd() {
		r := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\f' || r == '\v':
			l.advance()
		case r == '/' && l.peek2() == '/':
			l.skipLineComment()
		case r == '/' && l.peek2() == '*':
			l.skipBlockComment()
		case r == '\'':
			l.scanChar()
		case r == '"':
			l.scanString()
		case isDigit(r):
			l.scanNumber()
		case isIdentStart(r):
			l.scanIdent()
		case r == '#':
			l.scanDirective()
		case delimiters[r] != 0:
			l.scanDelimiter()
		case strings.ContainsRune(operatorChars, r):
			l.scanOperator()
		default:
			line, col := l.line, l.col
			l.advance()
			l.errorAt(line, col, string(r), "illegal character")
		}
	}
	for _, open := range l.open {
		l.errorAt(open.Line, open.Column, open.Lexeme, "unmatched delimiter")
	}
	l.open = nil
	l.emit(EOF, "", l.line, l.col, nil)
}

// skipLineComment discards everything up to end-of-line.
func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing "*/".
// Newlines inside the comment still advance the line counter.
func (l *Lexer) skipBlockComment() {
	line, col := l.line, l.col
	l.advance() // /
	l.advance() // *
	for !l.atEnd() {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.errorAt(line, col, "/*", "unterminated block comment")
}

// scanEscape decodes the escape sequence after a consumed backslash.
func (l *Lexer) scanEscape() (rune, bool) {
	if l.atEnd() || l.peek() == '\n' {
		return 0, false
	}
	r := l.advance()
	switch r {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case 'a':
		return '\a', true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'v':
		return '\v', true
	case '\\', '\'', '"', '?':
		return r, true
	case 'x':
		v, n := 0, 0
		for n < 2 && isHexDigit(l.peek()) {
			v = v*16 + digitValue(l.advance())
			n++
		}
		return rune(v), n > 0
	}
	if r >= '0' && r <= '7' {
		v := int(r - '0')
		for n := 1; n < 3 && l.peek() >= '0' && l.peek() <= '7'; n++ {
			v = v*8 + int(l.advance()-'0')
		}
		return rune(v), true
	}
	return 0, false
}

// scanQuoted consumes a quoted literal whose opening quote is at l.peek().
// It reports whether the closing quote was found on the same line.
func (l *Lexer) scanQuoted(quote rune) (decoded []rune, badEscape, closed bool) {
	l.advance()
	for !l.atEnd() && l.peek() != '\n' {
		r := l.advance()
		if r == quote {
			return decoded, badEscape, true
		}
		if r == '\\' {
			d, ok := l.scanEscape()
			if !ok {
				badEscape = true
				continue
			}
			r = d
		}
		decoded = append(decoded, r)
	}
	return decoded, badEscape, false
}

// scanChar lexes 'c'. A valid literal decodes to exactly one character and
// carries that character's ordinal as its value.
func (l *Lexer) scanChar() {
	line, col, start := l.line, l.col, l.pos
	decoded, badEscape, closed := l.scanQuoted('\'')
	lexeme := string(l.src[start:l.pos])
	switch {
	case !closed:
		l.errorAt(line, col, lexeme, "unterminated character literal")
	case badEscape:
		l.errorAt(line, col, lexeme, "invalid escape sequence")
	case len(decoded) == 0:
		l.errorAt(line, col, lexeme, "empty character literal")
	case len(decoded) > 1:
		l.errorAt(line, col, lexeme, "multi-character literal")
	default:
		l.emit(CHAR_LIT, lexeme, line, col, int64(decoded[0]))
	}
}

// scanString lexes "text". String literals never span lines.
func (l *Lexer) scanString() {
	line, col, start := l.line, l.col, l.pos
	decoded, badEscape, closed := l.scanQuoted('"')
	lexeme := string(l.src[start:l.pos])
	switch {
	case !closed:
		l.errorAt(line, col, lexeme, "unterminated string literal")
	case badEscape:
		l.errorAt(line, col, lexeme, "invalid escape sequence")
	default:
		l.emit(STRING_LIT, lexeme, line, col, string(decoded))
	}
}

// scanNumber consumes the whole alphanumeric run starting at a digit, so that
// malformed literals are reported as one error instead of being split.
func (l *Lexer) scanNumber() {
	line, col, start := l.line, l.col, l.pos
	hex := l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X')
	for !l.atEnd() {
		r := l.peek()
		if !isIdentPart(r) && r != '.' {
			break
		}
		l.advance()
		if !hex && (r == 'e' || r == 'E') && (l.peek() == '+' || l.peek() == '-') {
			l.advance()
		}
	}
	text := string(l.src[start:l.pos])
	tt, value, msg := classifyNumber(text)
	if msg != "" {
		l.errorAt(line, col, text, msg)
		return
	}
	l.emit(tt, text, line, col, value)
}

// classifyNumber decodes a numeric literal. A non-empty message names the
// defect when text is malformed.
func classifyNumber(text string) (TokenType, any, string) {
	if len(text) > 1 && text[0] == '0' {
		base, name := 0, ""
		switch text[1] {
		case 'x', 'X':
			base, name = 16, "hex"
		case 'b', 'B':
			base, name = 2, "binary"
		case 'o', 'O':
			base, name = 8, "octal"
		}
		if base != 0 {
			digits := text[2:]
			if digits == "" {
				return ILLEGAL, nil, "illegal " + name + " digit"
			}
			for _, r := range digits {
				if !isAlnum(r) || digitValue(r) >= base {
					return ILLEGAL, nil, "illegal " + name + " digit"
				}
			}
			v, err := strconv.ParseInt(digits, base, 64)
			if err != nil {
				return ILLEGAL, nil, "integer literal out of range"
			}
			return INT_LIT, v, ""
		}
	}

	if strings.ContainsRune(text, '.') {
		return classifyFloat(text)
	}

	n := leadingDigits(text)
	if n < len(text) {
		if r := text[n]; (r == 'e' || r == 'E') && n > 0 {
			return ILLEGAL, nil, "missing decimal point"
		}
		return ILLEGAL, nil, "invalid numeric suffix"
	}

	if len(text) > 1 && text[0] == '0' {
		if text[1] == '0' {
			return ILLEGAL, nil, "redundant leading zero"
		}
		if strings.ContainsAny(text, "89") {
			return ILLEGAL, nil, "illegal octal digit"
		}
		v, err := strconv.ParseInt(text[1:], 8, 64)
		if err != nil {
			return ILLEGAL, nil, "integer literal out of range"
		}
		return INT_LIT, v, ""
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return ILLEGAL, nil, "integer literal out of range"
	}
	return INT_LIT, v, ""
}

func classifyFloat(text string) (TokenType, any, string) {
	mantissa, exponent, hasExp := text, "", false
	if i := strings.IndexAny(text, "eE"); i >= 0 {
		mantissa, exponent, hasExp = text[:i], text[i+1:], true
	}
	if strings.Count(mantissa, ".") > 1 {
		return ILLEGAL, nil, "multiple decimal points"
	}
	intPart, frac, ok := strings.Cut(mantissa, ".")
	if !ok {
		return ILLEGAL, nil, "missing decimal point"
	}
	if leadingDigits(intPart) != len(intPart) {
		return ILLEGAL, nil, "invalid numeric suffix"
	}
	if strings.HasPrefix(intPart, "00") {
		return ILLEGAL, nil, "redundant leading zero"
	}
	if frac == "" {
		return ILLEGAL, nil, "missing fractional digits"
	}
	if leadingDigits(frac) != len(frac) {
		return ILLEGAL, nil, "invalid numeric suffix"
	}
	if hasExp {
		digits := strings.TrimLeft(exponent, "+-")
		if len(exponent)-len(digits) > 1 || digits == "" || leadingDigits(digits) != len(digits) {
			return ILLEGAL, nil, "malformed exponent"
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return ILLEGAL, nil, "float literal out of range"
	}
	return FLOAT_LIT, v, ""
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent() {
	line, col, start := l.line, l.col, l.pos
	for !l.atEnd() && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	l.emit(tt, lexeme, line, col, nil)
}

// scanDirective lexes a preprocessor line. Only the directive word is
// validated; the rest of the line is kept verbatim minus a trailing // comment.
func (l *Lexer) scanDirective() {
	line, col, start := l.line, l.col, l.pos
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimRight(text, " \t\r")

	word := strings.TrimLeft(text[1:], " \t")
	if i := strings.IndexFunc(word, func(r rune) bool { return !isIdentPart(r) }); i >= 0 {
		word = word[:i]
	}
	if !directives[word] {
		l.errorAt(line, col, text, "illegal preprocessor directive")
		return
	}
	l.emit(PREPROCESSOR, text, line, col, nil)
}

// scanDelimiter emits a delimiter and tracks bracket balance. A closer pops
// back to its matching opener, reporting every opener skipped on the way.
func (l *Lexer) scanDelimiter() {
	line, col := l.line, l.col
	r := l.advance()
	lexeme := string(r)
	l.emit(delimiters[r], lexeme, line, col, nil)

	switch lexeme {
	case "(", "[", "{":
		l.open = append(l.open, l.tokens[len(l.tokens)-1])
	case ")", "]", "}":
		want := closerFor[lexeme]
		for i := len(l.open) - 1; i >= 0; i-- {
			if l.open[i].Lexeme == want {
				for _, skipped := range l.open[i+1:] {
					l.errorAt(skipped.Line, skipped.Column, skipped.Lexeme, "unmatched delimiter")
				}
				l.open = l.open[:i]
				return
			}
		}
		l.errorAt(line, col, lexeme, "unmatched delimiter")
	}
}

// scanOperator takes the maximal run of operator characters. A run that is
// not itself an operator must split into one operator followed by unary
// prefixes only; anything else is reported and skipped as a whole.
func (l *Lexer) scanOperator() {
	line, col, start := l.line, l.col, l.pos
	for !l.atEnd() && strings.ContainsRune(operatorChars, l.peek()) {
		if l.pos > start && l.peek() == '/' && (l.peek2() == '/' || l.peek2() == '*') {
			break
		}
		l.advance()
	}
	run := string(l.src[start:l.pos])
	pieces, ok := splitOperators(run)
	if !ok {
		l.errorAt(line, col, run, "illegal operator")
		return
	}
	for _, p := range pieces {
		l.emit(operators[p], p, line, col, nil)
		col += len(p)
	}
}

func splitOperators(run string) ([]string, bool) {
	if _, ok := operators[run]; ok {
		return []string{run}, true
	}
	var pieces []string
	for rest := run; rest != ""; {
		n := 0
		for k := min(3, len(rest)); k > 0; k-- {
			if _, ok := operators[rest[:k]]; ok {
				n = k
				break
			}
		}
		if n == 0 {
			return nil, false
		}
		piece := rest[:n]
		if len(pieces) > 0 && !unaryPrefix[piece] {
			return nil, false
		}
		pieces = append(pieces, piece)
		rest = rest[n:]
	}
	return pieces, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }

// digitValue returns the value of r in bases up to 36.
func digitValue(r rune) int {
	switch {
	case isDigit(r):
		return int(r - '0')
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10
	}
	return 99
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
