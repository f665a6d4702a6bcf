package compiler

import "fmt"

// TokenType identifies a lexed token. The numeric value is the type code
// written to token listings.
type TokenType int

const (
	EOF TokenType = 0 // sentinel: end of input

	// Keywords
	CHAR     TokenType = 101 // "char"
	INT      TokenType = 102 // "int"
	FLOAT    TokenType = 103 // "float"
	BREAK    TokenType = 104 // "break"
	CONST    TokenType = 105 // "const"
	RETURN   TokenType = 106 // "return"
	VOID     TokenType = 107 // "void"
	CONTINUE TokenType = 108 // "continue"
	DO       TokenType = 109 // "do"
	WHILE    TokenType = 110 // "while"
	IF       TokenType = 111 // "if"
	ELSE     TokenType = 112 // "else"
	FOR      TokenType = 113 // "for"
	BOOL     TokenType = 114 // "bool"
	DOUBLE   TokenType = 115 // "double"
	TRUE     TokenType = 116 // "true"
	FALSE    TokenType = 117 // "false"

	// Paired delimiters sharing the operator code range
	LPAREN   TokenType = 201 // (
	RPAREN   TokenType = 202 // )
	LBRACKET TokenType = 203 // [
	RBRACKET TokenType = 204 // ]

	// Operators
	NOT            TokenType = 205 // !
	STAR           TokenType = 206 // *
	SLASH          TokenType = 207 // /
	PERCENT        TokenType = 208 // %
	PLUS           TokenType = 209 // +
	MINUS          TokenType = 210 // -
	LESS           TokenType = 211 // <
	LESS_EQ        TokenType = 212 // <=
	GREATER        TokenType = 213 // >
	GREATER_EQ     TokenType = 214 // >=
	EQUALS         TokenType = 215 // ==
	NOT_EQ         TokenType = 216 // !=
	AND_LOGICAL    TokenType = 217 // &&
	OR_LOGICAL     TokenType = 218 // ||
	ASSIGN         TokenType = 219 // =
	AMP            TokenType = 220 // &
	PIPE           TokenType = 221 // |
	CARET          TokenType = 222 // ^
	TILDE          TokenType = 223 // ~
	PLUS_PLUS      TokenType = 224 // ++
	MINUS_MINUS    TokenType = 225 // --
	ARROW          TokenType = 226 // ->
	SHL_OP         TokenType = 227 // <<
	SHR_OP         TokenType = 228 // >>
	SHL_ASSIGN     TokenType = 229 // <<=
	SHR_ASSIGN     TokenType = 230 // >>=
	PLUS_ASSIGN    TokenType = 231 // +=
	MINUS_ASSIGN   TokenType = 232 // -=
	STAR_ASSIGN    TokenType = 233 // *=
	SLASH_ASSIGN   TokenType = 234 // /=
	PERCENT_ASSIGN TokenType = 235 // %=

	// Punctuation
	LBRACE    TokenType = 301 // {
	RBRACE    TokenType = 302 // }
	SEMICOLON TokenType = 303 // ;
	COMMA     TokenType = 304 // ,

	PREPROCESSOR TokenType = 305 // #include ...

	INT_LIT    TokenType = 400
	CHAR_LIT   TokenType = 500
	STRING_LIT TokenType = 600
	IDENTIFIER TokenType = 700
	FLOAT_LIT  TokenType = 800
	ILLEGAL    TokenType = 999
)

// tokenNames holds the spelling used in diagnostics.
var tokenNames = map[TokenType]string{
	EOF:            "EOF",
	CHAR:           "char",
	INT:            "int",
	FLOAT:          "float",
	BREAK:          "break",
	CONST:          "const",
	RETURN:         "return",
	VOID:           "void",
	CONTINUE:       "continue",
	DO:             "do",
	WHILE:          "while",
	IF:             "if",
	ELSE:           "else",
	FOR:            "for",
	BOOL:           "bool",
	DOUBLE:         "double",
	TRUE:           "true",
	FALSE:          "false",
	LPAREN:         "(",
	RPAREN:         ")",
	LBRACKET:       "[",
	RBRACKET:       "]",
	NOT:            "!",
	STAR:           "*",
	SLASH:          "/",
	PERCENT:        "%",
	PLUS:           "+",
	MINUS:          "-",
	LESS:           "<",
	LESS_EQ:        "<=",
	GREATER:        ">",
	GREATER_EQ:     ">=",
	EQUALS:         "==",
	NOT_EQ:         "!=",
	AND_LOGICAL:    "&&",
	OR_LOGICAL:     "||",
	ASSIGN:         "=",
	AMP:            "&",
	PIPE:           "|",
	CARET:          "^",
	TILDE:          "~",
	PLUS_PLUS:      "++",
	MINUS_MINUS:    "--",
	ARROW:          "->",
	SHL_OP:         "<<",
	SHR_OP:         ">>",
	SHL_ASSIGN:     "<<=",
	SHR_ASSIGN:     ">>=",
	PLUS_ASSIGN:    "+=",
	MINUS_ASSIGN:   "-=",
	STAR_ASSIGN:    "*=",
	SLASH_ASSIGN:   "/=",
	PERCENT_ASSIGN: "%=",
	LBRACE:         "{",
	RBRACE:         "}",
	SEMICOLON:      ";",
	COMMA:          ",",
	PREPROCESSOR:   "PREPROCESSOR",
	INT_LIT:        "INT_LITERAL",
	CHAR_LIT:       "CHAR_LITERAL",
	STRING_LIT:     "STRING_LITERAL",
	IDENTIFIER:     "IDENTIFIER",
	FLOAT_LIT:      "FLOAT_LITERAL",
	ILLEGAL:        "ILLEGAL",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Category is the coarse classification of a token.
type Category int

const (
	CatKeyword Category = iota
	CatIdentifier
	CatOperator
	CatDelimiter
	CatLiteral
	CatPreprocessor
	CatError
)

var categoryNames = [...]string{
	CatKeyword:      "KEYWORD",
	CatIdentifier:   "IDENTIFIER",
	CatOperator:     "OPERATOR",
	CatDelimiter:    "DELIMITER",
	CatLiteral:      "LITERAL",
	CatPreprocessor: "PREPROCESSOR",
	CatError:        "ERROR",
}

func (c Category) String() string {
	if int(c) >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Category classifies tt.
func (tt TokenType) Category() Category {
	switch {
	case tt >= CHAR && tt <= FALSE:
		return CatKeyword
	case tt == IDENTIFIER:
		return CatIdentifier
	case tt >= LPAREN && tt <= RBRACKET, tt >= LBRACE && tt <= COMMA:
		return CatDelimiter
	case tt >= NOT && tt <= PERCENT_ASSIGN:
		return CatOperator
	case tt == INT_LIT, tt == CHAR_LIT, tt == STRING_LIT, tt == FLOAT_LIT:
		return CatLiteral
	case tt == PREPROCESSOR:
		return CatPreprocessor
	}
	return CatError
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Column int    // 1-based source column
	Value  any    // int64 for INT_LIT and CHAR_LIT, float64 for FLOAT_LIT, string for STRING_LIT
}

// Tag is the category label written to token listings. Literal tokens carry
// their literal kind.
func (t Token) Tag() string {
	switch t.Type {
	case INT_LIT:
		return "LITERAL_INT"
	case FLOAT_LIT:
		return "LITERAL_FLOAT"
	case CHAR_LIT:
		return "LITERAL_CHAR"
	case STRING_LIT:
		return "LITERAL_STRING"
	}
	return t.Type.Category().String()
}

func (t Token) String() string {
	return fmt.Sprintf("%-14s %-14q  %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}
