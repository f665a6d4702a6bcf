package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is a value type of the source language.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt
	TypeFloat
	TypeChar
	TypeBool
	TypeDouble
	TypeVoid
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeChar:    "char",
	TypeBool:    "bool",
	TypeDouble:  "double",
	TypeVoid:    "void",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType is the inverse of Type.String for valid types.
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s && Type(i) != TypeInvalid {
			return Type(i), true
		}
	}
	return TypeInvalid, false
}

var typeKeywords = map[TokenType]Type{
	INT:    TypeInt,
	FLOAT:  TypeFloat,
	CHAR:   TypeChar,
	BOOL:   TypeBool,
	DOUBLE: TypeDouble,
	VOID:   TypeVoid,
}

func isTypeKeyword(tt TokenType) bool {
	_, ok := typeKeywords[tt]
	return ok
}

// rank orders the numeric types by width. bool ranks with int when used as
// a number.
func (t Type) rank() int {
	switch t {
	case TypeChar:
		return 1
	case TypeInt, TypeBool:
		return 2
	case TypeFloat:
		return 3
	case TypeDouble:
		return 4
	}
	return 0
}

func (t Type) numeric() bool { return t.rank() > 0 }

func (t Type) integral() bool { return t == TypeChar || t == TypeInt || t == TypeBool }

// assignable reports whether a value of type src may be stored in dst:
// an exact match or a widening along char < int < float < double.
func assignable(dst, src Type) bool {
	if dst == src {
		return true
	}
	if dst == TypeBool {
		return src.integral()
	}
	return dst.numeric() && src.numeric() && dst.rank() >= src.rank()
}

// promote returns the result type of a binary arithmetic operation.
func promote(a, b Type) Type {
	switch {
	case a == TypeDouble || b == TypeDouble:
		return TypeDouble
	case a == TypeFloat || b == TypeFloat:
		return TypeFloat
	}
	return TypeInt
}

// Compile-time constants are int64 or float64.

func constFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func constTruthy(v any) bool { return constFloat(v) != 0 }

func constIsZero(v any) bool { return v != nil && constFloat(v) == 0 }

// convertConst converts a constant to the representation of typ.
func convertConst(typ Type, v any) any {
	if v == nil {
		return nil
	}
	switch typ {
	case TypeFloat, TypeDouble:
		return constFloat(v)
	case TypeBool:
		if constTruthy(v) {
			return int64(1)
		}
		return int64(0)
	}
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return v
}

// foldArith evaluates a binary arithmetic operation on two constants. Integer
// division truncates toward zero.
func foldArith(op Op, a, b any) (any, bool) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		switch op {
		case OpAdd:
			return ai + bi, true
		case OpSub:
			return ai - bi, true
		case OpMul:
			return ai * bi, true
		case OpDiv:
			if bi == 0 {
				return nil, false
			}
			return ai / bi, true
		case OpMod:
			if bi == 0 {
				return nil, false
			}
			return ai % bi, true
		}
		return nil, false
	}
	af, bf := constFloat(a), constFloat(b)
	switch op {
	case OpAdd:
		return af + bf, true
	case OpSub:
		return af - bf, true
	case OpMul:
		return af * bf, true
	case OpDiv:
		if bf == 0 {
			return nil, false
		}
		return af / bf, true
	}
	return nil, false
}

// foldCompare evaluates a relational jump operator on two constants.
func foldCompare(op Op, a, b any) bool {
	x, y := constFloat(a), constFloat(b)
	switch op {
	case OpJLT:
		return x < y
	case OpJLE:
		return x <= y
	case OpJGT:
		return x > y
	case OpJGE:
		return x >= y
	case OpJEQ:
		return x == y
	case OpJNE:
		return x != y
	}
	return false
}

// FormatConst renders a constant as a quadruple operand. Floats always carry
// a decimal point so they read back as floats.
func FormatConst(v any) string {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		s := strconv.FormatFloat(n, 'f', -1, 64)
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		return s
	}
	return NoValue
}

// ParseConst is the inverse of FormatConst. It reports false for operands
// that are not literals.
func ParseConst(s string) (any, bool) {
	if s == "" || s == NoValue {
		return nil, false
	}
	if strings.ContainsRune(s, '.') {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}
