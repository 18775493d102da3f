package model

import "math"

// LiteralKind tags the value held by a Literal.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralBool
	LiteralInt
	LiteralUInt
	LiteralDouble
	LiteralString
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralBool:
		return "bool"
	case LiteralInt:
		return "int"
	case LiteralUInt:
		return "uint"
	case LiteralDouble:
		return "double"
	case LiteralString:
		return "string"
	default:
		return "none"
	}
}

// Literal is an evaluated constant. The zero value is the absent literal.
type Literal struct {
	kind LiteralKind
	b    bool
	i    int64
	u    uint64
	d    float64
	s    string
}

func BoolLiteral(v bool) Literal      { return Literal{kind: LiteralBool, b: v} }
func IntLiteral(v int64) Literal      { return Literal{kind: LiteralInt, i: v} }
func UIntLiteral(v uint64) Literal    { return Literal{kind: LiteralUInt, u: v} }
func DoubleLiteral(v float64) Literal { return Literal{kind: LiteralDouble, d: v} }
func StringLiteral(v string) Literal  { return Literal{kind: LiteralString, s: v} }

func (l Literal) Kind() LiteralKind { return l.kind }

// HasValue reports whether the literal holds anything at all.
func (l Literal) HasValue() bool { return l.kind != LiteralNone }

func (l Literal) Bool() bool        { return l.b }
func (l Literal) Int() int64        { return l.i }
func (l Literal) UInt() uint64      { return l.u }
func (l Literal) Double() float64   { return l.d }
func (l Literal) StringVal() string { return l.s }

// Equal compares tag and payload. Doubles compare bitwise so NaN equals itself.
func (l Literal) Equal(o Literal) bool {
	if l.kind != o.kind {
		return false
	}
	switch l.kind {
	case LiteralBool:
		return l.b == o.b
	case LiteralInt:
		return l.i == o.i
	case LiteralUInt:
		return l.u == o.u
	case LiteralDouble:
		return math.Float64bits(l.d) == math.Float64bits(o.d)
	case LiteralString:
		return l.s == o.s
	default:
		return true
	}
}
