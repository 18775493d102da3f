package frontend

import "go/constant"

type ExprKind int

const (
	ExprUnknown ExprKind = iota
	ExprIntegerLiteral
	ExprFloatingLiteral
	ExprCharacterLiteral
	ExprStringLiteral
	ExprBoolLiteral
	ExprNullPtr
	ExprDeclRef
	ExprParen
	ExprUnary
	ExprBinary
	ExprConditional
	ExprImplicitCast
	ExprExplicitCast
	ExprMaterializeTemporary
	ExprWithCleanups
	ExprBindTemporary
	ExprConstruct
	ExprCall
	ExprInitList
)

// Expr is a typed expression tree.
type Expr struct {
	Kind ExprKind
	Type QualType

	// Op is the operator of unary and binary expressions ("-", "<<", ",").
	// Postfix increment and decrement are spelled "post++" and "post--".
	Op string

	// Value holds the exact value of integer, floating, character and bool literals.
	Value constant.Value
	// Text holds the decoded contents of a string literal, or the written
	// name of a declaration reference or callee.
	Text string

	// Ref is the referenced *EnumConstantDecl or *VarDecl of a DeclRef.
	Ref Decl

	// Class is the qualified name of the class a Construct builds.
	Class string

	Sub []*Expr
}

func (e *Expr) child(i int) *Expr {
	if e == nil || i >= len(e.Sub) {
		return nil
	}
	return e.Sub[i]
}

// Operand returns the single wrapped expression of a paren, cast, unary or
// temporary wrapper.
func (e *Expr) Operand() *Expr { return e.child(0) }

func (e *Expr) LHS() *Expr { return e.child(0) }
func (e *Expr) RHS() *Expr { return e.child(1) }

// IsCast reports both implicit and explicit conversions.
func (e *Expr) IsCast() bool {
	return e.Kind == ExprImplicitCast || e.Kind == ExprExplicitCast
}

func IntLit(v int64, t QualType) *Expr {
	return &Expr{Kind: ExprIntegerLiteral, Type: t, Value: constant.MakeInt64(v)}
}

func UintLit(v uint64, t QualType) *Expr {
	return &Expr{Kind: ExprIntegerLiteral, Type: t, Value: constant.MakeUint64(v)}
}

func FloatLit(v float64, t QualType) *Expr {
	return &Expr{Kind: ExprFloatingLiteral, Type: t, Value: constant.MakeFloat64(v)}
}

func BoolLit(v bool) *Expr {
	return &Expr{Kind: ExprBoolLiteral, Type: Builtin(BuiltinBool), Value: constant.MakeBool(v)}
}

func StringLit(s string) *Expr {
	arr := QualType{Kind: TypeArray, Elem: ptr(Builtin(BuiltinChar).WithConst()), Len: len(s) + 1}
	return &Expr{Kind: ExprStringLiteral, Type: arr, Text: s}
}

func NullPtrLit() *Expr {
	return &Expr{Kind: ExprNullPtr, Type: Builtin(BuiltinNullPtr)}
}

// Cast wraps e in an implicit conversion to t.
func Cast(e *Expr, t QualType) *Expr {
	return &Expr{Kind: ExprImplicitCast, Type: t, Sub: []*Expr{e}}
}

func Unary(op string, e *Expr, t QualType) *Expr {
	return &Expr{Kind: ExprUnary, Op: op, Type: t, Sub: []*Expr{e}}
}

func Binary(op string, l, r *Expr, t QualType) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Type: t, Sub: []*Expr{l, r}}
}

func RefTo(d Decl, t QualType) *Expr {
	e := &Expr{Kind: ExprDeclRef, Type: t, Ref: d}
	switch v := d.(type) {
	case *EnumConstantDecl:
		e.Text = v.Name
	case *VarDecl:
		e.Text = v.Name
	}
	return e
}

func ptr[T any](v T) *T { return &v }
