package frontend

import (
	"go/constant"
	"go/token"
	"math"
)

type APValueKind int

const (
	APNone APValueKind = iota
	APInt
	APFloat
	APLValue
)

// FloatSemantics identifies the binary format of a floating value.
type FloatSemantics int

const (
	IEEESingle FloatSemantics = iota
	IEEEDouble
	X87DoubleExtended
	IEEEQuad
)

// APValue is the result of a successful constant evaluation.
type APValue struct {
	Kind APValueKind
	// Int is exact and already reduced to the range of its type.
	Int       constant.Value
	Float     float64
	Semantics FloatSemantics
	IsNull    bool
}

func (v APValue) IsNullPointer() bool { return v.Kind == APLValue && v.IsNull }

func (v APValue) BoolValue() bool {
	switch v.Kind {
	case APInt:
		return constant.Sign(v.Int) != 0
	case APFloat:
		return v.Float != 0
	case APLValue:
		return !v.IsNull
	}
	return false
}

// ExtValue returns the value as a sign-extended 64-bit integer.
func (v APValue) ExtValue() int64 {
	if i, ok := constant.Int64Val(v.Int); ok {
		return i
	}
	u, _ := constant.Uint64Val(v.Int)
	return int64(u)
}

// ZExtValue returns the value as a zero-extended 64-bit integer.
func (v APValue) ZExtValue() uint64 {
	if u, ok := constant.Uint64Val(v.Int); ok {
		return u
	}
	i, _ := constant.Int64Val(v.Int)
	return uint64(i)
}

type EvalResult struct {
	Val                  APValue
	HasSideEffects       bool
	HasUndefinedBehavior bool
}

// Evaluator folds expressions to constants.
type Evaluator interface {
	// EvaluateAsRValue reports false when e is not a constant expression.
	// A true result may still carry side effects or undefined behavior.
	EvaluateAsRValue(e *Expr) (EvalResult, bool)
}

// ConstEvaluator folds integer, floating, boolean and null-pointer
// expressions built from literals, enumerators and constant variables.
type ConstEvaluator struct{}

func (ConstEvaluator) EvaluateAsRValue(e *Expr) (EvalResult, bool) {
	var ev evaluation
	v, ok := ev.eval(e)
	if !ok {
		return ev.res, false
	}
	ev.res.Val = v
	return ev.res, true
}

type evaluation struct {
	res   EvalResult
	depth int
}

const maxEvalDepth = 512

func (ev *evaluation) eval(e *Expr) (APValue, bool) {
	if e == nil {
		return APValue{}, false
	}
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > maxEvalDepth {
		return APValue{}, false
	}

	switch e.Kind {
	case ExprIntegerLiteral, ExprCharacterLiteral:
		if e.Value == nil || e.Value.Kind() != constant.Int {
			return APValue{}, false
		}
		return ev.makeInt(e.Value, intTypeOr(e.Type)), true
	case ExprBoolLiteral:
		if e.Value != nil && constant.BoolVal(e.Value) {
			return intValue(constant.MakeInt64(1)), true
		}
		return intValue(constant.MakeInt64(0)), true
	case ExprFloatingLiteral:
		if e.Value == nil {
			return APValue{}, false
		}
		f, _ := constant.Float64Val(constant.ToFloat(e.Value))
		return floatValue(f, e.Type), true
	case ExprStringLiteral:
		return APValue{Kind: APLValue}, true
	case ExprNullPtr:
		return APValue{Kind: APLValue, IsNull: true}, true
	case ExprDeclRef:
		return ev.declRef(e)
	case ExprParen, ExprMaterializeTemporary, ExprWithCleanups, ExprBindTemporary:
		return ev.eval(e.Operand())
	case ExprImplicitCast, ExprExplicitCast:
		sub := e.Operand()
		v, ok := ev.eval(sub)
		if !ok {
			return APValue{}, false
		}
		return ev.convert(v, e.Type)
	case ExprUnary:
		return ev.unary(e)
	case ExprBinary:
		return ev.binary(e)
	case ExprConditional:
		c, ok := ev.eval(e.child(0))
		if !ok {
			return APValue{}, false
		}
		branch := e.child(2)
		if c.BoolValue() {
			branch = e.child(1)
		}
		v, ok := ev.eval(branch)
		if !ok {
			return APValue{}, false
		}
		return ev.convert(v, e.Type)
	case ExprCall:
		ev.res.HasSideEffects = true
		return APValue{}, false
	case ExprInitList:
		switch len(e.Sub) {
		case 0:
			if e.Type.IsArithmetic() {
				return ev.convert(intValue(constant.MakeInt64(0)), e.Type)
			}
		case 1:
			v, ok := ev.eval(e.Sub[0])
			if !ok {
				return APValue{}, false
			}
			return ev.convert(v, e.Type)
		}
	}
	return APValue{}, false
}

func (ev *evaluation) declRef(e *Expr) (APValue, bool) {
	switch d := e.Ref.(type) {
	case *EnumConstantDecl:
		return ev.convert(intValue(constant.MakeInt64(d.Value)), e.Type)
	case *VarDecl:
		c := d.Type.Canonical()
		readable := d.IsConstexpr || (c.Const && (d.Type.IsInteger() || d.Type.IsFloating()))
		if !readable || d.Init == nil {
			return APValue{}, false
		}
		v, ok := ev.eval(d.Init)
		if !ok {
			return APValue{}, false
		}
		return ev.convert(v, d.Type)
	}
	return APValue{}, false
}

func intValue(v constant.Value) APValue {
	return APValue{Kind: APInt, Int: v}
}

func floatValue(f float64, t QualType) APValue {
	sem := semanticsOf(t)
	if sem == IEEESingle {
		f = float64(float32(f))
	}
	return APValue{Kind: APFloat, Float: f, Semantics: sem}
}

func semanticsOf(t QualType) FloatSemantics {
	c := t.Canonical()
	if c.Kind != TypeBuiltin {
		return IEEEDouble
	}
	switch c.Builtin {
	case BuiltinFloat:
		return IEEESingle
	case BuiltinLongDouble:
		return X87DoubleExtended
	case BuiltinFloat128:
		return IEEEQuad
	}
	return IEEEDouble
}

func intTypeOr(t QualType) QualType {
	if t.IsInteger() {
		return t
	}
	return Builtin(BuiltinInt)
}

// makeInt reduces x to the range of t. Signed overflow is undefined.
func (ev *evaluation) makeInt(x constant.Value, t QualType) APValue {
	v, overflow := wrap(x, t)
	if overflow && t.IsSignedInteger() {
		ev.res.HasUndefinedBehavior = true
	}
	return intValue(v)
}

// wrap reduces x modulo 2^bits into the range of t.
func wrap(x constant.Value, t QualType) (constant.Value, bool) {
	if t.IsBoolean() {
		if constant.Sign(x) != 0 {
			return constant.MakeInt64(1), false
		}
		return constant.MakeInt64(0), false
	}
	bits := t.Bits()
	if bits == 0 {
		return x, false
	}
	modulus := constant.Shift(constant.MakeInt64(1), token.SHL, uint(bits))
	lo, hi := rangeOf(t)
	if constant.Compare(x, token.GEQ, lo) && constant.Compare(x, token.LEQ, hi) {
		return x, false
	}
	r := constant.BinaryOp(x, token.REM, modulus)
	if constant.Sign(r) < 0 {
		r = constant.BinaryOp(r, token.ADD, modulus)
	}
	if constant.Compare(r, token.GTR, hi) {
		r = constant.BinaryOp(r, token.SUB, modulus)
	}
	return r, true
}

func rangeOf(t QualType) (constant.Value, constant.Value) {
	bits := uint(t.Bits())
	one := constant.MakeInt64(1)
	if t.IsSignedInteger() {
		half := constant.Shift(one, token.SHL, bits-1)
		return constant.UnaryOp(token.SUB, half, 0), constant.BinaryOp(half, token.SUB, one)
	}
	full := constant.Shift(one, token.SHL, bits)
	return constant.MakeInt64(0), constant.BinaryOp(full, token.SUB, one)
}

func boolValue(b bool) APValue {
	if b {
		return intValue(constant.MakeInt64(1))
	}
	return intValue(constant.MakeInt64(0))
}

// convert applies the conversion of v to type to. An unknown target type
// leaves the value alone.
func (ev *evaluation) convert(v APValue, to QualType) (APValue, bool) {
	c := to.Canonical()
	switch {
	case c.Kind == TypeUnknown:
		return v, true
	case to.IsBoolean():
		if v.Kind == APNone {
			return APValue{}, false
		}
		return boolValue(v.BoolValue()), true
	case to.IsInteger():
		switch v.Kind {
		case APInt:
			x, _ := wrap(v.Int, to)
			return intValue(x), true
		case APFloat:
			if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
				ev.res.HasUndefinedBehavior = true
				return APValue{}, false
			}
			x := constant.ToInt(constant.MakeFloat64(math.Trunc(v.Float)))
			lo, hi := rangeOf(to)
			if constant.Compare(x, token.LSS, lo) || constant.Compare(x, token.GTR, hi) {
				ev.res.HasUndefinedBehavior = true
				x, _ = wrap(x, to)
			}
			return intValue(x), true
		}
		return APValue{}, false
	case to.IsFloating():
		switch v.Kind {
		case APInt:
			f, _ := constant.Float64Val(constant.ToFloat(v.Int))
			return floatValue(f, to), true
		case APFloat:
			return floatValue(v.Float, to), true
		}
		return APValue{}, false
	case to.IsPointer() || (c.Kind == TypeBuiltin && c.Builtin == BuiltinNullPtr):
		switch v.Kind {
		case APLValue:
			return v, true
		case APInt:
			if constant.Sign(v.Int) == 0 {
				return APValue{Kind: APLValue, IsNull: true}, true
			}
		}
		return APValue{}, false
	case c.Kind == TypeArray:
		if v.Kind == APLValue {
			return v, true
		}
	}
	return APValue{}, false
}

// promote applies the integral promotions.
func promote(t QualType) QualType {
	if !t.IsInteger() {
		if t.IsFloating() {
			return t.Canonical().Unqualified()
		}
		return Builtin(BuiltinInt)
	}
	c := t.Canonical().Unqualified()
	if c.Kind == TypeEnum {
		c = promote(c.underlying())
	}
	if c.Bits() < 32 {
		return Builtin(BuiltinInt)
	}
	if c.Bits() == 32 && c.Builtin != BuiltinInt && c.Builtin != BuiltinUInt {
		if c.IsSignedInteger() {
			return Builtin(BuiltinInt)
		}
		return Builtin(BuiltinUInt)
	}
	return c
}

var unsignedOf = map[BuiltinKind]BuiltinKind{
	BuiltinInt:      BuiltinUInt,
	BuiltinLong:     BuiltinULong,
	BuiltinLongLong: BuiltinULongLong,
	BuiltinInt128:   BuiltinUInt128,
}

func rank(k BuiltinKind) int {
	switch k {
	case BuiltinInt, BuiltinUInt:
		return 1
	case BuiltinLong, BuiltinULong:
		return 2
	case BuiltinLongLong, BuiltinULongLong:
		return 3
	case BuiltinInt128, BuiltinUInt128:
		return 4
	}
	return 0
}

// commonType applies the usual arithmetic conversions.
func commonType(a, b QualType) QualType {
	if a.IsFloating() || b.IsFloating() {
		ca, cb := a.Canonical(), b.Canonical()
		switch {
		case !a.IsFloating():
			return cb.Unqualified()
		case !b.IsFloating():
			return ca.Unqualified()
		case ca.Builtin >= cb.Builtin:
			return ca.Unqualified()
		default:
			return cb.Unqualified()
		}
	}
	pa, pb := promote(a), promote(b)
	if pa.Builtin == pb.Builtin {
		return pa
	}
	sa, sb := pa.IsSignedInteger(), pb.IsSignedInteger()
	if sa == sb {
		if rank(pa.Builtin) >= rank(pb.Builtin) {
			return pa
		}
		return pb
	}
	signed, unsigned := pa, pb
	if !sa {
		signed, unsigned = pb, pa
	}
	if rank(unsigned.Builtin) >= rank(signed.Builtin) {
		return unsigned
	}
	if signed.Bits() > unsigned.Bits() {
		return signed
	}
	return Builtin(unsignedOf[signed.Builtin])
}

func (ev *evaluation) unary(e *Expr) (APValue, bool) {
	switch e.Op {
	case "++", "--", "post++", "post--":
		ev.res.HasSideEffects = true
		return APValue{}, false
	case "&", "*":
		return APValue{}, false
	}

	sub := e.Operand()
	v, ok := ev.eval(sub)
	if !ok {
		return APValue{}, false
	}

	if e.Op == "!" {
		if v.Kind == APNone {
			return APValue{}, false
		}
		return ev.convert(boolValue(!v.BoolValue()), resultOr(e.Type, Builtin(BuiltinBool)))
	}

	t := promote(sub.Type)
	if sub.Type.Canonical().Kind == TypeUnknown && v.Kind == APFloat {
		t = Builtin(BuiltinDouble)
	}
	if v, ok = ev.convert(v, t); !ok {
		return APValue{}, false
	}

	var out APValue
	switch {
	case v.Kind == APFloat:
		switch e.Op {
		case "+":
			out = v
		case "-":
			out = floatValue(-v.Float, t)
		default:
			return APValue{}, false
		}
	case v.Kind == APInt:
		switch e.Op {
		case "+":
			out = v
		case "-":
			out = ev.makeInt(constant.UnaryOp(token.SUB, v.Int, 0), t)
		case "~":
			x := constant.UnaryOp(token.XOR, v.Int, 0)
			if !t.IsSignedInteger() {
				x = constant.UnaryOp(token.XOR, v.Int, uint(t.Bits()))
			}
			out = intValue(x)
		default:
			return APValue{}, false
		}
	default:
		return APValue{}, false
	}
	return ev.convert(out, resultOr(e.Type, t))
}

func resultOr(t, fallback QualType) QualType {
	if t.Canonical().Kind == TypeUnknown {
		return fallback
	}
	return t
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "|=": true, "^=": true,
}

var intOps = map[string]token.Token{
	"+": token.ADD, "-": token.SUB, "*": token.MUL, "/": token.QUO_ASSIGN, "%": token.REM,
	"&": token.AND, "|": token.OR, "^": token.XOR,
}

var compareOps = map[string]token.Token{
	"<": token.LSS, ">": token.GTR, "<=": token.LEQ, ">=": token.GEQ, "==": token.EQL, "!=": token.NEQ,
}

func (ev *evaluation) binary(e *Expr) (APValue, bool) {
	if assignOps[e.Op] {
		ev.res.HasSideEffects = true
		return APValue{}, false
	}

	switch e.Op {
	case ",":
		var lhs evaluation
		lhs.depth = ev.depth
		if _, ok := lhs.eval(e.LHS()); !ok || lhs.res.HasSideEffects {
			ev.res.HasSideEffects = true
		}
		ev.res.HasUndefinedBehavior = ev.res.HasUndefinedBehavior || lhs.res.HasUndefinedBehavior
		return ev.eval(e.RHS())
	case "&&", "||":
		l, ok := ev.eval(e.LHS())
		if !ok || l.Kind == APNone {
			return APValue{}, false
		}
		if (e.Op == "&&" && !l.BoolValue()) || (e.Op == "||" && l.BoolValue()) {
			return ev.convert(boolValue(l.BoolValue()), resultOr(e.Type, Builtin(BuiltinBool)))
		}
		r, ok := ev.eval(e.RHS())
		if !ok || r.Kind == APNone {
			return APValue{}, false
		}
		return ev.convert(boolValue(r.BoolValue()), resultOr(e.Type, Builtin(BuiltinBool)))
	}

	l, ok := ev.eval(e.LHS())
	if !ok {
		return APValue{}, false
	}
	r, ok := ev.eval(e.RHS())
	if !ok {
		return APValue{}, false
	}

	if l.Kind == APLValue || r.Kind == APLValue {
		return ev.pointerCompare(e, l, r)
	}

	lt, rt := operandType(e.LHS(), l), operandType(e.RHS(), r)

	if e.Op == "<<" || e.Op == ">>" {
		return ev.shift(e, l, r, promote(lt))
	}

	ct := commonType(lt, rt)
	if l, ok = ev.convert(l, ct); !ok {
		return APValue{}, false
	}
	if r, ok = ev.convert(r, ct); !ok {
		return APValue{}, false
	}

	if tok, isCmp := compareOps[e.Op]; isCmp {
		var res bool
		if l.Kind == APFloat {
			res = constant.Compare(constant.MakeFloat64(l.Float), tok, constant.MakeFloat64(r.Float))
		} else {
			res = constant.Compare(l.Int, tok, r.Int)
		}
		return ev.convert(boolValue(res), resultOr(e.Type, Builtin(BuiltinBool)))
	}

	var out APValue
	if l.Kind == APFloat {
		var f float64
		switch e.Op {
		case "+":
			f = l.Float + r.Float
		case "-":
			f = l.Float - r.Float
		case "*":
			f = l.Float * r.Float
		case "/":
			f = l.Float / r.Float
		default:
			return APValue{}, false
		}
		out = floatValue(f, ct)
	} else {
		tok, known := intOps[e.Op]
		if !known {
			return APValue{}, false
		}
		if (e.Op == "/" || e.Op == "%") && constant.Sign(r.Int) == 0 {
			ev.res.HasUndefinedBehavior = true
			return APValue{}, false
		}
		out = ev.makeInt(constant.BinaryOp(l.Int, tok, r.Int), ct)
	}
	return ev.convert(out, resultOr(e.Type, ct))
}

func operandType(e *Expr, v APValue) QualType {
	if e != nil && e.Type.Canonical().Kind != TypeUnknown {
		return e.Type
	}
	if v.Kind == APFloat {
		return Builtin(BuiltinDouble)
	}
	return Builtin(BuiltinInt)
}

func (ev *evaluation) shift(e *Expr, l, r APValue, t QualType) (APValue, bool) {
	if l.Kind != APInt || r.Kind != APInt {
		return APValue{}, false
	}
	l, _ = ev.convert(l, t)
	amount, ok := constant.Int64Val(r.Int)
	if !ok || amount < 0 || amount >= int64(t.Bits()) {
		ev.res.HasUndefinedBehavior = true
		return APValue{}, false
	}
	var x constant.Value
	if e.Op == "<<" {
		if t.IsSignedInteger() && constant.Sign(l.Int) < 0 {
			ev.res.HasUndefinedBehavior = true
		}
		x = constant.Shift(l.Int, token.SHL, uint(amount))
	} else {
		x = constant.Shift(l.Int, token.SHR, uint(amount))
	}
	return ev.convert(ev.makeInt(x, t), resultOr(e.Type, t))
}

func (ev *evaluation) pointerCompare(e *Expr, l, r APValue) (APValue, bool) {
	if e.Op != "==" && e.Op != "!=" {
		return APValue{}, false
	}
	toNull := func(v APValue) (bool, bool) {
		switch v.Kind {
		case APLValue:
			return v.IsNull, true
		case APInt:
			return constant.Sign(v.Int) == 0, constant.Sign(v.Int) == 0
		}
		return false, false
	}
	ln, lok := toNull(l)
	rn, rok := toNull(r)
	// Two distinct non-null addresses cannot be compared here.
	if !lok || !rok || (!ln && !rn) {
		return APValue{}, false
	}
	eq := ln == rn
	if e.Op == "!=" {
		eq = !eq
	}
	return ev.convert(boolValue(eq), resultOr(e.Type, Builtin(BuiltinBool)))
}

// Promote applies the integral promotions to t.
func Promote(t QualType) QualType { return promote(t) }

// CommonType is the type the usual arithmetic conversions bring a and b to.
func CommonType(a, b QualType) QualType { return commonType(a, b) }
