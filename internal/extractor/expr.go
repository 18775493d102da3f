package extractor

import (
	"go/constant"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"bindgen/internal/frontend"
)

var alternativeTokens = map[string]string{
	"and": "&&", "or": "||", "not": "!", "bitand": "&", "bitor": "|",
	"xor": "^", "compl": "~", "not_eq": "!=",
	"and_eq": "&=", "or_eq": "|=", "xor_eq": "^=",
}

func (b *builder) operator(n *sitter.Node) string {
	op := strings.TrimSpace(b.text(n.ChildByFieldName("operator")))
	if alt, ok := alternativeTokens[op]; ok {
		return alt
	}
	return op
}

func unknownExpr(t frontend.QualType) *frontend.Expr {
	return &frontend.Expr{Kind: frontend.ExprUnknown, Type: t}
}

var boolType = frontend.Builtin(frontend.BuiltinBool)

// expr builds a typed expression. Shapes it does not model, missing
// operands included, come back as ExprUnknown, which never folds.
func (b *builder) expr(n *sitter.Node, s *scope) *frontend.Expr {
	if n == nil {
		return unknownExpr(frontend.QualType{})
	}
	switch n.Type() {
	case "number_literal":
		return numberLiteral(b.text(n))
	case "char_literal":
		v, k, ok := parseCharLiteral(b.text(n))
		if !ok {
			return unknownExpr(frontend.Builtin(frontend.BuiltinChar))
		}
		return &frontend.Expr{Kind: frontend.ExprCharacterLiteral, Type: frontend.Builtin(k), Value: constant.MakeInt64(v)}
	case "string_literal", "raw_string_literal", "concatenated_string":
		return b.stringLiteral(n)
	case "true":
		return frontend.BoolLit(true)
	case "false":
		return frontend.BoolLit(false)
	case "nullptr":
		return frontend.NullPtrLit()
	case "identifier", "qualified_identifier":
		return b.declRef(b.text(n), s)
	case "parenthesized_expression":
		inner := b.expr(firstNamed(n), s)
		return &frontend.Expr{Kind: frontend.ExprParen, Type: inner.Type, Sub: []*frontend.Expr{inner}}
	case "unary_expression":
		arg := b.expr(n.ChildByFieldName("argument"), s)
		op := b.operator(n)
		t := frontend.Promote(arg.Type)
		if op == "!" {
			t = boolType
		} else if !arg.Type.IsArithmetic() {
			t = arg.Type
		}
		return frontend.Unary(op, arg, t)
	case "pointer_expression":
		arg := b.expr(n.ChildByFieldName("argument"), s)
		op := b.operator(n)
		if op == "&" {
			return frontend.Unary(op, arg, frontend.PointerTo(arg.Type))
		}
		return frontend.Unary(op, arg, arg.Type.Pointee())
	case "binary_expression":
		l := b.expr(n.ChildByFieldName("left"), s)
		r := b.expr(n.ChildByFieldName("right"), s)
		op := b.operator(n)
		return frontend.Binary(op, l, r, binaryType(op, l.Type, r.Type))
	case "conditional_expression":
		c := b.expr(n.ChildByFieldName("condition"), s)
		then := b.expr(n.ChildByFieldName("consequence"), s)
		els := b.expr(n.ChildByFieldName("alternative"), s)
		t := decay(then.Type)
		if then.Type.IsArithmetic() && els.Type.IsArithmetic() {
			t = frontend.CommonType(then.Type, els.Type)
		}
		return &frontend.Expr{Kind: frontend.ExprConditional, Type: t, Sub: []*frontend.Expr{c, then, els}}
	case "comma_expression":
		l := b.expr(n.ChildByFieldName("left"), s)
		r := b.expr(n.ChildByFieldName("right"), s)
		return frontend.Binary(",", l, r, r.Type)
	case "assignment_expression":
		l := b.expr(n.ChildByFieldName("left"), s)
		r := b.expr(n.ChildByFieldName("right"), s)
		return frontend.Binary(b.operator(n), l, r, l.Type)
	case "update_expression":
		argNode := n.ChildByFieldName("argument")
		arg := b.expr(argNode, s)
		op := b.operator(n)
		if opNode := n.ChildByFieldName("operator"); opNode != nil && argNode != nil && opNode.StartByte() > argNode.StartByte() {
			op = "post" + op
		}
		return frontend.Unary(op, arg, arg.Type)
	case "cast_expression":
		t := b.typeDescriptor(n.ChildByFieldName("type"), s)
		v := b.expr(n.ChildByFieldName("value"), s)
		return explicitCast(v, t)
	case "call_expression":
		return b.call(n, s)
	case "compound_literal_expression":
		t := b.typeSpec(n.ChildByFieldName("type"), s, nil)
		list := b.expr(n.ChildByFieldName("value"), s)
		return construct(t, list.Sub)
	case "initializer_list":
		var subs []*frontend.Expr
		for _, c := range namedChildren(n) {
			subs = append(subs, b.expr(c, s))
		}
		return &frontend.Expr{Kind: frontend.ExprInitList, Sub: subs}
	case "sizeof_expression", "alignof_expression":
		var t frontend.QualType
		if tn := n.ChildByFieldName("type"); tn != nil {
			t = b.typeDescriptor(tn, s)
		} else {
			t = b.expr(n.ChildByFieldName("value"), s).Type
		}
		size, align := b.sizeAlign(t)
		v := size
		if n.Type() == "alignof_expression" {
			v = align
		}
		return frontend.UintLit(uint64(v), frontend.Builtin(frontend.BuiltinULong))
	}
	return unknownExpr(frontend.QualType{})
}

func numberLiteral(text string) *frontend.Expr {
	if isFloatLiteral(text) {
		f, k, ok := parseFloatLiteral(text)
		if !ok {
			return unknownExpr(frontend.Builtin(frontend.BuiltinDouble))
		}
		return frontend.FloatLit(f, frontend.Builtin(k))
	}
	v, k, ok := parseIntLiteral(text)
	if !ok {
		return unknownExpr(frontend.Builtin(frontend.BuiltinInt))
	}
	return &frontend.Expr{Kind: frontend.ExprIntegerLiteral, Type: frontend.Builtin(k), Value: v}
}

// stringLiteral reads a literal or a sequence of adjacent literals.
func (b *builder) stringLiteral(n *sitter.Node) *frontend.Expr {
	parts := []*sitter.Node{n}
	if n.Type() == "concatenated_string" {
		parts = namedChildren(n)
	}
	var sb strings.Builder
	kind := frontend.BuiltinChar
	for _, p := range parts {
		if p.Type() != "string_literal" && p.Type() != "raw_string_literal" {
			return unknownExpr(frontend.QualType{})
		}
		v, k, ok := parseStringLiteral(b.text(p))
		if !ok {
			return unknownExpr(frontend.QualType{})
		}
		if k != frontend.BuiltinChar {
			kind = k
		}
		sb.WriteString(v)
	}
	if kind == frontend.BuiltinChar {
		return frontend.StringLit(sb.String())
	}
	elem := frontend.Builtin(kind).WithConst()
	return &frontend.Expr{
		Kind: frontend.ExprStringLiteral,
		Type: frontend.QualType{Kind: frontend.TypeArray, Elem: &elem, Len: utf8.RuneCountInString(sb.String()) + 1},
		Text: sb.String(),
	}
}

func (b *builder) declRef(name string, s *scope) *frontend.Expr {
	name = strings.Join(strings.Fields(name), "")
	d, ok := s.lookupValue(name)
	if !ok {
		return &frontend.Expr{Kind: frontend.ExprDeclRef, Text: name}
	}
	switch v := d.(type) {
	case *frontend.EnumConstantDecl:
		t := v.Enum.Type()
		if v.Enum == b.building {
			// Inside its own body an enumerator has the integer type.
			t = v.Enum.Underlying
			if t.Kind == frontend.TypeUnknown {
				t = frontend.Builtin(frontend.BuiltinInt)
			}
		}
		return frontend.RefTo(v, t)
	case *frontend.VarDecl:
		return frontend.RefTo(v, v.Type)
	}
	return &frontend.Expr{Kind: frontend.ExprDeclRef, Text: name}
}

func binaryType(op string, l, r frontend.QualType) frontend.QualType {
	switch op {
	case "&&", "||", "==", "!=", "<", ">", "<=", ">=":
		return boolType
	case "<<", ">>":
		return frontend.Promote(l)
	case "+", "-":
		if l.IsPointer() || l.Canonical().Kind == frontend.TypeArray {
			return decay(l)
		}
	}
	if !l.IsArithmetic() && !r.IsArithmetic() {
		return frontend.QualType{}
	}
	return frontend.CommonType(l, r)
}

// decay converts arrays to pointers to their first element.
func decay(t frontend.QualType) frontend.QualType {
	c := t.Canonical()
	if c.Kind == frontend.TypeArray && c.Elem != nil {
		return frontend.PointerTo(*c.Elem)
	}
	return t
}

func explicitCast(v *frontend.Expr, t frontend.QualType) *frontend.Expr {
	return &frontend.Expr{Kind: frontend.ExprExplicitCast, Type: t, Sub: []*frontend.Expr{v}}
}

// construct builds a functional cast or a construction of t from args.
func construct(t frontend.QualType, args []*frontend.Expr) *frontend.Expr {
	c := t.Canonical()
	if c.Kind != frontend.TypeRecord && c.Kind != frontend.TypeUnknown {
		switch len(args) {
		case 0:
			return &frontend.Expr{Kind: frontend.ExprInitList, Type: t.Unqualified()}
		case 1:
			return explicitCast(args[0], t.Unqualified())
		}
		return unknownExpr(t)
	}
	return &frontend.Expr{Kind: frontend.ExprConstruct, Type: t.Unqualified(), Class: c.Name, Sub: args}
}

var namedCasts = map[string]bool{
	"static_cast": true, "const_cast": true, "reinterpret_cast": true, "dynamic_cast": true,
}

func (b *builder) call(n *sitter.Node, s *scope) *frontend.Expr {
	fn := n.ChildByFieldName("function")
	var args []*frontend.Expr
	for _, a := range namedChildren(n.ChildByFieldName("arguments")) {
		args = append(args, b.expr(a, s))
	}
	if fn == nil {
		return unknownExpr(frontend.QualType{})
	}

	switch fn.Type() {
	case "template_function":
		name := b.text(fn.ChildByFieldName("name"))
		if namedCasts[name] && len(args) == 1 {
			tArgs := namedChildren(fn.ChildByFieldName("arguments"))
			if len(tArgs) == 1 {
				return explicitCast(args[0], b.typeDescriptor(tArgs[0], s))
			}
		}
		return &frontend.Expr{Kind: frontend.ExprCall, Text: b.text(fn), Sub: args}
	case "primitive_type", "sized_type_specifier", "template_type":
		return construct(b.typeSpec(fn, s, nil), args)
	case "identifier", "qualified_identifier":
		name := strings.Join(strings.Fields(b.text(fn)), "")
		if fn.Type() == "qualified_identifier" {
			if _, last := b.qualifiedParts(fn); last != nil && last.Type() == "template_type" {
				return construct(b.typeSpec(fn, s, nil), args)
			}
		}
		if f, ok := s.lookupFunction(name); ok {
			return &frontend.Expr{Kind: frontend.ExprCall, Type: f.ReturnType, Text: name, Sub: args}
		}
		if m, ok := s.lookupMethod(name); ok {
			return &frontend.Expr{Kind: frontend.ExprCall, Type: m.ReturnType, Text: name, Sub: args}
		}
		if _, ok := s.lookupValue(name); ok {
			return &frontend.Expr{Kind: frontend.ExprCall, Text: name, Sub: args}
		}
		// Anything else is taken to name a type, declared or not.
		return construct(b.namedType(name, s), args)
	}
	return &frontend.Expr{Kind: frontend.ExprCall, Text: b.text(fn), Sub: args}
}

// convert applies the implicit conversion of an initializer to type t.
func (b *builder) convert(e *frontend.Expr, t frontend.QualType) *frontend.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == frontend.ExprInitList && e.Type.Kind == frontend.TypeUnknown {
		if t.Canonical().Kind == frontend.TypeRecord {
			return construct(t, e.Sub)
		}
		e.Type = t.Unqualified()
		return e
	}
	tc := t.Canonical()
	if tc.Kind == frontend.TypeUnknown || tc.Kind == frontend.TypeRecord || t.IsReference() {
		return e
	}
	if e.Type.Canonical().Unqualified().Spelling() == tc.Unqualified().Spelling() {
		return e
	}
	return frontend.Cast(e, t.Unqualified())
}

// fold evaluates an integer constant expression.
func (b *builder) fold(e *frontend.Expr) (int64, bool) {
	if e == nil {
		return 0, false
	}
	res, ok := frontend.ConstEvaluator{}.EvaluateAsRValue(e)
	if !ok || res.Val.Kind != frontend.APInt {
		return 0, false
	}
	return res.Val.ExtValue(), true
}

func (b *builder) constInt(n *sitter.Node, s *scope) (int64, bool) {
	return b.fold(b.expr(n, s))
}
