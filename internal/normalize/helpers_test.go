package normalize

import (
	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

var (
	intT   = frontend.Builtin(frontend.BuiltinInt)
	boolT  = frontend.Builtin(frontend.BuiltinBool)
	voidT  = frontend.Builtin(frontend.BuiltinVoid)
	charT  = frontend.Builtin(frontend.BuiltinChar)
	floatT = frontend.Builtin(frontend.BuiltinFloat)
)

func newNormalizer() *Normalizer {
	return New(frontend.ConstEvaluator{}, DefaultOptions(), nil)
}

func record(name string, tag frontend.TagKind, members ...frontend.Decl) *frontend.RecordDecl {
	r := &frontend.RecordDecl{
		Name:                             name,
		QualifiedName:                    name,
		Tag:                              tag,
		IsDefinition:                     true,
		Members:                          members,
		HasDefaultConstructor:            true,
		HasCopyConstructorWithConstParam: true,
		SizeBits:                         32,
		AlignBits:                        32,
	}
	for _, m := range members {
		switch v := m.(type) {
		case *frontend.MethodDecl:
			v.Parent = r
		case *frontend.RecordDecl:
			v.Parent = r
		}
	}
	return r
}

func method(name string, ret frontend.QualType, params ...frontend.ParamDecl) *frontend.MethodDecl {
	return &frontend.MethodDecl{Name: name, ReturnType: ret, Params: params}
}

func numeralEnum() *frontend.EnumDecl {
	e := &frontend.EnumDecl{Name: "Numeral", QualifiedName: "Numeral", Underlying: frontend.Builtin(frontend.BuiltinUInt)}
	e.Constants = []*frontend.EnumConstantDecl{
		{Name: "First", Value: 0, Enum: e},
		{Name: "Second", Value: 1, Enum: e},
	}
	return e
}

// stringConstruction mirrors how a compiler materializes `std::string s = "..."`.
func stringConstruction(text string) *frontend.Expr {
	strT := frontend.RecordType("std::__cxx11::basic_string")
	lit := frontend.Cast(frontend.StringLit(text), frontend.PointerTo(charT.WithConst()))
	construct := &frontend.Expr{Kind: frontend.ExprConstruct, Type: strT, Class: "std::__cxx11::basic_string", Sub: []*frontend.Expr{lit}}
	bind := &frontend.Expr{Kind: frontend.ExprBindTemporary, Type: strT, Sub: []*frontend.Expr{construct}}
	mat := &frontend.Expr{Kind: frontend.ExprMaterializeTemporary, Type: strT, Sub: []*frontend.Expr{bind}}
	return &frontend.Expr{Kind: frontend.ExprWithCleanups, Type: strT, Sub: []*frontend.Expr{mat}}
}

func argNamed(m model.Method, name string) model.Argument {
	for _, a := range m.Arguments {
		if a.Name == name {
			return a
		}
	}
	return model.Argument{}
}

func methodNamed(c model.Class, name string) (model.Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return model.Method{}, false
}
