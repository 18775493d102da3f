package normalize

import (
	"bytes"
	"testing"

	"bindgen/internal/frontend"
	"bindgen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dtor(access frontend.Access) *frontend.MethodDecl {
	return &frontend.MethodDecl{Name: "~X", Kind: frontend.MethodDtor, Access: access, ReturnType: voidT}
}

func deletedDtor(access frontend.Access) *frontend.MethodDecl {
	d := dtor(access)
	d.IsDeleted = true
	return d
}

func TestDestructorVisibility(t *testing.T) {
	tests := []struct {
		name         string
		members      []frontend.Decl
		destructible bool
	}{
		{"none declared", nil, true},
		{"public", []frontend.Decl{dtor(frontend.AccessPublic)}, true},
		{"protected", []frontend.Decl{dtor(frontend.AccessProtected)}, true},
		{"private", []frontend.Decl{dtor(frontend.AccessPrivate)}, false},
		{"public deleted", []frontend.Decl{deletedDtor(frontend.AccessPublic)}, true},
		{"private deleted", []frontend.Decl{deletedDtor(frontend.AccessPrivate)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := model.NewDocument()
			newNormalizer().Record(doc, "X", record("X", frontend.TagClass, tt.members...))

			c, ok := doc.Classes.Get("X")
			require.True(t, ok)
			assert.Equal(t, tt.destructible, c.IsDestructible)
			assert.Empty(t, c.Methods, "destructors never become methods")
		})
	}
}

func TestDefaultArguments(t *testing.T) {
	numeral := numeralEnum()
	second := numeral.Constants[1]
	defaultsPtr := frontend.PointerTo(frontend.RecordType("Defaults"))
	strT := frontend.TypedefType("std::string", frontend.RecordType("std::__cxx11::basic_string"))

	defaults := record("Defaults", frontend.TagClass,
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "public"},
		method("defaultEnum", intT, frontend.ParamDecl{Name: "n", Type: numeral.Type(), Default: frontend.RefTo(second, numeral.Type())}),
		method("defaultInt32", intT, frontend.ParamDecl{Name: "n", Type: intT, Default: frontend.IntLit(123, intT)}),
		method("defaultTrue", voidT, frontend.ParamDecl{Name: "n", Type: boolT, Default: frontend.BoolLit(true)}),
		method("defaultString", intT, frontend.ParamDecl{Name: "str", Type: strT, Default: stringConstruction("Okay")}),
		method("nilable", defaultsPtr, frontend.ParamDecl{Name: "defaults", Type: defaultsPtr, Default: frontend.Cast(frontend.NullPtrLit(), defaultsPtr)}),
		method("sideEffect", intT,
			frontend.ParamDecl{Name: "a", Type: intT},
			frontend.ParamDecl{Name: "b", Type: intT, Default: &frontend.Expr{Kind: frontend.ExprCall, Type: intT, Text: "compute"}},
		),
	)

	doc := model.NewDocument()
	newNormalizer().Record(doc, "Defaults", defaults)
	c, _ := doc.Classes.Get("Defaults")

	t.Run("enumerator", func(t *testing.T) {
		m, ok := methodNamed(c, "defaultEnum")
		require.True(t, ok)
		arg := argNamed(m, "n")
		assert.True(t, arg.HasDefault)
		assert.True(t, model.UIntLiteral(1).Equal(arg.Value))
		require.NotNil(t, m.FirstDefaultArgument)
		assert.Equal(t, 0, *m.FirstDefaultArgument)
		assert.Equal(t, "Numeral", arg.BaseName)
	})

	t.Run("integer and bool", func(t *testing.T) {
		m, _ := methodNamed(c, "defaultInt32")
		assert.True(t, model.IntLiteral(123).Equal(argNamed(m, "n").Value))
		m, _ = methodNamed(c, "defaultTrue")
		assert.True(t, model.BoolLiteral(true).Equal(argNamed(m, "n").Value))
	})

	t.Run("string", func(t *testing.T) {
		m, _ := methodNamed(c, "defaultString")
		arg := argNamed(m, "str")
		assert.True(t, arg.HasDefault)
		assert.True(t, model.StringLiteral("Okay").Equal(arg.Value))
	})

	t.Run("null pointer", func(t *testing.T) {
		m, _ := methodNamed(c, "nilable")
		assert.True(t, model.BoolLiteral(true).Equal(argNamed(m, "defaults").Value))
		assert.Equal(t, 1, m.ReturnType.PointerDepth)
	})

	t.Run("side effect", func(t *testing.T) {
		m, _ := methodNamed(c, "sideEffect")
		arg := argNamed(m, "b")
		assert.True(t, arg.HasDefault)
		assert.False(t, arg.Value.HasValue())
		require.NotNil(t, m.FirstDefaultArgument)
		assert.Equal(t, 1, *m.FirstDefaultArgument)
		assert.False(t, argNamed(m, "a").HasDefault)
	})
}

func TestMethodClassification(t *testing.T) {
	selfRef := frontend.LValueRefTo(frontend.RecordType("Ops").WithConst())
	selfRval := frontend.RValueRefTo(frontend.RecordType("Ops"))

	ops := record("Ops", frontend.TagClass,
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "public"},
		&frontend.MethodDecl{Name: "Ops", Kind: frontend.MethodCtor, ReturnType: voidT},
		&frontend.MethodDecl{Name: "Ops", Kind: frontend.MethodCtor, IsCopyConstructor: true, ReturnType: voidT, Params: []frontend.ParamDecl{{Name: "other", Type: selfRef}}},
		&frontend.MethodDecl{Name: "Ops", Kind: frontend.MethodCtor, IsMoveConstructor: true, ReturnType: voidT, Params: []frontend.ParamDecl{{Name: "other", Type: selfRval}}},
		&frontend.MethodDecl{Name: "gone", IsDeleted: true, ReturnType: voidT},
		&frontend.MethodDecl{Name: "make", IsStatic: true, ReturnType: frontend.RecordType("Ops")},
		&frontend.MethodDecl{Name: "operator+", Operator: "+", IsConst: true, ReturnType: intT, Params: []frontend.ParamDecl{{Name: "x", Type: intT}}},
		&frontend.MethodDecl{Name: "operator int", Kind: frontend.MethodConversion, IsConst: true, ReturnType: intT},
		&frontend.MethodDecl{Name: "run", IsVirtual: true, IsPure: true, ReturnType: voidT},
		&frontend.AccessSpecDecl{Access: frontend.AccessProtected, Spelling: "protected"},
		&frontend.MethodDecl{Name: "hidden", Access: frontend.AccessProtected, ReturnType: voidT},
	)
	ops.IsAbstract = true

	doc := model.NewDocument()
	newNormalizer().Record(doc, "Ops", ops)
	c, _ := doc.Classes.Get("Ops")

	kinds := make([]model.MethodKind, 0, len(c.Methods))
	for _, m := range c.Methods {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []model.MethodKind{
		model.MethodConstructor,
		model.MethodCopyConstructor,
		model.MethodStatic,
		model.MethodOperator,
		model.MethodConversionOperator,
		model.MethodMember,
		model.MethodMember,
	}, kinds)

	run, _ := methodNamed(c, "run")
	assert.True(t, run.IsPure)
	assert.True(t, run.IsVirtual)
	assert.Equal(t, "Ops", run.ClassName)

	hidden, _ := methodNamed(c, "hidden")
	assert.Equal(t, model.AccessProtected, hidden.Access)

	plus, _ := methodNamed(c, "operator+")
	assert.True(t, plus.IsConst)
	assert.Nil(t, plus.FirstDefaultArgument)
	assert.True(t, c.IsAbstract)
}

func TestSignalSections(t *testing.T) {
	widget := record("Widget", frontend.TagClass,
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "public"},
		method("show", voidT),
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "signals"},
		method("clicked", voidT, frontend.ParamDecl{Name: "checked", Type: boolT}),
		&frontend.MethodDecl{Name: "counter", IsStatic: true, ReturnType: intT},
		&frontend.MethodDecl{Name: "generated", IsImplicit: true, ReturnType: voidT},
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "Q_SIGNALS"},
		method("toggled", voidT),
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: "public"},
		method("hide", voidT),
		&frontend.AccessSpecDecl{Access: frontend.AccessPublic, Spelling: ""},
		method("ambiguous", voidT),
	)

	doc := model.NewDocument()
	newNormalizer().Record(doc, "Widget", widget)
	c, _ := doc.Classes.Get("Widget")

	want := map[string]model.MethodKind{
		"show":      model.MethodMember,
		"clicked":   model.MethodSignal,
		"counter":   model.MethodStatic,
		"generated": model.MethodMember,
		"toggled":   model.MethodSignal,
		"hide":      model.MethodMember,
		"ambiguous": model.MethodMember,
	}
	for name, kind := range want {
		m, ok := methodNamed(c, name)
		require.True(t, ok, name)
		assert.Equal(t, kind, m.Kind, name)
	}
}

func TestRecordLayoutAndTypeInfo(t *testing.T) {
	aligned := record("Aligned", frontend.TagStruct)
	aligned.SizeBits = 64
	aligned.AlignBits = 128
	aligned.AlignRequired = true

	private := record("PrivateConstructor", frontend.TagClass)

	falsy := false
	opts := DefaultOptions()
	opts.TypeInfo = map[string]TypeInfo{"PrivateConstructor": {IsDefaultConstructible: &falsy}}
	n := New(nil, opts, nil)

	doc := model.NewDocument()
	n.Record(doc, "Aligned", aligned)
	n.Record(doc, "PrivateConstructor", private)

	a, _ := doc.Classes.Get("Aligned")
	assert.Equal(t, 24, a.ByteSize)
	assert.Equal(t, model.KindStruct, a.Kind)
	assert.True(t, a.HasDefaultConstructor)

	p, _ := doc.Classes.Get("PrivateConstructor")
	assert.Equal(t, 4, p.ByteSize)
	assert.False(t, p.HasDefaultConstructor)
	assert.True(t, p.HasCopyConstructor)
}

func TestFields(t *testing.T) {
	width := 3
	strT := frontend.TypedefType("std::string", frontend.RecordType("std::__cxx11::basic_string"))
	s := record("Settings", frontend.TagStruct,
		&frontend.FieldDecl{Name: "count", Type: intT, Init: frontend.Binary("*", frontend.IntLit(4, intT), frontend.IntLit(2, intT), intT)},
		&frontend.FieldDecl{Name: "label", Type: strT, Init: stringConstruction("x")},
		&frontend.FieldDecl{Name: "flags", Type: frontend.Builtin(frontend.BuiltinUInt), BitWidth: &width},
		&frontend.FieldDecl{Name: "secret", Type: floatT, Access: frontend.AccessPrivate},
		&frontend.VarDecl{Name: "instances", Type: intT.WithConst(), IsStaticMember: true, Init: frontend.IntLit(7, intT)},
		&frontend.VarDecl{Name: "notAMember", Type: intT},
	)

	doc := model.NewDocument()
	newNormalizer().Record(doc, "Settings", s)
	c, _ := doc.Classes.Get("Settings")
	require.Len(t, c.Fields, 5)

	count := c.Fields[0]
	assert.True(t, count.HasDefault)
	assert.True(t, model.IntLiteral(8).Equal(count.Value))

	label := c.Fields[1]
	assert.True(t, label.HasDefault)
	assert.False(t, label.Value.HasValue(), "string initializers stay unfolded")
	assert.Equal(t, "std::string", label.BaseName)

	flags := c.Fields[2]
	require.NotNil(t, flags.BitField)
	assert.Equal(t, 3, *flags.BitField)
	assert.False(t, flags.HasDefault)

	assert.Equal(t, model.AccessPrivate, c.Fields[3].Access)

	instances := c.Fields[4]
	assert.True(t, instances.IsStatic)
	assert.True(t, instances.IsConst)
	assert.True(t, model.IntLiteral(7).Equal(instances.Value))
}

func anonymousFixture() *frontend.RecordDecl {
	x0 := &frontend.FieldDecl{Name: "x0", Type: intT}
	innerAnon := record("", frontend.TagStruct, x0)
	x1 := &frontend.FieldDecl{Name: "x1", Type: intT}
	innerNamed := record("", frontend.TagStruct, x1)
	outerAnon := record("", frontend.TagStruct,
		innerAnon,
		&frontend.FieldDecl{Type: innerAnon.Type()},
		innerNamed,
		&frontend.FieldDecl{Name: "p0", Type: innerNamed.Type()},
	)

	u := record("", frontend.TagUnion,
		&frontend.FieldDecl{Name: "c", Type: floatT},
		&frontend.FieldDecl{Name: "d", Type: boolT},
	)
	anonEnum := &frontend.EnumDecl{Underlying: intT}
	anonEnum.Constants = []*frontend.EnumConstantDecl{{Name: "X", Value: 10, Enum: anonEnum}, {Name: "Y", Value: 20, Enum: anonEnum}}

	return record("Anonymous", frontend.TagStruct,
		outerAnon,
		&frontend.FieldDecl{Type: outerAnon.Type()},
		u,
		&frontend.FieldDecl{Name: "u", Type: frontend.PointerTo(u.Type())},
		anonEnum,
		&frontend.FieldDecl{Name: "mode", Type: anonEnum.Type()},
	)
}

func TestAnonymousNesting(t *testing.T) {
	run := func() *model.Document {
		doc := model.NewDocument()
		newNormalizer().Record(doc, "Anonymous", anonymousFixture())
		return doc
	}

	doc := run()
	assert.Equal(t, []string{
		"Anonymous",
		"Anonymous::Unnamed0",
		"Anonymous::Unnamed0::Unnamed0",
		"Anonymous::Unnamed0::Unnamed1",
		"Anonymous::Unnamed1",
	}, doc.Classes.Keys())
	assert.Equal(t, []string{"Anonymous::Unnamed2"}, doc.Enums.Keys())

	root, _ := doc.Classes.Get("Anonymous")
	assert.False(t, root.IsAnonymous)
	require.Len(t, root.Fields, 3)
	assert.Equal(t, "Anonymous::Unnamed0", root.Fields[0].BaseName)
	assert.Equal(t, "", root.Fields[0].Name)
	assert.Equal(t, "Anonymous::Unnamed1 *", root.Fields[1].FullName)
	assert.Equal(t, "Anonymous::Unnamed2", root.Fields[2].BaseName)

	inner, _ := doc.Classes.Get("Anonymous::Unnamed0")
	assert.True(t, inner.IsAnonymous)
	assert.Equal(t, "Anonymous::Unnamed0::Unnamed1", inner.Fields[1].BaseName)

	union, _ := doc.Classes.Get("Anonymous::Unnamed1")
	assert.Equal(t, model.KindUnion, union.Kind)

	e, _ := doc.Enums.Get("Anonymous::Unnamed2")
	assert.True(t, e.IsAnonymous)
	assert.Equal(t, []string{"X", "Y"}, e.Values.Keys())

	t.Run("stable across runs", func(t *testing.T) {
		var a, b bytes.Buffer
		for _, k := range run().Classes.Keys() {
			a.WriteString(k + "\n")
		}
		for _, k := range run().Classes.Keys() {
			b.WriteString(k + "\n")
		}
		assert.Equal(t, a.String(), b.String())
	})
}
