package normalize

import (
	"testing"

	"bindgen/internal/frontend"
	"bindgen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunction(t *testing.T) {
	n := newNormalizer()

	t.Run("global extern C variadic", func(t *testing.T) {
		f := &frontend.FunctionDecl{
			Name:          "mycalc_printf",
			QualifiedName: "mycalc_printf",
			IsExternC:     true,
			IsVariadic:    true,
			ReturnType:    intT,
			Params:        []frontend.ParamDecl{{Name: "fmt", Type: frontend.PointerTo(charT.WithConst())}},
		}
		m := n.Function(f)
		assert.Equal(t, model.MethodStatic, m.Kind)
		assert.Equal(t, model.AccessPublic, m.Access)
		assert.Equal(t, "::", m.ClassName)
		assert.True(t, m.IsExternC)
		require.Len(t, m.Arguments, 2)
		assert.Equal(t, "...", m.Arguments[1].Name)
		assert.True(t, m.Arguments[1].IsVariadic)
		assert.False(t, m.Arguments[1].HasDefault)
		assert.Nil(t, m.FirstDefaultArgument)
	})

	t.Run("namespaced with defaults", func(t *testing.T) {
		f := &frontend.FunctionDecl{
			Name:          "add",
			QualifiedName: "calc::ops::add",
			ReturnType:    intT,
			Params: []frontend.ParamDecl{
				{Name: "a", Type: intT},
				{Name: "b", Type: intT, Default: frontend.IntLit(1, intT)},
			},
		}
		m := n.Function(f)
		assert.Equal(t, "calc::ops", m.ClassName)
		assert.False(t, m.IsExternC)
		require.NotNil(t, m.FirstDefaultArgument)
		assert.Equal(t, 1, *m.FirstDefaultArgument)
		assert.True(t, model.IntLiteral(1).Equal(m.Arguments[1].Value))
	})
}

func TestOperatorRebinding(t *testing.T) {
	n := newNormalizer()
	freeOps := frontend.RecordType("FreeOps")

	t.Run("mutable self", func(t *testing.T) {
		f := &frontend.FunctionDecl{
			Name:          "operator+",
			QualifiedName: "operator+",
			Operator:      "+",
			ReturnType:    intT,
			Params: []frontend.ParamDecl{
				{Name: "self", Type: frontend.LValueRefTo(freeOps)},
				{Name: "x", Type: intT},
			},
		}
		m, ok := n.Operator(f)
		require.True(t, ok)
		assert.Equal(t, model.MethodOperator, m.Kind)
		assert.Equal(t, "FreeOps", m.ClassName)
		assert.False(t, m.IsConst)
		require.Len(t, m.Arguments, 1)
		assert.Equal(t, "x", m.Arguments[0].Name)
		assert.Equal(t, "operator+", m.Name)
	})

	t.Run("const self with defaults shifts the index", func(t *testing.T) {
		f := &frontend.FunctionDecl{
			Name:       "operator-",
			Operator:   "-",
			ReturnType: intT,
			Params: []frontend.ParamDecl{
				{Name: "self", Type: frontend.LValueRefTo(freeOps.WithConst())},
				{Name: "x", Type: intT, Default: frontend.IntLit(2, intT)},
			},
		}
		m, ok := n.Operator(f)
		require.True(t, ok)
		assert.True(t, m.IsConst)
		require.NotNil(t, m.FirstDefaultArgument)
		assert.Equal(t, 0, *m.FirstDefaultArgument)
	})

	t.Run("rejected shapes", func(t *testing.T) {
		cases := map[string]*frontend.FunctionDecl{
			"comma":        {Name: "operator,", Operator: ",", Params: []frontend.ParamDecl{{Type: frontend.LValueRefTo(freeOps)}, {Type: intT}}},
			"member deref": {Name: "operator->*", Operator: "->*", Params: []frontend.ParamDecl{{Type: frontend.LValueRefTo(freeOps)}, {Type: intT}}},
			"by value":     {Name: "operator*", Operator: "*", Params: []frontend.ParamDecl{{Type: freeOps}, {Type: intT}}},
			"not operator": {Name: "plus", Params: []frontend.ParamDecl{{Type: frontend.LValueRefTo(freeOps)}}},
			"no params":    {Name: "operator~", Operator: "~"},
		}
		for name, f := range cases {
			_, ok := n.Operator(f)
			assert.False(t, ok, name)
		}
	})
}

func TestParentName(t *testing.T) {
	assert.Equal(t, "::", parentName("f", "f"))
	assert.Equal(t, "ns", parentName("ns::f", "f"))
	assert.Equal(t, "a::b", parentName("a::b::f", "f"))
}
