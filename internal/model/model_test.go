package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap(t *testing.T) {
	t.Run("keeps first insertion order", func(t *testing.T) {
		var m OrderedMap[string, int]
		m.Set("zeta", 1)
		m.Set("alpha", 2)
		m.Set("mid", 3)
		m.Set("zeta", 4)

		assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
		v, ok := m.Get("zeta")
		require.True(t, ok)
		assert.Equal(t, 4, v)
		assert.Equal(t, 3, m.Len())
	})

	t.Run("ref mutates in place", func(t *testing.T) {
		var m OrderedMap[string, Class]
		m.Set("A", NewClass("A"))
		ref := m.Ref("A")
		require.NotNil(t, ref)
		ref.ByteSize = 8

		got, _ := m.Get("A")
		assert.Equal(t, 8, got.ByteSize)
		assert.Nil(t, m.Ref("missing"))
	})

	t.Run("all stops early", func(t *testing.T) {
		var m OrderedMap[int, int]
		for i := range 5 {
			m.Set(i, i*i)
		}
		var seen []int
		for k := range m.All() {
			if k == 2 {
				break
			}
			seen = append(seen, k)
		}
		assert.Equal(t, []int{0, 1}, seen)
	})
}

func TestLiteralEqual(t *testing.T) {
	assert.True(t, Literal{}.Equal(Literal{}))
	assert.False(t, Literal{}.HasValue())
	assert.True(t, IntLiteral(-1).Equal(IntLiteral(-1)))
	assert.False(t, IntLiteral(1).Equal(UIntLiteral(1)), "tag takes part in equality")
	assert.True(t, DoubleLiteral(math.NaN()).Equal(DoubleLiteral(math.NaN())))
	assert.False(t, StringLiteral("a").Equal(StringLiteral("b")))
	assert.Equal(t, "uint", UIntLiteral(0).Kind().String())
}

func TestTypeCloneIsDeep(t *testing.T) {
	orig := Type{
		BaseName: "std::vector",
		Template: &Template{
			BaseName:  "std::vector",
			FullName:  "std::vector<T, Alloc>",
			Arguments: []Type{{BaseName: "int", IsBuiltin: true}},
		},
	}
	cp := orig.Clone()
	cp.Template.Arguments[0].BaseName = "float"

	assert.Equal(t, "int", orig.Template.Arguments[0].BaseName)
	assert.NotSame(t, orig.Template, cp.Template)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "CppUnion", KindUnion.String())
	assert.Equal(t, "MemberMethod", MethodMember.String())
	assert.Equal(t, "ConversionOperator", MethodConversionOperator.String())
	assert.Equal(t, "Private", AccessPrivate.String())
	assert.True(t, NewClass("X").IsDestructible)
}
