package normalize

import (
	"testing"

	"bindgen/internal/frontend"
	"bindgen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagEnum() *frontend.EnumDecl {
	e := &frontend.EnumDecl{Name: "FlagEnum", QualifiedName: "FlagEnum", Underlying: frontend.Builtin(frontend.BuiltinUInt)}
	for _, c := range []struct {
		name  string
		value int64
	}{{"None", 0}, {"P", 1}, {"Q", 4}, {"R", 12}} {
		e.Constants = append(e.Constants, &frontend.EnumConstantDecl{Name: c.name, Value: c.value, Enum: e})
	}
	return e
}

func flagsOf(arg frontend.TemplateArg) frontend.QualType {
	return frontend.QualType{Kind: frontend.TypeRecord, Name: "QFlags", Args: []frontend.TemplateArg{arg}}
}

func TestEnumDirect(t *testing.T) {
	top := &frontend.EnumDecl{Name: "TopLevel", QualifiedName: "TopLevel", Underlying: intT}
	top.Constants = []*frontend.EnumConstantDecl{{Name: "A", Value: 0}, {Name: "B", Value: 0}, {Name: "C", Value: -1}}

	doc := model.NewDocument()
	require.True(t, newNormalizer().Enum(doc, "TopLevel", top))

	e, ok := doc.Enums.Get("TopLevel")
	require.True(t, ok)
	assert.Equal(t, "int", e.Type)
	assert.False(t, e.IsFlags)
	assert.Equal(t, []string{"A", "B", "C"}, e.Values.Keys())
	c, _ := e.Values.Get("C")
	assert.Equal(t, int64(-1), c)
}

func TestEnumUnderlyingSpelling(t *testing.T) {
	u8 := frontend.TypedefType("uint8_t", frontend.Builtin(frontend.BuiltinUChar))
	e := &frontend.EnumDecl{Name: "U8Enum", QualifiedName: "U8Enum", Underlying: u8}
	e.Constants = []*frontend.EnumConstantDecl{{Name: "D", Value: 0}, {Name: "E", Value: 255}}

	doc := model.NewDocument()
	newNormalizer().Enum(doc, "U8Enum", e)
	got, _ := doc.Enums.Get("U8Enum")
	assert.Equal(t, "uint8_t", got.Type)
}

func TestEnumAliases(t *testing.T) {
	fe := flagEnum()
	feType := fe.Type()

	t.Run("flags wrapper", func(t *testing.T) {
		alias := &frontend.TypedefDecl{Name: "Flags", QualifiedName: "Flags", Target: flagsOf(frontend.TemplateArg{Kind: frontend.TemplateArgType, Type: &feType})}
		doc := model.NewDocument()
		require.True(t, newNormalizer().Enum(doc, "Flags", alias))

		e, _ := doc.Enums.Get("Flags")
		assert.Equal(t, "Flags", e.Name)
		assert.True(t, e.IsFlags)
		assert.Equal(t, []string{"None", "P", "Q", "R"}, e.Values.Keys())
		r, _ := e.Values.Get("R")
		assert.Equal(t, int64(12), r)
	})

	t.Run("plain alias", func(t *testing.T) {
		alias := &frontend.TypedefDecl{Name: "Other", QualifiedName: "Other", Target: feType}
		doc := model.NewDocument()
		require.True(t, newNormalizer().Enum(doc, "Other", alias))
		e, _ := doc.Enums.Get("Other")
		assert.False(t, e.IsFlags)
		assert.Equal(t, 4, e.Values.Len())
	})

	t.Run("malformed aliases yield nothing", func(t *testing.T) {
		two := frontend.QualType{Kind: frontend.TypeRecord, Name: "QFlags", Args: []frontend.TemplateArg{
			{Kind: frontend.TemplateArgType, Type: &feType}, {Kind: frontend.TemplateArgType, Type: &feType},
		}}
		cases := map[string]frontend.QualType{
			"not an enum argument": flagsOf(frontend.TemplateArg{Kind: frontend.TemplateArgType, Type: &intT}),
			"non-type argument":    flagsOf(frontend.TemplateArg{Kind: frontend.TemplateArgValue, Text: "3"}),
			"two arguments":        two,
			"other template":       {Kind: frontend.TypeRecord, Name: "std::vector", Args: []frontend.TemplateArg{{Kind: frontend.TemplateArgType, Type: &feType}}},
			"builtin":              intT,
		}
		for name, target := range cases {
			doc := model.NewDocument()
			ok := newNormalizer().Enum(doc, "Alias", &frontend.TypedefDecl{Name: "Alias", QualifiedName: "Alias", Target: target})
			assert.False(t, ok, name)
			assert.Equal(t, 0, doc.Enums.Len(), name)
		}
	})
}
