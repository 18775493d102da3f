package jsonout

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"bindgen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinType(name string) model.Type {
	return model.Type{IsBuiltin: true, IsVoid: name == "void", BaseName: name, FullName: name}
}

func typeJSON(name string, isVoid bool) string {
	return `{"isConst": false, "isMove": false, "isReference": false, "isBuiltin": true, "isVoid": ` +
		map[bool]string{true: "true", false: "false"}[isVoid] +
		`, "pointer": 0, "baseName": "` + name + `", "fullName": "` + name + `", "template": null}`
}

func sampleDocument() *model.Document {
	doc := model.NewDocument()

	e := model.Enum{Name: "Zeta", Type: "int"}
	e.Values.Set("B", 1)
	e.Values.Set("A", -1)
	doc.Enums.Set("Zeta", e)

	doc.Functions = append(doc.Functions, model.Method{
		Kind:       model.MethodStatic,
		Name:       "f",
		IsExternC:  true,
		ClassName:  "::",
		ReturnType: builtinType("void"),
	})

	intType := builtinType("int")
	doc.Macros = append(doc.Macros,
		model.Macro{Name: "X", Value: "1", Type: &intType, Evaluated: model.IntLiteral(1)},
		model.Macro{Name: "F", IsFunction: true, Arguments: []string{"a"}, Value: "a + 1"},
	)
	return doc
}

func TestWriteDocumentExact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, sampleDocument()))

	want := `{"enums": {"Zeta": {"name": "Zeta", "type": "int", "isFlags": false, "isAnonymous": false, "values": {"B": 1, "A": -1}}}, ` +
		`"classes": {}, ` +
		`"functions": [{"type": "StaticMethod", "access": "Public", "name": "f", "isConst": false, "isVirtual": false, "isPure": false, ` +
		`"isExternC": true, "isBuiltin": false, "className": "::", "firstDefaultArgument": null, "arguments": [], "returnType": ` + typeJSON("void", true) + `}], ` +
		`"macros": [{"name": "X", "isFunction": false, "isVarArg": false, "arguments": [], "value": "1", "type": ` + typeJSON("int", false) + `, "evaluated": 1}, ` +
		`{"name": "F", "isFunction": true, "isVarArg": false, "arguments": ["a"], "value": "a + 1"}]}` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteDocumentDeterministic(t *testing.T) {
	doc := sampleDocument()
	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		doc.Classes.Set(name, model.NewClass(name))
	}

	var first, second bytes.Buffer
	require.NoError(t, WriteDocument(&first, doc))
	require.NoError(t, WriteDocument(&second, doc))
	assert.Equal(t, first.String(), second.String())

	out := first.String()
	zulu := strings.Index(out, `"Zulu": {`)
	alpha := strings.Index(out, `"Alpha": {`)
	mike := strings.Index(out, `"Mike": {`)
	assert.True(t, zulu < alpha && alpha < mike, "classes follow insertion order")
}

func TestArgumentAndFieldValues(t *testing.T) {
	t.Run("value omitted without default", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewStream(&buf)
		writeArgument(s, model.Argument{Type: builtinType("int"), Name: "x", Value: model.IntLiteral(3)})
		require.NoError(t, s.Flush())
		assert.NotContains(t, buf.String(), `"value"`)
	})

	t.Run("value omitted when evaluation failed", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewStream(&buf)
		writeArgument(s, model.Argument{Type: builtinType("int"), Name: "x", HasDefault: true})
		require.NoError(t, s.Flush())
		assert.True(t, strings.HasSuffix(buf.String(), `"hasDefault": true, "isVariadic": false, "name": "x"}`))
	})

	t.Run("field bit width", func(t *testing.T) {
		width := 3
		var buf bytes.Buffer
		s := NewStream(&buf)
		writeField(s, model.Field{Type: builtinType("unsigned int"), Name: "flags", BitField: &width, HasDefault: true, Value: model.UIntLiteral(5)})
		require.NoError(t, s.Flush())
		assert.True(t, strings.HasSuffix(buf.String(), `"name": "flags", "access": "Public", "isStatic": false, "hasDefault": true, "value": 5, "bitField": 3}`))
	})
}

func TestStreamScalars(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)
	s.BeginArray()
	s.String("a\"b\\c\nd\te\x01")
	s.Uint(math.MaxUint64)
	s.Float(0.5)
	s.Float(math.Inf(1))
	s.Bool(true)
	s.EndArray()
	require.NoError(t, s.Flush())

	assert.Equal(t, `["a\"b\\c\nd\te\u0001", 18446744073709551615, 0.5, null, true]`, buf.String())
}

func TestValidate(t *testing.T) {
	var buf bytes.Buffer
	doc := sampleDocument()
	c := model.NewClass("Point")
	c.Kind = model.KindStruct
	c.Fields = append(c.Fields, model.Field{Type: builtinType("int"), Name: "x"})
	doc.Classes.Set("Point", c)
	require.NoError(t, WriteDocument(&buf, doc))
	assert.NoError(t, Validate(buf.Bytes()))

	err := Validate([]byte(`{"enums": {}, "classes": {}, "functions": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")

	err = Validate([]byte(`{"enums": {}, "classes": {}, "functions": [], "macros": [{"name": "M", "isFunction": false, "isVarArg": false, "arguments": [], "value": "1", "evaluated": 1}]}`))
	assert.Error(t, err, "evaluated requires type")
}
