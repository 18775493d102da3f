package jsonout

import (
	"io"

	"bindgen/internal/model"
)

// WriteDocument serializes doc followed by a newline.
func WriteDocument(w io.Writer, doc *model.Document) error {
	s := NewStream(w)
	writeDocument(s, doc)
	s.Newline()
	return s.Flush()
}

func writeDocument(s *Stream, doc *model.Document) {
	s.BeginObject()

	s.Key("enums").BeginObject()
	for name, e := range doc.Enums.All() {
		s.Key(name)
		writeEnum(s, e)
	}
	s.EndObject()

	s.Key("classes").BeginObject()
	for name, c := range doc.Classes.All() {
		s.Key(name)
		writeClass(s, c)
	}
	s.EndObject()

	s.Key("functions").BeginArray()
	for _, f := range doc.Functions {
		writeMethod(s, f)
	}
	s.EndArray()

	s.Key("macros").BeginArray()
	for _, m := range doc.Macros {
		writeMacro(s, m)
	}
	s.EndArray()

	s.EndObject()
}

func writeLiteral(s *Stream, l model.Literal) {
	switch l.Kind() {
	case model.LiteralBool:
		s.Bool(l.Bool())
	case model.LiteralInt:
		s.Int(l.Int())
	case model.LiteralUInt:
		s.Uint(l.UInt())
	case model.LiteralDouble:
		s.Float(l.Double())
	case model.LiteralString:
		s.String(l.StringVal())
	default:
		s.Null()
	}
}

// writeTypeFields writes the members shared by Type, Argument and Field.
func writeTypeFields(s *Stream, t model.Type) {
	s.Key("isConst").Bool(t.IsConst)
	s.Key("isMove").Bool(t.IsMove)
	s.Key("isReference").Bool(t.IsReference)
	s.Key("isBuiltin").Bool(t.IsBuiltin)
	s.Key("isVoid").Bool(t.IsVoid)
	s.Key("pointer").Int(int64(t.PointerDepth))
	s.Key("baseName").String(t.BaseName)
	s.Key("fullName").String(t.FullName)
	s.Key("template")
	if t.Template == nil {
		s.Null()
	} else {
		writeTemplate(s, t.Template)
	}
}

func writeType(s *Stream, t model.Type) {
	s.BeginObject()
	writeTypeFields(s, t)
	s.EndObject()
}

func writeTemplate(s *Stream, t *model.Template) {
	s.BeginObject()
	s.Key("baseName").String(t.BaseName)
	s.Key("fullName").String(t.FullName)
	s.Key("arguments").BeginArray()
	for _, arg := range t.Arguments {
		writeType(s, arg)
	}
	s.EndArray()
	s.EndObject()
}

func writeArgument(s *Stream, a model.Argument) {
	s.BeginObject()
	writeTypeFields(s, a.Type)
	s.Key("hasDefault").Bool(a.HasDefault)
	s.Key("isVariadic").Bool(a.IsVariadic)
	s.Key("name").String(a.Name)
	if a.HasDefault && a.Value.HasValue() {
		s.Key("value")
		writeLiteral(s, a.Value)
	}
	s.EndObject()
}

func writeMethod(s *Stream, m model.Method) {
	s.BeginObject()
	s.Key("type").String(m.Kind.String())
	s.Key("access").String(m.Access.String())
	s.Key("name").String(m.Name)
	s.Key("isConst").Bool(m.IsConst)
	s.Key("isVirtual").Bool(m.IsVirtual)
	s.Key("isPure").Bool(m.IsPure)
	s.Key("isExternC").Bool(m.IsExternC)
	s.Key("isBuiltin").Bool(m.IsBuiltin)
	s.Key("className").String(m.ClassName)
	s.Key("firstDefaultArgument")
	if m.FirstDefaultArgument == nil {
		s.Null()
	} else {
		s.Int(int64(*m.FirstDefaultArgument))
	}
	s.Key("arguments").BeginArray()
	for _, a := range m.Arguments {
		writeArgument(s, a)
	}
	s.EndArray()
	s.Key("returnType")
	writeType(s, m.ReturnType)
	s.EndObject()
}

func writeBase(s *Stream, b model.BaseClass) {
	s.BeginObject()
	s.Key("name").String(b.Name)
	s.Key("isVirtual").Bool(b.IsVirtual)
	s.Key("inheritedConstructor").Bool(b.InheritedConstructor)
	s.Key("access").String(b.Access.String())
	s.EndObject()
}

func writeField(s *Stream, f model.Field) {
	s.BeginObject()
	writeTypeFields(s, f.Type)
	s.Key("name").String(f.Name)
	s.Key("access").String(f.Access.String())
	s.Key("isStatic").Bool(f.IsStatic)
	s.Key("hasDefault").Bool(f.HasDefault)
	if f.HasDefault && f.Value.HasValue() {
		s.Key("value")
		writeLiteral(s, f.Value)
	}
	s.Key("bitField")
	if f.BitField == nil {
		s.Null()
	} else {
		s.Int(int64(*f.BitField))
	}
	s.EndObject()
}

func writeClass(s *Stream, c model.Class) {
	s.BeginObject()
	s.Key("name").String(c.Name)
	s.Key("byteSize").Int(int64(c.ByteSize))
	s.Key("typeKind").String(c.Kind.String())
	s.Key("isAbstract").Bool(c.IsAbstract)
	s.Key("isAnonymous").Bool(c.IsAnonymous)
	s.Key("isDestructible").Bool(c.IsDestructible)
	s.Key("hasDefaultConstructor").Bool(c.HasDefaultConstructor)
	s.Key("hasCopyConstructor").Bool(c.HasCopyConstructor)

	s.Key("bases").BeginArray()
	for _, b := range c.Bases {
		writeBase(s, b)
	}
	s.EndArray()

	s.Key("fields").BeginArray()
	for _, f := range c.Fields {
		writeField(s, f)
	}
	s.EndArray()

	s.Key("methods").BeginArray()
	for _, m := range c.Methods {
		writeMethod(s, m)
	}
	s.EndArray()
	s.EndObject()
}

func writeEnum(s *Stream, e model.Enum) {
	s.BeginObject()
	s.Key("name").String(e.Name)
	s.Key("type").String(e.Type)
	s.Key("isFlags").Bool(e.IsFlags)
	s.Key("isAnonymous").Bool(e.IsAnonymous)
	s.Key("values").BeginObject()
	for k, v := range e.Values.All() {
		s.Key(k).Int(v)
	}
	s.EndObject()
	s.EndObject()
}

func writeMacro(s *Stream, m model.Macro) {
	s.BeginObject()
	s.Key("name").String(m.Name)
	s.Key("isFunction").Bool(m.IsFunction)
	s.Key("isVarArg").Bool(m.IsVarArg)
	s.Key("arguments").BeginArray()
	for _, a := range m.Arguments {
		s.String(a)
	}
	s.EndArray()
	s.Key("value").String(m.Value)
	if m.HasEvaluation() {
		s.Key("type")
		writeType(s, *m.Type)
		s.Key("evaluated")
		writeLiteral(s, m.Evaluated)
	}
	s.EndObject()
}
