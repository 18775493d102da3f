package extractor

import (
	"regexp"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"bindgen/internal/frontend"
)

var primitives = map[string]frontend.BuiltinKind{
	"void":       frontend.BuiltinVoid,
	"bool":       frontend.BuiltinBool,
	"char":       frontend.BuiltinChar,
	"wchar_t":    frontend.BuiltinWChar,
	"char8_t":    frontend.BuiltinChar8,
	"char16_t":   frontend.BuiltinChar16,
	"char32_t":   frontend.BuiltinChar32,
	"short":      frontend.BuiltinShort,
	"int":        frontend.BuiltinInt,
	"long":       frontend.BuiltinLong,
	"signed":     frontend.BuiltinInt,
	"unsigned":   frontend.BuiltinUInt,
	"float":      frontend.BuiltinFloat,
	"double":     frontend.BuiltinDouble,
	"__int128":   frontend.BuiltinInt128,
	"__float128": frontend.BuiltinFloat128,
}

// Standard typedefs the grammar treats as primitive types.
var standardTypedefs = map[string]frontend.BuiltinKind{
	"size_t":    frontend.BuiltinULong,
	"ssize_t":   frontend.BuiltinLong,
	"ptrdiff_t": frontend.BuiltinLong,
	"intptr_t":  frontend.BuiltinLong,
	"uintptr_t": frontend.BuiltinULong,
	"intmax_t":  frontend.BuiltinLong,
	"uintmax_t": frontend.BuiltinULong,
	"int8_t":    frontend.BuiltinSChar,
	"int16_t":   frontend.BuiltinShort,
	"int32_t":   frontend.BuiltinInt,
	"int64_t":   frontend.BuiltinLong,
	"uint8_t":   frontend.BuiltinUChar,
	"uint16_t":  frontend.BuiltinUShort,
	"uint32_t":  frontend.BuiltinUInt,
	"uint64_t":  frontend.BuiltinULong,
	"nullptr_t": frontend.BuiltinNullPtr,
}

func primitive(name string) (frontend.QualType, bool) {
	if k, ok := primitives[name]; ok {
		return frontend.Builtin(k), true
	}
	std := strings.TrimPrefix(strings.TrimPrefix(name, "::"), "std::")
	if k, ok := standardTypedefs[std]; ok {
		return frontend.TypedefType(strings.TrimPrefix(name, "::"), frontend.Builtin(k)), true
	}
	return frontend.QualType{}, false
}

// sized reads `unsigned long long`, `short int` and the like.
func (b *builder) sized(n *sitter.Node) frontend.QualType {
	var unsigned, signed, short bool
	longs := 0
	base := ""
	for _, word := range strings.Fields(b.text(n)) {
		switch word {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			longs++
		default:
			base = word
		}
	}

	var k frontend.BuiltinKind
	switch {
	case base == "char" && unsigned:
		k = frontend.BuiltinUChar
	case base == "char" && signed:
		k = frontend.BuiltinSChar
	case base == "char":
		k = frontend.BuiltinChar
	case base == "double" && longs > 0:
		k = frontend.BuiltinLongDouble
	case base == "double":
		k = frontend.BuiltinDouble
	case base == "__int128" && unsigned:
		k = frontend.BuiltinUInt128
	case base == "__int128":
		k = frontend.BuiltinInt128
	case short && unsigned:
		k = frontend.BuiltinUShort
	case short:
		k = frontend.BuiltinShort
	case longs >= 2 && unsigned:
		k = frontend.BuiltinULongLong
	case longs >= 2:
		k = frontend.BuiltinLongLong
	case longs == 1 && unsigned:
		k = frontend.BuiltinULong
	case longs == 1:
		k = frontend.BuiltinLong
	case unsigned:
		k = frontend.BuiltinUInt
	default:
		k = frontend.BuiltinInt
	}
	return frontend.Builtin(k)
}

// typeSpec resolves a type specifier. Class and enum specifiers with a body
// are defined on the way.
func (b *builder) typeSpec(n *sitter.Node, s *scope, tmpl *templateHeader) frontend.QualType {
	if n == nil {
		return frontend.QualType{}
	}
	switch n.Type() {
	case "primitive_type":
		if t, ok := primitive(b.text(n)); ok {
			return t
		}
	case "sized_type_specifier":
		return b.sized(n)
	case "type_identifier", "namespace_identifier":
		return b.namedType(b.text(n), s)
	case "qualified_identifier", "scoped_type_identifier":
		prefix, last := b.qualifiedParts(n)
		if last != nil && last.Type() == "template_type" {
			return b.templateType(last, prefix, s)
		}
		return b.namedType(b.text(n), s)
	case "template_type":
		return b.templateType(n, "", s)
	case "class_specifier", "struct_specifier", "union_specifier":
		return b.record(n, s, tmpl)
	case "enum_specifier":
		return b.enum(n, s)
	case "type_descriptor":
		return b.typeDescriptor(n, s)
	}
	return frontend.QualType{Kind: frontend.TypeUnknown, Name: strings.Join(strings.Fields(b.text(n)), " ")}
}

// qualifiedParts splits a qualified identifier into its scope spelling and
// the innermost name node.
func (b *builder) qualifiedParts(n *sitter.Node) (string, *sitter.Node) {
	var scopes []string
	for n != nil && (n.Type() == "qualified_identifier" || n.Type() == "scoped_type_identifier") {
		if sc := n.ChildByFieldName("scope"); sc != nil {
			scopes = append(scopes, b.text(sc))
		} else {
			scopes = append(scopes, "")
		}
		n = n.ChildByFieldName("name")
	}
	return strings.Join(scopes, "::"), n
}

func (b *builder) namedType(name string, s *scope) frontend.QualType {
	name = strings.Join(strings.Fields(name), "")
	if t, ok := primitive(name); ok {
		return t
	}
	if t, ok := s.lookupType(name); ok {
		return t
	}
	return frontend.RecordType(strings.TrimPrefix(name, "::"))
}

func (b *builder) templateType(n *sitter.Node, prefix string, s *scope) frontend.QualType {
	name := b.text(n.ChildByFieldName("name"))
	if prefix != "" {
		name = prefix + "::" + name
	}
	qualified := strings.TrimPrefix(strings.Join(strings.Fields(name), ""), "::")
	if base, ok := s.lookupType(name); ok && base.Name != "" {
		qualified = base.Name
	}

	t := frontend.QualType{Kind: frontend.TypeRecord, Name: qualified, Args: []frontend.TemplateArg{}}
	for _, a := range namedChildren(n.ChildByFieldName("arguments")) {
		t.Args = append(t.Args, b.templateArg(a, s))
	}
	if spec, ok := b.specs[t.Spelling()]; ok {
		t.Record = spec
	}
	return t
}

func (b *builder) templateArg(a *sitter.Node, s *scope) frontend.TemplateArg {
	switch a.Type() {
	case "type_descriptor":
		t := b.typeDescriptor(a, s)
		return frontend.TemplateArg{Kind: frontend.TemplateArgType, Type: &t}
	case "identifier", "qualified_identifier", "type_identifier":
		// The grammar cannot tell names of types from names of values.
		if _, isValue := s.lookupValue(b.text(a)); !isValue {
			t := b.namedType(b.text(a), s)
			return frontend.TemplateArg{Kind: frontend.TemplateArgType, Type: &t}
		}
	}
	return frontend.TemplateArg{Kind: frontend.TemplateArgValue, Text: strings.Join(strings.Fields(b.text(a)), " ")}
}

// typeDescriptor reads a type-id: specifiers, qualifiers and an abstract
// declarator.
func (b *builder) typeDescriptor(n *sitter.Node, s *scope) frontend.QualType {
	if n == nil {
		return frontend.QualType{}
	}
	if n.Type() != "type_descriptor" {
		return b.typeSpec(n, s, nil)
	}
	t := b.qualify(n, b.typeSpec(n.ChildByFieldName("type"), s, nil))
	if d := n.ChildByFieldName("declarator"); d != nil {
		t = b.declarator(d, t, s).typ
	}
	return t
}

// declInfo is what a declarator declares.
type declInfo struct {
	name string
	typ  frontend.QualType
	// fn is the function declarator when a function is declared.
	fn         *sitter.Node
	qualified  bool
	templated  bool
	destructor bool
	conversion *frontend.QualType
	hasType    bool
}

// declarator applies the declarator d to the base type t. Declarators nest
// outside in, so each layer wraps the type built so far.
func (b *builder) declarator(d *sitter.Node, t frontend.QualType, s *scope) declInfo {
	var info declInfo
	var ret frontend.QualType
	conversion := false
	fnPointer := false

loop:
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier":
			info.name = b.text(d)
			break loop
		case "qualified_identifier":
			info.name = strings.Join(strings.Fields(b.text(d)), "")
			info.qualified = true
			break loop
		case "destructor_name":
			info.name = strings.Join(strings.Fields(b.text(d)), "")
			info.destructor = true
			break loop
		case "operator_name":
			info.name = b.text(d)
			break loop
		case "template_function":
			info.name = b.text(d.ChildByFieldName("name"))
			info.templated = true
			break loop
		case "operator_cast":
			t = b.qualify(d, b.typeSpec(d.ChildByFieldName("type"), s, nil))
			conversion = true
			d = d.ChildByFieldName("declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			fnPointer = fnPointer || info.fn != nil
			t = frontend.PointerTo(t)
			if b.keyword(d, "const") {
				t = t.WithConst()
			}
			d = d.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			fnPointer = fnPointer || info.fn != nil
			if hasToken(d, "&&") {
				t = frontend.RValueRefTo(t)
			} else {
				t = frontend.LValueRefTo(t)
			}
			d = firstNamed(d)
		case "array_declarator", "abstract_array_declarator":
			elem := t
			t = frontend.QualType{Kind: frontend.TypeArray, Elem: &elem, Len: -1}
			if size := d.ChildByFieldName("size"); size != nil {
				if v, ok := b.constInt(size, s); ok {
					t.Len = int(v)
				}
			}
			d = d.ChildByFieldName("declarator")
		case "function_declarator", "abstract_function_declarator":
			if info.fn == nil {
				info.fn = d
				ret = t
				sig := t.Spelling() + " " + strings.Join(strings.Fields(b.text(d.ChildByFieldName("parameters"))), " ")
				t = frontend.QualType{Kind: frontend.TypeUnknown, Name: sig}
			}
			d = d.ChildByFieldName("declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			d = firstNamed(d)
		default:
			break loop
		}
	}

	switch {
	case fnPointer:
		info.typ = t
		info.fn = nil
	case info.fn != nil:
		info.typ = ret
		if conversion {
			c := ret
			info.conversion = &c
		}
	default:
		info.typ = t
	}
	return info
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func hasToken(n *sitter.Node, tok string) bool {
	for _, c := range children(n) {
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

var tagKinds = map[string]frontend.TagKind{
	"class_specifier":  frontend.TagClass,
	"struct_specifier": frontend.TagStruct,
	"union_specifier":  frontend.TagUnion,
}

var alignasRe = regexp.MustCompile(`alignas\s*\(\s*(\d+)\s*\)`)

// record defines or references a class, struct or union.
func (b *builder) record(n *sitter.Node, s *scope, tmpl *templateHeader) frontend.QualType {
	tag := tagKinds[n.Type()]
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	ds := s.decl()

	if body == nil {
		if nameNode == nil {
			return frontend.QualType{}
		}
		if nameNode.Type() == "template_type" {
			return b.templateType(nameNode, "", s)
		}
		name := b.text(nameNode)
		if t, ok := s.lookupType(name); ok {
			return t
		}
		rec := &frontend.RecordDecl{Name: name, QualifiedName: ds.qualify(name), Tag: tag, Parent: ds.record}
		ds.types[name] = rec.Type()
		return rec.Type()
	}

	target := ds
	var rec *frontend.RecordDecl
	name := ""
	if nameNode != nil {
		switch nameNode.Type() {
		case "template_type":
			t := b.templateType(nameNode, "", s)
			parts, _ := splitQualified(b.text(nameNode.ChildByFieldName("name")))
			name = parts[len(parts)-1]
			rec = &frontend.RecordDecl{Name: name, QualifiedName: t.Name, TemplateArgs: t.Args}
		case "qualified_identifier":
			parts, _ := splitQualified(b.text(nameNode))
			name = parts[len(parts)-1]
			if outer, ok := resolve(s, strings.Join(parts[:len(parts)-1], "::"), func(sc *scope, part string) (*scope, bool) {
				c := sc.member(part)
				return c, c != nil
			}); ok {
				target = outer
			}
		default:
			name = b.text(nameNode)
		}
	}

	if rec == nil && name != "" {
		if prev, ok := target.types[name]; ok && prev.Record != nil && !prev.Record.IsDefinition {
			rec = prev.Record
		}
	}
	if rec == nil {
		rec = &frontend.RecordDecl{Name: name, QualifiedName: target.qualify(name)}
		if name == "" {
			rec.QualifiedName = target.qualify("(anonymous " + strings.TrimSuffix(n.Type(), "_specifier") + ")")
		}
	}
	rec.Tag = tag
	rec.IsDefinition = true
	rec.Parent = target.record
	rec.IsTemplatePattern = tmpl != nil && !tmpl.explicit

	var rs *scope
	if name != "" && rec.TemplateArgs == nil {
		rs = target.child(name)
		target.types[name] = rec.Type()
	} else {
		rs = newScope(rec.QualifiedName, target)
	}
	if s.transparent {
		// Members see the template parameters.
		rs.parent = s
	}
	rs.record = rec
	rs.access = frontend.AccessPublic
	if tag == frontend.TagClass {
		rs.access = frontend.AccessPrivate
	}
	b.scopes[rec] = rs
	if rec.TemplateArgs != nil {
		b.specs[rec.Type().Spelling()] = rec
	}

	b.bases(n, s, rec, rs)
	b.declarations(body, rs)

	alignas := 0
	if m := alignasRe.FindStringSubmatch(string(b.src[n.StartByte():body.StartByte()])); m != nil {
		alignas, _ = strconv.Atoi(m[1])
	}
	b.complete(rec, alignas)

	switch {
	case rec.TemplateArgs != nil && tmpl != nil && tmpl.explicit && target.record == nil:
		b.unit.Decls = append(b.unit.Decls, &frontend.SpecializationDecl{Record: rec})
	case target.record != nil:
		target.record.Members = append(target.record.Members, rec)
	default:
		b.unit.Decls = append(b.unit.Decls, rec)
	}
	return rec.Type()
}

func (b *builder) bases(n *sitter.Node, s *scope, rec *frontend.RecordDecl, rs *scope) {
	var clause *sitter.Node
	for _, c := range children(n) {
		if c.Type() == "base_class_clause" {
			clause = c
		}
	}
	if clause == nil {
		return
	}

	initial := frontend.AccessPublic
	if rec.Tag == frontend.TagClass {
		initial = frontend.AccessPrivate
	}
	access, virtual := initial, false
	for _, c := range children(clause) {
		switch c.Type() {
		case ",":
			access, virtual = initial, false
		case "access_specifier", "public", "protected", "private":
			switch b.text(c) {
			case "public":
				access = frontend.AccessPublic
			case "protected":
				access = frontend.AccessProtected
			case "private":
				access = frontend.AccessPrivate
			}
		case "virtual":
			virtual = true
		case "type_identifier", "qualified_identifier", "template_type":
			t := b.typeSpec(c, s, nil)
			rec.Bases = append(rec.Bases, frontend.BaseSpec{
				Type:      t,
				Name:      t.Spelling(),
				IsVirtual: virtual,
				Access:    access,
			})
			if t.Record != nil {
				if bs, ok := b.scopes[t.Record]; ok {
					rs.bases = append(rs.bases, bs)
				}
			}
		}
	}
}

// enum defines or references an enumeration.
func (b *builder) enum(n *sitter.Node, s *scope) frontend.QualType {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if body == nil {
		if nameNode == nil {
			return frontend.QualType{}
		}
		return b.namedType(b.text(nameNode), s)
	}

	ds := s.decl()
	name := b.text(nameNode)
	e := &frontend.EnumDecl{
		Name:          name,
		QualifiedName: ds.qualify(name),
		IsScoped:      hasToken(n, "class") || hasToken(n, "struct"),
		Access:        ds.access,
	}
	if name == "" {
		e.QualifiedName = ds.qualify("(anonymous enum)")
	}
	if base := n.ChildByFieldName("base"); base != nil {
		e.Underlying = b.typeSpec(base, s, nil)
	}

	var es *scope
	if name != "" {
		ds.types[name] = e.Type()
		es = ds.child(name)
	}

	b.building = e
	next := int64(0)
	for _, c := range namedChildren(body) {
		if c.Type() != "enumerator" {
			continue
		}
		k := &frontend.EnumConstantDecl{Name: b.text(c.ChildByFieldName("name")), Enum: e}
		if v := c.ChildByFieldName("value"); v != nil {
			k.Init = b.expr(v, s)
			if val, ok := b.fold(k.Init); ok {
				next = val
			}
		}
		k.Value = next
		next++
		e.Constants = append(e.Constants, k)
		if es != nil {
			es.values[k.Name] = k
		}
		if !e.IsScoped {
			ds.values[k.Name] = k
		}
	}
	b.building = nil

	if e.Underlying.Kind == frontend.TypeUnknown {
		e.Underlying = underlyingFor(e.Constants)
	}
	if name != "" {
		ds.types[name] = e.Type()
	}
	if ds.record != nil {
		ds.record.Members = append(ds.record.Members, e)
	} else {
		b.unit.Decls = append(b.unit.Decls, e)
	}
	return e.Type()
}

// underlyingFor picks the first integer type that holds every value of an
// enum without a fixed underlying type.
func underlyingFor(constants []*frontend.EnumConstantDecl) frontend.QualType {
	var lo, hi int64
	for _, c := range constants {
		lo, hi = min(lo, c.Value), max(hi, c.Value)
	}
	switch {
	case lo >= -1<<31 && hi < 1<<31:
		return frontend.Builtin(frontend.BuiltinInt)
	case lo >= 0 && hi < 1<<32:
		return frontend.Builtin(frontend.BuiltinUInt)
	}
	return frontend.Builtin(frontend.BuiltinLong)
}
