package extractor

import (
	"io"
	"log"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"bindgen/internal/frontend"
)

// builder turns tree-sitter C++ syntax into frontend declarations. One
// builder serves every file of a unit; scopes persist across files.
type builder struct {
	logger *log.Logger
	unit   *frontend.TranslationUnit
	global *scope
	scopes map[*frontend.RecordDecl]*scope
	facts  map[*frontend.RecordDecl]*recordFacts
	// specs holds explicit specializations by their spelling.
	specs map[string]*frontend.RecordDecl
	// building is the enum whose body is being read.
	building *frontend.EnumDecl

	file string
	raw  string
	src  []byte
	pp   *ppResult
}

func newBuilder(logger *log.Logger) *builder {
	return &builder{
		logger: logger,
		unit:   &frontend.TranslationUnit{},
		global: newScope("", nil),
		scopes: make(map[*frontend.RecordDecl]*scope),
		facts:  make(map[*frontend.RecordDecl]*recordFacts),
		specs:  make(map[string]*frontend.RecordDecl),
	}
}

// overlay returns a builder for a synthetic unit: lookups fall through to
// the declarations of b, new declarations stay in the overlay.
func (b *builder) overlay() *builder {
	o := newBuilder(log.New(io.Discard, "", 0))
	o.global = newScope("", b.global)
	o.scopes, o.facts, o.specs = b.scopes, b.facts, b.specs
	return o
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// fieldChildren returns every child of n stored under field, in order.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// keyword reports whether n has a direct child spelled word, either as an
// anonymous token or as a specifier node.
func (b *builder) keyword(n *sitter.Node, word string) bool {
	for _, c := range children(n) {
		switch c.Type() {
		case word:
			return true
		case "storage_class_specifier", "type_qualifier", "virtual_function_specifier",
			"virtual_specifier", "function_specifier", "explicit_function_specifier":
			if b.text(c) == word {
				return true
			}
		}
	}
	return false
}

// declarations reads the items of a translation unit or declaration list.
func (b *builder) declarations(n *sitter.Node, s *scope) {
	for _, c := range namedChildren(n) {
		b.item(c, s, nil)
	}
}

// templateHeader describes the template header of the item being read.
type templateHeader struct {
	params *scope
	// explicit marks `template<>`.
	explicit bool
}

func (b *builder) item(n *sitter.Node, s *scope, tmpl *templateHeader) {
	switch n.Type() {
	case "namespace_definition":
		b.namespace(n, s)
	case "linkage_specification":
		b.linkage(n, s)
	case "template_declaration":
		b.templateDecl(n, s)
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		b.typeSpec(n, s, tmpl)
	case "declaration", "field_declaration":
		b.declaration(n, s, tmpl)
	case "function_definition", "operator_cast_definition", "operator_cast_declaration",
		"constructor_or_destructor_definition", "constructor_or_destructor_declaration", "inline_method_definition":
		b.declaration(n, s, tmpl)
	case "type_definition":
		b.typedef(n, s)
	case "alias_declaration":
		b.alias(n, s)
	case "friend_declaration":
		b.friend(n, s)
	case "access_specifier":
		b.accessLabel(n, s)
	case "using_declaration":
		b.using(n, s)
	}
}

func (b *builder) namespace(n *sitter.Node, s *scope) {
	ns := s.decl()
	if name := n.ChildByFieldName("name"); name != nil {
		for _, part := range strings.Split(b.text(name), "::") {
			if part = strings.TrimSpace(part); part != "" && part != "inline" {
				ns = ns.child(part)
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.declarations(body, ns)
	}
}

func (b *builder) linkage(n *sitter.Node, s *scope) {
	ls := newScope(s.decl().prefix, s)
	ls.transparent = true
	ls.externC = strings.Trim(b.text(n.ChildByFieldName("value")), `"`) == "C"

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "declaration_list" {
		b.declarations(body, ls)
		return
	}
	b.item(body, ls, nil)
}

func (b *builder) templateDecl(n *sitter.Node, s *scope) {
	tmpl := &templateHeader{params: s.transparentChild()}
	if params := n.ChildByFieldName("parameters"); params != nil {
		names := 0
		for _, p := range namedChildren(params) {
			names++
			if name := templateParamName(b, p); name != "" {
				tmpl.params.types[name] = frontend.QualType{Kind: frontend.TypeUnknown, Name: name}
			}
		}
		tmpl.explicit = names == 0
	}

	for i, c := range children(n) {
		if n.FieldNameForChild(i) == "parameters" || !c.IsNamed() {
			continue
		}
		switch c.Type() {
		case "class_specifier", "struct_specifier", "union_specifier", "template_declaration",
			"declaration", "field_declaration", "function_definition", "alias_declaration", "friend_declaration":
			if c.Type() == "template_declaration" {
				b.templateDecl(c, tmpl.params)
				continue
			}
			if tmpl.explicit {
				b.item(c, s, tmpl)
			} else {
				b.item(c, tmpl.params, tmpl)
			}
		}
	}
}

func templateParamName(b *builder, p *sitter.Node) string {
	switch p.Type() {
	case "type_parameter_declaration", "variadic_type_parameter_declaration":
		for _, c := range namedChildren(p) {
			if c.Type() == "type_identifier" {
				return b.text(c)
			}
		}
	case "optional_type_parameter_declaration":
		return b.text(p.ChildByFieldName("name"))
	case "template_template_parameter_declaration":
		for _, c := range namedChildren(p) {
			if c.Type() == "type_parameter_declaration" {
				return templateParamName(b, c)
			}
		}
	}
	return ""
}

// accessLabel handles `public:` and friends inside a class body. The label
// keeps the raw source spelling before the colon so that macros such as
// `signals` stay recognizable after expansion.
func (b *builder) accessLabel(n *sitter.Node, s *scope) {
	rs := s.decl()
	if rs.record == nil {
		return
	}
	text := b.text(n)
	switch {
	case strings.HasPrefix(text, "public"):
		rs.access = frontend.AccessPublic
	case strings.HasPrefix(text, "protected"):
		rs.access = frontend.AccessProtected
	case strings.HasPrefix(text, "private"):
		rs.access = frontend.AccessPrivate
	}
	rs.record.Members = append(rs.record.Members, &frontend.AccessSpecDecl{
		Access:   rs.access,
		Spelling: b.rawSpelling(n),
	})
}

func (b *builder) rawSpelling(n *sitter.Node) string {
	off, ok := b.pp.rawOffset(int(n.StartByte()))
	if !ok || off >= len(b.raw) {
		return ""
	}
	rest := b.raw[off:]
	end := strings.IndexByte(rest, ':')
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// using handles inheriting constructors, `using Base::Base;`.
func (b *builder) using(n *sitter.Node, s *scope) {
	rs := s.decl()
	if rs.record == nil {
		return
	}
	parts, _ := splitQualified(strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(b.text(n), "using")), ";"))
	if len(parts) < 2 || parts[len(parts)-1] != parts[len(parts)-2] {
		return
	}
	for i := range rs.record.Bases {
		base := &rs.record.Bases[i]
		if base.Name == parts[len(parts)-2] || strings.HasSuffix(base.Name, "::"+parts[len(parts)-2]) {
			base.InheritsConstructors = true
		}
	}
}

func (b *builder) typedef(n *sitter.Node, s *scope) {
	base := b.typeSpec(n.ChildByFieldName("type"), s, nil)
	declarators := fieldChildren(n, "declarator")
	if len(declarators) > 0 && declarators[0].Type() == "type_identifier" && b.nameAnonymous(base, b.text(declarators[0]), s) {
		return
	}
	base = b.qualify(n, base)
	for _, d := range declarators {
		info := b.declarator(d, base, s)
		if info.name == "" {
			continue
		}
		b.addTypedef(s, info.name, info.typ)
	}
}

// nameAnonymous gives an anonymous class or enum the name of the typedef
// that introduces it, as in `typedef struct { ... } Point;`.
func (b *builder) nameAnonymous(t frontend.QualType, name string, s *scope) bool {
	ds := s.decl()
	switch {
	case t.Record != nil && t.Record.IsAnonymous() && t.Record.IsDefinition:
		r := t.Record
		r.Name, r.QualifiedName = name, ds.qualify(name)
		ds.types[name] = r.Type()
		if rs, ok := b.scopes[r]; ok {
			rs.prefix = r.QualifiedName
			ds.nested[name] = rs
		}
		return true
	case t.Enum != nil && t.Enum.IsAnonymous():
		e := t.Enum
		e.Name, e.QualifiedName = name, ds.qualify(name)
		ds.types[name] = e.Type()
		return true
	}
	return false
}

func (b *builder) alias(n *sitter.Node, s *scope) {
	name := b.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	b.addTypedef(s, name, b.typeDescriptor(n.ChildByFieldName("type"), s))
}

func (b *builder) addTypedef(s *scope, name string, target frontend.QualType) {
	ds := s.decl()
	td := &frontend.TypedefDecl{Name: name, QualifiedName: ds.qualify(name), Target: target}
	ds.types[name] = frontend.TypedefType(td.QualifiedName, target)
	if ds.record != nil {
		ds.record.Members = append(ds.record.Members, td)
		return
	}
	b.unit.Decls = append(b.unit.Decls, td)
}

// friend declares friend functions in the enclosing namespace.
func (b *builder) friend(n *sitter.Node, s *scope) {
	outer := s.decl().parent
	for outer != nil && outer.decl().record != nil {
		outer = outer.decl().parent
	}
	if outer == nil {
		return
	}
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "declaration", "function_definition":
			b.declaration(c, outer, nil)
		}
	}
}

var deletedOrPure = regexp.MustCompile(`=\s*(0|delete|default)\s*;?\s*$`)

// specifiers is what the decl-specifier sequence of a declaration says.
type specifiers struct {
	static    bool
	virtual   bool
	constexpr bool
	inline    bool
}

func (b *builder) specifiers(n *sitter.Node) specifiers {
	return specifiers{
		static:    b.keyword(n, "static"),
		virtual:   b.keyword(n, "virtual"),
		constexpr: b.keyword(n, "constexpr"),
		inline:    b.keyword(n, "inline"),
	}
}

// qualify applies const from the type qualifiers of a declaration.
func (b *builder) qualify(n *sitter.Node, t frontend.QualType) frontend.QualType {
	if b.keyword(n, "const") || b.keyword(n, "constexpr") {
		return t.WithConst()
	}
	return t
}

// declaration handles declarations, member declarations and function
// definitions at any scope.
func (b *builder) declaration(n *sitter.Node, s *scope, tmpl *templateHeader) {
	spec := b.specifiers(n)
	typeNode := n.ChildByFieldName("type")

	var base frontend.QualType
	if typeNode != nil {
		base = b.qualify(n, b.typeSpec(typeNode, s, tmpl))
	}

	declarators := fieldChildren(n, "declarator")
	ds := s.decl()
	if len(declarators) == 0 {
		// A member of anonymous record type without a declarator.
		if ds.record != nil && base.Record != nil && base.Record.IsAnonymous() {
			ds.record.Members = append(ds.record.Members, &frontend.FieldDecl{
				Type:   base,
				Access: ds.access,
			})
		}
		return
	}

	tail := b.text(n)
	if body := n.ChildByFieldName("body"); body != nil && body.Type() == "compound_statement" {
		tail = ""
	}
	marker := ""
	if m := deletedOrPure.FindStringSubmatch(tail); m != nil {
		marker = m[1]
	}

	for _, d := range declarators {
		var init *sitter.Node
		if d.Type() == "init_declarator" {
			init = d.ChildByFieldName("value")
			d = d.ChildByFieldName("declarator")
		}
		info := b.declarator(d, base, s)
		info.hasType = typeNode != nil
		if info.fn != nil {
			if tmpl != nil && !tmpl.explicit {
				continue
			}
			b.function(n, s, spec, info, marker)
			continue
		}
		if info.name == "" || info.qualified {
			continue
		}
		if init == nil {
			init = n.ChildByFieldName("default_value")
		}
		if init == nil && hasPureClause(n) {
			// `int a = 0;` in a class body parses like a pure specifier.
			b.variable(n, s, spec, info, frontend.IntLit(0, frontend.Builtin(frontend.BuiltinInt)))
			continue
		}
		var expr *frontend.Expr
		if init != nil {
			expr = b.expr(init, s)
		}
		b.variable(n, s, spec, info, expr)
	}
}

func hasPureClause(n *sitter.Node) bool {
	for _, c := range namedChildren(n) {
		if c.Type() == "pure_virtual_clause" {
			return true
		}
	}
	return false
}

func (b *builder) variable(n *sitter.Node, s *scope, spec specifiers, info declInfo, init *frontend.Expr) {
	ds := s.decl()
	typ := info.typ
	if init != nil {
		if typ.Kind == frontend.TypeUnknown && typ.Name == "auto" && init != nil {
			typ = deduce(init.Type, typ.Const)
		}
		init = b.convert(init, typ)
	}

	if ds.record != nil && !spec.static {
		f := &frontend.FieldDecl{Name: info.name, Type: typ, Access: ds.access, Init: init}
		if clause := bitfieldClause(n); clause != nil {
			if w, ok := b.constInt(clause, s); ok {
				width := int(w)
				f.BitWidth = &width
			}
		}
		ds.record.Members = append(ds.record.Members, f)
		return
	}

	v := &frontend.VarDecl{
		Name:           info.name,
		QualifiedName:  ds.qualify(info.name),
		Type:           typ,
		IsStaticMember: ds.record != nil,
		IsConstexpr:    spec.constexpr,
		Init:           init,
	}
	ds.values[info.name] = v
	if ds.record != nil {
		v.Access = ds.access
		ds.record.Members = append(ds.record.Members, v)
		return
	}
	b.unit.Decls = append(b.unit.Decls, v)
}

func bitfieldClause(n *sitter.Node) *sitter.Node {
	for _, c := range namedChildren(n) {
		if c.Type() == "bitfield_clause" {
			if nc := c.NamedChildCount(); nc > 0 {
				return c.NamedChild(int(nc) - 1)
			}
		}
	}
	return nil
}

// deduce is the type of an auto variable initialized from type t.
func deduce(t frontend.QualType, isConst bool) frontend.QualType {
	c := t
	for c.Kind == frontend.TypeLValueRef || c.Kind == frontend.TypeRValueRef {
		c = *c.Elem
	}
	if c.Kind == frontend.TypeArray && c.Elem != nil {
		c = frontend.PointerTo(*c.Elem)
	} else {
		c = c.Unqualified()
	}
	if isConst {
		c = c.WithConst()
	}
	return c
}

// function declares a free function or a method.
func (b *builder) function(n *sitter.Node, s *scope, spec specifiers, info declInfo, marker string) {
	ds := s.decl()
	params, variadic := b.parameters(info.fn.ChildByFieldName("parameters"), s)
	ret := info.typ
	if trailing := trailingReturn(info.fn); trailing != nil {
		ret = b.typeDescriptor(trailing, s)
	}

	if ds.record != nil && !info.qualified {
		b.method(n, ds, spec, info, params, variadic, ret, marker)
		return
	}
	if info.qualified || info.templated {
		// Out-of-line definitions and explicit specializations of
		// functions declared elsewhere.
		return
	}

	name, op := functionName(info)
	if _, seen := ds.funcs[name]; seen && n.ChildByFieldName("body") != nil {
		// Definition of a function declared earlier.
		for _, f := range ds.funcs[name] {
			if sameParams(f.Params, params) {
				return
			}
		}
	}
	f := &frontend.FunctionDecl{
		Name:          name,
		QualifiedName: ds.qualify(name),
		IsExternC:     s.externC,
		IsVariadic:    variadic,
		IsDeleted:     marker == "delete",
		IsBuiltin:     strings.HasPrefix(name, "__builtin_"),
		Operator:      op,
		Params:        params,
		ReturnType:    ret,
	}
	ds.funcs[name] = append(ds.funcs[name], f)
	b.unit.Decls = append(b.unit.Decls, f)
}

func sameParams(a, b []frontend.ParamDecl) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type.Canonical().Spelling() != b[i].Type.Canonical().Spelling() {
			return false
		}
	}
	return true
}

func trailingReturn(fn *sitter.Node) *sitter.Node {
	for _, c := range namedChildren(fn) {
		if c.Type() == "trailing_return_type" {
			if c.NamedChildCount() > 0 {
				return c.NamedChild(0)
			}
		}
	}
	return nil
}

// functionName spells a function name the way a compiler reports it and
// extracts the operator token of overloaded operators.
func functionName(info declInfo) (string, string) {
	if info.conversion != nil {
		return "operator " + info.conversion.Spelling(), ""
	}
	name := info.name
	op, ok := strings.CutPrefix(name, "operator")
	if !ok || op == "" || isIdentChar(op[0]) {
		return name, ""
	}
	op = strings.Join(strings.Fields(op), "")
	if strings.HasPrefix(op, "new") || strings.HasPrefix(op, "delete") {
		return "operator " + op, op
	}
	return "operator" + op, op
}

func (b *builder) method(n *sitter.Node, rs *scope, spec specifiers, info declInfo, params []frontend.ParamDecl, variadic bool, ret frontend.QualType, marker string) {
	rec := rs.record
	name, op := functionName(info)

	m := &frontend.MethodDecl{
		Name:          name,
		QualifiedName: rec.QualifiedName + "::" + name,
		Access:        rs.access,
		Parent:        rec,
		IsStatic:      spec.static,
		IsConst:       b.keyword(info.fn, "const"),
		IsVirtual:     spec.virtual || b.keyword(info.fn, "override") || b.keyword(info.fn, "final"),
		IsPure:        marker == "0",
		IsDeleted:     marker == "delete",
		IsDefaulted:   marker == "default",
		IsVariadic:    variadic,
		IsBuiltin:     strings.HasPrefix(name, "__builtin_"),
		Operator:      op,
		Params:        params,
		ReturnType:    ret,
	}

	switch {
	case info.destructor:
		m.Kind = frontend.MethodDtor
		m.ReturnType = frontend.Builtin(frontend.BuiltinVoid)
	case info.conversion != nil:
		m.Kind = frontend.MethodConversion
		m.ReturnType = *info.conversion
	case name == rec.Name && !info.hasType:
		m.Kind = frontend.MethodCtor
		m.ReturnType = frontend.Builtin(frontend.BuiltinVoid)
		switch selfParam(rec, params) {
		case frontend.TypeLValueRef:
			m.IsCopyConstructor = true
		case frontend.TypeRValueRef:
			m.IsMoveConstructor = true
		}
	}

	// An inline definition after an in-class declaration repeats it.
	for _, prev := range rs.methods[name] {
		if sameParams(prev.Params, params) && prev.IsConst == m.IsConst {
			return
		}
	}
	rs.methods[name] = append(rs.methods[name], m)
	rec.Members = append(rec.Members, m)
}

// selfParam classifies a constructor whose first parameter is a reference
// to its own class and whose other parameters are defaulted.
func selfParam(rec *frontend.RecordDecl, params []frontend.ParamDecl) frontend.TypeKind {
	if len(params) == 0 {
		return frontend.TypeUnknown
	}
	for _, p := range params[1:] {
		if p.Default == nil {
			return frontend.TypeUnknown
		}
	}
	t := params[0].Type.Canonical()
	if t.Kind != frontend.TypeLValueRef && t.Kind != frontend.TypeRValueRef {
		return frontend.TypeUnknown
	}
	inner := t.Pointee()
	if inner.Kind != frontend.TypeRecord || (inner.Record != rec && inner.Name != rec.QualifiedName) {
		return frontend.TypeUnknown
	}
	return t.Kind
}

// parameters reads a parameter list. `(void)` declares no parameters.
func (b *builder) parameters(n *sitter.Node, s *scope) ([]frontend.ParamDecl, bool) {
	params := []frontend.ParamDecl{}
	variadic := false
	for _, c := range children(n) {
		switch c.Type() {
		case "...", "variadic_parameter":
			variadic = true
		case "parameter_declaration", "optional_parameter_declaration":
			base := b.qualify(c, b.typeSpec(c.ChildByFieldName("type"), s, nil))
			info := declInfo{typ: base}
			if d := c.ChildByFieldName("declarator"); d != nil {
				info = b.declarator(d, base, s)
			}
			if info.typ.IsVoid() && info.name == "" && c.Type() == "parameter_declaration" {
				continue
			}
			typ := info.typ
			if ct := typ.Canonical(); ct.Kind == frontend.TypeArray && ct.Elem != nil {
				typ = frontend.PointerTo(*ct.Elem)
			}
			p := frontend.ParamDecl{Name: info.name, Type: typ}
			if def := c.ChildByFieldName("default_value"); def != nil {
				p.Default = b.defaultArgument(b.expr(def, s), typ)
			}
			params = append(params, p)
		case "variadic_parameter_declaration":
			variadic = true
		}
	}
	return params, variadic
}

// defaultArgument converts a default argument to its parameter type. Class
// types are built through a temporary the way a compiler materializes them.
func (b *builder) defaultArgument(e *frontend.Expr, t frontend.QualType) *frontend.Expr {
	if e == nil {
		return &frontend.Expr{Kind: frontend.ExprUnknown, Type: t}
	}
	target := t
	if t.IsReference() {
		target = t.Pointee()
	}
	if target.Canonical().Kind != frontend.TypeRecord {
		conv := b.convert(e, target)
		if t.IsReference() {
			return &frontend.Expr{Kind: frontend.ExprMaterializeTemporary, Type: target, Sub: []*frontend.Expr{conv}}
		}
		return conv
	}
	construct := e
	if e.Kind != frontend.ExprConstruct {
		construct = &frontend.Expr{
			Kind:  frontend.ExprConstruct,
			Type:  target.Unqualified(),
			Class: target.Canonical().Name,
			Sub:   []*frontend.Expr{e},
		}
	}
	bind := &frontend.Expr{Kind: frontend.ExprBindTemporary, Type: construct.Type, Sub: []*frontend.Expr{construct}}
	mat := &frontend.Expr{Kind: frontend.ExprMaterializeTemporary, Type: construct.Type, Sub: []*frontend.Expr{bind}}
	return &frontend.Expr{Kind: frontend.ExprWithCleanups, Type: construct.Type, Sub: []*frontend.Expr{mat}}
}
