package frontend

import "strings"

// Access mirrors the C++ access specifiers.
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

// Decl is one of the declaration kinds below. The set is closed; consumers
// dispatch with a type switch.
type Decl interface {
	declNode()
}

type TagKind int

const (
	TagClass TagKind = iota
	TagStruct
	TagUnion
	TagInterface
)

type BaseSpec struct {
	Type                 QualType
	Name                 string
	IsVirtual            bool
	Access               Access
	InheritsConstructors bool
}

// RecordDecl is a class, struct or union.
type RecordDecl struct {
	Name          string
	QualifiedName string
	Tag           TagKind
	IsDefinition  bool
	// IsTemplatePattern marks the primary template of a class template.
	IsTemplatePattern bool
	TemplateArgs      []TemplateArg

	Bases   []BaseSpec
	Members []Decl
	Parent  *RecordDecl

	HasDefaultConstructor            bool
	HasCopyConstructorWithConstParam bool
	IsAbstract                       bool

	SizeBits      int
	AlignBits     int
	AlignRequired bool
}

// IsAnonymous reports a record declared without a name.
func (r *RecordDecl) IsAnonymous() bool { return r.Name == "" }

// Type returns the record as a type.
func (r *RecordDecl) Type() QualType {
	return QualType{Kind: TypeRecord, Name: r.QualifiedName, Args: r.TemplateArgs, Record: r}
}

// AccessSpecDecl is an access label inside a class body. Spelling is the raw
// source text before the colon; empty when it could not be recovered.
type AccessSpecDecl struct {
	Access   Access
	Spelling string
}

type MethodKind int

const (
	MethodRegular MethodKind = iota
	MethodCtor
	MethodDtor
	MethodConversion
)

type ParamDecl struct {
	Name    string
	Type    QualType
	Default *Expr
}

// MethodDecl is a member function of a record.
type MethodDecl struct {
	Name          string
	QualifiedName string
	Kind          MethodKind
	Access        Access
	Parent        *RecordDecl

	IsStatic          bool
	IsConst           bool
	IsVirtual         bool
	IsPure            bool
	IsDeleted         bool
	IsDefaulted       bool
	IsImplicit        bool
	IsCopyConstructor bool
	IsMoveConstructor bool
	IsVariadic        bool
	IsBuiltin         bool

	// Operator is the operator token for overloaded operators, e.g. "+", "[]".
	Operator string

	Params     []ParamDecl
	ReturnType QualType
}

// IsUserProvided reports a method written by the user and not defaulted on
// its first declaration.
func (m *MethodDecl) IsUserProvided() bool {
	return !m.IsImplicit && !m.IsDefaulted && !m.IsDeleted
}

func (m *MethodDecl) IsOverloadedOperator() bool { return m.Operator != "" }

type FieldDecl struct {
	Name     string
	Type     QualType
	Access   Access
	BitWidth *int
	Init     *Expr
}

// VarDecl is a variable: a static data member, a namespace-scope variable or
// a variable of a synthetic unit.
type VarDecl struct {
	Name           string
	QualifiedName  string
	Type           QualType
	Access         Access
	IsStaticMember bool
	IsConstexpr    bool
	Init           *Expr
}

type EnumConstantDecl struct {
	Name  string
	Value int64
	Init  *Expr
	Enum  *EnumDecl
}

type EnumDecl struct {
	Name          string
	QualifiedName string
	IsScoped      bool
	Underlying    QualType
	Constants     []*EnumConstantDecl
	Access        Access
}

func (e *EnumDecl) IsAnonymous() bool { return e.Name == "" }

func (e *EnumDecl) Type() QualType {
	u := e.Underlying
	return QualType{Kind: TypeEnum, Name: e.QualifiedName, Elem: &u, Enum: e}
}

// TypedefDecl covers both typedef and alias declarations.
type TypedefDecl struct {
	Name          string
	QualifiedName string
	Target        QualType
}

// FunctionDecl is a free function.
type FunctionDecl struct {
	Name          string
	QualifiedName string
	IsExternC     bool
	IsVariadic    bool
	IsBuiltin     bool
	IsDeleted     bool
	Operator      string
	Params        []ParamDecl
	ReturnType    QualType
}

func (f *FunctionDecl) IsOverloadedOperator() bool { return f.Operator != "" }

// SpecializationDecl is an explicit specialization of a class template at
// namespace scope, e.g. `template<> struct Traits<Foo> { ... };`.
type SpecializationDecl struct {
	Record *RecordDecl
}

func (*RecordDecl) declNode()         {}
func (*AccessSpecDecl) declNode()     {}
func (*MethodDecl) declNode()         {}
func (*FieldDecl) declNode()          {}
func (*VarDecl) declNode()            {}
func (*EnumDecl) declNode()           {}
func (*EnumConstantDecl) declNode()   {}
func (*TypedefDecl) declNode()        {}
func (*FunctionDecl) declNode()       {}
func (*SpecializationDecl) declNode() {}

// TranslationUnit is everything one parse produced. Decls is flattened:
// declarations inside namespaces and linkage blocks appear here with their
// qualified names, nested records stay inside their parent's Members.
type TranslationUnit struct {
	Decls  []Decl
	Macros []*MacroDefinition
}

// Records walks every record definition in the unit, nested ones included.
func (u *TranslationUnit) Records(fn func(*RecordDecl)) {
	var walk func(decls []Decl)
	walk = func(decls []Decl) {
		for _, d := range decls {
			switch v := d.(type) {
			case *RecordDecl:
				fn(v)
				walk(v.Members)
			case *SpecializationDecl:
				fn(v.Record)
				walk(v.Record.Members)
			}
		}
	}
	walk(u.Decls)
}

// MatchesName implements name matching the way a qualified-name matcher
// does: the full qualified name, or any suffix beginning at a scope boundary.
func MatchesName(qualified, want string) bool {
	want = strings.TrimPrefix(want, "::")
	if qualified == want {
		return true
	}
	return strings.HasSuffix(qualified, "::"+want)
}

// FindRecord returns the first record definition named name.
func (u *TranslationUnit) FindRecord(name string) *RecordDecl {
	var found *RecordDecl
	u.Records(func(r *RecordDecl) {
		if found != nil || !r.IsDefinition || r.IsTemplatePattern || r.IsAnonymous() {
			return
		}
		if MatchesName(r.QualifiedName, name) {
			found = r
		}
	})
	return found
}

// FindEnumOrTypedef returns the first enum or typedef named name.
func (u *TranslationUnit) FindEnumOrTypedef(name string) Decl {
	var found Decl
	var walk func(decls []Decl)
	walk = func(decls []Decl) {
		for _, d := range decls {
			if found != nil {
				return
			}
			switch v := d.(type) {
			case *EnumDecl:
				if !v.IsAnonymous() && MatchesName(v.QualifiedName, name) {
					found = v
				}
			case *TypedefDecl:
				if MatchesName(v.QualifiedName, name) {
					found = v
				}
			case *RecordDecl:
				walk(v.Members)
			}
		}
	}
	walk(u.Decls)
	return found
}

// Functions returns the free functions in declaration order.
func (u *TranslationUnit) Functions() []*FunctionDecl {
	var out []*FunctionDecl
	for _, d := range u.Decls {
		if f, ok := d.(*FunctionDecl); ok {
			out = append(out, f)
		}
	}
	return out
}

// Vars returns the namespace-scope variables in declaration order.
func (u *TranslationUnit) Vars() []*VarDecl {
	var out []*VarDecl
	for _, d := range u.Decls {
		if v, ok := d.(*VarDecl); ok {
			out = append(out, v)
		}
	}
	return out
}
