package frontend

import (
	"strconv"
	"strings"
)

// TypeKind discriminates QualType.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeBuiltin
	TypePointer
	TypeLValueRef
	TypeRValueRef
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeArray
)

// BuiltinKind enumerates the fundamental types.
type BuiltinKind int

const (
	BuiltinNone BuiltinKind = iota
	BuiltinVoid
	BuiltinBool
	BuiltinChar
	BuiltinSChar
	BuiltinUChar
	BuiltinWChar
	BuiltinChar8
	BuiltinChar16
	BuiltinChar32
	BuiltinShort
	BuiltinUShort
	BuiltinInt
	BuiltinUInt
	BuiltinLong
	BuiltinULong
	BuiltinLongLong
	BuiltinULongLong
	BuiltinInt128
	BuiltinUInt128
	BuiltinFloat
	BuiltinDouble
	BuiltinLongDouble
	BuiltinFloat128
	BuiltinNullPtr
)

type builtinInfo struct {
	spelling string
	bits     int
	signed   bool
}

// LP64 data model, plain char signed.
var builtins = map[BuiltinKind]builtinInfo{
	BuiltinVoid:       {"void", 0, false},
	BuiltinBool:       {"bool", 8, false},
	BuiltinChar:       {"char", 8, true},
	BuiltinSChar:      {"signed char", 8, true},
	BuiltinUChar:      {"unsigned char", 8, false},
	BuiltinWChar:      {"wchar_t", 32, true},
	BuiltinChar8:      {"char8_t", 8, false},
	BuiltinChar16:     {"char16_t", 16, false},
	BuiltinChar32:     {"char32_t", 32, false},
	BuiltinShort:      {"short", 16, true},
	BuiltinUShort:     {"unsigned short", 16, false},
	BuiltinInt:        {"int", 32, true},
	BuiltinUInt:       {"unsigned int", 32, false},
	BuiltinLong:       {"long", 64, true},
	BuiltinULong:      {"unsigned long", 64, false},
	BuiltinLongLong:   {"long long", 64, true},
	BuiltinULongLong:  {"unsigned long long", 64, false},
	BuiltinInt128:     {"__int128", 128, true},
	BuiltinUInt128:    {"unsigned __int128", 128, false},
	BuiltinFloat:      {"float", 32, true},
	BuiltinDouble:     {"double", 64, true},
	BuiltinLongDouble: {"long double", 128, true},
	BuiltinFloat128:   {"__float128", 128, true},
	BuiltinNullPtr:    {"std::nullptr_t", 64, false},
}

func (k BuiltinKind) String() string { return builtins[k].spelling }

// Bits is the storage width of the builtin.
func (k BuiltinKind) Bits() int { return builtins[k].bits }

// TemplateArgKind separates type arguments from everything else.
type TemplateArgKind int

const (
	TemplateArgType TemplateArgKind = iota
	TemplateArgValue
)

type TemplateArg struct {
	Kind TemplateArgKind
	Type *QualType
	// Text is the written form of a non-type argument.
	Text string
}

// QualType is a possibly-qualified type as resolved by the front end.
type QualType struct {
	Kind  TypeKind
	Const bool

	// Name is the fully qualified name of a record, enum or typedef.
	Name    string
	Builtin BuiltinKind

	// Elem is the pointee, referee, array element, typedef target or enum
	// underlying type, depending on Kind.
	Elem *QualType
	Len  int

	// Args is non-nil for class template specializations.
	Args []TemplateArg

	Record *RecordDecl
	Enum   *EnumDecl
}

func Builtin(k BuiltinKind) QualType {
	return QualType{Kind: TypeBuiltin, Builtin: k}
}

func PointerTo(t QualType) QualType {
	return QualType{Kind: TypePointer, Elem: &t}
}

func LValueRefTo(t QualType) QualType {
	return QualType{Kind: TypeLValueRef, Elem: &t}
}

func RValueRefTo(t QualType) QualType {
	return QualType{Kind: TypeRValueRef, Elem: &t}
}

func RecordType(name string) QualType {
	return QualType{Kind: TypeRecord, Name: name}
}

func TypedefType(name string, target QualType) QualType {
	return QualType{Kind: TypeTypedef, Name: name, Elem: &target}
}

// WithConst returns a const-qualified copy.
func (t QualType) WithConst() QualType {
	t.Const = true
	return t
}

// Unqualified drops top-level const.
func (t QualType) Unqualified() QualType {
	t.Const = false
	return t
}

// Canonical strips typedef sugar, accumulating const-ness.
func (t QualType) Canonical() QualType {
	c := t
	for c.Kind == TypeTypedef && c.Elem != nil {
		isConst := c.Const
		c = *c.Elem
		c.Const = c.Const || isConst
	}
	return c
}

// Pointee is the canonical element type of a pointer or reference.
func (t QualType) Pointee() QualType {
	c := t.Canonical()
	if c.Elem == nil {
		return QualType{}
	}
	return *c.Elem
}

func (t QualType) IsPointer() bool { return t.Canonical().Kind == TypePointer }

func (t QualType) IsReference() bool {
	k := t.Canonical().Kind
	return k == TypeLValueRef || k == TypeRValueRef
}

func (t QualType) IsRValueReference() bool { return t.Canonical().Kind == TypeRValueRef }

func (t QualType) IsBuiltin() bool { return t.Canonical().Kind == TypeBuiltin }

func (t QualType) IsVoid() bool {
	c := t.Canonical()
	return c.Kind == TypeBuiltin && c.Builtin == BuiltinVoid
}

func (t QualType) IsBoolean() bool {
	c := t.Canonical()
	return c.Kind == TypeBuiltin && c.Builtin == BuiltinBool
}

func (t QualType) IsEnum() bool { return t.Canonical().Kind == TypeEnum }

func (t QualType) IsRecord() bool { return t.Canonical().Kind == TypeRecord }

// IsInteger covers bool, the character types, the integer types and enums.
func (t QualType) IsInteger() bool {
	c := t.Canonical()
	switch c.Kind {
	case TypeEnum:
		return true
	case TypeBuiltin:
		return c.Builtin >= BuiltinBool && c.Builtin <= BuiltinUInt128
	}
	return false
}

func (t QualType) IsSignedInteger() bool {
	c := t.Canonical()
	if c.Kind == TypeEnum {
		return c.underlying().IsSignedInteger()
	}
	return c.IsInteger() && builtins[c.Builtin].signed
}

func (t QualType) IsFloating() bool {
	c := t.Canonical()
	return c.Kind == TypeBuiltin && c.Builtin >= BuiltinFloat && c.Builtin <= BuiltinFloat128
}

func (t QualType) IsArithmetic() bool { return t.IsInteger() || t.IsFloating() }

// IsCharacter reports the character types that spell string literals.
func (t QualType) IsCharacter() bool {
	c := t.Canonical()
	if c.Kind != TypeBuiltin {
		return false
	}
	switch c.Builtin {
	case BuiltinChar, BuiltinSChar, BuiltinUChar, BuiltinWChar, BuiltinChar8, BuiltinChar16, BuiltinChar32:
		return true
	}
	return false
}

// IsSpecialization reports a class template specialization.
func (t QualType) IsSpecialization() bool {
	c := t.Canonical()
	return c.Kind == TypeRecord && c.Args != nil
}

// Bits is the integer or floating width of an arithmetic type, 0 otherwise.
func (t QualType) Bits() int {
	c := t.Canonical()
	switch c.Kind {
	case TypeEnum:
		return c.underlying().Bits()
	case TypeBuiltin:
		return c.Builtin.Bits()
	}
	return 0
}

func (t QualType) underlying() QualType {
	if t.Elem != nil {
		return *t.Elem
	}
	if t.Enum != nil && t.Enum.Underlying.Kind != TypeUnknown {
		return t.Enum.Underlying
	}
	return Builtin(BuiltinInt)
}

// EnumUnderlying returns the integer type backing an enum type.
func (t QualType) EnumUnderlying() QualType {
	return t.Canonical().underlying()
}

// Spelling prints the type the way a C++ compiler would in diagnostics,
// keeping typedef names: "const Foo *&", "int *const", "std::vector<int>".
func (t QualType) Spelling() string {
	switch t.Kind {
	case TypePointer, TypeLValueRef, TypeRValueRef:
		inner := "<unknown>"
		if t.Elem != nil {
			inner = t.Elem.Spelling()
		}
		sigil := "*"
		if t.Kind == TypeLValueRef {
			sigil = "&"
		} else if t.Kind == TypeRValueRef {
			sigil = "&&"
		}
		var sb strings.Builder
		sb.WriteString(inner)
		if !strings.HasSuffix(inner, "*") && !strings.HasSuffix(inner, "&") {
			sb.WriteByte(' ')
		}
		sb.WriteString(sigil)
		if t.Const {
			sb.WriteString("const")
		}
		return sb.String()
	case TypeArray:
		inner := "<unknown>"
		if t.Elem != nil {
			inner = t.Elem.Spelling()
		}
		if t.Len < 0 {
			return inner + " []"
		}
		return inner + " [" + strconv.Itoa(t.Len) + "]"
	}

	var name string
	switch t.Kind {
	case TypeBuiltin:
		name = t.Builtin.String()
	case TypeRecord:
		name = t.Name
		if t.Args != nil {
			name += "<" + t.argsSpelling() + ">"
		}
	case TypeEnum, TypeTypedef:
		name = t.Name
	default:
		name = t.Name
		if name == "" {
			name = "<unknown>"
		}
	}
	if t.Const {
		return "const " + name
	}
	return name
}

func (t QualType) argsSpelling() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		if a.Kind == TemplateArgType && a.Type != nil {
			parts[i] = a.Type.Spelling()
		} else {
			parts[i] = a.Text
		}
	}
	return strings.Join(parts, ", ")
}
