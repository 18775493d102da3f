package model

// Access is the C++ member access level.
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessProtected:
		return "Protected"
	case AccessPrivate:
		return "Private"
	default:
		return "Public"
	}
}

// MethodKind classifies a Method.
type MethodKind int

const (
	MethodUnknown MethodKind = iota
	MethodConstructor
	MethodCopyConstructor
	MethodMember
	MethodStatic
	MethodOperator
	MethodConversionOperator
	MethodSignal
)

var methodKindNames = [...]string{
	MethodUnknown:            "Unknown",
	MethodConstructor:        "Constructor",
	MethodCopyConstructor:    "CopyConstructor",
	MethodMember:             "MemberMethod",
	MethodStatic:             "StaticMethod",
	MethodOperator:           "Operator",
	MethodConversionOperator: "ConversionOperator",
	MethodSignal:             "Signal",
}

func (k MethodKind) String() string {
	if k < 0 || int(k) >= len(methodKindNames) {
		return "Unknown"
	}
	return methodKindNames[k]
}

// Method describes a member function, constructor, operator or free function.
type Method struct {
	Kind                 MethodKind
	Name                 string
	Access               Access
	IsConst              bool
	IsVirtual            bool
	IsPure               bool
	IsExternC            bool
	IsBuiltin            bool
	ClassName            string
	Arguments            []Argument
	FirstDefaultArgument *int
	ReturnType           Type
}

func (m Method) Clone() Method {
	out := m
	if m.Arguments != nil {
		out.Arguments = make([]Argument, len(m.Arguments))
		for i, a := range m.Arguments {
			out.Arguments[i] = a.Clone()
		}
	}
	if m.FirstDefaultArgument != nil {
		idx := *m.FirstDefaultArgument
		out.FirstDefaultArgument = &idx
	}
	out.ReturnType = m.ReturnType.Clone()
	return out
}

type BaseClass struct {
	IsVirtual            bool
	InheritedConstructor bool
	Name                 string
	Access               Access
}

// Field is a data member. Static data members set IsStatic.
type Field struct {
	Type
	Access     Access
	Name       string
	IsStatic   bool
	HasDefault bool
	Value      Literal
	BitField   *int
}

// TypeKind is the record flavour of a Class.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindStruct
	KindUnion
	KindInterface
)

func (k TypeKind) String() string {
	switch k {
	case KindStruct:
		return "Struct"
	case KindUnion:
		return "CppUnion"
	case KindInterface:
		return "Interface"
	default:
		return "Class"
	}
}

type Class struct {
	Kind                  TypeKind
	HasDefaultConstructor bool
	HasCopyConstructor    bool
	IsDestructible        bool
	IsAbstract            bool
	IsAnonymous           bool
	ByteSize              int
	Name                  string
	Bases                 []BaseClass
	Methods               []Method
	Fields                []Field
}

// NewClass returns a class that is destructible until told otherwise.
func NewClass(name string) Class {
	return Class{Name: name, IsDestructible: true}
}

type Enum struct {
	Name        string
	Type        string
	IsFlags     bool
	IsAnonymous bool
	Values      OrderedMap[string, int64]
}

// Macro is a preprocessor definition. Type and Evaluated are set together
// or not at all.
type Macro struct {
	Name       string
	IsFunction bool
	IsVarArg   bool
	Arguments  []string
	Value      string
	Evaluated  Literal
	Type       *Type
}

// HasEvaluation reports whether the macro carries both a type and a value.
func (m Macro) HasEvaluation() bool {
	return m.Type != nil && m.Evaluated.HasValue()
}
