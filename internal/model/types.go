package model

// Type is the flattened description of a C++ type after all pointer and
// reference layers have been peeled off.
type Type struct {
	IsConst      bool
	IsMove       bool
	IsReference  bool
	IsBuiltin    bool
	IsVoid       bool
	PointerDepth int

	// BaseName is the unqualified base type, FullName the complete spelling
	// of the original type including indirection.
	BaseName string
	FullName string

	Template *Template
}

// Template is a template instantiation whose arguments are all types.
type Template struct {
	BaseName  string
	FullName  string
	Arguments []Type
}

// Clone returns a deep copy; the template slot is never shared.
func (t Type) Clone() Type {
	out := t
	out.Template = t.Template.Clone()
	return out
}

func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{BaseName: t.BaseName, FullName: t.FullName}
	if t.Arguments != nil {
		out.Arguments = make([]Type, len(t.Arguments))
		for i, arg := range t.Arguments {
			out.Arguments[i] = arg.Clone()
		}
	}
	return out
}

// Argument is a function or method parameter.
type Argument struct {
	Type
	IsVariadic bool
	HasDefault bool
	Name       string
	Value      Literal
}

// VariadicArgument is the trailing "..." marker of a C-style variadic function.
func VariadicArgument() Argument {
	return Argument{IsVariadic: true, Name: "..."}
}

func (a Argument) Clone() Argument {
	out := a
	out.Type = a.Type.Clone()
	return out
}
