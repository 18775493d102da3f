package normalize

import (
	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

// Function builds the StaticMethod for a free function. Matching the
// function against the configured pattern is the caller's job.
func (n *Normalizer) Function(f *frontend.FunctionDecl) model.Method {
	m := model.Method{
		Kind:       model.MethodStatic,
		Name:       f.Name,
		Access:     model.AccessPublic,
		IsExternC:  f.IsExternC,
		IsBuiltin:  f.IsBuiltin,
		ClassName:  parentName(f.QualifiedName, f.Name),
		ReturnType: n.Type(f.ReturnType),
	}
	n.addParameters(&m, f.Params, f.IsVariadic)
	return m
}

// parentName strips name and its scope separator off the qualified name,
// yielding "::" for the global scope.
func parentName(qualified, name string) string {
	if qualified == name || len(qualified) < len(name)+2 {
		return "::"
	}
	return qualified[:len(qualified)-len(name)-2]
}

var unbindableOperators = map[string]bool{
	",":   true,
	"->*": true,
}

// Operator rebinds a free operator function onto the class named by its
// first parameter, which must be a reference. The first parameter is
// removed and lends its const-ness to the method.
func (n *Normalizer) Operator(f *frontend.FunctionDecl) (model.Method, bool) {
	if !f.IsOverloadedOperator() || unbindableOperators[f.Operator] || f.IsDeleted {
		return model.Method{}, false
	}
	if len(f.Params) == 0 || !f.Params[0].Type.IsReference() {
		return model.Method{}, false
	}

	m := model.Method{
		Kind:       model.MethodOperator,
		Name:       f.Name,
		Access:     model.AccessPublic,
		IsExternC:  f.IsExternC,
		IsBuiltin:  f.IsBuiltin,
		ReturnType: n.Type(f.ReturnType),
	}
	n.addParameters(&m, f.Params, f.IsVariadic)

	self := m.Arguments[0]
	m.ClassName = self.BaseName
	m.IsConst = self.IsConst
	m.Arguments = m.Arguments[1:]

	m.FirstDefaultArgument = nil
	for i, a := range m.Arguments {
		if a.HasDefault {
			idx := i
			m.FirstDefaultArgument = &idx
			break
		}
	}
	return m, true
}
