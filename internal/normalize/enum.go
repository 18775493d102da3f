package normalize

import (
	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

// Enum normalizes an enum declaration, or an alias of one, into doc.Enums
// under name. An alias of a flags template around an enum yields a flags
// enum. It reports false for any other alias shape.
func (n *Normalizer) Enum(doc *model.Document, name string, decl frontend.Decl) bool {
	switch d := decl.(type) {
	case *frontend.EnumDecl:
		doc.Enums.Set(name, n.enumFrom(name, d))
		return true
	case *frontend.TypedefDecl:
		target := d.Target.Canonical()
		if target.Kind == frontend.TypeEnum && target.Enum != nil {
			doc.Enums.Set(name, n.enumFrom(name, target.Enum))
			return true
		}
		if !target.IsSpecialization() || !n.isFlagsTemplate(target.Name) {
			return false
		}
		if len(target.Args) != 1 {
			return false
		}
		arg := target.Args[0]
		if arg.Kind != frontend.TemplateArgType || arg.Type == nil {
			return false
		}
		inner := arg.Type.Canonical()
		if inner.Kind != frontend.TypeEnum || inner.Enum == nil {
			return false
		}
		e := n.enumFrom(name, inner.Enum)
		e.IsFlags = true
		doc.Enums.Set(name, e)
		return true
	}
	return false
}

func (n *Normalizer) enumFrom(name string, d *frontend.EnumDecl) model.Enum {
	e := model.Enum{Name: name, Type: "int"}
	if d.Underlying.Kind != frontend.TypeUnknown {
		e.Type = d.Underlying.Unqualified().Spelling()
	}
	for _, c := range d.Constants {
		e.Values.Set(c.Name, c.Value)
	}
	return e
}
