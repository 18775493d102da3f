package normalize

import (
	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

// Type flattens qt: every pointer or reference layer adds to the pointer
// depth, and the innermost non-indirect type supplies the base name.
func (n *Normalizer) Type(qt frontend.QualType) model.Type {
	var t model.Type
	n.fillType(&t, qt)
	return t
}

func (n *Normalizer) fillType(t *model.Type, qt frontend.QualType) {
	// The full name describes the type as written, so it is taken once.
	if t.FullName == "" {
		t.FullName = n.spelling(qt)
	}

	c := qt.Canonical()
	switch c.Kind {
	case frontend.TypePointer, frontend.TypeLValueRef, frontend.TypeRValueRef:
		t.IsReference = t.IsReference || c.Kind != frontend.TypePointer
		t.IsMove = t.IsMove || c.Kind == frontend.TypeRValueRef
		t.PointerDepth++
		if c.Elem != nil {
			n.fillType(t, *c.Elem)
		}
		return
	}

	if c.IsSpecialization() {
		t.Template = n.template(c)
	}

	t.IsConst = c.Const
	t.IsVoid = qt.IsVoid()
	t.IsBuiltin = qt.IsBuiltin()
	t.BaseName = n.spelling(qt.Unqualified())
}

// template drops the whole template when any argument is not a type.
func (n *Normalizer) template(c frontend.QualType) *model.Template {
	tpl := &model.Template{
		BaseName:  n.renamed(c).Name,
		FullName:  n.spelling(c.Unqualified()),
		Arguments: []model.Type{},
	}
	for _, arg := range c.Args {
		if arg.Kind != frontend.TemplateArgType || arg.Type == nil {
			return nil
		}
		tpl.Arguments = append(tpl.Arguments, n.Type(*arg.Type))
	}
	return tpl
}

func (n *Normalizer) spelling(qt frontend.QualType) string {
	return n.renamed(qt).Spelling()
}

// renamed substitutes the synthetic names of anonymous records and enums
// anywhere inside qt.
func (n *Normalizer) renamed(qt frontend.QualType) frontend.QualType {
	if len(n.anonRecords) == 0 && len(n.anonEnums) == 0 {
		return qt
	}
	if qt.Record != nil {
		if name, ok := n.anonRecords[qt.Record]; ok {
			qt.Name = name
		}
	}
	if qt.Enum != nil {
		if name, ok := n.anonEnums[qt.Enum]; ok {
			qt.Name = name
		}
	}
	if qt.Elem != nil && qt.Kind != frontend.TypeEnum {
		elem := n.renamed(*qt.Elem)
		qt.Elem = &elem
	}
	if qt.Args != nil {
		args := make([]frontend.TemplateArg, len(qt.Args))
		for i, a := range qt.Args {
			args[i] = a
			if a.Type != nil {
				at := n.renamed(*a.Type)
				args[i].Type = &at
			}
		}
		qt.Args = args
	}
	return qt
}
