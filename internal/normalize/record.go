package normalize

import (
	"fmt"

	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

type recordJob struct {
	key       string
	name      string
	decl      *frontend.RecordDecl
	anonymous bool
}

// Record normalizes the class definition decl under key, then every
// anonymous record nested in it. Anonymous enums go to doc.Enums.
func (n *Normalizer) Record(doc *model.Document, key string, decl *frontend.RecordDecl) {
	stack := []recordJob{{key: key, name: decl.QualifiedName, decl: decl}}
	for len(stack) > 0 {
		job := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		class, nested := n.runOnRecord(doc, job)
		doc.Classes.Set(job.key, class)

		// Reverse so nested records come off the stack in declaration order.
		for i := len(nested) - 1; i >= 0; i-- {
			stack = append(stack, nested[i])
		}
	}
}

// nameAnonymous hands out UnnamedN names for the anonymous members of decl,
// scoped under the enclosing class name.
func (n *Normalizer) nameAnonymous(doc *model.Document, scope string, decl *frontend.RecordDecl) []recordJob {
	var jobs []recordJob
	counter := 0
	for _, member := range decl.Members {
		switch d := member.(type) {
		case *frontend.RecordDecl:
			if !d.IsAnonymous() || !d.IsDefinition {
				continue
			}
			name := fmt.Sprintf("%s::Unnamed%d", scope, counter)
			counter++
			if _, seen := n.anonRecords[d]; seen {
				continue
			}
			n.anonRecords[d] = name
			jobs = append(jobs, recordJob{key: name, name: name, decl: d, anonymous: true})
		case *frontend.EnumDecl:
			if !d.IsAnonymous() {
				continue
			}
			name := fmt.Sprintf("%s::Unnamed%d", scope, counter)
			counter++
			if _, seen := n.anonEnums[d]; seen {
				continue
			}
			n.anonEnums[d] = name
			e := n.enumFrom(name, d)
			e.IsAnonymous = true
			doc.Enums.Set(name, e)
		}
	}
	return jobs
}

func (n *Normalizer) runOnRecord(doc *model.Document, job recordJob) (model.Class, []recordJob) {
	d := job.decl
	c := model.NewClass(job.name)
	c.IsAnonymous = job.anonymous
	c.Kind = typeKind(d.Tag)
	c.HasDefaultConstructor = d.HasDefaultConstructor && n.defaultConstructible(n.spelling(d.Type()))
	c.HasCopyConstructor = d.HasCopyConstructorWithConstParam
	c.IsAbstract = d.IsAbstract

	bits := d.SizeBits
	if d.AlignRequired {
		bits += d.AlignBits
	}
	c.ByteSize = bits / 8

	for _, base := range d.Bases {
		c.Bases = append(c.Bases, model.BaseClass{
			IsVirtual:            base.IsVirtual,
			InheritedConstructor: base.InheritsConstructors,
			Name:                 base.Name,
			Access:               access(base.Access),
		})
	}

	nested := n.nameAnonymous(doc, job.name, d)

	isSignal := false
	for _, member := range d.Members {
		switch m := member.(type) {
		case *frontend.AccessSpecDecl:
			isSignal = n.isSignalMarker(m.Spelling)
		case *frontend.MethodDecl:
			n.runOnMethod(&c, m, isSignal)
		case *frontend.FieldDecl:
			c.Fields = append(c.Fields, n.field(m))
		case *frontend.VarDecl:
			if m.IsStaticMember {
				c.Fields = append(c.Fields, n.staticField(m))
			}
		}
	}
	return c, nested
}

func typeKind(tag frontend.TagKind) model.TypeKind {
	switch tag {
	case frontend.TagStruct:
		return model.KindStruct
	case frontend.TagUnion:
		return model.KindUnion
	case frontend.TagInterface:
		return model.KindInterface
	}
	return model.KindClass
}

func access(a frontend.Access) model.Access {
	switch a {
	case frontend.AccessProtected:
		return model.AccessProtected
	case frontend.AccessPrivate:
		return model.AccessPrivate
	}
	return model.AccessPublic
}

func (n *Normalizer) runOnMethod(c *model.Class, m *frontend.MethodDecl, isSignal bool) {
	if m.IsDeleted {
		n.logger.Printf("%s: skipping deleted method %s", c.Name, m.Name)
		return
	}

	meth := model.Method{
		Name:      m.Name,
		Access:    access(m.Access),
		IsConst:   m.IsConst,
		IsVirtual: m.IsVirtual,
		IsPure:    m.IsPure,
		IsBuiltin: m.IsBuiltin,
		ClassName: c.Name,
	}

	switch m.Kind {
	case frontend.MethodDtor:
		c.IsDestructible = m.Access != frontend.AccessPrivate
		return
	case frontend.MethodCtor:
		if m.IsMoveConstructor {
			n.logger.Printf("%s: skipping move constructor", c.Name)
			return
		}
		meth.Kind = model.MethodConstructor
		if m.IsCopyConstructor {
			meth.Kind = model.MethodCopyConstructor
		}
	default:
		meth.Kind = model.MethodMember
		if m.IsStatic {
			meth.Kind = model.MethodStatic
		}
		switch {
		case m.IsOverloadedOperator():
			meth.Kind = model.MethodOperator
		case m.Kind == frontend.MethodConversion:
			meth.Kind = model.MethodConversionOperator
		case isSignal && meth.Kind == model.MethodMember && m.IsUserProvided():
			meth.Kind = model.MethodSignal
		}
	}

	meth.ReturnType = n.Type(m.ReturnType)
	n.addParameters(&meth, m.Params, m.IsVariadic)
	c.Methods = append(c.Methods, meth)
}

// Argument converts one parameter, folding its default value if any.
func (n *Normalizer) Argument(p frontend.ParamDecl) model.Argument {
	arg := model.Argument{
		Type:       n.Type(p.Type),
		Name:       p.Name,
		HasDefault: p.Default != nil,
	}
	if arg.HasDefault {
		arg.Value = n.Value(p.Type, p.Default)
	}
	return arg
}

func (n *Normalizer) addParameters(m *model.Method, params []frontend.ParamDecl, variadic bool) {
	m.Arguments = make([]model.Argument, 0, len(params)+1)
	for i, p := range params {
		arg := n.Argument(p)
		if arg.HasDefault && m.FirstDefaultArgument == nil {
			idx := i
			m.FirstDefaultArgument = &idx
		}
		m.Arguments = append(m.Arguments, arg)
	}
	if variadic {
		m.Arguments = append(m.Arguments, model.VariadicArgument())
	}
}

func (n *Normalizer) field(f *frontend.FieldDecl) model.Field {
	out := model.Field{
		Type:   n.Type(f.Type),
		Access: access(f.Access),
		Name:   f.Name,
	}
	if f.BitWidth != nil {
		width := *f.BitWidth
		out.BitField = &width
	}
	n.fieldDefault(&out, f.Type, f.Init)
	return out
}

func (n *Normalizer) staticField(v *frontend.VarDecl) model.Field {
	out := model.Field{
		Type:     n.Type(v.Type),
		Access:   access(v.Access),
		Name:     v.Name,
		IsStatic: true,
	}
	n.fieldDefault(&out, v.Type, v.Init)
	return out
}

// fieldDefault only folds arithmetic initializers; string and pointer
// initializers stay empty.
func (n *Normalizer) fieldDefault(out *model.Field, qt frontend.QualType, init *frontend.Expr) {
	if init == nil {
		return
	}
	out.HasDefault = true
	if qt.IsArithmetic() {
		out.Value = n.Value(qt, init)
	}
}
