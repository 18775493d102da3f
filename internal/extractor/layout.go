package extractor

import (
	"strings"

	"bindgen/internal/frontend"
)

// recordFacts is what derived classes need to know about a complete record.
type recordFacts struct {
	// virtuals and pure hold method signatures, inherited ones included.
	virtuals map[string]bool
	pure     map[string]bool
	dynamic  bool
	empty    bool
}

// signature identifies a method for overriding. Destructors share one.
func signature(m *frontend.MethodDecl) string {
	if m.Kind == frontend.MethodDtor {
		return "~"
	}
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Type.Canonical().Spelling())
	}
	sb.WriteByte(')')
	if m.IsConst {
		sb.WriteString("const")
	}
	return sb.String()
}

// complete runs once the body of rec has been read: it settles overriding,
// the implicit member predicates and the layout.
func (b *builder) complete(rec *frontend.RecordDecl, alignas int) {
	f := &recordFacts{virtuals: make(map[string]bool), pure: make(map[string]bool)}
	for _, base := range rec.Bases {
		if base.IsVirtual {
			f.dynamic = true
		}
		bf := b.baseFacts(base)
		if bf == nil {
			continue
		}
		f.dynamic = f.dynamic || bf.dynamic
		for k := range bf.virtuals {
			f.virtuals[k] = true
		}
		for k := range bf.pure {
			f.pure[k] = true
		}
	}

	for _, d := range rec.Members {
		m, ok := d.(*frontend.MethodDecl)
		if !ok || m.IsStatic || m.Kind == frontend.MethodCtor {
			continue
		}
		key := signature(m)
		if f.virtuals[key] {
			m.IsVirtual = true
		}
		if !m.IsVirtual {
			continue
		}
		f.virtuals[key] = true
		f.dynamic = true
		if m.IsPure {
			f.pure[key] = true
		} else {
			delete(f.pure, key)
		}
	}
	rec.IsAbstract = len(f.pure) > 0

	rec.HasDefaultConstructor = b.hasDefaultConstructor(rec)
	rec.HasCopyConstructorWithConstParam = b.hasConstCopyConstructor(rec)

	f.empty = !f.dynamic
	for _, base := range rec.Bases {
		if bf := b.baseFacts(base); bf == nil || !bf.empty {
			f.empty = false
		}
	}
	for _, d := range rec.Members {
		if fd, ok := d.(*frontend.FieldDecl); ok && (fd.BitWidth == nil || *fd.BitWidth > 0) {
			f.empty = false
		}
	}

	b.layout(rec, f, alignas)
	b.facts[rec] = f
}

func (b *builder) baseFacts(base frontend.BaseSpec) *recordFacts {
	if base.Type.Canonical().Record == nil {
		return nil
	}
	return b.facts[base.Type.Canonical().Record]
}

func methods(rec *frontend.RecordDecl) []*frontend.MethodDecl {
	var out []*frontend.MethodDecl
	for _, d := range rec.Members {
		if m, ok := d.(*frontend.MethodDecl); ok {
			out = append(out, m)
		}
	}
	return out
}

// subobjects lists the types of the bases and non-static fields of rec,
// arrays reduced to their elements.
func subobjects(rec *frontend.RecordDecl) []frontend.QualType {
	var out []frontend.QualType
	for _, base := range rec.Bases {
		out = append(out, base.Type)
	}
	for _, d := range rec.Members {
		if fd, ok := d.(*frontend.FieldDecl); ok {
			t := fd.Type.Canonical()
			for t.Kind == frontend.TypeArray && t.Elem != nil {
				t = t.Elem.Canonical()
			}
			out = append(out, t)
		}
	}
	return out
}

// hasDefaultConstructor: a declared constructor callable without arguments,
// or, with no constructor declared, an implicit one that is not deleted.
func (b *builder) hasDefaultConstructor(rec *frontend.RecordDecl) bool {
	declared := false
	for _, m := range methods(rec) {
		if m.Kind != frontend.MethodCtor {
			continue
		}
		declared = true
		if m.IsDeleted {
			continue
		}
		callable := true
		for _, p := range m.Params {
			if p.Default == nil {
				callable = false
			}
		}
		if callable {
			return true
		}
	}
	if declared {
		return false
	}

	for _, d := range rec.Members {
		fd, ok := d.(*frontend.FieldDecl)
		if !ok || fd.Init != nil {
			continue
		}
		t := fd.Type.Canonical()
		if t.Kind == frontend.TypeLValueRef || t.Kind == frontend.TypeRValueRef {
			return false
		}
		if t.Const && t.Kind != frontend.TypeRecord && rec.Tag != frontend.TagUnion {
			return false
		}
	}
	for _, t := range subobjects(rec) {
		if r := t.Canonical().Record; r != nil && r.IsDefinition && !r.HasDefaultConstructor {
			return false
		}
	}
	return true
}

// hasConstCopyConstructor follows the declared copy constructors, or the
// parameter the implicit one would get.
func (b *builder) hasConstCopyConstructor(rec *frontend.RecordDecl) bool {
	declared := false
	for _, m := range methods(rec) {
		if !m.IsCopyConstructor {
			continue
		}
		declared = true
		if m.Params[0].Type.Pointee().Const {
			return true
		}
	}
	if declared {
		return false
	}
	for _, t := range subobjects(rec) {
		if r := t.Canonical().Record; r != nil && r.IsDefinition && !r.HasCopyConstructorWithConstParam {
			return false
		}
	}
	return true
}

// sizeAlign is the size and alignment in bytes of t under LP64.
func (b *builder) sizeAlign(t frontend.QualType) (int, int) {
	c := t.Canonical()
	switch c.Kind {
	case frontend.TypeBuiltin:
		switch c.Builtin {
		case frontend.BuiltinVoid:
			return 1, 1
		case frontend.BuiltinLongDouble, frontend.BuiltinFloat128, frontend.BuiltinInt128, frontend.BuiltinUInt128:
			return 16, 16
		}
		n := c.Builtin.Bits() / 8
		return n, n
	case frontend.TypePointer, frontend.TypeLValueRef, frontend.TypeRValueRef:
		return 8, 8
	case frontend.TypeEnum:
		return b.sizeAlign(c.EnumUnderlying())
	case frontend.TypeArray:
		if c.Elem == nil {
			return 0, 1
		}
		size, align := b.sizeAlign(*c.Elem)
		return size * max(c.Len, 0), align
	case frontend.TypeRecord:
		if r := c.Record; r != nil && r.IsDefinition && r.AlignBits > 0 {
			return r.SizeBits / 8, r.AlignBits / 8
		}
	}
	return 8, 8
}

func alignUp(v, a int) int {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

// layout computes the Itanium-style size and alignment of rec. Empty bases
// take no space; bit-fields share storage units of their declared type
// unless they would straddle one.
func (b *builder) layout(rec *frontend.RecordDecl, f *recordFacts, alignas int) {
	bits, align := 0, 1

	ownVptr := f.dynamic
	for _, base := range rec.Bases {
		if bf := b.baseFacts(base); bf != nil && bf.dynamic && !base.IsVirtual {
			ownVptr = false
		}
	}
	if ownVptr {
		bits, align = 64, 8
	}

	place := func(size, al int) {
		align = max(align, al)
		if rec.Tag == frontend.TagUnion {
			bits = max(bits, size*8)
			return
		}
		bits = alignUp(bits, al*8) + size*8
	}

	for _, base := range rec.Bases {
		if base.IsVirtual {
			continue
		}
		size, al := b.sizeAlign(base.Type)
		if bf := b.baseFacts(base); bf != nil && bf.empty {
			align = max(align, al)
			continue
		}
		place(size, al)
	}

	for _, d := range rec.Members {
		fd, ok := d.(*frontend.FieldDecl)
		if !ok {
			continue
		}
		size, al := b.sizeAlign(fd.Type)
		if fd.BitWidth == nil {
			place(size, al)
			continue
		}

		width, unit := *fd.BitWidth, size*8
		if rec.Tag == frontend.TagUnion {
			bits = max(bits, alignUp(width, 8))
			align = max(align, al)
			continue
		}
		switch {
		case width == 0:
			bits = alignUp(bits, unit)
			continue
		case unit > 0 && bits/unit != (bits+width-1)/unit:
			bits = alignUp(bits, unit)
		}
		bits += width
		align = max(align, al)
	}

	for _, base := range rec.Bases {
		if base.IsVirtual {
			place(b.sizeAlign(base.Type))
		}
	}

	if bits == 0 {
		bits = 8
	}
	if alignas > align {
		align = alignas
	}
	rec.AlignRequired = alignas > 0
	rec.AlignBits = align * 8
	rec.SizeBits = alignUp(bits, align*8)
}
