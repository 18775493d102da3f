package pipeline

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"bindgen/internal/frontend"
	"bindgen/internal/model"
	"bindgen/internal/normalize"
)

// TypeInfoTemplate is the class template whose explicit specializations
// carry default-constructibility overrides in the sources:
//
//	template<> struct BindgenTypeInfo<Foo> {
//		static const bool isDefaultConstructible = false;
//	};
const TypeInfoTemplate = "BindgenTypeInfo"

type TypeInfoPass struct{}

func NewTypeInfoPass() *TypeInfoPass { return &TypeInfoPass{} }

func (p *TypeInfoPass) Name() string { return "typeinfo" }

func (p *TypeInfoPass) Run(s *State) (Stats, error) {
	var stats Stats
	tu := s.Source.Unit()
	if tu == nil {
		return stats, nil
	}

	// Reading types and values does not depend on type info, so a scratch
	// normalizer keeps the run's normalizer unbuilt until the table is full.
	n := normalize.New(s.Source.Evaluator(), s.Config.Normalize, s.Logger)
	boolType := frontend.Builtin(frontend.BuiltinBool)

	for _, d := range tu.Decls {
		spec, ok := d.(*frontend.SpecializationDecl)
		if !ok || !frontend.MatchesName(spec.Record.QualifiedName, TypeInfoTemplate) {
			continue
		}
		stats.Visited++

		args := spec.Record.TemplateArgs
		if len(args) != 1 || args[0].Kind != frontend.TemplateArgType || args[0].Type == nil {
			stats.Skipped++
			continue
		}
		key := n.Type(args[0].Type.Canonical().Unqualified()).FullName

		var info normalize.TypeInfo
		for _, m := range spec.Record.Members {
			v, ok := m.(*frontend.VarDecl)
			if !ok || v.Name != "isDefaultConstructible" {
				continue
			}
			lit := n.Value(boolType, v.Init)
			if lit.Kind() == model.LiteralBool {
				b := lit.Bool()
				info.IsDefaultConstructible = &b
			}
		}
		if info.IsDefaultConstructible == nil {
			stats.Skipped++
			continue
		}
		s.gathered[key] = info
		stats.Emitted++
	}

	keys := maps.Keys(s.gathered)
	slices.Sort(keys)
	for _, k := range keys {
		if _, overridden := s.Config.Normalize.TypeInfo[k]; overridden {
			s.Logger.Printf("type info for %s: configuration overrides the source", k)
		}
	}
	return stats, nil
}

type MacroCollectionPass struct{}

func NewMacroCollectionPass() *MacroCollectionPass { return &MacroCollectionPass{} }

func (p *MacroCollectionPass) Name() string { return "macros" }

func (p *MacroCollectionPass) Run(s *State) (Stats, error) {
	tu := s.Source.Unit()
	if tu == nil || !s.Config.Macros.Active() {
		return Stats{}, nil
	}
	s.Doc.Macros = s.Normalizer().Macros(tu.Macros, s.Config.Macros.Search)
	return Stats{
		Visited: len(tu.Macros),
		Emitted: len(s.Doc.Macros),
		Skipped: len(tu.Macros) - len(s.Doc.Macros),
	}, nil
}

// BasicPass normalizes the configured classes and enums and the matching
// free functions.
type BasicPass struct{}

func NewBasicPass() *BasicPass { return &BasicPass{} }

func (p *BasicPass) Name() string { return "basic" }

func (p *BasicPass) Run(s *State) (Stats, error) {
	var stats Stats
	tu := s.Source.Unit()
	if tu == nil {
		return stats, nil
	}
	n := s.Normalizer()

	for _, name := range s.Config.Classes {
		stats.Visited++
		decl := tu.FindRecord(name)
		if decl == nil {
			s.Logger.Print(fmt.Errorf("class %s: %w", name, frontend.ErrNoDefinition))
			stats.Skipped++
			continue
		}
		n.Record(s.Doc, name, decl)
		s.register(decl.QualifiedName, name)
		s.register(name, name)
		stats.Emitted++
	}

	for _, name := range s.Config.Enums {
		stats.Visited++
		decl := tu.FindEnumOrTypedef(name)
		if decl == nil {
			s.Logger.Print(fmt.Errorf("enum %s: %w", name, frontend.ErrNoDefinition))
			stats.Skipped++
			continue
		}
		if !n.Enum(s.Doc, name, decl) {
			s.Logger.Printf("enum %s: alias does not name an enum or a flags wrapper", name)
			stats.Skipped++
			continue
		}
		stats.Emitted++
	}

	if !s.Config.Functions.Active() {
		return stats, nil
	}
	for _, f := range tu.Functions() {
		stats.Visited++
		if f.IsDeleted || !s.Config.Functions.MatchFull(f.QualifiedName) {
			stats.Skipped++
			continue
		}
		s.Doc.Functions = append(s.Doc.Functions, n.Function(f))
		stats.Emitted++
	}
	return stats, nil
}

// OperatorPass attaches free operators to the classes found by the basic
// pass. It must run after it.
type OperatorPass struct{}

func NewOperatorPass() *OperatorPass { return &OperatorPass{} }

func (p *OperatorPass) Name() string { return "operators" }

func (p *OperatorPass) Run(s *State) (Stats, error) {
	var stats Stats
	tu := s.Source.Unit()
	if tu == nil || s.Doc.Classes.Len() == 0 {
		return stats, nil
	}
	n := s.Normalizer()

	for _, f := range tu.Functions() {
		if !f.IsOverloadedOperator() {
			continue
		}
		stats.Visited++
		m, ok := n.Operator(f)
		if !ok {
			stats.Skipped++
			continue
		}
		key, ok := s.classKey(f.Params[0].Type.Pointee(), m.ClassName)
		if !ok {
			stats.Skipped++
			continue
		}
		class := s.Doc.Classes.Ref(key)
		class.Methods = append(class.Methods, m)
		stats.Emitted++
	}
	return stats, nil
}

type MacroEvaluationPass struct{}

func NewMacroEvaluationPass() *MacroEvaluationPass { return &MacroEvaluationPass{} }

func (p *MacroEvaluationPass) Name() string { return "evaluate" }

func (p *MacroEvaluationPass) Run(s *State) (Stats, error) {
	var stats Stats
	for _, m := range s.Doc.Macros {
		if !m.IsFunction {
			stats.Visited++
		}
	}
	if stats.Visited == 0 {
		return stats, nil
	}

	if err := s.Normalizer().EvaluateMacros(s.Source, s.Doc.Macros); err != nil {
		return stats, fmt.Errorf("failed to evaluate macros: %w", err)
	}
	for _, m := range s.Doc.Macros {
		if m.HasEvaluation() {
			stats.Emitted++
		}
	}
	stats.Skipped = stats.Visited - stats.Emitted
	return stats, nil
}
