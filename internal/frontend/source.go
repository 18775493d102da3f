package frontend

import "errors"

// ErrNoDefinition is returned when a configured name has no definition in
// the translation unit.
var ErrNoDefinition = errors.New("no definition found")

// Source is the declaration source consumed by the normalizers.
type Source interface {
	// Unit is the primary translation unit.
	Unit() *TranslationUnit
	// ParseSynthetic parses src in isolation, sharing the macro environment
	// of the primary unit. Diagnostics are suppressed; the primary unit is
	// never touched.
	ParseSynthetic(src string) (*TranslationUnit, error)
	Evaluator() Evaluator
}

// StaticSource serves a prebuilt unit. Synthetic parsing is delegated to
// Parse when set.
type StaticSource struct {
	TU    *TranslationUnit
	Eval  Evaluator
	Parse func(src string) (*TranslationUnit, error)
}

func (s *StaticSource) Unit() *TranslationUnit { return s.TU }

func (s *StaticSource) ParseSynthetic(src string) (*TranslationUnit, error) {
	if s.Parse == nil {
		return &TranslationUnit{}, nil
	}
	return s.Parse(src)
}

func (s *StaticSource) Evaluator() Evaluator {
	if s.Eval == nil {
		return ConstEvaluator{}
	}
	return s.Eval
}
