package pipeline

import (
	"io"
	"log"

	"golang.org/x/exp/maps"

	"bindgen/internal/frontend"
	"bindgen/internal/model"
	"bindgen/internal/normalize"
	"bindgen/internal/pattern"
)

// Config selects the declarations a run inspects.
type Config struct {
	Classes   []string
	Enums     []string
	Functions *pattern.Matcher
	Macros    *pattern.Matcher
	Normalize normalize.Options
}

// State is threaded through every pass. The Document is the only output;
// the rest is bookkeeping shared between passes.
type State struct {
	Source frontend.Source
	Doc    *model.Document
	Config Config
	Logger *log.Logger

	// gathered holds type info read from the sources themselves.
	gathered   map[string]normalize.TypeInfo
	normalizer *normalize.Normalizer
	// registry maps qualified class names to their Document keys.
	registry map[string]string
}

func NewState(src frontend.Source, cfg Config, logger *log.Logger) *State {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &State{
		Source:   src,
		Doc:      model.NewDocument(),
		Config:   cfg,
		Logger:   logger,
		gathered: make(map[string]normalize.TypeInfo),
		registry: make(map[string]string),
	}
}

// Normalizer returns the run's normalizer, creating it on first use. Type
// info from configuration overrides what was gathered from the sources.
func (s *State) Normalizer() *normalize.Normalizer {
	if s.normalizer != nil {
		return s.normalizer
	}
	opts := s.Config.Normalize
	merged := make(map[string]normalize.TypeInfo, len(s.gathered)+len(opts.TypeInfo))
	maps.Copy(merged, s.gathered)
	maps.Copy(merged, opts.TypeInfo)
	opts.TypeInfo = merged

	s.normalizer = normalize.New(s.Source.Evaluator(), opts, s.Logger)
	return s.normalizer
}

// TypeInfo returns the effective override table.
func (s *State) TypeInfo() map[string]normalize.TypeInfo {
	return maps.Clone(s.Normalizer().Options().TypeInfo)
}

func (s *State) register(qualified, key string) {
	if _, ok := s.registry[qualified]; !ok {
		s.registry[qualified] = key
	}
}

// classKey finds the Document key of the class a type refers to, looking
// first at the record it resolves to, then at the spelled name.
func (s *State) classKey(t frontend.QualType, spelled string) (string, bool) {
	if rec := t.Canonical().Record; rec != nil {
		if key, ok := s.registry[rec.QualifiedName]; ok {
			return key, true
		}
	}
	if key, ok := s.registry[spelled]; ok {
		return key, true
	}
	if s.Doc.Classes.Has(spelled) {
		return spelled, true
	}
	return "", false
}
