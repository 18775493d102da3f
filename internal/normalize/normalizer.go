package normalize

import (
	"io"
	"log"
	"slices"
	"strings"

	"bindgen/internal/frontend"
)

// TypeInfo corrects what the front end cannot decide structurally.
type TypeInfo struct {
	IsDefaultConstructible *bool `yaml:"isDefaultConstructible"`
}

// Options tune the conventions the normalizers recognize.
type Options struct {
	// StringClasses are the qualified class names whose constructions are
	// read back as string literals.
	StringClasses []string
	// FlagsTemplates name the single-argument templates that mark an enum
	// as a bit-flag set.
	FlagsTemplates []string
	// SignalMarkers are the access-label spellings that open a signal section.
	SignalMarkers []string
	// TypeInfo is keyed by the fully qualified type name.
	TypeInfo map[string]TypeInfo
}

func DefaultOptions() Options {
	return Options{
		StringClasses: []string{
			"std::string",
			"std::basic_string",
			"std::__cxx11::basic_string",
			"std::__1::basic_string",
			"QString",
		},
		FlagsTemplates: []string{"QFlags"},
		SignalMarkers:  []string{"signals", "Q_SIGNALS"},
	}
}

// Normalizer turns front-end declarations into model entities. It holds the
// synthetic names handed out to anonymous types, so one Normalizer serves
// one run.
type Normalizer struct {
	eval   frontend.Evaluator
	opts   Options
	logger *log.Logger

	anonRecords map[*frontend.RecordDecl]string
	anonEnums   map[*frontend.EnumDecl]string
}

// New creates a Normalizer. A nil logger discards output.
func New(eval frontend.Evaluator, opts Options, logger *log.Logger) *Normalizer {
	if eval == nil {
		eval = frontend.ConstEvaluator{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Normalizer{
		eval:        eval,
		opts:        opts,
		logger:      logger,
		anonRecords: make(map[*frontend.RecordDecl]string),
		anonEnums:   make(map[*frontend.EnumDecl]string),
	}
}

func (n *Normalizer) isStringClass(name string) bool {
	return slices.Contains(n.opts.StringClasses, strings.TrimPrefix(name, "::"))
}

func (n *Normalizer) isFlagsTemplate(name string) bool {
	name = strings.TrimPrefix(name, "::")
	for _, t := range n.opts.FlagsTemplates {
		if frontend.MatchesName(name, t) {
			return true
		}
	}
	return false
}

// isSignalMarker compares the trimmed label spelling token-for-token.
func (n *Normalizer) isSignalMarker(spelling string) bool {
	spelling = strings.TrimSpace(spelling)
	if spelling == "" {
		return false
	}
	return slices.Contains(n.opts.SignalMarkers, spelling)
}

func (n *Normalizer) defaultConstructible(typeName string) bool {
	info, ok := n.opts.TypeInfo[typeName]
	if !ok || info.IsDefaultConstructible == nil {
		return true
	}
	return *info.IsDefaultConstructible
}

// Options returns the conventions the normalizer was built with.
func (n *Normalizer) Options() Options { return n.opts }
