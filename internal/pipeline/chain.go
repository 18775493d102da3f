package pipeline

// Stats counts what one pass looked at and what it produced.
type Stats struct {
	Visited int
	Emitted int
	Skipped int
}

// Pass is one step over the shared State. Passes run strictly in order;
// later passes may read what earlier ones wrote to the Document.
type Pass interface {
	Name() string
	Run(s *State) (Stats, error)
}

type StageResult struct {
	Pass          string
	Stats         Stats
	ClassesBefore int
	ClassesAfter  int
	EnumCount     int
	FunctionCount int
	MacroCount    int
	Err           error
}

type Chain struct {
	passes []Pass
}

func NewChain(passes ...Pass) *Chain {
	return &Chain{passes: passes}
}

// NewDefaultChain orders the passes by their data dependencies: type info
// feeds the basic pass, operators need the classes it registered, and macro
// evaluation runs last on a separate synthetic unit.
func NewDefaultChain() *Chain {
	return NewChain(
		NewTypeInfoPass(),
		NewMacroCollectionPass(),
		NewBasicPass(),
		NewOperatorPass(),
		NewMacroEvaluationPass(),
	)
}

// Run executes the passes until one fails.
func (c *Chain) Run(s *State) []StageResult {
	if s == nil {
		return nil
	}

	var out []StageResult
	for _, p := range c.passes {
		before := s.Doc.Classes.Len()
		stats, err := p.Run(s)
		out = append(out, StageResult{
			Pass:          p.Name(),
			Stats:         stats,
			ClassesBefore: before,
			ClassesAfter:  s.Doc.Classes.Len(),
			EnumCount:     s.Doc.Enums.Len(),
			FunctionCount: len(s.Doc.Functions),
			MacroCount:    len(s.Doc.Macros),
			Err:           err,
		})
		if err != nil {
			break
		}
	}
	return out
}
