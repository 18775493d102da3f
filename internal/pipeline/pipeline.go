package pipeline

import (
	"fmt"
	"io"
	"log"

	"bindgen/internal/frontend"
	"bindgen/internal/jsonout"
	"bindgen/internal/model"
)

// Result is the outcome of one run.
type Result struct {
	Document *model.Document
	Stages   []StageResult
}

// Run executes the default chain over src and serializes the Document to w
// exactly once. Nothing is written when a pass fails.
func Run(src frontend.Source, cfg Config, w io.Writer, logger *log.Logger) (*Result, error) {
	s := NewState(src, cfg, logger)
	res := &Result{Document: s.Doc}

	res.Stages = NewDefaultChain().Run(s)
	for _, stage := range res.Stages {
		if stage.Err != nil {
			return res, fmt.Errorf("%s pass failed: %w", stage.Pass, stage.Err)
		}
	}

	if err := jsonout.WriteDocument(w, s.Doc); err != nil {
		return res, fmt.Errorf("failed to write document: %w", err)
	}
	return res, nil
}
