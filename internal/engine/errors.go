package engine

import (
	"errors"
	"fmt"
)

// ErrMissingPrior is the sentinel wrapped by every *PipelineError.
var ErrMissingPrior = errors.New("engine: prior pass output missing")

// PipelineError reports that a pass cannot locate the spectrum of the pass
// it extends. This is fatal: Birth and Merger are meaningless without their
// predecessor's accumulated spectrum.
type PipelineError struct {
	Pass     Pass // the pass that could not start
	Requires Pass // the pass whose output is missing
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("engine: %s pass requires the completed %s spectrum", e.Pass, e.Requires)
}

func (e *PipelineError) Unwrap() error { return ErrMissingPrior }
