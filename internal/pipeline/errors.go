package pipeline

import "fmt"

// PipelineFault is a run-level failure: storage unreachable, window
// undeterminable, fetch step failed. These abort the run and surface to
// the operator, unlike per-record analysis failures which only land in
// the stats.
type PipelineFault struct {
	Stage string
	Cause error
}

func (e *PipelineFault) Error() string {
	return fmt.Sprintf("pipeline fault at %s: %v", e.Stage, e.Cause)
}

func (e *PipelineFault) Unwrap() error { return e.Cause }
