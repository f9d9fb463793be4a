package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Stage identifies which step of a run failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StagePersist Stage = "persist"
)

// ErrRunInProgress is returned when RunOnce is invoked while another run is
// still in flight; the later invocation no-ops.
var ErrRunInProgress = eris.New("pipeline: run already in progress")

// StageError reports a failed run with the stage that broke and the
// underlying cause. A StageError is never fatal to the host process.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
