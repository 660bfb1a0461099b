package usecase

import (
	"errors"
	"fmt"

	"FinBrief/internal/domain/models"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyTranscript = errors.New("empty transcript")
	ErrEmptyBrief      = errors.New("empty brief")
	ErrStageTimeout    = errors.New("stage timeout")
)

// PipelineError reports the stage that stopped a request.
type PipelineError struct {
	Stage models.Stage
	Cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func stageError(stage models.Stage, cause error) *PipelineError {
	return &PipelineError{Stage: stage, Cause: cause}
}

// StageOf returns the failed stage of err, if it is a PipelineError.
func StageOf(err error) (models.Stage, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}
