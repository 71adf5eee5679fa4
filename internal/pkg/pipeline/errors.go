package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the call does not exist
var ErrNotFound = errors.New("call not found")

// pipeline stage names used in stage errors
const (
	StageStorage       = "storage"
	StageTranscription = "transcription"
	StageAnalysis      = "analysis"
)

// InvalidStateError indicates a violated precondition, e.g. no audio uploaded
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return e.Reason
}

// StageError wraps a failure of one pipeline stage
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
