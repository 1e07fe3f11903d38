package pipeline

import (
	"fmt"

	"github.com/photodrop/backend/internal/models"
)

// StageError is a batch-fatal failure from one pipeline stage. It carries
// the name of the file that failed so the caller can surface a single
// user-facing diagnostic for the whole aborted batch.
type StageError struct {
	Kind     models.ErrorKind
	FileName string
	Err      error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.FileName, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.FileName)
}

func (e *StageError) Unwrap() error { return e.Err }

// Message returns the user-facing message for the failure.
func (e *StageError) Message() string { return e.Kind.Message() }

func newStageError(kind models.ErrorKind, fileName string, err error) *StageError {
	return &StageError{Kind: kind, FileName: fileName, Err: err}
}
