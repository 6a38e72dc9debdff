package triage

import (
	"errors"

	"github.com/kiranshivaraju/triage/pkg/models"
)

var (
	// ErrRepairFailed is matched by every *ValidationError.
	ErrRepairFailed = errors.New("triage output failed validation after repair")
	// ErrInvalidRequest is returned when a run request is rejected before any
	// model call is made.
	ErrInvalidRequest = errors.New("invalid triage request")
)

// ValidationError reports a run whose output could not be validated even
// after the single repair attempt. Trace is always complete and carries the
// REPAIR_FAILED flag.
type ValidationError struct {
	Message    string
	Violations []string
	Trace      models.RunTrace
	RunID      string

	// Model output kept for persistence and debugging.
	RawText      string
	RepairedText string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrRepairFailed }
