package services

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is the base error for access gate denials.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidPayload means the roster payload is structurally
	// malformed: "records" is absent or not a sequence. This is the one
	// validation performed before any per-record work.
	ErrInvalidPayload = errors.New("invalid payload: records must be a sequence")

	// ErrImportInProgress means another import run currently holds the
	// single-flight lock.
	ErrImportInProgress = errors.New("another import is already in progress")

	// ErrMemberNotFound means the targeted member does not exist in the
	// store.
	ErrMemberNotFound = errors.New("member not found")
)

// PermissionError carries the operation and level context of a gate denial.
// It matches ErrPermissionDenied under errors.Is.
type PermissionError struct {
	Operation Operation
	Required  int
	Actual    int
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: operation %q requires security level %d, caller has %d",
		e.Operation, e.Required, e.Actual)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// BatchCommitError reports a failed chunk commit. Prior chunks remain
// committed; Committed tells the caller how far the run got so a re-run
// decision can be made (safe, because keys are idempotent).
type BatchCommitError struct {
	Chunk     int // 1-based index of the chunk that failed
	Committed int // members committed before the failure
	Err       error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("batch %d failed after %d members committed: %v", e.Chunk, e.Committed, e.Err)
}

func (e *BatchCommitError) Unwrap() error {
	return e.Err
}
