package tracker

import (
	"errors"
	"fmt"
)

// ErrSubjectNotFound is returned when an operation names an unknown subject.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrRecordNotFound is returned when an operation names an unknown record.
var ErrRecordNotFound = errors.New("attendance record not found")

// RemoteWriteError wraps a failed (or empty-result) authenticated remote
// write. It always propagates to the caller: in-memory and cached state for
// the entity stays untouched so local state never runs ahead of the
// authoritative store.
type RemoteWriteError struct {
	Op  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s failed: server returned no result", e.Op)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// UserMessage returns the caller-facing description of the failure.
func (e *RemoteWriteError) UserMessage() string {
	return "Could not save your change to the server. Please check your connection and try again."
}

func remoteErr(op string, err error) *RemoteWriteError {
	return &RemoteWriteError{Op: op, Err: err}
}
