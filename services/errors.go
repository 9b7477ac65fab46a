package services

import "errors"

var (
	// ErrValidation marks input rejected locally, before any network call
	ErrValidation = errors.New("validation error")

	// ErrItemNotFound is returned for operations on an id the catalog does not track
	ErrItemNotFound = wrapSentinel(ErrValidation, "item not found")

	// ErrClosed is returned once the catalog has been shut down
	ErrClosed = wrapSentinel(ErrValidation, "catalog closed")

	// ErrDuplicate is returned when adding an item whose id is already tracked
	ErrDuplicate = errors.New("item already added")

	// ErrRemoteRequest wraps failures of resolve_info and start calls
	ErrRemoteRequest = errors.New("remote request failed")

	// ErrArtifactNotReady is returned when fetching an artifact before the job finished
	ErrArtifactNotReady = errors.New("artifact not ready")
)

type sentinel struct {
	parent error
	msg    string
}

func wrapSentinel(parent error, msg string) error {
	return &sentinel{parent: parent, msg: msg}
}

func (e *sentinel) Error() string { return e.msg }
func (e *sentinel) Unwrap() error { return e.parent }
