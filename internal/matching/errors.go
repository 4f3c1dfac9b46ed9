package matching

import "errors"

var (
	// ErrRequestNotFound is returned when a matching request does not exist
	// or is not owned by the calling user.
	ErrRequestNotFound = errors.New("matching request not found")

	// ErrSessionNotFound is returned when the originating scheduled session
	// does not exist.
	ErrSessionNotFound = errors.New("scheduled session not found")

	// ErrInvalidState is returned when an operation is attempted against a
	// row in the wrong lifecycle state, e.g. confirming an unmatched request
	// or starting matching on a cancelled session.
	ErrInvalidState = errors.New("invalid state for this operation")

	// ErrNotPresent is returned when enqueue is attempted while the user is
	// not on the waiting screen. The caller must re-establish presence and
	// retry.
	ErrNotPresent = errors.New("user is not actively waiting")

	// ErrNoQuestions is returned when the catalog cannot supply questions
	// for a confirmed pair. The pair is expired and re-queued.
	ErrNoQuestions = errors.New("no questions available for this interview type")
)
