package tracker

import "errors"

var (
	ErrSessionNotFound   = errors.New("no live session for bout")
	ErrInvalidTransition = errors.New("operation not allowed in the current phase")
	ErrInvalidLineup     = errors.New("invalid lineup")
	ErrNoPreviousJam     = errors.New("there is no previous jam to return to")
	ErrBoutComplete      = errors.New("bout is already complete")
	ErrBoutCancelled     = errors.New("bout has been cancelled")

	// ErrScoreWriteFailed is returned when folding the jam tally into the bout
	// score could not be persisted. The session is left in the jam it was in.
	ErrScoreWriteFailed = errors.New("failed to persist bout score")
	// ErrStatusWriteFailed is returned when the bout could not be marked
	// completed. The session stays open between jams.
	ErrStatusWriteFailed = errors.New("failed to persist bout status")
)
