package domain

import "errors"

var (
	// ErrNotFound is mapped to 404 by the HTTP adapter.
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	// ErrSessionClosed is returned for edits to a submitted session.
	ErrSessionClosed = errors.New("session closed")
	// ErrIncomplete wraps submission-time checks: N/A justifications and
	// required evidence.
	ErrIncomplete = errors.New("audit incomplete")
	// ErrTampered means a stored submission no longer reproduces its
	// calculation hash, grade, percentage or flag counts.
	ErrTampered = errors.New("submission failed verification")
)
