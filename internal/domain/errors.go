package domain

import "errors"

var (
	// ErrValidation marks input rejected before any side effect.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for unknown campaigns.
	ErrNotFound = errors.New("not found")
	// ErrClosed marks mutations attempted on a terminal campaign.
	ErrClosed = errors.New("campaign closed")
	// ErrConflict marks operations invalid for the current campaign state.
	ErrConflict = errors.New("conflict")
)
