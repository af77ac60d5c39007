package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrInsufficientCredits   = errors.New("no credits available")
	ErrNoActiveSeason        = errors.New("no active season")
	ErrTransitionInProgress  = errors.New("season transition already in progress")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
