package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrNotReady           = errors.New("profile not ready")
	ErrInsufficientMerit  = errors.New("insufficient merit")
	ErrAlreadyCheckedIn   = errors.New("already checked in today")
	ErrHexagramGeneration = errors.New("hexagram generation failed")
)
