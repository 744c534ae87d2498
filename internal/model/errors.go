package model

import "errors"

var (
	// ErrNotConfigured means no backing store is set; callers fall back to local-only state.
	ErrNotConfigured = errors.New("backing store not configured")
	ErrNotFound      = errors.New("not found")
	// ErrConflict is returned when a room already has a different guest.
	ErrConflict = errors.New("conflict")
	// ErrTransientIO covers network and timeout failures; the next poll retries.
	ErrTransientIO = errors.New("transient io failure")
	ErrValidation  = errors.New("validation failed")
)
