package domain

import "errors"

// Sentinel errors. Services wrap them with context; the HTTP layer maps them
// to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Alert lifecycle errors.
var (
	// ErrInvalidTransition is returned when an alert has already left active.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNoContacts is returned by a targeted notify when the creator has
	// saved no emergency contacts.
	ErrNoContacts = errors.New("no emergency contacts")
)
