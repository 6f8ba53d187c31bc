package domain

import "errors"

// Sentinel errors shared across services, repositories and delivery.
var (
	ErrInvalidInput = errors.New("invalid input")

	ErrEventNotFound = errors.New("event not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrRSVPNotFound  = errors.New("rsvp not found")

	ErrAlreadyRegistered = errors.New("user already has an rsvp for this event")
	ErrSelfRegistration  = errors.New("organizers cannot rsvp to their own events")
	ErrEventElapsed      = errors.New("cannot rsvp to past events")
	ErrEventUnpublished  = errors.New("cannot rsvp to unpublished events")

	// ErrConflict is returned by the store when a transaction lost a
	// serialization or lock race and may be retried.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrTransient is returned when a conflict persisted after the retry.
	ErrTransient = errors.New("temporary failure, try again")
)
