package model

import "errors"

var (
	// Session related errors
	ErrInvalidRole     = errors.New("invalid role")
	ErrSessionNotFound = errors.New("session not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Catalog related errors
	ErrHotelNotFound = errors.New("hotel not found")
	ErrRoomNotFound  = errors.New("room not found")

	// Booking related errors
	ErrDraftNotFound = errors.New("booking draft not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
