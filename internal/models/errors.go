package models

import "errors"

var (
	// ErrNotFound is returned when a portfolio, lot or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidLot is returned when a lot fails validation.
	ErrInvalidLot = errors.New("invalid lot")
	// ErrAmbiguousLot is returned when a lot id cannot be resolved to one
	// record of a position.
	ErrAmbiguousLot = errors.New("ambiguous lot")
	// ErrInvalidName is returned for empty or oversized portfolio names.
	ErrInvalidName = errors.New("invalid portfolio name")
	// ErrAlreadyExists is returned when creating a portfolio whose name is taken.
	ErrAlreadyExists = errors.New("already exists")
)
