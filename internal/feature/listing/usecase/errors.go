// Package usecase implements the listing lifecycle: ownership rules and the status state machine.
package usecase

import "errors"

var (
	// ErrListingNotFound is returned by stores when no listing has the given ID.
	ErrListingNotFound = errors.New("listing not found")

	// ErrStatusConflict is returned by stores when a conditional write finds the listing
	// in a status other than the expected one.
	ErrStatusConflict = errors.New("listing status changed")
)
