// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrSlotTaken is returned when another active reservation already holds
// the same barber and instant. It wraps ErrConflict.
var ErrSlotTaken = slotTakenError{}

// ErrStatusChanged is returned by guarded updates when the reservation is
// no longer in the status the caller read.
var ErrStatusChanged = errors.New("reservation status changed concurrently")

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrBarberNotFound      = errors.New("barber not found")
	ErrShopHoursNotFound   = errors.New("shop hours not found")
)

type slotTakenError struct{}

func (slotTakenError) Error() string { return "time slot already taken" }
func (slotTakenError) Unwrap() error { return ErrConflict }
