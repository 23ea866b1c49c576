package service

import (
	"fmt"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
)

// ErrForbidden is returned when the actor may not touch the reservation.
var ErrForbidden = repository.ErrForbidden

// ValidationError is a user-correctable rejection: bad input, an invalid
// service combination or a failed availability check.
type ValidationError struct {
	Reason  string
	Check   scheduling.Check // empty for input errors
	Details *scheduling.Details
	Err     error
}

func (e *ValidationError) Error() string { return e.Reason }
func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError means a concurrent writer took the slot after this
// request passed validation.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string { return e.Reason }
func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError reports a missing service, seat, barber, shop hours row or
// reservation.
type NotFoundError struct {
	Resource string
	ID       any
	Err      error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %v not found", e.Resource, e.ID) }
func (e *NotFoundError) Unwrap() error { return e.Err }

// StateError is an illegal status transition.
type StateError struct {
	From   model.Status
	To     model.Status
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot change reservation status from %s to %s", e.From, e.To)
}

// SystemError wraps an unexpected storage or infrastructure failure.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *SystemError) Unwrap() error { return e.Err }

func systemErr(op string, err error) error { return &SystemError{Op: op, Err: err} }

func invalid(reason string, err error) error { return &ValidationError{Reason: reason, Err: err} }

func rejected(r scheduling.Result) error {
	return &ValidationError{Reason: r.Reason, Check: r.Check, Details: r.Details}
}
