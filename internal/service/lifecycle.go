package service

import (
	"context"
	"errors"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/metrics"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
)

const defaultCancelReason = "No reason provided"

// CancelReservation cancels an active reservation.  Clients may cancel
// only their own reservations; admins may cancel any.
func (s *SchedulingService) CancelReservation(ctx context.Context, id uint64, actor model.Actor, reason string) (*model.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.Role != model.RoleSystem && res.UserID != actor.ID {
		return nil, ErrForbidden
	}
	if !res.Status.IsActive() {
		return nil, &StateError{From: res.Status, To: model.StatusCancelled,
			Reason: "Only active reservations can be cancelled."}
	}

	reason = trimmed(reason)
	if reason == "" {
		reason = defaultCancelReason
	}
	now := s.now().UTC().Truncate(time.Second)
	by := actor.ID
	from := res.Status
	err = s.store.ApplyStatusChange(ctx, id, repository.StatusChange{
		From:               from,
		To:                 model.StatusCancelled,
		CancellationReason: &reason,
		CancelledBy:        &by,
		CancelledAt:        &now,
	})
	if err != nil {
		return nil, s.writeErr(err, res, model.StatusCancelled)
	}
	res.Status = model.StatusCancelled
	res.CancellationReason, res.CancelledBy, res.CancelledAt = &reason, &by, &now
	metrics.IncTransition(string(model.StatusCancelled))

	role := res.CancelledByRole()
	s.record(ctx, actor.ID, model.AuditReservationCancelled, id, map[string]any{
		"previous_status":   string(from),
		"reason":            reason,
		"cancelled_by_role": string(role),
	})
	s.notify(ctx, model.EventReservationCancelled, res, map[string]any{
		"reason":        reason,
		"cancelled_by":  string(role),
		"notify_client": actor.ID != res.UserID,
	})
	return res, nil
}

// UpdateStatus applies an admin's generic status edit.  Cancellation is
// routed through CancelReservation.  A rescheduled reservation that is
// accepted can only be rescheduled again or cancelled.
func (s *SchedulingService) UpdateStatus(ctx context.Context, id uint64, to model.Status, actor model.Actor) (*model.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status.IsTerminal() {
		return nil, &StateError{From: res.Status, To: to,
			Reason: "This reservation is " + string(res.Status) + " and can no longer be changed."}
	}
	if to == model.StatusCancelled {
		return s.CancelReservation(ctx, id, actor, "")
	}
	if res.IsRescheduled && res.Status == model.StatusAccepted {
		return nil, &StateError{From: res.Status, To: to,
			Reason: "This reservation was rescheduled. Reschedule it again or cancel it instead."}
	}
	if !model.CanTransition(res.Status, to) {
		return nil, &StateError{From: res.Status, To: to}
	}

	from := res.Status
	ch := repository.StatusChange{From: from, To: to}
	if to == model.StatusCompleted {
		now := s.now().UTC().Truncate(time.Second)
		ch.CompletedAt = &now
	}
	if err := s.store.ApplyStatusChange(ctx, id, ch); err != nil {
		return nil, s.writeErr(err, res, to)
	}
	res.Status = to
	if ch.CompletedAt != nil {
		res.CompletedAt = ch.CompletedAt
	}
	metrics.IncTransition(string(to))

	details := map[string]any{"from": string(from), "to": string(to)}
	s.record(ctx, actor.ID, model.AuditReservationStatusUpdated, id, details)
	s.notify(ctx, model.EventReservationStatusChanged, res, details)
	return res, nil
}

// RescheduleReservation moves a reservation to a new local date and time.
// It is allowed from on_hold, and from accepted when the reservation was
// already rescheduled once.  The full booking rules are re-run against
// the new instant, ignoring the reservation itself.
func (s *SchedulingService) RescheduleReservation(ctx context.Context, id uint64, date, clock string, actor model.Actor) (*model.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(res.Status == model.StatusOnHold || (res.Status == model.StatusAccepted && res.IsRescheduled)) {
		return nil, &StateError{From: res.Status, To: model.StatusAccepted,
			Reason: "Only reservations on hold can be rescheduled."}
	}

	at, err := scheduling.LocalInstant(trimmed(date), trimmed(clock), s.validator.Location())
	if err != nil {
		return nil, invalid("Invalid date or time", err)
	}
	if at.Before(s.now()) {
		return nil, invalid("Please select a future date and time.", nil)
	}
	hours, err := s.hoursFor(ctx, at)
	if err != nil {
		return nil, err
	}
	window := scheduling.DayWindow(at)
	existing, err := s.store.ListActiveForBarber(ctx, res.BarberID, window)
	if err != nil {
		return nil, systemErr("load barber schedule", err)
	}
	cand := scheduling.Candidate{BarberID: res.BarberID, At: at, ExcludeID: res.ID}
	if r := s.validator.Validate(cand, existing, *hours); !r.Valid {
		metrics.IncValidationRejection(string(r.Check))
		return nil, rejected(r)
	}

	from := res.Status
	previous := res.ReservedAt
	err = s.store.Reschedule(ctx, id, from, at, window, func(active []model.Reservation) error {
		if r := s.validator.CheckExactSlot(cand, active); !r.Valid {
			return repository.ErrSlotTaken
		}
		if r := s.validator.CheckBuffer(cand, active); !r.Valid {
			return rejected(r)
		}
		return s.recheckHours(ctx, at)
	})
	if err != nil {
		var (
			ve *ValidationError
			nf *NotFoundError
			se *SystemError
		)
		switch {
		case errors.As(err, &ve):
			return nil, ve
		case errors.As(err, &nf):
			return nil, nf
		case errors.As(err, &se):
			return nil, se
		}
		return nil, s.writeErr(err, res, model.StatusAccepted)
	}
	res.Status = model.StatusAccepted
	res.IsRescheduled = true
	res.ReservedAt = at
	metrics.IncTransition("rescheduled")

	details := map[string]any{
		"previous_datetime": previous.UTC().Format(time.RFC3339),
		"new_datetime":      at.Format(time.RFC3339),
		"previous_status":   string(from),
	}
	s.record(ctx, actor.ID, model.AuditReservationRescheduled, id, details)
	s.notify(ctx, model.EventReservationRescheduled, res, details)
	return res, nil
}

func (s *SchedulingService) load(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, &NotFoundError{Resource: "reservation", ID: id, Err: err}
		}
		return nil, systemErr("load reservation", err)
	}
	return res, nil
}

// writeErr maps store errors from guarded writes.
func (s *SchedulingService) writeErr(err error, res *model.Reservation, to model.Status) error {
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		return &StateError{From: res.Status, To: to,
			Reason: "This reservation was changed by someone else. Please reload and try again."}
	case errors.Is(err, repository.ErrReservationNotFound):
		return &NotFoundError{Resource: "reservation", ID: res.ID, Err: err}
	case errors.Is(err, repository.ErrSlotTaken):
		return &ConflictError{Reason: msgSlotJustTaken, Err: err}
	}
	return systemErr("update reservation", err)
}
