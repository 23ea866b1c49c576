package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusOnHold    Status = "on_hold"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that occupy a barber's schedule.
var ActiveStatuses = []Status{StatusPending, StatusAccepted, StatusOnHold, StatusOngoing}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusAccepted, StatusOnHold, StatusOngoing, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// IsActive reports whether the status blocks the barber's time.
func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s Status) IsTerminal() bool { return s == StatusCompleted || s == StatusCancelled }

// SystemActorID is stored in cancelled_by for automatic cancellations.
const SystemActorID = "system"

// Reservation is a booked appointment for one barber at one instant.
//
// Fields:
//
//	ID                 – primary key identifier.
//	UserID             – client who created the reservation.
//	ServiceRecipient   – name of the person receiving the service.
//	SeatID / BarberID  – chosen seat and the barber assigned to it at booking time.
//	ReservedAt         – UTC instant; the only field used for conflict checks.
//	Status             – lifecycle state.
//	TotalPriceCents    – sum of line item price snapshots.
//	IsRescheduled      – set when an admin moved the appointment.
//	CancellationReason, CancelledBy, CancelledAt – set once on cancellation.
//	CompletedAt        – set once on completion.
type Reservation struct {
	ID                 uint64               `json:"id"`                            // reservations.id
	UserID             string               `json:"user_id"`                       // reservations.user_id
	ServiceRecipient   string               `json:"service_recipient"`             // reservations.service_recipient
	SeatID             uint64               `json:"seat_id"`                       // reservations.seat_id
	BarberID           uint64               `json:"barber_id"`                     // reservations.barber_id
	ReservedAt         time.Time            `json:"reserved_datetime"`             // reservations.reserved_datetime
	Status             Status               `json:"status"`                        // reservations.status
	TotalPriceCents    int64                `json:"total_price_cents"`             // reservations.total_price_cents
	IsRescheduled      bool                 `json:"is_rescheduled"`                // reservations.is_rescheduled
	CancellationReason *string              `json:"cancellation_reason,omitempty"` // reservations.cancellation_reason
	CancelledBy        *string              `json:"cancelled_by,omitempty"`        // reservations.cancelled_by
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`        // reservations.cancelled_at
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`        // reservations.completed_at
	CreatedAt          time.Time            `json:"created_at"`                    // reservations.created_at
	UpdatedAt          time.Time            `json:"updated_at"`                    // reservations.updated_at
	Services           []ReservationService `json:"services,omitempty"`
}

// CancelledByRole classifies who cancelled the reservation: "system",
// "client" when the owner did it, "admin" otherwise.  Empty when the
// reservation was never cancelled.
func (r Reservation) CancelledByRole() Role {
	if r.CancelledBy == nil || *r.CancelledBy == "" {
		return ""
	}
	switch *r.CancelledBy {
	case SystemActorID:
		return RoleSystem
	case r.UserID:
		return RoleClient
	}
	return RoleAdmin
}

// BaseService returns the base line item, if loaded.
func (r Reservation) BaseService() (ReservationService, bool) {
	for _, s := range r.Services {
		if s.IsBaseService {
			return s, true
		}
	}
	return ReservationService{}, false
}

// ReservationService is one selected service within a reservation.  The
// price is copied from the catalog when the reservation is created and is
// never recomputed.
type ReservationService struct {
	ID            uint64 `json:"id"`                     // reservation_services.id
	ReservationID uint64 `json:"reservation_id"`         // reservation_services.reservation_id
	ServiceID     uint64 `json:"service_id"`             // reservation_services.service_id
	ServiceName   string `json:"service_name,omitempty"` // services.name (joined)
	IsBaseService bool   `json:"is_base_service"`        // reservation_services.is_base_service
	PriceCents    int64  `json:"price_cents"`            // reservation_services.price_cents
}

// TimeWindow is a half-open [From, To) interval of UTC instants.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
