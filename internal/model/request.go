package model

import "strings"

// ReservationRequest is the client's booking input.  It is built up step by
// step with the With* methods, each of which returns a modified copy so a
// request can be passed by value between UI steps.
type ReservationRequest struct {
	Recipient  string   `json:"recipient" validate:"required"`
	ServiceIDs []uint64 `json:"service_ids" validate:"required,min=1,dive,gt=0"`
	SeatID     uint64   `json:"seat_id" validate:"required,gt=0"`
	Date       string   `json:"date" validate:"required"` // YYYY-MM-DD, shop local
	Time       string   `json:"time" validate:"required"` // HH:MM or HH:MM:SS, shop local
}

// WithRecipient sets the name of the person receiving the service.
func (r ReservationRequest) WithRecipient(name string) ReservationRequest {
	r.Recipient = strings.TrimSpace(name)
	return r
}

// WithService appends a service id unless it is already selected.
func (r ReservationRequest) WithService(id uint64) ReservationRequest {
	for _, existing := range r.ServiceIDs {
		if existing == id {
			return r
		}
	}
	ids := make([]uint64, 0, len(r.ServiceIDs)+1)
	ids = append(ids, r.ServiceIDs...)
	r.ServiceIDs = append(ids, id)
	return r
}

// WithoutService removes a service id from the selection.
func (r ReservationRequest) WithoutService(id uint64) ReservationRequest {
	ids := make([]uint64, 0, len(r.ServiceIDs))
	for _, existing := range r.ServiceIDs {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	r.ServiceIDs = ids
	return r
}

// WithSeat selects the seat, and with it the barber.
func (r ReservationRequest) WithSeat(id uint64) ReservationRequest {
	r.SeatID = id
	return r
}

// WithSlot sets the requested local date and time.
func (r ReservationRequest) WithSlot(date, clock string) ReservationRequest {
	r.Date = strings.TrimSpace(date)
	r.Time = strings.TrimSpace(clock)
	return r
}
