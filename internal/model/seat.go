package model

import "time"

// Barber is a staff member who can be assigned to a seat.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – identity of the barber in the external auth service.
//	DisplayName – name shown to clients.
//	IsAvailable – unavailable barbers cannot take new bookings.
//	UIDCode     – attendance card code.
type Barber struct {
	ID          uint64    `json:"id"`                 // barbers.id
	UserID      string    `json:"user_id"`            // barbers.user_id
	DisplayName string    `json:"display_name"`       // barbers.display_name
	IsAvailable bool      `json:"is_available"`       // barbers.is_available
	UIDCode     *string   `json:"uid_code,omitempty"` // barbers.uid_code (nullable)
	CreatedAt   time.Time `json:"created_at"`         // barbers.created_at
}

// Seat is a physical chair in the shop.  A seat without a barber is shown
// but cannot be booked.
type Seat struct {
	ID          uint64    `json:"id"`                  // seats.id
	SeatNumber  int       `json:"seat_number"`         // seats.seat_number
	IsAvailable bool      `json:"is_available"`        // seats.is_available
	BarberID    *uint64   `json:"barber_id,omitempty"` // seats.barber_id (nullable)
	Barber      *Barber   `json:"barber,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // seats.created_at
}

// Bookable reports whether the seat can receive a reservation right now.
func (s Seat) Bookable() bool {
	if !s.IsAvailable || s.BarberID == nil {
		return false
	}
	return s.Barber == nil || s.Barber.IsAvailable
}
