// Package scheduling holds the pure booking rules: exact-slot uniqueness,
// the minimum buffer between a barber's appointments and the shop-hours fit.
// Nothing here touches storage; callers pass in the reservations and shop
// hours they loaded.
package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

const (
	// DefaultBuffer is the minimum gap between two active reservations of
	// one barber, measured start to start.
	DefaultBuffer = 90 * time.Minute
	// DefaultHoursFit is the service length assumed when checking that a
	// booking ends before closing time.
	DefaultHoursFit = 90 * time.Minute
)

// Check names one of the validator's checks.
type Check string

const (
	CheckExactSlot Check = "exact_slot"
	CheckBuffer    Check = "buffer"
	CheckShopHours Check = "shop_hours"
)

// Result is the outcome of validating a candidate instant.
type Result struct {
	Valid   bool     `json:"valid"`
	Check   Check    `json:"check,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Details *Details `json:"details,omitempty"`
}

// Details carries actionable information about a rejection.
type Details struct {
	ConflictingID  uint64     `json:"conflicting_reservation_id,omitempty"`
	ConflictingAt  *time.Time `json:"conflicting_at,omitempty"`
	GapMinutes     float64    `json:"gap_minutes,omitempty"`
	LaterWindow    *time.Time `json:"later_window,omitempty"`
	EarlierWindow  *time.Time `json:"earlier_window,omitempty"`
	OpenTime       string     `json:"open_time,omitempty"`
	CloseTime      string     `json:"close_time,omitempty"`
	BufferMinutes  int        `json:"buffer_minutes,omitempty"`
	DayOfWeek      *int       `json:"day_of_week,omitempty"`
	RequestedLocal string     `json:"requested_local,omitempty"`
}

var pass = Result{Valid: true}

func reject(check Check, reason string, d *Details) Result {
	return Result{Valid: false, Check: check, Reason: reason, Details: d}
}

// Candidate is the slot being validated.  ExcludeID skips one existing
// reservation, used when an appointment is moved.
type Candidate struct {
	BarberID  uint64
	At        time.Time
	ExcludeID uint64
}

// Validator evaluates candidates against the booking rules.
type Validator struct {
	buffer   time.Duration
	hoursFit time.Duration
	loc      *time.Location
}

// Option configures a Validator.
type Option func(*Validator)

// WithBuffer overrides the minimum gap between appointments.
func WithBuffer(d time.Duration) Option { return func(v *Validator) { v.buffer = d } }

// WithHoursFit overrides the service length assumed for the closing-time check.
func WithHoursFit(d time.Duration) Option { return func(v *Validator) { v.hoursFit = d } }

// WithLocation sets the shop time zone used for weekday and wall-clock checks.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// NewValidator returns a Validator with the 90 minute defaults in UTC.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{buffer: DefaultBuffer, hoursFit: DefaultHoursFit, loc: time.UTC}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Location returns the shop time zone.
func (v *Validator) Location() *time.Location { return v.loc }

// Buffer returns the configured minimum gap.
func (v *Validator) Buffer() time.Duration { return v.buffer }

// Validate runs the exact-slot, buffer and shop-hours checks in that order
// and stops at the first failure.
func (v *Validator) Validate(c Candidate, existing []model.Reservation, hours model.ShopHours) Result {
	if r := v.CheckExactSlot(c, existing); !r.Valid {
		return r
	}
	if r := v.CheckBuffer(c, existing); !r.Valid {
		return r
	}
	return v.CheckShopHours(c.At, hours)
}

// CheckExactSlot rejects the candidate when an active reservation of the
// same barber starts at exactly the same instant.
func (v *Validator) CheckExactSlot(c Candidate, existing []model.Reservation) Result {
	for _, r := range existing {
		if !relevant(c, r) {
			continue
		}
		if r.ReservedAt.Equal(c.At) {
			at := r.ReservedAt.UTC()
			return reject(CheckExactSlot,
				"This time slot is already booked by another client. Please select a different time.",
				&Details{ConflictingID: r.ID, ConflictingAt: &at})
		}
	}
	return pass
}

// CheckBuffer rejects the candidate when an active reservation of the same
// barber on the same UTC calendar day starts less than the buffer away.
// A gap of exactly the buffer passes.
func (v *Validator) CheckBuffer(c Candidate, existing []model.Reservation) Result {
	day := DayWindow(c.At)
	sameDay := make([]model.Reservation, 0, len(existing))
	for _, r := range existing {
		if relevant(c, r) && day.Contains(r.ReservedAt) {
			sameDay = append(sameDay, r)
		}
	}
	sort.SliceStable(sameDay, func(i, j int) bool { return sameDay[i].ReservedAt.Before(sameDay[j].ReservedAt) })

	for _, r := range sameDay {
		gap := c.At.Sub(r.ReservedAt)
		if gap < 0 {
			gap = -gap
		}
		at := r.ReservedAt.UTC()
		if gap > 0 && gap < v.buffer {
			later := at.Add(v.buffer)
			earlier := at.Add(-v.buffer)
			reason := fmt.Sprintf(
				"Too close to an existing reservation: this barber has a booking at %s. "+
					"At least %d minutes are required between appointments. Available times: %s or later, %s or earlier.",
				v.clock(at), int(v.buffer/time.Minute), v.clock(later), v.clock(earlier))
			return reject(CheckBuffer, reason, &Details{
				ConflictingID: r.ID,
				ConflictingAt: &at,
				GapMinutes:    gap.Minutes(),
				LaterWindow:   &later,
				EarlierWindow: &earlier,
				BufferMinutes: int(v.buffer / time.Minute),
			})
		}
		if gap == 0 {
			return reject(CheckBuffer, "This exact time is already booked.",
				&Details{ConflictingID: r.ID, ConflictingAt: &at})
		}
	}
	return pass
}

// CheckShopHours rejects instants on closed days, before opening time, or
// whose assumed service end falls after closing time.  hours must be the
// row for the instant's local weekday.
func (v *Validator) CheckShopHours(at time.Time, hours model.ShopHours) Result {
	local := at.In(v.loc)
	day := int(local.Weekday())
	d := &Details{DayOfWeek: &day, RequestedLocal: local.Format("2006-01-02 15:04:05")}
	if hours.DayOfWeek != day {
		return reject(CheckShopHours, "Unable to verify shop hours. Please try again.", d)
	}
	if !hours.IsOpen {
		return reject(CheckShopHours, "The shop is closed on this day. Please select a different date.", d)
	}
	open, err1 := hours.OpenSeconds()
	closing, err2 := hours.CloseSeconds()
	if err1 != nil || err2 != nil {
		return reject(CheckShopHours, "Unable to verify shop hours. Please try again.", d)
	}
	d.OpenTime = hours.OpenTime
	d.CloseTime = hours.CloseTime

	secs := local.Hour()*3600 + local.Minute()*60 + local.Second()
	if secs < open {
		return reject(CheckShopHours,
			fmt.Sprintf("The shop opens at %s. Please select a later time.", clock12(open)), d)
	}
	// no wrap past midnight: a late start simply overflows the day
	if secs+int(v.hoursFit/time.Second) > closing {
		return reject(CheckShopHours,
			fmt.Sprintf("This reservation would exceed closing time (%s). Please book earlier.", clock12(closing)), d)
	}
	return pass
}

// DayWindow returns the UTC calendar day containing at.
func DayWindow(at time.Time) model.TimeWindow {
	u := at.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return model.TimeWindow{From: start, To: start.AddDate(0, 0, 1)}
}

func relevant(c Candidate, r model.Reservation) bool {
	if r.BarberID != c.BarberID || !r.Status.IsActive() {
		return false
	}
	return c.ExcludeID == 0 || r.ID != c.ExcludeID
}

func (v *Validator) clock(t time.Time) string { return t.In(v.loc).Format("3:04 PM") }

func clock12(secs int) string {
	return time.Date(2000, 1, 1, 0, 0, secs, 0, time.UTC).Format("3:04 PM")
}
