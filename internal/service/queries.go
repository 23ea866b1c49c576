package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
)

// ServiceGroups is the active catalog grouped for the booking form.
type ServiceGroups struct {
	General   []model.Service `json:"general"`
	ModernCut []model.Service `json:"modern_cut"`
	Bossing   []model.Service `json:"bossing"`
	Addons    []model.Service `json:"addons"`
}

// Slot is a start time with the seats that can still take it.
type Slot struct {
	Time           string   `json:"time"`
	AvailableSeats []uint64 `json:"available_seats"`
}

// GetReservation returns a reservation with its line items.  Clients may
// only read their own.
func (s *SchedulingService) GetReservation(ctx context.Context, id uint64, viewer model.Actor) (*model.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && res.UserID != viewer.ID {
		return nil, ErrForbidden
	}
	return res, nil
}

// ListMyReservations returns the user's reservations, newest first.
func (s *SchedulingService) ListMyReservations(ctx context.Context, userID string, statuses []model.Status) ([]model.Reservation, error) {
	list, err := s.store.List(ctx, repository.ReservationFilter{UserID: userID, Statuses: statuses, NewestFirst: true})
	if err != nil {
		return nil, systemErr("list reservations", err)
	}
	return nonNil(list), nil
}

// ListReservations is the admin view.  Active-only lists come in booking
// order, cancelled-only lists by cancellation time, anything else newest
// first.
func (s *SchedulingService) ListReservations(ctx context.Context, statuses []model.Status) ([]model.Reservation, error) {
	f := repository.ReservationFilter{Statuses: statuses, NewestFirst: true}
	switch {
	case len(statuses) == 0:
	case allStatuses(statuses, func(st model.Status) bool { return st == model.StatusCancelled }):
		f.RecentlyCancelledFirst = true
	case allStatuses(statuses, model.Status.IsActive):
		f.NewestFirst = false
	}
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, systemErr("list reservations", err)
	}
	return nonNil(list), nil
}

// ServicesForSelection groups the active catalog by service type, each
// group ordered by price.
func (s *SchedulingService) ServicesForSelection(ctx context.Context) (ServiceGroups, error) {
	all, err := s.catalog.ListServices(ctx, true)
	if err != nil {
		return ServiceGroups{}, systemErr("list services", err)
	}
	g := ServiceGroups{
		General:   []model.Service{},
		ModernCut: []model.Service{},
		Bossing:   []model.Service{},
		Addons:    []model.Service{},
	}
	for _, svc := range all {
		switch svc.Type {
		case model.ServiceGeneral:
			g.General = append(g.General, svc)
		case model.ServiceModernCut:
			g.ModernCut = append(g.ModernCut, svc)
		case model.ServiceBossing:
			g.Bossing = append(g.Bossing, svc)
		case model.ServiceAddon:
			g.Addons = append(g.Addons, svc)
		}
	}
	return g, nil
}

// BaseServiceCandidates returns the active services that can anchor a
// reservation.
func (s *SchedulingService) BaseServiceCandidates(ctx context.Context) ([]model.Service, error) {
	all, err := s.catalog.ListServices(ctx, true)
	if err != nil {
		return nil, systemErr("list services", err)
	}
	out := []model.Service{}
	for _, svc := range all {
		if svc.CanAnchor() {
			out = append(out, svc)
		}
	}
	return out, nil
}

// AddonCandidates returns the add-ons that may be combined with baseID.
func (s *SchedulingService) AddonCandidates(ctx context.Context, baseID uint64) ([]model.Service, error) {
	base, err := s.catalog.GetService(ctx, baseID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, &NotFoundError{Resource: "service", ID: baseID, Err: err}
		}
		return nil, systemErr("load service", err)
	}
	if !base.CanAnchor() || !base.IsActive {
		return nil, invalid(scheduling.ErrNoBaseService.Error(), scheduling.ErrNoBaseService)
	}
	all, err := s.catalog.ListServices(ctx, true)
	if err != nil {
		return nil, systemErr("list services", err)
	}
	return scheduling.AddonCandidates(*base, all), nil
}

// ListSeats returns available seats with their barbers.
func (s *SchedulingService) ListSeats(ctx context.Context) ([]model.Seat, error) {
	seats, err := s.catalog.ListSeats(ctx, true)
	if err != nil {
		return nil, systemErr("list seats", err)
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return seats, nil
}

func (s *SchedulingService) ListShopHours(ctx context.Context) ([]model.ShopHours, error) {
	hours, err := s.catalog.ListShopHours(ctx)
	if err != nil {
		return nil, systemErr("list shop hours", err)
	}
	if hours == nil {
		hours = []model.ShopHours{}
	}
	return hours, nil
}

// UpdateShopHours replaces one weekday's hours.  Admin only.
func (s *SchedulingService) UpdateShopHours(ctx context.Context, h model.ShopHours, actor model.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := h.Validate(); err != nil {
		return invalid(err.Error(), err)
	}
	if err := s.catalog.UpsertShopHours(ctx, h); err != nil {
		return systemErr("update shop hours", err)
	}
	s.recordTarget(ctx, actor.ID, model.AuditShopHoursUpdated, "shop_hours", strconv.Itoa(h.DayOfWeek), map[string]any{
		"is_open":    h.IsOpen,
		"open_time":  h.OpenTime,
		"close_time": h.CloseTime,
	})
	return nil
}

// AvailableSlots lists the start times on a shop-local date at which at
// least one bookable seat's barber passes every booking rule.
func (s *SchedulingService) AvailableSlots(ctx context.Context, date string) ([]Slot, error) {
	loc := s.validator.Location()
	day, err := time.ParseInLocation("2006-01-02", trimmed(date), loc)
	if err != nil {
		return nil, invalid("Invalid date", err)
	}
	hours, err := s.catalog.GetShopHours(ctx, int(day.Weekday()))
	if err != nil {
		if errors.Is(err, repository.ErrShopHoursNotFound) {
			return nil, &NotFoundError{Resource: "shop hours", ID: int(day.Weekday()), Err: err}
		}
		return nil, systemErr("load shop hours", err)
	}
	times, err := scheduling.SlotTimes(*hours, s.slotStep)
	if err != nil {
		return nil, systemErr("compute slots", err)
	}
	out := []Slot{}
	if len(times) == 0 {
		return out, nil
	}

	seats, err := s.catalog.ListSeats(ctx, true)
	if err != nil {
		return nil, systemErr("list seats", err)
	}
	type key struct {
		barber uint64
		day    time.Time
	}
	schedules := map[key][]model.Reservation{}
	now := s.now()
	for _, clock := range times {
		at, err := scheduling.LocalInstant(trimmed(date), clock, loc)
		if err != nil {
			return nil, systemErr("compute slots", err)
		}
		if at.Before(now) {
			continue
		}
		window := scheduling.DayWindow(at)
		slot := Slot{Time: clock, AvailableSeats: []uint64{}}
		for _, seat := range seats {
			if !seat.Bookable() {
				continue
			}
			k := key{barber: *seat.BarberID, day: window.From}
			existing, ok := schedules[k]
			if !ok {
				existing, err = s.store.ListActiveForBarber(ctx, k.barber, window)
				if err != nil {
					return nil, systemErr("load barber schedule", err)
				}
				schedules[k] = existing
			}
			cand := scheduling.Candidate{BarberID: k.barber, At: at}
			if s.validator.Validate(cand, existing, *hours).Valid {
				slot.AvailableSeats = append(slot.AvailableSeats, seat.ID)
			}
		}
		if len(slot.AvailableSeats) > 0 {
			out = append(out, slot)
		}
	}
	return out, nil
}

func allStatuses(statuses []model.Status, pred func(model.Status) bool) bool {
	for _, st := range statuses {
		if !pred(st) {
			return false
		}
	}
	return true
}

func nonNil(list []model.Reservation) []model.Reservation {
	if list == nil {
		return []model.Reservation{}
	}
	return list
}
