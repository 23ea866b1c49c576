// Package service orchestrates the booking rules in package scheduling with
// the reservation store.  Every exported operation returns either a result
// or one of the typed errors in errors.go.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/metrics"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
)

const msgSlotJustTaken = "This time slot was just booked by another customer. Please choose another time."

// SchedulingService implements reservation creation, lifecycle changes,
// the expiry sweep and the read side used by the HTTP layer.
type SchedulingService struct {
	catalog   Catalog
	store     ReservationStore
	validator *scheduling.Validator
	events    EventPublisher
	audit     AuditSink
	now       func() time.Time
	log       zerolog.Logger
	slotStep  time.Duration
}

// Option configures a SchedulingService.
type Option func(*SchedulingService)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *SchedulingService) { s.events = p }
}

func WithAuditSink(a AuditSink) Option {
	return func(s *SchedulingService) { s.audit = a }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SchedulingService) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *SchedulingService) { s.log = l }
}

// WithSlotStep sets the spacing of the slots offered by AvailableSlots.
func WithSlotStep(d time.Duration) Option {
	return func(s *SchedulingService) { s.slotStep = d }
}

func NewSchedulingService(catalog Catalog, store ReservationStore, v *scheduling.Validator, opts ...Option) *SchedulingService {
	if v == nil {
		v = scheduling.NewValidator()
	}
	s := &SchedulingService{
		catalog:   catalog,
		store:     store,
		validator: v,
		events:    nopPublisher{},
		audit:     nopAudit{},
		now:       time.Now,
		log:       zerolog.Nop(),
		slotStep:  v.Buffer(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateReservation validates req and books it for userID.  The booking
// rules are checked once against a snapshot and again inside the write
// transaction; losing the exact-slot race yields a *ConflictError.
func (s *SchedulingService) CreateReservation(ctx context.Context, userID string, req model.ReservationRequest) (*model.Reservation, error) {
	req = req.WithRecipient(req.Recipient).WithSlot(req.Date, req.Time)
	switch {
	case req.Recipient == "":
		return nil, invalid("Please enter the service recipient name", nil)
	case req.SeatID == 0:
		return nil, invalid("Please select a barber", nil)
	case req.Date == "" || req.Time == "":
		return nil, invalid("Please select a date and time", nil)
	}

	sel, err := s.resolveSelection(ctx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	seat, err := s.bookableSeat(ctx, req.SeatID)
	if err != nil {
		return nil, err
	}
	barberID := *seat.BarberID

	at, err := scheduling.LocalInstant(req.Date, req.Time, s.validator.Location())
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
	existing, err := s.store.ListActiveForBarber(ctx, barberID, window)
	if err != nil {
		return nil, systemErr("load barber schedule", err)
	}
	cand := scheduling.Candidate{BarberID: barberID, At: at}
	if r := s.validator.Validate(cand, existing, *hours); !r.Valid {
		metrics.IncValidationRejection(string(r.Check))
		metrics.IncReservationCreated("rejected")
		return nil, rejected(r)
	}

	res := &model.Reservation{
		UserID:           userID,
		ServiceRecipient: req.Recipient,
		SeatID:           seat.ID,
		BarberID:         barberID,
		ReservedAt:       at,
		Status:           model.StatusPending,
		TotalPriceCents:  sel.TotalPriceCents,
	}
	err = s.store.Create(ctx, res, lineItems(sel), window, func(active []model.Reservation) error {
		if r := s.validator.CheckExactSlot(cand, active); !r.Valid {
			return repository.ErrSlotTaken
		}
		if r := s.validator.CheckBuffer(cand, active); !r.Valid {
			metrics.IncValidationRejection(string(r.Check))
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
		case errors.Is(err, repository.ErrSlotTaken):
			metrics.IncReservationCreated("conflict")
			s.log.Info().Uint64("barber_id", barberID).Time("at", at).Msg("slot taken by concurrent booking")
			return nil, &ConflictError{Reason: msgSlotJustTaken, Err: err}
		case errors.As(err, &ve):
			metrics.IncReservationCreated("rejected")
			return nil, ve
		case errors.Is(err, repository.ErrBarberNotFound):
			return nil, &NotFoundError{Resource: "barber", ID: barberID, Err: err}
		case errors.As(err, &nf):
			metrics.IncReservationCreated("rejected")
			return nil, nf
		case errors.As(err, &se):
			metrics.IncReservationCreated("error")
			return nil, se
		}
		metrics.IncReservationCreated("error")
		return nil, systemErr("create reservation", err)
	}
	for i := range res.Services {
		res.Services[i].ServiceName = serviceName(sel, res.Services[i].ServiceID)
	}

	metrics.IncReservationCreated("ok")
	s.record(ctx, userID, model.AuditReservationCreated, res.ID, map[string]any{
		"barber_id":         barberID,
		"reserved_datetime": at.Format(time.RFC3339),
		"total_price_cents": res.TotalPriceCents,
	})
	s.log.Info().Uint64("reservation_id", res.ID).Uint64("barber_id", barberID).Time("at", at).Msg("reservation created")
	return res, nil
}

// PreviewSelection applies the combination rules and totals the selection
// without booking anything.
func (s *SchedulingService) PreviewSelection(ctx context.Context, serviceIDs []uint64) (scheduling.Selection, error) {
	return s.resolveSelection(ctx, serviceIDs)
}

func (s *SchedulingService) resolveSelection(ctx context.Context, ids []uint64) (scheduling.Selection, error) {
	seen := make(map[uint64]bool, len(ids))
	services := make([]model.Service, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		svc, err := s.catalog.GetService(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrServiceNotFound) {
				return scheduling.Selection{}, &NotFoundError{Resource: "service", ID: id, Err: err}
			}
			return scheduling.Selection{}, systemErr("load service", err)
		}
		if !svc.IsActive {
			return scheduling.Selection{}, invalid(svc.Name+" is no longer available", nil)
		}
		services = append(services, *svc)
	}
	sel, err := scheduling.SummarizeSelection(services)
	if err != nil {
		return scheduling.Selection{}, invalid(err.Error(), err)
	}
	return sel, nil
}

func (s *SchedulingService) bookableSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	seat, err := s.catalog.GetSeat(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, &NotFoundError{Resource: "seat", ID: id, Err: err}
		}
		return nil, systemErr("load seat", err)
	}
	switch {
	case !seat.IsAvailable:
		return nil, invalid("This seat is not available. Please select another barber.", nil)
	case seat.BarberID == nil:
		return nil, invalid("Unable to identify the selected barber.", nil)
	case seat.Barber != nil && !seat.Barber.IsAvailable:
		return nil, invalid("This barber is not available. Please select another barber.", nil)
	}
	return seat, nil
}

// hoursFor loads the shop hours of at's weekday in the shop's location.
func (s *SchedulingService) hoursFor(ctx context.Context, at time.Time) (*model.ShopHours, error) {
	day := int(at.In(s.validator.Location()).Weekday())
	h, err := s.catalog.GetShopHours(ctx, day)
	if err != nil {
		if errors.Is(err, repository.ErrShopHoursNotFound) {
			return nil, &NotFoundError{Resource: "shop hours", ID: day, Err: err}
		}
		return nil, systemErr("load shop hours", err)
	}
	return h, nil
}

// recheckHours reloads the shop hours for at and runs the hours check
// again.  Guards call it so hours changed after pre-validation still apply.
func (s *SchedulingService) recheckHours(ctx context.Context, at time.Time) error {
	hours, err := s.hoursFor(ctx, at)
	if err != nil {
		return err
	}
	if r := s.validator.CheckShopHours(at, *hours); !r.Valid {
		metrics.IncValidationRejection(string(r.Check))
		return rejected(r)
	}
	return nil
}

func lineItems(sel scheduling.Selection) []model.ReservationService {
	items := make([]model.ReservationService, 0, len(sel.Addons)+1)
	items = append(items, model.ReservationService{
		ServiceID: sel.Base.ID, IsBaseService: true, PriceCents: sel.Base.PriceCents,
	})
	for _, a := range sel.Addons {
		items = append(items, model.ReservationService{ServiceID: a.ID, PriceCents: a.PriceCents})
	}
	return items
}

func serviceName(sel scheduling.Selection, id uint64) string {
	for _, svc := range sel.Services() {
		if svc.ID == id {
			return svc.Name
		}
	}
	return ""
}

func (s *SchedulingService) record(ctx context.Context, actorID, action string, id uint64, details map[string]any) {
	s.recordTarget(ctx, actorID, action, "reservations", strconv.FormatUint(id, 10), details)
}

func (s *SchedulingService) recordTarget(ctx context.Context, actorID, action, table, targetID string, details map[string]any) {
	rec := model.AuditRecord{
		ActorID:     actorID,
		Action:      action,
		TargetTable: table,
		TargetID:    targetID,
		Details:     details,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.audit.RecordAudit(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("action", action).Str("target_id", targetID).Msg("audit record failed")
	}
}

func (s *SchedulingService) notify(ctx context.Context, typ string, res *model.Reservation, details map[string]any) {
	ev := model.DomainEvent{
		Type:          typ,
		ReservationID: res.ID,
		UserID:        res.UserID,
		Details:       details,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Uint64("reservation_id", res.ID).Msg("publish event failed")
	}
}

func trimmed(s string) string { return strings.TrimSpace(s) }
