package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckck92/BLG-WEBSITE/internal/database"
	"github.com/ckck92/BLG-WEBSITE/internal/database/dbtest"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

var (
	admin  = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	client = model.Actor{ID: "client-1", Role: model.RoleClient}
	other  = model.Actor{ID: "client-2", Role: model.RoleClient}
)

type recorder struct {
	mu     sync.Mutex
	events []model.DomainEvent
	audits []model.AuditRecord
}

func (r *recorder) PublishEvent(_ context.Context, ev model.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) RecordAudit(_ context.Context, rec model.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, rec)
	return nil
}

func (r *recorder) lastEvent(t *testing.T) model.DomainEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.audits))
	for i, a := range r.audits {
		out[i] = a.Action
	}
	return out
}

type env struct {
	svc     *service.SchedulingService
	store   *repository.ReservationRepo
	catalog *repository.CatalogRepo
	rec     *recorder
	now     time.Time
}

// newEnv builds a service over a seeded SQLite database.  The clock reads
// e.now, so tests can move time forward.
func newEnv(t *testing.T, wrap ...func(service.ReservationStore) service.ReservationStore) *env {
	t.Helper()
	db := dbtest.Open(t)
	e := &env{
		store:   repository.NewReservationRepo(db, database.SQLite),
		catalog: repository.NewCatalogRepo(db),
		rec:     &recorder{},
		now:     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	var store service.ReservationStore = e.store
	for _, w := range wrap {
		store = w(store)
	}
	e.svc = service.NewSchedulingService(e.catalog, store, scheduling.NewValidator(),
		service.WithEventPublisher(e.rec),
		service.WithAuditSink(e.rec),
		service.WithClock(func() time.Time { return e.now }),
		service.WithLogger(zerolog.New(io.Discard)),
	)
	return e
}

func request(seat uint64, date, clock string, services ...uint64) model.ReservationRequest {
	req := model.ReservationRequest{}.WithRecipient("Juan").WithSeat(seat).WithSlot(date, clock)
	for _, id := range services {
		req = req.WithService(id)
	}
	return req
}

func (e *env) book(t *testing.T, seat uint64, date, clock string) *model.Reservation {
	t.Helper()
	res, err := e.svc.CreateReservation(context.Background(), client.ID, request(seat, date, clock, dbtest.ServiceHaircut))
	require.NoError(t, err)
	return res
}

func (e *env) accept(t *testing.T, id uint64) {
	t.Helper()
	_, err := e.svc.UpdateStatus(context.Background(), id, model.StatusAccepted, admin)
	require.NoError(t, err)
}

func TestCreateReservation(t *testing.T) {
	e := newEnv(t)
	req := request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceBeardTrim, dbtest.ServiceHaircut)

	res, err := e.svc.CreateReservation(context.Background(), client.ID, req)
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, dbtest.Barber1, res.BarberID)
	assert.Equal(t, int64(25000+8000), res.TotalPriceCents)
	assert.True(t, res.ReservedAt.Equal(time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)))

	stored, err := e.store.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	require.Len(t, stored.Services, 2)
	base, ok := stored.BaseService()
	require.True(t, ok)
	assert.Equal(t, dbtest.ServiceHaircut, base.ServiceID)
	assert.Equal(t, int64(25000), base.PriceCents)

	assert.Equal(t, []string{model.AuditReservationCreated}, e.rec.actions())
}

func TestCreateReservationInputErrors(t *testing.T) {
	cases := []struct {
		name     string
		req      model.ReservationRequest
		notFound bool
		reason   string
	}{
		{name: "no recipient", req: request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut).WithRecipient("  "),
			reason: "Please enter the service recipient name"},
		{name: "no seat", req: request(0, "2024-01-10", "10:00", dbtest.ServiceHaircut), reason: "Please select a barber"},
		{name: "no slot", req: request(dbtest.Seat1, "", "", dbtest.ServiceHaircut), reason: "Please select a date and time"},
		{name: "no services", req: request(dbtest.Seat1, "2024-01-10", "10:00"), reason: "Please select at least one service"},
		{name: "addon only", req: request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceBeardTrim),
			reason: "Please select a base service (General, Modern Cut, or Bossing)"},
		{name: "two bases", req: request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut, dbtest.ServiceModernCut),
			reason: "Can only select one base service"},
		{name: "included addon", req: request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut, dbtest.ServiceHotTowel),
			reason: `"Hot Towel" is already included in Haircut`},
		{name: "inactive service", req: request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceRetired),
			reason: "Retired Cut is no longer available"},
		{name: "seat without barber", req: request(dbtest.SeatNoBarber, "2024-01-10", "10:00", dbtest.ServiceHaircut),
			reason: "Unable to identify the selected barber."},
		{name: "seat out of use", req: request(dbtest.SeatOutOfUse, "2024-01-10", "10:00", dbtest.ServiceHaircut),
			reason: "This seat is not available. Please select another barber."},
		{name: "bad time", req: request(dbtest.Seat1, "2024-01-10", "25:00", dbtest.ServiceHaircut), reason: "Invalid date or time"},
		{name: "in the past", req: request(dbtest.Seat1, "2023-12-29", "10:00", dbtest.ServiceHaircut),
			reason: "Please select a future date and time."},
		{name: "unknown service", req: request(dbtest.Seat1, "2024-01-10", "10:00", 404), notFound: true},
		{name: "unknown seat", req: request(99, "2024-01-10", "10:00", dbtest.ServiceHaircut), notFound: true},
	}
	e := newEnv(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.CreateReservation(context.Background(), client.ID, tc.req)
			require.Error(t, err)
			if tc.notFound {
				var nf *service.NotFoundError
				assert.ErrorAs(t, err, &nf)
				return
			}
			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.reason, ve.Reason)
		})
	}
}

// Barber has an accepted reservation at 10:00Z; 10:30 is too close, 11:30
// is exactly one buffer away and passes.
func TestBufferRule(t *testing.T) {
	e := newEnv(t)
	first := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	e.accept(t, first.ID)

	_, err := e.svc.CreateReservation(context.Background(), other.ID, request(dbtest.Seat1, "2024-01-10", "10:30", dbtest.ServiceHaircut))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckBuffer, ve.Check)
	require.NotNil(t, ve.Details)
	assert.Equal(t, first.ID, ve.Details.ConflictingID)
	assert.Contains(t, ve.Reason, "11:30 AM or later")

	_, err = e.svc.CreateReservation(context.Background(), other.ID, request(dbtest.Seat1, "2024-01-10", "11:30", dbtest.ServiceHaircut))
	require.NoError(t, err)

	_, err = e.svc.CreateReservation(context.Background(), other.ID, request(dbtest.Seat2, "2024-01-10", "10:30", dbtest.ServiceHaircut))
	assert.NoError(t, err, "other barbers are unaffected")
}

func TestExactSlotRule(t *testing.T) {
	e := newEnv(t)
	e.book(t, dbtest.Seat1, "2024-01-10", "10:00")

	_, err := e.svc.CreateReservation(context.Background(), other.ID, request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckExactSlot, ve.Check)
}

// Monday hours 09:00-18:00: 17:00 runs past closing, 16:00 fits.
func TestShopHoursRule(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CreateReservation(context.Background(), client.ID, request(dbtest.Seat1, "2024-01-08", "17:00", dbtest.ServiceHaircut))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckShopHours, ve.Check)

	_, err = e.svc.CreateReservation(context.Background(), client.ID, request(dbtest.Seat1, "2024-01-08", "16:00", dbtest.ServiceHaircut))
	assert.NoError(t, err)

	_, err = e.svc.CreateReservation(context.Background(), client.ID, request(dbtest.Seat2, "2024-01-07", "10:00", dbtest.ServiceHaircut))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "The shop is closed on this day. Please select a different date.", ve.Reason)
}

// closingStore marks a weekday closed right before each write, after the
// service has already validated against the open hours.
type closingStore struct {
	service.ReservationStore
	close func(ctx context.Context) error
}

func (c closingStore) Create(ctx context.Context, res *model.Reservation, items []model.ReservationService, w model.TimeWindow, g repository.Guard) error {
	if err := c.close(ctx); err != nil {
		return err
	}
	return c.ReservationStore.Create(ctx, res, items, w, g)
}

func (c closingStore) Reschedule(ctx context.Context, id uint64, from model.Status, at time.Time, w model.TimeWindow, g repository.Guard) error {
	if err := c.close(ctx); err != nil {
		return err
	}
	return c.ReservationStore.Reschedule(ctx, id, from, at, w, g)
}

// closeWednesdayOnWrite closes Wednesdays on the next write once armed is set.
func closeWednesdayOnWrite(e **env, armed *bool) func(service.ReservationStore) service.ReservationStore {
	return func(s service.ReservationStore) service.ReservationStore {
		return closingStore{ReservationStore: s, close: func(ctx context.Context) error {
			if !*armed {
				return nil
			}
			return (*e).catalog.UpsertShopHours(ctx, model.ShopHours{DayOfWeek: 3, IsOpen: false, OpenTime: "09:00:00", CloseTime: "18:00:00"})
		}}
	}
}

func TestShopHoursRecheckedBeforeInsert(t *testing.T) {
	ctx := context.Background()
	var e *env
	armed := true
	e = newEnv(t, closeWednesdayOnWrite(&e, &armed))

	_, err := e.svc.CreateReservation(ctx, client.ID, request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckShopHours, ve.Check)

	list, err := e.store.List(ctx, repository.ReservationFilter{UserID: client.ID})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is written for a day closed mid-booking")
}

func TestBossingCannotTakeAddons(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CreateReservation(context.Background(), client.ID,
		request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceBossing, dbtest.ServiceBeardTrim))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, scheduling.ErrBossingWithAddons)
	assert.Contains(t, ve.Reason, "cannot be combined with add-ons")
}

// barrierStore holds every pre-validation read until n callers have made
// it, so concurrent requests all pass the first check before writing.
type barrierStore struct {
	service.ReservationStore
	wg *sync.WaitGroup
}

func (b barrierStore) ListActiveForBarber(ctx context.Context, barberID uint64, w model.TimeWindow) ([]model.Reservation, error) {
	list, err := b.ReservationStore.ListActiveForBarber(ctx, barberID, w)
	b.wg.Done()
	b.wg.Wait()
	return list, err
}

func TestConcurrentSameSlotOneWins(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	e := newEnv(t, func(s service.ReservationStore) service.ReservationStore {
		return barrierStore{ReservationStore: s, wg: &barrier}
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"client-a", "client-b"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = e.svc.CreateReservation(context.Background(), user,
				request(dbtest.Seat1, "2024-01-10", "10:00", dbtest.ServiceHaircut))
		}(i, user)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		var ce *service.ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ce):
			conflicts++
			assert.Equal(t, "This time slot was just booked by another customer. Please choose another time.", ce.Reason)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	active, err := e.store.ListActiveForBarber(context.Background(), dbtest.Barber1, scheduling.DayWindow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentBufferViolationRejected(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	e := newEnv(t, func(s service.ReservationStore) service.ReservationStore {
		return barrierStore{ReservationStore: s, wg: &barrier}
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, clock := range []string{"10:00", "10:45"} {
		wg.Add(1)
		go func(i int, clock string) {
			defer wg.Done()
			_, errs[i] = e.svc.CreateReservation(context.Background(), "client-x",
				request(dbtest.Seat1, "2024-01-10", clock, dbtest.ServiceHaircut))
		}(i, clock)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, scheduling.CheckBuffer, ve.Check)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "the buffer is enforced inside the write transaction")
}

func TestPreviewSelection(t *testing.T) {
	e := newEnv(t)
	sel, err := e.svc.PreviewSelection(context.Background(), []uint64{dbtest.ServiceModernCut, dbtest.ServiceHotTowel, dbtest.ServiceModernCut})
	require.NoError(t, err)
	assert.Equal(t, dbtest.ServiceModernCut, sel.Base.ID)
	require.Len(t, sel.Addons, 1)
	assert.Equal(t, int64(40000+5000), sel.TotalPriceCents)
	assert.Equal(t, 75+10, sel.TotalDurationMinutes)
}
