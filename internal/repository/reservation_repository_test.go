package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckck92/BLG-WEBSITE/internal/database"
	"github.com/ckck92/BLG-WEBSITE/internal/database/dbtest"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
)

var monday = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

func dayOf(t time.Time) model.TimeWindow {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return model.TimeWindow{From: from, To: from.AddDate(0, 0, 1)}
}

func newReservation(user string, at time.Time) *model.Reservation {
	return &model.Reservation{
		UserID:           user,
		ServiceRecipient: "Recipient " + user,
		SeatID:           dbtest.Seat1,
		BarberID:         dbtest.Barber1,
		ReservedAt:       at,
		TotalPriceCents:  33000,
	}
}

func haircutItems() []model.ReservationService {
	return []model.ReservationService{
		{ServiceID: dbtest.ServiceBeardTrim, PriceCents: 8000},
		{ServiceID: dbtest.ServiceHaircut, IsBaseService: true, PriceCents: 25000},
	}
}

func create(t *testing.T, repo *repository.ReservationRepo, res *model.Reservation) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), res, haircutItems(), dayOf(res.ReservedAt), nil))
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)

	res := newReservation("client-1", monday.Add(123*time.Millisecond))
	create(t, repo, res)
	assert.NotZero(t, res.ID)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Len(t, res.Services, 2)

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.UserID)
	assert.True(t, got.ReservedAt.Equal(monday))
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, int64(33000), got.TotalPriceCents)
	assert.Nil(t, got.CancelledBy)

	require.Len(t, got.Services, 2)
	assert.True(t, got.Services[0].IsBaseService, "base line item comes first")
	assert.Equal(t, "Haircut", got.Services[0].ServiceName)
	assert.Equal(t, "Beard Trim", got.Services[1].ServiceName)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestCreateGuardSeesActiveRowsAndAborts(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	create(t, repo, newReservation("client-1", monday))

	errTooClose := errors.New("too close")
	var seen []model.Reservation
	second := newReservation("client-2", monday.Add(30*time.Minute))
	err := repo.Create(ctx, second, haircutItems(), dayOf(monday), func(active []model.Reservation) error {
		seen = active
		return errTooClose
	})
	assert.ErrorIs(t, err, errTooClose)
	require.Len(t, seen, 1)
	assert.Equal(t, "client-1", seen[0].UserID)

	list, err := repo.List(ctx, repository.ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1, "aborted create leaves nothing behind")
}

func TestCreateSameSlotIsRejectedByIndex(t *testing.T) {
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	create(t, repo, newReservation("client-1", monday))

	err := repo.Create(context.Background(), newReservation("client-2", monday), haircutItems(), dayOf(monday), nil)
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCreateSlotFreedByCancellation(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	first := newReservation("client-1", monday)
	create(t, repo, first)

	reason, by := "changed plans", "client-1"
	require.NoError(t, repo.ApplyStatusChange(ctx, first.ID, repository.StatusChange{
		From: model.StatusPending, To: model.StatusCancelled, CancellationReason: &reason, CancelledBy: &by,
	}))
	create(t, repo, newReservation("client-2", monday))
}

func TestCreateConcurrentSameSlot(t *testing.T) {
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := newReservation([]string{"client-a", "client-b"}[i], monday)
			errs[i] = repo.Create(context.Background(), res, haircutItems(), dayOf(monday), nil)
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrSlotTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, taken)
}

func TestCreateUnknownBarber(t *testing.T) {
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	res := newReservation("client-1", monday)
	res.BarberID = 99
	err := repo.Create(context.Background(), res, haircutItems(), dayOf(monday), nil)
	assert.ErrorIs(t, err, repository.ErrBarberNotFound)
}

func TestListActiveForBarber(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	create(t, repo, newReservation("client-1", monday.Add(3*time.Hour)))
	create(t, repo, newReservation("client-2", monday))
	create(t, repo, newReservation("client-3", monday.AddDate(0, 0, 1)))

	other := newReservation("client-4", monday)
	other.SeatID, other.BarberID = dbtest.Seat2, dbtest.Barber2
	create(t, repo, other)

	cancelled := newReservation("client-5", monday.Add(5*time.Hour))
	create(t, repo, cancelled)
	require.NoError(t, repo.ApplyStatusChange(ctx, cancelled.ID, repository.StatusChange{From: model.StatusPending, To: model.StatusCancelled}))

	active, err := repo.ListActiveForBarber(ctx, dbtest.Barber1, dayOf(monday))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "client-2", active[0].UserID)
	assert.Equal(t, "client-1", active[1].UserID)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	create(t, repo, newReservation("client-1", monday))
	create(t, repo, newReservation("client-1", monday.Add(2*time.Hour)))
	create(t, repo, newReservation("client-2", monday.Add(4*time.Hour)))

	mine, err := repo.List(ctx, repository.ReservationFilter{UserID: "client-1", NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].ReservedAt.After(mine[1].ReservedAt))
	assert.Len(t, mine[0].Services, 2)

	limited, err := repo.List(ctx, repository.ReservationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	from := monday.Add(time.Hour)
	later, err := repo.List(ctx, repository.ReservationFilter{From: &from, Statuses: []model.Status{model.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, later, 2)
}

func TestApplyStatusChange(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	res := newReservation("client-1", monday)
	create(t, repo, res)

	require.NoError(t, repo.ApplyStatusChange(ctx, res.ID, repository.StatusChange{From: model.StatusPending, To: model.StatusAccepted}))

	err := repo.ApplyStatusChange(ctx, res.ID, repository.StatusChange{From: model.StatusPending, To: model.StatusOnHold})
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.ApplyStatusChange(ctx, 404, repository.StatusChange{From: model.StatusPending, To: model.StatusOnHold})
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)

	done := monday.Add(time.Hour)
	require.NoError(t, repo.ApplyStatusChange(ctx, res.ID, repository.StatusChange{
		From: model.StatusAccepted, To: model.StatusCompleted, CompletedAt: &done,
	}))
	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	res := newReservation("client-1", monday)
	create(t, repo, res)
	blocker := newReservation("client-2", monday.Add(4*time.Hour))
	create(t, repo, blocker)
	require.NoError(t, repo.ApplyStatusChange(ctx, res.ID, repository.StatusChange{From: model.StatusPending, To: model.StatusOnHold}))

	var seen []model.Reservation
	target := monday.Add(2 * time.Hour)
	err := repo.Reschedule(ctx, res.ID, model.StatusOnHold, target, dayOf(target), func(active []model.Reservation) error {
		seen = active
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1, "the reservation being moved is excluded")
	assert.Equal(t, blocker.ID, seen[0].ID)

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.True(t, got.IsRescheduled)
	assert.True(t, got.ReservedAt.Equal(target))

	err = repo.Reschedule(ctx, res.ID, model.StatusOnHold, target, dayOf(target), nil)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.Reschedule(ctx, res.ID, model.StatusAccepted, blocker.ReservedAt, dayOf(target), nil)
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	err = repo.Reschedule(ctx, 404, model.StatusOnHold, target, dayOf(target), nil)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestExpireIfPassed(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	past := newReservation("client-1", monday)
	future := newReservation("client-2", monday.Add(3*time.Hour))
	pending := newReservation("client-3", monday.Add(-2*time.Hour))
	for _, r := range []*model.Reservation{past, future, pending} {
		create(t, repo, r)
	}
	for _, r := range []*model.Reservation{past, future} {
		require.NoError(t, repo.ApplyStatusChange(ctx, r.ID, repository.StatusChange{From: model.StatusPending, To: model.StatusAccepted}))
	}

	now := monday.Add(10 * time.Minute)
	expired, err := repo.ListExpiredAccepted(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, past.ID, expired[0].ID)

	changed, err := repo.ExpireIfPassed(ctx, past.ID, now, "time passed", model.SystemActorID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.ExpireIfPassed(ctx, past.ID, now, "time passed", model.SystemActorID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.ExpireIfPassed(ctx, future.ID, now, "time passed", model.SystemActorID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, model.SystemActorID, *got.CancelledBy)
	assert.Equal(t, model.RoleSystem, got.CancelledByRole())
	require.NotNil(t, got.CancelledAt)
	assert.True(t, got.CancelledAt.Equal(now))
}

func TestCompletedBetween(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReservationRepo(dbtest.Open(t), database.SQLite)
	in := newReservation("client-1", monday)
	out := newReservation("client-2", monday.Add(2*time.Hour))
	create(t, repo, in)
	create(t, repo, out)

	doneIn, doneOut := monday.Add(time.Hour), monday.AddDate(0, 0, 2)
	for id, at := range map[uint64]time.Time{in.ID: doneIn, out.ID: doneOut} {
		at := at
		require.NoError(t, repo.ApplyStatusChange(ctx, id, repository.StatusChange{From: model.StatusPending, To: model.StatusAccepted}))
		require.NoError(t, repo.ApplyStatusChange(ctx, id, repository.StatusChange{From: model.StatusAccepted, To: model.StatusCompleted, CompletedAt: &at}))
	}

	w := dayOf(monday)
	list, err := repo.CompletedBetween(ctx, w.From, w.To)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, in.ID, list[0].ID)
	assert.Len(t, list[0].Services, 2)
}
