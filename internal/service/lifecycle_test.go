package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckck92/BLG-WEBSITE/internal/database/dbtest"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

func TestClientCancelsOwnReservation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")

	_, err := e.svc.CancelReservation(ctx, res.ID, other, "not mine")
	assert.ErrorIs(t, err, service.ErrForbidden)

	got, err := e.svc.CancelReservation(ctx, res.ID, client, "   ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "No reason provided", *got.CancellationReason)
	assert.Equal(t, model.RoleClient, got.CancelledByRole())

	ev := e.rec.lastEvent(t)
	assert.Equal(t, model.EventReservationCancelled, ev.Type)
	assert.Equal(t, false, ev.Details["notify_client"])

	stored, err := e.store.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelledBy)
	assert.Equal(t, client.ID, *stored.CancelledBy)
	require.NotNil(t, stored.CancelledAt)
}

func TestAdminCancelNotifiesClient(t *testing.T) {
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	e.accept(t, res.ID)

	got, err := e.svc.CancelReservation(context.Background(), res.ID, admin, "barber is sick")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.CancelledByRole())

	ev := e.rec.lastEvent(t)
	assert.Equal(t, true, ev.Details["notify_client"])
	assert.Equal(t, "barber is sick", ev.Details["reason"])
	assert.Equal(t, client.ID, ev.UserID)
	assert.Contains(t, e.rec.actions(), model.AuditReservationCancelled)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	_, err := e.svc.CancelReservation(context.Background(), res.ID, client, "")
	require.NoError(t, err)
	e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
}

func TestTerminalReservationsDoNotChange(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	e.accept(t, res.ID)
	done, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusCompleted, admin)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(e.now))

	for _, to := range []model.Status{model.StatusAccepted, model.StatusOngoing, model.StatusCancelled, model.StatusPending} {
		_, err := e.svc.UpdateStatus(ctx, res.ID, to, admin)
		var se *service.StateError
		assert.ErrorAs(t, err, &se, "to %s", to)
	}
	_, err = e.svc.CancelReservation(ctx, res.ID, client, "")
	var se *service.StateError
	assert.ErrorAs(t, err, &se)

	cancelled := e.book(t, dbtest.Seat1, "2024-01-11", "10:00")
	_, err = e.svc.CancelReservation(ctx, cancelled.ID, client, "")
	require.NoError(t, err)
	_, err = e.svc.UpdateStatus(ctx, cancelled.ID, model.StatusAccepted, admin)
	assert.ErrorAs(t, err, &se)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")

	_, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusAccepted, client)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.svc.UpdateStatus(ctx, res.ID, model.StatusCompleted, admin)
	var se *service.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StatusPending, se.From)

	got, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusOnHold, admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnHold, got.Status)

	ev := e.rec.lastEvent(t)
	assert.Equal(t, model.EventReservationStatusChanged, ev.Type)
	assert.Equal(t, "pending", ev.Details["from"])
	assert.Equal(t, "on_hold", ev.Details["to"])

	_, err = e.svc.UpdateStatus(ctx, 999, model.StatusAccepted, admin)
	var nf *service.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUpdateStatusToCancelledRecordsMetadata(t *testing.T) {
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	got, err := e.svc.UpdateStatus(context.Background(), res.ID, model.StatusCancelled, admin)
	require.NoError(t, err)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, admin.ID, *got.CancelledBy)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	blocker := e.book(t, dbtest.Seat1, "2024-01-10", "14:00")

	_, err := e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "12:00", admin)
	var se *service.StateError
	require.ErrorAs(t, err, &se, "pending reservations cannot be rescheduled")

	_, err = e.svc.UpdateStatus(ctx, res.ID, model.StatusOnHold, admin)
	require.NoError(t, err)

	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "13:00", client)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "13:00", admin)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckBuffer, ve.Check)
	assert.Equal(t, blocker.ID, ve.Details.ConflictingID)

	got, err := e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "10:30", admin)
	require.NoError(t, err, "the reservation does not conflict with its own old slot")
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.True(t, got.IsRescheduled)
	assert.True(t, got.ReservedAt.Equal(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC)))

	ev := e.rec.lastEvent(t)
	assert.Equal(t, model.EventReservationRescheduled, ev.Type)
	assert.Equal(t, "2024-01-10T10:00:00Z", ev.Details["previous_datetime"])

	_, err = e.svc.UpdateStatus(ctx, res.ID, model.StatusOngoing, admin)
	require.ErrorAs(t, err, &se, "rescheduled and accepted needs an explicit reschedule or cancel")

	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-11", "09:00", admin)
	require.NoError(t, err)

	_, err = e.svc.CancelReservation(ctx, res.ID, admin, "client asked")
	require.NoError(t, err)
}

func TestRescheduleChecksShopHours(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	_, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusOnHold, admin)
	require.NoError(t, err)

	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-14", "10:00", admin)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckShopHours, ve.Check)

	_, err = e.svc.RescheduleReservation(ctx, res.ID, "not-a-date", "10:00", admin)
	require.ErrorAs(t, err, &ve)
}

func TestRescheduleRechecksShopHoursBeforeWrite(t *testing.T) {
	ctx := context.Background()
	var e *env
	armed := false
	e = newEnv(t, closeWednesdayOnWrite(&e, &armed))
	res := e.book(t, dbtest.Seat1, "2024-01-11", "10:00")
	_, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusOnHold, admin)
	require.NoError(t, err)

	armed = true
	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "10:00", admin)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, scheduling.CheckShopHours, ve.Check)

	got, err := e.store.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnHold, got.Status)
	assert.True(t, got.ReservedAt.Equal(time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC)))
}

func TestRescheduleRejectsPastInstant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "14:00")
	_, err := e.svc.UpdateStatus(ctx, res.ID, model.StatusOnHold, admin)
	require.NoError(t, err)

	e.now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err = e.svc.RescheduleReservation(ctx, res.ID, "2024-01-10", "09:00", admin)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please select a future date and time.", ve.Reason)

	got, err := e.store.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnHold, got.Status)

	n, err := e.svc.ExpirePassedReservations(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExpirySweep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.book(t, dbtest.Seat1, "2024-01-10", "10:00")
	e.accept(t, res.ID)
	pending := e.book(t, dbtest.Seat2, "2024-01-10", "10:00")
	future := e.book(t, dbtest.Seat1, "2024-01-10", "15:00")
	e.accept(t, future.ID)

	now := time.Date(2024, 1, 10, 10, 10, 0, 0, time.UTC)
	e.now = now
	n, err := e.svc.ExpirePassedReservations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.store.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "system", *got.CancelledBy)
	assert.Equal(t, "time passed", *got.CancellationReason)

	ev := e.rec.lastEvent(t)
	assert.Equal(t, true, ev.Details["auto_cancelled"])

	n, err = e.svc.ExpirePassedReservations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a second run finds nothing to do")

	for _, id := range []uint64{pending.ID, future.ID} {
		r, err := e.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, model.StatusCancelled, r.Status)
	}
}
