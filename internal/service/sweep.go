package service

import (
	"context"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/metrics"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// ExpiredReason is stored on reservations cancelled by the sweep.
const ExpiredReason = "time passed"

// ExpirePassedReservations cancels every accepted reservation whose time
// is before now and returns how many it cancelled.  A row that fails to
// update is logged and skipped.  Running it again cancels nothing new,
// since cancelled rows no longer match.
func (s *SchedulingService) ExpirePassedReservations(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC().Truncate(time.Second)
	expired, err := s.store.ListExpiredAccepted(ctx, now)
	if err != nil {
		metrics.IncSweepRun("error")
		return 0, systemErr("list expired reservations", err)
	}

	count := 0
	for i := range expired {
		if ctx.Err() != nil {
			break
		}
		res := &expired[i]
		changed, err := s.store.ExpireIfPassed(ctx, res.ID, now, ExpiredReason, model.SystemActorID)
		if err != nil {
			metrics.IncSweepRowFailure()
			s.log.Warn().Err(err).Uint64("reservation_id", res.ID).Msg("sweep: cancel failed")
			continue
		}
		if !changed {
			continue
		}
		count++

		reason, by, at := ExpiredReason, model.SystemActorID, now
		res.Status = model.StatusCancelled
		res.CancellationReason, res.CancelledBy, res.CancelledAt = &reason, &by, &at

		s.record(ctx, model.SystemActorID, model.AuditReservationCancelled, res.ID, map[string]any{
			"previous_status": string(model.StatusAccepted),
			"reason":          ExpiredReason,
			"auto_cancelled":  true,
		})
		s.notify(ctx, model.EventReservationCancelled, res, map[string]any{
			"reason":         ExpiredReason,
			"cancelled_by":   string(model.RoleSystem),
			"notify_client":  true,
			"auto_cancelled": true,
		})
	}

	metrics.AddSweepCancelled(count)
	metrics.IncSweepRun("ok")
	s.log.Info().Int("candidates", len(expired)).Int("cancelled", count).Msg("expiry sweep finished")
	return count, nil
}
