// Package worker runs the recurring expiry sweep.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpiryRunner is implemented by service.SchedulingService.
type ExpiryRunner interface {
	ExpirePassedReservations(ctx context.Context, now time.Time) (int, error)
}

// Sweeper cancels accepted reservations whose time has passed, once at
// start and then every interval.  A run is skipped while another holder
// owns the lock.
type Sweeper struct {
	runner   ExpiryRunner
	locker   Locker
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewSweeper(runner ExpiryRunner, locker Locker, interval time.Duration, log zerolog.Logger) *Sweeper {
	if locker == nil {
		locker = &LocalLocker{}
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		runner:   runner,
		locker:   locker,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Start blocks until ctx is done.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("expiry sweeper started")
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Sweeper) tick(ctx context.Context) {
	if _, _, err := w.RunOnce(ctx); err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
	}
}

// RunOnce performs a single sweep.  ran is false when the lock was held.
func (w *Sweeper) RunOnce(ctx context.Context) (count int, ran bool, err error) {
	release, ok, err := w.locker.TryLock(ctx)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		w.log.Debug().Msg("expiry sweep skipped, lock held")
		return 0, false, nil
	}
	defer release()

	count, err = w.runner.ExpirePassedReservations(ctx, w.now())
	if err != nil {
		return 0, true, err
	}
	return count, true, nil
}
