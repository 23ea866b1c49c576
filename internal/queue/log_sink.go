package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// LogSink stands in for the notification broker when none is configured:
// events are written to the log and dropped.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) PublishEvent(_ context.Context, ev model.DomainEvent) error {
	s.log.Info().
		Str("event", ev.Type).
		Uint64("reservation_id", ev.ReservationID).
		Str("user_id", ev.UserID).
		Interface("details", ev.Details).
		Msg("domain event")
	return nil
}
