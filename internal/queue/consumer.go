package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AuditConsumer drains the audit queue into an AuditWriter.  It is the
// admin-log collaborator: the scheduling service only publishes.
type AuditConsumer struct {
	url    string
	queue  string
	writer AuditWriter
	log    zerolog.Logger
}

func NewAuditConsumer(url, queue string, w AuditWriter, log zerolog.Logger) *AuditConsumer {
	if queue == "" {
		queue = DefaultAuditQueue
	}
	return &AuditConsumer{url: url, queue: queue, writer: w, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(c.url, DefaultDialTimeout)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("audit consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("audit consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("audit consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("audit consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handleMessage(ctx context.Context, body []byte) error {
	var msg AuditMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	rec := msg.Record
	if rec.Action == "" || rec.ActorID == "" {
		return fmt.Errorf("audit message %s: missing action or actor", msg.EventID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = msg.PublishedAt
	}
	if err := c.writer.RecordAudit(ctx, rec); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
