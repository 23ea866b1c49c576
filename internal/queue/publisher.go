package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/metrics"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// Dial defaults.  A failed dial blocks further dials for DefaultRedialBackoff
// so publishes fail fast while the broker is unreachable.
const (
	DefaultDialTimeout   = 2 * time.Second
	DefaultRedialBackoff = 15 * time.Second
)

// ErrBrokerUnavailable is returned while a failed dial is backing off.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// dial opens a connection whose TCP connect is bounded by timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// AuditWriter persists audit records.  Implemented by
// *repository.AuditRepo.
type AuditWriter interface {
	RecordAudit(ctx context.Context, rec model.AuditRecord) error
}

// Publisher sends events and audit records to durable queues as
// persistent JSON messages.  The connection is opened on first use and
// reopened after a failed publish.
type Publisher struct {
	url           string
	eventsQueue   string
	auditQueue    string
	fallback      AuditWriter
	log           zerolog.Logger
	dialTimeout   time.Duration
	redialBackoff time.Duration

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
	dialErr  error
}

type PublisherOption func(*Publisher)

// WithQueues overrides the default queue names.
func WithQueues(events, audit string) PublisherOption {
	return func(p *Publisher) {
		if events != "" {
			p.eventsQueue = events
		}
		if audit != "" {
			p.auditQueue = audit
		}
	}
}

// WithAuditFallback writes audit records directly when the broker cannot
// take them.
func WithAuditFallback(w AuditWriter) PublisherOption {
	return func(p *Publisher) { p.fallback = w }
}

func WithPublisherLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.log = l }
}

// WithDialTimeout bounds the broker connect; the amqp default is 30s.
func WithDialTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithRedialBackoff sets how long publishes fail fast after a failed dial.
func WithRedialBackoff(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d >= 0 {
			p.redialBackoff = d
		}
	}
}

func NewPublisher(url string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		url:           url,
		eventsQueue:   DefaultEventsQueue,
		auditQueue:    DefaultAuditQueue,
		log:           zerolog.Nop(),
		dialTimeout:   DefaultDialTimeout,
		redialBackoff: DefaultRedialBackoff,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PublishEvent implements service.EventPublisher.
func (p *Publisher) PublishEvent(ctx context.Context, ev model.DomainEvent) error {
	msg := EventMessage{EventID: uuid.NewString(), PublishedAt: time.Now().UTC(), Event: ev}
	return p.publish(ctx, p.eventsQueue, "event", msg.EventID, msg)
}

// RecordAudit implements service.AuditSink.
func (p *Publisher) RecordAudit(ctx context.Context, rec model.AuditRecord) error {
	msg := AuditMessage{EventID: uuid.NewString(), PublishedAt: time.Now().UTC(), Record: rec}
	err := p.publish(ctx, p.auditQueue, "audit", msg.EventID, msg)
	if err != nil && p.fallback != nil {
		p.log.Warn().Err(err).Str("action", rec.Action).Msg("audit publish failed, writing directly")
		return p.fallback.RecordAudit(ctx, rec)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, queue, kind, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		metrics.IncEventPublished(kind, "error")
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.reset()
		metrics.IncEventPublished(kind, "error")
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	metrics.IncEventPublished(kind, "ok")
	return nil
}

// channel returns an open channel, dialing and declaring both queues if
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.nextDial) {
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, p.dialErr)
	}

	conn, err := dial(p.url, p.dialTimeout)
	if err != nil {
		p.nextDial, p.dialErr = time.Now().Add(p.redialBackoff), err
		p.log.Warn().Err(err).Dur("retry_in", p.redialBackoff).Msg("rabbitmq dial failed")
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.nextDial, p.dialErr = time.Time{}, nil
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, q := range []string{p.eventsQueue, p.auditQueue} {
		// durable, not auto-deleted, not exclusive
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
