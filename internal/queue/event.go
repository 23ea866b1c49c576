// Package queue carries domain events and audit records over RabbitMQ.
// Events go to the notification collaborator; audit records are consumed
// back by AuditConsumer and written to admin_logs.
package queue

import (
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// Default queue names.
const (
	DefaultEventsQueue = "reservation.events"
	DefaultAuditQueue  = "reservation.audit"
)

// EventMessage is the body published to the events queue.
type EventMessage struct {
	EventID     string            `json:"event_id"`
	PublishedAt time.Time         `json:"published_at"`
	Event       model.DomainEvent `json:"event"`
}

// AuditMessage is the body published to the audit queue.
type AuditMessage struct {
	EventID     string            `json:"event_id"`
	PublishedAt time.Time         `json:"published_at"`
	Record      model.AuditRecord `json:"record"`
}
