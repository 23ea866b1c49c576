package model

import "time"

// Domain event types emitted for the notification collaborator.
const (
	EventReservationCancelled     = "reservation_cancelled"
	EventReservationRescheduled   = "reservation_rescheduled"
	EventReservationStatusChanged = "reservation_status_changed"
)

// Audit actions recorded for the admin log.
const (
	AuditReservationCreated       = "reservation_created"
	AuditReservationCancelled     = "reservation_cancelled"
	AuditReservationStatusUpdated = "reservation_status_updated"
	AuditReservationRescheduled   = "reservation_rescheduled"
	AuditShopHoursUpdated         = "shop_hours_updated"
)

// DomainEvent tells the notification service that something happened to a
// client's reservation.  Message wording is left to the consumer.
type DomainEvent struct {
	Type          string         `json:"type"`
	ReservationID uint64         `json:"reservation_id"`
	UserID        string         `json:"user_id"`
	Details       map[string]any `json:"details,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// AuditRecord is one admin log entry.
type AuditRecord struct {
	ID          uint64         `json:"id,omitempty"` // admin_logs.id
	ActorID     string         `json:"actor_id"`     // admin_logs.actor_id
	Action      string         `json:"action"`       // admin_logs.action
	TargetTable string         `json:"target_table"` // admin_logs.target_table
	TargetID    string         `json:"target_id"`    // admin_logs.target_id
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"` // admin_logs.created_at
}
