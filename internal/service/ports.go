package service

import (
	"context"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
)

// Catalog is the reference data the scheduler reads.  Implemented by
// *repository.CatalogRepo.
type Catalog interface {
	GetService(ctx context.Context, id uint64) (*model.Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error)
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
	ListSeats(ctx context.Context, availableOnly bool) ([]model.Seat, error)
	GetShopHours(ctx context.Context, day int) (*model.ShopHours, error)
	ListShopHours(ctx context.Context) ([]model.ShopHours, error)
	UpsertShopHours(ctx context.Context, h model.ShopHours) error
}

// ReservationStore persists reservations.  Implemented by
// *repository.ReservationRepo.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation, items []model.ReservationService, window model.TimeWindow, guard repository.Guard) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	ListActiveForBarber(ctx context.Context, barberID uint64, window model.TimeWindow) ([]model.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, error)
	ApplyStatusChange(ctx context.Context, id uint64, ch repository.StatusChange) error
	Reschedule(ctx context.Context, id uint64, from model.Status, at time.Time, window model.TimeWindow, guard repository.Guard) error
	ListExpiredAccepted(ctx context.Context, now time.Time) ([]model.Reservation, error)
	ExpireIfPassed(ctx context.Context, id uint64, now time.Time, reason, by string) (bool, error)
	CompletedBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
}

// EventPublisher hands domain events to the notification collaborator.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev model.DomainEvent) error
}

// AuditSink hands audit records to the admin-log collaborator.
type AuditSink interface {
	RecordAudit(ctx context.Context, rec model.AuditRecord) error
}

type nopPublisher struct{}

func (nopPublisher) PublishEvent(context.Context, model.DomainEvent) error { return nil }

type nopAudit struct{}

func (nopAudit) RecordAudit(context.Context, model.AuditRecord) error { return nil }
