package model

import (
	"fmt"
	"strings"
	"time"
)

// ServiceType is the closed set of catalog service kinds.  General,
// ModernCut and Bossing services may anchor a reservation; Addon services
// only ever ride along with a base service.
type ServiceType string

const (
	ServiceGeneral   ServiceType = "general"
	ServiceModernCut ServiceType = "modern_cut"
	ServiceBossing   ServiceType = "bossing"
	ServiceAddon     ServiceType = "addon"
)

// ServiceTypes lists every service type in display order.
var ServiceTypes = []ServiceType{ServiceGeneral, ServiceModernCut, ServiceBossing, ServiceAddon}

// ParseServiceType converts a stored string into a ServiceType.
func ParseServiceType(s string) (ServiceType, error) {
	t := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ServiceTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown service type %q", s)
}

// Service is a catalog entry a client can select when booking.
//
// Fields:
//
//	ID              – primary key identifier.
//	Name            – display name, unique across the catalog.
//	Type            – general, modern_cut, bossing or addon.
//	CanBeBase       – whether the service may anchor a reservation.
//	PriceCents      – current price; snapshotted into line items at booking.
//	DurationMinutes – nominal service length.
//	IncludedAddons  – names of add-ons bundled for free with this base.
//	IsActive        – inactive services are hidden and cannot be booked.
type Service struct {
	ID              uint64      `json:"id"`               // services.id
	Name            string      `json:"name"`             // services.name
	Type            ServiceType `json:"service_type"`     // services.service_type
	CanBeBase       bool        `json:"can_be_base"`      // services.can_be_base
	PriceCents      int64       `json:"price_cents"`      // services.price_cents
	DurationMinutes int         `json:"duration_minutes"` // services.duration_minutes
	IncludedAddons  []string    `json:"included_addons"`  // services.included_addons (JSON array)
	IsActive        bool        `json:"is_active"`        // services.is_active
	CreatedAt       time.Time   `json:"created_at"`       // services.created_at
}

// CanAnchor reports whether the service can be the base of a reservation.
// Addon-typed rows never anchor, whatever their can_be_base flag says.
func (s Service) CanAnchor() bool {
	return s.CanBeBase && s.Type != ServiceAddon
}

// Includes reports whether addonName is bundled into this service.
func (s Service) Includes(addonName string) bool {
	for _, n := range s.IncludedAddons {
		if n == addonName {
			return true
		}
	}
	return false
}
