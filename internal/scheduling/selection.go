package scheduling

import (
	"errors"
	"fmt"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

var (
	ErrNoServices        = errors.New("Please select at least one service")
	ErrNoBaseService     = errors.New("Please select a base service (General, Modern Cut, or Bossing)")
	ErrMultipleBase      = errors.New("Can only select one base service")
	ErrBossingWithAddons = errors.New("Bossing services are premium packages and cannot be combined with add-ons")
)

// IncludedAddonError reports an add-on that is already bundled into the
// selected base service.
type IncludedAddonError struct {
	Addon string
	Base  string
}

func (e *IncludedAddonError) Error() string {
	return fmt.Sprintf("%q is already included in %s", e.Addon, e.Base)
}

// Selection is a validated combination of one base service and its add-ons.
type Selection struct {
	Base                 model.Service   `json:"base_service"`
	Addons               []model.Service `json:"addons"`
	TotalPriceCents      int64           `json:"total_price_cents"`
	TotalDurationMinutes int             `json:"total_duration_minutes"`
}

// Services returns the base followed by the add-ons.
func (s Selection) Services() []model.Service {
	out := make([]model.Service, 0, len(s.Addons)+1)
	out = append(out, s.Base)
	return append(out, s.Addons...)
}

// SummarizeSelection checks the combination rules and totals the selection:
// exactly one base service, no add-ons with a bossing base, and no add-on
// that the base already includes.
func SummarizeSelection(services []model.Service) (Selection, error) {
	if len(services) == 0 {
		return Selection{}, ErrNoServices
	}
	var bases, addons []model.Service
	for _, s := range services {
		if s.CanAnchor() {
			bases = append(bases, s)
		} else {
			addons = append(addons, s)
		}
	}
	switch {
	case len(bases) == 0:
		return Selection{}, ErrNoBaseService
	case len(bases) > 1:
		return Selection{}, ErrMultipleBase
	}
	base := bases[0]
	if base.Type == model.ServiceBossing && len(addons) > 0 {
		return Selection{}, ErrBossingWithAddons
	}
	for _, a := range addons {
		if base.Includes(a.Name) {
			return Selection{}, &IncludedAddonError{Addon: a.Name, Base: base.Name}
		}
	}

	sel := Selection{Base: base, Addons: addons}
	for _, s := range services {
		sel.TotalPriceCents += s.PriceCents
		sel.TotalDurationMinutes += s.DurationMinutes
	}
	if sel.Addons == nil {
		sel.Addons = []model.Service{}
	}
	return sel, nil
}

// AddonCandidates filters addons down to those that can still be added to
// base: active, not base-capable, and not already bundled.
func AddonCandidates(base model.Service, addons []model.Service) []model.Service {
	out := make([]model.Service, 0, len(addons))
	if base.Type == model.ServiceBossing {
		return out
	}
	for _, a := range addons {
		if !a.IsActive || a.CanAnchor() || base.Includes(a.Name) {
			continue
		}
		out = append(out, a)
	}
	return out
}
