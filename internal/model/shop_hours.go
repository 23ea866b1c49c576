package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ShopHours holds the opening window for one weekday (0 = Sunday).  Times
// are local wall-clock strings in HH:MM:SS form.
type ShopHours struct {
	DayOfWeek int    `json:"day_of_week"` // shop_hours.day_of_week
	IsOpen    bool   `json:"is_open"`     // shop_hours.is_open
	OpenTime  string `json:"open_time"`   // shop_hours.open_time
	CloseTime string `json:"close_time"`  // shop_hours.close_time
}

// OpenSeconds returns open_time as seconds since midnight.
func (h ShopHours) OpenSeconds() (int, error) { return ParseClock(h.OpenTime) }

// CloseSeconds returns close_time as seconds since midnight.
func (h ShopHours) CloseSeconds() (int, error) { return ParseClock(h.CloseTime) }

// Validate checks the day index and, on open days, that the window is not empty.
func (h ShopHours) Validate() error {
	if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be between 0 and 6, got %d", h.DayOfWeek)
	}
	open, err := h.OpenSeconds()
	if err != nil {
		return fmt.Errorf("open_time: %w", err)
	}
	closing, err := h.CloseSeconds()
	if err != nil {
		return fmt.Errorf("close_time: %w", err)
	}
	if h.IsOpen && open >= closing {
		return fmt.Errorf("open_time %s must be before close_time %s", h.OpenTime, h.CloseTime)
	}
	return nil
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into seconds since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	limits := []int{23, 59, 59}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock value %q", s)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return total, nil
}

// FormatClock renders seconds since midnight as HH:MM:SS.
func FormatClock(secs int) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
