package scheduling

import (
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// SlotTimes lists candidate start times for a day, stepping by step from
// opening time while the start is before closing time.  Closed days yield
// no slots.  Whether a slot actually fits before closing is left to
// CheckShopHours.
func SlotTimes(hours model.ShopHours, step time.Duration) ([]string, error) {
	if !hours.IsOpen {
		return []string{}, nil
	}
	open, err := hours.OpenSeconds()
	if err != nil {
		return nil, err
	}
	closing, err := hours.CloseSeconds()
	if err != nil {
		return nil, err
	}
	stepSecs := int(step / time.Second)
	if stepSecs <= 0 {
		stepSecs = int(DefaultBuffer / time.Second)
	}
	out := []string{}
	for t := open; t < closing; t += stepSecs {
		out = append(out, model.FormatClock(t))
	}
	return out, nil
}

// LocalInstant combines a shop-local date (YYYY-MM-DD) and clock (HH:MM or
// HH:MM:SS) into a UTC instant truncated to the second.
func LocalInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	secs, err := model.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, secs, 0, loc)
	return local.UTC().Truncate(time.Second), nil
}
