package service

import (
	"context"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// RevenueSummary totals completed reservations by completion time, in the
// shop's local calendar.  Weeks start on Sunday.
type RevenueSummary struct {
	TodayCents int64 `json:"today_cents"`
	WeekCents  int64 `json:"week_cents"`
	MonthCents int64 `json:"month_cents"`
	TodayCount int   `json:"today_count"`
	WeekCount  int   `json:"week_count"`
	MonthCount int   `json:"month_count"`
}

// Revenue computes today's, this week's and this month's takings.
func (s *SchedulingService) Revenue(ctx context.Context) (RevenueSummary, error) {
	loc := s.validator.Location()
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	week := today.AddDate(0, 0, -int(today.Weekday()))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	from := month
	if week.Before(from) {
		from = week
	}
	list, err := s.store.CompletedBetween(ctx, from.UTC(), tomorrow.UTC())
	if err != nil {
		return RevenueSummary{}, systemErr("load completed reservations", err)
	}

	var sum RevenueSummary
	for _, res := range list {
		if res.CompletedAt == nil {
			continue
		}
		at := *res.CompletedAt
		if !at.Before(today) {
			sum.TodayCents += res.TotalPriceCents
			sum.TodayCount++
		}
		if !at.Before(week) {
			sum.WeekCents += res.TotalPriceCents
			sum.WeekCount++
		}
		if !at.Before(month) {
			sum.MonthCents += res.TotalPriceCents
			sum.MonthCount++
		}
	}
	return sum, nil
}

// CompletedReservations returns reservations completed in [from, to).
func (s *SchedulingService) CompletedReservations(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	if !from.Before(to) {
		return nil, invalid("The start of the period must be before its end", nil)
	}
	list, err := s.store.CompletedBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, systemErr("load completed reservations", err)
	}
	return nonNil(list), nil
}
