// Package report renders revenue exports as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

const (
	SheetReservations = "Reservations"
	SheetServices     = "Services"
)

var reservationColumns = []string{
	"Reservation", "Completed", "Reserved", "Recipient", "Barber", "Seat", "Services", "Total",
}

var serviceColumns = []string{"Service", "Times", "Revenue"}

// WriteRevenue writes one row per completed reservation and a per-service
// breakdown.  Times are rendered in loc, amounts in whole currency units.
func WriteRevenue(w io.Writer, list []model.Reservation, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetReservations); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetServices); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetServices, err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeRow(f, SheetReservations, 1, toAny(reservationColumns)); err != nil {
		return err
	}
	if err := styleHeader(f, SheetReservations, len(reservationColumns), bold); err != nil {
		return err
	}

	type serviceTotal struct {
		name  string
		count int
		cents int64
	}
	byService := map[uint64]*serviceTotal{}
	var total int64
	row := 2
	for _, res := range list {
		names := make([]string, 0, len(res.Services))
		for _, item := range res.Services {
			names = append(names, item.ServiceName)
			st := byService[item.ServiceID]
			if st == nil {
				st = &serviceTotal{name: item.ServiceName}
				byService[item.ServiceID] = st
			}
			st.count++
			st.cents += item.PriceCents
		}
		completed := ""
		if res.CompletedAt != nil {
			completed = res.CompletedAt.In(loc).Format("2006-01-02 15:04")
		}
		err := writeRow(f, SheetReservations, row, []any{
			res.ID,
			completed,
			res.ReservedAt.In(loc).Format("2006-01-02 15:04"),
			res.ServiceRecipient,
			res.BarberID,
			res.SeatID,
			strings.Join(names, ", "),
			units(res.TotalPriceCents),
		})
		if err != nil {
			return err
		}
		total += res.TotalPriceCents
		row++
	}
	if err := writeRow(f, SheetReservations, row, []any{"Total", "", "", "", "", "", "", units(total)}); err != nil {
		return err
	}
	if err := styleRow(f, SheetReservations, row, len(reservationColumns), bold); err != nil {
		return err
	}

	if err := writeRow(f, SheetServices, 1, toAny(serviceColumns)); err != nil {
		return err
	}
	if err := styleHeader(f, SheetServices, len(serviceColumns), bold); err != nil {
		return err
	}
	totals := make([]*serviceTotal, 0, len(byService))
	for _, st := range byService {
		totals = append(totals, st)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].cents != totals[j].cents {
			return totals[i].cents > totals[j].cents
		}
		return totals[i].name < totals[j].name
	})
	for i, st := range totals {
		if err := writeRow(f, SheetServices, i+2, []any{st.name, st.count, units(st.cents)}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	return styleRow(f, sheet, 1, cols, style)
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func units(cents int64) float64 { return float64(cents) / 100 }

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
