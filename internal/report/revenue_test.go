package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

func TestWriteRevenue(t *testing.T) {
	done := time.Date(2024, 1, 10, 11, 35, 0, 0, time.UTC)
	list := []model.Reservation{
		{
			ID: 7, ServiceRecipient: "Ana", BarberID: 1, SeatID: 1,
			ReservedAt:      time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			CompletedAt:     &done,
			TotalPriceCents: 33000,
			Services: []model.ReservationService{
				{ServiceID: 1, ServiceName: "Haircut", IsBaseService: true, PriceCents: 25000},
				{ServiceID: 5, ServiceName: "Beard Trim", PriceCents: 8000},
			},
		},
		{
			ID: 9, ServiceRecipient: "Ben", BarberID: 2, SeatID: 2,
			ReservedAt:      time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC),
			CompletedAt:     &done,
			TotalPriceCents: 25050,
			Services: []model.ReservationService{
				{ServiceID: 1, ServiceName: "Haircut", IsBaseService: true, PriceCents: 25050},
			},
		},
	}

	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRevenue(&buf, list, manila))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetReservations)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, reservationColumns, rows[0])
	assert.Equal(t, []string{"7", "2024-01-10 19:35", "2024-01-10 18:00", "Ana", "1", "1", "Haircut, Beard Trim", "330"}, rows[1])
	assert.Equal(t, "250.5", rows[2][7])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "580.5", rows[3][7])

	rows, err = f.GetRows(SheetServices)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Haircut", "2", "500.5"}, rows[1])
	assert.Equal(t, []string{"Beard Trim", "1", "80"}, rows[2])
}

func TestWriteRevenueEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRevenue(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetReservations, SheetServices}, f.GetSheetList())

	rows, err := f.GetRows(SheetReservations)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Total", rows[1][0])
}
