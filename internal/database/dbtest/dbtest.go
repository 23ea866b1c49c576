// Package dbtest opens throwaway SQLite databases with the full schema and
// a small known catalog, for tests in other packages.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckck92/BLG-WEBSITE/internal/database"
)

// Fixture ids.  Rows are inserted in seed order into fresh tables, so the
// autoincrement ids are stable.
const (
	ServiceHaircut   uint64 = 1 // general, includes Hot Towel
	ServiceModernCut uint64 = 2
	ServiceBossing   uint64 = 3
	ServiceHotTowel  uint64 = 4
	ServiceBeardTrim uint64 = 5
	ServiceHairWash  uint64 = 6
	ServiceRetired   uint64 = 7 // inactive

	Barber1 uint64 = 1
	Barber2 uint64 = 2

	Seat1         uint64 = 1 // Barber1
	Seat2         uint64 = 2 // Barber2
	SeatNoBarber  uint64 = 3
	SeatOutOfUse  uint64 = 4 // Barber2, unavailable
	Barber1UserID        = "barber-user-1"
	Barber2UserID        = "barber-user-2"
)

// Fixture is the seed every dbtest database starts with.  The shop is
// closed on Sunday and open 09:00-18:00 the rest of the week.
func Fixture() *database.Seed {
	s := &database.Seed{
		Services: []database.SeedService{
			{Name: "Haircut", Type: "general", CanBeBase: true, PriceCents: 25000, DurationMinutes: 60, IncludedAddons: []string{"Hot Towel"}},
			{Name: "Modern Cut", Type: "modern_cut", CanBeBase: true, PriceCents: 40000, DurationMinutes: 75},
			{Name: "Bossing Package", Type: "bossing", CanBeBase: true, PriceCents: 90000, DurationMinutes: 90},
			{Name: "Hot Towel", Type: "addon", PriceCents: 5000, DurationMinutes: 10},
			{Name: "Beard Trim", Type: "addon", PriceCents: 8000, DurationMinutes: 15},
			{Name: "Hair Wash", Type: "addon", PriceCents: 6000, DurationMinutes: 10},
			{Name: "Retired Cut", Type: "general", CanBeBase: true, PriceCents: 20000, DurationMinutes: 60, Inactive: true},
		},
		Barbers: []database.SeedBarber{
			{UserID: Barber1UserID, DisplayName: "Ramon"},
			{UserID: Barber2UserID, DisplayName: "Jun"},
		},
		Seats: []database.SeedSeat{
			{SeatNumber: 1, BarberUserID: Barber1UserID},
			{SeatNumber: 2, BarberUserID: Barber2UserID},
			{SeatNumber: 3},
			{SeatNumber: 4, BarberUserID: Barber2UserID, Unavailable: true},
		},
	}
	for day := 0; day < 7; day++ {
		s.ShopHours = append(s.ShopHours, database.SeedHours{
			DayOfWeek: day, IsOpen: day != 0, OpenTime: "09:00:00", CloseTime: "18:00:00",
		})
	}
	return s
}

// Open returns a migrated, seeded database that is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db := OpenEmpty(t)
	require.NoError(t, database.ApplySeed(context.Background(), db, Fixture()))
	return db
}

// OpenEmpty returns a migrated database with no rows.
func OpenEmpty(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return db
}
