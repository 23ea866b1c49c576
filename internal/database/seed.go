package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the reference data loaded into an empty database: the service
// catalog, barbers, seats and weekly shop hours.
type Seed struct {
	Services  []SeedService `yaml:"services"`
	Barbers   []SeedBarber  `yaml:"barbers"`
	Seats     []SeedSeat    `yaml:"seats"`
	ShopHours []SeedHours   `yaml:"shop_hours"`
}

type SeedService struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	CanBeBase       bool     `yaml:"can_be_base"`
	PriceCents      int64    `yaml:"price_cents"`
	DurationMinutes int      `yaml:"duration_minutes"`
	IncludedAddons  []string `yaml:"included_addons"`
	Inactive        bool     `yaml:"inactive"`
}

type SeedBarber struct {
	UserID      string `yaml:"user_id"`
	DisplayName string `yaml:"display_name"`
	UIDCode     string `yaml:"uid_code"`
	Unavailable bool   `yaml:"unavailable"`
}

// SeedSeat references its barber by external user id.
type SeedSeat struct {
	SeatNumber   int    `yaml:"seat_number"`
	BarberUserID string `yaml:"barber_user_id"`
	Unavailable  bool   `yaml:"unavailable"`
}

type SeedHours struct {
	DayOfWeek int    `yaml:"day_of_week"`
	IsOpen    bool   `yaml:"is_open"`
	OpenTime  string `yaml:"open_time"`
	CloseTime string `yaml:"close_time"`
}

// LoadSeed reads a YAML seed file.  ${VAR} references are expanded from the
// environment before parsing.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &s); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &s, nil
}

// ApplySeed inserts the seed in a single transaction.  Each table is only
// filled when it is empty, so operator edits survive a restart.
func ApplySeed(ctx context.Context, db *sql.DB, s *Seed) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if empty, err := tableEmpty(ctx, tx, "services"); err != nil {
		return err
	} else if empty {
		for _, svc := range s.Services {
			addons := svc.IncludedAddons
			if addons == nil {
				addons = []string{}
			}
			encoded, err := json.Marshal(addons)
			if err != nil {
				return err
			}
			duration := svc.DurationMinutes
			if duration == 0 {
				duration = 90
			}
			const q = `INSERT INTO services (name, service_type, can_be_base, price_cents, duration_minutes, included_addons, is_active)
			           VALUES (?, ?, ?, ?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, q, svc.Name, svc.Type, svc.CanBeBase, svc.PriceCents,
				duration, string(encoded), !svc.Inactive); err != nil {
				return fmt.Errorf("seed service %q: %w", svc.Name, err)
			}
		}
	}

	if empty, err := tableEmpty(ctx, tx, "barbers"); err != nil {
		return err
	} else if empty {
		for _, b := range s.Barbers {
			var uid any
			if b.UIDCode != "" {
				uid = b.UIDCode
			}
			const q = `INSERT INTO barbers (user_id, display_name, is_available, uid_code) VALUES (?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, q, b.UserID, b.DisplayName, !b.Unavailable, uid); err != nil {
				return fmt.Errorf("seed barber %q: %w", b.UserID, err)
			}
		}
	}

	if empty, err := tableEmpty(ctx, tx, "seats"); err != nil {
		return err
	} else if empty {
		for _, st := range s.Seats {
			var barberID any
			if st.BarberUserID != "" {
				var id uint64
				err := tx.QueryRowContext(ctx, `SELECT id FROM barbers WHERE user_id = ?`, st.BarberUserID).Scan(&id)
				if err != nil {
					return fmt.Errorf("seed seat %d: barber %q: %w", st.SeatNumber, st.BarberUserID, err)
				}
				barberID = id
			}
			const q = `INSERT INTO seats (seat_number, is_available, barber_id) VALUES (?, ?, ?)`
			if _, err := tx.ExecContext(ctx, q, st.SeatNumber, !st.Unavailable, barberID); err != nil {
				return fmt.Errorf("seed seat %d: %w", st.SeatNumber, err)
			}
		}
	}

	if empty, err := tableEmpty(ctx, tx, "shop_hours"); err != nil {
		return err
	} else if empty {
		for _, h := range s.ShopHours {
			const q = `INSERT INTO shop_hours (day_of_week, is_open, open_time, close_time) VALUES (?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, q, h.DayOfWeek, h.IsOpen, h.OpenTime, h.CloseTime); err != nil {
				return fmt.Errorf("seed shop hours day %d: %w", h.DayOfWeek, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func tableEmpty(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n == 0, nil
}
