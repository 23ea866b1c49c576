package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// CatalogRepo reads the reference data a booking depends on: services,
// seats with their barbers, and weekly shop hours.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const serviceColumns = `id, name, service_type, can_be_base, price_cents, duration_minutes, included_addons, is_active, created_at`

// GetService returns one service, active or not.
func (r *CatalogRepo) GetService(ctx context.Context, id uint64) (*model.Service, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	return svc, err
}

// ListServices returns services ordered by price.  When activeOnly is set
// inactive services are left out.
func (r *CatalogRepo) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		query += ` WHERE is_active = ?`
	}
	query += ` ORDER BY price_cents, id`
	var args []any
	if activeOnly {
		args = append(args, true)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *svc)
	}
	return out, rows.Err()
}

func scanService(s rowScanner) (*model.Service, error) {
	var (
		svc     model.Service
		typ     string
		addons  sql.NullString
		created sql.NullTime
	)
	if err := s.Scan(&svc.ID, &svc.Name, &typ, &svc.CanBeBase, &svc.PriceCents, &svc.DurationMinutes,
		&addons, &svc.IsActive, &created); err != nil {
		return nil, err
	}
	t, err := model.ParseServiceType(typ)
	if err != nil {
		return nil, fmt.Errorf("service %d: %w", svc.ID, err)
	}
	svc.Type = t
	svc.IncludedAddons = []string{}
	if addons.Valid && addons.String != "" {
		if err := json.Unmarshal([]byte(addons.String), &svc.IncludedAddons); err != nil {
			return nil, fmt.Errorf("service %d included_addons: %w", svc.ID, err)
		}
	}
	if created.Valid {
		svc.CreatedAt = created.Time.UTC()
	}
	return &svc, nil
}

const seatQuery = `SELECT s.id, s.seat_number, s.is_available, s.barber_id, s.created_at,
	       b.id, b.user_id, b.display_name, b.is_available, b.uid_code
	FROM seats s
	LEFT JOIN barbers b ON b.id = s.barber_id`

// GetSeat returns a seat and, when assigned, its barber.
func (r *CatalogRepo) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	seat, err := scanSeat(r.db.QueryRowContext(ctx, seatQuery+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return seat, err
}

// ListSeats returns seats ordered by seat number.  availableOnly keeps
// only seats marked available.
func (r *CatalogRepo) ListSeats(ctx context.Context, availableOnly bool) ([]model.Seat, error) {
	query := seatQuery
	var args []any
	if availableOnly {
		query += ` WHERE s.is_available = ?`
		args = append(args, true)
	}
	query += ` ORDER BY s.seat_number`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *seat)
	}
	return out, rows.Err()
}

func scanSeat(s rowScanner) (*model.Seat, error) {
	var (
		seat               model.Seat
		barberFK, barberID sql.NullInt64
		created            sql.NullTime
		userID, name, uid  sql.NullString
		barberAvail        sql.NullBool
	)
	if err := s.Scan(&seat.ID, &seat.SeatNumber, &seat.IsAvailable, &barberFK, &created,
		&barberID, &userID, &name, &barberAvail, &uid); err != nil {
		return nil, err
	}
	if created.Valid {
		seat.CreatedAt = created.Time.UTC()
	}
	if barberFK.Valid {
		id := uint64(barberFK.Int64)
		seat.BarberID = &id
	}
	if barberID.Valid {
		b := &model.Barber{
			ID:          uint64(barberID.Int64),
			UserID:      userID.String,
			DisplayName: name.String,
			IsAvailable: barberAvail.Bool,
		}
		if uid.Valid {
			v := uid.String
			b.UIDCode = &v
		}
		seat.Barber = b
	}
	return &seat, nil
}

// GetShopHours returns the hours for one weekday (0 = Sunday).
func (r *CatalogRepo) GetShopHours(ctx context.Context, day int) (*model.ShopHours, error) {
	var h model.ShopHours
	err := r.db.QueryRowContext(ctx,
		`SELECT day_of_week, is_open, open_time, close_time FROM shop_hours WHERE day_of_week = ?`, day,
	).Scan(&h.DayOfWeek, &h.IsOpen, &h.OpenTime, &h.CloseTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShopHoursNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListShopHours returns every configured weekday, Sunday first.
func (r *CatalogRepo) ListShopHours(ctx context.Context) ([]model.ShopHours, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day_of_week, is_open, open_time, close_time FROM shop_hours ORDER BY day_of_week`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ShopHours
	for rows.Next() {
		var h model.ShopHours
		if err := rows.Scan(&h.DayOfWeek, &h.IsOpen, &h.OpenTime, &h.CloseTime); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpsertShopHours replaces the hours for h.DayOfWeek, inserting the row
// if the day has never been configured.
func (r *CatalogRepo) UpsertShopHours(ctx context.Context, h model.ShopHours) error {
	now := dbTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE shop_hours SET is_open = ?, open_time = ?, close_time = ?, updated_at = ? WHERE day_of_week = ?`,
		h.IsOpen, h.OpenTime, h.CloseTime, now, h.DayOfWeek)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the values are unchanged.
	if _, err := r.GetShopHours(ctx, h.DayOfWeek); err == nil {
		return nil
	} else if !errors.Is(err, ErrShopHoursNotFound) {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO shop_hours (day_of_week, is_open, open_time, close_time, updated_at) VALUES (?, ?, ?, ?, ?)`,
		h.DayOfWeek, h.IsOpen, h.OpenTime, h.CloseTime, now)
	return err
}
