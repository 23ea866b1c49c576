package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/database"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// ReservationRepo provides persistence for reservations and their line
// items.  All timestamps are bound as UTC truncated to the second so the
// same values compare equal on MySQL DATETIME and SQLite text columns.
//
// Writes that can create a conflict (Create, Reschedule) run inside one
// transaction that first bumps barbers.booking_version.  That row lock
// serialises every writer for the same barber, so the guard the caller
// passes sees a stable view of the barber's active reservations.
type ReservationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, dialect database.Dialect) *ReservationRepo {
	return &ReservationRepo{db: db, dialect: dialect}
}

// Guard inspects the barber's active reservations inside the write
// transaction.  Returning an error aborts the write and is passed through
// unchanged.
type Guard func(active []model.Reservation) error

// StatusChange describes a guarded status update.  Nil metadata fields
// keep their stored values.
type StatusChange struct {
	From               model.Status
	To                 model.Status
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
}

// ReservationFilter narrows List.  Zero values mean "no restriction".
type ReservationFilter struct {
	UserID   string
	BarberID uint64
	Statuses []model.Status
	From     *time.Time
	To       *time.Time
	Limit    int
	// NewestFirst orders by reserved_datetime descending.
	NewestFirst bool
	// RecentlyCancelledFirst orders by cancelled_at descending and wins
	// over NewestFirst.
	RecentlyCancelledFirst bool
}

const reservationColumns = `id, user_id, service_recipient, seat_id, barber_id, reserved_datetime, status,
	total_price_cents, is_rescheduled, cancellation_reason, cancelled_by, cancelled_at, completed_at,
	created_at, updated_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func dbTime(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

func dbTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (r *ReservationRepo) txOptions() *sql.TxOptions {
	if r.dialect == database.MySQL {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

func (r *ReservationRepo) withBarberLock(ctx context.Context, barberID uint64, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, r.txOptions())
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE barbers SET booking_version = booking_version + 1 WHERE id = ?`, barberID)
	if err != nil {
		return fmt.Errorf("lock barber %d: %w", barberID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBarberNotFound
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Create inserts res and its line items.  guard runs against the barber's
// active reservations in window after the barber lock is taken; an
// identical active slot that slips past it is still rejected by the
// unique index and reported as ErrSlotTaken.  On success res.ID,
// res.Status, timestamps and res.Services are populated.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation, items []model.ReservationService, window model.TimeWindow, guard Guard) error {
	return r.withBarberLock(ctx, res.BarberID, func(tx *sql.Tx) error {
		active, err := listActive(ctx, tx, res.BarberID, window, 0)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(active); err != nil {
				return err
			}
		}

		now := dbTime(time.Now())
		if res.Status == "" {
			res.Status = model.StatusPending
		}
		res.ReservedAt = dbTime(res.ReservedAt)
		res.CreatedAt, res.UpdatedAt = now, now

		const q = `INSERT INTO reservations (user_id, service_recipient, seat_id, barber_id, reserved_datetime,
		           status, total_price_cents, is_rescheduled, created_at, updated_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, q, res.UserID, res.ServiceRecipient, res.SeatID, res.BarberID,
			res.ReservedAt, string(res.Status), res.TotalPriceCents, res.IsRescheduled, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlotTaken
			}
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		res.ID = uint64(id)

		if err := insertItems(ctx, tx, res.ID, items); err != nil {
			return err
		}
		res.Services = make([]model.ReservationService, len(items))
		for i, it := range items {
			it.ReservationID = res.ID
			res.Services[i] = it
		}
		return nil
	})
}

// insertItems writes all line items in a single statement.
func insertItems(ctx context.Context, tx *sql.Tx, reservationID uint64, items []model.ReservationService) error {
	if len(items) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO reservation_services (reservation_id, service_id, is_base_service, price_cents) VALUES `)
	args := make([]any, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, reservationID, it.ServiceID, it.IsBaseService, it.PriceCents)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}

// GetByID returns the reservation with its line items.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	list := []model.Reservation{*res}
	if err := loadItems(ctx, r.db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListActiveForBarber returns the barber's active reservations whose
// instant falls in window, ordered by time.
func (r *ReservationRepo) ListActiveForBarber(ctx context.Context, barberID uint64, window model.TimeWindow) ([]model.Reservation, error) {
	return listActive(ctx, r.db, barberID, window, 0)
}

func listActive(ctx context.Context, q querier, barberID uint64, window model.TimeWindow, excludeID uint64) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE barber_id = ? AND status IN (` + placeholders(len(model.ActiveStatuses)) + `)
	            AND reserved_datetime >= ? AND reserved_datetime < ?`
	args := []any{barberID}
	args = append(args, statusArgs(model.ActiveStatuses)...)
	args = append(args, dbTime(window.From), dbTime(window.To))
	if excludeID != 0 {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY reserved_datetime, id`
	return queryReservations(ctx, q, query, args...)
}

// List returns reservations matching f with their line items.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.BarberID != 0 {
		where = append(where, "barber_id = ?")
		args = append(args, f.BarberID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		args = append(args, statusArgs(f.Statuses)...)
	}
	if f.From != nil {
		where = append(where, "reserved_datetime >= ?")
		args = append(args, dbTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "reserved_datetime < ?")
		args = append(args, dbTime(*f.To))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch {
	case f.RecentlyCancelledFirst:
		query += " ORDER BY cancelled_at DESC, id DESC"
	case f.NewestFirst:
		query += " ORDER BY reserved_datetime DESC, id DESC"
	default:
		query += " ORDER BY reserved_datetime, id"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	list, err := queryReservations(ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ApplyStatusChange moves a reservation from ch.From to ch.To.  It returns
// ErrStatusChanged when the stored status is no longer ch.From and
// ErrReservationNotFound when the row does not exist.
func (r *ReservationRepo) ApplyStatusChange(ctx context.Context, id uint64, ch StatusChange) error {
	const q = `UPDATE reservations SET
	             status = ?,
	             cancellation_reason = COALESCE(?, cancellation_reason),
	             cancelled_by = COALESCE(?, cancelled_by),
	             cancelled_at = COALESCE(?, cancelled_at),
	             completed_at = COALESCE(?, completed_at),
	             updated_at = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(ch.To), strPtr(ch.CancellationReason), strPtr(ch.CancelledBy),
		dbTimePtr(ch.CancelledAt), dbTimePtr(ch.CompletedAt), dbTime(time.Now()), id, string(ch.From))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *ReservationRepo) missingOrChanged(ctx context.Context, id uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusChanged
}

// Reschedule moves reservation id to at, provided it is still in status
// from.  The reservation becomes accepted and is flagged as rescheduled.
// guard sees the barber's other active reservations in window.
func (r *ReservationRepo) Reschedule(ctx context.Context, id uint64, from model.Status, at time.Time, window model.TimeWindow, guard Guard) error {
	var barberID uint64
	err := r.db.QueryRowContext(ctx, `SELECT barber_id FROM reservations WHERE id = ?`, id).Scan(&barberID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}

	return r.withBarberLock(ctx, barberID, func(tx *sql.Tx) error {
		active, err := listActive(ctx, tx, barberID, window, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(active); err != nil {
				return err
			}
		}
		const q = `UPDATE reservations
		           SET reserved_datetime = ?, status = ?, is_rescheduled = ?, updated_at = ?
		           WHERE id = ? AND status = ?`
		res, err := tx.ExecContext(ctx, q, dbTime(at), string(model.StatusAccepted), true, dbTime(time.Now()), id, string(from))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlotTaken
			}
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStatusChanged
		}
		return nil
	})
}

// ListExpiredAccepted returns accepted reservations whose instant is
// strictly before now.
func (r *ReservationRepo) ListExpiredAccepted(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status = ? AND reserved_datetime < ? ORDER BY reserved_datetime, id`
	return queryReservations(ctx, r.db, query, string(model.StatusAccepted), dbTime(now))
}

// ExpireIfPassed cancels reservation id if it is still accepted and its
// instant is before now.  It reports whether a row changed.
func (r *ReservationRepo) ExpireIfPassed(ctx context.Context, id uint64, now time.Time, reason, by string) (bool, error) {
	const q = `UPDATE reservations
	           SET status = ?, cancellation_reason = ?, cancelled_by = ?, cancelled_at = ?, updated_at = ?
	           WHERE id = ? AND status = ? AND reserved_datetime < ?`
	ts := dbTime(now)
	res, err := r.db.ExecContext(ctx, q, string(model.StatusCancelled), reason, by, ts, ts,
		id, string(model.StatusAccepted), ts)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompletedBetween returns reservations completed in [from, to), with
// line items, for revenue reporting.
func (r *ReservationRepo) CompletedBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status = ? AND completed_at >= ? AND completed_at < ? ORDER BY completed_at, id`
	list, err := queryReservations(ctx, r.db, query, string(model.StatusCompleted), dbTime(from), dbTime(to))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		res                 model.Reservation
		status              string
		reason, cancelledBy sql.NullString
		cancelledAt, doneAt sql.NullTime
	)
	err := s.Scan(&res.ID, &res.UserID, &res.ServiceRecipient, &res.SeatID, &res.BarberID, &res.ReservedAt,
		&status, &res.TotalPriceCents, &res.IsRescheduled, &reason, &cancelledBy, &cancelledAt, &doneAt,
		&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.Status = model.Status(status)
	res.ReservedAt = res.ReservedAt.UTC()
	if reason.Valid {
		v := reason.String
		res.CancellationReason = &v
	}
	if cancelledBy.Valid {
		v := cancelledBy.String
		res.CancelledBy = &v
	}
	if cancelledAt.Valid {
		v := cancelledAt.Time.UTC()
		res.CancelledAt = &v
	}
	if doneAt.Valid {
		v := doneAt.Time.UTC()
		res.CompletedAt = &v
	}
	return &res, nil
}

// loadItems attaches line items to every reservation in list, base first.
func loadItems(ctx context.Context, q querier, list []model.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(list))
	args := make([]any, len(list))
	for i, res := range list {
		idx[res.ID] = i
		args[i] = res.ID
	}
	query := `SELECT rs.id, rs.reservation_id, rs.service_id, s.name, rs.is_base_service, rs.price_cents
	          FROM reservation_services rs
	          JOIN services s ON s.id = rs.service_id
	          WHERE rs.reservation_id IN (` + placeholders(len(list)) + `)
	          ORDER BY rs.reservation_id, rs.is_base_service DESC, rs.id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.ReservationService
		if err := rows.Scan(&it.ID, &it.ReservationID, &it.ServiceID, &it.ServiceName, &it.IsBaseService, &it.PriceCents); err != nil {
			return err
		}
		i := idx[it.ReservationID]
		list[i].Services = append(list[i].Services, it)
	}
	return rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusArgs(statuses []model.Status) []any {
	out := make([]any, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
