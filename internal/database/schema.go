package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Active statuses are spelled out in both dialects; they must match
// model.ActiveStatuses.
const activeStatusList = `'pending','accepted','on_hold','ongoing'`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		service_type TEXT NOT NULL CHECK (service_type IN ('general','modern_cut','bossing','addon')),
		can_be_base BOOLEAN NOT NULL DEFAULT 0,
		price_cents INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 90,
		included_addons TEXT NOT NULL DEFAULT '[]',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS barbers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT 1,
		uid_code TEXT,
		booking_version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS seats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seat_number INTEGER NOT NULL UNIQUE,
		is_available BOOLEAN NOT NULL DEFAULT 1,
		barber_id INTEGER REFERENCES barbers(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS shop_hours (
		day_of_week INTEGER PRIMARY KEY CHECK (day_of_week BETWEEN 0 AND 6),
		is_open BOOLEAN NOT NULL DEFAULT 1,
		open_time TEXT NOT NULL,
		close_time TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		service_recipient TEXT NOT NULL,
		seat_id INTEGER NOT NULL REFERENCES seats(id),
		barber_id INTEGER NOT NULL REFERENCES barbers(id),
		reserved_datetime DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','accepted','on_hold','ongoing','completed','cancelled')),
		total_price_cents INTEGER NOT NULL DEFAULT 0,
		is_rescheduled BOOLEAN NOT NULL DEFAULT 0,
		cancellation_reason TEXT,
		cancelled_by TEXT,
		cancelled_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_active_slot
		ON reservations (barber_id, reserved_datetime) WHERE status IN (` + activeStatusList + `)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_status_time ON reservations (status, reserved_datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id)`,
	`CREATE TABLE IF NOT EXISTS reservation_services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reservation_id INTEGER NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		service_id INTEGER NOT NULL REFERENCES services(id),
		is_base_service BOOLEAN NOT NULL DEFAULT 0,
		price_cents INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_reservation_services_base
		ON reservation_services (reservation_id) WHERE is_base_service = 1`,
	`CREATE TABLE IF NOT EXISTS admin_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_table TEXT NOT NULL,
		target_id TEXT NOT NULL,
		details TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_admin_logs_created ON admin_logs (created_at)`,
}

// MySQL has no partial indexes: the generated active_slot column is 1 for
// active rows and NULL otherwise, and NULLs never collide in a unique key.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS services (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NOT NULL UNIQUE,
		service_type ENUM('general','modern_cut','bossing','addon') NOT NULL,
		can_be_base BOOLEAN NOT NULL DEFAULT FALSE,
		price_cents BIGINT NOT NULL DEFAULT 0,
		duration_minutes INT NOT NULL DEFAULT 90,
		included_addons JSON NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS barbers (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL UNIQUE,
		display_name VARCHAR(120) NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		uid_code VARCHAR(64) NULL,
		booking_version BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seat_number INT NOT NULL UNIQUE,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		barber_id BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_seats_barber FOREIGN KEY (barber_id) REFERENCES barbers(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS shop_hours (
		day_of_week TINYINT UNSIGNED PRIMARY KEY,
		is_open BOOLEAN NOT NULL DEFAULT TRUE,
		open_time VARCHAR(8) NOT NULL,
		close_time VARCHAR(8) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (day_of_week BETWEEN 0 AND 6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		service_recipient VARCHAR(160) NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		barber_id BIGINT UNSIGNED NOT NULL,
		reserved_datetime DATETIME NOT NULL,
		status ENUM('pending','accepted','on_hold','ongoing','completed','cancelled') NOT NULL DEFAULT 'pending',
		total_price_cents BIGINT NOT NULL DEFAULT 0,
		is_rescheduled BOOLEAN NOT NULL DEFAULT FALSE,
		cancellation_reason VARCHAR(500) NULL,
		cancelled_by VARCHAR(64) NULL,
		cancelled_at DATETIME NULL,
		completed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		active_slot TINYINT AS (CASE WHEN status IN (` + activeStatusList + `) THEN 1 ELSE NULL END) STORED,
		UNIQUE KEY ux_reservations_active_slot (barber_id, reserved_datetime, active_slot),
		KEY idx_reservations_status_time (status, reserved_datetime),
		KEY idx_reservations_user (user_id),
		CONSTRAINT fk_reservations_seat FOREIGN KEY (seat_id) REFERENCES seats(id),
		CONSTRAINT fk_reservations_barber FOREIGN KEY (barber_id) REFERENCES barbers(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservation_services (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		service_id BIGINT UNSIGNED NOT NULL,
		is_base_service BOOLEAN NOT NULL DEFAULT FALSE,
		price_cents BIGINT NOT NULL DEFAULT 0,
		base_marker TINYINT AS (CASE WHEN is_base_service THEN 1 ELSE NULL END) STORED,
		UNIQUE KEY ux_reservation_services_base (reservation_id, base_marker),
		CONSTRAINT fk_rs_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE,
		CONSTRAINT fk_rs_service FOREIGN KEY (service_id) REFERENCES services(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS admin_logs (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		actor_id VARCHAR(64) NOT NULL,
		action VARCHAR(64) NOT NULL,
		target_table VARCHAR(64) NOT NULL,
		target_id VARCHAR(64) NOT NULL,
		details JSON NULL,
		created_at DATETIME NOT NULL,
		KEY idx_admin_logs_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema for the given dialect.  Every statement is
// idempotent so Migrate can run on each start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var stmts []string
	switch dialect {
	case MySQL:
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
