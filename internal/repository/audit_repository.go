package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// AuditRepo stores admin log entries.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// AuditFilter narrows List.
type AuditFilter struct {
	Action string
	Limit  int
}

// RecordAudit inserts rec.  A zero CreatedAt is set to now.
func (r *AuditRepo) RecordAudit(ctx context.Context, rec model.AuditRecord) error {
	var details any
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = string(b)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	const q = `INSERT INTO admin_logs (actor_id, action, target_table, target_id, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, rec.ActorID, rec.Action, rec.TargetTable, rec.TargetID, details, dbTime(created))
	return err
}

// List returns the newest entries first.  Limit defaults to 100.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditRecord, error) {
	query := `SELECT id, actor_id, action, target_table, target_id, details, created_at FROM admin_logs`
	var args []any
	if f.Action != "" {
		query += ` WHERE action = ?`
		args = append(args, f.Action)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var (
			rec     model.AuditRecord
			details sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.TargetTable, &rec.TargetID, &details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &rec.Details); err != nil {
				return nil, fmt.Errorf("decode audit %d details: %w", rec.ID, err)
			}
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
