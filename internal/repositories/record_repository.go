package repositories

import (
	"context"
	"time"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordRepository is insert-and-read only; counting records are never updated
type RecordRepository struct {
	DB *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{DB: db}
}

const recordColumns = `id, session_id, warehouse_name, date, team_leader_name, username, bin_no,
	qty_counted, qty_recounted, qty_as_per_books, difference, reason_for_difference, created_at`

// Append inserts the record and bumps its session's running totals in one
// transaction. The totals update only matches an active session, so a closed
// or missing session yields ErrNotFound and nothing is written.
func (r *RecordRepository) Append(ctx context.Context, rec *models.CountingRecord) (*models.CountingSession, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO counting_records(id, session_id, warehouse_name, date, team_leader_name, username, bin_no,
			qty_counted, qty_recounted, qty_as_per_books, difference, reason_for_difference)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`,
		rec.ID, rec.SessionID, rec.WarehouseName, rec.Date, rec.TeamLeaderName, rec.Username, rec.BinNo,
		rec.QtyCounted, rec.QtyRecounted, rec.QtyAsPerBooks, rec.Difference, rec.ReasonForDifference,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	session, err := scanSession(tx.QueryRow(ctx, `
		UPDATE counting_sessions
		SET total_bins_counted = total_bins_counted + 1,
		    total_qty_counted = total_qty_counted + $2
		WHERE id = $1 AND status = 'active'
		RETURNING `+sessionColumns, rec.SessionID, rec.QtyCounted))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *RecordRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.CountingRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+recordColumns+` FROM counting_records WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// ListByWarehouseDate returns one day's records; empty warehouse means every warehouse
func (r *RecordRepository) ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.CountingRecord, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+recordColumns+` FROM counting_records
		WHERE ($1 = '' OR warehouse_name = $1) AND date = $2::date
		ORDER BY warehouse_name, created_at`, warehouse, date)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (r *RecordRepository) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM counting_records WHERE date = $1::date`, date).Scan(&count)
	return count, err
}

func collectRecords(rows pgx.Rows) ([]*models.CountingRecord, error) {
	defer rows.Close()

	var records []*models.CountingRecord
	for rows.Next() {
		var rec models.CountingRecord
		err := rows.Scan(&rec.ID, &rec.SessionID, &rec.WarehouseName, &rec.Date, &rec.TeamLeaderName,
			&rec.Username, &rec.BinNo, &rec.QtyCounted, &rec.QtyRecounted, &rec.QtyAsPerBooks,
			&rec.Difference, &rec.ReasonForDifference, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
