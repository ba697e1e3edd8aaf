package repositories

import (
	"context"
	"time"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	DB *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{DB: db}
}

const sessionColumns = `id, worker_id, start_time, end_time, status, total_bins_counted, total_qty_counted, created_at`

func scanSession(row pgx.Row) (*models.CountingSession, error) {
	var s models.CountingSession
	err := row.Scan(&s.ID, &s.WorkerID, &s.StartTime, &s.EndTime, &s.Status,
		&s.TotalBinsCounted, &s.TotalQtyCounted, &s.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// CreateIfNoneActive inserts an active session unless the worker already has
// one. Returns false when an active session exists.
func (r *SessionRepository) CreateIfNoneActive(ctx context.Context, s *models.CountingSession) (bool, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO counting_sessions(id, worker_id, start_time, status, total_bins_counted, total_qty_counted)
		SELECT $1, $2, $3, 'active', 0, 0
		WHERE NOT EXISTS (
			SELECT 1 FROM counting_sessions WHERE worker_id = $2 AND status = 'active'
		)
		RETURNING created_at
	`, s.ID, s.WorkerID, s.StartTime).Scan(&s.CreatedAt)

	switch translate(err) {
	case nil:
		s.Status = models.SessionActive
		s.TotalBinsCounted = 0
		s.TotalQtyCounted = 0
		return true, nil
	case ErrNotFound, ErrDuplicate:
		// NOT EXISTS filtered the row, or the partial unique index caught a racing insert
		return false, nil
	default:
		return false, err
	}
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.CountingSession, error) {
	return scanSession(r.DB.QueryRow(ctx, `SELECT `+sessionColumns+` FROM counting_sessions WHERE id=$1`, id))
}

func (r *SessionRepository) GetActiveByWorker(ctx context.Context, workerID uuid.UUID) (*models.CountingSession, error) {
	return scanSession(r.DB.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM counting_sessions WHERE worker_id=$1 AND status='active'`, workerID))
}

// CloseWithEfficiency completes an active session and inserts the efficiency
// row built from the closed session, in one transaction. ErrNotFound when the
// session is not active; if the insert fails the session stays active.
func (r *SessionRepository) CloseWithEfficiency(
	ctx context.Context,
	id uuid.UUID,
	end time.Time,
	build func(*models.CountingSession) *models.WorkerEfficiency,
) (*models.CountingSession, *models.WorkerEfficiency, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	session, err := scanSession(tx.QueryRow(ctx, `
		UPDATE counting_sessions
		SET status = 'completed', end_time = $2
		WHERE id = $1 AND status = 'active'
		RETURNING `+sessionColumns, id, end))
	if err != nil {
		return nil, nil, err
	}

	eff := build(session)
	if err := insertEfficiency(ctx, tx, eff); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return session, eff, nil
}

func (r *SessionRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.CountingSession, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+sessionColumns+` FROM counting_sessions WHERE worker_id=$1 ORDER BY start_time DESC`, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CountingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM counting_sessions WHERE status='active'`).Scan(&count)
	return count, err
}
