package repositories

import (
	"context"
	"time"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OTPRepository struct {
	DB *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{DB: db}
}

// Create inserts a new OTP request
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPRequest) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO otp_requests(id, worker_id, team_leader_id, otp_code, is_used, expires_at)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		otp.ID, otp.WorkerID, otp.TeamLeaderID, otp.OTPCode, otp.IsUsed, otp.ExpiresAt,
	).Scan(&otp.CreatedAt)
}

// FetchEligible returns the newest unused, unexpired request matching worker and code
func (r *OTPRepository) FetchEligible(ctx context.Context, workerID uuid.UUID, code string, now time.Time) (*models.OTPRequest, error) {
	var otp models.OTPRequest
	err := r.DB.QueryRow(ctx, `
		SELECT id, worker_id, team_leader_id, otp_code, is_used, expires_at, created_at
		FROM otp_requests
		WHERE worker_id = $1 AND otp_code = $2 AND is_used = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, workerID, code, now).Scan(
		&otp.ID,
		&otp.WorkerID,
		&otp.TeamLeaderID,
		&otp.OTPCode,
		&otp.IsUsed,
		&otp.ExpiresAt,
		&otp.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

// MarkUsed flips is_used only if it is still false. It reports whether this
// call was the one that consumed the code.
func (r *OTPRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `UPDATE otp_requests SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListOutstanding returns unused, unexpired codes a team leader has to hand out
func (r *OTPRepository) ListOutstanding(ctx context.Context, teamLeaderID uuid.UUID, now time.Time) ([]*models.OutstandingOTP, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.worker_id, u.name, o.otp_code, o.expires_at, o.created_at
		FROM otp_requests o
		JOIN users u ON u.id = o.worker_id
		WHERE o.team_leader_id = $1 AND o.is_used = FALSE AND o.expires_at > $2
		ORDER BY o.created_at DESC
	`, teamLeaderID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.OutstandingOTP
	for rows.Next() {
		var o models.OutstandingOTP
		if err := rows.Scan(&o.ID, &o.WorkerID, &o.WorkerName, &o.OTPCode, &o.ExpiresAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
