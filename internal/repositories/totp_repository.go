package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TOTPRepository tracks authenticator verification attempts for lockout
type TOTPRepository struct {
	DB *pgxpool.Pool
}

func NewTOTPRepository(db *pgxpool.Pool) *TOTPRepository {
	return &TOTPRepository{DB: db}
}

// LogAttempt records a 2FA verification attempt
func (r *TOTPRepository) LogAttempt(ctx context.Context, userID uuid.UUID, ipAddress string, success bool) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO totp_verification_attempts (user_id, ip_address, success) VALUES ($1, $2, $3)`,
		userID, ipAddress, success)
	return err
}

// RecentFailures counts failed attempts for a user since the given time
func (r *TOTPRepository) RecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM totp_verification_attempts
		 WHERE user_id = $1 AND success = false AND created_at > $2`,
		userID, since).Scan(&count)
	return count, err
}
