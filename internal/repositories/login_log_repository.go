package repositories

import (
	"context"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoginLogRepository struct {
	DB *pgxpool.Pool
}

func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// Record stores a login event
func (r *LoginLogRepository) Record(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO login_logs (user_id, login_time, ip_address, user_agent)
		VALUES ($1, NOW(), NULLIF($2, ''), NULLIF($3, ''))
	`, userID, ipAddress, userAgent)
	return err
}

// ListRecent returns the newest login events with account details
func (r *LoginLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ll.id, ll.user_id, u.name, u.email, u.role, ll.login_time,
		       COALESCE(ll.ip_address, ''), COALESCE(ll.user_agent, '')
		FROM login_logs ll
		JOIN users u ON ll.user_id = u.id
		ORDER BY ll.login_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.LoginLog
	for rows.Next() {
		var l models.LoginLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserName, &l.Email, &l.Role, &l.LoginTime, &l.IPAddress, &l.UserAgent); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
