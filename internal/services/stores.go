package services

import (
	"context"
	"time"

	"audit-backend/internal/models"

	"github.com/google/uuid"
)

// Storage boundaries. The repositories package implements these against
// PostgreSQL; lookups that match nothing return repositories.ErrNotFound.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]*models.User, error)
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
	CountByRole(ctx context.Context, role string) (int, error)
}

type OTPStore interface {
	Create(ctx context.Context, otp *models.OTPRequest) error
	FetchEligible(ctx context.Context, workerID uuid.UUID, code string, now time.Time) (*models.OTPRequest, error)
	// MarkUsed must only succeed for a row that is still unused
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	ListOutstanding(ctx context.Context, teamLeaderID uuid.UUID, now time.Time) ([]*models.OutstandingOTP, error)
}

type BinStore interface {
	Upsert(ctx context.Context, b *models.Bin) error
	GetByCode(ctx context.Context, code string) (*models.Bin, error)
	ListByWarehouse(ctx context.Context, warehouse string) ([]*models.Bin, error)
	Count(ctx context.Context) (int, error)
}

type SessionStore interface {
	// CreateIfNoneActive returns false when the worker already has an active session
	CreateIfNoneActive(ctx context.Context, s *models.CountingSession) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CountingSession, error)
	GetActiveByWorker(ctx context.Context, workerID uuid.UUID) (*models.CountingSession, error)
	// CloseWithEfficiency completes an active session and stores the row
	// built from it atomically. A failed insert leaves the session active.
	CloseWithEfficiency(ctx context.Context, id uuid.UUID, end time.Time,
		build func(*models.CountingSession) *models.WorkerEfficiency) (*models.CountingSession, *models.WorkerEfficiency, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.CountingSession, error)
	CountActive(ctx context.Context) (int, error)
}

type RecordStore interface {
	// Append stores the record and increments its active session's totals
	// atomically, returning the updated session
	Append(ctx context.Context, rec *models.CountingRecord) (*models.CountingSession, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.CountingRecord, error)
	ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.CountingRecord, error)
	CountOnDate(ctx context.Context, date time.Time) (int, error)
}

type EfficiencyStore interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.WorkerEfficiency, error)
	ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.WorkerEfficiency, error)
}

type TOTPAttemptStore interface {
	LogAttempt(ctx context.Context, userID uuid.UUID, ipAddress string, success bool) error
	RecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// AttemptLimiter caps OTP verification attempts per worker
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) bool
}
