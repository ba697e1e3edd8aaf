package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/metrics"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"
	"audit-backend/internal/timeutil"

	"github.com/google/uuid"
)

const (
	OTPLength = 6
	// OTPExpiry is fixed; it is not configurable
	OTPExpiry = 10 * time.Minute
)

var otpSpace = big.NewInt(1000000)

// OTPService issues and consumes the approval codes a team leader hands to a
// worker in person.
type OTPService struct {
	OTPRepo  OTPStore
	UserRepo UserStore

	limiter AttemptLimiter
	now     func() time.Time
}

func NewOTPService(otpRepo OTPStore, userRepo UserStore) *OTPService {
	return &OTPService{
		OTPRepo:  otpRepo,
		UserRepo: userRepo,
		now:      timeutil.Now,
	}
}

// SetLimiter enables per-worker verification throttling
func (s *OTPService) SetLimiter(l AttemptLimiter) {
	s.limiter = l
}

func (s *OTPService) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateOTP returns a uniformly random 6-digit code, zero padded
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// Issue creates a fresh code for the pair. Earlier outstanding codes for the
// same worker stay valid.
func (s *OTPService) Issue(ctx context.Context, workerID, teamLeaderID uuid.UUID) (*models.OTPRequest, error) {
	code, err := GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	otp := &models.OTPRequest{
		ID:           uuid.New(),
		WorkerID:     workerID,
		TeamLeaderID: teamLeaderID,
		OTPCode:      code,
		IsUsed:       false,
		ExpiresAt:    s.now().Add(OTPExpiry),
	}
	if err := s.OTPRepo.Create(ctx, otp); err != nil {
		return nil, err
	}

	metrics.OTPIssued.Inc()
	log.Printf("[OTP] Issued approval code for worker %s (team leader %s)", workerID, teamLeaderID)
	return otp, nil
}

// Verify consumes a matching unused, unexpired code. Every kind of miss
// fails with ErrInvalidOrExpiredOTP.
func (s *OTPService) Verify(ctx context.Context, workerID uuid.UUID, code string) (*models.OTPRequest, error) {
	if !isOTPFormat(code) {
		return nil, ErrInvalidOrExpiredOTP
	}

	otp, err := s.OTPRepo.FetchEligible(ctx, workerID, code, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidOrExpiredOTP
	}
	if err != nil {
		return nil, err
	}

	consumed, err := s.OTPRepo.MarkUsed(ctx, otp.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// a concurrent verification won the row
		return nil, ErrInvalidOrExpiredOTP
	}

	otp.IsUsed = true
	return otp, nil
}

// RequestApproval issues a code for the worker's own team leader. The code
// is only ever shown to the team leader.
func (s *OTPService) RequestApproval(ctx context.Context, worker *models.User) (*models.OTPRequest, error) {
	if worker.Role != models.RoleWorker {
		return nil, ErrForbidden
	}
	if worker.TeamLeaderID == nil {
		return nil, invalid("team_leader_id", "worker has no team leader")
	}
	return s.Issue(ctx, worker.ID, *worker.TeamLeaderID)
}

// IssueFor lets a supervisor generate a code for one of its workers
func (s *OTPService) IssueFor(ctx context.Context, actor *models.User, workerID uuid.UUID) (*models.OTPRequest, error) {
	worker, err := s.UserRepo.Get(ctx, workerID)
	if err != nil {
		return nil, storeErr(err)
	}
	if worker.Role != models.RoleWorker || worker.TeamLeaderID == nil {
		return nil, invalid("worker_id", "not a worker")
	}
	if !auth.CanManage(actor, worker, nil) {
		return nil, ErrForbidden
	}
	return s.Issue(ctx, worker.ID, *worker.TeamLeaderID)
}

// ListOutstanding returns the team leader's unused, unexpired codes
func (s *OTPService) ListOutstanding(ctx context.Context, leader *models.User) ([]*models.OutstandingOTP, error) {
	if leader.Role != models.RoleTeamLeader {
		return nil, ErrForbidden
	}
	return s.OTPRepo.ListOutstanding(ctx, leader.ID, s.now())
}

// VerifyAndApprove consumes the worker's code and marks the worker approved
func (s *OTPService) VerifyAndApprove(ctx context.Context, worker *models.User, code string) (*models.OTPRequest, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, "otp:"+worker.ID.String()) {
		metrics.OTPVerifications.WithLabelValues("limited").Inc()
		return nil, ErrTooManyAttempts
	}

	otp, err := s.Verify(ctx, worker.ID, code)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredOTP) {
			metrics.OTPVerifications.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	if err := s.UserRepo.SetApproval(ctx, worker.ID, true); err != nil {
		return nil, storeErr(err)
	}

	metrics.OTPVerifications.WithLabelValues("approved").Inc()
	log.Printf("[OTP] Worker %s approved via code from team leader %s", worker.ID, otp.TeamLeaderID)
	return otp, nil
}

func isOTPFormat(code string) bool {
	if len(code) != OTPLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
