package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	issuer            = "InventoryAudit"
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

// TOTPService manages authenticator-app 2FA for admin and vendor accounts
type TOTPService struct {
	userRepo UserStore
	totpRepo TOTPAttemptStore
	now      func() time.Time
}

func NewTOTPService(userRepo UserStore, totpRepo TOTPAttemptStore) *TOTPService {
	return &TOTPService{
		userRepo: userRepo,
		totpRepo: totpRepo,
		now:      time.Now,
	}
}

func (s *TOTPService) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateSetup creates a new secret and QR code. 2FA stays off until Enable.
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	if user.Role != models.RoleAdmin && user.Role != models.RoleVendor {
		return nil, ErrForbidden
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetTOTP(ctx, user.ID, key.Secret(), false); err != nil {
		return nil, storeErr(err)
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      issuer,
		AccountName: user.Email,
	}, nil
}

// Enable verifies a first code against the pending secret and turns 2FA on
func (s *TOTPService) Enable(ctx context.Context, userID uuid.UUID, code, ipAddress string) error {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return err
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}

	if !s.validate(code, user.TOTPSecret) {
		s.totpRepo.LogAttempt(ctx, userID, ipAddress, false)
		return ErrInvalidTOTPCode
	}
	s.totpRepo.LogAttempt(ctx, userID, ipAddress, true)

	return storeErr(s.userRepo.SetTOTP(ctx, userID, user.TOTPSecret, true))
}

// Verify checks a login code
func (s *TOTPService) Verify(ctx context.Context, userID uuid.UUID, code, ipAddress string) error {
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return err
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	if !s.validate(code, user.TOTPSecret) {
		s.totpRepo.LogAttempt(ctx, userID, ipAddress, false)
		return ErrInvalidTOTPCode
	}
	s.totpRepo.LogAttempt(ctx, userID, ipAddress, true)
	return nil
}

// Disable turns 2FA off after checking both password and a current code
func (s *TOTPService) Disable(ctx context.Context, userID uuid.UUID, password, code string) error {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return ErrInvalidPassword
	}
	if !s.validate(code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return storeErr(s.userRepo.SetTOTP(ctx, userID, "", false))
}

func (s *TOTPService) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *TOTPService) checkRateLimit(ctx context.Context, userID uuid.UUID) error {
	failures, err := s.totpRepo.RecentFailures(ctx, userID, s.now().Add(-rateLimitWindow))
	if err != nil {
		return err
	}
	if failures >= maxFailedAttempts {
		return ErrTooManyAttempts
	}
	return nil
}
