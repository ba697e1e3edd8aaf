package services

import (
	"errors"
	"fmt"

	"audit-backend/internal/repositories"
)

// AuditError is a sentinel failure returned by the services. Handlers match
// on the sentinel with errors.Is and pick the HTTP status.
type AuditError struct {
	Message string
}

func (e *AuditError) Error() string {
	return e.Message
}

var (
	// The OTP failure never says whether the code was wrong, spent or expired.
	ErrInvalidOrExpiredOTP  = &AuditError{Message: "invalid or expired OTP"}
	ErrNotFound             = &AuditError{Message: "not found"}
	ErrNoActiveSession      = &AuditError{Message: "no active counting session"}
	ErrSessionAlreadyActive = &AuditError{Message: "a counting session is already active"}
	ErrForbidden            = &AuditError{Message: "not allowed"}
	ErrInvalidCredentials   = &AuditError{Message: "invalid email or password"}
	ErrNotApproved          = &AuditError{Message: "account is awaiting approval"}
	ErrAlreadyExists        = &AuditError{Message: "email or username already in use"}
	ErrTooManyAttempts      = &AuditError{Message: "too many failed attempts, please try again later"}
	ErrStorageDisabled      = &AuditError{Message: "report archive storage is not configured"}
	ErrAlreadyApproved      = &AuditError{Message: "account is already approved; revoke approval instead"}
	ErrHasDependents        = &AuditError{Message: "account still has workers or sessions"}

	ErrNoTOTPSecret    = &AuditError{Message: "2FA setup not initiated"}
	ErrInvalidTOTPCode = &AuditError{Message: "invalid verification code"}
	ErrTOTPNotEnabled  = &AuditError{Message: "2FA is not enabled"}
	ErrInvalidPassword = &AuditError{Message: "invalid password"}
)

// ValidationError reports malformed caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// storeErr maps repository sentinels onto service sentinels and leaves every
// other storage error untouched.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, repositories.ErrReferenced):
		return ErrHasDependents
	}
	return err
}
