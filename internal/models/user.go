package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleVendor     = "vendor"
	RoleTeamLeader = "team_leader"
	RoleWorker     = "worker"
)

type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"` // Never expose in JSON
	Role          string     `json:"role"`
	VendorID      *uuid.UUID `json:"vendor_id,omitempty"`      // set iff role = team_leader
	TeamLeaderID  *uuid.UUID `json:"team_leader_id,omitempty"` // set iff role = worker
	IsApproved    bool       `json:"is_approved"`
	WarehouseName string     `json:"warehouse_name"`
	TOTPSecret    string     `json:"-"`
	TOTPEnabled   bool       `json:"totp_enabled"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ValidRole reports whether role is one of the four known roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleVendor, RoleTeamLeader, RoleWorker:
		return true
	}
	return false
}

// UserFilter narrows user listings. Zero fields are ignored.
type UserFilter struct {
	Role         string
	VendorID     *uuid.UUID
	TeamLeaderID *uuid.UUID
	Approved     *bool
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token       string `json:"token,omitempty"`
	User        *User  `json:"user,omitempty"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
}

// RegisterRequest is a team leader's self-registration under a vendor
type RegisterRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Password string    `json:"password"`
	VendorID uuid.UUID `json:"vendor_id"`
}

// CreateUserRequest is used by admins (vendors) and team leaders (workers)
type CreateUserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	WarehouseName string `json:"warehouse_name"` // vendors only; children inherit
}

// ApprovalRequest toggles is_approved on a child account
type ApprovalRequest struct {
	Approved bool `json:"approved"`
}
