package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginLog is one successful sign-in, joined with the account for listings
type LoginLog struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LoginTime time.Time `json:"login_time"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
