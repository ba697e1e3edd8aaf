package models

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Bin is a physical storage location (BinMaster)
type Bin struct {
	ID            uuid.UUID `json:"id" yaml:"-"`
	BinCode       string    `json:"bin_code" yaml:"bin_code"`
	WarehouseName string    `json:"warehouse_name" yaml:"warehouse_name"`
	Location      string    `json:"location" yaml:"location"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
}

// CountingSession is one worker counting run
type CountingSession struct {
	ID               uuid.UUID  `json:"id"`
	WorkerID         uuid.UUID  `json:"worker_id"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	Status           string     `json:"status"`
	TotalBinsCounted int        `json:"total_bins_counted"`
	TotalQtyCounted  int        `json:"total_qty_counted"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CountingRecord is one bin-count event. Rows are never updated after insert.
type CountingRecord struct {
	ID                  uuid.UUID `json:"id"`
	SessionID           uuid.UUID `json:"session_id"`
	WarehouseName       string    `json:"warehouse_name"`
	Date                time.Time `json:"date"`
	TeamLeaderName      string    `json:"team_leader_name"`
	Username            string    `json:"username"`
	BinNo               string    `json:"bin_no"`
	QtyCounted          int       `json:"qty_counted"`
	QtyRecounted        *int      `json:"qty_recounted,omitempty"` // not populated by any flow yet
	QtyAsPerBooks       int       `json:"qty_as_per_books"`
	Difference          int       `json:"difference"`
	ReasonForDifference string    `json:"reason_for_difference"`
	CreatedAt           time.Time `json:"created_at"`
}

// WorkerEfficiency is written once when a session closes.
// Ranking is always 1; peer ranking is not implemented.
type WorkerEfficiency struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"session_id"`
	WarehouseName    string    `json:"warehouse_name"`
	Date             time.Time `json:"date"`
	Username         string    `json:"username"`
	BinsCounted      int       `json:"bins_counted"`
	QtyCounted       int       `json:"qty_counted"`
	TimeTakenMinutes int       `json:"time_taken_minutes"`
	EfficiencyScore  int       `json:"efficiency_score"`
	Ranking          int       `json:"ranking"`
	CreatedAt        time.Time `json:"created_at"`
}

// OTPRequest binds a one-time code to a (worker, team leader) pair
type OTPRequest struct {
	ID           uuid.UUID `json:"id"`
	WorkerID     uuid.UUID `json:"worker_id"`
	TeamLeaderID uuid.UUID `json:"team_leader_id"`
	OTPCode      string    `json:"-"` // Never expose OTP in JSON responses
	IsUsed       bool      `json:"is_used"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// OutstandingOTP is what a team leader sees: the code and whom it is for
type OutstandingOTP struct {
	ID         uuid.UUID `json:"id"`
	WorkerID   uuid.UUID `json:"worker_id"`
	WorkerName string    `json:"worker_name"`
	OTPCode    string    `json:"otp_code"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordCountRequest is the worker's per-bin submission
type RecordCountRequest struct {
	BinCode             string `json:"bin_code"`
	Qty                 *int   `json:"qty"`
	QtyAsPerBooks       *int   `json:"qty_as_per_books,omitempty"`
	ReasonForDifference string `json:"reason_for_difference,omitempty"`
}

// IssueOTPRequest is a team leader issuing a code for one of its workers
type IssueOTPRequest struct {
	WorkerID uuid.UUID `json:"worker_id"`
}

// VerifyOTPRequest is the worker supplying the code it was told
type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

// EndSessionResponse is returned when a session closes
type EndSessionResponse struct {
	Session    *CountingSession  `json:"session"`
	Efficiency *WorkerEfficiency `json:"efficiency"`
}

// Overview holds dashboard counts
type Overview struct {
	PendingApprovals int `json:"pending_approvals"`
	ActiveSessions   int `json:"active_sessions"`
	BinsRegistered   int `json:"bins_registered"`
	RecordsToday     int `json:"records_today"`
}
