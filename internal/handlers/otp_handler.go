package handlers

import (
	"net/http"
	"time"

	"audit-backend/internal/models"
	"audit-backend/internal/services"

	"github.com/google/uuid"
)

type OTPHandler struct {
	Service *services.OTPService
}

func NewOTPHandler(s *services.OTPService) *OTPHandler {
	return &OTPHandler{Service: s}
}

// issuedOTP never carries the code itself
type issuedOTP struct {
	ID        uuid.UUID `json:"id"`
	WorkerID  uuid.UUID `json:"worker_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestApproval lets a worker ask its team leader for a code
func (h *OTPHandler) RequestApproval(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	otp, err := h.Service.RequestApproval(r.Context(), worker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuedOTP{ID: otp.ID, WorkerID: otp.WorkerID, ExpiresAt: otp.ExpiresAt})
}

// Issue lets a team leader generate a code for one of its workers. The code
// is returned here since the team leader passes it on in person.
func (h *OTPHandler) Issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.IssueOTPRequest
	if !decode(w, r, &req) {
		return
	}

	otp, err := h.Service.IssueFor(r.Context(), actor, req.WorkerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.OutstandingOTP{
		ID:        otp.ID,
		WorkerID:  otp.WorkerID,
		OTPCode:   otp.OTPCode,
		ExpiresAt: otp.ExpiresAt,
		CreatedAt: otp.CreatedAt,
	})
}

func (h *OTPHandler) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	leader, ok := currentUser(w, r)
	if !ok {
		return
	}
	otps, err := h.Service.ListOutstanding(r.Context(), leader)
	if err != nil {
		writeError(w, err)
		return
	}
	if otps == nil {
		otps = []*models.OutstandingOTP{}
	}
	writeJSON(w, http.StatusOK, otps)
}

// Verify consumes the worker's code and approves the account
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.Service.VerifyAndApprove(r.Context(), worker, req.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"approved": true})
}
