package handlers

import (
	"net/http"

	"audit-backend/internal/middleware"
	"audit-backend/internal/models"
	"audit-backend/internal/services"
)

type TOTPHandler struct {
	TOTPService *services.TOTPService
}

func NewTOTPHandler(totpService *services.TOTPService) *TOTPHandler {
	return &TOTPHandler{TOTPService: totpService}
}

// Setup initiates 2FA setup and returns the secret and QR code
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if user.TOTPEnabled {
		writeMessage(w, http.StatusBadRequest, "2FA is already enabled")
		return
	}

	response, err := h.TOTPService.GenerateSetup(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.TOTPCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeMessage(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	if err := h.TOTPService.Enable(r.Context(), user.ID, req.Code, middleware.ClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "2FA enabled successfully"})
}

func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.TOTPDisableRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" || req.Code == "" {
		writeMessage(w, http.StatusBadRequest, "Password and verification code are required")
		return
	}

	if err := h.TOTPService.Disable(r.Context(), user.ID, req.Password, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "2FA disabled successfully"})
}
