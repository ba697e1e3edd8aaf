package handlers

import (
	"log"
	"net/http"

	"audit-backend/internal/auth"
	"audit-backend/internal/middleware"
	"audit-backend/internal/models"
	"audit-backend/internal/services"
)

type AuthHandler struct {
	Service      *services.UserService
	TOTPService  *services.TOTPService
	JWTManager   *auth.JWTManager
	LoginLogRepo LoginLogStore
}

func NewAuthHandler(s *services.UserService, totpService *services.TOTPService, jwtManager *auth.JWTManager, loginLogRepo LoginLogStore) *AuthHandler {
	return &AuthHandler{
		Service:      s,
		TOTPService:  totpService,
		JWTManager:   jwtManager,
		LoginLogRepo: loginLogRepo,
	}
}

// Login handles step one of authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	// 2FA accounts are logged once the second step succeeds
	if authResp.User != nil {
		h.recordLogin(r, authResp.User)
	}
	writeJSON(w, http.StatusOK, authResp)
}

// Register is team leader self-registration under a vendor
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Verify2FA exchanges a temp token and authenticator code for an access token
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TempToken == "" || req.Code == "" {
		writeMessage(w, http.StatusBadRequest, "temp_token and code are required")
		return
	}

	claims, err := h.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	if err := h.TOTPService.Verify(r.Context(), claims.UserID, req.Code, middleware.ClientIP(r)); err != nil {
		writeError(w, err)
		return
	}

	authResp, err := h.Service.CompleteLogin(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordLogin(r, authResp.User)
	writeJSON(w, http.StatusOK, authResp)
}

// recordLogin never fails the login itself
func (h *AuthHandler) recordLogin(r *http.Request, user *models.User) {
	ip := middleware.ClientIP(r)
	log.Printf("[Auth] %s logged in from %s", user.Email, ip)
	if h.LoginLogRepo == nil {
		return
	}
	if err := h.LoginLogRepo.Record(r.Context(), user.ID, ip, r.UserAgent()); err != nil {
		log.Printf("[Auth] Failed to record login for %s: %v", user.Email, err)
	}
}

// ListVendors feeds the registration form
func (h *AuthHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Service.ListVendors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	type vendorOption struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		WarehouseName string `json:"warehouse_name"`
	}
	out := make([]vendorOption, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, vendorOption{ID: v.ID.String(), Name: v.Name, WarehouseName: v.WarehouseName})
	}
	writeJSON(w, http.StatusOK, out)
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}
