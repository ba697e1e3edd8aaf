package handlers

import (
	"context"
	"net/http"
	"strconv"

	"audit-backend/internal/models"

	"github.com/google/uuid"
)

const defaultLoginLogLimit = 200

// LoginLogStore is the sign-in audit trail
type LoginLogStore interface {
	Record(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error
	ListRecent(ctx context.Context, limit int) ([]*models.LoginLog, error)
}

type LoginLogHandler struct {
	Repo LoginLogStore
}

func NewLoginLogHandler(repo LoginLogStore) *LoginLogHandler {
	return &LoginLogHandler{Repo: repo}
}

// List handles GET /api/login-logs?limit= (admin only)
func (h *LoginLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLoginLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeMessage(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	logs, err := h.Repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []*models.LoginLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
