package handlers

import (
	"context"
	"net/http"

	"audit-backend/internal/models"
	"audit-backend/internal/services"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Service: s}
}

func (h *UserHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Service.CreateVendor)
}

func (h *UserHandler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Service.CreateWorker)
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor *models.User, req *models.CreateUserRequest) (*models.User, error)) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := fn(r.Context(), actor, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) ListTeamLeaders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.ListTeamLeaders)
}

func (h *UserHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.ListWorkers)
}

func (h *UserHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.ListPending)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor *models.User) ([]*models.User, error)) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	users, err := fn(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// SetApproval handles PATCH /api/users/{id}/approval
func (h *UserHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.ApprovalRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.Service.SetApproval(r.Context(), actor, id, req.Approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RejectTeamLeader handles DELETE /api/team-leaders/{id}
func (h *UserHandler) RejectTeamLeader(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.RejectTeamLeader(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
