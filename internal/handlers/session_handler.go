package handlers

import (
	"net/http"

	"audit-backend/internal/models"
	"audit-backend/internal/services"
)

type SessionHandler struct {
	Service *services.CountingService
}

func NewSessionHandler(s *services.CountingService) *SessionHandler {
	return &SessionHandler{Service: s}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	session, err := h.Service.Start(r.Context(), worker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Count records one bin and returns the record with the session's new totals
func (h *SessionHandler) Count(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.RecordCountRequest
	if !decode(w, r, &req) {
		return
	}

	record, session, err := h.Service.RecordCount(r.Context(), worker, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"record":  record,
		"session": session,
	})
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	resp, err := h.Service.End(r.Context(), worker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	session, err := h.Service.Active(r.Context(), worker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	worker, ok := currentUser(w, r)
	if !ok {
		return
	}
	sessions, err := h.Service.History(r.Context(), worker)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.CountingSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) Records(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	records, err := h.Service.Records(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*models.CountingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
