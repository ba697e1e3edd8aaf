package handlers

import (
	"fmt"
	"net/http"

	"audit-backend/internal/models"
	"audit-backend/internal/services"
	"audit-backend/internal/timeutil"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// Efficiency handles GET /api/efficiency?warehouse=&date=
func (h *ReportHandler) Efficiency(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	date, ok := queryDate(w, r)
	if !ok {
		return
	}

	rows, err := h.Service.Leaderboard(r.Context(), actor, r.URL.Query().Get("warehouse"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []*models.WorkerEfficiency{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportHandler) RecordsCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	date, ok := queryDate(w, r)
	if !ok {
		return
	}

	data, err := h.Service.RecordsCSV(r.Context(), actor, r.URL.Query().Get("warehouse"), date)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=counting-records-%s.csv", timeutil.FormatDate(date)))
	w.Write(data)
}

func (h *ReportHandler) SessionPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	data, err := h.Service.SessionPDF(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.pdf", id))
	w.Write(data)
}

type archiveRequest struct {
	Warehouse string `json:"warehouse"`
	Date      string `json:"date"`
}

func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req archiveRequest
	if !decode(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}

	key, err := h.Service.ArchiveDaily(r.Context(), actor, req.Warehouse, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *ReportHandler) Overview(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	overview, err := h.Service.Overview(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
