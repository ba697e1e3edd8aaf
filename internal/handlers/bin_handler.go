package handlers

import (
	"net/http"

	"audit-backend/internal/models"
	"audit-backend/internal/services"

	"github.com/gorilla/mux"
)

type BinHandler struct {
	Service *services.BinService
}

func NewBinHandler(s *services.BinService) *BinHandler {
	return &BinHandler{Service: s}
}

func (h *BinHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var bin models.Bin
	if !decode(w, r, &bin) {
		return
	}

	created, err := h.Service.Create(r.Context(), actor, &bin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/bins?warehouse=. Non-admins only see their own warehouse.
func (h *BinHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	warehouse := r.URL.Query().Get("warehouse")
	if actor.Role != models.RoleAdmin {
		warehouse = actor.WarehouseName
	}

	bins, err := h.Service.ListByWarehouse(r.Context(), warehouse)
	if err != nil {
		writeError(w, err)
		return
	}
	if bins == nil {
		bins = []*models.Bin{}
	}
	writeJSON(w, http.StatusOK, bins)
}

func (h *BinHandler) Get(w http.ResponseWriter, r *http.Request) {
	bin, err := h.Service.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bin)
}
