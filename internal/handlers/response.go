package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"audit-backend/internal/middleware"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"
	"audit-backend/internal/services"
	"audit-backend/internal/timeutil"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps service errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		writeMessage(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidOrExpiredOTP),
		errors.Is(err, services.ErrInvalidTOTPCode):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotApproved):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, repositories.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrSessionAlreadyActive),
		errors.Is(err, services.ErrNoActiveSession),
		errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrAlreadyApproved),
		errors.Is(err, services.ErrHasDependents):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		writeMessage(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrNoTOTPSecret),
		errors.Is(err, services.ErrTOTPNotEnabled),
		errors.Is(err, services.ErrInvalidPassword):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrStorageDisabled):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	}
	return user, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// queryDate reads ?date=YYYY-MM-DD, defaulting to today
func queryDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	return parseDate(w, r.URL.Query().Get("date"))
}

func parseDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return timeutil.Now(), true
	}
	date, err := timeutil.ParseDate(value)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
