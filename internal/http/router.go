package http

import (
	"net/http"

	"audit-backend/internal/handlers"
	"audit-backend/internal/middleware"
	"audit-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	otpHandler *handlers.OTPHandler,
	binHandler *handlers.BinHandler,
	sessionHandler *handlers.SessionHandler,
	reportHandler *handlers.ReportHandler,
	totpHandler *handlers.TOTPHandler,
	loginLogHandler *handlers.LoginLogHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger)

	role := authMiddleware.RequireRole
	only := func(h http.HandlerFunc, roles ...string) http.HandlerFunc {
		return role(roles...)(h).ServeHTTP
	}

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/2fa/verify", authHandler.Verify2FA).Methods("POST")
	r.HandleFunc("/auth/vendors", authHandler.ListVendors).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Accounts
	api.HandleFunc("/vendors", only(userHandler.CreateVendor, models.RoleAdmin)).Methods("POST")
	api.HandleFunc("/team-leaders", only(userHandler.ListTeamLeaders, models.RoleAdmin, models.RoleVendor)).Methods("GET")
	api.HandleFunc("/team-leaders/{id}", only(userHandler.RejectTeamLeader, models.RoleAdmin, models.RoleVendor)).Methods("DELETE")
	api.HandleFunc("/workers", only(userHandler.ListWorkers, models.RoleAdmin, models.RoleVendor, models.RoleTeamLeader)).Methods("GET")
	api.HandleFunc("/workers", only(userHandler.CreateWorker, models.RoleTeamLeader)).Methods("POST")
	api.HandleFunc("/users/pending", only(userHandler.ListPending, models.RoleAdmin, models.RoleVendor, models.RoleTeamLeader)).Methods("GET")
	api.HandleFunc("/users/{id}/approval", only(userHandler.SetApproval, models.RoleAdmin, models.RoleVendor, models.RoleTeamLeader)).Methods("PATCH")

	// OTP approval handshake
	api.HandleFunc("/otp/request", only(otpHandler.RequestApproval, models.RoleWorker)).Methods("POST")
	api.HandleFunc("/otp/verify", only(otpHandler.Verify, models.RoleWorker)).Methods("POST")
	api.HandleFunc("/otp/issue", only(otpHandler.Issue, models.RoleTeamLeader)).Methods("POST")
	api.HandleFunc("/otp/outstanding", only(otpHandler.ListOutstanding, models.RoleTeamLeader)).Methods("GET")

	// Bins
	api.HandleFunc("/bins", only(binHandler.Create, models.RoleAdmin, models.RoleVendor)).Methods("POST")
	api.HandleFunc("/bins", binHandler.List).Methods("GET")
	api.HandleFunc("/bins/{code}", binHandler.Get).Methods("GET")

	// Counting sessions (approved workers only)
	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("/{id}/records", sessionHandler.Records).Methods("GET")
	counting := sessions.NewRoute().Subrouter()
	counting.Use(role(models.RoleWorker), authMiddleware.RequireApproved)
	counting.HandleFunc("/start", sessionHandler.Start).Methods("POST")
	counting.HandleFunc("/count", sessionHandler.Count).Methods("POST")
	counting.HandleFunc("/end", sessionHandler.End).Methods("POST")
	counting.HandleFunc("/active", sessionHandler.Active).Methods("GET")
	counting.HandleFunc("", sessionHandler.History).Methods("GET")

	// Reports
	api.HandleFunc("/efficiency", reportHandler.Efficiency).Methods("GET")
	api.HandleFunc("/reports/records.csv", reportHandler.RecordsCSV).Methods("GET")
	api.HandleFunc("/reports/sessions/{id}.pdf", reportHandler.SessionPDF).Methods("GET")
	api.HandleFunc("/reports/archive", only(reportHandler.Archive, models.RoleAdmin, models.RoleVendor)).Methods("POST")
	api.HandleFunc("/dashboard/overview", reportHandler.Overview).Methods("GET")

	// Sign-in audit trail
	api.HandleFunc("/login-logs", only(loginLogHandler.List, models.RoleAdmin)).Methods("GET")

	// 2FA management
	api.HandleFunc("/2fa/setup", only(totpHandler.Setup, models.RoleAdmin, models.RoleVendor)).Methods("POST")
	api.HandleFunc("/2fa/enable", only(totpHandler.Enable, models.RoleAdmin, models.RoleVendor)).Methods("POST")
	api.HandleFunc("/2fa/disable", only(totpHandler.Disable, models.RoleAdmin, models.RoleVendor)).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
