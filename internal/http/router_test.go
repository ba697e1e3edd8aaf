package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/config"
	"audit-backend/internal/handlers"
	"audit-backend/internal/health"
	"audit-backend/internal/middleware"
	"audit-backend/internal/models"
	"audit-backend/internal/services"
	"audit-backend/internal/testutil"

	"github.com/gorilla/mux"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type testServer struct {
	router *mux.Router
	store  *testutil.Store
	h      *testutil.Hierarchy
	clock  *testutil.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := testutil.NewStore()
	clock := testutil.NewFakeClock(time.Now())
	store.Clock = clock.Now
	h := testutil.SeedHierarchy(t, store)
	testutil.AddBins(t, store, "A001", "A002")

	cfg := &config.Config{}
	cfg.JWT.Secret = "router-secret"
	cfg.JWT.ExpirationHours = 1
	jwtManager := auth.NewJWTManager(cfg)

	userService := services.NewUserService(store.Users(), jwtManager)
	otpService := services.NewOTPService(store.OTPs(), store.Users())
	otpService.SetClock(clock.Now)
	binService := services.NewBinService(store.Bins())
	countingService := services.NewCountingService(store.Sessions(), store.Records(), store.Bins(), store.Users())
	countingService.SetClock(clock.Now)
	reportService := services.NewReportService(store.Records(), store.Efficiency(), store.Sessions(), store.Bins(), userService)
	reportService.SetClock(clock.Now)
	totpService := services.NewTOTPService(store.Users(), store.TOTPAttempts())

	router := NewRouter(
		handlers.NewAuthHandler(userService, totpService, jwtManager, store.LoginLogs()),
		handlers.NewUserHandler(userService),
		handlers.NewOTPHandler(otpService),
		handlers.NewBinHandler(binService),
		handlers.NewSessionHandler(countingService),
		handlers.NewReportHandler(reportService),
		handlers.NewTOTPHandler(totpService),
		handlers.NewLoginLogHandler(store.LoginLogs()),
		handlers.NewHealthHandler(health.NewHealthChecker(okPinger{})),
		middleware.NewAuthMiddleware(jwtManager, store.Users()),
	)
	return &testServer{router: router, store: store, h: h, clock: clock}
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, "", http.MethodPost, "/auth/login", map[string]string{"email": email, "password": testutil.Password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var resp models.AuthResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return resp.Token
}

func (s *testServer) do(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestApprovalAndCountingFlow(t *testing.T) {
	s := newTestServer(t)
	worker := s.login(t, "worker@example.com")
	leader := s.login(t, "leader@example.com")
	vendor := s.login(t, "vendor@example.com")

	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/start", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("unapproved worker start: %d", rec.Code)
	}

	rec := s.do(t, worker, http.MethodPost, "/api/otp/request", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("request otp: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "otp_code") {
		t.Fatal("the worker must never receive the code")
	}

	rec = s.do(t, leader, http.MethodGet, "/api/otp/outstanding", nil)
	var outstanding []models.OutstandingOTP
	json.Unmarshal(rec.Body.Bytes(), &outstanding)
	if rec.Code != http.StatusOK || len(outstanding) != 1 || len(outstanding[0].OTPCode) != 6 {
		t.Fatalf("outstanding: %d %s", rec.Code, rec.Body.String())
	}
	code := outstanding[0].OTPCode

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/otp/verify", map[string]string{"otp": wrong}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong otp: %d", rec.Code)
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/otp/verify", map[string]string{"otp": code}); rec.Code != http.StatusOK {
		t.Fatalf("verify otp: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/otp/verify", map[string]string{"otp": code}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused otp: %d", rec.Code)
	}

	rec = s.do(t, worker, http.MethodPost, "/api/sessions/start", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var session models.CountingSession
	json.Unmarshal(rec.Body.Bytes(), &session)

	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/start", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second start: %d", rec.Code)
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/count", map[string]interface{}{"bin_code": "A001", "qty": 85}); rec.Code != http.StatusCreated {
		t.Fatalf("count: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/count", map[string]interface{}{"bin_code": "ZZZ", "qty": 1}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown bin: %d", rec.Code)
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/count", map[string]interface{}{"bin_code": "A002", "qty": -1}); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative qty: %d", rec.Code)
	}

	s.clock.Advance(30 * time.Minute)
	rec = s.do(t, worker, http.MethodPost, "/api/sessions/end", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end: %d %s", rec.Code, rec.Body.String())
	}
	var ended models.EndSessionResponse
	json.Unmarshal(rec.Body.Bytes(), &ended)
	if ended.Session.Status != models.SessionCompleted || ended.Efficiency.TimeTakenMinutes != 30 || ended.Efficiency.EfficiencyScore != 2 {
		t.Fatalf("unexpected end response: %s", rec.Body.String())
	}
	if rec := s.do(t, worker, http.MethodPost, "/api/sessions/end", nil); rec.Code != http.StatusConflict {
		t.Fatalf("end twice: %d", rec.Code)
	}

	rec = s.do(t, leader, http.MethodGet, "/api/sessions/"+session.ID.String()+"/records", nil)
	var records []models.CountingRecord
	json.Unmarshal(rec.Body.Bytes(), &records)
	if rec.Code != http.StatusOK || len(records) != 1 {
		t.Fatalf("leader records: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, vendor, http.MethodGet, "/api/reports/records.csv", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("csv: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	rec = s.do(t, vendor, http.MethodGet, "/api/reports/sessions/"+session.ID.String()+".pdf", nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf: %d", rec.Code)
	}
	if rec := s.do(t, vendor, http.MethodPost, "/api/reports/archive", map[string]string{}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("archive without storage: %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	leader := s.login(t, "leader@example.com")
	admin := s.login(t, "admin@example.com")

	if rec := s.do(t, "", http.MethodGet, "/api/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	if rec := s.do(t, leader, http.MethodPost, "/api/vendors", map[string]string{}); rec.Code != http.StatusForbidden {
		t.Fatalf("leader creating vendor: %d", rec.Code)
	}
	if rec := s.do(t, admin, http.MethodPost, "/api/sessions/start", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("admin counting: %d", rec.Code)
	}

	rec := s.do(t, leader, http.MethodPost, "/api/workers", map[string]string{
		"name": "New", "email": "new@example.com", "username": "new", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create worker: %d %s", rec.Code, rec.Body.String())
	}
	var created models.User
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = s.do(t, admin, http.MethodPatch, "/api/users/"+created.ID.String()+"/approval", map[string]bool{"approved": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, admin, http.MethodGet, "/api/login-logs?limit=10", nil)
	var logins []models.LoginLog
	json.Unmarshal(rec.Body.Bytes(), &logins)
	if rec.Code != http.StatusOK || len(logins) != 2 || logins[0].Email != "admin@example.com" {
		t.Fatalf("login logs: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, leader, http.MethodGet, "/api/login-logs", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("leader reading login logs: %d", rec.Code)
	}

	if rec := s.do(t, admin, http.MethodPatch, "/api/users/not-a-uuid/approval", map[string]bool{"approved": true}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/auth/vendors", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), testutil.Warehouse) {
		t.Fatalf("vendors: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, "", http.MethodPost, "/auth/login", map[string]string{"email": "admin@example.com", "password": "bad"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}
	if rec := s.do(t, "", http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := s.do(t, "", http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}
	if rec := s.do(t, "", http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
