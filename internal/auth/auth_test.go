package auth

import (
	"testing"

	"audit-backend/internal/config"
	"audit-backend/internal/models"

	"github.com/google/uuid"
)

func testManager() *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "audit-test"
	return NewJWTManager(cfg)
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager()
	user := &models.User{ID: uuid.New(), Email: "w@example.com", Role: models.RoleWorker, IsApproved: true}

	token, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleWorker || !claims.IsApproved {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTempTokenIsNotAccessToken(t *testing.T) {
	m := testManager()
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: models.RoleAdmin}

	access, _ := m.GenerateToken(user)
	if _, err := m.ValidateTempToken(access); err == nil {
		t.Fatal("access token must not pass as a 2FA temp token")
	}

	temp, err := m.GenerateTempToken(user)
	if err != nil {
		t.Fatalf("generate temp: %v", err)
	}
	claims, err := m.ValidateTempToken(temp)
	if err != nil {
		t.Fatalf("validate temp: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("temp token user mismatch")
	}
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, _ := testManager().GenerateToken(&models.User{ID: uuid.New()})

	other := &config.Config{}
	other.JWT.Secret = "different"
	if _, err := NewJWTManager(other).ValidateToken(token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "s3cret!") {
		t.Fatal("expected match")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("expected mismatch")
	}
}

func TestCanManage(t *testing.T) {
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	vendor := &models.User{ID: uuid.New(), Role: models.RoleVendor}
	otherVendor := &models.User{ID: uuid.New(), Role: models.RoleVendor}
	leader := &models.User{ID: uuid.New(), Role: models.RoleTeamLeader, VendorID: &vendor.ID}
	otherLeader := &models.User{ID: uuid.New(), Role: models.RoleTeamLeader, VendorID: &otherVendor.ID}
	worker := &models.User{ID: uuid.New(), Role: models.RoleWorker, TeamLeaderID: &leader.ID}

	cases := []struct {
		name          string
		actor, target *models.User
		leader        *models.User
		want          bool
	}{
		{"admin any", admin, worker, nil, true},
		{"vendor own leader", vendor, leader, nil, true},
		{"vendor foreign leader", vendor, otherLeader, nil, false},
		{"vendor own worker", vendor, worker, leader, true},
		{"vendor worker without leader", vendor, worker, nil, false},
		{"other vendor worker", otherVendor, worker, leader, false},
		{"leader own worker", leader, worker, nil, true},
		{"foreign leader", otherLeader, worker, nil, false},
		{"worker self", worker, worker, nil, false},
		{"leader on vendor", leader, vendor, nil, false},
	}
	for _, tc := range cases {
		if got := CanManage(tc.actor, tc.target, tc.leader); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	if !CanView(worker, worker, nil) {
		t.Fatal("worker should see itself")
	}
}
