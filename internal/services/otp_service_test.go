package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"audit-backend/internal/models"
	"audit-backend/internal/testutil"

	"github.com/google/uuid"
)

func newOTPFixture(t *testing.T) (*OTPService, *testutil.Store, *testutil.Hierarchy, *testutil.FakeClock) {
	t.Helper()
	store := testutil.NewStore()
	clock := testutil.NewFakeClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	store.Clock = clock.Now
	h := testutil.SeedHierarchy(t, store)

	svc := NewOTPService(store.OTPs(), store.Users())
	svc.SetClock(clock.Now)
	return svc, store, h, clock
}

func TestGenerateOTPFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !isOTPFormat(code) {
			t.Fatalf("code %q is not six digits", code)
		}
	}
}

func TestIssueSetsTenMinuteExpiry(t *testing.T) {
	svc, _, h, clock := newOTPFixture(t)

	otp, err := svc.Issue(context.Background(), h.Worker.ID, h.TeamLeader.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !isOTPFormat(otp.OTPCode) {
		t.Fatalf("code %q is not six digits", otp.OTPCode)
	}
	if want := clock.Now().Add(OTPExpiry); OTPExpiry != 10*time.Minute || !otp.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %s, want %s", otp.ExpiresAt, want)
	}
	if otp.IsUsed {
		t.Fatal("new OTP must be unused")
	}
	if otp.WorkerID != h.Worker.ID || otp.TeamLeaderID != h.TeamLeader.ID {
		t.Fatal("OTP bound to wrong pair")
	}
}

func TestVerifySucceedsOnlyOnce(t *testing.T) {
	svc, store, h, _ := newOTPFixture(t)
	ctx := context.Background()

	otp, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)

	got, err := svc.Verify(ctx, h.Worker.ID, otp.OTPCode)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if got.ID != otp.ID || !got.IsUsed {
		t.Fatalf("unexpected verified OTP: %+v", got)
	}
	if stored, _ := store.OTP(otp.ID); !stored.IsUsed {
		t.Fatal("stored OTP should be marked used")
	}

	if _, err := svc.Verify(ctx, h.Worker.ID, otp.OTPCode); !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Fatalf("second verify: got %v, want ErrInvalidOrExpiredOTP", err)
	}
}

func TestVerifyFailsOnceExpired(t *testing.T) {
	svc, _, h, clock := newOTPFixture(t)
	ctx := context.Background()

	otp, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)
	clock.Advance(10 * time.Minute)

	if _, err := svc.Verify(ctx, h.Worker.ID, otp.OTPCode); !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Fatalf("got %v, want ErrInvalidOrExpiredOTP", err)
	}
}

func TestVerifyRejectsWrongCodeAndWrongWorker(t *testing.T) {
	svc, store, h, _ := newOTPFixture(t)
	ctx := context.Background()

	otp, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)
	other := testutil.AddWorker(t, store, h.TeamLeader, "other", false)

	wrong := "000000"
	if otp.OTPCode == wrong {
		wrong = "111111"
	}
	for _, tc := range []struct {
		worker uuid.UUID
		code   string
	}{
		{h.Worker.ID, wrong},
		{h.Worker.ID, "12ab56"},
		{h.Worker.ID, ""},
		{other.ID, otp.OTPCode},
	} {
		if _, err := svc.Verify(ctx, tc.worker, tc.code); !errors.Is(err, ErrInvalidOrExpiredOTP) {
			t.Fatalf("verify(%s, %q): got %v", tc.worker, tc.code, err)
		}
	}

	// the real code is still usable after the misses
	if _, err := svc.Verify(ctx, h.Worker.ID, otp.OTPCode); err != nil {
		t.Fatalf("verify with right code: %v", err)
	}
}

func TestApprovalWithKnownCode(t *testing.T) {
	svc, store, h, clock := newOTPFixture(t)
	ctx := context.Background()

	err := store.OTPs().Create(ctx, &models.OTPRequest{
		WorkerID:     h.Worker.ID,
		TeamLeaderID: h.TeamLeader.ID,
		OTPCode:      "123456",
		ExpiresAt:    clock.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("seed otp: %v", err)
	}

	clock.Advance(9 * time.Minute)
	otp, err := svc.VerifyAndApprove(ctx, h.Worker, "123456")
	if err != nil {
		t.Fatalf("verify and approve: %v", err)
	}
	if !otp.IsUsed {
		t.Fatal("returned OTP should be used")
	}

	worker, _ := store.Users().Get(ctx, h.Worker.ID)
	if !worker.IsApproved {
		t.Fatal("worker should be approved")
	}
}

func TestSecondIssueKeepsFirstOutstanding(t *testing.T) {
	svc, _, h, _ := newOTPFixture(t)
	ctx := context.Background()

	first, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)
	second, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)

	outstanding, err := svc.ListOutstanding(ctx, h.TeamLeader)
	if err != nil {
		t.Fatalf("list outstanding: %v", err)
	}
	if len(outstanding) != 2 {
		t.Fatalf("expected 2 outstanding codes, got %d", len(outstanding))
	}
	if outstanding[0].WorkerName != h.Worker.Name {
		t.Fatalf("outstanding entry should carry the worker name, got %q", outstanding[0].WorkerName)
	}

	if _, err := svc.Verify(ctx, h.Worker.ID, first.OTPCode); err != nil {
		t.Fatalf("first code should still verify: %v", err)
	}
	if first.OTPCode != second.OTPCode {
		if _, err := svc.Verify(ctx, h.Worker.ID, second.OTPCode); err != nil {
			t.Fatalf("second code should still verify: %v", err)
		}
	}
}

func TestConcurrentVerifyConsumesOnce(t *testing.T) {
	svc, _, h, _ := newOTPFixture(t)
	ctx := context.Background()
	otp, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)

	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(ctx, h.Worker.ID, otp.OTPCode); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful verification, got %d", successes)
	}
}

type stubLimiter struct{ allow bool }

func (l stubLimiter) Allow(ctx context.Context, key string) bool { return l.allow }

func TestVerifyAndApproveRespectsLimiter(t *testing.T) {
	svc, store, h, _ := newOTPFixture(t)
	ctx := context.Background()
	otp, _ := svc.Issue(ctx, h.Worker.ID, h.TeamLeader.ID)

	svc.SetLimiter(stubLimiter{allow: false})
	if _, err := svc.VerifyAndApprove(ctx, h.Worker, otp.OTPCode); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("got %v, want ErrTooManyAttempts", err)
	}
	if stored, _ := store.OTP(otp.ID); stored.IsUsed {
		t.Fatal("a throttled attempt must not consume the code")
	}

	svc.SetLimiter(stubLimiter{allow: true})
	if _, err := svc.VerifyAndApprove(ctx, h.Worker, otp.OTPCode); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestIssueForChecksOwnership(t *testing.T) {
	svc, store, h, _ := newOTPFixture(t)
	ctx := context.Background()

	otherLeader := &models.User{ID: uuid.New(), Name: "l2", Email: "l2@example.com", Username: "l2",
		Role: models.RoleTeamLeader, VendorID: &h.Vendor.ID, IsApproved: true}
	if err := store.Users().Create(ctx, otherLeader); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.IssueFor(ctx, otherLeader, h.Worker.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign leader: got %v, want ErrForbidden", err)
	}
	if _, err := svc.IssueFor(ctx, h.TeamLeader, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown worker: got %v, want ErrNotFound", err)
	}

	otp, err := svc.IssueFor(ctx, h.TeamLeader, h.Worker.ID)
	if err != nil {
		t.Fatalf("own worker: %v", err)
	}
	if otp.TeamLeaderID != h.TeamLeader.ID {
		t.Fatal("OTP should be bound to the worker's team leader")
	}
}

func TestRequestApprovalOnlyForWorkers(t *testing.T) {
	svc, _, h, _ := newOTPFixture(t)
	ctx := context.Background()

	if _, err := svc.RequestApproval(ctx, h.TeamLeader); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	otp, err := svc.RequestApproval(ctx, h.Worker)
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}
	if otp.TeamLeaderID != h.TeamLeader.ID {
		t.Fatal("request should go to the worker's team leader")
	}
	if _, err := svc.ListOutstanding(ctx, h.Worker); !errors.Is(err, ErrForbidden) {
		t.Fatal("workers must not list codes")
	}
}
