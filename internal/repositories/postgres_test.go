package repositories_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"audit-backend/internal/database"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"
	"audit-backend/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// These tests run against a real PostgreSQL when AUDIT_TEST_DATABASE_URL is
// set. Each run migrates into its own schema and drops it afterwards.
const databaseURLEnv = "AUDIT_TEST_DATABASE_URL"

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(databaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", databaseURLEnv)
	}
	ctx := context.Background()

	schema := "audit_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect to schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	if err := database.NewMigratorWithFS(pool, migrations.FS, ".").RunMigrations(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

type pgHierarchy struct {
	vendor, leader, worker *models.User
}

func seedUsers(t *testing.T, users *repositories.UserRepository) pgHierarchy {
	t.Helper()
	ctx := context.Background()
	mk := func(name, role string, vendorID, leaderID *uuid.UUID) *models.User {
		u := &models.User{
			Name:          name,
			Email:         name + "@example.com",
			Username:      name,
			PasswordHash:  "x",
			Role:          role,
			VendorID:      vendorID,
			TeamLeaderID:  leaderID,
			IsApproved:    true,
			WarehouseName: "WH-North",
		}
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return u
	}
	var h pgHierarchy
	h.vendor = mk("vendor", models.RoleVendor, nil, nil)
	h.leader = mk("leader", models.RoleTeamLeader, &h.vendor.ID, nil)
	h.worker = mk("worker", models.RoleWorker, nil, &h.leader.ID)
	return h
}

func efficiencyFor(worker *models.User) func(*models.CountingSession) *models.WorkerEfficiency {
	return func(s *models.CountingSession) *models.WorkerEfficiency {
		return &models.WorkerEfficiency{
			SessionID:        s.ID,
			WarehouseName:    worker.WarehouseName,
			Date:             *s.EndTime,
			Username:         worker.Username,
			BinsCounted:      s.TotalBinsCounted,
			QtyCounted:       s.TotalQtyCounted,
			TimeTakenMinutes: 30,
			EfficiencyScore:  2,
			Ranking:          1,
		}
	}
}

func TestSessionLifecyclePostgres(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	h := seedUsers(t, repositories.NewUserRepository(pool))
	sessions := repositories.NewSessionRepository(pool)
	records := repositories.NewRecordRepository(pool)
	efficiency := repositories.NewEfficiencyRepository(pool)

	start := time.Now().UTC().Truncate(time.Second)
	session := &models.CountingSession{WorkerID: h.worker.ID, StartTime: start}
	created, err := sessions.CreateIfNoneActive(ctx, session)
	if err != nil || !created {
		t.Fatalf("first start: created=%v err=%v", created, err)
	}
	again, err := sessions.CreateIfNoneActive(ctx, &models.CountingSession{WorkerID: h.worker.ID, StartTime: start})
	if err != nil || again {
		t.Fatalf("second start must be refused: created=%v err=%v", again, err)
	}

	rec := &models.CountingRecord{SessionID: session.ID, WarehouseName: "WH-North", Date: start,
		TeamLeaderName: h.leader.Name, Username: h.worker.Username, BinNo: "A001", QtyCounted: 85}
	updated, err := records.Append(ctx, rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if updated.TotalBinsCounted != 1 || updated.TotalQtyCounted != 85 {
		t.Fatalf("totals not incremented: %+v", updated)
	}

	end := start.Add(30 * time.Minute)
	closed, eff, err := sessions.CloseWithEfficiency(ctx, session.ID, end, efficiencyFor(h.worker))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != models.SessionCompleted || eff.BinsCounted != 1 {
		t.Fatalf("unexpected close result: %+v %+v", closed, eff)
	}
	if _, _, err := sessions.CloseWithEfficiency(ctx, session.ID, end, efficiencyFor(h.worker)); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("second close: got %v, want ErrNotFound", err)
	}
	if _, err := efficiency.GetBySession(ctx, session.ID); err != nil {
		t.Fatalf("efficiency row missing: %v", err)
	}

	late := &models.CountingRecord{SessionID: session.ID, WarehouseName: "WH-North", Date: start,
		Username: h.worker.Username, BinNo: "A002", QtyCounted: 5}
	if _, err := records.Append(ctx, late); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("append after close: got %v, want ErrNotFound", err)
	}
	list, err := records.ListBySession(ctx, session.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("rejected append must not leave a record: %d rows, err=%v", len(list), err)
	}
}

func TestCloseRollsBackWhenEfficiencyInsertFails(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	h := seedUsers(t, repositories.NewUserRepository(pool))
	sessions := repositories.NewSessionRepository(pool)

	session := &models.CountingSession{WorkerID: h.worker.ID, StartTime: time.Now().UTC()}
	if _, err := sessions.CreateIfNoneActive(ctx, session); err != nil {
		t.Fatalf("start: %v", err)
	}

	// points at a session that does not exist, so the insert violates its foreign key
	broken := func(s *models.CountingSession) *models.WorkerEfficiency {
		eff := efficiencyFor(h.worker)(s)
		eff.SessionID = uuid.New()
		return eff
	}
	if _, _, err := sessions.CloseWithEfficiency(ctx, session.ID, time.Now().UTC(), broken); !errors.Is(err, repositories.ErrReferenced) {
		t.Fatalf("close with failing insert: got %v", err)
	}

	active, err := sessions.GetActiveByWorker(ctx, h.worker.ID)
	if err != nil || active.ID != session.ID {
		t.Fatalf("session should still be active: %v %+v", err, active)
	}
	if _, _, err := sessions.CloseWithEfficiency(ctx, session.ID, time.Now().UTC(), efficiencyFor(h.worker)); err != nil {
		t.Fatalf("retried close: %v", err)
	}
}

func TestOTPMarkUsedOncePostgres(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	h := seedUsers(t, repositories.NewUserRepository(pool))
	otps := repositories.NewOTPRepository(pool)

	now := time.Now().UTC()
	otp := &models.OTPRequest{WorkerID: h.worker.ID, TeamLeaderID: h.leader.ID, OTPCode: "042137", ExpiresAt: now.Add(10 * time.Minute)}
	if err := otps.Create(ctx, otp); err != nil {
		t.Fatalf("create otp: %v", err)
	}
	if _, err := otps.FetchEligible(ctx, h.worker.ID, "042137", now); err != nil {
		t.Fatalf("fetch eligible: %v", err)
	}

	first, err := otps.MarkUsed(ctx, otp.ID)
	if err != nil || !first {
		t.Fatalf("first mark: %v %v", first, err)
	}
	second, err := otps.MarkUsed(ctx, otp.ID)
	if err != nil || second {
		t.Fatalf("second mark must not consume: %v %v", second, err)
	}
	if _, err := otps.FetchEligible(ctx, h.worker.ID, "042137", now); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("used code still eligible: %v", err)
	}
}

func TestDeleteLeaderWithWorkersIsReferenced(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := repositories.NewUserRepository(pool)
	h := seedUsers(t, users)

	if err := users.Delete(ctx, h.leader.ID); !errors.Is(err, repositories.ErrReferenced) {
		t.Fatalf("delete leader with workers: got %v, want ErrReferenced", err)
	}
}
