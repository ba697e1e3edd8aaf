package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/models"

	"github.com/google/uuid"
)

// Password is the plaintext for every seeded account
const Password = "password123"

// Warehouse is the seeded warehouse name
const Warehouse = "WH-North"

// FakeClock is a settable time source
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Hierarchy is one admin, vendor, team leader and worker chain
type Hierarchy struct {
	Admin      *models.User
	Vendor     *models.User
	TeamLeader *models.User
	Worker     *models.User
}

// SeedHierarchy creates an approved admin, vendor and team leader plus an
// unapproved worker in Warehouse
func SeedHierarchy(t *testing.T, s *Store) *Hierarchy {
	t.Helper()

	hash, err := auth.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := s.Users()
	ctx := context.Background()

	mk := func(name, role string, approved bool, vendorID, leaderID *uuid.UUID) *models.User {
		u := &models.User{
			ID:            uuid.New(),
			Name:          name,
			Email:         name + "@example.com",
			Username:      name,
			PasswordHash:  hash,
			Role:          role,
			VendorID:      vendorID,
			TeamLeaderID:  leaderID,
			IsApproved:    approved,
			WarehouseName: Warehouse,
		}
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		return u
	}

	h := &Hierarchy{}
	h.Admin = mk("admin", models.RoleAdmin, true, nil, nil)
	h.Vendor = mk("vendor", models.RoleVendor, true, nil, nil)
	h.TeamLeader = mk("leader", models.RoleTeamLeader, true, &h.Vendor.ID, nil)
	h.Worker = mk("worker", models.RoleWorker, false, nil, &h.TeamLeader.ID)
	return h
}

// AddWorker creates another worker under leader
func AddWorker(t *testing.T, s *Store, leader *models.User, name string, approved bool) *models.User {
	t.Helper()
	u := &models.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         name + "@example.com",
		Username:      name,
		PasswordHash:  "x",
		Role:          models.RoleWorker,
		TeamLeaderID:  &leader.ID,
		IsApproved:    approved,
		WarehouseName: leader.WarehouseName,
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return u
}

// AddBins registers bins in Warehouse
func AddBins(t *testing.T, s *Store, codes ...string) {
	t.Helper()
	for _, code := range codes {
		b := &models.Bin{BinCode: code, WarehouseName: Warehouse, Location: "Aisle 1"}
		if err := s.Bins().Upsert(context.Background(), b); err != nil {
			t.Fatalf("seed bin %s: %v", code, err)
		}
	}
}
