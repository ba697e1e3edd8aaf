package services

import (
	"context"
	"errors"
	"testing"

	"audit-backend/internal/cache"
	"audit-backend/internal/models"
	"audit-backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCreateBinScopesVendorWarehouse(t *testing.T) {
	store := testutil.NewStore()
	h := testutil.SeedHierarchy(t, store)
	svc := NewBinService(store.Bins())
	ctx := context.Background()

	bin, err := svc.Create(ctx, h.Vendor, &models.Bin{BinCode: " B100 ", WarehouseName: "WH-Elsewhere", Location: "Rack 4"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bin.BinCode != "B100" || bin.WarehouseName != testutil.Warehouse {
		t.Fatalf("vendor bins belong to its own warehouse: %+v", bin)
	}

	if _, err := svc.Create(ctx, h.TeamLeader, &models.Bin{BinCode: "B101", WarehouseName: "X"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("team leader create: got %v", err)
	}
	if _, err := svc.Create(ctx, h.Admin, &models.Bin{BinCode: "B102"}); !IsValidation(err) {
		t.Fatalf("admin without warehouse: got %v", err)
	}

	got, err := svc.GetByCode(ctx, "B100")
	if err != nil || got.Location != "Rack 4" {
		t.Fatalf("get: %v %+v", err, got)
	}

	if _, err := svc.Create(ctx, h.Admin, &models.Bin{BinCode: "Z900", WarehouseName: "WH-South"}); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if _, err := svc.Create(ctx, h.Vendor, &models.Bin{BinCode: "Z900"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("vendor taking another warehouse's bin: got %v", err)
	}
	if got, _ := svc.GetByCode(ctx, "Z900"); got.WarehouseName != "WH-South" {
		t.Fatalf("bin should stay in WH-South: %+v", got)
	}
	if _, err := svc.GetByCode(ctx, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown bin: got %v", err)
	}
}

func TestImportValidatesBeforeWriting(t *testing.T) {
	store := testutil.NewStore()
	svc := NewBinService(store.Bins())
	ctx := context.Background()

	_, err := svc.Import(ctx, []*models.Bin{
		{BinCode: "C1", WarehouseName: "WH"},
		{BinCode: "", WarehouseName: "WH"},
	})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n, _ := store.Bins().Count(ctx); n != 0 {
		t.Fatalf("nothing should be written on a bad batch, got %d bins", n)
	}

	n, err := svc.Import(ctx, []*models.Bin{
		{BinCode: "C1", WarehouseName: "WH"},
		{BinCode: "C2", WarehouseName: "WH"},
		{BinCode: "C1", WarehouseName: "WH", Location: "moved"},
	})
	if err != nil || n != 3 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	if count, _ := store.Bins().Count(ctx); count != 2 {
		t.Fatalf("re-imported codes should upsert, got %d bins", count)
	}
}

func TestListByWarehouseUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	store := testutil.NewStore()
	h := testutil.SeedHierarchy(t, store)
	testutil.AddBins(t, store, "A001")
	svc := NewBinService(store.Bins())
	ctx := context.Background()

	bins, err := svc.ListByWarehouse(ctx, testutil.Warehouse)
	if err != nil || len(bins) != 1 {
		t.Fatalf("first list: %v, %d bins", err, len(bins))
	}
	if !mr.Exists(cache.BinListKey(testutil.Warehouse)) {
		t.Fatal("list should be cached")
	}

	// written behind the service's back, so the cached copy is stale
	testutil.AddBins(t, store, "A002")
	bins, _ = svc.ListByWarehouse(ctx, testutil.Warehouse)
	if len(bins) != 1 {
		t.Fatalf("expected cached list, got %d bins", len(bins))
	}

	if _, err := svc.Create(ctx, h.Admin, &models.Bin{BinCode: "A003", WarehouseName: testutil.Warehouse}); err != nil {
		t.Fatalf("create: %v", err)
	}
	bins, _ = svc.ListByWarehouse(ctx, testutil.Warehouse)
	if len(bins) != 3 {
		t.Fatalf("create should invalidate the cache, got %d bins", len(bins))
	}
}
