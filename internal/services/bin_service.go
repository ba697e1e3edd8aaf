package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"audit-backend/internal/cache"
	"audit-backend/internal/models"
)

const binListTTL = 10 * time.Minute

type BinService struct {
	Repo BinStore
}

func NewBinService(repo BinStore) *BinService {
	return &BinService{Repo: repo}
}

// Create registers a bin. Vendors can only add bins to their own warehouse.
func (s *BinService) Create(ctx context.Context, actor *models.User, bin *models.Bin) (*models.Bin, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleVendor:
		bin.WarehouseName = actor.WarehouseName
	default:
		return nil, ErrForbidden
	}
	if err := validateBin(bin); err != nil {
		return nil, err
	}
	if prev, err := s.Repo.GetByCode(ctx, bin.BinCode); err == nil && prev.WarehouseName != bin.WarehouseName {
		if actor.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
		defer cache.InvalidateWarehouseBins(ctx, prev.WarehouseName)
	}
	if err := s.Repo.Upsert(ctx, bin); err != nil {
		return nil, err
	}
	cache.InvalidateWarehouseBins(ctx, bin.WarehouseName)
	return bin, nil
}

// Import upserts a batch of bins, stopping at the first invalid one
func (s *BinService) Import(ctx context.Context, bins []*models.Bin) (int, error) {
	for _, b := range bins {
		if err := validateBin(b); err != nil {
			return 0, err
		}
	}
	n := 0
	for _, b := range bins {
		if err := s.Repo.Upsert(ctx, b); err != nil {
			return n, err
		}
		n++
	}
	cache.InvalidateBinCaches(ctx)
	return n, nil
}

func (s *BinService) GetByCode(ctx context.Context, code string) (*models.Bin, error) {
	bin, err := s.Repo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, storeErr(err)
	}
	return bin, nil
}

// ListByWarehouse serves from Redis when available
func (s *BinService) ListByWarehouse(ctx context.Context, warehouse string) ([]*models.Bin, error) {
	key := cache.BinListKey(warehouse)
	if data, ok := cache.GetCached(ctx, key); ok {
		var bins []*models.Bin
		if json.Unmarshal(data, &bins) == nil {
			return bins, nil
		}
	}

	bins, err := s.Repo.ListByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bins); err == nil {
		cache.SetCached(ctx, key, data, binListTTL)
	}
	return bins, nil
}

func validateBin(b *models.Bin) error {
	b.BinCode = strings.TrimSpace(b.BinCode)
	b.WarehouseName = strings.TrimSpace(b.WarehouseName)
	b.Location = strings.TrimSpace(b.Location)
	if b.BinCode == "" {
		return invalid("bin_code", "bin code is required")
	}
	if b.WarehouseName == "" {
		return invalid("warehouse_name", "warehouse name is required")
	}
	return nil
}
