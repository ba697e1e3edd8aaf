package repositories

import (
	"context"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BinRepository struct {
	DB *pgxpool.Pool
}

func NewBinRepository(db *pgxpool.Pool) *BinRepository {
	return &BinRepository{DB: db}
}

// Upsert inserts a bin or refreshes warehouse/location for an existing code
func (r *BinRepository) Upsert(ctx context.Context, b *models.Bin) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO bin_master(id, bin_code, warehouse_name, location)
		 VALUES($1, $2, $3, $4)
		 ON CONFLICT (bin_code) DO UPDATE SET warehouse_name=EXCLUDED.warehouse_name, location=EXCLUDED.location
		 RETURNING id, created_at`,
		b.ID, b.BinCode, b.WarehouseName, b.Location,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *BinRepository) GetByCode(ctx context.Context, code string) (*models.Bin, error) {
	var b models.Bin
	err := r.DB.QueryRow(ctx,
		`SELECT id, bin_code, warehouse_name, location, created_at FROM bin_master WHERE bin_code=$1`, code,
	).Scan(&b.ID, &b.BinCode, &b.WarehouseName, &b.Location, &b.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// ListByWarehouse lists bins ordered by code; empty warehouse lists all
func (r *BinRepository) ListByWarehouse(ctx context.Context, warehouse string) ([]*models.Bin, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, bin_code, warehouse_name, location, created_at FROM bin_master
		 WHERE $1 = '' OR warehouse_name = $1
		 ORDER BY bin_code`, warehouse)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bins []*models.Bin
	for rows.Next() {
		var b models.Bin
		if err := rows.Scan(&b.ID, &b.BinCode, &b.WarehouseName, &b.Location, &b.CreatedAt); err != nil {
			return nil, err
		}
		bins = append(bins, &b)
	}
	return bins, rows.Err()
}

func (r *BinRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM bin_master`).Scan(&count)
	return count, err
}
