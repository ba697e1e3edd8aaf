package repositories

import (
	"context"
	"time"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EfficiencyRepository struct {
	DB *pgxpool.Pool
}

func NewEfficiencyRepository(db *pgxpool.Pool) *EfficiencyRepository {
	return &EfficiencyRepository{DB: db}
}

const efficiencyColumns = `id, session_id, warehouse_name, date, username, bins_counted, qty_counted,
	time_taken_minutes, efficiency_score, ranking, created_at`

// insertEfficiency writes a row inside the session-closing transaction.
// There is no standalone insert: efficiency only exists for a closed session.
func insertEfficiency(ctx context.Context, tx pgx.Tx, e *models.WorkerEfficiency) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO worker_efficiency(id, session_id, warehouse_name, date, username, bins_counted, qty_counted,
			time_taken_minutes, efficiency_score, ranking)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`,
		e.ID, e.SessionID, e.WarehouseName, e.Date, e.Username, e.BinsCounted, e.QtyCounted,
		e.TimeTakenMinutes, e.EfficiencyScore, e.Ranking,
	).Scan(&e.CreatedAt)
	return translate(err)
}

func (r *EfficiencyRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.WorkerEfficiency, error) {
	var e models.WorkerEfficiency
	err := r.DB.QueryRow(ctx,
		`SELECT `+efficiencyColumns+` FROM worker_efficiency WHERE session_id=$1`, sessionID,
	).Scan(&e.ID, &e.SessionID, &e.WarehouseName, &e.Date, &e.Username, &e.BinsCounted, &e.QtyCounted,
		&e.TimeTakenMinutes, &e.EfficiencyScore, &e.Ranking, &e.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// ListByWarehouseDate orders by score, highest first. Stored ranking is left as written.
func (r *EfficiencyRepository) ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.WorkerEfficiency, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+efficiencyColumns+` FROM worker_efficiency
		WHERE ($1 = '' OR warehouse_name = $1) AND date = $2::date
		ORDER BY efficiency_score DESC, created_at`, warehouse, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.WorkerEfficiency
	for rows.Next() {
		var e models.WorkerEfficiency
		err := rows.Scan(&e.ID, &e.SessionID, &e.WarehouseName, &e.Date, &e.Username, &e.BinsCounted, &e.QtyCounted,
			&e.TimeTakenMinutes, &e.EfficiencyScore, &e.Ranking, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
