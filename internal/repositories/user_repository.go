package repositories

import (
	"context"
	"fmt"
	"strings"

	"audit-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, email, username, password_hash, role, vendor_id, team_leader_id,
	is_approved, warehouse_name, COALESCE(totp_secret, ''), totp_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.VendorID, &u.TeamLeaderID, &u.IsApproved, &u.WarehouseName,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(id, name, email, username, password_hash, role, vendor_id, team_leader_id, is_approved, warehouse_name)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.Username, u.PasswordHash, u.Role, u.VendorID, u.TeamLeaderID, u.IsApproved, u.WarehouseName,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

// List returns users matching the filter, newest first
func (r *UserRepository) List(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Role != "" {
		add("role = $%d", f.Role)
	}
	if f.VendorID != nil {
		add("vendor_id = $%d", *f.VendorID)
	}
	if f.TeamLeaderID != nil {
		add("team_leader_id = $%d", *f.TeamLeaderID)
	}
	if f.Approved != nil {
		add("is_approved = $%d", *f.Approved)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetApproval is the updateUserApproval boundary call
func (r *UserRepository) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET is_approved=$2, updated_at=NOW() WHERE id=$1`, id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user row outright
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTOTP stores the authenticator secret and whether it is active
func (r *UserRepository) SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	var secretArg interface{}
	if secret != "" {
		secretArg = secret
	}
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret=$2, totp_enabled=$3, updated_at=NOW() WHERE id=$1`,
		id, secretArg, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&count)
	return count, err
}
