package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// AdminRepository handles persistence for administrators.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Admin, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

const adminColumns = `id, name, email, phone, password_hash, role, permissions, active, last_login_at, created_at, updated_at`

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (id, name, email, phone, password_hash, role, permissions, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`

	if admin.Permissions == nil {
		admin.Permissions = domain.Permissions{}
	}
	err := r.pool.QueryRow(ctx, query,
		admin.ID,
		admin.Name,
		admin.Email,
		nullable(admin.Phone),
		admin.PasswordHash,
		admin.Role,
		admin.Permissions,
		admin.Active,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	return mapError(err)
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id=$1`
	return scanAdmin(r.pool.QueryRow(ctx, query, id))
}

func (r *adminRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Admin, error) {
	email, phone := lookupKeys(identifier)
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email=$1 OR phone=$2 LIMIT 1`
	return scanAdmin(r.pool.QueryRow(ctx, query, email, phone))
}

func (r *adminRepository) TouchLastLogin(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE admins SET last_login_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var (
		admin domain.Admin
		phone *string
	)
	if err := row.Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&phone,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Permissions,
		&admin.Active,
		&admin.LastLoginAt,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	admin.Phone = deref(phone)
	if admin.Permissions == nil {
		admin.Permissions = domain.Permissions{}
	}
	return &admin, nil
}
