package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// UserRepository defines persistence access for citizens.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, phone, street, city, state, pincode, password_hash, role, created_at, updated_at`

// Create inserts the user. Uniqueness is enforced by uq_users_email and uq_users_phone.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, phone, street, city, state, pincode, password_hash, role)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		nullable(user.Phone),
		user.Address.Street,
		user.Address.City,
		user.Address.State,
		user.Address.Pincode,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	email, phone := lookupKeys(identifier)
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1 OR phone=$2 LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, email, phone))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user  domain.User
		phone *string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&phone,
		&user.Address.Street,
		&user.Address.City,
		&user.Address.State,
		&user.Address.Pincode,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	user.Phone = deref(phone)
	return &user, nil
}
