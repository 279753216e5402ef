package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// StaffRepository handles persistence for field workers.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.Staff) error
	Update(ctx context.Context, staff *domain.Staff) error
	GetByID(ctx context.Context, id string) (*domain.Staff, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Staff, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.Staff, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Approved *bool
	Limit    int
	Offset   int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, phone, staff_id, password_hash, role, approved, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	const query = `
        INSERT INTO staff_members (id, name, email, phone, staff_id, password_hash, role, approved)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		staff.ID,
		staff.Name,
		staff.Email,
		nullable(staff.Phone),
		staff.StaffID,
		staff.PasswordHash,
		staff.Role,
		staff.Approved,
	).Scan(&staff.CreatedAt, &staff.UpdatedAt)
	return mapError(err)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.Staff) error {
	const query = `
        UPDATE staff_members
        SET name=$1, email=$2, phone=$3, staff_id=$4, password_hash=$5, approved=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		nullable(staff.Phone),
		staff.StaffID,
		staff.PasswordHash,
		staff.Approved,
		staff.ID,
	).Scan(&staff.UpdatedAt)
	return mapError(err)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Staff, error) {
	email, _ := lookupKeys(identifier)
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE email=$1 OR staff_id=$2 LIMIT 1`
	return scanStaff(r.pool.QueryRow(ctx, query, email, strings.TrimSpace(identifier)))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members`
	args := []any{}
	clauses := []string{}

	if filter.Approved != nil {
		args = append(args, *filter.Approved)
		clauses = append(clauses, fmt.Sprintf("approved=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Staff
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, mapError(rows.Err())
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanStaff(row pgx.Row) (*domain.Staff, error) {
	var (
		staff domain.Staff
		phone *string
	)
	if err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&phone,
		&staff.StaffID,
		&staff.PasswordHash,
		&staff.Role,
		&staff.Approved,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	staff.Phone = deref(phone)
	return &staff, nil
}
