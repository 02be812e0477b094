package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for the user directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FirstByRole(ctx context.Context, role domain.Role) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userSelect = `
        SELECT id, name, email, department, role, password_hash, created_at
        FROM users`

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE lower(email)=$1`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepository) FirstByRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE role=$1 ORDER BY id LIMIT 1`, role))
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, department, role, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email,
            department=EXCLUDED.department, role=EXCLUDED.role, password_hash=EXCLUDED.password_hash
        RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Department,
		user.Role,
		user.PasswordHash,
	).Scan(&user.CreatedAt)
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Department,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
