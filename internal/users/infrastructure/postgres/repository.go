package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	users "sensor-cloud/internal/users/domain"
)

// UserRepository stores account rows.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts an account.
func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, role, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "23505") {
		return users.ErrEmailTaken
	}
	return err
}

// GetByEmail fetches an account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, role, created_at
FROM users
WHERE email = $1`, email)
	var user users.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

// ListEmails returns every account email. This is the recipient directory for
// inactivity alerts.
func (r *UserRepository) ListEmails(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
