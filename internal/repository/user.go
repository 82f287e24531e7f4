package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/plixa/plixa/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")
	ErrNoResetToken = errors.New("no active reset token")
)

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, user_type, password_hash, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Type,
		user.PasswordHash,
		user.Disabled,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, first_name, last_name, user_type, password_hash, disabled, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, first_name, last_name, user_type, password_hash, disabled, created_at
		FROM users
		WHERE email = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListUsers returns all users, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, email, first_name, last_name, user_type, password_hash, disabled, created_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateUser applies a partial update to a user's profile fields.
func (r *Repository) UpdateUser(ctx context.Context, id string, req *model.UpdateUserRequest) error {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, req.FirstName, req.LastName)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetUserDisabled flips the disabled flag on an account.
func (r *Repository) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	query := `UPDATE users SET disabled = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, disabled)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateUserPassword replaces the stored password hash and clears any
// outstanding reset token.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetResetToken stores the hash of a password reset token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetResetToken returns the stored reset token hash for a user. Expired or
// absent tokens yield ErrNoResetToken.
func (r *Repository) GetResetToken(ctx context.Context, id string) (string, error) {
	query := `
		SELECT reset_token_hash, reset_token_expires_at
		FROM users
		WHERE id = $1
	`

	var hash *string
	var expiresAt *time.Time
	if err := r.pool.QueryRow(ctx, query, id).Scan(&hash, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get reset token: %w", err)
	}

	if hash == nil || expiresAt == nil || time.Now().After(*expiresAt) {
		return "", ErrNoResetToken
	}

	return *hash, nil
}

// DeleteUser removes a user permanently.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Type,
		&user.PasswordHash,
		&user.Disabled,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
