package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/model"
)

// UserRepo implements repository.UserStore using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, name, password_hash, mfa_enabled, failed_login_count, locked_until, created_at`

// FindByEmail loads a user by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// FindByID loads a user by ID.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *UserRepo) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.MfaEnabled,
		&u.FailedLoginCount, &u.LockedUntil, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UpdateLockout writes the lockout fields only while the stored counter still
// matches expectedFailedCount. Zero affected rows means a concurrent attempt
// got there first (or the user vanished); the caller reloads and recomputes.
func (r *UserRepo) UpdateLockout(ctx context.Context, id uuid.UUID, failedCount int, lockedUntil *time.Time, expectedFailedCount int) error {
	const q = `
UPDATE users SET failed_login_count=$2, locked_until=$3
WHERE id=$1 AND failed_login_count=$4`
	tag, err := r.db.Pool.Exec(ctx, q, id, failedCount, lockedUntil, expectedFailedCount)
	if err != nil {
		return fmt.Errorf("update lockout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// SetMfaEnabled flips the MFA flag.
func (r *UserRepo) SetMfaEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const q = `UPDATE users SET mfa_enabled=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, enabled)
	if err != nil {
		return fmt.Errorf("set mfa enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListRoleNames returns the names of the user's assigned roles.
func (r *UserRepo) ListRoleNames(ctx context.Context, id uuid.UUID) ([]string, error) {
	const q = `
SELECT r.name FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = $1
ORDER BY r.name`
	rows, err := r.db.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
