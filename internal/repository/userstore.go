// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/secureweb/auth-service/internal/model"
)

// UserStore provides access to user records and their lockout state.
type UserStore interface {
	// FindByEmail loads a user by email; errs.ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByID loads a user by ID; errs.ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// UpdateLockout writes the lockout fields conditionally: it succeeds only
	// while failed_login_count still equals expectedFailedCount, returning
	// errs.ErrVersionConflict when a concurrent attempt won the race.
	UpdateLockout(ctx context.Context, id uuid.UUID, failedCount int, lockedUntil *time.Time, expectedFailedCount int) error
	// SetMfaEnabled flips the MFA flag.
	SetMfaEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	// ListRoleNames returns the names of the user's assigned roles.
	ListRoleNames(ctx context.Context, id uuid.UUID) ([]string, error)
}
